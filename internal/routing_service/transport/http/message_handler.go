package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/routemesh/sms-routing/internal/routing_service/app"
)

type MessageHandler struct {
	messages *app.MessageService
	logger   *slog.Logger
	validate *validator.Validate
}

func NewMessageHandler(messages *app.MessageService, logger *slog.Logger, validate *validator.Validate) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		logger:   logger.With("component", "message_handler"),
		validate: validate,
	}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req app.SendMessageCommand
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(ctx, req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	messageID, err := h.messages.Send(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "Message submission failed", "error", err, "to", req.To)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SendMessageResponse{MessageID: messageID})
}
