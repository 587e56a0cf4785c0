package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/routemesh/sms-routing/internal/platform/messagebroker"
	"github.com/routemesh/sms-routing/internal/routing_service/app"
	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// DLRHandler receives delivery-receipt callbacks from the gateway and
// republishes them onto the broker for the consumer to deduplicate. The
// gateway retries undelivered callbacks, so this endpoint must accept
// duplicates and answer quickly.
type DLRHandler struct {
	broker messagebroker.NATSClient
	logger *slog.Logger
}

func NewDLRHandler(broker messagebroker.NATSClient, logger *slog.Logger) *DLRHandler {
	return &DLRHandler{
		broker: broker,
		logger: logger.With("component", "dlr_handler"),
	}
}

// Receive accepts the gateway's form-encoded DLR callback.
func (h *DLRHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid callback body: "+err.Error(), http.StatusBadRequest)
		return
	}

	record := domain.DLRRecord{
		Data: domain.DLRPayload{
			ID:            r.FormValue("id"),
			Level:         r.FormValue("level"),
			MessageStatus: r.FormValue("message_status"),
			Subdate:       r.FormValue("subdate"),
			DoneDate:      r.FormValue("donedate"),
		},
		ReceivedAt: time.Now().UTC(),
	}
	if record.Data.ID == "" {
		http.Error(w, "Missing message id in DLR callback", http.StatusBadRequest)
		return
	}

	payload, err := json.Marshal(record)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to marshal DLR record", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	subject := app.DLRSubject + "." + record.Data.ID
	if err := h.broker.Publish(ctx, subject, payload); err != nil {
		logger.ErrorContext(ctx, "Failed to publish DLR record", "error", err, "message_id", record.Data.ID)
		http.Error(w, "Failed to accept DLR", http.StatusInternalServerError)
		return
	}

	logger.DebugContext(ctx, "DLR callback accepted", "message_id", record.Data.ID, "status", record.Data.MessageStatus)
	// The gateway only needs an ACK body.
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ACK/Jasmin"))
}
