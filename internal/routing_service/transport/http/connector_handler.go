package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/routemesh/sms-routing/internal/routing_service/app"
)

type ConnectorHandler struct {
	connectors *app.ConnectorService
	logger     *slog.Logger
	validate   *validator.Validate
}

func NewConnectorHandler(connectors *app.ConnectorService, logger *slog.Logger, validate *validator.Validate) *ConnectorHandler {
	return &ConnectorHandler{
		connectors: connectors,
		logger:     logger.With("component", "connector_handler"),
		validate:   validate,
	}
}

func (h *ConnectorHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req CreateConnectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(ctx, req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	connector, err := h.connectors.Create(ctx, req.Name)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create connector", "error", err, "connector_id", req.Name)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, connector)
}

func (h *ConnectorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "connectorID")
	if err := h.connectors.Delete(ctx, name); err != nil {
		h.logger.ErrorContext(ctx, "Failed to delete connector", "error", err, "connector_id", name)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *ConnectorHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "connectorID")
	if err := h.connectors.Start(ctx, name); err != nil {
		h.logger.ErrorContext(ctx, "Failed to start connector", "error", err, "connector_id", name)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (h *ConnectorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "connectorID")
	if err := h.connectors.Stop(ctx, name); err != nil {
		h.logger.ErrorContext(ctx, "Failed to stop connector", "error", err, "connector_id", name)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (h *ConnectorHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "connectorID")

	var req UpdateConnectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(ctx, req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.connectors.Update(ctx, name, req.Params); err != nil {
		h.logger.ErrorContext(ctx, "Failed to update connector", "error", err, "connector_id", name)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *ConnectorHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	infos, cached, err := h.connectors.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list connectors", "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"connectors": infos, "cached": cached})
}

func (h *ConnectorHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "connectorID")
	info, err := h.connectors.Get(ctx, name)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to fetch connector", "error", err, "connector_id", name)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}
