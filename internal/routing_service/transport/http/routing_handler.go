package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/routemesh/sms-routing/internal/routing_service/app"
	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

type RoutingHandler struct {
	provisioner *app.RouteProvisioner
	routing     domain.RoutingConfigRepository
	logger      *slog.Logger
	validate    *validator.Validate
}

func NewRoutingHandler(provisioner *app.RouteProvisioner, routing domain.RoutingConfigRepository, logger *slog.Logger, validate *validator.Validate) *RoutingHandler {
	return &RoutingHandler{
		provisioner: provisioner,
		routing:     routing,
		logger:      logger.With("component", "routing_handler"),
		validate:    validate,
	}
}

// Provision runs one provisioning sequence. The run is synchronous: it
// returns after every gateway call and the configuration upsert completed
// or a fatal step aborted it.
func (h *RoutingHandler) Provision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req app.ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(ctx, req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.provisioner.Provision(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "Provisioning failed", "error", err, "username", req.Username, "country", req.Country)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *RoutingHandler) ListConfigurations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if username := r.URL.Query().Get("username"); username != "" {
		configs, err := h.routing.ListByUsername(ctx, username)
		if err != nil {
			h.logger.ErrorContext(ctx, "Failed to list routing configurations", "error", err, "username", username)
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, configs)
		return
	}

	configs, err := h.routing.ListAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list routing configurations", "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, configs)
}

func (h *RoutingHandler) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")
	country := chi.URLParam(r, "country")

	cfg, err := h.routing.FindByUsernameAndCountry(ctx, username, country)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to fetch routing configuration", "error", err, "username", username, "country", country)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (h *RoutingHandler) ListUsernames(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usernames, err := h.routing.DistinctUsernames(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list routed usernames", "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, usernames)
}
