package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/routemesh/sms-routing/internal/routing_service/app"
	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

type CatalogHandler struct {
	catalog  *app.CatalogService
	exporter *app.CatalogExporter
	logger   *slog.Logger
	validate *validator.Validate
}

func NewCatalogHandler(catalog *app.CatalogService, exporter *app.CatalogExporter, logger *slog.Logger, validate *validator.Validate) *CatalogHandler {
	return &CatalogHandler{
		catalog:  catalog,
		exporter: exporter,
		logger:   logger.With("component", "catalog_handler"),
		validate: validate,
	}
}

func (h *CatalogHandler) AddCountry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req AddCountryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(ctx, req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.catalog.AddCountry(ctx, req.Country, req.CallingCode, req.MCC)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to add country", "error", err, "country", req.Country)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (h *CatalogHandler) AddOperator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req AddOperatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(ctx, req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.catalog.AddOperator(ctx, req.Country, req.OperatorName, req.MNC, req.MCC, req.CallingCode)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to add operator", "error", err, "country", req.Country, "operator", req.OperatorName)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (h *CatalogHandler) AddPrefix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req AddPrefixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(ctx, req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.catalog.AddPrefix(ctx, req.Country, req.OperatorName, req.MNC, req.Prefix)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to add prefix", "error", err, "country", req.Country, "operator", req.OperatorName, "prefix", req.Prefix)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (h *CatalogHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	countries, err := h.catalog.ListCountries(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list countries", "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, countries)
}

func (h *CatalogHandler) ListOperators(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	country := r.URL.Query().Get("country")
	search := r.URL.Query().Get("search")
	page := parsePage(r)

	groups, total, err := h.catalog.ListUniqueOperators(ctx, country, search, page)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list operators", "error", err, "country", country)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, listResponse(groups, total, page))
}

func (h *CatalogHandler) ListPrefixes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := prefixFilterFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}
	page := parsePage(r)

	entries, total, err := h.catalog.ListPrefixes(ctx, filter, page)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list prefixes", "error", err, "country", filter.Country)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, listResponse(entries, total, page))
}

func (h *CatalogHandler) ExportCountries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="countries.csv"`)
	if err := h.exporter.ExportCountries(r.Context(), w); err != nil {
		h.logger.ErrorContext(r.Context(), "Country export failed", "error", err)
	}
}

func (h *CatalogHandler) ExportOperators(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="operators.csv"`)
	if err := h.exporter.ExportOperators(r.Context(), country, w); err != nil {
		h.logger.ErrorContext(r.Context(), "Operator export failed", "error", err, "country", country)
	}
}

func (h *CatalogHandler) ExportPrefixes(w http.ResponseWriter, r *http.Request) {
	filter, err := prefixFilterFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="prefixes.csv"`)
	if err := h.exporter.ExportPrefixes(r.Context(), filter, w); err != nil {
		h.logger.ErrorContext(r.Context(), "Prefix export failed", "error", err, "country", filter.Country)
	}
}

func prefixFilterFromQuery(r *http.Request) (domain.PrefixFilter, error) {
	filter := domain.PrefixFilter{
		Country:  r.URL.Query().Get("country"),
		Operator: r.URL.Query().Get("operator"),
		Search:   r.URL.Query().Get("search"),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("mnc")); raw != "" {
		mnc, err := domain.ParseMNC(raw)
		if err != nil {
			return domain.PrefixFilter{}, err
		}
		filter.MNC = &mnc
	}
	return filter, nil
}
