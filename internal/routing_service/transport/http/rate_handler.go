package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/routemesh/sms-routing/internal/routing_service/app"
	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// maxImportFileSize caps uploaded rate sheets at 10 MiB.
const maxImportFileSize = 10 << 20

type RateHandler struct {
	rates    domain.RateTableRepository
	resolver *app.RateResolver
	importer *app.RateImporter
	logger   *slog.Logger
	validate *validator.Validate
}

func NewRateHandler(rates domain.RateTableRepository, resolver *app.RateResolver, importer *app.RateImporter, logger *slog.Logger, validate *validator.Validate) *RateHandler {
	return &RateHandler{
		rates:    rates,
		resolver: resolver,
		importer: importer,
		logger:   logger.With("component", "rate_handler"),
		validate: validate,
	}
}

func (h *RateHandler) UpsertRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req UpsertRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if err := h.validate.StructCtx(ctx, req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	record := domain.RateRecord{
		MCC:         req.MCC,
		MNC:         req.MNC,
		ConnectorID: req.ConnectorID,
		Rate:        req.Rate,
		Label:       req.Label,
	}
	if err := h.rates.UpsertRate(ctx, record); err != nil {
		logger.ErrorContext(ctx, "Failed to upsert rate", "error", err, "mcc", req.MCC, "connector_id", req.ConnectorID)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// ResolveCountryRates answers "what does this country cost per operator on
// this connector", including unpriced operators.
func (h *RateHandler) ResolveCountryRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	country := r.URL.Query().Get("country")
	connectorID := r.URL.Query().Get("connectorId")
	search := r.URL.Query().Get("search")
	page := parsePage(r)

	result, err := h.resolver.ResolveRatesForCountryAndConnector(ctx, country, connectorID, search, page)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to resolve country rates", "error", err, "country", country, "connector_id", connectorID)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *RateHandler) ResolveConnectorRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	connectorID := chi.URLParam(r, "connectorID")

	rates, err := h.resolver.ResolveRatesForConnector(ctx, connectorID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to resolve connector rates", "error", err, "connector_id", connectorID)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rates)
}

// ImportRates accepts a multipart upload with a "file" part and a
// connectorId form field. The file format is taken from the upload's
// extension.
func (h *RateHandler) ImportRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	if err := r.ParseMultipartForm(maxImportFileSize); err != nil {
		http.Error(w, "Invalid multipart upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	connectorID := r.FormValue("connectorId")
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file part: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	summary, err := h.importer.ImportRatesFile(ctx, file, format, connectorID)
	if err != nil {
		logger.ErrorContext(ctx, "Rate import failed", "error", err, "file", header.Filename, "connector_id", connectorID)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// SampleTemplate serves the CSV template for rate imports.
func (h *RateHandler) SampleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="rates_template.csv"`)
	if err := app.WriteSampleRatesTemplate(w); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to write sample template", "error", err)
	}
}
