package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// AddCountryRequest declares a country in the dial plan.
type AddCountryRequest struct {
	Country     string `json:"country" validate:"required"`
	CallingCode int    `json:"cc" validate:"required,gt=0"`
	MCC         int    `json:"mcc" validate:"required,gt=0"`
}

// AddOperatorRequest declares an operator under a country.
type AddOperatorRequest struct {
	Country      string     `json:"country" validate:"required"`
	OperatorName string     `json:"operator" validate:"required"`
	MNC          domain.MNC `json:"mnc"`
	MCC          int        `json:"mcc" validate:"required,gt=0"`
	CallingCode  int        `json:"cc" validate:"gte=0"`
}

// AddPrefixRequest attaches a routable prefix to a declared operator.
type AddPrefixRequest struct {
	Country      string     `json:"country" validate:"required"`
	OperatorName string     `json:"operator" validate:"required"`
	MNC          domain.MNC `json:"mnc"`
	Prefix       string     `json:"prefix" validate:"required,numeric"`
}

// UpsertRateRequest sets one rate row directly, outside a file import.
type UpsertRateRequest struct {
	MCC         int        `json:"mcc" validate:"required,gt=0"`
	MNC         domain.MNC `json:"mnc"`
	ConnectorID string     `json:"connectorId" validate:"required"`
	Rate        float64    `json:"rate" validate:"required,gt=0"`
	Label       string     `json:"label"`
}

// CreateConnectorRequest names a new gateway connector.
type CreateConnectorRequest struct {
	Name string `json:"name" validate:"required,min=1,max=64"`
}

// UpdateConnectorRequest carries raw gateway connector parameters.
type UpdateConnectorRequest struct {
	Params map[string]any `json:"params" validate:"required,min=1"`
}

// SendMessageResponse returns the gateway-assigned message id.
type SendMessageResponse struct {
	MessageID string `json:"messageId"`
}

// ListResponse is the shared shape of paginated listings.
type ListResponse struct {
	Items      any `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps domain error classes onto HTTP status codes.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var gatewayErr *domain.UpstreamGatewayError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateKey):
		status = http.StatusConflict
	case errors.As(err, &gatewayErr):
		status = http.StatusBadGateway
	}
	respondJSON(w, status, errorResponse{Error: err.Error()})
}

// parsePage reads page/pageSize query parameters. pageSize=all disables
// pagination.
func parsePage(r *http.Request) domain.PageRequest {
	page := domain.PageRequest{Page: 0, PageSize: 50}
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			page.Page = v
		}
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		if strings.EqualFold(raw, "all") {
			page.PageSize = domain.PageSizeAll
		} else if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page.PageSize = v
		}
	}
	return page
}

func listResponse(items any, total int, page domain.PageRequest) ListResponse {
	resp := ListResponse{Items: items, Total: total, Page: page.Page, PageSize: page.PageSize}
	if page.All() {
		resp.PageSize = total
		resp.TotalPages = 1
	} else if page.PageSize > 0 {
		resp.TotalPages = (total + page.PageSize - 1) / page.PageSize
	}
	return resp
}
