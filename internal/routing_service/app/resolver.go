package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// ResolvedRate is one operator/MNC pair under a country with its rate on a
// connector, if any. Unpriced pairs are included with HasRate=false so
// callers always see full operator coverage.
type ResolvedRate struct {
	Country   string     `json:"country,omitempty"`
	Operator  string     `json:"operator"`
	MCC       int        `json:"mcc"`
	MNC       domain.MNC `json:"mnc"`
	Rate      *float64   `json:"rate"`
	Label     string     `json:"label"`
	HasRate   bool       `json:"hasRate"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

// ResolvedRatePage is a paginated resolver response.
type ResolvedRatePage struct {
	Rates      []ResolvedRate `json:"rates"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// RateResolver answers "what does this country/connector charge per
// operator", applying the wildcard fallback tier.
type RateResolver struct {
	catalog   domain.PrefixCatalogRepository
	rates     domain.RateTableRepository
	directory domain.MCCDirectory
	logger    *slog.Logger
}

func NewRateResolver(catalog domain.PrefixCatalogRepository, rates domain.RateTableRepository, directory domain.MCCDirectory, logger *slog.Logger) *RateResolver {
	return &RateResolver{
		catalog:   catalog,
		rates:     rates,
		directory: directory,
		logger:    logger.With("service_component", "RateResolver"),
	}
}

// ResolveRatesForCountryAndConnector returns one row per distinct
// (operator, MNC) pair under the country, each resolved against the rate
// table with wildcard fallback.
func (s *RateResolver) ResolveRatesForCountryAndConnector(ctx context.Context, country, connectorID, search string, page domain.PageRequest) (*ResolvedRatePage, error) {
	if country == "" || connectorID == "" {
		return nil, fmt.Errorf("%w: country and connector id are required", domain.ErrValidation)
	}

	groups, total, err := s.catalog.ListUniqueOperators(ctx, country, search, page)
	if err != nil {
		return nil, fmt.Errorf("listing operators for %s: %w", country, err)
	}

	rates := make([]ResolvedRate, 0, len(groups))
	for _, group := range groups {
		row := ResolvedRate{
			Operator: group.OperatorName,
			MCC:      group.MCC,
			MNC:      group.MNC,
		}
		record, err := s.rates.FindRateWithWildcardFallback(ctx, group.MCC, group.MNC, connectorID)
		switch {
		case err == nil:
			rate := record.Rate
			updatedAt := record.UpdatedAt
			row.Rate = &rate
			row.Label = record.Label
			row.HasRate = true
			row.UpdatedAt = &updatedAt
		case errors.Is(err, domain.ErrNotFound):
			// Unpriced pairs stay in the result with a nil rate.
		default:
			return nil, fmt.Errorf("resolving rate for %s/%s: %w", group.OperatorName, group.MNC, err)
		}
		rates = append(rates, row)
	}

	result := &ResolvedRatePage{
		Rates:    rates,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	if page.All() {
		result.PageSize = total
		result.TotalPages = 1
	} else if page.PageSize > 0 {
		result.TotalPages = (total + page.PageSize - 1) / page.PageSize
	}

	s.logger.DebugContext(ctx, "Resolved country rates",
		"country", country, "connector_id", connectorID, "operators", len(rates), "total", total)
	return result, nil
}

// ResolveRatesForConnector returns every rate configured for a connector
// with country and operator labels derived from the MCC directory. The
// directory is for labeling only; routing decisions never consult it.
func (s *RateResolver) ResolveRatesForConnector(ctx context.Context, connectorID string) ([]ResolvedRate, error) {
	if connectorID == "" {
		return nil, fmt.Errorf("%w: connector id is required", domain.ErrValidation)
	}

	records, err := s.rates.ListByConnector(ctx, connectorID)
	if err != nil {
		return nil, fmt.Errorf("listing rates for connector %s: %w", connectorID, err)
	}

	rates := make([]ResolvedRate, 0, len(records))
	for _, record := range records {
		rate := record.Rate
		updatedAt := record.UpdatedAt
		row := ResolvedRate{
			Country:   s.directory.CountryFor(record.MCC),
			MCC:       record.MCC,
			MNC:       record.MNC,
			Rate:      &rate,
			Label:     record.Label,
			HasRate:   true,
			UpdatedAt: &updatedAt,
		}
		if record.MNC.Wildcard {
			row.Operator = s.directory.AllNetworksFor(record.MCC)
		} else if record.Label != "" {
			row.Operator = record.Label
		} else {
			row.Operator = fmt.Sprintf("MCC-%d/MNC-%d", record.MCC, record.MNC.Code)
		}
		rates = append(rates, row)
	}
	return rates, nil
}
