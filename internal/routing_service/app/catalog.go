package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// CatalogService manages the dial plan: countries, operator declarations
// and routable prefixes.
type CatalogService struct {
	catalog domain.PrefixCatalogRepository
	logger  *slog.Logger
}

func NewCatalogService(catalog domain.PrefixCatalogRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		logger:  logger.With("service_component", "CatalogService"),
	}
}

func (s *CatalogService) AddCountry(ctx context.Context, country string, callingCode, mcc int) (*domain.PrefixEntry, error) {
	country = strings.TrimSpace(country)
	if country == "" || callingCode <= 0 || mcc <= 0 {
		return nil, fmt.Errorf("%w: country, calling code and MCC are required", domain.ErrValidation)
	}
	entry, err := s.catalog.AddCountry(ctx, country, callingCode, mcc)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Country added", "country", country, "cc", callingCode, "mcc", mcc)
	return entry, nil
}

func (s *CatalogService) AddOperator(ctx context.Context, country, operatorName string, mnc domain.MNC, mcc, callingCode int) (*domain.PrefixEntry, error) {
	country = strings.TrimSpace(country)
	operatorName = strings.TrimSpace(operatorName)
	if country == "" || operatorName == "" || mcc <= 0 {
		return nil, fmt.Errorf("%w: country, operator name and MCC are required", domain.ErrValidation)
	}
	entry, err := s.catalog.AddOperator(ctx, country, operatorName, mnc, mcc, callingCode)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Operator declared", "country", country, "operator", operatorName, "mnc", mnc.String())
	return entry, nil
}

func (s *CatalogService) AddPrefix(ctx context.Context, country, operatorName string, mnc domain.MNC, prefix string) (*domain.PrefixEntry, error) {
	country = strings.TrimSpace(country)
	operatorName = strings.TrimSpace(operatorName)
	prefix = strings.TrimSpace(prefix)
	if country == "" || operatorName == "" || prefix == "" {
		return nil, fmt.Errorf("%w: country, operator name and prefix are required", domain.ErrValidation)
	}
	for _, r := range prefix {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: prefix %q must be numeric", domain.ErrValidation, prefix)
		}
	}
	entry, err := s.catalog.AddPrefix(ctx, country, operatorName, mnc, prefix)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Prefix added", "country", country, "operator", operatorName, "prefix", prefix)
	return entry, nil
}

func (s *CatalogService) ListCountries(ctx context.Context) ([]domain.CountryEntry, error) {
	return s.catalog.ListCountries(ctx)
}

func (s *CatalogService) ListUniqueOperators(ctx context.Context, country, search string, page domain.PageRequest) ([]domain.OperatorGroup, int, error) {
	if strings.TrimSpace(country) == "" {
		return nil, 0, fmt.Errorf("%w: country is required", domain.ErrValidation)
	}
	return s.catalog.ListUniqueOperators(ctx, country, search, page)
}

func (s *CatalogService) ListPrefixes(ctx context.Context, filter domain.PrefixFilter, page domain.PageRequest) ([]domain.PrefixEntry, int, error) {
	if strings.TrimSpace(filter.Country) == "" {
		return nil, 0, fmt.Errorf("%w: country is required", domain.ErrValidation)
	}
	return s.catalog.ListPrefixes(ctx, filter, page)
}
