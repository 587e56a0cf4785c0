package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// CatalogExporter streams dial-plan data as flat CSV.
type CatalogExporter struct {
	catalog domain.PrefixCatalogRepository
	logger  *slog.Logger
}

func NewCatalogExporter(catalog domain.PrefixCatalogRepository, logger *slog.Logger) *CatalogExporter {
	return &CatalogExporter{
		catalog: catalog,
		logger:  logger.With("service_component", "CatalogExporter"),
	}
}

func (s *CatalogExporter) ExportCountries(ctx context.Context, w io.Writer) error {
	countries, err := s.catalog.ListCountries(ctx)
	if err != nil {
		return fmt.Errorf("listing countries for export: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"country", "cc", "mcc"}); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}
	for _, c := range countries {
		row := []string{c.Country, strconv.Itoa(c.CountryCode), strconv.Itoa(c.MCC)}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing country row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (s *CatalogExporter) ExportOperators(ctx context.Context, country string, w io.Writer) error {
	groups, _, err := s.catalog.ListUniqueOperators(ctx, country, "", domain.PageRequest{PageSize: domain.PageSizeAll})
	if err != nil {
		return fmt.Errorf("listing operators for export: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"country", "operator", "mcc", "mnc"}); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}
	for _, g := range groups {
		row := []string{g.Country, g.OperatorName, strconv.Itoa(g.MCC), g.MNC.String()}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing operator row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (s *CatalogExporter) ExportPrefixes(ctx context.Context, filter domain.PrefixFilter, w io.Writer) error {
	entries, _, err := s.catalog.ListPrefixes(ctx, filter, domain.PageRequest{PageSize: domain.PageSizeAll})
	if err != nil {
		return fmt.Errorf("listing prefixes for export: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"country", "operator", "cc", "mcc", "mnc", "prefix"}); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}
	for _, e := range entries {
		var operator, mnc, prefix string
		if e.OperatorName != nil {
			operator = *e.OperatorName
		}
		if e.MNC != nil {
			mnc = e.MNC.String()
		}
		if e.Prefix != nil {
			prefix = *e.Prefix
		}
		row := []string{e.Country, operator, strconv.Itoa(e.CountryCode), strconv.Itoa(e.MCC), mnc, prefix}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing prefix row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// sampleRateRows seed the downloadable import template with realistic
// Indian operator pricing.
var sampleRateRows = [][]string{
	{"404", "1", "0.015", "Airtel India"},
	{"404", "2", "0.0145", "Vodafone India"},
	{"404", "3", "0.014", "Jio India"},
	{"404", "4", "0.0155", "BSNL India"},
	{"404", "5", "0.0148", "Idea India"},
}

// WriteSampleRatesTemplate writes the CSV template customers fill in for a
// rate import. The header matches the importer's accepted columns.
func WriteSampleRatesTemplate(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"MCC", "MNC", "rate", "label"}); err != nil {
		return fmt.Errorf("writing template header: %w", err)
	}
	for _, row := range sampleRateRows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing template row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
