package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// File formats accepted by ImportRatesFile.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ImportSummary reports the outcome of one rate-file import. Row-level
// problems never fail the import; they show up in SkippedRows.
type ImportSummary struct {
	NewRates          int `json:"newRates"`
	UpdatedRates      int `json:"updatedRates"`
	TotalProcessed    int `json:"totalProcessed"`
	OperatorsAffected int `json:"operatorsAffected"`
	SkippedRows       int `json:"skippedRows"`
}

// RateImporter parses operator-supplied rate files and bulk-upserts them
// into the rate table.
type RateImporter struct {
	rates  domain.RateTableRepository
	logger *slog.Logger
}

func NewRateImporter(rates domain.RateTableRepository, logger *slog.Logger) *RateImporter {
	return &RateImporter{
		rates:  rates,
		logger: logger.With("service_component", "RateImporter"),
	}
}

// rateColumnAliases are the accepted spellings of the rate column, compared
// after lowercasing the trimmed header.
var rateColumnAliases = map[string]struct{}{
	"rate":  {},
	"rates": {},
}

// ImportRatesFile parses a CSV or XLSX rate sheet and applies it to the
// rate table for one connector. Only a file-level parse failure is a hard
// error; malformed rows are counted and skipped.
func (s *RateImporter) ImportRatesFile(ctx context.Context, file io.Reader, format, connectorID string) (*ImportSummary, error) {
	if connectorID == "" {
		return nil, fmt.Errorf("%w: connector id is required", domain.ErrValidation)
	}

	var rows [][]string
	var err error
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCSV:
		rows, err = parseCSVRows(file)
	case FormatXLSX:
		rows, err = parseXLSXRows(file)
	default:
		return nil, fmt.Errorf("%w: unsupported file format %q", domain.ErrValidation, format)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("%w: rate file has no header row", domain.ErrValidation)
	}

	header := make([]string, len(rows[0]))
	for i, col := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(col))
	}

	summary := &ImportSummary{}
	// Last occurrence per (mcc, mnc, connector) wins within one file, so a
	// sheet that repeats a key produces one write, not several.
	pending := make(map[string]domain.RateRecord)
	order := make([]string, 0, len(rows)-1)

	for _, raw := range rows[1:] {
		if isBlankRow(raw) {
			continue
		}
		summary.TotalProcessed++

		record, ok := s.parseRateRow(ctx, header, raw, connectorID)
		if !ok {
			summary.SkippedRows++
			rateImportRowsCounter.WithLabelValues("skipped").Inc()
			continue
		}
		key := fmt.Sprintf("%d|%s|%s", record.MCC, record.MNC, record.ConnectorID)
		if _, seen := pending[key]; !seen {
			order = append(order, key)
		}
		pending[key] = record
	}

	records := make([]domain.RateRecord, 0, len(order))
	for _, key := range order {
		records = append(records, pending[key])
	}

	result, err := s.rates.BulkUpsert(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("bulk upserting %d rate rows: %w", len(records), err)
	}

	summary.NewRates = result.Inserted
	summary.UpdatedRates = result.Updated
	summary.SkippedRows += result.Skipped
	summary.OperatorsAffected = len(records)
	rateImportRowsCounter.WithLabelValues("inserted").Add(float64(result.Inserted))
	rateImportRowsCounter.WithLabelValues("updated").Add(float64(result.Updated))
	rateImportRowsCounter.WithLabelValues("skipped").Add(float64(result.Skipped))

	s.logger.InfoContext(ctx, "Rate file imported",
		"connector_id", connectorID,
		"format", format,
		"total", summary.TotalProcessed,
		"inserted", summary.NewRates,
		"updated", summary.UpdatedRates,
		"skipped", summary.SkippedRows,
		"operators_affected", summary.OperatorsAffected)
	return summary, nil
}

// parseRateRow maps one data row through the header into a validated
// RateRecord. Returns ok=false for any row-level problem.
func (s *RateImporter) parseRateRow(ctx context.Context, header, raw []string, connectorID string) (domain.RateRecord, bool) {
	var (
		mccRaw, mncRaw, rateRaw, label string
		haveRate                       bool
	)
	for i, col := range header {
		if i >= len(raw) {
			break
		}
		value := strings.TrimSpace(raw[i])
		switch {
		case col == "mcc":
			mccRaw = value
		case col == "mnc":
			mncRaw = value
		case col == "label" || col == "price":
			label = value
		default:
			if _, isRate := rateColumnAliases[col]; isRate {
				rateRaw = value
				haveRate = true
			}
		}
	}

	mcc, err := strconv.Atoi(mccRaw)
	if err != nil {
		s.logger.WarnContext(ctx, "Skipping rate row with unparseable MCC", "mcc", mccRaw)
		return domain.RateRecord{}, false
	}
	mnc, err := domain.ParseMNC(mncRaw)
	if err != nil {
		s.logger.WarnContext(ctx, "Skipping rate row with unparseable MNC", "mcc", mcc, "mnc", mncRaw)
		return domain.RateRecord{}, false
	}
	if !haveRate || rateRaw == "" {
		s.logger.WarnContext(ctx, "Skipping rate row without a rate value", "mcc", mcc, "mnc", mnc.String())
		return domain.RateRecord{}, false
	}
	rate, err := strconv.ParseFloat(rateRaw, 64)
	if err != nil || math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		s.logger.WarnContext(ctx, "Skipping rate row with invalid rate", "mcc", mcc, "mnc", mnc.String(), "rate", rateRaw)
		return domain.RateRecord{}, false
	}

	return domain.RateRecord{
		MCC:         mcc,
		MNC:         mnc,
		ConnectorID: connectorID,
		Rate:        rate,
		Label:       label,
	}, true
}

func parseCSVRows(file io.Reader) ([][]string, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable CSV file: %v", domain.ErrValidation, err)
	}
	return rows, nil
}

func parseXLSXRows(file io.Reader) ([][]string, error) {
	book, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable XLSX file: %v", domain.ErrValidation, err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: XLSX file has no sheets", domain.ErrValidation)
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: reading XLSX sheet %q: %v", domain.ErrValidation, sheets[0], err)
	}
	return rows, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
