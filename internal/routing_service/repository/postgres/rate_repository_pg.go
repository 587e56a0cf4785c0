package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// PgRateTableRepository stores rate records keyed by (mcc, mnc, connector_id).
type PgRateTableRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgRateTableRepository(db Querier, logger *slog.Logger) domain.RateTableRepository {
	return &PgRateTableRepository{db: db, logger: logger.With("component", "rate_repository_pg")}
}

// RoundRate normalizes a rate to 4 decimal places, the precision the
// gateway bills at.
func RoundRate(rate float64) float64 {
	return math.Round(rate*10000) / 10000
}

func validRate(rate float64) bool {
	return !math.IsNaN(rate) && !math.IsInf(rate, 0) && rate > 0
}

func scanRateRecord(row pgx.Row) (*domain.RateRecord, error) {
	var rec domain.RateRecord
	var mncText string
	err := row.Scan(&rec.MCC, &mncText, &rec.ConnectorID, &rec.Rate, &rec.Label, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	mnc, perr := domain.ParseMNC(mncText)
	if perr != nil {
		return nil, fmt.Errorf("stored MNC %q is malformed: %w", mncText, perr)
	}
	rec.MNC = mnc
	return &rec, nil
}

func (r *PgRateTableRepository) UpsertRate(ctx context.Context, record domain.RateRecord) error {
	if record.ConnectorID == "" {
		return fmt.Errorf("%w: connector id is required", domain.ErrValidation)
	}
	if !validRate(record.Rate) {
		return fmt.Errorf("%w: rate %v must be a finite positive number", domain.ErrValidation, record.Rate)
	}

	query := `INSERT INTO rate_records (mcc, mnc, connector_id, rate, label)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (mcc, mnc, connector_id)
	          DO UPDATE SET rate = EXCLUDED.rate, label = EXCLUDED.label, updated_at = now()`
	_, err := r.db.Exec(ctx, query, record.MCC, record.MNC.String(), record.ConnectorID, RoundRate(record.Rate), record.Label)
	if err != nil {
		return fmt.Errorf("upserting rate (mcc=%d mnc=%s connector=%s): %w", record.MCC, record.MNC, record.ConnectorID, err)
	}
	return nil
}

func (r *PgRateTableRepository) FindRate(ctx context.Context, mcc int, mnc domain.MNC, connectorID string) (*domain.RateRecord, error) {
	query := `SELECT mcc, mnc, connector_id, rate, label, created_at, updated_at
	          FROM rate_records
	          WHERE mcc = $1 AND mnc = $2 AND connector_id = $3`
	rec, err := scanRateRecord(r.db.QueryRow(ctx, query, mcc, mnc.String(), connectorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no rate for mcc=%d mnc=%s connector=%s", domain.ErrNotFound, mcc, mnc, connectorID)
		}
		return nil, fmt.Errorf("finding rate: %w", err)
	}
	return rec, nil
}

func (r *PgRateTableRepository) FindRateWithWildcardFallback(ctx context.Context, mcc int, mnc domain.MNC, connectorID string) (*domain.RateRecord, error) {
	rec, err := r.FindRate(ctx, mcc, mnc, connectorID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	// The wildcard tier is a fallback for specific MNCs only; a wildcard
	// lookup that misses stays a miss.
	if mnc.Wildcard {
		return nil, err
	}
	return r.FindRate(ctx, mcc, domain.TheWildcardMNC(), connectorID)
}

func (r *PgRateTableRepository) BulkUpsert(ctx context.Context, records []domain.RateRecord) (domain.BulkUpsertResult, error) {
	result := domain.BulkUpsertResult{Total: len(records)}

	// Unordered, best-effort semantics: one bad row must not abort the
	// rest, so each row is its own statement rather than one batch insert.
	query := `INSERT INTO rate_records (mcc, mnc, connector_id, rate, label)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (mcc, mnc, connector_id)
	          DO UPDATE SET rate = EXCLUDED.rate, label = EXCLUDED.label, updated_at = now()
	          RETURNING (xmax = 0) AS inserted`
	for _, rec := range records {
		if rec.ConnectorID == "" || !validRate(rec.Rate) {
			result.Skipped++
			continue
		}
		var inserted bool
		err := r.db.QueryRow(ctx, query, rec.MCC, rec.MNC.String(), rec.ConnectorID, RoundRate(rec.Rate), rec.Label).Scan(&inserted)
		if err != nil {
			r.logger.WarnContext(ctx, "Rate upsert failed, continuing batch",
				"error", err, "mcc", rec.MCC, "mnc", rec.MNC.String(), "connector_id", rec.ConnectorID)
			result.Skipped++
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

func (r *PgRateTableRepository) ListByConnector(ctx context.Context, connectorID string) ([]domain.RateRecord, error) {
	// mnc sorts bytewise regardless of the database locale, so '*' (0x2A)
	// rows come before any digit.
	query := `SELECT mcc, mnc, connector_id, rate, label, created_at, updated_at
	          FROM rate_records
	          WHERE connector_id = $1
	          ORDER BY mcc ASC, mnc COLLATE "C" ASC`
	rows, err := r.db.Query(ctx, query, connectorID)
	if err != nil {
		return nil, fmt.Errorf("listing rates by connector: %w", err)
	}
	defer rows.Close()

	var records []domain.RateRecord
	for rows.Next() {
		rec, err := scanRateRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rate row: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
