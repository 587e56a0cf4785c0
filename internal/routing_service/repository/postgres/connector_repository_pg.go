package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// PgConnectorRepository caches gateway connectors locally. The gateway is
// source of truth for live state; rows here are an index for the admin API.
type PgConnectorRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgConnectorRepository(db Querier, logger *slog.Logger) domain.ConnectorRepository {
	return &PgConnectorRepository{db: db, logger: logger.With("component", "connector_repository_pg")}
}

func (r *PgConnectorRepository) Create(ctx context.Context, connector domain.Connector) error {
	if connector.Name == "" {
		return fmt.Errorf("%w: connector name is required", domain.ErrValidation)
	}
	if connector.Status == "" {
		connector.Status = domain.ConnectorDisabled
	}
	query := `INSERT INTO connectors (name, status, host, port, system_id)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, query, connector.Name, connector.Status, connector.Host, connector.Port, connector.SystemID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: connector %q already exists", domain.ErrDuplicateKey, connector.Name)
		}
		return fmt.Errorf("inserting connector %q: %w", connector.Name, err)
	}
	return nil
}

func (r *PgConnectorRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM connectors WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("deleting connector %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: connector %q", domain.ErrNotFound, name)
	}
	return nil
}

func (r *PgConnectorRepository) UpdateStatus(ctx context.Context, name string, status domain.ConnectorStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE connectors SET status = $2, updated_at = now() WHERE name = $1`, name, status)
	if err != nil {
		return fmt.Errorf("updating connector %q status: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: connector %q", domain.ErrNotFound, name)
	}
	return nil
}

func (r *PgConnectorRepository) FindByName(ctx context.Context, name string) (*domain.Connector, error) {
	query := `SELECT name, status, host, port, system_id, created_at, updated_at
	          FROM connectors WHERE name = $1`
	var c domain.Connector
	err := r.db.QueryRow(ctx, query, name).Scan(&c.Name, &c.Status, &c.Host, &c.Port, &c.SystemID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: connector %q", domain.ErrNotFound, name)
		}
		return nil, fmt.Errorf("finding connector %q: %w", name, err)
	}
	return &c, nil
}

func (r *PgConnectorRepository) List(ctx context.Context) ([]domain.Connector, error) {
	query := `SELECT name, status, host, port, system_id, created_at, updated_at
	          FROM connectors ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing connectors: %w", err)
	}
	defer rows.Close()

	var connectors []domain.Connector
	for rows.Next() {
		var c domain.Connector
		if err := rows.Scan(&c.Name, &c.Status, &c.Host, &c.Port, &c.SystemID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning connector row: %w", err)
		}
		connectors = append(connectors, c)
	}
	return connectors, rows.Err()
}
