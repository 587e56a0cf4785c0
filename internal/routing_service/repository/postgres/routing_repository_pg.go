package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// PgRoutingConfigRepository persists provisioning outcomes keyed by
// (username, country). Operator entries live in a jsonb column; merging by
// (operator, mnc) happens in the application layer before Upsert.
type PgRoutingConfigRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgRoutingConfigRepository(db Querier, logger *slog.Logger) domain.RoutingConfigRepository {
	return &PgRoutingConfigRepository{db: db, logger: logger.With("component", "routing_repository_pg")}
}

func (r *PgRoutingConfigRepository) Upsert(ctx context.Context, cfg domain.RoutingConfiguration) error {
	if cfg.Username == "" || cfg.Country == "" {
		return fmt.Errorf("%w: username and country are required", domain.ErrValidation)
	}
	operators, err := json.Marshal(cfg.Operators)
	if err != nil {
		return fmt.Errorf("marshaling operator entries: %w", err)
	}

	query := `INSERT INTO routing_configurations
	              (username, country, connector_id, country_code, group_name, assigned_rate, operators)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          ON CONFLICT (username, country)
	          DO UPDATE SET connector_id = EXCLUDED.connector_id,
	                        country_code = EXCLUDED.country_code,
	                        group_name = EXCLUDED.group_name,
	                        assigned_rate = EXCLUDED.assigned_rate,
	                        operators = EXCLUDED.operators,
	                        updated_at = now()`
	_, err = r.db.Exec(ctx, query,
		cfg.Username, cfg.Country, cfg.ConnectorID, cfg.CountryCode, cfg.GroupName, cfg.DefaultAssignedRate, operators)
	if err != nil {
		return fmt.Errorf("upserting routing configuration for %s/%s: %w", cfg.Username, cfg.Country, err)
	}
	r.logger.InfoContext(ctx, "Routing configuration saved", "username", cfg.Username, "country", cfg.Country, "operators", len(cfg.Operators))
	return nil
}

func scanRoutingConfig(row pgx.Row) (*domain.RoutingConfiguration, error) {
	var cfg domain.RoutingConfiguration
	var operators []byte
	err := row.Scan(&cfg.Username, &cfg.Country, &cfg.ConnectorID, &cfg.CountryCode,
		&cfg.GroupName, &cfg.DefaultAssignedRate, &operators, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(operators, &cfg.Operators); err != nil {
		return nil, fmt.Errorf("unmarshaling operator entries: %w", err)
	}
	return &cfg, nil
}

const routingSelectColumns = `username, country, connector_id, country_code, group_name, assigned_rate, operators, created_at, updated_at`

func (r *PgRoutingConfigRepository) FindByUsernameAndCountry(ctx context.Context, username, country string) (*domain.RoutingConfiguration, error) {
	query := `SELECT ` + routingSelectColumns + `
	          FROM routing_configurations
	          WHERE username = $1 AND country = $2`
	cfg, err := scanRoutingConfig(r.db.QueryRow(ctx, query, username, country))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no routing configuration for %s/%s", domain.ErrNotFound, username, country)
		}
		return nil, fmt.Errorf("finding routing configuration: %w", err)
	}
	return cfg, nil
}

func (r *PgRoutingConfigRepository) ListByUsername(ctx context.Context, username string) ([]domain.RoutingConfiguration, error) {
	query := `SELECT ` + routingSelectColumns + `
	          FROM routing_configurations
	          WHERE username = $1
	          ORDER BY created_at DESC`
	return r.queryConfigs(ctx, query, username)
}

func (r *PgRoutingConfigRepository) ListAll(ctx context.Context) ([]domain.RoutingConfiguration, error) {
	query := `SELECT ` + routingSelectColumns + `
	          FROM routing_configurations
	          ORDER BY created_at DESC`
	return r.queryConfigs(ctx, query)
}

func (r *PgRoutingConfigRepository) queryConfigs(ctx context.Context, query string, args ...any) ([]domain.RoutingConfiguration, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing routing configurations: %w", err)
	}
	defer rows.Close()

	var configs []domain.RoutingConfiguration
	for rows.Next() {
		cfg, err := scanRoutingConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning routing configuration: %w", err)
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

func (r *PgRoutingConfigRepository) DistinctUsernames(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT username FROM routing_configurations ORDER BY username ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing usernames with routing: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scanning username: %w", err)
		}
		usernames = append(usernames, u)
	}
	return usernames, rows.Err()
}
