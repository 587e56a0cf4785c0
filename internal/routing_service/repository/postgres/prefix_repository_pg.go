package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

const pgUniqueViolation = "23505"

// PgPrefixCatalogRepository stores the dial plan in the prefix_entries table.
// Country rows, operator declaration rows and prefix rows share the table,
// distinguished by NULL operator_name / mnc / prefix columns.
type PgPrefixCatalogRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgPrefixCatalogRepository(db Querier, logger *slog.Logger) domain.PrefixCatalogRepository {
	return &PgPrefixCatalogRepository{db: db, logger: logger.With("component", "prefix_repository_pg")}
}

// escapeLike neutralizes LIKE/ILIKE metacharacters in a user-supplied
// search term so it matches literally. Postgres treats backslash as the
// pattern escape character by default.
func escapeLike(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, `%`, `\%`)
	return strings.ReplaceAll(term, `_`, `\_`)
}

func scanPrefixEntry(row pgx.Row) (*domain.PrefixEntry, error) {
	var e domain.PrefixEntry
	var operatorName, mncText, prefix *string

	err := row.Scan(&e.ID, &e.Country, &e.CountryCode, &e.MCC, &operatorName, &mncText, &prefix, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.OperatorName = operatorName
	e.Prefix = prefix
	if mncText != nil {
		mnc, perr := domain.ParseMNC(*mncText)
		if perr != nil {
			return nil, fmt.Errorf("stored MNC %q is malformed: %w", *mncText, perr)
		}
		e.MNC = &mnc
	}
	return &e, nil
}

func (r *PgPrefixCatalogRepository) AddCountry(ctx context.Context, country string, callingCode int, mcc int) (*domain.PrefixEntry, error) {
	country = strings.TrimSpace(country)
	if country == "" || mcc <= 0 {
		return nil, fmt.Errorf("%w: country and mcc are required", domain.ErrValidation)
	}

	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM prefix_entries WHERE lower(country) = lower($1) AND mcc = $2)`,
		country, mcc,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking country existence: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: country %q with MCC %d already exists", domain.ErrDuplicateKey, country, mcc)
	}

	query := `INSERT INTO prefix_entries (country, cc, mcc, operator_name, mnc, prefix)
	          VALUES ($1, $2, $3, NULL, NULL, NULL)
	          RETURNING id, country, cc, mcc, operator_name, mnc, prefix, created_at`
	entry, err := scanPrefixEntry(r.db.QueryRow(ctx, query, country, callingCode, mcc))
	if err != nil {
		return nil, fmt.Errorf("inserting country row: %w", err)
	}
	r.logger.InfoContext(ctx, "Country added to dial plan", "country", country, "mcc", mcc)
	return entry, nil
}

func (r *PgPrefixCatalogRepository) AddOperator(ctx context.Context, country, operatorName string, mnc domain.MNC, mcc int, callingCode int) (*domain.PrefixEntry, error) {
	country = strings.TrimSpace(country)
	operatorName = strings.TrimSpace(operatorName)
	if country == "" || operatorName == "" || mcc <= 0 {
		return nil, fmt.Errorf("%w: country, operator name and mcc are required", domain.ErrValidation)
	}

	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM prefix_entries
		     WHERE lower(country) = lower($1) AND operator_name = $2 AND mnc = $3 AND prefix IS NULL
		 )`,
		country, operatorName, mnc.String(),
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking operator existence: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: operator %q with MNC %s already declared in %s", domain.ErrDuplicateKey, operatorName, mnc, country)
	}

	query := `INSERT INTO prefix_entries (country, cc, mcc, operator_name, mnc, prefix)
	          VALUES ($1, $2, $3, $4, $5, NULL)
	          RETURNING id, country, cc, mcc, operator_name, mnc, prefix, created_at`
	entry, err := scanPrefixEntry(r.db.QueryRow(ctx, query, country, callingCode, mcc, operatorName, mnc.String()))
	if err != nil {
		return nil, fmt.Errorf("inserting operator row: %w", err)
	}
	r.logger.InfoContext(ctx, "Operator declared", "country", country, "operator", operatorName, "mnc", mnc.String())
	return entry, nil
}

func (r *PgPrefixCatalogRepository) AddPrefix(ctx context.Context, country, operatorName string, mnc domain.MNC, prefix string) (*domain.PrefixEntry, error) {
	country = strings.TrimSpace(country)
	operatorName = strings.TrimSpace(operatorName)
	prefix = strings.TrimSpace(prefix)
	if country == "" || operatorName == "" || prefix == "" {
		return nil, fmt.Errorf("%w: country, operator name and prefix are required", domain.ErrValidation)
	}

	// The prefix row copies country/cc/mcc from the operator declaration so
	// the triple always references a declared operator.
	declQuery := `SELECT id, country, cc, mcc, operator_name, mnc, prefix, created_at
	              FROM prefix_entries
	              WHERE lower(country) = lower($1) AND operator_name = $2 AND mnc = $3 AND prefix IS NULL
	              LIMIT 1`
	declared, err := scanPrefixEntry(r.db.QueryRow(ctx, declQuery, country, operatorName, mnc.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: operator %q (MNC %s) not declared in %s", domain.ErrNotFound, operatorName, mnc, country)
		}
		return nil, fmt.Errorf("looking up operator declaration: %w", err)
	}

	var dup bool
	err = r.db.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM prefix_entries
		     WHERE lower(country) = lower($1) AND operator_name = $2 AND mnc = $3 AND prefix = $4
		 )`,
		country, operatorName, mnc.String(), prefix,
	).Scan(&dup)
	if err != nil {
		return nil, fmt.Errorf("checking prefix existence: %w", err)
	}
	if dup {
		return nil, fmt.Errorf("%w: prefix %s already exists for operator %q", domain.ErrDuplicateKey, prefix, operatorName)
	}

	query := `INSERT INTO prefix_entries (country, cc, mcc, operator_name, mnc, prefix)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id, country, cc, mcc, operator_name, mnc, prefix, created_at`
	entry, err := scanPrefixEntry(r.db.QueryRow(ctx, query,
		declared.Country, declared.CountryCode, declared.MCC, operatorName, mnc.String(), prefix))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("%w: prefix %s already exists for operator %q", domain.ErrDuplicateKey, prefix, operatorName)
		}
		return nil, fmt.Errorf("inserting prefix row: %w", err)
	}
	return entry, nil
}

func (r *PgPrefixCatalogRepository) ListCountries(ctx context.Context) ([]domain.CountryEntry, error) {
	query := `SELECT country, min(cc), min(mcc)
	          FROM prefix_entries
	          GROUP BY country
	          ORDER BY country ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing countries: %w", err)
	}
	defer rows.Close()

	var countries []domain.CountryEntry
	for rows.Next() {
		var c domain.CountryEntry
		if err := rows.Scan(&c.Country, &c.CountryCode, &c.MCC); err != nil {
			return nil, fmt.Errorf("scanning country row: %w", err)
		}
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

func (r *PgPrefixCatalogRepository) ListUniqueOperators(ctx context.Context, country, search string, page domain.PageRequest) ([]domain.OperatorGroup, int, error) {
	if strings.TrimSpace(country) == "" {
		return nil, 0, fmt.Errorf("%w: country is required", domain.ErrValidation)
	}

	where := `lower(country) = lower($1) AND operator_name IS NOT NULL AND mnc IS NOT NULL`
	args := []any{country}
	if search != "" {
		where += fmt.Sprintf(` AND operator_name ILIKE '%%' || $%d || '%%'`, len(args)+1)
		args = append(args, escapeLike(search))
	}

	// The total reflects distinct (operator, mnc) groups, not row count.
	countQuery := fmt.Sprintf(
		`SELECT count(*) FROM (
		     SELECT 1 FROM prefix_entries WHERE %s GROUP BY operator_name, mnc
		 ) groups`, where)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting operator groups: %w", err)
	}

	listQuery := fmt.Sprintf(
		`SELECT min(country), min(cc), min(mcc), operator_name, mnc
		 FROM prefix_entries
		 WHERE %s
		 GROUP BY operator_name, mnc
		 ORDER BY operator_name ASC, mnc COLLATE "C" ASC`, where)
	if !page.All() {
		listQuery += fmt.Sprintf(` OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
		args = append(args, page.Offset(), page.PageSize)
	}

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing operator groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.OperatorGroup
	for rows.Next() {
		var g domain.OperatorGroup
		var mncText string
		if err := rows.Scan(&g.Country, &g.CountryCode, &g.MCC, &g.OperatorName, &mncText); err != nil {
			return nil, 0, fmt.Errorf("scanning operator group: %w", err)
		}
		mnc, perr := domain.ParseMNC(mncText)
		if perr != nil {
			return nil, 0, fmt.Errorf("stored MNC %q is malformed: %w", mncText, perr)
		}
		g.MNC = mnc
		groups = append(groups, g)
	}
	return groups, total, rows.Err()
}

func (r *PgPrefixCatalogRepository) ListPrefixes(ctx context.Context, filter domain.PrefixFilter, page domain.PageRequest) ([]domain.PrefixEntry, int, error) {
	where := `mnc IS NOT NULL AND prefix IS NOT NULL`
	var args []any

	if filter.Country != "" && filter.Country != "All" {
		args = append(args, filter.Country)
		where += fmt.Sprintf(` AND lower(country) = lower($%d)`, len(args))
	}
	if filter.Operator != "" && filter.Operator != "All" {
		args = append(args, filter.Operator)
		where += fmt.Sprintf(` AND operator_name ILIKE $%d`, len(args))
	}
	if filter.MNC != nil {
		args = append(args, filter.MNC.String())
		where += fmt.Sprintf(` AND mnc = $%d`, len(args))
	}
	if filter.Search != "" {
		args = append(args, escapeLike(filter.Search))
		where += fmt.Sprintf(
			` AND (operator_name ILIKE '%%' || $%d || '%%' OR country ILIKE '%%' || $%d || '%%' OR prefix LIKE '%%' || $%d || '%%')`,
			len(args), len(args), len(args))
	}

	var total int
	countQuery := `SELECT count(*) FROM prefix_entries WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting prefixes: %w", err)
	}

	listQuery := `SELECT id, country, cc, mcc, operator_name, mnc, prefix, created_at
	              FROM prefix_entries WHERE ` + where +
		` ORDER BY country ASC, operator_name ASC, prefix ASC`
	if !page.All() {
		listQuery += fmt.Sprintf(` OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
		args = append(args, page.Offset(), page.PageSize)
	}

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing prefixes: %w", err)
	}
	defer rows.Close()

	var entries []domain.PrefixEntry
	for rows.Next() {
		entry, err := scanPrefixEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning prefix row: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, total, rows.Err()
}

func (r *PgPrefixCatalogRepository) FindPrefixes(ctx context.Context, country, operatorName string, mnc domain.MNC) ([]string, error) {
	query := `SELECT prefix FROM prefix_entries
	          WHERE lower(country) = lower($1)
	            AND operator_name ILIKE $2
	            AND mnc = $3
	            AND prefix IS NOT NULL
	          ORDER BY prefix ASC`
	rows, err := r.db.Query(ctx, query, country, operatorName, mnc.String())
	if err != nil {
		return nil, fmt.Errorf("finding prefixes: %w", err)
	}
	defer rows.Close()
	return collectPrefixes(rows)
}

func (r *PgPrefixCatalogRepository) FindPrefixesRelaxed(ctx context.Context, country, operatorStem string) ([]string, error) {
	query := `SELECT prefix FROM prefix_entries
	          WHERE lower(country) = lower($1)
	            AND operator_name ILIKE '%' || $2 || '%'
	            AND prefix IS NOT NULL
	          ORDER BY prefix ASC`
	rows, err := r.db.Query(ctx, query, country, escapeLike(strings.TrimSpace(operatorStem)))
	if err != nil {
		return nil, fmt.Errorf("finding prefixes (relaxed): %w", err)
	}
	defer rows.Close()
	return collectPrefixes(rows)
}

func collectPrefixes(rows pgx.Rows) ([]string, error) {
	var prefixes []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning prefix: %w", err)
		}
		prefixes = append(prefixes, p)
	}
	return prefixes, rows.Err()
}
