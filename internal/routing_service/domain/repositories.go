package domain

import (
	"context"
)

// PrefixFilter narrows prefix listing.
type PrefixFilter struct {
	Country  string
	Operator string // empty or "All" means any operator
	MNC      *MNC
	Search   string
}

// PrefixCatalogRepository stores the dial plan.
type PrefixCatalogRepository interface {
	// AddCountry inserts a country row. Fails with ErrDuplicateKey if
	// (country, mcc) already exists.
	AddCountry(ctx context.Context, country string, callingCode int, mcc int) (*PrefixEntry, error)

	// AddOperator inserts an operator declaration row. Fails with
	// ErrDuplicateKey if (country, operatorName, mnc) is already declared.
	AddOperator(ctx context.Context, country, operatorName string, mnc MNC, mcc int, callingCode int) (*PrefixEntry, error)

	// AddPrefix inserts a prefix row under a declared operator. Fails with
	// ErrNotFound when no matching operator declaration exists and
	// ErrDuplicateKey when the exact prefix is already present.
	AddPrefix(ctx context.Context, country, operatorName string, mnc MNC, prefix string) (*PrefixEntry, error)

	// ListCountries enumerates distinct countries, sorted by name.
	ListCountries(ctx context.Context) ([]CountryEntry, error)

	// ListUniqueOperators returns distinct (operator, MNC) groups under a
	// country, sorted operator asc then MNC asc. The returned total is the
	// distinct group count, not the row count.
	ListUniqueOperators(ctx context.Context, country, search string, page PageRequest) ([]OperatorGroup, int, error)

	// ListPrefixes returns prefix-bearing rows matching the filter, sorted
	// by operator then prefix, with the total row count.
	ListPrefixes(ctx context.Context, filter PrefixFilter, page PageRequest) ([]PrefixEntry, int, error)

	// FindPrefixes returns the prefixes declared under the exact
	// (country, operatorName, mnc) triple.
	FindPrefixes(ctx context.Context, country, operatorName string, mnc MNC) ([]string, error)

	// FindPrefixesRelaxed is the secondary search used when the exact triple
	// yields nothing: it matches on the operator-name stem with parenthetical
	// qualifiers stripped, ignoring MNC.
	FindPrefixesRelaxed(ctx context.Context, country, operatorStem string) ([]string, error)
}

// BulkUpsertResult summarizes a best-effort batch of rate upserts.
type BulkUpsertResult struct {
	Inserted int
	Updated  int
	Skipped  int
	Total    int
}

// RateTableRepository stores resolved cost/sell rates keyed by
// (MCC, MNC-or-wildcard, connector).
type RateTableRepository interface {
	// UpsertRate inserts or updates the rate for a key. The rate must be a
	// finite positive number; invalid input fails with ErrValidation.
	UpsertRate(ctx context.Context, record RateRecord) error

	// FindRate finds the exact (mcc, mnc, connector) rate; ErrNotFound when
	// absent.
	FindRate(ctx context.Context, mcc int, mnc MNC, connectorID string) (*RateRecord, error)

	// FindRateWithWildcardFallback prefers the exact rate and falls back to
	// the (mcc, "*") tier for specific MNCs. ErrNotFound when neither exists.
	FindRateWithWildcardFallback(ctx context.Context, mcc int, mnc MNC, connectorID string) (*RateRecord, error)

	// BulkUpsert applies each row as an independent upsert; one row's
	// failure must not abort the rest.
	BulkUpsert(ctx context.Context, records []RateRecord) (BulkUpsertResult, error)

	// ListByConnector returns every rate configured for a connector, sorted
	// by MCC then MNC.
	ListByConnector(ctx context.Context, connectorID string) ([]RateRecord, error)
}

// RoutingConfigRepository persists provisioning outcomes.
type RoutingConfigRepository interface {
	// Upsert replaces or creates the configuration for (username, country).
	Upsert(ctx context.Context, cfg RoutingConfiguration) error

	// FindByUsernameAndCountry returns ErrNotFound when absent.
	FindByUsernameAndCountry(ctx context.Context, username, country string) (*RoutingConfiguration, error)

	// ListByUsername returns all configurations for a customer, newest first.
	ListByUsername(ctx context.Context, username string) ([]RoutingConfiguration, error)

	// ListAll returns every configuration, newest first.
	ListAll(ctx context.Context) ([]RoutingConfiguration, error)

	// DistinctUsernames enumerates customers that have routing configured.
	DistinctUsernames(ctx context.Context) ([]string, error)
}

// ConnectorRepository is the local cache of gateway connectors.
type ConnectorRepository interface {
	// Create fails with ErrDuplicateKey when the name is taken.
	Create(ctx context.Context, connector Connector) error
	Delete(ctx context.Context, name string) error
	UpdateStatus(ctx context.Context, name string, status ConnectorStatus) error
	FindByName(ctx context.Context, name string) (*Connector, error)
	List(ctx context.Context) ([]Connector, error)
}
