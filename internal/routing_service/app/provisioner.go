package app

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/routemesh/sms-routing/internal/routing_service/adapters/jasmin"
	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// Provisioning step identifiers. Each step declares up front whether a
// failure skips just the current operator or aborts the whole run; the
// gateway state is never rolled back either way, so a failed run is
// repaired by re-invoking provisioning (filter creation is idempotent and
// configuration persistence merges by key).
const (
	stepPrefixLookup      = "prefix_lookup"
	stepDestinationFilter = "destination_filter"
	stepGroupFilter       = "group_filter"
	stepMTRoute           = "mt_route"
)

var provisionSteps = map[string]struct{ continuable bool }{
	stepPrefixLookup:      {continuable: true},
	stepDestinationFilter: {continuable: true},
	stepGroupFilter:       {continuable: false},
	stepMTRoute:           {continuable: false},
}

// ProvisionOperator is one operator to route, with an optional per-operator
// rate overriding the request default.
type ProvisionOperator struct {
	OperatorName string     `json:"operator" validate:"required"`
	MNC          domain.MNC `json:"mnc"`
	MCC          int        `json:"mcc" validate:"required"`
	AssignedRate *float64   `json:"assignedRate,omitempty"`
}

// ProvisionRequest describes one provisioning run: bind a customer's
// traffic for one country to a connector, operator by operator.
type ProvisionRequest struct {
	Username            string              `json:"username" validate:"required"`
	ConnectorID         string              `json:"connectorId" validate:"required"`
	Country             string              `json:"country" validate:"required"`
	CountryCallingCode  int                 `json:"countryCallingCode" validate:"required"`
	DefaultAssignedRate float64             `json:"defaultAssignedRate" validate:"required"`
	Operators           []ProvisionOperator `json:"operators" validate:"required,min=1,dive"`
}

// ProvisionedOperator records the outcome for one operator in a run.
type ProvisionedOperator struct {
	OperatorName string     `json:"operator"`
	MNC          domain.MNC `json:"mnc"`
	FilterID     string     `json:"filterId"`
	Rate         float64    `json:"rate"`
}

// SkippedOperator records why one operator was left out of a run.
type SkippedOperator struct {
	OperatorName string     `json:"operator"`
	MNC          domain.MNC `json:"mnc"`
	Reason       string     `json:"reason"`
}

// ProvisionResult is the per-run outcome. Each run gets its own JobID so
// concurrent runs report independently.
type ProvisionResult struct {
	JobID              uuid.UUID             `json:"jobId"`
	FiltersCreated     int                   `json:"filtersCreated"`
	OperatorsProcessed int                   `json:"operatorsProcessed"`
	OperatorRates      []ProvisionedOperator `json:"operatorRates"`
	SkippedOperators   []SkippedOperator     `json:"skippedOperators,omitempty"`
}

// RouteProvisioner pushes destination filters, a customer group filter and
// static MT routes to the gateway, then persists the resulting routing
// configuration.
type RouteProvisioner struct {
	catalog domain.PrefixCatalogRepository
	routing domain.RoutingConfigRepository
	gateway RouteGateway
	logger  *slog.Logger
}

func NewRouteProvisioner(catalog domain.PrefixCatalogRepository, routing domain.RoutingConfigRepository, gateway RouteGateway, logger *slog.Logger) *RouteProvisioner {
	return &RouteProvisioner{
		catalog: catalog,
		routing: routing,
		gateway: gateway,
		logger:  logger.With("service_component", "RouteProvisioner"),
	}
}

// GroupFilterID derives the customer's group-filter id.
func GroupFilterID(username string) string {
	return username + "_filter"
}

// GroupName derives the customer's gateway group name.
func GroupName(username string) string {
	return username + "_group"
}

// DestinationFilterID derives a short deterministic filter id for one
// operator under one customer and country. The same inputs always produce
// the same id, which is what makes repeated provisioning idempotent on the
// gateway instead of accumulating duplicate filters.
func DestinationFilterID(username, country, operatorName string, mnc domain.MNC) string {
	sum := md5.Sum([]byte(operatorName + country))
	raw := firstRunes(username, 1) + firstRunes(country, 2) + fmt.Sprintf("%x", sum)[:4] + mnc.String()
	return sanitizeFilterID(raw)
}

// GenerateOrder derives a deterministic route priority from the customer
// and operator names, so repeated runs produce reproducibly ordered routes
// without central coordination.
func GenerateOrder(username, operatorName string) int {
	base := 1
	lowered := strings.ToLower(username)
	if lowered != "" {
		base = int(lowered[0])
	}
	sum := md5.Sum([]byte(operatorName))
	hash64, _ := strconv.ParseInt(fmt.Sprintf("%x", sum)[:4], 16, 64)
	return base*1000 + int(hash64)%1000
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

// sanitizeFilterID lowercases and strips everything but ASCII letters and
// digits, then truncates to the gateway's 20-character id limit.
func sanitizeFilterID(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	id := b.String()
	if len(id) > 20 {
		id = id[:20]
	}
	return id
}

// relaxedOperatorStem strips a trailing parenthetical qualifier from an
// operator name, e.g. "Airtel (Prepaid)" -> "Airtel".
func relaxedOperatorStem(operatorName string) string {
	if idx := strings.Index(operatorName, "("); idx >= 0 {
		operatorName = operatorName[:idx]
	}
	return strings.TrimSpace(operatorName)
}

// filterParameter builds the destination-address match parameter: every
// prefix gets the country calling code prepended when not already present,
// joined by the gateway's multi-value separator.
func filterParameter(callingCode int, prefixes []string) string {
	cc := strconv.Itoa(callingCode)
	parts := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		trimmed := strings.TrimSpace(prefix)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, cc) {
			trimmed = cc + trimmed
		}
		parts = append(parts, trimmed)
	}
	return strings.Join(parts, jasmin.MultiValueSeparator)
}

func validProvisionRate(rate float64) bool {
	return !math.IsNaN(rate) && !math.IsInf(rate, 0) && rate > 0
}

type plannedRoute struct {
	operator ProvisionOperator
	filterID string
	rate     float64
}

// Provision runs the full provisioning sequence for one (username, country)
// pair. The per-operator loop is deliberately sequential: the gateway is
// sensitive to rapid configuration changes, and the client paces every call.
func (s *RouteProvisioner) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	started := time.Now()
	result, err := s.provision(ctx, req)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	provisioningRunsCounter.WithLabelValues(outcome).Inc()
	provisioningDurationHist.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
	return result, err
}

func (s *RouteProvisioner) provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	if !validProvisionRate(req.DefaultAssignedRate) {
		return nil, fmt.Errorf("%w: default assigned rate %v must be a finite positive number", domain.ErrValidation, req.DefaultAssignedRate)
	}
	if len(req.Operators) == 0 {
		return nil, fmt.Errorf("%w: at least one operator is required", domain.ErrValidation)
	}

	result := &ProvisionResult{JobID: uuid.New()}
	logger := s.logger.With("job_id", result.JobID, "username", req.Username, "country", req.Country, "connector_id", req.ConnectorID)
	logger.InfoContext(ctx, "Provisioning run started", "operators", len(req.Operators))

	groupFilterID := GroupFilterID(req.Username)
	groupFilterExists, err := s.gateway.FilterExists(ctx, groupFilterID)
	if err != nil {
		s.recordStep(stepGroupFilter, "error")
		return nil, fmt.Errorf("checking group filter %s: %w", groupFilterID, err)
	}

	var planned []plannedRoute
	for _, op := range req.Operators {
		rate := req.DefaultAssignedRate
		if op.AssignedRate != nil {
			if validProvisionRate(*op.AssignedRate) {
				rate = *op.AssignedRate
			} else {
				// No silent minimum-rate substitution: an invalid
				// per-operator rate falls back to the validated default and
				// the fallback is visible in the result.
				logger.WarnContext(ctx, "Ignoring invalid per-operator rate, using default",
					"operator", op.OperatorName, "rate", *op.AssignedRate, "default", req.DefaultAssignedRate)
			}
		}

		parameter, skipReason, err := s.buildFilterParameter(ctx, req, op)
		if err != nil {
			s.recordStep(stepPrefixLookup, "error")
			return result, err
		}
		if skipReason != "" {
			s.recordStep(stepPrefixLookup, "skipped")
			logger.WarnContext(ctx, "Skipping operator", "operator", op.OperatorName, "mnc", op.MNC.String(), "reason", skipReason)
			result.SkippedOperators = append(result.SkippedOperators, SkippedOperator{
				OperatorName: op.OperatorName,
				MNC:          op.MNC,
				Reason:       skipReason,
			})
			continue
		}

		filterID := DestinationFilterID(req.Username, req.Country, op.OperatorName, op.MNC)
		err = s.gateway.CreateDestinationFilter(ctx, filterID, parameter)
		switch {
		case err == nil:
			s.recordStep(stepDestinationFilter, "success")
			result.FiltersCreated++
		case errors.Is(err, jasmin.ErrAlreadyExists):
			s.recordStep(stepDestinationFilter, "exists")
		default:
			if !provisionSteps[stepDestinationFilter].continuable {
				s.recordStep(stepDestinationFilter, "error")
				return result, fmt.Errorf("creating destination filter %s: %w", filterID, err)
			}
			s.recordStep(stepDestinationFilter, "skipped")
			logger.WarnContext(ctx, "Destination filter creation failed, skipping operator",
				"operator", op.OperatorName, "filter_id", filterID, "error", err)
			result.SkippedOperators = append(result.SkippedOperators, SkippedOperator{
				OperatorName: op.OperatorName,
				MNC:          op.MNC,
				Reason:       fmt.Sprintf("filter creation failed: %v", err),
			})
			continue
		}

		planned = append(planned, plannedRoute{operator: op, filterID: filterID, rate: rate})
	}

	if !groupFilterExists {
		if err := s.gateway.CreateGroupFilter(ctx, groupFilterID, GroupName(req.Username)); err != nil && !errors.Is(err, jasmin.ErrAlreadyExists) {
			s.recordStep(stepGroupFilter, "error")
			return result, fmt.Errorf("creating group filter %s: %w", groupFilterID, err)
		}
		s.recordStep(stepGroupFilter, "success")
	}

	for _, route := range planned {
		err := s.gateway.CreateStaticMTRoute(ctx, jasmin.MTRouteRequest{
			Order:       GenerateOrder(req.Username, route.operator.OperatorName),
			Rate:        route.rate,
			ConnectorID: req.ConnectorID,
			FilterIDs:   []string{route.filterID, groupFilterID},
		})
		if err != nil {
			s.recordStep(stepMTRoute, "error")
			return result, fmt.Errorf("creating route for filter %s: %w", route.filterID, err)
		}
		s.recordStep(stepMTRoute, "success")
		result.OperatorsProcessed++
		result.OperatorRates = append(result.OperatorRates, ProvisionedOperator{
			OperatorName: route.operator.OperatorName,
			MNC:          route.operator.MNC,
			FilterID:     route.filterID,
			Rate:         route.rate,
		})
	}

	if err := s.persistConfiguration(ctx, req, planned); err != nil {
		return result, err
	}

	logger.InfoContext(ctx, "Provisioning run finished",
		"filters_created", result.FiltersCreated,
		"operators_processed", result.OperatorsProcessed,
		"operators_skipped", len(result.SkippedOperators))
	return result, nil
}

// buildFilterParameter computes the destination-address match parameter for
// one operator. A wildcard MNC covers the whole country, so the bare
// calling code suffices; specific MNCs need prefixes from the catalog, with
// a relaxed stem lookup as second chance. Empty skipReason means proceed.
func (s *RouteProvisioner) buildFilterParameter(ctx context.Context, req ProvisionRequest, op ProvisionOperator) (parameter, skipReason string, err error) {
	if op.MNC.Wildcard {
		return strconv.Itoa(req.CountryCallingCode), "", nil
	}

	prefixes, err := s.catalog.FindPrefixes(ctx, req.Country, op.OperatorName, op.MNC)
	if err != nil {
		return "", "", fmt.Errorf("looking up prefixes for %s/%s: %w", op.OperatorName, op.MNC, err)
	}
	if len(prefixes) == 0 {
		stem := relaxedOperatorStem(op.OperatorName)
		prefixes, err = s.catalog.FindPrefixesRelaxed(ctx, req.Country, stem)
		if err != nil {
			return "", "", fmt.Errorf("relaxed prefix lookup for %s: %w", stem, err)
		}
	}
	if len(prefixes) == 0 {
		return "", "no prefixes found", nil
	}
	return filterParameter(req.CountryCallingCode, prefixes), "", nil
}

// persistConfiguration merges this run's operators into the (username,
// country) routing configuration. Existing entries are matched by
// (operator, MNC) and replaced; new entries are appended.
func (s *RouteProvisioner) persistConfiguration(ctx context.Context, req ProvisionRequest, planned []plannedRoute) error {
	cfg := domain.RoutingConfiguration{
		Username:            req.Username,
		ConnectorID:         req.ConnectorID,
		Country:             req.Country,
		CountryCode:         req.CountryCallingCode,
		GroupName:           GroupName(req.Username),
		DefaultAssignedRate: req.DefaultAssignedRate,
	}

	existing, err := s.routing.FindByUsernameAndCountry(ctx, req.Username, req.Country)
	switch {
	case err == nil:
		cfg.Operators = existing.Operators
		cfg.CreatedAt = existing.CreatedAt
	case errors.Is(err, domain.ErrNotFound):
		// First provisioning for this pair.
	default:
		return fmt.Errorf("loading routing configuration: %w", err)
	}

	for _, route := range planned {
		entry := domain.RoutingOperator{
			OperatorName: route.operator.OperatorName,
			MNC:          route.operator.MNC,
			MCC:          route.operator.MCC,
			ObservedRate: route.operator.AssignedRate,
			AssignedRate: route.rate,
		}
		replaced := false
		for i, existing := range cfg.Operators {
			if existing.OperatorName == entry.OperatorName && existing.MNC.Equal(entry.MNC) {
				cfg.Operators[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			cfg.Operators = append(cfg.Operators, entry)
		}
	}

	if err := s.routing.Upsert(ctx, cfg); err != nil {
		return fmt.Errorf("persisting routing configuration: %w", err)
	}
	return nil
}

func (s *RouteProvisioner) recordStep(step, outcome string) {
	provisioningStepsCounter.WithLabelValues(step, outcome).Inc()
}
