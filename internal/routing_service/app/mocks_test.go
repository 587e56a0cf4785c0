package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/routemesh/sms-routing/internal/routing_service/adapters/jasmin"
	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mocks ---

type MockPrefixCatalogRepository struct {
	mock.Mock
}

func (m *MockPrefixCatalogRepository) AddCountry(ctx context.Context, country string, callingCode int, mcc int) (*domain.PrefixEntry, error) {
	args := m.Called(ctx, country, callingCode, mcc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrefixEntry), args.Error(1)
}

func (m *MockPrefixCatalogRepository) AddOperator(ctx context.Context, country, operatorName string, mnc domain.MNC, mcc int, callingCode int) (*domain.PrefixEntry, error) {
	args := m.Called(ctx, country, operatorName, mnc, mcc, callingCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrefixEntry), args.Error(1)
}

func (m *MockPrefixCatalogRepository) AddPrefix(ctx context.Context, country, operatorName string, mnc domain.MNC, prefix string) (*domain.PrefixEntry, error) {
	args := m.Called(ctx, country, operatorName, mnc, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrefixEntry), args.Error(1)
}

func (m *MockPrefixCatalogRepository) ListCountries(ctx context.Context) ([]domain.CountryEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CountryEntry), args.Error(1)
}

func (m *MockPrefixCatalogRepository) ListUniqueOperators(ctx context.Context, country, search string, page domain.PageRequest) ([]domain.OperatorGroup, int, error) {
	args := m.Called(ctx, country, search, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.OperatorGroup), args.Int(1), args.Error(2)
}

func (m *MockPrefixCatalogRepository) ListPrefixes(ctx context.Context, filter domain.PrefixFilter, page domain.PageRequest) ([]domain.PrefixEntry, int, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.PrefixEntry), args.Int(1), args.Error(2)
}

func (m *MockPrefixCatalogRepository) FindPrefixes(ctx context.Context, country, operatorName string, mnc domain.MNC) ([]string, error) {
	args := m.Called(ctx, country, operatorName, mnc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPrefixCatalogRepository) FindPrefixesRelaxed(ctx context.Context, country, operatorStem string) ([]string, error) {
	args := m.Called(ctx, country, operatorStem)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockRateTableRepository struct {
	mock.Mock
}

func (m *MockRateTableRepository) UpsertRate(ctx context.Context, record domain.RateRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRateTableRepository) FindRate(ctx context.Context, mcc int, mnc domain.MNC, connectorID string) (*domain.RateRecord, error) {
	args := m.Called(ctx, mcc, mnc, connectorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateRecord), args.Error(1)
}

func (m *MockRateTableRepository) FindRateWithWildcardFallback(ctx context.Context, mcc int, mnc domain.MNC, connectorID string) (*domain.RateRecord, error) {
	args := m.Called(ctx, mcc, mnc, connectorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateRecord), args.Error(1)
}

func (m *MockRateTableRepository) BulkUpsert(ctx context.Context, records []domain.RateRecord) (domain.BulkUpsertResult, error) {
	args := m.Called(ctx, records)
	return args.Get(0).(domain.BulkUpsertResult), args.Error(1)
}

func (m *MockRateTableRepository) ListByConnector(ctx context.Context, connectorID string) ([]domain.RateRecord, error) {
	args := m.Called(ctx, connectorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RateRecord), args.Error(1)
}

type MockRoutingConfigRepository struct {
	mock.Mock
}

func (m *MockRoutingConfigRepository) Upsert(ctx context.Context, cfg domain.RoutingConfiguration) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockRoutingConfigRepository) FindByUsernameAndCountry(ctx context.Context, username, country string) (*domain.RoutingConfiguration, error) {
	args := m.Called(ctx, username, country)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoutingConfiguration), args.Error(1)
}

func (m *MockRoutingConfigRepository) ListByUsername(ctx context.Context, username string) ([]domain.RoutingConfiguration, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RoutingConfiguration), args.Error(1)
}

func (m *MockRoutingConfigRepository) ListAll(ctx context.Context) ([]domain.RoutingConfiguration, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RoutingConfiguration), args.Error(1)
}

func (m *MockRoutingConfigRepository) DistinctUsernames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockRouteGateway struct {
	mock.Mock
}

func (m *MockRouteGateway) FilterExists(ctx context.Context, fid string) (bool, error) {
	args := m.Called(ctx, fid)
	return args.Bool(0), args.Error(1)
}

func (m *MockRouteGateway) CreateDestinationFilter(ctx context.Context, fid, parameter string) error {
	args := m.Called(ctx, fid, parameter)
	return args.Error(0)
}

func (m *MockRouteGateway) CreateGroupFilter(ctx context.Context, fid, groupName string) error {
	args := m.Called(ctx, fid, groupName)
	return args.Error(0)
}

func (m *MockRouteGateway) CreateStaticMTRoute(ctx context.Context, req jasmin.MTRouteRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
