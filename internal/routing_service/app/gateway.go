package app

import (
	"context"

	"github.com/routemesh/sms-routing/internal/routing_service/adapters/jasmin"
)

// RouteGateway is the slice of the gateway client the provisioner needs.
// Implemented by *jasmin.Client; mocked in tests.
type RouteGateway interface {
	FilterExists(ctx context.Context, fid string) (bool, error)
	CreateDestinationFilter(ctx context.Context, fid, parameter string) error
	CreateGroupFilter(ctx context.Context, fid, groupName string) error
	CreateStaticMTRoute(ctx context.Context, req jasmin.MTRouteRequest) error
}

// ConnectorGateway is the slice of the gateway client used by connector
// management.
type ConnectorGateway interface {
	ListConnectors(ctx context.Context) ([]jasmin.ConnectorInfo, error)
	GetConnector(ctx context.Context, cid string) (*jasmin.ConnectorInfo, error)
	CreateConnector(ctx context.Context, cid string) error
	DeleteConnector(ctx context.Context, cid string) error
	StartConnector(ctx context.Context, cid string) error
	StopConnector(ctx context.Context, cid string) error
	UpdateConnector(ctx context.Context, cid string, params map[string]any) error
}
