package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/routemesh/sms-routing/internal/routing_service/adapters/jasmin"
	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// ConnectorService manages gateway connectors. The gateway is the source of
// truth for live state; the local repository is a cache kept in step with
// each mutation so listings survive gateway restarts.
type ConnectorService struct {
	repo    domain.ConnectorRepository
	gateway ConnectorGateway
	logger  *slog.Logger
}

func NewConnectorService(repo domain.ConnectorRepository, gateway ConnectorGateway, logger *slog.Logger) *ConnectorService {
	return &ConnectorService{
		repo:    repo,
		gateway: gateway,
		logger:  logger.With("service_component", "ConnectorService"),
	}
}

func (s *ConnectorService) Create(ctx context.Context, name string) (*domain.Connector, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: connector name is required", domain.ErrValidation)
	}
	if err := s.gateway.CreateConnector(ctx, name); err != nil && !errors.Is(err, jasmin.ErrAlreadyExists) {
		return nil, fmt.Errorf("creating connector %s on gateway: %w", name, err)
	}

	connector := domain.Connector{Name: name, Status: domain.ConnectorDisabled}
	if err := s.repo.Create(ctx, connector); err != nil && !errors.Is(err, domain.ErrDuplicateKey) {
		return nil, fmt.Errorf("caching connector %s: %w", name, err)
	}
	s.logger.InfoContext(ctx, "Connector created", "connector_id", name)
	return &connector, nil
}

func (s *ConnectorService) Delete(ctx context.Context, name string) error {
	if err := s.gateway.DeleteConnector(ctx, name); err != nil {
		return fmt.Errorf("deleting connector %s on gateway: %w", name, err)
	}
	if err := s.repo.Delete(ctx, name); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("removing cached connector %s: %w", name, err)
	}
	s.logger.InfoContext(ctx, "Connector deleted", "connector_id", name)
	return nil
}

// Start brings a connector up. The gateway reports 400 for a connector that
// is already started; the client maps that to success, so Start is safe to
// repeat.
func (s *ConnectorService) Start(ctx context.Context, name string) error {
	if err := s.gateway.StartConnector(ctx, name); err != nil {
		return fmt.Errorf("starting connector %s: %w", name, err)
	}
	if err := s.repo.UpdateStatus(ctx, name, domain.ConnectorEnabled); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("updating cached status for %s: %w", name, err)
	}
	s.logger.InfoContext(ctx, "Connector started", "connector_id", name)
	return nil
}

func (s *ConnectorService) Stop(ctx context.Context, name string) error {
	if err := s.gateway.StopConnector(ctx, name); err != nil {
		return fmt.Errorf("stopping connector %s: %w", name, err)
	}
	if err := s.repo.UpdateStatus(ctx, name, domain.ConnectorDisabled); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("updating cached status for %s: %w", name, err)
	}
	s.logger.InfoContext(ctx, "Connector stopped", "connector_id", name)
	return nil
}

func (s *ConnectorService) Update(ctx context.Context, name string, params map[string]any) error {
	if len(params) == 0 {
		return fmt.Errorf("%w: no connector parameters given", domain.ErrValidation)
	}
	if err := s.gateway.UpdateConnector(ctx, name, params); err != nil {
		return fmt.Errorf("updating connector %s: %w", name, err)
	}
	s.logger.InfoContext(ctx, "Connector updated", "connector_id", name)
	return nil
}

// List returns the gateway's live view. When the gateway is unreachable the
// cached records are returned instead, marked by the fallback flag.
func (s *ConnectorService) List(ctx context.Context) ([]jasmin.ConnectorInfo, bool, error) {
	infos, err := s.gateway.ListConnectors(ctx)
	if err == nil {
		return infos, false, nil
	}
	s.logger.WarnContext(ctx, "Gateway connector listing failed, serving cached records", "error", err)

	cached, repoErr := s.repo.List(ctx)
	if repoErr != nil {
		return nil, false, fmt.Errorf("listing connectors: gateway: %v; cache: %w", err, repoErr)
	}
	infos = make([]jasmin.ConnectorInfo, 0, len(cached))
	for _, c := range cached {
		infos = append(infos, jasmin.ConnectorInfo{CID: c.Name, Status: string(c.Status)})
	}
	return infos, true, nil
}

func (s *ConnectorService) Get(ctx context.Context, name string) (*jasmin.ConnectorInfo, error) {
	info, err := s.gateway.GetConnector(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("fetching connector %s: %w", name, err)
	}
	return info, nil
}
