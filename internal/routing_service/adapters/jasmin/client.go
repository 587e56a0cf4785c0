// Package jasmin is the management-API client for the upstream Jasmin-like
// SMS gateway: destination/group filters, static MT routes, SMPP connector
// lifecycle and message submission.
package jasmin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// ErrAlreadyExists is returned when the gateway rejects a create because the
// identifier is taken. Callers performing idempotent creates treat it as
// success.
var ErrAlreadyExists = errors.New("gateway object already exists")

// MultiValueSeparator joins prefix sets in a DestinationAddrFilter parameter.
const MultiValueSeparator = "|"

// Config carries the gateway connection parameters.
type Config struct {
	BaseURL  string
	Username string
	Password string
	// Timeout bounds every gateway call. A timeout is reported the same way
	// as a non-2xx response.
	Timeout time.Duration
	// PacingInterval spaces successive configuration calls. The gateway
	// reloads its routing table on each change and misbehaves under rapid
	// successive updates, so pacing is a correctness requirement. Zero
	// disables pacing (tests).
	PacingInterval time.Duration
}

// Client talks to the gateway management API. All configuration-changing
// calls go through a shared token bucket.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)
	if cfg.Username != "" {
		httpClient.SetBasicAuth(cfg.Username, cfg.Password)
	}

	limit := rate.Inf
	if cfg.PacingInterval > 0 {
		limit = rate.Every(cfg.PacingInterval)
	}

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With("component", "jasmin_client"),
	}
}

// pace blocks until the next configuration call is allowed.
func (c *Client) pace(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for gateway pacing slot: %w", err)
	}
	return nil
}

type filterPayload struct {
	Type      string `json:"type"`
	FID       string `json:"fid"`
	Parameter string `json:"parameter"`
}

// CreateDestinationFilter creates a DestinationAddrFilter matching the given
// parameter (a single calling code or a '|'-joined prefix set).
func (c *Client) CreateDestinationFilter(ctx context.Context, fid, parameter string) error {
	return c.createFilter(ctx, "dest_filter", filterPayload{
		Type:      "DestinationAddrFilter",
		FID:       fid,
		Parameter: parameter,
	})
}

// CreateGroupFilter creates a GroupFilter for a customer group.
func (c *Client) CreateGroupFilter(ctx context.Context, fid, groupName string) error {
	return c.createFilter(ctx, "group_filter", filterPayload{
		Type:      "GroupFilter",
		FID:       fid,
		Parameter: groupName,
	})
}

func (c *Client) createFilter(ctx context.Context, step string, payload filterPayload) error {
	if err := c.pace(ctx); err != nil {
		return err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/api/filters/")
	if err != nil {
		return &domain.UpstreamGatewayError{Step: step, FilterID: payload.FID, Err: err}
	}
	if resp.IsSuccess() {
		c.logger.InfoContext(ctx, "Gateway filter created", "fid", payload.FID, "type", payload.Type)
		return nil
	}
	if resp.StatusCode() == 400 && strings.Contains(strings.ToLower(resp.String()), "already exists") {
		return fmt.Errorf("filter %s: %w", payload.FID, ErrAlreadyExists)
	}
	return &domain.UpstreamGatewayError{
		Step:       step,
		FilterID:   payload.FID,
		StatusCode: resp.StatusCode(),
		Err:        fmt.Errorf("unexpected gateway response: %s", strings.TrimSpace(resp.String())),
	}
}

// FilterExists checks whether a filter id is present on the gateway.
func (c *Client) FilterExists(ctx context.Context, fid string) (bool, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/api/filters/%s/", fid))
	if err != nil {
		return false, &domain.UpstreamGatewayError{Step: "filter_check", FilterID: fid, Err: err}
	}
	switch {
	case resp.IsSuccess():
		return true, nil
	case resp.StatusCode() == 404:
		return false, nil
	default:
		return false, &domain.UpstreamGatewayError{
			Step:       "filter_check",
			FilterID:   fid,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected gateway response: %s", strings.TrimSpace(resp.String())),
		}
	}
}

// DeleteFilter removes a filter from the gateway.
func (c *Client) DeleteFilter(ctx context.Context, fid string) error {
	if err := c.pace(ctx); err != nil {
		return err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/api/filters/%s/", fid))
	if err != nil {
		return &domain.UpstreamGatewayError{Step: "filter_delete", FilterID: fid, Err: err}
	}
	if !resp.IsSuccess() && resp.StatusCode() != 404 {
		return &domain.UpstreamGatewayError{
			Step:       "filter_delete",
			FilterID:   fid,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected gateway response: %s", strings.TrimSpace(resp.String())),
		}
	}
	return nil
}

// MTRouteRequest binds filters to a connector at a billing rate with a
// deterministic priority order.
type MTRouteRequest struct {
	Order       int
	Rate        float64
	ConnectorID string
	FilterIDs   []string
}

// CreateStaticMTRoute creates a StaticMTRoute on the gateway. The endpoint
// is form-encoded, unlike the filter endpoints.
func (c *Client) CreateStaticMTRoute(ctx context.Context, req MTRouteRequest) error {
	if err := c.pace(ctx); err != nil {
		return err
	}
	fid := strings.Join(req.FilterIDs, ",")
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"type":           "StaticMTRoute",
			"order":          strconv.Itoa(req.Order),
			"rate":           strconv.FormatFloat(req.Rate, 'f', -1, 64),
			"smppconnectors": req.ConnectorID,
			"filters":        fid,
		}).
		Post("/api/mtrouters/")
	if err != nil {
		return &domain.UpstreamGatewayError{Step: "mt_route", FilterID: fid, Err: err}
	}
	if !resp.IsSuccess() {
		return &domain.UpstreamGatewayError{
			Step:       "mt_route",
			FilterID:   fid,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected gateway response: %s", strings.TrimSpace(resp.String())),
		}
	}
	c.logger.InfoContext(ctx, "Gateway MT route created", "filters", fid, "order", req.Order, "rate", req.Rate)
	return nil
}
