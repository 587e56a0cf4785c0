package jasmin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// ConnectorInfo is the gateway's view of one SMPP client connector.
type ConnectorInfo struct {
	CID     string `json:"cid"`
	Status  string `json:"status,omitempty"`
	Session string `json:"session,omitempty"`
	Starts  int    `json:"starts,omitempty"`
	Stops   int    `json:"stops,omitempty"`
}

// ListConnectors fetches all SMPP client connectors from the gateway.
func (c *Client) ListConnectors(ctx context.Context) ([]ConnectorInfo, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/api/smppsconns/")
	if err != nil {
		return nil, &domain.UpstreamGatewayError{Step: "connector_list", Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &domain.UpstreamGatewayError{
			Step:       "connector_list",
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected gateway response: %s", strings.TrimSpace(resp.String())),
		}
	}
	var payload struct {
		Connectors []ConnectorInfo `json:"connectors"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decoding connector list: %w", err)
	}
	return payload.Connectors, nil
}

// GetConnector fetches one connector by id.
func (c *Client) GetConnector(ctx context.Context, cid string) (*ConnectorInfo, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/api/smppsconns/%s/", cid))
	if err != nil {
		return nil, &domain.UpstreamGatewayError{Step: "connector_get", FilterID: cid, Err: err}
	}
	if resp.StatusCode() == 404 {
		return nil, fmt.Errorf("%w: gateway connector %q", domain.ErrNotFound, cid)
	}
	if !resp.IsSuccess() {
		return nil, &domain.UpstreamGatewayError{
			Step:       "connector_get",
			FilterID:   cid,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected gateway response: %s", strings.TrimSpace(resp.String())),
		}
	}
	var info ConnectorInfo
	if err := json.Unmarshal(resp.Body(), &info); err != nil {
		return nil, fmt.Errorf("decoding connector: %w", err)
	}
	return &info, nil
}

// CreateConnector creates an SMPP client connector on the gateway.
func (c *Client) CreateConnector(ctx context.Context, cid string) error {
	if err := c.pace(ctx); err != nil {
		return err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"cid": cid}).
		Post("/api/smppsconns/")
	if err != nil {
		return &domain.UpstreamGatewayError{Step: "connector_create", FilterID: cid, Err: err}
	}
	if !resp.IsSuccess() {
		if resp.StatusCode() == 400 && strings.Contains(strings.ToLower(resp.String()), "already exists") {
			return fmt.Errorf("connector %s: %w", cid, ErrAlreadyExists)
		}
		return &domain.UpstreamGatewayError{
			Step:       "connector_create",
			FilterID:   cid,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected gateway response: %s", strings.TrimSpace(resp.String())),
		}
	}
	return nil
}

// DeleteConnector removes a connector from the gateway.
func (c *Client) DeleteConnector(ctx context.Context, cid string) error {
	if err := c.pace(ctx); err != nil {
		return err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/api/smppsconns/%s/", cid))
	if err != nil {
		return &domain.UpstreamGatewayError{Step: "connector_delete", FilterID: cid, Err: err}
	}
	if !resp.IsSuccess() {
		return &domain.UpstreamGatewayError{
			Step:       "connector_delete",
			FilterID:   cid,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected gateway response: %s", strings.TrimSpace(resp.String())),
		}
	}
	return nil
}

// StartConnector starts a connector. The gateway answers 400 when the
// connector is already started; that is treated as success.
func (c *Client) StartConnector(ctx context.Context, cid string) error {
	return c.toggleConnector(ctx, cid, "start")
}

// StopConnector stops a connector, with the same already-stopped tolerance.
func (c *Client) StopConnector(ctx context.Context, cid string) error {
	return c.toggleConnector(ctx, cid, "stop")
}

func (c *Client) toggleConnector(ctx context.Context, cid, action string) error {
	if err := c.pace(ctx); err != nil {
		return err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		Put(fmt.Sprintf("/api/smppsconns/%s/%s/", cid, action))
	if err != nil {
		return &domain.UpstreamGatewayError{Step: "connector_" + action, FilterID: cid, Err: err}
	}
	if resp.IsSuccess() || resp.StatusCode() == 400 {
		return nil
	}
	return &domain.UpstreamGatewayError{
		Step:       "connector_" + action,
		FilterID:   cid,
		StatusCode: resp.StatusCode(),
		Err:        fmt.Errorf("unexpected gateway response: %s", strings.TrimSpace(resp.String())),
	}
}

// UpdateConnector patches connector transport parameters on the gateway.
func (c *Client) UpdateConnector(ctx context.Context, cid string, params map[string]any) error {
	if err := c.pace(ctx); err != nil {
		return err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(params).
		Patch(fmt.Sprintf("/api/smppsconns/%s/", cid))
	if err != nil {
		return &domain.UpstreamGatewayError{Step: "connector_update", FilterID: cid, Err: err}
	}
	if !resp.IsSuccess() {
		return &domain.UpstreamGatewayError{
			Step:       "connector_update",
			FilterID:   cid,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected gateway response: %s", strings.TrimSpace(resp.String())),
		}
	}
	return nil
}
