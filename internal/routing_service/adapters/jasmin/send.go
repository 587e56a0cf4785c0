package jasmin

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// successResponse matches the gateway's free-text send acknowledgment,
// e.g. `Success "07033084-5cfd-4812-90a4-e4d24ffb6e3d"`.
var successResponse = regexp.MustCompile(`^Success\s+"?([^"]+)"?$`)

// SendRequest is one outbound message submission.
type SendRequest struct {
	To      string
	From    string
	Content string
	// Unicode switches the submission to coding 8 with UCS-2 hex content.
	Unicode bool
	// DLRLevel 1..3 requests delivery receipts to DLRCallbackURL.
	DLRLevel       int
	DLRCallbackURL string
}

// Send submits a message and returns the gateway-assigned message id. A
// response without a parseable id is a failed send.
func (c *Client) Send(ctx context.Context, req SendRequest) (string, error) {
	form := map[string]string{
		"to":   req.To,
		"from": req.From,
	}
	if req.Unicode {
		form["coding"] = "8"
		form["hex-content"] = ucs2Hex(req.Content)
	} else {
		form["content"] = req.Content
	}
	if req.DLRLevel > 0 {
		form["dlr"] = "yes"
		form["dlr-level"] = fmt.Sprintf("%d", req.DLRLevel)
		form["dlr-url"] = req.DLRCallbackURL
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post("/send")
	if err != nil {
		return "", &domain.UpstreamGatewayError{Step: "send", Err: err}
	}
	if !resp.IsSuccess() {
		return "", &domain.UpstreamGatewayError{
			Step:       "send",
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected gateway response: %s", strings.TrimSpace(resp.String())),
		}
	}

	match := successResponse.FindStringSubmatch(strings.TrimSpace(resp.String()))
	if match == nil {
		return "", &domain.UpstreamGatewayError{
			Step:       "send",
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("no message id in gateway response: %s", strings.TrimSpace(resp.String())),
		}
	}
	messageID := match[1]
	c.logger.InfoContext(ctx, "Message submitted to gateway", "message_id", messageID, "to", req.To)
	return messageID, nil
}

// ucs2Hex encodes a string as uppercase UTF-16BE hex, the gateway's
// hex-content format for coding 8.
func ucs2Hex(s string) string {
	var b strings.Builder
	for _, unit := range utf16.Encode([]rune(s)) {
		fmt.Fprintf(&b, "%04X", unit)
	}
	return b.String()
}
