package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/routemesh/sms-routing/internal/routing_service/adapters/jasmin"
	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// MessageGateway is the slice of the gateway client used for submission.
type MessageGateway interface {
	Send(ctx context.Context, req jasmin.SendRequest) (string, error)
}

// SendMessageCommand is one outbound submission from the admin API.
type SendMessageCommand struct {
	To       string `json:"to" validate:"required,e164"`
	From     string `json:"from" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Unicode  bool   `json:"unicode"`
	DLRLevel int    `json:"dlrLevel" validate:"gte=0,lte=3"`
}

// MessageService submits messages through the gateway, requesting delivery
// receipts back to this service's callback endpoint.
type MessageService struct {
	gateway        MessageGateway
	dlrCallbackURL string
	logger         *slog.Logger
}

func NewMessageService(gateway MessageGateway, dlrCallbackURL string, logger *slog.Logger) *MessageService {
	return &MessageService{
		gateway:        gateway,
		dlrCallbackURL: dlrCallbackURL,
		logger:         logger.With("service_component", "MessageService"),
	}
}

// Send submits one message and returns the gateway-assigned message id.
func (s *MessageService) Send(ctx context.Context, cmd SendMessageCommand) (string, error) {
	if cmd.To == "" || cmd.Content == "" {
		return "", fmt.Errorf("%w: destination and content are required", domain.ErrValidation)
	}

	req := jasmin.SendRequest{
		To:      cmd.To,
		From:    cmd.From,
		Content: cmd.Content,
		Unicode: cmd.Unicode,
	}
	if cmd.DLRLevel > 0 && s.dlrCallbackURL != "" {
		req.DLRLevel = cmd.DLRLevel
		req.DLRCallbackURL = s.dlrCallbackURL
	}

	messageID, err := s.gateway.Send(ctx, req)
	if err != nil {
		return "", fmt.Errorf("submitting message: %w", err)
	}
	return messageID, nil
}
