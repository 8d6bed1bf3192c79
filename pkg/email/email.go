// Package email sends outbound notifications. Delivery is best-effort:
// callers log failures and carry on.
package email

import (
	"context"
	"fmt"
	"net/mail"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/config"
)

// Message is a single outbound email.
type Message struct {
	To      mail.Address
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender picks the sender for the configured provider.
func NewSender(cfg config.EmailConfig, logger *zap.Logger) (Sender, error) {
	from := mail.Address{Name: cfg.FromName, Address: cfg.FromAddress}
	switch cfg.Provider {
	case "sendgrid":
		return NewSendGridSender(cfg.APIKey, from, logger), nil
	case "console", "":
		return NewConsoleSender(from, logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
