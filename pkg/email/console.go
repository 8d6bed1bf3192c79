package email

import (
	"context"
	"net/mail"
	"sync"

	"go.uber.org/zap"
)

// ConsoleSender logs messages instead of delivering them. Used when no mail
// provider is configured, and in tests to inspect what would have been sent.
type ConsoleSender struct {
	from   mail.Address
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

// NewConsoleSender creates a sender that writes to the log.
func NewConsoleSender(from mail.Address, logger *zap.Logger) *ConsoleSender {
	return &ConsoleSender{from: from, logger: logger.Named("email")}
}

func (s *ConsoleSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info("Email not delivered (console provider)",
		zap.String("from", s.from.String()),
		zap.String("to", msg.To.String()),
		zap.String("subject", msg.Subject))

	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

// Sent returns a copy of every message passed to Send.
func (s *ConsoleSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

var _ Sender = (*ConsoleSender)(nil)
