package email

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/logging"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	key    string
	from   *sgmail.Email
	host   string
	logger *zap.Logger

	// do is swapped in tests.
	do func(ctx context.Context, req rest.Request) (*rest.Response, error)
}

// NewSendGridSender creates a SendGrid-backed sender.
func NewSendGridSender(apiKey string, from mail.Address, logger *zap.Logger) *SendGridSender {
	return &SendGridSender{
		key:    apiKey,
		from:   sgmail.NewEmail(from.Name, from.Address),
		host:   sendgridHost,
		logger: logger.Named("sendgrid"),
		do:     makeRequest,
	}
}

// makeRequest adapts sendgrid.MakeRequest, which takes no context. A request
// whose context is already done is not sent.
func makeRequest(ctx context.Context, req rest.Request) (*rest.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sendgrid.MakeRequest(req)
}

func (s *SendGridSender) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	return m
}

// Send posts msg to SendGrid once. Non-2xx responses are returned as errors.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	req := sendgrid.GetRequest(s.key, sendgridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := s.do(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected email: status %d", res.StatusCode)
	}

	s.logger.Debug("Email sent",
		zap.String("to", logging.MaskEmail(msg.To.Address)),
		zap.Int("status", res.StatusCode))
	return nil
}

var _ Sender = (*SendGridSender)(nil)
