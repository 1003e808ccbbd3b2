package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridSendEndpoint = "/v3/mail/send"

// SendGridConfig holds the configuration for the SendGrid email sender.
type SendGridConfig struct {
	// APIKey is the SendGrid API key with mail send permission.
	APIKey string
	// Host overrides the API host; empty uses https://api.sendgrid.com.
	Host string
	// SenderAddress is the verified address emails are sent from.
	SenderAddress string
	// SenderName is the display name for the sender.
	SenderName string
}

// SendGridSender implements Sender using the SendGrid v3 mail API.
type SendGridSender struct {
	request rest.Request
	from    *mail.Email
}

// NewSendGridSender creates a new SendGridSender.
func NewSendGridSender(cfg SendGridConfig) (*SendGridSender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sendgrid: API key is required")
	}
	if cfg.SenderAddress == "" {
		return nil, fmt.Errorf("sendgrid: sender address is required")
	}

	request := sendgrid.GetRequest(cfg.APIKey, sendGridSendEndpoint, cfg.Host)
	request.Method = rest.Post

	return &SendGridSender{
		request: request,
		from:    mail.NewEmail(cfg.SenderName, cfg.SenderAddress),
	}, nil
}

// Send sends an email via SendGrid.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	// sendgrid.Client stores the body on its request, so each send gets its own copy.
	client := &sendgrid.Client{Request: s.request}

	sgMail := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail("", msg.To), msg.TextBody, msg.HTMLBody)

	resp, err := client.SendWithContext(ctx, sgMail)
	if err != nil {
		return fmt.Errorf("sendgrid: failed to send email: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendgrid: %w: status %d: %s", ErrRejected, resp.StatusCode, truncate(resp.Body, 256))
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
