package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"
)

// ResendConfig holds the configuration for the Resend email sender.
type ResendConfig struct {
	APIKey        string
	SenderAddress string
	SenderName    string
}

// ResendSender implements Sender using the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a new ResendSender.
func NewResendSender(cfg ResendConfig) (*ResendSender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("resend: API key is required")
	}
	if cfg.SenderAddress == "" {
		return nil, fmt.Errorf("resend: sender address is required")
	}

	return &ResendSender{
		client: resend.NewClient(cfg.APIKey),
		from:   formatAddress(cfg.SenderName, cfg.SenderAddress),
	}, nil
}

// Send sends an email via Resend.
func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	req := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTMLBody,
		Text:    msg.TextBody,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}

	return nil
}

// formatAddress formats a name and email into RFC 5322 address format.
func formatAddress(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}
