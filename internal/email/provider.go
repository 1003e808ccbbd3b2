package email

import (
	"context"
	"fmt"

	"github.com/certifyapp/certnotify/internal/config"
	"github.com/certifyapp/certnotify/internal/logger"
)

// NewSender builds the Sender selected by cfg.Provider.
func NewSender(ctx context.Context, cfg config.EmailConfig, log *logger.Logger) (Sender, error) {
	switch cfg.Provider {
	case config.ProviderSendGrid:
		s, err := NewSendGridSender(SendGridConfig{
			APIKey:        cfg.SendGrid.APIKey,
			Host:          cfg.SendGrid.Host,
			SenderAddress: cfg.SenderAddress,
			SenderName:    cfg.SenderName,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.ProviderResend:
		s, err := NewResendSender(ResendConfig{
			APIKey:        cfg.Resend.APIKey,
			SenderAddress: cfg.SenderAddress,
			SenderName:    cfg.SenderName,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.ProviderGmail:
		s, err := NewGmailSender(ctx, GmailConfig{
			CredentialsJSON: cfg.Gmail.CredentialsJSON,
			ClientID:        cfg.Gmail.ClientID,
			ClientSecret:    cfg.Gmail.ClientSecret,
			RefreshToken:    cfg.Gmail.RefreshToken,
			SenderAddress:   cfg.SenderAddress,
			SenderName:      cfg.SenderName,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.ProviderLog:
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
