package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/certifyapp/certnotify/internal/config"
	"github.com/certifyapp/certnotify/internal/email"
	"github.com/certifyapp/certnotify/internal/logger"
	"github.com/certifyapp/certnotify/internal/metrics"
	"github.com/certifyapp/certnotify/internal/model"
)

// Ledger suppresses repeated deliveries of the same transition
type Ledger interface {
	Claim(ctx context.Context, change *model.CertificateChange) (bool, error)
	Release(ctx context.Context, change *model.CertificateChange) error
}

// DeliveryLog records delivery outcomes
type DeliveryLog interface {
	Create(ctx context.Context, d *model.Delivery) error
}

// NotificationService turns certificate status transitions into emails
type NotificationService struct {
	sender     email.Sender
	ledger     Ledger
	deliveries DeliveryLog
	metrics    *metrics.Metrics
	cfg        *config.Config
	log        *logger.Logger
}

// NewNotificationService creates a new NotificationService. ledger, deliveries
// and m may be nil.
func NewNotificationService(
	sender email.Sender,
	ledger Ledger,
	deliveries DeliveryLog,
	m *metrics.Metrics,
	cfg *config.Config,
	log *logger.Logger,
) *NotificationService {
	return &NotificationService{
		sender:     sender,
		ledger:     ledger,
		deliveries: deliveries,
		metrics:    m,
		cfg:        cfg,
		log:        log.WithComponent("notification_service"),
	}
}

// Decide reports who should be notified about the change from before to after.
// A non-empty reason means no email is due.
func Decide(before, after model.CertificateRecord) (string, model.SkipReason) {
	if before.Status == after.Status {
		return "", model.SkipReasonStatusUnchanged
	}
	if !after.Status.IsTerminal() {
		return "", model.SkipReasonStatusNotTerminal
	}
	recipient := after.RecipientAddress()
	if recipient == "" {
		return "", model.SkipReasonMissingRecipient
	}
	if err := email.ValidateAddress(recipient); err != nil {
		return "", model.SkipReasonInvalidRecipient
	}
	return recipient, model.SkipReasonNone
}

// BuildMessage renders the status email for a certificate.
func (s *NotificationService) BuildMessage(recipient string, record model.CertificateRecord) email.Message {
	return email.NewStatusMessage(recipient, email.StatusEmail{
		AppName:         s.cfg.Email.AppName,
		CertificateName: record.Name,
		Status:          string(record.Status),
		ViewURL:         email.CertificateViewURL(s.cfg.Email.BaseURL, record.ShareToken),
	})
}

// Notify handles one certificate change. Delivery failures are reported in the
// result, never returned or panicked.
func (s *NotificationService) Notify(ctx context.Context, change *model.CertificateChange) model.DeliveryResult {
	result := model.DeliveryResult{
		CertificateID: change.CertificateID,
		EventID:       change.EventID,
		Status:        change.After.Status,
	}

	recipient, reason := Decide(change.Before, change.After)
	if reason != model.SkipReasonNone {
		result.Outcome = model.DeliveryOutcomeSkipped
		result.Reason = reason
		s.finish(ctx, result)
		return result
	}
	result.Recipient = recipient
	result.Provider = s.cfg.Email.Provider

	claimed := false
	if s.ledger != nil {
		ok, err := s.ledger.Claim(ctx, change)
		switch {
		case err != nil:
			s.log.Warn().Err(err).
				Str("certificate_id", change.CertificateID).
				Msg("Delivery ledger unavailable, sending without duplicate check")
		case !ok:
			result.Outcome = model.DeliveryOutcomeDuplicate
			s.finish(ctx, result)
			return result
		default:
			claimed = true
		}
	}

	msg := s.BuildMessage(recipient, change.After)

	start := time.Now()
	err := s.sender.Send(ctx, msg)
	if s.metrics != nil {
		s.metrics.ObserveSend(result.Provider, time.Since(start))
	}

	if err != nil {
		result.Outcome = model.DeliveryOutcomeFailed
		result.Err = fmt.Errorf("failed to send status email: %w", err)
		if claimed {
			if relErr := s.ledger.Release(context.WithoutCancel(ctx), change); relErr != nil {
				s.log.Warn().Err(relErr).
					Str("certificate_id", change.CertificateID).
					Msg("Failed to release delivery claim")
			}
		}
	} else {
		result.Outcome = model.DeliveryOutcomeSent
	}

	s.finish(ctx, result)
	return result
}

func (s *NotificationService) finish(ctx context.Context, result model.DeliveryResult) {
	s.log.Delivery(result)
	if s.metrics != nil {
		s.metrics.ObserveResult(result)
	}
	if s.deliveries == nil || result.Outcome == model.DeliveryOutcomeSkipped {
		return
	}

	d := &model.Delivery{
		ID:            uuid.NewString(),
		CertificateID: result.CertificateID,
		EventID:       result.EventID,
		Status:        result.Status,
		Recipient:     result.Recipient,
		Provider:      result.Provider,
		Outcome:       result.Outcome,
		CreatedAt:     time.Now().UTC(),
	}
	if result.Err != nil {
		msg := result.Err.Error()
		d.Error = &msg
	}

	if err := s.deliveries.Create(context.WithoutCancel(ctx), d); err != nil {
		s.log.Error().Err(err).
			Str("certificate_id", result.CertificateID).
			Msg("Failed to record delivery")
	}
}
