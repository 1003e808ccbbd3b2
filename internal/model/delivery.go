package model

import "time"

// DeliveryOutcome is the result category of handling one certificate change
type DeliveryOutcome string

const (
	DeliveryOutcomeSent      DeliveryOutcome = "sent"
	DeliveryOutcomeSkipped   DeliveryOutcome = "skipped"
	DeliveryOutcomeDuplicate DeliveryOutcome = "duplicate"
	DeliveryOutcomeFailed    DeliveryOutcome = "failed"
)

// SkipReason explains why no email was attempted
type SkipReason string

const (
	SkipReasonNone              SkipReason = ""
	SkipReasonStatusUnchanged   SkipReason = "status_unchanged"
	SkipReasonStatusNotTerminal SkipReason = "status_not_terminal"
	SkipReasonMissingRecipient  SkipReason = "missing_recipient"
	SkipReasonInvalidRecipient  SkipReason = "invalid_recipient"
)

// DeliveryResult is what the notifier hands back to its caller.
type DeliveryResult struct {
	Outcome       DeliveryOutcome
	Reason        SkipReason
	CertificateID string
	EventID       string
	Status        CertificateStatus
	Recipient     string
	Provider      string
	Err           error
}

// Attempted reports whether the mail provider was called.
func (r DeliveryResult) Attempted() bool {
	return r.Outcome == DeliveryOutcomeSent || r.Outcome == DeliveryOutcomeFailed
}

// Delivery is a persisted delivery log row
type Delivery struct {
	ID            string            `json:"id"`
	CertificateID string            `json:"certificateId"`
	EventID       string            `json:"eventId,omitempty"`
	Status        CertificateStatus `json:"status"`
	Recipient     string            `json:"recipient"`
	Provider      string            `json:"provider"`
	Outcome       DeliveryOutcome   `json:"outcome"`
	Error         *string           `json:"error,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}
