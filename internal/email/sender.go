package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var (
	// ErrNoRecipient is returned when a message has no destination address.
	ErrNoRecipient = errors.New("email must have a recipient")

	// ErrInvalidRecipient is returned when the destination is not a single bare address.
	ErrInvalidRecipient = errors.New("email recipient is not a valid address")

	// ErrRejected is returned when the provider answered but refused the message.
	ErrRejected = errors.New("email rejected by provider")
)

// Sender is the interface that all email providers must implement.
// This abstraction allows swapping email providers (SendGrid, Resend, Gmail)
// without changing business logic.
type Sender interface {
	// Send sends an email to the specified recipient.
	Send(ctx context.Context, msg Message) error
}

// Message represents an email message to be sent.
type Message struct {
	To       string // recipient email address
	Subject  string // email subject
	HTMLBody string // HTML email body
	TextBody string // plain-text fallback body
}

func (m Message) validate() error {
	return ValidateAddress(m.To)
}

// ValidateAddress accepts a single bare address such as "a@x.com". Display
// names, address lists and line breaks are refused; the value is written
// into a mail header.
func ValidateAddress(addr string) error {
	if addr == "" {
		return ErrNoRecipient
	}
	if strings.ContainsAny(addr, "\r\n") {
		return ErrInvalidRecipient
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	if parsed.Address != addr {
		return ErrInvalidRecipient
	}
	return nil
}
