package model

import "strings"

// CertificateStatus represents the review status of a certificate
type CertificateStatus string

const (
	CertificateStatusPending  CertificateStatus = "pending"
	CertificateStatusApproved CertificateStatus = "approved"
	CertificateStatusRejected CertificateStatus = "rejected"
)

// IsTerminal reports whether the status is a user-facing outcome worth notifying.
func (s CertificateStatus) IsTerminal() bool {
	return s == CertificateStatusApproved || s == CertificateStatusRejected
}

// CertificateRecord is one image of a certificate document. The document store owns it.
type CertificateRecord struct {
	Name           string            `json:"name"`
	Status         CertificateStatus `json:"status"`
	RecipientEmail string            `json:"recipientEmail,omitempty"`
	Recipient      string            `json:"recipient,omitempty"`
	ShareToken     string            `json:"shareToken"`
}

// RecipientAddress returns recipientEmail, falling back to the older recipient
// field only when recipientEmail is absent. A present but blank recipientEmail
// yields "".
func (c CertificateRecord) RecipientAddress() string {
	if c.RecipientEmail != "" {
		return strings.TrimSpace(c.RecipientEmail)
	}
	return strings.TrimSpace(c.Recipient)
}

// CertificateChange is a before/after pair for one update of a certificate document.
type CertificateChange struct {
	CertificateID string
	EventID       string
	Before        CertificateRecord
	After         CertificateRecord
}
