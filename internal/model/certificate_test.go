package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCertificateStatus_IsTerminal(t *testing.T) {
	assert.True(t, CertificateStatusApproved.IsTerminal())
	assert.True(t, CertificateStatusRejected.IsTerminal())
	assert.False(t, CertificateStatusPending.IsTerminal())
	assert.False(t, CertificateStatus("").IsTerminal())
	assert.False(t, CertificateStatus("Approved").IsTerminal())
}

func TestCertificateRecord_RecipientAddress(t *testing.T) {
	tests := map[string]struct {
		record CertificateRecord
		want   string
	}{
		"recipientEmail wins": {CertificateRecord{RecipientEmail: "a@x.com", Recipient: "b@x.com"}, "a@x.com"},
		"falls back":          {CertificateRecord{Recipient: "b@x.com"}, "b@x.com"},
		"blank primary":       {CertificateRecord{RecipientEmail: "  ", Recipient: "b@x.com"}, ""},
		"neither":             {CertificateRecord{}, ""},
		"whitespace trimmed":  {CertificateRecord{RecipientEmail: " a@x.com "}, "a@x.com"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.record.RecipientAddress())
		})
	}
}
