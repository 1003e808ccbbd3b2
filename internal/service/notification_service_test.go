package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/certifyapp/certnotify/internal/config"
	"github.com/certifyapp/certnotify/internal/email"
	"github.com/certifyapp/certnotify/internal/logger"
	"github.com/certifyapp/certnotify/internal/metrics"
	"github.com/certifyapp/certnotify/internal/model"
)

// MockSender is a mock implementation of email.Sender.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg email.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Claim(ctx context.Context, change *model.CertificateChange) (bool, error) {
	args := m.Called(ctx, change)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) Release(ctx context.Context, change *model.CertificateChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

type MockDeliveryLog struct {
	mock.Mock
}

func (m *MockDeliveryLog) Create(ctx context.Context, d *model.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		Email: config.EmailConfig{
			Provider:      config.ProviderSendGrid,
			AppName:       "Certify App",
			BaseURL:       "https://certifyapp.com",
			SenderAddress: "noreply@certifyapp.com",
		},
	}
}

func change(before, after model.CertificateStatus, recipient string) *model.CertificateChange {
	return &model.CertificateChange{
		CertificateID: "cert-1",
		EventID:       "evt-1",
		Before: model.CertificateRecord{
			Name:           "Diploma",
			Status:         before,
			RecipientEmail: recipient,
			ShareToken:     "T1",
		},
		After: model.CertificateRecord{
			Name:           "Diploma",
			Status:         after,
			RecipientEmail: recipient,
			ShareToken:     "T1",
		},
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		before    model.CertificateRecord
		after     model.CertificateRecord
		recipient string
		reason    model.SkipReason
	}{
		{
			name:   "status unchanged",
			before: model.CertificateRecord{Status: model.CertificateStatusApproved},
			after:  model.CertificateRecord{Status: model.CertificateStatusApproved, RecipientEmail: "a@x.com"},
			reason: model.SkipReasonStatusUnchanged,
		},
		{
			name:   "moved back to pending",
			before: model.CertificateRecord{Status: model.CertificateStatusApproved},
			after:  model.CertificateRecord{Status: model.CertificateStatusPending, RecipientEmail: "a@x.com"},
			reason: model.SkipReasonStatusNotTerminal,
		},
		{
			name:   "unknown status",
			before: model.CertificateRecord{Status: model.CertificateStatusPending},
			after:  model.CertificateRecord{Status: "archived", RecipientEmail: "a@x.com"},
			reason: model.SkipReasonStatusNotTerminal,
		},
		{
			name:   "no recipient",
			before: model.CertificateRecord{Status: model.CertificateStatusPending},
			after:  model.CertificateRecord{Status: model.CertificateStatusRejected},
			reason: model.SkipReasonMissingRecipient,
		},
		{
			name:      "recipientEmail",
			before:    model.CertificateRecord{Status: model.CertificateStatusPending},
			after:     model.CertificateRecord{Status: model.CertificateStatusApproved, RecipientEmail: "a@x.com", Recipient: "b@x.com"},
			recipient: "a@x.com",
		},
		{
			name:      "recipient fallback",
			before:    model.CertificateRecord{Status: model.CertificateStatusPending},
			after:     model.CertificateRecord{Status: model.CertificateStatusRejected, Recipient: "b@x.com"},
			recipient: "b@x.com",
		},
		{
			name:   "blank recipientEmail does not fall back",
			before: model.CertificateRecord{Status: model.CertificateStatusPending},
			after:  model.CertificateRecord{Status: model.CertificateStatusRejected, RecipientEmail: "   ", Recipient: "b@x.com"},
			reason: model.SkipReasonMissingRecipient,
		},
		{
			name:   "header injection in recipient",
			before: model.CertificateRecord{Status: model.CertificateStatusPending},
			after:  model.CertificateRecord{Status: model.CertificateStatusApproved, RecipientEmail: "a@x.com\r\nBcc: victim@evil.com"},
			reason: model.SkipReasonInvalidRecipient,
		},
		{
			name:   "recipient with display name",
			before: model.CertificateRecord{Status: model.CertificateStatusPending},
			after:  model.CertificateRecord{Status: model.CertificateStatusApproved, RecipientEmail: "Ada <a@x.com>"},
			reason: model.SkipReasonInvalidRecipient,
		},
		{
			name:      "first write counts as a transition",
			before:    model.CertificateRecord{},
			after:     model.CertificateRecord{Status: model.CertificateStatusApproved, RecipientEmail: "a@x.com"},
			recipient: "a@x.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipient, reason := Decide(tt.before, tt.after)
			assert.Equal(t, tt.recipient, recipient)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestNotify_PendingToApproved(t *testing.T) {
	sender := &MockSender{}
	m := metrics.New()
	svc := NewNotificationService(sender, nil, nil, m, testConfig(), logger.Nop())

	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg email.Message) bool {
		return msg.To == "a@x.com" &&
			msg.Subject == `Certificate Status Update: "Diploma"` &&
			strings.Contains(msg.TextBody, `Your certificate "Diploma" has been approved.`) &&
			strings.Contains(msg.TextBody, "https://certifyapp.com/view/T1") &&
			strings.Contains(msg.HTMLBody, "https://certifyapp.com/view/T1")
	})).Return(nil).Once()

	result := svc.Notify(context.Background(), change(model.CertificateStatusPending, model.CertificateStatusApproved, "a@x.com"))

	assert.Equal(t, model.DeliveryOutcomeSent, result.Outcome)
	assert.Equal(t, "a@x.com", result.Recipient)
	assert.Equal(t, config.ProviderSendGrid, result.Provider)
	assert.NoError(t, result.Err)
	assert.True(t, result.Attempted())
	sender.AssertExpectations(t)
	sender.AssertNumberOfCalls(t, "Send", 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `certnotify_notifications_total{outcome="sent",status="approved"} 1`)
}

func TestNotify_NoSendCases(t *testing.T) {
	tests := []struct {
		name   string
		change *model.CertificateChange
		reason model.SkipReason
	}{
		{"approved to approved", change(model.CertificateStatusApproved, model.CertificateStatusApproved, "a@x.com"), model.SkipReasonStatusUnchanged},
		{"approved to pending", change(model.CertificateStatusApproved, model.CertificateStatusPending, "a@x.com"), model.SkipReasonStatusNotTerminal},
		{"no recipient", change(model.CertificateStatusPending, model.CertificateStatusRejected, ""), model.SkipReasonMissingRecipient},
		{"recipient list", change(model.CertificateStatusPending, model.CertificateStatusRejected, "a@x.com, b@x.com"), model.SkipReasonInvalidRecipient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &MockSender{}
			deliveries := &MockDeliveryLog{}
			svc := NewNotificationService(sender, nil, deliveries, nil, testConfig(), logger.Nop())

			result := svc.Notify(context.Background(), tt.change)

			assert.Equal(t, model.DeliveryOutcomeSkipped, result.Outcome)
			assert.Equal(t, tt.reason, result.Reason)
			assert.NoError(t, result.Err)
			assert.False(t, result.Attempted())
			sender.AssertNumberOfCalls(t, "Send", 0)
			deliveries.AssertNumberOfCalls(t, "Create", 0)
		})
	}
}

func TestNotify_SendFailureIsReported(t *testing.T) {
	sender := &MockSender{}
	deliveries := &MockDeliveryLog{}
	svc := NewNotificationService(sender, nil, deliveries, nil, testConfig(), logger.Nop())

	providerErr := errors.New("provider down")
	sender.On("Send", mock.Anything, mock.Anything).Return(providerErr).Once()
	deliveries.On("Create", mock.Anything, mock.MatchedBy(func(d *model.Delivery) bool {
		return d.Outcome == model.DeliveryOutcomeFailed &&
			d.CertificateID == "cert-1" &&
			d.Error != nil && strings.Contains(*d.Error, "provider down")
	})).Return(nil).Once()

	var result model.DeliveryResult
	require.NotPanics(t, func() {
		result = svc.Notify(context.Background(), change(model.CertificateStatusPending, model.CertificateStatusRejected, "a@x.com"))
	})

	assert.Equal(t, model.DeliveryOutcomeFailed, result.Outcome)
	assert.ErrorIs(t, result.Err, providerErr)
	deliveries.AssertExpectations(t)
}

func TestNotify_DeliveryLogErrorIsSwallowed(t *testing.T) {
	sender := &MockSender{}
	deliveries := &MockDeliveryLog{}
	svc := NewNotificationService(sender, nil, deliveries, nil, testConfig(), logger.Nop())

	sender.On("Send", mock.Anything, mock.Anything).Return(nil).Once()
	deliveries.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	result := svc.Notify(context.Background(), change(model.CertificateStatusPending, model.CertificateStatusApproved, "a@x.com"))

	assert.Equal(t, model.DeliveryOutcomeSent, result.Outcome)
	assert.NoError(t, result.Err)
}

func TestNotify_LedgerSuppressesDuplicate(t *testing.T) {
	sender := &MockSender{}
	ledger := &MockLedger{}
	svc := NewNotificationService(sender, ledger, nil, nil, testConfig(), logger.Nop())

	c := change(model.CertificateStatusPending, model.CertificateStatusApproved, "a@x.com")
	ledger.On("Claim", mock.Anything, c).Return(true, nil).Once()
	ledger.On("Claim", mock.Anything, c).Return(false, nil).Once()
	sender.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

	first := svc.Notify(context.Background(), c)
	second := svc.Notify(context.Background(), c)

	assert.Equal(t, model.DeliveryOutcomeSent, first.Outcome)
	assert.Equal(t, model.DeliveryOutcomeDuplicate, second.Outcome)
	sender.AssertNumberOfCalls(t, "Send", 1)
	ledger.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestNotify_FailedSendReleasesClaim(t *testing.T) {
	sender := &MockSender{}
	ledger := &MockLedger{}
	svc := NewNotificationService(sender, ledger, nil, nil, testConfig(), logger.Nop())

	c := change(model.CertificateStatusPending, model.CertificateStatusApproved, "a@x.com")
	ledger.On("Claim", mock.Anything, c).Return(true, nil).Once()
	ledger.On("Release", mock.Anything, c).Return(nil).Once()
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("timeout")).Once()

	result := svc.Notify(context.Background(), c)

	assert.Equal(t, model.DeliveryOutcomeFailed, result.Outcome)
	ledger.AssertExpectations(t)
}

func TestNotify_LedgerErrorFailsOpen(t *testing.T) {
	sender := &MockSender{}
	ledger := &MockLedger{}
	svc := NewNotificationService(sender, ledger, nil, nil, testConfig(), logger.Nop())

	c := change(model.CertificateStatusPending, model.CertificateStatusApproved, "a@x.com")
	ledger.On("Claim", mock.Anything, c).Return(false, errors.New("redis down")).Once()
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("timeout")).Once()

	result := svc.Notify(context.Background(), c)

	assert.Equal(t, model.DeliveryOutcomeFailed, result.Outcome)
	sender.AssertNumberOfCalls(t, "Send", 1)
	ledger.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestBuildMessage_UsesConfiguredBaseURL(t *testing.T) {
	cfg := testConfig()
	cfg.Email.BaseURL = "https://staging.certifyapp.com/"
	svc := NewNotificationService(&MockSender{}, nil, nil, nil, cfg, logger.Nop())

	msg := svc.BuildMessage("a@x.com", model.CertificateRecord{
		Name:       "Diploma",
		Status:     model.CertificateStatusRejected,
		ShareToken: "T1",
	})

	assert.Contains(t, msg.TextBody, "https://staging.certifyapp.com/view/T1")
	assert.Contains(t, msg.TextBody, "has been rejected.")
	assert.Contains(t, msg.TextBody, "Certify App Team")
}
