package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certifyapp/certnotify/internal/database"
	"github.com/certifyapp/certnotify/internal/model"
)

func newTestLedger(t *testing.T, ttl time.Duration) (*LedgerRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLedgerRepository(&database.Redis{Client: client}, ttl), mr
}

func approvedChange(eventID string) *model.CertificateChange {
	return &model.CertificateChange{
		CertificateID: "cert-1",
		EventID:       eventID,
		Before:        model.CertificateRecord{Status: model.CertificateStatusPending},
		After:         model.CertificateRecord{Status: model.CertificateStatusApproved},
	}
}

func TestLedgerKey(t *testing.T) {
	assert.Equal(t, "notify:delivery:cert-1:approved:evt-1", LedgerKey(approvedChange("evt-1")))
	assert.Equal(t, "notify:delivery:cert-1:approved", LedgerKey(approvedChange("")))
}

func TestLedgerRepository_Claim(t *testing.T) {
	ledger, mr := newTestLedger(t, time.Hour)
	ctx := context.Background()

	ok, err := ledger.Claim(ctx, approvedChange("evt-1"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.Claim(ctx, approvedChange("evt-1"))
	require.NoError(t, err)
	assert.False(t, ok, "second claim of the same event must lose")

	ok, err = ledger.Claim(ctx, approvedChange("evt-2"))
	require.NoError(t, err)
	assert.True(t, ok, "a different event is a separate claim")

	assert.Equal(t, time.Hour, mr.TTL("notify:delivery:cert-1:approved:evt-1"))
}

func TestLedgerRepository_ClaimExpires(t *testing.T) {
	ledger, mr := newTestLedger(t, time.Minute)
	ctx := context.Background()

	ok, err := ledger.Claim(ctx, approvedChange("evt-1"))
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = ledger.Claim(ctx, approvedChange("evt-1"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedgerRepository_Release(t *testing.T) {
	ledger, mr := newTestLedger(t, time.Hour)
	ctx := context.Background()

	_, err := ledger.Claim(ctx, approvedChange("evt-1"))
	require.NoError(t, err)
	require.NoError(t, ledger.Release(ctx, approvedChange("evt-1")))
	assert.False(t, mr.Exists("notify:delivery:cert-1:approved:evt-1"))

	ok, err := ledger.Claim(ctx, approvedChange("evt-1"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedgerRepository_ClaimError(t *testing.T) {
	ledger, mr := newTestLedger(t, time.Hour)
	mr.Close()

	_, err := ledger.Claim(context.Background(), approvedChange("evt-1"))
	assert.Error(t, err)
}
