package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/certifyapp/certnotify/internal/database"
	"github.com/certifyapp/certnotify/internal/model"
)

const ledgerKeyPrefix = "notify:delivery:"

// LedgerRepository records which certificate transitions already produced an email.
type LedgerRepository struct {
	rdb *database.Redis
	ttl time.Duration
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(rdb *database.Redis, ttl time.Duration) *LedgerRepository {
	return &LedgerRepository{rdb: rdb, ttl: ttl}
}

// Claim marks the transition as being delivered. It returns false when another
// delivery of the same transition already claimed it.
func (r *LedgerRepository) Claim(ctx context.Context, change *model.CertificateChange) (bool, error) {
	ok, err := r.rdb.SetIfAbsent(ctx, LedgerKey(change), time.Now().UTC().Format(time.RFC3339), r.ttl)
	if err != nil {
		return false, fmt.Errorf("failed to claim delivery: %w", err)
	}
	return ok, nil
}

// Release drops a claim so a redelivered event can try again.
func (r *LedgerRepository) Release(ctx context.Context, change *model.CertificateChange) error {
	if err := r.rdb.Delete(ctx, LedgerKey(change)); err != nil {
		return fmt.Errorf("failed to release delivery claim: %w", err)
	}
	return nil
}

// LedgerKey returns notify:delivery:<certId>:<status>[:<eventId>].
func LedgerKey(change *model.CertificateChange) string {
	key := ledgerKeyPrefix + change.CertificateID + ":" + string(change.After.Status)
	if change.EventID != "" {
		key += ":" + change.EventID
	}
	return key
}
