package repository

import (
	"context"
	"fmt"

	"github.com/certifyapp/certnotify/internal/database"
	"github.com/certifyapp/certnotify/internal/model"
)

// DeliveryRepository handles delivery log persistence
type DeliveryRepository struct {
	db *database.Postgres
}

// NewDeliveryRepository creates a new DeliveryRepository
func NewDeliveryRepository(db *database.Postgres) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Create inserts a new delivery log entry
func (r *DeliveryRepository) Create(ctx context.Context, d *model.Delivery) error {
	if d.ID == "" || d.CertificateID == "" {
		return ErrInvalidInput
	}

	query := `
		INSERT INTO notification_deliveries (id, certificate_id, event_id, status, recipient,
		    provider, outcome, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.CertificateID,
		d.EventID,
		d.Status,
		d.Recipient,
		d.Provider,
		d.Outcome,
		d.Error,
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}
	return nil
}

// ListByCertificate returns the most recent deliveries for a certificate, newest first
func (r *DeliveryRepository) ListByCertificate(ctx context.Context, certificateID string, limit int) ([]*model.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, certificate_id, event_id, status, recipient, provider, outcome, error, created_at
		FROM notification_deliveries
		WHERE certificate_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, certificateID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*model.Delivery
	for rows.Next() {
		var d model.Delivery
		if err := rows.Scan(
			&d.ID,
			&d.CertificateID,
			&d.EventID,
			&d.Status,
			&d.Recipient,
			&d.Provider,
			&d.Outcome,
			&d.Error,
			&d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deliveries: %w", err)
	}

	return deliveries, nil
}
