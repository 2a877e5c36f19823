package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/pkg/database"
)

// donationEventRepository implements DonationEventRepository interface
type donationEventRepository struct {
	db *database.Postgres
}

// NewDonationEventRepository creates a new donation event repository
func NewDonationEventRepository(db *database.Postgres) DonationEventRepository {
	return &donationEventRepository{db: db}
}

// Create appends an audit entry
func (r *donationEventRepository) Create(ctx context.Context, event *domain.DonationEvent) error {
	query := `
		INSERT INTO donation_events (id, donation_id, session_ref, gateway_status, previous_status, new_status, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	// Generate UUID if not provided
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		event.ID,
		event.DonationID,
		event.SessionRef,
		event.GatewayStatus,
		event.PreviousStatus,
		event.NewStatus,
		event.Source,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create donation event: %w", err)
	}

	return nil
}

// ListByDonation returns the audit trail of a donation, oldest first
func (r *donationEventRepository) ListByDonation(ctx context.Context, donationID string) ([]*domain.DonationEvent, error) {
	query := `
		SELECT id, donation_id, session_ref, gateway_status, previous_status, new_status, source, created_at
		FROM donation_events
		WHERE donation_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get donation events: %w", err)
	}
	defer rows.Close()

	var events []*domain.DonationEvent
	for rows.Next() {
		event := &domain.DonationEvent{}
		err := rows.Scan(
			&event.ID,
			&event.DonationID,
			&event.SessionRef,
			&event.GatewayStatus,
			&event.PreviousStatus,
			&event.NewStatus,
			&event.Source,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate donation events: %w", err)
	}

	return events, nil
}
