package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/pkg/database"
	"github.com/shopspring/decimal"
)

const donationColumns = `id, user_id, amount, currency, session_ref, status, created_at, updated_at, last_checked_at`

// donationRepository implements DonationRepository interface
type donationRepository struct {
	db       *database.Postgres
	terminal pq.StringArray
}

// NewDonationRepository creates a new donation repository
func NewDonationRepository(db *database.Postgres) DonationRepository {
	terminal := make(pq.StringArray, 0, len(domain.TerminalStatuses))
	for _, s := range domain.TerminalStatuses {
		terminal = append(terminal, string(s))
	}
	return &donationRepository{db: db, terminal: terminal}
}

func scanDonation(row rowScanner) (*domain.Donation, error) {
	donation := &domain.Donation{}
	if err := row.Scan(
		&donation.ID,
		&donation.UserID,
		&donation.Amount,
		&donation.Currency,
		&donation.SessionRef,
		&donation.Status,
		&donation.CreatedAt,
		&donation.UpdatedAt,
		&donation.LastCheckedAt,
	); err != nil {
		return nil, err
	}
	return donation, nil
}

// Create inserts a new donation record
func (r *donationRepository) Create(ctx context.Context, donation *domain.Donation) error {
	query := `
		INSERT INTO donations (id, user_id, amount, currency, session_ref, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if donation.ID == "" {
		donation.ID = uuid.New().String()
	}
	if donation.Status == "" {
		donation.Status = domain.DonationInitiated
	}

	now := time.Now()
	if donation.CreatedAt.IsZero() {
		donation.CreatedAt = now
	}
	if donation.UpdatedAt.IsZero() {
		donation.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		donation.ID,
		donation.UserID,
		donation.Amount,
		donation.Currency,
		donation.SessionRef,
		donation.Status,
		donation.CreatedAt,
		donation.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("donation with session ref %s already exists: %w", donation.SessionRef, ErrDuplicateSessionRef)
		}
		return fmt.Errorf("failed to create donation: %w", err)
	}

	return nil
}

// GetByID retrieves a donation by ID
func (r *donationRepository) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE id = $1`

	donation, err := scanDonation(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("donation with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get donation by id: %w", err)
	}

	return donation, nil
}

// GetBySessionRef retrieves a donation by its gateway session reference
func (r *donationRepository) GetBySessionRef(ctx context.Context, sessionRef string) (*domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE session_ref = $1`

	donation, err := scanDonation(r.db.DB.QueryRowContext(ctx, query, sessionRef))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("donation with session ref %s not found: %w", sessionRef, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get donation by session ref: %w", err)
	}

	return donation, nil
}

// TransitionStatus updates the status unless the stored row is already terminal
func (r *donationRepository) TransitionStatus(ctx context.Context, sessionRef string, status domain.DonationStatus) (*domain.Donation, error) {
	query := `
		UPDATE donations
		SET status = $2, updated_at = now(), last_checked_at = now()
		WHERE session_ref = $1 AND status <> ALL($3)
		RETURNING ` + donationColumns

	donation, err := scanDonation(r.db.DB.QueryRowContext(ctx, query, sessionRef, status, r.terminal))
	if err == nil {
		return donation, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to transition donation: %w", err)
	}

	// no row updated: either missing or already terminal
	if _, err := r.GetBySessionRef(ctx, sessionRef); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("donation %s: %w", sessionRef, ErrTerminalState)
}

// ListByUser returns the donations of a user, newest first
func (r *donationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE user_id = $1 ORDER BY created_at DESC`

	return r.list(ctx, query, userID)
}

// MarkChecked records that the gateway was just asked about a donation
func (r *donationRepository) MarkChecked(ctx context.Context, sessionRef string) error {
	result, err := r.db.DB.ExecContext(ctx, `UPDATE donations SET last_checked_at = now() WHERE session_ref = $1`, sessionRef)
	if err != nil {
		return fmt.Errorf("failed to mark donation checked: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("donation with session ref %s not found: %w", sessionRef, ErrNotFound)
	}

	return nil
}

// ListStale returns non-terminal donations neither updated nor checked since olderThan,
// least recently checked first
func (r *donationRepository) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Donation, error) {
	query := `
		SELECT ` + donationColumns + `
		FROM donations
		WHERE status <> ALL($1) AND COALESCE(last_checked_at, updated_at) < $2
		ORDER BY COALESCE(last_checked_at, updated_at) ASC
		LIMIT $3
	`

	return r.list(ctx, query, r.terminal, olderThan, limit)
}

func (r *donationRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Donation, error) {
	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	defer rows.Close()

	var donations []*domain.Donation
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		donations = append(donations, donation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate donations: %w", err)
	}

	return donations, nil
}

// Stats counts all donations and sums successful amounts per currency
func (r *donationRepository) Stats(ctx context.Context) (*domain.DonationStats, error) {
	stats := &domain.DonationStats{TotalAmount: map[domain.Currency]decimal.Decimal{}}

	if err := r.db.DB.QueryRowContext(ctx, `SELECT count(*) FROM donations`).Scan(&stats.TotalDonations); err != nil {
		return nil, fmt.Errorf("failed to count donations: %w", err)
	}

	query := `
		SELECT currency, sum(amount)
		FROM donations
		WHERE status = $1
		GROUP BY currency
	`

	rows, err := r.db.DB.QueryContext(ctx, query, domain.DonationSuccess)
	if err != nil {
		return nil, fmt.Errorf("failed to sum donations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			currency domain.Currency
			total    decimal.Decimal
		)
		if err := rows.Scan(&currency, &total); err != nil {
			return nil, fmt.Errorf("failed to scan donation total: %w", err)
		}
		stats.TotalAmount[currency] = total
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate donation totals: %w", err)
	}

	return stats, nil
}
