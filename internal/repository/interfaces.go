package repository

import (
	"context"
	"time"

	"github.com/prperemyshlev/donation-service/internal/domain"
)

// AccountRepository defines methods for account and credential operations
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByGoogleID(ctx context.Context, googleID string) (*domain.Account, error)
	LinkGoogleID(ctx context.Context, accountID, googleID string) error
	SetRole(ctx context.Context, accountID string, role domain.Role) error
	UpdatePassword(ctx context.Context, accountID, passwordHash string) error
	CountAll(ctx context.Context) (int64, error)

	// SetResetOTP stores a recovery code, replacing any previous one
	SetResetOTP(ctx context.Context, accountID, code string, expiresAt time.Time) error
	// MatchResetOTP returns ErrNotFound unless the code is stored for email and unexpired at now
	MatchResetOTP(ctx context.Context, email, code string, now time.Time) error
	// ConsumeResetOTP sets the password and clears the code atomically.
	// Returns ErrNotFound when the code is wrong, expired or already used.
	ConsumeResetOTP(ctx context.Context, email, code, passwordHash string, now time.Time) error

	SetResetToken(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) error
}

// DonationRepository defines methods for donation ledger operations
type DonationRepository interface {
	Create(ctx context.Context, donation *domain.Donation) error
	GetByID(ctx context.Context, id string) (*domain.Donation, error)
	GetBySessionRef(ctx context.Context, sessionRef string) (*domain.Donation, error)
	// TransitionStatus moves a non-terminal donation to status.
	// Returns ErrTerminalState when the stored row is already terminal.
	TransitionStatus(ctx context.Context, sessionRef string, status domain.DonationStatus) (*domain.Donation, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Donation, error)
	// MarkChecked stamps the time reconciliation last asked the gateway about a donation
	MarkChecked(ctx context.Context, sessionRef string) error
	// ListStale returns non-terminal donations neither updated nor checked since olderThan,
	// least recently checked first
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Donation, error)
	Stats(ctx context.Context) (*domain.DonationStats, error)
}

// DonationEventRepository stores the audit trail of persisted transitions
type DonationEventRepository interface {
	Create(ctx context.Context, event *domain.DonationEvent) error
	ListByDonation(ctx context.Context, donationID string) ([]*domain.DonationEvent, error)
}
