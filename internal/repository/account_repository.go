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
)

const accountColumns = `id, name, email, password_hash, google_id, role,
	reset_otp, reset_otp_expires_at, reset_token_hash, reset_token_expires_at,
	created_at, updated_at`

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db *database.Postgres
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.Postgres) AccountRepository {
	return &accountRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	account := &domain.Account{}
	var (
		passwordHash, googleID, resetOTP, resetTokenHash sql.NullString
		resetOTPExpiresAt, resetTokenExpiresAt           sql.NullTime
	)

	if err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&passwordHash,
		&googleID,
		&account.Role,
		&resetOTP,
		&resetOTPExpiresAt,
		&resetTokenHash,
		&resetTokenExpiresAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if passwordHash.Valid {
		account.PasswordHash = &passwordHash.String
	}
	if googleID.Valid {
		account.GoogleID = &googleID.String
	}
	if resetOTP.Valid {
		account.ResetOTP = &resetOTP.String
	}
	if resetOTPExpiresAt.Valid {
		account.ResetOTPExpiresAt = &resetOTPExpiresAt.Time
	}
	if resetTokenHash.Valid {
		account.ResetTokenHash = &resetTokenHash.String
	}
	if resetTokenExpiresAt.Valid {
		account.ResetTokenExpiresAt = &resetTokenExpiresAt.Time
	}

	return account, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" { // unique_violation
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// Create creates a new account in the database
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, google_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	// Generate UUID if not provided
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.Role == "" {
		account.Role = domain.RoleUser
	}

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.GoogleID,
		account.Role,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "users_google_id_key") {
			return fmt.Errorf("google identity already linked: %w", ErrDuplicateExternalID)
		}
		if isUniqueViolation(err, "") {
			return fmt.Errorf("account with email %s already exists: %w", account.Email, ErrDuplicateEmail)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByEmail retrieves an account by email, case-insensitively
func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE email = lower(trim($1))`

	account, err := scanAccount(r.db.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return account, nil
}

// GetByID retrieves an account by ID
func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE id = $1`

	account, err := scanAccount(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}

	return account, nil
}

// GetByGoogleID retrieves an account by its linked Google subject
func (r *accountRepository) GetByGoogleID(ctx context.Context, googleID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE google_id = $1`

	account, err := scanAccount(r.db.DB.QueryRowContext(ctx, query, googleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account with google id not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by google id: %w", err)
	}

	return account, nil
}

// LinkGoogleID attaches a Google subject to an existing account
func (r *accountRepository) LinkGoogleID(ctx context.Context, accountID, googleID string) error {
	query := `UPDATE users SET google_id = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, accountID, googleID)
	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("google identity already linked: %w", ErrDuplicateExternalID)
		}
		return fmt.Errorf("failed to link google id: %w", err)
	}

	return expectOne(result, "account", accountID)
}

// SetRole changes the role of an account
func (r *accountRepository) SetRole(ctx context.Context, accountID string, role domain.Role) error {
	query := `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, accountID, role)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}

	return expectOne(result, "account", accountID)
}

// UpdatePassword replaces the password hash of an account
func (r *accountRepository) UpdatePassword(ctx context.Context, accountID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, accountID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return expectOne(result, "account", accountID)
}

// CountAll returns the number of registered accounts
func (r *accountRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.DB.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// SetResetOTP stores a recovery code, overwriting any previous one
func (r *accountRepository) SetResetOTP(ctx context.Context, accountID, code string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET reset_otp = $2, reset_otp_expires_at = $3, updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, accountID, code, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store reset otp: %w", err)
	}

	return expectOne(result, "account", accountID)
}

// MatchResetOTP checks the stored code without consuming it
func (r *accountRepository) MatchResetOTP(ctx context.Context, email, code string, now time.Time) error {
	query := `
		SELECT 1 FROM users
		WHERE email = lower(trim($1)) AND reset_otp = $2 AND reset_otp_expires_at > $3
	`

	var one int
	err := r.db.DB.QueryRowContext(ctx, query, email, code, now).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reset otp not matched: %w", ErrNotFound)
		}
		return fmt.Errorf("failed to match reset otp: %w", err)
	}

	return nil
}

// ConsumeResetOTP sets the new password hash and clears the code in one statement
func (r *accountRepository) ConsumeResetOTP(ctx context.Context, email, code, passwordHash string, now time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $3, reset_otp = NULL, reset_otp_expires_at = NULL, updated_at = now()
		WHERE email = lower(trim($1)) AND reset_otp = $2 AND reset_otp_expires_at > $4
	`

	result, err := r.db.DB.ExecContext(ctx, query, email, code, passwordHash, now)
	if err != nil {
		return fmt.Errorf("failed to consume reset otp: %w", err)
	}

	return expectOne(result, "reset otp for", email)
}

// SetResetToken stores the hash of a reset link token, overwriting any previous one
func (r *accountRepository) SetResetToken(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, accountID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	return expectOne(result, "account", accountID)
}

// ConsumeResetToken sets the new password hash and clears the token in one statement
func (r *accountRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = now()
		WHERE reset_token_hash = $1 AND reset_token_expires_at > $3
	`

	result, err := r.db.DB.ExecContext(ctx, query, tokenHash, passwordHash, now)
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	return expectOne(result, "reset token", "")
}

func expectOne(result sql.Result, entity, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s %s not found: %w", entity, id, ErrNotFound)
	}

	return nil
}
