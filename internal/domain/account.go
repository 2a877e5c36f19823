package domain

import "time"

// Role is the access level of an account
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account represents a donor or administrator
type Account struct {
	ID                  string     `json:"id" db:"id"`
	Name                string     `json:"name" db:"name"`
	Email               string     `json:"email" db:"email"`
	PasswordHash        *string    `json:"-" db:"password_hash"`
	GoogleID            *string    `json:"-" db:"google_id"`
	Role                Role       `json:"role" db:"role"`
	ResetOTP            *string    `json:"-" db:"reset_otp"`
	ResetOTPExpiresAt   *time.Time `json:"-" db:"reset_otp_expires_at"`
	ResetTokenHash      *string    `json:"-" db:"reset_token_hash"`
	ResetTokenExpiresAt *time.Time `json:"-" db:"reset_token_expires_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// HasCredential reports whether the account can be reached by at least one login path
func (a *Account) HasCredential() bool {
	return a.PasswordHash != nil || a.GoogleID != nil
}

// IsAdmin checks if the account holds the admin role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}
