package domain

import "time"

// SessionClaims are the claims carried by a session token
type SessionClaims struct {
	AccountID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
