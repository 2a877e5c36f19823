package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prperemyshlev/donation-service/internal/domain"
)

var (
	ErrTokenExpired      = errors.New("token is expired")
	ErrTokenMalformed    = errors.New("token is malformed")
	ErrTokenBadSignature = errors.New("token signature is invalid")
)

type sessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates stateless session tokens
type JWTManager struct {
	secret      []byte
	tokenExpiry time.Duration
	now         func() time.Time
}

type JWTOption func(*JWTManager)

// WithClock overrides the time source used for issuing and validating tokens
func WithClock(now func() time.Time) JWTOption {
	return func(j *JWTManager) {
		j.now = now
	}
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, tokenExpiry time.Duration, opts ...JWTOption) *JWTManager {
	j := &JWTManager{
		secret:      []byte(secret),
		tokenExpiry: tokenExpiry,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Issue generates a signed session token for the account
func (j *JWTManager) Issue(accountID string) (string, error) {
	now := j.now()
	claims := sessionClaims{
		UserID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate checks signature and expiry and returns the session claims.
// The returned error is always one of ErrTokenExpired, ErrTokenMalformed, ErrTokenBadSignature.
func (j *JWTManager) Validate(tokenString string) (*domain.SessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	},
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenBadSignature
		default:
			return nil, ErrTokenMalformed
		}
	}

	if !token.Valid || claims.UserID == "" || claims.IssuedAt == nil {
		return nil, ErrTokenMalformed
	}

	return &domain.SessionClaims{
		AccountID: claims.UserID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ExpiresIn returns the token validity in seconds
func (j *JWTManager) ExpiresIn() int {
	return int(j.tokenExpiry.Seconds())
}
