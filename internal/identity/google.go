// Package identity verifies Google ID tokens for sign-in.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/service"
	"google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var (
	ErrInvalidAudience = errors.New("invalid google audience")
	ErrMissingSubject  = errors.New("google token has no subject")
)

// GoogleVerifier checks ID tokens against Google's tokeninfo endpoint
type GoogleVerifier struct {
	service  *oauth2.Service
	clientID string
	timeout  time.Duration
}

var _ service.IdentityVerifier = (*GoogleVerifier)(nil)

// NewGoogleVerifier creates a verifier accepting tokens issued to clientID
func NewGoogleVerifier(ctx context.Context, clientID string, timeout time.Duration, opts ...option.ClientOption) (*GoogleVerifier, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(&http.Client{Timeout: timeout})}, opts...)

	svc, err := oauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create google oauth2 service: %w", err)
	}

	return &GoogleVerifier{service: svc, clientID: clientID, timeout: timeout}, nil
}

// Verify validates idToken and returns the identity it asserts
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*domain.ExternalIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	info, err := v.service.Tokeninfo().IdToken(idToken).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google tokeninfo failed: %w", err)
	}

	if info.Audience != v.clientID {
		return nil, ErrInvalidAudience
	}
	if info.UserId == "" {
		return nil, ErrMissingSubject
	}

	return &domain.ExternalIdentity{
		Subject:       info.UserId,
		Email:         info.Email,
		EmailVerified: info.VerifiedEmail,
	}, nil
}
