package service

import (
	"fmt"

	"github.com/prperemyshlev/donation-service/internal/domain"
)

// AdminGrant is proof that an account held the admin role when it was minted.
// Only AuthService.GrantAdmin produces a valid grant.
type AdminGrant struct {
	accountID string
}

// AccountID returns the admin the grant was issued to
func (g AdminGrant) AccountID() string {
	return g.accountID
}

func (g AdminGrant) valid() bool {
	return g.accountID != ""
}

func (g AdminGrant) require() error {
	if !g.valid() {
		return fmt.Errorf("admin capability required: %w", ErrForbidden)
	}
	return nil
}

// Viewer identifies who is reading a donation
type Viewer struct {
	AccountID string
	Admin     *AdminGrant
}

func (v Viewer) canSee(d *domain.Donation) bool {
	if v.Admin != nil && v.Admin.valid() {
		return true
	}
	return v.AccountID != "" && d.UserID == v.AccountID
}
