package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/repository/memory"
	"github.com/prperemyshlev/donation-service/internal/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

// clock is a settable time source
type clock struct {
	t time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func seedAccount(t *testing.T, repo *memory.AccountRepository, email, password string, role domain.Role) *domain.Account {
	t.Helper()

	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)

	account := &domain.Account{
		Name:         "Test Donor",
		Email:        email,
		PasswordHash: &hash,
		Role:         role,
	}
	require.NoError(t, repo.Create(context.Background(), account))
	return account
}
