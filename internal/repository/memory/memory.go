// Package memory provides mutex-guarded implementations of the repository
// contracts. Values are copied on the way in and out.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/repository"
	"github.com/shopspring/decimal"
)

// NewRepositories returns an in-memory repository set
func NewRepositories() *repository.Repositories {
	return &repository.Repositories{
		Account:       NewAccountRepository(),
		Donation:      NewDonationRepository(),
		DonationEvent: NewDonationEventRepository(),
	}
}

type AccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]*domain.Account)}
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *AccountRepository) findByEmail(email string) *domain.Account {
	email = normalize(email)
	for _, a := range r.accounts {
		if a.Email == email {
			return a
		}
	}
	return nil
}

func (r *AccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findByEmail(account.Email) != nil {
		return fmt.Errorf("account with email %s already exists: %w", account.Email, repository.ErrDuplicateEmail)
	}
	if account.GoogleID != nil {
		for _, a := range r.accounts {
			if a.GoogleID != nil && *a.GoogleID == *account.GoogleID {
				return fmt.Errorf("google identity already linked: %w", repository.ErrDuplicateExternalID)
			}
		}
	}

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

	stored := copyAccount(account)
	stored.Email = normalize(stored.Email)
	r.accounts[account.ID] = stored
	return nil
}

func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a := r.findByEmail(email); a != nil {
		return copyAccount(a), nil
	}
	return nil, fmt.Errorf("account with email %s not found: %w", email, repository.ErrNotFound)
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.accounts[id]; ok {
		return copyAccount(a), nil
	}
	return nil, fmt.Errorf("account with id %s not found: %w", id, repository.ErrNotFound)
}

func (r *AccountRepository) GetByGoogleID(_ context.Context, googleID string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.GoogleID != nil && *a.GoogleID == googleID {
			return copyAccount(a), nil
		}
	}
	return nil, fmt.Errorf("account with google id not found: %w", repository.ErrNotFound)
}

func (r *AccountRepository) update(id string, fn func(a *domain.Account) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return fmt.Errorf("account %s not found: %w", id, repository.ErrNotFound)
	}
	if err := fn(a); err != nil {
		return err
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (r *AccountRepository) LinkGoogleID(_ context.Context, accountID, googleID string) error {
	r.mu.Lock()
	for id, a := range r.accounts {
		if id != accountID && a.GoogleID != nil && *a.GoogleID == googleID {
			r.mu.Unlock()
			return fmt.Errorf("google identity already linked: %w", repository.ErrDuplicateExternalID)
		}
	}
	r.mu.Unlock()

	return r.update(accountID, func(a *domain.Account) error {
		a.GoogleID = &googleID
		return nil
	})
}

func (r *AccountRepository) SetRole(_ context.Context, accountID string, role domain.Role) error {
	return r.update(accountID, func(a *domain.Account) error {
		a.Role = role
		return nil
	})
}

func (r *AccountRepository) UpdatePassword(_ context.Context, accountID, passwordHash string) error {
	return r.update(accountID, func(a *domain.Account) error {
		a.PasswordHash = &passwordHash
		return nil
	})
}

func (r *AccountRepository) CountAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.accounts)), nil
}

func (r *AccountRepository) SetResetOTP(_ context.Context, accountID, code string, expiresAt time.Time) error {
	return r.update(accountID, func(a *domain.Account) error {
		a.ResetOTP = &code
		a.ResetOTPExpiresAt = &expiresAt
		return nil
	})
}

func otpMatches(a *domain.Account, code string, now time.Time) bool {
	return a != nil && a.ResetOTP != nil && *a.ResetOTP == code &&
		a.ResetOTPExpiresAt != nil && a.ResetOTPExpiresAt.After(now)
}

func (r *AccountRepository) MatchResetOTP(_ context.Context, email, code string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !otpMatches(r.findByEmail(email), code, now) {
		return fmt.Errorf("reset otp not matched: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *AccountRepository) ConsumeResetOTP(_ context.Context, email, code, passwordHash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.findByEmail(email)
	if !otpMatches(a, code, now) {
		return fmt.Errorf("reset otp for %s not found: %w", email, repository.ErrNotFound)
	}

	a.PasswordHash = &passwordHash
	a.ResetOTP = nil
	a.ResetOTPExpiresAt = nil
	a.UpdatedAt = time.Now()
	return nil
}

func (r *AccountRepository) SetResetToken(_ context.Context, accountID, tokenHash string, expiresAt time.Time) error {
	return r.update(accountID, func(a *domain.Account) error {
		a.ResetTokenHash = &tokenHash
		a.ResetTokenExpiresAt = &expiresAt
		return nil
	})
}

func (r *AccountRepository) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if a.ResetTokenHash == nil || *a.ResetTokenHash != tokenHash {
			continue
		}
		if a.ResetTokenExpiresAt == nil || !a.ResetTokenExpiresAt.After(now) {
			break
		}
		a.PasswordHash = &passwordHash
		a.ResetTokenHash = nil
		a.ResetTokenExpiresAt = nil
		a.UpdatedAt = time.Now()
		return nil
	}
	return fmt.Errorf("reset token not found: %w", repository.ErrNotFound)
}

type DonationRepository struct {
	mu        sync.Mutex
	donations map[string]*domain.Donation
}

func NewDonationRepository() *DonationRepository {
	return &DonationRepository{donations: make(map[string]*domain.Donation)}
}

func copyDonation(d *domain.Donation) *domain.Donation {
	c := *d
	if d.LastCheckedAt != nil {
		checked := *d.LastCheckedAt
		c.LastCheckedAt = &checked
	}
	return &c
}

// checkedAt mirrors COALESCE(last_checked_at, updated_at)
func checkedAt(d *domain.Donation) time.Time {
	if d.LastCheckedAt != nil {
		return *d.LastCheckedAt
	}
	return d.UpdatedAt
}

func (r *DonationRepository) Create(_ context.Context, donation *domain.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.donations {
		if d.SessionRef == donation.SessionRef {
			return fmt.Errorf("donation with session ref %s already exists: %w", donation.SessionRef, repository.ErrDuplicateSessionRef)
		}
	}

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

	r.donations[donation.ID] = copyDonation(donation)
	return nil
}

func (r *DonationRepository) GetByID(_ context.Context, id string) (*domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.donations[id]; ok {
		return copyDonation(d), nil
	}
	return nil, fmt.Errorf("donation with id %s not found: %w", id, repository.ErrNotFound)
}

func (r *DonationRepository) bySessionRef(ref string) *domain.Donation {
	for _, d := range r.donations {
		if d.SessionRef == ref {
			return d
		}
	}
	return nil
}

func (r *DonationRepository) GetBySessionRef(_ context.Context, sessionRef string) (*domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d := r.bySessionRef(sessionRef); d != nil {
		return copyDonation(d), nil
	}
	return nil, fmt.Errorf("donation with session ref %s not found: %w", sessionRef, repository.ErrNotFound)
}

func (r *DonationRepository) TransitionStatus(_ context.Context, sessionRef string, status domain.DonationStatus) (*domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.bySessionRef(sessionRef)
	if d == nil {
		return nil, fmt.Errorf("donation with session ref %s not found: %w", sessionRef, repository.ErrNotFound)
	}
	if d.Status.IsTerminal() {
		return nil, fmt.Errorf("donation %s: %w", sessionRef, repository.ErrTerminalState)
	}

	now := time.Now()
	d.Status = status
	d.UpdatedAt = now
	d.LastCheckedAt = &now
	return copyDonation(d), nil
}

func (r *DonationRepository) MarkChecked(_ context.Context, sessionRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.bySessionRef(sessionRef)
	if d == nil {
		return fmt.Errorf("donation with session ref %s not found: %w", sessionRef, repository.ErrNotFound)
	}

	now := time.Now()
	d.LastCheckedAt = &now
	return nil
}

func (r *DonationRepository) ListByUser(_ context.Context, userID string) ([]*domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Donation
	for _, d := range r.donations {
		if d.UserID == userID {
			out = append(out, copyDonation(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *DonationRepository) ListStale(_ context.Context, olderThan time.Time, limit int) ([]*domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Donation
	for _, d := range r.donations {
		if !d.Status.IsTerminal() && checkedAt(d).Before(olderThan) {
			out = append(out, copyDonation(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return checkedAt(out[i]).Before(checkedAt(out[j])) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *DonationRepository) Stats(_ context.Context) (*domain.DonationStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &domain.DonationStats{
		TotalDonations: int64(len(r.donations)),
		TotalAmount:    map[domain.Currency]decimal.Decimal{},
	}
	for _, d := range r.donations {
		if d.Status == domain.DonationSuccess {
			stats.TotalAmount[d.Currency] = stats.TotalAmount[d.Currency].Add(d.Amount)
		}
	}
	return stats, nil
}

type DonationEventRepository struct {
	mu     sync.Mutex
	events []*domain.DonationEvent
}

func NewDonationEventRepository() *DonationEventRepository {
	return &DonationEventRepository{}
}

func (r *DonationEventRepository) Create(_ context.Context, event *domain.DonationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	c := *event
	r.events = append(r.events, &c)
	return nil
}

func (r *DonationEventRepository) ListByDonation(_ context.Context, donationID string) ([]*domain.DonationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.DonationEvent
	for _, e := range r.events {
		if e.DonationID == donationID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

var (
	_ repository.AccountRepository       = (*AccountRepository)(nil)
	_ repository.DonationRepository      = (*DonationRepository)(nil)
	_ repository.DonationEventRepository = (*DonationEventRepository)(nil)
)
