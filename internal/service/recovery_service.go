package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/repository"
	"github.com/prperemyshlev/donation-service/internal/utils"
	"go.uber.org/zap"
)

const (
	FlowOTP  = "otp"
	FlowLink = "link"

	resetTokenBytes = 32
)

// RecoverySettings configures the recovery engine
type RecoverySettings struct {
	Flow               string
	OTPLength          int
	OTPExpiry          time.Duration
	TokenExpiry        time.Duration
	ResetURL           string
	RevealUnknownEmail bool
	SendTimeout        time.Duration
	BCryptCost         int
}

type RecoveryOption func(*recoveryService)

// WithRecoveryClock overrides the time source used for code expiry
func WithRecoveryClock(now func() time.Time) RecoveryOption {
	return func(s *recoveryService) {
		s.now = now
	}
}

// recoveryService implements RecoveryService interface
type recoveryService struct {
	accountRepo repository.AccountRepository
	throttle    OTPThrottle
	notifier    Notifier
	settings    RecoverySettings
	metrics     *Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewRecoveryService creates a new recovery service
func NewRecoveryService(
	accountRepo repository.AccountRepository,
	throttle OTPThrottle,
	notifier Notifier,
	settings RecoverySettings,
	metrics *Metrics,
	logger *zap.Logger,
	opts ...RecoveryOption,
) RecoveryService {
	s := &recoveryService{
		accountRepo: accountRepo,
		throttle:    throttle,
		notifier:    notifier,
		settings:    settings,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *recoveryService) Flow() string {
	return s.settings.Flow
}

func (s *recoveryService) requireFlow(flow string) error {
	if s.settings.Flow != flow {
		return fmt.Errorf("%s recovery is disabled: %w", flow, ErrInvalidInput)
	}
	return nil
}

// RequestOTP issues a fresh recovery code, replacing any previous one
func (s *recoveryService) RequestOTP(ctx context.Context, email string) error {
	if err := s.requireFlow(FlowOTP); err != nil {
		return err
	}

	account, err := s.lookup(ctx, email)
	if err != nil || account == nil {
		return err
	}

	code, err := utils.GenerateNumericCode(s.settings.OTPLength)
	if err != nil {
		return err
	}

	if err := s.accountRepo.SetResetOTP(ctx, account.ID, code, s.now().Add(s.settings.OTPExpiry)); err != nil {
		return fmt.Errorf("failed to store recovery code: %w", err)
	}
	s.metrics.codeIssued(ctx, FlowOTP)

	body := fmt.Sprintf("Hello %s,\n\nYour password reset code is %s. It expires in %s.\n\n"+
		"If you did not request a password reset, you can ignore this email.\n",
		account.Name, code, formatExpiry(s.settings.OTPExpiry))

	return s.deliver(ctx, account, "Your password reset code", body)
}

// ResendOTP behaves exactly like RequestOTP
func (s *recoveryService) ResendOTP(ctx context.Context, email string) error {
	return s.RequestOTP(ctx, email)
}

// VerifyOTP checks a code without consuming it
func (s *recoveryService) VerifyOTP(ctx context.Context, email, code string) error {
	if err := s.requireFlow(FlowOTP); err != nil {
		return err
	}
	if code == "" {
		return ErrInvalidOrExpired
	}

	if err := s.accountRepo.MatchResetOTP(ctx, utils.SanitizeEmail(email), code, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpired
		}
		return fmt.Errorf("failed to verify recovery code: %w", err)
	}

	return nil
}

// ConsumeOTP sets a new password if the code is valid, consuming it
func (s *recoveryService) ConsumeOTP(ctx context.Context, email, code, newPassword string) error {
	if err := s.requireFlow(FlowOTP); err != nil {
		return err
	}
	if !utils.ValidatePassword(newPassword) {
		return fmt.Errorf("%s: %w", passwordPolicyMessage, ErrInvalidInput)
	}
	if code == "" {
		s.metrics.consumed(ctx, FlowOTP, "rejected")
		return ErrInvalidOrExpired
	}

	passwordHash, err := utils.HashPassword(newPassword, s.settings.BCryptCost)
	if err != nil {
		return err
	}

	err = s.accountRepo.ConsumeResetOTP(ctx, utils.SanitizeEmail(email), code, passwordHash, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.consumed(ctx, FlowOTP, "rejected")
			return ErrInvalidOrExpired
		}
		return fmt.Errorf("failed to consume recovery code: %w", err)
	}

	s.metrics.consumed(ctx, FlowOTP, "accepted")
	s.logger.Info("password reset with recovery code")
	return nil
}

// RequestResetLink issues a single-use reset link
func (s *recoveryService) RequestResetLink(ctx context.Context, email string) error {
	if err := s.requireFlow(FlowLink); err != nil {
		return err
	}

	account, err := s.lookup(ctx, email)
	if err != nil || account == nil {
		return err
	}

	token, err := utils.GenerateToken(resetTokenBytes)
	if err != nil {
		return err
	}

	expiresAt := s.now().Add(s.settings.TokenExpiry)
	if err := s.accountRepo.SetResetToken(ctx, account.ID, utils.HashToken(token), expiresAt); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	s.metrics.codeIssued(ctx, FlowLink)

	link, err := resetLink(s.settings.ResetURL, token)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("Hello %s,\n\nOpen the link below to choose a new password. It expires in %s.\n\n%s\n\n"+
		"If you did not request a password reset, you can ignore this email.\n",
		account.Name, formatExpiry(s.settings.TokenExpiry), link)

	return s.deliver(ctx, account, "Reset your password", body)
}

// ResetByToken sets a new password if the link token is valid, consuming it
func (s *recoveryService) ResetByToken(ctx context.Context, token, newPassword string) error {
	if err := s.requireFlow(FlowLink); err != nil {
		return err
	}
	if !utils.ValidatePassword(newPassword) {
		return fmt.Errorf("%s: %w", passwordPolicyMessage, ErrInvalidInput)
	}
	if token == "" {
		s.metrics.consumed(ctx, FlowLink, "rejected")
		return ErrInvalidOrExpired
	}

	passwordHash, err := utils.HashPassword(newPassword, s.settings.BCryptCost)
	if err != nil {
		return err
	}

	if err := s.accountRepo.ConsumeResetToken(ctx, utils.HashToken(token), passwordHash, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.consumed(ctx, FlowLink, "rejected")
			return ErrInvalidOrExpired
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	s.metrics.consumed(ctx, FlowLink, "accepted")
	s.logger.Info("password reset with link token")
	return nil
}

// lookup applies the throttle and resolves the account.
// A nil account with a nil error means the address is unknown and the caller should report success.
func (s *recoveryService) lookup(ctx context.Context, email string) (*domain.Account, error) {
	email = utils.SanitizeEmail(email)
	if !utils.ValidateEmail(email) {
		return nil, fmt.Errorf("invalid email format: %w", ErrInvalidInput)
	}

	if err := s.throttle.Allow(ctx, email); err != nil {
		if errors.Is(err, ErrTooManyRequests) {
			return nil, err
		}
		s.logger.Warn("recovery throttle unavailable", zap.Error(err))
	}

	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
		if s.settings.RevealUnknownEmail {
			return nil, fmt.Errorf("no account with this email: %w", ErrNotFound)
		}
		s.logger.Debug("recovery requested for unknown email")
		return nil, nil
	}

	return account, nil
}

func (s *recoveryService) deliver(ctx context.Context, account *domain.Account, subject, body string) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.settings.SendTimeout)
	defer cancel()

	if err := s.notifier.Send(sendCtx, account.Email, subject, body); err != nil {
		s.logger.Warn("recovery notification failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrNotificationUnavailable, err)
	}

	return nil
}

func resetLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid reset url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func formatExpiry(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}
