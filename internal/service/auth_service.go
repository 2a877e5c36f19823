package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/dto"
	"github.com/prperemyshlev/donation-service/internal/repository"
	"github.com/prperemyshlev/donation-service/internal/utils"
	"go.uber.org/zap"
)

const passwordPolicyMessage = "password must be at least 8 characters long and contain uppercase, lowercase, and number"

// authService implements AuthService interface
type authService struct {
	accountRepo repository.AccountRepository
	jwtManager  *utils.JWTManager
	verifier    IdentityVerifier
	bcryptCost  int
	logger      *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	accountRepo repository.AccountRepository,
	jwtManager *utils.JWTManager,
	verifier IdentityVerifier,
	bcryptCost int,
	logger *zap.Logger,
) AuthService {
	return &authService{
		accountRepo: accountRepo,
		jwtManager:  jwtManager,
		verifier:    verifier,
		bcryptCost:  bcryptCost,
		logger:      logger,
	}
}

// Register registers a new donor account
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := utils.SanitizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)

	// Validate email format
	if !utils.ValidateEmail(email) {
		return nil, fmt.Errorf("invalid email format: %w", ErrInvalidInput)
	}

	if name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrInvalidInput)
	}

	// Validate password
	if !utils.ValidatePassword(req.Password) {
		return nil, fmt.Errorf("%s: %w", passwordPolicyMessage, ErrInvalidInput)
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &domain.Account{
		Name:         name,
		Email:        email,
		PasswordHash: &passwordHash,
		Role:         domain.RoleUser,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, fmt.Errorf("email already registered: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("account registered", zap.String("account_id", account.ID))

	return s.issue(account)
}

// Login authenticates an account by email and password
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	account, err := s.accountRepo.GetByEmail(ctx, utils.SanitizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("incorrect email or password: %w", ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !utils.VerifyPassword(account.PasswordHash, req.Password) {
		return nil, fmt.Errorf("incorrect email or password: %w", ErrUnauthorized)
	}

	return s.issue(account)
}

// GoogleLogin signs in with a verified Google identity, creating or linking the account as needed
func (s *authService) GoogleLogin(ctx context.Context, idToken string) (*dto.AuthResponse, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		s.logger.Warn("google identity rejected", zap.Error(err))
		return nil, fmt.Errorf("invalid google token: %w", ErrUnauthorized)
	}

	account, err := s.accountRepo.GetByGoogleID(ctx, identity.Subject)
	if err == nil {
		return s.issue(account)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get account by google id: %w", err)
	}

	email := utils.SanitizeEmail(identity.Email)
	if email == "" {
		return nil, fmt.Errorf("google identity has no email: %w", ErrUnauthorized)
	}

	existing, err := s.accountRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		// an unverified address must not take over an existing account
		if !identity.EmailVerified {
			return nil, fmt.Errorf("google email is not verified: %w", ErrUnauthorized)
		}
		// the account already belongs to a different google identity
		if existing.GoogleID != nil && *existing.GoogleID != identity.Subject {
			return nil, fmt.Errorf("account is linked to another google identity: %w", ErrConflict)
		}
		if err := s.accountRepo.LinkGoogleID(ctx, existing.ID, identity.Subject); err != nil {
			if errors.Is(err, repository.ErrDuplicateExternalID) {
				return nil, fmt.Errorf("google identity already linked: %w", ErrConflict)
			}
			return nil, fmt.Errorf("failed to link google id: %w", err)
		}
		s.logger.Info("google identity linked", zap.String("account_id", existing.ID))
		return s.issue(existing)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	subject := identity.Subject
	account = &domain.Account{
		Name:     name,
		Email:    email,
		GoogleID: &subject,
		Role:     domain.RoleUser,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrDuplicateExternalID) {
			return nil, fmt.Errorf("account already exists: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("account registered via google", zap.String("account_id", account.ID))

	return s.issue(account)
}

// GetUser gets account information
func (s *authService) GetUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	account, err := s.accountRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	response := toUserResponse(account)
	return &response, nil
}

// ValidateToken validates a session token
func (s *authService) ValidateToken(_ context.Context, token string) (*domain.SessionClaims, error) {
	claims, err := s.jwtManager.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	return claims, nil
}

// GrantAdmin mints an admin capability for accountID
func (s *authService) GrantAdmin(ctx context.Context, accountID string) (AdminGrant, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AdminGrant{}, fmt.Errorf("account not found: %w", ErrUnauthorized)
		}
		return AdminGrant{}, fmt.Errorf("failed to get account: %w", err)
	}

	if !account.IsAdmin() {
		return AdminGrant{}, fmt.Errorf("admin access required: %w", ErrForbidden)
	}

	return AdminGrant{accountID: account.ID}, nil
}

func (s *authService) issue(account *domain.Account) (*dto.AuthResponse, error) {
	token, err := s.jwtManager.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &dto.AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: s.jwtManager.ExpiresIn(),
		User:      toUserResponse(account),
	}, nil
}

func toUserResponse(account *domain.Account) dto.UserResponse {
	return dto.UserResponse{
		ID:        account.ID,
		Name:      account.Name,
		Email:     account.Email,
		Role:      string(account.Role),
		CreatedAt: account.CreatedAt.Format(time.RFC3339),
	}
}
