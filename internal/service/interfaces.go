package service

import (
	"context"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/dto"
	"github.com/shopspring/decimal"
)

// AuthService defines methods for authentication operations
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	GoogleLogin(ctx context.Context, idToken string) (*dto.AuthResponse, error)
	GetUser(ctx context.Context, userID string) (*dto.UserResponse, error)
	ValidateToken(ctx context.Context, token string) (*domain.SessionClaims, error)
	// GrantAdmin returns ErrForbidden unless the account holds the admin role
	GrantAdmin(ctx context.Context, accountID string) (AdminGrant, error)
}

// RecoveryService defines the password recovery operations
type RecoveryService interface {
	Flow() string
	RequestOTP(ctx context.Context, email string) error
	ResendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
	ConsumeOTP(ctx context.Context, email, code, newPassword string) error
	RequestResetLink(ctx context.Context, email string) error
	ResetByToken(ctx context.Context, token, newPassword string) error
}

// DonationService defines the donation ledger operations
type DonationService interface {
	InitializeDonation(ctx context.Context, accountID string, amount decimal.Decimal, currency, returnOrigin string) (*InitializeResult, error)
	GetStatus(ctx context.Context, viewer Viewer, recordID string) (*domain.Donation, error)
	Verify(ctx context.Context, viewer Viewer, sessionRef string) (*ReconciliationResult, error)
	History(ctx context.Context, accountID string) (*DonationHistory, error)
}

// Reconciler advances a donation toward a terminal state by one gateway query
type Reconciler interface {
	Reconcile(ctx context.Context, sessionRef string, source domain.ReconcileSource) (*ReconciliationResult, error)
}

// AdminService defines admin-only read operations
type AdminService interface {
	Dashboard(ctx context.Context, grant AdminGrant) (*dto.DashboardResponse, error)
}

// PaymentGateway is the hosted checkout provider
type PaymentGateway interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	SessionStatus(ctx context.Context, sessionRef string) (domain.GatewayStatus, error)
	// ParseWebhook verifies the payload signature and extracts the session ref.
	// ok is false for authentic events that carry no checkout outcome.
	ParseWebhook(payload []byte, signature string) (sessionRef string, ok bool, err error)
}

// Notifier delivers messages to account holders
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// IdentityVerifier validates external identity assertions
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*domain.ExternalIdentity, error)
}

// CheckoutRequest describes a checkout session to open
type CheckoutRequest struct {
	Amount     decimal.Decimal
	Currency   domain.Currency
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// CheckoutSession is a session opened at the gateway
type CheckoutSession struct {
	SessionRef string
	URL        string
}

// InitializeResult is returned after a donation record is created
type InitializeResult struct {
	DonationID  string
	SessionRef  string
	CheckoutURL string
}

// ReconciliationResult reports the stored status after a reconciliation step
type ReconciliationResult struct {
	DonationID    string
	Status        domain.DonationStatus
	Amount        decimal.Decimal
	Currency      domain.Currency
	GatewayStatus domain.GatewayStatus
}

// DonationHistory is a donor's ledger view
type DonationHistory struct {
	Donations    []*domain.Donation
	TotalDonated map[domain.Currency]decimal.Decimal
}
