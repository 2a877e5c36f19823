package dto

import "github.com/shopspring/decimal"

// AuthResponse represents an authentication response
type AuthResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int          `json:"expires_in"`
	User      UserResponse `json:"user"`
}

// UserResponse represents a user response
type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// InitializeDonationResponse points the client at the hosted checkout
type InitializeDonationResponse struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
	DonationID  string `json:"donation_id"`
}

// VerifyDonationResponse is the outcome of one reconciliation step
type VerifyDonationResponse struct {
	DonationID    string          `json:"donation_id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	GatewayStatus string          `json:"gateway_status"`
}

// DonationResponse represents a stored donation
type DonationResponse struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	SessionRef string          `json:"session_ref"`
	Status     string          `json:"status"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

// DonationHistoryResponse lists a donor's donations, newest first
type DonationHistoryResponse struct {
	Donations    []DonationResponse         `json:"donations"`
	TotalDonated map[string]decimal.Decimal `json:"total_donated"`
}

// ProfileResponse is the current user together with their donation history
type ProfileResponse struct {
	User            UserResponse            `json:"user"`
	DonationHistory DonationHistoryResponse `json:"donation_history"`
}

// DashboardResponse holds admin statistics
type DashboardResponse struct {
	TotalUsers     int64                      `json:"total_users"`
	TotalDonations int64                      `json:"total_donations"`
	TotalAmount    map[string]decimal.Decimal `json:"total_amount"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
