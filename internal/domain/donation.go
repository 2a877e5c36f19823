package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationStatus is the lifecycle state of a donation
type DonationStatus string

const (
	DonationInitiated DonationStatus = "initiated"
	DonationPending   DonationStatus = "pending"
	DonationSuccess   DonationStatus = "success"
	DonationFailed    DonationStatus = "failed"
	DonationExpired   DonationStatus = "expired"
)

// TerminalStatuses lists the states a donation never leaves
var TerminalStatuses = []DonationStatus{DonationSuccess, DonationFailed, DonationExpired}

// IsTerminal reports whether s is final
func (s DonationStatus) IsTerminal() bool {
	switch s {
	case DonationSuccess, DonationFailed, DonationExpired:
		return true
	}
	return false
}

// GatewayStatus is the verdict reported by the payment gateway for a checkout session
type GatewayStatus string

const (
	GatewayNoStatusYet    GatewayStatus = "no_status_yet"
	GatewayPaid           GatewayStatus = "paid"
	GatewayPaymentFailed  GatewayStatus = "payment_failed"
	GatewaySessionExpired GatewayStatus = "session_expired"

	// GatewayUnknown marks a verdict that could not be obtained
	GatewayUnknown GatewayStatus = "unknown"
)

// DonationStatus maps a gateway verdict onto the ledger status it implies
func (g GatewayStatus) DonationStatus() DonationStatus {
	switch g {
	case GatewayPaid:
		return DonationSuccess
	case GatewayPaymentFailed:
		return DonationFailed
	case GatewaySessionExpired:
		return DonationExpired
	default:
		return DonationPending
	}
}

// GatewayStatus returns the verdict that produces s, or GatewayNoStatusYet for open states
func (s DonationStatus) GatewayStatus() GatewayStatus {
	switch s {
	case DonationSuccess:
		return GatewayPaid
	case DonationFailed:
		return GatewayPaymentFailed
	case DonationExpired:
		return GatewaySessionExpired
	default:
		return GatewayNoStatusYet
	}
}

// Donation represents a single donation attempt
type Donation struct {
	ID         string          `json:"id" db:"id"`
	UserID     string          `json:"user_id" db:"user_id"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Currency   Currency        `json:"currency" db:"currency"`
	SessionRef string          `json:"session_ref" db:"session_ref"`
	Status     DonationStatus  `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
	// LastCheckedAt is when reconciliation last asked the gateway about this donation
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty" db:"last_checked_at"`
}

// ReconcileSource names what triggered a reconciliation step
type ReconcileSource string

const (
	SourceVerify  ReconcileSource = "verify"
	SourceWebhook ReconcileSource = "webhook"
	SourceSweep   ReconcileSource = "sweep"
	SourceCLI     ReconcileSource = "cli"
)

// DonationEvent is an audit entry written for every persisted status transition
type DonationEvent struct {
	ID             string          `json:"id" db:"id"`
	DonationID     string          `json:"donation_id" db:"donation_id"`
	SessionRef     string          `json:"session_ref" db:"session_ref"`
	GatewayStatus  GatewayStatus   `json:"gateway_status" db:"gateway_status"`
	PreviousStatus DonationStatus  `json:"previous_status" db:"previous_status"`
	NewStatus      DonationStatus  `json:"new_status" db:"new_status"`
	Source         ReconcileSource `json:"source" db:"source"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// DonationStats aggregates the ledger for the admin dashboard.
// TotalAmount sums successful donations per currency.
type DonationStats struct {
	TotalDonations int64                        `json:"total_donations"`
	TotalAmount    map[Currency]decimal.Decimal `json:"total_amount"`
}
