// Package payment adapts Stripe Checkout to the service payment gateway contract.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/service"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Settings configures the Stripe client
type Settings struct {
	SecretKey         string
	WebhookSecret     string
	ProductName       string
	Timeout           time.Duration
	MaxNetworkRetries int64
	// APIURL overrides the Stripe API base URL
	APIURL string
}

// StripeGateway implements service.PaymentGateway on Stripe Checkout Sessions
type StripeGateway struct {
	client        *client.API
	webhookSecret string
	productName   string
}

var _ service.PaymentGateway = (*StripeGateway)(nil)

// NewStripeGateway builds a dedicated Stripe client that logs through logger
func NewStripeGateway(s Settings, logger *zap.Logger) *StripeGateway {
	config := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: s.Timeout},
		MaxNetworkRetries: stripe.Int64(s.MaxNetworkRetries),
		LeveledLogger:     logger.Named("stripe").Sugar(),
	}
	if s.APIURL != "" {
		config.URL = stripe.String(s.APIURL)
	}

	sc := &client.API{}
	sc.Init(s.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, config),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, config),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, config),
	})

	return &StripeGateway{
		client:        sc,
		webhookSecret: s.WebhookSecret,
		productName:   s.ProductName,
	}
}

// CreateSession opens a one-item payment-mode checkout session
func (g *StripeGateway) CreateSession(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(g.productName),
					},
					UnitAmount: stripe.Int64(req.Currency.ToMinor(req.Amount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &service.CheckoutSession{SessionRef: sess.ID, URL: sess.URL}, nil
}

// SessionStatus fetches the session with its payment intent and maps it to a verdict
func (g *StripeGateway) SessionStatus(ctx context.Context, sessionRef string) (domain.GatewayStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	sess, err := g.client.CheckoutSessions.Get(sessionRef, params)
	if err != nil {
		return "", fmt.Errorf("failed to get checkout session %s: %w", sessionRef, err)
	}

	return statusOf(sess), nil
}

func statusOf(sess *stripe.CheckoutSession) domain.GatewayStatus {
	switch {
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		return domain.GatewaySessionExpired
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return domain.GatewayPaid
	case sess.Status == stripe.CheckoutSessionStatusComplete && paymentFailed(sess.PaymentIntent):
		return domain.GatewayPaymentFailed
	}
	return domain.GatewayNoStatusYet
}

// async methods return to requires_payment_method with an error once they fail
func paymentFailed(pi *stripe.PaymentIntent) bool {
	if pi == nil {
		return false
	}
	return pi.Status == stripe.PaymentIntentStatusCanceled ||
		(pi.Status == stripe.PaymentIntentStatusRequiresPaymentMethod && pi.LastPaymentError != nil)
}

// ParseWebhook verifies the Stripe-Signature header and returns the session ref of checkout events
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (string, bool, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	switch event.Type {
	case "checkout.session.completed",
		"checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed",
		"checkout.session.expired":
	default:
		return "", false, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return "", false, fmt.Errorf("failed to decode checkout session: %w", err)
	}

	return sess.ID, sess.ID != "", nil
}
