package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

func newTestGateway(t *testing.T, handler http.HandlerFunc) *StripeGateway {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewStripeGateway(Settings{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		ProductName:   "Donation",
		Timeout:       2 * time.Second,
		APIURL:        srv.URL,
	}, zap.NewNop())
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		sess *stripe.CheckoutSession
		want domain.GatewayStatus
	}{
		{
			name: "open",
			sess: &stripe.CheckoutSession{Status: stripe.CheckoutSessionStatusOpen, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid},
			want: domain.GatewayNoStatusYet,
		},
		{
			name: "paid",
			sess: &stripe.CheckoutSession{Status: stripe.CheckoutSessionStatusComplete, PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid},
			want: domain.GatewayPaid,
		},
		{
			name: "no payment required",
			sess: &stripe.CheckoutSession{Status: stripe.CheckoutSessionStatusComplete, PaymentStatus: stripe.CheckoutSessionPaymentStatusNoPaymentRequired},
			want: domain.GatewayPaid,
		},
		{
			name: "expired",
			sess: &stripe.CheckoutSession{Status: stripe.CheckoutSessionStatusExpired, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid},
			want: domain.GatewaySessionExpired,
		},
		{
			name: "async processing",
			sess: &stripe.CheckoutSession{
				Status:        stripe.CheckoutSessionStatusComplete,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
				PaymentIntent: &stripe.PaymentIntent{Status: stripe.PaymentIntentStatusProcessing},
			},
			want: domain.GatewayNoStatusYet,
		},
		{
			name: "async failed",
			sess: &stripe.CheckoutSession{
				Status:        stripe.CheckoutSessionStatusComplete,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
				PaymentIntent: &stripe.PaymentIntent{
					Status:           stripe.PaymentIntentStatusRequiresPaymentMethod,
					LastPaymentError: &stripe.Error{Code: stripe.ErrorCodeCardDeclined},
				},
			},
			want: domain.GatewayPaymentFailed,
		},
		{
			name: "canceled",
			sess: &stripe.CheckoutSession{
				Status:        stripe.CheckoutSessionStatusComplete,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
				PaymentIntent: &stripe.PaymentIntent{Status: stripe.PaymentIntentStatusCanceled},
			},
			want: domain.GatewayPaymentFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.sess))
		})
	}
}

func TestCreateSession(t *testing.T) {
	var form map[string]string
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)

		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_abc","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_abc"}`))
	})

	sess, err := g.CreateSession(context.Background(), service.CheckoutRequest{
		Amount:     decimal.RequireFromString("50.00"),
		Currency:   domain.CurrencyUSD,
		SuccessURL: "https://give.example.org/donation-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://give.example.org",
		Metadata:   map[string]string{"user_id": "donor-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_abc", sess.SessionRef)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_abc", sess.URL)

	assert.Equal(t, "payment", form["mode"])
	assert.Equal(t, "5000", form["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, "usd", form["line_items[0][price_data][currency]"])
	assert.Equal(t, "Donation", form["line_items[0][price_data][product_data][name]"])
	assert.Equal(t, "1", form["line_items[0][quantity]"])
	assert.Equal(t, "donor-1", form["metadata[user_id]"])
}

func TestCreateSessionError(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad currency"}}`))
	})

	_, err := g.CreateSession(context.Background(), service.CheckoutRequest{
		Amount:   decimal.NewFromInt(1),
		Currency: domain.CurrencyUSD,
	})
	assert.Error(t, err)
}

func TestSessionStatus(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/checkout/sessions/cs_test_abc", r.URL.Path)
		assert.Equal(t, "payment_intent", r.URL.Query().Get("expand[0]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cs_test_abc",
			"object": "checkout.session",
			"status": "complete",
			"payment_status": "paid",
			"payment_intent": {"id": "pi_1", "object": "payment_intent", "status": "succeeded"}
		}`))
	})

	status, err := g.SessionStatus(context.Background(), "cs_test_abc")
	require.NoError(t, err)
	assert.Equal(t, domain.GatewayPaid, status)
}

func signedEvent(t *testing.T, eventType, sessionID string) *webhook.SignedPayload {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"id":     "evt_1",
		"object": "event",
		"type":   eventType,
		"data": map[string]any{
			"object": map[string]any{"id": sessionID, "object": "checkout.session"},
		},
	})
	require.NoError(t, err)

	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
}

func TestParseWebhook(t *testing.T) {
	g := NewStripeGateway(Settings{WebhookSecret: testWebhookSecret}, zap.NewNop())

	for _, eventType := range []string{
		"checkout.session.completed",
		"checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed",
		"checkout.session.expired",
	} {
		t.Run(eventType, func(t *testing.T) {
			signed := signedEvent(t, eventType, "cs_test_abc")

			ref, ok, err := g.ParseWebhook(signed.Payload, signed.Header)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "cs_test_abc", ref)
		})
	}
}

func TestParseWebhookIgnoresOtherEvents(t *testing.T) {
	g := NewStripeGateway(Settings{WebhookSecret: testWebhookSecret}, zap.NewNop())
	signed := signedEvent(t, "customer.created", "cus_1")

	ref, ok, err := g.ParseWebhook(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, ref)
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	g := NewStripeGateway(Settings{WebhookSecret: testWebhookSecret}, zap.NewNop())
	signed := signedEvent(t, "checkout.session.completed", "cs_test_abc")

	_, _, err := g.ParseWebhook(signed.Payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, _, err = g.ParseWebhook([]byte(`{"tampered":true}`), signed.Header)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
