// Package testutil holds in-process fakes for the external collaborators of the services.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/service"
	"github.com/prperemyshlev/donation-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// WebhookSignature is the only signature FakeGateway accepts
const WebhookSignature = "t=1,v1=valid"

// FakeGateway is a scripted PaymentGateway
type FakeGateway struct {
	mu sync.Mutex

	CreateErr error
	StatusErr error

	created     []service.CheckoutRequest
	scripts     map[string][]domain.GatewayStatus
	statusCalls map[string]int
	next        int
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		scripts:     make(map[string][]domain.GatewayStatus),
		statusCalls: make(map[string]int),
	}
}

// Script sets the verdicts returned for ref on successive queries; the last one repeats
func (g *FakeGateway) Script(ref string, statuses ...domain.GatewayStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scripts[ref] = statuses
}

func (g *FakeGateway) CreateSession(_ context.Context, req service.CheckoutRequest) (*service.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.CreateErr != nil {
		return nil, g.CreateErr
	}

	g.next++
	g.created = append(g.created, req)
	ref := fmt.Sprintf("cs_test_%d", g.next)
	return &service.CheckoutSession{SessionRef: ref, URL: "https://checkout.test/pay/" + ref}, nil
}

func (g *FakeGateway) SessionStatus(_ context.Context, ref string) (domain.GatewayStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.statusCalls[ref]++
	if g.StatusErr != nil {
		return "", g.StatusErr
	}

	script := g.scripts[ref]
	if len(script) == 0 {
		return domain.GatewayNoStatusYet, nil
	}
	idx := g.statusCalls[ref] - 1
	if idx >= len(script) {
		idx = len(script) - 1
	}
	return script[idx], nil
}

// ParseWebhook treats the payload as the session ref
func (g *FakeGateway) ParseWebhook(payload []byte, signature string) (string, bool, error) {
	if signature != WebhookSignature {
		return "", false, errors.New("invalid signature")
	}
	ref := string(payload)
	return ref, ref != "", nil
}

// CreateCalls returns the checkout requests seen so far
func (g *FakeGateway) CreateCalls() []service.CheckoutRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]service.CheckoutRequest(nil), g.created...)
}

// StatusCalls returns how often ref was queried
func (g *FakeGateway) StatusCalls(ref string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusCalls[ref]
}

// Message is a notification captured by FakeNotifier
type Message struct {
	To      string
	Subject string
	Body    string
}

// FakeNotifier records messages instead of sending them
type FakeNotifier struct {
	mu       sync.Mutex
	Err      error
	messages []Message
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

func (n *FakeNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.Err != nil {
		return n.Err
	}
	n.messages = append(n.messages, Message{To: to, Subject: subject, Body: body})
	return nil
}

func (n *FakeNotifier) Messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.messages...)
}

var tokenPattern = regexp.MustCompile(`token=([0-9a-f]+)`)

// LastToken extracts the reset token from the most recent message
func (n *FakeNotifier) LastToken() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.messages) == 0 {
		return ""
	}
	m := tokenPattern.FindStringSubmatch(n.messages[len(n.messages)-1].Body)
	if m == nil {
		return ""
	}
	return m[1]
}

// FakeVerifier accepts only the ID tokens it was given
type FakeVerifier struct {
	Identities map[string]*domain.ExternalIdentity
}

func NewFakeVerifier() *FakeVerifier {
	return &FakeVerifier{Identities: make(map[string]*domain.ExternalIdentity)}
}

func (v *FakeVerifier) Verify(_ context.Context, idToken string) (*domain.ExternalIdentity, error) {
	identity, ok := v.Identities[idToken]
	if !ok {
		return nil, errors.New("token rejected")
	}
	return identity, nil
}

// AllowAll is an OTPThrottle that never throttles
type AllowAll struct{}

func (AllowAll) Allow(context.Context, string) error { return nil }

// NewRedis starts a miniredis server for the lifetime of t
func NewRedis(t *testing.T) (*database.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &database.Redis{Client: client}, mr
}

var (
	_ service.PaymentGateway   = (*FakeGateway)(nil)
	_ service.Notifier         = (*FakeNotifier)(nil)
	_ service.IdentityVerifier = (*FakeVerifier)(nil)
	_ service.OTPThrottle      = AllowAll{}
)
