package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/repository"
	"github.com/prperemyshlev/donation-service/pkg/retry"
	"go.uber.org/zap"
)

// reconciler implements Reconciler interface
type reconciler struct {
	donationRepo repository.DonationRepository
	eventRepo    repository.DonationEventRepository
	gateway      PaymentGateway
	timeout      time.Duration
	metrics      *Metrics
	logger       *zap.Logger
}

// NewReconciler creates a reconciler that queries gateway with the given per-call timeout
func NewReconciler(
	donationRepo repository.DonationRepository,
	eventRepo repository.DonationEventRepository,
	gateway PaymentGateway,
	timeout time.Duration,
	metrics *Metrics,
	logger *zap.Logger,
) Reconciler {
	return &reconciler{
		donationRepo: donationRepo,
		eventRepo:    eventRepo,
		gateway:      gateway,
		timeout:      timeout,
		metrics:      metrics,
		logger:       logger,
	}
}

// Reconcile performs one idempotent reconciliation step
func (r *reconciler) Reconcile(ctx context.Context, sessionRef string, source domain.ReconcileSource) (*ReconciliationResult, error) {
	donation, err := r.donationRepo.GetBySessionRef(ctx, sessionRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("donation not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get donation: %w", err)
	}

	// terminal records are final, the gateway is not consulted again
	if donation.Status.IsTerminal() {
		return toResult(donation, donation.Status.GatewayStatus()), nil
	}

	verdict, reported := r.query(ctx, sessionRef)
	target := verdict.DonationStatus()

	if target == donation.Status {
		// no status write, but the sweep should move on to other open donations
		if err := r.donationRepo.MarkChecked(ctx, sessionRef); err != nil {
			r.logger.Warn("failed to mark donation checked",
				zap.String("session_ref", sessionRef),
				zap.Error(err),
			)
		}
		r.metrics.reconciled(ctx, string(donation.Status), string(source))
		return toResult(donation, reported), nil
	}

	updated, err := r.donationRepo.TransitionStatus(ctx, sessionRef, target)
	if err != nil {
		if !errors.Is(err, repository.ErrTerminalState) {
			return nil, fmt.Errorf("failed to update donation status: %w", err)
		}

		// a concurrent step reached a terminal state first; its result stands
		current, err := r.donationRepo.GetBySessionRef(ctx, sessionRef)
		if err != nil {
			return nil, fmt.Errorf("failed to reload donation: %w", err)
		}
		r.metrics.reconciled(ctx, string(current.Status), string(source))
		return toResult(current, current.Status.GatewayStatus()), nil
	}

	event := &domain.DonationEvent{
		DonationID:     updated.ID,
		SessionRef:     sessionRef,
		GatewayStatus:  reported,
		PreviousStatus: donation.Status,
		NewStatus:      updated.Status,
		Source:         source,
	}
	if err := r.eventRepo.Create(ctx, event); err != nil {
		r.logger.Error("failed to record donation event",
			zap.String("session_ref", sessionRef),
			zap.Error(err),
		)
	}

	r.logger.Info("donation status changed",
		zap.String("donation_id", updated.ID),
		zap.String("session_ref", sessionRef),
		zap.String("from", string(donation.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("source", string(source)),
	)
	r.metrics.reconciled(ctx, string(updated.Status), string(source))

	return toResult(updated, reported), nil
}

// query asks the gateway for a verdict. Failures count as no verdict yet and are reported as unknown.
func (r *reconciler) query(ctx context.Context, sessionRef string) (verdict, reported domain.GatewayStatus) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	status, err := r.gateway.SessionStatus(ctx, sessionRef)
	if err != nil {
		r.logger.Warn("gateway status unavailable",
			zap.String("session_ref", sessionRef),
			zap.Error(err),
		)
		return domain.GatewayNoStatusYet, domain.GatewayUnknown
	}

	return status, status
}

func toResult(d *domain.Donation, gatewayStatus domain.GatewayStatus) *ReconciliationResult {
	return &ReconciliationResult{
		DonationID:    d.ID,
		Status:        d.Status,
		Amount:        d.Amount,
		Currency:      d.Currency,
		GatewayStatus: gatewayStatus,
	}
}

// WaitForSettlement repeats Reconcile under policy until the donation is terminal.
// On exhaustion it returns the last result together with retry.ErrAttemptsExhausted.
func WaitForSettlement(ctx context.Context, r Reconciler, sessionRef string, source domain.ReconcileSource, policy retry.Policy) (*ReconciliationResult, error) {
	return retry.Poll(ctx, policy,
		func(ctx context.Context) (*ReconciliationResult, error) {
			return r.Reconcile(ctx, sessionRef, source)
		},
		func(res *ReconciliationResult) bool {
			return res.Status.IsTerminal()
		},
	)
}
