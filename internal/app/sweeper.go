package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/repository"
	"github.com/prperemyshlev/donation-service/internal/service"
	"go.uber.org/zap"
)

// SweepSettings controls the background reconciliation sweep
type SweepSettings struct {
	Interval time.Duration
	MinAge   time.Duration
	Batch    int
	LockTTL  time.Duration
}

// Sweeper periodically reconciles donations whose outcome is still open,
// so abandoned checkouts resolve without the donor returning
type Sweeper struct {
	donations  repository.DonationRepository
	reconciler service.Reconciler
	lock       *service.SweepLock
	settings   SweepSettings
	logger     *zap.Logger
	now        func() time.Time
}

func NewSweeper(
	donations repository.DonationRepository,
	reconciler service.Reconciler,
	lock *service.SweepLock,
	settings SweepSettings,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		donations:  donations,
		reconciler: reconciler,
		lock:       lock,
		settings:   settings,
		logger:     logger.Named("sweeper"),
		now:        time.Now,
	}
}

// Run sweeps every interval until ctx is cancelled.
// A non-positive interval disables the loop.
func (s *Sweeper) Run(ctx context.Context) {
	if s.settings.Interval <= 0 {
		s.logger.Warn("sweep disabled: non-positive interval", zap.Duration("interval", s.settings.Interval))
		return
	}

	ticker := time.NewTicker(s.settings.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Warn("sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce reconciles one batch of stale donations and returns how many steps succeeded.
// It does nothing when another instance holds the sweep lock.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	acquired, err := s.lock.Acquire(ctx, s.settings.LockTTL)
	if err != nil {
		return 0, err
	}
	if !acquired {
		return 0, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release sweep lock", zap.Error(err))
		}
	}()

	stale, err := s.donations.ListStale(ctx, s.now().Add(-s.settings.MinAge), s.settings.Batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale donations: %w", err)
	}

	reconciled := 0
	for _, d := range stale {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.reconciler.Reconcile(ctx, d.SessionRef, domain.SourceSweep); err != nil {
			s.logger.Warn("sweep reconcile failed", zap.String("session_ref", d.SessionRef), zap.Error(err))
			continue
		}
		reconciled++
	}

	if len(stale) > 0 {
		s.logger.Info("sweep finished", zap.Int("stale", len(stale)), zap.Int("reconciled", reconciled))
	}
	return reconciled, nil
}
