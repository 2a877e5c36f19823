package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/prperemyshlev/donation-service/internal/app"
	"github.com/prperemyshlev/donation-service/internal/service"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reconciliation sweep over stale donations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.Close()

			repos := e.repositories()
			reconciler := service.NewReconciler(repos.Donation, repos.DonationEvent, e.gateway(),
				e.cfg.Stripe.Timeout.Duration, service.NoopMetrics(), e.logger)

			sweeper := app.NewSweeper(repos.Donation, reconciler,
				service.NewSweepLock(e.redis, "donorctl:"+uuid.NewString()),
				app.SweepSettings{
					Interval: e.cfg.Reconcile.SweepInterval.Duration,
					MinAge:   e.cfg.Reconcile.SweepMinAge.Duration,
					Batch:    e.cfg.Reconcile.SweepBatch,
					LockTTL:  e.cfg.Reconcile.SweepLockTTL.Duration,
				}, e.logger)

			n, err := sweeper.SweepOnce(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "reconciled %d donations\n", n)
			return nil
		},
	}
}
