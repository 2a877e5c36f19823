package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/service"
	"github.com/prperemyshlev/donation-service/pkg/retry"
	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	var (
		wait     bool
		interval time.Duration
		attempts int
	)

	cmd := &cobra.Command{
		Use:   "reconcile <session-ref>",
		Short: "Reconcile one donation against the payment gateway",
		Long: `Reconcile one donation against the payment gateway.

Without --wait a single step runs. With --wait the step repeats until the
donation is terminal or the attempt budget is used up.

Examples:
  donorctl reconcile cs_test_a1b2c3
  donorctl reconcile cs_test_a1b2c3 --wait --interval 5s --attempts 12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			repos := e.repositories()
			reconciler := service.NewReconciler(repos.Donation, repos.DonationEvent, e.gateway(),
				e.cfg.Stripe.Timeout.Duration, service.NoopMetrics(), e.logger)

			ref := args[0]
			if !wait {
				res, err := reconciler.Reconcile(cmd.Context(), ref, domain.SourceCLI)
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), res)
				return nil
			}

			if !cmd.Flags().Changed("interval") {
				interval = e.cfg.Reconcile.PollInterval.Duration
			}
			if !cmd.Flags().Changed("attempts") {
				attempts = e.cfg.Reconcile.PollAttempts
			}

			res, err := service.WaitForSettlement(cmd.Context(), reconciler, ref, domain.SourceCLI,
				retry.Policy{Interval: interval, MaxAttempts: attempts})
			if errors.Is(err, retry.ErrAttemptsExhausted) {
				printResult(cmd.OutOrStdout(), res)
				fmt.Fprintf(cmd.OutOrStdout(), "still processing after %d attempts\n", attempts)
				return nil
			}
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the donation reaches a final state")
	cmd.Flags().DurationVar(&interval, "interval", 3*time.Second, "delay between polls (defaults to RECONCILE_POLL_INTERVAL)")
	cmd.Flags().IntVar(&attempts, "attempts", 10, "maximum polls (defaults to RECONCILE_POLL_ATTEMPTS)")

	return cmd
}

func printResult(w io.Writer, res *service.ReconciliationResult) {
	if res == nil {
		return
	}
	fmt.Fprintf(w, "donation %s: %s (gateway %s) %s %s\n",
		res.DonationID, res.Status, res.GatewayStatus, res.Amount.String(), res.Currency)
}
