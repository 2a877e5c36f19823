package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prperemyshlev/donation-service/internal/config"
	"github.com/prperemyshlev/donation-service/internal/payment"
	"github.com/prperemyshlev/donation-service/internal/repository"
	"github.com/prperemyshlev/donation-service/pkg/database"
	"github.com/prperemyshlev/donation-service/pkg/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "donorctl",
		Short:         "Operator tooling for the donation service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(sweepCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env holds the clients a command needs. Close releases whatever was opened.
type env struct {
	cfg      *config.Config
	logger   *zap.Logger
	postgres *database.Postgres
	redis    *database.Redis
}

func openEnv(ctx context.Context, withRedis bool) (*env, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := observability.InitLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	e := &env{cfg: cfg, logger: logger}

	e.postgres, err = database.NewPostgres(ctx, cfg.Postgres.DSN(), database.PoolSettings{
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if withRedis {
		e.redis, err = database.NewRedis(ctx, cfg.Redis.Options())
		if err != nil {
			_ = e.postgres.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}

	return e, nil
}

func (e *env) repositories() *repository.Repositories {
	return repository.NewRepositories(e.postgres)
}

func (e *env) gateway() *payment.StripeGateway {
	return payment.NewStripeGateway(payment.Settings{
		SecretKey:         e.cfg.Stripe.SecretKey,
		WebhookSecret:     e.cfg.Stripe.WebhookSecret,
		ProductName:       e.cfg.Stripe.ProductName,
		Timeout:           e.cfg.Stripe.Timeout.Duration,
		MaxNetworkRetries: e.cfg.Stripe.MaxNetworkRetries,
	}, e.logger)
}

func (e *env) Close() {
	_ = e.postgres.Close()
	if e.redis != nil {
		_ = e.redis.Close()
	}
	_ = e.logger.Sync()
}
