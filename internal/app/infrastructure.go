package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prperemyshlev/donation-service/internal/config"
	"github.com/prperemyshlev/donation-service/internal/identity"
	"github.com/prperemyshlev/donation-service/internal/payment"
	"github.com/prperemyshlev/donation-service/internal/repository"
	"github.com/prperemyshlev/donation-service/internal/service"
	"github.com/prperemyshlev/donation-service/pkg/database"
	"github.com/prperemyshlev/donation-service/pkg/mailer"
	"github.com/prperemyshlev/donation-service/pkg/observability"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const serviceName = "donation-service"

type Infrastructure interface {
	Postgres() *database.Postgres
	Redis() *database.Redis
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() *metric.MeterProvider
	Gateway() service.PaymentGateway
	Notifier() service.Notifier
	Verifier() service.IdentityVerifier

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	postgres       *database.Postgres
	redis          *database.Redis
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
	gateway        service.PaymentGateway
	notifier       service.Notifier
	verifier       service.IdentityVerifier
}

var _ Infrastructure = &infrastructure{}

// NewInfrastructure creates every process-wide client. Clients opened before a failure are closed again.
func NewInfrastructure(ctx context.Context, cfg config.Config) (_ *infrastructure, err error) {
	i := &infrastructure{}
	defer func() {
		if err != nil {
			i.closeClients()
		}
	}()

	i.logger, err = observability.InitLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	i.postgres, err = database.NewPostgres(ctx, cfg.Postgres.DSN(), database.PoolSettings{
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if cfg.Postgres.AutoMigrate {
		if err = repository.Migrate(i.postgres.DB); err != nil {
			return nil, err
		}
		i.logger.Info("database migrations applied")
	}

	i.redis, err = database.NewRedis(ctx, cfg.Redis.Options())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	telemetry, err := observability.InitTelemetry(serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.meterProvider = telemetry.MeterProvider
	i.metricsHandler = telemetry.Handler

	if cfg.Stripe.SecretKey == "" {
		i.logger.Warn("STRIPE_SECRET_KEY is not set, checkout requests will fail")
	}
	i.gateway = payment.NewStripeGateway(payment.Settings{
		SecretKey:         cfg.Stripe.SecretKey,
		WebhookSecret:     cfg.Stripe.WebhookSecret,
		ProductName:       cfg.Stripe.ProductName,
		Timeout:           cfg.Stripe.Timeout.Duration,
		MaxNetworkRetries: cfg.Stripe.MaxNetworkRetries,
	}, i.logger)

	if cfg.Mail.Host == "" {
		i.logger.Warn("MAIL_HOST is not set, recovery emails are only logged")
		i.notifier = mailer.NewLogMailer(i.logger)
	} else {
		i.notifier = mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	}

	i.verifier, err = identity.NewGoogleVerifier(ctx, cfg.Google.ClientID, cfg.Google.Timeout.Duration)
	if err != nil {
		return nil, err
	}

	return i, nil
}

func (i *infrastructure) closeClients() {
	if i.postgres != nil {
		_ = i.postgres.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
}

func (i *infrastructure) Postgres() *database.Postgres {
	return i.postgres
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *infrastructure) MeterProvider() *metric.MeterProvider {
	return i.meterProvider
}

func (i *infrastructure) Gateway() service.PaymentGateway {
	return i.gateway
}

func (i *infrastructure) Notifier() service.Notifier {
	return i.notifier
}

func (i *infrastructure) Verifier() service.IdentityVerifier {
	return i.verifier
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	errs := make(chan error, 3)

	go func() { errs <- i.postgres.Close() }()
	go func() { errs <- i.redis.Close() }()
	go func() { errs <- observability.Shutdown(ctx, i.meterProvider, i.logger) }()

	err := errors.Join(<-errs, <-errs, <-errs)
	// stdout/stderr sync errors are expected on some platforms
	_ = i.logger.Sync()
	return err
}
