package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prperemyshlev/donation-service/internal/config"
	"github.com/prperemyshlev/donation-service/internal/handler"
	"github.com/prperemyshlev/donation-service/internal/repository"
	"github.com/prperemyshlev/donation-service/internal/service"
	"github.com/prperemyshlev/donation-service/internal/utils"
	"github.com/prperemyshlev/donation-service/pkg/database"
	"github.com/prperemyshlev/donation-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra   Infrastructure
	config  *config.Config
	router  *gin.Engine
	server  *http.Server
	sweeper *Sweeper

	sweepWG sync.WaitGroup
}

// Services is the wired service layer shared by the HTTP surface and the CLI
type Services struct {
	Auth        service.AuthService
	Recovery    service.RecoveryService
	Donations   service.DonationService
	Reconciler  service.Reconciler
	Admin       service.AdminService
	Gateway     service.PaymentGateway
	RateLimiter *service.RateLimiter
}

// Clients are the external collaborators the services depend on
type Clients struct {
	Redis    *database.Redis
	Gateway  service.PaymentGateway
	Notifier service.Notifier
	Verifier service.IdentityVerifier
	Metrics  *service.Metrics
	Logger   *zap.Logger
}

// NewServices wires the service layer over repos and clients
func NewServices(cfg *config.Config, repos *repository.Repositories, clients Clients) *Services {
	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry.Duration)

	reconciler := service.NewReconciler(
		repos.Donation,
		repos.DonationEvent,
		clients.Gateway,
		cfg.Stripe.Timeout.Duration,
		clients.Metrics,
		clients.Logger,
	)

	throttle := service.NewOTPThrottle(
		clients.Redis,
		cfg.Recovery.ResendCooldown.Duration,
		cfg.Recovery.ThrottleWindow.Duration,
		cfg.Recovery.MaxPerWindow,
	)

	return &Services{
		Auth: service.NewAuthService(
			repos.Account,
			jwtManager,
			clients.Verifier,
			cfg.Security.BCryptCost,
			clients.Logger,
		),
		Recovery: service.NewRecoveryService(
			repos.Account,
			throttle,
			clients.Notifier,
			service.RecoverySettings{
				Flow:               cfg.Recovery.Flow,
				OTPLength:          cfg.Recovery.OTPLength,
				OTPExpiry:          cfg.Recovery.OTPExpiry.Duration,
				TokenExpiry:        cfg.Recovery.TokenExpiry.Duration,
				ResetURL:           cfg.Recovery.ResetURL,
				RevealUnknownEmail: cfg.Recovery.RevealUnknownEmail,
				SendTimeout:        cfg.Mail.SendTimeout.Duration,
				BCryptCost:         cfg.Security.BCryptCost,
			},
			clients.Metrics,
			clients.Logger,
		),
		Donations: service.NewDonationService(
			repos.Account,
			repos.Donation,
			clients.Gateway,
			reconciler,
			cfg.Stripe.Timeout.Duration,
			clients.Metrics,
			clients.Logger,
		),
		Reconciler:  reconciler,
		Admin:       service.NewAdminService(repos.Account, repos.Donation),
		Gateway:     clients.Gateway,
		RateLimiter: service.NewRateLimiter(clients.Redis),
	}
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()
	repos := repository.NewRepositories(infra.Postgres())

	metrics, err := service.NewMetrics(infra.MeterProvider().Meter(serviceName))
	if err != nil {
		return nil, err
	}

	services := NewServices(cfg, repos, Clients{
		Redis:    infra.Redis(),
		Gateway:  infra.Gateway(),
		Notifier: infra.Notifier(),
		Verifier: infra.Verifier(),
		Metrics:  metrics,
		Logger:   logger,
	})

	healthChecker := NewHealthChecker(map[string]Pinger{
		"postgres": infra.Postgres(),
		"redis":    infra.Redis(),
	})

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := NewRouter(cfg, services, healthChecker, infra.MetricsHandler(), logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	sweeper := NewSweeper(
		repos.Donation,
		services.Reconciler,
		service.NewSweepLock(infra.Redis(), instanceID()),
		SweepSettings{
			Interval: cfg.Reconcile.SweepInterval.Duration,
			MinAge:   cfg.Reconcile.SweepMinAge.Duration,
			Batch:    cfg.Reconcile.SweepBatch,
			LockTTL:  cfg.Reconcile.SweepLockTTL.Duration,
		},
		logger,
	)

	return &App{
		infra:   infra,
		config:  cfg,
		router:  router,
		server:  srv,
		sweeper: sweeper,
	}, nil
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return host + ":" + uuid.NewString()
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// NewRouter builds the HTTP surface over services
func NewRouter(
	cfg *config.Config,
	services *Services,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	authHandler := handler.NewAuthHandler(services.Auth, logger)
	resetHandler := handler.NewPasswordResetHandler(services.Recovery, logger)
	donationHandler := handler.NewDonationHandler(services.Donations, logger)
	userHandler := handler.NewUserHandler(services.Auth, services.Donations, logger)
	adminHandler := handler.NewAdminHandler(services.Admin, logger)
	webhookHandler := handler.NewWebhookHandler(services.Gateway, services.Reconciler, logger)

	rateLimit := handler.RateLimitMiddleware(
		services.RateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.RouteIPKey,
		logger,
	)
	authenticated := handler.AuthMiddleware(services.Auth)

	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", rateLimit, authHandler.Register)
			auth.POST("/login", rateLimit, authHandler.Login)
			auth.POST("/google-login", rateLimit, authHandler.GoogleLogin)
			auth.GET("/me", authenticated, authHandler.GetMe)
		}

		reset := api.Group("/password-reset", rateLimit)
		{
			reset.POST("/forgot-password", resetHandler.ForgotPassword)
			reset.POST("/resend-otp", resetHandler.ResendOTP)
			reset.POST("/verify-otp", resetHandler.VerifyOTP)
			reset.POST("/reset-password", resetHandler.ResetPassword)
		}

		donate := api.Group("/donate", authenticated, handler.ViewerMiddleware(services.Auth, logger))
		{
			donate.POST("/initialize", donationHandler.Initialize)
			donate.GET("/verify/:session_ref", donationHandler.Verify)
			donate.GET("/:id", donationHandler.Get)
		}

		api.GET("/user/profile", authenticated, userHandler.Profile)
		api.GET("/admin/dashboard", authenticated, handler.AdminMiddleware(services.Auth, logger), adminHandler.Dashboard)
		api.POST("/webhook/stripe", webhookHandler.Stripe)
	}

	return router
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	a.sweepWG.Add(1)
	go func() {
		defer a.sweepWG.Done()
		a.sweeper.Run(sweepCtx)
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	stopSweep()
	a.sweepWG.Wait()

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("HTTP server shutdown failed", zap.Error(err))
		return errors.Join(err, a.infra.Shutdown(ctx))
	}

	// clients close only after in-flight requests have drained
	if err := a.infra.Shutdown(ctx); err != nil {
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
