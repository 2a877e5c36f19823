package config

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/prperemyshlev/donation-service/pkg/database"
	"github.com/sethvargo/go-envconfig"
)

const (
	RecoveryFlowOTP  = "otp"
	RecoveryFlowLink = "link"
)

type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Postgres  PostgresConfig  `env:",prefix=POSTGRES_"`
	Redis     RedisConfig     `env:",prefix=REDIS_"`
	JWT       JWTConfig       `env:",prefix=JWT_"`
	Security  SecurityConfig  `env:",prefix="`
	CORS      CORSConfig      `env:",prefix=CORS_"`
	Recovery  RecoveryConfig  `env:",prefix=RECOVERY_"`
	Mail      MailConfig      `env:",prefix=MAIL_"`
	Stripe    StripeConfig    `env:",prefix=STRIPE_"`
	Google    GoogleConfig    `env:",prefix=GOOGLE_"`
	Reconcile ReconcileConfig `env:",prefix=RECONCILE_"`
	Env       string          `env:"ENV,default=development"`
	LogLevel  string          `env:"LOG_LEVEL,default="`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host        string `env:"HOST,default=localhost"`
	Port        string `env:"PORT,default=5432"`
	User        string `env:"USER,default=donation_service"`
	Password    string `env:"PASSWORD,default=donation_service_password"`
	DBName      string `env:"DB,default=donation_service_db"`
	SSLMode     string `env:"SSLMODE,default=disable"`
	AutoMigrate bool   `env:"AUTO_MIGRATE,default=true"`

	MaxOpenConns    int      `env:"MAX_OPEN_CONNS,default=25"`
	MaxIdleConns    int      `env:"MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime Duration `env:"CONN_MAX_LIFETIME,default=30m"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`

	PoolSize    int      `env:"POOL_SIZE,default=10"`
	DialTimeout Duration `env:"DIAL_TIMEOUT,default=5s"`
}

type JWTConfig struct {
	Secret            string   `env:"SECRET,required"`
	AccessTokenExpiry Duration `env:"ACCESS_TOKEN_EXPIRY,default=1h"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// RecoveryConfig controls the password recovery flow
type RecoveryConfig struct {
	Flow               string   `env:"FLOW,default=otp"`
	OTPLength          int      `env:"OTP_LENGTH,default=6"`
	OTPExpiry          Duration `env:"OTP_EXPIRY,default=1h"`
	TokenExpiry        Duration `env:"TOKEN_EXPIRY,default=1h"`
	ResetURL           string   `env:"RESET_URL,default=http://localhost:3000/reset-password"`
	RevealUnknownEmail bool     `env:"REVEAL_UNKNOWN_EMAIL,default=false"`
	ResendCooldown     Duration `env:"RESEND_COOLDOWN,default=60s"`
	MaxPerWindow       int      `env:"MAX_PER_WINDOW,default=5"`
	ThrottleWindow     Duration `env:"THROTTLE_WINDOW,default=1h"`
}

// MailConfig holds SMTP settings. An empty host selects the log-only notifier.
type MailConfig struct {
	Host        string   `env:"HOST,default="`
	Port        int      `env:"PORT,default=587"`
	Username    string   `env:"USERNAME,default="`
	Password    string   `env:"PASSWORD,default="`
	From        string   `env:"FROM,default=no-reply@donations.local"`
	SendTimeout Duration `env:"SEND_TIMEOUT,default=10s"`
}

type StripeConfig struct {
	SecretKey         string   `env:"SECRET_KEY,default="`
	WebhookSecret     string   `env:"WEBHOOK_SECRET,default="`
	Timeout           Duration `env:"TIMEOUT,default=10s"`
	MaxNetworkRetries int64    `env:"MAX_NETWORK_RETRIES,default=2"`
	ProductName       string   `env:"PRODUCT_NAME,default=Donation"`
}

type GoogleConfig struct {
	ClientID string   `env:"CLIENT_ID,default="`
	Timeout  Duration `env:"TIMEOUT,default=5s"`
}

// ReconcileConfig drives the background sweeper and the CLI poller
type ReconcileConfig struct {
	SweepInterval Duration `env:"SWEEP_INTERVAL,default=1m"`
	SweepMinAge   Duration `env:"SWEEP_MIN_AGE,default=30s"`
	SweepBatch    int      `env:"SWEEP_BATCH,default=100"`
	SweepLockTTL  Duration `env:"SWEEP_LOCK_TTL,default=2m"`
	PollInterval  Duration `env:"POLL_INTERVAL,default=3s"`
	PollAttempts  int      `env:"POLL_ATTEMPTS,default=10"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Options converts the group into client options
func (r RedisConfig) Options() database.RedisOptions {
	return database.RedisOptions{
		Addr:        r.Address(),
		Password:    r.Password,
		DB:          r.DB,
		PoolSize:    r.PoolSize,
		DialTimeout: r.DialTimeout.Duration,
	}
}

// Load loads configuration from environment variables, reading a .env file first if present
func Load(ctx context.Context) (*Config, error) {
	// a missing .env is the normal case outside local development
	_ = godotenv.Load()

	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}

func (c *Config) validate() error {
	// Validate JWT secret length
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Recovery.Flow != RecoveryFlowOTP && c.Recovery.Flow != RecoveryFlowLink {
		return fmt.Errorf("RECOVERY_FLOW must be %q or %q, got %q", RecoveryFlowOTP, RecoveryFlowLink, c.Recovery.Flow)
	}

	if c.Recovery.OTPLength < 4 || c.Recovery.OTPLength > 10 {
		return fmt.Errorf("RECOVERY_OTP_LENGTH must be between 4 and 10")
	}

	if c.Reconcile.PollAttempts < 1 {
		return fmt.Errorf("RECONCILE_POLL_ATTEMPTS must be at least 1")
	}

	if c.Reconcile.SweepInterval.Duration <= 0 {
		return fmt.Errorf("RECONCILE_SWEEP_INTERVAL must be positive")
	}

	if c.Reconcile.SweepLockTTL.Duration <= 0 {
		return fmt.Errorf("RECONCILE_SWEEP_LOCK_TTL must be positive")
	}

	if c.Reconcile.SweepBatch < 1 {
		return fmt.Errorf("RECONCILE_SWEEP_BATCH must be at least 1")
	}

	return nil
}
