package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	Payments PaymentsConfig
	Flags    FlagsConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Payments.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HIRELOCAL_APP_ENV" required:"true"`
	Port         string `envconfig:"HIRELOCAL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HIRELOCAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HIRELOCAL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"HIRELOCAL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"HIRELOCAL_DB_DSN"`
	Driver string `envconfig:"HIRELOCAL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HIRELOCAL_DB_HOST"`
	LegacyPort     int    `envconfig:"HIRELOCAL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HIRELOCAL_DB_USER"`
	LegacyPassword string `envconfig:"HIRELOCAL_DB_PASSWORD"`
	LegacyName     string `envconfig:"HIRELOCAL_DB_NAME"`
	LegacySSLMode  string `envconfig:"HIRELOCAL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HIRELOCAL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HIRELOCAL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HIRELOCAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HIRELOCAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"HIRELOCAL_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HIRELOCAL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HIRELOCAL_REDIS_ADDR"`
	Password     string        `envconfig:"HIRELOCAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"HIRELOCAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HIRELOCAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HIRELOCAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HIRELOCAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HIRELOCAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HIRELOCAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"HIRELOCAL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HIRELOCAL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HIRELOCAL_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"HIRELOCAL_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"HIRELOCAL_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"HIRELOCAL_STRIPE_ENV" default:"test"`

	OnboardingReturnURL  string `envconfig:"HIRELOCAL_STRIPE_ONBOARDING_RETURN_URL"`
	OnboardingRefreshURL string `envconfig:"HIRELOCAL_STRIPE_ONBOARDING_REFRESH_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PaymentsConfig struct {
	// Platform fee rate in basis points; 1500 = 15%.
	FeeBasisPoints int    `envconfig:"HIRELOCAL_PAYMENTS_FEE_BPS" default:"1500"`
	Currency       string `envconfig:"HIRELOCAL_PAYMENTS_CURRENCY" default:"usd"`

	WebhookGuardTTL time.Duration `envconfig:"HIRELOCAL_PAYMENTS_WEBHOOK_GUARD_TTL" default:"720h"`
	LinkExpirySkew  time.Duration `envconfig:"HIRELOCAL_PAYMENTS_LINK_EXPIRY_SKEW" default:"30s"`
}

func (p PaymentsConfig) validate() error {
	if p.FeeBasisPoints < 0 || p.FeeBasisPoints > 10000 {
		return fmt.Errorf("fee basis points must be within [0, 10000], got %d", p.FeeBasisPoints)
	}
	if strings.TrimSpace(p.Currency) == "" {
		return fmt.Errorf("settlement currency is required")
	}
	return nil
}

type FlagsConfig struct {
	CheckoutFlagKey string `envconfig:"HIRELOCAL_FLAG_CHECKOUT_KEY" default:"payments.checkout"`
}

type PubSubConfig struct {
	ProjectID     string `envconfig:"HIRELOCAL_PUBSUB_PROJECT_ID"`
	PaymentsTopic string `envconfig:"HIRELOCAL_PUBSUB_PAYMENTS_TOPIC" default:"hl-payment-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"HIRELOCAL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"HIRELOCAL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"HIRELOCAL_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
