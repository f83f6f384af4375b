package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Sessions     SessionsConfig
	Pricing      PricingConfig
	Square       SquareConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"KIOSK_APP_ENV" required:"true"`
	Port         string   `envconfig:"KIOSK_APP_PORT" required:"true"`
	MetricsPort  string   `envconfig:"KIOSK_METRICS_PORT" default:"9091"`
	LogLevel     string   `envconfig:"KIOSK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"KIOSK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"KIOSK_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"KIOSK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"KIOSK_DB_DSN"`
	Driver string `envconfig:"KIOSK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KIOSK_DB_HOST"`
	LegacyPort     int    `envconfig:"KIOSK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KIOSK_DB_USER"`
	LegacyPassword string `envconfig:"KIOSK_DB_PASSWORD"`
	LegacyName     string `envconfig:"KIOSK_DB_NAME"`
	LegacySSLMode  string `envconfig:"KIOSK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KIOSK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KIOSK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KIOSK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KIOSK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KIOSK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KIOSK_REDIS_ADDR"`
	Password     string        `envconfig:"KIOSK_REDIS_PASSWORD"`
	DB           int           `envconfig:"KIOSK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KIOSK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KIOSK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KIOSK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KIOSK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KIOSK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KIOSK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KIOSK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KIOSK_JWT_EXPIRATION_MINUTES" default:"720"`
}

// Expiration returns the terminal token lifetime. Tokens outliving their
// session are harmless since session expiry is checked on every request.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type SessionsConfig struct {
	TTL        time.Duration `envconfig:"KIOSK_SESSION_TTL" default:"4h"`
	SweepBatch int           `envconfig:"KIOSK_SESSION_SWEEP_BATCH" default:"500"`
}

type PricingConfig struct {
	Currency            string `envconfig:"KIOSK_PRICING_CURRENCY" default:"USD"`
	DeliveryBaseCents   int64  `envconfig:"KIOSK_PRICING_DELIVERY_BASE_CENTS" default:"300"`
	DeliveryRatePercent string `envconfig:"KIOSK_PRICING_DELIVERY_RATE_PERCENT" default:"3.5"`
	DeliveryCapCents    int64  `envconfig:"KIOSK_PRICING_DELIVERY_CAP_CENTS" default:"1500"`
	// Subtotal at or above this waives the delivery fee entirely; 0 disables.
	FreeDeliveryMinCents int64 `envconfig:"KIOSK_PRICING_FREE_DELIVERY_MIN_CENTS" default:"0"`
}

type SquareConfig struct {
	AccessToken         string `envconfig:"KIOSK_SQUARE_ACCESS_TOKEN"`
	Environment         string `envconfig:"KIOSK_SQUARE_ENV" default:"sandbox"`
	LocationID          string `envconfig:"KIOSK_SQUARE_LOCATION_ID"`
	WebhookSignatureKey string `envconfig:"KIOSK_SQUARE_WEBHOOK_SIGNATURE_KEY"`
	WebhookURL          string `envconfig:"KIOSK_SQUARE_WEBHOOK_URL"`
}

// Env returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Env() string {
	env := strings.TrimSpace(strings.ToLower(s.Environment))
	if env == "" {
		return "sandbox"
	}
	return env
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KIOSK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KIOSK_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"KIOSK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookGuardTTL      time.Duration `envconfig:"KIOSK_EVENTING_WEBHOOK_GUARD_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"KIOSK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"KIOSK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"KIOSK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"KIOSK_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"KIOSK_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	AlertsTopic        string `envconfig:"KIOSK_PUBSUB_ALERTS_TOPIC" default:"kiosk-terminal-alerts"`
	AlertsSubscription string `envconfig:"KIOSK_PUBSUB_ALERTS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"KIOSK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"KIOSK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"KIOSK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"KIOSK_CRON_INTERVAL" default:"30m"`
	LockTTL  time.Duration `envconfig:"KIOSK_CRON_LOCK_TTL" default:"5m"`
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
