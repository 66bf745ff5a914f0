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
	FeatureFlags FeatureFlagsConfig
	Inventory    InventoryConfig
	Checkout     CheckoutConfig
	Webhooks     WebhooksConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
	Square       SquareConfig
	Stripe       StripeConfig
	PayPal       PayPalConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Eventing.validate(cfg.PubSub, cfg.Kafka); err != nil {
		return nil, err
	}
	if cfg.App.IsProd() && strings.EqualFold(strings.TrimSpace(cfg.DB.Driver), "sqlite") {
		return nil, fmt.Errorf("%s=sqlite is only supported outside prod", EnvDBDriver)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"BOXOFFICE_APP_ENV" required:"true"`
	Port         string   `envconfig:"BOXOFFICE_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"BOXOFFICE_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"BOXOFFICE_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"BOXOFFICE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"BOXOFFICE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BOXOFFICE_SERVICE_KIND" default:"api"`
	// MetricsAddr is the /metrics listener for background workers. The API
	// serves metrics on its own router.
	MetricsAddr string `envconfig:"BOXOFFICE_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"BOXOFFICE_DB_DSN"`
	Driver string `envconfig:"BOXOFFICE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOXOFFICE_DB_HOST"`
	LegacyPort     int    `envconfig:"BOXOFFICE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOXOFFICE_DB_USER"`
	LegacyPassword string `envconfig:"BOXOFFICE_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOXOFFICE_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOXOFFICE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOXOFFICE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOXOFFICE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOXOFFICE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOXOFFICE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"BOXOFFICE_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOXOFFICE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BOXOFFICE_REDIS_ADDR"`
	Password     string        `envconfig:"BOXOFFICE_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOXOFFICE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOXOFFICE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOXOFFICE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOXOFFICE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOXOFFICE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOXOFFICE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies admin bearer tokens issued by the back-office.
type JWTConfig struct {
	Secret string        `envconfig:"BOXOFFICE_JWT_SECRET" required:"true"`
	Issuer string        `envconfig:"BOXOFFICE_JWT_ISSUER" required:"true"`
	TTL    time.Duration `envconfig:"BOXOFFICE_JWT_TTL" default:"1h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BOXOFFICE_AUTO_MIGRATE" default:"false"`
}

type InventoryConfig struct {
	StockCacheTTL time.Duration `envconfig:"BOXOFFICE_STOCK_CACHE_TTL" default:"30s"`
}

type CheckoutConfig struct {
	Currency        string        `envconfig:"BOXOFFICE_CURRENCY" default:"USD"`
	CartTTL         time.Duration `envconfig:"BOXOFFICE_CART_TTL" default:"2h"`
	PendingOrderTTL time.Duration `envconfig:"BOXOFFICE_PENDING_ORDER_TTL" default:"24h"`
	GatewayOrder    []string      `envconfig:"BOXOFFICE_GATEWAY_ORDER" default:"free,card,paypal,manual"`
	ManualEnabled   bool          `envconfig:"BOXOFFICE_MANUAL_GATEWAY_ENABLED" default:"true"`
	CardProcessor   string        `envconfig:"BOXOFFICE_CARD_PROCESSOR" default:"square"`
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"BOXOFFICE_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
	VerifyTimeout  time.Duration `envconfig:"BOXOFFICE_WEBHOOK_VERIFY_TIMEOUT" default:"10s"`
}

type EventingConfig struct {
	Sink string `envconfig:"BOXOFFICE_EVENT_SINK" default:"pubsub"`
}

func (e EventingConfig) validate(ps PubSubConfig, k KafkaConfig) error {
	switch strings.ToLower(strings.TrimSpace(e.Sink)) {
	case EventSinkPubSub:
		return nil
	case EventSinkKafka:
		if len(k.Brokers) == 0 {
			return fmt.Errorf("%s is required when %s=%s", EnvKafkaBrokers, EnvEventSink, EventSinkKafka)
		}
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvEventSink, EventSinkPubSub, EventSinkKafka)
	}
}

type GCPConfig struct {
	ProjectID       string `envconfig:"BOXOFFICE_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"BOXOFFICE_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"BOXOFFICE_PUBSUB_ORDERS_TOPIC" default:"boxoffice-order-events"`
	OrdersSubscription string `envconfig:"BOXOFFICE_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type KafkaConfig struct {
	Brokers     []string `envconfig:"BOXOFFICE_KAFKA_BROKERS"`
	OrdersTopic string   `envconfig:"BOXOFFICE_KAFKA_ORDERS_TOPIC" default:"boxoffice.orders"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BOXOFFICE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BOXOFFICE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BOXOFFICE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// RateLimitConfig throttles buyer write endpoints per client IP.
type RateLimitConfig struct {
	Window        time.Duration `envconfig:"BOXOFFICE_RATE_LIMIT_WINDOW" default:"1m"`
	CheckoutLimit int           `envconfig:"BOXOFFICE_RATE_LIMIT_CHECKOUT" default:"10"`
	CouponLimit   int           `envconfig:"BOXOFFICE_RATE_LIMIT_COUPON" default:"20"`
}

type CronConfig struct {
	Tick                time.Duration `envconfig:"BOXOFFICE_CRON_TICK" default:"1m"`
	LockTTL             time.Duration `envconfig:"BOXOFFICE_CRON_LOCK_TTL" default:"10m"`
	ExpiryEvery         time.Duration `envconfig:"BOXOFFICE_CRON_EXPIRY_EVERY" default:"5m"`
	ExpiryBatchSize     int           `envconfig:"BOXOFFICE_CRON_EXPIRY_BATCH_SIZE" default:"200"`
	RetentionEvery      time.Duration `envconfig:"BOXOFFICE_CRON_RETENTION_EVERY" default:"24h"`
	OutboxRetentionDays int           `envconfig:"BOXOFFICE_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays    int           `envconfig:"BOXOFFICE_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"BOXOFFICE_SQUARE_ACCESS_TOKEN"`
	LocationID  string `envconfig:"BOXOFFICE_SQUARE_LOCATION_ID"`
	Env         string `envconfig:"BOXOFFICE_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type StripeConfig struct {
	APIKey string `envconfig:"BOXOFFICE_STRIPE_API_KEY"`
	Secret string `envconfig:"BOXOFFICE_STRIPE_SECRET"`
	Env    string `envconfig:"BOXOFFICE_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PayPalConfig struct {
	ClientID     string `envconfig:"BOXOFFICE_PAYPAL_CLIENT_ID"`
	ClientSecret string `envconfig:"BOXOFFICE_PAYPAL_CLIENT_SECRET"`
	WebhookID    string `envconfig:"BOXOFFICE_PAYPAL_WEBHOOK_ID"`
	Env          string `envconfig:"BOXOFFICE_PAYPAL_ENV" default:"sandbox"`
	ReturnURL    string `envconfig:"BOXOFFICE_PAYPAL_RETURN_URL"`
	CancelURL    string `envconfig:"BOXOFFICE_PAYPAL_CANCEL_URL"`
	Enabled      bool   `envconfig:"BOXOFFICE_PAYPAL_ENABLED" default:"false"`
}

// BaseURL resolves the REST host for the configured PayPal environment.
func (p PayPalConfig) BaseURL() string {
	if strings.EqualFold(strings.TrimSpace(p.Env), "live") {
		return "https://api-m.paypal.com"
	}
	return "https://api-m.sandbox.paypal.com"
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
