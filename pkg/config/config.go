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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Discounts    DiscountsConfig
	Realtime     RealtimeConfig
	Webhooks     WebhooksConfig
	Scheduler    SchedulerConfig
	Client       ClientConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Realtime.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ClientSettings is the part of the configuration a client binary reads; it
// needs no database or token signing secrets.
type ClientSettings struct {
	App      AppConfig
	Redis    RedisConfig
	Realtime RealtimeConfig
	Client   ClientConfig
}

func LoadClient() (*ClientSettings, error) {
	var cfg ClientSettings
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}
	if err := cfg.Realtime.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Client.BaseURL) == "" {
		return nil, fmt.Errorf("%s is required", EnvClientBaseURL)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MARKETCART_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETCART_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MARKETCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETCART_LOG_WARN_STACK" default:"false"`

	// CORSOrigins is a comma separated list of browser origins allowed to call the API.
	CORSOrigins []string `envconfig:"MARKETCART_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"MARKETCART_DB_DSN"`
	SQLitePath string `envconfig:"MARKETCART_DB_SQLITE_PATH" default:"marketcart.db"`

	LegacyHost     string `envconfig:"MARKETCART_DB_HOST"`
	LegacyPort     int    `envconfig:"MARKETCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARKETCART_DB_USER"`
	LegacyPassword string `envconfig:"MARKETCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARKETCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARKETCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETCART_REDIS_URL"`
	Address      string        `envconfig:"MARKETCART_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes how inbound access tokens are verified. Tokens are minted
// by the identity provider; this service only reads the identity and role claims.
type JWTConfig struct {
	Secret            string `envconfig:"MARKETCART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MARKETCART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MARKETCART_JWT_EXPIRATION_MINUTES" default:"15"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MARKETCART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MARKETCART_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig holds the pricing policy and the submission fan-out width.
type CheckoutConfig struct {
	FlatShippingFee       int64  `envconfig:"MARKETCART_CHECKOUT_FLAT_SHIPPING_FEE" default:"60"`
	FreeShippingThreshold int64  `envconfig:"MARKETCART_CHECKOUT_FREE_SHIPPING_THRESHOLD" default:"500"`
	ProductAllocation     string `envconfig:"MARKETCART_CHECKOUT_PRODUCT_ALLOCATION" default:"pro_rata"`
	SubmitConcurrency     int    `envconfig:"MARKETCART_CHECKOUT_SUBMIT_CONCURRENCY" default:"4"`
}

func (c CheckoutConfig) validate() error {
	if c.FlatShippingFee < 0 {
		return fmt.Errorf("%s must not be negative", EnvCheckoutFlatShippingFee)
	}
	if c.FreeShippingThreshold < 0 {
		return fmt.Errorf("%s must not be negative", EnvCheckoutFreeShippingThreshold)
	}
	switch c.ProductAllocation {
	case AllocationProRata, AllocationPerGroup:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvCheckoutProductAllocation, AllocationProRata, AllocationPerGroup, c.ProductAllocation)
	}
	return nil
}

type DiscountsConfig struct {
	CacheTTL time.Duration `envconfig:"MARKETCART_DISCOUNTS_CACHE_TTL" default:"30s"`
}

// RealtimeConfig configures the push channel on both the publishing and subscribing side.
type RealtimeConfig struct {
	ChannelPrefix string        `envconfig:"MARKETCART_REALTIME_CHANNEL_PREFIX" default:"mc:push"`
	BaseDelay     time.Duration `envconfig:"MARKETCART_REALTIME_BASE_DELAY" default:"1s"`
	MaxAttempts   int           `envconfig:"MARKETCART_REALTIME_MAX_ATTEMPTS" default:"5"`
	// PollInterval paces re-fetching while the push channel is unavailable.
	PollInterval time.Duration `envconfig:"MARKETCART_REALTIME_POLL_INTERVAL" default:"30s"`
}

func (r RealtimeConfig) validate() error {
	if r.BaseDelay <= 0 {
		return fmt.Errorf("%s must be positive", EnvRealtimeBaseDelay)
	}
	if r.MaxAttempts <= 0 {
		return fmt.Errorf("%s must be positive", EnvRealtimeMaxAttempts)
	}
	if r.PollInterval <= 0 {
		return fmt.Errorf("%s must be positive", EnvRealtimePollInterval)
	}
	return nil
}

type WebhooksConfig struct {
	PaymentSecret string `envconfig:"MARKETCART_WEBHOOK_PAYMENT_SECRET"`
	CarrierSecret string `envconfig:"MARKETCART_WEBHOOK_CARRIER_SECRET"`
}

// SchedulerConfig drives cmd/scheduler. LockTTL must outlast one cycle.
type SchedulerConfig struct {
	Interval time.Duration `envconfig:"MARKETCART_SCHEDULER_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"MARKETCART_SCHEDULER_LOCK_TTL" default:"10m"`
}

// ClientConfig is read by client-side binaries talking to a remote marketcart API.
type ClientConfig struct {
	BaseURL     string        `envconfig:"MARKETCART_CLIENT_BASE_URL" default:"http://localhost:8080"`
	Timeout     time.Duration `envconfig:"MARKETCART_CLIENT_TIMEOUT" default:"10s"`
	RefreshURL  string        `envconfig:"MARKETCART_CLIENT_REFRESH_URL"`
	AccessToken string        `envconfig:"MARKETCART_CLIENT_ACCESS_TOKEN"`
	RefreshTok  string        `envconfig:"MARKETCART_CLIENT_REFRESH_TOKEN"`
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
