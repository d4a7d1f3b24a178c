package config

// EnvPrefix is handed to envconfig; every field carries an explicit envconfig tag.
const EnvPrefix = "MARKETCART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	AllocationProRata  = "pro_rata"
	AllocationPerGroup = "per_group"
)

const (
	EnvAppEnv   = "MARKETCART_APP_ENV"
	EnvPort     = "MARKETCART_APP_PORT"
	EnvLogLevel = "MARKETCART_LOG_LEVEL"

	EnvDBDSN  = "MARKETCART_DB_DSN"
	EnvDBHost = "MARKETCART_DB_HOST"
	EnvDBUser = "MARKETCART_DB_USER"
	EnvDBName = "MARKETCART_DB_NAME"

	EnvRedisURL = "MARKETCART_REDIS_URL"

	EnvJWTSecret = "MARKETCART_JWT_SECRET"
	EnvJWTIssuer = "MARKETCART_JWT_ISSUER"

	EnvUseSQLite = "MARKETCART_USE_SQLITE"

	EnvCheckoutFlatShippingFee       = "MARKETCART_CHECKOUT_FLAT_SHIPPING_FEE"
	EnvCheckoutFreeShippingThreshold = "MARKETCART_CHECKOUT_FREE_SHIPPING_THRESHOLD"
	EnvCheckoutProductAllocation     = "MARKETCART_CHECKOUT_PRODUCT_ALLOCATION"

	EnvRealtimeBaseDelay    = "MARKETCART_REALTIME_BASE_DELAY"
	EnvRealtimeMaxAttempts  = "MARKETCART_REALTIME_MAX_ATTEMPTS"
	EnvRealtimePollInterval = "MARKETCART_REALTIME_POLL_INTERVAL"

	EnvClientBaseURL = "MARKETCART_CLIENT_BASE_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
