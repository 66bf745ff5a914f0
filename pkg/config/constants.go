package config

// EnvPrefix is empty because every variable already carries the BOXOFFICE_ prefix in its tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EventSinkPubSub = "pubsub"
	EventSinkKafka  = "kafka"
)

const (
	EnvAppEnv       = "BOXOFFICE_APP_ENV"
	EnvPort         = "BOXOFFICE_APP_PORT"
	EnvDBDSN        = "BOXOFFICE_DB_DSN"
	EnvDBDriver     = "BOXOFFICE_DB_DRIVER"
	EnvDBHost       = "BOXOFFICE_DB_HOST"
	EnvDBUser       = "BOXOFFICE_DB_USER"
	EnvDBName       = "BOXOFFICE_DB_NAME"
	EnvDBPassword   = "BOXOFFICE_DB_PASSWORD"
	EnvRedisURL     = "BOXOFFICE_REDIS_URL"
	EnvJWTSecret    = "BOXOFFICE_JWT_SECRET"
	EnvJWTIssuer    = "BOXOFFICE_JWT_ISSUER"
	EnvEventSink    = "BOXOFFICE_EVENT_SINK"
	EnvKafkaBrokers = "BOXOFFICE_KAFKA_BROKERS"
	EnvCartTTL      = "BOXOFFICE_CART_TTL"
	EnvGatewayOrder = "BOXOFFICE_GATEWAY_ORDER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
