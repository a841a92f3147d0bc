package config

const EnvPrefix = "DEALERHUB"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	BrokerPubSub = "pubsub"
	BrokerKafka  = "kafka"
)

const (
	EnvAppEnv             = "DEALERHUB_APP_ENV"
	EnvPort               = "DEALERHUB_APP_PORT"
	EnvDBDSN              = "DEALERHUB_DB_DSN"
	EnvDBHost             = "DEALERHUB_DB_HOST"
	EnvDBUser             = "DEALERHUB_DB_USER"
	EnvDBName             = "DEALERHUB_DB_NAME"
	EnvRedisURL           = "DEALERHUB_REDIS_URL"
	EnvJWTSecret          = "DEALERHUB_JWT_SECRET"
	EnvJWTIssuer          = "DEALERHUB_JWT_ISSUER"
	EnvJWTExpMins         = "DEALERHUB_JWT_EXPIRATION_MINUTES"
	EnvEventingBroker     = "DEALERHUB_EVENTING_BROKER"
	EnvKafkaBrokers       = "DEALERHUB_KAFKA_BROKERS"
	EnvGCPProjectID       = "DEALERHUB_GCP_PROJECT_ID"
	EnvSMTPHost           = "DEALERHUB_SMTP_HOST"
	EnvDealRoomMaxRetries = "DEALERHUB_DEALROOM_MAX_RETRIES"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
