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
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	Mail         MailConfig
	DealRoom     DealRoomConfig
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
	if err := cfg.Eventing.validate(cfg.Kafka); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DEALERHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"DEALERHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DEALERHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DEALERHUB_LOG_WARN_STACK" default:"false"`
	// PublicURL is the web app origin allowed by CORS.
	PublicURL string `envconfig:"DEALERHUB_APP_PUBLIC_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DEALERHUB_SERVICE_KIND" default:"api"`
	// MetricsAddr exposes /metrics from the background workers when set, e.g. ":9102".
	MetricsAddr string `envconfig:"DEALERHUB_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"DEALERHUB_DB_DSN"`
	Driver string `envconfig:"DEALERHUB_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"DEALERHUB_DB_HOST"`
	Port     int    `envconfig:"DEALERHUB_DB_PORT" default:"5432"`
	User     string `envconfig:"DEALERHUB_DB_USER"`
	Password string `envconfig:"DEALERHUB_DB_PASSWORD"`
	Name     string `envconfig:"DEALERHUB_DB_NAME"`
	SSLMode  string `envconfig:"DEALERHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DEALERHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DEALERHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DEALERHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DEALERHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQueryThreshold logs statements slower than this at warn; zero disables it.
	SlowQueryThreshold time.Duration `envconfig:"DEALERHUB_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DEALERHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DEALERHUB_REDIS_ADDR"`
	Password     string        `envconfig:"DEALERHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"DEALERHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DEALERHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DEALERHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DEALERHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DEALERHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DEALERHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes the tokens minted by the hosted identity provider.
type JWTConfig struct {
	Secret            string `envconfig:"DEALERHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DEALERHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DEALERHUB_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"DEALERHUB_SESSION_TTL_MINUTES" default:"720"`
}

// SessionTTL bounds how long session-scoped state (sessions, rating prompts) lives in redis.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type AuthConfig struct {
	RequireSession bool `envconfig:"DEALERHUB_AUTH_REQUIRE_SESSION" default:"false"`
}

type RateLimitConfig struct {
	ActionWindow      time.Duration `envconfig:"DEALERHUB_RATE_LIMIT_ACTION_WINDOW" default:"1m"`
	ActionDealerLimit int           `envconfig:"DEALERHUB_RATE_LIMIT_ACTION_DEALER_LIMIT" default:"30"`
	ActionIPLimit     int           `envconfig:"DEALERHUB_RATE_LIMIT_ACTION_IP_LIMIT" default:"120"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DEALERHUB_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	Broker     string `envconfig:"DEALERHUB_EVENTING_BROKER" default:"pubsub"`
	DealsTopic string `envconfig:"DEALERHUB_EVENTING_DEALS_TOPIC" default:"dh-deal-events"`
}

func (e EventingConfig) validate(kafka KafkaConfig) error {
	switch strings.ToLower(strings.TrimSpace(e.Broker)) {
	case BrokerPubSub:
		return nil
	case BrokerKafka:
		if len(kafka.Brokers) == 0 {
			return fmt.Errorf("%s is required when broker is kafka", EnvKafkaBrokers)
		}
		return nil
	default:
		return fmt.Errorf("unsupported eventing broker %q", e.Broker)
	}
}

// BrokerName returns the normalized broker identifier.
func (e EventingConfig) BrokerName() string {
	return strings.ToLower(strings.TrimSpace(e.Broker))
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DEALERHUB_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"DEALERHUB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DEALERHUB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	// VerifyTopics makes the client fail fast when a configured topic is missing.
	VerifyTopics bool `envconfig:"DEALERHUB_PUBSUB_VERIFY_TOPICS" default:"true"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"DEALERHUB_KAFKA_BROKERS"`
	ClientID     string        `envconfig:"DEALERHUB_KAFKA_CLIENT_ID" default:"dealerhub-outbox"`
	WriteTimeout time.Duration `envconfig:"DEALERHUB_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DEALERHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DEALERHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DEALERHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MailConfig struct {
	SMTPHost     string        `envconfig:"DEALERHUB_SMTP_HOST"`
	SMTPPort     int           `envconfig:"DEALERHUB_SMTP_PORT" default:"587"`
	SMTPUsername string        `envconfig:"DEALERHUB_SMTP_USERNAME"`
	SMTPPassword string        `envconfig:"DEALERHUB_SMTP_PASSWORD"`
	From         string        `envconfig:"DEALERHUB_MAIL_FROM" default:"deals@dealerhub.local"`
	Timeout      time.Duration `envconfig:"DEALERHUB_MAIL_TIMEOUT" default:"10s"`
}

// Enabled reports whether outbound SMTP delivery is configured.
func (m MailConfig) Enabled() bool {
	return strings.TrimSpace(m.SMTPHost) != ""
}

type DealRoomConfig struct {
	MaxConflictRetries int           `envconfig:"DEALERHUB_DEALROOM_MAX_RETRIES" default:"3"`
	NotifyTimeout      time.Duration `envconfig:"DEALERHUB_DEALROOM_NOTIFY_TIMEOUT" default:"5s"`
	InsightTimeout     time.Duration `envconfig:"DEALERHUB_DEALROOM_INSIGHT_TIMEOUT" default:"2s"`
	AppBaseURL         string        `envconfig:"DEALERHUB_DEALROOM_APP_BASE_URL" default:"https://app.dealerhub.in"`
}

type CronConfig struct {
	Interval                 time.Duration `envconfig:"DEALERHUB_CRON_INTERVAL" default:"15m"`
	LockTTL                  time.Duration `envconfig:"DEALERHUB_CRON_LOCK_TTL" default:"10m"`
	NotificationRetention    time.Duration `envconfig:"DEALERHUB_CRON_NOTIFICATION_RETENTION" default:"720h"`
	OutboxPublishedRetention time.Duration `envconfig:"DEALERHUB_CRON_OUTBOX_RETENTION" default:"168h"`
	OutboxDLQRetention       time.Duration `envconfig:"DEALERHUB_CRON_OUTBOX_DLQ_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
