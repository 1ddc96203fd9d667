package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every Sparkmeet environment variable.
const EnvPrefix = "SPARKMEET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SPARKMEET_DB_DSN"
	EnvDBHost = "SPARKMEET_DB_HOST"
	EnvDBUser = "SPARKMEET_DB_USER"
	EnvDBName = "SPARKMEET_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	Discovery    DiscoveryConfig
	Swipes       SwipesConfig
	Delivery     DeliveryConfig
	Email        EmailConfig
	Push         PushConfig
	Eventing     EventingConfig
	PubSub       PubSubConfig
	GCP          GCPConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"SPARKMEET_APP_ENV" required:"true"`
	Port         string `envconfig:"SPARKMEET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SPARKMEET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SPARKMEET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SPARKMEET_DB_DSN"`
	Driver string `envconfig:"SPARKMEET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SPARKMEET_DB_HOST"`
	LegacyPort     int    `envconfig:"SPARKMEET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SPARKMEET_DB_USER"`
	LegacyPassword string `envconfig:"SPARKMEET_DB_PASSWORD"`
	LegacyName     string `envconfig:"SPARKMEET_DB_NAME"`
	LegacySSLMode  string `envconfig:"SPARKMEET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SPARKMEET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SPARKMEET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SPARKMEET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SPARKMEET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SPARKMEET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SPARKMEET_REDIS_ADDR"`
	Password     string        `envconfig:"SPARKMEET_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPARKMEET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPARKMEET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SPARKMEET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SPARKMEET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPARKMEET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SPARKMEET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SPARKMEET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SPARKMEET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SPARKMEET_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RateLimitConfig throttles the authenticated API surface. The user limit
// applies per caller; the IP limit covers unauthenticated traffic.
type RateLimitConfig struct {
	Window    time.Duration `envconfig:"SPARKMEET_RATE_LIMIT_WINDOW" default:"1m"`
	UserLimit int           `envconfig:"SPARKMEET_RATE_LIMIT_USER_LIMIT" default:"120"`
	IPLimit   int           `envconfig:"SPARKMEET_RATE_LIMIT_IP_LIMIT" default:"60"`
}

// DiscoveryConfig tunes the compatibility scorer. The sub-score weights are
// fixed by product; only the decay tolerance and paging bounds are
// operator-adjustable.
type DiscoveryConfig struct {
	AgeToleranceYears int `envconfig:"SPARKMEET_DISCOVERY_AGE_TOLERANCE_YEARS" default:"5"`
	DefaultLimit      int `envconfig:"SPARKMEET_DISCOVERY_DEFAULT_LIMIT" default:"25"`
	MaxLimit          int `envconfig:"SPARKMEET_DISCOVERY_MAX_LIMIT" default:"100"`
}

// SwipesConfig holds the daily outgoing like quota. The quota applies to
// like/super_like decisions from non-premium users and resets at the actor's
// local midnight.
type SwipesConfig struct {
	DailyLikeQuota int `envconfig:"SPARKMEET_SWIPES_DAILY_LIKE_QUOTA" default:"50"`
}

// DeliveryConfig drives the notification pipeline: quiet-hours defaults for
// users who never configured a window (minutes from local midnight, 1320=22:00
// and 480=08:00), the batching window, and the per-channel retry policy.
type DeliveryConfig struct {
	DefaultQuietStartMinute int           `envconfig:"SPARKMEET_DELIVERY_QUIET_START_MINUTE" default:"1320"`
	DefaultQuietEndMinute   int           `envconfig:"SPARKMEET_DELIVERY_QUIET_END_MINUTE" default:"480"`
	BatchWindow             time.Duration `envconfig:"SPARKMEET_DELIVERY_BATCH_WINDOW" default:"5m"`
	MaxChannelAttempts      int           `envconfig:"SPARKMEET_DELIVERY_MAX_CHANNEL_ATTEMPTS" default:"3"`
	RetryBaseDelay          time.Duration `envconfig:"SPARKMEET_DELIVERY_RETRY_BASE_DELAY" default:"500ms"`
	SendTimeout             time.Duration `envconfig:"SPARKMEET_DELIVERY_SEND_TIMEOUT" default:"10s"`
}

// EmailConfig points at the SMTP relay used by the email channel.
type EmailConfig struct {
	SMTPHost string `envconfig:"SPARKMEET_EMAIL_SMTP_HOST"`
	SMTPPort int    `envconfig:"SPARKMEET_EMAIL_SMTP_PORT" default:"587"`
	Username string `envconfig:"SPARKMEET_EMAIL_USERNAME"`
	Password string `envconfig:"SPARKMEET_EMAIL_PASSWORD"`
	From     string `envconfig:"SPARKMEET_EMAIL_FROM" default:"no-reply@sparkmeet.app"`
}

// PushConfig points at the push gateway the mobile apps register against.
type PushConfig struct {
	Endpoint string        `envconfig:"SPARKMEET_PUSH_ENDPOINT"`
	APIKey   string        `envconfig:"SPARKMEET_PUSH_API_KEY"`
	Timeout  time.Duration `envconfig:"SPARKMEET_PUSH_TIMEOUT" default:"5s"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"SPARKMEET_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"SPARKMEET_PUBSUB_DOMAIN_TOPIC" default:"sm-domain-events"`
	DomainSubscription string `envconfig:"SPARKMEET_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SPARKMEET_GCP_PROJECT_ID" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SPARKMEET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SPARKMEET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SPARKMEET_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"SPARKMEET_CRON_INTERVAL" default:"1m"`
	NotificationRetention int           `envconfig:"SPARKMEET_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
	OutboxRetention       int           `envconfig:"SPARKMEET_CRON_OUTBOX_RETENTION_DAYS" default:"7"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SPARKMEET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SPARKMEET_AUTO_MIGRATE" default:"false"`
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
