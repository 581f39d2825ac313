package config

import (
	"fmt"
	"net/url"
	"time"

	"golang.org/x/crypto/bcrypt"

	pkgconfig "github.com/utafrali/identity/pkg/config"
)

const defaultSecret = "change-this-to-a-secure-secret"

// Notifier modes for deferred email.
const (
	NotifyKafka     = "kafka"
	NotifyInProcess = "inprocess"
)

// Email providers.
const (
	EmailSMTP    = "smtp"
	EmailWebhook = "webhook"
	EmailLog     = "log"
)

// Config holds all configuration for the identity service and mailer worker.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	ProjectName string `env:"PROJECT_NAME" envDefault:"Identity"`

	// HTTP server
	HTTPPort           int      `env:"IDENTITY_HTTP_PORT" envDefault:"8000"`
	MailerHTTPPort     int      `env:"MAILER_HTTP_PORT" envDefault:"8001"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	FrontendHost       string   `env:"FRONTEND_HOST" envDefault:"http://localhost:5173"`

	// PostgreSQL
	PostgresHost          string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort          int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser          string `env:"POSTGRES_USER" envDefault:"identity"`
	PostgresPass          string `env:"POSTGRES_PASSWORD" envDefault:"identity_secret"`
	PostgresDB            string `env:"IDENTITY_DB_NAME" envDefault:"identity"`
	PostgresSSL           string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns            int32  `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns            int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int    `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int    `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"30"`
	SlowQueryThresholdMs  int    `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID  string   `env:"KAFKA_GROUP_ID" envDefault:"identity-mailer"`
	NotifyMode    string   `env:"NOTIFY_MODE" envDefault:"inprocess"`
	NotifyWorkers int      `env:"NOTIFY_WORKERS" envDefault:"4"`
	NotifyQueue   int      `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`

	// Tokens and passwords
	SecretKey         string        `env:"SECRET_KEY" envDefault:"change-this-to-a-secure-secret"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_EXPIRE" envDefault:"192h"`
	ActionTokenTTL    time.Duration `env:"ACTION_TOKEN_EXPIRE" envDefault:"48h"`
	SingleUseTokens   bool          `env:"SINGLE_USE_TOKENS" envDefault:"false"`
	BcryptCost        int           `env:"BCRYPT_COST" envDefault:"12"`
	FirstSuperuser    string        `env:"FIRST_SUPERUSER"`
	FirstSuperuserPwd string        `env:"FIRST_SUPERUSER_PASSWORD"`

	// Email
	EmailProvider   string        `env:"EMAIL_PROVIDER" envDefault:"log"`
	SMTPHost        string        `env:"SMTP_HOST"`
	SMTPPort        int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser        string        `env:"SMTP_USER"`
	SMTPPassword    string        `env:"SMTP_PASSWORD"`
	SMTPTLS         bool          `env:"SMTP_TLS" envDefault:"true"`
	SMTPSSL         bool          `env:"SMTP_SSL" envDefault:"false"`
	SMTPTimeout     time.Duration `env:"SMTP_TIMEOUT" envDefault:"10s"`
	EmailsFromEmail string        `env:"EMAILS_FROM_EMAIL" envDefault:"noreply@example.com"`
	EmailsFromName  string        `env:"EMAILS_FROM_NAME"`
	EmailWebhookURL string        `env:"EMAIL_WEBHOOK_URL"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load identity config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.MailerHTTPPort < 1 || c.MailerHTTPPort > 65535 {
		return fmt.Errorf("invalid mailer HTTP port: %d", c.MailerHTTPPort)
	}

	if c.Environment != "development" {
		if c.SecretKey == defaultSecret {
			return fmt.Errorf("SECRET_KEY must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.SecretKey) < 32 {
			return fmt.Errorf("SECRET_KEY must be at least 32 characters long, got %d", len(c.SecretKey))
		}
	}

	if c.AccessTokenTTL <= 0 || c.ActionTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}

	switch c.NotifyMode {
	case NotifyKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when NOTIFY_MODE=%s", NotifyKafka)
		}
	case NotifyInProcess:
		if c.NotifyWorkers < 1 || c.NotifyQueue < 1 {
			return fmt.Errorf("NOTIFY_WORKERS and NOTIFY_QUEUE_SIZE must be positive")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_MODE %q", c.NotifyMode)
	}

	switch c.EmailProvider {
	case EmailSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER=%s", EmailSMTP)
		}
		if c.SMTPTLS && c.SMTPSSL {
			return fmt.Errorf("SMTP_TLS and SMTP_SSL are mutually exclusive")
		}
	case EmailWebhook:
		if _, err := url.ParseRequestURI(c.EmailWebhookURL); err != nil {
			return fmt.Errorf("EMAIL_WEBHOOK_URL must be an absolute URL: %w", err)
		}
	case EmailLog:
	default:
		return fmt.Errorf("unknown EMAIL_PROVIDER %q", c.EmailProvider)
	}

	if (c.FirstSuperuser == "") != (c.FirstSuperuserPwd == "") {
		return fmt.Errorf("FIRST_SUPERUSER and FIRST_SUPERUSER_PASSWORD must be set together")
	}
	return nil
}

// EmailsEnabled reports whether a real delivery channel is configured.
func (c *Config) EmailsEnabled() bool {
	return c.EmailProvider != EmailLog
}
