package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

const strongSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, 8001, cfg.MailerHTTPPort)
	assert.Equal(t, 192*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 48*time.Hour, cfg.ActionTokenTTL)
	assert.Equal(t, NotifyInProcess, cfg.NotifyMode)
	assert.Equal(t, EmailLog, cfg.EmailProvider)
	assert.False(t, cfg.SingleUseTokens)
	assert.False(t, cfg.EmailsEnabled())
}

func TestLoad_FromEnv(t *testing.T) {
	setEnvs(t, map[string]string{
		"IDENTITY_HTTP_PORT":  "9100",
		"ACCESS_TOKEN_EXPIRE": "1h",
		"KAFKA_BROKERS":       "k1:9092,k2:9092",
		"NOTIFY_MODE":         "kafka",
		"SINGLE_USE_TOKENS":   "true",
		"EMAIL_PROVIDER":      "webhook",
		"EMAIL_WEBHOOK_URL":   "https://mail.example.com/send",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.SingleUseTokens)
	assert.True(t, cfg.EmailsEnabled())
}

func TestLoad_Production_RejectsDefaultSecret(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "production"})

	cfg, err := Load()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_KEY must be explicitly set")
}

func TestLoad_Production_RejectsShortSecret(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "staging", "SECRET_KEY": "short"})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoad_Production_AcceptsStrongSecret(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "production", "SECRET_KEY": strongSecret})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, strongSecret, cfg.SecretKey)
}

func TestLoad_InvalidDuration(t *testing.T) {
	setEnvs(t, map[string]string{"ACTION_TOKEN_EXPIRE": "two days"})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load identity config")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port out of range", func(c *Config) { c.HTTPPort = 70000 }, "invalid HTTP port"},
		{"mailer port out of range", func(c *Config) { c.MailerHTTPPort = 0 }, "invalid mailer HTTP port"},
		{"zero access ttl", func(c *Config) { c.AccessTokenTTL = 0 }, "token lifetimes"},
		{"bcrypt too low", func(c *Config) { c.BcryptCost = 2 }, "BCRYPT_COST"},
		{"unknown notify mode", func(c *Config) { c.NotifyMode = "carrier-pigeon" }, "unknown NOTIFY_MODE"},
		{"kafka without brokers", func(c *Config) { c.NotifyMode = NotifyKafka; c.KafkaBrokers = nil }, "KAFKA_BROKERS"},
		{"zero workers", func(c *Config) { c.NotifyWorkers = 0 }, "NOTIFY_WORKERS"},
		{"smtp without host", func(c *Config) { c.EmailProvider = EmailSMTP }, "SMTP_HOST"},
		{"smtp tls and ssl", func(c *Config) {
			c.EmailProvider = EmailSMTP
			c.SMTPHost = "mail"
			c.SMTPSSL = true
		}, "mutually exclusive"},
		{"webhook bad url", func(c *Config) { c.EmailProvider = EmailWebhook; c.EmailWebhookURL = "not a url" }, "EMAIL_WEBHOOK_URL"},
		{"unknown provider", func(c *Config) { c.EmailProvider = "fax" }, "unknown EMAIL_PROVIDER"},
		{"superuser without password", func(c *Config) { c.FirstSuperuser = "admin@example.com" }, "FIRST_SUPERUSER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
