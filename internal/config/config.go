package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/potrail/identity/pkg/config"
)

// Config holds all configuration for the identity service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"IDENTITY_HTTP_PORT" envDefault:"8006"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"identity"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"identity_secret"`
	PostgresDB   string `env:"IDENTITY_DB_NAME" envDefault:"identity_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Tokens. Signing secrets are generated at startup and rotated on
	// the given interval rather than read from the environment.
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"identity"`
	JWTExpiry      time.Duration `env:"JWT_TOKEN_EXPIRY" envDefault:"720h"`
	RotateInterval time.Duration `env:"JWT_ROTATE_INTERVAL" envDefault:"720h"`

	// Pending registration and password-reset requests are discarded
	// after this long.
	RequestTTL time.Duration `env:"PENDING_REQUEST_TTL" envDefault:"1h"`

	// MFA
	MFAIssuer string `env:"MFA_ISSUER" envDefault:"identity"`

	// Email delivery
	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"smtp"`
	SMTPHost      string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort      int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername  string `env:"SMTP_USERNAME"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`
	EmailFrom     string `env:"EMAIL_FROM" envDefault:"no-reply@localhost"`
	MailgunDomain string `env:"MAILGUN_DOMAIN"`
	MailgunAPIKey string `env:"MAILGUN_API_KEY"`
	ExternalURL   string `env:"EXTERNAL_URL" envDefault:"http://localhost:8006"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load identity config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.JWTExpiry <= 0 {
		return nil, fmt.Errorf("invalid JWT token expiry: %s", cfg.JWTExpiry)
	}
	if cfg.RotateInterval <= 0 {
		return nil, fmt.Errorf("invalid JWT rotation interval: %s", cfg.RotateInterval)
	}
	if cfg.RequestTTL <= 0 {
		return nil, fmt.Errorf("invalid pending request TTL: %s", cfg.RequestTTL)
	}
	if cfg.EmailProvider != "smtp" && cfg.EmailProvider != "mailgun" {
		return nil, fmt.Errorf("unknown email provider: %q", cfg.EmailProvider)
	}

	return cfg, nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
