package config

import (
	"fmt"
	"log"
	"time"
	_ "time/tzdata" // APP_TIMEZONE must resolve in slim containers

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	// Server
	Env      string `envconfig:"ENV" default:"development"`
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL"`
	Timezone string `envconfig:"APP_TIMEZONE" default:"Asia/Yangon"`

	// Database
	DBDriver   string `envconfig:"DB_DRIVER" default:"postgres"`
	DBPath     string `envconfig:"DB_PATH" default:"data/db.sqlite3"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"exchange"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"exchange"`
	DBName     string `envconfig:"DB_NAME" default:"exchange"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// Admin JWT
	JWTSecret         string        `envconfig:"JWT_SECRET" default:"fallback-secret-key-for-dev-only"`
	JWTExpirationDur  time.Duration `envconfig:"JWT_EXPIRES_IN" default:"12h"`
	AdminUsername     string        `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH"`

	// Bot-facing API
	BotAPIKey string        `envconfig:"BOT_API_KEY"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"720h"`

	// Outbound bot webhook
	BotWebhookURL       string        `envconfig:"BOT_WEBHOOK_URL"`
	BotWebhookSecret    string        `envconfig:"BOT_WEBHOOK_SECRET"`
	WebhookMaxRetries   int           `envconfig:"WEBHOOK_MAX_RETRIES" default:"3"`
	WebhookTimeout      time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`
	WebhookRetryBackoff time.Duration `envconfig:"WEBHOOK_RETRY_BACKOFF" default:"1s"`

	// Uploads
	UploadDir string `envconfig:"UPLOAD_DIR" default:"static/uploads"`

	// Background jobs
	TokenPurgeSchedule  string        `envconfig:"TOKEN_PURGE_SCHEDULE" default:"@hourly"`
	WebhookLogSchedule  string        `envconfig:"WEBHOOK_LOG_PURGE_SCHEDULE" default:"@daily"`
	WebhookLogRetention time.Duration `envconfig:"WEBHOOK_LOG_RETENTION" default:"2160h"`
}

var appConfig *Config

// Load loads configuration from the optional .env file and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfig = &config
	return &config, nil
}

// Validate checks values envconfig cannot express as tags.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.WebhookMaxRetries <= 0 {
		return fmt.Errorf("WEBHOOK_MAX_RETRIES must be positive, got %d", c.WebhookMaxRetries)
	}
	if c.WebhookTimeout <= 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT must be positive, got %v", c.WebhookTimeout)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %v", c.TokenTTL)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the timezone that defines an order day.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// PostgresURL returns the URL form of the Postgres DSN used by migrations.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// Set replaces the process-wide configuration. Tests use it to inject secrets.
func Set(cfg *Config) {
	appConfig = cfg
}
