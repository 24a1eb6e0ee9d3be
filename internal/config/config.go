package config

import (
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/RestaurantPOS/pkg/config"
	"github.com/utafrali/RestaurantPOS/pkg/database"
	"github.com/utafrali/RestaurantPOS/pkg/tracing"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds all configuration for the POS server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	StoreName   string `env:"STORE_NAME" envDefault:"Restaurant POS"`

	// HTTP server
	HTTPPort       int      `env:"POS_HTTP_PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Auth
	JWTSecret string `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	AnonKey   string `env:"POS_ANON_KEY" envDefault:""`

	// Redis order store
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// SeedCatalog loads the demo menu into an empty catalog on startup.
	SeedCatalog bool `env:"SEED_CATALOG" envDefault:"true"`

	// PostgreSQL payment ledger. Empty host disables the ledger.
	PostgresHost string `env:"POSTGRES_HOST" envDefault:""`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"pos"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:""`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"pos"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Kafka. No brokers disables event publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Payments
	Currency          string        `env:"POS_CURRENCY" envDefault:"USD"`
	PaymentGatewayURL string        `env:"PAYMENT_GATEWAY_URL" envDefault:""`
	SimulatorDelay    time.Duration `env:"PAYMENT_SIMULATOR_DELAY" envDefault:"1500ms"`
	RejectAmount      int64         `env:"PAYMENT_REJECT_AMOUNT" envDefault:"1300"`
	DeclineSuffix     string        `env:"PAYMENT_DECLINE_SUFFIX" envDefault:"0000"`
	AuthorizeTimeout  time.Duration `env:"PAYMENT_AUTHORIZE_TIMEOUT" envDefault:"10s"`
	PayLockTTL        time.Duration `env:"PAYMENT_LOCK_TTL" envDefault:"30s"`
	PaymentRateLimit  float64       `env:"PAYMENT_RATE_LIMIT_RPS" envDefault:"5"`
	PaymentRateBurst  int           `env:"PAYMENT_RATE_LIMIT_BURST" envDefault:"10"`

	Tracing tracing.Config
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load pos config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.Environment != "development" && c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be changed in %q environment", c.Environment)
	}
	c.Currency = strings.ToUpper(c.Currency)
	if len(c.Currency) != 3 {
		return fmt.Errorf("invalid currency code: %q", c.Currency)
	}
	if c.RejectAmount < 0 {
		return fmt.Errorf("invalid reject amount: %d", c.RejectAmount)
	}
	if c.PaymentRateLimit < 0 || c.PaymentRateBurst < 0 {
		return fmt.Errorf("invalid payment rate limit: %v/%d", c.PaymentRateLimit, c.PaymentRateBurst)
	}
	if c.LedgerEnabled() && (c.PostgresPort < 1 || c.PostgresPort > 65535) {
		return fmt.Errorf("invalid Postgres port: %d", c.PostgresPort)
	}
	return nil
}

// LedgerEnabled reports whether a Postgres ledger is configured.
func (c *Config) LedgerEnabled() bool {
	return c.PostgresHost != ""
}

// EventsEnabled reports whether Kafka brokers are configured.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Postgres returns pool settings for the ledger database.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	return pg
}

// Redis returns client settings for the order store.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Addr = c.RedisAddr
	rc.Password = c.RedisPass
	rc.DB = c.RedisDB
	return rc
}
