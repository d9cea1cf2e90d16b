// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Host         string `env:"HOST" envDefault:"127.0.0.1"`
	Port         string `env:"PORT" envDefault:"8080"`
	Database     DatabaseConfig
	Google       GoogleConfig
	APIKey       string   `env:"GSC_API_KEY"`
	CORSOrigins  []string `env:"GSC_CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	RateLimitRPS float64  `env:"GSC_RATE_LIMIT_RPS" envDefault:"5"`
	RateBurst    int      `env:"GSC_RATE_LIMIT_BURST" envDefault:"10"`
	ProviderFile string   `env:"GSC_PROVIDER_FILE"`
	// SweepSchedule is a cron spec for a background sweep of stale pending
	// records. Empty disables it; the inline sweep before each initiate always runs.
	SweepSchedule string `env:"GSC_SWEEP_SCHEDULE"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	DSN          string `env:"POSTGRES_URL"`
	FallbackDSN  string `env:"DATABASE_URL"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
}

// GoogleConfig holds the OAuth client registered with Google.
type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURI  string `env:"GOOGLE_REDIRECT_URI"`
}

// Database drivers selected from the DSN.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("⚠️ Failed to load .env: %v", err)
		}
	}
	return Parse()
}

// Parse builds a Config from the current environment without touching .env.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = cfg.Database.FallbackDSN
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("POSTGRES_URL (or DATABASE_URL) is required"))
	} else if _, err := c.Database.Driver(); err != nil {
		errs = append(errs, err)
	}
	if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required"))
	}
	if c.Google.RedirectURI == "" {
		errs = append(errs, errors.New("GOOGLE_REDIRECT_URI is required"))
	}
	if c.RateLimitRPS <= 0 || c.RateBurst <= 0 {
		errs = append(errs, errors.New("GSC_RATE_LIMIT_RPS and GSC_RATE_LIMIT_BURST must be positive"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Driver infers the database driver from the DSN.
func (d DatabaseConfig) Driver() (string, error) {
	dsn := strings.ToLower(d.DSN)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(dsn, "sqlite:"), strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"):
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database url %q: expected postgres:// or a sqlite file", redactDSN(d.DSN))
	}
}

// SQLitePath strips the "sqlite:" scheme understood by Driver.
func (d DatabaseConfig) SQLitePath() string {
	if strings.HasPrefix(strings.ToLower(d.DSN), "sqlite:") {
		return strings.TrimPrefix(d.DSN[len("sqlite:"):], "//")
	}
	return d.DSN
}

// redactDSN hides credentials embedded in a connection string.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at == -1 || scheme == -1 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
