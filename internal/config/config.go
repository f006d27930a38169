// Package config holds the service configuration, loaded once at startup
// from environment variables and treated as immutable afterwards.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const minSecretLength = 32

// Config is the full runtime configuration of the identity backend.
type Config struct {
	// Server
	ListenAddr string `env:"AUTHLINE_LISTEN_ADDR" envDefault:":8080"`

	// Database
	DatabaseURL   string `env:"AUTHLINE_PG_DSN,required"`
	RunMigrations bool   `env:"AUTHLINE_RUN_MIGRATIONS" envDefault:"true"`

	// Tokens
	JWTSecret        string `env:"AUTHLINE_JWT_SECRET,required"`
	JWTIssuer        string `env:"AUTHLINE_JWT_ISSUER" envDefault:"authline"`
	AccessTTLMillis  int64  `env:"AUTHLINE_ACCESS_TTL_MS" envDefault:"900000"`
	RefreshTTLMillis int64  `env:"AUTHLINE_REFRESH_TTL_MS" envDefault:"2592000000"`

	// Credentials
	BcryptCost int `env:"AUTHLINE_BCRYPT_COST" envDefault:"10"`

	// HTTP limits
	RateBurst    int   `env:"AUTHLINE_RATE_BURST" envDefault:"20"`
	RatePerSec   int   `env:"AUTHLINE_RATE_PER_SEC" envDefault:"10"`
	MaxBodyBytes int64 `env:"AUTHLINE_MAX_BODY_BYTES" envDefault:"1048576"`

	// Expired refresh token sweep
	SweepInterval time.Duration `env:"AUTHLINE_TOKEN_SWEEP_INTERVAL" envDefault:"1h"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("AUTHLINE_JWT_SECRET must be at least %d bytes", minSecretLength)
	}
	if c.AccessTTLMillis <= 0 {
		return fmt.Errorf("AUTHLINE_ACCESS_TTL_MS must be positive, got %d", c.AccessTTLMillis)
	}
	if c.RefreshTTLMillis <= c.AccessTTLMillis {
		return fmt.Errorf("AUTHLINE_REFRESH_TTL_MS must exceed the access TTL")
	}
	if c.RatePerSec <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}

// AccessTTL returns the access token lifetime as a duration.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMillis) * time.Millisecond
}

// RefreshTTL returns the refresh token lifetime as a duration.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLMillis) * time.Millisecond
}
