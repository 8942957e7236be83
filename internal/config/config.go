package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password", "dev-openclaw-pairing-secret",
}

type Config struct {
	Port                     int    `env:"PORT" envDefault:"8080"`
	DatabaseDriver           string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL              string `env:"DATABASE_URL,required"`
	RedisURL                 string `env:"REDIS_URL"`
	PairingSecret            string `env:"PAIRING_SECRET"`
	OperatorPasswordHash     string `env:"OPERATOR_PASSWORD_HASH"`
	PairingRequestTTLSeconds int    `env:"PAIRING_REQUEST_TTL_SECONDS" envDefault:"300"`
	PairingCodeTTLSeconds    int    `env:"PAIRING_CODE_TTL_SECONDS" envDefault:"600"`
	PairingMaxClaims         int    `env:"PAIRING_MAX_CLAIMS" envDefault:"1"`
	SessionTTLSeconds        int    `env:"SESSION_TTL_SECONDS" envDefault:"604800"`
	RelayTimeoutSeconds      int    `env:"RELAY_TIMEOUT_SECONDS" envDefault:"70"`
	RelayIdleTimeoutSeconds  int    `env:"RELAY_IDLE_TIMEOUT_SECONDS" envDefault:"20"`
	DefaultAgentName         string `env:"DEFAULT_AGENT_NAME" envDefault:"web-shimeji-1"`
	SweepIntervalSeconds     int    `env:"SWEEP_INTERVAL_SECONDS" envDefault:"0"`
	ClaimRateLimitPerMin     int    `env:"CLAIM_RATE_LIMIT_PER_MIN" envDefault:"20"`
	LogLevel                 string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) RelayTimeout() time.Duration {
	if c.RelayTimeoutSeconds <= 0 {
		return RelayTimeoutDefault
	}
	return time.Duration(c.RelayTimeoutSeconds) * time.Second
}

func (c *Config) RelayIdleTimeout() time.Duration {
	if c.RelayIdleTimeoutSeconds <= 0 {
		return RelayIdleTimeoutDefault
	}
	return time.Duration(c.RelayIdleTimeoutSeconds) * time.Second
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver)
	}

	if c.OperatorPasswordHash != "" {
		if !strings.HasPrefix(c.OperatorPasswordHash, "$2a$") &&
			!strings.HasPrefix(c.OperatorPasswordHash, "$2b$") &&
			!strings.HasPrefix(c.OperatorPasswordHash, "$2y$") {
			return fmt.Errorf("OPERATOR_PASSWORD_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <password>)")
		}
	}

	if isProduction {
		if err := validateSecret("PAIRING_SECRET", c.PairingSecret); err != nil {
			return err
		}
		if c.OperatorPasswordHash == "" {
			log.Warn().Msg("OPERATOR_PASSWORD_HASH is empty in production: direct pairing code issuance disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	} else if c.PairingSecret == "" {
		log.Warn().Msg("PAIRING_SECRET is empty: using an insecure development secret")
		c.PairingSecret = "dev-openclaw-pairing-secret"
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
