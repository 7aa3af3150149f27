// Package config loads runtime configuration from an optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultAppName        = "EvasionWatch"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultSessionTTL     = 12 * time.Hour
	defaultCodeTTL        = 72 * time.Hour
	defaultBcryptCost     = 12
	defaultLoginRate      = 5
	defaultSMTPPort       = 465
)

// Config captures application runtime configuration.
type Config struct {
	AppName  string `mapstructure:"APP_NAME"`
	AppEnv   string `mapstructure:"APP_ENV"`
	Port     string `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// DatabaseURL selects the Postgres backend. SQLitePath is used when it is empty.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	ShutdownPeriod time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	IdempotencyTTL time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	SessionSecret  string        `mapstructure:"SESSION_SECRET"`
	CodeTTL        time.Duration `mapstructure:"CODE_TTL"`
	BcryptCost     int           `mapstructure:"BCRYPT_COST"`
	LoginRate      int           `mapstructure:"LOGIN_RATE_PER_MIN"`
	AdminUsers     string        `mapstructure:"ADMIN_USERS"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
}

// Load reads .env (if present), then the environment, and validates the result.
// Environment variables override values from .env.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("APP_NAME", defaultAppName)
	v.SetDefault("APP_ENV", defaultAppEnv)
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownDelay)
	v.SetDefault("IDEMPOTENCY_TTL", defaultIdempotencyTTL)
	v.SetDefault("SESSION_TTL", defaultSessionTTL)
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("CODE_TTL", defaultCodeTTL)
	v.SetDefault("BCRYPT_COST", defaultBcryptCost)
	v.SetDefault("LOGIN_RATE_PER_MIN", defaultLoginRate)
	v.SetDefault("ADMIN_USERS", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", defaultSMTPPort)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants that cannot be expressed as defaults.
func (c Config) Validate() error {
	if c.SessionSecret == "" {
		if !c.IsDev() {
			return errors.New("SESSION_SECRET must be set")
		}
	} else if len(c.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 bytes")
	}

	if !c.IsDev() {
		if c.DatabaseURL == "" && c.SQLitePath == "" {
			return fmt.Errorf("DATABASE_URL or SQLITE_PATH must be set when APP_ENV=%s", c.AppEnv)
		}
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST must be set when APP_ENV=%s", c.AppEnv)
		}
	}

	if c.SMTPHost != "" && c.SMTPFrom == "" {
		return errors.New("SMTP_FROM must be set when SMTP_HOST is configured")
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("BCRYPT_COST must be between 4 and 31")
	}
	if c.CodeTTL <= 0 {
		return errors.New("CODE_TTL must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the application runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Admins returns the usernames allowed to read the audit trail.
func (c Config) Admins() []string {
	if c.AdminUsers == "" {
		return nil
	}
	parts := strings.Split(c.AdminUsers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
