// Package config loads server configuration from environment variables.
//
// Every setting has a default except JWT_SECRET, so `JWT_SECRET=... server`
// is a complete local setup. Nothing outside this package reads the
// environment: main calls Load once and passes the struct down.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port   int    `env:"PORT,       default=8080"`
	DBPath string `env:"DB_PATH,    default=data/recipes.db"`

	JWTSecret  string        `env:"JWT_SECRET, required"`
	TokenTTL   time.Duration `env:"TOKEN_TTL,  default=24h"`
	BcryptCost int           `env:"BCRYPT_COST, default=12"`

	// MinPasswordLength applies to sign-up and password changes.
	MinPasswordLength int `env:"MIN_PASSWORD_LENGTH, default=5"`

	MediaRoot      string `env:"MEDIA_ROOT,       default=data/media"`
	MediaURL       string `env:"MEDIA_URL,        default=/media/"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES, default=10485760"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`

	// AuthRateLimit throttles /user/create and /user/token per client IP, in
	// requests per second. Zero disables the limit.
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT, default=5"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST, default=10"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For /
	// X-Real-IP. Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS, default=false"`

	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogFormat string `env:"LOG_FORMAT, default=text"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration from an arbitrary lookuper. Tests pass
// envconfig.MapLookuper to avoid touching the real environment.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("config: JWT_SECRET must be at least 16 characters")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.MinPasswordLength < 1 {
		return fmt.Errorf("config: MIN_PASSWORD_LENGTH must be positive")
	}
	if c.AuthRateLimit < 0 {
		return fmt.Errorf("config: AUTH_RATE_LIMIT must not be negative")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive")
	}
	if !strings.HasSuffix(c.MediaURL, "/") {
		c.MediaURL += "/"
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog.Level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
