package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "test-secret-at-least-16-chars!!",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/recipes.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5, cfg.MinPasswordLength)
	assert.Equal(t, "/media/", cfg.MediaURL)
	assert.Equal(t, int64(10485760), cfg.MaxUploadBytes)
	assert.Empty(t, cfg.CORSAllowedOrigins)
	assert.Equal(t, 5.0, cfg.AuthRateLimit)
	assert.Equal(t, 10, cfg.AuthRateBurst)
	assert.False(t, cfg.TrustProxyHeaders)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":           "test-secret-at-least-16-chars!!",
		"PORT":                 "9090",
		"TOKEN_TTL":            "15m",
		"MIN_PASSWORD_LENGTH":  "8",
		"MEDIA_URL":            "https://cdn.example.com/media",
		"CORS_ALLOWED_ORIGINS": "http://localhost:3000,https://app.example.com",
		"LOG_LEVEL":            "debug",
		"TRUST_PROXY_HEADERS":  "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 8, cfg.MinPasswordLength)
	assert.Equal(t, "https://cdn.example.com/media/", cfg.MediaURL)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.TrustProxyHeaders)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"short secret", map[string]string{"JWT_SECRET": "short"}},
		{"bad port", map[string]string{"JWT_SECRET": "test-secret-at-least-16-chars!!", "PORT": "70000"}},
		{"negative rate limit", map[string]string{
			"JWT_SECRET": "test-secret-at-least-16-chars!!", "AUTH_RATE_LIMIT": "-1",
		}},
		{"zero password length", map[string]string{
			"JWT_SECRET": "test-secret-at-least-16-chars!!", "MIN_PASSWORD_LENGTH": "0",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(context.Background(), envconfig.MapLookuper(tt.env))
			assert.Error(t, err)
		})
	}
}
