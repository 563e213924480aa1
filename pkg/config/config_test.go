package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "https://api-web.nhle.com/v1", cfg.NHLAPIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.ExternalAPITimeout)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiration)
	assert.Equal(t, 0.35, cfg.Tuning().BlendWeight)
	assert.Equal(t, 5, cfg.MinGamesPlayed)
	assert.Equal(t, 130, cfg.ValuePickThreshold)
	assert.Equal(t, 2, cfg.FreeMatchLimit)
	assert.Equal(t, 3, cfg.FreePlayersPerMatch)
	assert.Equal(t, 5, cfg.PremiumPlayersPerMatch)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CorsOrigins)
	assert.Equal(t, 5*time.Minute, cfg.DashboardCacheTTL())
	assert.False(t, cfg.StripeEnabled())
	assert.False(t, cfg.TelegramEnabled())
	assert.False(t, cfg.TwilioEnabled())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PROJECTION_BLEND_WEIGHT", "0.5")
	t.Setenv("CORS_ORIGINS", "https://cortex.example, https://www.cortex.example")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 0.5, cfg.Tuning().BlendWeight)
	assert.Equal(t, []string{"https://cortex.example", "https://www.cortex.example"}, cfg.CorsOrigins)
	assert.Equal(t, int64(-100123), cfg.TelegramChatID)
	assert.True(t, cfg.TelegramEnabled())
}

func TestValidate(t *testing.T) {
	base := Config{
		Env:                    "development",
		JWTSecret:              "your-secret-key",
		JWTExpiration:          24 * time.Hour,
		ProjectionBlendWeight:  0.35,
		NHLRateLimit:           2,
		FreeMatchLimit:         2,
		FreePlayersPerMatch:    3,
		PremiumPlayersPerMatch: 5,
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"blend weight above one", func(c *Config) { c.ProjectionBlendWeight = 1.2 }},
		{"negative blend weight", func(c *Config) { c.ProjectionBlendWeight = -0.1 }},
		{"zero rate limit", func(c *Config) { c.NHLRateLimit = 0 }},
		{"no premium players", func(c *Config) { c.PremiumPlayersPerMatch = 0 }},
		{"default secret in production", func(c *Config) { c.Env = "production" }},
		{"no token lifetime", func(c *Config) { c.JWTExpiration = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
