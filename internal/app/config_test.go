package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	skipFlags = true
}

func TestLoadTerminalConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := LoadTerminalConfig()
	require.NoError(t, err)

	assert.Equal(t, defaultTerminalAddr, cfg.Addr)
	assert.Equal(t, "http://localhost:8081", cfg.Backend.URL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "default", cfg.RegisterID)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)

	rate, err := cfg.taxRate()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.10").Equal(rate))
}

func TestLoadTerminalConfig_Env(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("KART_TAX_RATE", "0.2")
	t.Setenv("KART_BACKEND_URL", "http://orders:9000")
	t.Setenv("KART_REDIS_ADDR", "redis:6379")

	cfg, err := LoadTerminalConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://orders:9000", cfg.Backend.URL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	rate, err := cfg.taxRate()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.2").Equal(rate))
}

func TestLoadTerminalConfig_InvalidTaxRate(t *testing.T) {
	tests := []struct {
		name string
		rate string
		want string
	}{
		{name: "not a number", rate: "ten", want: "parse tax rate"},
		{name: "negative", rate: "-0.1", want: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("KART_TAX_RATE", tt.rate)
			_, err := LoadTerminalConfig()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadBackendConfig(t *testing.T) {
	t.Run("database url required", func(t *testing.T) {
		t.Setenv("KART_DATABASE_URL", "")
		t.Setenv("DATABASE_URL", "")
		_, err := LoadBackendConfig()
		assert.ErrorContains(t, err, "database URL is required")
	})

	t.Run("platform defaults", func(t *testing.T) {
		t.Setenv("KART_DATABASE_URL", "")
		t.Setenv("DATABASE_URL", "postgres://kart@db/kart")
		t.Setenv("PORT", "9090")

		cfg, err := LoadBackendConfig()
		require.NoError(t, err)
		assert.Equal(t, "postgres://kart@db/kart", cfg.DatabaseURL)
		assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
	})

	t.Run("explicit addr wins over PORT", func(t *testing.T) {
		t.Setenv("KART_DATABASE_URL", "postgres://kart@db/kart")
		t.Setenv("KART_ADDR", "127.0.0.1:7000")
		t.Setenv("PORT", "9090")

		cfg, err := LoadBackendConfig()
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	})
}
