package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, "teamboard", cfg.Store.MongoDatabase)
	assert.False(t, cfg.Store.PGNotify)
	assert.Equal(t, uint32(5), cfg.Breaker.MaxFailures)
	assert.Equal(t, 10*time.Second, cfg.Breaker.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, 168*time.Hour, cfg.JWTRefreshExpiry)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ENV", "production")
	t.Setenv("STORE_DRIVER", StorePostgres)
	t.Setenv("PG_NOTIFY", "true")
	t.Setenv("BREAKER_MAX_FAILURES", "3")
	t.Setenv("BREAKER_TIMEOUT", "2s")
	t.Setenv("JWT_ACCESS_EXPIRY", "not-a-duration")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.True(t, cfg.Store.PGNotify)
	assert.Equal(t, uint32(3), cfg.Breaker.MaxFailures)
	assert.Equal(t, 2*time.Second, cfg.Breaker.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_BreakerMaxFailuresOutOfRange(t *testing.T) {
	for _, raw := range []string{"0", "-1", "-4294967295", "4294967296", "many"} {
		t.Run(raw, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "secret")
			t.Setenv("BREAKER_MAX_FAILURES", raw)

			cfg, err := Load()
			require.NoError(t, err)

			assert.Equal(t, uint32(5), cfg.Breaker.MaxFailures)
		})
	}
}

func TestLoad_PanicsWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	assert.Panics(t, func() { _, _ = Load() })
}
