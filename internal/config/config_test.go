package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medplatform/orders/internal/config"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		prev, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, prev)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "ENV", "PORT", "MONGO_URI", "TOKEN_SIGNING_SECRET")
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.False(t, cfg.IsProd())
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearEnv(t, "ENV", "PORT")
	require.NoError(t, os.Setenv("PORT", "9090"))
	defer os.Unsetenv("PORT")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoadProdRequiresExplicitSecret(t *testing.T) {
	clearEnv(t, "ENV", "TOKEN_SIGNING_SECRET")
	require.NoError(t, os.Setenv("ENV", "prod"))
	defer os.Unsetenv("ENV")

	_, err := config.Load()
	assert.Error(t, err, "prod env with the dev-only default secret must fail validation")
}

func TestLoadProdSucceedsWithExplicitSecret(t *testing.T) {
	clearEnv(t, "ENV", "TOKEN_SIGNING_SECRET", "MONGO_URI", "REDIS_ADDR", "AMQP_URI")
	require.NoError(t, os.Setenv("ENV", "prod"))
	require.NoError(t, os.Setenv("TOKEN_SIGNING_SECRET", "a-very-long-explicit-production-secret-value"))
	require.NoError(t, os.Setenv("MONGO_URI", "mongodb://prod-host:27017"))
	require.NoError(t, os.Setenv("REDIS_ADDR", "prod-redis:6379"))
	require.NoError(t, os.Setenv("AMQP_URI", "amqp://prod-host:5672/"))
	defer func() {
		os.Unsetenv("ENV")
		os.Unsetenv("TOKEN_SIGNING_SECRET")
		os.Unsetenv("MONGO_URI")
		os.Unsetenv("REDIS_ADDR")
		os.Unsetenv("AMQP_URI")
	}()

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
}
