package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so host settings don't leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"RUTEALO_ENV",
		"RUTEALO_HTTP_ADDR",
		"RUTEALO_STORE",
		"RUTEALO_MONGO_URI",
		"RUTEALO_MONGO_DB",
		"RUTEALO_MONGO_MAX_POOL",
		"RUTEALO_MONGO_MIN_POOL",
		"RUTEALO_MONGO_TIMEOUT",
		"RUTEALO_DB",
		"RUTEALO_REDIS_URL",
		"RUTEALO_PROFILE_CACHE_TTL",
		"RUTEALO_JWT_SECRET",
		"RUTEALO_AUTH_REQUIRED",
		"RUTEALO_CORS_ORIGINS",
		"RUTEALO_FRAMEWORKS_FILE",
		"RUTEALO_MAX_SOURCE_CHARS",
		"RUTEALO_MAX_EXAM_SOURCE_CHARS",
		"RUTEALO_LLM_PROVIDER",
		"RUTEALO_GEMINI_API_KEY",
		"GEMINI_API_KEY",
		"OPENAI_API_KEY",
		"ANTHROPIC_API_KEY",
		"OPENROUTER_API_KEY",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "rutealo", cfg.Store.Mongo.Database)
	assert.Equal(t, 50, cfg.Store.Mongo.MaxPool)
	assert.Equal(t, 10, cfg.Store.Mongo.MinPool)
	assert.Equal(t, 5*time.Second, cfg.Store.Mongo.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Cache.ProfileTTL)
	assert.Equal(t, 8000, cfg.Gen.MaxSourceChars)
	assert.Equal(t, 15000, cfg.Gen.MaxExamSourceChars)
	assert.Empty(t, cfg.Server.CORSOrigins)
	assert.False(t, cfg.LLMConfigured)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RUTEALO_ENV", "prod")
	t.Setenv("RUTEALO_STORE", "Mongo")
	t.Setenv("RUTEALO_MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("RUTEALO_MONGO_MAX_POOL", "20")
	t.Setenv("RUTEALO_MONGO_TIMEOUT", "2s")
	t.Setenv("RUTEALO_CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("RUTEALO_AUTH_REQUIRED", "true")
	t.Setenv("RUTEALO_JWT_SECRET", "s3cret")
	t.Setenv("RUTEALO_MAX_SOURCE_CHARS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, "mongo", cfg.Store.Backend)
	assert.Equal(t, 20, cfg.Store.Mongo.MaxPool)
	assert.Equal(t, 2*time.Second, cfg.Store.Mongo.Timeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Auth.Required)
	assert.Equal(t, 8000, cfg.Gen.MaxSourceChars, "unparsable values keep the default")
	assert.NoError(t, cfg.Validate())
}

func TestLoadDiscoversProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("RUTEALO_LLM_MAX_ATTEMPTS", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.LLMConfigured)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 4, cfg.LLM.Retry.MaxAttempts, "retry settings survive discovery")
}

func TestLoadExplicitProviderMustValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("RUTEALO_LLM_PROVIDER", "anthropic")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.LLMConfigured)
	assert.Error(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store.Backend = "postgres" }},
		{"mongo without uri", func(c *Config) { c.Store.Backend = "mongo" }},
		{"pool inverted", func(c *Config) {
			c.Store.Backend = "mongo"
			c.Store.Mongo.URI = "mongodb://x"
			c.Store.Mongo.MinPool = 100
		}},
		{"auth without secret", func(c *Config) { c.Auth.Required = true }},
		{"zero source chars", func(c *Config) { c.Gen.MaxSourceChars = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	// Blank variables count as set; godotenv only fills absent ones.
	os.Unsetenv("RUTEALO_HTTP_ADDR")
	dir := t.TempDir()
	path := filepath.Join(dir, "claves.env")
	require.NoError(t, os.WriteFile(path, []byte("RUTEALO_HTTP_ADDR=:9090\nRUTEALO_MONGO_DB=from_file\n"), 0o600))
	t.Setenv("RUTEALO_MONGO_DB", "from_env")

	loaded, err := LoadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, loaded)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "from_env", cfg.Store.Mongo.Database, "existing variables win")

	loaded, err = LoadEnvFile(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
