// Package config loads application configuration from environment variables.
// All variables use the RUTEALO_ prefix; LLM settings follow llm.ConfigFromEnv.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/abhisek/rutealo/internal/llm"
)

// DefaultEnvFiles are tried in order by LoadEnvFile("").
var DefaultEnvFiles = []string{".env", "claves.env"}

// Config holds all application configuration.
type Config struct {
	Env    string
	Server ServerConfig
	Store  StoreConfig
	Cache  CacheConfig
	Auth   AuthConfig
	Gen    GenerationConfig
	LLM    llm.Config

	// LLMConfigured is false when no provider was selected or discovered.
	LLMConfigured bool
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Backend string // "mongo" or "sqlite"
	Mongo   MongoConfig
	DBPath  string // sqlite file; empty resolves store.DefaultDBPath
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string
	Database string
	MaxPool  int
	MinPool  int
	Timeout  time.Duration
}

// CacheConfig holds the optional Redis profile cache settings.
type CacheConfig struct {
	URL        string
	ProfileTTL time.Duration
}

// AuthConfig holds bearer authentication settings. An empty secret
// disables authentication unless Required is set.
type AuthConfig struct {
	JWTSecret string
	Required  bool
}

// GenerationConfig holds content generation settings.
type GenerationConfig struct {
	FrameworksFile     string
	MaxSourceChars     int
	MaxExamSourceChars int
}

// Load reads configuration from environment variables with RUTEALO_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Env: envStr("RUTEALO_ENV", "dev"),
		Server: ServerConfig{
			Addr:            envStr("RUTEALO_HTTP_ADDR", ":8080"),
			ReadTimeout:     envDuration("RUTEALO_HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    envDuration("RUTEALO_HTTP_WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:     envDuration("RUTEALO_HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: envDuration("RUTEALO_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     envList("RUTEALO_CORS_ORIGINS"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(envStr("RUTEALO_STORE", "sqlite")),
			Mongo: MongoConfig{
				URI:      envStr("RUTEALO_MONGO_URI", ""),
				Database: envStr("RUTEALO_MONGO_DB", "rutealo"),
				MaxPool:  envInt("RUTEALO_MONGO_MAX_POOL", 50),
				MinPool:  envInt("RUTEALO_MONGO_MIN_POOL", 10),
				Timeout:  envDuration("RUTEALO_MONGO_TIMEOUT", 5*time.Second),
			},
			DBPath: envStr("RUTEALO_DB", ""),
		},
		Cache: CacheConfig{
			URL:        envStr("RUTEALO_REDIS_URL", ""),
			ProfileTTL: envDuration("RUTEALO_PROFILE_CACHE_TTL", 10*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: envStr("RUTEALO_JWT_SECRET", ""),
			Required:  envBool("RUTEALO_AUTH_REQUIRED", false),
		},
		Gen: GenerationConfig{
			FrameworksFile:     envStr("RUTEALO_FRAMEWORKS_FILE", ""),
			MaxSourceChars:     envInt("RUTEALO_MAX_SOURCE_CHARS", 8000),
			MaxExamSourceChars: envInt("RUTEALO_MAX_EXAM_SOURCE_CHARS", 15000),
		},
	}

	cfg.LLM = llm.ConfigFromEnv()
	cfg.LLMConfigured = os.Getenv("RUTEALO_LLM_PROVIDER") != "" || cfg.LLM.Validate() == nil
	if !cfg.LLMConfigured {
		if discovered, ok := llm.DiscoverConfig(); ok {
			discovered.Retry = cfg.LLM.Retry
			cfg.LLM = discovered
			cfg.LLMConfigured = true
		}
	}

	return cfg, nil
}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "mongo":
		if c.Store.Mongo.URI == "" {
			return fmt.Errorf("RUTEALO_MONGO_URI is required when RUTEALO_STORE=mongo")
		}
		if c.Store.Mongo.MinPool > c.Store.Mongo.MaxPool {
			return fmt.Errorf("RUTEALO_MONGO_MIN_POOL (%d) exceeds RUTEALO_MONGO_MAX_POOL (%d)",
				c.Store.Mongo.MinPool, c.Store.Mongo.MaxPool)
		}
	case "sqlite":
	default:
		return fmt.Errorf("RUTEALO_STORE must be 'mongo' or 'sqlite', got %q", c.Store.Backend)
	}

	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return fmt.Errorf("RUTEALO_JWT_SECRET is required when RUTEALO_AUTH_REQUIRED is set")
	}

	if c.Gen.MaxSourceChars <= 0 || c.Gen.MaxExamSourceChars <= 0 {
		return fmt.Errorf("source character limits must be positive")
	}

	if c.LLMConfigured {
		if err := c.LLM.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsProd reports whether the service runs in production mode.
func (c *Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// LoadEnvFile loads variables from path into the process environment
// without overriding variables already set. An empty path tries
// DefaultEnvFiles and loads the first that exists. A missing file is not an
// error; it reports the file loaded, if any.
func LoadEnvFile(path string) (string, error) {
	candidates := DefaultEnvFiles
	if path != "" {
		candidates = []string{path}
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return "", fmt.Errorf("load env file %s: %w", p, err)
		}
		return p, nil
	}
	return "", nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
