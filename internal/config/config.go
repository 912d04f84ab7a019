package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kapu/reader-sim-go/internal/constants"
	"github.com/kapu/reader-sim-go/internal/domain"
)

type Config struct {
	LLM      LLMConfig
	MCP      MCPConfig
	Features FeatureConfig
	Pipeline PipelineConfig
	Personas PersonaConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Archive  ArchiveConfig
	Postgres PostgresConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

type LLMConfig struct {
	APIURL           string
	APIKey           string
	Model            string
	Provider         string
	Timeout          time.Duration
	Language         domain.Language
	RetryMaxAttempts int
}

type MCPConfig struct {
	URL     string
	Timeout time.Duration
}

// FeatureConfig keeps the tri-state of each tool flag: nil means unknown.
type FeatureConfig struct {
	BrowserSearch *bool
	DatabaseQuery *bool
}

type PipelineConfig struct {
	Concurrency          int
	ResetDelay           time.Duration
	ScoreFallback        string
	SufficiencyHeuristic bool
	AbortOnAuthFailure   bool
}

type PersonaConfig struct {
	File string
}

type CacheConfig struct {
	Backend string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type ArchiveConfig struct {
	Enabled bool
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type ServerConfig struct {
	Addr string
}

type LoggingConfig struct {
	Level string
	File  string
}

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"

	ScoreFallbackRandom = "random"
	ScoreFallbackFixed  = "fixed"
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LLM: LLMConfig{
			APIURL:           getEnv("LLM_API_URL", constants.LLMDefaults.APIURL),
			APIKey:           getEnv("LLM_API_KEY", ""),
			Model:            getEnv("LLM_MODEL", constants.LLMDefaults.Model),
			Provider:         strings.ToLower(getEnv("LLM_PROVIDER", constants.LLMDefaults.Provider)),
			Timeout:          getEnvDuration("LLM_TIMEOUT", constants.LLMDefaults.Timeout),
			Language:         domain.ParseLanguage(getEnv("LANGUAGE", "en")),
			RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", constants.RetryConfig.MaxAttempts),
		},
		MCP: MCPConfig{
			URL:     getEnv("MCP_URL", constants.MCPDefaults.URL),
			Timeout: getEnvDuration("MCP_TIMEOUT", constants.MCPDefaults.Timeout),
		},
		Features: FeatureConfig{
			BrowserSearch: getEnvOptionalBool("FEATURE_BROWSER_SEARCH"),
			DatabaseQuery: getEnvOptionalBool("FEATURE_DATABASE_QUERY"),
		},
		Pipeline: PipelineConfig{
			Concurrency:   getEnvInt("PIPELINE_CONCURRENCY", constants.PipelineConfig.Concurrency),
			ResetDelay:    getEnvDuration("PROGRESS_RESET_DELAY", constants.PipelineConfig.ResetDelay),
			ScoreFallback: strings.ToLower(getEnv("SCORE_FALLBACK", ScoreFallbackRandom)),

			SufficiencyHeuristic: getEnvBool("SUFFICIENCY_HEURISTIC", false),
			AbortOnAuthFailure:   getEnvBool("ABORT_ON_AUTH_FAILURE", true),
		},
		Personas: PersonaConfig{
			File: getEnv("PERSONAS_FILE", ""),
		},
		Cache: CacheConfig{
			Backend: strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendMemory)),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Archive: ArchiveConfig{
			Enabled: getEnvBool("ARCHIVE_ENABLED", false),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "readersim"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "readersim"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Server: ServerConfig{
			Addr: getEnv("SERVER_ADDR", constants.ServerConfig.Addr),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.LLM.APIURL == "" {
		return fmt.Errorf("LLM_API_URL is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("LLM_PROVIDER must be openai or gemini, got %q", c.LLM.Provider)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if c.LLM.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("PIPELINE_CONCURRENCY must be at least 1")
	}
	if c.Pipeline.ResetDelay < 0 {
		return fmt.Errorf("PROGRESS_RESET_DELAY must not be negative")
	}
	switch c.Pipeline.ScoreFallback {
	case ScoreFallbackRandom, ScoreFallbackFixed:
	default:
		return fmt.Errorf("SCORE_FALLBACK must be random or fixed, got %q", c.Pipeline.ScoreFallback)
	}
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendNone:
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory, redis or none, got %q", c.Cache.Backend)
	}
	if c.Archive.Enabled && c.Postgres.Database == "" {
		return fmt.Errorf("POSTGRES_DB is required when ARCHIVE_ENABLED is set")
	}
	return nil
}

// DomainLLMConfig builds the per-run configuration handed to the pipeline.
func (c *Config) DomainLLMConfig() domain.LLMConfig {
	return domain.LLMConfig{
		APIURL:   c.LLM.APIURL,
		APIKey:   c.LLM.APIKey,
		Model:    c.LLM.Model,
		Provider: c.LLM.Provider,
		MCPURL:   c.MCP.URL,
		Language: c.LLM.Language,
		FeatureStatus: domain.FeatureStatus{
			BrowserSearch: c.Features.BrowserSearch,
			DatabaseQuery: c.Features.DatabaseQuery,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvOptionalBool(key string) *bool {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return nil
	}
	return &boolVal
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
