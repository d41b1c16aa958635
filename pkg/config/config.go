// Package config loads application settings from the environment, with an
// optional .env file, following the teacher's cmd/tarsy/main.go convention
// of loading dotenv non-fatally and validating the resulting struct with
// github.com/go-playground/validator/v10.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every recognized option from spec §6.5. Database connectivity
// is deliberately not part of this struct: it follows the teacher's separate
// database.LoadConfigFromEnv() convention (DB_HOST/DB_PORT/...) instead, the
// same split the teacher's own cmd/tarsy/main.go uses between config.Initialize
// and database.LoadConfigFromEnv.
type Config struct {
	LokiURL   string `validate:"required"`
	CortexURL string `validate:"required"`

	LLMProvider string `validate:"required,oneof=anthropic"`

	AnthropicAPIKey string
	AnthropicModel  string

	Host  string
	Port  int
	Debug bool

	CorrelationWindowSeconds   int `validate:"gte=0"`
	RCAMaxIterations           int `validate:"gt=0"`
	SemanticCorrelationEnabled bool
	CorrelationScoreThreshold  int

	RCAExpertContext     string
	RCAExpertContextFile string

	LogLevel string

	LokiTimeoutSeconds   int `validate:"gt=0"`
	CortexTimeoutSeconds int `validate:"gt=0"`
	ClaudeTimeoutSeconds int `validate:"gt=0"`

	QueryCacheBackend string `validate:"oneof=memory redis"`
	RedisAddr         string
}

// Load reads .env (if present, warning but not failing on absence — matching
// the teacher's main.go), then builds and validates Config from the
// environment.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not load %s: %v\n", envPath, err)
		}
	}

	cfg := &Config{
		LokiURL:                    getEnv("LOKI_URL", "http://localhost:3100"),
		CortexURL:                  getEnv("CORTEX_URL", "http://localhost:9009"),
		LLMProvider:                getEnv("LLM_PROVIDER", "anthropic"),
		AnthropicAPIKey:            getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:             getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		Host:                       getEnv("HOST", "0.0.0.0"),
		Port:                       getEnvInt("PORT", 8000),
		Debug:                      getEnvBool("DEBUG", false),
		CorrelationWindowSeconds:   getEnvInt("CORRELATION_WINDOW_SECONDS", 300),
		RCAMaxIterations:           getEnvInt("RCA_MAX_ITERATIONS", 10),
		SemanticCorrelationEnabled: getEnvBool("SEMANTIC_CORRELATION_ENABLED", true),
		CorrelationScoreThreshold:  getEnvInt("CORRELATION_SCORE_THRESHOLD", 8),
		RCAExpertContext:           getEnv("RCA_EXPERT_CONTEXT", ""),
		RCAExpertContextFile:       getEnv("RCA_EXPERT_CONTEXT_FILE", ""),
		LogLevel:                   getEnv("LOG_LEVEL", "INFO"),
		LokiTimeoutSeconds:         getEnvInt("LOKI_TIMEOUT_SECONDS", 30),
		CortexTimeoutSeconds:       getEnvInt("CORTEX_TIMEOUT_SECONDS", 30),
		ClaudeTimeoutSeconds:       getEnvInt("CLAUDE_TIMEOUT_SECONDS", 120),
		QueryCacheBackend:          getEnv("QUERY_CACHE_BACKEND", "memory"),
		RedisAddr:                  getEnv("REDIS_ADDR", "localhost:6379"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &LoadError{File: envPath, Err: err}
	}
	return cfg, nil
}

// ExpertContext resolves the RCA expert context string, file taking
// precedence over the inline value (spec §6.5, §4.4 prompt assembly step 2).
func (c *Config) ExpertContext() string {
	if path := strings.TrimSpace(c.RCAExpertContextFile); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return strings.TrimSpace(c.RCAExpertContext)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
