// Package config loads the engine's application-level configuration:
// database connection, LLM provider credentials, the background executor's
// tuning knobs, and the HTTP server's listen address. Grounded on the
// teacher's env-var-plus-validation idiom (pkg/database's
// LoadConfigFromEnv/Validate, which Load calls for the database section,
// extended here to the whole process rather than just the database).
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/scotty-git/sidelinescott-sub003/pkg/database"
)

// Config is the fully resolved process configuration.
type Config struct {
	Database database.Config

	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultProvider string

	ExecutorWorkers   int
	ExecutorQueueSize int

	RedisEnabled bool
	RedisAddr    string

	TracingEnabled bool

	ServerAddr string
}

// Load reads a .env file if present (ignored if absent — production
// deployments set real environment variables instead) then resolves
// Config from the environment, applying defaults and validating.
func Load() (Config, error) {
	_ = godotenv.Load()

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return Config{}, fmt.Errorf("invalid database configuration: %w", err)
	}

	cfg := Config{
		Database:          dbCfg,
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		DefaultProvider:   getEnvOrDefault("DEFAULT_LLM_PROVIDER", "anthropic"),
		ExecutorWorkers:   getEnvIntOrDefault("EXECUTOR_WORKERS", 5),
		ExecutorQueueSize: getEnvIntOrDefault("EXECUTOR_QUEUE_SIZE", 100),
		RedisEnabled:      getEnvOrDefault("REDIS_ENABLED", "false") == "true",
		RedisAddr:         getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		TracingEnabled:    getEnvOrDefault("TRACING_ENABLED", "false") == "true",
		ServerAddr:        getEnvOrDefault("SERVER_ADDR", ":8080"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the resolved configuration for internal consistency.
func (c Config) Validate() error {
	if c.AnthropicAPIKey == "" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("at least one of ANTHROPIC_API_KEY or OPENAI_API_KEY is required")
	}
	if c.DefaultProvider != "anthropic" && c.DefaultProvider != "openai" {
		return fmt.Errorf("DEFAULT_LLM_PROVIDER must be \"anthropic\" or \"openai\", got %q", c.DefaultProvider)
	}
	if c.DefaultProvider == "anthropic" && c.AnthropicAPIKey == "" {
		return fmt.Errorf("DEFAULT_LLM_PROVIDER is anthropic but ANTHROPIC_API_KEY is unset")
	}
	if c.DefaultProvider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("DEFAULT_LLM_PROVIDER is openai but OPENAI_API_KEY is unset")
	}
	if c.ExecutorWorkers < 1 {
		return fmt.Errorf("EXECUTOR_WORKERS must be at least 1")
	}
	if c.ExecutorQueueSize < 1 {
		return fmt.Errorf("EXECUTOR_QUEUE_SIZE must be at least 1")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
