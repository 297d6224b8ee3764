package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scotty-git/sidelinescott-sub003/pkg/database"
)

func validConfig() Config {
	return Config{
		Database:          database.Config{Password: "x", MaxOpenConns: 10, MaxIdleConns: 5},
		AnthropicAPIKey:   "sk-ant-test",
		DefaultProvider:   "anthropic",
		ExecutorWorkers:   5,
		ExecutorQueueSize: 100,
	}
}

func TestValidateRequiresAtLeastOneProviderKey(t *testing.T) {
	cfg := validConfig()
	cfg.AnthropicAPIKey = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownDefaultProvider(t *testing.T) {
	cfg := validConfig()
	cfg.DefaultProvider = "gemini"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMismatchedDefaultProviderKey(t *testing.T) {
	cfg := validConfig()
	cfg.DefaultProvider = "openai"
	cfg.OpenAIAPIKey = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroExecutorWorkers(t *testing.T) {
	cfg := validConfig()
	cfg.ExecutorWorkers = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}
