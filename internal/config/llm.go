package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/the-data-must-flow/internal/common"
	"github.com/Veraticus/the-data-must-flow/internal/llm"
	"github.com/spf13/viper"
)

// LoadLLMConfig builds the LLM client configuration. It follows this precedence:
// 1. Viper configuration (config file, MENTAT_ env vars, bound flags)
// 2. Provider environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY)
// 3. Default values
//
// A missing API key is a configuration error.
func LoadLLMConfig(v *viper.Viper) (llm.Config, error) {
	cfg := llm.Config{
		Provider:  strings.ToLower(v.GetString("llm.provider")),
		APIKey:    v.GetString("llm.api_key"),
		Model:     v.GetString("llm.model"),
		BaseURL:   v.GetString("llm.base_url"),
		Timeout:   v.GetDuration("llm.timeout"),
		CacheTTL:  v.GetDuration("llm.cache_ttl"),
		MaxTokens: v.GetInt("llm.max_tokens"),
	}

	if cfg.Provider == "" {
		cfg.Provider = "anthropic"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = llm.DefaultTimeout
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = llm.DefaultMaxTokens
	}
	// An explicit 0 is a valid temperature, so only a set key overrides the default
	if v.IsSet("llm.temperature") {
		cfg.Temperature = llm.Float(v.GetFloat64("llm.temperature"))
	}

	var envKey string
	switch cfg.Provider {
	case "anthropic":
		envKey = "ANTHROPIC_API_KEY"
		if cfg.Model == "" {
			cfg.Model = llm.DefaultModel
		}
	case "openai":
		envKey = "OPENAI_API_KEY"
	default:
		return llm.Config{}, fmt.Errorf("%w: unsupported LLM provider %q", common.ErrInvalidConfig, cfg.Provider)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(envKey)
	}
	if cfg.APIKey == "" {
		return llm.Config{}, common.NewUserError(
			fmt.Sprintf("%s API key not found in config, --api-key, or %s", cfg.Provider, envKey),
			common.ErrMissingConfig,
		)
	}

	return cfg, nil
}

// DefaultCacheTTL is used when llm.cache_ttl is not configured.
const DefaultCacheTTL = time.Hour
