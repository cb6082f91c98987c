// Package config loads application configuration from a config file,
// environment variables, and defaults, in that order of precedence.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application. The values are read by
// viper from a config file or CORT_* environment variables.
type Config struct {
	// Provider selects the model backend: openai, claude, deepseek, gemini,
	// or local.
	Provider string `mapstructure:"provider"`

	// Model overrides the backend's default model.
	Model string `mapstructure:"model"`

	// APIBase overrides the endpoint for OpenAI-compatible backends.
	APIBase string `mapstructure:"api_base"`

	// OpenRouter routes calls through OpenRouter instead of the native API.
	OpenRouter bool `mapstructure:"openrouter"`

	// Alternatives is the number of competing answers per thinking round.
	Alternatives int `mapstructure:"alternatives"`

	// ResponsesDir is where per-turn markdown exports land.
	ResponsesDir string `mapstructure:"responses_dir"`

	// Debug enables verbose engine logging.
	Debug bool `mapstructure:"debug"`

	// TraceEnabled enables OpenTelemetry tracing of thinking turns.
	TraceEnabled bool `mapstructure:"trace_enabled"`
}

var validProviders = map[string]bool{
	"openai":   true,
	"claude":   true,
	"deepseek": true,
	"gemini":   true,
	"local":    true,
}

// Load reads configuration from the given file (or from cort.yaml discovered
// in the working directory when empty) and from CORT_* environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/cort")
		v.SetConfigName("cort")
		v.SetConfigType("yaml")
	}

	v.SetDefault("provider", "openai")
	v.SetDefault("model", "")
	v.SetDefault("api_base", "")
	v.SetDefault("openrouter", false)
	v.SetDefault("alternatives", 3)
	v.SetDefault("responses_dir", "responses")
	v.SetDefault("debug", false)
	v.SetDefault("trace_enabled", false)

	v.SetEnvPrefix("CORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A discovered config file is optional: defaults plus env cover
		// everything. An explicitly named one must exist.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unusable values before any session is constructed.
func (c *Config) Validate() error {
	if !validProviders[c.Provider] {
		return errors.New("unknown provider " + c.Provider)
	}
	if c.Alternatives < 1 {
		return errors.New("alternatives must be at least 1")
	}
	return nil
}
