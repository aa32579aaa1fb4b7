package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read through viper.
const EnvPrefix = "PENNYWISE"

// Provider-specific API key variables consulted when llm.api_key is unset.
var providerKeyEnv = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

// Settings is the resolved application configuration.
type Settings struct {
	Database DatabaseSettings `mapstructure:"database"`
	Logging  LoggingSettings  `mapstructure:"logging"`
	Rules    RulesSettings    `mapstructure:"rules"`
	LLM      LLMSettings      `mapstructure:"llm"`
	Sweep    SweepSettings    `mapstructure:"sweep"`
	Engine   EngineSettings   `mapstructure:"engine"`
}

// DatabaseSettings configures storage.
type DatabaseSettings struct {
	Path string `mapstructure:"path"`
}

// LLMSettings configures the classification backend.
type LLMSettings struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	MaxRetries int           `mapstructure:"max_retries"`
	RateLimit  int           `mapstructure:"rate_limit"`
	// Sampling settings passed to the provider. Zero MaxTokens means the
	// provider client's default.
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// SweepSettings configures re-categorization sweeps.
type SweepSettings struct {
	Workers int `mapstructure:"workers"`
}

// RulesSettings locates an optional keyword table file.
type RulesSettings struct {
	Keywords string `mapstructure:"keywords"`
}

// EngineSettings configures the categorization engine.
type EngineSettings struct {
	StrictOverrides bool `mapstructure:"strict_overrides"`
}

// LoggingSettings configures the default logger.
type LoggingSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every known key so that environment overrides apply.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 20*time.Second)
	v.SetDefault("llm.cache_ttl", 24*time.Hour)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("sweep.workers", 4)
	v.SetDefault("rules.keywords", "")
	v.SetDefault("engine.strict_overrides", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// BindEnv makes PENNYWISE_LLM_API_KEY style variables override config keys.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load resolves settings from v, applying API key fallbacks and expanding paths.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	s.LLM.Provider = strings.ToLower(strings.TrimSpace(s.LLM.Provider))
	if s.LLM.APIKey == "" {
		if env, ok := providerKeyEnv[s.LLM.Provider]; ok {
			s.LLM.APIKey = os.Getenv(env)
		}
	}

	if s.Database.Path == "" {
		s.Database.Path = DefaultDatabasePath()
	}
	s.Database.Path = ExpandPath(s.Database.Path)
	s.Rules.Keywords = ExpandPath(s.Rules.Keywords)

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	if _, ok := providerKeyEnv[s.LLM.Provider]; !ok && s.LLM.Provider != "" {
		return fmt.Errorf("%w: unsupported llm.provider %q", common.ErrInvalidConfig, s.LLM.Provider)
	}
	if s.LLM.Timeout <= 0 {
		return fmt.Errorf("%w: llm.timeout must be positive", common.ErrInvalidConfig)
	}
	if s.LLM.MaxRetries < 0 {
		return fmt.Errorf("%w: llm.max_retries cannot be negative", common.ErrInvalidConfig)
	}
	if s.LLM.RateLimit <= 0 {
		return fmt.Errorf("%w: llm.rate_limit must be positive", common.ErrInvalidConfig)
	}
	if s.LLM.Temperature < 0 || s.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature must be between 0 and 2", common.ErrInvalidConfig)
	}
	if s.LLM.MaxTokens < 0 {
		return fmt.Errorf("%w: llm.max_tokens cannot be negative", common.ErrInvalidConfig)
	}
	if s.Sweep.Workers <= 0 {
		return fmt.Errorf("%w: sweep.workers must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// HasAPIKey reports whether a classification backend can be reached.
func (s Settings) HasAPIKey() bool {
	return strings.TrimSpace(s.LLM.APIKey) != ""
}

// LoadDotEnv loads variables from the given .env files without overriding
// variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		path := ExpandPath(file)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}
