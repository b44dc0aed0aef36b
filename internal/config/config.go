// Package config loads application configuration from an optional file,
// RECRUIT_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/recruit-scorer/internal/llm"
	"github.com/jonathan/recruit-scorer/internal/scoring"
	"github.com/jonathan/recruit-scorer/internal/server/ratelimit"
)

// EnvPrefix is prepended to environment overrides, e.g. RECRUIT_SERVER_PORT.
const EnvPrefix = "RECRUIT"

// Config is the application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Log      LogConfig      `mapstructure:"log"`

	RateLimit ratelimit.Config `mapstructure:"rate_limit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// LLMConfig configures the text-generation provider.
type LLMConfig struct {
	APIKey     string `mapstructure:"api_key"`
	llm.Config `mapstructure:",squash"`
}

// ScoringConfig configures scoring and bulk analysis.
type ScoringConfig struct {
	Weights       scoring.ScoringWeights `mapstructure:"weights"`
	TruncateLimit int                    `mapstructure:"truncate_limit"`
	BulkDelay     time.Duration          `mapstructure:"bulk_delay"`
	// EducationRubric scores education by degree and field instead of the fixed neutral score.
	EducationRubric bool `mapstructure:"education_rubric"`
}

// Aggregator builds the score aggregator described by the scoring settings.
func (s ScoringConfig) Aggregator() *scoring.Aggregator {
	if s.EducationRubric {
		return scoring.NewAggregator(scoring.NewCalculator(scoring.DegreeRubricScorer{}))
	}
	return scoring.NewAggregator(nil)
}

// LogConfig configures the zap logger.
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// Load reads configuration. path may be empty, in which case config.yaml is
// looked up in the working directory and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)

	v.SetDefault("database.url", "")

	d := llm.DefaultConfig()
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.provider", string(d.Provider))
	v.SetDefault("llm.models.lite", d.Models[llm.TierLite])
	v.SetDefault("llm.models.standard", d.Models[llm.TierStandard])
	v.SetDefault("llm.models.advanced", d.Models[llm.TierAdvanced])
	v.SetDefault("llm.max_tokens", d.MaxTokens)
	v.SetDefault("llm.temperature", d.Temperature)
	v.SetDefault("llm.max_retries", d.MaxRetries)
	v.SetDefault("llm.requests_per_second", d.RequestsPerSecond)
	v.SetDefault("llm.burst", d.Burst)
	v.SetDefault("llm.breaker.enabled", d.Breaker.Enabled)
	v.SetDefault("llm.breaker.max_requests", d.Breaker.MaxRequests)
	v.SetDefault("llm.breaker.interval", d.Breaker.Interval)
	v.SetDefault("llm.breaker.timeout", d.Breaker.Timeout)
	v.SetDefault("llm.breaker.min_requests", d.Breaker.MinRequests)
	v.SetDefault("llm.breaker.failure_threshold", d.Breaker.FailureThreshold)

	w := scoring.DefaultWeights()
	v.SetDefault("scoring.weights.experience", w.Experience)
	v.SetDefault("scoring.weights.skills", w.Skills)
	v.SetDefault("scoring.weights.location", w.Location)
	v.SetDefault("scoring.weights.education", w.Education)
	v.SetDefault("scoring.weights.salary", w.Salary)
	v.SetDefault("scoring.weights.ai_analysis", w.AIAnalysis)
	v.SetDefault("scoring.truncate_limit", scoring.DefaultTruncateLimit)
	v.SetDefault("scoring.bulk_delay", 1200*time.Millisecond)
	v.SetDefault("scoring.education_rubric", false)

	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)

	rl := ratelimit.DefaultConfig()
	v.SetDefault("rate_limit.enabled", rl.Enabled)
	v.SetDefault("rate_limit.default_limit", rl.DefaultLimit)
	v.SetDefault("rate_limit.default_window", rl.DefaultWindow)
	v.SetDefault("rate_limit.cleanup_interval", rl.CleanupInterval)
	v.SetDefault("rate_limit.allow", []string{})
	v.SetDefault("rate_limit.deny", []string{})
}

// applyFallbacks honours the unprefixed variables used by deployment tooling
// and fills the built-in route allowances when none are configured.
func (c *Config) applyFallbacks() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Database.URL == "" {
		c.Database.URL = os.Getenv("DATABASE_URL")
	}
	if c.RateLimit.Endpoints == nil {
		c.RateLimit.Endpoints = ratelimit.DefaultEndpoints()
	}
}

// Validate checks value ranges. Credentials are checked by the commands that need them.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm max_retries must be non-negative")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.Breaker.FailureThreshold < 0 || c.LLM.Breaker.FailureThreshold > 1 {
		return fmt.Errorf("llm breaker failure_threshold must be between 0 and 1")
	}
	if c.Scoring.TruncateLimit <= 0 {
		return fmt.Errorf("scoring truncate_limit must be positive")
	}
	if c.Scoring.BulkDelay < 0 {
		return fmt.Errorf("scoring bulk_delay must be non-negative")
	}
	if c.RateLimit.Enabled && (c.RateLimit.DefaultLimit < 0 || c.RateLimit.DefaultWindow < 0) {
		return fmt.Errorf("rate_limit default_limit and default_window must be non-negative")
	}

	w := c.Scoring.Weights
	for name, value := range map[string]float64{
		"experience":  w.Experience,
		"skills":      w.Skills,
		"location":    w.Location,
		"education":   w.Education,
		"salary":      w.Salary,
		"ai_analysis": w.AIAnalysis,
	} {
		if value < 0 || value > 100 {
			return fmt.Errorf("scoring weight %s must be between 0 and 100, got %v", name, value)
		}
	}
	return nil
}

// RequireAPIKey returns an error when no provider key is configured.
func (c *Config) RequireAPIKey() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required (set %s_LLM_API_KEY or GEMINI_API_KEY)", EnvPrefix)
	}
	return nil
}

// RequireDatabase returns an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required (set %s_DATABASE_URL or DATABASE_URL)", EnvPrefix)
	}
	return nil
}
