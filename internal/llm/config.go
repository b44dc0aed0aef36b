// Package llm provides the text-generation gateway used for resume analysis and
// job posting parsing, with model tiers, throttling, retries and circuit breaking.
package llm

import "time"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, extraction
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: resume analysis, structured output
	TierStandard ModelTier = "standard"
	// TierAdvanced is for complex reasoning: job posting parsing
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// BreakerConfig configures the circuit breaker around provider calls.
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MinRequests      uint32        `mapstructure:"min_requests"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
}

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider             `mapstructure:"provider"`
	Models      map[ModelTier]string `mapstructure:"models"`
	MaxTokens   int32                `mapstructure:"max_tokens"`
	Temperature float32              `mapstructure:"temperature"`

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `mapstructure:"max_retries"`
	// RequestsPerSecond throttles outbound calls; zero disables throttling.
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Breaker           BreakerConfig `mapstructure:"breaker"`
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		MaxTokens:         2048,
		Temperature:       0.1,
		MaxRetries:        3,
		RequestsPerSecond: 1,
		Burst:             1,
		Breaker: BreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			MinRequests:      5,
			FailureThreshold: 0.6,
		},
	}
}

// tierFallback is the order tried when a tier has no configured model.
var tierFallback = []ModelTier{TierStandard, TierLite}

// GetModel returns the model configured for tier, falling back through
// tierFallback. It returns "" when no model is configured at all.
func (c *Config) GetModel(tier ModelTier) string {
	if model := c.Models[tier]; model != "" {
		return model
	}
	for _, t := range tierFallback {
		if model := c.Models[t]; model != "" {
			return model
		}
	}
	return ""
}

// WithModel returns a copy of c that uses model for tier.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	clone := *c
	clone.Models = make(map[ModelTier]string, len(c.Models)+1)
	for t, m := range c.Models {
		clone.Models[t] = m
	}
	clone.Models[tier] = model
	return &clone
}

// GenerateConfig returns per-call settings for a tier.
func (c *Config) GenerateConfig(tier ModelTier) GenerateConfig {
	return GenerateConfig{
		Model:       c.GetModel(tier),
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
}
