package ratelimit

import (
	"net/http"
	"time"
)

// Endpoint is a per-route allowance. Path is a pattern understood by
// MatchEndpoint.
type Endpoint struct {
	Path   string        `mapstructure:"path"`
	Method string        `mapstructure:"method"`
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
	// Burst defaults to Limit.
	Burst int `mapstructure:"burst"`
}

// Config configures the limiter. It is loaded as the rate_limit section of the
// application configuration.
type Config struct {
	Enabled         bool          `mapstructure:"enabled"`
	DefaultLimit    int           `mapstructure:"default_limit"`
	DefaultWindow   time.Duration `mapstructure:"default_window"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	// Allow lists client IPs that are never limited; Deny lists IPs that are
	// always refused.
	Allow     []string   `mapstructure:"allow"`
	Deny      []string   `mapstructure:"deny"`
	Endpoints []Endpoint `mapstructure:"endpoints"`
}

// DefaultConfig allows 1000 requests a minute per client, with tighter
// allowances on model-backed, authentication and write routes.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Endpoints:       DefaultEndpoints(),
	}
}

// DefaultEndpoints returns the built-in per-route allowances. Reads and
// stateless scoring fall through to the default limit.
func DefaultEndpoints() []Endpoint {
	perHour := func(path string, limit, burst int) Endpoint {
		return Endpoint{Path: path, Method: http.MethodPost, Limit: limit, Window: time.Hour, Burst: burst}
	}
	perMinute := func(method, path string, limit, burst int) Endpoint {
		return Endpoint{Path: path, Method: method, Limit: limit, Window: time.Minute, Burst: burst}
	}

	return []Endpoint{
		perHour("/jobs/*/bulk-upload", 10, 2),
		perHour("/jobs/*/bulk-upload/stream", 10, 2),
		perHour("/jobs/import", 30, 5),
		perHour("/analyze", 60, 10),

		perMinute(http.MethodPost, "/auth/login", 10, 5),
		perMinute(http.MethodPost, "/auth/register", 5, 2),

		perMinute(http.MethodPost, "/jobs", 100, 10),
		perMinute(http.MethodPut, "/jobs/", 100, 10),
		perMinute(http.MethodDelete, "/jobs/", 100, 10),
		perMinute(http.MethodPost, "/candidates", 100, 10),
		perMinute(http.MethodPost, "/candidates/", 100, 10),
		perMinute(http.MethodPut, "/candidates/", 100, 10),
		perMinute(http.MethodDelete, "/candidates/", 100, 10),
		perMinute(http.MethodPut, "/settings/scoring-weights", 20, 5),
	}
}
