package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock lets tests move time explicitly.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(cfg *Config) (*Limiter, *fixedClock) {
	clock := &fixedClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.now = clock.now
	return l, clock
}

func TestLimiter_Allow(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/jobs", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := limiter.Allow("127.0.0.1", "/jobs", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, 6*time.Second, info.RetryAfter)
	assert.True(t, info.ResetTime.After(limiter.now()))
}

func TestLimiter_Refill(t *testing.T) {
	limiter, clock := newTestLimiter(&Config{Enabled: true, DefaultLimit: 2, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 2; i++ {
		allowed, _ := limiter.Allow("c", "/x", "GET")
		require.True(t, allowed)
	}
	allowed, _ := limiter.Allow("c", "/x", "GET")
	require.False(t, allowed)

	clock.advance(30 * time.Second)
	allowed, _ = limiter.Allow("c", "/x", "GET")
	assert.True(t, allowed, "one token refills every 30s")

	allowed, _ = limiter.Allow("c", "/x", "GET")
	assert.False(t, allowed)
}

func TestLimiter_AllowAndDenyLists(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Allow:         []string{" 10.0.0.1 "},
		Deny:          []string{"10.0.0.2", ""},
	})
	defer limiter.Stop()

	for i := 0; i < 50; i++ {
		allowed, info := limiter.Allow("10.0.0.1", "/jobs", "GET")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}

	allowed, _ := limiter.Allow("10.0.0.2", "/jobs", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: false, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 20; i++ {
		allowed, _ := limiter.Allow("c", "/jobs", "POST")
		require.True(t, allowed)
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		Endpoints:     DefaultEndpoints(),
	})
	defer limiter.Stop()

	// Bulk uploads share one allowance across jobs
	allowed, info := limiter.Allow("c", "/jobs/1/bulk-upload", "POST")
	require.True(t, allowed)
	assert.Equal(t, 10, info.Limit)
	allowed, _ = limiter.Allow("c", "/jobs/2/bulk-upload", "POST")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("c", "/jobs/3/bulk-upload", "POST")
	assert.False(t, allowed, "burst of 2 exhausted")

	// Other clients and endpoints are unaffected
	allowed, _ = limiter.Allow("other", "/jobs/1/bulk-upload", "POST")
	assert.True(t, allowed)
	allowed, info = limiter.Allow("c", "/jobs", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 100, info.Limit)

	// Health and metrics are never limited
	for i := 0; i < 500; i++ {
		allowed, _ = limiter.Allow("c", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Minute})
	defer limiter.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if ok, _ := limiter.Allow("shared", "/jobs", "GET"); ok {
					mu.Lock()
					granted++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, granted)
}

func TestLimiter_Cleanup(t *testing.T) {
	limiter, clock := newTestLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		limiter.Allow(fmt.Sprintf("client-%d", i), "/jobs", "GET")
	}
	require.Equal(t, 5, limiter.size())

	clock.advance(30 * time.Minute)
	limiter.Allow("client-0", "/jobs", "GET")
	clock.advance(45 * time.Minute)
	limiter.evictIdle()

	assert.Equal(t, 1, limiter.size(), "only the recently used bucket survives")
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()
	limiter.Stop()

	allowed, info := limiter.Allow("c", "/jobs", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestMatchEndpoint(t *testing.T) {
	configs := []Endpoint{
		{Path: "/jobs/import", Method: "POST", Limit: 1},
		{Path: "/jobs/*/bulk-upload", Method: "POST", Limit: 2},
		{Path: "/jobs/", Method: "POST", Limit: 3},
		{Path: "/jobs/", Method: "DELETE", Limit: 4},
	}

	tests := []struct {
		path, method string
		want         int
	}{
		{"/jobs/import", "POST", 1},
		{"/jobs/abc/bulk-upload", "POST", 2},
		{"/jobs/abc/other", "POST", 3},
		{"/jobs/abc", "DELETE", 4},
		{"/jobs", "DELETE", -1},
		{"/candidates/1", "POST", -1},
		{"/jobs/abc/bulk-upload", "GET", -1},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.want < 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Limit)
		})
	}

	health := MatchEndpoint("/health", "GET", configs)
	require.NotNil(t, health)
	assert.Zero(t, health.Limit)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 1000, cfg.DefaultLimit)
	assert.Equal(t, time.Minute, cfg.DefaultWindow)

	bulk := MatchEndpoint("/jobs/42/bulk-upload", "POST", cfg.Endpoints)
	require.NotNil(t, bulk)
	assert.Equal(t, time.Hour, bulk.Window)
	assert.Equal(t, 2, bulk.Burst)

	login := MatchEndpoint("/auth/login", "POST", cfg.Endpoints)
	require.NotNil(t, login)
	assert.Equal(t, 10, login.Limit)

	assert.Nil(t, MatchEndpoint("/score", "POST", cfg.Endpoints), "stateless scoring uses the default")
}
