// Package ratelimit limits requests per client IP and route with token buckets.
package ratelimit

import (
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long an unused bucket survives cleanup.
const idleTTL = time.Hour

// Info describes a client's allowance after a request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	burst    int
	lastSeen time.Time
}

// Limiter tracks one bucket per client, method and matched route pattern.
type Limiter struct {
	cfg   Config
	allow map[string]struct{}
	deny  map[string]struct{}
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter returns a limiter for cfg; nil means DefaultConfig. When limiting
// is enabled a goroutine evicts idle buckets until Stop is called.
func NewLimiter(cfg *Config) *Limiter {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}

	l := &Limiter{
		cfg:     c,
		allow:   ipSet(c.Allow),
		deny:    ipSet(c.Deny),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	if c.Enabled && c.CleanupInterval > 0 {
		l.stop = make(chan struct{})
		go l.evictLoop(c.CleanupInterval)
	}
	return l
}

func ipSet(ips []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = struct{}{}
		}
	}
	return set
}

// Allow takes one token from the bucket for client on path and method.
func (l *Limiter) Allow(client, path, method string) (bool, Info) {
	if !l.cfg.Enabled {
		return true, Info{Allowed: true}
	}
	if _, ok := l.allow[client]; ok {
		return true, Info{Allowed: true}
	}
	if _, ok := l.deny[client]; ok {
		return false, Info{}
	}

	ep := MatchEndpoint(path, method, l.cfg.Endpoints)
	if ep == nil {
		ep = &Endpoint{Path: "*", Limit: l.cfg.DefaultLimit, Window: l.cfg.DefaultWindow}
	}
	if ep.Limit <= 0 || ep.Window <= 0 {
		return true, Info{Allowed: true}
	}

	now := l.now()
	interval := ep.Window / time.Duration(ep.Limit)
	b := l.bucket(client+"|"+method+"|"+ep.Path, ep, interval, now)

	ok := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	info := Info{
		Allowed:   ok,
		Limit:     ep.Limit,
		Remaining: max(0, int(math.Floor(tokens))),
		ResetTime: now.Add(time.Duration((float64(b.burst) - tokens) * float64(interval))),
	}
	if !ok {
		info.RetryAfter = time.Duration((1 - tokens) * float64(interval))
	}
	return ok, info
}

// bucket returns the bucket for key, creating it full on first use. Keys use
// the matched pattern, so /jobs/1/bulk-upload and /jobs/2/bulk-upload share a
// bucket.
func (l *Limiter) bucket(key string, ep *Endpoint, interval time.Duration, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b == nil {
		burst := ep.Burst
		if burst <= 0 {
			burst = ep.Limit
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Every(interval), burst), burst: burst}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

func (l *Limiter) evictLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.evictIdle()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) evictIdle() {
	cutoff := l.now().Add(-idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop ends the eviction goroutine. Calling it again is a no-op.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.stop != nil {
			close(l.stop)
		}
	})
}
