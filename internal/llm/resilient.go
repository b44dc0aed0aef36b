package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jonathan/recruit-scorer/internal/logging"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("llm provider unavailable: circuit open")

// maxBackoff caps the delay between retries.
const maxBackoff = 30 * time.Second

// ResilientGateway wraps a Gateway with an outbound rate limit, retries with
// exponential backoff and a circuit breaker.
type ResilientGateway struct {
	next       Gateway
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*Generation]
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

// NewResilientGateway wraps next according to cfg.
func NewResilientGateway(next Gateway, cfg *Config, logger *zap.Logger) *ResilientGateway {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger = logging.WithAI(logger, string(cfg.Provider), "")

	g := &ResilientGateway{
		next:       next,
		maxRetries: max(cfg.MaxRetries, 0),
		baseDelay:  time.Second,
		logger:     logger,
	}

	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}

	if cfg.Breaker.Enabled {
		bc := cfg.Breaker
		g.breaker = gobreaker.NewCircuitBreaker[*Generation](gobreaker.Settings{
			Name:        fmt.Sprintf("llm-%s", cfg.Provider),
			MaxRequests: bc.MaxRequests,
			Interval:    bc.Interval,
			Timeout:     bc.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests == 0 {
					return false
				}
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= bc.MinRequests && failureRatio >= bc.FailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}

	return g
}

// Generate implements Gateway.
func (g *ResilientGateway) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (*Generation, error) {
	var lastErr error

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			delay := g.backoff(attempt)
			g.logger.Warn("retrying generation",
				zap.String(logging.FieldModel, cfg.Model),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
				zap.Error(lastErr))
			if err := WaitFor(ctx, delay); err != nil {
				return nil, err
			}
		}

		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter wait: %w", err)
			}
		}

		gen, err := g.call(ctx, prompt, cfg)
		if err == nil {
			if gen.Usage != nil {
				g.logger.Debug("generation complete",
					zap.String(logging.FieldModel, cfg.Model),
					zap.Int32("total_tokens", gen.Usage.TotalTokens))
			}
			return gen, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}

	return nil, lastErr
}

func (g *ResilientGateway) call(ctx context.Context, prompt string, cfg GenerateConfig) (*Generation, error) {
	if g.breaker == nil {
		return g.next.Generate(ctx, prompt, cfg)
	}

	gen, err := g.breaker.Execute(func() (*Generation, error) {
		return g.next.Generate(ctx, prompt, cfg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return gen, err
}

// BreakerState reports the breaker state, or "disabled".
func (g *ResilientGateway) BreakerState() string {
	if g.breaker == nil {
		return "disabled"
	}
	return g.breaker.State().String()
}

// backoff returns an exponential delay with up to 10% jitter.
func (g *ResilientGateway) backoff(attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt-1))) * g.baseDelay
	jitter := time.Duration(rand.Int64N(int64(base)/10 + 1))
	return min(base+jitter, maxBackoff)
}

// IsRetryable reports whether a provider error is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrCircuitOpen) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.Aborted:
			return true
		}
	}

	return false
}

// WaitFor blocks for d or until ctx is done.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
