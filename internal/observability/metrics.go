package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/recruit-scorer/internal/llm"
	"github.com/jonathan/recruit-scorer/internal/scoring"
)

const namespace = "recruit_scorer"

// Gateway call outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeCircuitOpen = "circuit_open"
	OutcomeCanceled    = "canceled"
)

// Metrics holds the Prometheus collectors for the HTTP API, scoring and the model
// gateway. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	scores          *prometheus.HistogramVec
	gatewayCalls    *prometheus.CounterVec
	gatewayDuration prometheus.Histogram
	gatewayTokens   prometheus.Counter
	bulkItems       *prometheus.CounterVec
}

// NewMetrics creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		scores: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidate_overall_score",
			Help:      "Distribution of computed overall candidate scores.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}, []string{"source"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Model gateway calls by outcome.",
		}, []string{"outcome"}),
		gatewayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "Model gateway call latency, including retries.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		gatewayTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Total tokens reported by the model provider.",
		}),
		bulkItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_upload_items_total",
			Help:      "Bulk upload resumes by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.httpRequests, m.httpDuration, m.scores, m.gatewayCalls,
		m.gatewayDuration, m.gatewayTokens, m.bulkItems)
	return m
}

// Registry exposes the underlying registry, for extra collectors and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one served request. route is the mux pattern, not the raw
// path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveScore records a computed score. source is "stored" or "stateless".
func (m *Metrics) ObserveScore(source string, score scoring.CandidateScore) {
	if m == nil {
		return
	}
	m.scores.WithLabelValues(source).Observe(float64(score.OverallScore))
}

// ObserveBulkItem records the outcome of one bulk upload resume.
func (m *Metrics) ObserveBulkItem(outcome string) {
	if m == nil {
		return
	}
	m.bulkItems.WithLabelValues(outcome).Inc()
}

// RegisterBreakerState exports the gateway breaker state as a gauge:
// 0 closed, 1 half-open, 2 open, -1 disabled.
func (m *Metrics) RegisterBreakerState(state func() string) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "llm_circuit_breaker_state",
		Help:      "Model gateway breaker state (0 closed, 1 half-open, 2 open, -1 disabled).",
	}, func() float64 {
		switch state() {
		case "closed":
			return 0
		case "half-open":
			return 1
		case "open":
			return 2
		default:
			return -1
		}
	}))
}

// InstrumentGateway wraps next so every call is counted and timed.
func (m *Metrics) InstrumentGateway(next llm.Gateway) llm.Gateway {
	if m == nil {
		return next
	}
	return llm.GatewayFunc(func(ctx context.Context, prompt string, cfg llm.GenerateConfig) (*llm.Generation, error) {
		start := time.Now()
		gen, err := next.Generate(ctx, prompt, cfg)
		m.gatewayDuration.Observe(time.Since(start).Seconds())
		m.gatewayCalls.WithLabelValues(gatewayOutcome(err)).Inc()
		if err == nil && gen != nil && gen.Usage != nil {
			m.gatewayTokens.Add(float64(gen.Usage.TotalTokens))
		}
		return gen, err
	})
}

func gatewayOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, llm.ErrCircuitOpen):
		return OutcomeCircuitOpen
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
