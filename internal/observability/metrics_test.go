package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruit-scorer/internal/llm"
	"github.com/jonathan/recruit-scorer/internal/scoring"
)

func TestMetrics_ObserveHTTP(t *testing.T) {
	m := NewMetrics()

	m.ObserveHTTP(http.MethodGet, "GET /jobs", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTP(http.MethodGet, "GET /jobs", http.StatusOK, 30*time.Millisecond)
	m.ObserveHTTP(http.MethodPost, "POST /score", http.StatusBadRequest, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "GET /jobs", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "POST /score", "400")))
}

func TestMetrics_InstrumentGateway(t *testing.T) {
	m := NewMetrics()

	results := []error{nil, llm.ErrCircuitOpen, context.Canceled, errors.New("boom")}
	call := 0
	gw := m.InstrumentGateway(llm.GatewayFunc(func(context.Context, string, llm.GenerateConfig) (*llm.Generation, error) {
		err := results[call]
		call++
		if err != nil {
			return nil, fmt.Errorf("wrapped: %w", err)
		}
		return &llm.Generation{Text: "{}", Usage: &llm.Usage{TotalTokens: 42}}, nil
	}))

	for range results {
		_, _ = gw.Generate(context.Background(), "p", llm.GenerateConfig{})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayCalls.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayCalls.WithLabelValues(OutcomeCircuitOpen)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayCalls.WithLabelValues(OutcomeCanceled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayCalls.WithLabelValues(OutcomeError)))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.gatewayTokens))
}

func TestMetrics_BulkAndScore(t *testing.T) {
	m := NewMetrics()

	m.ObserveBulkItem("succeeded")
	m.ObserveBulkItem("failed")
	m.ObserveBulkItem("succeeded")
	m.ObserveScore("stateless", scoring.CandidateScore{OverallScore: 76})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bulkItems.WithLabelValues("succeeded")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.scores))
}

func TestMetrics_BreakerStateAndHandler(t *testing.T) {
	m := NewMetrics()
	state := "open"
	m.RegisterBreakerState(func() string { return state })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "recruit_scorer_llm_circuit_breaker_state 2")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/", 200, time.Second)
		m.ObserveScore("stored", scoring.CandidateScore{})
		m.ObserveBulkItem("failed")
		m.RegisterBreakerState(func() string { return "closed" })
	})

	inner := llm.GatewayFunc(func(context.Context, string, llm.GenerateConfig) (*llm.Generation, error) {
		return &llm.Generation{Text: "ok"}, nil
	})
	gen, err := m.InstrumentGateway(inner).Generate(context.Background(), "p", llm.GenerateConfig{})
	require.NoError(t, err)
	assert.Equal(t, "ok", gen.Text)
}
