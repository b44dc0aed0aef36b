package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/recruit-scorer/internal/config"
	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/llm"
	"github.com/jonathan/recruit-scorer/internal/observability"
	"github.com/jonathan/recruit-scorer/internal/scoring"
	"github.com/jonathan/recruit-scorer/internal/server/ratelimit"
)

// Prompt markers the routed test gateway answers on.
const (
	analysisMarker = "screening applicants"
	profileMarker  = "about the applicant"
	postingMarker  = "from the job posting"
)

const analysisResponse = `Evaluation follows.
{"name": "Ada Lovelace", "email": "ada@example.com", "skills": ["Go", "PostgreSQL"],
 "overallScore": 82, "recommendation": "good_match", "keyStrengths": ["Go"], "concerns": []}`

const profileResponse = `{
  "name": "Ada Lovelace",
  "email": "ada@example.com",
  "phone": null,
  "location": "Austin, TX",
  "years_of_experience": 6,
  "skills": ["Go", "PostgreSQL"],
  "desired_salary_min": 130000,
  "desired_salary_max": 150000,
  "education": {"degree": "BSc", "field": "Computer Science"}
}`

// routedGateway answers prompts by marker; unknown prompts fail.
func routedGateway(routes map[string]string) llm.Gateway {
	return llm.GatewayFunc(func(_ context.Context, prompt string, _ llm.GenerateConfig) (*llm.Generation, error) {
		for marker, text := range routes {
			if strings.Contains(prompt, marker) {
				if msg, ok := strings.CutPrefix(text, "error:"); ok {
					return nil, errors.New(msg)
				}
				return &llm.Generation{Text: text}, nil
			}
		}
		return nil, errors.New("unexpected prompt")
	})
}

type testServer struct {
	*Server
	store   *db.MemoryStore
	metrics *observability.Metrics
	user    *db.User
	token   string
}

// newTestServer builds a server over a memory store with rate limiting off.
// mutate may adjust the dependencies before construction; store stays the
// default memory store when mutate swaps in a wrapper.
func newTestServer(t *testing.T, gw llm.Gateway, mutate ...func(*Deps)) *testServer {
	t.Helper()

	store := db.NewMemoryStore()
	metrics := observability.NewMetrics()
	cfg := &config.Config{}
	cfg.Scoring.TruncateLimit = 500
	cfg.Scoring.BulkDelay = -1

	deps := Deps{
		Store:   store,
		Gateway: gw,
		Metrics: metrics,
		JWT: &config.JWTConfig{
			Secret:          testJWTSecret,
			ExpirationHours: 1,
			Issuer:          config.DefaultJWTIssuer,
		},
		Password:  &config.PasswordConfig{BcryptCost: bcrypt.MinCost},
		RateLimit: &ratelimit.Config{Enabled: false},
	}
	for _, m := range mutate {
		m(&deps)
	}

	s, err := New(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)

	if ms, ok := deps.Store.(*db.MemoryStore); ok {
		store = ms
	}
	user := &db.User{Name: "Recruiter", Email: "recruiter@example.com"}
	require.NoError(t, deps.Store.CreateUser(context.Background(), user))
	token, _, err := s.tokens.Issue(user.ID)
	require.NoError(t, err)

	return &testServer{Server: s, store: store, metrics: metrics, user: user, token: token}
}

// do sends a request through the full middleware chain. body may be a string or
// a value to marshal.
func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func seedJob(t *testing.T, store db.Store) *db.Job {
	t.Helper()
	job := &db.Job{
		Title:   "Backend Engineer",
		Company: "Acme",
		Status:  db.JobStatusOpen,
		Profile: scoring.JobProfile{
			MinExperience: 3,
			MaxExperience: 8,
			Requirements:  []string{"Go", "PostgreSQL"},
			Location:      "Austin, TX",
			SalaryMin:     120000,
			SalaryMax:     160000,
		},
	}
	require.NoError(t, store.CreateJob(context.Background(), job))
	return job
}

func seedCandidate(t *testing.T, store db.Store, job *db.Job, name string, years float64) *db.Candidate {
	t.Helper()
	c := &db.Candidate{
		JobID: &job.ID,
		Name:  name,
		Profile: scoring.CandidateProfile{
			YearsOfExperience: years,
			Skills:            []string{"Go", "PostgreSQL"},
			Location:          "Austin, TX",
		},
	}
	require.NoError(t, store.CreateCandidate(context.Background(), c))
	return c
}

func TestNew_RequiresDependencies(t *testing.T) {
	jwtCfg := &config.JWTConfig{Secret: testJWTSecret, ExpirationHours: 1, Issuer: config.DefaultJWTIssuer}

	_, err := New(nil, Deps{Store: db.NewMemoryStore(), JWT: jwtCfg})
	assert.Error(t, err)

	_, err = New(&config.Config{}, Deps{JWT: jwtCfg})
	assert.ErrorContains(t, err, "store")

	_, err = New(&config.Config{}, Deps{Store: db.NewMemoryStore()})
	assert.ErrorContains(t, err, "JWT")
}

func TestNew_DefaultPort(t *testing.T) {
	ts := newTestServer(t, nil)
	assert.Equal(t, ":8080", ts.httpServer.Addr)
}

func TestHealth(t *testing.T) {
	t.Run("without model", func(t *testing.T) {
		ts := newTestServer(t, nil)
		rec := ts.do(t, http.MethodGet, "/health", nil, "")

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[map[string]string](t, rec)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "disabled", body["llm"])
		assert.NotContains(t, body, "database", "memory store has no connection to ping")
	})

	t.Run("with model", func(t *testing.T) {
		ts := newTestServer(t, routedGateway(nil))
		body := decodeBody[map[string]string](t, ts.do(t, http.MethodGet, "/health", nil, ""))
		assert.Equal(t, "configured", body["llm"])
	})
}

// pingStore is a memory store with a database connection to check.
type pingStore struct {
	*db.MemoryStore
	err error
}

func (p *pingStore) Ping(context.Context) error { return p.err }

func TestHealth_DatabasePing(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		ts := newTestServer(t, nil, func(d *Deps) {
			d.Store = &pingStore{MemoryStore: db.NewMemoryStore()}
		})
		rec := ts.do(t, http.MethodGet, "/health", nil, "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", decodeBody[map[string]string](t, rec)["database"])
	})

	t.Run("unreachable", func(t *testing.T) {
		ts := newTestServer(t, nil, func(d *Deps) {
			d.Store = &pingStore{MemoryStore: db.NewMemoryStore(), err: errors.New("connection refused")}
		})
		rec := ts.do(t, http.MethodGet, "/health", nil, "")

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decodeBody[map[string]string](t, rec)
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, "unavailable", body["database"])
	})
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodOptions, "/jobs", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	rec = ts.do(t, http.MethodGet, "/jobs", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, routedGateway(nil))
	job := seedJob(t, ts.store)
	cand := seedCandidate(t, ts.store, job, "Ada", 5)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/jobs"},
		{http.MethodPut, "/jobs/" + job.ID.String()},
		{http.MethodDelete, "/jobs/" + job.ID.String()},
		{http.MethodPost, "/jobs/import"},
		{http.MethodPost, "/jobs/" + job.ID.String() + "/bulk-upload"},
		{http.MethodPost, "/jobs/" + job.ID.String() + "/bulk-upload/stream"},
		{http.MethodPost, "/candidates"},
		{http.MethodPut, "/candidates/" + cand.ID.String()},
		{http.MethodDelete, "/candidates/" + cand.ID.String()},
		{http.MethodPost, "/candidates/" + cand.ID.String() + "/score"},
		{http.MethodPut, "/settings/scoring-weights"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := ts.do(t, rt.method, rt.path, "{}", "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = ts.do(t, rt.method, rt.path, "{}", "not-a-jwt")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	got, err := ts.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.NotNil(t, got, "rejected requests leave the job in place")
}

func TestPublicRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	job := seedJob(t, ts.store)

	for _, path := range []string{
		"/jobs",
		"/jobs/" + job.ID.String(),
		"/jobs/" + job.ID.String() + "/ranking",
		"/candidates",
		"/settings/scoring-weights",
	} {
		rec := ts.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRateLimiting(t *testing.T) {
	ts := newTestServer(t, nil, func(d *Deps) {
		d.RateLimit = &ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  2,
			DefaultWindow: time.Minute,
		}
	})

	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodGet, "/jobs", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := ts.do(t, http.MethodGet, "/jobs", nil, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "rate_limit_exceeded", body["error"])
	assert.Contains(t, body, "retry_after")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	job := seedJob(t, ts.store)

	ts.do(t, http.MethodGet, "/jobs/"+job.ID.String(), nil, "")
	ts.do(t, http.MethodGet, "/jobs/not-a-uuid", nil, "")
	ts.do(t, http.MethodGet, "/nowhere", nil, "")

	rec := ts.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	out := rec.Body.String()
	assert.Contains(t, out, `recruit_scorer_http_requests_total{method="GET",route="GET /jobs/{id}",status="200"} 1`)
	assert.Contains(t, out, `recruit_scorer_http_requests_total{method="GET",route="GET /jobs/{id}",status="400"} 1`)
	assert.Contains(t, out, `route="unmatched",status="404"`)
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ts := newTestServer(t, nil, func(d *Deps) {
		d.Logger = zap.New(core)
	})
	job := seedJob(t, ts.store)

	ts.do(t, http.MethodGet, "/jobs/"+job.ID.String(), nil, "")

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET /jobs/{id}", fields["route"])
	assert.Equal(t, "/jobs/"+job.ID.String(), fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Equal(t, "192.0.2.1", fields["client"])
}

func TestInternalErrorsAreNotEchoed(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	ts := newTestServer(t, nil, func(d *Deps) {
		d.Logger = zap.New(core)
		d.Store = &failingStore{MemoryStore: db.NewMemoryStore(), err: errors.New("pq: relation does not exist")}
	})

	rec := ts.do(t, http.MethodGet, "/jobs", nil, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeBody[errorBody](t, rec).Error)
	assert.NotContains(t, rec.Body.String(), "relation")
	assert.Equal(t, 1, logs.FilterMessage("request failed").Len())
}

// failingStore fails every job listing.
type failingStore struct {
	*db.MemoryStore
	err error
}

func (f *failingStore) ListJobs(context.Context, db.ListJobsOptions) ([]db.Job, int, error) {
	return nil, 0, f.err
}

func TestDecodeJSON_InvalidBody(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/score", "{not json", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorBody](t, rec).Error, "invalid JSON")
}

func TestParseQueryInt(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 50},
		{"limit=10", 10},
		{"limit=0", 0},
		{"limit=-3", 50},
		{"limit=abc", 50},
		{"limit=500", 100},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/jobs?"+tt.query, nil)
		assert.Equal(t, tt.want, parseQueryInt(r, "limit", 50, 100), tt.query)
	}
}

func TestStatusRecorder(t *testing.T) {
	inner := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: inner}

	assert.Equal(t, http.StatusOK, rec.statusCode(), "unwritten responses count as 200")

	rec.WriteHeader(http.StatusAccepted)
	rec.WriteHeader(http.StatusTeapot)
	_, err := rec.Write([]byte("hello"))
	require.NoError(t, err)
	rec.Flush()

	assert.Equal(t, http.StatusAccepted, rec.statusCode())
	assert.Equal(t, 5, rec.bytes)
	assert.True(t, inner.Flushed)
	assert.Same(t, inner, rec.Unwrap())
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestScoreObservedInMetrics(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/score", map[string]any{
		"candidate": map[string]any{"years_of_experience": 5, "skills": []string{"Go"}},
		"job":       map[string]any{"min_experience": 3, "max_experience": 7, "requirements": []string{"Go"}},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	n, err := testutil.GatherAndCount(ts.metrics.Registry(), "recruit_scorer_candidate_overall_score")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
