package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/config"
	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/fetch"
	"github.com/jonathan/recruit-scorer/internal/llm"
	"github.com/jonathan/recruit-scorer/internal/logging"
	"github.com/jonathan/recruit-scorer/internal/observability"
	"github.com/jonathan/recruit-scorer/internal/parsing"
	"github.com/jonathan/recruit-scorer/internal/pipeline"
	"github.com/jonathan/recruit-scorer/internal/schemas"
	"github.com/jonathan/recruit-scorer/internal/scoring"
	"github.com/jonathan/recruit-scorer/internal/server/middleware"
	"github.com/jonathan/recruit-scorer/internal/server/ratelimit"
	"github.com/jonathan/recruit-scorer/internal/types"
)

// maxBodyBytes caps request bodies; a full bulk upload is the largest.
const maxBodyBytes = 16 << 20

// shutdownTimeout bounds how long in-flight requests get after Start's context ends.
const shutdownTimeout = 30 * time.Second

// Deps are the collaborators the server is built from.
type Deps struct {
	Store db.Store
	// Gateway answers model prompts. Nil disables /analyze, bulk uploads and imports.
	Gateway  llm.Gateway
	LLM      *llm.Config
	Fetcher  pipeline.PostingFetcher
	Metrics  *observability.Metrics
	Logger   *zap.Logger
	JWT      *config.JWTConfig
	Password *config.PasswordConfig
	// RateLimit overrides cfg.RateLimit.
	RateLimit *ratelimit.Config
}

// Server represents the HTTP server
type Server struct {
	responder

	httpServer  *http.Server
	mux         *http.ServeMux
	store       db.Store
	metrics     *observability.Metrics
	rateLimiter *ratelimit.Limiter
	tokens      *TokenIssuer
	userService *UserService
	authHandler *AuthHandler

	aggregator *scoring.Aggregator
	scorer     *pipeline.Scorer
	analyzer   *pipeline.Analyzer
	bulk       *pipeline.BulkProcessor
	importer   *pipeline.Importer
	bulkDelay  time.Duration
}

// New creates a new server instance. cfg supplies the listen port, timeouts and
// scoring settings.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("JWT config is required")
	}
	if deps.Password == nil {
		pw, err := config.NewPasswordConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create password config: %w", err)
		}
		deps.Password = pw
	}
	if deps.RateLimit == nil {
		rl := cfg.RateLimit
		deps.RateLimit = &rl
	}
	logger := logging.OrNop(deps.Logger)

	s := &Server{
		responder:   responder{logger: logger},
		store:       deps.Store,
		metrics:     deps.Metrics,
		rateLimiter: ratelimit.NewLimiter(deps.RateLimit),
		tokens:      NewTokenIssuer(deps.JWT),
		aggregator:  cfg.Scoring.Aggregator(),
		bulkDelay:   cfg.Scoring.BulkDelay,
	}
	s.userService = NewUserService(deps.Store, deps.Password)
	s.authHandler = NewAuthHandler(s.userService, s.tokens, logger)
	s.scorer = pipeline.NewScorer(deps.Store, s.aggregator, deps.Metrics, logger)

	if deps.Gateway != nil {
		extractor := scoring.NewExtractor(cfg.Scoring.TruncateLimit)
		s.analyzer = pipeline.NewAnalyzer(deps.Gateway, deps.LLM, extractor, logger)
		s.bulk = pipeline.NewBulkProcessor(deps.Store, s.analyzer, s.scorer, deps.Metrics, logger)

		fetcher := deps.Fetcher
		if fetcher == nil {
			fetcher = fetch.NewClient(nil, logger)
		}
		s.importer = pipeline.NewImporter(fetcher, parsing.NewParser(deps.Gateway, deps.LLM, logger), deps.Store, logger)
	}

	s.mux = s.routes()

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout, // bulk uploads stream for minutes
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	auth := middleware.RequireRecruiter(s.tokens, s.logger)
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Accounts
	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)
	mux.Handle("GET /auth/me", protected(s.authHandler.Me))

	// Jobs
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.Handle("POST /jobs", protected(s.handleCreateJob))
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.Handle("PUT /jobs/{id}", protected(s.handleUpdateJob))
	mux.Handle("DELETE /jobs/{id}", protected(s.handleDeleteJob))
	mux.Handle("POST /jobs/import", protected(s.handleImportJob))
	mux.HandleFunc("GET /jobs/{id}/ranking", s.handleJobRanking)
	mux.HandleFunc("GET /jobs/{id}/report.xlsx", s.handleJobReport)
	mux.Handle("POST /jobs/{id}/bulk-upload", protected(s.handleBulkUpload))
	mux.Handle("POST /jobs/{id}/bulk-upload/stream", protected(s.handleBulkUploadStream))

	// Candidates
	mux.HandleFunc("GET /candidates", s.handleListCandidates)
	mux.Handle("POST /candidates", protected(s.handleCreateCandidate))
	mux.HandleFunc("GET /candidates/{id}", s.handleGetCandidate)
	mux.Handle("PUT /candidates/{id}", protected(s.handleUpdateCandidate))
	mux.Handle("DELETE /candidates/{id}", protected(s.handleDeleteCandidate))
	mux.Handle("POST /candidates/{id}/score", protected(s.handleScoreCandidate))
	mux.HandleFunc("GET /candidates/{id}/scores", s.handleListCandidateScores)

	// Stateless scoring and analysis
	mux.HandleFunc("POST /score", s.handleScore)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)

	// Settings
	mux.HandleFunc("GET /settings/scoring-weights", s.handleGetWeights)
	mux.Handle("PUT /settings/scoring-weights", protected(s.handleUpdateWeights))

	return mux
}

// Handler returns the routed handler wrapped in logging, CORS and rate limiting.
func (s *Server) Handler() http.Handler {
	return s.withLogging(s.withCORS(s.withRateLimit(s.mux)))
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging logs each request and records it in the HTTP metrics under its
// route pattern.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := "unmatched"
		if _, pattern := s.mux.Handler(r); pattern != "" {
			route = pattern
		}

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		status := rec.statusCode()
		elapsed := time.Since(start)

		s.metrics.ObserveHTTP(r.Method, route, status, elapsed)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", elapsed),
			zap.String("client", s.extractClientID(r)),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Warn("request completed", fields...)
			return
		}
		s.logger.Info("request completed", fields...)
	})
}

// statusRecorder captures the response status and size. It forwards Flush so
// server-sent events keep streaming through the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// pinger is implemented by stores backed by a database connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "llm": "disabled"}
	if s.analyzer != nil {
		resp["llm"] = "configured"
	}

	status := http.StatusOK
	if p, ok := s.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("database ping failed", zap.Error(err))
			resp["status"] = "degraded"
			resp["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			resp["database"] = "ok"
		}
	}
	s.jsonResponse(w, status, resp)
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		seconds := max(1, int(info.RetryAfter.Seconds()))
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Warn("rate limit exceeded",
		zap.String("client", s.extractClientID(r)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// responder writes JSON bodies and maps errors to status codes.
type responder struct {
	logger *zap.Logger
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// jsonResponse writes a JSON response
func (rs responder) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		rs.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (rs responder) errorResponse(w http.ResponseWriter, status int, message string) {
	rs.jsonResponse(w, status, errorBody{Error: message})
}

// failResponse maps err to a status code and writes it. Validation failures carry
// per-field details; unexpected errors are logged and not echoed to the client.
func (rs responder) failResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	body := errorBody{Error: err.Error()}

	var (
		fieldErrs validator.ValidationErrors
		schemaErr *schemas.ValidationError
	)
	switch {
	case errors.As(err, &fieldErrs):
		body = errorBody{Error: "validation failed", Details: types.FieldErrors(err)}
	case errors.As(err, &schemaErr):
		body = errorBody{Error: "validation failed", Details: schemaErr.Details()}
	}

	if status >= http.StatusInternalServerError {
		rs.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
		if status == http.StatusInternalServerError {
			body = errorBody{Error: "internal server error"}
		}
	}
	rs.jsonResponse(w, status, body)
}

// decodeJSON reads a size-limited JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// parseQueryInt reads a non-negative integer query parameter, clamped to maxValue when positive.
func parseQueryInt(r *http.Request, key string, defaultValue, maxValue int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		return defaultValue
	}
	if maxValue > 0 && val > maxValue {
		return maxValue
	}
	return val
}
