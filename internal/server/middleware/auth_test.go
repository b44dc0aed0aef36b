package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// staticTokens accepts the tokens in the map.
func staticTokens(tokens map[string]uuid.UUID) TokenValidator {
	return TokenValidatorFunc(func(token string) (uuid.UUID, error) {
		id, ok := tokens[token]
		if !ok {
			return uuid.Nil, errors.New("token is expired")
		}
		return id, nil
	})
}

// echoRecruiter writes the recruiter ID found in the request context.
func echoRecruiter(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := RecruiterID(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id.String()))
	})
}

func TestRequireRecruiter(t *testing.T) {
	recruiter := uuid.New()
	tokens := staticTokens(map[string]uuid.UUID{
		"good":   recruiter,
		"orphan": uuid.Nil,
	})
	handler := RequireRecruiter(tokens, nil)(echoRecruiter(t))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantReason string
	}{
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "lower-case scheme", header: "bearer good", wantStatus: http.StatusOK},
		{name: "surrounding whitespace", header: "  Bearer   good  ", wantStatus: http.StatusOK},
		{name: "no header", wantStatus: http.StatusUnauthorized, wantReason: "missing bearer token"},
		{name: "basic auth", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized, wantReason: "malformed authorization header"},
		{name: "scheme only", header: "Bearer", wantStatus: http.StatusUnauthorized, wantReason: "malformed authorization header"},
		{name: "two tokens", header: "Bearer good extra", wantStatus: http.StatusUnauthorized, wantReason: "malformed authorization header"},
		{name: "unknown token", header: "Bearer stale", wantStatus: http.StatusUnauthorized, wantReason: "invalid or expired token"},
		{name: "token without recruiter", header: "Bearer orphan", wantStatus: http.StatusUnauthorized, wantReason: "invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/jobs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, recruiter.String(), rec.Body.String())
				return
			}

			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Unauthorized", body["error"])
			assert.Equal(t, tt.wantReason, body["reason"])
		})
	}
}

func TestRequireRecruiter_LogsRejectedTokens(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	handler := RequireRecruiter(staticTokens(nil), zap.New(core))(echoRecruiter(t))

	req := httptest.NewRequest(http.MethodDelete, "/jobs/1", nil)
	req.Header.Set("Authorization", "Bearer stale")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("bearer token rejected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/jobs/1", entries[0].ContextMap()["path"])
	assert.Contains(t, entries[0].ContextMap()["error"], "expired")
}

func TestRequireRecruiter_DoesNotCallNextOnFailure(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	rec := httptest.NewRecorder()
	RequireRecruiter(staticTokens(nil), nil)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = BearerToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = BearerToken("Token abc")
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestRecruiterID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := RecruiterID(req.Context())
	assert.False(t, ok, "empty context")

	_, ok = RecruiterID(WithRecruiter(req.Context(), uuid.Nil))
	assert.False(t, ok, "nil recruiter")

	id := uuid.New()
	got, ok := RecruiterID(WithRecruiter(req.Context(), id))
	require.True(t, ok)
	assert.Equal(t, id, got)
}
