package server

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruit-scorer/internal/types"
)

func TestAuth_RegisterLoginMe(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/auth/register", types.RegisterRequest{
		Name:     "Grace Hopper",
		Email:    "Grace@Example.com",
		Password: "correct horse battery",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	registered := decodeBody[types.LoginResponse](t, rec)
	require.NotNil(t, registered.User)
	assert.Equal(t, "grace@example.com", registered.User.Email)
	assert.NotEmpty(t, registered.Token)
	assert.True(t, registered.ExpiresAt.After(registered.User.CreatedAt))
	assert.NotContains(t, rec.Body.String(), "password")

	rec = ts.do(t, http.MethodPost, "/auth/login", types.LoginRequest{
		Email:    "grace@example.com",
		Password: "correct horse battery",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decodeBody[types.LoginResponse](t, rec)
	assert.Equal(t, registered.User.ID, login.User.ID)

	rec = ts.do(t, http.MethodGet, "/auth/me", nil, login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[types.User](t, rec)
	assert.Equal(t, registered.User.ID, me.ID)
	assert.Equal(t, "Grace Hopper", me.Name)
}

func TestAuth_RegisterErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantDetail string
	}{
		{
			name:       "existing email",
			body:       types.RegisterRequest{Name: "Dup", Email: "RECRUITER@example.com", Password: "password1"},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid email",
			body:       types.RegisterRequest{Name: "A", Email: "not-an-email", Password: "password1"},
			wantStatus: http.StatusBadRequest,
			wantDetail: "email: failed email",
		},
		{
			name:       "short password",
			body:       types.RegisterRequest{Name: "A", Email: "a@example.com", Password: "short"},
			wantStatus: http.StatusBadRequest,
			wantDetail: "password: failed min=8",
		},
		{
			name:       "missing name",
			body:       types.RegisterRequest{Email: "a@example.com", Password: "password1"},
			wantStatus: http.StatusBadRequest,
			wantDetail: "name: failed required",
		},
		{
			name:       "malformed body",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/auth/register", tt.body, "")
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			body := decodeBody[errorBody](t, rec)
			assert.NotEmpty(t, body.Error)
			if tt.wantDetail != "" {
				assert.Equal(t, "validation failed", body.Error)
				assert.Contains(t, body.Details, tt.wantDetail)
			}
		})
	}
}

func TestAuth_LoginErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/auth/register", types.RegisterRequest{
		Name: "A", Email: "a@example.com", Password: "password1",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("wrong password", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/auth/login", types.LoginRequest{Email: "a@example.com", Password: "password2"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid email or password", decodeBody[errorBody](t, rec).Error)
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/auth/login", types.LoginRequest{Email: "b@example.com", Password: "password1"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid email or password", decodeBody[errorBody](t, rec).Error)
	})

	t.Run("missing password", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/auth/login", types.LoginRequest{Email: "a@example.com"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuth_MeDeletedUser(t *testing.T) {
	ts := newTestServer(t, nil)

	token, _, err := ts.tokens.Issue(uuid.New())
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/auth/me", nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeBody[errorBody](t, rec).Error, "user not found")
}
