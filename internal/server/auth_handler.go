package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/logging"
	"github.com/jonathan/recruit-scorer/internal/server/middleware"
	"github.com/jonathan/recruit-scorer/internal/types"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	responder
	userService *UserService
	tokens      *TokenIssuer
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(userService *UserService, tokens *TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		responder:   responder{logger: logging.OrNop(logger)},
		userService: userService,
		tokens:      tokens,
	}
}

// Register handles user registration requests.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.failResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.failResponse(w, err)
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		h.failResponse(w, err)
		return
	}

	h.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	h.issueToken(w, http.StatusCreated, user)
}

// Login handles user login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.failResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.failResponse(w, err)
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		h.failResponse(w, err)
		return
	}

	h.issueToken(w, http.StatusOK, user)
}

// Me returns the authenticated user's account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.RecruiterID(r.Context())
	if !ok {
		h.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		h.failResponse(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, user)
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, status int, user *types.User) {
	token, expiresAt, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.failResponse(w, err)
		return
	}

	h.jsonResponse(w, status, types.LoginResponse{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
