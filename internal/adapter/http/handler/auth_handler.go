package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/iho/cashledger/internal/adapter/http/dto"
	"github.com/iho/cashledger/internal/domain"
	"github.com/iho/cashledger/internal/infrastructure/auth"
	"github.com/iho/cashledger/internal/infrastructure/metrics"
)

// Authenticator checks operator credentials.
type Authenticator interface {
	Authenticate(email, password string) (*domain.User, error)
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Generate(user *domain.User) (string, time.Time, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	operators Authenticator
	tokens    TokenIssuer
	metrics   *metrics.Metrics
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(operators Authenticator, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{operators: operators, tokens: tokens}
}

// WithMetrics counts login attempts in AuthAttempts.
func (h *AuthHandler) WithMetrics(m *metrics.Metrics) *AuthHandler {
	h.metrics = m
	return h
}

func (h *AuthHandler) attempt(status string) {
	if h.metrics != nil {
		h.metrics.AuthAttempts.WithLabelValues(status).Inc()
	}
}

// Login exchanges operator credentials for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.operators.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.attempt("failure")
			writeError(w, http.StatusUnauthorized, "invalid credentials", "")
			return
		}
		h.attempt("error")
		writeDomainError(w, r, "failed to authenticate", err)
		return
	}

	token, expiresAt, err := h.tokens.Generate(user)
	if err != nil {
		writeDomainError(w, r, "failed to generate token", err)
		return
	}

	h.attempt("success")
	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      dto.UserFromDomain(user),
	})
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := domain.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	writeJSON(w, http.StatusOK, dto.UserFromDomain(user))
}
