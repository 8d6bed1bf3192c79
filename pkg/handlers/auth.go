package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/audit"
	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/middleware"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/services"
	"github.com/edusupervise/supervision-engine/pkg/validation"
)

// ScopeMiddleware binds a database scope to the request context.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

// ============================================================================
// Request/Response Types
// ============================================================================

// LoginResponse for POST /api/auth/login. The session cookie is set as well;
// Token serves clients that prefer a bearer header.
type LoginResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// ============================================================================
// Handler
// ============================================================================

// AuthHandler handles sign-in, sign-out, the current user and self-registration.
type AuthHandler struct {
	users     services.UserService
	sessions  *auth.SessionStore
	tokens    *auth.TokenIssuer
	auditor   *audit.SecurityAuditor
	validator *validation.Validator
	errs      *ErrorWriter
	logger    *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(
	users services.UserService,
	sessions *auth.SessionStore,
	tokens *auth.TokenIssuer,
	auditor *audit.SecurityAuditor,
	validator *validation.Validator,
	errs *ErrorWriter,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		auditor:   auditor,
		validator: validator,
		errs:      errs,
		logger:    logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/auth/login", scope(h.Login))
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/me", scope(authMiddleware.RequireAuth(h.Me)))
	mux.HandleFunc("POST /api/users/register", scope(h.Register))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), in)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) && h.auditor != nil {
			h.auditor.LogAuthenticationFailure(in.Email, "invalid credentials", middleware.ClientIP(r))
		}
		h.errs.Write(w, r, err)
		return
	}

	if err := h.sessions.Login(w, r, user.ID); err != nil {
		h.logger.Error("Failed to save session", zap.String("user_id", user.ID.String()), zap.Error(err))
		h.errs.Write(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("Failed to issue token", zap.String("user_id", user.ID.String()), zap.Error(err))
		h.errs.Write(w, r, err)
		return
	}

	h.errs.JSON(w, http.StatusOK, LoginResponse{User: user, Token: token, ExpiresAt: expiresAt})
}

// Logout handles POST /api/auth/logout. It succeeds without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		h.logger.Warn("Failed to clear session", zap.Error(err))
	}
	h.errs.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	user, err := h.users.Load(r.Context(), actor.ID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusOK, user)
}

// Register handles POST /api/users/register. New accounts always get the SCHOOL role.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := DecodeJSON(r, &in, h.validator); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.errs.JSON(w, http.StatusCreated, user)
}

// actorFrom returns the authenticated actor or nil. Services answer nil with ErrUnauthorized.
func actorFrom(r *http.Request) *models.Actor {
	actor, _ := auth.GetActor(r.Context())
	return actor
}
