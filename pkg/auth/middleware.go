package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/audit"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// UserLoader reads the current user row. Implemented by the user repository.
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Middleware provides HTTP authentication middleware.
// It expects a database scope already bound to the request context.
type Middleware struct {
	authService AuthService
	users       UserLoader
	auditor     *audit.SecurityAuditor
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService AuthService, users UserLoader, auditor *audit.SecurityAuditor, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		users:       users,
		auditor:     auditor,
		logger:      logger,
	}
}

// RequireAuth resolves the actor and stores it in context for downstream handlers.
// A valid credential for a deleted user is treated as anonymous.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, source, err := m.authService.ValidateRequest(r)
		if err != nil {
			if !errors.Is(err, ErrMissingAuthorization) {
				m.auditor.LogInvalidToken(source, err.Error(), r.RemoteAddr)
			}
			m.unauthorized(w, "Authentication required")
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				m.unauthorized(w, "Authentication required")
				return
			}
			m.logger.Error("Failed to load user for request",
				zap.String("user_id", userID.String()),
				zap.Error(err))
			m.internalError(w)
			return
		}

		next(w, r.WithContext(WithActor(r.Context(), models.ActorFromUser(user))))
	}
}

// RequireRole is RequireAuth plus a role gate. Other roles receive 403.
func (m *Middleware) RequireRole(roles ...models.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := GetActor(r.Context())
			for _, role := range roles {
				if actor.Role == role {
					next(w, r)
					return
				}
			}

			m.auditor.LogAuthorizationDenied(actor.ID, string(actor.Role), audit.DenialDetails{
				Method: r.Method,
				Path:   r.URL.Path,
				Reason: "role not permitted",
			}, r.RemoteAddr)
			m.forbidden(w, "Insufficient permissions")
		})
	}
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusUnauthorized, "unauthorized", message)
}

// forbidden returns a 403 response with JSON error body.
func (m *Middleware) forbidden(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusForbidden, "forbidden", message)
}

func (m *Middleware) internalError(w http.ResponseWriter) {
	writeJSONError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
