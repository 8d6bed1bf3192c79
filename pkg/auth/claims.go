// Package auth identifies the actor behind each request. Browsers carry a
// signed session cookie; API clients send an HS256 bearer token. Either way
// the user row is re-read on every request so role changes apply immediately.
package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/edusupervise/supervision-engine/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ActorKey is the context key for storing the authenticated actor.
	ActorKey contextKey = "actor"
)

// Claims is the bearer token payload. Subject holds the user id.
// Role and Email are informational; authorization always uses the stored user.
type Claims struct {
	jwt.RegisteredClaims
	Email string      `json:"email,omitempty"`
	Role  models.Role `json:"role,omitempty"`
}
