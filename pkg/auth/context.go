package auth

import (
	"context"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// WithActor returns a copy of ctx carrying the actor.
func WithActor(ctx context.Context, actor *models.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor retrieves the authenticated actor from the request context.
// Returns nil and false if the request is anonymous.
func GetActor(ctx context.Context) (*models.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(*models.Actor)
	return actor, ok && actor != nil
}

// RequireActor is GetActor for code paths that must be authenticated.
func RequireActor(ctx context.Context) (*models.Actor, error) {
	actor, ok := GetActor(ctx)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}
	return actor, nil
}
