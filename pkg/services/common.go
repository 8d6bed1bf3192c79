// Package services implements the supervision engine's business operations.
// Every operation takes the acting user explicitly and applies the authz
// capability table before touching the store.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/repositories"
)

// resolveActorSchool returns the school linked to a SCHOOL actor by email.
// It returns nil without error when the actor is not a SCHOOL account or
// no school carries the actor's email.
func resolveActorSchool(ctx context.Context, schools repositories.SchoolRepository, actor *models.Actor) (*models.School, error) {
	if actor == nil || actor.Role != models.RoleSchool || actor.Email == "" {
		return nil, nil
	}
	school, err := schools.GetByEmail(ctx, actor.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return school, nil
}

func schoolIDOf(s *models.School) *uuid.UUID {
	if s == nil {
		return nil
	}
	id := s.ID
	return &id
}

// optionalString returns nil for blank input.
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// TxFunc runs fn inside one store transaction. Production wiring passes
// database.InTx; tests pass a function that calls fn directly.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// NoTx runs fn without a transaction.
func NoTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
