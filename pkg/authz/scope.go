package authz

import (
	"github.com/google/uuid"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// ScopeKind is the implicit row filter applied to a listing.
type ScopeKind int

const (
	// ScopeAll applies no implicit filter.
	ScopeAll ScopeKind = iota
	// ScopeOwn limits rows to those authored by UserID.
	ScopeOwn
	// ScopeSchool limits rows to SchoolID.
	ScopeSchool
	// ScopeNone yields an empty listing without querying.
	ScopeNone
)

// ListScope is the row filter derived for an actor.
type ListScope struct {
	Kind     ScopeKind
	UserID   uuid.UUID
	SchoolID uuid.UUID
}

// SupervisionScope derives the implicit filter for supervision listings.
// actorSchoolID is the school resolved for a SCHOOL actor and is ignored for other roles.
func SupervisionScope(actor *models.Actor, actorSchoolID *uuid.UUID) (ListScope, error) {
	if err := Check(actor, SupervisionList, nil); err != nil {
		return ListScope{}, err
	}
	switch actor.Role {
	case models.RoleSupervisor:
		return ListScope{Kind: ScopeOwn, UserID: actor.ID}, nil
	case models.RoleSchool:
		return schoolScope(actorSchoolID), nil
	}
	return ListScope{Kind: ScopeAll}, nil
}

// ImprovementScope derives the implicit filter for improvement listings.
func ImprovementScope(actor *models.Actor, actorSchoolID *uuid.UUID) (ListScope, error) {
	if err := Check(actor, ImprovementList, nil); err != nil {
		return ListScope{}, err
	}
	if actor.Role == models.RoleSchool {
		return schoolScope(actorSchoolID), nil
	}
	return ListScope{Kind: ScopeAll}, nil
}

func schoolScope(actorSchoolID *uuid.UUID) ListScope {
	if actorSchoolID == nil {
		return ListScope{Kind: ScopeNone}
	}
	return ListScope{Kind: ScopeSchool, SchoolID: *actorSchoolID}
}

// Apply merges the scope into an explicit listing filter.
// An explicit school filter that contradicts a school scope produces ScopeNone.
func (s ListScope) Apply(f *models.SupervisionFilter) (empty bool) {
	switch s.Kind {
	case ScopeNone:
		return true
	case ScopeOwn:
		id := s.UserID
		f.UserID = &id
	case ScopeSchool:
		if f.SchoolID != nil && *f.SchoolID != s.SchoolID {
			return true
		}
		id := s.SchoolID
		f.SchoolID = &id
	}
	return false
}

// RequireRole returns ErrForbidden unless actor holds one of roles.
func RequireRole(actor *models.Actor, roles ...models.Role) error {
	if actor == nil {
		return apperrors.ErrUnauthorized
	}
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return apperrors.ErrForbidden
}
