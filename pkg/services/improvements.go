package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/authz"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/repositories"
)

// ImprovementInput is the request to file an improvement plan. A SCHOOL account
// may omit SchoolID; it defaults to the account's own school.
type ImprovementInput struct {
	SchoolID    uuid.UUID `json:"schoolId"`
	Title       string    `json:"title" validate:"notblank,max=255"`
	Description string    `json:"description" validate:"notblank"`
	FileURL     string    `json:"fileUrl"`
}

// ImprovementStatusInput is the review request for an improvement plan.
type ImprovementStatusInput struct {
	Status models.ImprovementStatus `json:"status" validate:"required,improvement_status"`
}

// ImprovementService manages school improvement plans.
type ImprovementService interface {
	Create(ctx context.Context, actor *models.Actor, in ImprovementInput) (*models.Improvement, error)
	// List returns plans newest first. SCHOOL accounts see only their own school's.
	List(ctx context.Context, actor *models.Actor, schoolID *uuid.UUID) ([]*models.Improvement, error)
	UpdateStatus(ctx context.Context, actor *models.Actor, id uuid.UUID, in ImprovementStatusInput) (*models.Improvement, error)
}

type improvementService struct {
	improvements repositories.ImprovementRepository
	schools      repositories.SchoolRepository
	activity     ActivityLogService
	logger       *zap.Logger
}

// NewImprovementService creates a new ImprovementService.
func NewImprovementService(
	improvements repositories.ImprovementRepository,
	schools repositories.SchoolRepository,
	activity ActivityLogService,
	logger *zap.Logger,
) ImprovementService {
	return &improvementService{
		improvements: improvements,
		schools:      schools,
		activity:     activity,
		logger:       logger.Named("improvement-service"),
	}
}

var _ ImprovementService = (*improvementService)(nil)

func (s *improvementService) Create(ctx context.Context, actor *models.Actor, in ImprovementInput) (*models.Improvement, error) {
	if err := authz.Gate(actor, authz.ImprovementCreate); err != nil {
		return nil, err
	}

	schoolID := in.SchoolID
	res := &authz.Resource{SchoolID: schoolID}
	if actor.Role == models.RoleSchool {
		school, err := resolveActorSchool(ctx, s.schools, actor)
		if err != nil {
			return nil, err
		}
		res.ActorSchoolID = schoolIDOf(school)
		if school != nil && schoolID == uuid.Nil {
			schoolID = school.ID
			res.SchoolID = school.ID
		}
	}
	if err := authz.Check(actor, authz.ImprovementCreate, res); err != nil {
		return nil, err
	}

	if schoolID == uuid.Nil {
		return nil, apperrors.NewValidationError("School is required", apperrors.FieldError{
			Field: "schoolId", Error: "schoolId is required",
		})
	}
	if actor.Role != models.RoleSchool {
		if _, err := s.schools.GetByID(ctx, schoolID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: school", apperrors.ErrNotFound)
			}
			return nil, err
		}
	}

	imp := &models.Improvement{
		SchoolID:    schoolID,
		UserID:      actor.ID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		FileURL:     optionalString(in.FileURL),
		Status:      models.ImprovementPending,
	}
	if err := s.improvements.Create(ctx, imp); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, actor, models.ActionCreateImprovement, models.EntityImprovements, imp.ID, map[string]any{
		"schoolId": imp.SchoolID.String(),
		"title":    imp.Title,
	})
	return s.improvements.GetByID(ctx, imp.ID)
}

func (s *improvementService) List(ctx context.Context, actor *models.Actor, schoolID *uuid.UUID) ([]*models.Improvement, error) {
	if err := authz.Gate(actor, authz.ImprovementList); err != nil {
		return nil, err
	}

	var actorSchoolID *uuid.UUID
	if actor.Role == models.RoleSchool {
		school, err := resolveActorSchool(ctx, s.schools, actor)
		if err != nil {
			return nil, err
		}
		actorSchoolID = schoolIDOf(school)
	}
	scope, err := authz.ImprovementScope(actor, actorSchoolID)
	if err != nil {
		return nil, err
	}

	switch scope.Kind {
	case authz.ScopeNone:
		return []*models.Improvement{}, nil
	case authz.ScopeSchool:
		if schoolID != nil && *schoolID != scope.SchoolID {
			return []*models.Improvement{}, nil
		}
		id := scope.SchoolID
		schoolID = &id
	}

	list, err := s.improvements.List(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Improvement{}
	}
	return list, nil
}

func (s *improvementService) UpdateStatus(ctx context.Context, actor *models.Actor, id uuid.UUID, in ImprovementStatusInput) (*models.Improvement, error) {
	if err := authz.Check(actor, authz.ImprovementReview, nil); err != nil {
		return nil, err
	}
	if !in.Status.IsValid() {
		return nil, apperrors.NewValidationError("Invalid status", apperrors.FieldError{
			Field: "status", Error: fmt.Sprintf("unknown improvement status %q", in.Status),
		})
	}
	if _, err := s.improvements.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.improvements.UpdateStatus(ctx, id, in.Status); err != nil {
		return nil, err
	}
	return s.improvements.GetByID(ctx, id)
}
