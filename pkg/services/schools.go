package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/authz"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/repositories"
)

// SchoolCodePrefix prefixes generated school codes.
const SchoolCodePrefix = "SCH"

// SchoolInput is the create and update request for a school.
// A nil SupervisorIDs leaves the supervisor set untouched on update.
type SchoolInput struct {
	Code           string       `json:"code" validate:"notblank,max=50"`
	Name           string       `json:"name" validate:"notblank,max=255"`
	Province       string       `json:"province"`
	District       string       `json:"district"`
	SubDistrict    string       `json:"subDistrict"`
	Address        string       `json:"address"`
	Phone          string       `json:"phone"`
	Email          string       `json:"email" validate:"omitempty,email"`
	PrincipalName  string       `json:"principalName"`
	StudentCount   int          `json:"studentCount" validate:"min=0"`
	TeacherCount   int          `json:"teacherCount" validate:"min=0"`
	NetworkGroupID *uuid.UUID   `json:"networkGroupId"`
	SupervisorIDs  *[]uuid.UUID `json:"supervisorIds"`
}

func (in SchoolInput) apply(s *models.School) {
	s.Code = strings.TrimSpace(in.Code)
	s.Name = strings.TrimSpace(in.Name)
	s.Province = in.Province
	s.District = in.District
	s.SubDistrict = in.SubDistrict
	s.Address = in.Address
	s.Phone = in.Phone
	s.Email = normalizeEmail(in.Email)
	s.PrincipalName = in.PrincipalName
	s.StudentCount = in.StudentCount
	s.TeacherCount = in.TeacherCount
	s.NetworkGroupID = in.NetworkGroupID
}

// SchoolService manages schools and their supervisor assignments.
type SchoolService interface {
	// List returns the schools visible to actor. SUPERVISOR accounts see only
	// the schools they are assigned to.
	List(ctx context.Context, actor *models.Actor) ([]*models.School, error)
	Get(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.School, error)
	Create(ctx context.Context, actor *models.Actor, in SchoolInput) (*models.School, error)
	Update(ctx context.Context, actor *models.Actor, id uuid.UUID, in SchoolInput) (*models.School, error)
	Delete(ctx context.Context, actor *models.Actor, id uuid.UUID) error

	// GenerateCode proposes the next free SCH code.
	GenerateCode(ctx context.Context, actor *models.Actor) (string, error)

	// AssignSupervisors replaces the supervisor set of a school.
	AssignSupervisors(ctx context.Context, actor *models.Actor, schoolID uuid.UUID, supervisorIDs []uuid.UUID) (*models.School, error)
}

type schoolService struct {
	schools repositories.SchoolRepository
	users   repositories.UserRepository
	inTx    TxFunc
	logger  *zap.Logger
}

// NewSchoolService creates a new SchoolService.
func NewSchoolService(schools repositories.SchoolRepository, users repositories.UserRepository, inTx TxFunc, logger *zap.Logger) SchoolService {
	return &schoolService{
		schools: schools,
		users:   users,
		inTx:    inTx,
		logger:  logger.Named("school-service"),
	}
}

var _ SchoolService = (*schoolService)(nil)

func (s *schoolService) List(ctx context.Context, actor *models.Actor) ([]*models.School, error) {
	if err := authz.Check(actor, authz.SchoolView, nil); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleSupervisor {
		return s.schools.ListAssigned(ctx, actor.ID)
	}
	return s.schools.List(ctx)
}

func (s *schoolService) Get(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.School, error) {
	if err := authz.Check(actor, authz.SchoolView, nil); err != nil {
		return nil, err
	}
	return s.schools.GetByID(ctx, id)
}

func (s *schoolService) Create(ctx context.Context, actor *models.Actor, in SchoolInput) (*models.School, error) {
	if err := authz.Check(actor, authz.SchoolManage, nil); err != nil {
		return nil, err
	}
	if in.SupervisorIDs != nil {
		if err := s.requireSupervisors(ctx, *in.SupervisorIDs); err != nil {
			return nil, err
		}
	}

	school := &models.School{}
	in.apply(school)
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.schools.Create(ctx, school); err != nil {
			return err
		}
		if in.SupervisorIDs != nil && len(*in.SupervisorIDs) > 0 {
			return s.schools.SetSupervisors(ctx, school.ID, *in.SupervisorIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("School created",
		zap.String("school_id", school.ID.String()),
		zap.String("code", school.Code))
	return s.schools.GetByID(ctx, school.ID)
}

func (s *schoolService) Update(ctx context.Context, actor *models.Actor, id uuid.UUID, in SchoolInput) (*models.School, error) {
	if err := authz.Check(actor, authz.SchoolManage, nil); err != nil {
		return nil, err
	}

	school, err := s.schools.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.SupervisorIDs != nil {
		if err := s.requireSupervisors(ctx, *in.SupervisorIDs); err != nil {
			return nil, err
		}
	}

	in.apply(school)
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.schools.Update(ctx, school); err != nil {
			return err
		}
		if in.SupervisorIDs != nil {
			return s.schools.SetSupervisors(ctx, school.ID, *in.SupervisorIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.schools.GetByID(ctx, id)
}

func (s *schoolService) Delete(ctx context.Context, actor *models.Actor, id uuid.UUID) error {
	if err := authz.Check(actor, authz.SchoolManage, nil); err != nil {
		return err
	}
	if err := s.schools.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("School deleted", zap.String("school_id", id.String()))
	return nil
}

func (s *schoolService) GenerateCode(ctx context.Context, actor *models.Actor) (string, error) {
	if err := authz.Check(actor, authz.SchoolManage, nil); err != nil {
		return "", err
	}
	highest, err := s.schools.HighestCode(ctx, SchoolCodePrefix)
	if err != nil {
		return "", err
	}
	return NextSchoolCode(highest), nil
}

// NextSchoolCode returns the code following highest, or SCH001 when highest
// is empty or carries no numeric suffix.
func NextSchoolCode(highest string) string {
	next := 1
	if n, err := strconv.Atoi(strings.TrimPrefix(highest, SchoolCodePrefix)); err == nil && n >= 0 {
		next = n + 1
	}
	return fmt.Sprintf("%s%03d", SchoolCodePrefix, next)
}

func (s *schoolService) AssignSupervisors(ctx context.Context, actor *models.Actor, schoolID uuid.UUID, supervisorIDs []uuid.UUID) (*models.School, error) {
	if err := authz.Check(actor, authz.SchoolManage, nil); err != nil {
		return nil, err
	}
	if _, err := s.schools.GetByID(ctx, schoolID); err != nil {
		return nil, err
	}
	if err := s.requireSupervisors(ctx, supervisorIDs); err != nil {
		return nil, err
	}
	if err := s.schools.SetSupervisors(ctx, schoolID, supervisorIDs); err != nil {
		return nil, err
	}

	s.logger.Info("Supervisors assigned",
		zap.String("school_id", schoolID.String()),
		zap.Int("count", len(supervisorIDs)))
	return s.schools.GetByID(ctx, schoolID)
}

// requireSupervisors fails unless every id is a distinct SUPERVISOR account.
func (s *schoolService) requireSupervisors(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	unique := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		unique[id] = true
	}
	n, err := s.users.CountWithRole(ctx, ids, models.RoleSupervisor)
	if err != nil {
		return err
	}
	if n != len(unique) {
		return apperrors.NewValidationError("Invalid supervisors", apperrors.FieldError{
			Field: "supervisorIds",
			Error: "all ids must belong to SUPERVISOR users",
		})
	}
	return nil
}
