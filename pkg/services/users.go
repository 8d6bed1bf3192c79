package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/authz"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/repositories"
)

// RegisterInput is the public self-registration request.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"notblank"`
}

// LoginInput is the credential sign-in request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateUserInput is the administrator's user creation request.
type CreateUserInput struct {
	Email             string      `json:"email" validate:"required,email"`
	Name              string      `json:"name" validate:"notblank"`
	Password          string      `json:"password" validate:"required,min=6"`
	Role              models.Role `json:"role" validate:"required,role"`
	AssignedSchoolIDs []uuid.UUID `json:"assignedSchoolIds"`
}

// UpdateUserInput changes a user's profile. A nil AssignedSchoolIDs leaves the
// assignment set untouched; an empty list clears it.
type UpdateUserInput struct {
	Name              string       `json:"name" validate:"notblank"`
	Role              models.Role  `json:"role" validate:"required,role"`
	AssignedSchoolIDs *[]uuid.UUID `json:"assignedSchoolIds"`
}

// UserService manages accounts and credential sign-in.
type UserService interface {
	// Register creates a SCHOOL account. The role cannot be chosen by the caller.
	Register(ctx context.Context, in RegisterInput) (*models.User, error)

	// Authenticate checks credentials and returns the stored user.
	// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
	Authenticate(ctx context.Context, in LoginInput) (*models.User, error)

	// Load returns the user behind an authenticated identity.
	Load(ctx context.Context, id uuid.UUID) (*models.User, error)

	List(ctx context.Context, actor *models.Actor) ([]*models.User, error)
	Get(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, actor *models.Actor, in CreateUserInput) (*models.User, error)
	Update(ctx context.Context, actor *models.Actor, id uuid.UUID, in UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, actor *models.Actor, id uuid.UUID) error
}

type userService struct {
	users    repositories.UserRepository
	activity ActivityLogService
	inTx     TxFunc
	logger   *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users repositories.UserRepository, activity ActivityLogService, inTx TxFunc, logger *zap.Logger) UserService {
	return &userService{
		users:    users,
		activity: activity,
		inTx:     inTx,
		logger:   logger.Named("user-service"),
	}
}

var _ UserService = (*userService)(nil)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        normalizeEmail(in.Email),
		Name:         strings.TrimSpace(in.Name),
		Role:         models.RoleSchool,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, in LoginInput) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	ok, err := auth.CheckPassword(user.PasswordHash, in.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) Load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *userService) List(ctx context.Context, actor *models.Actor) ([]*models.User, error) {
	if err := authz.Check(actor, authz.UserManage, nil); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

func (s *userService) Get(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.User, error) {
	if err := authz.Check(actor, authz.UserManage, nil); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

func (s *userService) Create(ctx context.Context, actor *models.Actor, in CreateUserInput) (*models.User, error) {
	if err := authz.Check(actor, authz.UserManage, nil); err != nil {
		return nil, err
	}
	if !in.Role.IsValid() {
		return nil, apperrors.ErrInvalidRole
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        normalizeEmail(in.Email),
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		PasswordHash: hash,
	}
	if in.Role == models.RoleSupervisor {
		user.AssignedSchoolIDs = in.AssignedSchoolIDs
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, actor, models.ActionCreateUser, models.EntityUsers, user.ID, map[string]any{
		"email": user.Email,
		"role":  string(user.Role),
	})
	return user, nil
}

func (s *userService) Update(ctx context.Context, actor *models.Actor, id uuid.UUID, in UpdateUserInput) (*models.User, error) {
	if err := authz.Check(actor, authz.UserManage, nil); err != nil {
		return nil, err
	}
	if !in.Role.IsValid() {
		return nil, apperrors.ErrInvalidRole
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Name = strings.TrimSpace(in.Name)
	user.Role = in.Role

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		switch {
		case user.Role != models.RoleSupervisor && len(user.AssignedSchoolIDs) > 0:
			user.AssignedSchoolIDs = nil
			return s.users.SetAssignedSchools(ctx, user.ID, nil)
		case user.Role == models.RoleSupervisor && in.AssignedSchoolIDs != nil:
			user.AssignedSchoolIDs = *in.AssignedSchoolIDs
			return s.users.SetAssignedSchools(ctx, user.ID, user.AssignedSchoolIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, actor, models.ActionUpdateUser, models.EntityUsers, user.ID, map[string]any{
		"role":            string(user.Role),
		"assignedSchools": len(user.AssignedSchoolIDs),
	})
	return user, nil
}

func (s *userService) Delete(ctx context.Context, actor *models.Actor, id uuid.UUID) error {
	if err := authz.Check(actor, authz.UserManage, nil); err != nil {
		return err
	}
	if actor.ID == id {
		return apperrors.ErrSelfDelete
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}

	s.activity.Record(ctx, actor, models.ActionDeleteUser, models.EntityUsers, id, map[string]any{
		"email": user.Email,
	})
	return nil
}
