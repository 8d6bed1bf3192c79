package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

func newTestUserService(f *fixture) UserService {
	return NewUserService(f.users, f.activity, NoTx, testLogger())
}

func TestUserService_Register_ForcesSchoolRole(t *testing.T) {
	f := newFixture()
	svc := newTestUserService(f)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "  NewSchool@Example.com ",
		Password: "secret1",
		Name:     " New School ",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RoleSchool, user.Role)
	assert.Equal(t, "newschool@example.com", user.Email)
	assert.Equal(t, "New School", user.Name)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.NotEmpty(t, user.PasswordHash)
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	f := newFixture()
	svc := newTestUserService(f)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "admin@example.com", Password: "secret1", Name: "Dup"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUserService_Authenticate(t *testing.T) {
	f := newFixture()
	svc := newTestUserService(f)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "login@example.com", Password: "secret1", Name: "Login"})
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), LoginInput{Email: "LOGIN@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "login@example.com", user.Email)

	_, err = svc.Authenticate(context.Background(), LoginInput{Email: "login@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), LoginInput{Email: "ghost@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	// Fixture accounts carry no password hash.
	_, err = svc.Authenticate(context.Background(), LoginInput{Email: "admin@example.com", Password: ""})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUserService_AdminOnly(t *testing.T) {
	f := newFixture()
	svc := newTestUserService(f)

	for _, actor := range []*models.Actor{f.supervisor, f.schoolUser, f.executive} {
		_, err := svc.List(context.Background(), actor)
		assert.ErrorIs(t, err, apperrors.ErrForbidden, actor.Role)
	}
	_, err := svc.List(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	users, err := svc.List(context.Background(), f.admin)
	require.NoError(t, err)
	assert.Len(t, users, 5)
}

func TestUserService_Create(t *testing.T) {
	f := newFixture()
	svc := newTestUserService(f)

	user, err := svc.Create(context.Background(), f.admin, CreateUserInput{
		Email:             "new.sup@example.com",
		Name:              "New Supervisor",
		Password:          "secret1",
		Role:              models.RoleSupervisor,
		AssignedSchoolIDs: []uuid.UUID{f.school.ID},
	})
	require.NoError(t, err)
	assert.True(t, f.users.assignments[user.ID][f.school.ID])
	assert.Equal(t, []string{models.ActionCreateUser}, f.activityRepo.actions())

	exec, err := svc.Create(context.Background(), f.admin, CreateUserInput{
		Email:             "new.exec@example.com",
		Name:              "New Executive",
		Password:          "secret1",
		Role:              models.RoleExecutive,
		AssignedSchoolIDs: []uuid.UUID{f.school.ID},
	})
	require.NoError(t, err)
	assert.Empty(t, exec.AssignedSchoolIDs, "only supervisors carry assignments")

	_, err = svc.Create(context.Background(), f.admin, CreateUserInput{
		Email: "x@example.com", Name: "X", Password: "secret1", Role: "ROOT",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRole)
}

func TestUserService_Update_ClearsAssignmentsWhenLeavingSupervisor(t *testing.T) {
	f := newFixture()
	svc := newTestUserService(f)
	stored := f.users.users[f.supervisor.ID]
	stored.AssignedSchoolIDs = []uuid.UUID{f.school.ID}

	user, err := svc.Update(context.Background(), f.admin, f.supervisor.ID, UpdateUserInput{
		Name: "Now Executive",
		Role: models.RoleExecutive,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleExecutive, user.Role)
	assert.Empty(t, user.AssignedSchoolIDs)
	assert.Empty(t, f.users.assignments[f.supervisor.ID])
	assert.Equal(t, []string{models.ActionUpdateUser}, f.activityRepo.actions())
}

func TestUserService_Update_ReplacesAssignments(t *testing.T) {
	f := newFixture()
	svc := newTestUserService(f)

	ids := []uuid.UUID{f.otherSchool.ID}
	_, err := svc.Update(context.Background(), f.admin, f.supervisor.ID, UpdateUserInput{
		Name:              "Supervisor One",
		Role:              models.RoleSupervisor,
		AssignedSchoolIDs: &ids,
	})
	require.NoError(t, err)
	assert.False(t, f.users.assignments[f.supervisor.ID][f.school.ID])
	assert.True(t, f.users.assignments[f.supervisor.ID][f.otherSchool.ID])

	_, err = svc.Update(context.Background(), f.admin, uuid.New(), UpdateUserInput{Name: "x", Role: models.RoleSchool})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserService_Delete(t *testing.T) {
	f := newFixture()
	svc := newTestUserService(f)

	err := svc.Delete(context.Background(), f.admin, f.admin.ID)
	assert.ErrorIs(t, err, apperrors.ErrSelfDelete)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, svc.Delete(context.Background(), f.admin, f.executive.ID))
	assert.NotContains(t, f.users.users, f.executive.ID)
	assert.Equal(t, []string{models.ActionDeleteUser}, f.activityRepo.actions())

	assert.ErrorIs(t, svc.Delete(context.Background(), f.admin, uuid.New()), apperrors.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), f.supervisor, f.other.ID), apperrors.ErrForbidden)
}
