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

func newTestImprovementService(f *fixture) ImprovementService {
	return NewImprovementService(f.improvements, f.schools, f.activity, testLogger())
}

func TestImprovementService_Create_SchoolDefaultsToOwnSchool(t *testing.T) {
	f := newFixture()
	svc := newTestImprovementService(f)

	imp, err := svc.Create(context.Background(), f.schoolUser, ImprovementInput{
		Title:       " Reading corner ",
		Description: "Set up a library corner",
	})
	require.NoError(t, err)
	assert.Equal(t, f.school.ID, imp.SchoolID)
	assert.Equal(t, f.schoolUser.ID, imp.UserID)
	assert.Equal(t, "Reading corner", imp.Title)
	assert.Equal(t, models.ImprovementPending, imp.Status)
	assert.Nil(t, imp.FileURL)
	assert.Equal(t, []string{models.ActionCreateImprovement}, f.activityRepo.actions())
}

func TestImprovementService_Create_SchoolCannotFileForAnotherSchool(t *testing.T) {
	f := newFixture()
	svc := newTestImprovementService(f)

	_, err := svc.Create(context.Background(), f.schoolUser, ImprovementInput{
		SchoolID: f.otherSchool.ID, Title: "x", Description: "y",
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	orphan := f.actor(models.RoleSchool, "nobody@example.com", "Orphan")
	_, err = svc.Create(context.Background(), orphan, ImprovementInput{Title: "x", Description: "y"})
	assert.ErrorIs(t, err, apperrors.ErrNoSchoolForActor)
}

func TestImprovementService_Create_Admin(t *testing.T) {
	f := newFixture()
	svc := newTestImprovementService(f)

	_, err := svc.Create(context.Background(), f.admin, ImprovementInput{Title: "x", Description: "y"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Create(context.Background(), f.admin, ImprovementInput{SchoolID: uuid.New(), Title: "x", Description: "y"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	imp, err := svc.Create(context.Background(), f.admin, ImprovementInput{
		SchoolID: f.otherSchool.ID, Title: "x", Description: "y", FileURL: "/uploads/plans/a.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/plans/a.pdf", *imp.FileURL)

	_, err = svc.Create(context.Background(), f.supervisor, ImprovementInput{SchoolID: f.school.ID, Title: "x", Description: "y"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestImprovementService_List_Scoping(t *testing.T) {
	f := newFixture()
	svc := newTestImprovementService(f)
	f.improvements.improvements[uuid.New()] = &models.Improvement{SchoolID: f.school.ID, Title: "mine"}
	f.improvements.improvements[uuid.New()] = &models.Improvement{SchoolID: f.otherSchool.ID, Title: "theirs"}

	list, err := svc.List(context.Background(), f.schoolUser, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "mine", list[0].Title)

	list, err = svc.List(context.Background(), f.schoolUser, &f.otherSchool.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	orphan := f.actor(models.RoleSchool, "nobody@example.com", "Orphan")
	calls := f.improvements.listCalls
	list, err = svc.List(context.Background(), orphan, nil)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.Equal(t, calls, f.improvements.listCalls)

	list, err = svc.List(context.Background(), f.executive, nil)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = svc.List(context.Background(), f.supervisor, &f.otherSchool.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestImprovementService_UpdateStatus(t *testing.T) {
	f := newFixture()
	svc := newTestImprovementService(f)
	id := uuid.New()
	f.improvements.improvements[id] = &models.Improvement{ID: id, SchoolID: f.school.ID, Status: models.ImprovementPending}

	_, err := svc.UpdateStatus(context.Background(), f.supervisor, id, ImprovementStatusInput{Status: models.ImprovementApproved})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.UpdateStatus(context.Background(), f.admin, id, ImprovementStatusInput{Status: "rejected"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	imp, err := svc.UpdateStatus(context.Background(), f.admin, id, ImprovementStatusInput{Status: models.ImprovementCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.ImprovementCompleted, imp.Status)

	_, err = svc.UpdateStatus(context.Background(), f.admin, uuid.New(), ImprovementStatusInput{Status: models.ImprovementApproved})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
