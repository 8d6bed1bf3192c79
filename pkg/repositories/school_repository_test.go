//go:build integration

package repositories

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

func TestSchoolRepository_CodeUnique(t *testing.T) {
	tc := setupRepoTest(t)
	tc.createSchool("SCH001")

	err := tc.schools.Create(tc.ctx, &models.School{Code: "SCH001", Name: "Duplicate"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestSchoolRepository_SupervisorsAndGet(t *testing.T) {
	tc := setupRepoTest(t)
	school := tc.createSchool("SCH001")
	sup1 := tc.createUser(models.RoleSupervisor, "sup1@example.com")
	sup2 := tc.createUser(models.RoleSupervisor, "sup2@example.com")

	require.NoError(t, tc.schools.SetSupervisors(tc.ctx, school.ID, []uuid.UUID{sup1.ID, sup2.ID}))
	got, err := tc.schools.GetByID(tc.ctx, school.ID)
	require.NoError(t, err)
	assert.Len(t, got.Supervisors, 2)

	require.NoError(t, tc.schools.SetSupervisors(tc.ctx, school.ID, []uuid.UUID{sup2.ID}))
	got, err = tc.schools.GetByID(tc.ctx, school.ID)
	require.NoError(t, err)
	require.Len(t, got.Supervisors, 1)
	assert.Equal(t, sup2.ID, got.Supervisors[0].ID)

	assigned, err := tc.schools.ListAssigned(tc.ctx, sup1.ID)
	require.NoError(t, err)
	assert.Empty(t, assigned)

	ok, err := tc.users.IsAssigned(tc.ctx, sup2.ID, school.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSchoolRepository_GetByEmailIsCaseInsensitive(t *testing.T) {
	tc := setupRepoTest(t)
	school := tc.createSchool("SCH001")

	got, err := tc.schools.GetByEmail(tc.ctx, "SCH001@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, school.ID, got.ID)

	_, err = tc.schools.GetByEmail(tc.ctx, "nobody@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSchoolRepository_HighestCode(t *testing.T) {
	tc := setupRepoTest(t)

	code, err := tc.schools.HighestCode(tc.ctx, "SCH")
	require.NoError(t, err)
	assert.Empty(t, code)

	tc.createSchool("SCH002")
	tc.createSchool("SCH010")
	tc.createSchool("OTHER99")

	code, err = tc.schools.HighestCode(tc.ctx, "SCH")
	require.NoError(t, err)
	assert.Equal(t, "SCH010", code)
}

func TestSchoolRepository_DeleteMissing(t *testing.T) {
	tc := setupRepoTest(t)

	assert.ErrorIs(t, tc.schools.Delete(tc.ctx, uuid.New()), apperrors.ErrNotFound)
}

func TestNetworkGroupRepository_DeleteInUse(t *testing.T) {
	tc := setupRepoTest(t)
	group := &models.NetworkGroup{Code: "NG01", Name: "Mueang"}
	require.NoError(t, tc.groups.Create(tc.ctx, group))

	school := tc.createSchool("SCH001")
	school.NetworkGroupID = &group.ID
	require.NoError(t, tc.schools.Update(tc.ctx, school))

	count, err := tc.groups.CountSchools(tc.ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.ErrorIs(t, tc.groups.Delete(tc.ctx, group.ID), apperrors.ErrInUse)

	school.NetworkGroupID = nil
	require.NoError(t, tc.schools.Update(tc.ctx, school))
	assert.NoError(t, tc.groups.Delete(tc.ctx, group.ID))
}
