package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/validation"
)

type importFixture struct {
	*fixture
	groups *mockNetworkGroupRepository
	svc    ImportService
}

func newImportFixture() *importFixture {
	f := newFixture()
	groups := newMockNetworkGroupRepository()
	svc := NewImportService(
		NewSchoolService(f.schools, f.users, NoTx, testLogger()),
		NewNetworkGroupService(groups, testLogger()),
		NewPolicyService(f.policies, testLogger()),
		f.activity,
		validation.New(),
		testLogger(),
	)
	return &importFixture{fixture: f, groups: groups, svc: svc}
}

func (f *importFixture) run(actor *models.Actor, kind models.ImportKind, filename, content string) (*models.ImportResult, error) {
	return f.svc.Import(context.Background(), actor, kind, filename, strings.NewReader(content))
}

func TestImportService_Schools(t *testing.T) {
	f := newImportFixture()
	group := &models.NetworkGroup{Code: "NG01", Name: "Network One"}
	require.NoError(t, f.groups.Create(context.Background(), group))

	csv := "Code,Name,District,Student Count,Network_Group_Code\n" +
		"SCH100,Ban Khok School,Mueang,\"1,250\",NG01\n" +
		"SCH001,Duplicate School,Mueang,,\n" +
		"SCH101,No District School,,,\n" +
		"SCH102,Bad Count School,Mueang,many,\n" +
		"SCH103,Unknown Group School,Mueang,,NG99\n" +
		",Nameless Code,Mueang,,\n"

	result, err := f.run(f.admin, models.ImportSchools, "schools.csv", csv)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 5, result.Failed)
	rows := make([]int, 0, len(result.Errors))
	for _, e := range result.Errors {
		rows = append(rows, e.Row)
	}
	assert.Equal(t, []int{3, 4, 5, 6, 7}, rows)
	assert.Contains(t, result.Errors[0].Message, "conflict")
	assert.Contains(t, result.Errors[1].Message, "district")
	assert.Contains(t, result.Errors[2].Message, "studentCount")
	assert.Contains(t, result.Errors[3].Message, "NG99")

	var created *models.School
	for _, s := range f.schools.schools {
		if s.Code == "SCH100" {
			created = s
		}
	}
	require.NotNil(t, created)
	assert.Equal(t, 1250, created.StudentCount)
	require.NotNil(t, created.NetworkGroupID)
	assert.Equal(t, group.ID, *created.NetworkGroupID)
	assert.Contains(t, f.activityRepo.actions(), models.ActionImportData)
}

func TestImportService_NetworkGroups(t *testing.T) {
	f := newImportFixture()

	csv := "code,name,description\nNG01,Network One,North\nNG01,Again,\nNG02,,\n"
	result, err := f.run(f.admin, models.ImportNetworkGroups, "groups.csv", csv)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 2, result.Failed)
	assert.Len(t, f.groups.groups, 1)
}

func TestImportService_Policies(t *testing.T) {
	f := newImportFixture()

	csv := "type,code,title,isActive\n" +
		"การส่งเสริมการอ่านและวัฒนธรรมการอ่าน,M01,Reading for all,\n" +
		"school-safety,O01,Safe schools,no\n" +
		"UNKNOWN,X01,Nothing,\n" +
		"SCHOOL_SAFETY,O02,Bad flag,maybe\n"
	result, err := f.run(f.admin, models.ImportPolicies, "policies.csv", csv)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 2, result.Failed)
	assert.Contains(t, result.Errors[0].Message, "policy type")
	assert.Contains(t, result.Errors[1].Message, "isActive")

	byCode := map[string]*models.Policy{}
	for _, p := range f.policies.policies {
		byCode[p.Code] = p
	}
	require.Contains(t, byCode, "M01")
	require.Contains(t, byCode, "O01")
	assert.Equal(t, models.PolicyReadingCulture, byCode["M01"].Type)
	assert.True(t, byCode["M01"].IsActive)
	assert.Equal(t, models.PolicySchoolSafety, byCode["O01"].Type)
	assert.False(t, byCode["O01"].IsActive)
}

func TestImportService_FileErrors(t *testing.T) {
	f := newImportFixture()

	cases := []struct {
		name     string
		kind     models.ImportKind
		filename string
		content  string
	}{
		{name: "unknown kind", kind: "users", filename: "a.csv", content: "code\nx\n"},
		{name: "unsupported format", kind: models.ImportSchools, filename: "a.xls", content: "code\nx\n"},
		{name: "empty file", kind: models.ImportSchools, filename: "a.csv", content: ""},
		{name: "header only", kind: models.ImportSchools, filename: "a.csv", content: "code,name\n"},
		{name: "broken xlsx", kind: models.ImportSchools, filename: "a.xlsx", content: "not a zip"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.run(f.admin, tc.kind, tc.filename, tc.content)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
	assert.NotContains(t, f.activityRepo.actions(), models.ActionImportData)
}

func TestImportService_AdminOnly(t *testing.T) {
	f := newImportFixture()

	for _, actor := range []*models.Actor{f.supervisor, f.executive, f.schoolUser} {
		_, err := f.run(actor, models.ImportNetworkGroups, "groups.csv", "code,name\nNG01,One\n")
		assert.ErrorIs(t, err, apperrors.ErrForbidden, string(actor.Role))
	}
	assert.Empty(t, f.groups.groups)
}

func TestImportService_StoreFailureAborts(t *testing.T) {
	f := newImportFixture()
	boom := errors.New("connection reset")
	f.schools.getErr = boom

	_, err := f.run(f.admin, models.ImportSchools, "schools.csv", "code,name,district\nSCH200,New School,Mueang\n")
	assert.ErrorIs(t, err, boom)
}
