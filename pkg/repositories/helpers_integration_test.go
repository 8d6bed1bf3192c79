//go:build integration

package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/testhelpers"
)

// repoTestContext holds the repositories and a scoped context for one test.
type repoTestContext struct {
	t            *testing.T
	ctx          context.Context
	users        UserRepository
	schools      SchoolRepository
	groups       NetworkGroupRepository
	policies     PolicyRepository
	supervisions SupervisionRepository
	acks         AcknowledgementRepository
	improvements ImprovementRepository
	activity     ActivityLogRepository
	settings     SettingsRepository
	stats        StatsRepository
}

// setupRepoTest truncates the shared database and returns a fresh context.
func setupRepoTest(t *testing.T) *repoTestContext {
	engineDB := testhelpers.GetEngineDB(t)
	engineDB.Truncate(t)

	ctx, release := engineDB.ScopedContext(t)
	t.Cleanup(release)

	return &repoTestContext{
		t:            t,
		ctx:          ctx,
		users:        NewUserRepository(),
		schools:      NewSchoolRepository(),
		groups:       NewNetworkGroupRepository(),
		policies:     NewPolicyRepository(),
		supervisions: NewSupervisionRepository(),
		acks:         NewAcknowledgementRepository(),
		improvements: NewImprovementRepository(),
		activity:     NewActivityLogRepository(),
		settings:     NewSettingsRepository(),
		stats:        NewStatsRepository(engineDB.DB),
	}
}

func (tc *repoTestContext) createUser(role models.Role, email string) *models.User {
	tc.t.Helper()
	u := &models.User{Email: email, Name: "User " + email, Role: role, PasswordHash: "$2a$10$hash"}
	require.NoError(tc.t, tc.users.Create(tc.ctx, u))
	return u
}

func (tc *repoTestContext) createSchool(code string) *models.School {
	tc.t.Helper()
	s := &models.School{
		Code:          code,
		Name:          "School " + code,
		District:      "Mueang",
		Email:         fmt.Sprintf("%s@example.com", code),
		PrincipalName: "Principal " + code,
	}
	require.NoError(tc.t, tc.schools.Create(tc.ctx, s))
	return s
}

func (tc *repoTestContext) createPolicy(policyType models.PolicyType, code string) *models.Policy {
	tc.t.Helper()
	p := &models.Policy{Code: code, Title: "Policy " + code, Type: policyType, IsActive: true}
	require.NoError(tc.t, tc.policies.Create(tc.ctx, p))
	return p
}

func (tc *repoTestContext) createSupervision(author *models.User, school *models.School, status models.SupervisionStatus, date time.Time) *models.Supervision {
	tc.t.Helper()
	year := "2569"
	s := &models.Supervision{
		SchoolID:     school.ID,
		UserID:       author.ID,
		Type:         "นิเทศภายใน",
		Date:         date,
		AcademicYear: &year,
		Status:       status,
		Indicators: []models.Indicator{
			{ID: uuid.New(), Name: "Lesson planning", Level: models.LevelGood},
			{ID: uuid.New(), Name: "Classroom management", Level: models.LevelFair},
		},
		Attachments: []models.Attachment{
			{ID: uuid.New(), Filename: "a.pdf", FileURL: "/uploads/a.pdf", FileType: "application/pdf", FileSize: 10},
		},
	}
	require.NoError(tc.t, tc.supervisions.Create(tc.ctx, s))
	return s
}
