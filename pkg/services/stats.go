package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/authz"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/repositories"
)

// StatsService computes the dashboard summaries for each role.
type StatsService interface {
	Admin(ctx context.Context, actor *models.Actor) (*models.AdminStats, error)
	Supervisor(ctx context.Context, actor *models.Actor) (*models.SupervisorStats, error)
	// School summarises one school. SCHOOL accounts always get their own school;
	// ADMIN may name one with schoolID.
	School(ctx context.Context, actor *models.Actor, schoolID *uuid.UUID) (*models.SchoolStats, error)
	Analytics(ctx context.Context, actor *models.Actor) (*models.Analytics, error)
}

type statsService struct {
	stats        repositories.StatsRepository
	schools      repositories.SchoolRepository
	supervisions repositories.SupervisionRepository
	logger       *zap.Logger
}

// NewStatsService creates a new StatsService.
func NewStatsService(
	stats repositories.StatsRepository,
	schools repositories.SchoolRepository,
	supervisions repositories.SupervisionRepository,
	logger *zap.Logger,
) StatsService {
	return &statsService{
		stats:        stats,
		schools:      schools,
		supervisions: supervisions,
		logger:       logger.Named("stats-service"),
	}
}

var _ StatsService = (*statsService)(nil)

func (s *statsService) Admin(ctx context.Context, actor *models.Actor) (*models.AdminStats, error) {
	if err := authz.Check(actor, authz.AdminStatsView, nil); err != nil {
		return nil, err
	}
	stats, err := s.stats.AdminCounts(ctx)
	if err != nil {
		return nil, err
	}
	stats.ApprovalRate = ApprovalRate(stats.Approved, stats.TotalSupervisions)
	return stats, nil
}

// ApprovalRate is the rounded percentage of approved supervisions.
func ApprovalRate(approved, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(approved) * 100 / float64(total)))
}

func (s *statsService) Supervisor(ctx context.Context, actor *models.Actor) (*models.SupervisorStats, error) {
	if err := authz.Check(actor, authz.SupervisorStatsView, nil); err != nil {
		return nil, err
	}
	return s.stats.SupervisorCounts(ctx, actor.ID)
}

func (s *statsService) School(ctx context.Context, actor *models.Actor, schoolID *uuid.UUID) (*models.SchoolStats, error) {
	if err := authz.Check(actor, authz.SchoolStatsView, nil); err != nil {
		return nil, err
	}

	school, err := s.statsSchool(ctx, actor, schoolID)
	if err != nil {
		return nil, err
	}

	stats := &models.SchoolStats{
		School: models.SchoolProfile{
			Name:         school.Name,
			Code:         school.Code,
			StudentCount: school.StudentCount,
			TeacherCount: school.TeacherCount,
		},
	}
	// Counts read through the pool; only the latest lookup uses the request connection.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sup, imp, err := s.stats.SchoolCounts(gctx, school.ID)
		if err != nil {
			return err
		}
		stats.TotalSupervisions = sup
		stats.Improvements = imp
		return nil
	})
	g.Go(func() error {
		latest, err := s.supervisions.LatestForSchool(gctx, school.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil
			}
			return err
		}
		stats.LatestSupervision = latest
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *statsService) statsSchool(ctx context.Context, actor *models.Actor, schoolID *uuid.UUID) (*models.School, error) {
	if actor.Role == models.RoleAdmin && schoolID != nil {
		return s.schools.GetByID(ctx, *schoolID)
	}
	school, err := s.schools.GetByEmail(ctx, actor.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: no school is linked to this account", apperrors.ErrNotFound)
		}
		return nil, err
	}
	return school, nil
}

// topSchoolIndicators caps the per-school indicator comparison.
const topSchoolIndicators = 10

func (s *statsService) Analytics(ctx context.Context, actor *models.Actor) (*models.Analytics, error) {
	if err := authz.Check(actor, authz.AnalyticsView, nil); err != nil {
		return nil, err
	}

	out := &models.Analytics{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Statuses, err = s.stats.StatusCounts(gctx)
		return
	})
	g.Go(func() (err error) {
		out.Levels, err = s.stats.LevelCounts(gctx)
		return
	})
	g.Go(func() (err error) {
		out.AcademicYears, err = s.stats.AcademicYearCounts(gctx)
		return
	})
	g.Go(func() (err error) {
		out.Districts, err = s.stats.DistrictCounts(gctx)
		return
	})
	g.Go(func() (err error) {
		out.NetworkGroups, err = s.stats.NetworkGroupCounts(gctx)
		return
	})
	g.Go(func() (err error) {
		out.PolicyUsage, err = s.stats.PolicyUsage(gctx)
		return
	})
	g.Go(func() (err error) {
		out.PolicyByType, err = s.stats.PolicyByType(gctx)
		return
	})
	g.Go(func() (err error) {
		out.SchoolIndicators, err = s.stats.SchoolIndicators(gctx, topSchoolIndicators)
		return
	})
	g.Go(func() (err error) {
		out.IndicatorRadar, err = s.stats.IndicatorRadar(gctx)
		return
	})
	g.Go(func() (err error) {
		out.Supervisors, err = s.stats.SupervisorPerformance(gctx)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range out.Supervisors {
		sp := &out.Supervisors[i]
		sp.Rate = ApprovalRate(sp.Approved, sp.Total)
	}
	return out, nil
}
