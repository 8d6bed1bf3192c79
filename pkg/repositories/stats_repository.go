package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/edusupervise/supervision-engine/pkg/database"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// StatsRepository aggregates dashboard figures. Independent counters run
// concurrently on separate pooled connections.
type StatsRepository interface {
	AdminCounts(ctx context.Context) (*models.AdminStats, error)
	SupervisorCounts(ctx context.Context, userID uuid.UUID) (*models.SupervisorStats, error)
	SchoolCounts(ctx context.Context, schoolID uuid.UUID) (supervisions, improvements int, err error)
	StatusCounts(ctx context.Context) ([]models.StatusCount, error)
	LevelCounts(ctx context.Context) ([]models.LevelCount, error)

	// AcademicYearCounts is ordered by year.
	AcademicYearCounts(ctx context.Context) ([]models.YearCount, error)
	// DistrictCounts counts supervisions by school district, largest first.
	DistrictCounts(ctx context.Context) ([]models.NamedCount, error)
	// NetworkGroupCounts counts supervisions by the school's network group, largest first.
	// Schools outside any group are not counted.
	NetworkGroupCounts(ctx context.Context) ([]models.NetworkGroupCount, error)
	// PolicyUsage counts filled policy slots by policy type across all three slots.
	PolicyUsage(ctx context.Context) ([]models.PolicyTypeCount, error)
	// PolicyByType breaks PolicyUsage down per visit type. Visit types without
	// any policy appear with an empty map.
	PolicyByType(ctx context.Context) ([]models.SupervisionTypePolicies, error)
	// SchoolIndicators returns the limit schools with the most indicators.
	SchoolIndicators(ctx context.Context, limit int) ([]models.SchoolIndicators, error)
	IndicatorRadar(ctx context.Context) ([]models.IndicatorRadar, error)
	// SupervisorPerformance is ordered by total supervisions, largest first. Rate is left zero.
	SupervisorPerformance(ctx context.Context) ([]models.SupervisorPerformance, error)
}

type statsRepository struct {
	db *database.DB
}

// NewStatsRepository creates a stats repository reading through the pool.
func NewStatsRepository(db *database.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) count(ctx context.Context, dst *int, query string, args ...any) error {
	if err := r.db.Pool.QueryRow(ctx, query, args...).Scan(dst); err != nil {
		return fmt.Errorf("failed to count: %w", err)
	}
	return nil
}

func (r *statsRepository) AdminCounts(ctx context.Context) (*models.AdminStats, error) {
	stats := &models.AdminStats{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return r.count(ctx, &stats.TotalSchools, `SELECT count(*) FROM schools`) })
	g.Go(func() error { return r.count(ctx, &stats.TotalSupervisions, `SELECT count(*) FROM supervisions`) })
	g.Go(func() error { return r.count(ctx, &stats.TotalUsers, `SELECT count(*) FROM users`) })
	g.Go(func() error {
		return r.count(ctx, &stats.Approved, `SELECT count(*) FROM supervisions WHERE status = $1`, models.StatusApproved)
	})
	g.Go(func() error {
		return r.count(ctx, &stats.Pending, `SELECT count(*) FROM supervisions WHERE status = $1`, models.StatusSubmitted)
	})
	g.Go(func() error {
		rows, err := r.db.Pool.Query(ctx, `
			SELECT district, count(*) FROM schools
			GROUP BY district ORDER BY count(*) DESC, district`)
		if err != nil {
			return fmt.Errorf("failed to group schools by district: %w", err)
		}
		defer rows.Close()

		counts := []models.DistrictCount{}
		for rows.Next() {
			var dc models.DistrictCount
			if err := rows.Scan(&dc.District, &dc.Count); err != nil {
				return fmt.Errorf("failed to scan district count: %w", err)
			}
			counts = append(counts, dc)
		}
		stats.SchoolsByDistrict = counts
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *statsRepository) SupervisorCounts(ctx context.Context, userID uuid.UUID) (*models.SupervisorStats, error) {
	stats := &models.SupervisorStats{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.count(ctx, &stats.AssignedSchools, `SELECT count(*) FROM school_supervisors WHERE user_id = $1`, userID)
	})
	g.Go(func() error {
		return r.count(ctx, &stats.MySupervisions, `SELECT count(*) FROM supervisions WHERE user_id = $1`, userID)
	})
	g.Go(func() error {
		return r.count(ctx, &stats.PendingAcknowledgements, `
			SELECT count(*) FROM supervisions sv
			WHERE sv.user_id = $1 AND sv.status = $2
			  AND NOT EXISTS (SELECT 1 FROM acknowledgements a WHERE a.supervision_id = sv.id)`,
			userID, models.StatusApproved)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *statsRepository) SchoolCounts(ctx context.Context, schoolID uuid.UUID) (int, int, error) {
	var supervisions, improvements int
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.count(ctx, &supervisions, `SELECT count(*) FROM supervisions WHERE school_id = $1`, schoolID)
	})
	g.Go(func() error {
		return r.count(ctx, &improvements, `SELECT count(*) FROM improvements WHERE school_id = $1`, schoolID)
	})

	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return supervisions, improvements, nil
}

func (r *statsRepository) StatusCounts(ctx context.Context) ([]models.StatusCount, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT status, count(*) FROM supervisions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count supervisions by status: %w", err)
	}
	defer rows.Close()

	found := make(map[models.SupervisionStatus]int)
	for rows.Next() {
		var s models.SupervisionStatus
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		found[s] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts := make([]models.StatusCount, 0, len(models.ValidSupervisionStatuses))
	for _, s := range models.ValidSupervisionStatuses {
		counts = append(counts, models.StatusCount{Status: s, Count: found[s]})
	}
	return counts, nil
}

func (r *statsRepository) LevelCounts(ctx context.Context) ([]models.LevelCount, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT level, count(*) FROM indicators GROUP BY level`)
	if err != nil {
		return nil, fmt.Errorf("failed to count indicators by level: %w", err)
	}
	defer rows.Close()

	found := make(map[models.IndicatorLevel]int)
	for rows.Next() {
		var l models.IndicatorLevel
		var n int
		if err := rows.Scan(&l, &n); err != nil {
			return nil, fmt.Errorf("failed to scan level count: %w", err)
		}
		found[l] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts := make([]models.LevelCount, 0, len(models.ValidIndicatorLevels))
	for _, l := range models.ValidIndicatorLevels {
		counts = append(counts, models.LevelCount{Level: l, Count: found[l]})
	}
	return counts, nil
}

// levelBreakdownColumns yields, per group, the indicator counts scanned by breakdownDest.
const levelBreakdownColumns = `
	count(*) FILTER (WHERE i.level = 'EXCELLENT'),
	count(*) FILTER (WHERE i.level = 'GOOD'),
	count(*) FILTER (WHERE i.level = 'FAIR'),
	count(*) FILTER (WHERE i.level = 'NEEDS_WORK')`

func breakdownDest(b *models.LevelBreakdown) []any {
	return []any{&b.Excellent, &b.Good, &b.Fair, &b.NeedsWork}
}

// policySlots expands each supervision into one row per policy slot.
const policySlots = `
	CROSS JOIN LATERAL (VALUES (sv.minister_policy_id), (sv.obec_policy_id), (sv.area_policy_id)) AS slot(policy_id)`

// collect runs query on the pool and scans every row into a T.
func collect[T any](ctx context.Context, pool *pgxpool.Pool, what, query string, scan func(row pgx.Row, v *T) error, args ...any) ([]T, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var v T
		if err := scan(rows, &v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", what, err)
	}
	return out, nil
}

func (r *statsRepository) AcademicYearCounts(ctx context.Context) ([]models.YearCount, error) {
	return collect(ctx, r.db.Pool, "academic year counts", `
		SELECT academic_year, count(*) FROM supervisions
		WHERE academic_year IS NOT NULL AND academic_year <> ''
		GROUP BY academic_year ORDER BY academic_year`,
		func(row pgx.Row, v *models.YearCount) error { return row.Scan(&v.Year, &v.Count) })
}

func (r *statsRepository) DistrictCounts(ctx context.Context) ([]models.NamedCount, error) {
	return collect(ctx, r.db.Pool, "district counts", `
		SELECT sc.district, count(*)
		FROM supervisions sv JOIN schools sc ON sc.id = sv.school_id
		WHERE sc.district <> ''
		GROUP BY sc.district ORDER BY count(*) DESC, sc.district`,
		func(row pgx.Row, v *models.NamedCount) error { return row.Scan(&v.Name, &v.Count) })
}

func (r *statsRepository) NetworkGroupCounts(ctx context.Context) ([]models.NetworkGroupCount, error) {
	return collect(ctx, r.db.Pool, "network group counts", `
		SELECT ng.id, ng.name, count(*)
		FROM supervisions sv
		JOIN schools sc ON sc.id = sv.school_id
		JOIN network_groups ng ON ng.id = sc.network_group_id
		GROUP BY ng.id, ng.name ORDER BY count(*) DESC, ng.name`,
		func(row pgx.Row, v *models.NetworkGroupCount) error { return row.Scan(&v.ID, &v.Name, &v.Count) })
}

func (r *statsRepository) PolicyUsage(ctx context.Context) ([]models.PolicyTypeCount, error) {
	return collect(ctx, r.db.Pool, "policy usage", `
		SELECT p.type, count(*)
		FROM supervisions sv`+policySlots+`
		JOIN policies p ON p.id = slot.policy_id
		GROUP BY p.type ORDER BY count(*) DESC, p.type`,
		func(row pgx.Row, v *models.PolicyTypeCount) error { return row.Scan(&v.Type, &v.Count) })
}

type visitTypePolicyCount struct {
	visitType  string
	policyType *models.PolicyType
	count      int
}

func (r *statsRepository) PolicyByType(ctx context.Context) ([]models.SupervisionTypePolicies, error) {
	counts, err := collect(ctx, r.db.Pool, "policy usage by visit type", `
		SELECT sv.type, p.type, count(p.id)
		FROM supervisions sv`+policySlots+`
		LEFT JOIN policies p ON p.id = slot.policy_id
		GROUP BY sv.type, p.type ORDER BY sv.type, p.type`,
		func(row pgx.Row, v *visitTypePolicyCount) error {
			return row.Scan(&v.visitType, &v.policyType, &v.count)
		})
	if err != nil {
		return nil, err
	}

	out := []models.SupervisionTypePolicies{}
	for _, c := range counts {
		if len(out) == 0 || out[len(out)-1].Type != c.visitType {
			out = append(out, models.SupervisionTypePolicies{Type: c.visitType, Policies: map[models.PolicyType]int{}})
		}
		if c.policyType != nil && c.count > 0 {
			out[len(out)-1].Policies[*c.policyType] = c.count
		}
	}
	return out, nil
}

func (r *statsRepository) SchoolIndicators(ctx context.Context, limit int) ([]models.SchoolIndicators, error) {
	return collect(ctx, r.db.Pool, "school indicator counts", `
		SELECT sc.id, sc.name,`+levelBreakdownColumns+`
		FROM indicators i
		JOIN supervisions sv ON sv.id = i.supervision_id
		JOIN schools sc ON sc.id = sv.school_id
		GROUP BY sc.id, sc.name
		ORDER BY count(*) DESC, sc.name
		LIMIT $1`,
		func(row pgx.Row, v *models.SchoolIndicators) error {
			return row.Scan(append([]any{&v.SchoolID, &v.School}, breakdownDest(&v.LevelBreakdown)...)...)
		}, limit)
}

func (r *statsRepository) IndicatorRadar(ctx context.Context) ([]models.IndicatorRadar, error) {
	return collect(ctx, r.db.Pool, "indicator radar", `
		SELECT i.name,`+levelBreakdownColumns+`
		FROM indicators i
		GROUP BY i.name ORDER BY i.name`,
		func(row pgx.Row, v *models.IndicatorRadar) error {
			return row.Scan(append([]any{&v.Name}, breakdownDest(&v.LevelBreakdown)...)...)
		})
}

func (r *statsRepository) SupervisorPerformance(ctx context.Context) ([]models.SupervisorPerformance, error) {
	return collect(ctx, r.db.Pool, "supervisor performance", `
		SELECT u.id, u.name, count(*), count(*) FILTER (WHERE sv.status = $1)
		FROM supervisions sv JOIN users u ON u.id = sv.user_id
		GROUP BY u.id, u.name ORDER BY count(*) DESC, u.name`,
		func(row pgx.Row, v *models.SupervisorPerformance) error {
			return row.Scan(&v.ID, &v.Name, &v.Total, &v.Approved)
		}, models.StatusApproved)
}

var _ StatsRepository = (*statsRepository)(nil)
