package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/database"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// NetworkGroupRepository defines the interface for network group data access.
type NetworkGroupRepository interface {
	Create(ctx context.Context, group *models.NetworkGroup) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.NetworkGroup, error)
	List(ctx context.Context) ([]*models.NetworkGroup, error)
	Update(ctx context.Context, group *models.NetworkGroup) error
	// Delete removes the group, returning ErrInUse while any school references it.
	Delete(ctx context.Context, id uuid.UUID) error
	CountSchools(ctx context.Context, id uuid.UUID) (int, error)
}

type networkGroupRepository struct{}

// NewNetworkGroupRepository creates a new network group repository.
func NewNetworkGroupRepository() NetworkGroupRepository {
	return &networkGroupRepository{}
}

func (r *networkGroupRepository) Create(ctx context.Context, group *models.NetworkGroup) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	now := time.Now()
	group.CreatedAt = now
	group.UpdatedAt = now

	_, err = q.Exec(ctx, `
		INSERT INTO network_groups (id, code, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		group.ID, group.Code, group.Name, group.Description, group.CreatedAt, group.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: network group code %s already exists", apperrors.ErrConflict, group.Code)
		}
		return fmt.Errorf("failed to create network group: %w", err)
	}
	return nil
}

func (r *networkGroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.NetworkGroup, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	var g models.NetworkGroup
	err = q.QueryRow(ctx, `
		SELECT id, code, name, description, created_at, updated_at
		FROM network_groups WHERE id = $1`, id).Scan(
		&g.ID, &g.Code, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get network group: %w", err)
	}

	rows, err := q.Query(ctx, `SELECT id, code, name FROM schools WHERE network_group_id = $1 ORDER BY name`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get network group schools: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.SchoolSummary
		if err := rows.Scan(&s.ID, &s.Code, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		g.Schools = append(g.Schools, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schools: %w", err)
	}
	g.SchoolCount = len(g.Schools)
	return &g, nil
}

// List retrieves all network groups ordered by code with their school counts.
func (r *networkGroupRepository) List(ctx context.Context) ([]*models.NetworkGroup, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT g.id, g.code, g.name, g.description, g.created_at, g.updated_at,
		       (SELECT count(*) FROM schools s WHERE s.network_group_id = g.id)
		FROM network_groups g
		ORDER BY g.code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list network groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.NetworkGroup
	for rows.Next() {
		var g models.NetworkGroup
		if err := rows.Scan(&g.ID, &g.Code, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt, &g.SchoolCount); err != nil {
			return nil, fmt.Errorf("failed to scan network group: %w", err)
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating network groups: %w", err)
	}
	return groups, nil
}

func (r *networkGroupRepository) Update(ctx context.Context, group *models.NetworkGroup) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	group.UpdatedAt = time.Now()
	result, err := q.Exec(ctx, `
		UPDATE network_groups SET code = $1, name = $2, description = $3, updated_at = $4
		WHERE id = $5`,
		group.Code, group.Name, group.Description, group.UpdatedAt, group.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: network group code %s already exists", apperrors.ErrConflict, group.Code)
		}
		return fmt.Errorf("failed to update network group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *networkGroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx, `DELETE FROM network_groups WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: network group still has schools", apperrors.ErrInUse)
		}
		return fmt.Errorf("failed to delete network group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *networkGroupRepository) CountSchools(ctx context.Context, id uuid.UUID) (int, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM schools WHERE network_group_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count network group schools: %w", err)
	}
	return n, nil
}

var _ NetworkGroupRepository = (*networkGroupRepository)(nil)
