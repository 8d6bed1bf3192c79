package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/database"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// PolicyFilter narrows policy listings.
type PolicyFilter struct {
	Type            *models.PolicyType
	IncludeInactive bool
}

// PolicyRepository defines the interface for policy data access.
type PolicyRepository interface {
	Create(ctx context.Context, policy *models.Policy) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Policy, error)
	// ExistingIDs returns the subset of ids that exist.
	ExistingIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)
	List(ctx context.Context, filter PolicyFilter) ([]*models.Policy, error)
	Update(ctx context.Context, policy *models.Policy) error
	// Delete removes the policy, returning ErrInUse while any supervision references it.
	Delete(ctx context.Context, id uuid.UUID) error
	CountReferences(ctx context.Context, id uuid.UUID) (int, error)
	CodesByType(ctx context.Context, policyType models.PolicyType) ([]string, error)
}

type policyRepository struct{}

// NewPolicyRepository creates a new policy repository.
func NewPolicyRepository() PolicyRepository {
	return &policyRepository{}
}

const policyColumns = `id, code, title, description, type, is_active, created_at, updated_at`

func scanPolicy(row pgx.Row, p *models.Policy) error {
	return row.Scan(&p.ID, &p.Code, &p.Title, &p.Description, &p.Type, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
}

func (r *policyRepository) Create(ctx context.Context, policy *models.Policy) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	if policy.ID == uuid.Nil {
		policy.ID = uuid.New()
	}
	now := time.Now()
	policy.CreatedAt = now
	policy.UpdatedAt = now

	_, err = q.Exec(ctx, `
		INSERT INTO policies (id, code, title, description, type, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		policy.ID, policy.Code, policy.Title, policy.Description, policy.Type, policy.IsActive,
		policy.CreatedAt, policy.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: policy code %s already exists for type %s", apperrors.ErrConflict, policy.Code, policy.Type)
		}
		return fmt.Errorf("failed to create policy: %w", err)
	}
	return nil
}

func (r *policyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	var p models.Policy
	if err := scanPolicy(q.QueryRow(ctx, `SELECT `+policyColumns+` FROM policies WHERE id = $1`, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return &p, nil
}

func (r *policyRepository) ExistingIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	found := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT id FROM policies WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check policies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan policy id: %w", err)
		}
		found[id] = true
	}
	return found, rows.Err()
}

// List retrieves policies ordered by type then code. Inactive policies are
// excluded unless requested.
func (r *policyRepository) List(ctx context.Context, filter PolicyFilter) ([]*models.Policy, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	var where []string
	var args []any
	if filter.Type != nil {
		args = append(args, *filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if !filter.IncludeInactive {
		where = append(where, "is_active")
	}

	query := `SELECT ` + policyColumns + ` FROM policies`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY type, code`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var policies []*models.Policy
	for rows.Next() {
		var p models.Policy
		if err := scanPolicy(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating policies: %w", err)
	}
	return policies, nil
}

// Update changes only title, description and active flag.
func (r *policyRepository) Update(ctx context.Context, policy *models.Policy) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	policy.UpdatedAt = time.Now()
	result, err := q.Exec(ctx, `
		UPDATE policies SET title = $1, description = $2, is_active = $3, updated_at = $4
		WHERE id = $5`,
		policy.Title, policy.Description, policy.IsActive, policy.UpdatedAt, policy.ID)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *policyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx, `DELETE FROM policies WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: policy is cited by supervisions", apperrors.ErrInUse)
		}
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// CountReferences counts supervisions citing the policy in any slot.
func (r *policyRepository) CountReferences(ctx context.Context, id uuid.UUID) (int, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = q.QueryRow(ctx, `
		SELECT count(*) FROM supervisions
		WHERE minister_policy_id = $1 OR obec_policy_id = $1 OR area_policy_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count policy references: %w", err)
	}
	return n, nil
}

func (r *policyRepository) CodesByType(ctx context.Context, policyType models.PolicyType) ([]string, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT code FROM policies WHERE type = $1`, policyType)
	if err != nil {
		return nil, fmt.Errorf("failed to list policy codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan policy code: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

var _ PolicyRepository = (*policyRepository)(nil)
