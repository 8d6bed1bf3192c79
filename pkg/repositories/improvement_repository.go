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

// ImprovementRepository defines the interface for improvement plan data access.
type ImprovementRepository interface {
	Create(ctx context.Context, imp *models.Improvement) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Improvement, error)
	// List returns improvements newest first, optionally limited to one school.
	List(ctx context.Context, schoolID *uuid.UUID) ([]*models.Improvement, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ImprovementStatus) error
}

type improvementRepository struct{}

// NewImprovementRepository creates a new improvement repository.
func NewImprovementRepository() ImprovementRepository {
	return &improvementRepository{}
}

const improvementSelect = `
	SELECT i.id, i.school_id, i.user_id, i.title, i.description, i.file_url, i.status,
	       i.created_at, i.updated_at, s.code, s.name, u.name, u.email
	FROM improvements i
	JOIN schools s ON s.id = i.school_id
	JOIN users u ON u.id = i.user_id`

func scanImprovement(row pgx.Row) (*models.Improvement, error) {
	var imp models.Improvement
	school := &models.SchoolSummary{}
	author := &models.UserSummary{}
	err := row.Scan(&imp.ID, &imp.SchoolID, &imp.UserID, &imp.Title, &imp.Description, &imp.FileURL,
		&imp.Status, &imp.CreatedAt, &imp.UpdatedAt, &school.Code, &school.Name, &author.Name, &author.Email)
	if err != nil {
		return nil, err
	}
	school.ID = imp.SchoolID
	author.ID = imp.UserID
	imp.School = school
	imp.Author = author
	return &imp, nil
}

func (r *improvementRepository) Create(ctx context.Context, imp *models.Improvement) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	if imp.ID == uuid.Nil {
		imp.ID = uuid.New()
	}
	now := time.Now()
	imp.CreatedAt = now
	imp.UpdatedAt = now

	_, err = q.Exec(ctx, `
		INSERT INTO improvements (id, school_id, user_id, title, description, file_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		imp.ID, imp.SchoolID, imp.UserID, imp.Title, imp.Description, imp.FileURL, imp.Status,
		imp.CreatedAt, imp.UpdatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: school", apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to create improvement: %w", err)
	}
	return nil
}

func (r *improvementRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Improvement, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	imp, err := scanImprovement(q.QueryRow(ctx, improvementSelect+` WHERE i.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get improvement: %w", err)
	}
	return imp, nil
}

func (r *improvementRepository) List(ctx context.Context, schoolID *uuid.UUID) ([]*models.Improvement, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	query := improvementSelect
	var args []any
	if schoolID != nil {
		query += ` WHERE i.school_id = $1`
		args = append(args, *schoolID)
	}
	query += ` ORDER BY i.created_at DESC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list improvements: %w", err)
	}
	defer rows.Close()

	var result []*models.Improvement
	for rows.Next() {
		imp, err := scanImprovement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan improvement: %w", err)
		}
		result = append(result, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating improvements: %w", err)
	}
	return result, nil
}

func (r *improvementRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ImprovementStatus) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx,
		`UPDATE improvements SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update improvement status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

var _ ImprovementRepository = (*improvementRepository)(nil)
