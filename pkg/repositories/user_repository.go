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

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	// SetAssignedSchools replaces the set of schools a supervisor is assigned to.
	SetAssignedSchools(ctx context.Context, userID uuid.UUID, schoolIDs []uuid.UUID) error
	IsAssigned(ctx context.Context, userID, schoolID uuid.UUID) (bool, error)
	// CountWithRole counts how many of ids belong to users holding role.
	CountWithRole(ctx context.Context, ids []uuid.UUID, role models.Role) (int, error)
}

// userRepository implements UserRepository using PostgreSQL.
type userRepository struct{}

// NewUserRepository creates a new user repository.
func NewUserRepository() UserRepository {
	return &userRepository{}
}

const userColumns = `id, email, name, role, COALESCE(password_hash, ''), created_at, updated_at`

// Create inserts a user and its school assignments.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return database.InTx(ctx, func(ctx context.Context) error {
		q, err := database.Q(ctx)
		if err != nil {
			return err
		}

		if user.ID == uuid.Nil {
			user.ID = uuid.New()
		}
		now := time.Now()
		user.CreatedAt = now
		user.UpdatedAt = now

		query := `
			INSERT INTO users (id, email, name, role, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`

		_, err = q.Exec(ctx, query,
			user.ID, user.Email, user.Name, user.Role, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("%w: email %s is already registered", apperrors.ErrConflict, user.Email)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		if len(user.AssignedSchoolIDs) > 0 {
			return r.SetAssignedSchools(ctx, user.ID, user.AssignedSchoolIDs)
		}
		return nil
	})
}

// GetByID retrieves a user with its assigned school ids.
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by case-insensitive email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = q.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	ids, err := r.assignedSchoolIDs(ctx, q, user.ID)
	if err != nil {
		return nil, err
	}
	user.AssignedSchoolIDs = ids
	return &user, nil
}

func (r *userRepository) assignedSchoolIDs(ctx context.Context, q database.Querier, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx, `SELECT school_id FROM school_supervisors WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assigned schools: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan assigned school: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// List retrieves all users ordered by name, each with assigned school ids.
func (r *userRepository) List(ctx context.Context) ([]*models.User, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT u.id, u.email, u.name, u.role, u.created_at, u.updated_at,
		       COALESCE(array_agg(ss.school_id) FILTER (WHERE ss.school_id IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN school_supervisors ss ON ss.user_id = u.id
		GROUP BY u.id
		ORDER BY u.name`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.Role,
			&user.CreatedAt, &user.UpdatedAt, &user.AssignedSchoolIDs); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// Update changes a user's name and role. Assignments are changed separately.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	user.UpdatedAt = time.Now()
	result, err := q.Exec(ctx,
		`UPDATE users SET name = $1, role = $2, updated_at = $3 WHERE id = $4`,
		user.Name, user.Role, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes a user. Users who authored supervisions cannot be removed.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: user has authored supervisions", apperrors.ErrInUse)
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetAssignedSchools replaces the user's school assignments.
func (r *userRepository) SetAssignedSchools(ctx context.Context, userID uuid.UUID, schoolIDs []uuid.UUID) error {
	return database.InTx(ctx, func(ctx context.Context) error {
		q, err := database.Q(ctx)
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, `DELETE FROM school_supervisors WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to clear assignments: %w", err)
		}
		if len(schoolIDs) == 0 {
			return nil
		}
		_, err = q.Exec(ctx, `
			INSERT INTO school_supervisors (school_id, user_id)
			SELECT unnest($1::uuid[]), $2
			ON CONFLICT DO NOTHING`, schoolIDs, userID)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return apperrors.NewValidationError("Unknown school in assignment", apperrors.FieldError{
					Field: "assignedSchoolIds", Error: "references a school that does not exist",
				})
			}
			return fmt.Errorf("failed to assign schools: %w", err)
		}
		return nil
	})
}

// IsAssigned reports whether the user is assigned to the school.
func (r *userRepository) IsAssigned(ctx context.Context, userID, schoolID uuid.UUID) (bool, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM school_supervisors WHERE user_id = $1 AND school_id = $2)`,
		userID, schoolID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check assignment: %w", err)
	}
	return exists, nil
}

// CountWithRole counts how many of ids are users with the given role.
func (r *userRepository) CountWithRole(ctx context.Context, ids []uuid.UUID, role models.Role) (int, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = q.QueryRow(ctx,
		`SELECT count(*) FROM users WHERE id = ANY($1) AND role = $2`, ids, role).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// Ensure userRepository implements UserRepository at compile time.
var _ UserRepository = (*userRepository)(nil)
