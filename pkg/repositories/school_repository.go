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

// SchoolRepository defines the interface for school data access.
type SchoolRepository interface {
	Create(ctx context.Context, school *models.School) error
	// GetByID returns the school with supervisors, network group and supervision count.
	GetByID(ctx context.Context, id uuid.UUID) (*models.School, error)
	// GetByEmail resolves the school linked to a SCHOOL account by email.
	GetByEmail(ctx context.Context, email string) (*models.School, error)
	List(ctx context.Context) ([]*models.School, error)
	ListAssigned(ctx context.Context, supervisorID uuid.UUID) ([]*models.School, error)
	Update(ctx context.Context, school *models.School) error
	Delete(ctx context.Context, id uuid.UUID) error
	// SetSupervisors replaces the supervisors assigned to a school.
	SetSupervisors(ctx context.Context, schoolID uuid.UUID, userIDs []uuid.UUID) error
	// HighestCode returns the greatest code starting with prefix, or "" when none exist.
	HighestCode(ctx context.Context, prefix string) (string, error)
}

// schoolRepository implements SchoolRepository using PostgreSQL.
type schoolRepository struct{}

// NewSchoolRepository creates a new school repository.
func NewSchoolRepository() SchoolRepository {
	return &schoolRepository{}
}

const schoolColumns = `
	s.id, s.code, s.name, s.province, s.district, s.sub_district, s.address, s.phone,
	s.email, s.principal_name, s.student_count, s.teacher_count, s.network_group_id,
	s.created_at, s.updated_at`

func scanSchool(row pgx.Row, s *models.School) error {
	return row.Scan(
		&s.ID, &s.Code, &s.Name, &s.Province, &s.District, &s.SubDistrict, &s.Address, &s.Phone,
		&s.Email, &s.PrincipalName, &s.StudentCount, &s.TeacherCount, &s.NetworkGroupID,
		&s.CreatedAt, &s.UpdatedAt,
	)
}

// Create inserts a school.
func (r *schoolRepository) Create(ctx context.Context, school *models.School) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	if school.ID == uuid.Nil {
		school.ID = uuid.New()
	}
	now := time.Now()
	school.CreatedAt = now
	school.UpdatedAt = now

	query := `
		INSERT INTO schools (id, code, name, province, district, sub_district, address, phone,
		                     email, principal_name, student_count, teacher_count, network_group_id,
		                     created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = q.Exec(ctx, query,
		school.ID, school.Code, school.Name, school.Province, school.District, school.SubDistrict,
		school.Address, school.Phone, school.Email, school.PrincipalName, school.StudentCount,
		school.TeacherCount, school.NetworkGroupID, school.CreatedAt, school.UpdatedAt)
	if err != nil {
		return translateSchoolWriteError(err, school.Code)
	}
	return nil
}

func translateSchoolWriteError(err error, code string) error {
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%w: school code %s already exists", apperrors.ErrConflict, code)
	}
	if database.IsForeignKeyViolation(err) {
		return apperrors.NewValidationError("Invalid network group", apperrors.FieldError{
			Field: "networkGroupId", Error: "network group does not exist",
		})
	}
	return fmt.Errorf("failed to write school: %w", err)
}

// GetByID retrieves a school with its detail relations.
func (r *schoolRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.School, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	var school models.School
	var ngID *uuid.UUID
	var ngCode, ngName *string
	query := `
		SELECT ` + schoolColumns + `,
		       ng.id, ng.code, ng.name,
		       (SELECT count(*) FROM supervisions sv WHERE sv.school_id = s.id)
		FROM schools s
		LEFT JOIN network_groups ng ON ng.id = s.network_group_id
		WHERE s.id = $1`

	err = q.QueryRow(ctx, query, id).Scan(
		&school.ID, &school.Code, &school.Name, &school.Province, &school.District, &school.SubDistrict,
		&school.Address, &school.Phone, &school.Email, &school.PrincipalName, &school.StudentCount,
		&school.TeacherCount, &school.NetworkGroupID, &school.CreatedAt, &school.UpdatedAt,
		&ngID, &ngCode, &ngName, &school.SupervisionCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get school: %w", err)
	}

	if ngID != nil {
		school.NetworkGroup = &models.NetworkGroup{ID: *ngID, Code: *ngCode, Name: *ngName}
	}

	rows, err := q.Query(ctx, `
		SELECT u.id, u.name, u.email, u.role
		FROM school_supervisors ss
		JOIN users u ON u.id = ss.user_id
		WHERE ss.school_id = $1
		ORDER BY u.name`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get school supervisors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, fmt.Errorf("failed to scan supervisor: %w", err)
		}
		school.Supervisors = append(school.Supervisors, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating supervisors: %w", err)
	}

	return &school, nil
}

// GetByEmail retrieves the school whose email matches, case-insensitively.
func (r *schoolRepository) GetByEmail(ctx context.Context, email string) (*models.School, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}
	if email == "" {
		return nil, apperrors.ErrNotFound
	}

	var school models.School
	query := `SELECT ` + schoolColumns + ` FROM schools s WHERE lower(s.email) = lower($1) ORDER BY s.created_at LIMIT 1`
	if err := scanSchool(q.QueryRow(ctx, query, email), &school); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get school by email: %w", err)
	}
	return &school, nil
}

// List retrieves all schools ordered by name.
func (r *schoolRepository) List(ctx context.Context) ([]*models.School, error) {
	return r.list(ctx, `SELECT `+schoolColumns+` FROM schools s ORDER BY s.name`)
}

// ListAssigned retrieves the schools a supervisor is assigned to, ordered by name.
func (r *schoolRepository) ListAssigned(ctx context.Context, supervisorID uuid.UUID) ([]*models.School, error) {
	return r.list(ctx, `
		SELECT `+schoolColumns+`
		FROM schools s
		JOIN school_supervisors ss ON ss.school_id = s.id
		WHERE ss.user_id = $1
		ORDER BY s.name`, supervisorID)
}

func (r *schoolRepository) list(ctx context.Context, query string, args ...any) ([]*models.School, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	defer rows.Close()

	var schools []*models.School
	for rows.Next() {
		var s models.School
		if err := scanSchool(rows, &s); err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		schools = append(schools, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schools: %w", err)
	}
	return schools, nil
}

// Update overwrites the editable school fields.
func (r *schoolRepository) Update(ctx context.Context, school *models.School) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	school.UpdatedAt = time.Now()
	query := `
		UPDATE schools
		SET code = $1, name = $2, province = $3, district = $4, sub_district = $5, address = $6,
		    phone = $7, email = $8, principal_name = $9, student_count = $10, teacher_count = $11,
		    network_group_id = $12, updated_at = $13
		WHERE id = $14`

	result, err := q.Exec(ctx, query,
		school.Code, school.Name, school.Province, school.District, school.SubDistrict, school.Address,
		school.Phone, school.Email, school.PrincipalName, school.StudentCount, school.TeacherCount,
		school.NetworkGroupID, school.UpdatedAt, school.ID)
	if err != nil {
		return translateSchoolWriteError(err, school.Code)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes a school; supervisions and improvements cascade.
func (r *schoolRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx, `DELETE FROM schools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete school: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetSupervisors replaces the supervisor set for a school.
func (r *schoolRepository) SetSupervisors(ctx context.Context, schoolID uuid.UUID, userIDs []uuid.UUID) error {
	return database.InTx(ctx, func(ctx context.Context) error {
		q, err := database.Q(ctx)
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, `DELETE FROM school_supervisors WHERE school_id = $1`, schoolID); err != nil {
			return fmt.Errorf("failed to clear supervisors: %w", err)
		}
		if len(userIDs) == 0 {
			return nil
		}
		_, err = q.Exec(ctx, `
			INSERT INTO school_supervisors (school_id, user_id)
			SELECT $1, unnest($2::uuid[])
			ON CONFLICT DO NOTHING`, schoolID, userIDs)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return apperrors.NewValidationError("Unknown supervisor", apperrors.FieldError{
					Field: "supervisorIds", Error: "references a user that does not exist",
				})
			}
			return fmt.Errorf("failed to assign supervisors: %w", err)
		}
		return nil
	})
}

// HighestCode returns the lexically greatest school code with the given prefix.
func (r *schoolRepository) HighestCode(ctx context.Context, prefix string) (string, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return "", err
	}

	var code string
	err = q.QueryRow(ctx,
		`SELECT code FROM schools WHERE code LIKE $1 || '%' ORDER BY length(code) DESC, code DESC LIMIT 1`,
		prefix).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get latest school code: %w", err)
	}
	return code, nil
}

// Ensure schoolRepository implements SchoolRepository at compile time.
var _ SchoolRepository = (*schoolRepository)(nil)
