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
	"github.com/edusupervise/supervision-engine/pkg/lifecycle"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// SupervisionRepository defines the interface for supervision data access.
type SupervisionRepository interface {
	// Create inserts the supervision with its indicators and attachments atomically.
	Create(ctx context.Context, s *models.Supervision) error
	// GetByID returns the supervision with school, author, indicators, attachments and acknowledgement.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Supervision, error)
	// List returns supervisions newest visit first, each with indicators and acknowledgement.
	List(ctx context.Context, filter models.SupervisionFilter) ([]*models.Supervision, error)
	// Update writes the supervision row, replaces all indicators and applies the
	// attachment diff in one transaction.
	Update(ctx context.Context, s *models.Supervision, indicators []models.Indicator, diff lifecycle.AttachmentDiff) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SupervisionStatus) error
	// Delete removes the supervision; indicators, attachments and acknowledgement cascade.
	Delete(ctx context.Context, id uuid.UUID) error
	// LatestForSchool returns the most recent supervision of a school, or ErrNotFound.
	LatestForSchool(ctx context.Context, schoolID uuid.UUID) (*models.Supervision, error)
}

type supervisionRepository struct{}

// NewSupervisionRepository creates a new supervision repository.
func NewSupervisionRepository() SupervisionRepository {
	return &supervisionRepository{}
}

const supervisionSelect = `
	SELECT sv.id, sv.school_id, sv.user_id, sv.type, sv.date, sv.academic_year,
	       sv.minister_policy_id, sv.obec_policy_id, sv.area_policy_id,
	       sv.summary, sv.suggestions, sv.status, sv.created_at, sv.updated_at,
	       sc.code, sc.name, u.name, u.email,
	       ack.id, ack.acknowledged_by, ack.comment, ack.acknowledged_at
	FROM supervisions sv
	JOIN schools sc ON sc.id = sv.school_id
	JOIN users u ON u.id = sv.user_id
	LEFT JOIN acknowledgements ack ON ack.supervision_id = sv.id`

func scanSupervision(row pgx.Row) (*models.Supervision, error) {
	var s models.Supervision
	var school models.SchoolSummary
	var author models.UserSummary
	var ackID *uuid.UUID
	var ackBy *string
	var ackComment *string
	var ackAt *time.Time

	err := row.Scan(
		&s.ID, &s.SchoolID, &s.UserID, &s.Type, &s.Date, &s.AcademicYear,
		&s.MinisterPolicyID, &s.OBECPolicyID, &s.AreaPolicyID,
		&s.Summary, &s.Suggestions, &s.Status, &s.CreatedAt, &s.UpdatedAt,
		&school.Code, &school.Name, &author.Name, &author.Email,
		&ackID, &ackBy, &ackComment, &ackAt,
	)
	if err != nil {
		return nil, err
	}

	school.ID = s.SchoolID
	author.ID = s.UserID
	s.School = &school
	s.Author = &author
	if ackID != nil {
		s.Acknowledgement = &models.Acknowledgement{
			ID:             *ackID,
			SupervisionID:  s.ID,
			AcknowledgedBy: *ackBy,
			Comment:        ackComment,
			AcknowledgedAt: *ackAt,
		}
	}
	s.Indicators = []models.Indicator{}
	s.Attachments = []models.Attachment{}
	return &s, nil
}

func (r *supervisionRepository) Create(ctx context.Context, s *models.Supervision) error {
	return database.InTx(ctx, func(ctx context.Context) error {
		q, err := database.Q(ctx)
		if err != nil {
			return err
		}

		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		now := time.Now()
		s.CreatedAt = now
		s.UpdatedAt = now

		_, err = q.Exec(ctx, `
			INSERT INTO supervisions (id, school_id, user_id, type, date, academic_year,
			                          minister_policy_id, obec_policy_id, area_policy_id,
			                          summary, suggestions, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			s.ID, s.SchoolID, s.UserID, s.Type, s.Date, s.AcademicYear,
			s.MinisterPolicyID, s.OBECPolicyID, s.AreaPolicyID,
			s.Summary, s.Suggestions, s.Status, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			return translateSupervisionWriteError(err)
		}

		for i := range s.Indicators {
			s.Indicators[i].SupervisionID = s.ID
		}
		if err := insertIndicators(ctx, q, s.Indicators); err != nil {
			return err
		}
		for i := range s.Attachments {
			s.Attachments[i].SupervisionID = s.ID
		}
		return insertAttachments(ctx, q, s.Attachments)
	})
}

func translateSupervisionWriteError(err error) error {
	if database.IsForeignKeyViolation(err) {
		constraint := database.ConstraintName(err)
		for _, slot := range []models.PolicySlot{models.PolicySlotMinister, models.PolicySlotOBEC, models.PolicySlotArea} {
			if strings.HasPrefix(constraint, "supervisions_"+string(slot)+"_policy_id") {
				return apperrors.NewValidationError("Invalid "+slot.Label(), apperrors.FieldError{
					Field: slot.Field(), Error: "policy does not exist",
				})
			}
		}
		if strings.HasPrefix(constraint, "supervisions_school_id") {
			return fmt.Errorf("%w: school", apperrors.ErrNotFound)
		}
		return apperrors.NewValidationError("Invalid reference", apperrors.FieldError{Field: "userId", Error: "user does not exist"})
	}
	return fmt.Errorf("failed to write supervision: %w", err)
}

func insertIndicators(ctx context.Context, q database.Querier, indicators []models.Indicator) error {
	for i, ind := range indicators {
		_, err := q.Exec(ctx, `
			INSERT INTO indicators (id, supervision_id, name, level, comment, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			ind.ID, ind.SupervisionID, ind.Name, ind.Level, ind.Comment, i)
		if err != nil {
			return fmt.Errorf("failed to insert indicator: %w", err)
		}
	}
	return nil
}

func insertAttachments(ctx context.Context, q database.Querier, attachments []models.Attachment) error {
	now := time.Now()
	for i := range attachments {
		a := &attachments[i]
		a.CreatedAt = now
		_, err := q.Exec(ctx, `
			INSERT INTO attachments (id, supervision_id, filename, file_url, file_type, file_size, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			a.ID, a.SupervisionID, a.Filename, a.FileURL, a.FileType, a.FileSize, a.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert attachment: %w", err)
		}
	}
	return nil
}

func (r *supervisionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Supervision, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	s, err := scanSupervision(q.QueryRow(ctx, supervisionSelect+` WHERE sv.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get supervision: %w", err)
	}

	byID := map[uuid.UUID]*models.Supervision{s.ID: s}
	if err := loadIndicators(ctx, q, byID); err != nil {
		return nil, err
	}
	if err := loadAttachments(ctx, q, byID); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *supervisionRepository) List(ctx context.Context, filter models.SupervisionFilter) ([]*models.Supervision, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	var where []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.UserID != nil {
		add("sv.user_id = $%d", *filter.UserID)
	}
	if filter.SchoolID != nil {
		add("sv.school_id = $%d", *filter.SchoolID)
	}
	if len(filter.SchoolIDs) > 0 {
		add("sv.school_id = ANY($%d)", filter.SchoolIDs)
	}
	if filter.Status != nil {
		add("sv.status = $%d", *filter.Status)
	}
	if filter.AcademicYear != nil {
		add("sv.academic_year = $%d", *filter.AcademicYear)
	}

	query := supervisionSelect
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY sv.date DESC, sv.created_at DESC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list supervisions: %w", err)
	}
	defer rows.Close()

	var result []*models.Supervision
	byID := make(map[uuid.UUID]*models.Supervision)
	for rows.Next() {
		s, err := scanSupervision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supervision: %w", err)
		}
		result = append(result, s)
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating supervisions: %w", err)
	}
	rows.Close()

	if err := loadIndicators(ctx, q, byID); err != nil {
		return nil, err
	}
	return result, nil
}

func supervisionIDs(byID map[uuid.UUID]*models.Supervision) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	return ids
}

func loadIndicators(ctx context.Context, q database.Querier, byID map[uuid.UUID]*models.Supervision) error {
	if len(byID) == 0 {
		return nil
	}
	rows, err := q.Query(ctx, `
		SELECT id, supervision_id, name, level, comment
		FROM indicators WHERE supervision_id = ANY($1)
		ORDER BY position, name`, supervisionIDs(byID))
	if err != nil {
		return fmt.Errorf("failed to load indicators: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ind models.Indicator
		if err := rows.Scan(&ind.ID, &ind.SupervisionID, &ind.Name, &ind.Level, &ind.Comment); err != nil {
			return fmt.Errorf("failed to scan indicator: %w", err)
		}
		if s, ok := byID[ind.SupervisionID]; ok {
			s.Indicators = append(s.Indicators, ind)
		}
	}
	return rows.Err()
}

func loadAttachments(ctx context.Context, q database.Querier, byID map[uuid.UUID]*models.Supervision) error {
	if len(byID) == 0 {
		return nil
	}
	rows, err := q.Query(ctx, `
		SELECT id, supervision_id, filename, file_url, file_type, file_size, created_at
		FROM attachments WHERE supervision_id = ANY($1)
		ORDER BY created_at`, supervisionIDs(byID))
	if err != nil {
		return fmt.Errorf("failed to load attachments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.SupervisionID, &a.Filename, &a.FileURL, &a.FileType, &a.FileSize, &a.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan attachment: %w", err)
		}
		if s, ok := byID[a.SupervisionID]; ok {
			s.Attachments = append(s.Attachments, a)
		}
	}
	return rows.Err()
}

func (r *supervisionRepository) Update(ctx context.Context, s *models.Supervision, indicators []models.Indicator, diff lifecycle.AttachmentDiff) error {
	return database.InTx(ctx, func(ctx context.Context) error {
		q, err := database.Q(ctx)
		if err != nil {
			return err
		}

		s.UpdatedAt = time.Now()
		result, err := q.Exec(ctx, `
			UPDATE supervisions
			SET school_id = $1, type = $2, date = $3, academic_year = $4,
			    minister_policy_id = $5, obec_policy_id = $6, area_policy_id = $7,
			    summary = $8, suggestions = $9, status = $10, updated_at = $11
			WHERE id = $12`,
			s.SchoolID, s.Type, s.Date, s.AcademicYear,
			s.MinisterPolicyID, s.OBECPolicyID, s.AreaPolicyID,
			s.Summary, s.Suggestions, s.Status, s.UpdatedAt, s.ID)
		if err != nil {
			return translateSupervisionWriteError(err)
		}
		if result.RowsAffected() == 0 {
			return apperrors.ErrNotFound
		}

		if _, err := q.Exec(ctx, `DELETE FROM indicators WHERE supervision_id = $1`, s.ID); err != nil {
			return fmt.Errorf("failed to clear indicators: %w", err)
		}
		for i := range indicators {
			indicators[i].SupervisionID = s.ID
		}
		if err := insertIndicators(ctx, q, indicators); err != nil {
			return err
		}

		if len(diff.Delete) > 0 {
			_, err := q.Exec(ctx,
				`DELETE FROM attachments WHERE supervision_id = $1 AND id = ANY($2)`, s.ID, diff.Delete)
			if err != nil {
				return fmt.Errorf("failed to delete attachments: %w", err)
			}
		}
		for i := range diff.Add {
			diff.Add[i].SupervisionID = s.ID
		}
		return insertAttachments(ctx, q, diff.Add)
	})
}

func (r *supervisionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SupervisionStatus) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx,
		`UPDATE supervisions SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update supervision status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *supervisionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx, `DELETE FROM supervisions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete supervision: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *supervisionRepository) LatestForSchool(ctx context.Context, schoolID uuid.UUID) (*models.Supervision, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	s, err := scanSupervision(q.QueryRow(ctx,
		supervisionSelect+` WHERE sv.school_id = $1 ORDER BY sv.date DESC, sv.created_at DESC LIMIT 1`, schoolID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest supervision: %w", err)
	}

	if err := loadIndicators(ctx, q, map[uuid.UUID]*models.Supervision{s.ID: s}); err != nil {
		return nil, err
	}
	return s, nil
}

var _ SupervisionRepository = (*supervisionRepository)(nil)
