package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/database"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// AcknowledgementRepository defines the interface for acknowledgement data access.
type AcknowledgementRepository interface {
	// Create inserts an acknowledgement. The unique supervision constraint turns
	// a concurrent or repeated attempt into ErrAlreadyAcknowledged.
	Create(ctx context.Context, ack *models.Acknowledgement) error
}

type acknowledgementRepository struct{}

// NewAcknowledgementRepository creates a new acknowledgement repository.
func NewAcknowledgementRepository() AcknowledgementRepository {
	return &acknowledgementRepository{}
}

func (r *acknowledgementRepository) Create(ctx context.Context, ack *models.Acknowledgement) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	if ack.ID == uuid.Nil {
		ack.ID = uuid.New()
	}
	ack.AcknowledgedAt = time.Now()

	_, err = q.Exec(ctx, `
		INSERT INTO acknowledgements (id, supervision_id, acknowledged_by, comment, acknowledged_at)
		VALUES ($1, $2, $3, $4, $5)`,
		ack.ID, ack.SupervisionID, ack.AcknowledgedBy, ack.Comment, ack.AcknowledgedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.ErrAlreadyAcknowledged
		}
		if database.IsForeignKeyViolation(err) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to create acknowledgement: %w", err)
	}
	return nil
}

var _ AcknowledgementRepository = (*acknowledgementRepository)(nil)
