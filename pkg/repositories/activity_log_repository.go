package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edusupervise/supervision-engine/pkg/database"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// ActivityLogRepository defines the interface for the append-only activity log.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	// List returns the newest entries first.
	List(ctx context.Context, limit int) ([]*models.ActivityLog, error)
}

type activityLogRepository struct{}

// NewActivityLogRepository creates a new activity log repository.
func NewActivityLogRepository() ActivityLogRepository {
	return &activityLogRepository{}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	q, err := database.Q(ctx)
	if err != nil {
		return err
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal activity details: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO activity_logs (id, user_id, action, entity, entity_id, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.UserID, entry.Action, entry.Entity, entry.EntityID, detailsJSON,
		entry.IPAddress, entry.UserAgent, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create activity log: %w", err)
	}
	return nil
}

func (r *activityLogRepository) List(ctx context.Context, limit int) ([]*models.ActivityLog, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, user_id, action, entity, entity_id, details, ip_address, user_agent, created_at
		FROM activity_logs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.ActivityLog
	for rows.Next() {
		var e models.ActivityLog
		var details []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Entity, &e.EntityID, &details,
			&e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity log: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("failed to decode activity details: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity logs: %w", err)
	}
	return entries, nil
}

var _ ActivityLogRepository = (*activityLogRepository)(nil)
