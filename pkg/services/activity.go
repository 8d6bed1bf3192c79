package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/authz"
	"github.com/edusupervise/supervision-engine/pkg/middleware"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/repositories"
)

// DefaultActivityLimit caps an activity log listing when no limit is given.
const DefaultActivityLimit = 100

// MaxActivityLimit is the largest accepted listing limit.
const MaxActivityLimit = 500

// ActivityLogService records and lists audit entries for mutating operations.
type ActivityLogService interface {
	// Record appends an entry. Failures are logged and never returned so that
	// an audit write cannot fail the operation that triggered it.
	Record(ctx context.Context, actor *models.Actor, action, entity string, entityID uuid.UUID, details map[string]any)

	// List returns the newest entries first. ADMIN only.
	List(ctx context.Context, actor *models.Actor, limit int) ([]*models.ActivityLog, error)
}

type activityLogService struct {
	repo   repositories.ActivityLogRepository
	logger *zap.Logger
}

// NewActivityLogService creates a new ActivityLogService.
func NewActivityLogService(repo repositories.ActivityLogRepository, logger *zap.Logger) ActivityLogService {
	return &activityLogService{
		repo:   repo,
		logger: logger.Named("activity-log"),
	}
}

var _ ActivityLogService = (*activityLogService)(nil)

func (s *activityLogService) Record(ctx context.Context, actor *models.Actor, action, entity string, entityID uuid.UUID, details map[string]any) {
	info := middleware.GetRequestInfo(ctx)
	entry := &models.ActivityLog{
		Action:    action,
		Entity:    entity,
		Details:   details,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
	}
	if actor != nil {
		id := actor.ID
		entry.UserID = &id
	}
	if entityID != uuid.Nil {
		id := entityID.String()
		entry.EntityID = &id
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to record activity",
			zap.String("action", action),
			zap.String("entity", entity),
			zap.String("entity_id", entityID.String()),
			zap.Error(err))
	}
}

func (s *activityLogService) List(ctx context.Context, actor *models.Actor, limit int) ([]*models.ActivityLog, error) {
	if err := authz.Check(actor, authz.ActivityLogView, nil); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	return s.repo.List(ctx, limit)
}
