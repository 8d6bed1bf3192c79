package services

import (
	"context"
	"encoding/json"
	"regexp"

	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/authz"
	"github.com/edusupervise/supervision-engine/pkg/jsonutil"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/repositories"
)

var settingKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// SettingsService reads and writes system settings.
type SettingsService interface {
	List(ctx context.Context, actor *models.Actor) ([]*models.Setting, error)
	Get(ctx context.Context, actor *models.Actor, key string) (*models.Setting, error)
	// Put stores value under key. The supervision_types value is normalised to
	// a list of distinct labels.
	Put(ctx context.Context, actor *models.Actor, key string, value json.RawMessage) (*models.Setting, error)
}

type settingsService struct {
	settings repositories.SettingsRepository
	logger   *zap.Logger
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(settings repositories.SettingsRepository, logger *zap.Logger) SettingsService {
	return &settingsService{
		settings: settings,
		logger:   logger.Named("settings-service"),
	}
}

var _ SettingsService = (*settingsService)(nil)

func (s *settingsService) List(ctx context.Context, actor *models.Actor) ([]*models.Setting, error) {
	if err := authz.Check(actor, authz.SettingsView, nil); err != nil {
		return nil, err
	}
	list, err := s.settings.List(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Setting{}
	}
	return list, nil
}

func (s *settingsService) Get(ctx context.Context, actor *models.Actor, key string) (*models.Setting, error) {
	if err := authz.Check(actor, authz.SettingsView, nil); err != nil {
		return nil, err
	}
	return s.settings.Get(ctx, key)
}

func (s *settingsService) Put(ctx context.Context, actor *models.Actor, key string, value json.RawMessage) (*models.Setting, error) {
	if err := authz.Check(actor, authz.SettingsManage, nil); err != nil {
		return nil, err
	}
	if !settingKeyPattern.MatchString(key) {
		return nil, apperrors.NewValidationError("Invalid setting key", apperrors.FieldError{
			Field: "key", Error: "must be lower case letters, digits and underscores",
		})
	}
	if len(value) == 0 || !json.Valid(value) {
		return nil, apperrors.NewValidationError("Invalid setting value", apperrors.FieldError{
			Field: "value", Error: "must be valid JSON",
		})
	}

	if key == models.SettingSupervisionTypes {
		types, err := jsonutil.StringList(value)
		if err != nil {
			return nil, apperrors.NewValidationError("Invalid supervision types", apperrors.FieldError{
				Field: "value", Error: err.Error(),
			})
		}
		value, err = json.Marshal(types)
		if err != nil {
			return nil, err
		}
	}

	setting, err := s.settings.Upsert(ctx, key, value)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Setting updated",
		zap.String("key", key),
		zap.String("user_id", actor.ID.String()))
	return setting, nil
}
