package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/database"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// SettingsRepository defines the interface for system settings.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	List(ctx context.Context) ([]*models.Setting, error)
	Upsert(ctx context.Context, key string, value json.RawMessage) (*models.Setting, error)
}

type settingsRepository struct{}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository() SettingsRepository {
	return &settingsRepository{}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	var s models.Setting
	var value []byte
	err = q.QueryRow(ctx, `SELECT key, value, updated_at FROM system_settings WHERE key = $1`, key).
		Scan(&s.Key, &value, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	s.Value = value
	return &s, nil
}

func (r *settingsRepository) List(ctx context.Context) ([]*models.Setting, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT key, value, updated_at FROM system_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var settings []*models.Setting
	for rows.Next() {
		var s models.Setting
		var value []byte
		if err := rows.Scan(&s.Key, &value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		s.Value = value
		settings = append(settings, &s)
	}
	return settings, rows.Err()
}

func (r *settingsRepository) Upsert(ctx context.Context, key string, value json.RawMessage) (*models.Setting, error) {
	q, err := database.Q(ctx)
	if err != nil {
		return nil, err
	}

	s := &models.Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	_, err = q.Exec(ctx, `
		INSERT INTO system_settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		s.Key, []byte(s.Value), s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save setting: %w", err)
	}
	return s, nil
}

var _ SettingsRepository = (*settingsRepository)(nil)
