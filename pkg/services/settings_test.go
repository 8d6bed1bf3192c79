package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

func TestSettingsService_Put_NormalizesSupervisionTypes(t *testing.T) {
	f := newFixture()
	repo := newMockSettingsRepository()
	svc := NewSettingsService(repo, testLogger())

	setting, err := svc.Put(context.Background(), f.admin, models.SettingSupervisionTypes,
		json.RawMessage(`"นิเทศภายใน, นิเทศติดตาม ,นิเทศภายใน,"`))
	require.NoError(t, err)
	assert.JSONEq(t, `["นิเทศภายใน","นิเทศติดตาม"]`, string(setting.Value))

	setting, err = svc.Put(context.Background(), f.admin, models.SettingSupervisionTypes,
		json.RawMessage(`[" a ", "b", "a"]`))
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(setting.Value))

	_, err = svc.Put(context.Background(), f.admin, models.SettingSupervisionTypes, json.RawMessage(`{"a":1}`))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSettingsService_Put_Validation(t *testing.T) {
	f := newFixture()
	svc := NewSettingsService(newMockSettingsRepository(), testLogger())

	_, err := svc.Put(context.Background(), f.admin, "Bad-Key", json.RawMessage(`1`))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Put(context.Background(), f.admin, "indicator_criteria", json.RawMessage(`{broken`))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Put(context.Background(), f.admin, "indicator_criteria", nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	setting, err := svc.Put(context.Background(), f.admin, "indicator_criteria", json.RawMessage(`{"levels":4}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"levels":4}`, string(setting.Value), "other keys are stored as given")
}

func TestSettingsService_Access(t *testing.T) {
	f := newFixture()
	repo := newMockSettingsRepository()
	svc := NewSettingsService(repo, testLogger())

	_, err := svc.Put(context.Background(), f.supervisor, "theme", json.RawMessage(`"dark"`))
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	list, err := svc.List(context.Background(), f.schoolUser)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = svc.Get(context.Background(), f.executive, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.List(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
