package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/middleware"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

func TestActivityLogService_Record_CapturesRequestInfo(t *testing.T) {
	f := newFixture()
	ctx := middleware.WithRequestInfo(context.Background(), models.RequestInfo{
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
	})
	id := uuid.New()

	f.activity.Record(ctx, f.admin, models.ActionDeleteUser, models.EntityUsers, id, map[string]any{"email": "x@example.com"})

	require.Len(t, f.activityRepo.entries, 1)
	entry := f.activityRepo.entries[0]
	assert.Equal(t, "203.0.113.7", entry.IPAddress)
	assert.Equal(t, "test-agent", entry.UserAgent)
	assert.Equal(t, f.admin.ID, *entry.UserID)
	assert.Equal(t, id.String(), *entry.EntityID)
	assert.Equal(t, "x@example.com", entry.Details["email"])
}

func TestActivityLogService_Record_NilEntity(t *testing.T) {
	f := newFixture()
	f.activity.Record(context.Background(), nil, "LOGIN", models.EntityUsers, uuid.Nil, nil)

	require.Len(t, f.activityRepo.entries, 1)
	assert.Nil(t, f.activityRepo.entries[0].UserID)
	assert.Nil(t, f.activityRepo.entries[0].EntityID)
}

func TestActivityLogService_Record_SwallowsErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	repo := &mockActivityLogRepository{createErr: errors.New("insert failed")}
	svc := NewActivityLogService(repo, zap.New(core))

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), nil, models.ActionCreateUser, models.EntityUsers, uuid.New(), nil)
	})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Failed to record activity", logs.All()[0].Message)
}

func TestActivityLogService_List(t *testing.T) {
	f := newFixture()

	_, err := f.activity.List(context.Background(), f.supervisor, 10)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.activity.List(context.Background(), f.admin, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultActivityLimit, f.activityRepo.lastLimit)

	_, err = f.activity.List(context.Background(), f.admin, 10000)
	require.NoError(t, err)
	assert.Equal(t, MaxActivityLimit, f.activityRepo.lastLimit)

	_, err = f.activity.List(context.Background(), f.admin, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, f.activityRepo.lastLimit)
}
