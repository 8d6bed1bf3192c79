package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/audit"
	"github.com/edusupervise/supervision-engine/pkg/models"
)

// mockAuthService is a mock implementation of AuthService for testing.
type mockAuthService struct {
	userID      uuid.UUID
	source      string
	validateErr error
}

func (m *mockAuthService) ValidateRequest(r *http.Request) (uuid.UUID, string, error) {
	if m.validateErr != nil {
		return uuid.Nil, m.source, m.validateErr
	}
	return m.userID, m.source, nil
}

type mockUserLoader struct {
	users map[uuid.UUID]*models.User
	err   error
}

func (m *mockUserLoader) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return u, nil
}

func newTestMiddleware(svc AuthService, users UserLoader) *Middleware {
	logger := zap.NewNop()
	return NewMiddleware(svc, users, audit.NewSecurityAuditor(logger), logger)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	return response
}

func TestMiddleware_RequireAuth_Success(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "sup1@example.com", Name: "Sup One", Role: models.RoleSupervisor}
	mw := newTestMiddleware(
		&mockAuthService{userID: user.ID, source: SourceSession},
		&mockUserLoader{users: map[uuid.UUID]*models.User{user.ID: user}},
	)

	var ctxActor *models.Actor
	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		ctxActor, _ = GetActor(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ctxActor)
	assert.Equal(t, user.ID, ctxActor.ID)
	assert.Equal(t, models.RoleSupervisor, ctxActor.Role)
}

func TestMiddleware_RequireAuth_Unauthorized(t *testing.T) {
	mw := newTestMiddleware(&mockAuthService{validateErr: ErrMissingAuthorization}, &mockUserLoader{})

	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/supervisions", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec)["error"])
}

func TestMiddleware_RequireAuth_DeletedUser(t *testing.T) {
	mw := newTestMiddleware(
		&mockAuthService{userID: uuid.New(), source: SourceBearer},
		&mockUserLoader{users: map[uuid.UUID]*models.User{}},
	)

	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/supervisions", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_RequireAuth_LoaderFailure(t *testing.T) {
	mw := newTestMiddleware(
		&mockAuthService{userID: uuid.New(), source: SourceSession},
		&mockUserLoader{err: errors.New("connection reset")},
	)

	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/supervisions", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMiddleware_RequireRole(t *testing.T) {
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	school := &models.User{ID: uuid.New(), Role: models.RoleSchool}
	users := &mockUserLoader{users: map[uuid.UUID]*models.User{admin.ID: admin, school.ID: school}}

	tests := []struct {
		name       string
		user       *models.User
		wantStatus int
	}{
		{name: "permitted role", user: admin, wantStatus: http.StatusOK},
		{name: "other role", user: school, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := newTestMiddleware(&mockAuthService{userID: tt.user.ID, source: SourceSession}, users)
			handler := mw.RequireRole(models.RoleAdmin)(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodDelete, "/api/users/x", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusForbidden {
				body := decodeError(t, rec)
				assert.Equal(t, "forbidden", body["error"])
				assert.Equal(t, "Insufficient permissions", body["message"])
			}
		})
	}
}
