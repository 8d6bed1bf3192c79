package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/audit"
	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/services"
)

func newAuthTestMux(t *testing.T, users *mockUserService, signedIn *models.User, auditLogger *zap.Logger) (*http.ServeMux, *auth.TokenIssuer) {
	t.Helper()
	sessions := auth.NewSessionStore(auth.SessionOptions{
		Secret:     "test-session-secret",
		CookieName: "supervision_session",
		MaxAge:     time.Hour,
	})
	tokens := auth.NewTokenIssuer("test-token-secret", time.Hour)
	auditor := audit.NewSecurityAuditor(auditLogger)

	h := NewAuthHandler(users, sessions, tokens, auditor, testValidator, NewErrorWriter(auditor, zap.NewNop()), zap.NewNop())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, authAs(signedIn), noopScope)
	return mux, tokens
}

func TestAuthHandler_Login(t *testing.T) {
	user := testUser(models.RoleSupervisor)
	users := &mockUserService{
		authenticate: func(ctx context.Context, in services.LoginInput) (*models.User, error) {
			assert.Equal(t, user.Email, in.Email)
			return user, nil
		},
	}
	mux, tokens := newAuthTestMux(t, users, nil, zap.NewNop())

	rec := serve(mux, http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"`+user.Email+`","password":"secret1"}`))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "supervision_session=")

	resp := decodeBody[LoginResponse](t, rec)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	parsed, err := tokens.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsed)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAuthHandler_LoginFailureIsAudited(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	users := &mockUserService{
		authenticate: func(ctx context.Context, in services.LoginInput) (*models.User, error) {
			return nil, apperrors.ErrInvalidCredentials
		},
	}
	mux, _ := newAuthTestMux(t, users, nil, zap.New(core))

	rec := serve(mux, http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"who@example.com","password":"wrong"}`))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "security_audit", logs.All()[0].LoggerName)
}

func TestAuthHandler_LoginValidation(t *testing.T) {
	users := &mockUserService{
		authenticate: func(ctx context.Context, in services.LoginInput) (*models.User, error) {
			t.Fatal("Authenticate must not be called for invalid input")
			return nil, nil
		},
	}
	mux, _ := newAuthTestMux(t, users, nil, zap.NewNop())

	rec := serve(mux, http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"not-an-email"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[ErrorBody](t, rec)
	assert.Equal(t, "validation_error", body.Error)
	assert.Len(t, body.Fields, 2)
}

func TestAuthHandler_Me(t *testing.T) {
	user := testUser(models.RoleSchool)
	users := &mockUserService{
		load: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
			assert.Equal(t, user.ID, id)
			return user, nil
		},
	}

	mux, _ := newAuthTestMux(t, users, user, zap.NewNop())
	rec := serve(mux, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.Email, decodeBody[models.User](t, rec).Email)

	anon, _ := newAuthTestMux(t, users, nil, zap.NewNop())
	rec = serve(anon, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	mux, _ := newAuthTestMux(t, &mockUserService{}, nil, zap.NewNop())

	rec := serve(mux, http.MethodPost, "/api/auth/logout", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestAuthHandler_Register(t *testing.T) {
	var got services.RegisterInput
	users := &mockUserService{
		register: func(ctx context.Context, in services.RegisterInput) (*models.User, error) {
			got = in
			return &models.User{ID: uuid.New(), Email: in.Email, Name: in.Name, Role: models.RoleSchool}, nil
		},
	}
	mux, _ := newAuthTestMux(t, users, nil, zap.NewNop())

	rec := serve(mux, http.MethodPost, "/api/users/register",
		strings.NewReader(`{"email":"school@example.com","password":"secret1","name":"Ban Nong","role":"ADMIN"}`))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Ban Nong", got.Name)
	assert.Equal(t, models.RoleSchool, decodeBody[models.User](t, rec).Role)
}

func TestAuthHandler_RegisterDuplicate(t *testing.T) {
	users := &mockUserService{
		register: func(ctx context.Context, in services.RegisterInput) (*models.User, error) {
			return nil, apperrors.ErrConflict
		},
	}
	mux, _ := newAuthTestMux(t, users, nil, zap.NewNop())

	rec := serve(mux, http.MethodPost, "/api/users/register",
		strings.NewReader(`{"email":"school@example.com","password":"secret1","name":"Ban Nong"}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
}
