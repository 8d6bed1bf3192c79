package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/audit"
	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/services"
	"github.com/edusupervise/supervision-engine/pkg/validation"
)

// mockAuthService authenticates every request as userID, or fails with err.
type mockAuthService struct {
	userID uuid.UUID
	err    error
}

func (m *mockAuthService) ValidateRequest(r *http.Request) (uuid.UUID, string, error) {
	if m.err != nil {
		return uuid.Nil, auth.SourceBearer, m.err
	}
	return m.userID, auth.SourceBearer, nil
}

type mockUserLoader struct {
	users map[uuid.UUID]*models.User
}

func (m *mockUserLoader) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrNotFound
}

func noopScope(next http.HandlerFunc) http.HandlerFunc {
	return next
}

// authAs returns middleware that signs every request in as user. A nil user
// leaves requests anonymous.
func authAs(user *models.User) *auth.Middleware {
	loader := &mockUserLoader{users: map[uuid.UUID]*models.User{}}
	svc := &mockAuthService{err: auth.ErrMissingAuthorization}
	if user != nil {
		loader.users[user.ID] = user
		svc = &mockAuthService{userID: user.ID}
	}
	return auth.NewMiddleware(svc, loader, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())
}

func testUser(role models.Role) *models.User {
	return &models.User{
		ID:    uuid.New(),
		Email: string(role) + "@example.com",
		Name:  "Test " + string(role),
		Role:  role,
	}
}

func testErrs() *ErrorWriter {
	return NewErrorWriter(audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())
}

func serve(mux *http.ServeMux, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

// ============================================================================
// Service mocks. Unset functions panic through the embedded nil interface.
// ============================================================================

type mockSupervisionService struct {
	services.SupervisionService
	list        func(ctx context.Context, actor *models.Actor, filter services.SupervisionListFilter) ([]*models.Supervision, error)
	get         func(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Supervision, error)
	create      func(ctx context.Context, actor *models.Actor, in services.SupervisionInput) (*models.Supervision, error)
	approve     func(ctx context.Context, actor *models.Actor, id uuid.UUID, in services.ApproveInput) (*models.Supervision, error)
	acknowledge func(ctx context.Context, actor *models.Actor, id uuid.UUID, in services.AcknowledgeInput) (*models.Acknowledgement, error)
	delete      func(ctx context.Context, actor *models.Actor, id uuid.UUID) error
}

func (m *mockSupervisionService) List(ctx context.Context, actor *models.Actor, filter services.SupervisionListFilter) ([]*models.Supervision, error) {
	return m.list(ctx, actor, filter)
}

func (m *mockSupervisionService) Get(ctx context.Context, actor *models.Actor, id uuid.UUID) (*models.Supervision, error) {
	return m.get(ctx, actor, id)
}

func (m *mockSupervisionService) Create(ctx context.Context, actor *models.Actor, in services.SupervisionInput) (*models.Supervision, error) {
	return m.create(ctx, actor, in)
}

func (m *mockSupervisionService) Approve(ctx context.Context, actor *models.Actor, id uuid.UUID, in services.ApproveInput) (*models.Supervision, error) {
	return m.approve(ctx, actor, id, in)
}

func (m *mockSupervisionService) Acknowledge(ctx context.Context, actor *models.Actor, id uuid.UUID, in services.AcknowledgeInput) (*models.Acknowledgement, error) {
	return m.acknowledge(ctx, actor, id, in)
}

func (m *mockSupervisionService) Delete(ctx context.Context, actor *models.Actor, id uuid.UUID) error {
	return m.delete(ctx, actor, id)
}

type mockUserService struct {
	services.UserService
	authenticate func(ctx context.Context, in services.LoginInput) (*models.User, error)
	register     func(ctx context.Context, in services.RegisterInput) (*models.User, error)
	load         func(ctx context.Context, id uuid.UUID) (*models.User, error)
}

func (m *mockUserService) Authenticate(ctx context.Context, in services.LoginInput) (*models.User, error) {
	return m.authenticate(ctx, in)
}

func (m *mockUserService) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	return m.register(ctx, in)
}

func (m *mockUserService) Load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.load(ctx, id)
}

type mockUploadService struct {
	got    services.UploadInput
	body   []byte
	result *services.UploadResult
	err    error
}

func (m *mockUploadService) Upload(ctx context.Context, actor *models.Actor, in services.UploadInput) (*services.UploadResult, error) {
	m.got = in
	if in.Content != nil {
		m.body, _ = io.ReadAll(in.Content)
	}
	return m.result, m.err
}

type mockImportService struct {
	kind     models.ImportKind
	filename string
	body     []byte
	result   *models.ImportResult
	err      error
}

func (m *mockImportService) Import(ctx context.Context, actor *models.Actor, kind models.ImportKind, filename string, content io.Reader) (*models.ImportResult, error) {
	m.kind = kind
	m.filename = filename
	m.body, _ = io.ReadAll(content)
	return m.result, m.err
}

type mockReportService struct {
	filter services.SupervisionListFilter
	csv    string
	err    error
}

func (m *mockReportService) ExportSupervisions(ctx context.Context, actor *models.Actor, filter services.SupervisionListFilter, w io.Writer) (int, error) {
	m.filter = filter
	if m.err != nil {
		return 0, m.err
	}
	_, err := io.WriteString(w, m.csv)
	return 1, err
}

type mockSettingsService struct {
	services.SettingsService
	putKey   string
	putValue json.RawMessage
	err      error
}

func (m *mockSettingsService) Put(ctx context.Context, actor *models.Actor, key string, value json.RawMessage) (*models.Setting, error) {
	m.putKey, m.putValue = key, value
	if m.err != nil {
		return nil, m.err
	}
	return &models.Setting{Key: key, Value: value}, nil
}

type mockPolicyService struct {
	services.PolicyService
	filter  services.PolicyListFilter
	genType models.PolicyType
}

func (m *mockPolicyService) List(ctx context.Context, actor *models.Actor, filter services.PolicyListFilter) ([]*models.Policy, error) {
	m.filter = filter
	return []*models.Policy{}, nil
}

func (m *mockPolicyService) GenerateCode(ctx context.Context, actor *models.Actor, policyType models.PolicyType) (string, error) {
	m.genType = policyType
	return "POL-SCHSAF-001", nil
}

var testValidator = validation.New()
