package services

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/email"
	"github.com/edusupervise/supervision-engine/pkg/lifecycle"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/repositories"
	"github.com/edusupervise/supervision-engine/pkg/storage"
)

// ============================================================================
// Mock Implementations for Service Tests
// ============================================================================

type mockUserRepository struct {
	users       map[uuid.UUID]*models.User
	assignments map[uuid.UUID]map[uuid.UUID]bool // user -> schools
	createErr   error
	deleteErr   error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:       make(map[uuid.UUID]*models.User),
		assignments: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (m *mockUserRepository) add(u *models.User) *models.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.ID] = u
	return u
}

func (m *mockUserRepository) assign(userID, schoolID uuid.UUID) {
	if m.assignments[userID] == nil {
		m.assignments[userID] = make(map[uuid.UUID]bool)
	}
	m.assignments[userID][schoolID] = true
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperrors.ErrConflict
		}
	}
	user.ID = uuid.New()
	m.users[user.ID] = user
	for _, id := range user.AssignedSchoolIDs {
		m.assign(user.ID, id)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockUserRepository) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.users[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepository) SetAssignedSchools(ctx context.Context, userID uuid.UUID, schoolIDs []uuid.UUID) error {
	delete(m.assignments, userID)
	for _, id := range schoolIDs {
		m.assign(userID, id)
	}
	if u, ok := m.users[userID]; ok {
		u.AssignedSchoolIDs = schoolIDs
	}
	return nil
}

func (m *mockUserRepository) IsAssigned(ctx context.Context, userID, schoolID uuid.UUID) (bool, error) {
	return m.assignments[userID][schoolID], nil
}

func (m *mockUserRepository) CountWithRole(ctx context.Context, ids []uuid.UUID, role models.Role) (int, error) {
	seen := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if u, ok := m.users[id]; ok && u.Role == role {
			seen[id] = true
		}
	}
	return len(seen), nil
}

type mockSchoolRepository struct {
	schools     map[uuid.UUID]*models.School
	supervisors map[uuid.UUID][]uuid.UUID
	users       *mockUserRepository
	getErr      error
}

func newMockSchoolRepository(users *mockUserRepository) *mockSchoolRepository {
	return &mockSchoolRepository{
		schools:     make(map[uuid.UUID]*models.School),
		supervisors: make(map[uuid.UUID][]uuid.UUID),
		users:       users,
	}
}

func (m *mockSchoolRepository) add(s *models.School) *models.School {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.schools[s.ID] = s
	return s
}

func (m *mockSchoolRepository) Create(ctx context.Context, school *models.School) error {
	for _, s := range m.schools {
		if s.Code == school.Code {
			return apperrors.ErrConflict
		}
	}
	school.ID = uuid.New()
	m.schools[school.ID] = school
	return nil
}

func (m *mockSchoolRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.School, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.schools[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *s
	cp.Supervisors = nil
	for _, uid := range m.supervisors[id] {
		cp.Supervisors = append(cp.Supervisors, models.UserSummary{ID: uid})
	}
	return &cp, nil
}

func (m *mockSchoolRepository) GetByEmail(ctx context.Context, email string) (*models.School, error) {
	for _, s := range m.schools {
		if s.Email != "" && strings.EqualFold(s.Email, email) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockSchoolRepository) List(ctx context.Context) ([]*models.School, error) {
	var out []*models.School
	for _, s := range m.schools {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockSchoolRepository) ListAssigned(ctx context.Context, supervisorID uuid.UUID) ([]*models.School, error) {
	var out []*models.School
	for id := range m.users.assignments[supervisorID] {
		if s, ok := m.schools[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSchoolRepository) Update(ctx context.Context, school *models.School) error {
	if _, ok := m.schools[school.ID]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *school
	m.schools[school.ID] = &cp
	return nil
}

func (m *mockSchoolRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.schools[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.schools, id)
	return nil
}

func (m *mockSchoolRepository) SetSupervisors(ctx context.Context, schoolID uuid.UUID, userIDs []uuid.UUID) error {
	m.supervisors[schoolID] = userIDs
	for uid, schools := range m.users.assignments {
		delete(schools, schoolID)
		m.users.assignments[uid] = schools
	}
	for _, uid := range userIDs {
		m.users.assign(uid, schoolID)
	}
	return nil
}

func (m *mockSchoolRepository) HighestCode(ctx context.Context, prefix string) (string, error) {
	highest := ""
	for _, s := range m.schools {
		if strings.HasPrefix(s.Code, prefix) && (len(s.Code) > len(highest) || (len(s.Code) == len(highest) && s.Code > highest)) {
			highest = s.Code
		}
	}
	return highest, nil
}

type mockNetworkGroupRepository struct {
	groups       map[uuid.UUID]*models.NetworkGroup
	schoolCounts map[uuid.UUID]int
	deleted      []uuid.UUID
}

func newMockNetworkGroupRepository() *mockNetworkGroupRepository {
	return &mockNetworkGroupRepository{
		groups:       make(map[uuid.UUID]*models.NetworkGroup),
		schoolCounts: make(map[uuid.UUID]int),
	}
}

func (m *mockNetworkGroupRepository) Create(ctx context.Context, group *models.NetworkGroup) error {
	for _, g := range m.groups {
		if g.Code == group.Code {
			return apperrors.ErrConflict
		}
	}
	group.ID = uuid.New()
	m.groups[group.ID] = group
	return nil
}

func (m *mockNetworkGroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.NetworkGroup, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *mockNetworkGroupRepository) List(ctx context.Context) ([]*models.NetworkGroup, error) {
	var out []*models.NetworkGroup
	for _, g := range m.groups {
		out = append(out, g)
	}
	return out, nil
}

func (m *mockNetworkGroupRepository) Update(ctx context.Context, group *models.NetworkGroup) error {
	for id, g := range m.groups {
		if id != group.ID && g.Code == group.Code {
			return apperrors.ErrConflict
		}
	}
	m.groups[group.ID] = group
	return nil
}

func (m *mockNetworkGroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.groups, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockNetworkGroupRepository) CountSchools(ctx context.Context, id uuid.UUID) (int, error) {
	return m.schoolCounts[id], nil
}

type mockPolicyRepository struct {
	policies   map[uuid.UUID]*models.Policy
	references map[uuid.UUID]int
	deleted    []uuid.UUID
}

func newMockPolicyRepository() *mockPolicyRepository {
	return &mockPolicyRepository{
		policies:   make(map[uuid.UUID]*models.Policy),
		references: make(map[uuid.UUID]int),
	}
}

func (m *mockPolicyRepository) add(p *models.Policy) *models.Policy {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.policies[p.ID] = p
	return p
}

func (m *mockPolicyRepository) Create(ctx context.Context, policy *models.Policy) error {
	for _, p := range m.policies {
		if p.Type == policy.Type && p.Code == policy.Code {
			return apperrors.ErrConflict
		}
	}
	policy.ID = uuid.New()
	m.policies[policy.ID] = policy
	return nil
}

func (m *mockPolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	p, ok := m.policies[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPolicyRepository) ExistingIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	found := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if _, ok := m.policies[id]; ok {
			found[id] = true
		}
	}
	return found, nil
}

func (m *mockPolicyRepository) List(ctx context.Context, filter repositories.PolicyFilter) ([]*models.Policy, error) {
	var out []*models.Policy
	for _, p := range m.policies {
		if filter.Type != nil && p.Type != *filter.Type {
			continue
		}
		if !filter.IncludeInactive && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockPolicyRepository) Update(ctx context.Context, policy *models.Policy) error {
	m.policies[policy.ID] = policy
	return nil
}

func (m *mockPolicyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.policies, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockPolicyRepository) CountReferences(ctx context.Context, id uuid.UUID) (int, error) {
	return m.references[id], nil
}

func (m *mockPolicyRepository) CodesByType(ctx context.Context, policyType models.PolicyType) ([]string, error) {
	var codes []string
	for _, p := range m.policies {
		if p.Type == policyType {
			codes = append(codes, p.Code)
		}
	}
	return codes, nil
}

type mockSupervisionRepository struct {
	supervisions map[uuid.UUID]*models.Supervision
	acks         *mockAcknowledgementRepository
	lastFilter   models.SupervisionFilter
	listCalls    int
	lastDiff     lifecycle.AttachmentDiff
}

func newMockSupervisionRepository(acks *mockAcknowledgementRepository) *mockSupervisionRepository {
	return &mockSupervisionRepository{
		supervisions: make(map[uuid.UUID]*models.Supervision),
		acks:         acks,
	}
}

func (m *mockSupervisionRepository) add(s *models.Supervision) *models.Supervision {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.supervisions[s.ID] = s
	return s
}

func (m *mockSupervisionRepository) Create(ctx context.Context, s *models.Supervision) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	m.supervisions[s.ID] = &cp
	return nil
}

func (m *mockSupervisionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Supervision, error) {
	s, ok := m.supervisions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *s
	cp.Attachments = append([]models.Attachment(nil), s.Attachments...)
	cp.Indicators = append([]models.Indicator(nil), s.Indicators...)
	if ack, ok := m.acks.acks[id]; ok {
		ackCopy := *ack
		cp.Acknowledgement = &ackCopy
	}
	return &cp, nil
}

func (m *mockSupervisionRepository) List(ctx context.Context, filter models.SupervisionFilter) ([]*models.Supervision, error) {
	m.lastFilter = filter
	m.listCalls++
	var out []*models.Supervision
	for _, s := range m.supervisions {
		if filter.UserID != nil && s.UserID != *filter.UserID {
			continue
		}
		if filter.SchoolID != nil && s.SchoolID != *filter.SchoolID {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *mockSupervisionRepository) Update(ctx context.Context, s *models.Supervision, indicators []models.Indicator, diff lifecycle.AttachmentDiff) error {
	existing, ok := m.supervisions[s.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	m.lastDiff = diff
	drop := make(map[uuid.UUID]bool)
	for _, id := range diff.Delete {
		drop[id] = true
	}
	var attachments []models.Attachment
	for _, a := range existing.Attachments {
		if !drop[a.ID] {
			attachments = append(attachments, a)
		}
	}
	attachments = append(attachments, diff.Add...)

	cp := *s
	cp.Indicators = indicators
	cp.Attachments = attachments
	cp.Acknowledgement = nil
	m.supervisions[s.ID] = &cp
	return nil
}

func (m *mockSupervisionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SupervisionStatus) error {
	s, ok := m.supervisions[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	s.Status = status
	return nil
}

func (m *mockSupervisionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.supervisions[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.supervisions, id)
	return nil
}

func (m *mockSupervisionRepository) LatestForSchool(ctx context.Context, schoolID uuid.UUID) (*models.Supervision, error) {
	var latest *models.Supervision
	for _, s := range m.supervisions {
		if s.SchoolID == schoolID && (latest == nil || s.Date.After(latest.Date)) {
			latest = s
		}
	}
	if latest == nil {
		return nil, apperrors.ErrNotFound
	}
	return latest, nil
}

type mockAcknowledgementRepository struct {
	acks map[uuid.UUID]*models.Acknowledgement // by supervision
}

func newMockAcknowledgementRepository() *mockAcknowledgementRepository {
	return &mockAcknowledgementRepository{acks: make(map[uuid.UUID]*models.Acknowledgement)}
}

func (m *mockAcknowledgementRepository) Create(ctx context.Context, ack *models.Acknowledgement) error {
	if _, exists := m.acks[ack.SupervisionID]; exists {
		return apperrors.ErrAlreadyAcknowledged
	}
	ack.ID = uuid.New()
	m.acks[ack.SupervisionID] = ack
	return nil
}

type mockImprovementRepository struct {
	improvements map[uuid.UUID]*models.Improvement
	lastSchool   *uuid.UUID
	listCalls    int
}

func newMockImprovementRepository() *mockImprovementRepository {
	return &mockImprovementRepository{improvements: make(map[uuid.UUID]*models.Improvement)}
}

func (m *mockImprovementRepository) Create(ctx context.Context, imp *models.Improvement) error {
	imp.ID = uuid.New()
	m.improvements[imp.ID] = imp
	return nil
}

func (m *mockImprovementRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Improvement, error) {
	imp, ok := m.improvements[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *imp
	return &cp, nil
}

func (m *mockImprovementRepository) List(ctx context.Context, schoolID *uuid.UUID) ([]*models.Improvement, error) {
	m.lastSchool = schoolID
	m.listCalls++
	var out []*models.Improvement
	for _, imp := range m.improvements {
		if schoolID == nil || imp.SchoolID == *schoolID {
			out = append(out, imp)
		}
	}
	return out, nil
}

func (m *mockImprovementRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ImprovementStatus) error {
	imp, ok := m.improvements[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	imp.Status = status
	return nil
}

type mockActivityLogRepository struct {
	mu        sync.Mutex
	entries   []*models.ActivityLog
	createErr error
	lastLimit int
}

func (m *mockActivityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockActivityLogRepository) List(ctx context.Context, limit int) ([]*models.ActivityLog, error) {
	m.lastLimit = limit
	return m.entries, nil
}

func (m *mockActivityLogRepository) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

type mockSettingsRepository struct {
	settings map[string]*models.Setting
}

func newMockSettingsRepository() *mockSettingsRepository {
	return &mockSettingsRepository{settings: make(map[string]*models.Setting)}
}

func (m *mockSettingsRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	s, ok := m.settings[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return s, nil
}

func (m *mockSettingsRepository) List(ctx context.Context) ([]*models.Setting, error) {
	var out []*models.Setting
	for _, s := range m.settings {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSettingsRepository) Upsert(ctx context.Context, key string, value json.RawMessage) (*models.Setting, error) {
	s := &models.Setting{Key: key, Value: value}
	m.settings[key] = s
	return s, nil
}

type mockStatsRepository struct {
	admin        *models.AdminStats
	supervisor   *models.SupervisorStats
	supCount     int
	impCount     int
	statuses     []models.StatusCount
	levels       []models.LevelCount
	analytics    models.Analytics
	countsErr    error
	lastSchoolID uuid.UUID
	schoolLimit  int
}

func (m *mockStatsRepository) AdminCounts(ctx context.Context) (*models.AdminStats, error) {
	if m.countsErr != nil {
		return nil, m.countsErr
	}
	cp := *m.admin
	return &cp, nil
}

func (m *mockStatsRepository) SupervisorCounts(ctx context.Context, userID uuid.UUID) (*models.SupervisorStats, error) {
	return m.supervisor, m.countsErr
}

func (m *mockStatsRepository) SchoolCounts(ctx context.Context, schoolID uuid.UUID) (int, int, error) {
	m.lastSchoolID = schoolID
	return m.supCount, m.impCount, m.countsErr
}

func (m *mockStatsRepository) StatusCounts(ctx context.Context) ([]models.StatusCount, error) {
	return m.statuses, m.countsErr
}

func (m *mockStatsRepository) LevelCounts(ctx context.Context) ([]models.LevelCount, error) {
	return m.levels, m.countsErr
}

func (m *mockStatsRepository) AcademicYearCounts(ctx context.Context) ([]models.YearCount, error) {
	return m.analytics.AcademicYears, nil
}

func (m *mockStatsRepository) DistrictCounts(ctx context.Context) ([]models.NamedCount, error) {
	return m.analytics.Districts, nil
}

func (m *mockStatsRepository) NetworkGroupCounts(ctx context.Context) ([]models.NetworkGroupCount, error) {
	return m.analytics.NetworkGroups, nil
}

func (m *mockStatsRepository) PolicyUsage(ctx context.Context) ([]models.PolicyTypeCount, error) {
	return m.analytics.PolicyUsage, nil
}

func (m *mockStatsRepository) PolicyByType(ctx context.Context) ([]models.SupervisionTypePolicies, error) {
	return m.analytics.PolicyByType, nil
}

func (m *mockStatsRepository) SchoolIndicators(ctx context.Context, limit int) ([]models.SchoolIndicators, error) {
	m.schoolLimit = limit
	return m.analytics.SchoolIndicators, nil
}

func (m *mockStatsRepository) IndicatorRadar(ctx context.Context) ([]models.IndicatorRadar, error) {
	return m.analytics.IndicatorRadar, nil
}

func (m *mockStatsRepository) SupervisorPerformance(ctx context.Context) ([]models.SupervisorPerformance, error) {
	// The service fills Rate in place.
	out := append([]models.SupervisorPerformance(nil), m.analytics.Supervisors...)
	return out, nil
}

type mockSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *mockSender) Send(ctx context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockFileStore struct {
	stored  []byte
	folder  string
	ownerID string
	err     error
}

func (m *mockFileStore) Store(ctx context.Context, r io.Reader, folder, ownerID, filename string) (*storage.StoredFile, error) {
	if m.err != nil {
		return nil, m.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.stored, m.folder, m.ownerID = b, folder, ownerID
	return &storage.StoredFile{URL: "/uploads/" + folder + "/" + ownerID + "/1-" + storage.SanitizeFilename(filename), Size: int64(len(b))}, nil
}

var (
	_ repositories.UserRepository            = (*mockUserRepository)(nil)
	_ repositories.SchoolRepository          = (*mockSchoolRepository)(nil)
	_ repositories.NetworkGroupRepository    = (*mockNetworkGroupRepository)(nil)
	_ repositories.PolicyRepository          = (*mockPolicyRepository)(nil)
	_ repositories.SupervisionRepository     = (*mockSupervisionRepository)(nil)
	_ repositories.AcknowledgementRepository = (*mockAcknowledgementRepository)(nil)
	_ repositories.ImprovementRepository     = (*mockImprovementRepository)(nil)
	_ repositories.ActivityLogRepository     = (*mockActivityLogRepository)(nil)
	_ repositories.SettingsRepository        = (*mockSettingsRepository)(nil)
	_ repositories.StatsRepository           = (*mockStatsRepository)(nil)
	_ email.Sender                           = (*mockSender)(nil)
	_ storage.FileStore                      = (*mockFileStore)(nil)
)

// ============================================================================
// Fixtures
// ============================================================================

type fixture struct {
	users        *mockUserRepository
	schools      *mockSchoolRepository
	policies     *mockPolicyRepository
	supervisions *mockSupervisionRepository
	acks         *mockAcknowledgementRepository
	improvements *mockImprovementRepository
	activityRepo *mockActivityLogRepository
	mailer       *mockSender
	activity     ActivityLogService

	admin       *models.Actor
	supervisor  *models.Actor
	other       *models.Actor
	schoolUser  *models.Actor
	executive   *models.Actor
	school      *models.School
	otherSchool *models.School
}

func newFixture() *fixture {
	f := &fixture{
		users:        newMockUserRepository(),
		policies:     newMockPolicyRepository(),
		acks:         newMockAcknowledgementRepository(),
		improvements: newMockImprovementRepository(),
		activityRepo: &mockActivityLogRepository{},
		mailer:       &mockSender{},
	}
	f.schools = newMockSchoolRepository(f.users)
	f.supervisions = newMockSupervisionRepository(f.acks)
	f.activity = NewActivityLogService(f.activityRepo, testLogger())

	f.admin = f.actor(models.RoleAdmin, "admin@example.com", "Admin")
	f.supervisor = f.actor(models.RoleSupervisor, "sup@example.com", "Supervisor One")
	f.other = f.actor(models.RoleSupervisor, "sup2@example.com", "Supervisor Two")
	f.schoolUser = f.actor(models.RoleSchool, "school@example.com", "School Account")
	f.executive = f.actor(models.RoleExecutive, "exec@example.com", "Executive")

	f.school = f.schools.add(&models.School{Code: "SCH001", Name: "Ban Nong School", Email: "school@example.com", PrincipalName: "Principal Somchai"})
	f.otherSchool = f.schools.add(&models.School{Code: "SCH002", Name: "Wat Pa School"})
	f.users.assign(f.supervisor.ID, f.school.ID)
	return f
}

func (f *fixture) actor(role models.Role, emailAddr, name string) *models.Actor {
	u := f.users.add(&models.User{Email: emailAddr, Name: name, Role: role})
	return models.ActorFromUser(u)
}

func (f *fixture) supervisionService() SupervisionService {
	return NewSupervisionService(f.supervisions, f.acks, f.schools, f.users, f.policies,
		f.activity, f.mailer, "https://supervision.example.com/", testLogger())
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
