// seed loads a YAML fixture of network groups, schools, users, policies and
// settings into the database. Records that already exist (by code or email)
// are left untouched, so the command can be re-run safely.
//
// Usage: go run ./scripts/seed [-file seed.yaml]
//
// Database connection: the same config.yaml / PG* environment variables as the server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/edusupervise/supervision-engine/pkg/apperrors"
	"github.com/edusupervise/supervision-engine/pkg/auth"
	"github.com/edusupervise/supervision-engine/pkg/config"
	"github.com/edusupervise/supervision-engine/pkg/database"
	"github.com/edusupervise/supervision-engine/pkg/models"
	"github.com/edusupervise/supervision-engine/pkg/repositories"
)

// Fixture is the seed file layout.
type Fixture struct {
	NetworkGroups []GroupFixture  `yaml:"network_groups"`
	Schools       []SchoolFixture `yaml:"schools"`
	Users         []UserFixture   `yaml:"users"`
	Policies      []PolicyFixture `yaml:"policies"`
	Settings      map[string]any  `yaml:"settings"`
}

type GroupFixture struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type SchoolFixture struct {
	Code          string `yaml:"code"`
	Name          string `yaml:"name"`
	Province      string `yaml:"province"`
	District      string `yaml:"district"`
	SubDistrict   string `yaml:"sub_district"`
	Email         string `yaml:"email"`
	PrincipalName string `yaml:"principal_name"`
	StudentCount  int    `yaml:"student_count"`
	TeacherCount  int    `yaml:"teacher_count"`
	NetworkGroup  string `yaml:"network_group"`
}

type UserFixture struct {
	Email    string      `yaml:"email"`
	Name     string      `yaml:"name"`
	Password string      `yaml:"password"`
	Role     models.Role `yaml:"role"`
	Schools  []string    `yaml:"schools"`
}

type PolicyFixture struct {
	Code        string            `yaml:"code"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Type        models.PolicyType `yaml:"type"`
}

func main() {
	file := flag.String("file", "scripts/seed/seed.yaml", "Path to the seed fixture")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(*file, logger); err != nil {
		logger.Error("Seed failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(path string, logger *zap.Logger) error {
	fixture, err := LoadFixture(path)
	if err != nil {
		return err
	}

	cfg, err := config.Load("seed")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &database.Config{
		URL:      cfg.Database.ConnectionString(),
		TimeZone: cfg.Database.TimeZone,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	s := &seeder{
		groups:   repositories.NewNetworkGroupRepository(),
		schools:  repositories.NewSchoolRepository(),
		users:    repositories.NewUserRepository(),
		policies: repositories.NewPolicyRepository(),
		settings: repositories.NewSettingsRepository(),
		logger:   logger,
	}
	return db.WithScope(ctx, func(ctx context.Context) error {
		return s.seed(ctx, fixture)
	})
}

// LoadFixture reads and checks a seed file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a seed document and rejects unknown roles and policy types.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for _, u := range f.Users {
		if !u.Role.IsValid() {
			return nil, fmt.Errorf("user %s: unknown role %q", u.Email, u.Role)
		}
		if u.Password == "" {
			return nil, fmt.Errorf("user %s: password is required", u.Email)
		}
	}
	for _, p := range f.Policies {
		if !p.Type.IsValid() {
			return nil, fmt.Errorf("policy %s: unknown type %q", p.Code, p.Type)
		}
	}
	return &f, nil
}

type seeder struct {
	groups   repositories.NetworkGroupRepository
	schools  repositories.SchoolRepository
	users    repositories.UserRepository
	policies repositories.PolicyRepository
	settings repositories.SettingsRepository
	logger   *zap.Logger
}

func (s *seeder) seed(ctx context.Context, f *Fixture) error {
	groupIDs, err := s.seedGroups(ctx, f.NetworkGroups)
	if err != nil {
		return err
	}
	schoolIDs, err := s.seedSchools(ctx, f.Schools, groupIDs)
	if err != nil {
		return err
	}
	if err := s.seedUsers(ctx, f.Users, schoolIDs); err != nil {
		return err
	}
	if err := s.seedPolicies(ctx, f.Policies); err != nil {
		return err
	}
	return s.seedSettings(ctx, f.Settings)
}

func (s *seeder) seedGroups(ctx context.Context, fixtures []GroupFixture) (map[string]uuid.UUID, error) {
	existing, err := s.groups.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]uuid.UUID, len(existing)+len(fixtures))
	for _, g := range existing {
		ids[g.Code] = g.ID
	}

	for _, gf := range fixtures {
		if _, ok := ids[gf.Code]; ok {
			continue
		}
		group := &models.NetworkGroup{Code: gf.Code, Name: gf.Name, Description: gf.Description}
		if err := s.groups.Create(ctx, group); err != nil {
			return nil, fmt.Errorf("network group %s: %w", gf.Code, err)
		}
		ids[gf.Code] = group.ID
		s.logger.Info("Seeded network group", zap.String("code", gf.Code))
	}
	return ids, nil
}

func (s *seeder) seedSchools(ctx context.Context, fixtures []SchoolFixture, groupIDs map[string]uuid.UUID) (map[string]uuid.UUID, error) {
	existing, err := s.schools.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]uuid.UUID, len(existing)+len(fixtures))
	for _, sc := range existing {
		ids[sc.Code] = sc.ID
	}

	for _, sf := range fixtures {
		if _, ok := ids[sf.Code]; ok {
			continue
		}
		school := &models.School{
			Code:          sf.Code,
			Name:          sf.Name,
			Province:      sf.Province,
			District:      sf.District,
			SubDistrict:   sf.SubDistrict,
			Email:         sf.Email,
			PrincipalName: sf.PrincipalName,
			StudentCount:  sf.StudentCount,
			TeacherCount:  sf.TeacherCount,
		}
		if sf.NetworkGroup != "" {
			groupID, ok := groupIDs[sf.NetworkGroup]
			if !ok {
				return nil, fmt.Errorf("school %s: unknown network group %s", sf.Code, sf.NetworkGroup)
			}
			school.NetworkGroupID = &groupID
		}
		if err := s.schools.Create(ctx, school); err != nil {
			return nil, fmt.Errorf("school %s: %w", sf.Code, err)
		}
		ids[sf.Code] = school.ID
		s.logger.Info("Seeded school", zap.String("code", sf.Code))
	}
	return ids, nil
}

func (s *seeder) seedUsers(ctx context.Context, fixtures []UserFixture, schoolIDs map[string]uuid.UUID) error {
	for _, uf := range fixtures {
		_, err := s.users.GetByEmail(ctx, uf.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("user %s: %w", uf.Email, err)
		}

		hash, err := auth.HashPassword(uf.Password)
		if err != nil {
			return fmt.Errorf("user %s: %w", uf.Email, err)
		}
		user := &models.User{Email: uf.Email, Name: uf.Name, Role: uf.Role, PasswordHash: hash}
		for _, code := range uf.Schools {
			id, ok := schoolIDs[code]
			if !ok {
				return fmt.Errorf("user %s: unknown school %s", uf.Email, code)
			}
			user.AssignedSchoolIDs = append(user.AssignedSchoolIDs, id)
		}
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("user %s: %w", uf.Email, err)
		}
		s.logger.Info("Seeded user", zap.String("email", uf.Email), zap.String("role", string(uf.Role)))
	}
	return nil
}

func (s *seeder) seedPolicies(ctx context.Context, fixtures []PolicyFixture) error {
	for _, pf := range fixtures {
		policy := &models.Policy{
			Code:        pf.Code,
			Title:       pf.Title,
			Description: pf.Description,
			Type:        pf.Type,
			IsActive:    true,
		}
		err := s.policies.Create(ctx, policy)
		if errors.Is(err, apperrors.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("policy %s: %w", pf.Code, err)
		}
		s.logger.Info("Seeded policy", zap.String("code", pf.Code))
	}
	return nil
}

func (s *seeder) seedSettings(ctx context.Context, settings map[string]any) error {
	for key, value := range settings {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
		if _, err := s.settings.Upsert(ctx, key, raw); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
		s.logger.Info("Seeded setting", zap.String("key", key))
	}
	return nil
}
