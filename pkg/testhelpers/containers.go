// Package testhelpers starts a throwaway PostgreSQL for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/edusupervise/supervision-engine/pkg/database"
)

// PostgresImage is the container image used for integration tests.
const PostgresImage = "postgres:16-alpine"

const (
	testDatabase = "supervision_test"
	testUser     = "supervision"
	testPassword = "test_password"
)

// appTables lists every table the migrations create, children first.
var appTables = []string{
	"activity_logs", "system_settings", "improvements", "acknowledgements", "attachments",
	"indicators", "supervisions", "policies", "school_supervisors", "schools", "network_groups", "users",
}

// EngineDB is a migrated database shared by every integration test in a
// package run.
type EngineDB struct {
	Container testcontainers.Container
	DB        *database.DB
	ConnStr   string
}

var (
	shared     *EngineDB
	sharedOnce sync.Once
	sharedErr  error
)

// GetEngineDB returns the shared database, starting it on first use.
func GetEngineDB(t *testing.T) *EngineDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
	sharedOnce.Do(func() {
		shared, sharedErr = startEngineDB(context.Background())
	})
	if sharedErr != nil {
		t.Fatalf("Failed to start test database: %v", sharedErr)
	}
	return shared
}

func startEngineDB(ctx context.Context) (*EngineDB, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        PostgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       testDatabase,
				"POSTGRES_USER":     testUser,
				"POSTGRES_PASSWORD": testPassword,
				"TZ":                "Asia/Bangkok",
			},
			// The entrypoint restarts the server once after init, so the
			// ready line appears twice.
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			).WithDeadline(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "5432/tcp", "")
	if err != nil {
		return nil, fmt.Errorf("resolve postgres endpoint: %w", err)
	}
	connStr := (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(testUser, testPassword),
		Host:     endpoint,
		Path:     "/" + testDatabase,
		RawQuery: "sslmode=disable",
	}).String()

	db, err := database.NewConnection(ctx, &database.Config{URL: connStr, MaxConnections: 10}, zap.NewNop())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(zap.NewNop()); err != nil {
		db.Close()
		return nil, err
	}

	return &EngineDB{Container: container, DB: db, ConnStr: connStr}, nil
}

// ScopedContext returns a context carrying one pooled connection, the way a
// request sees it after the scope middleware. Call the returned func to
// release it.
func (e *EngineDB) ScopedContext(t *testing.T) (context.Context, func()) {
	t.Helper()

	scope, err := e.DB.Acquire(context.Background())
	if err != nil {
		t.Fatalf("failed to acquire scope: %v", err)
	}
	return database.SetScope(context.Background(), scope), scope.Close
}

// Truncate empties every application table.
func (e *EngineDB) Truncate(t *testing.T) {
	t.Helper()

	if _, err := e.DB.Exec(context.Background(), "TRUNCATE "+strings.Join(appTables, ", ")+" CASCADE"); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}
