package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/kitchenbook/kitchenbook-backend/pkg/database"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
)

var (
	// Global test container (shared across all integration tests)
	globalContainer *postgresContainer
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL.
// Tests isolate themselves by working under a fresh owner, see OwnerContext.
type IntegrationSuite struct {
	DB     *database.DB
	Logger *logger.Logger
}

// NewIntegrationSuite connects to a test database and applies schema.
// KITCHENBOOK_TEST_DATABASE_URL selects an existing database, otherwise a
// shared container is started. Call this in TestMain.
//
// Usage:
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    if !testing.Short() {
//	        suite, _ = testutil.NewIntegrationSuite(ctx, repository.Schema)
//	    }
//	    code := m.Run()
//	    testutil.TerminateContainer(ctx)
//	    os.Exit(code)
//	}
func NewIntegrationSuite(ctx context.Context, schema string) (*IntegrationSuite, error) {
	dsn := os.Getenv("KITCHENBOOK_TEST_DATABASE_URL")
	if dsn == "" {
		container, err := getOrCreateContainer(ctx)
		if err != nil {
			return nil, err
		}
		dsn = container.dsn
	}

	log := logger.New("test", "test")
	db, err := database.Open(dsn, log)
	if err != nil {
		return nil, err
	}

	if err := db.ApplySchema(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}

	return &IntegrationSuite{DB: db, Logger: log}, nil
}

// getOrCreateContainer returns the shared test container
func getOrCreateContainer(ctx context.Context) (*postgresContainer, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = startPostgres(ctx)
	})

	return globalContainer, containerErr
}

// Require skips the test when the suite could not be started
func (s *IntegrationSuite) Require(t *testing.T) {
	t.Helper()
	SkipIfShort(t)
	if s == nil {
		t.Skip("integration database unavailable")
	}
}

// Cleanup closes the suite's connection pool
func (s *IntegrationSuite) Cleanup() error {
	if s == nil {
		return nil
	}
	return s.DB.Close()
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		globalContainer.terminate(ctx)
	}
}
