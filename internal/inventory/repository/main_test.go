package repository_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/kitchenbook/kitchenbook-backend/internal/inventory/repository"
	"github.com/kitchenbook/kitchenbook-backend/pkg/testutil"
)

// suite is nil in -short mode or when no database could be started;
// integration tests skip themselves through suite.Require.
var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	ctx := context.Background()

	if !testing.Short() {
		var err error
		suite, err = testutil.NewIntegrationSuite(ctx, repository.Schema)
		if err != nil {
			log.Printf("integration database unavailable, skipping integration tests: %v", err)
			suite = nil
		}
	}

	code := m.Run()

	suite.Cleanup()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}
