// Package testutil provides testing utilities for the inventory service.
// It includes a testcontainers PostgreSQL instance, sqlmock wrappers,
// HTTP helpers and owner context helpers.
package testutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultPostgresImage = "postgres:16-alpine"

// postgresContainer is a throwaway PostgreSQL for integration tests
type postgresContainer struct {
	container *postgres.PostgresContainer
	dsn       string
}

// startPostgres runs a PostgreSQL container and returns its DSN.
// KITCHENBOOK_TEST_POSTGRES_IMAGE overrides the image.
func startPostgres(ctx context.Context) (*postgresContainer, error) {
	image := os.Getenv("KITCHENBOOK_TEST_POSTGRES_IMAGE")
	if image == "" {
		image = defaultPostgresImage
	}

	c, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(image),
		postgres.WithDatabase("kitchenbook_test"),
		postgres.WithUsername("kitchenbook"),
		postgres.WithPassword("kitchenbook"),
		// initdb restarts the server once, so readiness is logged twice
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &postgresContainer{container: c, dsn: dsn}, nil
}

func (p *postgresContainer) terminate(ctx context.Context) {
	if err := p.container.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "terminate postgres container: %v\n", err)
	}
}
