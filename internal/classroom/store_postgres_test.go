package classroom_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/pai-classroom/internal/classroom"
	"github.com/p-n-ai/pai-classroom/internal/platform/database"
)

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := classroom.NewPostgresStore(nil); err == nil {
		t.Fatal("NewPostgresStore(nil) should return error")
	}
}

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("classroom"),
		postgres.WithUsername("pai"),
		postgres.WithPassword("pai"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	if err := database.Migrate(ctx, url); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	runStoreContract(t, func(t *testing.T) classroom.Store {
		pool, err := pgxpool.New(ctx, url)
		if err != nil {
			t.Fatalf("pgxpool.New() error = %v", err)
		}
		t.Cleanup(pool.Close)
		if _, err := pool.Exec(ctx, `TRUNCATE courses, topics, tests, comments, course_progress`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		s, err := classroom.NewPostgresStore(pool)
		if err != nil {
			t.Fatalf("NewPostgresStore() error = %v", err)
		}
		return s
	})
}
