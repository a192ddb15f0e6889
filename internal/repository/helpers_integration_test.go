//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guaupro/landing/internal/testutil"
)

// openTestRepository connects to DATABASE_URL, serializes DB tests with an
// advisory lock and resets the schema under test.
func openTestRepository(t *testing.T, reset func(context.Context, *pgxpool.Pool) error) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL, PoolConfig{MaxConns: 4})
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := reset(ctx, repo.pool); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	return ctx, repo
}
