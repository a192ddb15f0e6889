package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/guaupro/landing/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 470049

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ApplyMigrations runs every up migration in order. Migrations are idempotent.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	paths, err := filepath.Glob(filepath.Join(root, "migrations", "*.up.sql"))
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	for _, path := range paths {
		if err := execFile(ctx, pool, path); err != nil {
			return err
		}
	}
	return nil
}

// ResetLeadsSchema drops and recreates the waitlist_leads table for tests.
func ResetLeadsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000002_waitlist_leads")
}

// ResetAPIKeysSchema drops and recreates the api_keys table for tests.
func ResetAPIKeysSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000003_api_keys")
}

func resetSchema(ctx context.Context, pool *pgxpool.Pool, migration string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	if err := execFile(ctx, pool, filepath.Join(root, "migrations", "000001_init.up.sql")); err != nil {
		return err
	}
	if err := execFile(ctx, pool, filepath.Join(root, "migrations", migration+".down.sql")); err != nil {
		return err
	}
	return execFile(ctx, pool, filepath.Join(root, "migrations", migration+".up.sql"))
}

func execFile(ctx context.Context, pool *pgxpool.Pool, path string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", filepath.Base(path), err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply migration %s: %w", filepath.Base(path), err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestLead creates a valid lead with sensible defaults.
func NewTestLead(t testing.TB, email string) *model.Lead {
	t.Helper()
	company := "Patitas Felices"
	return &model.Lead{
		ID:               UniqueID("lead"),
		Email:            email,
		FullName:         "Laura García",
		BusinessType:     model.BusinessDaycare,
		PetVolume:        model.PetVolume11To30,
		CompanyName:      &company,
		Features:         []string{model.FeatureBilling, model.FeatureTeam},
		MarketingConsent: true,
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}
}

// NewTestAPIKey creates a test API key with sensible defaults.
func NewTestAPIKey(t testing.TB, owner string) *model.APIKey {
	t.Helper()
	now := time.Now().UTC()
	return &model.APIKey{
		ID:        UniqueID("key"),
		Owner:     owner,
		KeyHash:   fmt.Sprintf("hash-%d", now.UnixNano()),
		KeyPrefix: "a1b2c3",
		Scopes:    []string{model.ScopeRead},
		Name:      "Test Key",
		CreatedAt: now,
	}
}

// UniqueEmail generates a unique email address for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
