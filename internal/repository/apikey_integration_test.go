//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guaupro/landing/internal/model"
	"github.com/guaupro/landing/internal/testutil"
)

func newAPIKeyTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	return openTestRepository(t, testutil.ResetAPIKeysSchema)
}

func createTestKey(t *testing.T, ctx context.Context, repo *Repository, mutate func(*model.APIKey)) *model.APIKey {
	t.Helper()
	key := testutil.NewTestAPIKey(t, testutil.UniqueID("owner"))
	if mutate != nil {
		mutate(key)
	}
	require.NoError(t, repo.CreateAPIKey(ctx, key))
	return key
}

func TestIntegrationAPIKeyRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newAPIKeyTestEnv(t)

	key := createTestKey(t, ctx, repo, func(k *model.APIKey) {
		k.Scopes = []string{model.ScopeRead, model.ScopeAdmin}
		k.Name = "reporting"
	})

	got, err := repo.GetAPIKeyByID(ctx, key.ID)
	require.NoError(t, err)

	assert.Equal(t, key.Owner, got.Owner)
	assert.Equal(t, key.KeyHash, got.KeyHash)
	assert.Equal(t, key.KeyPrefix, got.KeyPrefix)
	assert.Equal(t, "reporting", got.Name)
	assert.Equal(t, []string{model.ScopeRead, model.ScopeAdmin}, got.Scopes)
	assert.Nil(t, got.RevokedAt)
	assert.Nil(t, got.LastUsedAt)
}

func TestIntegrationAPIKeyRepository_GetByID_NotFound(t *testing.T) {
	ctx, repo := newAPIKeyTestEnv(t)

	_, err := repo.GetAPIKeyByID(ctx, "nonexistent-key-id")
	assert.ErrorIs(t, err, ErrAPIKeyNotFound)
}

func TestIntegrationAPIKeyRepository_GetByPrefix_ActiveOnly(t *testing.T) {
	ctx, repo := newAPIKeyTestEnv(t)

	active := createTestKey(t, ctx, repo, func(k *model.APIKey) { k.KeyPrefix = "abc123" })
	revoked := createTestKey(t, ctx, repo, func(k *model.APIKey) {
		k.KeyPrefix = "abc123"
		k.KeyHash = "hash-revoked"
	})
	createTestKey(t, ctx, repo, func(k *model.APIKey) {
		k.KeyPrefix = "fff999"
		k.KeyHash = "hash-other"
	})
	require.NoError(t, repo.RevokeAPIKey(ctx, revoked.ID))

	keys, err := repo.GetAPIKeysByPrefix(ctx, "abc123")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, active.ID, keys[0].ID)
}

func TestIntegrationAPIKeyRepository_ListNewestFirst(t *testing.T) {
	ctx, repo := newAPIKeyTestEnv(t)

	base := time.Now().UTC().Truncate(time.Microsecond)
	older := createTestKey(t, ctx, repo, func(k *model.APIKey) { k.CreatedAt = base.Add(-time.Hour) })
	newer := createTestKey(t, ctx, repo, func(k *model.APIKey) {
		k.CreatedAt = base
		k.KeyHash = "hash-newer"
	})
	require.NoError(t, repo.RevokeAPIKey(ctx, older.ID))

	keys, err := repo.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, newer.ID, keys[0].ID)
	assert.Equal(t, older.ID, keys[1].ID)
	assert.True(t, keys[1].IsRevoked(), "revoked keys stay listed")
}

func TestIntegrationAPIKeyRepository_Revoke(t *testing.T) {
	ctx, repo := newAPIKeyTestEnv(t)

	key := createTestKey(t, ctx, repo, nil)

	require.NoError(t, repo.RevokeAPIKey(ctx, key.ID))
	got, err := repo.GetAPIKeyByID(ctx, key.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RevokedAt)

	// Revoking twice or revoking an unknown key reports not found
	assert.ErrorIs(t, repo.RevokeAPIKey(ctx, key.ID), ErrAPIKeyNotFound)
	assert.ErrorIs(t, repo.RevokeAPIKey(ctx, "missing"), ErrAPIKeyNotFound)
}

func TestIntegrationAPIKeyRepository_UpdateLastUsed(t *testing.T) {
	ctx, repo := newAPIKeyTestEnv(t)

	key := createTestKey(t, ctx, repo, nil)
	before := time.Now().UTC().Add(-time.Second)

	require.NoError(t, repo.UpdateAPIKeyLastUsed(ctx, key.ID))

	got, err := repo.GetAPIKeyByID(ctx, key.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.True(t, got.LastUsedAt.After(before), "last_used_at = %v", got.LastUsedAt)
}
