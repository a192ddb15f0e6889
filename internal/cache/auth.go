package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/guaupro/landing/internal/model"
)

const (
	// authCachePrefix is the Redis key prefix for auth context cache.
	authCachePrefix = "auth:ctx:"
	// authKeyIndexPrefix maps a key ID to its auth cache key for revocation.
	authKeyIndexPrefix = "auth:key:"
	// authCacheTTL is the time-to-live for cached auth contexts.
	authCacheTTL = 5 * time.Minute
)

// CachedAuthContext represents auth context stored in Redis.
type CachedAuthContext struct {
	KeyID     string   `json:"key_id"`
	KeyPrefix string   `json:"key_prefix"`
	Owner     string   `json:"owner"`
	Scopes    []string `json:"scopes"`
}

// GetAuthContext retrieves a cached auth context by cache key.
// Returns nil if not found (cache miss).
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authCachePrefix+cacheKey).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached CachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.AuthContext{
		KeyID:     cached.KeyID,
		KeyPrefix: cached.KeyPrefix,
		Owner:     cached.Owner,
		Scopes:    cached.Scopes,
	}, nil
}

// SetAuthContext caches an auth context and indexes it by key ID.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error {
	data, err := json.Marshal(CachedAuthContext{
		KeyID:     auth.KeyID,
		KeyPrefix: auth.KeyPrefix,
		Owner:     auth.Owner,
		Scopes:    auth.Scopes,
	})
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, authCachePrefix+cacheKey, data, authCacheTTL)
	pipe.Set(ctx, authKeyIndexPrefix+auth.KeyID, cacheKey, authCacheTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateKey removes the cached auth context of a revoked key.
func (c *Cache) InvalidateKey(ctx context.Context, keyID string) error {
	indexKey := authKeyIndexPrefix + keyID
	cacheKey, err := c.client.Get(ctx, indexKey).Result()
	if err != nil {
		// Nothing cached for this key
		return nil //nolint:nilerr
	}
	return c.client.Del(ctx, authCachePrefix+cacheKey, indexKey).Err()
}
