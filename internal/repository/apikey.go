package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/guaupro/landing/internal/model"
)

// ErrAPIKeyNotFound is returned for unknown or already revoked keys.
var ErrAPIKeyNotFound = errors.New("API key not found")

const apiKeyColumns = `id, owner, key_hash, key_prefix, scopes, name, revoked_at, last_used_at, created_at`

// CreateAPIKey inserts a new admin API key.
func (r *Repository) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO api_keys (id, owner, key_hash, key_prefix, scopes, name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, key.ID, key.Owner, key.KeyHash, key.KeyPrefix, pq.Array(key.Scopes), key.Name, key.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}
	return nil
}

// GetAPIKeyByID retrieves an API key, revoked or not, by its ID.
func (r *Repository) GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error) {
	key, err := scanAPIKey(r.pool.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAPIKeyNotFound
	}
	return key, err
}

// GetAPIKeysByPrefix returns the active keys sharing a public prefix.
// The auth middleware verifies the secret against each candidate.
func (r *Repository) GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error) {
	return r.queryAPIKeys(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1 AND revoked_at IS NULL`, prefix)
}

// ListAPIKeys returns every admin API key, newest first.
func (r *Repository) ListAPIKeys(ctx context.Context) ([]*model.APIKey, error) {
	return r.queryAPIKeys(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at DESC, id DESC`)
}

// RevokeAPIKey marks an active key as revoked.
func (r *Repository) RevokeAPIKey(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE api_keys SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// UpdateAPIKeyLastUsed stamps last_used_at. Auth calls it off the request path.
func (r *Repository) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update API key last used: %w", err)
	}
	return nil
}

func (r *Repository) queryAPIKeys(ctx context.Context, query string, args ...any) ([]*model.APIKey, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query API keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating API keys: %w", err)
	}
	return keys, nil
}

// scanAPIKey reads one apiKeyColumns row. pgx.ErrNoRows is returned unwrapped.
func scanAPIKey(row pgx.Row) (*model.APIKey, error) {
	var key model.APIKey
	err := row.Scan(
		&key.ID,
		&key.Owner,
		&key.KeyHash,
		&key.KeyPrefix,
		pq.Array(&key.Scopes),
		&key.Name,
		&key.RevokedAt,
		&key.LastUsedAt,
		&key.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan API key: %w", err)
	}
	return &key, nil
}
