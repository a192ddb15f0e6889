package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/guaupro/landing/internal/auth"
	"github.com/guaupro/landing/internal/handler/dto"
	"github.com/guaupro/landing/internal/model"
	"github.com/guaupro/landing/internal/repository"
)

// APIKeyStore persists admin API keys.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]*model.APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
}

// KeyInvalidator drops cached auth state for a revoked key.
type KeyInvalidator interface {
	InvalidateKey(ctx context.Context, keyID string) error
}

// APIKeyHandler handles API key management endpoints.
type APIKeyHandler struct {
	logger *slog.Logger
	keys   APIKeyStore
	cache  KeyInvalidator
	now    func() time.Time
}

// NewAPIKeyHandler creates a new APIKeyHandler. cache may be nil.
func NewAPIKeyHandler(logger *slog.Logger, keys APIKeyStore, cache KeyInvalidator) *APIKeyHandler {
	return &APIKeyHandler{
		logger: logger,
		keys:   keys,
		cache:  cache,
		now:    time.Now,
	}
}

// CreateAPIKey handles POST /api/v1/admin/api-keys
func (h *APIKeyHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req model.APIKeyCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	for _, scope := range req.Scopes {
		if !slices.Contains(model.ValidScopes, scope) {
			writeFieldError(w, http.StatusBadRequest, "INVALID_SCOPE",
				"Invalid scope: "+scope+". Valid scopes: "+strings.Join(model.ValidScopes, ", "), "scopes")
			return
		}
	}

	// Default to read scope if none provided
	if len(req.Scopes) == 0 {
		req.Scopes = []string{model.ScopeRead}
	}

	generated, err := auth.GenerateKey(auth.EnvLive)
	if err != nil {
		h.logger.Error("failed to generate API key", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate API key")
		return
	}

	apiKey := &model.APIKey{
		ID:        ulid.Make().String(),
		Owner:     authCtx.Owner,
		KeyHash:   generated.Hash,
		KeyPrefix: generated.Prefix,
		Scopes:    req.Scopes,
		Name:      req.Name,
		CreatedAt: h.now().UTC(),
	}

	if err := h.keys.CreateAPIKey(ctx, apiKey); err != nil {
		h.logger.Error("failed to create API key", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create API key")
		return
	}

	h.logger.Info("API key created",
		"key_id", apiKey.ID,
		"key_prefix", apiKey.KeyPrefix,
		"owner", apiKey.Owner,
	)

	// The plaintext key is returned once and never stored
	writeJSON(w, http.StatusCreated, model.APIKeyCreateResponse{
		ID:        apiKey.ID,
		Key:       generated.Plaintext,
		Name:      apiKey.Name,
		KeyPrefix: apiKey.KeyPrefix,
		Scopes:    apiKey.Scopes,
		CreatedAt: apiKey.CreatedAt,
	})
}

// ListAPIKeys handles GET /api/v1/admin/api-keys
func (h *APIKeyHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.ListAPIKeys(r.Context())
	if err != nil {
		h.logger.Error("failed to list API keys", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list API keys")
		return
	}

	responses := make([]model.APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, key.ToResponse())
	}

	writeJSON(w, http.StatusOK, dto.APIKeyListResponse{Keys: responses})
}

// RevokeAPIKey handles DELETE /api/v1/admin/api-keys/{key_id}
func (h *APIKeyHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	keyID := chi.URLParam(r, "key_id")
	if keyID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Key ID is required")
		return
	}
	if keyID == authCtx.KeyID {
		writeError(w, http.StatusConflict, "CANNOT_REVOKE_SELF", "A key cannot revoke itself")
		return
	}

	// Not found and already revoked look the same
	key, err := h.keys.GetAPIKeyByID(ctx, keyID)
	if err != nil || key.IsRevoked() {
		if err != nil && !errors.Is(err, repository.ErrAPIKeyNotFound) {
			h.logger.Error("failed to load API key", "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke API key")
			return
		}
		writeError(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found or already revoked")
		return
	}

	if err := h.keys.RevokeAPIKey(ctx, keyID); err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			writeError(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found or already revoked")
			return
		}
		h.logger.Error("failed to revoke API key", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke API key")
		return
	}

	h.invalidate(ctx, keyID)

	h.logger.Info("API key revoked",
		"key_id", keyID,
		"revoked_by", authCtx.KeyID,
	)

	w.WriteHeader(http.StatusNoContent)
}

// RotateAPIKey handles POST /api/v1/admin/api-keys/{key_id}/rotate
// The replacement keeps the old key's owner, name and scopes.
func (h *APIKeyHandler) RotateAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	keyID := chi.URLParam(r, "key_id")
	oldKey, err := h.keys.GetAPIKeyByID(ctx, keyID)
	if err != nil || oldKey.IsRevoked() {
		if err != nil && !errors.Is(err, repository.ErrAPIKeyNotFound) {
			h.logger.Error("failed to load API key", "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to rotate API key")
			return
		}
		writeError(w, http.StatusNotFound, "KEY_NOT_FOUND", "API key not found or already revoked")
		return
	}

	generated, err := auth.GenerateKey(auth.EnvLive)
	if err != nil {
		h.logger.Error("failed to generate API key", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate API key")
		return
	}

	now := h.now().UTC()
	newKey := &model.APIKey{
		ID:        ulid.Make().String(),
		Owner:     oldKey.Owner,
		KeyHash:   generated.Hash,
		KeyPrefix: generated.Prefix,
		Scopes:    oldKey.Scopes,
		Name:      oldKey.Name,
		CreatedAt: now,
	}

	// New key first, then revoke the old one
	if err := h.keys.CreateAPIKey(ctx, newKey); err != nil {
		h.logger.Error("failed to create rotated API key", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to rotate API key")
		return
	}

	if err := h.keys.RevokeAPIKey(ctx, oldKey.ID); err != nil {
		h.logger.Error("failed to revoke old API key during rotation", "error", err)
	}
	h.invalidate(ctx, oldKey.ID)

	h.logger.Info("API key rotated",
		"old_key_id", oldKey.ID,
		"new_key_id", newKey.ID,
		"rotated_by", authCtx.KeyID,
	)

	writeJSON(w, http.StatusCreated, model.APIKeyRotateResponse{
		OldKeyID:        oldKey.ID,
		OldKeyRevokedAt: now,
		NewKey: model.APIKeyCreateResponse{
			ID:        newKey.ID,
			Key:       generated.Plaintext,
			Name:      newKey.Name,
			KeyPrefix: newKey.KeyPrefix,
			Scopes:    newKey.Scopes,
			CreatedAt: newKey.CreatedAt,
		},
	})
}

func (h *APIKeyHandler) invalidate(ctx context.Context, keyID string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateKey(ctx, keyID); err != nil {
		h.logger.Warn("failed to invalidate cached API key", "key_id", keyID, "error", err)
	}
}
