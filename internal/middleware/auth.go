package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/guaupro/landing/internal/auth"
	"github.com/guaupro/landing/internal/model"
)

const (
	// defaultMinAuthDuration pads every auth attempt to the same duration.
	defaultMinAuthDuration = 200 * time.Millisecond
	lastUsedTimeout        = 2 * time.Second
)

// KeyStore looks up admin API keys.
type KeyStore interface {
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

// AuthCache caches verified auth contexts.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Keys   KeyStore
	// Cache is optional; nil disables auth caching.
	Cache AuthCache
	// MinDuration defaults to 200ms.
	MinDuration time.Duration
}

// Auth returns a middleware that authenticates admin requests by API key.
// The key is read from "Authorization: Bearer <key>" or "X-API-Key".
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	minDuration := cfg.MinDuration
	if minDuration == 0 {
		minDuration = defaultMinAuthDuration
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			authCtx, cacheHit, reason := authenticate(ctx, cfg, extractAPIKey(r))

			if elapsed := time.Since(start); elapsed < minDuration {
				time.Sleep(minDuration - elapsed)
			}

			if authCtx == nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(ctx)),
				)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing API key")
				return
			}

			cfg.Logger.Info("authentication successful",
				slog.String("key_id", authCtx.KeyID),
				slog.String("key_prefix", authCtx.KeyPrefix),
				slog.String("owner", authCtx.Owner),
				slog.Bool("cache_hit", cacheHit),
				slog.String("request_id", GetRequestID(ctx)),
			)

			next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(ctx, authCtx)))
		})
	}
}

// authenticate resolves key to an AuthContext. On failure it returns a
// reason suitable for logging.
func authenticate(ctx context.Context, cfg AuthConfig, key string) (*model.AuthContext, bool, string) {
	if key == "" {
		return nil, false, "missing_key"
	}

	parsed, err := auth.ParseKey(key)
	if err != nil {
		return nil, false, "invalid_format"
	}

	cacheKey := auth.CacheKey(key)
	if cfg.Cache != nil {
		if cached, _ := cfg.Cache.GetAuthContext(ctx, cacheKey); cached != nil {
			return cached, true, ""
		}
	}

	candidates, err := cfg.Keys.GetAPIKeysByPrefix(ctx, parsed.Prefix)
	if err != nil {
		cfg.Logger.Error("key lookup failed",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(ctx)),
		)
		return nil, false, "lookup_error"
	}

	// Several keys may share a prefix.
	var matched *model.APIKey
	for _, k := range candidates {
		if ok, err := auth.VerifyKey(key, k.KeyHash); err == nil && ok {
			matched = k
			break
		}
	}
	if matched == nil {
		return nil, false, "invalid_key"
	}

	authCtx := &model.AuthContext{
		KeyID:     matched.ID,
		KeyPrefix: matched.KeyPrefix,
		Owner:     matched.Owner,
		Scopes:    matched.Scopes,
	}

	if cfg.Cache != nil {
		if err := cfg.Cache.SetAuthContext(ctx, cacheKey, authCtx); err != nil {
			cfg.Logger.Warn("auth cache write failed", slog.String("error", err.Error()))
		}
	}

	go func() {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), lastUsedTimeout)
		defer cancel()
		if err := cfg.Keys.UpdateAPIKeyLastUsed(bg, matched.ID); err != nil {
			cfg.Logger.Warn("update key last_used_at failed",
				slog.String("key_id", matched.ID),
				slog.String("error", err.Error()),
			)
		}
	}()

	return authCtx, false, ""
}

// extractAPIKey reads the key from Authorization (Bearer) or X-API-Key.
func extractAPIKey(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
