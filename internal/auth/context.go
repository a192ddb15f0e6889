package auth

import (
	"context"

	"github.com/guaupro/landing/internal/model"
)

type contextKey struct{}

// ContextWithAuth stores the caller's AuthContext in ctx.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, auth)
}

// AuthFromContext returns the AuthContext set by the auth middleware, or nil.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, _ := ctx.Value(contextKey{}).(*model.AuthContext)
	return auth
}

// OwnerFromContext returns the authenticated key owner, or "".
func OwnerFromContext(ctx context.Context) string {
	if auth := AuthFromContext(ctx); auth != nil {
		return auth.Owner
	}
	return ""
}

// KeyIDFromContext returns the authenticated key id, or "".
func KeyIDFromContext(ctx context.Context) string {
	if auth := AuthFromContext(ctx); auth != nil {
		return auth.KeyID
	}
	return ""
}
