package middleware

import (
	"net/http"

	"github.com/guaupro/landing/internal/auth"
	"github.com/guaupro/landing/internal/model"
)

// RequireScope returns middleware that enforces scope requirements.
// Must be applied after Auth. Any one of required is sufficient and
// the admin scope satisfies all.
func RequireScope(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			if authCtx == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			for _, scope := range required {
				if authCtx.HasScope(scope) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions. Required scope: "+required[0])
		})
	}
}

// RequireRead allows read and admin keys.
func RequireRead() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeRead)
}

// RequireAdmin allows admin keys only.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeAdmin)
}
