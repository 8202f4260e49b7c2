package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/herasat/internal"
)

// RequireRole lets the request through when the authenticated principal
// holds any of roles. It must run after the auth middleware.
func RequireRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := internal.PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, internal.ErrInvalidToken)
				return
			}

			for _, role := range roles {
				if p.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("access denied: missing role",
				"user_id", p.UserID,
				"required_roles", roles,
				"user_roles", p.Roles)
			writeError(w, internal.ErrAdminRequired)
		})
	}
}

func writeError(w http.ResponseWriter, appErr *internal.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(internal.Response{Error: appErr})
}
