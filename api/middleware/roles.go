package middleware

import (
	"net/http"
	"slices"

	"github.com/angelmondragon/boxoffice-backend/api/responses"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

// RequireRole admits operators whose token role is one of roles. It must run
// after Auth.
func RequireRole(role string, logg *logger.Logger, more ...string) func(http.Handler) http.Handler {
	allowed := append([]string{role}, more...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if got := RoleFromContext(ctx); !slices.Contains(allowed, got) {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"actor_role":    got,
						"required_role": allowed,
					}), "admin.role_denied")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "operator role not permitted"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
