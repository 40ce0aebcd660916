package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nowlisten/nowlisten/internal/platform/httpx"
	"github.com/nowlisten/nowlisten/internal/shared"
)

// Guard decides whether a user may act inside a workspace.
type Guard interface {
	Allow(ctx context.Context, userID, workspaceID string, perms ...Permission) error
}

// Middleware wires workspace authorization into chi routes.
type Middleware struct {
	Guard  Guard
	Logger *slog.Logger
	// Param names the URL parameter holding the workspace id. Defaults to "workspaceID".
	Param string
}

// Require lets the request through only if the principal holds every perm in the
// workspace named by the URL parameter.
func (m Middleware) Require(perms ...Permission) func(http.Handler) http.Handler {
	param := m.Param
	if param == "" {
		param = "workspaceID"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			workspaceID := chi.URLParam(r, param)
			if workspaceID == "" {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "Permission Denied")
				return
			}
			if err := m.Guard.Allow(r.Context(), principal.UserID, workspaceID, perms...); err != nil {
				if m.Logger != nil {
					m.Logger.Debug("rbac require", slog.String("workspace_id", workspaceID), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
