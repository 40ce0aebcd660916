package workspace

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/nowlisten/nowlisten/internal/rbac"
	"github.com/nowlisten/nowlisten/internal/shared"
)

func newTestRouter(t *testing.T, repo *memoryRepo) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, logger, 20)
	h := NewHandler(logger, svc, rbac.Middleware{Guard: svc.Authorizer(), Logger: logger})
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func doAs(handler http.Handler, userID, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userID != "" {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: userID, Email: userID + "@x.com"}))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateWorkspace(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(t, repo)

	rec := doAs(router, "u1", http.MethodPost, "/workspaces", `{"name":"Team One","nickname":"Bob"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var ws Workspace
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ws))
	require.Equal(t, "TeamOne", ws.Name)

	rec = doAs(router, "u1", http.MethodPost, "/workspaces", `{"name":"login","nickname":"Bob"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doAs(router, "", http.MethodPost, "/workspaces", `{"name":"Team","nickname":"Bob"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerGetWorkspaceRequiresMembership(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedWorkspace("w1", StatusActive)
	repo.seedMember("m1", "w1", "u1", "u1@x.com", rbac.WorkspaceGuest, MemberActive)
	router := newTestRouter(t, repo)

	require.Equal(t, http.StatusOK, doAs(router, "u1", http.MethodGet, "/workspaces/w1/", "").Code)

	rec := doAs(router, "u2", http.MethodGet, "/workspaces/w1/", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "Permission Denied")
}

func TestHandlerUpdateMemberRole(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedWorkspace("w1", StatusActive)
	repo.seedMember("m1", "w1", "owner", "o@x.com", rbac.WorkspaceOwner, MemberActive)
	repo.seedMember("m2", "w1", "member", "m@x.com", rbac.WorkspaceMember, MemberActive)
	router := newTestRouter(t, repo)

	rec := doAs(router, "owner", http.MethodPatch, "/workspaces/w1/members/m2/role", `{"role":"admin"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doAs(router, "member", http.MethodPatch, "/workspaces/w1/members/m1/role", `{"role":"guest"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doAs(router, "owner", http.MethodPatch, "/workspaces/w1/members/m2/role", `{"role":"manager"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, rbac.WorkspaceManager, repo.members["m2"].Role)
}
