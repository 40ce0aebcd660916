package workspace

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nowlisten/nowlisten/internal/platform/httpx"
	"github.com/nowlisten/nowlisten/internal/rbac"
	"github.com/nowlisten/nowlisten/internal/shared"
)

// Handler wires HTTP endpoints for workspaces and members.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      guard,
		validator: NewValidator(),
	}
}

// MountRoutes registers workspace routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/workspaces", h.handleCreate)
	r.Get("/workspaces", h.handleListMine)
	r.Route("/workspaces/{workspaceID}", func(r chi.Router) {
		r.With(h.rbac.Require()).Get("/", h.handleGet)
		r.Delete("/", h.handleDelete)
		r.Patch("/name", h.handleUpdateName)
		r.Patch("/slug", h.handleUpdateSlug)
		r.Patch("/status", h.handleUpdateStatus)
		r.Get("/members", h.handleListMembers)
		r.Patch("/members/{memberID}/role", h.handleUpdateMemberRole)
		r.Patch("/members/{memberID}/status", h.handleUpdateMemberStatus)
		r.Delete("/members/{memberID}", h.handleRemoveMember)
	})
}

type createWorkspaceRequest struct {
	Name     string `json:"name" validate:"required,max=50,notreserved"`
	Nickname string `json:"nickname" validate:"required,max=50"`
}

type updateNameRequest struct {
	Name string `json:"name" validate:"required,max=50,notreserved"`
}

type updateSlugRequest struct {
	Slug string `json:"slug" validate:"required,slug,notreserved"`
}

type updateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=active inactive"`
}

type updateRoleRequest struct {
	Role rbac.WorkspaceRole `json:"role" validate:"required,oneof=owner manager member guest"`
}

type updateMemberStatusRequest struct {
	Status MemberStatus `json:"status" validate:"required,oneof=active inactive"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req createWorkspaceRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.respondError(w, "create workspace", err)
		return
	}
	ws, err := h.service.CreateWorkspace(r.Context(), CreateWorkspaceInput{Name: req.Name, Nickname: req.Nickname, UserID: p.UserID})
	if err != nil {
		h.respondError(w, "create workspace", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ws)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListMyWorkspaces(r.Context(), p.UserID)
	if err != nil {
		h.respondError(w, "list workspaces", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ws, err := h.service.GetWorkspace(r.Context(), chi.URLParam(r, "workspaceID"))
	if err != nil {
		h.respondError(w, "get workspace", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ws)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteWorkspace(r.Context(), p.UserID, chi.URLParam(r, "workspaceID")); err != nil {
		h.respondError(w, "delete workspace", err)
		return
	}
	httpx.NoContent(w, http.StatusNoContent)
}

func (h *Handler) handleUpdateName(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req updateNameRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.respondError(w, "update workspace name", err)
		return
	}
	if err := h.service.UpdateName(r.Context(), p.UserID, chi.URLParam(r, "workspaceID"), req.Name); err != nil {
		h.respondError(w, "update workspace name", err)
		return
	}
	httpx.NoContent(w, http.StatusNoContent)
}

func (h *Handler) handleUpdateSlug(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req updateSlugRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.respondError(w, "update workspace slug", err)
		return
	}
	if err := h.service.UpdateSlug(r.Context(), p.UserID, chi.URLParam(r, "workspaceID"), req.Slug); err != nil {
		h.respondError(w, "update workspace slug", err)
		return
	}
	httpx.NoContent(w, http.StatusNoContent)
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.respondError(w, "update workspace status", err)
		return
	}
	if err := h.service.UpdateStatus(r.Context(), p.UserID, chi.URLParam(r, "workspaceID"), req.Status); err != nil {
		h.respondError(w, "update workspace status", err)
		return
	}
	httpx.NoContent(w, http.StatusNoContent)
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	page, err := h.service.ListMembers(r.Context(), p.UserID, chi.URLParam(r, "workspaceID"), limit, query.Get("last_member_id"))
	if err != nil {
		h.respondError(w, "list members", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.respondError(w, "update member role", err)
		return
	}
	err := h.service.UpdateMemberRole(r.Context(), p.UserID, chi.URLParam(r, "workspaceID"), chi.URLParam(r, "memberID"), req.Role)
	if err != nil {
		h.respondError(w, "update member role", err)
		return
	}
	httpx.NoContent(w, http.StatusNoContent)
}

func (h *Handler) handleUpdateMemberStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req updateMemberStatusRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.respondError(w, "update member status", err)
		return
	}
	err := h.service.UpdateMemberStatus(r.Context(), p.UserID, chi.URLParam(r, "workspaceID"), chi.URLParam(r, "memberID"), req.Status)
	if err != nil {
		h.respondError(w, "update member status", err)
		return
	}
	httpx.NoContent(w, http.StatusNoContent)
}

func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveMember(r.Context(), p.UserID, chi.URLParam(r, "workspaceID"), chi.URLParam(r, "memberID")); err != nil {
		h.respondError(w, "remove member", err)
		return
	}
	httpx.NoContent(w, http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var domainErr *shared.Error
	if errors.As(err, &domainErr) {
		h.logger.Debug(op, slog.Any("error", err))
	} else {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
