package invitation

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nowlisten/nowlisten/internal/platform/httpx"
	"github.com/nowlisten/nowlisten/internal/shared"
)

// Handler wires HTTP endpoints for invitations.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers invitation routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/workspaces/{workspaceID}/invitations", h.handleInvite)
	r.Get("/workspaces/{workspaceID}/invitations", h.handleListSent)
	r.Get("/invitations/{token}", h.handleInfo)
	r.Post("/invitations/{token}/approve", h.handleApprove)
	r.Post("/invitations/{token}/reject", h.handleReject)
	r.Delete("/invitations/{token}", h.handleCancel)
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type approveRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req inviteRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.respondError(w, "invite", err)
		return
	}
	if err := h.service.CreateOrReinvite(r.Context(), p.UserID, req.Email, chi.URLParam(r, "workspaceID")); err != nil {
		h.respondError(w, "invite", err)
		return
	}
	httpx.NoContent(w, http.StatusAccepted)
}

func (h *Handler) handleListSent(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListSent(r.Context(), p.UserID, chi.URLParam(r, "workspaceID"))
	if err != nil {
		h.respondError(w, "list invitations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetInvitationInfo(r.Context(), chi.URLParam(r, "token"), p.UserID, p.Email)
	if err != nil {
		h.respondError(w, "invitation info", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req approveRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.respondError(w, "approve invitation", err)
		return
	}
	if err := h.service.Approve(r.Context(), chi.URLParam(r, "token"), p.UserID, p.Email, req.Name); err != nil {
		h.respondError(w, "approve invitation", err)
		return
	}
	httpx.NoContent(w, http.StatusNoContent)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	if err := h.service.Reject(r.Context(), chi.URLParam(r, "token"), p.Email); err != nil {
		h.respondError(w, "reject invitation", err)
		return
	}
	httpx.NoContent(w, http.StatusNoContent)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "token"), p.UserID); err != nil {
		h.respondError(w, "cancel invitation", err)
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
