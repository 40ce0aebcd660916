package channel

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nowlisten/nowlisten/internal/platform/httpx"
	"github.com/nowlisten/nowlisten/internal/shared"
)

// Handler wires HTTP endpoints for channels.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers channel routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/workspaces/{workspaceID}/channels", h.handleCreate)
	r.Get("/workspaces/{workspaceID}/channels", h.handleList)
	r.Post("/channels/{channelID}/members", h.handleAddMember)
}

type createChannelRequest struct {
	Name       string     `json:"name" validate:"required,max=50"`
	Visibility Visibility `json:"visibility" validate:"omitempty,oneof=public private"`
}

type addMemberRequest struct {
	MemberID string `json:"member_id" validate:"required"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req createChannelRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.respondError(w, "create channel", err)
		return
	}
	ch, err := h.service.CreateChannel(r.Context(), p.UserID, chi.URLParam(r, "workspaceID"), req.Name, req.Visibility)
	if err != nil {
		h.respondError(w, "create channel", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ch)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	channels, err := h.service.ListChannels(r.Context(), p.UserID, chi.URLParam(r, "workspaceID"))
	if err != nil {
		h.respondError(w, "list channels", err)
		return
	}
	httpx.JSON(w, http.StatusOK, channels)
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.Principal(w, r)
	if !ok {
		return
	}
	var req addMemberRequest
	if err := httpx.Bind(r, h.validator, &req); err != nil {
		h.respondError(w, "add channel member", err)
		return
	}
	grant, err := h.service.AddMember(r.Context(), p.UserID, chi.URLParam(r, "channelID"), req.MemberID)
	if err != nil {
		h.respondError(w, "add channel member", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grant)
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
