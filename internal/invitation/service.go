package invitation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/nowlisten/nowlisten/internal/rbac"
	"github.com/nowlisten/nowlisten/internal/shared"
	"github.com/nowlisten/nowlisten/internal/workspace"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Upsert(ctx context.Context, inv Invitation) (string, error)
	FindByToken(ctx context.Context, token string) (Invitation, error)
	Transition(ctx context.Context, id, token string, to Status, respondedAt *time.Time) error
	ListByInviter(ctx context.Context, memberID string) ([]Invitation, error)
}

// Authorizer is the workspace permission gate.
type Authorizer interface {
	RequirePermission(ctx context.Context, userID, workspaceID string, perms ...rbac.Permission) (workspace.Member, error)
}

// Workspaces supplies workspace lifecycle state.
type Workspaces interface {
	RequireActive(ctx context.Context, id string) (workspace.Workspace, error)
}

// Members resolves membership records.
type Members interface {
	FindByUserAndWorkspace(ctx context.Context, userID, workspaceID string) (workspace.Member, error)
	FindByID(ctx context.Context, memberID string) (workspace.Member, error)
	FindByEmail(ctx context.Context, workspaceID, email string) (workspace.Member, error)
}

// Notifier hands a notice to the outbound mail queue.
type Notifier interface {
	NotifyInvitation(ctx context.Context, notice Notice) error
}

// Throttle limits how often a membership may invite.
type Throttle interface {
	Allow(ctx context.Context, workspaceID, memberID string) error
}

// Recorder observes transition outcomes.
type Recorder interface {
	InvitationTransition(transition, outcome string)
}

// Service runs the invitation state machine.
type Service struct {
	repo       RepositoryPort
	authz      Authorizer
	workspaces Workspaces
	members    Members
	notifier   Notifier
	throttle   Throttle
	recorder   Recorder
	ttl        time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs the invitation service. ttl is how long an invitation stays answerable.
func NewService(repo RepositoryPort, authz Authorizer, workspaces Workspaces, members Members, notifier Notifier, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		repo:       repo,
		authz:      authz,
		workspaces: workspaces,
		members:    members,
		notifier:   notifier,
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
	}
}

// WithThrottle installs an invitation quota.
func (s *Service) WithThrottle(t Throttle) *Service {
	s.throttle = t
	return s
}

// WithRecorder installs a transition observer.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateOrReinvite issues an invitation for email, or resets the existing row for the
// (workspace, email) pair with a fresh token and lifetime. Notification is best effort.
func (s *Service) CreateOrReinvite(ctx context.Context, inviterUserID, inviteeEmail, workspaceID string) (err error) {
	defer s.observe(TransitionInvite, &err)

	email := shared.NormalizeEmail(inviteeEmail)
	if email == "" {
		return shared.Invalid("empty invitee email", "Invitee email is required")
	}
	inviter, err := s.authz.RequirePermission(ctx, inviterUserID, workspaceID, rbac.WorkspaceInviteMember)
	if err != nil {
		return err
	}
	ws, err := s.workspaces.RequireActive(ctx, workspaceID)
	if err != nil {
		return err
	}
	_, err = s.members.FindByEmail(ctx, workspaceID, email)
	switch {
	case err == nil:
		return shared.Conflict(fmt.Sprintf("%s already member of %s", email, workspaceID), "Already a member of this workspace")
	case !errors.Is(err, shared.ErrNotFound):
		return err
	}
	if s.throttle != nil {
		qerr := s.throttle.Allow(ctx, workspaceID, inviter.ID)
		switch {
		case errors.Is(qerr, shared.ErrRateLimited):
			return qerr
		case qerr != nil:
			// quota store outages do not block invitations
			s.logger.Warn("invitation quota unavailable",
				slog.String("workspace_id", workspaceID),
				slog.String("member_id", inviter.ID),
				slog.Any("error", qerr),
			)
		}
	}

	token, err := shared.NewToken(TokenLength)
	if err != nil {
		return err
	}
	invitedAt := s.now()
	id, err := s.repo.Upsert(ctx, Invitation{
		ID:              shared.NewID(),
		WorkspaceID:     workspaceID,
		InviterMemberID: inviter.ID,
		InviteeEmail:    email,
		Status:          StatusInvited,
		InvitedAt:       invitedAt,
		Token:           token,
		ExpiresAt:       invitedAt.Add(s.ttl),
	})
	if err != nil {
		return err
	}
	s.logger.Info("invitation issued",
		slog.String("invitation_id", id),
		slog.String("workspace_id", workspaceID),
		slog.String("inviter_member_id", inviter.ID),
	)

	notice := Notice{InviteeEmail: email, WorkspaceName: ws.Name, InviterName: inviter.Name, Token: token}
	if nerr := s.notifier.NotifyInvitation(ctx, notice); nerr != nil {
		s.logger.Warn("invitation notification failed", slog.String("invitation_id", id), slog.Any("error", nerr))
	}
	return nil
}

// GetInvitationInfo returns what the invitee needs to decide on token.
func (s *Service) GetInvitationInfo(ctx context.Context, token, userID, email string) (View, error) {
	inv, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return View{}, err
	}
	ws, inviter, err := s.validate(ctx, inv, email)
	if err != nil {
		return View{}, err
	}
	return View{
		ID:            inv.ID,
		WorkspaceID:   ws.ID,
		WorkspaceName: ws.Name,
		InviterName:   inviter.Name,
		InviteeEmail:  inv.InviteeEmail,
		Status:        inv.Status,
		InvitedAt:     inv.InvitedAt,
		ExpiresAt:     inv.ExpiresAt,
	}, nil
}

// Approve accepts the invitation and creates the member in one transaction.
func (s *Service) Approve(ctx context.Context, token, userID, email, displayName string) (err error) {
	defer s.observe(TransitionApprove, &err)

	name := strings.TrimSpace(displayName)
	if name == "" {
		return shared.Invalid("empty display name", "Display name is required")
	}
	inv, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	if _, _, err := s.validate(ctx, inv, email); err != nil {
		return err
	}
	now := s.now()
	member := workspace.Member{
		ID:           shared.NewID(),
		WorkspaceID:  inv.WorkspaceID,
		UserID:       userID,
		Name:         name,
		Role:         rbac.WorkspaceMember,
		Status:       workspace.MemberActive,
		ReceiveAlert: true,
		JoinedAt:     now,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Transition(ctx, inv.ID, inv.Token, StatusAccepted, &now); err != nil {
			return err
		}
		return tx.CreateMember(ctx, member)
	})
	if err != nil {
		return err
	}
	s.logger.Info("invitation accepted",
		slog.String("invitation_id", inv.ID),
		slog.String("workspace_id", inv.WorkspaceID),
		slog.String("member_id", member.ID),
	)
	return nil
}

// Reject declines the invitation.
func (s *Service) Reject(ctx context.Context, token, email string) (err error) {
	defer s.observe(TransitionReject, &err)

	inv, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	if _, _, err := s.validate(ctx, inv, email); err != nil {
		return err
	}
	now := s.now()
	return s.repo.Transition(ctx, inv.ID, inv.Token, StatusRejected, &now)
}

// Cancel withdraws an invitation. Only the inviting membership may cancel, and expiry
// does not prevent it.
func (s *Service) Cancel(ctx context.Context, token, userID string) (err error) {
	defer s.observe(TransitionCancel, &err)

	inv, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	if inv.Status != StatusInvited {
		return shared.Conflict(fmt.Sprintf("invitation %s is %s", inv.ID, inv.Status), "Invitation already processed")
	}
	actor, err := s.members.FindByUserAndWorkspace(ctx, userID, inv.WorkspaceID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.PermissionDenied(fmt.Sprintf("user %s has no membership in %s", userID, inv.WorkspaceID))
	}
	if err != nil {
		return err
	}
	if inv.InviterMemberID == "" || actor.ID != inv.InviterMemberID {
		return shared.PermissionDenied(fmt.Sprintf("member %s is not inviter of %s", actor.ID, inv.ID))
	}
	return s.repo.Transition(ctx, inv.ID, inv.Token, StatusCanceled, nil)
}

// ListSent returns the invitations the caller's membership has sent in a workspace.
func (s *Service) ListSent(ctx context.Context, userID, workspaceID string) ([]Sent, error) {
	member, err := s.authz.RequirePermission(ctx, userID, workspaceID, rbac.WorkspaceInviteMember)
	if err != nil {
		return nil, err
	}
	invitations, err := s.repo.ListByInviter(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]Sent, 0, len(invitations))
	for _, inv := range invitations {
		out = append(out, Sent{
			ID:           inv.ID,
			InviteeEmail: inv.InviteeEmail,
			Status:       inv.Status,
			Expired:      inv.Status == StatusInvited && inv.ExpiredAt(now),
			InvitedAt:    inv.InvitedAt,
			RespondedAt:  inv.RespondedAt,
			ExpiresAt:    inv.ExpiresAt,
		})
	}
	return out, nil
}

// validate is the shared precondition for answering an invitation. It re-checks the
// inviter's authority at answer time.
func (s *Service) validate(ctx context.Context, inv Invitation, email string) (workspace.Workspace, workspace.Member, error) {
	if inv.Status != StatusInvited || inv.ExpiredAt(s.now()) {
		return workspace.Workspace{}, workspace.Member{}, shared.Expired("invitation "+inv.ID, "Invitation has expired")
	}
	if shared.NormalizeEmail(email) != inv.InviteeEmail {
		return workspace.Workspace{}, workspace.Member{}, shared.Conflict("invitation "+inv.ID+" email mismatch", "Invitation email does not match")
	}
	ws, err := s.workspaces.RequireActive(ctx, inv.WorkspaceID)
	if err != nil {
		return workspace.Workspace{}, workspace.Member{}, err
	}
	denied := shared.PermissionDenied(fmt.Sprintf("inviter %q of invitation %s lost invite permission", inv.InviterMemberID, inv.ID))
	if inv.InviterMemberID == "" {
		return workspace.Workspace{}, workspace.Member{}, denied
	}
	inviter, err := s.members.FindByID(ctx, inv.InviterMemberID)
	if errors.Is(err, shared.ErrNotFound) {
		return workspace.Workspace{}, workspace.Member{}, denied
	}
	if err != nil {
		return workspace.Workspace{}, workspace.Member{}, err
	}
	if inviter.WorkspaceID != inv.WorkspaceID ||
		inviter.Status != workspace.MemberActive ||
		!rbac.Has(inviter.Role.Mask(), rbac.WorkspaceInviteMember) {
		return workspace.Workspace{}, workspace.Member{}, denied
	}
	return ws, inviter, nil
}

func (s *Service) observe(transition string, err *error) {
	if s.recorder == nil {
		return
	}
	s.recorder.InvitationTransition(transition, Outcome(*err))
}

// Outcome labels an operation result by error kind.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, shared.ErrExpired):
		return "expired"
	case errors.Is(err, shared.ErrConflict):
		return "conflict"
	case errors.Is(err, shared.ErrInvalid):
		return "invalid"
	case errors.Is(err, shared.ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}
