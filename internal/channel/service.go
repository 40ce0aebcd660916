package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/nowlisten/nowlisten/internal/rbac"
	"github.com/nowlisten/nowlisten/internal/shared"
	"github.com/nowlisten/nowlisten/internal/workspace"
)

const maxNameLength = 50

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreateMember(ctx context.Context, m Member) error
	GetChannel(ctx context.Context, id string) (Channel, error)
	ListVisible(ctx context.Context, workspaceID, workspaceMemberID string) ([]Channel, error)
	FindMember(ctx context.Context, channelID, workspaceMemberID string) (Member, error)
	DeleteMembersOf(ctx context.Context, workspaceMemberID string) (int64, error)
}

// Authorizer is the workspace permission gate.
type Authorizer interface {
	RequirePermission(ctx context.Context, userID, workspaceID string, perms ...rbac.Permission) (workspace.Member, error)
}

// Workspaces supplies workspace lifecycle state.
type Workspaces interface {
	RequireActive(ctx context.Context, id string) (workspace.Workspace, error)
}

// Members resolves workspace memberships by id.
type Members interface {
	FindByID(ctx context.Context, memberID string) (workspace.Member, error)
}

// Service orchestrates channel flows.
type Service struct {
	repo       RepositoryPort
	authz      Authorizer
	workspaces Workspaces
	members    Members
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs the channel service.
func NewService(repo RepositoryPort, authz Authorizer, workspaces Workspaces, members Members, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, authz: authz, workspaces: workspaces, members: members, logger: logger, now: time.Now}
}

// NormalizeName trims the name, turns spaces into underscores and composes it to NFC.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

// CreateChannel creates a channel and makes the creator its manager in one transaction.
func (s *Service) CreateChannel(ctx context.Context, userID, workspaceID, name string, visibility Visibility) (Channel, error) {
	if visibility == "" {
		visibility = VisibilityPublic
	}
	if !visibility.Valid() {
		return Channel{}, shared.Invalid("visibility "+string(visibility), "Unknown channel visibility")
	}
	normalized := NormalizeName(name)
	if normalized == "" || len([]rune(normalized)) > maxNameLength {
		return Channel{}, shared.Invalid("channel name "+name, "Invalid channel name")
	}
	ws, err := s.workspaces.RequireActive(ctx, workspaceID)
	if err != nil {
		return Channel{}, err
	}
	creator, err := s.authz.RequirePermission(ctx, userID, ws.ID, rbac.ChannelCreate)
	if err != nil {
		return Channel{}, err
	}

	now := s.now()
	ch := Channel{
		ID:          shared.NewID(),
		WorkspaceID: ws.ID,
		Name:        normalized,
		Status:      StatusActive,
		Visibility:  visibility,
		CreatedAt:   now,
	}
	manager := Member{
		ID:                shared.NewID(),
		ChannelID:         ch.ID,
		WorkspaceMemberID: creator.ID,
		Role:              rbac.ChannelManager,
		Active:            true,
		JoinedAt:          now,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.CreateChannel(ctx, ch); err != nil {
			return err
		}
		return tx.CreateMember(ctx, manager)
	})
	if err != nil {
		return Channel{}, err
	}
	s.logger.Info("channel created", slog.String("channel_id", ch.ID), slog.String("workspace_id", ws.ID))
	return ch, nil
}

// ListChannels returns the channels an active member can see.
func (s *Service) ListChannels(ctx context.Context, userID, workspaceID string) ([]Channel, error) {
	member, err := s.authz.RequirePermission(ctx, userID, workspaceID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListVisible(ctx, workspaceID, member.ID)
}

// RequireChannelPermission checks a workspace member's grant in a channel against perms.
func (s *Service) RequireChannelPermission(ctx context.Context, workspaceMemberID, channelID string, perms ...rbac.Permission) (Member, error) {
	grant, err := s.repo.FindMember(ctx, channelID, workspaceMemberID)
	if errors.Is(err, shared.ErrNotFound) {
		return Member{}, shared.PermissionDenied(fmt.Sprintf("member %s has no grant in channel %s", workspaceMemberID, channelID))
	}
	if err != nil {
		return Member{}, err
	}
	required := rbac.Combine(perms...)
	if !grant.Active || !rbac.Has(grant.Role.Mask(), required) {
		return Member{}, shared.PermissionDenied(fmt.Sprintf("channel member %s lacks %s", grant.ID, required))
	}
	return grant, nil
}

// AddMember grants another workspace member access to a channel. The caller must hold
// ChannelInviteMember through their own channel grant.
func (s *Service) AddMember(ctx context.Context, userID, channelID, workspaceMemberID string) (Member, error) {
	ch, err := s.repo.GetChannel(ctx, channelID)
	if err != nil {
		return Member{}, err
	}
	actor, err := s.authz.RequirePermission(ctx, userID, ch.WorkspaceID)
	if err != nil {
		return Member{}, err
	}
	if _, err := s.RequireChannelPermission(ctx, actor.ID, ch.ID, rbac.ChannelInviteMember); err != nil {
		return Member{}, err
	}
	target, err := s.members.FindByID(ctx, workspaceMemberID)
	if err != nil {
		return Member{}, err
	}
	if target.WorkspaceID != ch.WorkspaceID || target.Status != workspace.MemberActive {
		return Member{}, shared.NotFound(fmt.Sprintf("member %s not active in %s", target.ID, ch.WorkspaceID), "Member not found")
	}
	grant := Member{
		ID:                shared.NewID(),
		ChannelID:         ch.ID,
		WorkspaceMemberID: target.ID,
		Role:              rbac.ChannelMember,
		Active:            true,
		JoinedAt:          s.now(),
	}
	if err := s.repo.CreateMember(ctx, grant); err != nil {
		return Member{}, err
	}
	return grant, nil
}

// RevokeMemberGrants removes every channel grant of a removed workspace member.
// It has the workspace.RevocationHook signature.
func (s *Service) RevokeMemberGrants(ctx context.Context, workspaceMemberID string) error {
	n, err := s.repo.DeleteMembersOf(ctx, workspaceMemberID)
	if err != nil {
		return err
	}
	s.logger.Info("channel grants revoked", slog.String("member_id", workspaceMemberID), slog.Int64("count", n))
	return nil
}
