package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nowlisten/nowlisten/internal/rbac"
	"github.com/nowlisten/nowlisten/internal/shared"
)

const slugSuffixLength = 12

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	MemberStore
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetWorkspace(ctx context.Context, id string) (Workspace, error)
	ListMemberships(ctx context.Context, userID string) ([]Membership, error)
	UpdateWorkspace(ctx context.Context, id string, patch WorkspacePatch) error
	DeleteWorkspace(ctx context.Context, id string) error
}

// Service orchestrates workspace and member management.
type Service struct {
	repo        RepositoryPort
	members     *Directory
	authz       *Authorizer
	logger      *slog.Logger
	memberLimit int
	hooks       []RevocationHook
	now         func() time.Time
}

// NewService constructs the workspace service. memberLimit caps ListMembers pages.
func NewService(repo RepositoryPort, logger *slog.Logger, memberLimit int) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	members := NewDirectory(repo)
	return &Service{
		repo:        repo,
		members:     members,
		authz:       NewAuthorizer(members),
		logger:      logger,
		memberLimit: memberLimit,
		now:         time.Now,
	}
}

// Directory exposes the membership directory shared with other domains.
func (s *Service) Directory() *Directory { return s.members }

// Authorizer exposes the permission gate shared with other domains.
func (s *Service) Authorizer() *Authorizer { return s.authz }

// OnMemberRemoved registers a hook run after a membership is deleted.
func (s *Service) OnMemberRemoved(hook RevocationHook) {
	s.hooks = append(s.hooks, hook)
}

// CreateWorkspaceInput describes creation payload.
type CreateWorkspaceInput struct {
	Name     string
	Nickname string
	UserID   string
}

// CreateWorkspace creates a workspace and makes the caller its active owner in one transaction.
func (s *Service) CreateWorkspace(ctx context.Context, input CreateWorkspaceInput) (Workspace, error) {
	name := NormalizeName(input.Name)
	if name == "" || IsReserved(name) {
		return Workspace{}, shared.Invalid("workspace name "+input.Name, fmt.Sprintf("%q can't be used as a workspace name", input.Name))
	}
	if input.Nickname == "" {
		return Workspace{}, shared.Invalid("empty nickname", "Nickname is required")
	}
	suffix, err := shared.NewSuffix(slugSuffixLength)
	if err != nil {
		return Workspace{}, err
	}
	now := s.now()
	ws := Workspace{
		ID:        shared.NewID(),
		Name:      name,
		Slug:      name + "-" + suffix,
		Status:    StatusActive,
		CreatedAt: now,
	}
	owner := Member{
		ID:           shared.NewID(),
		WorkspaceID:  ws.ID,
		UserID:       input.UserID,
		Name:         input.Nickname,
		Role:         rbac.WorkspaceOwner,
		Status:       MemberActive,
		ReceiveAlert: true,
		JoinedAt:     now,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.CreateWorkspace(ctx, ws); err != nil {
			return err
		}
		return tx.CreateMember(ctx, owner)
	})
	if err != nil {
		return Workspace{}, err
	}
	s.logger.Info("workspace created", slog.String("workspace_id", ws.ID), slog.String("user_id", input.UserID))
	return ws, nil
}

// ListMyWorkspaces returns the user's workspaces. Inactive ones are listed only when the
// user's role can manage settings.
func (s *Service) ListMyWorkspaces(ctx context.Context, userID string) ([]Membership, error) {
	all, err := s.repo.ListMemberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	visible := make([]Membership, 0, len(all))
	for _, ms := range all {
		if ms.Active() || rbac.Has(ms.MemberRole.Mask(), rbac.WorkspaceManageSettings) {
			visible = append(visible, ms)
		}
	}
	return visible, nil
}

// GetWorkspace loads a workspace by id.
func (s *Service) GetWorkspace(ctx context.Context, id string) (Workspace, error) {
	return s.repo.GetWorkspace(ctx, id)
}

// RequireActive returns the workspace if it is active; an inactive workspace is PermissionDenied.
func (s *Service) RequireActive(ctx context.Context, id string) (Workspace, error) {
	ws, err := s.repo.GetWorkspace(ctx, id)
	if err != nil {
		return Workspace{}, err
	}
	if !ws.Active() {
		return Workspace{}, shared.PermissionDenied("workspace is deactivated: " + id)
	}
	return ws, nil
}

// UpdateName renames a workspace.
func (s *Service) UpdateName(ctx context.Context, userID, workspaceID, name string) error {
	if _, err := s.authz.RequirePermission(ctx, userID, workspaceID, rbac.WorkspaceManageSettings); err != nil {
		return err
	}
	normalized := NormalizeName(name)
	if normalized == "" || IsReserved(normalized) {
		return shared.Invalid("workspace name "+name, fmt.Sprintf("%q can't be used as a workspace name", name))
	}
	return s.repo.UpdateWorkspace(ctx, workspaceID, WorkspacePatch{Name: normalized})
}

// UpdateSlug changes a workspace slug. Taken slugs are a Conflict.
func (s *Service) UpdateSlug(ctx context.Context, userID, workspaceID, slug string) error {
	if _, err := s.authz.RequirePermission(ctx, userID, workspaceID, rbac.WorkspaceManageSettings); err != nil {
		return err
	}
	if !slugPattern.MatchString(slug) || IsReserved(slug) {
		return shared.Invalid("slug "+slug, fmt.Sprintf("%q can't be used as a slug", slug))
	}
	return s.repo.UpdateWorkspace(ctx, workspaceID, WorkspacePatch{Slug: slug})
}

// UpdateStatus activates or deactivates a workspace.
func (s *Service) UpdateStatus(ctx context.Context, userID, workspaceID string, status Status) error {
	if _, err := s.authz.RequirePermission(ctx, userID, workspaceID, rbac.WorkspaceManageSettings); err != nil {
		return err
	}
	if !status.Valid() {
		return shared.Invalid("workspace status "+string(status), "Unknown workspace status")
	}
	return s.repo.UpdateWorkspace(ctx, workspaceID, WorkspacePatch{Status: status})
}

// DeleteWorkspace removes a workspace. Only an active owner may do so.
func (s *Service) DeleteWorkspace(ctx context.Context, userID, workspaceID string) error {
	actor, err := s.authz.RequirePermission(ctx, userID, workspaceID)
	if err != nil {
		return err
	}
	if actor.Role != rbac.WorkspaceOwner {
		return shared.PermissionDenied(fmt.Sprintf("member %s is %s, not owner", actor.ID, actor.Role))
	}
	if err := s.repo.DeleteWorkspace(ctx, workspaceID); err != nil {
		return err
	}
	s.logger.Info("workspace deleted", slog.String("workspace_id", workspaceID), slog.String("user_id", userID))
	return nil
}

// ListMembers returns a keyset page of members to any active member.
func (s *Service) ListMembers(ctx context.Context, userID, workspaceID string, limit int, after string) (MemberPage, error) {
	if _, err := s.authz.RequirePermission(ctx, userID, workspaceID); err != nil {
		return MemberPage{}, err
	}
	page := shared.NewPage(limit, s.memberLimit, after)
	members, err := s.members.List(ctx, workspaceID, shared.Page{Limit: page.Limit + 1, After: page.After})
	if err != nil {
		return MemberPage{}, err
	}
	result := MemberPage{Members: members}
	if len(members) > page.Limit {
		result.Members = members[:page.Limit]
		result.HasNext = true
	}
	if n := len(result.Members); n > 0 {
		result.LastMemberID = result.Members[n-1].ID
	}
	return result, nil
}

// manageTarget authorizes actor over the member identified by memberID.
// The actor must hold perm and rank strictly above the target.
func (s *Service) manageTarget(ctx context.Context, userID, workspaceID, memberID string, perm rbac.Permission) (Member, Member, error) {
	actor, err := s.authz.RequirePermission(ctx, userID, workspaceID, perm)
	if err != nil {
		return Member{}, Member{}, err
	}
	target, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return Member{}, Member{}, err
	}
	if target.WorkspaceID != workspaceID {
		return Member{}, Member{}, shared.NotFound(fmt.Sprintf("member %s not in workspace %s", memberID, workspaceID), "Member not found")
	}
	if !actor.Role.IsHigherThan(target.Role) {
		return Member{}, Member{}, shared.PermissionDenied(fmt.Sprintf("member %s (%s) cannot manage %s (%s)", actor.ID, actor.Role, target.ID, target.Role))
	}
	return actor, target, nil
}

// UpdateMemberRole changes another member's role. Nobody can grant a role above their own,
// and only owners can grant ownership.
func (s *Service) UpdateMemberRole(ctx context.Context, userID, workspaceID, memberID string, role rbac.WorkspaceRole) error {
	if !role.Valid() {
		return shared.Invalid("role "+string(role), "Unknown role")
	}
	actor, target, err := s.manageTarget(ctx, userID, workspaceID, memberID, rbac.WorkspaceManageMember)
	if err != nil {
		return err
	}
	if role.IsHigherThan(actor.Role) || (role == rbac.WorkspaceOwner && actor.Role != rbac.WorkspaceOwner) {
		return shared.PermissionDenied(fmt.Sprintf("member %s (%s) cannot grant %s", actor.ID, actor.Role, role))
	}
	if err := s.members.UpdateRole(ctx, target.ID, role); err != nil {
		return err
	}
	s.logger.Info("member role changed",
		slog.String("workspace_id", workspaceID),
		slog.String("member_id", target.ID),
		slog.String("from", string(target.Role)),
		slog.String("to", string(role)),
	)
	return nil
}

// UpdateMemberStatus activates or deactivates another member.
func (s *Service) UpdateMemberStatus(ctx context.Context, userID, workspaceID, memberID string, status MemberStatus) error {
	if !status.Valid() {
		return shared.Invalid("member status "+string(status), "Unknown member status")
	}
	_, target, err := s.manageTarget(ctx, userID, workspaceID, memberID, rbac.WorkspaceManageMember)
	if err != nil {
		return err
	}
	return s.members.UpdateStatus(ctx, target.ID, status)
}

// RemoveMember deletes another member and then runs the registered revocation hooks.
// Hook failures are logged; the membership is already gone.
func (s *Service) RemoveMember(ctx context.Context, userID, workspaceID, memberID string) error {
	_, target, err := s.manageTarget(ctx, userID, workspaceID, memberID, rbac.WorkspaceRemoveMember)
	if err != nil {
		return err
	}
	if err := s.members.Delete(ctx, target.ID); err != nil {
		return err
	}
	var hookErr error
	for _, hook := range s.hooks {
		hookErr = errors.Join(hookErr, hook(ctx, target.ID))
	}
	if hookErr != nil {
		s.logger.Error("revoke member grants", slog.String("member_id", target.ID), slog.Any("error", hookErr))
	}
	s.logger.Info("member removed", slog.String("workspace_id", workspaceID), slog.String("member_id", target.ID))
	return nil
}
