package workspace

import (
	"context"

	"github.com/nowlisten/nowlisten/internal/rbac"
	"github.com/nowlisten/nowlisten/internal/shared"
)

// MemberStore persists membership records.
type MemberStore interface {
	FindMember(ctx context.Context, userID, workspaceID string) (Member, error)
	FindMemberByID(ctx context.Context, memberID string) (Member, error)
	FindMemberByEmail(ctx context.Context, workspaceID, email string) (Member, error)
	CreateMember(ctx context.Context, m Member) error
	UpdateMemberRole(ctx context.Context, memberID string, role rbac.WorkspaceRole) error
	UpdateMemberStatus(ctx context.Context, memberID string, status MemberStatus) error
	DeleteMember(ctx context.Context, memberID string) error
	ListMembers(ctx context.Context, workspaceID string, page shared.Page) ([]Member, error)
}

// Directory resolves membership records. Lookups fail with shared.ErrNotFound.
type Directory struct {
	store MemberStore
}

// NewDirectory constructs a Directory.
func NewDirectory(store MemberStore) *Directory {
	return &Directory{store: store}
}

// FindByUserAndWorkspace returns the user's membership in a workspace.
func (d *Directory) FindByUserAndWorkspace(ctx context.Context, userID, workspaceID string) (Member, error) {
	return d.store.FindMember(ctx, userID, workspaceID)
}

// FindByID returns a membership by id.
func (d *Directory) FindByID(ctx context.Context, memberID string) (Member, error) {
	return d.store.FindMemberByID(ctx, memberID)
}

// FindByEmail returns the membership held by the user with email in a workspace.
func (d *Directory) FindByEmail(ctx context.Context, workspaceID, email string) (Member, error) {
	return d.store.FindMemberByEmail(ctx, workspaceID, shared.NormalizeEmail(email))
}

// Create inserts a membership.
func (d *Directory) Create(ctx context.Context, m Member) error {
	return d.store.CreateMember(ctx, m)
}

// UpdateRole changes a member's role.
func (d *Directory) UpdateRole(ctx context.Context, memberID string, role rbac.WorkspaceRole) error {
	if !role.Valid() {
		return shared.Invalid("role "+string(role), "Unknown role")
	}
	return d.store.UpdateMemberRole(ctx, memberID, role)
}

// UpdateStatus changes a member's status.
func (d *Directory) UpdateStatus(ctx context.Context, memberID string, status MemberStatus) error {
	if !status.Valid() {
		return shared.Invalid("member status "+string(status), "Unknown member status")
	}
	return d.store.UpdateMemberStatus(ctx, memberID, status)
}

// Delete removes a membership.
func (d *Directory) Delete(ctx context.Context, memberID string) error {
	return d.store.DeleteMember(ctx, memberID)
}

// List returns one page of a workspace's members.
func (d *Directory) List(ctx context.Context, workspaceID string, page shared.Page) ([]Member, error) {
	return d.store.ListMembers(ctx, workspaceID, page)
}
