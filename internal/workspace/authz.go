package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/nowlisten/nowlisten/internal/rbac"
	"github.com/nowlisten/nowlisten/internal/shared"
)

// Authorizer is the permission gate for workspace-scoped actions.
type Authorizer struct {
	members *Directory
}

// NewAuthorizer constructs an Authorizer over a Directory.
func NewAuthorizer(members *Directory) *Authorizer {
	return &Authorizer{members: members}
}

// RequirePermission returns the user's membership if it is active and its role holds
// every perm. An absent membership, missing bits and an inactive member all yield the
// same PermissionDenied. No perms means any active member passes.
func (a *Authorizer) RequirePermission(ctx context.Context, userID, workspaceID string, perms ...rbac.Permission) (Member, error) {
	member, err := a.members.FindByUserAndWorkspace(ctx, userID, workspaceID)
	if errors.Is(err, shared.ErrNotFound) {
		return Member{}, shared.PermissionDenied(fmt.Sprintf("user %s has no membership in %s", userID, workspaceID))
	}
	if err != nil {
		return Member{}, err
	}
	if !member.Role.Valid() {
		return Member{}, fmt.Errorf("workspace: member %s has undefined role %q", member.ID, member.Role)
	}

	required := rbac.Combine(perms...)
	allowed := rbac.Has(member.Role.Mask(), required)
	active := member.Status == MemberActive
	if !allowed || !active {
		return Member{}, shared.PermissionDenied(fmt.Sprintf("member %s lacks %s (active=%t)", member.ID, required, active))
	}
	return member, nil
}

// Allow implements rbac.Guard.
func (a *Authorizer) Allow(ctx context.Context, userID, workspaceID string, perms ...rbac.Permission) error {
	_, err := a.RequirePermission(ctx, userID, workspaceID, perms...)
	return err
}
