package workspace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nowlisten/nowlisten/internal/rbac"
	"github.com/nowlisten/nowlisten/internal/shared"
	_ "github.com/nowlisten/nowlisten/testing"
)

func newAuthorizer(repo *memoryRepo) *Authorizer {
	return NewAuthorizer(NewDirectory(repo))
}

func TestRequirePermissionReturnsMember(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedMember("m1", "w1", "u1", "u1@x.com", rbac.WorkspaceManager, MemberActive)
	authz := newAuthorizer(repo)

	member, err := authz.RequirePermission(context.Background(), "u1", "w1", rbac.WorkspaceInviteMember, rbac.ChannelCreate)
	require.NoError(t, err)
	require.Equal(t, "m1", member.ID)
	require.Equal(t, rbac.WorkspaceManager, member.Role)
}

func TestRequirePermissionDeniesUniformly(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedMember("m1", "w1", "guest", "g@x.com", rbac.WorkspaceGuest, MemberActive)
	repo.seedMember("m2", "w1", "sleeper", "s@x.com", rbac.WorkspaceOwner, MemberInactive)
	authz := newAuthorizer(repo)
	ctx := context.Background()

	cases := map[string]string{
		"missing bits":  "guest",
		"inactive":      "sleeper",
		"no membership": "stranger",
	}
	for name, userID := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := authz.RequirePermission(ctx, userID, "w1", rbac.WorkspaceInviteMember)
			require.ErrorIs(t, err, shared.ErrPermissionDenied)
			require.NotErrorIs(t, err, shared.ErrNotFound)
			require.Equal(t, "Permission Denied", shared.UserSafeMessage(err))
		})
	}
}

func TestRequirePermissionEmptyRequirement(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedMember("m1", "w1", "guest", "g@x.com", rbac.WorkspaceGuest, MemberActive)
	repo.seedMember("m2", "w1", "sleeper", "s@x.com", rbac.WorkspaceGuest, MemberInactive)
	authz := newAuthorizer(repo)

	require.NoError(t, authz.Allow(context.Background(), "guest", "w1"))
	require.ErrorIs(t, authz.Allow(context.Background(), "sleeper", "w1"), shared.ErrPermissionDenied)
}

func TestRequirePermissionUndefinedRole(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedMember("m1", "w1", "u1", "u1@x.com", rbac.WorkspaceRole("superuser"), MemberActive)

	_, err := newAuthorizer(repo).RequirePermission(context.Background(), "u1", "w1")
	require.Error(t, err)
	var domainErr *shared.Error
	require.False(t, errors.As(err, &domainErr))
}
