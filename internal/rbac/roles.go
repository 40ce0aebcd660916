package rbac

// WorkspaceRole is a member's role inside a workspace.
type WorkspaceRole string

const (
	WorkspaceOwner   WorkspaceRole = "owner"
	WorkspaceManager WorkspaceRole = "manager"
	WorkspaceMember  WorkspaceRole = "member"
	WorkspaceGuest   WorkspaceRole = "guest"
)

// ChannelRole is a member's role inside a channel.
type ChannelRole string

const (
	ChannelManager ChannelRole = "manager"
	ChannelMember  ChannelRole = "member"
)

var (
	workspaceRoleMasks map[WorkspaceRole]Permission
	channelRoleMasks   map[ChannelRole]Permission
)

var workspaceRoleLevels = map[WorkspaceRole]int{
	WorkspaceOwner:   40,
	WorkspaceManager: 30,
	WorkspaceMember:  20,
	WorkspaceGuest:   10,
}

var channelRoleLevels = map[ChannelRole]int{
	ChannelManager: 30,
	ChannelMember:  20,
}

// buildRoleMasks runs from init after the namespace unions exist.
func buildRoleMasks() {
	workspaceRoleMasks = map[WorkspaceRole]Permission{
		WorkspaceOwner: AllWorkspace | AllChannel | AllMessage,
		WorkspaceManager: Combine(
			WorkspaceInviteMember,
			WorkspaceRemoveMember,
			WorkspaceManageMember,
			WorkspaceManageChannels,
		) | AllChannel | AllMessage,
		WorkspaceMember: (AllChannel &^ ChannelManageMessages) | AllMessage,
		WorkspaceGuest:  AllMessage,
	}
	// Channel roles currently mirror workspace member and guest.
	channelRoleMasks = map[ChannelRole]Permission{
		ChannelManager: workspaceRoleMasks[WorkspaceMember],
		ChannelMember:  workspaceRoleMasks[WorkspaceGuest],
	}
}

// WorkspaceRoles lists roles from most to least senior.
func WorkspaceRoles() []WorkspaceRole {
	return []WorkspaceRole{WorkspaceOwner, WorkspaceManager, WorkspaceMember, WorkspaceGuest}
}

// Valid reports whether r is a defined workspace role.
func (r WorkspaceRole) Valid() bool {
	_, ok := workspaceRoleMasks[r]
	return ok
}

// Mask returns the role's permission mask. Undefined roles hold nothing.
func (r WorkspaceRole) Mask() Permission {
	return workspaceRoleMasks[r]
}

// Level returns the role's seniority; undefined roles rank lowest.
func (r WorkspaceRole) Level() int {
	return workspaceRoleLevels[r]
}

// IsHigherThan reports whether r is strictly more senior than other.
func (r WorkspaceRole) IsHigherThan(other WorkspaceRole) bool {
	return r.Level() > other.Level()
}

// Valid reports whether r is a defined channel role.
func (r ChannelRole) Valid() bool {
	_, ok := channelRoleMasks[r]
	return ok
}

// Mask returns the channel role's permission mask.
func (r ChannelRole) Mask() Permission {
	return channelRoleMasks[r]
}

// Level returns the channel role's seniority.
func (r ChannelRole) Level() int {
	return channelRoleLevels[r]
}

// IsHigherThan reports whether r is strictly more senior than other.
func (r ChannelRole) IsHigherThan(other ChannelRole) bool {
	return r.Level() > other.Level()
}
