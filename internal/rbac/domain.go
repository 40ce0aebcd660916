// Package rbac defines the permission bit flags, the static role masks and the
// primitives used to compose and check them.
package rbac

import "strings"

// Permission is a single capability bit, or a union of bits when used as a mask.
type Permission uint64

// Workspace administration.
const (
	WorkspaceInviteMember Permission = 1 << iota
	WorkspaceRemoveMember
	WorkspaceManageMember
	WorkspaceManageSettings
	WorkspaceManageBilling
	WorkspaceManageApps
	WorkspaceManageChannels

	// Channel administration.
	ChannelCreate
	ChannelDelete
	ChannelEdit
	ChannelInviteMember
	ChannelRemoveMember
	ChannelManageMessages

	// Messages and content.
	MessagePin
	MessageCreate
	MessageDelete
	MessageEdit
	MessageUploadFile

	// Paid tier content.
	PlusMessageViewHistory
)

// Namespace groups flags for bulk composition.
type Namespace string

const (
	NamespaceWorkspace Namespace = "workspace"
	NamespaceChannel   Namespace = "channel"
	NamespaceMessage   Namespace = "message"
	NamespacePlus      Namespace = "plus"
)

// namespaceFlags is the authoritative flag list per namespace.
var namespaceFlags = map[Namespace][]Permission{
	NamespaceWorkspace: {
		WorkspaceInviteMember,
		WorkspaceRemoveMember,
		WorkspaceManageMember,
		WorkspaceManageSettings,
		WorkspaceManageBilling,
		WorkspaceManageApps,
		WorkspaceManageChannels,
	},
	NamespaceChannel: {
		ChannelCreate,
		ChannelDelete,
		ChannelEdit,
		ChannelInviteMember,
		ChannelRemoveMember,
		ChannelManageMessages,
	},
	NamespaceMessage: {
		MessagePin,
		MessageCreate,
		MessageDelete,
		MessageEdit,
		MessageUploadFile,
	},
	NamespacePlus: {
		PlusMessageViewHistory,
	},
}

var permissionNames = map[Permission]string{
	WorkspaceInviteMember:   "workspace.invite_member",
	WorkspaceRemoveMember:   "workspace.remove_member",
	WorkspaceManageMember:   "workspace.manage_member",
	WorkspaceManageSettings: "workspace.manage_settings",
	WorkspaceManageBilling:  "workspace.manage_billing",
	WorkspaceManageApps:     "workspace.manage_apps",
	WorkspaceManageChannels: "workspace.manage_channels",
	ChannelCreate:           "channel.create",
	ChannelDelete:           "channel.delete",
	ChannelEdit:             "channel.edit",
	ChannelInviteMember:     "channel.invite_member",
	ChannelRemoveMember:     "channel.remove_member",
	ChannelManageMessages:   "channel.manage_messages",
	MessagePin:              "message.pin",
	MessageCreate:           "message.create",
	MessageDelete:           "message.delete",
	MessageEdit:             "message.edit",
	MessageUploadFile:       "message.upload_file",
	PlusMessageViewHistory:  "plus.message_view_history",
}

// Union masks, filled once in init and never written again.
var (
	AllWorkspace Permission
	AllChannel   Permission
	AllMessage   Permission
	AllPlus      Permission

	namespaceMasks = make(map[Namespace]Permission, len(namespaceFlags))
)

func init() {
	for ns, flags := range namespaceFlags {
		namespaceMasks[ns] = Combine(flags...)
	}
	AllWorkspace = namespaceMasks[NamespaceWorkspace]
	AllChannel = namespaceMasks[NamespaceChannel]
	AllMessage = namespaceMasks[NamespaceMessage]
	AllPlus = namespaceMasks[NamespacePlus]
	buildRoleMasks()
}

// Combine ORs all flags together. No flags yields the zero mask.
func Combine(perms ...Permission) Permission {
	var mask Permission
	for _, p := range perms {
		mask |= p
	}
	return mask
}

// Has reports whether every bit of required is present in mask.
func Has(mask, required Permission) bool {
	return mask&required == required
}

// AllInNamespace returns the union of every flag in ns.
func AllInNamespace(ns Namespace) Permission {
	return namespaceMasks[ns]
}

// Flags returns the flags declared in ns.
func Flags(ns Namespace) []Permission {
	return append([]Permission(nil), namespaceFlags[ns]...)
}

// String renders single flags by name and unions as a "|" joined list.
func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	if p == 0 {
		return "none"
	}
	var parts []string
	for bit := Permission(1); bit != 0 && bit <= p; bit <<= 1 {
		if p&bit == 0 {
			continue
		}
		if name, ok := permissionNames[bit]; ok {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}
