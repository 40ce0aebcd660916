// Package channel manages workspace channels and channel-level grants.
package channel

import (
	"time"

	"github.com/nowlisten/nowlisten/internal/rbac"
)

// Visibility controls who can see a channel.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Status enumerates channel states.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Channel belongs to exactly one workspace. Names are unique per workspace.
type Channel struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	Visibility  Visibility `json:"visibility"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Member grants a workspace member a role inside a channel.
type Member struct {
	ID                string           `json:"id"`
	ChannelID         string           `json:"channel_id"`
	WorkspaceMemberID string           `json:"workspace_member_id"`
	Role              rbac.ChannelRole `json:"role"`
	Active            bool             `json:"active"`
	JoinedAt          time.Time        `json:"joined_at"`
}
