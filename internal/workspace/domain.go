// Package workspace owns workspaces, their memberships and the permission gate
// every workspace-scoped action passes through.
package workspace

import (
	"context"
	"time"

	"github.com/nowlisten/nowlisten/internal/rbac"
)

// Status enumerates workspace lifecycle states.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known workspace status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// MemberStatus enumerates membership states.
type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
)

// Valid reports whether s is a known member status.
func (s MemberStatus) Valid() bool {
	return s == MemberActive || s == MemberInactive
}

// Workspace is a tenant.
type Workspace struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Status          Status    `json:"status"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Active reports whether the workspace accepts new activity.
func (w Workspace) Active() bool {
	return w.Status == StatusActive
}

// Member binds a user to a workspace. Unique per (WorkspaceID, UserID).
type Member struct {
	ID           string             `json:"id"`
	WorkspaceID  string             `json:"workspace_id"`
	UserID       string             `json:"user_id"`
	Name         string             `json:"name"`
	Role         rbac.WorkspaceRole `json:"role"`
	Status       MemberStatus       `json:"status"`
	ReceiveAlert bool               `json:"receive_alert"`
	JoinedAt     time.Time          `json:"joined_at"`
}

// Membership is a workspace seen through the caller's membership.
type Membership struct {
	Workspace
	MemberID   string             `json:"member_id"`
	MemberName string             `json:"member_name"`
	MemberRole rbac.WorkspaceRole `json:"member_role"`
}

// MemberPage is one keyset page of members.
type MemberPage struct {
	Members []Member `json:"members"`
	HasNext bool     `json:"has_next"`
	// LastMemberID feeds the next request's cursor.
	LastMemberID string `json:"last_member_id,omitempty"`
}

// RevocationHook revokes grants derived from a membership after it is removed.
type RevocationHook func(ctx context.Context, memberID string) error

// WorkspacePatch carries workspace fields to overwrite; empty fields are left alone.
type WorkspacePatch struct {
	Name   string
	Slug   string
	Status Status
}
