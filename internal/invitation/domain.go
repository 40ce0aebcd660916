// Package invitation implements the workspace invitation state machine:
// invited → accepted | rejected | canceled, with expiry derived from expires_at.
package invitation

import "time"

// Status enumerates stored invitation states. Expiry is never stored.
type Status string

const (
	StatusInvited  Status = "invited"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusCanceled Status = "canceled"
)

// TokenLength is the length of generated invitation tokens.
const TokenLength = 32

// Invitation is one (workspace, invitee email) offer. InviterMemberID references the
// inviting membership by id.
type Invitation struct {
	ID              string
	WorkspaceID     string
	InviterMemberID string
	InviteeEmail    string
	Status          Status
	InvitedAt       time.Time
	RespondedAt     *time.Time
	Token           string
	ExpiresAt       time.Time
}

// ExpiredAt reports whether the invitation is past its lifetime at now.
// An invitation expiring exactly at now is expired.
func (i Invitation) ExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// View is what an invitee sees before answering.
type View struct {
	ID            string    `json:"id"`
	WorkspaceID   string    `json:"workspace_id"`
	WorkspaceName string    `json:"workspace_name"`
	InviterName   string    `json:"inviter_name"`
	InviteeEmail  string    `json:"invitee_email"`
	Status        Status    `json:"status"`
	InvitedAt     time.Time `json:"invited_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Sent is an invitation as listed to its inviter.
type Sent struct {
	ID           string     `json:"id"`
	InviteeEmail string     `json:"invitee_email"`
	Status       Status     `json:"status"`
	Expired      bool       `json:"expired"`
	InvitedAt    time.Time  `json:"invited_at"`
	RespondedAt  *time.Time `json:"responded_at,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

// Notice is handed to the notification queue after an invitation is issued.
type Notice struct {
	InviteeEmail  string
	WorkspaceName string
	InviterName   string
	Token         string
}

// Transition names used for metrics and logs.
const (
	TransitionInvite  = "invite"
	TransitionApprove = "approve"
	TransitionReject  = "reject"
	TransitionCancel  = "cancel"
)
