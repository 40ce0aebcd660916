package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nowlisten/nowlisten/internal/invitation"
	jobmetrics "github.com/nowlisten/nowlisten/internal/jobs"
	"github.com/nowlisten/nowlisten/internal/mail"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskWorkspaceInvitation delivers the workspace invitation mail.
	TaskWorkspaceInvitation = "mail:workspace-invitation"
)

const invitationMaxRetry = 5

// WorkspaceInvitationPayload describes one invitation mail.
type WorkspaceInvitationPayload struct {
	InviteeEmail  string `json:"invitee_email"`
	WorkspaceName string `json:"workspace_name"`
	InviterName   string `json:"inviter_name"`
	Token         string `json:"token"`
}

// NewWorkspaceInvitationTask constructs an Asynq task.
func NewWorkspaceInvitationTask(payload WorkspaceInvitationPayload) (*asynq.Task, error) {
	if payload.InviteeEmail == "" || payload.Token == "" {
		return nil, errors.New("workspace invitation task: invitee email and token required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWorkspaceInvitation, data, asynq.Queue(QueueDefault), asynq.MaxRetry(invitationMaxRetry)), nil
}

func payloadFromNotice(n invitation.Notice) WorkspaceInvitationPayload {
	return WorkspaceInvitationPayload{
		InviteeEmail:  n.InviteeEmail,
		WorkspaceName: n.WorkspaceName,
		InviterName:   n.InviterName,
		Token:         n.Token,
	}
}

// MailSender delivers rendered mail.
type MailSender interface {
	Send(ctx context.Context, msg mail.Message) error
}

// InvitationMailJob renders and sends invitation mail.
type InvitationMailJob struct {
	Sender  MailSender
	Domain  string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewInvitationMailJob initialises the invitation mail handler.
func NewInvitationMailJob(sender MailSender, domain string, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvitationMailJob {
	return &InvitationMailJob{Sender: sender, Domain: domain, Logger: logger, Metrics: metrics}
}

// Handle processes TaskWorkspaceInvitation tasks.
func (j *InvitationMailJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Sender == nil {
		return errors.New("invitation mail: handler not configured")
	}
	var payload WorkspaceInvitationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger().Warn("invalid payload", slog.Any("error", err))
		return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskWorkspaceInvitation)
	defer func() {
		err = tracker.End(err)
	}()

	msg, err := mail.InvitationMessage(j.Domain, mail.Invitation{
		InviteeEmail:  payload.InviteeEmail,
		WorkspaceName: payload.WorkspaceName,
		InviterName:   payload.InviterName,
		Token:         payload.Token,
	})
	if err != nil {
		j.logger().Warn("render invitation mail", slog.Any("error", err))
		return fmt.Errorf("render: %v: %w", err, asynq.SkipRetry)
	}
	if err := j.Sender.Send(ctx, msg); err != nil {
		j.logger().Error("send invitation mail", slog.String("workspace", payload.WorkspaceName), slog.Any("error", err))
		return err
	}
	j.logger().Info("invitation mail sent", slog.String("workspace", payload.WorkspaceName))
	return nil
}

func (j *InvitationMailJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskWorkspaceInvitation))
	}
	return slog.Default().With(slog.String("job", TaskWorkspaceInvitation))
}
