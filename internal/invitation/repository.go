package invitation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nowlisten/nowlisten/internal/platform/db"
	"github.com/nowlisten/nowlisten/internal/shared"
	"github.com/nowlisten/nowlisten/internal/workspace"
)

const invitationColumns = `id, workspace_id, COALESCE(inviter_member_id, ''), invitee_email, status,
	invited_at, responded_at, token, expires_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the writes approve commits together.
type TxRepository interface {
	Transition(ctx context.Context, id, token string, to Status, respondedAt *time.Time) error
	CreateMember(ctx context.Context, m workspace.Member) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) Transition(ctx context.Context, id, token string, to Status, respondedAt *time.Time) error {
	return transition(ctx, t.tx, id, token, to, respondedAt)
}

func (t *txRepo) CreateMember(ctx context.Context, m workspace.Member) error {
	return workspace.InsertMember(ctx, t.tx, m)
}

// transition moves an invitation out of invited. The status guard makes concurrent
// answers on one token mutually exclusive; the loser gets a Conflict. The token guard
// rejects writes through a token that a re-invite rotated after it was read.
func transition(ctx context.Context, q db.Querier, id, token string, to Status, respondedAt *time.Time) error {
	tag, err := q.Exec(ctx, `UPDATE workspace_invitations
		SET status = $2, responded_at = $3
		WHERE id = $1 AND status = $4 AND token = $5`,
		id, string(to), respondedAt, string(StatusInvited), token)
	if err != nil {
		return fmt.Errorf("invitation: transition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.Conflict("invitation "+id+" no longer invited", "Invitation already processed")
	}
	return nil
}

// Transition applies a guarded status change outside a transaction.
func (r *Repository) Transition(ctx context.Context, id, token string, to Status, respondedAt *time.Time) error {
	return transition(ctx, r.pool, id, token, to, respondedAt)
}

// Upsert writes inv, or resets the existing row for (workspace, invitee email) keeping its id.
// It returns the stored id.
func (r *Repository) Upsert(ctx context.Context, inv Invitation) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `INSERT INTO workspace_invitations
		(id, workspace_id, inviter_member_id, invitee_email, status, invited_at, responded_at, token, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $8)
		ON CONFLICT (workspace_id, invitee_email) DO UPDATE SET
			inviter_member_id = EXCLUDED.inviter_member_id,
			status = EXCLUDED.status,
			invited_at = EXCLUDED.invited_at,
			responded_at = NULL,
			token = EXCLUDED.token,
			expires_at = EXCLUDED.expires_at
		RETURNING id`,
		inv.ID, inv.WorkspaceID, inv.InviterMemberID, inv.InviteeEmail, string(StatusInvited),
		inv.InvitedAt, inv.Token, inv.ExpiresAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("invitation: upsert: %w", err)
	}
	return id, nil
}

func scanInvitation(row pgx.Row) (Invitation, error) {
	var (
		inv    Invitation
		status string
	)
	err := row.Scan(&inv.ID, &inv.WorkspaceID, &inv.InviterMemberID, &inv.InviteeEmail, &status,
		&inv.InvitedAt, &inv.RespondedAt, &inv.Token, &inv.ExpiresAt)
	if err != nil {
		return Invitation{}, err
	}
	inv.Status = Status(status)
	return inv, nil
}

// FindByToken loads the invitation carrying token.
func (r *Repository) FindByToken(ctx context.Context, token string) (Invitation, error) {
	inv, err := scanInvitation(r.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM workspace_invitations WHERE token = $1`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invitation{}, shared.NotFound("invitation token", "Invitation not found")
	}
	if err != nil {
		return Invitation{}, fmt.Errorf("invitation: find by token: %w", err)
	}
	return inv, nil
}

// ListByInviter returns invitations sent by a membership, newest first.
func (r *Repository) ListByInviter(ctx context.Context, memberID string) ([]Invitation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invitationColumns+` FROM workspace_invitations
		WHERE inviter_member_id = $1
		ORDER BY invited_at DESC`, memberID)
	if err != nil {
		return nil, fmt.Errorf("invitation: list by inviter: %w", err)
	}
	defer rows.Close()
	var out []Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
