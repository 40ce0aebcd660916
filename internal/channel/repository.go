package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nowlisten/nowlisten/internal/platform/db"
	"github.com/nowlisten/nowlisten/internal/rbac"
	"github.com/nowlisten/nowlisten/internal/shared"
)

const (
	channelColumns = `c.id, c.workspace_id, c.name, c.status, c.visibility, c.created_at`
	memberColumns  = `cm.id, cm.channel_id, cm.workspace_member_id, cm.role, cm.active, cm.joined_at`

	constraintNameUnique   = "uq_channels_workspace_name"
	constraintMemberUnique = "uq_channel_members_channel_member"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreateChannel(ctx context.Context, ch Channel) error
	CreateMember(ctx context.Context, m Member) error
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

func (t *txRepo) CreateChannel(ctx context.Context, ch Channel) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO channels (id, workspace_id, name, status, visibility, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ch.ID, ch.WorkspaceID, ch.Name, string(ch.Status), string(ch.Visibility), ch.CreatedAt)
	if db.IsUniqueViolation(err, constraintNameUnique) {
		return shared.Conflict("channel name exists: "+ch.Name, fmt.Sprintf("channel name [%s] already exists", ch.Name))
	}
	if err != nil {
		return fmt.Errorf("channel: insert channel: %w", err)
	}
	return nil
}

func (t *txRepo) CreateMember(ctx context.Context, m Member) error {
	return insertMember(ctx, t.tx, m)
}

func insertMember(ctx context.Context, q db.Querier, m Member) error {
	_, err := q.Exec(ctx, `INSERT INTO channel_members (id, channel_id, workspace_member_id, role, active, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.ChannelID, m.WorkspaceMemberID, string(m.Role), m.Active, m.JoinedAt)
	if db.IsUniqueViolation(err, constraintMemberUnique) {
		return shared.Conflict("channel member exists", "Already a member of this channel")
	}
	if err != nil {
		return fmt.Errorf("channel: insert member: %w", err)
	}
	return nil
}

// CreateMember adds a channel member outside a transaction.
func (r *Repository) CreateMember(ctx context.Context, m Member) error {
	return insertMember(ctx, r.pool, m)
}

func scanChannel(row pgx.Row) (Channel, error) {
	var (
		ch                 Channel
		status, visibility string
	)
	if err := row.Scan(&ch.ID, &ch.WorkspaceID, &ch.Name, &status, &visibility, &ch.CreatedAt); err != nil {
		return Channel{}, err
	}
	ch.Status = Status(status)
	ch.Visibility = Visibility(visibility)
	return ch, nil
}

// GetChannel loads a channel by id.
func (r *Repository) GetChannel(ctx context.Context, id string) (Channel, error) {
	ch, err := scanChannel(r.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels c WHERE c.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Channel{}, shared.NotFound("channel "+id, "channel not exists")
	}
	if err != nil {
		return Channel{}, fmt.Errorf("channel: get: %w", err)
	}
	return ch, nil
}

// ListVisible returns the workspace's public channels plus private ones the member belongs to.
func (r *Repository) ListVisible(ctx context.Context, workspaceID, workspaceMemberID string) ([]Channel, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+channelColumns+` FROM channels c
		WHERE c.workspace_id = $1
		AND (c.visibility = $2 OR EXISTS (
			SELECT 1 FROM channel_members cm WHERE cm.channel_id = c.id AND cm.workspace_member_id = $3))
		ORDER BY c.name`, workspaceID, string(VisibilityPublic), workspaceMemberID)
	if err != nil {
		return nil, fmt.Errorf("channel: list: %w", err)
	}
	defer rows.Close()
	var out []Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// FindMember returns the grant a workspace member holds in a channel.
func (r *Repository) FindMember(ctx context.Context, channelID, workspaceMemberID string) (Member, error) {
	var (
		m    Member
		role string
	)
	err := r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM channel_members cm
		WHERE cm.channel_id = $1 AND cm.workspace_member_id = $2`, channelID, workspaceMemberID).
		Scan(&m.ID, &m.ChannelID, &m.WorkspaceMemberID, &role, &m.Active, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, shared.NotFound("channel member", "Channel member not found")
	}
	if err != nil {
		return Member{}, fmt.Errorf("channel: find member: %w", err)
	}
	m.Role = rbac.ChannelRole(role)
	return m, nil
}

// DeleteMembersOf drops every channel grant held by a workspace member.
func (r *Repository) DeleteMembersOf(ctx context.Context, workspaceMemberID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM channel_members WHERE workspace_member_id = $1`, workspaceMemberID)
	if err != nil {
		return 0, fmt.Errorf("channel: delete grants: %w", err)
	}
	return tag.RowsAffected(), nil
}
