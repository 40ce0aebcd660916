package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nowlisten/nowlisten/internal/platform/db"
	"github.com/nowlisten/nowlisten/internal/rbac"
	"github.com/nowlisten/nowlisten/internal/shared"
)

const (
	memberColumns    = `m.id, m.workspace_id, m.user_id, m.name, m.role, m.status, m.receive_alert, m.joined_at`
	workspaceColumns = `w.id, w.name, w.slug, w.status, COALESCE(w.profile_image_url, ''), w.created_at`

	constraintMemberUnique = "uq_workspace_members_workspace_user"
	constraintSlugUnique   = "uq_workspaces_slug"
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
	CreateWorkspace(ctx context.Context, ws Workspace) error
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

func (t *txRepo) CreateWorkspace(ctx context.Context, ws Workspace) error {
	return insertWorkspace(ctx, t.tx, ws)
}

func (t *txRepo) CreateMember(ctx context.Context, m Member) error {
	return InsertMember(ctx, t.tx, m)
}

// InsertMember writes a membership through q, which may be a pool or an open transaction.
// A second membership for the same (workspace, user) is a Conflict.
func InsertMember(ctx context.Context, q db.Querier, m Member) error {
	_, err := q.Exec(ctx, `INSERT INTO workspace_members
		(id, workspace_id, user_id, name, role, status, receive_alert, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.WorkspaceID, m.UserID, m.Name, string(m.Role), string(m.Status), m.ReceiveAlert, m.JoinedAt)
	if db.IsUniqueViolation(err, constraintMemberUnique) {
		return shared.Conflict(
			fmt.Sprintf("user %s already member of workspace %s", m.UserID, m.WorkspaceID),
			"Already a member of this workspace",
		)
	}
	if err != nil {
		return fmt.Errorf("workspace: insert member: %w", err)
	}
	return nil
}

func insertWorkspace(ctx context.Context, q db.Querier, ws Workspace) error {
	_, err := q.Exec(ctx, `INSERT INTO workspaces (id, name, slug, status, profile_image_url, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
		ws.ID, ws.Name, ws.Slug, string(ws.Status), ws.ProfileImageURL, ws.CreatedAt)
	if db.IsUniqueViolation(err, constraintSlugUnique) {
		return shared.Conflict("slug taken: "+ws.Slug, "Slug already in use")
	}
	if err != nil {
		return fmt.Errorf("workspace: insert workspace: %w", err)
	}
	return nil
}

func scanMember(row pgx.Row) (Member, error) {
	var (
		m            Member
		role, status string
	)
	if err := row.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Name, &role, &status, &m.ReceiveAlert, &m.JoinedAt); err != nil {
		return Member{}, err
	}
	m.Role = rbac.WorkspaceRole(role)
	m.Status = MemberStatus(status)
	return m, nil
}

func scanWorkspace(row pgx.Row, extra ...any) (Workspace, error) {
	var (
		ws     Workspace
		status string
	)
	dest := append([]any{&ws.ID, &ws.Name, &ws.Slug, &status, &ws.ProfileImageURL, &ws.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Workspace{}, err
	}
	ws.Status = Status(status)
	return ws, nil
}

func (r *Repository) findMember(ctx context.Context, notFound string, query string, args ...any) (Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, shared.NotFound(notFound, "Member not found")
	}
	if err != nil {
		return Member{}, fmt.Errorf("workspace: find member: %w", err)
	}
	return m, nil
}

// FindMember is a point lookup on the (workspace_id, user_id) unique index.
func (r *Repository) FindMember(ctx context.Context, userID, workspaceID string) (Member, error) {
	return r.findMember(ctx,
		fmt.Sprintf("member user=%s workspace=%s", userID, workspaceID),
		`SELECT `+memberColumns+` FROM workspace_members m WHERE m.workspace_id = $1 AND m.user_id = $2`,
		workspaceID, userID)
}

// FindMemberByID loads a membership by its id.
func (r *Repository) FindMemberByID(ctx context.Context, memberID string) (Member, error) {
	return r.findMember(ctx, "member "+memberID,
		`SELECT `+memberColumns+` FROM workspace_members m WHERE m.id = $1`, memberID)
}

// FindMemberByEmail resolves a membership through the user's email, case-insensitively.
func (r *Repository) FindMemberByEmail(ctx context.Context, workspaceID, email string) (Member, error) {
	return r.findMember(ctx,
		fmt.Sprintf("member email=%s workspace=%s", email, workspaceID),
		`SELECT `+memberColumns+` FROM workspace_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = $1 AND lower(u.email) = $2`,
		workspaceID, shared.NormalizeEmail(email))
}

// CreateMember inserts a membership outside a transaction.
func (r *Repository) CreateMember(ctx context.Context, m Member) error {
	return InsertMember(ctx, r.pool, m)
}

func (r *Repository) execOne(ctx context.Context, notFound, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound(notFound, "Not found")
	}
	return nil
}

// UpdateMemberRole sets a member's role.
func (r *Repository) UpdateMemberRole(ctx context.Context, memberID string, role rbac.WorkspaceRole) error {
	return r.execOne(ctx, "member "+memberID,
		`UPDATE workspace_members SET role = $2 WHERE id = $1`, memberID, string(role))
}

// UpdateMemberStatus sets a member's status.
func (r *Repository) UpdateMemberStatus(ctx context.Context, memberID string, status MemberStatus) error {
	return r.execOne(ctx, "member "+memberID,
		`UPDATE workspace_members SET status = $2 WHERE id = $1`, memberID, string(status))
}

// DeleteMember removes a membership.
func (r *Repository) DeleteMember(ctx context.Context, memberID string) error {
	return r.execOne(ctx, "member "+memberID, `DELETE FROM workspace_members WHERE id = $1`, memberID)
}

// ListMembers returns up to page.Limit members ordered by id, after page.After.
func (r *Repository) ListMembers(ctx context.Context, workspaceID string, page shared.Page) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+memberColumns+` FROM workspace_members m
		WHERE m.workspace_id = $1 AND ($2 = '' OR m.id > $2)
		ORDER BY m.id
		LIMIT $3`, workspaceID, page.After, page.Limit)
	if err != nil {
		return nil, fmt.Errorf("workspace: list members: %w", err)
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetWorkspace loads a workspace by id.
func (r *Repository) GetWorkspace(ctx context.Context, id string) (Workspace, error) {
	ws, err := scanWorkspace(r.pool.QueryRow(ctx, `SELECT `+workspaceColumns+` FROM workspaces w WHERE w.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Workspace{}, shared.NotFound("workspace "+id, "Workspace not found")
	}
	if err != nil {
		return Workspace{}, fmt.Errorf("workspace: get: %w", err)
	}
	return ws, nil
}

// ListMemberships returns every workspace the user is an active member of, newest first.
func (r *Repository) ListMemberships(ctx context.Context, userID string) ([]Membership, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+workspaceColumns+`, m.id, m.name, m.role
		FROM workspace_members m
		JOIN workspaces w ON w.id = m.workspace_id
		WHERE m.user_id = $1 AND m.status = $2
		ORDER BY w.created_at DESC`, userID, string(MemberActive))
	if err != nil {
		return nil, fmt.Errorf("workspace: list memberships: %w", err)
	}
	defer rows.Close()
	var out []Membership
	for rows.Next() {
		var (
			ms   Membership
			role string
		)
		ws, err := scanWorkspace(rows, &ms.MemberID, &ms.MemberName, &role)
		if err != nil {
			return nil, err
		}
		ms.Workspace = ws
		ms.MemberRole = rbac.WorkspaceRole(role)
		out = append(out, ms)
	}
	return out, rows.Err()
}

// UpdateWorkspace applies the non-empty fields of patch.
func (r *Repository) UpdateWorkspace(ctx context.Context, id string, patch WorkspacePatch) error {
	sets := make([]string, 0, 3)
	args := []any{id}
	add := func(col, val string) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != "" {
		add("name", patch.Name)
	}
	if patch.Slug != "" {
		add("slug", patch.Slug)
	}
	if patch.Status != "" {
		add("status", string(patch.Status))
	}
	if len(sets) == 0 {
		return nil
	}
	err := r.execOne(ctx, "workspace "+id,
		`UPDATE workspaces SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if db.IsUniqueViolation(err, constraintSlugUnique) {
		return shared.Conflict("slug taken: "+patch.Slug, "Slug already in use")
	}
	return err
}

// DeleteWorkspace removes a workspace; memberships and invitations cascade.
func (r *Repository) DeleteWorkspace(ctx context.Context, id string) error {
	return r.execOne(ctx, "workspace "+id, `DELETE FROM workspaces WHERE id = $1`, id)
}
