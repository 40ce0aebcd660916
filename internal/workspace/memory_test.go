package workspace

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/nowlisten/nowlisten/internal/rbac"
	"github.com/nowlisten/nowlisten/internal/shared"
)

type memoryRepo struct {
	mu         sync.Mutex
	workspaces map[string]Workspace
	members    map[string]Member
	emails     map[string]string // user id -> email
	failMember error
}

type memoryTx struct {
	repo       *memoryRepo
	workspaces []Workspace
	members    []Member
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		workspaces: make(map[string]Workspace),
		members:    make(map[string]Member),
		emails:     make(map[string]string),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ws := range tx.workspaces {
		r.workspaces[ws.ID] = ws
	}
	for _, m := range tx.members {
		r.members[m.ID] = m
	}
	return nil
}

func (t *memoryTx) CreateWorkspace(ctx context.Context, ws Workspace) error {
	t.workspaces = append(t.workspaces, ws)
	return nil
}

func (t *memoryTx) CreateMember(ctx context.Context, m Member) error {
	if t.repo.failMember != nil {
		return t.repo.failMember
	}
	t.members = append(t.members, m)
	return nil
}

func (r *memoryRepo) seedWorkspace(id string, status Status) Workspace {
	ws := Workspace{ID: id, Name: id, Slug: id + "-slug", Status: status}
	r.workspaces[id] = ws
	return ws
}

func (r *memoryRepo) seedMember(id, workspaceID, userID, email string, role rbac.WorkspaceRole, status MemberStatus) Member {
	m := Member{ID: id, WorkspaceID: workspaceID, UserID: userID, Name: userID, Role: role, Status: status}
	r.members[id] = m
	r.emails[userID] = email
	return m
}

func (r *memoryRepo) FindMember(ctx context.Context, userID, workspaceID string) (Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.UserID == userID && m.WorkspaceID == workspaceID {
			return m, nil
		}
	}
	return Member{}, shared.NotFound("member", "Member not found")
}

func (r *memoryRepo) FindMemberByID(ctx context.Context, memberID string) (Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[memberID]
	if !ok {
		return Member{}, shared.NotFound("member "+memberID, "Member not found")
	}
	return m, nil
}

func (r *memoryRepo) FindMemberByEmail(ctx context.Context, workspaceID, email string) (Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.WorkspaceID == workspaceID && strings.EqualFold(r.emails[m.UserID], email) {
			return m, nil
		}
	}
	return Member{}, shared.NotFound("member "+email, "Member not found")
}

func (r *memoryRepo) CreateMember(ctx context.Context, m Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[m.ID] = m
	return nil
}

func (r *memoryRepo) UpdateMemberRole(ctx context.Context, memberID string, role rbac.WorkspaceRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[memberID]
	if !ok {
		return shared.NotFound("member "+memberID, "Not found")
	}
	m.Role = role
	r.members[memberID] = m
	return nil
}

func (r *memoryRepo) UpdateMemberStatus(ctx context.Context, memberID string, status MemberStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[memberID]
	if !ok {
		return shared.NotFound("member "+memberID, "Not found")
	}
	m.Status = status
	r.members[memberID] = m
	return nil
}

func (r *memoryRepo) DeleteMember(ctx context.Context, memberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[memberID]; !ok {
		return shared.NotFound("member "+memberID, "Not found")
	}
	delete(r.members, memberID)
	return nil
}

func (r *memoryRepo) ListMembers(ctx context.Context, workspaceID string, page shared.Page) ([]Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Member
	for _, m := range r.members {
		if m.WorkspaceID == workspaceID && m.ID > page.After {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (r *memoryRepo) GetWorkspace(ctx context.Context, id string) (Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.workspaces[id]
	if !ok {
		return Workspace{}, shared.NotFound("workspace "+id, "Workspace not found")
	}
	return ws, nil
}

func (r *memoryRepo) ListMemberships(ctx context.Context, userID string) ([]Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Membership
	for _, m := range r.members {
		if m.UserID != userID || m.Status != MemberActive {
			continue
		}
		out = append(out, Membership{Workspace: r.workspaces[m.WorkspaceID], MemberID: m.ID, MemberName: m.Name, MemberRole: m.Role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) UpdateWorkspace(ctx context.Context, id string, patch WorkspacePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.workspaces[id]
	if !ok {
		return shared.NotFound("workspace "+id, "Not found")
	}
	if patch.Slug != "" {
		for otherID, other := range r.workspaces {
			if otherID != id && other.Slug == patch.Slug {
				return shared.Conflict("slug taken", "Slug already in use")
			}
		}
		ws.Slug = patch.Slug
	}
	if patch.Name != "" {
		ws.Name = patch.Name
	}
	if patch.Status != "" {
		ws.Status = patch.Status
	}
	r.workspaces[id] = ws
	return nil
}

func (r *memoryRepo) DeleteWorkspace(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workspaces[id]; !ok {
		return shared.NotFound("workspace "+id, "Not found")
	}
	delete(r.workspaces, id)
	for mid, m := range r.members {
		if m.WorkspaceID == id {
			delete(r.members, mid)
		}
	}
	return nil
}
