package invitation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nowlisten/nowlisten/internal/rbac"
	"github.com/nowlisten/nowlisten/internal/shared"
	"github.com/nowlisten/nowlisten/internal/workspace"
)

// memberStore implements workspace.MemberStore.
type memberStore struct {
	mu      sync.Mutex
	members map[string]workspace.Member
	emails  map[string]string
}

func newMemberStore() *memberStore {
	return &memberStore{members: make(map[string]workspace.Member), emails: make(map[string]string)}
}

func (s *memberStore) seed(id, workspaceID, userID, email string, role rbac.WorkspaceRole) {
	s.members[id] = workspace.Member{ID: id, WorkspaceID: workspaceID, UserID: userID, Name: userID, Role: role, Status: workspace.MemberActive}
	s.emails[userID] = email
}

func (s *memberStore) FindMember(ctx context.Context, userID, workspaceID string) (workspace.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.UserID == userID && m.WorkspaceID == workspaceID {
			return m, nil
		}
	}
	return workspace.Member{}, shared.NotFound("member", "Member not found")
}

func (s *memberStore) FindMemberByID(ctx context.Context, memberID string) (workspace.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberID]
	if !ok {
		return workspace.Member{}, shared.NotFound("member", "Member not found")
	}
	return m, nil
}

func (s *memberStore) FindMemberByEmail(ctx context.Context, workspaceID, email string) (workspace.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.WorkspaceID == workspaceID && strings.EqualFold(s.emails[m.UserID], email) {
			return m, nil
		}
	}
	return workspace.Member{}, shared.NotFound("member", "Member not found")
}

func (s *memberStore) CreateMember(ctx context.Context, m workspace.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(m)
}

func (s *memberStore) insertLocked(m workspace.Member) error {
	for _, existing := range s.members {
		if existing.WorkspaceID == m.WorkspaceID && existing.UserID == m.UserID {
			return shared.Conflict("duplicate member", "Already a member of this workspace")
		}
	}
	s.members[m.ID] = m
	return nil
}

func (s *memberStore) update(memberID string, fn func(*workspace.Member)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberID]
	if !ok {
		return shared.NotFound("member", "Not found")
	}
	fn(&m)
	s.members[memberID] = m
	return nil
}

func (s *memberStore) UpdateMemberRole(ctx context.Context, memberID string, role rbac.WorkspaceRole) error {
	return s.update(memberID, func(m *workspace.Member) { m.Role = role })
}

func (s *memberStore) UpdateMemberStatus(ctx context.Context, memberID string, status workspace.MemberStatus) error {
	return s.update(memberID, func(m *workspace.Member) { m.Status = status })
}

func (s *memberStore) DeleteMember(ctx context.Context, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, memberID)
	return nil
}

func (s *memberStore) ListMembers(ctx context.Context, workspaceID string, page shared.Page) ([]workspace.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []workspace.Member
	for _, m := range s.members {
		if m.WorkspaceID == workspaceID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memberStore) byUser(workspaceID, userID string) (workspace.Member, bool) {
	m, err := s.FindMember(context.Background(), userID, workspaceID)
	return m, err == nil
}

type workspaceStore struct {
	mu         sync.Mutex
	workspaces map[string]workspace.Workspace
}

func (s *workspaceStore) RequireActive(ctx context.Context, id string) (workspace.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[id]
	if !ok {
		return workspace.Workspace{}, shared.NotFound("workspace", "Workspace not found")
	}
	if !ws.Active() {
		return workspace.Workspace{}, shared.PermissionDenied("workspace inactive")
	}
	return ws, nil
}

func (s *workspaceStore) setStatus(id string, status workspace.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := s.workspaces[id]
	ws.Status = status
	s.workspaces[id] = ws
}

type memoryRepo struct {
	mu      sync.Mutex
	rows    map[string]Invitation
	members *memberStore
	// afterFind runs once after the next token lookup, outside the lock.
	afterFind func()
}

type memoryTx struct {
	repo        *memoryRepo
	transitions map[string]Invitation
	members     []workspace.Member
}

func newMemoryRepo(members *memberStore) *memoryRepo {
	return &memoryRepo{rows: make(map[string]Invitation), members: members}
}

// WithTx holds the repo lock for the whole callback and applies buffered writes only
// when the callback succeeds.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &memoryTx{repo: r, transitions: make(map[string]Invitation)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.members.mu.Lock()
	defer r.members.mu.Unlock()
	for _, m := range tx.members {
		if err := r.members.insertLocked(m); err != nil {
			return err
		}
	}
	for id, inv := range tx.transitions {
		r.rows[id] = inv
	}
	return nil
}

func (t *memoryTx) Transition(ctx context.Context, id, token string, to Status, respondedAt *time.Time) error {
	inv, ok := t.repo.rows[id]
	if !ok || inv.Status != StatusInvited || inv.Token != token {
		return shared.Conflict("not invited", "Invitation already processed")
	}
	inv.Status = to
	inv.RespondedAt = respondedAt
	t.transitions[id] = inv
	return nil
}

func (t *memoryTx) CreateMember(ctx context.Context, m workspace.Member) error {
	if _, exists := t.repo.members.byUser(m.WorkspaceID, m.UserID); exists {
		return shared.Conflict("duplicate member", "Already a member of this workspace")
	}
	t.members = append(t.members, m)
	return nil
}

func (r *memoryRepo) Upsert(ctx context.Context, inv Invitation) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.rows {
		if existing.WorkspaceID == inv.WorkspaceID && existing.InviteeEmail == inv.InviteeEmail {
			inv.ID = id
			break
		}
	}
	inv.Status = StatusInvited
	inv.RespondedAt = nil
	r.rows[inv.ID] = inv
	return inv.ID, nil
}

func (r *memoryRepo) FindByToken(ctx context.Context, token string) (Invitation, error) {
	inv, err := r.findByToken(token)
	r.mu.Lock()
	hook := r.afterFind
	r.afterFind = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return inv, err
}

func (r *memoryRepo) findByToken(token string) (Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.rows {
		if inv.Token == token {
			return inv, nil
		}
	}
	return Invitation{}, shared.NotFound("token", "Invitation not found")
}

func (r *memoryRepo) Transition(ctx context.Context, id, token string, to Status, respondedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.rows[id]
	if !ok || inv.Status != StatusInvited || inv.Token != token {
		return shared.Conflict("not invited", "Invitation already processed")
	}
	inv.Status = to
	inv.RespondedAt = respondedAt
	r.rows[id] = inv
	return nil
}

func (r *memoryRepo) ListByInviter(ctx context.Context, memberID string) ([]Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Invitation
	for _, inv := range r.rows {
		if inv.InviterMemberID == memberID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InviteeEmail < out[j].InviteeEmail })
	return out, nil
}

func (r *memoryRepo) only(t interface{ Fatalf(string, ...any) }) Invitation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rows) != 1 {
		t.Fatalf("expected exactly one invitation row, got %d", len(r.rows))
	}
	for _, inv := range r.rows {
		return inv
	}
	return Invitation{}
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
	err     error
}

func (n *recordingNotifier) NotifyInvitation(ctx context.Context, notice Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return n.err
}

func (n *recordingNotifier) last() Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.notices[len(n.notices)-1]
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingRecorder) InvitationTransition(transition, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[transition+"/"+outcome]++
}
