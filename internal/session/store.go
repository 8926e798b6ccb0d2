package session

import (
	"errors"
	"log"
	"sync"
	"time"
)

// SnapshotTTL is how long a stored snapshot stays trustworthy.
const SnapshotTTL = 24 * time.Hour

var ErrInvalidRole = errors.New("invalid role")

// Snapshot is a role-scoped authenticated-identity record for one tab
type Snapshot struct {
	UserID          string `json:"user_id"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	IsAuthenticated bool   `json:"is_authenticated"`
	Role            Role   `json:"role"`
	Timestamp       int64  `json:"timestamp"` // Unix seconds, stamped at store time
}

type tabState struct {
	role      Role
	roleSet   bool
	snapshots map[Role]Snapshot // one slot per role
}

// Store holds role contexts and auth snapshots keyed by tab id.
// All mutation goes through its methods; callers never see internal maps.
type Store struct {
	mu   sync.RWMutex
	tabs map[string]*tabState
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{
		tabs: make(map[string]*tabState),
		now:  time.Now,
	}
}

func (s *Store) tab(tabID string) *tabState {
	t, ok := s.tabs[tabID]
	if !ok {
		t = &tabState{snapshots: make(map[Role]Snapshot)}
		s.tabs[tabID] = t
	}
	return t
}

// SetRole sets the tab's role context. An unknown role is rejected and
// leaves the existing context untouched.
func (s *Store) SetRole(tabID string, r Role) error {
	if !ValidRole(r) {
		log.Printf("⚠️  Rejected invalid role %q for tab %s", r, tabID)
		return ErrInvalidRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tab(tabID)
	t.role = r
	t.roleSet = true
	return nil
}

// Role returns the tab's role context, if one is set.
func (s *Store) Role(tabID string) (Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tabs[tabID]
	if !ok || !t.roleSet {
		return "", false
	}
	return t.role, true
}

// ClearRole removes the tab's role context.
func (s *Store) ClearRole(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tabs[tabID]; ok {
		t.role = ""
		t.roleSet = false
	}
}

// CanActAsCustomer reports whether the tab may use customer features.
// Granted when the role is customer or when no role is set yet, to support
// first-load ambiguity.
func (s *Store) CanActAsCustomer(tabID string) bool {
	r, ok := s.Role(tabID)
	return !ok || r == RoleCustomer
}

// CanActAsDeliveryAgent reports whether the tab may use agent features.
func (s *Store) CanActAsDeliveryAgent(tabID string) bool {
	r, ok := s.Role(tabID)
	return ok && r == RoleDeliveryAgent
}

// StoreSnapshot writes snap under the tab's current role, stamping it with
// that role and the current time. With no role set the snapshot lands in the
// customer slot, matching customer-by-default access.
func (s *Store) StoreSnapshot(tabID string, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tab(tabID)
	role := RoleCustomer
	if t.roleSet {
		role = t.role
	}
	snap.Role = role
	snap.Timestamp = s.now().Unix()
	t.snapshots[role] = snap
}

// ValidSnapshot returns the snapshot for the tab's current role. A snapshot
// whose stored role disagrees with the current role, or whose age exceeds
// SnapshotTTL, is deleted and reported absent.
func (s *Store) ValidSnapshot(tabID string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[tabID]
	if !ok {
		return Snapshot{}, false
	}
	role := RoleCustomer
	if t.roleSet {
		role = t.role
	}
	snap, ok := t.snapshots[role]
	if !ok {
		return Snapshot{}, false
	}
	if snap.Role != role {
		delete(t.snapshots, role)
		return Snapshot{}, false
	}
	if s.now().Unix()-snap.Timestamp > int64(SnapshotTTL.Seconds()) {
		log.Printf("🕐 Expired auth snapshot for tab %s (role %s), discarding", tabID, role)
		delete(t.snapshots, role)
		return Snapshot{}, false
	}
	return snap, true
}

// Clear removes the snapshot for the tab's current role only.
func (s *Store) Clear(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[tabID]
	if !ok {
		return
	}
	role := RoleCustomer
	if t.roleSet {
		role = t.role
	}
	delete(t.snapshots, role)
}

// ClearAll removes both roles' snapshots for the tab (full sign-out).
func (s *Store) ClearAll(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tabs[tabID]; ok {
		t.snapshots = make(map[Role]Snapshot)
	}
}

// Reconcile checks the stored snapshot against the backend's own session.
// sessionUserID is the user id carried by the backend session token, or ""
// when there is no backend session. The snapshot is trustworthy only if both
// agree on the same identity; any mismatch discards it.
func (s *Store) Reconcile(tabID, sessionUserID string) bool {
	snap, ok := s.ValidSnapshot(tabID)
	if !ok {
		return false
	}
	if sessionUserID == "" || snap.UserID != sessionUserID {
		log.Printf("⚠️  Auth snapshot for tab %s disagrees with backend session, discarding", tabID)
		s.Clear(tabID)
		return false
	}
	return true
}
