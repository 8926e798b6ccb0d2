package session

import (
	"testing"
	"time"
)

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	s := NewStore()
	if err := s.SetRole("tab1", Role("admin")); err != ErrInvalidRole {
		t.Fatalf("SetRole with unknown role: got %v, want ErrInvalidRole", err)
	}
	if _, ok := s.Role("tab1"); ok {
		t.Fatal("role should remain unset after rejected SetRole")
	}
}

func TestCustomerAccessWithNoRoleSet(t *testing.T) {
	s := NewStore()
	if !s.CanActAsCustomer("tab1") {
		t.Error("customer access should be granted when no role is set")
	}
	if s.CanActAsDeliveryAgent("tab1") {
		t.Error("agent access should not be granted when no role is set")
	}
}

func TestRoleIsolationAcrossContextSwitch(t *testing.T) {
	s := NewStore()
	if err := s.SetRole("tab1", RoleCustomer); err != nil {
		t.Fatal(err)
	}
	s.StoreSnapshot("tab1", Snapshot{UserID: "u1", Email: "u1@example.com", IsAuthenticated: true})

	if _, ok := s.ValidSnapshot("tab1"); !ok {
		t.Fatal("snapshot should be valid under the role it was stored for")
	}

	// Switching the tab to the agent role must not surface the customer
	// snapshot, even though the backend session is shared.
	if err := s.SetRole("tab1", RoleDeliveryAgent); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.ValidSnapshot("tab1"); ok {
		t.Fatal("customer snapshot leaked into delivery agent role context")
	}

	// Switching back restores it.
	if err := s.SetRole("tab1", RoleCustomer); err != nil {
		t.Fatal(err)
	}
	snap, ok := s.ValidSnapshot("tab1")
	if !ok || snap.UserID != "u1" {
		t.Fatalf("customer snapshot lost after role round trip: %+v ok=%v", snap, ok)
	}
}

func TestTabsDoNotShareSnapshots(t *testing.T) {
	s := NewStore()
	s.SetRole("tab1", RoleCustomer)
	s.StoreSnapshot("tab1", Snapshot{UserID: "u1", IsAuthenticated: true})

	s.SetRole("tab2", RoleDeliveryAgent)
	if _, ok := s.ValidSnapshot("tab2"); ok {
		t.Fatal("tab2 should not see tab1's snapshot")
	}
}

func TestSnapshotExpiry(t *testing.T) {
	s := NewStore()
	current := time.Now()
	s.now = func() time.Time { return current }

	s.SetRole("tab1", RoleCustomer)
	s.StoreSnapshot("tab1", Snapshot{UserID: "u1", IsAuthenticated: true})

	current = current.Add(SnapshotTTL - time.Minute)
	if _, ok := s.ValidSnapshot("tab1"); !ok {
		t.Fatal("snapshot should still be valid just under the expiry window")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := s.ValidSnapshot("tab1"); ok {
		t.Fatal("snapshot older than 24h should be treated as absent")
	}
	// The stale entry is deleted, not just hidden.
	current = time.Now()
	if _, ok := s.ValidSnapshot("tab1"); ok {
		t.Fatal("stale snapshot should have been deleted")
	}
}

func TestReconcile(t *testing.T) {
	s := NewStore()
	s.SetRole("tab1", RoleCustomer)
	s.StoreSnapshot("tab1", Snapshot{UserID: "u1", IsAuthenticated: true})

	if !s.Reconcile("tab1", "u1") {
		t.Fatal("matching backend session should reconcile")
	}
	if s.Reconcile("tab1", "u2") {
		t.Fatal("mismatched backend session must not reconcile")
	}
	// Mismatch discards the snapshot.
	if _, ok := s.ValidSnapshot("tab1"); ok {
		t.Fatal("snapshot should be discarded after reconcile mismatch")
	}

	s.StoreSnapshot("tab1", Snapshot{UserID: "u1", IsAuthenticated: true})
	if s.Reconcile("tab1", "") {
		t.Fatal("absent backend session must not reconcile")
	}
}

func TestClearAndClearAll(t *testing.T) {
	s := NewStore()
	s.SetRole("tab1", RoleCustomer)
	s.StoreSnapshot("tab1", Snapshot{UserID: "u1", IsAuthenticated: true})
	s.SetRole("tab1", RoleDeliveryAgent)
	s.StoreSnapshot("tab1", Snapshot{UserID: "a1", IsAuthenticated: true})

	// Clear removes only the current role's snapshot.
	s.Clear("tab1")
	if _, ok := s.ValidSnapshot("tab1"); ok {
		t.Fatal("agent snapshot should be cleared")
	}
	s.SetRole("tab1", RoleCustomer)
	if _, ok := s.ValidSnapshot("tab1"); !ok {
		t.Fatal("customer snapshot should survive agent-scoped clear")
	}

	s.ClearAll("tab1")
	if _, ok := s.ValidSnapshot("tab1"); ok {
		t.Fatal("ClearAll should remove both roles' snapshots")
	}
}
