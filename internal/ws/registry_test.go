package ws

import (
	"sort"
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	r := NewMemoryRegistry()

	r.Register(1, "conn-a")

	connID, ok := r.Lookup(1)
	if !ok {
		t.Fatal("Expected user 1 to be registered")
	}
	if connID != "conn-a" {
		t.Errorf("Expected conn-a, got %s", connID)
	}

	if _, ok := r.Lookup(2); ok {
		t.Error("Expected user 2 to be absent")
	}
}

func TestLastConnectWins(t *testing.T) {
	r := NewMemoryRegistry()

	r.Register(1, "conn-old")
	r.Register(1, "conn-new")

	connID, ok := r.Lookup(1)
	if !ok || connID != "conn-new" {
		t.Errorf("Expected conn-new to win, got %s (ok=%v)", connID, ok)
	}

	if ids := r.OnlineUserIDs(); len(ids) != 1 {
		t.Errorf("Expected 1 online user, got %d", len(ids))
	}
}

func TestUnregister(t *testing.T) {
	r := NewMemoryRegistry()

	r.Register(1, "conn-a")
	r.Unregister("conn-a")

	if _, ok := r.Lookup(1); ok {
		t.Error("Expected user 1 to be gone after unregister")
	}

	// Unregistering an unknown connection is a no-op
	r.Unregister("conn-unknown")
}

// A user reconnects on a new connection before the old connection's
// disconnect fires. The stale disconnect must not knock the user offline.
func TestReconnectBeforeStaleDisconnect(t *testing.T) {
	r := NewMemoryRegistry()

	r.Register(1, "conn-old")
	r.Register(1, "conn-new")
	r.Unregister("conn-old")

	connID, ok := r.Lookup(1)
	if !ok {
		t.Fatal("Expected user 1 to stay online after the stale disconnect")
	}
	if connID != "conn-new" {
		t.Errorf("Expected conn-new to survive, got %s", connID)
	}
}

func TestOnlineUserIDs(t *testing.T) {
	r := NewMemoryRegistry()

	r.Register(1, "conn-a")
	r.Register(2, "conn-b")
	r.Register(3, "conn-c")
	r.Unregister("conn-b")

	ids := r.OnlineUserIDs()
	sort.Ints(ids)

	want := []int{1, 3}
	if len(ids) != len(want) {
		t.Fatalf("Expected %d online users, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Expected online set %v, got %v", want, ids)
			break
		}
	}
}
