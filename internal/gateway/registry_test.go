package gateway

import "testing"

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	r.Register("conn-a", 1)
	r.Register("conn-b", 1)
	r.Register("conn-c", 2)

	if got := r.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}

	if userID, ok := r.UserFor("conn-a"); !ok || userID != 1 {
		t.Errorf("UserFor(conn-a) = %d, %v", userID, ok)
	}
	if _, ok := r.UserFor("conn-x"); ok {
		t.Error("UserFor(conn-x) should miss")
	}

	if conns := r.ConnsFor(1); len(conns) != 2 {
		t.Errorf("ConnsFor(1) = %v, want two entries", conns)
	}

	r.Remove("conn-a")
	if conns := r.ConnsFor(1); len(conns) != 1 {
		t.Errorf("ConnsFor(1) after remove = %v, want one entry", conns)
	}

	// Removing an unknown connection is a no-op.
	r.Remove("conn-x")
	if got := r.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}

	r.Remove("conn-c")
	if conns := r.ConnsFor(2); len(conns) != 0 {
		t.Errorf("ConnsFor(2) after remove = %v, want empty", conns)
	}
}
