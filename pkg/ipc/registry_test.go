package ipc

import (
	"net"
	"testing"
)

func testPipe(t *testing.T) net.Conn {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return server
}

func TestRegistryInsertionOrder(t *testing.T) {
	reg := NewRegistry()
	a := reg.Add(testPipe(t))
	b := reg.Add(testPipe(t))
	c := reg.Add(testPipe(t))

	snapshot := reg.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("expected 3 clients, got %d", len(snapshot))
	}
	for i, want := range []*Client{a, b, c} {
		if snapshot[i] != want {
			t.Fatalf("position %d: wrong client", i)
		}
	}
	if a.ID == b.ID || b.ID == c.ID || a.ID == c.ID {
		t.Fatal("client ids must be unique")
	}
}

func TestRegistryLookupAndRemove(t *testing.T) {
	reg := NewRegistry()
	connA := testPipe(t)
	connB := testPipe(t)
	a := reg.Add(connA)
	b := reg.Add(connB)
	b.events = append(b.events, "workspace")

	if reg.Lookup(connB) != b {
		t.Fatal("lookup by connection failed")
	}

	reg.Remove(b)
	if reg.Lookup(connB) != nil {
		t.Fatal("removed client still resolvable")
	}
	if b.alive {
		t.Fatal("removed client still marked alive")
	}
	if len(b.events) != 0 {
		t.Fatal("removed client kept subscription state")
	}
	if reg.Len() != 1 || reg.Snapshot()[0] != a {
		t.Fatalf("unexpected registry contents after remove")
	}

	// Removing twice must be harmless.
	reg.Remove(b)
	if reg.Len() != 1 {
		t.Fatal("double remove corrupted registry")
	}
}

func TestRegistryDrain(t *testing.T) {
	reg := NewRegistry()
	connA := testPipe(t)
	a := reg.Add(connA)
	reg.Add(testPipe(t))
	a.events = append(a.events, "output")

	reg.Drain()
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Len())
	}
	if reg.Lookup(connA) != nil {
		t.Fatal("drained client still resolvable")
	}
	if a.alive || len(a.events) != 0 {
		t.Fatal("drained client kept state")
	}
}
