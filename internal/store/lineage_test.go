package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

// chain stores a -> c1 -> b -> c2 -> c, plus an unrelated x.
func writeTestChain(t *testing.T, s *Store) {
	t.Helper()
	writeTestCalc(t, s,
		createTestFloat("a", 1, 1),
		createTestCalc("c1", "scale", 2),
		createTestFloat("b", 2, 3),
		"node",
	)
	writeTestCalc(t, s,
		createTestFloat("b", 2, 3),
		createTestCalc("c2", "scale", 4),
		createTestFloat("c", 4, 5),
		"node",
	)
	if _, _, err := s.WriteNode(context.Background(), createTestFloat("x", 9, 6)); err != nil {
		t.Fatalf("WriteNode() failed: %v", err)
	}
}

func uuids(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			return
		}
	}
}

func TestAncestors(t *testing.T) {
	s := createTestStore(t)
	writeTestChain(t, s)

	nodes, err := s.Ancestors(context.Background(), "c")
	if err != nil {
		t.Fatalf("Ancestors() failed: %v", err)
	}
	var got []string
	for _, n := range nodes {
		got = append(got, n.UUID)
	}
	uuids(t, got, "a", "c1", "b", "c2")
}

func TestAncestors_Root(t *testing.T) {
	s := createTestStore(t)
	writeTestChain(t, s)

	nodes, err := s.Ancestors(context.Background(), "a")
	if err != nil {
		t.Fatalf("Ancestors() failed: %v", err)
	}
	if len(nodes) != 0 {
		t.Errorf("Ancestors(root) returned %d nodes, want 0", len(nodes))
	}
}

func TestDescendants(t *testing.T) {
	s := createTestStore(t)
	writeTestChain(t, s)

	nodes, err := s.Descendants(context.Background(), "b")
	if err != nil {
		t.Fatalf("Descendants() failed: %v", err)
	}
	var got []string
	for _, n := range nodes {
		got = append(got, n.UUID)
	}
	uuids(t, got, "c2", "c")
}

func TestReadTrace(t *testing.T) {
	s := createTestStore(t)
	writeTestChain(t, s)

	trace, err := s.ReadTrace(context.Background(), "b")
	if err != nil {
		t.Fatalf("ReadTrace() failed: %v", err)
	}
	if trace.Node.UUID != "b" {
		t.Errorf("trace node = %s, want b", trace.Node.UUID)
	}
	if len(trace.Ancestors) != 2 {
		t.Errorf("trace has %d ancestors, want 2", len(trace.Ancestors))
	}
	// Only a -> c1 -> b; links into c2 lie outside the trace.
	if len(trace.Links) != 2 {
		t.Errorf("trace has %d links, want 2: %+v", len(trace.Links), trace.Links)
	}
}

func TestReadTrace_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadTrace(context.Background(), "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadTrace() error = %v, want sql.ErrNoRows", err)
	}
}
