package store

import (
	"context"
	"testing"

	"github.com/roach88/atomtrack/internal/ir"
)

func TestWriteNode_Inserts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	pk, inserted, err := s.WriteNode(ctx, createTestFloat("f1", 1.5, 1))
	if err != nil {
		t.Fatalf("WriteNode() failed: %v", err)
	}
	if !inserted {
		t.Error("WriteNode() inserted = false for a new node")
	}
	if pk <= 0 {
		t.Errorf("WriteNode() pk = %d, want positive", pk)
	}
}

func TestWriteNode_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestFloat("f1", 1.5, 1)

	pk1, _, err := s.WriteNode(ctx, rec)
	if err != nil {
		t.Fatalf("first WriteNode() failed: %v", err)
	}

	// Same UUID with different content must not overwrite.
	changed := createTestFloat("f1", 99, 7)
	pk2, inserted, err := s.WriteNode(ctx, changed)
	if err != nil {
		t.Fatalf("second WriteNode() failed: %v", err)
	}
	if inserted {
		t.Error("second WriteNode() inserted = true, want false")
	}
	if pk1 != pk2 {
		t.Errorf("pk changed on rewrite: %d != %d", pk1, pk2)
	}

	got, err := s.ReadNode(ctx, "f1")
	if err != nil {
		t.Fatalf("ReadNode() failed: %v", err)
	}
	if got.Attributes["value"] != ir.IRFloat(1.5) {
		t.Errorf("stored value = %v, want 1.5", got.Attributes["value"])
	}

	count, err := s.CountNodes(ctx)
	if err != nil {
		t.Fatalf("CountNodes() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("CountNodes() = %d, want 1", count)
	}
}

func TestWriteNode_UnknownType(t *testing.T) {
	s := createTestStore(t)

	rec := createTestFloat("f1", 1, 1)
	rec.Type = "data.core.mystery"
	if _, _, err := s.WriteNode(context.Background(), rec); err == nil {
		t.Error("expected error for unknown node type")
	}
}

func TestWriteNode_NullAttribute(t *testing.T) {
	s := createTestStore(t)

	rec := createTestFloat("f1", 1, 1)
	rec.Attributes = ir.IRObject{"value": ir.IRNull{}}
	if _, _, err := s.WriteNode(context.Background(), rec); err == nil {
		t.Error("expected error for null attribute")
	}
}

func TestWriteLink_RequiresEndpoints(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, _, err := s.WriteNode(ctx, createTestFloat("f1", 1, 1)); err != nil {
		t.Fatalf("WriteNode() failed: %v", err)
	}
	err := s.WriteLink(ctx, ir.Link{InputUUID: "f1", OutputUUID: "missing", Type: ir.LinkInputCalc, Label: "node"})
	if err == nil {
		t.Error("expected error for link to missing node")
	}
}

func TestWriteLink_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, rec := range []ir.NodeRecord{createTestFloat("f1", 1, 1), createTestCalc("c1", "translate", 2)} {
		if _, _, err := s.WriteNode(ctx, rec); err != nil {
			t.Fatalf("WriteNode() failed: %v", err)
		}
	}

	link := ir.Link{InputUUID: "f1", OutputUUID: "c1", Type: ir.LinkInputCalc, Label: "node"}
	for i := 0; i < 3; i++ {
		if err := s.WriteLink(ctx, link); err != nil {
			t.Fatalf("WriteLink() #%d failed: %v", i, err)
		}
	}

	count, err := s.CountLinks(ctx)
	if err != nil {
		t.Fatalf("CountLinks() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("CountLinks() = %d, want 1", count)
	}

	// A different label between the same nodes is a distinct link.
	link.Label = "arg_00"
	if err := s.WriteLink(ctx, link); err != nil {
		t.Fatalf("WriteLink() failed: %v", err)
	}
	count, _ = s.CountLinks(ctx)
	if count != 2 {
		t.Errorf("CountLinks() = %d, want 2", count)
	}
}

func TestWriteCalculation_WritesEverything(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	writeTestCalc(t, s,
		createTestFloat("in", 1, 1),
		createTestCalc("calc", "scale", 2),
		createTestFloat("out", 2, 3),
		"node",
	)

	nodes, err := s.CountNodes(ctx)
	if err != nil {
		t.Fatalf("CountNodes() failed: %v", err)
	}
	links, err := s.CountLinks(ctx)
	if err != nil {
		t.Fatalf("CountLinks() failed: %v", err)
	}
	if nodes != 3 || links != 2 {
		t.Errorf("stored %d nodes and %d links, want 3 and 2", nodes, links)
	}
}

func TestWriteCalculation_ReusesStoredInput(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	in := createTestFloat("in", 1, 1)
	inPK, _, err := s.WriteNode(ctx, in)
	if err != nil {
		t.Fatalf("WriteNode() failed: %v", err)
	}

	calc := createTestCalc("calc", "scale", 2)
	out := createTestFloat("out", 2, 3)
	pks, err := s.WriteCalculation(ctx, Calculation{
		Nodes: []ir.NodeRecord{in, calc, out},
		Links: []ir.Link{
			{InputUUID: "in", OutputUUID: "calc", Type: ir.LinkInputCalc, Label: "node"},
			{InputUUID: "calc", OutputUUID: "out", Type: ir.LinkCreate, Label: ir.ResultLabel},
		},
	})
	if err != nil {
		t.Fatalf("WriteCalculation() failed: %v", err)
	}
	if pks["in"] != inPK {
		t.Errorf("input pk = %d, want existing %d", pks["in"], inPK)
	}
	if len(pks) != 3 {
		t.Errorf("got %d pks, want 3", len(pks))
	}
}

func TestWriteCalculation_Atomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// The second link references a node that is neither written nor stored,
	// so the whole calculation must roll back.
	_, err := s.WriteCalculation(ctx, Calculation{
		Nodes: []ir.NodeRecord{createTestFloat("in", 1, 1), createTestCalc("calc", "scale", 2)},
		Links: []ir.Link{
			{InputUUID: "in", OutputUUID: "calc", Type: ir.LinkInputCalc, Label: "node"},
			{InputUUID: "calc", OutputUUID: "ghost", Type: ir.LinkCreate, Label: ir.ResultLabel},
		},
	})
	if err == nil {
		t.Fatal("expected error for link to unknown node")
	}

	nodes, _ := s.CountNodes(ctx)
	links, _ := s.CountLinks(ctx)
	if nodes != 0 || links != 0 {
		t.Errorf("partial write left %d nodes and %d links", nodes, links)
	}
}
