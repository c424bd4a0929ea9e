package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/atomtrack/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestFloat creates a float node record with a real content hash.
func createTestFloat(uuid string, value float64, seq int64) ir.NodeRecord {
	attrs := ir.IRObject{"value": ir.IRFloat(value)}
	return ir.NodeRecord{
		UUID:       uuid,
		Type:       ir.NodeFloat,
		Attributes: attrs,
		Hash:       ir.MustNodeHash(ir.NodeFloat, attrs),
		Seq:        seq,
	}
}

// createTestCalc creates a finished calcfunction node record.
func createTestCalc(uuid, name string, seq int64) ir.NodeRecord {
	attrs := ir.IRObject{
		"function_name":  ir.IRString(name),
		"engine_version": ir.IRString(ir.EngineVersion),
		"ir_version":     ir.IRString(ir.IRVersion),
	}
	return ir.NodeRecord{
		UUID:         uuid,
		Type:         ir.NodeCalcFunction,
		Label:        name,
		Attributes:   attrs,
		Hash:         ir.MustNodeHash(ir.NodeCalcFunction, attrs),
		ProcessState: ir.ProcessFinished,
		Seq:          seq,
	}
}

// writeTestCalc stores in -> calc -> out with the given labels.
func writeTestCalc(t *testing.T, s *Store, in, calc, out ir.NodeRecord, inputLabel string) {
	t.Helper()
	_, err := s.WriteCalculation(context.Background(), Calculation{
		Nodes: []ir.NodeRecord{in, calc, out},
		Links: []ir.Link{
			{InputUUID: in.UUID, OutputUUID: calc.UUID, Type: ir.LinkInputCalc, Label: inputLabel},
			{InputUUID: calc.UUID, OutputUUID: out.UUID, Type: ir.LinkCreate, Label: ir.ResultLabel},
		},
	})
	if err != nil {
		t.Fatalf("WriteCalculation() failed: %v", err)
	}
}
