package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/atomtrack/internal/engine"
	"github.com/roach88/atomtrack/internal/store"
)

// NewStore opens a store in a fresh temp dir and closes it on cleanup.
func NewStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// NewEngine returns an engine over a fresh store. The clock starts at 0, so
// the first stored node gets seq 1.
func NewEngine(t testing.TB, opts ...engine.EngineOption) (*engine.Engine, *store.Store) {
	t.Helper()
	s := NewStore(t)
	return engine.New(s, opts...), s
}
