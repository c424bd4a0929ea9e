package testutil

import (
	"testing"

	"github.com/roach88/atomtrack/internal/atoms"
)

// Dimer returns two hydrogen atoms 0.74 Å apart along z in a 10 Å cubic cell.
func Dimer(t testing.TB) *atoms.Atoms {
	t.Helper()
	return mustAtoms(t, []string{"H", "H"},
		[]atoms.Vec3{{0, 0, 0}, {0, 0, 0.74}},
		atoms.WithCell(atoms.CellFromLengths(10, 10, 10)),
		atoms.WithPBC([3]bool{true, true, true}),
	)
}

// Water returns an H2O molecule with a bond angle of about 104.5°.
func Water(t testing.TB) *atoms.Atoms {
	t.Helper()
	return mustAtoms(t, []string{"O", "H", "H"},
		[]atoms.Vec3{
			{0, 0, 0},
			{0.7572, 0.5865, 0},
			{-0.7572, 0.5865, 0},
		},
		atoms.WithCell(atoms.CellFromLengths(8, 8, 8)),
	)
}

func mustAtoms(t testing.TB, symbols []string, positions []atoms.Vec3, opts ...atoms.Option) *atoms.Atoms {
	t.Helper()
	a, err := atoms.New(symbols, positions, opts...)
	if err != nil {
		t.Fatalf("build structure: %v", err)
	}
	return a
}
