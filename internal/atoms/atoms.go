package atoms

import (
	"fmt"
	"math"
	"slices"
)

// Atoms is a collection of atoms with an optional periodic cell.
type Atoms struct {
	numbers   []int
	positions []Vec3
	cell      Mat3
	pbc       [3]bool

	// masses is nil until explicitly set; nil means standard masses.
	masses []float64
}

// Atom is a single atom as returned by Pop.
type Atom struct {
	Number   int
	Symbol   string
	Position Vec3
	Mass     float64
}

// Option configures a new Atoms value.
type Option func(*Atoms) error

// WithCell sets the cell (rows are lattice vectors).
func WithCell(cell Mat3) Option {
	return func(a *Atoms) error {
		a.cell = cell
		return nil
	}
}

// WithPBC sets the periodic boundary flags.
func WithPBC(pbc [3]bool) Option {
	return func(a *Atoms) error {
		a.pbc = pbc
		return nil
	}
}

// WithMasses sets explicit per-atom masses.
func WithMasses(masses []float64) Option {
	return func(a *Atoms) error {
		return a.SetMasses(masses)
	}
}

// New builds an Atoms value from chemical symbols and Cartesian positions.
func New(symbols []string, positions []Vec3, opts ...Option) (*Atoms, error) {
	numbers := make([]int, len(symbols))
	for i, s := range symbols {
		z, err := AtomicNumber(s)
		if err != nil {
			return nil, err
		}
		numbers[i] = z
	}
	return NewFromNumbers(numbers, positions, opts...)
}

// NewFromNumbers builds an Atoms value from atomic numbers and Cartesian positions.
func NewFromNumbers(numbers []int, positions []Vec3, opts ...Option) (*Atoms, error) {
	if len(numbers) != len(positions) {
		return nil, fmt.Errorf("%w: %d numbers, %d positions", ErrLengthMismatch, len(numbers), len(positions))
	}
	for _, z := range numbers {
		if _, err := ChemicalSymbol(z); err != nil {
			return nil, err
		}
	}
	a := &Atoms{
		numbers:   slices.Clone(numbers),
		positions: slices.Clone(positions),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Len returns the number of atoms.
func (a *Atoms) Len() int {
	return len(a.numbers)
}

// Copy returns a deep copy.
func (a *Atoms) Copy() *Atoms {
	return &Atoms{
		numbers:   slices.Clone(a.numbers),
		positions: slices.Clone(a.positions),
		cell:      a.cell,
		pbc:       a.pbc,
		masses:    slices.Clone(a.masses),
	}
}

// Numbers returns a copy of the atomic numbers.
func (a *Atoms) Numbers() []int {
	return slices.Clone(a.numbers)
}

// Symbols returns the chemical symbols.
func (a *Atoms) Symbols() []string {
	out := make([]string, len(a.numbers))
	for i, z := range a.numbers {
		out[i] = chemicalSymbols[z]
	}
	return out
}

// Positions returns a copy of the Cartesian positions.
func (a *Atoms) Positions() []Vec3 {
	return slices.Clone(a.positions)
}

// Cell returns the cell matrix.
func (a *Atoms) Cell() Mat3 {
	return a.cell
}

// PBC returns the periodic boundary flags.
func (a *Atoms) PBC() [3]bool {
	return a.pbc
}

// HasExplicitMasses reports whether masses were set explicitly.
func (a *Atoms) HasExplicitMasses() bool {
	return a.masses != nil
}

// Masses returns per-atom masses, falling back to standard masses.
func (a *Atoms) Masses() []float64 {
	if a.masses != nil {
		return slices.Clone(a.masses)
	}
	out := make([]float64, len(a.numbers))
	for i, z := range a.numbers {
		out[i] = atomicMasses[z]
	}
	return out
}

// ScaledPositions returns positions in fractional coordinates of the completed cell.
func (a *Atoms) ScaledPositions() ([]Vec3, error) {
	inv, err := completeCell(a.cell).Inverse()
	if err != nil {
		return nil, err
	}
	out := make([]Vec3, len(a.positions))
	for i, p := range a.positions {
		out[i] = inv.RowTimes(p)
	}
	return out, nil
}

// CenterOfMass returns the mass-weighted centre, optionally in fractional coordinates.
func (a *Atoms) CenterOfMass(scaled bool) (Vec3, error) {
	masses := a.Masses()
	var com Vec3
	var total float64
	for i, p := range a.positions {
		com = com.Add(p.Scale(masses[i]))
		total += masses[i]
	}
	if total == 0 {
		return Vec3{}, fmt.Errorf("%w: total mass is zero", ErrInvalidArgument)
	}
	com = com.Scale(1 / total)
	if !scaled {
		return com, nil
	}
	inv, err := completeCell(a.cell).Inverse()
	if err != nil {
		return Vec3{}, err
	}
	return inv.RowTimes(com), nil
}

// Distance returns the distance between two atoms.
func (a *Atoms) Distance(i, j int) (float64, error) {
	ii, err := a.index(i)
	if err != nil {
		return 0, err
	}
	jj, err := a.index(j)
	if err != nil {
		return 0, err
	}
	return a.positions[jj].Sub(a.positions[ii]).Norm(), nil
}

// Equal reports whether two structures have the same numbers, positions, cell and pbc.
// Masses are not compared.
func (a *Atoms) Equal(b *Atoms) bool {
	if a == nil || b == nil {
		return a == b
	}
	return slices.Equal(a.numbers, b.numbers) &&
		slices.Equal(a.positions, b.positions) &&
		a.cell == b.cell &&
		a.pbc == b.pbc
}

// AlmostEqual is Equal with an absolute tolerance on positions and cell.
func (a *Atoms) AlmostEqual(b *Atoms, tol float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !slices.Equal(a.numbers, b.numbers) || a.pbc != b.pbc {
		return false
	}
	for i := range a.positions {
		if !vecClose(a.positions[i], b.positions[i], tol) {
			return false
		}
	}
	for i := 0; i < 3; i++ {
		if !vecClose(a.cell[i], b.cell[i], tol) {
			return false
		}
	}
	return true
}

// String returns a compact formula-style description.
func (a *Atoms) String() string {
	return fmt.Sprintf("Atoms(symbols=%s, pbc=%v)", a.Formula(), a.pbc)
}

// Formula returns the chemical formula in order of first appearance, e.g. "H2O".
func (a *Atoms) Formula() string {
	var order []int
	counts := make(map[int]int)
	for _, z := range a.numbers {
		if counts[z] == 0 {
			order = append(order, z)
		}
		counts[z]++
	}
	var out string
	for _, z := range order {
		out += chemicalSymbols[z]
		if counts[z] > 1 {
			out += fmt.Sprintf("%d", counts[z])
		}
	}
	return out
}

// index resolves a possibly negative atom index.
func (a *Atoms) index(i int) (int, error) {
	n := len(a.numbers)
	j := i
	if j < 0 {
		j += n
	}
	if j < 0 || j >= n {
		return 0, fmt.Errorf("%w: index %d for %d atoms", ErrIndexOutOfRange, i, n)
	}
	return j, nil
}

func vecClose(v, w Vec3, tol float64) bool {
	for k := 0; k < 3; k++ {
		if math.Abs(v[k]-w[k]) > tol {
			return false
		}
	}
	return true
}
