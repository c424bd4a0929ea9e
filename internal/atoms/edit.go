package atoms

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"
)

// SetCell replaces the cell. With scaleAtoms the positions follow the cell
// so that fractional coordinates are preserved.
func (a *Atoms) SetCell(cell Mat3, scaleAtoms bool) error {
	if scaleAtoms {
		inv, err := completeCell(a.cell).Inverse()
		if err != nil {
			return err
		}
		m := inv.Mul(completeCell(cell))
		for i, p := range a.positions {
			a.positions[i] = m.RowTimes(p)
		}
	}
	a.cell = cell
	return nil
}

// SetPositions replaces all Cartesian positions.
func (a *Atoms) SetPositions(positions []Vec3) error {
	if len(positions) != len(a.positions) {
		return fmt.Errorf("%w: got %d positions for %d atoms", ErrLengthMismatch, len(positions), len(a.positions))
	}
	copy(a.positions, positions)
	return nil
}

// SetPBC sets the periodic boundary flags.
func (a *Atoms) SetPBC(pbc [3]bool) {
	a.pbc = pbc
}

// SetAtomicNumbers replaces all atomic numbers. Explicit masses are kept.
func (a *Atoms) SetAtomicNumbers(numbers []int) error {
	if len(numbers) != len(a.numbers) {
		return fmt.Errorf("%w: got %d numbers for %d atoms", ErrLengthMismatch, len(numbers), len(a.numbers))
	}
	for _, z := range numbers {
		if _, err := ChemicalSymbol(z); err != nil {
			return err
		}
	}
	copy(a.numbers, numbers)
	return nil
}

// SetChemicalSymbols replaces all atomic numbers by symbol.
func (a *Atoms) SetChemicalSymbols(symbols []string) error {
	numbers := make([]int, len(symbols))
	for i, s := range symbols {
		z, err := AtomicNumber(s)
		if err != nil {
			return err
		}
		numbers[i] = z
	}
	return a.SetAtomicNumbers(numbers)
}

// SetMasses sets explicit masses. A nil slice restores the standard masses.
func (a *Atoms) SetMasses(masses []float64) error {
	if masses == nil {
		a.masses = nil
		return nil
	}
	if len(masses) != len(a.numbers) {
		return fmt.Errorf("%w: got %d masses for %d atoms", ErrLengthMismatch, len(masses), len(a.numbers))
	}
	a.masses = slices.Clone(masses)
	return nil
}

// Pop removes and returns the atom at index i.
func (a *Atoms) Pop(i int) (Atom, error) {
	j, err := a.index(i)
	if err != nil {
		return Atom{}, err
	}
	atom := Atom{
		Number:   a.numbers[j],
		Symbol:   chemicalSymbols[a.numbers[j]],
		Position: a.positions[j],
		Mass:     a.Masses()[j],
	}
	a.removeAt([]int{j})
	return atom, nil
}

// Translate shifts every atom by d.
func (a *Atoms) Translate(d Vec3) {
	for i := range a.positions {
		a.positions[i] = a.positions[i].Add(d)
	}
}

// TranslateEach shifts atom i by d[i].
func (a *Atoms) TranslateEach(d []Vec3) error {
	if len(d) != len(a.positions) {
		return fmt.Errorf("%w: got %d displacements for %d atoms", ErrLengthMismatch, len(d), len(a.positions))
	}
	for i := range a.positions {
		a.positions[i] = a.positions[i].Add(d[i])
	}
	return nil
}

// CenterOptions configures Center.
type CenterOptions struct {
	// Vacuum, when set, resizes the cell so each centred axis has this much
	// space on both sides of the atoms.
	Vacuum *float64
	// Axes lists the cell axes to centre along; empty means all three.
	Axes []int
	// About, when set, centres the atoms about this point instead of the cell centre.
	About *Vec3
}

// Center centres the atoms in the cell along the selected axes.
func (a *Atoms) Center(opts CenterOptions) error {
	axes := opts.Axes
	if len(axes) == 0 {
		axes = []int{0, 1, 2}
	}
	for _, ax := range axes {
		if ax < 0 || ax > 2 {
			return fmt.Errorf("%w: axis %d", ErrInvalidArgument, ax)
		}
	}

	cell := completeCell(a.cell)
	var dirs Mat3
	var lengths Vec3
	for i := 0; i < 3; i++ {
		d := cell[(i+1)%3].Cross(cell[(i+2)%3])
		d = d.Scale(1 / d.Norm())
		if d.Dot(cell[i]) < 0 {
			d = d.Scale(-1)
		}
		dirs[i] = d
		lengths[i] = cell[i].Norm()
	}

	var longer, shift Vec3
	for _, i := range axes {
		var p0, p1 float64
		for k, p := range a.positions {
			s := p.Dot(dirs[i])
			if k == 0 || s < p0 {
				p0 = s
			}
			if k == 0 || s > p1 {
				p1 = s
			}
		}
		height := cell[i].Dot(dirs[i])
		var lng float64
		if opts.Vacuum != nil {
			lng = (p1 - p0 + 2*(*opts.Vacuum)) - height
		}
		top := lng + height - p1
		shf := 0.5 * (top - p0)
		cosphi := cell[i].Dot(dirs[i]) / lengths[i]
		longer[i] = lng / cosphi
		shift[i] = shf / cosphi
	}

	var translation Vec3
	for _, i := range axes {
		if opts.Vacuum != nil {
			a.cell[i] = cell[i].Scale(1 + longer[i]/lengths[i])
		}
		translation = translation.Add(cell[i].Scale(shift[i] / lengths[i]))
		// Axes without a lattice vector were centred along a unit stand-in vector.
		if a.cell[i].IsZero() {
			translation[i] -= 0.5
		}
	}
	a.Translate(translation)

	if opts.About != nil {
		for _, v := range a.cell {
			a.Translate(v.Scale(-0.5))
		}
		a.Translate(*opts.About)
	}
	return nil
}

// SetCenterOfMass moves the atoms rigidly so their centre of mass is com.
func (a *Atoms) SetCenterOfMass(com Vec3, scaled bool) error {
	old, err := a.CenterOfMass(scaled)
	if err != nil {
		return err
	}
	diff := old.Sub(com)
	if !scaled {
		a.Translate(diff.Scale(-1))
		return nil
	}
	fractional, err := a.ScaledPositions()
	if err != nil {
		return err
	}
	for i := range fractional {
		fractional[i] = fractional[i].Sub(diff)
	}
	return a.SetScaledPositions(fractional)
}

// SetScaledPositions sets positions from fractional coordinates of the cell.
func (a *Atoms) SetScaledPositions(scaled []Vec3) error {
	if len(scaled) != len(a.positions) {
		return fmt.Errorf("%w: got %d positions for %d atoms", ErrLengthMismatch, len(scaled), len(a.positions))
	}
	for i, s := range scaled {
		a.positions[i] = a.cell.RowTimes(s)
	}
	return nil
}

// Rattle displaces every coordinate by a normally distributed amount with
// standard deviation stdev, using a generator seeded with seed.
func (a *Atoms) Rattle(stdev float64, seed uint64) {
	noise := distuv.Normal{Mu: 0, Sigma: stdev, Src: rand.NewPCG(seed, seed)}
	for i := range a.positions {
		for k := 0; k < 3; k++ {
			a.positions[i][k] += noise.Rand()
		}
	}
}

// WrapOptions configures Wrap.
type WrapOptions struct {
	// PBC selects the directions to wrap; nil uses the structure's own flags.
	PBC *[3]bool
	// Center is the fractional centre of the wrapping window.
	Center Vec3
	// Eps nudges atoms sitting exactly on the upper boundary back into the cell.
	Eps float64
}

// DefaultWrapOptions wraps into [0, 1) along the structure's periodic directions.
func DefaultWrapOptions() WrapOptions {
	return WrapOptions{Center: Vec3{0.5, 0.5, 0.5}, Eps: 1e-7}
}

// Wrap moves atoms outside the cell back inside along periodic directions.
func (a *Atoms) Wrap(opts WrapOptions) error {
	pbc := a.pbc
	if opts.PBC != nil {
		pbc = *opts.PBC
	}
	var shift Vec3
	for k := 0; k < 3; k++ {
		if pbc[k] {
			shift[k] = opts.Center[k] - 0.5 - opts.Eps
		}
	}
	cell := completeCell(a.cell)
	inv, err := cell.Inverse()
	if err != nil {
		return err
	}
	for i, p := range a.positions {
		f := inv.RowTimes(p).Sub(shift)
		for k := 0; k < 3; k++ {
			if pbc[k] {
				f[k] -= math.Floor(f[k])
				f[k] += shift[k]
			}
		}
		a.positions[i] = cell.RowTimes(f)
	}
	return nil
}

// Delete removes the atoms at the given (possibly negative) indices.
func (a *Atoms) Delete(indices []int) error {
	resolved := make([]int, 0, len(indices))
	for _, i := range indices {
		j, err := a.index(i)
		if err != nil {
			return err
		}
		resolved = append(resolved, j)
	}
	a.removeAt(resolved)
	return nil
}

func (a *Atoms) removeAt(indices []int) {
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}
	keep := 0
	for i := range a.numbers {
		if drop[i] {
			continue
		}
		a.numbers[keep] = a.numbers[i]
		a.positions[keep] = a.positions[i]
		if a.masses != nil {
			a.masses[keep] = a.masses[i]
		}
		keep++
	}
	a.numbers = a.numbers[:keep]
	a.positions = a.positions[:keep]
	if a.masses != nil {
		a.masses = a.masses[:keep]
	}
}
