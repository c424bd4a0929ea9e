package atoms

import "fmt"

// RepeatInPlace tiles the structure m[0]×m[1]×m[2] times along the lattice
// vectors and scales the cell accordingly.
func (a *Atoms) RepeatInPlace(m [3]int) error {
	for k, x := range m {
		if x < 0 {
			return fmt.Errorf("%w: negative repeat %d along axis %d", ErrInvalidArgument, x, k)
		}
		if x != 1 && a.cell[k].IsZero() {
			return fmt.Errorf("%w: cannot repeat along undefined lattice vector %d", ErrInvalidArgument, k)
		}
	}
	n := len(a.numbers)
	total := m[0] * m[1] * m[2]
	numbers := make([]int, 0, n*total)
	positions := make([]Vec3, 0, n*total)
	var masses []float64
	if a.masses != nil {
		masses = make([]float64, 0, n*total)
	}
	for i0 := 0; i0 < m[0]; i0++ {
		for i1 := 0; i1 < m[1]; i1++ {
			for i2 := 0; i2 < m[2]; i2++ {
				offset := a.cell.RowTimes(Vec3{float64(i0), float64(i1), float64(i2)})
				numbers = append(numbers, a.numbers...)
				for _, p := range a.positions {
					positions = append(positions, p.Add(offset))
				}
				if a.masses != nil {
					masses = append(masses, a.masses...)
				}
			}
		}
	}
	a.numbers = numbers
	a.positions = positions
	a.masses = masses
	for k := 0; k < 3; k++ {
		a.cell[k] = a.cell[k].Scale(float64(m[k]))
	}
	return nil
}

// Repeat returns a tiled copy; the receiver is unchanged.
func (a *Atoms) Repeat(m [3]int) (*Atoms, error) {
	out := a.Copy()
	if err := out.RepeatInPlace(m); err != nil {
		return nil, err
	}
	return out, nil
}

// Select returns a new structure holding the atoms at the given indices, in
// that order. Cell and periodicity are carried over.
func (a *Atoms) Select(indices []int) (*Atoms, error) {
	idx, err := a.resolveIndices(indices...)
	if err != nil {
		return nil, err
	}
	out := &Atoms{
		numbers:   make([]int, len(idx)),
		positions: make([]Vec3, len(idx)),
		cell:      a.cell,
		pbc:       a.pbc,
	}
	if a.masses != nil {
		out.masses = make([]float64, len(idx))
	}
	for k, i := range idx {
		out.numbers[k] = a.numbers[i]
		out.positions[k] = a.positions[i]
		if a.masses != nil {
			out.masses[k] = a.masses[i]
		}
	}
	return out, nil
}

// SelectMask returns a new structure holding the atoms where mask is true.
func (a *Atoms) SelectMask(mask []bool) (*Atoms, error) {
	if len(mask) != len(a.numbers) {
		return nil, fmt.Errorf("%w: mask has %d entries for %d atoms", ErrLengthMismatch, len(mask), len(a.numbers))
	}
	var idx []int
	for i, m := range mask {
		if m {
			idx = append(idx, i)
		}
	}
	return a.Select(idx)
}

// SelectRange returns the atoms in [start, stop) stepping by a positive step,
// with negative bounds counting from the end.
func (a *Atoms) SelectRange(start, stop, step int) (*Atoms, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: slice step must be positive, got %d", ErrInvalidArgument, step)
	}
	n := len(a.numbers)
	clamp := func(v int) int {
		if v < 0 {
			v += n
		}
		return max(0, min(n, v))
	}
	idx := []int{}
	for i := clamp(start); i < clamp(stop); i += step {
		idx = append(idx, i)
	}
	return a.Select(idx)
}
