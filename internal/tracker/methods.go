package tracker

import "context"

// Typed entry points for every operation. Required arguments are positional;
// optional ones are passed as keyword arguments, e.g.
//
//	t.SetCell(ctx, []float64{5, 5, 5}, KW("scale_atoms", true))

// SetCell replaces the cell (3 lengths, 6 parameters or a 3×3 matrix).
// Keywords: scale_atoms.
func (t *Tracker) SetCell(ctx context.Context, cell any, kwargs ...Kwarg) (*Tracker, error) {
	return t.Apply(ctx, "set_cell", []any{cell}, kwargs...)
}

// SetPositions replaces all Cartesian positions.
func (t *Tracker) SetPositions(ctx context.Context, positions any) (*Tracker, error) {
	return t.Apply(ctx, "set_positions", []any{positions})
}

// SetPBC sets periodic boundary flags from one bool or three.
func (t *Tracker) SetPBC(ctx context.Context, pbc any) (*Tracker, error) {
	return t.Apply(ctx, "set_pbc", []any{pbc})
}

// SetAtomicNumbers replaces all atomic numbers.
func (t *Tracker) SetAtomicNumbers(ctx context.Context, numbers any) (*Tracker, error) {
	return t.Apply(ctx, "set_atomic_numbers", []any{numbers})
}

// SetChemicalSymbols replaces all elements by symbol.
func (t *Tracker) SetChemicalSymbols(ctx context.Context, symbols any) (*Tracker, error) {
	return t.Apply(ctx, "set_chemical_symbols", []any{symbols})
}

// SetMasses sets explicit masses; nil restores the standard ones.
func (t *Tracker) SetMasses(ctx context.Context, masses any) (*Tracker, error) {
	return t.Apply(ctx, "set_masses", []any{masses})
}

// Pop removes the atom at index i (negative counts from the end).
func (t *Tracker) Pop(ctx context.Context, i int) (*Tracker, error) {
	return t.Apply(ctx, "pop", []any{i})
}

// Translate shifts all atoms by one vector, or each atom by its own.
func (t *Tracker) Translate(ctx context.Context, displacement any) (*Tracker, error) {
	return t.Apply(ctx, "translate", []any{displacement})
}

// Center centres the atoms in the cell. Keywords: vacuum, axis, about.
func (t *Tracker) Center(ctx context.Context, kwargs ...Kwarg) (*Tracker, error) {
	return t.Apply(ctx, "center", nil, kwargs...)
}

// SetCenterOfMass moves the atoms so their centre of mass is com.
// Keywords: scaled.
func (t *Tracker) SetCenterOfMass(ctx context.Context, com any, kwargs ...Kwarg) (*Tracker, error) {
	return t.Apply(ctx, "set_center_of_mass", []any{com}, kwargs...)
}

// Rotate rotates by a degrees about v, or rotates vector a onto vector v.
// Keywords: center, rotate_cell.
func (t *Tracker) Rotate(ctx context.Context, a, v any, kwargs ...Kwarg) (*Tracker, error) {
	return t.Apply(ctx, "rotate", []any{a, v}, kwargs...)
}

// EulerRotate rotates by Euler angles in degrees. Keywords: center.
func (t *Tracker) EulerRotate(ctx context.Context, phi, theta, psi float64, kwargs ...Kwarg) (*Tracker, error) {
	return t.Apply(ctx, "euler_rotate", []any{phi, theta, psi}, kwargs...)
}

// SetDihedral sets the dihedral a1-a2-a3-a4 to angle degrees.
// Keywords: mask, indices.
func (t *Tracker) SetDihedral(ctx context.Context, a1, a2, a3, a4 int, angle float64, kwargs ...Kwarg) (*Tracker, error) {
	return t.Apply(ctx, "set_dihedral", []any{a1, a2, a3, a4, angle}, kwargs...)
}

// RotateDihedral changes the dihedral a1-a2-a3-a4 by angle degrees.
// Keywords: mask, indices.
func (t *Tracker) RotateDihedral(ctx context.Context, a1, a2, a3, a4 int, angle float64, kwargs ...Kwarg) (*Tracker, error) {
	return t.Apply(ctx, "rotate_dihedral", []any{a1, a2, a3, a4, angle}, kwargs...)
}

// SetAngle sets the angle a1-a2-a3 to angle degrees.
// Keywords: mask, indices, add.
func (t *Tracker) SetAngle(ctx context.Context, a1, a2, a3 int, angle float64, kwargs ...Kwarg) (*Tracker, error) {
	return t.Apply(ctx, "set_angle", []any{a1, a2, a3, angle}, kwargs...)
}

// Rattle displaces every atom by Gaussian noise. Keywords: stdev, seed.
func (t *Tracker) Rattle(ctx context.Context, kwargs ...Kwarg) (*Tracker, error) {
	return t.Apply(ctx, "rattle", nil, kwargs...)
}

// SetDistance sets the distance between atoms a0 and a1.
// Keywords: fix, mic, mask, indices, add, factor.
func (t *Tracker) SetDistance(ctx context.Context, a0, a1 int, distance float64, kwargs ...Kwarg) (*Tracker, error) {
	return t.Apply(ctx, "set_distance", []any{a0, a1, distance}, kwargs...)
}

// SetScaledPositions replaces all fractional positions.
func (t *Tracker) SetScaledPositions(ctx context.Context, scaled any) (*Tracker, error) {
	return t.Apply(ctx, "set_scaled_positions", []any{scaled})
}

// Wrap moves atoms back into the cell. Keywords: pbc, center, eps.
func (t *Tracker) Wrap(ctx context.Context, kwargs ...Kwarg) (*Tracker, error) {
	return t.Apply(ctx, "wrap", nil, kwargs...)
}

// DeleteItem removes atoms by index, index list, mask or Slice.
func (t *Tracker) DeleteItem(ctx context.Context, i any) (*Tracker, error) {
	return t.Apply(ctx, "delete_item", []any{i})
}

// RepeatInPlace tiles the structure in place by one or three factors.
func (t *Tracker) RepeatInPlace(ctx context.Context, m any) (*Tracker, error) {
	return t.Apply(ctx, "repeat_in_place", []any{m})
}

// Repeat returns a new tracker holding the tiled structure.
func (t *Tracker) Repeat(ctx context.Context, rep any) (*Tracker, error) {
	return t.Apply(ctx, "repeat", []any{rep})
}

// IndexAccess returns a new tracker holding the selected atoms. An int
// selects a single atom.
func (t *Tracker) IndexAccess(ctx context.Context, i any) (*Tracker, error) {
	return t.Apply(ctx, "index_access", []any{i})
}

// Replicate is Repeat under the name of the multiplication operator.
func (t *Tracker) Replicate(ctx context.Context, m any) (*Tracker, error) {
	return t.Apply(ctx, "replicate", []any{m})
}
