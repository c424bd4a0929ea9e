package atoms

import (
	"fmt"
	"math"
	"strings"
)

// Centering names the point a rotation is performed about.
// Mode is one of "COM" (centre of mass), "COP" (centre of positions),
// "COU" (centre of the unit cell) or empty, in which case Point is used.
type Centering struct {
	Mode  string
	Point Vec3
}

// At returns a Centering about a fixed point.
func At(p Vec3) Centering {
	return Centering{Point: p}
}

// ParseCentering accepts "COM", "COP" or "COU" in any case.
func ParseCentering(s string) (Centering, error) {
	mode := strings.ToUpper(s)
	switch mode {
	case "COM", "COP", "COU":
		return Centering{Mode: mode}, nil
	}
	return Centering{}, fmt.Errorf("%w: centering %q", ErrInvalidArgument, s)
}

func (a *Atoms) centering(c Centering) (Vec3, error) {
	switch c.Mode {
	case "":
		return c.Point, nil
	case "COM":
		return a.CenterOfMass(false)
	case "COP":
		var sum Vec3
		for _, p := range a.positions {
			sum = sum.Add(p)
		}
		if len(a.positions) == 0 {
			return sum, nil
		}
		return sum.Scale(1 / float64(len(a.positions))), nil
	case "COU":
		return a.cell[0].Add(a.cell[1]).Add(a.cell[2]).Scale(0.5), nil
	}
	return Vec3{}, fmt.Errorf("%w: centering %q", ErrInvalidArgument, c.Mode)
}

// ParseAxis accepts "x", "y", "z" with an optional leading sign.
func ParseAxis(s string) (Vec3, error) {
	sign := 1.0
	switch {
	case strings.HasPrefix(s, "-"):
		sign, s = -1, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	switch strings.ToLower(s) {
	case "x":
		return Vec3{sign, 0, 0}, nil
	case "y":
		return Vec3{0, sign, 0}, nil
	case "z":
		return Vec3{0, 0, sign}, nil
	}
	return Vec3{}, fmt.Errorf("%w: axis %q", ErrInvalidArgument, s)
}

// RotateOptions configures Rotate and RotateVector.
type RotateOptions struct {
	Center     Centering
	RotateCell bool
}

// Rotate rotates the atoms by angle degrees about axis through the centre.
func (a *Atoms) Rotate(angle float64, axis Vec3, opts RotateOptions) error {
	n := axis.Norm()
	if n == 0 {
		return fmt.Errorf("%w: cannot rotate about a zero axis", ErrZeroVector)
	}
	return a.rotate(angle*math.Pi/180, axis, opts)
}

// RotateVector rotates the atoms so that from would point along to.
func (a *Atoms) RotateVector(from, to Vec3, opts RotateOptions) error {
	nf, nt := from.Norm(), to.Norm()
	if nf == 0 || nt == 0 {
		return fmt.Errorf("%w: cannot rotate a zero vector", ErrZeroVector)
	}
	v := from.Scale(1 / nf)
	v2 := to.Scale(1 / nt)
	c := v.Dot(v2)
	axis := v.Cross(v2)
	s := axis.Norm()
	const eps = 1e-7
	if s < eps {
		// Parallel vectors: any axis perpendicular to the target will do.
		axis = Vec3{0, 0, 1}.Cross(v2)
		if axis.Norm() < eps {
			axis = Vec3{1, 0, 0}.Cross(v2)
		}
	}
	return a.rotate(math.Atan2(s, c), axis, opts)
}

func (a *Atoms) rotate(rad float64, axis Vec3, opts RotateOptions) error {
	center, err := a.centering(opts.Center)
	if err != nil {
		return err
	}
	for i, p := range a.positions {
		a.positions[i] = p.Sub(center).rotateAbout(rad, axis).Add(center)
	}
	if opts.RotateCell {
		for i := range a.cell {
			a.cell[i] = a.cell[i].rotateAbout(rad, axis)
		}
	}
	return nil
}

// EulerRotate rotates the atoms by Euler angles (degrees) in the x-convention.
func (a *Atoms) EulerRotate(phi, theta, psi float64, center Centering) error {
	c, err := a.centering(center)
	if err != nil {
		return err
	}
	cp, sp := math.Cos(phi*math.Pi/180), math.Sin(phi*math.Pi/180)
	ct, st := math.Cos(theta*math.Pi/180), math.Sin(theta*math.Pi/180)
	cs, ss := math.Cos(psi*math.Pi/180), math.Sin(psi*math.Pi/180)
	d := Mat3{{cp, sp, 0}, {-sp, cp, 0}, {0, 0, 1}}
	x := Mat3{{1, 0, 0}, {0, ct, st}, {0, -st, ct}}
	b := Mat3{{cs, ss, 0}, {-ss, cs, 0}, {0, 0, 1}}
	m := b.Mul(x).Mul(d)
	for i, p := range a.positions {
		a.positions[i] = m.Apply(p.Sub(c)).Add(c)
	}
	return nil
}

// Angle returns the angle a1-a2-a3 in degrees.
func (a *Atoms) Angle(a1, a2, a3 int) (float64, error) {
	p, err := a.resolvePositions(a1, a2, a3)
	if err != nil {
		return 0, err
	}
	v12 := p[0].Sub(p[1])
	v32 := p[2].Sub(p[1])
	n12, n32 := v12.Norm(), v32.Norm()
	if n12 == 0 || n32 == 0 {
		return 0, fmt.Errorf("%w: coincident atoms in angle", ErrZeroVector)
	}
	cos := v12.Dot(v32) / (n12 * n32)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, nil
}

// Dihedral returns the dihedral angle a1-a2-a3-a4 in degrees within [0, 360).
func (a *Atoms) Dihedral(a1, a2, a3, a4 int) (float64, error) {
	p, err := a.resolvePositions(a1, a2, a3, a4)
	if err != nil {
		return 0, err
	}
	v0 := p[0].Sub(p[1])
	v1 := p[2].Sub(p[1])
	v2 := p[3].Sub(p[2])
	n1 := v1.Norm()
	if n1 == 0 {
		return 0, fmt.Errorf("%w: coincident central atoms in dihedral", ErrZeroVector)
	}
	v1n := v1.Scale(1 / n1)
	v := v0.Sub(v1n.Scale(v0.Dot(v1n)))
	w := v2.Sub(v1n.Scale(v2.Dot(v1n)))
	x := v.Dot(w)
	y := v1n.Cross(v).Dot(w)
	deg := math.Atan2(y, x) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg, nil
}

// Selection picks the atoms moved by SetDihedral, SetAngle and SetDistance.
// When both fields are empty the operation's default atom moves.
type Selection struct {
	Mask    []bool
	Indices []int
}

func (s Selection) isEmpty() bool {
	return s.Mask == nil && s.Indices == nil
}

func (a *Atoms) selectionMask(sel Selection, defaultAtom int) ([]bool, error) {
	mask := make([]bool, len(a.numbers))
	switch {
	case sel.Indices != nil:
		for _, i := range sel.Indices {
			j, err := a.index(i)
			if err != nil {
				return nil, err
			}
			mask[j] = true
		}
	case sel.Mask != nil:
		if len(sel.Mask) != len(a.numbers) {
			return nil, fmt.Errorf("%w: mask has %d entries for %d atoms", ErrLengthMismatch, len(sel.Mask), len(a.numbers))
		}
		copy(mask, sel.Mask)
	default:
		mask[defaultAtom] = true
	}
	return mask, nil
}

// SetDihedral sets the dihedral a1-a2-a3-a4 to angle degrees by rotating the
// selected atoms (a4 by default) about the a2→a3 bond.
func (a *Atoms) SetDihedral(a1, a2, a3, a4 int, angle float64, sel Selection) error {
	current, err := a.Dihedral(a1, a2, a3, a4)
	if err != nil {
		return err
	}
	idx, _ := a.resolveIndices(a1, a2, a3, a4)
	mask, err := a.selectionMask(sel, idx[3])
	if err != nil {
		return err
	}
	diff := (angle - current) * math.Pi / 180
	axis := a.positions[idx[2]].Sub(a.positions[idx[1]])
	return a.maskedRotate(a.positions[idx[2]], axis, diff, mask)
}

// RotateDihedral changes the dihedral a1-a2-a3-a4 by angle degrees.
func (a *Atoms) RotateDihedral(a1, a2, a3, a4 int, angle float64, sel Selection) error {
	start, err := a.Dihedral(a1, a2, a3, a4)
	if err != nil {
		return err
	}
	return a.SetDihedral(a1, a2, a3, a4, angle+start, sel)
}

// SetAngle sets the angle a1-a2-a3 to angle degrees (or changes it by angle
// when add is true) by rotating the selected atoms (a3 by default) about a2.
func (a *Atoms) SetAngle(a1, a2, a3 int, angle float64, sel Selection, add bool) error {
	diff := angle
	if !add {
		current, err := a.Angle(a1, a2, a3)
		if err != nil {
			return err
		}
		diff = angle - current
	}
	idx, err := a.resolveIndices(a1, a2, a3)
	if err != nil {
		return err
	}
	v10 := a.positions[idx[0]].Sub(a.positions[idx[1]])
	v12 := a.positions[idx[2]].Sub(a.positions[idx[1]])
	if v10.IsZero() || v12.IsZero() {
		return fmt.Errorf("%w: coincident atoms in angle", ErrZeroVector)
	}
	axis := v10.Scale(1 / v10.Norm()).Cross(v12.Scale(1 / v12.Norm()))
	mask, err := a.selectionMask(sel, idx[2])
	if err != nil {
		return err
	}
	return a.maskedRotate(a.positions[idx[1]], axis, diff*math.Pi/180, mask)
}

// maskedRotate rotates the masked atoms by rad radians about axis through center.
func (a *Atoms) maskedRotate(center, axis Vec3, rad float64, mask []bool) error {
	if axis.IsZero() {
		return fmt.Errorf("%w: cannot rotate about a zero axis", ErrZeroVector)
	}
	for i, m := range mask {
		if m {
			a.positions[i] = a.positions[i].Sub(center).rotateAbout(rad, axis).Add(center)
		}
	}
	return nil
}

// DistanceOptions configures SetDistance.
type DistanceOptions struct {
	// Fix is the fraction of the change applied to a0; the rest moves the other atoms.
	Fix float64
	// MIC uses the minimum-image convention for the current distance.
	MIC       bool
	Selection Selection
	// Add changes the distance by the given amount instead of setting it.
	Add bool
	// Factor, with Add, scales the distance instead of adding to it.
	Factor bool
}

// DefaultDistanceOptions moves both atoms by half the change.
func DefaultDistanceOptions() DistanceOptions {
	return DistanceOptions{Fix: 0.5}
}

// SetDistance sets the distance between a0 and a1.
func (a *Atoms) SetDistance(a0, a1 int, distance float64, opts DistanceOptions) error {
	idx, err := a.resolveIndices(a0, a1)
	if err != nil {
		return err
	}
	if idx[0] == idx[1] {
		return fmt.Errorf("%w: a0 and a1 must not be the same", ErrInvalidArgument)
	}
	d := a.positions[idx[1]].Sub(a.positions[idx[0]])
	if opts.MIC {
		d, err = a.minimumImage(d)
		if err != nil {
			return err
		}
	}
	length := d.Norm()
	if length == 0 {
		return fmt.Errorf("%w: atoms %d and %d coincide", ErrZeroVector, a0, a1)
	}
	if opts.Add {
		if opts.Factor {
			distance *= length
		} else {
			distance += length
		}
	}
	x := 1 - distance/length

	var moved []int
	switch {
	case opts.Selection.isEmpty():
		moved = idx
	case opts.Selection.Mask != nil:
		if len(opts.Selection.Mask) != len(a.numbers) {
			return fmt.Errorf("%w: mask has %d entries for %d atoms", ErrLengthMismatch, len(opts.Selection.Mask), len(a.numbers))
		}
		for i, m := range opts.Selection.Mask {
			if m {
				moved = append(moved, i)
			}
		}
	default:
		moved, err = a.resolveIndices(opts.Selection.Indices...)
		if err != nil {
			return err
		}
	}
	for _, i := range moved {
		if i == idx[0] {
			a.positions[i] = a.positions[i].Add(d.Scale(x * opts.Fix))
		} else {
			a.positions[i] = a.positions[i].Sub(d.Scale(x * (1 - opts.Fix)))
		}
	}
	return nil
}

// minimumImage returns the shortest periodic image of the vector d.
func (a *Atoms) minimumImage(d Vec3) (Vec3, error) {
	cell := completeCell(a.cell)
	inv, err := cell.Inverse()
	if err != nil {
		return Vec3{}, err
	}
	f := inv.RowTimes(d)
	for k := 0; k < 3; k++ {
		if a.pbc[k] {
			f[k] -= math.Round(f[k])
		}
	}
	base := cell.RowTimes(f)
	best := base
	ranges := [3][]float64{{0}, {0}, {0}}
	for k := 0; k < 3; k++ {
		if a.pbc[k] {
			ranges[k] = []float64{-1, 0, 1}
		}
	}
	for _, i := range ranges[0] {
		for _, j := range ranges[1] {
			for _, k := range ranges[2] {
				cand := base.Add(cell.RowTimes(Vec3{i, j, k}))
				if cand.Norm() < best.Norm() {
					best = cand
				}
			}
		}
	}
	return best, nil
}

func (a *Atoms) resolveIndices(indices ...int) ([]int, error) {
	out := make([]int, len(indices))
	for k, i := range indices {
		j, err := a.index(i)
		if err != nil {
			return nil, err
		}
		out[k] = j
	}
	return out, nil
}

func (a *Atoms) resolvePositions(indices ...int) ([]Vec3, error) {
	idx, err := a.resolveIndices(indices...)
	if err != nil {
		return nil, err
	}
	out := make([]Vec3, len(idx))
	for k, i := range idx {
		out[k] = a.positions[i]
	}
	return out, nil
}
