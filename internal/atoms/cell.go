package atoms

import (
	"fmt"
	"math"
)

// CellFromLengths returns an orthorhombic cell with the given edge lengths.
func CellFromLengths(a, b, c float64) Mat3 {
	return Mat3{{a, 0, 0}, {0, b, 0}, {0, 0, c}}
}

// CellFromParameters builds a cell from lengths (a, b, c) and angles (alpha, beta, gamma)
// in degrees. The first vector lies along x and the second in the xy-plane.
func CellFromParameters(a, b, c, alpha, beta, gamma float64) (Mat3, error) {
	cosA, _ := cosSinDeg(alpha)
	cosB, _ := cosSinDeg(beta)
	cosG, sinG := cosSinDeg(gamma)
	if sinG == 0 {
		return Mat3{}, fmt.Errorf("%w: gamma must not be 0 or 180 degrees", ErrInvalidArgument)
	}
	cx := cosB
	cy := (cosA - cosB*cosG) / sinG
	czSq := 1 - cx*cx - cy*cy
	if czSq < 0 {
		return Mat3{}, fmt.Errorf("%w: cell angles (%g, %g, %g) are inconsistent", ErrInvalidArgument, alpha, beta, gamma)
	}
	return Mat3{
		{a, 0, 0},
		{b * cosG, b * sinG, 0},
		{c * cx, c * cy, c * math.Sqrt(czSq)},
	}, nil
}

// cosSinDeg returns exact zeros for right angles so orthogonal cells stay exact.
func cosSinDeg(deg float64) (float64, float64) {
	switch deg {
	case 90:
		return 0, 1
	case -90:
		return 0, -1
	}
	r := deg * math.Pi / 180
	return math.Cos(r), math.Sin(r)
}

// completeCell replaces missing (all-zero) lattice vectors with unit vectors
// orthogonal to the existing ones, keeping a right-handed basis.
func completeCell(cell Mat3) Mat3 {
	var missing []int
	for i := 0; i < 3; i++ {
		if cell[i].IsZero() {
			missing = append(missing, i)
		}
	}
	switch len(missing) {
	case 3:
		return Identity()
	case 2:
		k := 3 - missing[0] - missing[1]
		u := cell[k].Scale(1 / cell[k].Norm())
		trial := Vec3{1, 0, 0}
		if math.Abs(u.Dot(trial)) > 0.9 {
			trial = Vec3{0, 1, 0}
		}
		e1 := trial.Sub(u.Scale(u.Dot(trial)))
		e1 = e1.Scale(1 / e1.Norm())
		e2 := u.Cross(e1)
		out := cell
		// Cyclic order k, k+1, k+2 keeps the handedness of (u, e1, e2).
		out[(k+1)%3] = e1
		out[(k+2)%3] = e2
		return out
	case 1:
		i := missing[0]
		v := cell[(i+1)%3].Cross(cell[(i+2)%3])
		out := cell
		out[i] = v.Scale(1 / v.Norm())
		return out
	}
	return cell
}

// ParseCell builds a cell from 3 lengths, 6 cell parameters or a flattened 3×3 matrix.
func ParseCell(values []float64) (Mat3, error) {
	switch len(values) {
	case 3:
		return CellFromLengths(values[0], values[1], values[2]), nil
	case 6:
		return CellFromParameters(values[0], values[1], values[2], values[3], values[4], values[5])
	case 9:
		return Mat3{
			{values[0], values[1], values[2]},
			{values[3], values[4], values[5]},
			{values[6], values[7], values[8]},
		}, nil
	}
	return Mat3{}, fmt.Errorf("%w: cell needs 3, 6 or 9 numbers, got %d", ErrInvalidArgument, len(values))
}
