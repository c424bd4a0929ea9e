package atoms

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a Cartesian vector. It is an array so literals and indexing stay
// short; arithmetic goes through r3.Vec.
type Vec3 [3]float64

func (v Vec3) toR3() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

func fromR3(p r3.Vec) Vec3 { return Vec3{p.X, p.Y, p.Z} }

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 { return fromR3(r3.Add(v.toR3(), w.toR3())) }

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 { return fromR3(r3.Sub(v.toR3(), w.toR3())) }

// Scale returns s * v.
func (v Vec3) Scale(s float64) Vec3 { return fromR3(r3.Scale(s, v.toR3())) }

// Dot returns the scalar product.
func (v Vec3) Dot(w Vec3) float64 { return r3.Dot(v.toR3(), w.toR3()) }

// Cross returns the vector product v × w.
func (v Vec3) Cross(w Vec3) Vec3 { return fromR3(r3.Cross(v.toR3(), w.toR3())) }

// Norm returns the Euclidean length.
func (v Vec3) Norm() float64 { return r3.Norm(v.toR3()) }

// IsZero reports whether all components are exactly zero.
func (v Vec3) IsZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// rotateAbout rotates v by rad radians about axis, right-handed.
func (v Vec3) rotateAbout(rad float64, axis Vec3) Vec3 {
	return fromR3(r3.Rotate(v.toR3(), rad, axis.toR3()))
}

// Mat3 is a 3×3 matrix stored row-major.
type Mat3 [3]Vec3

// Identity returns the 3×3 identity matrix.
func Identity() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func (m Mat3) toR3() *r3.Mat {
	return r3.NewMat([]float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}

func fromMatrix(a mat.Matrix) Mat3 {
	var m Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = a.At(i, j)
		}
	}
	return m
}

// Det returns the determinant.
func (m Mat3) Det() float64 { return m.toR3().Det() }

// Transpose returns mᵀ.
func (m Mat3) Transpose() Mat3 { return fromMatrix(m.toR3().T()) }

// Mul returns the matrix product m·n.
func (m Mat3) Mul(n Mat3) Mat3 {
	r := r3.NewMat(nil)
	r.Mul(m.toR3(), n.toR3())
	return fromMatrix(r)
}

// Apply returns the column-vector product m·v.
func (m Mat3) Apply(v Vec3) Vec3 { return fromR3(m.toR3().MulVec(v.toR3())) }

// RowTimes returns the row-vector product v·m.
func (m Mat3) RowTimes(v Vec3) Vec3 { return fromR3(m.toR3().MulVecTrans(v.toR3())) }

// Inverse returns m⁻¹, or ErrSingularCell when the determinant vanishes.
func (m Mat3) Inverse() (Mat3, error) {
	if math.Abs(m.Det()) < 1e-12 {
		return Mat3{}, ErrSingularCell
	}
	var inv mat.Dense
	if err := inv.Inverse(m.toR3()); err != nil {
		return Mat3{}, ErrSingularCell
	}
	return fromMatrix(&inv), nil
}
