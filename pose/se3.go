// Package pose implements the SE(3) rigid-transform type used throughout
// the calibration, mapping, bundle-adjustment and odometry packages: a
// minimal (translation, axis-angle) parameterization whose storage can be
// borrowed directly by the nonlinear solver as two independent 3-scalar
// parameter blocks.
package pose

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Transform represents an element of SE(3), stored as six scalars
// (tx, ty, tz, rx, ry, rz) where the rotation half is an axis-angle
// vector (magnitude = angle, direction = axis). The backing slice is
// exposed via Trans/Rot so a solver can bind sub-slices as independent,
// mutable parameter blocks without the Transform losing ownership.
type Transform struct {
	data []float64
}

// New builds a Transform from a translation and an axis-angle rotation.
func New(t, r r3.Vector) *Transform {
	return &Transform{data: []float64{t.X, t.Y, t.Z, r.X, r.Y, r.Z}}
}

// Identity returns the identity transform.
func Identity() *Transform {
	return &Transform{data: make([]float64, 6)}
}

// FromSlice wraps an existing 6-element slice, aliasing it directly. This
// is how calibration views and trajectory poses expose their storage to
// the solver: the Transform borrows, rather than copies, buf.
func FromSlice(buf []float64) *Transform {
	if len(buf) != 6 {
		panic("pose: FromSlice requires a 6-element buffer")
	}
	return &Transform{data: buf}
}

// Data returns the full 6-element backing buffer (translation then
// rotation), for callers that treat a Transform as a single opaque
// parameter block rather than two independent ones.
func (t *Transform) Data() []float64 { return t.data }

// Trans returns the mutable 3-element translation sub-slice.
func (t *Transform) Trans() []float64 { return t.data[0:3] }

// Rot returns the mutable 3-element axis-angle rotation sub-slice.
func (t *Transform) Rot() []float64 { return t.data[3:6] }

// TransVec returns the translation as a vector (a copy).
func (t *Transform) TransVec() r3.Vector {
	return r3.Vector{X: t.data[0], Y: t.data[1], Z: t.data[2]}
}

// RotVec returns the axis-angle rotation as a vector (a copy).
func (t *Transform) RotVec() r3.Vector {
	return r3.Vector{X: t.data[3], Y: t.data[4], Z: t.data[5]}
}

// RotationMatrix returns the 3x3 rotation matrix for this transform.
func (t *Transform) RotationMatrix() *mat.Dense {
	return RotationMatrix(t.RotVec())
}

// Clone returns a deep copy with independent, owned storage.
func (t *Transform) Clone() *Transform {
	buf := make([]float64, 6)
	copy(buf, t.data)
	return &Transform{data: buf}
}

// SetParam overwrites this transform's translation and rotation in place,
// without reallocating (and therefore without breaking any solver alias
// into this Transform's storage).
func (t *Transform) SetParam(trans, rot r3.Vector) {
	t.data[0], t.data[1], t.data[2] = trans.X, trans.Y, trans.Z
	t.data[3], t.data[4], t.data[5] = rot.X, rot.Y, rot.Z
}

// Compose returns self * other, i.e. the transform that first applies
// other, then self. The result owns freshly allocated storage; the
// rotation half is renormalized to axis-angle at this boundary.
func (t *Transform) Compose(other *Transform) *Transform {
	R1 := t.RotationMatrix()
	R2 := other.RotationMatrix()
	var R mat.Dense
	R.Mul(R1, R2)

	trans := matVec(R1, other.TransVec())
	trans = trans.Add(t.TransVec())
	rot := AxisAngleFromMatrix(&R)
	return New(trans, rot)
}

// InverseCompose returns self^-1 * other.
func (t *Transform) InverseCompose(other *Transform) *Transform {
	R1T := transpose3(t.RotationMatrix())
	R2 := other.RotationMatrix()
	var R mat.Dense
	R.Mul(R1T, R2)

	diff := other.TransVec().Sub(t.TransVec())
	trans := matVec(R1T, diff)
	rot := AxisAngleFromMatrix(&R)
	return New(trans, rot)
}

// Transform applies this transform to an ordered sequence of points,
// returning R*p + t for each point.
func (t *Transform) Transform(points []r3.Vector) []r3.Vector {
	R := t.RotationMatrix()
	trans := t.TransVec()
	out := make([]r3.Vector, len(points))
	for i, p := range points {
		out[i] = matVec(R, p).Add(trans)
	}
	return out
}

// InverseTransform applies this transform's inverse to an ordered
// sequence of points, returning R^T*(p - t) for each point.
func (t *Transform) InverseTransform(points []r3.Vector) []r3.Vector {
	RT := transpose3(t.RotationMatrix())
	trans := t.TransVec()
	out := make([]r3.Vector, len(points))
	for i, p := range points {
		out[i] = matVec(RT, p.Sub(trans))
	}
	return out
}

// ToRotTransInv returns R^T and -R^T*t, the pair of quantities every
// reprojection cost functor's inner loop needs in order to bring a world
// point into this frame without recomposing a Transform per residual.
func (t *Transform) ToRotTransInv() (*mat.Dense, r3.Vector) {
	RT := transpose3(t.RotationMatrix())
	negRTt := matVec(RT, t.TransVec()).Mul(-1)
	return RT, negRTt
}
