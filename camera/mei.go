package camera

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Mei parameter indices, in the exact order required by the wire format:
// xi k fu fv u0 v0.
const (
	MeiXi = iota
	MeiK
	MeiFu
	MeiFv
	MeiU0
	MeiV0
	MeiNumParams
)

// MeiProjector is the mandatory reference Projector: an omnidirectional
// single-sphere model with mirror parameter xi and one radial distortion
// coefficient k. It carries no state of its own — all parameters live in
// the Camera's borrowed slice.
type MeiProjector struct{}

// NumParams is always 6 for the Mei model.
func (MeiProjector) NumParams() int { return MeiNumParams }

// Project implements the single-sphere projection: normalize X onto the
// unit sphere, shift by xi along the optical axis, perspective-divide,
// apply the radial distortion factor, then the affine pixel map.
func (MeiProjector) Project(x r3.Vector, params []float64) (r2.Point, bool) {
	xi, k, fu, fv, u0, v0 := params[MeiXi], params[MeiK], params[MeiFu], params[MeiFv], params[MeiU0], params[MeiV0]

	n := x.Norm()
	if n == 0 {
		return r2.Point{}, false
	}
	xs := x.Mul(1 / n)
	zc := xs.Z + xi
	if zc <= 1e-9 {
		return r2.Point{}, false
	}

	mx := xs.X / zc
	my := xs.Y / zc
	rr := mx*mx + my*my
	d := 1 + k*rr

	u := fu*mx*d + u0
	v := fv*my*d + v0
	if !finite(u) || !finite(v) {
		return r2.Point{}, false
	}
	return r2.Point{X: u, Y: v}, true
}

// ProjectionJacobian returns the analytic 2x3 Jacobian d(u,v)/dX, derived
// by the chain rule through normalization, the xi-shift, the perspective
// divide and the radial distortion factor.
func (MeiProjector) ProjectionJacobian(x r3.Vector, params []float64) *mat.Dense {
	xi, k, fu, fv := params[MeiXi], params[MeiK], params[MeiFu], params[MeiFv]

	n := x.Norm()
	xs := x.Mul(1 / n)
	zc := xs.Z + xi

	mx := xs.X / zc
	my := xs.Y / zc
	d := 1 + k*(mx*mx+my*my)

	// d(mx,my)/dXc, 2x3.
	dmdXc := mat.NewDense(2, 3, []float64{
		1 / zc, 0, -xs.X / (zc * zc),
		0, 1 / zc, -xs.Y / (zc * zc),
	})

	// d(u,v)/d(mx,my), 2x2.
	dudm := mat.NewDense(2, 2, []float64{
		fu * (d + 2*k*mx*mx), fu * 2 * k * mx * my,
		fv * 2 * k * mx * my, fv * (d + 2*k*my*my),
	})

	// dXc/dX == dXs/dX = (1/n)(I - xs*xs^T), 3x3. Xc = Xs + (0,0,xi) so the
	// xi shift contributes nothing to the derivative.
	dXsdX := mat.NewDense(3, 3, []float64{
		1 - xs.X*xs.X, -xs.X * xs.Y, -xs.X * xs.Z,
		-xs.Y * xs.X, 1 - xs.Y*xs.Y, -xs.Y * xs.Z,
		-xs.Z * xs.X, -xs.Z * xs.Y, 1 - xs.Z*xs.Z,
	})
	dXsdX.Scale(1/n, dXsdX)

	var dmdX, J mat.Dense
	dmdX.Mul(dmdXc, dXsdX)
	J.Mul(dudm, &dmdX)
	return &J
}

// Unproject inverts the projection: undistort the normalized coordinates
// by fixed-point iteration (a single radial term converges in a handful
// of steps for realistic k), then solve the quadratic that places the
// unprojected point back on the unit sphere.
func (MeiProjector) Unproject(p r2.Point, params []float64) r3.Vector {
	xi, k, fu, fv, u0, v0 := params[MeiXi], params[MeiK], params[MeiFu], params[MeiFv], params[MeiU0], params[MeiV0]

	mxd := (p.X - u0) / fu
	myd := (p.Y - v0) / fv

	mx, my := mxd, myd
	for i := 0; i < 8; i++ {
		rr := mx*mx + my*my
		d := 1 + k*rr
		mx = mxd / d
		my = myd / d
	}

	// |Xs|=1 with Xs = (mx*zc, my*zc, zc-xi): solve the quadratic in zc.
	a := mx*mx + my*my + 1
	b := -2 * xi
	c := xi*xi - 1
	disc := b*b - 4*a*c
	if disc < 0 {
		disc = 0
	}
	zc := (-b + math.Sqrt(disc)) / (2 * a)

	xs := r3.Vector{X: mx * zc, Y: my * zc, Z: zc - xi}
	return xs.Normalize()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
