// Package camera implements the polymorphic camera projection
// abstraction: a Camera owns an immutable-shape, solver-borrowable
// parameter vector and delegates the actual projection math to a
// Projector. The Mei single-sphere omnidirectional model is the
// mandatory reference Projector; additional models plug in without
// changing any caller of Camera.
package camera

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Projector is the capability set every concrete camera model variant
// implements. It never owns parameter storage itself — every method
// takes the parameter vector explicitly, so a Camera can hand out the
// same underlying slice to both a Projector and a nonlinear solver.
type Projector interface {
	// NumParams is the length of the parameter vector this projector expects.
	NumParams() int
	// Project maps a 3D point in the camera frame to a pixel. ok is false
	// iff the point is behind the model's valid hemisphere or the result
	// is non-finite.
	Project(x r3.Vector, params []float64) (p r2.Point, ok bool)
	// ProjectionJacobian returns the analytic 2x3 Jacobian d(pixel)/d(X)
	// at x, matching Project to within numerical tolerance.
	ProjectionJacobian(x r3.Vector, params []float64) *mat.Dense
	// Unproject maps a pixel back to a unit-norm ray on the model's sphere.
	Unproject(p r2.Point, params []float64) r3.Vector
}

// Camera owns an immutable-shape parameter vector and a Projector tag.
// The parameter slice is exposed via Params so a solver can bind it as a
// parameter block; Camera itself never reallocates it.
type Camera struct {
	projector Projector
	params    []float64
}

// New builds a Camera around a Projector and its parameter vector. The
// slice is retained (not copied): mutating it in place — as a solver
// does — changes what this Camera projects with.
func New(projector Projector, params []float64) *Camera {
	if len(params) != projector.NumParams() {
		panic("camera: parameter vector length does not match projector")
	}
	return &Camera{projector: projector, params: params}
}

// Params returns the borrowable parameter slice.
func (c *Camera) Params() []float64 { return c.params }

// Projector returns the underlying projector variant.
func (c *Camera) Projector() Projector { return c.projector }

// Project projects a single 3D point to a pixel.
func (c *Camera) Project(x r3.Vector) (r2.Point, bool) {
	return c.projector.Project(x, c.params)
}

// ProjectPointCloud projects an ordered sequence of 3D points. The
// returned slice always has len(src) entries; entries where ok is false
// occupy their slot with an undefined value and must be masked
// separately by callers that care.
func (c *Camera) ProjectPointCloud(src []r3.Vector) ([]r2.Point, []bool) {
	dst := make([]r2.Point, len(src))
	ok := make([]bool, len(src))
	for i, x := range src {
		dst[i], ok[i] = c.projector.Project(x, c.params)
	}
	return dst, ok
}

// ProjectionJacobian returns the analytic 2x3 Jacobian of Project at x.
func (c *Camera) ProjectionJacobian(x r3.Vector) *mat.Dense {
	return c.projector.ProjectionJacobian(x, c.params)
}

// Unproject maps a pixel to a unit-norm ray in the camera frame.
func (c *Camera) Unproject(p r2.Point) r3.Vector {
	return c.projector.Unproject(p, c.params)
}
