// Package costfn implements the reprojection cost functors shared by
// calibration, bundle adjustment and odometry: each type here satisfies
// solver.Residual, producing a stacked pixel-error residual and the
// Jacobian blocks needed by the normal equations against every free
// parameter it declares.
package costfn

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/stereonav/vo/camera"
	"github.com/stereonav/vo/pose"
)

// GridEstimate refines a single view's extrinsic (the calibration
// board's pose relative to the camera) against its already-detected
// corner set, holding the camera intrinsics fixed. It is the per-view
// step of Engine.InitializeViews.
type GridEstimate struct {
	obs []r2.Point
	grd []r3.Vector
	cam *camera.Camera
}

// NewGridEstimate builds a GridEstimate for one view. obs and grd must
// have the same length (one entry per detected corner) and cam's
// parameter vector is read but never written by this functor.
func NewGridEstimate(obs []r2.Point, grd []r3.Vector, cam *camera.Camera) *GridEstimate {
	if len(obs) != len(grd) {
		panic("costfn: GridEstimate requires matching observation and grid lengths")
	}
	return &GridEstimate{obs: obs, grd: grd, cam: cam}
}

// ParamSizes reports a single 6-scalar extrinsic block.
func (g *GridEstimate) ParamSizes() []int { return []int{6} }

// NumResiduals reports two scalars per grid corner.
func (g *GridEstimate) NumResiduals() int { return 2 * len(g.grd) }

func (g *GridEstimate) residualsAt(extrinsic []float64, out []float64) bool {
	tr := pose.FromSlice(extrinsic)
	pts := tr.Transform(g.grd)
	for i, Xc := range pts {
		p, ok := g.cam.Project(Xc)
		if !ok {
			return false
		}
		out[2*i] = p.X - g.obs[i].X
		out[2*i+1] = p.Y - g.obs[i].Y
	}
	return true
}

// Evaluate computes the stacked reprojection residual and, on request,
// the numerical Jacobian against the extrinsic block.
func (g *GridEstimate) Evaluate(params [][]float64, residuals []float64, jacobians []*mat.Dense) bool {
	if !g.residualsAt(params[0], residuals) {
		return false
	}
	if jacobians != nil && jacobians[0] != nil {
		J := centralDifferenceJacobian(len(residuals), params[0], g.residualsAt)
		jacobians[0].Copy(J)
	}
	return true
}

// GridProjection jointly refines a view's extrinsic together with the
// shared camera intrinsics, the step Engine.RefineJoint runs once every
// view has an initial extrinsic estimate.
type GridProjection struct {
	obs       []r2.Point
	grd       []r3.Vector
	projector camera.Projector
}

// NewGridProjection builds a GridProjection for one view against a given
// projector variant (its NumParams determines the intrinsic block size).
func NewGridProjection(obs []r2.Point, grd []r3.Vector, projector camera.Projector) *GridProjection {
	if len(obs) != len(grd) {
		panic("costfn: GridProjection requires matching observation and grid lengths")
	}
	return &GridProjection{obs: obs, grd: grd, projector: projector}
}

// ParamSizes reports the intrinsic block (projector-defined width) then
// the 6-scalar extrinsic block.
func (g *GridProjection) ParamSizes() []int { return []int{g.projector.NumParams(), 6} }

// NumResiduals reports two scalars per grid corner.
func (g *GridProjection) NumResiduals() int { return 2 * len(g.grd) }

func (g *GridProjection) residualsAt(intrinsic, extrinsic []float64, out []float64) bool {
	cam := camera.New(g.projector, intrinsic)
	tr := pose.FromSlice(extrinsic)
	pts := tr.Transform(g.grd)
	for i, Xc := range pts {
		p, ok := cam.Project(Xc)
		if !ok {
			return false
		}
		out[2*i] = p.X - g.obs[i].X
		out[2*i+1] = p.Y - g.obs[i].Y
	}
	return true
}

// Evaluate computes the stacked reprojection residual and, on request,
// the numerical Jacobian against each of the intrinsic and extrinsic blocks.
func (g *GridProjection) Evaluate(params [][]float64, residuals []float64, jacobians []*mat.Dense) bool {
	intrinsic, extrinsic := params[0], params[1]
	if !g.residualsAt(intrinsic, extrinsic, residuals) {
		return false
	}
	if jacobians != nil && jacobians[0] != nil {
		J := centralDifferenceJacobian(len(residuals), intrinsic, func(x, out []float64) bool {
			return g.residualsAt(x, extrinsic, out)
		})
		jacobians[0].Copy(J)
	}
	if jacobians != nil && jacobians[1] != nil {
		J := centralDifferenceJacobian(len(residuals), extrinsic, func(x, out []float64) bool {
			return g.residualsAt(intrinsic, x, out)
		})
		jacobians[1].Copy(J)
	}
	return true
}
