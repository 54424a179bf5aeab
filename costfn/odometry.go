package costfn

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/stereonav/vo/camera"
	"github.com/stereonav/vo/pose"
)

// OdometryError ties a free rig pose (trans, rot) to a fixed 3D point
// (a landmark carried over from the previous frame's map) and a pixel
// observed in the current frame, with the rig's camera-to-base extrinsic
// held fixed. This is the sole residual used by both RANSAC's
// three-point minimal solve and the post-RANSAC refine-on-inliers step;
// RANSAC's inlier scoring projects through the camera directly.
type OdometryError struct {
	X    r3.Vector
	u, v float64
	cam  *camera.Camera
	Rcb  *mat.Dense
	Pcb  r3.Vector
}

// NewOdometryError precomputes the fixed camera-to-base extrinsic; X is
// the landmark position at the time of construction, bound by value.
func NewOdometryError(X r3.Vector, pt r2.Point, baseToCam *pose.Transform, cam *camera.Camera) *OdometryError {
	Rcb, Pcb := baseToCam.ToRotTransInv()
	return &OdometryError{X: X, u: pt.X, v: pt.Y, cam: cam, Rcb: Rcb, Pcb: Pcb}
}

// ParamSizes reports {trans[3], rot[3]}.
func (*OdometryError) ParamSizes() []int { return []int{3, 3} }

// NumResiduals reports one pixel-error observation (2 scalars).
func (*OdometryError) NumResiduals() int { return 2 }

// Evaluate computes the pixel residual and, on request, dr/dtrans and dr/drot.
func (e *OdometryError) Evaluate(params [][]float64, residuals []float64, jacobians []*mat.Dense) bool {
	trans := r3.Vector{X: params[0][0], Y: params[0][1], Z: params[0][2]}
	rot := r3.Vector{X: params[1][0], Y: params[1][1], Z: params[1][2]}

	Rbo := pose.RotationMatrix(rot.Mul(-1))
	var Rco mat.Dense
	Rco.Mul(e.Rcb, Rbo)

	Xtr := pose.MatVec(&Rco, e.X.Sub(trans)).Add(e.Pcb)

	p, ok := e.cam.Project(Xtr)
	if !ok {
		return false
	}
	residuals[0] = p.X - e.u
	residuals[1] = p.Y - e.v

	if jacobians == nil {
		return true
	}
	J := e.cam.ProjectionJacobian(Xtr)

	if jacobians[0] != nil {
		var dpdt mat.Dense
		dpdt.Mul(J, &Rco)
		dpdt.Scale(-1, &dpdt)
		jacobians[0].Copy(&dpdt)
	}
	if jacobians[1] != nil {
		L := pose.RightJacobianInverse(rot)
		hat := pose.Hat(Xtr)
		var hR, hRL, dpdxi mat.Dense
		hR.Mul(hat, &Rco)
		hRL.Mul(&hR, L)
		dpdxi.Mul(J, &hRL)
		jacobians[1].Copy(&dpdxi)
	}
	return true
}
