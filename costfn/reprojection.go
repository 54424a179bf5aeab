package costfn

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/stereonav/vo/camera"
	"github.com/stereonav/vo/pose"
)

// ReprojectionErrorFixed ties a free landmark position to a pixel
// observed from a rig pose that is held fixed at construction time (the
// map-initialization case where a landmark's anchor keyframe is not
// itself being optimized).
type ReprojectionErrorFixed struct {
	u, v float64
	cam  *camera.Camera
	Rco  *mat.Dense
	Pco  r3.Vector
}

// NewReprojectionErrorFixed precomputes the combined rig-to-camera
// rotation and translation from the two fixed transforms, mirroring the
// constructor caching of TbaseCam.toRotTransInv in the original.
func NewReprojectionErrorFixed(pt r2.Point, origToBase, baseToCam *pose.Transform, cam *camera.Camera) *ReprojectionErrorFixed {
	Rbo, Pbo := origToBase.ToRotTransInv()
	Rcb, Pcb := baseToCam.ToRotTransInv()
	var Rco mat.Dense
	Rco.Mul(Rcb, Rbo)
	Pco := pose.MatVec(Rcb, Pbo).Add(Pcb)
	return &ReprojectionErrorFixed{u: pt.X, v: pt.Y, cam: cam, Rco: &Rco, Pco: Pco}
}

// ParamSizes reports a single 3-scalar landmark block.
func (*ReprojectionErrorFixed) ParamSizes() []int { return []int{3} }

// NumResiduals reports one pixel-error observation (2 scalars).
func (*ReprojectionErrorFixed) NumResiduals() int { return 2 }

// Evaluate computes the pixel residual and, on request, dr/dX.
func (e *ReprojectionErrorFixed) Evaluate(params [][]float64, residuals []float64, jacobians []*mat.Dense) bool {
	X := r3.Vector{X: params[0][0], Y: params[0][1], Z: params[0][2]}
	Xc := pose.MatVec(e.Rco, X).Add(e.Pco)

	p, ok := e.cam.Project(Xc)
	if !ok {
		return false
	}
	residuals[0] = p.X - e.u
	residuals[1] = p.Y - e.v

	if jacobians != nil && jacobians[0] != nil {
		J := e.cam.ProjectionJacobian(Xc)
		var dpdX mat.Dense
		dpdX.Mul(J, e.Rco)
		jacobians[0].Copy(&dpdX)
	}
	return true
}

// ReprojectionErrorStereo ties a free landmark position to a pixel
// observed from a free rig pose (trans, rot), with the rig's
// camera-to-base extrinsic held fixed. This is the workhorse residual of
// bundle.Adjuster for every observation past the fixed prefix.
type ReprojectionErrorStereo struct {
	u, v float64
	cam  *camera.Camera
	Rcb  *mat.Dense
	Pcb  r3.Vector
}

// NewReprojectionErrorStereo precomputes the fixed camera-to-base
// extrinsic; the rig pose itself is supplied per Evaluate call as the
// free trans/rot parameter blocks.
func NewReprojectionErrorStereo(pt r2.Point, baseToCam *pose.Transform, cam *camera.Camera) *ReprojectionErrorStereo {
	Rcb, Pcb := baseToCam.ToRotTransInv()
	return &ReprojectionErrorStereo{u: pt.X, v: pt.Y, cam: cam, Rcb: Rcb, Pcb: Pcb}
}

// ParamSizes reports {landmark[3], trans[3], rot[3]}.
func (*ReprojectionErrorStereo) ParamSizes() []int { return []int{3, 3, 3} }

// NumResiduals reports one pixel-error observation (2 scalars).
func (*ReprojectionErrorStereo) NumResiduals() int { return 2 }

// Evaluate computes the pixel residual and, on request, dr/dX, dr/dtrans
// and dr/drot.
func (e *ReprojectionErrorStereo) Evaluate(params [][]float64, residuals []float64, jacobians []*mat.Dense) bool {
	X := r3.Vector{X: params[0][0], Y: params[0][1], Z: params[0][2]}
	rot := r3.Vector{X: params[2][0], Y: params[2][1], Z: params[2][2]}
	trans := r3.Vector{X: params[1][0], Y: params[1][1], Z: params[1][2]}

	Rbo := pose.RotationMatrix(rot.Mul(-1))
	var Rco mat.Dense
	Rco.Mul(e.Rcb, Rbo)

	Xc := pose.MatVec(&Rco, X.Sub(trans)).Add(e.Pcb)

	p, ok := e.cam.Project(Xc)
	if !ok {
		return false
	}
	residuals[0] = p.X - e.u
	residuals[1] = p.Y - e.v

	if jacobians == nil {
		return true
	}
	J := e.cam.ProjectionJacobian(Xc)

	if jacobians[0] != nil {
		var dpdX mat.Dense
		dpdX.Mul(J, &Rco)
		jacobians[0].Copy(&dpdX)
	}
	if jacobians[1] != nil {
		var dpdt mat.Dense
		dpdt.Mul(J, &Rco)
		dpdt.Scale(-1, &dpdt)
		jacobians[1].Copy(&dpdt)
	}
	if jacobians[2] != nil {
		L := pose.RightJacobianInverse(rot)
		hat := pose.Hat(Xc)
		var hR, hRL, dpdxi mat.Dense
		hR.Mul(hat, &Rco)
		hRL.Mul(&hR, L)
		dpdxi.Mul(J, &hRL)
		jacobians[2].Copy(&dpdxi)
	}
	return true
}
