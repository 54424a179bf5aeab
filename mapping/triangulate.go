package mapping

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/stereonav/vo/camera"
	"github.com/stereonav/vo/costfn"
	"github.com/stereonav/vo/pose"
	"github.com/stereonav/vo/solver"
	"github.com/stereonav/vo/xerrors"
)

// StereoObservation is one half of the pair Triangulate seeds a landmark
// from: which camera saw it, at what pixel, from what platform pose.
type StereoObservation struct {
	PoseIdx  int
	CameraID CameraID
	Pixel    r2.Point
}

// CameraAndExtrinsic returns the camera and fixed body-to-camera
// extrinsic for the given side of the rig.
func (r *StereoRig) CameraAndExtrinsic(id CameraID) (*camera.Camera, *pose.Transform) {
	if id == Left {
		return r.Cam1, r.BaseToCam1
	}
	return r.Cam2, r.BaseToCam2
}

// Triangulate seeds a new landmark's 3D position from two observations
// of it, delegating the actual estimate to a two-residual, both-poses-
// fixed micro-problem exactly as the bundle adjuster's own fixed-pose
// residual does: only X is free.
func Triangulate(rig *StereoRig, traj *Trajectory, a, b StereoObservation) (r3.Vector, error) {
	camA, extA := rig.CameraAndExtrinsic(a.CameraID)
	camB, extB := rig.CameraAndExtrinsic(b.CameraID)
	poseA := traj.Poses[a.PoseIdx]
	poseB := traj.Poses[b.PoseIdx]

	init := midpointOfClosestApproach(poseA, extA, camA.Unproject(a.Pixel), poseB, extB, camB.Unproject(b.Pixel))

	X := solver.NewParamBlock([]float64{init.X, init.Y, init.Z})
	prob := solver.NewProblem()
	prob.AddResidualBlock(costfn.NewReprojectionErrorFixed(a.Pixel, poseA, extA, camA), nil, X)
	prob.AddResidualBlock(costfn.NewReprojectionErrorFixed(b.Pixel, poseB, extB, camB), nil, X)

	if _, err := solver.Solve(prob, solver.Options{}); err != nil {
		return r3.Vector{}, errors.Wrap(xerrors.ErrSolverFailed, "triangulation")
	}
	return r3.Vector{X: X.Data[0], Y: X.Data[1], Z: X.Data[2]}, nil
}

// midpointOfClosestApproach gives Triangulate's solve a sane starting
// point: the midpoint of the segment joining the two back-projected
// rays' closest approach, in world coordinates.
func midpointOfClosestApproach(poseA, extA *pose.Transform, rayA r3.Vector, poseB, extB *pose.Transform, rayB r3.Vector) r3.Vector {
	worldA := poseA.Compose(extA)
	worldB := poseB.Compose(extB)
	originA := worldA.TransVec()
	originB := worldB.TransVec()
	dirA := pose.MatVec(worldA.RotationMatrix(), rayA)
	dirB := pose.MatVec(worldB.RotationMatrix(), rayB)

	w0 := originA.Sub(originB)
	a := dirA.Dot(dirA)
	b := dirA.Dot(dirB)
	c := dirB.Dot(dirB)
	d := dirA.Dot(w0)
	e := dirB.Dot(w0)

	denom := a*c - b*b
	var sc, tc float64
	if denom > 1e-12 {
		sc = (b*e - c*d) / denom
		tc = (a*e - b*d) / denom
	}
	pA := originA.Add(dirA.Mul(sc))
	pB := originB.Add(dirB.Mul(tc))
	return pA.Add(pB).Mul(0.5)
}
