// Package bundle implements windowed and full bundle adjustment over a
// mapping.Trajectory and its working-memory landmarks: every landmark
// observation becomes a reprojection residual, poses at or before a
// fixed prefix use the pose-baked ReprojectionErrorFixed, everything
// else uses the free-pose ReprojectionErrorStereo, and every landmark
// position is eliminated via the solver's Schur-complement path.
package bundle

import (
	"github.com/pkg/errors"

	"github.com/stereonav/vo/costfn"
	"github.com/stereonav/vo/mapping"
	"github.com/stereonav/vo/solver"
	"github.com/stereonav/vo/xerrors"
)

// windowedMinLandmarks is the |WM| > 10 gate below which RefineWindowed
// is a no-op: a bundle pass over a near-empty window isn't worth a
// solve.
const windowedMinLandmarks = 10

// windowedLookback bounds how many of the most recent poses stay free
// during a windowed refinement (fixedPrefix = max(1, k-windowedLookback)).
const windowedLookback = 4

// Adjuster refines a trajectory and its working-memory landmark set in
// place.
type Adjuster struct {
	Rig *mapping.StereoRig
}

// NewAdjuster builds an Adjuster bound to a fixed stereo rig.
func NewAdjuster(rig *mapping.StereoRig) *Adjuster {
	return &Adjuster{Rig: rig}
}

// RefineFull runs improveTheMap_2: pose 0 is the sole fixed prefix,
// every other pose is free.
func (a *Adjuster) RefineFull(traj *mapping.Trajectory, landmarks []*mapping.Landmark) error {
	return a.refine(traj, landmarks, 0)
}

// RefineWindowed runs improveTheMap(firstBA=false): fixedPrefix =
// max(1, |trajectory|-1-windowedLookback). It is a no-op below the
// |WM| > 10 landmark gate.
func (a *Adjuster) RefineWindowed(traj *mapping.Trajectory, landmarks []*mapping.Landmark) error {
	if len(landmarks) <= windowedMinLandmarks {
		return nil
	}
	k := len(traj.Poses) - 1
	fixedPrefix := k - windowedLookback
	if fixedPrefix < 1 {
		fixedPrefix = 1
	}
	return a.refine(traj, landmarks, fixedPrefix)
}

// refine builds one solver.Problem over every observation of every
// landmark and solves it in place. Pose blocks alias a Transform's own
// Trans()/Rot() storage directly, so a successful solve mutates the
// trajectory with no copy-back step; landmark positions need one, since
// mapping.Landmark.X is a value field the solver cannot borrow directly.
func (a *Adjuster) refine(traj *mapping.Trajectory, landmarks []*mapping.Landmark, fixedPrefix int) error {
	prob := solver.NewProblem()

	type poseParams struct{ trans, rot *solver.ParamBlock }
	poseBlocks := make(map[int]poseParams)
	poseBlock := func(idx int) poseParams {
		if b, ok := poseBlocks[idx]; ok {
			return b
		}
		p := traj.Poses[idx]
		b := poseParams{trans: solver.NewParamBlock(p.Trans()), rot: solver.NewParamBlock(p.Rot())}
		poseBlocks[idx] = b
		return b
	}

	type landmarkBlock struct {
		lm    *mapping.Landmark
		block *solver.ParamBlock
	}
	var used []landmarkBlock

	for _, lm := range landmarks {
		if len(lm.Observations) == 0 {
			continue
		}
		xBlock := solver.NewParamBlock([]float64{lm.X.X, lm.X.Y, lm.X.Z})
		xBlock.Marginalize = true
		anyResidual := false

		for _, obs := range lm.Observations {
			cam, baseToCam := a.Rig.CameraAndExtrinsic(obs.CameraID)
			if obs.PoseIdx <= fixedPrefix {
				res := costfn.NewReprojectionErrorFixed(obs.Pixel, traj.Poses[obs.PoseIdx], baseToCam, cam)
				prob.AddResidualBlock(res, nil, xBlock)
			} else {
				pb := poseBlock(obs.PoseIdx)
				res := costfn.NewReprojectionErrorStereo(obs.Pixel, baseToCam, cam)
				prob.AddResidualBlock(res, nil, xBlock, pb.trans, pb.rot)
			}
			anyResidual = true
		}
		if anyResidual {
			used = append(used, landmarkBlock{lm: lm, block: xBlock})
		}
	}

	if len(used) == 0 {
		return nil
	}

	if _, err := solver.Solve(prob, solver.Options{}); err != nil {
		return errors.Wrapf(xerrors.ErrSolverFailed, "bundle adjustment over %d landmarks", len(used))
	}

	for _, u := range used {
		u.lm.X.X, u.lm.X.Y, u.lm.X.Z = u.block.Data[0], u.block.Data[1], u.block.Data[2]
	}
	return nil
}
