package odometry

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

// Refine re-solves the pose over every RANSAC inlier, with no residual
// cap and no robust loss, matching Odometry::computeTransformation.
func Refine(seed *pose.Transform, points []r3.Vector, pixels []r2.Point, mask []bool, baseToCam *pose.Transform, cam *camera.Camera) (*pose.Transform, error) {
	result := seed.Clone()
	prob := solver.NewProblem()
	transBlock := solver.NewParamBlock(result.Trans())
	rotBlock := solver.NewParamBlock(result.Rot())

	n := 0
	for i, inlier := range mask {
		if !inlier {
			continue
		}
		res := costfn.NewOdometryError(points[i], pixels[i], baseToCam, cam)
		prob.AddResidualBlock(res, nil, transBlock, rotBlock)
		n++
	}
	if n == 0 {
		return nil, errors.WithStack(xerrors.ErrSolverFailed)
	}
	if _, err := solver.Solve(prob, solver.Options{}); err != nil {
		return nil, errors.Wrap(xerrors.ErrSolverFailed, "odometry refinement")
	}
	return result, nil
}

// RefinePooled is Refine's StrategyPooled counterpart: each inlier
// landmark contributes its single best-matching pixel (computed here by
// projecting through seed, before the re-solve) instead of an
// externally-provided flat pixel slice.
func RefinePooled(seed *pose.Transform, corrs []PooledCorrespondence, mask []bool, baseToCam *pose.Transform, cam *camera.Camera) (*pose.Transform, error) {
	camFrame := seed.Compose(baseToCam)
	points := make([]r3.Vector, len(corrs))
	for i, c := range corrs {
		points[i] = c.Candidate.Landmark.X
	}
	camPts := camFrame.InverseTransform(points)

	pixels := make([]r2.Point, len(corrs))
	for i, xc := range camPts {
		p, ok := cam.Project(xc)
		if !ok {
			continue
		}
		best, bestErr := 0, errNorm(p, corrs[i].Pixels[0])
		for j, obs := range corrs[i].Pixels {
			if e := errNorm(p, obs); e < bestErr {
				best, bestErr = j, e
			}
		}
		pixels[i] = corrs[i].Pixels[best]
	}
	return Refine(seed, points, pixels, mask, baseToCam, cam)
}
