package odometry

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/stereonav/vo/camera"
	"github.com/stereonav/vo/costfn"
	"github.com/stereonav/vo/pose"
	"github.com/stereonav/vo/solver"
	"github.com/stereonav/vo/xerrors"
)

// inlierPixelThreshold is the reprojection-error norm below which a
// point counts as an inlier, both during RANSAC scoring and Refine.
const inlierPixelThreshold = 2.0

// maxResamples aborts a RANSAC run that cannot find a non-degenerate
// three-point span after this many rejected samples.
const maxResamples = 10000

// ransacMaxIterations is the per-hypothesis solver's iteration cap
// (distinct from Strategy.maxIterations, which bounds RANSAC rounds).
const ransacMaxIterations = 10

// Result is the outcome of a RANSAC run: the recovered pose and which
// input indices were classed as inliers.
type Result struct {
	Pose        *pose.Transform
	InlierMask  []bool
	InlierCount int
}

// Ransac runs strategy's RANSAC kernel over flat correspondences (S1 and
// S2): sample three, span-test, solve a 3-residual OdometryError
// problem, score inliers by full-cloud reprojection, keep the best
// hypothesis.
func Ransac(corrs []Correspondence, initial *pose.Transform, baseToCam *pose.Transform, cam *camera.Camera, strategy Strategy, rng *rand.Rand) (Result, error) {
	n := len(corrs)
	if n < 3 {
		return Result{}, errors.WithStack(xerrors.ErrDegenerateSample)
	}
	points := make([]r3.Vector, n)
	pixels := make([]r2.Point, n)
	for i, c := range corrs {
		points[i] = c.Candidate.Landmark.X
		pixels[i] = c.Pixel
	}

	best := Result{Pose: initial.Clone()}
	angleTh := strategy.angleThreshold()

	for iter := 0; iter < strategy.maxIterations(); iter++ {
		idx, err := sampleSpan(points, best.Pose, baseToCam, angleTh, rng, n)
		if err != nil {
			return Result{}, err
		}

		candidatePose := initial.Clone()
		if err := solveMinimal(candidatePose, points, pixels, idx, baseToCam, cam); err != nil {
			continue
		}

		mask, count := scoreInliers(candidatePose, points, pixels, baseToCam, cam)
		if count > best.InlierCount {
			best = Result{Pose: candidatePose, InlierMask: mask, InlierCount: count}
		}
	}
	return best, nil
}

// RansacPooled is Ransac's StrategyPooled variant: each sampled landmark
// also picks one candidate feature uniformly, and inlier scoring takes
// each landmark's best-matching pooled feature.
func RansacPooled(corrs []PooledCorrespondence, initial, baseToCam *pose.Transform, cam *camera.Camera, rng *rand.Rand) (Result, error) {
	n := len(corrs)
	if n < 3 {
		return Result{}, errors.WithStack(xerrors.ErrDegenerateSample)
	}
	points := make([]r3.Vector, n)
	for i, c := range corrs {
		points[i] = c.Candidate.Landmark.X
	}

	best := Result{Pose: initial.Clone()}
	strategy := StrategyPooled

	for iter := 0; iter < strategy.maxIterations(); iter++ {
		idx, err := sampleSpan(points, best.Pose, baseToCam, strategy.angleThreshold(), rng, n)
		if err != nil {
			return Result{}, err
		}

		pixelPick := make([]r2.Point, 3)
		for j, i := range idx {
			pixelPick[j] = corrs[i].Pixels[rng.Intn(len(corrs[i].Pixels))]
		}

		candidatePose := initial.Clone()
		if err := solveMinimal(candidatePose, points, pixelPick, idx, baseToCam, cam); err != nil {
			continue
		}

		mask, count := scoreInliersPooled(candidatePose, corrs, baseToCam, cam)
		if count > best.InlierCount {
			best = Result{Pose: candidatePose, InlierMask: mask, InlierCount: count}
		}
	}
	return best, nil
}

// sampleSpan draws three distinct indices into points and accepts them
// iff every pair of the pairwise inter-ray angles (computed in the
// camera frame of pose*baseToCam) differs by at least angleTh. evalPose
// is the current best hypothesis, not the fixed entry pose: callers pass
// best.Pose so the span test tracks each improved estimate, the same way
// checkSpan reads the mutated TorigBase rather than the run's initial pose.
func sampleSpan(points []r3.Vector, evalPose, baseToCam *pose.Transform, angleTh float64, rng *rand.Rand, n int) ([3]int, error) {
	camFrame := evalPose.Compose(baseToCam)
	for attempt := 0; attempt < maxResamples; attempt++ {
		idx := [3]int{rng.Intn(n), 0, 0}
		for {
			idx[1] = rng.Intn(n)
			if idx[1] != idx[0] {
				break
			}
		}
		for {
			idx[2] = rng.Intn(n)
			if idx[2] != idx[0] && idx[2] != idx[1] {
				break
			}
		}

		rays := camFrame.InverseTransform([]r3.Vector{points[idx[0]], points[idx[1]], points[idx[2]]})
		theta12 := angleBetween(rays[0], rays[1])
		theta13 := angleBetween(rays[0], rays[2])
		theta23 := angleBetween(rays[1], rays[2])

		if math.Abs(theta12-theta13) >= angleTh && math.Abs(theta12-theta23) >= angleTh && math.Abs(theta13-theta23) >= angleTh {
			return idx, nil
		}
	}
	return [3]int{}, errors.WithStack(xerrors.ErrDegenerateSample)
}

func angleBetween(a, b r3.Vector) float64 {
	cos := a.Dot(b) / (a.Norm() * b.Norm())
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos)
}

// solveMinimal refines candidatePose in place against exactly the three
// sampled correspondences, DENSE (no marginalized blocks), capped at
// ransacMaxIterations.
func solveMinimal(candidatePose *pose.Transform, points []r3.Vector, pixels []r2.Point, idx [3]int, baseToCam *pose.Transform, cam *camera.Camera) error {
	prob := solver.NewProblem()
	transBlock := solver.NewParamBlock(candidatePose.Trans())
	rotBlock := solver.NewParamBlock(candidatePose.Rot())
	for _, i := range idx {
		res := costfn.NewOdometryError(points[i], pixels[i], baseToCam, cam)
		prob.AddResidualBlock(res, nil, transBlock, rotBlock)
	}
	_, err := solver.Solve(prob, solver.Options{MaxIterations: ransacMaxIterations})
	return err
}

func scoreInliers(candidatePose *pose.Transform, points []r3.Vector, pixels []r2.Point, baseToCam *pose.Transform, cam *camera.Camera) ([]bool, int) {
	camFrame := candidatePose.Compose(baseToCam)
	camPts := camFrame.InverseTransform(points)
	mask := make([]bool, len(points))
	count := 0
	for i, xc := range camPts {
		p, ok := cam.Project(xc)
		if !ok {
			continue
		}
		if errNorm(p, pixels[i]) < inlierPixelThreshold {
			mask[i] = true
			count++
		}
	}
	return mask, count
}

func scoreInliersPooled(candidatePose *pose.Transform, corrs []PooledCorrespondence, baseToCam *pose.Transform, cam *camera.Camera) ([]bool, int) {
	camFrame := candidatePose.Compose(baseToCam)
	points := make([]r3.Vector, len(corrs))
	for i, c := range corrs {
		points[i] = c.Candidate.Landmark.X
	}
	camPts := camFrame.InverseTransform(points)

	mask := make([]bool, len(corrs))
	count := 0
	for i, xc := range camPts {
		p, ok := cam.Project(xc)
		if !ok {
			continue
		}
		best := math.Inf(1)
		for _, obs := range corrs[i].Pixels {
			if e := errNorm(p, obs); e < best {
				best = e
			}
		}
		if best < inlierPixelThreshold {
			mask[i] = true
			count++
		}
	}
	return mask, count
}

func errNorm(a, b r2.Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
