package odometry

import (
	"math/rand"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/stereonav/vo/external"
	"github.com/stereonav/vo/mapping"
	"github.com/stereonav/vo/pose"
	"github.com/stereonav/vo/xerrors"
)

// Estimator drives one odometry step: candidate selection, association,
// RANSAC, and final refinement, appending exactly one new pose to the
// trajectory on success.
type Estimator struct {
	Rig      *mapping.StereoRig
	Strategy Strategy
	Matcher  external.DescriptorMatcher
	// Rand seeds RANSAC's sampling; nil uses a fresh source seeded with 1
	// on every call, so every nil-Rand step draws the same sample sequence.
	Rand *rand.Rand
}

// NewEstimator builds an Estimator against a fixed rig and matcher.
func NewEstimator(rig *mapping.StereoRig, strategy Strategy, matcher external.DescriptorMatcher) *Estimator {
	return &Estimator{Rig: rig, Strategy: strategy, Matcher: matcher}
}

func (e *Estimator) rng() *rand.Rand {
	if e.Rand != nil {
		return e.Rand
	}
	//nolint:gosec
	return rand.New(rand.NewSource(1))
}

// Step runs one full odometry cycle against this frame's detected
// features, appends the recovered pose to traj, and returns its index.
func (e *Estimator) Step(m *mapping.Map, traj *mapping.Trajectory, features []external.Feature) (int, error) {
	tailPose, _ := traj.Last()
	evalPose := tailPose
	if e.Strategy == StrategyMotion {
		evalPose = traj.PredictConstantVelocity()
	}

	candidates := SelectCandidates(m, traj, e.Rig, e.Strategy, evalPose)
	if len(candidates) < 3 {
		return 0, errors.WithStack(xerrors.ErrDegenerateSample)
	}

	rng := e.rng()
	var finalPose *pose.Transform

	switch e.Strategy {
	case StrategyPooled:
		pooled := AssociatePooled(candidates, features, e.Matcher)
		if len(pooled) < 3 {
			return 0, errors.WithStack(xerrors.ErrDegenerateSample)
		}
		result, err := RansacPooled(pooled, tailPose, e.Rig.BaseToCam1, e.Rig.Cam1, rng)
		if err != nil {
			return 0, err
		}
		finalPose, err = RefinePooled(result.Pose, pooled, result.InlierMask, e.Rig.BaseToCam1, e.Rig.Cam1)
		if err != nil {
			return 0, err
		}
	default:
		corrs := Associate(candidates, features, e.Matcher, e.Strategy)
		if len(corrs) < 3 {
			return 0, errors.WithStack(xerrors.ErrDegenerateSample)
		}
		result, err := Ransac(corrs, tailPose, e.Rig.BaseToCam1, e.Rig.Cam1, e.Strategy, rng)
		if err != nil {
			return 0, err
		}
		points := make([]r3.Vector, len(corrs))
		pixels := make([]r2.Point, len(corrs))
		for i, c := range corrs {
			points[i] = c.Candidate.Landmark.X
			pixels[i] = c.Pixel
		}
		finalPose, err = Refine(result.Pose, points, pixels, result.InlierMask, e.Rig.BaseToCam1, e.Rig.Cam1)
		if err != nil {
			return 0, err
		}
	}

	return traj.Append(finalPose), nil
}
