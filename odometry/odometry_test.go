package odometry

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/stereonav/vo/camera"
	"github.com/stereonav/vo/external"
	"github.com/stereonav/vo/mapping"
	"github.com/stereonav/vo/pose"
)

func testRig() *mapping.StereoRig {
	cam1 := camera.New(camera.MeiProjector{}, []float64{0.3, 0.05, 480, 470, 320, 240})
	cam2 := camera.New(camera.MeiProjector{}, []float64{0.3, 0.05, 480, 470, 320, 240})
	return mapping.NewStereoRig(cam1, cam2, pose.Identity(), pose.New(r3.Vector{X: -0.12, Y: 0, Z: 0}, r3.Vector{}))
}

// identityMatcher pairs each query with the first candidate carrying the
// identical descriptor bytes — enough to exercise
// Associate/AssociatePooled without a real descriptor space, whatever
// order SelectCandidates returns the landmarks in.
type identityMatcher struct{}

func descriptorMatch(q external.Feature, candidates []external.Feature) int {
	for j, c := range candidates {
		if bytes.Equal(q.Descriptor, c.Descriptor) {
			return j
		}
	}
	return -1
}

func (identityMatcher) BruteForce(queries, candidates []external.Feature) []int {
	idx := make([]int, len(queries))
	for i, q := range queries {
		idx[i] = descriptorMatch(q, candidates)
	}
	return idx
}

func (identityMatcher) MatchWithinRadius(queries, candidates []external.Feature, radius float64) []int {
	idx := make([]int, len(queries))
	for i, q := range queries {
		idx[i] = -1
		for j, c := range candidates {
			if errNorm(q.Pixel, c.Pixel) < radius {
				idx[i] = j
				break
			}
		}
	}
	return idx
}

func (identityMatcher) BruteForcePool(queries, candidates []external.Feature) [][]int {
	out := make([][]int, len(queries))
	for i, q := range queries {
		if j := descriptorMatch(q, candidates); j >= 0 {
			out[i] = []int{j}
		}
	}
	return out
}

func buildScene(rig *mapping.StereoRig, truePose *pose.Transform, n int) ([]r3.Vector, []external.Feature, *mapping.Map, *mapping.Trajectory) {
	traj := mapping.NewTrajectory()
	m := mapping.NewMap()

	points := make([]r3.Vector, n)
	feats := make([]external.Feature, n)
	for i := 0; i < n; i++ {
		X := r3.Vector{X: float64(i%5) - 2, Y: float64(i%3) - 1, Z: 3 + float64(i)*0.1}
		points[i] = X
		bodyPt := truePose.InverseTransform([]r3.Vector{X})[0]
		camPt := rig.BaseToCam1.InverseTransform([]r3.Vector{bodyPt})[0]
		p, _ := rig.Cam1.Project(camPt)
		feats[i] = external.Feature{Pixel: p, Descriptor: []byte{byte(i)}}

		lm := mapping.NewLandmark(X, []byte{byte(i)})
		lm.AddObservation(mapping.Observation{PoseIdx: 0, CameraID: mapping.Left, Pixel: p})
		m.Add(mapping.WM, lm)
	}
	return points, feats, m, traj
}

func TestSelectCandidatesRespectsZGateAndTailPose(t *testing.T) {
	rig := testRig()
	truePose := pose.Identity()
	_, _, m, traj := buildScene(rig, truePose, 5)

	tail, _ := traj.Last()
	candidates := SelectCandidates(m, traj, rig, StrategyBruteForce, tail)
	test.That(t, len(candidates), test.ShouldEqual, 5)
}

func TestRansacRecoversKnownTranslation(t *testing.T) {
	rig := testRig()
	truePose := pose.New(r3.Vector{X: 0.3, Y: 0.1, Z: 0}, r3.Vector{})
	_, feats, m, traj := buildScene(rig, truePose, 12)

	tail, _ := traj.Last()
	candidates := SelectCandidates(m, traj, rig, StrategyBruteForce, tail)
	test.That(t, len(candidates) >= 3, test.ShouldBeTrue)

	corrs := Associate(candidates, feats, identityMatcher{}, StrategyBruteForce)
	test.That(t, len(corrs) >= 3, test.ShouldBeTrue)

	rng := rand.New(rand.NewSource(42))
	result, err := Ransac(corrs, tail, rig.BaseToCam1, rig.Cam1, StrategyBruteForce, rng)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.InlierCount, test.ShouldBeGreaterThan, 0)

	points := make([]r3.Vector, len(corrs))
	pixels := make([]r2.Point, len(corrs))
	for i, c := range corrs {
		points[i] = c.Candidate.Landmark.X
		pixels[i] = c.Pixel
	}
	refined, err := Refine(result.Pose, points, pixels, result.InlierMask, rig.BaseToCam1, rig.Cam1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.Abs(refined.TransVec().X-truePose.TransVec().X), test.ShouldBeLessThan, 1e-2)
	test.That(t, math.Abs(refined.TransVec().Y-truePose.TransVec().Y), test.ShouldBeLessThan, 1e-2)
}

// TestRansacRobustnessAgainstOutliers reproduces the RANSAC robustness
// scenario: 100 landmarks, 30 true correspondences and 70 outliers with
// uniform ±100px pixel noise, ground-truth pose offset (0.1,0,0,
// 0,0,0.05). Strategy S1 must recover that pose within 0.01m/0.01rad
// with probability >= 0.99 over 50 seeds.
func TestRansacRobustnessAgainstOutliers(t *testing.T) {
	rig := testRig()
	truePose := pose.New(r3.Vector{X: 0.1, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 0, Z: 0.05})

	const numLandmarks = 100
	const numInliers = 30
	points := make([]r3.Vector, numLandmarks)
	pixels := make([]r2.Point, numLandmarks)

	noise := rand.New(rand.NewSource(99))
	for i := 0; i < numLandmarks; i++ {
		X := r3.Vector{X: float64(i%5) - 2, Y: float64(i%3) - 1, Z: 3 + float64(i%12)*0.1}
		points[i] = X
		bodyPt := truePose.InverseTransform([]r3.Vector{X})[0]
		camPt := rig.BaseToCam1.InverseTransform([]r3.Vector{bodyPt})[0]
		p, ok := rig.Cam1.Project(camPt)
		test.That(t, ok, test.ShouldBeTrue)

		if i < numInliers {
			pixels[i] = p
		} else {
			pixels[i] = r2.Point{X: p.X + (noise.Float64()*200 - 100), Y: p.Y + (noise.Float64()*200 - 100)}
		}
	}

	corrs := make([]Correspondence, numLandmarks)
	for i := range points {
		lm := mapping.NewLandmark(points[i], nil)
		corrs[i] = Correspondence{Candidate: Candidate{Landmark: lm}, Pixel: pixels[i]}
	}

	const numSeeds = 50
	successes := 0
	for seed := int64(1); seed <= numSeeds; seed++ {
		rng := rand.New(rand.NewSource(seed))
		result, err := Ransac(corrs, pose.Identity(), rig.BaseToCam1, rig.Cam1, StrategyBruteForce, rng)
		if err != nil {
			continue
		}
		refined, err := Refine(result.Pose, points, pixels, result.InlierMask, rig.BaseToCam1, rig.Cam1)
		if err != nil {
			continue
		}

		dTrans := refined.TransVec().Sub(truePose.TransVec()).Norm()
		dRot := refined.RotVec().Sub(truePose.RotVec()).Norm()
		if dTrans < 0.01 && dRot < 0.01 {
			successes++
		}
	}

	successRate := float64(successes) / float64(numSeeds)
	test.That(t, successRate, test.ShouldBeGreaterThanOrEqualTo, 0.99)
}

func TestEstimatorStepAppendsExactlyOnePose(t *testing.T) {
	rig := testRig()
	truePose := pose.New(r3.Vector{X: 0.2, Y: 0, Z: 0}, r3.Vector{})
	_, feats, m, traj := buildScene(rig, truePose, 12)

	est := NewEstimator(rig, StrategyBruteForce, identityMatcher{})
	est.Rand = rand.New(rand.NewSource(7))

	before := len(traj.Poses)
	idx, err := est.Step(m, traj, feats)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, idx, test.ShouldEqual, before)
	test.That(t, len(traj.Poses), test.ShouldEqual, before+1)
}

func TestSpanTestRejectsCollinearRays(t *testing.T) {
	rig := testRig()
	evalPose := pose.Identity()
	// three points along the same ray direction from the camera origin:
	// their pairwise angles are all ~0, so every |diff| < angleTh and the
	// sample must be rejected every time until resample exhaustion.
	points := []r3.Vector{{X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: 2}, {X: 0, Y: 0, Z: 3}}
	rng := rand.New(rand.NewSource(1))
	_, err := sampleSpan(points, evalPose, rig.BaseToCam1, 0.2, rng, 3)
	test.That(t, err, test.ShouldNotBeNil)
}
