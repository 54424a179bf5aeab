package mapping

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/stereonav/vo/camera"
	"github.com/stereonav/vo/pose"
)

func testRig() *StereoRig {
	cam1 := camera.New(camera.MeiProjector{}, []float64{0.3, 0.05, 480, 470, 320, 240})
	cam2 := camera.New(camera.MeiProjector{}, []float64{0.3, 0.05, 480, 470, 320, 240})
	baseToCam1 := pose.Identity()
	baseToCam2 := pose.New(r3.Vector{X: -0.12, Y: 0, Z: 0}, r3.Vector{})
	return NewStereoRig(cam1, cam2, baseToCam1, baseToCam2)
}

func TestTriangulateRecoversKnownPoint(t *testing.T) {
	rig := testRig()
	traj := NewTrajectory()

	truth := r3.Vector{X: 0.3, Y: -0.1, Z: 2.5}
	bodyPt := traj.Poses[0].InverseTransform([]r3.Vector{truth})[0]

	xc1 := rig.BaseToCam1.InverseTransform([]r3.Vector{bodyPt})[0]
	xc2 := rig.BaseToCam2.InverseTransform([]r3.Vector{bodyPt})[0]
	p1, ok1 := rig.Cam1.Project(xc1)
	p2, ok2 := rig.Cam2.Project(xc2)
	test.That(t, ok1, test.ShouldBeTrue)
	test.That(t, ok2, test.ShouldBeTrue)

	a := StereoObservation{PoseIdx: 0, CameraID: Left, Pixel: p1}
	b := StereoObservation{PoseIdx: 0, CameraID: Right, Pixel: p2}

	got, err := Triangulate(rig, traj, a, b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.X, test.ShouldAlmostEqual, truth.X, 1e-3)
	test.That(t, got.Y, test.ShouldAlmostEqual, truth.Y, 1e-3)
	test.That(t, got.Z, test.ShouldAlmostEqual, truth.Z, 1e-3)
}

func TestTrajectoryStartsWithSingleAnchor(t *testing.T) {
	traj := NewTrajectory()
	test.That(t, len(traj.Poses), test.ShouldEqual, 1)
	last, idx := traj.Last()
	test.That(t, idx, test.ShouldEqual, 0)
	test.That(t, last, test.ShouldEqual, traj.Poses[0])
}

func TestPredictConstantVelocityExtrapolatesMotion(t *testing.T) {
	traj := NewTrajectory()
	traj.Append(pose.New(r3.Vector{X: 1, Y: 0, Z: 0}, r3.Vector{}))
	traj.Append(pose.New(r3.Vector{X: 2, Y: 0, Z: 0}, r3.Vector{}))

	pred := traj.PredictConstantVelocity()
	test.That(t, pred.TransVec().X, test.ShouldAlmostEqual, 3.0, 1e-9)
}

func TestMapPromoteMovesLandmarkBetweenPools(t *testing.T) {
	m := NewMap()
	l := NewLandmark(r3.Vector{X: 1, Y: 2, Z: 3}, nil)
	m.Add(STM, l)
	test.That(t, len(m.Landmarks(STM)), test.ShouldEqual, 1)

	m.Promote(l, STM, WM)
	test.That(t, len(m.Landmarks(STM)), test.ShouldEqual, 0)
	test.That(t, len(m.Landmarks(WM)), test.ShouldEqual, 1)
	test.That(t, m.Landmarks(WM)[0], test.ShouldEqual, l)
}

func TestLandmarkLastPoseIdxTracksMostRecentObservation(t *testing.T) {
	l := NewLandmark(r3.Vector{}, nil)
	test.That(t, l.LastPoseIdx(), test.ShouldEqual, -1)
	l.AddObservation(Observation{PoseIdx: 3, CameraID: Left, Pixel: r2.Point{X: 1, Y: 1}})
	l.AddObservation(Observation{PoseIdx: 5, CameraID: Right, Pixel: r2.Point{X: 2, Y: 2}})
	test.That(t, l.LastPoseIdx(), test.ShouldEqual, 5)
}

func TestStereoRigProjectPointCloudUsesInverseTransform(t *testing.T) {
	rig := testRig()
	traj := NewTrajectory()
	pts := []r3.Vector{{X: 0, Y: 0, Z: 2}}

	dst1, dst2, ok1, ok2 := rig.ProjectPointCloud(pts, traj, 0)
	test.That(t, ok1[0], test.ShouldBeTrue)
	test.That(t, ok2[0], test.ShouldBeTrue)
	test.That(t, len(dst1), test.ShouldEqual, 1)
	test.That(t, len(dst2), test.ShouldEqual, 1)
}
