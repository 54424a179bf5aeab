// Package mapping holds the stereo rig, the landmark/trajectory data
// model, and two-view triangulation. It owns no optimization logic of
// its own beyond delegating landmark initialization to a tiny fixed-pose
// solver.Problem — bundle adjustment proper lives in the bundle package.
package mapping

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/stereonav/vo/camera"
	"github.com/stereonav/vo/pose"
)

// CameraID names which half of a stereo pair an observation came from.
type CameraID int

const (
	Left CameraID = iota
	Right
)

// StereoRig owns two cameras and their fixed body-to-camera extrinsics.
// The rig itself never moves; a Trajectory pose carries it through the
// world.
type StereoRig struct {
	Cam1, Cam2             *camera.Camera
	BaseToCam1, BaseToCam2 *pose.Transform
}

// NewStereoRig builds a rig from its two cameras and their fixed
// extrinsics relative to the platform's body frame.
func NewStereoRig(cam1, cam2 *camera.Camera, baseToCam1, baseToCam2 *pose.Transform) *StereoRig {
	return &StereoRig{Cam1: cam1, Cam2: cam2, BaseToCam1: baseToCam1, BaseToCam2: baseToCam2}
}

// projectPointCloud projects a body-frame point cloud through both
// cameras, returning one pixel slice per camera and their validity masks.
func (r *StereoRig) projectPointCloud(bodyPts []r3.Vector) (dst1, dst2 []r2.Point, ok1, ok2 []bool) {
	xc1 := r.BaseToCam1.InverseTransform(bodyPts)
	xc2 := r.BaseToCam2.InverseTransform(bodyPts)
	dst1, ok1 = r.Cam1.ProjectPointCloud(xc1)
	dst2, ok2 = r.Cam2.ProjectPointCloud(xc2)
	return dst1, dst2, ok1, ok2
}

// ProjectPointCloud transforms world points src into the platform pose
// at poseIdx's body frame, then through both cameras.
func (r *StereoRig) ProjectPointCloud(src []r3.Vector, traj *Trajectory, poseIdx int) (dst1, dst2 []r2.Point, ok1, ok2 []bool) {
	bodyPts := traj.Poses[poseIdx].InverseTransform(src)
	return r.projectPointCloud(bodyPts)
}
