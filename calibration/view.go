package calibration

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/stereonav/vo/pose"
)

// View is one accepted calibration image: its detected grid corners
// (length Nx*Ny, in board row-major order matching BuildGrid) and its
// own extrinsic Transform, whose six-scalar buffer the view keeps across
// however many solves borrow it.
type View struct {
	ImagePath    string
	Observations []r2.Point
	Extrinsic    *pose.Transform
}

// NewView starts a view's extrinsic at (0,0,1, 0,0,0): the board one
// meter in front of the camera with no rotation, per the calibration
// pipeline's fixed initial guess.
func NewView(imagePath string, observations []r2.Point) *View {
	return &View{
		ImagePath:    imagePath,
		Observations: observations,
		Extrinsic:    pose.New(r3.Vector{X: 0, Y: 0, Z: 1}, r3.Vector{}),
	}
}
