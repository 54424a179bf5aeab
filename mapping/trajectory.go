package mapping

import (
	"github.com/golang/geo/r3"

	"github.com/stereonav/vo/pose"
)

// Trajectory is the ordered sequence of platform poses estimated so far.
// Poses[0] is the anchor: bundle adjustment never frees it.
type Trajectory struct {
	Poses []*pose.Transform
}

// NewTrajectory starts a trajectory at the identity pose, satisfying the
// |trajectory| >= 1 invariant before any odometry step runs.
func NewTrajectory() *Trajectory {
	return &Trajectory{Poses: []*pose.Transform{pose.Identity()}}
}

// Append adds a new pose, returning its index.
func (t *Trajectory) Append(p *pose.Transform) int {
	t.Poses = append(t.Poses, p)
	return len(t.Poses) - 1
}

// Last returns the most recently appended pose and its index.
func (t *Trajectory) Last() (*pose.Transform, int) {
	i := len(t.Poses) - 1
	return t.Poses[i], i
}

// PredictConstantVelocity extrapolates the next pose as
// T[k-1] * (T[k-2]^-1 * T[k-1]), the constant-velocity motion hypothesis
// strategy S2 reprojects candidates through.
func (t *Trajectory) PredictConstantVelocity() *pose.Transform {
	k := len(t.Poses) - 1
	if k < 1 {
		return t.Poses[k].Clone()
	}
	delta := t.Poses[k-1].InverseCompose(t.Poses[k])
	return t.Poses[k].Compose(delta)
}

// InverseTransform is a convenience matching Transform's own method, so
// callers can bring world points into pose idx's body frame without
// reaching into Poses directly.
func (t *Trajectory) InverseTransform(idx int, pts []r3.Vector) []r3.Vector {
	return t.Poses[idx].InverseTransform(pts)
}
