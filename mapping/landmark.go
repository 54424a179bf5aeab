package mapping

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
)

// Observation ties one pixel measurement to the pose and camera it was
// taken from. Observations within a Landmark are append-only and
// strictly ordered by PoseIdx.
type Observation struct {
	PoseIdx  int
	CameraID CameraID
	Pixel    r2.Point
}

// Landmark is a sparse 3D map point plus its accumulated observation
// history. Descriptor is opaque to this package — an external.
// DescriptorMatcher owns its meaning.
type Landmark struct {
	ID           uuid.UUID
	X            r3.Vector
	Descriptor   []byte
	Observations []Observation
}

// NewLandmark starts a landmark at position x with no observations.
func NewLandmark(x r3.Vector, descriptor []byte) *Landmark {
	return &Landmark{ID: uuid.New(), X: x, Descriptor: descriptor}
}

// AddObservation appends one measurement. Callers are responsible for
// keeping PoseIdx non-decreasing across calls, per the append-only
// ordering invariant.
func (l *Landmark) AddObservation(obs Observation) {
	l.Observations = append(l.Observations, obs)
}

// LastPoseIdx returns the poseIdx of the most recent observation, or -1
// if the landmark has none.
func (l *Landmark) LastPoseIdx() int {
	if len(l.Observations) == 0 {
		return -1
	}
	return l.Observations[len(l.Observations)-1].PoseIdx
}

// Pool distinguishes a landmark's residency without changing how the
// optimizer treats it: STM, WM and LM are promoted purely by an
// age/observation-count policy that lives above this package.
type Pool int

const (
	STM Pool = iota
	WM
	LM
)

// Map holds the three landmark pools the odometry and bundle-adjustment
// stages read and mutate. Promotion policy between pools is a host
// concern; this type only stores the partition.
type Map struct {
	pools map[Pool][]*Landmark
}

// NewMap returns an empty three-pool map.
func NewMap() *Map {
	return &Map{pools: map[Pool][]*Landmark{STM: nil, WM: nil, LM: nil}}
}

// Landmarks returns the pool's current contents, newest-appended last.
func (m *Map) Landmarks(p Pool) []*Landmark { return m.pools[p] }

// Add appends a landmark to a pool.
func (m *Map) Add(p Pool, l *Landmark) { m.pools[p] = append(m.pools[p], l) }

// Promote moves a landmark from one pool to another by identity. It is a
// no-op if l is not found in from.
func (m *Map) Promote(l *Landmark, from, to Pool) {
	src := m.pools[from]
	for i, cand := range src {
		if cand == l {
			m.pools[from] = append(src[:i], src[i+1:]...)
			m.pools[to] = append(m.pools[to], l)
			return
		}
	}
}
