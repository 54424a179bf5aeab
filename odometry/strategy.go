// Package odometry implements the three landmark-association strategies
// and the RANSAC + refine kernel that turns a set of 2D-3D
// correspondences into a new trajectory pose.
package odometry

// Strategy selects how candidate landmarks are matched to detected
// features before RANSAC runs.
type Strategy int

const (
	// StrategyBruteForce (S1) matches one feature per landmark via a
	// brute-force descriptor match, no motion prediction.
	StrategyBruteForce Strategy = iota
	// StrategyMotion (S2) predicts the next pose via constant velocity,
	// reprojects candidates, and gates matches to a pixel radius.
	StrategyMotion
	// StrategyPooled (S3) keeps every candidate feature match per
	// landmark instead of committing to one.
	StrategyPooled
)

// motionGateRadius is S2's pixel-radius match gate.
const motionGateRadius = 20.0

// maxActiveCandidates bounds how many landmarks SelectCandidates
// considers, across WM then STM.
const maxActiveCandidates = 300

// pooledSTMSkipThreshold: S3 skips STM entirely once WM alone has this
// many landmarks.
const pooledSTMSkipThreshold = 50

func (s Strategy) maxIterations() int {
	if s == StrategyMotion || s == StrategyBruteForce {
		return 300
	}
	return 500
}

func (s Strategy) angleThreshold() float64 {
	if s == StrategyPooled {
		return 0.15
	}
	return 0.2
}
