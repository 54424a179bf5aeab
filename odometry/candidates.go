package odometry

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/stereonav/vo/mapping"
	"github.com/stereonav/vo/pose"
)

// Candidate is one landmark selected for association against detected
// features this frame, plus its predicted pixel in cam1 under
// evalPose — meaningful as a match gate only under StrategyMotion.
type Candidate struct {
	Landmark       *mapping.Landmark
	PredictedPixel r2.Point
	HasPrediction  bool
}

// SelectCandidates walks WM then STM newest-first, accepting a landmark
// iff its most recent observation is at the trajectory's current tail
// pose and its point, transformed into cam1's frame through evalPose,
// has z > 0.5. It stops after maxActiveCandidates acceptances and,
// under StrategyPooled, skips STM once WM alone has reached
// pooledSTMSkipThreshold landmarks. evalPose is the trajectory's tail
// pose for S1/S3 and the constant-velocity prediction for S2; when a
// prediction is used, PredictedPixel/HasPrediction are also filled so
// StrategyMotion can gate its match by pixel radius.
func SelectCandidates(m *mapping.Map, traj *mapping.Trajectory, rig *mapping.StereoRig, strategy Strategy, evalPose *pose.Transform) []Candidate {
	_, tailIdx := traj.Last()
	predicting := strategy == StrategyMotion

	var candidates []Candidate
	accept := func(pool []*mapping.Landmark) {
		for k := len(pool) - 1; k >= 0 && len(candidates) < maxActiveCandidates; k-- {
			lm := pool[k]
			if lm.LastPoseIdx() != tailIdx {
				continue
			}
			bodyPt := evalPose.InverseTransform([]r3.Vector{lm.X})[0]
			camPt := rig.BaseToCam1.InverseTransform([]r3.Vector{bodyPt})[0]
			if camPt.Z <= 0.5 {
				continue
			}

			cand := Candidate{Landmark: lm}
			if predicting {
				p, ok := rig.Cam1.Project(camPt)
				if !ok {
					continue
				}
				cand.PredictedPixel = p
				cand.HasPrediction = true
			}
			candidates = append(candidates, cand)
		}
	}

	wm := m.Landmarks(mapping.WM)
	accept(wm)

	if strategy == StrategyPooled && len(wm) >= pooledSTMSkipThreshold {
		return candidates
	}
	accept(m.Landmarks(mapping.STM))
	return candidates
}
