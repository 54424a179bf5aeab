package odometry

import (
	"github.com/golang/geo/r2"

	"github.com/stereonav/vo/external"
)

// Correspondence is one landmark-to-pixel match feeding the RANSAC
// kernel under StrategyBruteForce or StrategyMotion.
type Correspondence struct {
	Candidate Candidate
	Pixel     r2.Point
}

// PooledCorrespondence is one landmark with every candidate pixel match
// it kept, feeding the RANSAC kernel under StrategyPooled.
type PooledCorrespondence struct {
	Candidate Candidate
	Pixels    []r2.Point
}

// candidateFeatures builds the matcher's query set. PredictedPixel is
// only meaningful under StrategyMotion, where MatchWithinRadius gates
// candidates by distance from it.
func candidateFeatures(candidates []Candidate) []external.Feature {
	feats := make([]external.Feature, len(candidates))
	for i, c := range candidates {
		feats[i] = external.Feature{Pixel: c.PredictedPixel, Descriptor: c.Landmark.Descriptor}
	}
	return feats
}

// Associate matches candidates to detected features under
// StrategyBruteForce or StrategyMotion, dropping any candidate the
// matcher could not resolve.
func Associate(candidates []Candidate, features []external.Feature, matcher external.DescriptorMatcher, strategy Strategy) []Correspondence {
	queries := candidateFeatures(candidates)

	var matchIdx []int
	if strategy == StrategyMotion {
		matchIdx = matcher.MatchWithinRadius(queries, features, motionGateRadius)
	} else {
		matchIdx = matcher.BruteForce(queries, features)
	}

	out := make([]Correspondence, 0, len(candidates))
	for i, m := range matchIdx {
		if m < 0 {
			continue
		}
		out = append(out, Correspondence{Candidate: candidates[i], Pixel: features[m].Pixel})
	}
	return out
}

// AssociatePooled matches candidates to detected features under
// StrategyPooled, keeping every retained match per candidate.
func AssociatePooled(candidates []Candidate, features []external.Feature, matcher external.DescriptorMatcher) []PooledCorrespondence {
	queries := candidateFeatures(candidates)
	matchIdxs := matcher.BruteForcePool(queries, features)

	out := make([]PooledCorrespondence, 0, len(candidates))
	for i, idxs := range matchIdxs {
		if len(idxs) == 0 {
			continue
		}
		pixels := make([]r2.Point, 0, len(idxs))
		for _, j := range idxs {
			if j >= 0 {
				pixels = append(pixels, features[j].Pixel)
			}
		}
		if len(pixels) == 0 {
			continue
		}
		out = append(out, PooledCorrespondence{Candidate: candidates[i], Pixels: pixels})
	}
	return out
}
