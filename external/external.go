// Package external declares the collaborator contracts the core
// geometric/optimization pipeline needs but does not implement: image
// decoding, chessboard corner extraction, feature detection and
// descriptor matching. These are out of scope for this module — a host
// program supplies concrete implementations.
package external

import (
	"image"

	"github.com/golang/geo/r2"
)

// ImageDecoder decodes a grayscale PGM/PNG/JPEG image from raw bytes.
type ImageDecoder interface {
	Decode(data []byte) (image.Image, error)
}

// CornerDetector extracts the Nx*Ny interior corners of a planar
// chessboard target from an image, in the row-major order
// calibration.BuildGrid expects.
type CornerDetector interface {
	DetectCorners(img image.Image, nx, ny int) ([]r2.Point, bool)
}

// Feature is one detected image keypoint plus its descriptor, in the
// shape a DescriptorMatcher consumes.
type Feature struct {
	Pixel      r2.Point
	Descriptor []byte
}

// FeatureDetector finds keypoints and computes their descriptors.
type FeatureDetector interface {
	Detect(img image.Image) ([]Feature, error)
}

// DescriptorMatcher matches a set of query descriptors against a set of
// candidate descriptors. MatchIndex[i] is the index into candidates
// matched to queries[i], or -1 if unmatched.
type DescriptorMatcher interface {
	// BruteForce performs a one-to-one nearest-descriptor match between
	// landmarks (queries) and detected features (candidates).
	BruteForce(queries, candidates []Feature) (matchIndex []int)
	// MatchWithinRadius matches queries to candidates whose pixel lies
	// within radius of the query's predicted pixel, breaking ties by
	// descriptor distance.
	MatchWithinRadius(queries, candidates []Feature, radius float64) (matchIndex []int)
	// BruteForcePool returns, per query, every candidate index within
	// descriptor-distance tolerance rather than committing to one match.
	BruteForcePool(queries, candidates []Feature) (matchIndices [][]int)
}
