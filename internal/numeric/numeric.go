// Package numeric holds small generic numeric helpers shared across the
// geometry and optimization packages.
package numeric

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Abs returns the absolute value of x for any signed ordered type.
func Abs[T constraints.Signed | constraints.Float](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

// Clamp restricts x to the closed interval [lo, hi].
func Clamp[T constraints.Ordered](x, lo, hi T) T {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Sinc is the unnormalized sinc function, sin(x)/x, stable at x=0 where
// the limit is 1. Used throughout the SE(3)/so(3) machinery to avoid
// division by zero near zero rotation angle.
func Sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(x) / x
}
