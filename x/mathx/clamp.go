// Package mathx holds the generic numeric helpers the sensor path needs:
// readings get clamped to their physical ranges and the scheduler folds
// per-sensor latencies into one deadline.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. Bounds must satisfy lo <= hi.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}
