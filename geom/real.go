// Package geom holds the geometric vocabulary shared by the collision and dynamics packages:
// the Real scalar, 2D vector helpers on top of mgl64, transforms, sweeps, AABBs and ray casts.
package geom

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Real is the scalar used by every determinism-sensitive computation.
// All call sites use float64 so that repeated runs produce bit-identical results.
type Real = float64

// Number is any scalar geom helpers operate on, including iteration counters.
type Number interface {
	constraints.Integer | constraints.Float
}

// Epsilon is the machine epsilon of Real.
const Epsilon Real = 2.220446049250313e-16

// MaxReal is the largest finite Real.
const MaxReal Real = math.MaxFloat64

// Clamp restricts v to [low, high].
func Clamp[T Number](v, low, high T) T {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// Abs returns the absolute value of v.
func Abs[T constraints.Signed | constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// Square returns v*v.
func Square[T Number](v T) T {
	return v * v
}

// IsValid reports whether v is a finite number.
func IsValid(v Real) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
