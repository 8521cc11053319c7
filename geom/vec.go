package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Cross returns the z component of the 3D cross product of a and b.
func Cross(a, b mgl64.Vec2) Real {
	return a[0]*b[1] - a[1]*b[0]
}

// CrossVS returns v x s, a vector perpendicular to v (clockwise) scaled by s.
func CrossVS(v mgl64.Vec2, s Real) mgl64.Vec2 {
	return mgl64.Vec2{s * v[1], -s * v[0]}
}

// CrossSV returns s x v, a vector perpendicular to v (counter-clockwise) scaled by s.
func CrossSV(s Real, v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-s * v[1], s * v[0]}
}

// MinVec returns the component-wise minimum.
func MinVec(a, b mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{min(a[0], b[0]), min(a[1], b[1])}
}

// MaxVec returns the component-wise maximum.
func MaxVec(a, b mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{max(a[0], b[0]), max(a[1], b[1])}
}

// AbsVec returns the component-wise absolute value.
func AbsVec(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{math.Abs(v[0]), math.Abs(v[1])}
}

// Normalize returns the unit vector of v and its original length.
// A vector shorter than Epsilon is returned unchanged with a length of 0,
// mgl64.Vec2.Normalize would divide by zero there.
func Normalize(v mgl64.Vec2) (mgl64.Vec2, Real) {
	length := v.Len()
	if length < Epsilon {
		return v, 0
	}
	return v.Mul(1 / length), length
}

// IsValidVec reports whether both components are finite.
func IsValidVec(v mgl64.Vec2) bool {
	return IsValid(v[0]) && IsValid(v[1])
}

// DistanceSquared returns |a-b|^2.
func DistanceSquared(a, b mgl64.Vec2) Real {
	return b.Sub(a).LenSqr()
}
