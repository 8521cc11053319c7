package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform represents a position and an orientation in 2D space
type Transform struct {
	Position mgl64.Vec2
	Rotation mgl64.Mat2
}

// NewTransform creates a transform from a position and an angle in radians
func NewTransform(position mgl64.Vec2, angle Real) Transform {
	return Transform{
		Position: position,
		Rotation: mgl64.Rotate2D(angle),
	}
}

// IdentityTransform creates an identity transform
func IdentityTransform() Transform {
	return Transform{Rotation: mgl64.Ident2()}
}

// Angle returns the rotation angle in radians, in (-pi, pi].
func (xf Transform) Angle() Real {
	return math.Atan2(xf.Rotation[1], xf.Rotation[0])
}

// Apply maps a local point to world space.
func (xf Transform) Apply(v mgl64.Vec2) mgl64.Vec2 {
	return xf.Rotation.Mul2x1(v).Add(xf.Position)
}

// ApplyInverse maps a world point to local space.
func (xf Transform) ApplyInverse(v mgl64.Vec2) mgl64.Vec2 {
	return xf.Rotation.Transpose().Mul2x1(v.Sub(xf.Position))
}

// Rotate rotates a local direction to world space.
func (xf Transform) Rotate(v mgl64.Vec2) mgl64.Vec2 {
	return xf.Rotation.Mul2x1(v)
}

// RotateInverse rotates a world direction to local space.
func (xf Transform) RotateInverse(v mgl64.Vec2) mgl64.Vec2 {
	return xf.Rotation.Transpose().Mul2x1(v)
}

// InverseTimes returns xf^-1 * other: other expressed in the frame of xf.
func (xf Transform) InverseTimes(other Transform) Transform {
	inv := xf.Rotation.Transpose()
	return Transform{
		Position: inv.Mul2x1(other.Position.Sub(xf.Position)),
		Rotation: inv.Mul2(other.Rotation),
	}
}
