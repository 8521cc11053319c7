package constraint

import (
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Position is the center of mass and angle of a body during a solve.
type Position struct {
	C mgl64.Vec2
	A geom.Real
}

// Velocity is the linear and angular velocity of a body during a solve.
type Velocity struct {
	V mgl64.Vec2
	W geom.Real
}

// BodyConstraint is the solver's copy of a body. Constraints address bodies by their index in
// the island's BodyConstraint slice. Static and kinematic bodies have zero inverse mass.
type BodyConstraint struct {
	InvMass     geom.Real
	InvI        geom.Real
	LocalCenter mgl64.Vec2
	Position    Position
	Velocity    Velocity
}

// Transform returns the body origin matching the current position.
func (b *BodyConstraint) Transform() geom.Transform {
	rotation := mgl64.Rotate2D(b.Position.A)
	return geom.Transform{
		Position: b.Position.C.Sub(rotation.Mul2x1(b.LocalCenter)),
		Rotation: rotation,
	}
}

func (b *BodyConstraint) applyImpulse(impulse, r mgl64.Vec2) {
	b.Velocity.V = b.Velocity.V.Add(impulse.Mul(b.InvMass))
	b.Velocity.W += b.InvI * geom.Cross(r, impulse)
}

// velocityAt returns the velocity of the point at offset r from the center of mass.
func (b *BodyConstraint) velocityAt(r mgl64.Vec2) mgl64.Vec2 {
	return b.Velocity.V.Add(geom.CrossSV(b.Velocity.W, r))
}
