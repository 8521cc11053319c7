package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Sweep describes the motion of a body's center of mass over a step, for continuous collision.
// C0/A0 is the state at Alpha0, C/A the state at the end of the step.
// Alpha0 only grows during a step and is reset to zero when a new step starts.
type Sweep struct {
	LocalCenter mgl64.Vec2
	C0, C       mgl64.Vec2
	A0, A       Real
	Alpha0      Real
}

// NewSweep creates a motionless sweep for a body placed at xf.
func NewSweep(xf Transform, localCenter mgl64.Vec2) Sweep {
	c := xf.Apply(localCenter)
	angle := xf.Angle()
	return Sweep{
		LocalCenter: localCenter,
		C0:          c,
		C:           c,
		A0:          angle,
		A:           angle,
	}
}

// Transform interpolates the body transform at beta in [0,1], measured from Alpha0.
func (s Sweep) Transform(beta Real) Transform {
	c := s.C0.Mul(1 - beta).Add(s.C.Mul(beta))
	angle := (1-beta)*s.A0 + beta*s.A

	rotation := mgl64.Rotate2D(angle)
	return Transform{
		Position: c.Sub(rotation.Mul2x1(s.LocalCenter)),
		Rotation: rotation,
	}
}

// Transform0 returns the transform at Alpha0.
func (s Sweep) Transform0() Transform {
	return s.Transform(0)
}

// Transform1 returns the transform at the end of the step.
func (s Sweep) Transform1() Transform {
	return s.Transform(1)
}

// Advance moves the start of the sweep forward to alpha, in [Alpha0, 1).
func (s *Sweep) Advance(alpha Real) {
	if alpha <= s.Alpha0 {
		return
	}
	remaining := 1 - s.Alpha0
	if remaining <= Epsilon {
		s.C0 = s.C
		s.A0 = s.A
		s.Alpha0 = alpha
		return
	}

	beta := (alpha - s.Alpha0) / remaining
	s.C0 = s.C0.Add(s.C.Sub(s.C0).Mul(beta))
	s.A0 += beta * (s.A - s.A0)
	s.Alpha0 = alpha
}

// ResetAlpha0 starts a new step.
func (s *Sweep) ResetAlpha0() {
	s.Alpha0 = 0
}

// Normalize keeps the angles bounded without changing the motion.
func (s *Sweep) Normalize() {
	const twoPi = 2 * math.Pi
	d := twoPi * math.Floor(s.A0/twoPi)
	s.A0 -= d
	s.A -= d
}
