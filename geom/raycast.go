package geom

import "github.com/go-gl/mathgl/mgl64"

// RayCastInput is the segment P1 + t*(P2-P1), t in [0, MaxFraction].
type RayCastInput struct {
	P1, P2      mgl64.Vec2
	MaxFraction Real
}

// RayCastOutput is the hit point fraction along the input segment and the surface normal there.
type RayCastOutput struct {
	Normal   mgl64.Vec2
	Fraction Real
}

// Point returns the world point of the hit.
func (out RayCastOutput) Point(input RayCastInput) mgl64.Vec2 {
	return input.P1.Add(input.P2.Sub(input.P1).Mul(out.Fraction))
}
