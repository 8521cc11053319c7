package gjk

import (
	"math"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// RayCast intersects a world space ray with the proxy placed at xf.
//
// Rays starting inside the proxy report no hit. Segments are two-sided and ignore their radius.
// Polygon faces are pushed out by the radius, with sharp corners.
func (p *Proxy) RayCast(input geom.RayCastInput, xf geom.Transform) (geom.RayCastOutput, bool) {
	// Put the ray into the proxy's frame of reference.
	local := geom.RayCastInput{
		P1:          xf.ApplyInverse(input.P1),
		P2:          xf.ApplyInverse(input.P2),
		MaxFraction: input.MaxFraction,
	}

	var output geom.RayCastOutput
	var hit bool
	switch p.Count() {
	case 1:
		output, hit = rayCastCircle(local, p.Vertices[0], p.Radius)
	case 2:
		output, hit = rayCastSegment(local, p.Vertices[0], p.Vertices[1])
	default:
		output, hit = rayCastPolygon(local, p)
	}
	if !hit {
		return geom.RayCastOutput{}, false
	}

	output.Normal = xf.Rotate(output.Normal)
	return output, true
}

func rayCastCircle(input geom.RayCastInput, center mgl64.Vec2, radius geom.Real) (geom.RayCastOutput, bool) {
	s := input.P1.Sub(center)
	b := s.Dot(s) - radius*radius

	// Solve quadratic equation.
	r := input.P2.Sub(input.P1)
	c := s.Dot(r)
	rr := r.Dot(r)
	sigma := c*c - rr*b

	// Check for negative discriminant and short segment.
	if sigma < 0 || rr < geom.Epsilon {
		return geom.RayCastOutput{}, false
	}

	// Find the point of intersection of the line with the circle.
	a := -(c + math.Sqrt(sigma))

	// Is the intersection point on the segment?
	if a >= 0 && a <= input.MaxFraction*rr {
		a /= rr
		normal, _ := geom.Normalize(s.Add(r.Mul(a)))
		return geom.RayCastOutput{Normal: normal, Fraction: a}, true
	}

	return geom.RayCastOutput{}, false
}

func rayCastSegment(input geom.RayCastInput, v1, v2 mgl64.Vec2) (geom.RayCastOutput, bool) {
	d := input.P2.Sub(input.P1)
	e := v2.Sub(v1)
	normal, length := geom.Normalize(mgl64.Vec2{e[1], -e[0]})
	if length == 0 {
		return geom.RayCastOutput{}, false
	}

	// q = p1 + t * d
	// dot(normal, q - v1) = 0
	numerator := normal.Dot(v1.Sub(input.P1))
	denominator := normal.Dot(d)
	if denominator == 0 {
		return geom.RayCastOutput{}, false
	}

	t := numerator / denominator
	if t < 0 || t > input.MaxFraction {
		return geom.RayCastOutput{}, false
	}

	q := input.P1.Add(d.Mul(t))

	// q = v1 + s * r, s = dot(q - v1, r) / dot(r, r)
	rr := e.Dot(e)
	s := q.Sub(v1).Dot(e) / rr
	if s < 0 || s > 1 {
		return geom.RayCastOutput{}, false
	}

	if numerator > 0 {
		normal = normal.Mul(-1)
	}
	return geom.RayCastOutput{Normal: normal, Fraction: t}, true
}

func rayCastPolygon(input geom.RayCastInput, p *Proxy) (geom.RayCastOutput, bool) {
	d := input.P2.Sub(input.P1)
	lower, upper := geom.Real(0), input.MaxFraction
	index := -1

	for i, n := range p.Normals {
		// p = p1 + a * d
		// dot(normal, p - v) = 0
		// dot(normal, p1 - v) + a * dot(normal, d) = 0
		numerator := n.Dot(p.Vertices[i].Sub(input.P1)) + p.Radius
		denominator := n.Dot(d)

		if denominator == 0 {
			if numerator < 0 {
				return geom.RayCastOutput{}, false
			}
			continue
		}

		// Note: we want this predicate without division:
		// lower < numerator / denominator, where denominator < 0
		// Since denominator < 0, we have to flip the inequality:
		// lower < numerator / denominator <==> denominator * lower > numerator.
		if denominator < 0 && numerator < lower*denominator {
			// Increase lower. The segment enters this half-space.
			lower = numerator / denominator
			index = i
		} else if denominator > 0 && numerator < upper*denominator {
			// Decrease upper. The segment exits this half-space.
			upper = numerator / denominator
		}

		if upper < lower {
			return geom.RayCastOutput{}, false
		}
	}

	if index < 0 {
		return geom.RayCastOutput{}, false
	}

	return geom.RayCastOutput{Normal: p.Normals[index], Fraction: lower}, true
}
