package feather2d

import (
	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// QueryAABB calls fn for every fixture whose fat box overlaps aabb. The fixture shape itself
// may not overlap. Returning false stops the query.
func (w *World) QueryAABB(aabb geom.AABB, fn func(fixture *actor.Fixture) bool) {
	tree := w.broadPhase.Tree()
	tree.Query(aabb, func(proxy int) bool {
		return fn(w.fixtures.at(tree.Payload(proxy)))
	})
}

// RayCastFunc receives each fixture hit by a ray, with the hit point, the surface normal and
// the fraction along the ray. Its return value clips the ray:
//   - -1: ignore this fixture and continue
//   - 0: terminate the ray cast
//   - fraction: clip the ray to this point
//   - 1: don't clip the ray and continue
type RayCastFunc func(fixture *actor.Fixture, point, normal mgl64.Vec2, fraction geom.Real) geom.Real

// RayCast reports the fixtures crossed by the segment from p1 to p2. Fixtures are not reported
// in order; clip the ray from fn to find the closest one.
func (w *World) RayCast(p1, p2 mgl64.Vec2, fn RayCastFunc) {
	tree := w.broadPhase.Tree()
	input := geom.RayCastInput{P1: p1, P2: p2, MaxFraction: 1}
	tree.RayCast(input, func(sub geom.RayCastInput, proxy int) geom.Real {
		fixture := w.fixtures.at(tree.Payload(proxy))
		body := w.bodies.at(fixture.Body)

		output, hit := fixture.Shape.RayCast(sub, body.Transform)
		if !hit {
			return sub.MaxFraction
		}
		return fn(fixture, output.Point(sub), output.Normal, output.Fraction)
	})
}
