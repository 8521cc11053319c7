package broadphase

import (
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Query calls fn for every proxy whose fat box overlaps aabb. Returning false from fn stops
// the query.
func (t *Tree[T]) Query(aabb geom.AABB, fn func(id int) bool) {
	if t.root == nullNode {
		return
	}

	stack := make([]int, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &t.nodes[id]
		if !node.aabb.Overlaps(aabb) {
			continue
		}

		if node.isLeaf() {
			if !fn(id) {
				return
			}
			continue
		}
		stack = append(stack, node.child1, node.child2)
	}
}

// RayCastFunc is called for each proxy whose fat box is hit by the ray.
//
// The return value controls the rest of the cast:
//   - negative: ignore this proxy and continue
//   - zero: terminate
//   - a fraction in (0, MaxFraction): clip the ray to it, only closer proxies are reported next
//   - MaxFraction: continue unchanged
type RayCastFunc func(input geom.RayCastInput, id int) geom.Real

// RayCast reports the proxies whose fat box intersects the segment from input.P1 to
// input.P1 + input.MaxFraction*(input.P2-input.P1).
func (t *Tree[T]) RayCast(input geom.RayCastInput, fn RayCastFunc) {
	if t.root == nullNode {
		return
	}

	p1 := input.P1
	p2 := input.P2
	r, length := geom.Normalize(p2.Sub(p1))
	if length == 0 {
		return
	}

	// v is perpendicular to the segment.
	v := geom.CrossSV(1, r)
	absV := geom.AbsVec(v)

	// Separating axis for segment (Gino, p80).
	// |dot(v, p1 - c)| > dot(|v|, h)

	maxFraction := input.MaxFraction
	segmentAABB := segmentBounds(p1, p2, maxFraction)

	stack := make([]int, 0, 64)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &t.nodes[id]
		if !node.aabb.Overlaps(segmentAABB) {
			continue
		}

		c := node.aabb.Center()
		h := node.aabb.Extents()
		separation := geom.Abs(v.Dot(p1.Sub(c))) - absV.Dot(h)
		if separation > 0 {
			continue
		}

		if !node.isLeaf() {
			stack = append(stack, node.child1, node.child2)
			continue
		}

		subInput := geom.RayCastInput{P1: p1, P2: p2, MaxFraction: maxFraction}
		value := fn(subInput, id)
		if value == 0 {
			// The client has terminated the ray cast.
			return
		}
		if value > 0 && value < maxFraction {
			// Update segment bounding box.
			maxFraction = value
			segmentAABB = segmentBounds(p1, p2, maxFraction)
		}
	}
}

func segmentBounds(p1, p2 mgl64.Vec2, fraction geom.Real) geom.AABB {
	t := p1.Add(p2.Sub(p1).Mul(fraction))
	return geom.NewAABB(p1, t)
}
