package gjk

import (
	"errors"
	"fmt"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxVertices bounds the number of support vertices of a proxy.
const MaxVertices = 16

var ErrInvalidProxy = errors.New("gjk: invalid proxy")

// Proxy is a convex point set inflated by a radius.
//
// Circles are a single vertex with a radius, segments two vertices, polygons three or more
// vertices in counter-clockwise order. Normals[i] is the outward normal of the edge
// Vertices[i] -> Vertices[i+1]. A proxy is immutable once built.
type Proxy struct {
	Vertices []mgl64.Vec2
	Normals  []mgl64.Vec2
	Radius   geom.Real
}

// NewProxy builds a proxy and its edge normals from counter-clockwise vertices.
//
// Convexity is not checked here, shape constructors are responsible for it.
func NewProxy(vertices []mgl64.Vec2, radius geom.Real) (Proxy, error) {
	count := len(vertices)
	if count == 0 || count > MaxVertices {
		return Proxy{}, fmt.Errorf("%w: %d vertices, want 1..%d", ErrInvalidProxy, count, MaxVertices)
	}
	if radius < 0 || !geom.IsValid(radius) {
		return Proxy{}, fmt.Errorf("%w: radius %v", ErrInvalidProxy, radius)
	}

	p := Proxy{
		Vertices: append([]mgl64.Vec2(nil), vertices...),
		Radius:   radius,
	}
	if count == 1 {
		return p, nil
	}

	p.Normals = make([]mgl64.Vec2, count)
	for i := range count {
		edge := p.Vertices[(i+1)%count].Sub(p.Vertices[i])
		normal, length := geom.Normalize(geom.CrossVS(edge, 1))
		if length <= geom.Epsilon {
			return Proxy{}, fmt.Errorf("%w: edge %d has zero length", ErrInvalidProxy, i)
		}
		p.Normals[i] = normal
		if count == 2 {
			p.Normals[1] = normal.Mul(-1)
			break
		}
	}

	return p, nil
}

// Count returns the number of vertices.
func (p *Proxy) Count() int {
	return len(p.Vertices)
}

// Support returns the index of the vertex furthest along d, in the proxy's local frame.
// Ties keep the lowest index so that results are deterministic.
func (p *Proxy) Support(d mgl64.Vec2) int {
	best := 0
	bestValue := p.Vertices[0].Dot(d)
	for i := 1; i < len(p.Vertices); i++ {
		if value := p.Vertices[i].Dot(d); value > bestValue {
			best = i
			bestValue = value
		}
	}
	return best
}

// ComputeAABB returns the world bounds of the proxy at xf, radius included.
func (p *Proxy) ComputeAABB(xf geom.Transform) geom.AABB {
	lower := xf.Apply(p.Vertices[0])
	upper := lower
	for _, v := range p.Vertices[1:] {
		w := xf.Apply(v)
		lower = geom.MinVec(lower, w)
		upper = geom.MaxVec(upper, w)
	}

	r := mgl64.Vec2{p.Radius, p.Radius}
	return geom.AABB{Min: lower.Sub(r), Max: upper.Add(r)}
}

// MaxExtent returns the largest distance from origin to any point of the proxy.
// It bounds how fast a point of the shape can move when the body spins around origin.
func (p *Proxy) MaxExtent(origin mgl64.Vec2) geom.Real {
	var extent geom.Real
	for _, v := range p.Vertices {
		extent = max(extent, v.Sub(origin).Len())
	}
	return extent + p.Radius
}
