package actor

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/feather2d/config"
	"github.com/akmonengine/feather2d/geom"
	"github.com/akmonengine/feather2d/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidShape is returned by shape constructors for geometry the collision code cannot use.
var ErrInvalidShape = errors.New("actor: invalid shape")

// DefaultVertexRadius is the skin given to boxes and edges. Contacts between skinned shapes
// keep their cores apart.
const DefaultVertexRadius = 2 * config.DefaultLinearSlop

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeCircle ShapeType = iota
	ShapeTypePolygon
	ShapeTypeEdge
)

func (t ShapeType) String() string {
	switch t {
	case ShapeTypeCircle:
		return "circle"
	case ShapeTypePolygon:
		return "polygon"
	case ShapeTypeEdge:
		return "edge"
	}
	return fmt.Sprintf("ShapeType(%d)", int(t))
}

// MassData holds the mass properties of a shape, in the body frame.
type MassData struct {
	Mass geom.Real
	// Center is the centroid, relative to the body origin.
	Center mgl64.Vec2
	// I is the rotational inertia about the body origin.
	I geom.Real
}

// ShapeInterface is the interface that all collision shapes must implement.
// Shapes are immutable once built.
type ShapeInterface interface {
	Type() ShapeType
	// ComputeAABB returns the bounding box of the shape placed at xf
	ComputeAABB(xf geom.Transform) geom.AABB
	// ComputeMass calculates mass data for the shape given a density
	ComputeMass(density geom.Real) MassData
	// Proxy returns the convex point set used by the collision algorithms
	Proxy() *gjk.Proxy
	TestPoint(xf geom.Transform, p mgl64.Vec2) bool
	RayCast(input geom.RayCastInput, xf geom.Transform) (geom.RayCastOutput, bool)
}

// =============================================================================
// Circle
// =============================================================================

// Circle is a disk around Center, in body coordinates.
type Circle struct {
	Center mgl64.Vec2
	Radius geom.Real
	proxy  gjk.Proxy
}

// NewCircle builds a circle. The radius must be positive.
func NewCircle(center mgl64.Vec2, radius geom.Real) (*Circle, error) {
	if radius <= 0 || !geom.IsValid(radius) || !geom.IsValidVec(center) {
		return nil, fmt.Errorf("%w: circle radius %v at %v", ErrInvalidShape, radius, center)
	}

	proxy, err := gjk.NewProxy([]mgl64.Vec2{center}, radius)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShape, err)
	}
	return &Circle{Center: center, Radius: radius, proxy: proxy}, nil
}

func (c *Circle) Type() ShapeType {
	return ShapeTypeCircle
}

func (c *Circle) ComputeAABB(xf geom.Transform) geom.AABB {
	return c.proxy.ComputeAABB(xf)
}

// ComputeMass calculates mass data for the circle
func (c *Circle) ComputeMass(density geom.Real) MassData {
	// Area of disk = π * r²
	mass := density * math.Pi * c.Radius * c.Radius

	// Inertia about the center, shifted to the body origin.
	return MassData{
		Mass:   mass,
		Center: c.Center,
		I:      mass * (0.5*c.Radius*c.Radius + c.Center.Dot(c.Center)),
	}
}

func (c *Circle) Proxy() *gjk.Proxy {
	return &c.proxy
}

func (c *Circle) TestPoint(xf geom.Transform, p mgl64.Vec2) bool {
	center := xf.Apply(c.Center)
	return geom.DistanceSquared(center, p) <= c.Radius*c.Radius
}

func (c *Circle) RayCast(input geom.RayCastInput, xf geom.Transform) (geom.RayCastOutput, bool) {
	return c.proxy.RayCast(input, xf)
}

// =============================================================================
// Polygon
// =============================================================================

// Polygon is a convex polygon with counter-clockwise vertices, optionally rounded by Radius.
type Polygon struct {
	Vertices []mgl64.Vec2
	Normals  []mgl64.Vec2
	Centroid mgl64.Vec2
	Radius   geom.Real
	proxy    gjk.Proxy
}

// NewPolygon builds a convex polygon. Clockwise input is reversed. The vertices must describe
// a strictly convex polygon of 3 to gjk.MaxVertices vertices with no repeated point.
func NewPolygon(vertices []mgl64.Vec2, radius geom.Real) (*Polygon, error) {
	count := len(vertices)
	if count < 3 || count > gjk.MaxVertices {
		return nil, fmt.Errorf("%w: polygon with %d vertices, want 3..%d", ErrInvalidShape, count, gjk.MaxVertices)
	}
	if radius < 0 || !geom.IsValid(radius) {
		return nil, fmt.Errorf("%w: polygon radius %v", ErrInvalidShape, radius)
	}
	for i, v := range vertices {
		if !geom.IsValidVec(v) {
			return nil, fmt.Errorf("%w: vertex %d is %v", ErrInvalidShape, i, v)
		}
	}

	vs := append([]mgl64.Vec2(nil), vertices...)
	if signedArea(vs) < 0 {
		for i, j := 0, len(vs)-1; i < j; i, j = i+1, j-1 {
			vs[i], vs[j] = vs[j], vs[i]
		}
	}

	// Every other vertex must lie strictly left of every edge.
	for i := range count {
		v1 := vs[i]
		edge := vs[(i+1)%count].Sub(v1)
		if edge.LenSqr() <= geom.Epsilon {
			return nil, fmt.Errorf("%w: edge %d is degenerate", ErrInvalidShape, i)
		}
		for j := range count {
			if j == i || j == (i+1)%count {
				continue
			}
			if geom.Cross(edge, vs[j].Sub(v1)) <= geom.Epsilon {
				return nil, fmt.Errorf("%w: polygon is not convex at vertex %d", ErrInvalidShape, j)
			}
		}
	}

	proxy, err := gjk.NewProxy(vs, radius)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShape, err)
	}

	return &Polygon{
		Vertices: proxy.Vertices,
		Normals:  proxy.Normals,
		Centroid: polygonCentroid(proxy.Vertices),
		Radius:   radius,
		proxy:    proxy,
	}, nil
}

// NewBox builds an axis aligned box centered on the body origin, rounded by DefaultVertexRadius.
func NewBox(hx, hy geom.Real) (*Polygon, error) {
	return NewRoundedBox(hx, hy, mgl64.Vec2{}, 0, DefaultVertexRadius)
}

// NewOrientedBox builds a box centered on center and rotated by angle, in body coordinates,
// rounded by DefaultVertexRadius.
func NewOrientedBox(hx, hy geom.Real, center mgl64.Vec2, angle geom.Real) (*Polygon, error) {
	return NewRoundedBox(hx, hy, center, angle, DefaultVertexRadius)
}

// NewRoundedBox builds a box whose outer faces lie at the given half extents. The core polygon
// is shrunk by radius on every side, so both half extents must exceed it.
func NewRoundedBox(hx, hy geom.Real, center mgl64.Vec2, angle geom.Real, radius geom.Real) (*Polygon, error) {
	if hx <= 0 || hy <= 0 {
		return nil, fmt.Errorf("%w: box half extents %v x %v", ErrInvalidShape, hx, hy)
	}
	if radius < 0 || hx <= radius || hy <= radius {
		return nil, fmt.Errorf("%w: box half extents %v x %v cannot hold radius %v", ErrInvalidShape, hx, hy, radius)
	}

	cx, cy := hx-radius, hy-radius
	xf := geom.NewTransform(center, angle)
	return NewPolygon([]mgl64.Vec2{
		xf.Apply(mgl64.Vec2{-cx, -cy}),
		xf.Apply(mgl64.Vec2{cx, -cy}),
		xf.Apply(mgl64.Vec2{cx, cy}),
		xf.Apply(mgl64.Vec2{-cx, cy}),
	}, radius)
}

func signedArea(vs []mgl64.Vec2) geom.Real {
	var area geom.Real
	for i := range vs {
		area += geom.Cross(vs[i], vs[(i+1)%len(vs)])
	}
	return 0.5 * area
}

func polygonCentroid(vs []mgl64.Vec2) mgl64.Vec2 {
	var c mgl64.Vec2
	var area geom.Real

	// Triangle fan around the first vertex.
	origin := vs[0]
	for i := 1; i < len(vs)-1; i++ {
		e1 := vs[i].Sub(origin)
		e2 := vs[i+1].Sub(origin)
		triangleArea := 0.5 * geom.Cross(e1, e2)
		area += triangleArea
		c = c.Add(e1.Add(e2).Mul(triangleArea / 3))
	}
	return c.Mul(1 / area).Add(origin)
}

func (p *Polygon) Type() ShapeType {
	return ShapeTypePolygon
}

func (p *Polygon) ComputeAABB(xf geom.Transform) geom.AABB {
	return p.proxy.ComputeAABB(xf)
}

// outerVertices returns the corners of the core polygon pushed out by the radius along both
// adjacent face normals. Rounded corners are approximated by sharp ones.
func (p *Polygon) outerVertices() []mgl64.Vec2 {
	if p.Radius == 0 {
		return p.Vertices
	}

	count := len(p.Vertices)
	outer := make([]mgl64.Vec2, count)
	for i, v := range p.Vertices {
		n1 := p.Normals[(i+count-1)%count]
		n2 := p.Normals[i]
		outer[i] = v.Add(n1.Add(n2).Mul(p.Radius / (1 + n1.Dot(n2))))
	}
	return outer
}

// ComputeMass calculates mass data for the polygon, skin included.
//
// The polygon is split in a fan of triangles around its first vertex. Each triangle
// contributes its area, first moment and second moment; the inertia is then shifted from the
// fan origin to the body origin.
func (p *Polygon) ComputeMass(density geom.Real) MassData {
	var center mgl64.Vec2
	var area, I geom.Real

	vertices := p.outerVertices()

	// Reference point inside the polygon keeps the terms small.
	s := vertices[0]
	const inv3 = 1.0 / 3.0

	count := len(vertices)
	for i := range count {
		e1 := vertices[i].Sub(s)
		e2 := vertices[(i+1)%count].Sub(s)

		D := geom.Cross(e1, e2)

		triangleArea := 0.5 * D
		area += triangleArea

		// Area weighted centroid
		center = center.Add(e1.Add(e2).Mul(triangleArea * inv3))

		ex1, ey1 := e1[0], e1[1]
		ex2, ey2 := e2[0], e2[1]

		intx2 := ex1*ex1 + ex2*ex1 + ex2*ex2
		inty2 := ey1*ey1 + ey2*ey1 + ey2*ey2

		I += (0.25 * inv3 * D) * (intx2 + inty2)
	}

	mass := density * area
	center = center.Mul(1 / area)
	massCenter := center.Add(s)

	// Inertia tensor relative to the local origin (point s), then shifted to the body origin.
	I = density * I
	I += mass * (massCenter.Dot(massCenter) - center.Dot(center))

	return MassData{Mass: mass, Center: massCenter, I: I}
}

func (p *Polygon) Proxy() *gjk.Proxy {
	return &p.proxy
}

func (p *Polygon) TestPoint(xf geom.Transform, point mgl64.Vec2) bool {
	local := xf.ApplyInverse(point)
	for i, n := range p.Normals {
		if n.Dot(local.Sub(p.Vertices[i])) > p.Radius {
			return false
		}
	}
	return true
}

func (p *Polygon) RayCast(input geom.RayCastInput, xf geom.Transform) (geom.RayCastOutput, bool) {
	return p.proxy.RayCast(input, xf)
}

// =============================================================================
// Edge
// =============================================================================

// Edge is a two-sided line segment with a DefaultVertexRadius skin. Edges have no mass and
// suit static ground and walls.
type Edge struct {
	V1, V2 mgl64.Vec2
	proxy  gjk.Proxy
}

// NewEdge builds a segment between two distinct points.
func NewEdge(v1, v2 mgl64.Vec2) (*Edge, error) {
	if !geom.IsValidVec(v1) || !geom.IsValidVec(v2) || geom.DistanceSquared(v1, v2) <= geom.Epsilon {
		return nil, fmt.Errorf("%w: edge from %v to %v", ErrInvalidShape, v1, v2)
	}

	proxy, err := gjk.NewProxy([]mgl64.Vec2{v1, v2}, DefaultVertexRadius)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShape, err)
	}
	return &Edge{V1: v1, V2: v2, proxy: proxy}, nil
}

func (e *Edge) Type() ShapeType {
	return ShapeTypeEdge
}

func (e *Edge) ComputeAABB(xf geom.Transform) geom.AABB {
	return e.proxy.ComputeAABB(xf)
}

// ComputeMass returns zero mass centered on the segment.
func (e *Edge) ComputeMass(density geom.Real) MassData {
	return MassData{Center: e.V1.Add(e.V2).Mul(0.5)}
}

func (e *Edge) Proxy() *gjk.Proxy {
	return &e.proxy
}

func (e *Edge) TestPoint(geom.Transform, mgl64.Vec2) bool {
	return false
}

func (e *Edge) RayCast(input geom.RayCastInput, xf geom.Transform) (geom.RayCastOutput, bool) {
	return e.proxy.RayCast(input, xf)
}
