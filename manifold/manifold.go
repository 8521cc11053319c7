// Package manifold builds contact manifolds between convex proxies.
//
// A manifold stores its geometry in the local frames of the two shapes, so it stays valid while
// the bodies move a little and can be re-evaluated in world space at any time with
// GetWorldManifold. Points carry the feature pair they came from and the impulses the solver
// accumulated on them during the previous step.
package manifold

import (
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxPoints is the maximum number of contact points between two convex shapes in 2D.
const MaxPoints = 2

// Type tags the geometry of a manifold.
type Type uint8

const (
	// Unset means no contact.
	Unset Type = iota
	// Circles means a single point contact between two vertices.
	Circles
	// FaceA means the reference face belongs to shape A.
	FaceA
	// FaceB means the reference face belongs to shape B.
	FaceB
)

func (t Type) String() string {
	switch t {
	case Circles:
		return "circles"
	case FaceA:
		return "faceA"
	case FaceB:
		return "faceB"
	}
	return "unset"
}

// Point is a contact point of a manifold.
//
// LocalPoint usage depends on the manifold type:
//   - Circles: the local center of circle B
//   - FaceA: the local center of circle B or the clip point of polygon B
//   - FaceB: the clip point of polygon A
type Point struct {
	LocalPoint     mgl64.Vec2
	NormalImpulse  geom.Real
	TangentImpulse geom.Real
	Feature        ContactFeature
}

// Manifold holds up to MaxPoints contact points sharing a normal.
//
// LocalNormal and LocalPoint depend on the type:
//   - Circles: no normal, LocalPoint is the local center of circle A
//   - FaceA: normal and a point on the reference face of A, in A's frame
//   - FaceB: normal and a point on the reference face of B, in B's frame
type Manifold struct {
	Type        Type
	LocalNormal mgl64.Vec2
	LocalPoint  mgl64.Vec2
	Points      [MaxPoints]Point
	PointCount  int
}

// Find returns the index of the point with the given feature, or -1.
func (m *Manifold) Find(feature ContactFeature) int {
	for i := range m.PointCount {
		if m.Points[i].Feature == feature {
			return i
		}
	}
	return -1
}

// CopyImpulses seeds the impulses of m from the points of old sharing the same feature.
// Points without a match start from zero.
func (m *Manifold) CopyImpulses(old *Manifold) {
	for i := range m.PointCount {
		p := &m.Points[i]
		p.NormalImpulse = 0
		p.TangentImpulse = 0
		if j := old.Find(p.Feature); j >= 0 {
			p.NormalImpulse = old.Points[j].NormalImpulse
			p.TangentImpulse = old.Points[j].TangentImpulse
		}
	}
}

// Conf holds the tolerances of the manifold builder.
type Conf struct {
	// LinearSlop is the collision tolerance. It also sets the reference face hysteresis.
	LinearSlop geom.Real
	// Margin keeps points whose separation is below the total radius plus this distance,
	// so that speculative contacts exist before the shapes actually touch.
	Margin geom.Real
}

// DefaultConf returns the tolerances matching the default step configuration.
func DefaultConf() Conf {
	return Conf{LinearSlop: 0.005, Margin: 0.015}
}

// WorldManifold is a manifold evaluated in world space.
type WorldManifold struct {
	// Normal points from A to B.
	Normal      mgl64.Vec2
	Points      [MaxPoints]mgl64.Vec2
	Separations [MaxPoints]geom.Real
}

// GetWorldManifold evaluates m at the given transforms. Points are the midpoints between the two
// rounded surfaces and separations are negative when penetrating.
func GetWorldManifold(m *Manifold, xfA geom.Transform, radiusA geom.Real, xfB geom.Transform, radiusB geom.Real) WorldManifold {
	var wm WorldManifold
	if m.PointCount == 0 {
		return wm
	}

	switch m.Type {
	case Circles:
		wm.Normal = mgl64.Vec2{1, 0}
		pointA := xfA.Apply(m.LocalPoint)
		pointB := xfB.Apply(m.Points[0].LocalPoint)
		if geom.DistanceSquared(pointA, pointB) > geom.Epsilon*geom.Epsilon {
			wm.Normal, _ = geom.Normalize(pointB.Sub(pointA))
		}

		cA := pointA.Add(wm.Normal.Mul(radiusA))
		cB := pointB.Sub(wm.Normal.Mul(radiusB))
		wm.Points[0] = cA.Add(cB).Mul(0.5)
		wm.Separations[0] = cB.Sub(cA).Dot(wm.Normal)

	case FaceA:
		wm.Normal = xfA.Rotate(m.LocalNormal)
		planePoint := xfA.Apply(m.LocalPoint)

		for i := range m.PointCount {
			clipPoint := xfB.Apply(m.Points[i].LocalPoint)
			cA := clipPoint.Add(wm.Normal.Mul(radiusA - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cB := clipPoint.Sub(wm.Normal.Mul(radiusB))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cB.Sub(cA).Dot(wm.Normal)
		}

	case FaceB:
		normal := xfB.Rotate(m.LocalNormal)
		planePoint := xfB.Apply(m.LocalPoint)

		for i := range m.PointCount {
			clipPoint := xfA.Apply(m.Points[i].LocalPoint)
			cB := clipPoint.Add(normal.Mul(radiusB - clipPoint.Sub(planePoint).Dot(normal)))
			cA := clipPoint.Sub(normal.Mul(radiusA))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cA.Sub(cB).Dot(normal)
		}

		// Ensure normal points from A to B.
		wm.Normal = normal.Mul(-1)
	}

	return wm
}
