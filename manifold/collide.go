package manifold

import (
	"github.com/akmonengine/feather2d/geom"
	"github.com/akmonengine/feather2d/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// Collide builds the manifold between two placed proxies. Proxies with a single vertex are
// circles, the others are polygons (segments included).
//
// Impulses of the returned points are zero; see Manifold.CopyImpulses.
func Collide(proxyA *gjk.Proxy, xfA geom.Transform, proxyB *gjk.Proxy, xfB geom.Transform, conf Conf) Manifold {
	circleA := proxyA.Count() == 1
	circleB := proxyB.Count() == 1

	switch {
	case circleA && circleB:
		return CollideCircles(proxyA, xfA, proxyB, xfB, conf)
	case circleB:
		return CollidePolygonAndCircle(proxyA, xfA, proxyB, xfB, conf)
	case circleA:
		m := CollidePolygonAndCircle(proxyB, xfB, proxyA, xfA, conf)
		if m.Type == FaceA {
			m.Type = FaceB
			for i := range m.PointCount {
				m.Points[i].Feature = m.Points[i].Feature.Flip()
			}
		}
		return m
	}
	return CollidePolygons(proxyA, xfA, proxyB, xfB, conf)
}

// CollideCircles builds the manifold of two single-vertex proxies.
func CollideCircles(circleA *gjk.Proxy, xfA geom.Transform, circleB *gjk.Proxy, xfB geom.Transform, conf Conf) Manifold {
	pA := xfA.Apply(circleA.Vertices[0])
	pB := xfB.Apply(circleB.Vertices[0])

	distSqr := geom.DistanceSquared(pA, pB)
	reach := circleA.Radius + circleB.Radius + conf.Margin
	if distSqr > reach*reach {
		return Manifold{}
	}

	m := Manifold{Type: Circles, LocalPoint: circleA.Vertices[0], PointCount: 1}
	m.Points[0] = Point{
		LocalPoint: circleB.Vertices[0],
		Feature:    ContactFeature{TypeA: Vertex, TypeB: Vertex},
	}
	return m
}

// CollidePolygonAndCircle builds the manifold of a polygon A and a circle B. The normal always
// belongs to the polygon.
func CollidePolygonAndCircle(polygonA *gjk.Proxy, xfA geom.Transform, circleB *gjk.Proxy, xfB geom.Transform, conf Conf) Manifold {
	// Compute circle position in the frame of the polygon.
	c := xfB.Apply(circleB.Vertices[0])
	cLocal := xfA.ApplyInverse(c)

	radius := polygonA.Radius + circleB.Radius
	reach := radius + conf.Margin

	// Find the min separating edge.
	normalIndex := 0
	separation := -geom.MaxReal
	vertexCount := polygonA.Count()
	for i, n := range polygonA.Normals {
		s := n.Dot(cLocal.Sub(polygonA.Vertices[i]))
		if s > reach {
			// Early out.
			return Manifold{}
		}
		if s > separation {
			separation = s
			normalIndex = i
		}
	}

	// Vertices that subtend the incident face.
	vertIndex1 := normalIndex
	vertIndex2 := (normalIndex + 1) % vertexCount
	v1 := polygonA.Vertices[vertIndex1]
	v2 := polygonA.Vertices[vertIndex2]

	m := Manifold{Type: FaceA, PointCount: 1}
	m.Points[0].LocalPoint = circleB.Vertices[0]

	// If the center is inside the polygon ...
	if separation < geom.Epsilon {
		m.LocalNormal = polygonA.Normals[normalIndex]
		m.LocalPoint = v1.Add(v2).Mul(0.5)
		m.Points[0].Feature = ContactFeature{TypeA: Face, IndexA: uint8(normalIndex), TypeB: Vertex}
		return m
	}

	// Compute barycentric coordinates.
	u1 := cLocal.Sub(v1).Dot(v2.Sub(v1))
	u2 := cLocal.Sub(v2).Dot(v1.Sub(v2))
	switch {
	case u1 <= 0:
		if geom.DistanceSquared(cLocal, v1) > reach*reach {
			return Manifold{}
		}
		m.LocalNormal, _ = geom.Normalize(cLocal.Sub(v1))
		m.LocalPoint = v1
		m.Points[0].Feature = ContactFeature{TypeA: Vertex, IndexA: uint8(vertIndex1), TypeB: Vertex}
	case u2 <= 0:
		if geom.DistanceSquared(cLocal, v2) > reach*reach {
			return Manifold{}
		}
		m.LocalNormal, _ = geom.Normalize(cLocal.Sub(v2))
		m.LocalPoint = v2
		m.Points[0].Feature = ContactFeature{TypeA: Vertex, IndexA: uint8(vertIndex2), TypeB: Vertex}
	default:
		faceCenter := v1.Add(v2).Mul(0.5)
		if cLocal.Sub(faceCenter).Dot(polygonA.Normals[vertIndex1]) > reach {
			return Manifold{}
		}
		m.LocalNormal = polygonA.Normals[vertIndex1]
		m.LocalPoint = faceCenter
		m.Points[0].Feature = ContactFeature{TypeA: Face, IndexA: uint8(vertIndex1), TypeB: Vertex}
	}

	return m
}

// CollidePolygons builds the manifold of two polygons by clipping the incident edge against the
// side planes of the reference edge.
//
// The reference edge is the one with the largest separation. B's edge is only preferred when it
// beats A's by more than a tenth of the linear slop, so the manifold type does not flip between
// steps on near ties.
func CollidePolygons(polyA *gjk.Proxy, xfA geom.Transform, polyB *gjk.Proxy, xfB geom.Transform, conf Conf) Manifold {
	totalRadius := polyA.Radius + polyB.Radius
	reach := totalRadius + conf.Margin

	sepA := gjk.MaxSeparation(polyA, xfA, polyB, xfB)
	if sepA.Separation > reach {
		return Manifold{}
	}

	sepB := gjk.MaxSeparation(polyB, xfB, polyA, xfA)
	if sepB.Separation > reach {
		return Manifold{}
	}

	poly1, xf1, edge1 := polyA, xfA, sepA.IndexA // reference polygon
	poly2, xf2 := polyB, xfB                     // incident polygon
	manifoldType := FaceA
	flip := false
	if sepB.Separation > sepA.Separation+0.1*conf.LinearSlop {
		poly1, xf1, edge1 = polyB, xfB, sepB.IndexA
		poly2, xf2 = polyA, xfA
		manifoldType = FaceB
		flip = true
	}

	incidentEdge := findIncidentEdge(poly1, xf1, edge1, poly2, xf2)

	iv1 := edge1
	iv2 := (edge1 + 1) % poly1.Count()

	v11 := poly1.Vertices[iv1]
	v12 := poly1.Vertices[iv2]

	localTangent, _ := geom.Normalize(v12.Sub(v11))
	localNormal := geom.CrossVS(localTangent, 1)
	planePoint := v11.Add(v12).Mul(0.5)

	tangent := xf1.Rotate(localTangent)
	normal := geom.CrossVS(tangent, 1)

	v11 = xf1.Apply(v11)
	v12 = xf1.Apply(v12)

	// Face offset.
	frontOffset := normal.Dot(v11)

	// Side offsets, extended by polytope skin thickness.
	sideOffset1 := -tangent.Dot(v11) + totalRadius
	sideOffset2 := tangent.Dot(v12) + totalRadius

	// Clip incident edge against extruded edge1 side edges.
	clipPoints1, np := clipSegmentToLine(incidentEdge, tangent.Mul(-1), sideOffset1, iv1)
	if np < 2 {
		return Manifold{}
	}

	clipPoints2, np := clipSegmentToLine(clipPoints1, tangent, sideOffset2, iv2)
	if np < 2 {
		return Manifold{}
	}

	m := Manifold{Type: manifoldType, LocalNormal: localNormal, LocalPoint: planePoint}
	for _, cp := range clipPoints2 {
		separation := normal.Dot(cp.v) - frontOffset
		if separation > reach {
			continue
		}

		p := &m.Points[m.PointCount]
		p.LocalPoint = xf2.ApplyInverse(cp.v)
		p.Feature = cp.feature
		if flip {
			p.Feature = p.Feature.Flip()
		}
		m.PointCount++
	}

	if m.PointCount == 0 {
		return Manifold{}
	}
	return m
}

type clipVertex struct {
	v       mgl64.Vec2
	feature ContactFeature
}

// findIncidentEdge returns the edge of poly2 most anti-parallel to the reference normal.
func findIncidentEdge(poly1 *gjk.Proxy, xf1 geom.Transform, edge1 int, poly2 *gjk.Proxy, xf2 geom.Transform) [2]clipVertex {
	// Get the normal of the reference edge in poly2's frame.
	normal1 := xf2.RotateInverse(xf1.Rotate(poly1.Normals[edge1]))

	// Find the incident edge on poly2.
	index := 0
	minDot := geom.MaxReal
	for i, n := range poly2.Normals {
		if dot := normal1.Dot(n); dot < minDot {
			minDot = dot
			index = i
		}
	}

	i1 := index
	i2 := (index + 1) % poly2.Count()

	return [2]clipVertex{
		{
			v:       xf2.Apply(poly2.Vertices[i1]),
			feature: ContactFeature{TypeA: Face, IndexA: uint8(edge1), TypeB: Vertex, IndexB: uint8(i1)},
		},
		{
			v:       xf2.Apply(poly2.Vertices[i2]),
			feature: ContactFeature{TypeA: Face, IndexA: uint8(edge1), TypeB: Vertex, IndexB: uint8(i2)},
		},
	}
}
