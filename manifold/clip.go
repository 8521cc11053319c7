package manifold

import "github.com/go-gl/mathgl/mgl64"

// clipSegmentToLine is Sutherland-Hodgman clipping of a segment against the half plane
// dot(normal, x) <= offset. Points created by the clip take a vertex feature from the
// clipping edge.
func clipSegmentToLine(in [2]clipVertex, normal mgl64.Vec2, offset float64, vertexIndexA int) ([2]clipVertex, int) {
	var out [2]clipVertex
	count := 0

	// Calculate the distance of end points to the line.
	distance0 := normal.Dot(in[0].v) - offset
	distance1 := normal.Dot(in[1].v) - offset

	// If the points are behind the plane
	if distance0 <= 0 {
		out[count] = in[0]
		count++
	}
	if distance1 <= 0 {
		out[count] = in[1]
		count++
	}

	// If the points are on different sides of the plane
	if distance0*distance1 < 0 {
		// Find intersection point of edge and plane
		interp := distance0 / (distance0 - distance1)
		out[count] = clipVertex{
			v: in[0].v.Add(in[1].v.Sub(in[0].v).Mul(interp)),
			// VertexA is hitting edgeB.
			feature: ContactFeature{
				TypeA:  Vertex,
				IndexA: uint8(vertexIndexA),
				TypeB:  Face,
				IndexB: in[0].feature.IndexB,
			},
		}
		count++
	}

	return out, count
}
