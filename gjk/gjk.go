// Package gjk computes distances between convex proxies with the Gilbert-Johnson-Keerthi
// algorithm.
//
// Each query grows a simplex on the Minkowski difference B - A toward the origin. The simplex
// only ever holds 1 to 3 points in 2D: a point, a segment or a triangle. A triangle that
// contains the origin means the cores of the proxies overlap.
//
// Results can be warm started: the SimplexCache written by a query seeds the next query on the
// same pair, which usually converges in one or two iterations when the bodies barely moved.
//
// References:
//   - Gilbert, Johnson, Keerthi (1988): "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space"
//   - Erin Catto (2010): "Computing Distance", GDC presentation
package gjk

import (
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultMaxIterations bounds a distance query when the input does not say otherwise.
const DefaultMaxIterations = 20

// DistanceInput describes a distance query between two placed proxies.
type DistanceInput struct {
	ProxyA     *Proxy
	ProxyB     *Proxy
	TransformA geom.Transform
	TransformB geom.Transform
	// UseRadii shrinks the result by both radii, reporting points on the rounded surfaces.
	UseRadii bool
	// MaxIterations caps the simplex refinement. Zero means DefaultMaxIterations.
	MaxIterations int
}

// DistanceOutput holds the closest points of a query and the features they came from.
type DistanceOutput struct {
	PointA     mgl64.Vec2 // closest point on A
	PointB     mgl64.Vec2 // closest point on B
	Distance   geom.Real
	Iterations int
	// Count is the number of valid entries in IndexA and IndexB, the vertex indices of the
	// final simplex.
	Count  int
	IndexA [3]int
	IndexB [3]int
}

// Distance computes the closest points between two proxies.
//
// Distance is zero when the cores overlap, or when the rounded shapes overlap and UseRadii is set.
// The cache is read to warm start the search and updated on return; it may be a zero value.
func Distance(input DistanceInput, cache *SimplexCache) DistanceOutput {
	proxyA := input.ProxyA
	proxyB := input.ProxyB
	xfA := input.TransformA
	xfB := input.TransformB

	maxIterations := input.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	var simplex Simplex
	simplex.readCache(cache, proxyA, xfA, proxyB, xfB)

	// Support indices of the previous iteration, to detect cycling.
	var saveA, saveB [3]int

	iter := 0
	for iter < maxIterations {
		saveCount := simplex.count
		for i := range saveCount {
			saveA[i] = simplex.v[i].indexA
			saveB[i] = simplex.v[i].indexB
		}

		switch simplex.count {
		case 2:
			simplex.solve2()
		case 3:
			simplex.solve3()
		}

		// The origin is inside the triangle: overlap.
		if simplex.count == 3 {
			break
		}

		d := simplex.searchDirection()
		// The origin is probably contained by a line segment or the simplex is degenerate.
		if d.LenSqr() < geom.Epsilon*geom.Epsilon {
			break
		}

		vertex := &simplex.v[simplex.count]
		vertex.indexA = proxyA.Support(xfA.RotateInverse(d.Mul(-1)))
		vertex.wA = xfA.Apply(proxyA.Vertices[vertex.indexA])
		vertex.indexB = proxyB.Support(xfB.RotateInverse(d))
		vertex.wB = xfB.Apply(proxyB.Vertices[vertex.indexB])
		vertex.w = vertex.wB.Sub(vertex.wA)

		iter++

		// A repeated support point means no further progress is possible.
		duplicate := false
		for i := range saveCount {
			if vertex.indexA == saveA[i] && vertex.indexB == saveB[i] {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}

		simplex.count++
	}

	var output DistanceOutput
	output.PointA, output.PointB = simplex.witnessPoints()
	output.Distance = output.PointB.Sub(output.PointA).Len()
	output.Iterations = iter
	output.Count = simplex.count
	for i := range simplex.count {
		output.IndexA[i] = simplex.v[i].indexA
		output.IndexB[i] = simplex.v[i].indexB
	}

	simplex.writeCache(cache)

	if input.UseRadii {
		rA := proxyA.Radius
		rB := proxyB.Radius
		if output.Distance < geom.Epsilon {
			// Shapes are too close to safely compute a normal.
			p := output.PointA.Add(output.PointB).Mul(0.5)
			output.PointA = p
			output.PointB = p
			output.Distance = 0
		} else if output.Distance > rA+rB {
			// Shapes are still not overlapped. Move the witness points to the outer surface.
			output.Distance -= rA + rB
			normal := output.PointB.Sub(output.PointA).Normalize()
			output.PointA = output.PointA.Add(normal.Mul(rA))
			output.PointB = output.PointB.Sub(normal.Mul(rB))
		} else {
			// Shapes are overlapped when radii are considered. Move the witness points to the middle.
			p := output.PointA.Add(output.PointB).Mul(0.5)
			output.PointA = p
			output.PointB = p
			output.Distance = 0
		}
	}

	return output
}

// TestOverlap reports whether the rounded proxies overlap.
func TestOverlap(proxyA *Proxy, xfA geom.Transform, proxyB *Proxy, xfB geom.Transform) bool {
	var cache SimplexCache
	output := Distance(DistanceInput{
		ProxyA:     proxyA,
		ProxyB:     proxyB,
		TransformA: xfA,
		TransformB: xfB,
		UseRadii:   true,
	}, &cache)

	return output.Distance < 10*geom.Epsilon
}
