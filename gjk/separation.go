package gjk

import (
	"github.com/akmonengine/feather2d/geom"
)

// SeparationInfo is a signed separation and the features that realize it.
//
// For a face separation, IndexA is the edge of the reference proxy and IndexB the deepest
// vertex of the other. For a point separation both are vertex indices.
type SeparationInfo struct {
	IndexA     int
	IndexB     int
	Separation geom.Real
}

// MaxSeparation finds the edge normal of A along which B is the most separated (SAT).
//
// Radii are ignored. A must have normals, which means at least two vertices.
func MaxSeparation(proxyA *Proxy, xfA geom.Transform, proxyB *Proxy, xfB geom.Transform) SeparationInfo {
	// Work in the frame of B.
	xf := xfB.InverseTimes(xfA)

	best := SeparationInfo{IndexA: -1, Separation: -geom.MaxReal}
	for i := range proxyA.Normals {
		n := xf.Rotate(proxyA.Normals[i])
		v1 := xf.Apply(proxyA.Vertices[i])

		// Find deepest point of B along n.
		deepest := 0
		si := geom.MaxReal
		for j, v := range proxyB.Vertices {
			if sij := n.Dot(v.Sub(v1)); sij < si {
				si = sij
				deepest = j
			}
		}

		if si > best.Separation {
			best = SeparationInfo{IndexA: i, IndexB: deepest, Separation: si}
		}
	}

	return best
}

// Separation returns the signed distance between the rounded proxies, with the features
// realizing it.
//
// Positive values are the gap, negative values the penetration depth. Separated cores use the
// GJK distance, overlapping cores use the deepest separating axis of either proxy. The result
// does not depend on argument order, up to the swap of IndexA and IndexB.
func Separation(proxyA *Proxy, xfA geom.Transform, proxyB *Proxy, xfB geom.Transform, maxIterations int) SeparationInfo {
	var cache SimplexCache
	output := Distance(DistanceInput{
		ProxyA:        proxyA,
		ProxyB:        proxyB,
		TransformA:    xfA,
		TransformB:    xfB,
		MaxIterations: maxIterations,
	}, &cache)

	totalRadius := proxyA.Radius + proxyB.Radius
	if output.Distance > 10*geom.Epsilon {
		return SeparationInfo{
			IndexA:     output.IndexA[0],
			IndexB:     output.IndexB[0],
			Separation: output.Distance - totalRadius,
		}
	}

	hasA := len(proxyA.Normals) > 0
	hasB := len(proxyB.Normals) > 0
	switch {
	case hasA && hasB:
		sepA := MaxSeparation(proxyA, xfA, proxyB, xfB)
		sepB := MaxSeparation(proxyB, xfB, proxyA, xfA)
		if sepB.Separation > sepA.Separation {
			return SeparationInfo{IndexA: sepB.IndexB, IndexB: sepB.IndexA, Separation: sepB.Separation - totalRadius}
		}
		sepA.Separation -= totalRadius
		return sepA
	case hasA:
		sepA := MaxSeparation(proxyA, xfA, proxyB, xfB)
		sepA.Separation -= totalRadius
		return sepA
	case hasB:
		sepB := MaxSeparation(proxyB, xfB, proxyA, xfA)
		return SeparationInfo{IndexA: sepB.IndexB, IndexB: sepB.IndexA, Separation: sepB.Separation - totalRadius}
	}

	// Two coincident points.
	return SeparationInfo{Separation: -totalRadius}
}
