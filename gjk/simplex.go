package gjk

import (
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// SimplexCache stores the support indices of the last simplex, to warm start the next query
// on the same pair. A zero cache is valid.
type SimplexCache struct {
	Metric geom.Real
	Count  int
	IndexA [3]int
	IndexB [3]int
}

type simplexVertex struct {
	wA     mgl64.Vec2 // support point in proxy A
	wB     mgl64.Vec2 // support point in proxy B
	w      mgl64.Vec2 // wB - wA
	a      geom.Real  // barycentric coordinate for closest point
	indexA int
	indexB int
}

// Simplex is a set of 1-3 points of the Minkowski difference B - A.
// The newest point is always the last one.
type Simplex struct {
	v     [3]simplexVertex
	count int
}

func (s *Simplex) readCache(cache *SimplexCache, proxyA *Proxy, xfA geom.Transform, proxyB *Proxy, xfB geom.Transform) {
	s.count = cache.Count
	for i := range s.count {
		v := &s.v[i]
		v.indexA = cache.IndexA[i]
		v.indexB = cache.IndexB[i]
		if v.indexA >= proxyA.Count() || v.indexB >= proxyB.Count() {
			s.count = 0
			break
		}
		v.wA = xfA.Apply(proxyA.Vertices[v.indexA])
		v.wB = xfB.Apply(proxyB.Vertices[v.indexB])
		v.w = v.wB.Sub(v.wA)
		v.a = 0
	}

	// Flush the simplex if the cached metric changed too much: the shapes moved or rotated a lot.
	if s.count > 1 {
		metric1 := cache.Metric
		metric2 := s.metric()
		if metric2 < 0.5*metric1 || 2*metric1 < metric2 || metric2 < geom.Epsilon {
			s.count = 0
		}
	}

	if s.count == 0 {
		v := &s.v[0]
		v.indexA = 0
		v.indexB = 0
		v.wA = xfA.Apply(proxyA.Vertices[0])
		v.wB = xfB.Apply(proxyB.Vertices[0])
		v.w = v.wB.Sub(v.wA)
		v.a = 1
		s.count = 1
	}
}

func (s *Simplex) writeCache(cache *SimplexCache) {
	cache.Metric = s.metric()
	cache.Count = s.count
	for i := range s.count {
		cache.IndexA[i] = s.v[i].indexA
		cache.IndexB[i] = s.v[i].indexB
	}
}

func (s *Simplex) searchDirection() mgl64.Vec2 {
	switch s.count {
	case 1:
		return s.v[0].w.Mul(-1)
	case 2:
		e12 := s.v[1].w.Sub(s.v[0].w)
		sgn := geom.Cross(e12, s.v[0].w.Mul(-1))
		if sgn > 0 {
			// Origin is left of e12.
			return geom.CrossSV(1, e12)
		}
		// Origin is right of e12.
		return geom.CrossVS(e12, 1)
	}
	return mgl64.Vec2{}
}

func (s *Simplex) witnessPoints() (pA, pB mgl64.Vec2) {
	switch s.count {
	case 1:
		return s.v[0].wA, s.v[0].wB
	case 2:
		pA = s.v[0].wA.Mul(s.v[0].a).Add(s.v[1].wA.Mul(s.v[1].a))
		pB = s.v[0].wB.Mul(s.v[0].a).Add(s.v[1].wB.Mul(s.v[1].a))
		return pA, pB
	case 3:
		pA = s.v[0].wA.Mul(s.v[0].a).Add(s.v[1].wA.Mul(s.v[1].a)).Add(s.v[2].wA.Mul(s.v[2].a))
		return pA, pA
	}
	return mgl64.Vec2{}, mgl64.Vec2{}
}

func (s *Simplex) metric() geom.Real {
	switch s.count {
	case 2:
		return s.v[0].w.Sub(s.v[1].w).Len()
	case 3:
		return geom.Cross(s.v[1].w.Sub(s.v[0].w), s.v[2].w.Sub(s.v[0].w))
	}
	return 0
}

// solve2 reduces a segment simplex to the feature closest to the origin, using barycentric
// coordinates: p = a1*w1 + a2*w2 with a1 + a2 = 1.
func (s *Simplex) solve2() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	e12 := w2.Sub(w1)

	// w1 region
	d12n2 := -w1.Dot(e12)
	if d12n2 <= 0 {
		// a2 <= 0, so we clamp it to 0
		s.v[0].a = 1
		s.count = 1
		return
	}

	// w2 region
	d12n1 := w2.Dot(e12)
	if d12n1 <= 0 {
		// a1 <= 0, so we clamp it to 0
		s.v[1].a = 1
		s.count = 1
		s.v[0] = s.v[1]
		return
	}

	// Must be in e12 region. d12n1 + d12n2 = |e12|^2 > 0 here.
	inv := 1 / (d12n1 + d12n2)
	s.v[0].a = d12n1 * inv
	s.v[1].a = d12n2 * inv
	s.count = 2
}

// solve3 reduces a triangle simplex using the Voronoi regions of its vertices, edges and
// interior. A triangle whose signed area is too small to divide by falls back to its closest edge.
func (s *Simplex) solve3() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	w3 := s.v[2].w

	// Edge12
	e12 := w2.Sub(w1)
	d12n1 := w2.Dot(e12)
	d12n2 := -w1.Dot(e12)

	// Edge13
	e13 := w3.Sub(w1)
	d13n1 := w3.Dot(e13)
	d13n2 := -w1.Dot(e13)

	// Edge23
	e23 := w3.Sub(w2)
	d23n1 := w3.Dot(e23)
	d23n2 := -w2.Dot(e23)

	// Triangle123
	n123 := geom.Cross(e12, e13)
	d123n1 := n123 * geom.Cross(w2, w3)
	d123n2 := n123 * geom.Cross(w3, w1)
	d123n3 := n123 * geom.Cross(w1, w2)

	// w1 region
	if d12n2 <= 0 && d13n2 <= 0 {
		s.v[0].a = 1
		s.count = 1
		return
	}

	// e12
	if d12n1 > 0 && d12n2 > 0 && d123n3 <= 0 {
		inv := 1 / (d12n1 + d12n2)
		s.v[0].a = d12n1 * inv
		s.v[1].a = d12n2 * inv
		s.count = 2
		return
	}

	// e13
	if d13n1 > 0 && d13n2 > 0 && d123n2 <= 0 {
		inv := 1 / (d13n1 + d13n2)
		s.v[0].a = d13n1 * inv
		s.v[2].a = d13n2 * inv
		s.count = 2
		s.v[1] = s.v[2]
		return
	}

	// w2 region
	if d12n1 <= 0 && d23n2 <= 0 {
		s.v[1].a = 1
		s.count = 1
		s.v[0] = s.v[1]
		return
	}

	// w3 region
	if d13n1 <= 0 && d23n1 <= 0 {
		s.v[2].a = 1
		s.count = 1
		s.v[0] = s.v[2]
		return
	}

	// e23
	if d23n1 > 0 && d23n2 > 0 && d123n1 <= 0 {
		inv := 1 / (d23n1 + d23n2)
		s.v[1].a = d23n1 * inv
		s.v[2].a = d23n2 * inv
		s.count = 2
		s.v[0] = s.v[2]
		return
	}

	// Must be in triangle123, unless the triangle is flat.
	sum := d123n1 + d123n2 + d123n3
	scale := max(e12.LenSqr(), e13.LenSqr(), e23.LenSqr())
	if geom.Abs(n123) <= geom.Epsilon*scale || sum == 0 {
		s.closestEdge()
		return
	}

	inv := 1 / sum
	s.v[0].a = d123n1 * inv
	s.v[1].a = d123n2 * inv
	s.v[2].a = d123n3 * inv
	s.count = 3
}

// closestEdge replaces a degenerate triangle by whichever of its edges lies closest to the origin.
func (s *Simplex) closestEdge() {
	pairs := [3][2]int{{0, 1}, {0, 2}, {1, 2}}

	best := -1
	var bestDistance geom.Real
	var bestSimplex Simplex
	for i, pair := range pairs {
		candidate := Simplex{count: 2}
		candidate.v[0] = s.v[pair[0]]
		candidate.v[1] = s.v[pair[1]]
		if candidate.v[1].w.Sub(candidate.v[0].w).LenSqr() <= geom.Epsilon {
			candidate.v[0].a = 1
			candidate.count = 1
		} else {
			candidate.solve2()
		}

		pA, pB := candidate.witnessPoints()
		distance := pB.Sub(pA).LenSqr()
		if best == -1 || distance < bestDistance {
			best = i
			bestDistance = distance
			bestSimplex = candidate
		}
	}

	*s = bestSimplex
}
