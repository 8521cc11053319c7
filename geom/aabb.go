package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec2
	Max mgl64.Vec2
}

// NewAABB builds the smallest box containing both points.
func NewAABB(a, b mgl64.Vec2) AABB {
	return AABB{Min: MinVec(a, b), Max: MaxVec(a, b)}
}

// IsValid checks the bounds are ordered and finite.
func (a AABB) IsValid() bool {
	d := a.Max.Sub(a.Min)
	return d[0] >= 0 && d[1] >= 0 && IsValidVec(a.Min) && IsValidVec(a.Max)
}

func (a AABB) Center() mgl64.Vec2 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Extents returns the half-widths.
func (a AABB) Extents() mgl64.Vec2 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// Perimeter is the surface-area heuristic cost of a 2D box.
func (a AABB) Perimeter() Real {
	return 2 * ((a.Max[0] - a.Min[0]) + (a.Max[1] - a.Min[1]))
}

// Union returns the smallest box containing both boxes.
func (a AABB) Union(other AABB) AABB {
	return AABB{Min: MinVec(a.Min, other.Min), Max: MaxVec(a.Max, other.Max)}
}

// Contains checks if other lies completely inside a
func (a AABB) Contains(other AABB) bool {
	return a.Min[0] <= other.Min[0] && a.Min[1] <= other.Min[1] &&
		other.Max[0] <= a.Max[0] && other.Max[1] <= a.Max[1]
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec2) bool {
	return point[0] >= a.Min[0] && point[0] <= a.Max[0] &&
		point[1] >= a.Min[1] && point[1] <= a.Max[1]
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on both axes
	return a.Max[0] >= other.Min[0] && a.Min[0] <= other.Max[0] &&
		a.Max[1] >= other.Min[1] && a.Min[1] <= other.Max[1]
}

// Fatten grows the box by margin on every side.
func (a AABB) Fatten(margin Real) AABB {
	r := mgl64.Vec2{margin, margin}
	return AABB{Min: a.Min.Sub(r), Max: a.Max.Add(r)}
}

// Displace stretches the box along d only, in the direction of motion.
func (a AABB) Displace(d mgl64.Vec2) AABB {
	for i := range 2 {
		if d[i] < 0 {
			a.Min[i] += d[i]
		} else {
			a.Max[i] += d[i]
		}
	}
	return a
}

// Translate moves the box by d.
func (a AABB) Translate(d mgl64.Vec2) AABB {
	return AABB{Min: a.Min.Add(d), Max: a.Max.Add(d)}
}

// RayCast clips the segment of input against the box using the slab method.
// It returns false when the ray misses or starts inside the box.
func (a AABB) RayCast(input RayCastInput) (RayCastOutput, bool) {
	tmin := -MaxReal
	tmax := MaxReal

	p := input.P1
	d := input.P2.Sub(input.P1)
	absD := AbsVec(d)

	var normal mgl64.Vec2
	for i := range 2 {
		if absD[i] < Epsilon {
			// Parallel.
			if p[i] < a.Min[i] || a.Max[i] < p[i] {
				return RayCastOutput{}, false
			}
			continue
		}

		invD := 1 / d[i]
		t1 := (a.Min[i] - p[i]) * invD
		t2 := (a.Max[i] - p[i]) * invD

		// Sign of the normal vector.
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1.0
		}

		if t1 > tmin {
			normal = mgl64.Vec2{}
			normal[i] = s
			tmin = t1
		}
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return RayCastOutput{}, false
		}
	}

	// Does the ray start inside the box or does the intersection lie beyond the max fraction?
	if tmin < 0 || input.MaxFraction < tmin {
		return RayCastOutput{}, false
	}

	return RayCastOutput{Fraction: tmin, Normal: normal}, true
}
