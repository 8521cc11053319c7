package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestAABB_Overlaps(t *testing.T) {
	a := AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{1, 1}}

	tests := []struct {
		name     string
		other    AABB
		expected bool
	}{
		{"identical", a, true},
		{"inside", AABB{Min: mgl64.Vec2{0.25, 0.25}, Max: mgl64.Vec2{0.5, 0.5}}, true},
		{"touching edge", AABB{Min: mgl64.Vec2{1, 0}, Max: mgl64.Vec2{2, 1}}, true},
		{"separated x", AABB{Min: mgl64.Vec2{1.1, 0}, Max: mgl64.Vec2{2, 1}}, false},
		{"separated y", AABB{Min: mgl64.Vec2{0, -2}, Max: mgl64.Vec2{1, -0.1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.other); got != tt.expected {
				t.Errorf("Overlaps(%v) = %v, want %v", tt.other, got, tt.expected)
			}
			if got := tt.other.Overlaps(a); got != tt.expected {
				t.Errorf("Overlaps is not symmetric for %v", tt.other)
			}
		})
	}
}

func TestAABB_UnionContains(t *testing.T) {
	a := AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{1, 1}}
	b := AABB{Min: mgl64.Vec2{-1, 0.5}, Max: mgl64.Vec2{0.5, 3}}

	u := a.Union(b)
	if !u.Contains(a) || !u.Contains(b) {
		t.Fatalf("union %v does not contain its operands", u)
	}
	if u.Min != (mgl64.Vec2{-1, 0}) || u.Max != (mgl64.Vec2{1, 3}) {
		t.Errorf("unexpected union %v", u)
	}
	if a.Contains(b) {
		t.Error("a should not contain b")
	}
	if got := u.Perimeter(); got != 2*(2+3) {
		t.Errorf("Perimeter() = %v, want 10", got)
	}
}

func TestAABB_FattenDisplace(t *testing.T) {
	a := AABB{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{1, 1}}

	fat := a.Fatten(0.1)
	if !fat.Contains(a) {
		t.Fatal("fattened box must contain the original")
	}

	moved := fat.Displace(mgl64.Vec2{2, -1})
	if moved.Max[0] != fat.Max[0]+2 || moved.Min[0] != fat.Min[0] {
		t.Errorf("positive displacement should only grow Max.x: %v", moved)
	}
	if moved.Min[1] != fat.Min[1]-1 || moved.Max[1] != fat.Max[1] {
		t.Errorf("negative displacement should only grow Min.y: %v", moved)
	}
}

func TestAABB_RayCast(t *testing.T) {
	box := AABB{Min: mgl64.Vec2{-1, -1}, Max: mgl64.Vec2{1, 1}}

	t.Run("hit from the left", func(t *testing.T) {
		out, hit := box.RayCast(RayCastInput{P1: mgl64.Vec2{-3, 0}, P2: mgl64.Vec2{3, 0}, MaxFraction: 1})
		if !hit {
			t.Fatal("expected a hit")
		}
		if math.Abs(out.Fraction-1.0/3.0) > 1e-12 {
			t.Errorf("Fraction = %v, want 1/3", out.Fraction)
		}
		if out.Normal != (mgl64.Vec2{-1, 0}) {
			t.Errorf("Normal = %v, want (-1,0)", out.Normal)
		}
	})

	t.Run("beyond max fraction", func(t *testing.T) {
		_, hit := box.RayCast(RayCastInput{P1: mgl64.Vec2{-3, 0}, P2: mgl64.Vec2{3, 0}, MaxFraction: 0.2})
		if hit {
			t.Error("expected no hit")
		}
	})

	t.Run("parallel miss", func(t *testing.T) {
		_, hit := box.RayCast(RayCastInput{P1: mgl64.Vec2{-3, 2}, P2: mgl64.Vec2{3, 2}, MaxFraction: 1})
		if hit {
			t.Error("expected no hit")
		}
	})

	t.Run("starts inside", func(t *testing.T) {
		_, hit := box.RayCast(RayCastInput{P1: mgl64.Vec2{0, 0}, P2: mgl64.Vec2{3, 0}, MaxFraction: 1})
		if hit {
			t.Error("a ray starting inside the box does not report a hit")
		}
	})
}
