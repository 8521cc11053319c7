package actor

import (
	"errors"
	"math"
	"testing"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Test helper functions
func vec2Equal(a, b mgl64.Vec2, tolerance float64) bool {
	return math.Abs(a.X()-b.X()) < tolerance && math.Abs(a.Y()-b.Y()) < tolerance
}

func floatEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func mustBox(t testing.TB, hx, hy float64) *Polygon {
	t.Helper()
	box, err := NewBox(hx, hy)
	if err != nil {
		t.Fatalf("NewBox(%v, %v) error = %v", hx, hy, err)
	}
	return box
}

// ========== MASS TESTS ==========
func TestShapeComputeMass(t *testing.T) {
	offsetBox, err := NewOrientedBox(0.5, 0.5, mgl64.Vec2{2, 0}, math.Pi/3)
	if err != nil {
		t.Fatal(err)
	}
	circle, _ := NewCircle(mgl64.Vec2{}, 1)
	offsetCircle, _ := NewCircle(mgl64.Vec2{1, 0}, 1)
	triangle, _ := NewPolygon([]mgl64.Vec2{{0, 0}, {3, 0}, {0, 3}}, 0)
	edge, _ := NewEdge(mgl64.Vec2{-1, 0}, mgl64.Vec2{3, 0})
	roundedSquare, _ := NewPolygon([]mgl64.Vec2{{-0.4, -0.4}, {0.4, -0.4}, {0.4, 0.4}, {-0.4, 0.4}}, 0.1)

	tests := []struct {
		name       string
		shape      ShapeInterface
		density    float64
		wantMass   float64
		wantCenter mgl64.Vec2
		wantI      float64
	}{
		{"unit box", mustBox(t, 0.5, 0.5), 1, 1, mgl64.Vec2{}, 1.0 / 6.0},
		{"dense box", mustBox(t, 1, 0.5), 2, 4, mgl64.Vec2{}, 4 * (4 + 1) / 12.0},
		{"offset rotated box", offsetBox, 1, 1, mgl64.Vec2{2, 0}, 1.0/6.0 + 4},
		{"circle", circle, 1, math.Pi, mgl64.Vec2{}, math.Pi * 0.5},
		{"offset circle", offsetCircle, 1, math.Pi, mgl64.Vec2{1, 0}, math.Pi * 1.5},
		{"triangle", triangle, 1, 4.5, mgl64.Vec2{1, 1}, 4.5*(9+9)/18 + 4.5*2},
		{"edge", edge, 1, 0, mgl64.Vec2{1, 0}, 0},
		{"rounded square counts its skin", roundedSquare, 1, 1, mgl64.Vec2{}, 1.0 / 6.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := tt.shape.ComputeMass(tt.density)
			if !floatEqual(md.Mass, tt.wantMass, 1e-9) {
				t.Errorf("Mass = %v, want %v", md.Mass, tt.wantMass)
			}
			if !vec2Equal(md.Center, tt.wantCenter, 1e-9) {
				t.Errorf("Center = %v, want %v", md.Center, tt.wantCenter)
			}
			if !floatEqual(md.I, tt.wantI, 1e-9) {
				t.Errorf("I = %v, want %v", md.I, tt.wantI)
			}
		})
	}
}

// ========== CONSTRUCTION TESTS ==========
func TestNewPolygon_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		vertices []mgl64.Vec2
		radius   float64
	}{
		{"two vertices", []mgl64.Vec2{{0, 0}, {1, 0}}, 0},
		{"non convex", []mgl64.Vec2{{0, 0}, {2, 0}, {1, 1}, {2, 2}, {0, 2}}, 0},
		{"collinear", []mgl64.Vec2{{0, 0}, {1, 0}, {2, 0}, {1, 1}}, 0},
		{"repeated vertex", []mgl64.Vec2{{0, 0}, {1, 0}, {1, 0}, {0, 1}}, 0},
		{"negative radius", []mgl64.Vec2{{0, 0}, {1, 0}, {0, 1}}, -0.1},
		{"nan vertex", []mgl64.Vec2{{0, 0}, {math.NaN(), 0}, {0, 1}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolygon(tt.vertices, tt.radius)
			if !errors.Is(err, ErrInvalidShape) {
				t.Errorf("NewPolygon() error = %v, want ErrInvalidShape", err)
			}
		})
	}
}

func TestNewPolygon_ClockwiseIsReversed(t *testing.T) {
	p, err := NewPolygon([]mgl64.Vec2{{0, 0}, {0, 1}, {1, 1}, {1, 0}}, 0)
	if err != nil {
		t.Fatal(err)
	}

	if area := signedArea(p.Vertices); area <= 0 {
		t.Errorf("signed area = %v, want counter-clockwise winding", area)
	}
	for i, n := range p.Normals {
		if !floatEqual(n.Len(), 1, 1e-12) {
			t.Errorf("normal %d = %v is not unit length", i, n)
		}
		// Outward: the centroid lies behind every face.
		if n.Dot(p.Centroid.Sub(p.Vertices[i])) >= 0 {
			t.Errorf("normal %d = %v does not point outward", i, n)
		}
	}
	if !vec2Equal(p.Centroid, mgl64.Vec2{0.5, 0.5}, 1e-12) {
		t.Errorf("Centroid = %v, want (0.5, 0.5)", p.Centroid)
	}
}

func TestNewRoundedBox(t *testing.T) {
	box := mustBox(t, 1, 0.5)
	if box.Radius != DefaultVertexRadius {
		t.Errorf("NewBox() radius = %v, want %v", box.Radius, DefaultVertexRadius)
	}
	// The skin is taken from the core: the outer faces stay on the half extents.
	wantCore := []mgl64.Vec2{{-0.99, -0.49}, {0.99, -0.49}, {0.99, 0.49}, {-0.99, 0.49}}
	for i, v := range box.Vertices {
		if !vec2Equal(v, wantCore[i], 1e-12) {
			t.Errorf("vertex %d = %v, want %v", i, v, wantCore[i])
		}
	}

	tests := []struct {
		name   string
		hx, hy float64
		radius float64
	}{
		{"radius fills the box", 0.1, 0.5, 0.1},
		{"radius wider than the box", 0.5, 0.05, 0.1},
		{"negative radius", 0.5, 0.5, -0.1},
		{"zero extent", 0, 0.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRoundedBox(tt.hx, tt.hy, mgl64.Vec2{}, 0, tt.radius); !errors.Is(err, ErrInvalidShape) {
				t.Errorf("NewRoundedBox() error = %v, want ErrInvalidShape", err)
			}
		})
	}

	sharp, err := NewRoundedBox(0.5, 0.5, mgl64.Vec2{}, 0, 0)
	if err != nil {
		t.Fatalf("NewRoundedBox() error = %v", err)
	}
	if sharp.Radius != 0 || !vec2Equal(sharp.Vertices[2], mgl64.Vec2{0.5, 0.5}, 1e-12) {
		t.Errorf("sharp box = %v radius %v, want corners on the half extents", sharp.Vertices, sharp.Radius)
	}
}

func TestNewEdge_HasSkin(t *testing.T) {
	edge, err := NewEdge(mgl64.Vec2{-1, 0}, mgl64.Vec2{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if edge.Proxy().Radius != DefaultVertexRadius {
		t.Errorf("edge radius = %v, want %v", edge.Proxy().Radius, DefaultVertexRadius)
	}
	aabb := edge.ComputeAABB(geom.IdentityTransform())
	if !floatEqual(aabb.Min.Y(), -DefaultVertexRadius, 1e-12) || !floatEqual(aabb.Max.Y(), DefaultVertexRadius, 1e-12) {
		t.Errorf("ComputeAABB() = %v..%v, want the skin around the segment", aabb.Min, aabb.Max)
	}
}

func TestNewCircle_Invalid(t *testing.T) {
	for _, r := range []float64{0, -1, math.Inf(1)} {
		if _, err := NewCircle(mgl64.Vec2{}, r); !errors.Is(err, ErrInvalidShape) {
			t.Errorf("NewCircle(radius %v) error = %v, want ErrInvalidShape", r, err)
		}
	}
}

func TestNewEdge_Degenerate(t *testing.T) {
	if _, err := NewEdge(mgl64.Vec2{1, 1}, mgl64.Vec2{1, 1}); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("NewEdge() error = %v, want ErrInvalidShape", err)
	}
}

// ========== ROTATION TESTS ==========
func TestBoxComputeAABBWithRotation(t *testing.T) {
	box := mustBox(t, 1, 0.5)
	eighth := (1.5-2*DefaultVertexRadius)*math.Sqrt2/2 + DefaultVertexRadius

	tests := []struct {
		name    string
		xf      geom.Transform
		wantMin mgl64.Vec2
		wantMax mgl64.Vec2
	}{
		{"identity", geom.IdentityTransform(), mgl64.Vec2{-1, -0.5}, mgl64.Vec2{1, 0.5}},
		{"translated", geom.NewTransform(mgl64.Vec2{3, 4}, 0), mgl64.Vec2{2, 3.5}, mgl64.Vec2{4, 4.5}},
		{"quarter turn", geom.NewTransform(mgl64.Vec2{}, math.Pi/2), mgl64.Vec2{-0.5, -1}, mgl64.Vec2{0.5, 1}},
		// The rounded corners of the core stick out less than the sharp ones would.
		{"eighth turn", geom.NewTransform(mgl64.Vec2{}, math.Pi/4), mgl64.Vec2{-eighth, -eighth}, mgl64.Vec2{eighth, eighth}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aabb := box.ComputeAABB(tt.xf)
			if !vec2Equal(aabb.Min, tt.wantMin, 1e-9) || !vec2Equal(aabb.Max, tt.wantMax, 1e-9) {
				t.Errorf("ComputeAABB() = %v..%v, want %v..%v", aabb.Min, aabb.Max, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestShapeTestPoint(t *testing.T) {
	box := mustBox(t, 1, 1)
	circle, _ := NewCircle(mgl64.Vec2{1, 0}, 0.5)
	edge, _ := NewEdge(mgl64.Vec2{-1, 0}, mgl64.Vec2{1, 0})
	xf := geom.NewTransform(mgl64.Vec2{10, 0}, math.Pi/4)

	tests := []struct {
		name  string
		shape ShapeInterface
		point mgl64.Vec2
		want  bool
	}{
		{"box center", box, mgl64.Vec2{10, 0}, true},
		{"box rotated corner is outside", box, mgl64.Vec2{11, 1}, false},
		{"box along diagonal", box, mgl64.Vec2{10, 1.4}, true},
		{"circle center", circle, xf.Apply(mgl64.Vec2{1, 0}), true},
		{"circle origin", circle, mgl64.Vec2{10, 0}, false},
		{"edge never contains", edge, mgl64.Vec2{10, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shape.TestPoint(xf, tt.point); got != tt.want {
				t.Errorf("TestPoint(%v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestShapeRayCast(t *testing.T) {
	box := mustBox(t, 1, 1)
	xf := geom.NewTransform(mgl64.Vec2{5, 0}, 0)

	out, ok := box.RayCast(geom.RayCastInput{P1: mgl64.Vec2{0, 0}, P2: mgl64.Vec2{10, 0}, MaxFraction: 1}, xf)
	if !ok {
		t.Fatal("RayCast() missed the box")
	}
	if !floatEqual(out.Fraction, 0.4, 1e-9) {
		t.Errorf("Fraction = %v, want 0.4", out.Fraction)
	}
	if !vec2Equal(out.Normal, mgl64.Vec2{-1, 0}, 1e-9) {
		t.Errorf("Normal = %v, want (-1, 0)", out.Normal)
	}
}

func TestShapeType_String(t *testing.T) {
	tests := []struct {
		shapeType ShapeType
		want      string
	}{
		{ShapeTypeCircle, "circle"},
		{ShapeTypePolygon, "polygon"},
		{ShapeTypeEdge, "edge"},
		{ShapeType(9), "ShapeType(9)"},
	}
	for _, tt := range tests {
		if got := tt.shapeType.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
