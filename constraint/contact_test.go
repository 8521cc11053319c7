package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/geom"
	"github.com/akmonengine/feather2d/manifold"
	"github.com/go-gl/mathgl/mgl64"
)

// Test helper functions
func floatEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func testStep() StepData {
	return StepData{
		Dt:                1.0 / 60.0,
		InvDt:             60,
		DtRatio:           1,
		DoWarmStart:       true,
		WarmStartFactor:   1,
		VelocityThreshold: 1,
	}
}

func testPositionConf() PositionConf {
	return PositionConf{
		LinearSlop:           0.005,
		AngularSlop:          2 * math.Pi / 180,
		ResolutionRate:       0.2,
		MaxLinearCorrection:  0.2,
		MaxAngularCorrection: 8 * math.Pi / 180,
	}
}

func boxProxy(t *testing.T, hx, hy float64) *actor.Polygon {
	t.Helper()
	box, err := actor.NewBox(hx, hy)
	if err != nil {
		t.Fatal(err)
	}
	return box
}

// boxOnGround builds a static ground slab with its top at y = 0 and a unit box of mass 1
// whose center is at height y, falling at vy.
func boxOnGround(t *testing.T, y, vy float64) ([]BodyConstraint, *manifold.Manifold) {
	t.Helper()

	ground := boxProxy(t, 5, 0.5)
	box := boxProxy(t, 0.5, 0.5)

	bodies := []BodyConstraint{
		{Position: Position{C: mgl64.Vec2{0, -0.5}}},
		{InvMass: 1, InvI: 6, Position: Position{C: mgl64.Vec2{0, y}}, Velocity: Velocity{V: mgl64.Vec2{0, vy}}},
	}

	m := manifold.Collide(ground.Proxy(), bodies[0].Transform(), box.Proxy(), bodies[1].Transform(), manifold.DefaultConf())
	if m.PointCount != 2 {
		t.Fatalf("PointCount = %d, want 2", m.PointCount)
	}
	return bodies, &m
}

// groundContact pairs the two bodies of boxOnGround, both rounded by the default skin.
func groundContact(m *manifold.Manifold) ContactDef {
	return ContactDef{
		Manifold: m,
		IndexA:   0,
		IndexB:   1,
		RadiusA:  actor.DefaultVertexRadius,
		RadiusB:  actor.DefaultVertexRadius,
	}
}

func solveVelocities(bodies []BodyConstraint, def ContactDef, restitution float64, iterations int) *ContactSolver {
	def.Friction = 0.6
	def.Restitution = restitution
	solver := NewContactSolver(testStep(), bodies, []ContactDef{def})
	solver.InitializeVelocityConstraints()
	solver.WarmStart()
	for range iterations {
		solver.SolveVelocityConstraints()
	}
	solver.StoreImpulses()
	return solver
}

// =============================================================================
// Material Tests
// =============================================================================

func TestMixMaterials(t *testing.T) {
	tests := []struct {
		name                 string
		a, b                 float64
		wantFriction         float64
		wantRestitutionValue float64
	}{
		{"equal", 0.5, 0.5, 0.5, 0.5},
		{"frictionless side", 0, 0.8, 0, 0.8},
		{"geometric mean", 0.25, 1, 0.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MixFriction(tt.a, tt.b); !floatEqual(got, tt.wantFriction, 1e-12) {
				t.Errorf("MixFriction() = %v, want %v", got, tt.wantFriction)
			}
			if got := MixRestitution(tt.a, tt.b); got != tt.wantRestitutionValue {
				t.Errorf("MixRestitution() = %v, want %v", got, tt.wantRestitutionValue)
			}
		})
	}
}

// =============================================================================
// Velocity Solver Tests
// =============================================================================

func TestContactSolver_StopsFallingBox(t *testing.T) {
	bodies, m := boxOnGround(t, 0.5, -1)
	solveVelocities(bodies, groundContact(m), 0, 10)

	box := bodies[1]
	if !floatEqual(box.Velocity.V.Y(), 0, 1e-9) || !floatEqual(box.Velocity.W, 0, 1e-9) {
		t.Errorf("velocity = %v/%v, want rest", box.Velocity.V, box.Velocity.W)
	}
	if bodies[0].Velocity != (Velocity{}) {
		t.Errorf("static body velocity = %+v, want unchanged", bodies[0].Velocity)
	}

	total := m.Points[0].NormalImpulse + m.Points[1].NormalImpulse
	if !floatEqual(total, 1, 1e-9) {
		t.Errorf("total normal impulse = %v, want 1", total)
	}
	if !floatEqual(m.Points[0].NormalImpulse, m.Points[1].NormalImpulse, 1e-9) {
		t.Errorf("impulses = %v, %v, want an even split", m.Points[0].NormalImpulse, m.Points[1].NormalImpulse)
	}
}

func TestContactSolver_Restitution(t *testing.T) {
	tests := []struct {
		name        string
		vy          float64
		restitution float64
		want        float64
	}{
		{"elastic", -5, 1, 5},
		{"half", -4, 0.5, 2},
		{"below threshold", -0.5, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bodies, m := boxOnGround(t, 0.5, tt.vy)
			solveVelocities(bodies, groundContact(m), tt.restitution, 10)

			if got := bodies[1].Velocity.V.Y(); !floatEqual(got, tt.want, 1e-9) {
				t.Errorf("vy = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContactSolver_Speculative(t *testing.T) {
	// 0.01 apart: the box may close the gap within the step and no more.
	bodies, m := boxOnGround(t, 0.51, -5)
	solveVelocities(bodies, groundContact(m), 1, 10)

	if got := bodies[1].Velocity.V.Y(); !floatEqual(got, -0.6, 1e-9) {
		t.Errorf("vy = %v, want -0.6", got)
	}

	// A slow approach is left untouched.
	bodies, m = boxOnGround(t, 0.51, -0.3)
	solveVelocities(bodies, groundContact(m), 0, 10)
	if got := bodies[1].Velocity.V.Y(); !floatEqual(got, -0.3, 1e-12) {
		t.Errorf("vy = %v, want -0.3", got)
	}
	if m.Points[0].NormalImpulse != 0 || m.Points[1].NormalImpulse != 0 {
		t.Errorf("impulses = %v, %v, want none", m.Points[0].NormalImpulse, m.Points[1].NormalImpulse)
	}
}

func TestContactSolver_Friction(t *testing.T) {
	bodies, m := boxOnGround(t, 0.5, -1)
	bodies[1].Velocity.V = mgl64.Vec2{3, -1}
	solver := solveVelocities(bodies, groundContact(m), 0, 20)

	// Friction is bounded by 0.6 times the normal impulse of 1.
	if got := bodies[1].Velocity.V.X(); !floatEqual(got, 2.4, 1e-6) {
		t.Errorf("vx = %v, want 2.4", got)
	}
	for i := range m.PointCount {
		p := m.Points[i]
		if math.Abs(p.TangentImpulse) > 0.6*p.NormalImpulse+1e-9 {
			t.Errorf("point %d tangent impulse %v exceeds the friction cone of %v", i, p.TangentImpulse, p.NormalImpulse)
		}
	}

	tangents, count := solver.Constraints()[0].TangentImpulses()
	if count != m.PointCount {
		t.Fatalf("TangentImpulses() count = %d, want %d", count, m.PointCount)
	}
	var sum float64
	for i := range count {
		if tangents[i] != m.Points[i].TangentImpulse {
			t.Errorf("point %d: solver tangent impulse %v, stored %v", i, tangents[i], m.Points[i].TangentImpulse)
		}
		sum += tangents[i]
	}
	// The friction impulse removed 0.6 m/s from a unit mass.
	if !floatEqual(sum, -0.6, 1e-6) {
		t.Errorf("total tangent impulse = %v, want -0.6", sum)
	}
}

// =============================================================================
// Warm Start Tests
// =============================================================================

func TestContactSolver_WarmStart(t *testing.T) {
	tests := []struct {
		name        string
		doWarmStart bool
		factor      float64
		dtRatio     float64
		want        float64
	}{
		{"full", true, 1, 1, 2},
		{"dt ratio", true, 1, 0.5, 1},
		{"factor", true, 0.5, 1, 1},
		{"disabled", false, 1, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bodies, m := boxOnGround(t, 0.5, 0)
			m.Points[0].NormalImpulse = 2
			m.Points[1].NormalImpulse = 2

			step := testStep()
			step.DoWarmStart = tt.doWarmStart
			step.WarmStartFactor = tt.factor
			step.DtRatio = tt.dtRatio

			solver := NewContactSolver(step, bodies, []ContactDef{groundContact(m)})
			impulses, count := solver.Constraints()[0].NormalImpulses()
			if count != 2 || impulses[0] != tt.want || impulses[1] != tt.want {
				t.Fatalf("seeded impulses = %v (%d), want %v", impulses, count, tt.want)
			}

			solver.InitializeVelocityConstraints()
			solver.WarmStart()
			if got := bodies[1].Velocity.V.Y(); !floatEqual(got, 2*tt.want, 1e-12) {
				t.Errorf("vy after warm start = %v, want %v", got, 2*tt.want)
			}
		})
	}
}

// =============================================================================
// Position Solver Tests
// =============================================================================

func TestContactSolver_SolvePositionConstraints(t *testing.T) {
	bodies, m := boxOnGround(t, 0.4, 0)
	solver := NewContactSolver(testStep(), bodies, []ContactDef{groundContact(m)})

	conf := testPositionConf()
	first := solver.SolvePositionConstraints(conf)
	if !floatEqual(first, -0.1, 1e-9) {
		t.Errorf("first min separation = %v, want -0.1", first)
	}

	var last geom.Real
	for range 50 {
		last = solver.SolvePositionConstraints(conf)
	}
	if last < -3*conf.LinearSlop {
		t.Errorf("min separation = %v, want above %v", last, -3*conf.LinearSlop)
	}
	if y := bodies[1].Position.C.Y(); y < 0.48 || y > 0.5 {
		t.Errorf("box y = %v, want pushed out to about 0.495", y)
	}
	if bodies[0].Position.C != (mgl64.Vec2{0, -0.5}) {
		t.Errorf("static body moved to %v", bodies[0].Position.C)
	}
	if bodies[1].Velocity != (Velocity{}) {
		t.Errorf("velocity = %+v, want untouched", bodies[1].Velocity)
	}
}

func TestContactSolver_SolveTOIPositionConstraints(t *testing.T) {
	bodies, m := boxOnGround(t, 0.4, 0)
	// Make the ground movable: only the TOI bodies may be corrected.
	bodies[0].InvMass = 1
	bodies[0].InvI = 1
	bodies = append(bodies, BodyConstraint{InvMass: 1})

	solver := NewContactSolver(testStep(), bodies, []ContactDef{groundContact(m)})
	for range 10 {
		solver.SolveTOIPositionConstraints(testPositionConf(), 1, 2)
	}

	if bodies[0].Position.C != (mgl64.Vec2{0, -0.5}) || bodies[0].Position.A != 0 {
		t.Errorf("non TOI body moved to %+v", bodies[0].Position)
	}
	if bodies[1].Position.C.Y() <= 0.4 {
		t.Errorf("TOI body y = %v, want pushed up", bodies[1].Position.C.Y())
	}
}

func TestContactSolver_CirclesStoreImpulses(t *testing.T) {
	circle, err := actor.NewCircle(mgl64.Vec2{}, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	bodies := []BodyConstraint{
		{InvMass: 1, InvI: 8, Velocity: Velocity{V: mgl64.Vec2{1, 0}}},
		{InvMass: 1, InvI: 8, Position: Position{C: mgl64.Vec2{1, 0}}},
	}
	m := manifold.Collide(circle.Proxy(), bodies[0].Transform(), circle.Proxy(), bodies[1].Transform(), manifold.DefaultConf())
	if m.Type != manifold.Circles {
		t.Fatalf("Type = %v, want circles", m.Type)
	}

	solveVelocities(bodies, ContactDef{Manifold: &m, IndexA: 0, IndexB: 1, RadiusA: 0.5, RadiusB: 0.5}, 0, 4)

	// Equal masses share the momentum.
	if !floatEqual(bodies[0].Velocity.V.X(), 0.5, 1e-9) || !floatEqual(bodies[1].Velocity.V.X(), 0.5, 1e-9) {
		t.Errorf("velocities = %v, %v, want 0.5 each", bodies[0].Velocity.V, bodies[1].Velocity.V)
	}
	if !floatEqual(m.Points[0].NormalImpulse, 0.5, 1e-9) {
		t.Errorf("NormalImpulse = %v, want 0.5", m.Points[0].NormalImpulse)
	}
}
