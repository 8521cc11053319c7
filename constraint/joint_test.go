package constraint

import (
	"errors"
	"testing"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// =============================================================================
// Construction Tests
// =============================================================================

func TestNewJoint_Invalid(t *testing.T) {
	tests := []struct {
		name string
		make func() error
	}{
		{"distance on one body", func() error {
			_, err := NewDistanceJoint(DistanceJointDef{BodyA: 1, BodyB: 1, Length: 1})
			return err
		}},
		{"zero length", func() error {
			_, err := NewDistanceJoint(DistanceJointDef{BodyA: 0, BodyB: 1})
			return err
		}},
		{"negative frequency", func() error {
			_, err := NewDistanceJoint(DistanceJointDef{BodyA: 0, BodyB: 1, Length: 1, FrequencyHz: -1})
			return err
		}},
		{"inverted limit", func() error {
			_, err := NewRevoluteJoint(RevoluteJointDef{BodyA: 0, BodyB: 1, EnableLimit: true, LowerAngle: 1, UpperAngle: -1})
			return err
		}},
		{"negative motor torque", func() error {
			_, err := NewRevoluteJoint(RevoluteJointDef{BodyA: 0, BodyB: 1, MaxMotorTorque: -1})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.make(); !errors.Is(err, ErrInvalidJoint) {
				t.Errorf("error = %v, want ErrInvalidJoint", err)
			}
		})
	}
}

func TestJointDefsFromWorld(t *testing.T) {
	bodyA := actor.NewRigidBody(0, actor.DefaultBodyDef(actor.BodyTypeStatic))
	defB := actor.DefaultBodyDef(actor.BodyTypeDynamic)
	defB.Position = mgl64.Vec2{2, 0}
	defB.Angle = 0.5
	bodyB := actor.NewRigidBody(1, defB)

	distance := NewDistanceJointDef(bodyA, bodyB, mgl64.Vec2{0, 1}, mgl64.Vec2{2, 1})
	if !floatEqual(distance.Length, 2, 1e-12) {
		t.Errorf("Length = %v, want 2", distance.Length)
	}
	if got := bodyB.WorldPoint(distance.LocalAnchorB); !floatEqual(got.X(), 2, 1e-12) || !floatEqual(got.Y(), 1, 1e-12) {
		t.Errorf("anchor B = %v, want (2, 1)", got)
	}

	revolute := NewRevoluteJointDef(bodyA, bodyB, mgl64.Vec2{1, 0})
	if !floatEqual(revolute.ReferenceAngle, 0.5, 1e-12) {
		t.Errorf("ReferenceAngle = %v, want 0.5", revolute.ReferenceAngle)
	}

	joint, err := NewRevoluteJoint(revolute)
	if err != nil {
		t.Fatal(err)
	}
	a, b := joint.Bodies()
	if a != 0 || b != 1 || joint.CollideConnected() || joint.Kind() != JointKindRevolute {
		t.Errorf("joint = %v-%v collide %v kind %v", a, b, joint.CollideConnected(), joint.Kind())
	}
}

func TestJointKind_String(t *testing.T) {
	if JointKindDistance.String() != "distance" || JointKindRevolute.String() != "revolute" {
		t.Errorf("String() = %q, %q", JointKindDistance.String(), JointKindRevolute.String())
	}
	if JointKind(7).String() != "JointKind(7)" {
		t.Errorf("String() = %q", JointKind(7).String())
	}
}

// =============================================================================
// Distance Joint Tests
// =============================================================================

func TestDistanceJoint_Rigid(t *testing.T) {
	bodies := []BodyConstraint{
		{},
		{InvMass: 1, InvI: 1, Position: Position{C: mgl64.Vec2{1, 0}}, Velocity: Velocity{V: mgl64.Vec2{1, 2}}},
	}

	joint, err := NewDistanceJoint(DistanceJointDef{BodyA: 0, BodyB: 1, Length: 1})
	if err != nil {
		t.Fatal(err)
	}

	step := testStep()
	joint.InitVelocityConstraints(bodies, step, 0, 1)
	if inc := joint.SolveVelocityConstraints(bodies, step); !floatEqual(inc, 1, 1e-12) {
		t.Errorf("incremental impulse = %v, want 1", inc)
	}

	// The radial velocity is removed, the tangential one kept.
	if v := bodies[1].Velocity.V; !floatEqual(v.X(), 0, 1e-12) || !floatEqual(v.Y(), 2, 1e-12) {
		t.Errorf("velocity = %v, want (0, 2)", v)
	}
	if !floatEqual(joint.Impulse(), -1, 1e-12) {
		t.Errorf("Impulse() = %v, want -1", joint.Impulse())
	}

	// Stretched to 1.2, the position pass pulls it back.
	bodies[1].Position.C = mgl64.Vec2{1.2, 0}
	conf := testPositionConf()
	if joint.SolvePositionConstraints(bodies, conf) {
		t.Error("SolvePositionConstraints() = true with a 0.2 error")
	}
	if !joint.SolvePositionConstraints(bodies, conf) {
		t.Error("SolvePositionConstraints() = false after correction")
	}
	if !floatEqual(bodies[1].Position.C.X(), 1, 1e-9) {
		t.Errorf("x = %v, want 1", bodies[1].Position.C.X())
	}
}

func TestDistanceJoint_SoftSkipsPosition(t *testing.T) {
	bodies := []BodyConstraint{
		{},
		{InvMass: 1, InvI: 1, Position: Position{C: mgl64.Vec2{2, 0}}},
	}

	joint, err := NewDistanceJoint(DistanceJointDef{BodyA: 0, BodyB: 1, Length: 1, FrequencyHz: 4, DampingRatio: 0.5})
	if err != nil {
		t.Fatal(err)
	}

	step := testStep()
	joint.InitVelocityConstraints(bodies, step, 0, 1)
	joint.SolveVelocityConstraints(bodies, step)

	// The spring pulls toward the anchor without reaching it in one step.
	if vx := bodies[1].Velocity.V.X(); vx >= 0 || vx < -60 {
		t.Errorf("vx = %v, want a bounded pull toward the anchor", vx)
	}
	if !joint.SolvePositionConstraints(bodies, testPositionConf()) {
		t.Error("soft joints must not correct positions")
	}
	if bodies[1].Position.C != (mgl64.Vec2{2, 0}) {
		t.Errorf("position = %v, want unchanged", bodies[1].Position.C)
	}
}

// =============================================================================
// Revolute Joint Tests
// =============================================================================

func TestRevoluteJoint_Pin(t *testing.T) {
	bodies := []BodyConstraint{
		{},
		{InvMass: 1, InvI: 12, Position: Position{C: mgl64.Vec2{1, 0}}, Velocity: Velocity{V: mgl64.Vec2{0.5, 1}, W: 3}},
	}

	joint, err := NewRevoluteJoint(RevoluteJointDef{BodyA: 0, BodyB: 1, LocalAnchorB: mgl64.Vec2{-1, 0}})
	if err != nil {
		t.Fatal(err)
	}

	step := testStep()
	joint.InitVelocityConstraints(bodies, step, 0, 1)
	joint.SolveVelocityConstraints(bodies, step)

	anchorVelocity := bodies[1].velocityAt(mgl64.Vec2{-1, 0})
	if !floatEqual(anchorVelocity.Len(), 0, 1e-9) {
		t.Errorf("anchor velocity = %v, want zero", anchorVelocity)
	}

	// Pull the body off the pin and let the position pass bring it back.
	bodies[1].Position.C = mgl64.Vec2{1.1, 0.05}
	conf := testPositionConf()
	for range 5 {
		joint.SolvePositionConstraints(bodies, conf)
	}
	if !joint.SolvePositionConstraints(bodies, conf) {
		t.Errorf("position error remains at %+v", bodies[1].Position)
	}
}

func TestRevoluteJoint_Motor(t *testing.T) {
	bodies := []BodyConstraint{
		{},
		{InvMass: 1, InvI: 1},
	}

	tests := []struct {
		name     string
		torque   float64
		wantW    float64
		wantMotI float64
	}{
		{"reaches speed", 1000, 2, 2},
		{"torque limited", 6, 0.1, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bodies[1].Velocity = Velocity{}
			joint, err := NewRevoluteJoint(RevoluteJointDef{BodyA: 0, BodyB: 1, EnableMotor: true, MotorSpeed: 2, MaxMotorTorque: tt.torque})
			if err != nil {
				t.Fatal(err)
			}

			step := testStep()
			joint.InitVelocityConstraints(bodies, step, 0, 1)
			joint.SolveVelocityConstraints(bodies, step)

			if !floatEqual(bodies[1].Velocity.W, tt.wantW, 1e-9) {
				t.Errorf("W = %v, want %v", bodies[1].Velocity.W, tt.wantW)
			}
			if !floatEqual(joint.MotorImpulse(), tt.wantMotI, 1e-9) {
				t.Errorf("MotorImpulse() = %v, want %v", joint.MotorImpulse(), tt.wantMotI)
			}
		})
	}
}

func TestRevoluteJoint_Limit(t *testing.T) {
	bodies := []BodyConstraint{
		{},
		{InvMass: 1, InvI: 1, Velocity: Velocity{W: 5}},
	}

	joint, err := NewRevoluteJoint(RevoluteJointDef{BodyA: 0, BodyB: 1, EnableLimit: true, LowerAngle: -1, UpperAngle: 0})
	if err != nil {
		t.Fatal(err)
	}

	step := testStep()
	joint.InitVelocityConstraints(bodies, step, 0, 1)
	joint.SolveVelocityConstraints(bodies, step)

	if !floatEqual(bodies[1].Velocity.W, 0, 1e-9) {
		t.Errorf("W = %v, want stopped at the upper limit", bodies[1].Velocity.W)
	}

	// Past the upper limit, the position pass rotates the body back.
	bodies[1].Position.A = 0.1
	joint.SolvePositionConstraints(bodies, testPositionConf())
	if a := bodies[1].Position.A; a >= 0.1 || a < 0 {
		t.Errorf("angle = %v, want corrected toward the limit", a)
	}
}
