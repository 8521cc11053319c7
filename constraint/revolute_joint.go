package constraint

import (
	"fmt"
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// RevoluteJointDef pins two bodies together at a shared anchor, with an optional angle limit
// and motor.
type RevoluteJointDef struct {
	BodyA, BodyB     actor.BodyID
	LocalAnchorA     mgl64.Vec2
	LocalAnchorB     mgl64.Vec2
	ReferenceAngle   geom.Real
	EnableLimit      bool
	LowerAngle       geom.Real
	UpperAngle       geom.Real
	EnableMotor      bool
	MotorSpeed       geom.Real
	MaxMotorTorque   geom.Real
	CollideConnected bool
}

// NewRevoluteJointDef anchors the joint at a world point, keeping the current relative angle.
func NewRevoluteJointDef(bodyA, bodyB *actor.RigidBody, anchor mgl64.Vec2) RevoluteJointDef {
	return RevoluteJointDef{
		BodyA:          bodyA.ID,
		BodyB:          bodyB.ID,
		LocalAnchorA:   bodyA.LocalPoint(anchor),
		LocalAnchorB:   bodyB.LocalPoint(anchor),
		ReferenceAngle: bodyB.Angle() - bodyA.Angle(),
	}
}

// RevoluteJoint is a hinge.
//
// Point to point constraint:
//
//	C = p2 - p1
//	Cdot = v2 + cross(w2, r2) - v1 - cross(w1, r1)
//	J = [-I -r1_skew I r2_skew]
//
// Motor and limit constraints:
//
//	Cdot = w2 - w1
//	J = [0 0 -1 0 0 1]
type RevoluteJoint struct {
	jointBase

	referenceAngle geom.Real
	enableLimit    bool
	lowerAngle     geom.Real
	upperAngle     geom.Real
	enableMotor    bool
	motorSpeed     geom.Real
	maxMotorTorque geom.Real

	impulse      mgl64.Vec2
	motorImpulse geom.Real
	lowerImpulse geom.Real
	upperImpulse geom.Real

	rA, rB    mgl64.Vec2
	K         mgl64.Mat2
	angle     geom.Real
	axialMass geom.Real
}

var _ Joint = (*RevoluteJoint)(nil)

func NewRevoluteJoint(def RevoluteJointDef) (*RevoluteJoint, error) {
	base, err := newJointBase(def.BodyA, def.BodyB, def.LocalAnchorA, def.LocalAnchorB, def.CollideConnected)
	if err != nil {
		return nil, err
	}
	if def.EnableLimit && def.LowerAngle > def.UpperAngle {
		return nil, fmt.Errorf("%w: revolute limit [%v, %v]", ErrInvalidJoint, def.LowerAngle, def.UpperAngle)
	}
	if def.MaxMotorTorque < 0 {
		return nil, fmt.Errorf("%w: revolute motor torque %v", ErrInvalidJoint, def.MaxMotorTorque)
	}

	return &RevoluteJoint{
		jointBase:      base,
		referenceAngle: def.ReferenceAngle,
		enableLimit:    def.EnableLimit,
		lowerAngle:     def.LowerAngle,
		upperAngle:     def.UpperAngle,
		enableMotor:    def.EnableMotor,
		motorSpeed:     def.MotorSpeed,
		maxMotorTorque: def.MaxMotorTorque,
	}, nil
}

func (j *RevoluteJoint) Kind() JointKind {
	return JointKindRevolute
}

// SetMotorSpeed sets the target relative angular velocity, in rad/s.
func (j *RevoluteJoint) SetMotorSpeed(speed geom.Real) {
	j.motorSpeed = speed
}

// MotorImpulse returns the impulse the motor applied during the last step.
func (j *RevoluteJoint) MotorImpulse() geom.Real {
	return j.motorImpulse
}

func (j *RevoluteJoint) fixedRotation() bool {
	return j.invIA+j.invIB == 0
}

// pointMass returns the mass matrix of the point to point constraint for the given arms.
func (j *RevoluteJoint) pointMass(rA, rB mgl64.Vec2) mgl64.Mat2 {
	mA, mB, iA, iB := j.invMassA, j.invMassB, j.invIA, j.invIB

	k11 := mA + mB + rA.Y()*rA.Y()*iA + rB.Y()*rB.Y()*iB
	k12 := -rA.Y()*rA.X()*iA - rB.Y()*rB.X()*iB
	k22 := mA + mB + rA.X()*rA.X()*iA + rB.X()*rB.X()*iB
	return mgl64.Mat2{k11, k12, k12, k22}
}

func (j *RevoluteJoint) InitVelocityConstraints(bodies []BodyConstraint, step StepData, indexA, indexB int) {
	j.bind(bodies, indexA, indexB)
	bodyA := &bodies[indexA]
	bodyB := &bodies[indexB]

	j.rA, j.rB = j.arms(bodies)
	j.K = j.pointMass(j.rA, j.rB)

	j.axialMass = j.invIA + j.invIB
	if j.axialMass > 0 {
		j.axialMass = 1 / j.axialMass
	}

	j.angle = bodyB.Position.A - bodyA.Position.A - j.referenceAngle
	if !j.enableLimit || j.fixedRotation() {
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}
	if !j.enableMotor || j.fixedRotation() {
		j.motorImpulse = 0
	}

	scale := step.warmStartScale()
	j.impulse = j.impulse.Mul(scale)
	j.motorImpulse *= scale
	j.lowerImpulse *= scale
	j.upperImpulse *= scale

	axialImpulse := j.motorImpulse + j.lowerImpulse - j.upperImpulse
	bodyA.applyImpulse(j.impulse.Mul(-1), j.rA)
	bodyA.Velocity.W -= j.invIA * axialImpulse
	bodyB.applyImpulse(j.impulse, j.rB)
	bodyB.Velocity.W += j.invIB * axialImpulse
}

func (j *RevoluteJoint) SolveVelocityConstraints(bodies []BodyConstraint, step StepData) geom.Real {
	bodyA := &bodies[j.indexA]
	bodyB := &bodies[j.indexB]
	var maxIncImpulse geom.Real

	applyAxial := func(impulse geom.Real) {
		bodyA.Velocity.W -= j.invIA * impulse
		bodyB.Velocity.W += j.invIB * impulse
		maxIncImpulse = max(maxIncImpulse, math.Abs(impulse))
	}

	if j.enableMotor && !j.fixedRotation() {
		Cdot := bodyB.Velocity.W - bodyA.Velocity.W - j.motorSpeed
		impulse := -j.axialMass * Cdot
		oldImpulse := j.motorImpulse
		maxImpulse := step.Dt * j.maxMotorTorque
		j.motorImpulse = geom.Clamp(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		applyAxial(j.motorImpulse - oldImpulse)
	}

	if j.enableLimit && !j.fixedRotation() {
		// Lower limit
		{
			C := j.angle - j.lowerAngle
			Cdot := bodyB.Velocity.W - bodyA.Velocity.W
			impulse := -j.axialMass * (Cdot + max(C, 0)*step.InvDt)
			newImpulse := max(j.lowerImpulse+impulse, 0)
			impulse = newImpulse - j.lowerImpulse
			j.lowerImpulse = newImpulse
			applyAxial(impulse)
		}

		// Upper limit
		// Note: signs are flipped to keep C positive when the constraint is satisfied.
		{
			C := j.upperAngle - j.angle
			Cdot := bodyA.Velocity.W - bodyB.Velocity.W
			impulse := -j.axialMass * (Cdot + max(C, 0)*step.InvDt)
			newImpulse := max(j.upperImpulse+impulse, 0)
			impulse = newImpulse - j.upperImpulse
			j.upperImpulse = newImpulse
			applyAxial(-impulse)
		}
	}

	// Solve point to point constraint
	Cdot := bodyB.velocityAt(j.rB).Sub(bodyA.velocityAt(j.rA))
	impulse := j.K.Inv().Mul2x1(Cdot.Mul(-1))
	j.impulse = j.impulse.Add(impulse)

	bodyA.applyImpulse(impulse.Mul(-1), j.rA)
	bodyB.applyImpulse(impulse, j.rB)

	return max(maxIncImpulse, impulse.Len())
}

func (j *RevoluteJoint) SolvePositionConstraints(bodies []BodyConstraint, conf PositionConf) bool {
	bodyA := &bodies[j.indexA]
	bodyB := &bodies[j.indexB]

	var angularError geom.Real

	// Solve angular limit constraint
	if j.enableLimit && !j.fixedRotation() {
		angle := bodyB.Position.A - bodyA.Position.A - j.referenceAngle

		var C geom.Real
		switch {
		case math.Abs(j.upperAngle-j.lowerAngle) < 2*conf.AngularSlop:
			// Prevent large angular corrections
			C = geom.Clamp(angle-j.lowerAngle, -conf.MaxAngularCorrection, conf.MaxAngularCorrection)
		case angle <= j.lowerAngle:
			// Prevent large angular corrections and allow some slop.
			C = geom.Clamp(angle-j.lowerAngle+conf.AngularSlop, -conf.MaxAngularCorrection, 0)
		case angle >= j.upperAngle:
			C = geom.Clamp(angle-j.upperAngle-conf.AngularSlop, 0, conf.MaxAngularCorrection)
		}

		limitImpulse := -j.axialMass * C
		bodyA.Position.A -= j.invIA * limitImpulse
		bodyB.Position.A += j.invIB * limitImpulse
		angularError = math.Abs(C)
	}

	// Solve point to point constraint.
	rA, rB := j.arms(bodies)
	C := bodyB.Position.C.Add(rB).Sub(bodyA.Position.C).Sub(rA)
	positionError := C.Len()

	impulse := j.pointMass(rA, rB).Inv().Mul2x1(C).Mul(-1)

	bodyA.Position.C = bodyA.Position.C.Sub(impulse.Mul(j.invMassA))
	bodyA.Position.A -= j.invIA * geom.Cross(rA, impulse)
	bodyB.Position.C = bodyB.Position.C.Add(impulse.Mul(j.invMassB))
	bodyB.Position.A += j.invIB * geom.Cross(rB, impulse)

	return positionError <= conf.LinearSlop && angularError <= conf.AngularSlop
}
