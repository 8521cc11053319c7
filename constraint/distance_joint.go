package constraint

import (
	"fmt"
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// DistanceJointDef keeps two anchor points at a fixed distance, rigidly or as a spring.
type DistanceJointDef struct {
	BodyA, BodyB     actor.BodyID
	LocalAnchorA     mgl64.Vec2
	LocalAnchorB     mgl64.Vec2
	Length           geom.Real
	FrequencyHz      geom.Real // 0 makes the joint rigid
	DampingRatio     geom.Real
	CollideConnected bool
}

// NewDistanceJointDef anchors the joint at two world points; the length is their current distance.
func NewDistanceJointDef(bodyA, bodyB *actor.RigidBody, anchorA, anchorB mgl64.Vec2) DistanceJointDef {
	return DistanceJointDef{
		BodyA:        bodyA.ID,
		BodyB:        bodyB.ID,
		LocalAnchorA: bodyA.LocalPoint(anchorA),
		LocalAnchorB: bodyB.LocalPoint(anchorB),
		Length:       anchorB.Sub(anchorA).Len(),
	}
}

// DistanceJoint is a rod or a spring between two anchor points.
//
//	C = norm(p2 - p1) - L
//	Cdot = dot(u, v2 + cross(w2, r2) - v1 - cross(w1, r1))
//	J = [-u -cross(r1, u) u cross(r2, u)]
type DistanceJoint struct {
	jointBase

	length       geom.Real
	frequencyHz  geom.Real
	dampingRatio geom.Real

	impulse geom.Real
	gamma   geom.Real
	bias    geom.Real
	mass    geom.Real
	u       mgl64.Vec2
	rA, rB  mgl64.Vec2
}

var _ Joint = (*DistanceJoint)(nil)

func NewDistanceJoint(def DistanceJointDef) (*DistanceJoint, error) {
	base, err := newJointBase(def.BodyA, def.BodyB, def.LocalAnchorA, def.LocalAnchorB, def.CollideConnected)
	if err != nil {
		return nil, err
	}
	if def.Length <= 0 || !geom.IsValid(def.Length) {
		return nil, fmt.Errorf("%w: distance joint length %v", ErrInvalidJoint, def.Length)
	}
	if def.FrequencyHz < 0 || def.DampingRatio < 0 {
		return nil, fmt.Errorf("%w: distance joint spring %v Hz, damping %v", ErrInvalidJoint, def.FrequencyHz, def.DampingRatio)
	}

	return &DistanceJoint{
		jointBase:    base,
		length:       def.Length,
		frequencyHz:  def.FrequencyHz,
		dampingRatio: def.DampingRatio,
	}, nil
}

func (j *DistanceJoint) Kind() JointKind {
	return JointKindDistance
}

func (j *DistanceJoint) Length() geom.Real {
	return j.length
}

// Impulse returns the impulse accumulated along the rod during the last step.
func (j *DistanceJoint) Impulse() geom.Real {
	return j.impulse
}

func (j *DistanceJoint) InitVelocityConstraints(bodies []BodyConstraint, step StepData, indexA, indexB int) {
	j.bind(bodies, indexA, indexB)
	bodyA := &bodies[indexA]
	bodyB := &bodies[indexB]

	j.rA, j.rB = j.arms(bodies)
	j.u = bodyB.Position.C.Add(j.rB).Sub(bodyA.Position.C).Sub(j.rA)

	// Handle singularity.
	var length geom.Real
	j.u, length = geom.Normalize(j.u)

	crAu := geom.Cross(j.rA, j.u)
	crBu := geom.Cross(j.rB, j.u)
	invMass := j.invMassA + j.invIA*crAu*crAu + j.invMassB + j.invIB*crBu*crBu

	j.mass = 0
	if invMass != 0 {
		j.mass = 1 / invMass
	}

	j.gamma, j.bias = 0, 0
	if j.frequencyHz > 0 {
		C := length - j.length

		omega := 2 * math.Pi * j.frequencyHz
		d := 2 * j.mass * j.dampingRatio * omega
		k := j.mass * omega * omega

		// magic formulas
		h := step.Dt
		j.gamma = h * (d + h*k)
		if j.gamma != 0 {
			j.gamma = 1 / j.gamma
		}
		j.bias = C * h * k * j.gamma

		invMass += j.gamma
		j.mass = 0
		if invMass != 0 {
			j.mass = 1 / invMass
		}
	}

	j.impulse *= step.warmStartScale()
	P := j.u.Mul(j.impulse)
	bodyA.applyImpulse(P.Mul(-1), j.rA)
	bodyB.applyImpulse(P, j.rB)
}

func (j *DistanceJoint) SolveVelocityConstraints(bodies []BodyConstraint, step StepData) geom.Real {
	bodyA := &bodies[j.indexA]
	bodyB := &bodies[j.indexB]

	Cdot := j.u.Dot(bodyB.velocityAt(j.rB).Sub(bodyA.velocityAt(j.rA)))

	impulse := -j.mass * (Cdot + j.bias + j.gamma*j.impulse)
	j.impulse += impulse

	P := j.u.Mul(impulse)
	bodyA.applyImpulse(P.Mul(-1), j.rA)
	bodyB.applyImpulse(P, j.rB)

	return math.Abs(impulse)
}

func (j *DistanceJoint) SolvePositionConstraints(bodies []BodyConstraint, conf PositionConf) bool {
	if j.frequencyHz > 0 {
		// There is no position correction for soft distance constraints.
		return true
	}

	bodyA := &bodies[j.indexA]
	bodyB := &bodies[j.indexB]

	rA, rB := j.arms(bodies)
	u, length := geom.Normalize(bodyB.Position.C.Add(rB).Sub(bodyA.Position.C).Sub(rA))
	C := geom.Clamp(length-j.length, -conf.MaxLinearCorrection, conf.MaxLinearCorrection)

	impulse := -j.mass * C
	P := u.Mul(impulse)

	bodyA.Position.C = bodyA.Position.C.Sub(P.Mul(j.invMassA))
	bodyA.Position.A -= j.invIA * geom.Cross(rA, P)
	bodyB.Position.C = bodyB.Position.C.Add(P.Mul(j.invMassB))
	bodyB.Position.A += j.invIB * geom.Cross(rB, P)

	return math.Abs(C) < conf.LinearSlop
}
