package constraint

import (
	"errors"
	"fmt"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidJoint is returned by joint constructors for unusable definitions.
var ErrInvalidJoint = errors.New("constraint: invalid joint")

// JointKind tags the concrete type of a joint.
type JointKind int

const (
	JointKindDistance JointKind = iota
	JointKindRevolute
)

func (k JointKind) String() string {
	switch k {
	case JointKindDistance:
		return "distance"
	case JointKindRevolute:
		return "revolute"
	}
	return fmt.Sprintf("JointKind(%d)", int(k))
}

// Joint is the capability the island solver needs from a joint. The solver knows nothing of
// the joint math: it binds the joint to the island's bodies, then alternates velocity and
// position passes exactly as it does for contacts.
type Joint interface {
	Kind() JointKind
	Bodies() (actor.BodyID, actor.BodyID)
	// CollideConnected reports whether the two bodies may still touch each other.
	CollideConnected() bool
	// InitVelocityConstraints binds the joint to bodies[indexA] and bodies[indexB], prepares
	// the effective masses and warm starts.
	InitVelocityConstraints(bodies []BodyConstraint, step StepData, indexA, indexB int)
	// SolveVelocityConstraints returns the largest incremental impulse applied.
	SolveVelocityConstraints(bodies []BodyConstraint, step StepData) geom.Real
	// SolvePositionConstraints returns true when the joint error is within the slops.
	SolvePositionConstraints(bodies []BodyConstraint, conf PositionConf) bool
}

type jointBase struct {
	bodyA            actor.BodyID
	bodyB            actor.BodyID
	collideConnected bool
	localAnchorA     mgl64.Vec2
	localAnchorB     mgl64.Vec2

	// Solver temporaries
	indexA       int
	indexB       int
	localCenterA mgl64.Vec2
	localCenterB mgl64.Vec2
	invMassA     geom.Real
	invMassB     geom.Real
	invIA        geom.Real
	invIB        geom.Real
}

func newJointBase(bodyA, bodyB actor.BodyID, localAnchorA, localAnchorB mgl64.Vec2, collideConnected bool) (jointBase, error) {
	if bodyA == bodyB {
		return jointBase{}, fmt.Errorf("%w: body %d is joined to itself", ErrInvalidJoint, bodyA)
	}
	if !geom.IsValidVec(localAnchorA) || !geom.IsValidVec(localAnchorB) {
		return jointBase{}, fmt.Errorf("%w: anchors %v %v", ErrInvalidJoint, localAnchorA, localAnchorB)
	}

	return jointBase{
		bodyA:            bodyA,
		bodyB:            bodyB,
		collideConnected: collideConnected,
		localAnchorA:     localAnchorA,
		localAnchorB:     localAnchorB,
	}, nil
}

func (j *jointBase) Bodies() (actor.BodyID, actor.BodyID) {
	return j.bodyA, j.bodyB
}

func (j *jointBase) CollideConnected() bool {
	return j.collideConnected
}

// LocalAnchors returns the anchor points in the frames of body A and body B.
func (j *jointBase) LocalAnchors() (mgl64.Vec2, mgl64.Vec2) {
	return j.localAnchorA, j.localAnchorB
}

func (j *jointBase) bind(bodies []BodyConstraint, indexA, indexB int) {
	j.indexA = indexA
	j.indexB = indexB
	j.localCenterA = bodies[indexA].LocalCenter
	j.localCenterB = bodies[indexB].LocalCenter
	j.invMassA = bodies[indexA].InvMass
	j.invMassB = bodies[indexB].InvMass
	j.invIA = bodies[indexA].InvI
	j.invIB = bodies[indexB].InvI
}

// arms returns the anchors relative to the centers of mass, at the current angles.
func (j *jointBase) arms(bodies []BodyConstraint) (mgl64.Vec2, mgl64.Vec2) {
	rA := mgl64.Rotate2D(bodies[j.indexA].Position.A).Mul2x1(j.localAnchorA.Sub(j.localCenterA))
	rB := mgl64.Rotate2D(bodies[j.indexB].Position.A).Mul2x1(j.localAnchorB.Sub(j.localCenterB))
	return rA, rB
}
