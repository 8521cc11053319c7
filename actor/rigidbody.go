package actor

import (
	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite mass
	// They are not affected by forces or gravity (e.g., ground, walls)
	BodyTypeStatic

	// BodyTypeKinematic bodies move with their set velocity and are never pushed back
	// They have infinite mass and ignore forces (e.g., moving platforms)
	BodyTypeKinematic
)

func (t BodyType) String() string {
	switch t {
	case BodyTypeDynamic:
		return "dynamic"
	case BodyTypeStatic:
		return "static"
	case BodyTypeKinematic:
		return "kinematic"
	}
	return "unknown"
}

// BodyID identifies a body in its world.
type BodyID int

// NullBody is the zero value for "no body".
const NullBody BodyID = -1

// ContactEdge links a body to one of its contacts and the body on the other side.
type ContactEdge struct {
	Contact int
	Other   BodyID
}

// JointEdge links a body to one of its joints and the body on the other side.
type JointEdge struct {
	Joint int
	Other BodyID
}

// BodyDef holds the initial state of a body.
type BodyDef struct {
	Type            BodyType
	Position        mgl64.Vec2
	Angle           geom.Real
	LinearVelocity  mgl64.Vec2
	AngularVelocity geom.Real
	LinearDamping   geom.Real
	AngularDamping  geom.Real
	GravityScale    geom.Real
	AllowSleep      bool
	Awake           bool
	FixedRotation   bool
	Bullet          bool
	UserData        any
}

// DefaultBodyDef returns an awake body of the given type at the origin.
func DefaultBodyDef(bodyType BodyType) BodyDef {
	return BodyDef{
		Type:         bodyType,
		GravityScale: 1,
		AllowSleep:   true,
		Awake:        true,
	}
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	ID       BodyID
	BodyType BodyType

	// Spatial properties
	// Transform is the body origin at the end of the sweep; it follows Sweep.C and Sweep.A.
	Transform geom.Transform
	Sweep     geom.Sweep

	// Linear motion
	LinearVelocity mgl64.Vec2 // Linear velocity of the center of mass (m/s)
	// Angular motion
	AngularVelocity geom.Real // rad/s

	force  mgl64.Vec2
	torque geom.Real

	mass, invMass       geom.Real
	inertia, invInertia geom.Real // about the center of mass

	LinearDamping  geom.Real
	AngularDamping geom.Real
	GravityScale   geom.Real

	awake           bool
	sleepingAllowed bool
	bullet          bool
	fixedRotation   bool

	SleepTime geom.Real

	Fixtures     []FixtureID
	ContactEdges []ContactEdge
	JointEdges   []JointEdge

	UserData any
}

// NewRigidBody creates a new rigid body from def.
// Mass properties stay at their defaults until ResetMassData is called with the body's fixtures.
func NewRigidBody(id BodyID, def BodyDef) *RigidBody {
	xf := geom.NewTransform(def.Position, def.Angle)
	rb := &RigidBody{
		ID:              id,
		BodyType:        def.Type,
		Transform:       xf,
		Sweep:           geom.NewSweep(xf, mgl64.Vec2{}),
		LinearDamping:   def.LinearDamping,
		AngularDamping:  def.AngularDamping,
		GravityScale:    def.GravityScale,
		sleepingAllowed: def.AllowSleep,
		bullet:          def.Bullet,
		fixedRotation:   def.FixedRotation,
		UserData:        def.UserData,
	}

	if def.Type == BodyTypeDynamic {
		rb.mass = 1
		rb.invMass = 1
	}
	if def.Type != BodyTypeStatic {
		rb.awake = def.Awake
		rb.LinearVelocity = def.LinearVelocity
		rb.AngularVelocity = def.AngularVelocity
	}

	return rb
}

// ResetMassData recomputes mass, rotational inertia and center of mass from the fixtures.
// The velocity of the center of mass is updated so the body keeps its motion.
func (rb *RigidBody) ResetMassData(fixtures []*Fixture) {
	rb.mass, rb.invMass = 0, 0
	rb.inertia, rb.invInertia = 0, 0

	if rb.BodyType != BodyTypeDynamic {
		rb.Sweep = geom.NewSweep(rb.Transform, mgl64.Vec2{})
		return
	}

	var localCenter mgl64.Vec2
	var I geom.Real
	for _, f := range fixtures {
		if f.Density == 0 {
			continue
		}
		md := f.Shape.ComputeMass(f.Density)
		rb.mass += md.Mass
		localCenter = localCenter.Add(md.Center.Mul(md.Mass))
		I += md.I
	}

	if rb.mass > 0 {
		rb.invMass = 1 / rb.mass
		localCenter = localCenter.Mul(rb.invMass)
	} else {
		// Force all dynamic bodies to have a positive mass.
		rb.mass = 1
		rb.invMass = 1
	}

	if I > 0 && !rb.fixedRotation {
		// Center the inertia about the center of mass.
		rb.inertia = I - rb.mass*localCenter.Dot(localCenter)
		rb.invInertia = 1 / rb.inertia
	}

	oldCenter := rb.Sweep.C
	rb.Sweep.LocalCenter = localCenter
	rb.Sweep.C = rb.Transform.Apply(localCenter)
	rb.Sweep.C0 = rb.Sweep.C

	// Update center of mass velocity.
	rb.LinearVelocity = rb.LinearVelocity.Add(geom.CrossSV(rb.AngularVelocity, rb.Sweep.C.Sub(oldCenter)))
}

func (rb *RigidBody) Mass() geom.Real {
	return rb.mass
}

func (rb *RigidBody) InvMass() geom.Real {
	return rb.invMass
}

// Inertia returns the rotational inertia about the center of mass.
func (rb *RigidBody) Inertia() geom.Real {
	return rb.inertia
}

func (rb *RigidBody) InvInertia() geom.Real {
	return rb.invInertia
}

// WorldCenter returns the center of mass in world coordinates.
func (rb *RigidBody) WorldCenter() mgl64.Vec2 {
	return rb.Sweep.C
}

func (rb *RigidBody) LocalCenter() mgl64.Vec2 {
	return rb.Sweep.LocalCenter
}

func (rb *RigidBody) Position() mgl64.Vec2 {
	return rb.Transform.Position
}

func (rb *RigidBody) Angle() geom.Real {
	return rb.Sweep.A
}

// SetTransform teleports the body. Contacts are updated on the next step.
func (rb *RigidBody) SetTransform(position mgl64.Vec2, angle geom.Real) {
	rb.Transform = geom.NewTransform(position, angle)
	alpha0 := rb.Sweep.Alpha0
	rb.Sweep = geom.NewSweep(rb.Transform, rb.Sweep.LocalCenter)
	rb.Sweep.Alpha0 = alpha0
}

// SynchronizeTransform derives Transform from the end of the sweep.
func (rb *RigidBody) SynchronizeTransform() {
	rb.Transform = rb.Sweep.Transform1()
}

// Advance moves the body to alpha of the current step, for time of impact handling.
// The remaining motion of the sweep is dropped.
func (rb *RigidBody) Advance(alpha geom.Real) {
	rb.Sweep.Advance(alpha)
	rb.Sweep.C = rb.Sweep.C0
	rb.Sweep.A = rb.Sweep.A0
	rb.SynchronizeTransform()
}

// IsSpeedable reports whether the body can have a velocity.
func (rb *RigidBody) IsSpeedable() bool {
	return rb.BodyType != BodyTypeStatic
}

// IsAccelerable reports whether forces and impulses change the body's velocity.
func (rb *RigidBody) IsAccelerable() bool {
	return rb.BodyType == BodyTypeDynamic
}

// IsImpenetrable reports whether other dynamic bodies must never tunnel through this body.
func (rb *RigidBody) IsImpenetrable() bool {
	return rb.bullet || rb.BodyType != BodyTypeDynamic
}

func (rb *RigidBody) IsBullet() bool {
	return rb.bullet
}

func (rb *RigidBody) SetBullet(flag bool) {
	rb.bullet = flag
}

func (rb *RigidBody) IsFixedRotation() bool {
	return rb.fixedRotation
}

// SetFixedRotation stops the body from rotating. Call ResetMassData afterwards.
func (rb *RigidBody) SetFixedRotation(flag bool) {
	if rb.fixedRotation == flag {
		return
	}
	rb.fixedRotation = flag
	rb.AngularVelocity = 0
}

func (rb *RigidBody) IsSleepingAllowed() bool {
	return rb.sleepingAllowed
}

func (rb *RigidBody) SetSleepingAllowed(flag bool) {
	rb.sleepingAllowed = flag
	if !flag {
		rb.SetAwake(true)
	}
}

func (rb *RigidBody) IsAwake() bool {
	return rb.awake
}

// SetAwake wakes or puts the body to sleep. A sleeping body loses its velocity and pending forces,
// and its sweep collapses to its current position.
// Static bodies never wake.
func (rb *RigidBody) SetAwake(flag bool) {
	if rb.BodyType == BodyTypeStatic {
		return
	}

	rb.SleepTime = 0
	if flag {
		rb.awake = true
		return
	}

	rb.awake = false
	rb.Sweep.C0 = rb.Sweep.C
	rb.Sweep.A0 = rb.Sweep.A
	rb.LinearVelocity = mgl64.Vec2{}
	rb.AngularVelocity = 0
	rb.ClearForces()
}

// TrySleep accumulates the time the body has stayed under the sleep tolerances and returns it.
// Bodies that cannot sleep, or move too fast, get their timer reset.
func (rb *RigidBody) TrySleep(dt, linearTolerance, angularTolerance geom.Real) geom.Real {
	if rb.BodyType == BodyTypeStatic {
		return geom.MaxReal
	}

	if !rb.sleepingAllowed ||
		rb.AngularVelocity*rb.AngularVelocity > angularTolerance*angularTolerance ||
		rb.LinearVelocity.LenSqr() > linearTolerance*linearTolerance {
		rb.SleepTime = 0
	} else {
		rb.SleepTime += dt
	}
	return rb.SleepTime
}

// SetLinearVelocity wakes the body when the velocity is non zero.
func (rb *RigidBody) SetLinearVelocity(v mgl64.Vec2) {
	if !rb.IsSpeedable() {
		return
	}
	if v.LenSqr() > 0 {
		rb.SetAwake(true)
	}
	rb.LinearVelocity = v
}

// SetAngularVelocity wakes the body when the velocity is non zero.
func (rb *RigidBody) SetAngularVelocity(w geom.Real) {
	if !rb.IsSpeedable() || rb.fixedRotation {
		return
	}
	if w != 0 {
		rb.SetAwake(true)
	}
	rb.AngularVelocity = w
}

// ApplyForce applies a force at a world point for the next step, waking the body.
func (rb *RigidBody) ApplyForce(force, point mgl64.Vec2) {
	if !rb.IsAccelerable() {
		return
	}
	rb.SetAwake(true)

	rb.force = rb.force.Add(force)
	rb.torque += geom.Cross(point.Sub(rb.Sweep.C), force)
}

// ApplyForceToCenter applies a force at the center of mass, waking the body.
func (rb *RigidBody) ApplyForceToCenter(force mgl64.Vec2) {
	if !rb.IsAccelerable() {
		return
	}
	rb.SetAwake(true)

	rb.force = rb.force.Add(force)
}

// ApplyTorque wakes the body.
func (rb *RigidBody) ApplyTorque(torque geom.Real) {
	if !rb.IsAccelerable() {
		return
	}
	rb.SetAwake(true)

	rb.torque += torque
}

// ApplyLinearImpulse changes the velocity immediately, waking the body.
func (rb *RigidBody) ApplyLinearImpulse(impulse, point mgl64.Vec2) {
	if !rb.IsAccelerable() {
		return
	}
	rb.SetAwake(true)

	rb.LinearVelocity = rb.LinearVelocity.Add(impulse.Mul(rb.invMass))
	rb.AngularVelocity += rb.invInertia * geom.Cross(point.Sub(rb.Sweep.C), impulse)
}

// ApplyAngularImpulse wakes the body.
func (rb *RigidBody) ApplyAngularImpulse(impulse geom.Real) {
	if !rb.IsAccelerable() {
		return
	}
	rb.SetAwake(true)

	rb.AngularVelocity += rb.invInertia * impulse
}

// Force returns the accumulated force and torque.
func (rb *RigidBody) Force() (mgl64.Vec2, geom.Real) {
	return rb.force, rb.torque
}

func (rb *RigidBody) ClearForces() {
	rb.force = mgl64.Vec2{}
	rb.torque = 0
}

// WorldPoint maps a point in body coordinates to world coordinates.
func (rb *RigidBody) WorldPoint(local mgl64.Vec2) mgl64.Vec2 {
	return rb.Transform.Apply(local)
}

// LocalPoint maps a world point to body coordinates.
func (rb *RigidBody) LocalPoint(world mgl64.Vec2) mgl64.Vec2 {
	return rb.Transform.ApplyInverse(world)
}

// WorldVector rotates a direction in body coordinates to world coordinates.
func (rb *RigidBody) WorldVector(local mgl64.Vec2) mgl64.Vec2 {
	return rb.Transform.Rotate(local)
}

// LinearVelocityAt returns the velocity of a world point attached to the body.
func (rb *RigidBody) LinearVelocityAt(world mgl64.Vec2) mgl64.Vec2 {
	return rb.LinearVelocity.Add(geom.CrossSV(rb.AngularVelocity, world.Sub(rb.Sweep.C)))
}

func (rb *RigidBody) AddContactEdge(edge ContactEdge) {
	rb.ContactEdges = append(rb.ContactEdges, edge)
}

// RemoveContactEdge drops the edge of a contact, keeping the other edges in order.
func (rb *RigidBody) RemoveContactEdge(contact int) {
	for i, e := range rb.ContactEdges {
		if e.Contact == contact {
			rb.ContactEdges = append(rb.ContactEdges[:i], rb.ContactEdges[i+1:]...)
			return
		}
	}
}

func (rb *RigidBody) AddJointEdge(edge JointEdge) {
	rb.JointEdges = append(rb.JointEdges, edge)
}

// RemoveJointEdge drops the edge of a joint, keeping the other edges in order.
func (rb *RigidBody) RemoveJointEdge(joint int) {
	for i, e := range rb.JointEdges {
		if e.Joint == joint {
			rb.JointEdges = append(rb.JointEdges[:i], rb.JointEdges[i+1:]...)
			return
		}
	}
}

// ShouldCollide reports whether contacts with other are allowed: at least one must be dynamic.
func (rb *RigidBody) ShouldCollide(other *RigidBody) bool {
	return rb.BodyType == BodyTypeDynamic || other.BodyType == BodyTypeDynamic
}
