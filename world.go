// Package feather2d is a deterministic 2D rigid body engine.
//
// A World owns bodies, fixtures, joints and contacts, all addressed by integer ids. Each Step
// updates the contacts found by the broad phase, solves the awake islands with a sequential
// impulse solver and then sub-steps the fast contacts at their time of impact.
package feather2d

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/broadphase"
	"github.com/akmonengine/feather2d/config"
	"github.com/akmonengine/feather2d/constraint"
	"github.com/akmonengine/feather2d/geom"
	"github.com/akmonengine/feather2d/manifold"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrLocked is returned when the world is mutated during a step, from a contact listener.
	ErrLocked = errors.New("feather2d: world is locked")
	// ErrNotFound is returned for ids that do not name a live object.
	ErrNotFound = errors.New("feather2d: not found")
	// ErrCapacity is returned when the broad phase cannot take another fixture.
	ErrCapacity = errors.New("feather2d: capacity reached")
	// ErrInvalidBody is returned for body definitions with non finite values.
	ErrInvalidBody = errors.New("feather2d: invalid body definition")
)

// JointID identifies a joint in its world.
type JointID int

type World struct {
	// Logger receives step summaries and solver warnings. Nil discards them.
	Logger *slog.Logger

	conf config.StepConf

	bodies   arena[actor.BodyID, *actor.RigidBody]
	fixtures arena[actor.FixtureID, *actor.Fixture]
	joints   arena[JointID, constraint.Joint]
	contacts arena[ContactID, *Contact]

	broadPhase *broadphase.BroadPhase[actor.FixtureID]

	Events   Events
	listener ContactListener

	locked bool
	// the broad phase holds moved proxies whose pairs were not looked up yet
	newPairs bool
	invDt0   geom.Real

	// island membership, indexed by body and joint id
	bodyInIsland  []bool
	jointInIsland []bool
	stack         []actor.BodyID
	updates       []*Contact
}

// Option configures a World.
type Option func(*worldOptions)

type worldOptions struct {
	broadPhase []broadphase.Option
}

// WithProxyCapacity bounds the number of fixtures the world holds. Zero means unbounded.
func WithProxyCapacity(n int) Option {
	return func(o *worldOptions) {
		o.broadPhase = append(o.broadPhase, broadphase.WithCapacity(n))
	}
}

// NewWorld creates an empty world stepping with conf.
func NewWorld(conf config.StepConf, opts ...Option) (*World, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	options := worldOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	bpOptions := append([]broadphase.Option{
		broadphase.WithExtension(conf.AABBExtension),
		broadphase.WithDisplaceMultiplier(conf.DisplaceMultiplier),
	}, options.broadPhase...)

	return &World{
		conf:       conf,
		broadPhase: broadphase.NewBroadPhase[actor.FixtureID](bpOptions...),
		Events:     NewEvents(),
	}, nil
}

func (w *World) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.Logger
}

// Conf returns the step configuration.
func (w *World) Conf() config.StepConf {
	return w.conf
}

// SetConf replaces the step configuration. The broad phase margins keep the values the world
// was created with.
func (w *World) SetConf(conf config.StepConf) error {
	if w.locked {
		return ErrLocked
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	w.conf = conf
	return nil
}

// SetGravity changes the gravity of the following steps.
func (w *World) SetGravity(gravity mgl64.Vec2) {
	w.conf.Gravity = gravity
}

// SetContactListener registers the listener called during steps. Nil removes it.
func (w *World) SetContactListener(listener ContactListener) {
	w.listener = listener
}

// Subscribe adds a listener for an event type. Events are delivered at the end of each step.
func (w *World) Subscribe(eventType EventType, listener EventListener) {
	w.Events.Subscribe(eventType, listener)
}

// IsLocked reports whether the world is in the middle of a step.
func (w *World) IsLocked() bool {
	return w.locked
}

// ============================================================================
// Bodies
// ============================================================================

// CreateBody adds a body without fixtures. Dynamic bodies weigh 1 until a fixture with
// density is attached.
func (w *World) CreateBody(def actor.BodyDef) (actor.BodyID, error) {
	if w.locked {
		return actor.NullBody, ErrLocked
	}
	if !geom.IsValidVec(def.Position) || !geom.IsValid(def.Angle) ||
		!geom.IsValidVec(def.LinearVelocity) || !geom.IsValid(def.AngularVelocity) {
		return actor.NullBody, fmt.Errorf("%w: non finite placement or velocity", ErrInvalidBody)
	}
	if def.LinearDamping < 0 || def.AngularDamping < 0 {
		return actor.NullBody, fmt.Errorf("%w: negative damping", ErrInvalidBody)
	}

	id := w.bodies.nextID()
	w.bodies.insert(actor.NewRigidBody(id, def))
	return id, nil
}

// DestroyBody removes a body with its fixtures, joints and contacts.
func (w *World) DestroyBody(id actor.BodyID) error {
	if w.locked {
		return ErrLocked
	}
	body, ok := w.bodies.get(id)
	if !ok {
		return fmt.Errorf("%w: body %d", ErrNotFound, id)
	}

	for len(body.JointEdges) > 0 {
		w.destroyJoint(JointID(body.JointEdges[0].Joint))
	}
	for len(body.ContactEdges) > 0 {
		w.destroyContact(w.contacts.at(ContactID(body.ContactEdges[0].Contact)))
	}
	for _, fixtureID := range body.Fixtures {
		fixture := w.fixtures.at(fixtureID)
		if err := w.broadPhase.DestroyProxy(fixture.ProxyID); err != nil {
			return err
		}
		w.fixtures.remove(fixtureID)
	}

	w.Events.forgetBody(id)
	w.bodies.remove(id)
	return nil
}

// Body returns the body with the given id, or nil.
func (w *World) Body(id actor.BodyID) *actor.RigidBody {
	body, _ := w.bodies.get(id)
	return body
}

// BodyCount returns the number of bodies.
func (w *World) BodyCount() int {
	return w.bodies.len()
}

// Bodies calls fn on every body in id order until fn returns false.
func (w *World) Bodies(fn func(body *actor.RigidBody) bool) {
	w.bodies.each(func(_ actor.BodyID, body *actor.RigidBody) bool {
		return fn(body)
	})
}

// SetTransform teleports a body. Its proxies are moved at once and contacts are looked up at
// the next step.
func (w *World) SetTransform(id actor.BodyID, position mgl64.Vec2, angle geom.Real) error {
	if w.locked {
		return ErrLocked
	}
	body, ok := w.bodies.get(id)
	if !ok {
		return fmt.Errorf("%w: body %d", ErrNotFound, id)
	}
	if !geom.IsValidVec(position) || !geom.IsValid(angle) {
		return fmt.Errorf("%w: non finite placement", ErrInvalidBody)
	}

	body.SetTransform(position, angle)
	body.Sweep.C0 = body.Sweep.C
	body.Sweep.A0 = body.Sweep.A
	w.synchronizeFixtures(body)
	return nil
}

// bodyFixtures collects the fixtures of body, in attachment order.
func (w *World) bodyFixtures(body *actor.RigidBody) []*actor.Fixture {
	fixtures := make([]*actor.Fixture, len(body.Fixtures))
	for i, id := range body.Fixtures {
		fixtures[i] = w.fixtures.at(id)
	}
	return fixtures
}

// wake keeps the sleep timer of bodies that are already awake.
func (w *World) wake(body *actor.RigidBody) {
	if !body.IsAwake() {
		body.SetAwake(true)
	}
}

// ============================================================================
// Fixtures
// ============================================================================

// CreateFixture attaches a shape to a body. The body's mass is recomputed when the fixture
// has a density.
func (w *World) CreateFixture(bodyID actor.BodyID, def actor.FixtureDef) (actor.FixtureID, error) {
	if w.locked {
		return actor.NullFixture, ErrLocked
	}
	body, ok := w.bodies.get(bodyID)
	if !ok {
		return actor.NullFixture, fmt.Errorf("%w: body %d", ErrNotFound, bodyID)
	}

	fixture, err := actor.NewFixture(w.fixtures.nextID(), bodyID, def)
	if err != nil {
		return actor.NullFixture, err
	}
	if radius := fixture.Shape.Proxy().Radius; radius < w.conf.MinVertexRadius || radius > w.conf.MaxVertexRadius {
		return actor.NullFixture, fmt.Errorf("%w: vertex radius %v outside [%v, %v]",
			actor.ErrInvalidFixture, radius, w.conf.MinVertexRadius, w.conf.MaxVertexRadius)
	}

	proxyID, err := w.broadPhase.CreateProxy(fixture.ComputeAABB(body.Transform), fixture.ID)
	if err != nil {
		return actor.NullFixture, fmt.Errorf("%w: %w", ErrCapacity, err)
	}
	fixture.ProxyID = proxyID

	w.fixtures.insert(fixture)
	body.Fixtures = append(body.Fixtures, fixture.ID)
	if fixture.Density > 0 {
		body.ResetMassData(w.bodyFixtures(body))
	}

	w.newPairs = true
	return fixture.ID, nil
}

// DestroyFixture detaches a fixture from its body and destroys its contacts.
func (w *World) DestroyFixture(id actor.FixtureID) error {
	if w.locked {
		return ErrLocked
	}
	fixture, ok := w.fixtures.get(id)
	if !ok {
		return fmt.Errorf("%w: fixture %d", ErrNotFound, id)
	}
	body := w.bodies.at(fixture.Body)

	var doomed []*Contact
	for _, edge := range body.ContactEdges {
		c := w.contacts.at(ContactID(edge.Contact))
		if c.FixtureA == id || c.FixtureB == id {
			doomed = append(doomed, c)
		}
	}
	for _, c := range doomed {
		w.destroyContact(c)
	}

	if err := w.broadPhase.DestroyProxy(fixture.ProxyID); err != nil {
		return err
	}
	for i, fixtureID := range body.Fixtures {
		if fixtureID == id {
			body.Fixtures = append(body.Fixtures[:i], body.Fixtures[i+1:]...)
			break
		}
	}
	w.fixtures.remove(id)
	w.Events.forgetFixture(id)

	body.ResetMassData(w.bodyFixtures(body))
	return nil
}

// Fixture returns the fixture with the given id, or nil.
func (w *World) Fixture(id actor.FixtureID) *actor.Fixture {
	fixture, _ := w.fixtures.get(id)
	return fixture
}

// FixtureCount returns the number of fixtures.
func (w *World) FixtureCount() int {
	return w.fixtures.len()
}

// SetFilter changes the collision filter of a fixture. Existing contacts are checked again at
// the next step and new pairs are looked up.
func (w *World) SetFilter(id actor.FixtureID, filter actor.Filter) error {
	if w.locked {
		return ErrLocked
	}
	fixture, ok := w.fixtures.get(id)
	if !ok {
		return fmt.Errorf("%w: fixture %d", ErrNotFound, id)
	}

	fixture.Filter = filter
	for _, edge := range w.bodies.at(fixture.Body).ContactEdges {
		c := w.contacts.at(ContactID(edge.Contact))
		if c.FixtureA == id || c.FixtureB == id {
			c.FlagForFiltering()
		}
	}
	w.broadPhase.TouchProxy(fixture.ProxyID)
	w.newPairs = true
	return nil
}

// ============================================================================
// Joints
// ============================================================================

// CreateJoint adds a joint between two existing bodies and wakes them.
func (w *World) CreateJoint(joint constraint.Joint) (JointID, error) {
	if w.locked {
		return -1, ErrLocked
	}
	idA, idB := joint.Bodies()
	bodyA, okA := w.bodies.get(idA)
	bodyB, okB := w.bodies.get(idB)
	if !okA || !okB {
		return -1, fmt.Errorf("%w: joint bodies %d and %d", ErrNotFound, idA, idB)
	}

	id := w.joints.insert(joint)
	bodyA.AddJointEdge(actor.JointEdge{Joint: int(id), Other: idB})
	bodyB.AddJointEdge(actor.JointEdge{Joint: int(id), Other: idA})

	// If the joint prevents collisions, then flag any contacts for filtering.
	if !joint.CollideConnected() {
		w.flagContactsBetween(bodyA, idB)
	}

	w.wake(bodyA)
	w.wake(bodyB)
	return id, nil
}

// DestroyJoint removes a joint and wakes its bodies.
func (w *World) DestroyJoint(id JointID) error {
	if w.locked {
		return ErrLocked
	}
	if _, ok := w.joints.get(id); !ok {
		return fmt.Errorf("%w: joint %d", ErrNotFound, id)
	}
	w.destroyJoint(id)
	return nil
}

func (w *World) destroyJoint(id JointID) {
	joint := w.joints.at(id)
	idA, idB := joint.Bodies()
	bodyA := w.bodies.at(idA)
	bodyB := w.bodies.at(idB)

	bodyA.RemoveJointEdge(int(id))
	bodyB.RemoveJointEdge(int(id))
	w.joints.remove(id)

	w.wake(bodyA)
	w.wake(bodyB)

	// The bodies may collide again: report their pairs at the next step.
	if !joint.CollideConnected() {
		for _, fixtureID := range bodyB.Fixtures {
			w.broadPhase.TouchProxy(w.fixtures.at(fixtureID).ProxyID)
		}
		w.newPairs = true
	}
}

// Joint returns the joint with the given id, or nil.
func (w *World) Joint(id JointID) constraint.Joint {
	joint, _ := w.joints.get(id)
	return joint
}

// JointCount returns the number of joints.
func (w *World) JointCount() int {
	return w.joints.len()
}

func (w *World) flagContactsBetween(body *actor.RigidBody, other actor.BodyID) {
	for _, edge := range body.ContactEdges {
		if edge.Other == other {
			w.contacts.at(ContactID(edge.Contact)).FlagForFiltering()
		}
	}
}

// ============================================================================
// Contacts
// ============================================================================

// Contact returns the contact with the given id, or nil.
func (w *World) Contact(id ContactID) *Contact {
	c, _ := w.contacts.get(id)
	return c
}

// ContactCount returns the number of contacts, touching or not.
func (w *World) ContactCount() int {
	return w.contacts.len()
}

// Contacts calls fn on every contact in id order until fn returns false.
func (w *World) Contacts(fn func(c *Contact) bool) {
	w.contacts.each(func(_ ContactID, c *Contact) bool {
		return fn(c)
	})
}

// WorldManifold evaluates the manifold of a contact at the current body transforms.
func (w *World) WorldManifold(c *Contact) manifold.WorldManifold {
	fA := w.fixtures.at(c.FixtureA)
	fB := w.fixtures.at(c.FixtureB)
	return manifold.GetWorldManifold(&c.Manifold,
		w.bodies.at(c.BodyA).Transform, fA.Shape.Proxy().Radius,
		w.bodies.at(c.BodyB).Transform, fB.Shape.Proxy().Radius)
}

// ============================================================================
// Broad phase
// ============================================================================

// ProxyCount returns the number of proxies in the broad phase.
func (w *World) ProxyCount() int {
	return w.broadPhase.Tree().ProxyCount()
}

// TreeHeight returns the height of the broad phase tree.
func (w *World) TreeHeight() int {
	return w.broadPhase.Tree().Height()
}

// TreeBalance returns the largest height difference between two siblings of the tree.
func (w *World) TreeBalance() int {
	return w.broadPhase.Tree().MaxBalance()
}

// TreeQuality returns the sum of the node perimeters over the root perimeter.
func (w *World) TreeQuality() geom.Real {
	return w.broadPhase.Tree().AreaRatio()
}

// RebuildTree rebuilds the broad phase tree bottom up, for scenes that stopped moving.
func (w *World) RebuildTree() error {
	if w.locked {
		return ErrLocked
	}
	w.broadPhase.Tree().RebuildBottomUp()
	return nil
}

// ShiftOrigin moves the world origin to newOrigin, for large worlds.
func (w *World) ShiftOrigin(newOrigin mgl64.Vec2) error {
	if w.locked {
		return ErrLocked
	}
	w.bodies.each(func(_ actor.BodyID, body *actor.RigidBody) bool {
		body.Transform.Position = body.Transform.Position.Sub(newOrigin)
		body.Sweep.C0 = body.Sweep.C0.Sub(newOrigin)
		body.Sweep.C = body.Sweep.C.Sub(newOrigin)
		return true
	})
	w.broadPhase.Tree().ShiftOrigin(newOrigin)
	return nil
}
