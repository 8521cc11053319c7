package feather2d

import (
	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/constraint"
	"github.com/akmonengine/feather2d/geom"
	"github.com/akmonengine/feather2d/gjk"
	"github.com/akmonengine/feather2d/manifold"
)

// ContactID identifies a contact in its world.
type ContactID int

type contactFlags uint8

const (
	contactTouching contactFlags = 1 << iota
	contactEnabled
	// the filters must be checked again before the next update
	contactFilter
	// the cached time of impact is valid
	contactToi
	contactIsland
)

// Contact is a potential touch between two fixtures whose fat boxes overlap.
// A contact is touching when its manifold has points, or for sensors when the shapes overlap.
type Contact struct {
	ID       ContactID
	FixtureA actor.FixtureID
	FixtureB actor.FixtureID
	BodyA    actor.BodyID
	BodyB    actor.BodyID

	Manifold manifold.Manifold

	// Mixed from the fixtures at creation, PreSolve may override them.
	Friction    geom.Real
	Restitution geom.Real

	flags    contactFlags
	sensor   bool
	toiCount int
	toi      geom.Real

	oldManifold manifold.Manifold
}

func newContact(fA, fB *actor.Fixture) *Contact {
	return &Contact{
		FixtureA:    fA.ID,
		FixtureB:    fB.ID,
		BodyA:       fA.Body,
		BodyB:       fB.Body,
		Friction:    constraint.MixFriction(fA.Friction, fB.Friction),
		Restitution: constraint.MixRestitution(fA.Restitution, fB.Restitution),
		flags:       contactEnabled,
		sensor:      fA.IsSensor || fB.IsSensor,
		toi:         1,
	}
}

func (c *Contact) IsTouching() bool {
	return c.flags&contactTouching != 0
}

func (c *Contact) IsEnabled() bool {
	return c.flags&contactEnabled != 0
}

// SetEnabled disables the contact for the current step only. It is meant to be called from
// PreSolve; every update enables the contact again.
func (c *Contact) SetEnabled(flag bool) {
	if flag {
		c.flags |= contactEnabled
	} else {
		c.flags &^= contactEnabled
	}
}

// IsSensor reports whether one of the fixtures is a sensor. Sensor contacts never reach the solver.
func (c *Contact) IsSensor() bool {
	return c.sensor
}

// ToiCount is the number of time of impact sub-steps the contact took in the current step.
func (c *Contact) ToiCount() int {
	return c.toiCount
}

// FlagForFiltering makes the world check the filters of the contact before its next update.
func (c *Contact) FlagForFiltering() {
	c.flags |= contactFilter
}

// Other returns the fixture and body on the other side of body.
func (c *Contact) Other(body actor.BodyID) (actor.FixtureID, actor.BodyID) {
	if c.BodyA == body {
		return c.FixtureB, c.BodyB
	}
	return c.FixtureA, c.BodyA
}

func (c *Contact) hasValidToi() bool {
	return c.flags&contactToi != 0
}

func (c *Contact) setToi(toi geom.Real) {
	c.toi = toi
	c.flags |= contactToi
}

func (c *Contact) unsetToi() {
	c.flags &^= contactToi
}

// update recomputes the touching state at the given transforms. It only writes the contact,
// so contacts can be updated concurrently.
func (c *Contact) update(fA, fB *actor.Fixture, xfA, xfB geom.Transform, conf manifold.Conf) {
	c.oldManifold = c.Manifold
	c.flags |= contactEnabled

	var touching bool
	if c.sensor {
		touching = gjk.TestOverlap(fA.Shape.Proxy(), xfA, fB.Shape.Proxy(), xfB)
		// Sensors don't generate manifolds.
		c.Manifold = manifold.Manifold{}
	} else {
		c.Manifold = manifold.Collide(fA.Shape.Proxy(), xfA, fB.Shape.Proxy(), xfB, conf)
		c.Manifold.CopyImpulses(&c.oldManifold)
		touching = c.Manifold.PointCount > 0
	}

	if touching {
		c.flags |= contactTouching
	} else {
		c.flags &^= contactTouching
	}
}

// ContactImpulse holds the impulses the solver applied at each manifold point.
type ContactImpulse struct {
	NormalImpulses  [manifold.MaxPoints]geom.Real
	TangentImpulses [manifold.MaxPoints]geom.Real
	Count           int
}
