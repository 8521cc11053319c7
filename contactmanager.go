package feather2d

import (
	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/manifold"
)

// findNewContacts creates a contact for every new pair of overlapping fat boxes the broad
// phase reports, and returns how many were created.
func (w *World) findNewContacts() int {
	added := 0
	w.broadPhase.UpdatePairs(func(a, b actor.FixtureID) {
		if w.addPair(a, b) {
			added++
		}
	})
	w.newPairs = false
	return added
}

func (w *World) addPair(idA, idB actor.FixtureID) bool {
	fixtureA := w.fixtures.at(idA)
	fixtureB := w.fixtures.at(idB)

	// Fixtures on the same body never collide.
	if fixtureA.Body == fixtureB.Body {
		return false
	}

	bodyA := w.bodies.at(fixtureA.Body)
	bodyB := w.bodies.at(fixtureB.Body)

	// Does a contact already exist?
	for _, edge := range bodyB.ContactEdges {
		if edge.Other != fixtureA.Body {
			continue
		}
		c := w.contacts.at(ContactID(edge.Contact))
		if (c.FixtureA == idA && c.FixtureB == idB) || (c.FixtureA == idB && c.FixtureB == idA) {
			return false
		}
	}

	if !w.shouldCollide(bodyA, bodyB) || !actor.ShouldCollide(fixtureA.Filter, fixtureB.Filter) {
		return false
	}

	c := newContact(fixtureA, fixtureB)
	c.ID = w.contacts.insert(c)
	bodyA.AddContactEdge(actor.ContactEdge{Contact: int(c.ID), Other: bodyB.ID})
	bodyB.AddContactEdge(actor.ContactEdge{Contact: int(c.ID), Other: bodyA.ID})
	return true
}

// shouldCollide applies the body rules: at least one dynamic body, and no joint between them
// that disables their collision.
func (w *World) shouldCollide(bodyA, bodyB *actor.RigidBody) bool {
	if !bodyA.ShouldCollide(bodyB) {
		return false
	}
	for _, edge := range bodyB.JointEdges {
		if edge.Other == bodyA.ID && !w.joints.at(JointID(edge.Joint)).CollideConnected() {
			return false
		}
	}
	return true
}

// destroyContact unlinks a contact from its bodies. Bodies it was holding are woken.
func (w *World) destroyContact(c *Contact) {
	bodyA := w.bodies.at(c.BodyA)
	bodyB := w.bodies.at(c.BodyB)

	// Contact may have been keeping accelerable bodies from moving.
	if c.Manifold.PointCount > 0 && !c.IsSensor() {
		w.wake(bodyA)
		w.wake(bodyB)
	}

	bodyA.RemoveContactEdge(int(c.ID))
	bodyB.RemoveContactEdge(int(c.ID))
	w.contacts.remove(c.ID)
}

// collide destroys the contacts the filters or the broad phase no longer allow, then updates
// the manifolds of the contacts with an awake body. Updates run on the configured workers.
func (w *World) collide() PreStepStats {
	var stats PreStepStats

	w.updates = w.updates[:0]
	w.contacts.each(func(_ ContactID, c *Contact) bool {
		fixtureA := w.fixtures.at(c.FixtureA)
		fixtureB := w.fixtures.at(c.FixtureB)
		bodyA := w.bodies.at(c.BodyA)
		bodyB := w.bodies.at(c.BodyB)

		if c.flags&contactFilter != 0 {
			if !w.shouldCollide(bodyA, bodyB) || !actor.ShouldCollide(fixtureA.Filter, fixtureB.Filter) {
				w.destroyContact(c)
				stats.Destroyed++
				return true
			}
			c.flags &^= contactFilter
		}

		// At least one body must be awake and able to move.
		activeA := bodyA.IsAwake() && bodyA.IsSpeedable()
		activeB := bodyB.IsAwake() && bodyB.IsSpeedable()
		if !activeA && !activeB {
			stats.Ignored++
			return true
		}

		if !w.broadPhase.TestOverlap(fixtureA.ProxyID, fixtureB.ProxyID) {
			w.destroyContact(c)
			stats.Destroyed++
			return true
		}

		w.updates = append(w.updates, c)
		return true
	})

	conf := w.manifoldConf()
	task(w.conf.Workers, w.updates, func(c *Contact) {
		c.update(w.fixtures.at(c.FixtureA), w.fixtures.at(c.FixtureB),
			w.bodies.at(c.BodyA).Transform, w.bodies.at(c.BodyB).Transform, conf)
	})
	for _, c := range w.updates {
		w.preSolve(c)
	}
	stats.Updated = len(w.updates)

	return stats
}

// updateContact updates a single contact, for the time of impact phase.
func (w *World) updateContact(c *Contact) {
	c.update(w.fixtures.at(c.FixtureA), w.fixtures.at(c.FixtureB),
		w.bodies.at(c.BodyA).Transform, w.bodies.at(c.BodyB).Transform, w.manifoldConf())
	w.preSolve(c)
}

func (w *World) preSolve(c *Contact) {
	if w.listener != nil && !c.IsSensor() && c.IsTouching() {
		w.listener.PreSolve(c, &c.oldManifold)
	}
}

func (w *World) manifoldConf() manifold.Conf {
	return manifold.Conf{LinearSlop: w.conf.LinearSlop, Margin: w.conf.ContactMargin}
}

// synchronizeFixtures moves the proxies of body over its motion since the start of its sweep,
// and returns how many of them left their fat box.
func (w *World) synchronizeFixtures(body *actor.RigidBody) int {
	xf1 := body.Sweep.Transform0()
	xf2 := body.Transform
	displacement := xf2.Position.Sub(xf1.Position)

	moved := 0
	for _, id := range body.Fixtures {
		fixture := w.fixtures.at(id)
		ok, err := w.broadPhase.MoveProxy(fixture.ProxyID, fixture.ComputeSweptAABB(xf1, xf2), displacement)
		if err != nil {
			w.logger().Error("move proxy", "fixture", id, "error", err)
			continue
		}
		if ok {
			moved++
		}
	}
	if moved > 0 {
		w.newPairs = true
	}
	return moved
}
