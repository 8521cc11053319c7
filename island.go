package feather2d

import (
	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/constraint"
	"github.com/akmonengine/feather2d/geom"
)

// island is a set of bodies linked by touching contacts and joints, solved on its own.
// Static bodies may appear in several islands; every other body belongs to at most one.
type island struct {
	bodies   []actor.BodyID
	contacts []ContactID
	joints   []JointID

	// solved impulses of contacts, kept for the contact listener
	impulses []ContactImpulse
	result   islandResult
}

type islandResult struct {
	minSeparation      geom.Real
	maxIncImpulse      geom.Real
	solved             bool
	positionIterations int
	velocityIterations int
	bodiesSlept        int
}

// resetIslandFlags clears the membership of every body, contact and joint.
func (w *World) resetIslandFlags() {
	w.bodyInIsland = resetFlags(w.bodyInIsland, w.bodies.span())
	w.jointInIsland = resetFlags(w.jointInIsland, w.joints.span())
	w.contacts.each(func(_ ContactID, c *Contact) bool {
		c.flags &^= contactIsland
		return true
	})
}

func resetFlags(flags []bool, n int) []bool {
	if cap(flags) < n {
		return make([]bool, n)
	}
	flags = flags[:n]
	clear(flags)
	return flags
}

// buildIslands seeds an island from every awake body able to move, in id order.
func (w *World) buildIslands() []*island {
	w.resetIslandFlags()

	var islands []*island
	w.bodies.each(func(id actor.BodyID, seed *actor.RigidBody) bool {
		if w.bodyInIsland[id] || !seed.IsSpeedable() || !seed.IsAwake() {
			return true
		}
		islands = append(islands, w.buildIsland(seed))
		return true
	})
	return islands
}

// buildIsland runs a depth first search on the constraint graph from seed.
func (w *World) buildIsland(seed *actor.RigidBody) *island {
	isl := &island{}

	stack := append(w.stack[:0], seed.ID)
	w.bodyInIsland[seed.ID] = true
	for len(stack) > 0 {
		// Grab the next body off the stack and add it to the island.
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		body := w.bodies.at(id)
		isl.bodies = append(isl.bodies, id)

		// Make sure the body is awake.
		w.wake(body)

		// To keep islands smaller, don't propagate islands across static bodies.
		if !body.IsSpeedable() {
			continue
		}

		for _, edge := range body.ContactEdges {
			c := w.contacts.at(ContactID(edge.Contact))
			if c.flags&contactIsland != 0 || !c.IsEnabled() || !c.IsTouching() || c.IsSensor() {
				continue
			}
			isl.contacts = append(isl.contacts, c.ID)
			c.flags |= contactIsland

			if !w.bodyInIsland[edge.Other] {
				stack = append(stack, edge.Other)
				w.bodyInIsland[edge.Other] = true
			}
		}

		for _, edge := range body.JointEdges {
			if w.jointInIsland[edge.Joint] {
				continue
			}
			isl.joints = append(isl.joints, JointID(edge.Joint))
			w.jointInIsland[edge.Joint] = true

			if !w.bodyInIsland[edge.Other] {
				stack = append(stack, edge.Other)
				w.bodyInIsland[edge.Other] = true
			}
		}
	}
	w.stack = stack

	// Allow static bodies to participate in other islands.
	for _, id := range isl.bodies {
		if !w.bodies.at(id).IsSpeedable() {
			w.bodyInIsland[id] = false
		}
	}
	return isl
}

// constraints copies the island bodies for the solver and describes its contacts. indexOf maps
// a body id to its index in the returned bodies.
func (w *World) constraints(isl *island, indexOf map[actor.BodyID]int) ([]constraint.BodyConstraint, []constraint.ContactDef) {
	bodies := make([]constraint.BodyConstraint, len(isl.bodies))
	for i, id := range isl.bodies {
		body := w.bodies.at(id)
		indexOf[id] = i
		bodies[i] = constraint.BodyConstraint{
			InvMass:     body.InvMass(),
			InvI:        body.InvInertia(),
			LocalCenter: body.LocalCenter(),
			Position:    constraint.Position{C: body.Sweep.C, A: body.Sweep.A},
			Velocity:    constraint.Velocity{V: body.LinearVelocity, W: body.AngularVelocity},
		}
	}

	contacts := make([]constraint.ContactDef, len(isl.contacts))
	for i, id := range isl.contacts {
		c := w.contacts.at(id)
		contacts[i] = constraint.ContactDef{
			Manifold:    &c.Manifold,
			IndexA:      indexOf[c.BodyA],
			IndexB:      indexOf[c.BodyB],
			RadiusA:     w.fixtures.at(c.FixtureA).Shape.Proxy().Radius,
			RadiusB:     w.fixtures.at(c.FixtureB).Shape.Proxy().Radius,
			Friction:    c.Friction,
			Restitution: c.Restitution,
		}
	}
	return bodies, contacts
}

// commit writes the solved state back to the bodies able to move.
func (w *World) commit(isl *island, bodies []constraint.BodyConstraint) {
	for i, id := range isl.bodies {
		body := w.bodies.at(id)
		if !body.IsSpeedable() {
			continue
		}
		body.Sweep.C = bodies[i].Position.C
		body.Sweep.A = bodies[i].Position.A
		body.LinearVelocity = bodies[i].Velocity.V
		body.AngularVelocity = bodies[i].Velocity.W
		body.SynchronizeTransform()
	}
}

// recordImpulses keeps the impulses of the solved contacts when a listener wants them.
func (w *World) recordImpulses(isl *island, solver *constraint.ContactSolver) {
	if w.listener == nil {
		return
	}
	constraints := solver.Constraints()
	isl.impulses = make([]ContactImpulse, len(constraints))
	for i := range constraints {
		isl.impulses[i].NormalImpulses, isl.impulses[i].Count = constraints[i].NormalImpulses()
		isl.impulses[i].TangentImpulses, _ = constraints[i].TangentImpulses()
	}
}

// postSolve reports the impulses of the island contacts to the listener.
func (w *World) postSolve(isl *island) {
	if w.listener == nil || len(isl.impulses) != len(isl.contacts) {
		return
	}
	for i, id := range isl.contacts {
		w.listener.PostSolve(w.contacts.at(id), isl.impulses[i])
	}
}

// integratePositions moves the bodies along their velocities, clamping the motion of a step
// to maxTranslation and maxRotation.
func integratePositions(bodies []constraint.BodyConstraint, h, maxTranslation, maxRotation geom.Real) {
	for i := range bodies {
		b := &bodies[i]

		translation := b.Velocity.V.Mul(h)
		if translation.LenSqr() > maxTranslation*maxTranslation {
			ratio := maxTranslation / translation.Len()
			b.Velocity.V = b.Velocity.V.Mul(ratio)
			translation = b.Velocity.V.Mul(h)
		}

		rotation := h * b.Velocity.W
		if geom.Abs(rotation) > maxRotation {
			ratio := maxRotation / geom.Abs(rotation)
			b.Velocity.W *= ratio
			rotation = h * b.Velocity.W
		}

		b.Position.C = b.Position.C.Add(translation)
		b.Position.A += rotation
	}
}
