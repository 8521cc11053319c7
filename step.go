package feather2d

import (
	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/constraint"
)

// Step advances the world by the configured time step. Calling it from a contact listener is
// a no-op.
func (w *World) Step() StepStats {
	var stats StepStats
	if w.locked {
		w.logger().Error("step called while the world is locked")
		return stats
	}

	// Phase 1: new fixtures or moved proxies, find pairs from the broad phase
	if w.newPairs {
		stats.Pre.Added = w.findNewContacts()
	}

	w.locked = true

	// Phase 2: narrow phase, update the manifolds of the contacts with an awake body
	pre := w.collide()
	stats.Pre.Destroyed = pre.Destroyed
	stats.Pre.Updated = pre.Updated
	stats.Pre.Ignored = pre.Ignored

	if w.conf.Dt > 0 {
		step := constraint.StepData{
			Dt:                w.conf.Dt,
			InvDt:             1 / w.conf.Dt,
			DtRatio:           w.conf.Dt * w.invDt0,
			DoWarmStart:       w.conf.DoWarmStart,
			WarmStartFactor:   w.conf.WarmStartFactor,
			VelocityThreshold: w.conf.VelocityThreshold,
		}

		// Phase 3: integrate and solve the islands
		stats.Reg = w.solveRegular(step)

		// Phase 4: continuous collision, sub-step the contacts at their time of impact
		if w.conf.DoToi {
			stats.Toi = w.solveTOI(step)
		}
		w.invDt0 = step.InvDt
	}

	w.bodies.each(func(_ actor.BodyID, body *actor.RigidBody) bool {
		body.ClearForces()
		return true
	})

	w.locked = false

	w.recordEvents()
	w.Events.flush()

	w.logger().Debug("step", "stats", stats)
	return stats
}

// recordEvents hands the touching contacts and the sleep states of the step to the events
// manager, in id order.
func (w *World) recordEvents() {
	w.contacts.each(func(_ ContactID, c *Contact) bool {
		if !c.IsTouching() {
			return true
		}
		sleeping := !w.bodies.at(c.BodyA).IsAwake() && !w.bodies.at(c.BodyB).IsAwake()
		w.Events.recordContact(c, sleeping)
		return true
	})
	w.Events.processContactEvents()

	w.bodies.each(func(_ actor.BodyID, body *actor.RigidBody) bool {
		if body.BodyType != actor.BodyTypeStatic {
			w.Events.processSleepEvents(body)
		}
		return true
	})
}
