package feather2d

import (
	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/constraint"
	"github.com/akmonengine/feather2d/geom"
	"github.com/akmonengine/feather2d/toi"
)

// solveTOI handles the time of impact events of the step, soonest first: the two bodies of
// the event are moved back to the time of impact and solved together with the contacts they
// touch at that time, over the remaining part of the step.
func (w *World) solveTOI(step constraint.StepData) ToiStepStats {
	stats := ToiStepStats{MinSeparation: geom.MaxReal}

	w.bodyInIsland = resetFlags(w.bodyInIsland, w.bodies.span())
	w.bodies.each(func(_ actor.BodyID, body *actor.RigidBody) bool {
		body.Sweep.ResetAlpha0()
		return true
	})
	w.contacts.each(func(_ ContactID, c *Contact) bool {
		// Invalidate TOI
		c.flags &^= contactIsland | contactToi
		c.toiCount = 0
		return true
	})

	// Find TOI events and solve them.
	for {
		w.updateContactTOIs(&stats)

		next, alpha := w.soonestContact()
		if next == nil || alpha >= 1 {
			// No more TOI events to handle within the current time step. Done!
			break
		}
		if stats.ContactsFound >= w.conf.MaxToiEvents {
			w.logger().Debug("time of impact event cap reached", "events", stats.ContactsFound)
			break
		}
		stats.ContactsFound++

		res, ok := w.solveContactTOI(next, alpha, step, &stats)
		if ok {
			stats.IslandsFound++
			stats.MinSeparation = min(stats.MinSeparation, res.minSeparation)
			stats.MaxIncImpulse = max(stats.MaxIncImpulse, res.maxIncImpulse)
			if res.solved {
				stats.IslandsSolved++
			}
			stats.SumPositionIters += res.positionIterations
			stats.SumVelocityIters += res.velocityIterations
		}

		// Commit fixture proxy movements to the broad-phase so that new contacts are created.
		stats.ContactsAdded += w.findNewContacts()
	}
	return stats
}

// updateContactTOIs computes the time of impact of every contact that lacks a valid one and
// involves an impenetrable body.
func (w *World) updateContactTOIs(stats *ToiStepStats) {
	conf := toi.Conf{
		TMax:         1,
		TargetDepth:  w.conf.TargetDepth,
		Tolerance:    w.conf.Tolerance,
		LinearSlop:   w.conf.LinearSlop,
		MaxRootIters: w.conf.MaxToiRootIters,
		MaxToiIters:  w.conf.MaxToiIters,
		MaxDistIters: w.conf.MaxDistanceIters,
	}

	w.contacts.each(func(_ ContactID, c *Contact) bool {
		if c.hasValidToi() || !c.IsEnabled() || c.IsSensor() {
			return true
		}

		bodyA := w.bodies.at(c.BodyA)
		bodyB := w.bodies.at(c.BodyB)
		activeA := bodyA.IsAwake() && bodyA.IsSpeedable()
		activeB := bodyB.IsAwake() && bodyB.IsSpeedable()
		if !activeA && !activeB {
			return true
		}
		if !bodyA.IsImpenetrable() && !bodyB.IsImpenetrable() {
			return true
		}

		if c.toiCount >= w.conf.MaxSubSteps {
			stats.ContactsAtMaxSubSteps++
			return true
		}

		c.setToi(w.computeTOI(c, bodyA, bodyB, conf, stats))
		stats.ContactsUpdatedToi++
		return true
	})
}

// computeTOI returns the fraction of the step at which the contact starts touching, or 1.
func (w *World) computeTOI(c *Contact, bodyA, bodyB *actor.RigidBody, conf toi.Conf, stats *ToiStepStats) geom.Real {
	// Put the sweeps onto the same time interval.
	alpha0 := bodyA.Sweep.Alpha0
	if bodyA.Sweep.Alpha0 < bodyB.Sweep.Alpha0 {
		alpha0 = bodyB.Sweep.Alpha0
		bodyA.Sweep.Advance(alpha0)
	} else if bodyB.Sweep.Alpha0 < bodyA.Sweep.Alpha0 {
		bodyB.Sweep.Advance(alpha0)
	}

	output := toi.TimeOfImpact(
		w.fixtures.at(c.FixtureA).Shape.Proxy(), bodyA.Sweep,
		w.fixtures.at(c.FixtureB).Shape.Proxy(), bodyB.Sweep,
		conf)

	stats.MaxDistIters = max(stats.MaxDistIters, output.Stats.MaxDistIters)
	stats.MaxToiIters = max(stats.MaxToiIters, output.Stats.ToiIters)
	stats.MaxRootIters = max(stats.MaxRootIters, output.Stats.MaxRootIters)
	stats.SumRootIters += output.Stats.SumRootIters

	switch output.State {
	case toi.Failed:
		// The time is still safe: handle it as an impact rather than risk tunneling.
		w.logger().Warn("time of impact did not converge",
			"contact", c.ID, "time", output.Time, "toiIters", output.Stats.ToiIters)
		fallthrough
	case toi.Touching:
		return min(alpha0+(1-alpha0)*output.Time, 1)
	}
	return 1
}

// soonestContact returns the contact with the smallest valid time of impact. On ties, a
// contact with a body that ignores forces wins, then the lowest id.
func (w *World) soonestContact() (*Contact, geom.Real) {
	var soonest *Contact
	minToi := geom.MaxReal
	w.contacts.each(func(_ ContactID, c *Contact) bool {
		if !c.hasValidToi() {
			return true
		}
		switch {
		case c.toi < minToi:
			soonest = c
			minToi = c.toi
		case c.toi == minToi && w.isAccelerable(soonest) && !w.isAccelerable(c):
			soonest = c
		}
		return true
	})
	return soonest, minToi
}

// isAccelerable reports whether both bodies of c respond to forces.
func (w *World) isAccelerable(c *Contact) bool {
	return w.bodies.at(c.BodyA).IsAccelerable() && w.bodies.at(c.BodyB).IsAccelerable()
}

// solveContactTOI moves the bodies of c to alpha and solves the remaining part of the step
// for them and the bodies they touch at that time. It returns false when the contact did not
// touch after all.
func (w *World) solveContactTOI(c *Contact, alpha geom.Real, step constraint.StepData, stats *ToiStepStats) (islandResult, bool) {
	bodyA := w.bodies.at(c.BodyA)
	bodyB := w.bodies.at(c.BodyB)

	backupA := bodyA.Sweep
	backupB := bodyB.Sweep

	// Advance the bodies to the TOI.
	bodyA.Advance(alpha)
	bodyB.Advance(alpha)

	// The TOI contact likely has some new contact points.
	w.updateContact(c)
	c.unsetToi()
	c.toiCount++
	if c.toiCount == w.conf.MaxSubSteps {
		w.logger().Debug("contact reached the sub-step cap", "contact", c.ID, "subSteps", c.toiCount)
	}

	// Is contact disabled or separated?
	if !c.IsEnabled() || !c.IsTouching() {
		// Restore the sweeps by undoing the body "advance" calls.
		c.SetEnabled(false)
		bodyA.Sweep = backupA
		bodyA.SynchronizeTransform()
		bodyB.Sweep = backupB
		bodyB.SynchronizeTransform()
		return islandResult{}, false
	}

	w.wake(bodyA)
	w.wake(bodyB)

	// Build the island
	isl := &island{
		bodies:   []actor.BodyID{bodyA.ID, bodyB.ID},
		contacts: []ContactID{c.ID},
	}
	w.bodyInIsland[bodyA.ID] = true
	w.bodyInIsland[bodyB.ID] = true
	c.flags |= contactIsland

	// Add the contacts the two bodies touch at the TOI, with the bodies on their other side.
	if bodyA.IsAccelerable() {
		w.processContactsForTOI(isl, bodyA, alpha)
	}
	if bodyB.IsAccelerable() {
		w.processContactsForTOI(isl, bodyB, alpha)
	}

	// Now solve for remainder of time step.
	subStep := step
	subStep.Dt = (1 - alpha) * step.Dt
	subStep.InvDt = 1 / subStep.Dt
	subStep.DtRatio = 1
	subStep.DoWarmStart = false
	res := w.solveIslandTOI(isl, subStep)

	// Reset island flags and synchronize broad-phase proxies.
	for _, id := range isl.bodies {
		body := w.bodies.at(id)
		w.bodyInIsland[id] = false
		if !body.IsAccelerable() {
			continue
		}
		stats.ProxiesMoved += w.synchronizeFixtures(body)

		// Invalidate all contact TOIs on this displaced body.
		for _, edge := range body.ContactEdges {
			other := w.contacts.at(ContactID(edge.Contact))
			other.flags &^= contactIsland | contactToi
		}
	}

	w.postSolve(isl)
	return res, true
}

// processContactsForTOI adds to isl the contacts of body that touch at alpha, tentatively
// advancing the bodies on their other side.
func (w *World) processContactsForTOI(isl *island, body *actor.RigidBody, alpha geom.Real) {
	for _, edge := range body.ContactEdges {
		c := w.contacts.at(ContactID(edge.Contact))
		other := w.bodies.at(edge.Other)

		if c.flags&contactIsland != 0 || c.IsSensor() || !(other.IsImpenetrable() || body.IsImpenetrable()) {
			continue
		}

		// Tentatively advance the body to the TOI.
		backup := other.Sweep
		if !w.bodyInIsland[other.ID] {
			other.Advance(alpha)
		}

		// Update the contact points
		w.updateContact(c)

		// Revert and skip if contact disabled by user or no contact points anymore.
		if !c.IsEnabled() || !c.IsTouching() {
			other.Sweep = backup
			other.SynchronizeTransform()
			continue
		}

		isl.contacts = append(isl.contacts, c.ID)
		c.flags |= contactIsland

		if !w.bodyInIsland[other.ID] {
			w.bodyInIsland[other.ID] = true
			w.wake(other)
			isl.bodies = append(isl.bodies, other.ID)
		}
	}
}

// solveIslandTOI solves a time of impact island over the sub-step: positions are pushed out of
// penetration first, then velocities are solved without warm starting.
func (w *World) solveIslandTOI(isl *island, subStep constraint.StepData) islandResult {
	conf := w.conf

	indexOf := make(map[actor.BodyID]int, len(isl.bodies))
	bodies, contacts := w.constraints(isl, indexOf)
	solver := constraint.NewContactSolver(subStep, bodies, contacts)

	res := islandResult{
		minSeparation:      geom.MaxReal,
		positionIterations: conf.ToiPositionIterations,
		velocityIterations: conf.ToiVelocityIterations,
	}

	positionConf := w.positionConf(conf.ToiResolutionRate)
	for i := range conf.ToiPositionIterations {
		minSeparation := solver.SolvePositionConstraints(positionConf)
		res.minSeparation = min(res.minSeparation, minSeparation)
		if minSeparation >= conf.ToiMinSeparation {
			// Reached tolerance, early out...
			res.positionIterations = i + 1
			res.solved = true
			break
		}
	}

	// Leap of faith to new safe state.
	for i, id := range isl.bodies {
		body := w.bodies.at(id)
		if body.IsSpeedable() {
			body.Sweep.C0 = bodies[i].Position.C
			body.Sweep.A0 = bodies[i].Position.A
		}
	}

	// No warm starting is needed for TOI events because warm
	// starting impulses were applied in the discrete solver.
	solver.InitializeVelocityConstraints()
	for range conf.ToiVelocityIterations {
		res.maxIncImpulse = max(res.maxIncImpulse, solver.SolveVelocityConstraints())
	}

	// Don't store TOI contact forces for warm starting because they can be quite large.

	integratePositions(bodies, subStep.Dt, conf.MaxTranslation, conf.MaxRotation)
	w.commit(isl, bodies)
	w.recordImpulses(isl, solver)
	return res
}
