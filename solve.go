package feather2d

import (
	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/constraint"
	"github.com/akmonengine/feather2d/geom"
)

// solveRegular integrates velocities, solves the constraints and integrates positions of every
// awake island, then moves the proxies of the bodies that were solved.
func (w *World) solveRegular(step constraint.StepData) RegStepStats {
	stats := RegStepStats{MinSeparation: geom.MaxReal}

	islands := w.buildIslands()
	stats.IslandsFound = len(islands)

	// Islands share no dynamic body: they are solved concurrently and merged in order.
	task(w.conf.Workers, islands, func(isl *island) {
		w.solveIsland(isl, step)
	})

	for _, isl := range islands {
		res := isl.result
		stats.MinSeparation = min(stats.MinSeparation, res.minSeparation)
		stats.MaxIncImpulse = max(stats.MaxIncImpulse, res.maxIncImpulse)
		if res.solved {
			stats.IslandsSolved++
		}
		stats.SumPositionIters += res.positionIterations
		stats.SumVelocityIters += res.velocityIterations
		stats.BodiesSlept += res.bodiesSlept

		w.postSolve(isl)
	}

	w.bodies.each(func(id actor.BodyID, body *actor.RigidBody) bool {
		// A non-static body that was in an island may have moved.
		if w.bodyInIsland[id] && body.IsSpeedable() {
			stats.ProxiesMoved += w.synchronizeFixtures(body)
		}
		return true
	})

	// Look for new contacts.
	stats.ContactsAdded = w.findNewContacts()
	return stats
}

// solveIsland runs one regular step on an island. It only writes the island's movable bodies,
// contacts and joints.
func (w *World) solveIsland(isl *island, step constraint.StepData) {
	conf := w.conf
	h := step.Dt

	indexOf := make(map[actor.BodyID]int, len(isl.bodies))
	bodies, contacts := w.constraints(isl, indexOf)

	// Integrate velocities.
	for i, id := range isl.bodies {
		body := w.bodies.at(id)
		if !body.IsSpeedable() {
			continue
		}
		// The sweep of the step starts where the last one ended.
		body.Sweep.C0 = body.Sweep.C
		body.Sweep.A0 = body.Sweep.A

		if !body.IsAccelerable() {
			continue
		}
		force, torque := body.Force()
		v := bodies[i].Velocity.V
		acceleration := conf.Gravity.Mul(body.GravityScale).Add(force.Mul(body.InvMass()))
		v = v.Add(acceleration.Mul(h))
		omega := bodies[i].Velocity.W + h*body.InvInertia()*torque

		// Apply damping: v2 = v1 / (1 + c * dt)
		v = v.Mul(1 / (1 + h*body.LinearDamping))
		omega *= 1 / (1 + h*body.AngularDamping)

		bodies[i].Velocity = constraint.Velocity{V: v, W: omega}
	}

	solver := constraint.NewContactSolver(step, bodies, contacts)
	solver.InitializeVelocityConstraints()
	if step.DoWarmStart {
		solver.WarmStart()
	}

	joints := make([]constraint.Joint, len(isl.joints))
	for i, id := range isl.joints {
		joints[i] = w.joints.at(id)
		idA, idB := joints[i].Bodies()
		joints[i].InitVelocityConstraints(bodies, step, indexOf[idA], indexOf[idB])
	}

	res := islandResult{minSeparation: geom.MaxReal, velocityIterations: conf.RegVelocityIterations}
	for range conf.RegVelocityIterations {
		for _, joint := range joints {
			res.maxIncImpulse = max(res.maxIncImpulse, joint.SolveVelocityConstraints(bodies, step))
		}
		res.maxIncImpulse = max(res.maxIncImpulse, solver.SolveVelocityConstraints())
	}
	solver.StoreImpulses()

	integratePositions(bodies, h, conf.MaxTranslation, conf.MaxRotation)

	positionConf := w.positionConf(conf.RegResolutionRate)
	res.positionIterations = conf.RegPositionIterations
	for i := range conf.RegPositionIterations {
		minSeparation := solver.SolvePositionConstraints(positionConf)
		res.minSeparation = min(res.minSeparation, minSeparation)
		contactsOkay := minSeparation >= conf.RegMinSeparation

		jointsOkay := true
		for _, joint := range joints {
			if !joint.SolvePositionConstraints(bodies, positionConf) {
				jointsOkay = false
			}
		}

		if contactsOkay && jointsOkay {
			// Reached tolerance, early out...
			res.positionIterations = i + 1
			res.solved = true
			break
		}
	}

	w.commit(isl, bodies)
	w.recordImpulses(isl, solver)

	if conf.AllowSleep {
		res.bodiesSlept = w.trySleep(isl, h, res.solved)
	}
	isl.result = res
}

// trySleep puts the island to sleep once all its bodies stayed still long enough.
// this method is too simple to use a task, islands are already solved concurrently
func (w *World) trySleep(isl *island, h geom.Real, solved bool) int {
	minSleepTime := geom.MaxReal
	for _, id := range isl.bodies {
		body := w.bodies.at(id)
		if !body.IsSpeedable() {
			continue
		}
		minSleepTime = min(minSleepTime, body.TrySleep(h, w.conf.LinearSleepTolerance, w.conf.AngularSleepTolerance))
	}

	if minSleepTime < w.conf.MinStillTimeToSleep || !solved {
		return 0
	}

	slept := 0
	for _, id := range isl.bodies {
		body := w.bodies.at(id)
		if body.IsSpeedable() && body.IsAwake() {
			body.SetAwake(false)
			slept++
		}
	}
	return slept
}

func (w *World) positionConf(resolutionRate geom.Real) constraint.PositionConf {
	return constraint.PositionConf{
		LinearSlop:           w.conf.LinearSlop,
		AngularSlop:          w.conf.AngularSlop,
		ResolutionRate:       resolutionRate,
		MaxLinearCorrection:  w.conf.MaxLinearCorrection,
		MaxAngularCorrection: w.conf.MaxAngularCorrection,
	}
}
