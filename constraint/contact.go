package constraint

import (
	"math"

	"github.com/akmonengine/feather2d/geom"
	"github.com/akmonengine/feather2d/manifold"
	"github.com/go-gl/mathgl/mgl64"
)

// maxConditionNumber bounds the 2x2 normal mass matrix. Above it the two points are nearly
// redundant and only the first one is solved.
const maxConditionNumber = 1000

// ContactDef describes one touching contact to the solver.
type ContactDef struct {
	// Manifold receives the accumulated impulses on StoreImpulses.
	Manifold    *manifold.Manifold
	IndexA      int
	IndexB      int
	RadiusA     geom.Real
	RadiusB     geom.Real
	Friction    geom.Real
	Restitution geom.Real
}

type contactPoint struct {
	rA, rB         mgl64.Vec2
	normalImpulse  geom.Real
	tangentImpulse geom.Real
	normalMass     geom.Real
	tangentMass    geom.Real
	velocityBias   geom.Real
}

// ContactConstraint is the velocity constraint of a contact for one solve.
type ContactConstraint struct {
	points      [manifold.MaxPoints]contactPoint
	pointCount  int
	normal      mgl64.Vec2
	normalMass  mgl64.Mat2
	K           mgl64.Mat2
	indexA      int
	indexB      int
	invMassA    geom.Real
	invMassB    geom.Real
	invIA       geom.Real
	invIB       geom.Real
	friction    geom.Real
	restitution geom.Real
	manifold    *manifold.Manifold
}

type positionConstraint struct {
	localPoints  [manifold.MaxPoints]mgl64.Vec2
	localNormal  mgl64.Vec2
	localPoint   mgl64.Vec2
	kind         manifold.Type
	pointCount   int
	indexA       int
	indexB       int
	invMassA     geom.Real
	invMassB     geom.Real
	invIA        geom.Real
	invIB        geom.Real
	localCenterA mgl64.Vec2
	localCenterB mgl64.Vec2
	radiusA      geom.Real
	radiusB      geom.Real
}

// ContactSolver runs the sequential impulse iterations over the contacts of one island.
// It reads and writes the island's BodyConstraint slice in place.
type ContactSolver struct {
	step        StepData
	bodies      []BodyConstraint
	constraints []ContactConstraint
	positions   []positionConstraint
}

// NewContactSolver prepares the constraints of contacts, in order. Accumulated impulses are
// seeded from the manifolds, scaled by the warm start settings of step.
func NewContactSolver(step StepData, bodies []BodyConstraint, contacts []ContactDef) *ContactSolver {
	s := &ContactSolver{
		step:        step,
		bodies:      bodies,
		constraints: make([]ContactConstraint, len(contacts)),
		positions:   make([]positionConstraint, len(contacts)),
	}

	scale := step.warmStartScale()
	for i, def := range contacts {
		m := def.Manifold
		bodyA := &bodies[def.IndexA]
		bodyB := &bodies[def.IndexB]

		vc := &s.constraints[i]
		vc.friction = def.Friction
		vc.restitution = def.Restitution
		vc.indexA = def.IndexA
		vc.indexB = def.IndexB
		vc.invMassA = bodyA.InvMass
		vc.invMassB = bodyB.InvMass
		vc.invIA = bodyA.InvI
		vc.invIB = bodyB.InvI
		vc.pointCount = m.PointCount
		vc.manifold = m

		pc := &s.positions[i]
		pc.indexA = def.IndexA
		pc.indexB = def.IndexB
		pc.invMassA = bodyA.InvMass
		pc.invMassB = bodyB.InvMass
		pc.invIA = bodyA.InvI
		pc.invIB = bodyB.InvI
		pc.localCenterA = bodyA.LocalCenter
		pc.localCenterB = bodyB.LocalCenter
		pc.localNormal = m.LocalNormal
		pc.localPoint = m.LocalPoint
		pc.pointCount = m.PointCount
		pc.radiusA = def.RadiusA
		pc.radiusB = def.RadiusB
		pc.kind = m.Type

		for j := range m.PointCount {
			vc.points[j].normalImpulse = scale * m.Points[j].NormalImpulse
			vc.points[j].tangentImpulse = scale * m.Points[j].TangentImpulse
			pc.localPoints[j] = m.Points[j].LocalPoint
		}
	}

	return s
}

// Constraints exposes the velocity constraints, in contact order.
func (s *ContactSolver) Constraints() []ContactConstraint {
	return s.constraints
}

// InitializeVelocityConstraints evaluates the manifolds at the current body positions and
// computes the effective masses and velocity biases.
//
// Points that are still apart get a speculative bias: the bodies may approach by the remaining
// gap within this step, no more. Touching points use restitution when the approach is fast enough.
func (s *ContactSolver) InitializeVelocityConstraints() {
	for i := range s.constraints {
		vc := &s.constraints[i]
		pc := &s.positions[i]

		bodyA := &s.bodies[vc.indexA]
		bodyB := &s.bodies[vc.indexB]

		wm := manifold.GetWorldManifold(vc.manifold, bodyA.Transform(), pc.radiusA, bodyB.Transform(), pc.radiusB)
		vc.normal = wm.Normal
		tangent := geom.CrossVS(vc.normal, 1)

		for j := range vc.pointCount {
			vcp := &vc.points[j]
			vcp.rA = wm.Points[j].Sub(bodyA.Position.C)
			vcp.rB = wm.Points[j].Sub(bodyB.Position.C)

			rnA := geom.Cross(vcp.rA, vc.normal)
			rnB := geom.Cross(vcp.rB, vc.normal)
			kNormal := vc.invMassA + vc.invMassB + vc.invIA*rnA*rnA + vc.invIB*rnB*rnB
			vcp.normalMass = 0
			if kNormal > 0 {
				vcp.normalMass = 1 / kNormal
			}

			rtA := geom.Cross(vcp.rA, tangent)
			rtB := geom.Cross(vcp.rB, tangent)
			kTangent := vc.invMassA + vc.invMassB + vc.invIA*rtA*rtA + vc.invIB*rtB*rtB
			vcp.tangentMass = 0
			if kTangent > 0 {
				vcp.tangentMass = 1 / kTangent
			}

			vcp.velocityBias = 0
			if separation := wm.Separations[j]; separation > 0 {
				vcp.velocityBias = -separation * s.step.InvDt
				continue
			}

			vRel := vc.normal.Dot(bodyB.velocityAt(vcp.rB).Sub(bodyA.velocityAt(vcp.rA)))
			if vRel < -s.step.VelocityThreshold {
				vcp.velocityBias = -vc.restitution * vRel
			}
		}

		// Prepare the block solver.
		if vc.pointCount == 2 {
			vcp1 := &vc.points[0]
			vcp2 := &vc.points[1]

			rn1A := geom.Cross(vcp1.rA, vc.normal)
			rn1B := geom.Cross(vcp1.rB, vc.normal)
			rn2A := geom.Cross(vcp2.rA, vc.normal)
			rn2B := geom.Cross(vcp2.rB, vc.normal)

			k11 := vc.invMassA + vc.invMassB + vc.invIA*rn1A*rn1A + vc.invIB*rn1B*rn1B
			k22 := vc.invMassA + vc.invMassB + vc.invIA*rn2A*rn2A + vc.invIB*rn2B*rn2B
			k12 := vc.invMassA + vc.invMassB + vc.invIA*rn1A*rn2A + vc.invIB*rn1B*rn2B

			if k11*k11 < maxConditionNumber*(k11*k22-k12*k12) {
				// K is safe to invert.
				vc.K = mgl64.Mat2{k11, k12, k12, k22}
				vc.normalMass = vc.K.Inv()
			} else {
				// The constraints are redundant, just use one.
				vc.pointCount = 1
			}
		}
	}
}

// WarmStart applies the seeded impulses to the bodies.
func (s *ContactSolver) WarmStart() {
	for i := range s.constraints {
		vc := &s.constraints[i]
		bodyA := &s.bodies[vc.indexA]
		bodyB := &s.bodies[vc.indexB]
		tangent := geom.CrossVS(vc.normal, 1)

		for j := range vc.pointCount {
			vcp := &vc.points[j]
			P := vc.normal.Mul(vcp.normalImpulse).Add(tangent.Mul(vcp.tangentImpulse))
			bodyA.applyImpulse(P.Mul(-1), vcp.rA)
			bodyB.applyImpulse(P, vcp.rB)
		}
	}
}

// SolveVelocityConstraints runs one Gauss-Seidel pass over the contacts and returns the largest
// incremental impulse applied.
func (s *ContactSolver) SolveVelocityConstraints() geom.Real {
	var maxIncImpulse geom.Real
	for i := range s.constraints {
		maxIncImpulse = max(maxIncImpulse, s.solveVelocityConstraint(&s.constraints[i]))
	}
	return maxIncImpulse
}

func (s *ContactSolver) solveVelocityConstraint(vc *ContactConstraint) geom.Real {
	bodyA := &s.bodies[vc.indexA]
	bodyB := &s.bodies[vc.indexB]
	normal := vc.normal
	tangent := geom.CrossVS(normal, 1)

	var maxIncImpulse geom.Real

	// ========== TANGENTIAL IMPULSE (friction) ==========
	// Solved first: non-penetration matters more than friction.
	for j := range vc.pointCount {
		vcp := &vc.points[j]

		dv := bodyB.velocityAt(vcp.rB).Sub(bodyA.velocityAt(vcp.rA))
		vt := dv.Dot(tangent)
		lambda := vcp.tangentMass * -vt

		// Coulomb's law: |F_friction| ≤ μ * |F_normal|
		maxFriction := vc.friction * vcp.normalImpulse
		newImpulse := geom.Clamp(vcp.tangentImpulse+lambda, -maxFriction, maxFriction)
		lambda = newImpulse - vcp.tangentImpulse
		vcp.tangentImpulse = newImpulse
		maxIncImpulse = max(maxIncImpulse, math.Abs(lambda))

		P := tangent.Mul(lambda)
		bodyA.applyImpulse(P.Mul(-1), vcp.rA)
		bodyB.applyImpulse(P, vcp.rB)
	}

	// ========== NORMAL IMPULSE ==========
	if vc.pointCount == 1 {
		vcp := &vc.points[0]

		dv := bodyB.velocityAt(vcp.rB).Sub(bodyA.velocityAt(vcp.rA))
		vn := dv.Dot(normal)
		lambda := -vcp.normalMass * (vn - vcp.velocityBias)

		// Prevent attractive impulses
		newImpulse := max(vcp.normalImpulse+lambda, 0)
		lambda = newImpulse - vcp.normalImpulse
		vcp.normalImpulse = newImpulse
		maxIncImpulse = max(maxIncImpulse, math.Abs(lambda))

		P := normal.Mul(lambda)
		bodyA.applyImpulse(P.Mul(-1), vcp.rA)
		bodyB.applyImpulse(P, vcp.rB)
		return maxIncImpulse
	}

	return max(maxIncImpulse, s.solveBlock(vc, bodyA, bodyB))
}

// solveBlock solves both normal impulses together as a linear complementarity problem:
//
//	vn = A * x + b, vn >= 0, x >= 0 and vn_i * x_i = 0
//
// The accumulated impulse x is solved for directly, enumerating the four cases of which points
// are active. The total impulse stays non negative even when an incremental one is not.
func (s *ContactSolver) solveBlock(vc *ContactConstraint, bodyA, bodyB *BodyConstraint) geom.Real {
	cp1 := &vc.points[0]
	cp2 := &vc.points[1]
	normal := vc.normal

	a := mgl64.Vec2{cp1.normalImpulse, cp2.normalImpulse}

	vn1 := bodyB.velocityAt(cp1.rB).Sub(bodyA.velocityAt(cp1.rA)).Dot(normal)
	vn2 := bodyB.velocityAt(cp2.rB).Sub(bodyA.velocityAt(cp2.rA)).Dot(normal)

	b := mgl64.Vec2{vn1 - cp1.velocityBias, vn2 - cp2.velocityBias}
	b = b.Sub(vc.K.Mul2x1(a))

	apply := func(x mgl64.Vec2) geom.Real {
		d := x.Sub(a)
		P1 := normal.Mul(d.X())
		P2 := normal.Mul(d.Y())
		bodyA.applyImpulse(P1.Mul(-1), cp1.rA)
		bodyA.applyImpulse(P2.Mul(-1), cp2.rA)
		bodyB.applyImpulse(P1, cp1.rB)
		bodyB.applyImpulse(P2, cp2.rB)
		cp1.normalImpulse = x.X()
		cp2.normalImpulse = x.Y()
		return max(math.Abs(d.X()), math.Abs(d.Y()))
	}

	// Case 1: both points active, vn = 0.
	x := vc.normalMass.Mul2x1(b).Mul(-1)
	if x.X() >= 0 && x.Y() >= 0 {
		return apply(x)
	}

	// Case 2: only the first point active, vn1 = 0 and x2 = 0.
	x = mgl64.Vec2{-cp1.normalMass * b.X(), 0}
	vn2 = vc.K[1]*x.X() + b.Y()
	if x.X() >= 0 && vn2 >= 0 {
		return apply(x)
	}

	// Case 3: only the second point active, vn2 = 0 and x1 = 0.
	x = mgl64.Vec2{0, -cp2.normalMass * b.Y()}
	vn1 = vc.K[2]*x.Y() + b.X()
	if x.Y() >= 0 && vn1 >= 0 {
		return apply(x)
	}

	// Case 4: no point active, x = 0.
	if b.X() >= 0 && b.Y() >= 0 {
		return apply(mgl64.Vec2{})
	}

	// No solution, give up. This is hit sometimes, but it doesn't seem to matter.
	return 0
}

// StoreImpulses writes the accumulated impulses back to the manifolds for the next warm start.
func (s *ContactSolver) StoreImpulses() {
	for i := range s.constraints {
		vc := &s.constraints[i]
		for j := range vc.pointCount {
			vc.manifold.Points[j].NormalImpulse = vc.points[j].normalImpulse
			vc.manifold.Points[j].TangentImpulse = vc.points[j].tangentImpulse
		}
	}
}

// NormalImpulses returns the accumulated normal impulses and the number of solved points.
func (vc *ContactConstraint) NormalImpulses() ([manifold.MaxPoints]geom.Real, int) {
	var impulses [manifold.MaxPoints]geom.Real
	for j := range vc.pointCount {
		impulses[j] = vc.points[j].normalImpulse
	}
	return impulses, vc.pointCount
}

// TangentImpulses returns the accumulated friction impulses and the number of solved points.
func (vc *ContactConstraint) TangentImpulses() ([manifold.MaxPoints]geom.Real, int) {
	var impulses [manifold.MaxPoints]geom.Real
	for j := range vc.pointCount {
		impulses[j] = vc.points[j].tangentImpulse
	}
	return impulses, vc.pointCount
}

// positionSolverPoint evaluates a position constraint point at the current transforms.
func positionSolverPoint(pc *positionConstraint, xfA, xfB geom.Transform, index int) (normal, point mgl64.Vec2, separation geom.Real) {
	switch pc.kind {
	case manifold.Circles:
		pointA := xfA.Apply(pc.localPoint)
		pointB := xfB.Apply(pc.localPoints[0])
		normal = mgl64.Vec2{1, 0}
		if geom.DistanceSquared(pointA, pointB) > geom.Epsilon*geom.Epsilon {
			normal, _ = geom.Normalize(pointB.Sub(pointA))
		}
		point = pointA.Add(pointB).Mul(0.5)
		separation = pointB.Sub(pointA).Dot(normal) - pc.radiusA - pc.radiusB

	case manifold.FaceA:
		normal = xfA.Rotate(pc.localNormal)
		planePoint := xfA.Apply(pc.localPoint)
		clipPoint := xfB.Apply(pc.localPoints[index])
		separation = clipPoint.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB
		point = clipPoint

	case manifold.FaceB:
		normal = xfB.Rotate(pc.localNormal)
		planePoint := xfB.Apply(pc.localPoint)
		clipPoint := xfA.Apply(pc.localPoints[index])
		separation = clipPoint.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB
		point = clipPoint

		// Ensure normal points from A to B
		normal = normal.Mul(-1)
	}
	return normal, point, separation
}

// SolvePositionConstraints runs one position correction pass and returns the smallest
// separation seen, negative when penetrating. Velocities are left untouched.
func (s *ContactSolver) SolvePositionConstraints(conf PositionConf) geom.Real {
	return s.solvePositions(conf, -1, -1)
}

// SolveTOIPositionConstraints is SolvePositionConstraints where only the bodies toiIndexA and
// toiIndexB move; every other body of the island is treated as fixed.
func (s *ContactSolver) SolveTOIPositionConstraints(conf PositionConf, toiIndexA, toiIndexB int) geom.Real {
	return s.solvePositions(conf, toiIndexA, toiIndexB)
}

func (s *ContactSolver) solvePositions(conf PositionConf, toiIndexA, toiIndexB int) geom.Real {
	minSeparation := geom.MaxReal
	toi := toiIndexA >= 0

	for i := range s.positions {
		pc := &s.positions[i]

		mA, iA := pc.invMassA, pc.invIA
		mB, iB := pc.invMassB, pc.invIB
		if toi {
			if pc.indexA != toiIndexA && pc.indexA != toiIndexB {
				mA, iA = 0, 0
			}
			if pc.indexB != toiIndexA && pc.indexB != toiIndexB {
				mB, iB = 0, 0
			}
		}

		bodyA := &s.bodies[pc.indexA]
		bodyB := &s.bodies[pc.indexB]

		// Solve normal constraints
		for j := range pc.pointCount {
			normal, point, separation := positionSolverPoint(pc, bodyA.Transform(), bodyB.Transform(), j)

			rA := point.Sub(bodyA.Position.C)
			rB := point.Sub(bodyB.Position.C)

			// Track max constraint error.
			minSeparation = min(minSeparation, separation)

			// Prevent large corrections and allow slop.
			C := geom.Clamp(conf.ResolutionRate*(separation+conf.LinearSlop), -conf.MaxLinearCorrection, 0)

			// Compute the effective mass.
			rnA := geom.Cross(rA, normal)
			rnB := geom.Cross(rB, normal)
			K := mA + mB + iA*rnA*rnA + iB*rnB*rnB

			// Compute normal impulse
			var impulse geom.Real
			if K > 0 {
				impulse = -C / K
			}

			P := normal.Mul(impulse)

			bodyA.Position.C = bodyA.Position.C.Sub(P.Mul(mA))
			bodyA.Position.A -= iA * geom.Cross(rA, P)

			bodyB.Position.C = bodyB.Position.C.Add(P.Mul(mB))
			bodyB.Position.A += iB * geom.Cross(rB, P)
		}
	}

	return minSeparation
}
