// Package toi computes the time of impact of two moving convex proxies.
//
// The solver uses conservative advancement: at the current fraction it measures the distance
// between the shapes, bounds how fast that distance can shrink from the relative linear and
// angular motion, and jumps forward by the time the shapes need to close the gap at that
// rate. The jump never crosses the first contact, so fast and thin shapes cannot tunnel.
// A bracketing root finder cleans up the rare jumps that land too deep.
//
// Times are fractions of the sweeps, measured from their Alpha0.
package toi

import (
	"math"

	"github.com/akmonengine/feather2d/geom"
	"github.com/akmonengine/feather2d/gjk"
)

// State is the outcome of a time of impact query.
type State uint8

const (
	Unknown State = iota
	// Failed means an iteration cap was reached before the root converged. Time is the last
	// fraction known to be safe.
	Failed
	// Overlapped means the shapes already penetrate deeper than the target at fraction 0.
	Overlapped
	// Touching means the separation reached the target band at Time.
	Touching
	// Separated means the shapes never reach the target before the end of the sweeps.
	Separated
)

func (s State) String() string {
	switch s {
	case Failed:
		return "failed"
	case Overlapped:
		return "overlapped"
	case Touching:
		return "touching"
	case Separated:
		return "separated"
	}
	return "unknown"
}

// Conf holds the tolerances and iteration caps of a query.
//
// With TR the total radius of both proxies and TD the target depth, the solver looks for the
// first fraction where the distance between the proxy cores is within Tolerance of
// max(LinearSlop, TR - TD).
type Conf struct {
	// TMax is the largest fraction considered, in (0, 1].
	TMax        geom.Real
	TargetDepth geom.Real
	Tolerance   geom.Real
	LinearSlop  geom.Real

	MaxRootIters int
	MaxToiIters  int
	MaxDistIters int
}

// DefaultConf returns the configuration matching the default step configuration.
func DefaultConf() Conf {
	return Conf{
		TMax:         1,
		TargetDepth:  0.005 * 3,
		Tolerance:    0.005 / 4,
		LinearSlop:   0.005,
		MaxRootIters: 30,
		MaxToiIters:  20,
		MaxDistIters: gjk.DefaultMaxIterations,
	}
}

// Stats counts the work of a query.
type Stats struct {
	ToiIters     int // conservative advancement steps
	SumDistIters int // distance iterations over all evaluations
	MaxDistIters int // largest distance iteration count of a single evaluation
	SumRootIters int // root finder iterations
	MaxRootIters int // largest root finder iteration count of a single bracket
}

// Output is the result of TimeOfImpact.
type Output struct {
	State State
	Time  geom.Real
	Stats Stats
}

type solver struct {
	proxyA, proxyB *gjk.Proxy
	sweepA, sweepB geom.Sweep
	conf           Conf
	cache          gjk.SimplexCache
	stats          Stats
}

// distance evaluates the core distance at fraction t.
func (s *solver) distance(t geom.Real) gjk.DistanceOutput {
	output := gjk.Distance(gjk.DistanceInput{
		ProxyA:        s.proxyA,
		ProxyB:        s.proxyB,
		TransformA:    s.sweepA.Transform(t),
		TransformB:    s.sweepB.Transform(t),
		MaxIterations: s.conf.MaxDistIters,
	}, &s.cache)

	s.stats.SumDistIters += output.Iterations
	s.stats.MaxDistIters = max(s.stats.MaxDistIters, output.Iterations)
	return output
}

// TimeOfImpact finds the first fraction in [0, conf.TMax] at which the proxies moving along
// their sweeps come within the target separation.
//
// Both sweeps must share the same Alpha0. Failed results carry a safe fraction; callers that
// cannot afford missing a contact treat them like Touching.
func TimeOfImpact(proxyA *gjk.Proxy, sweepA geom.Sweep, proxyB *gjk.Proxy, sweepB geom.Sweep, conf Conf) Output {
	sweepA.Normalize()
	sweepB.Normalize()

	s := solver{proxyA: proxyA, proxyB: proxyB, sweepA: sweepA, sweepB: sweepB, conf: conf}

	tMax := conf.TMax
	if tMax <= 0 || tMax > 1 {
		tMax = 1
	}

	totalRadius := proxyA.Radius + proxyB.Radius
	target := max(conf.LinearSlop, totalRadius-conf.TargetDepth)
	tolerance := conf.Tolerance
	minTarget := target - tolerance
	maxTarget := target + tolerance

	// Motion of each body over the whole sweep.
	relVelocity := sweepB.C.Sub(sweepB.C0).Sub(sweepA.C.Sub(sweepA.C0))
	angularA := geom.Abs(sweepA.A - sweepA.A0)
	angularB := geom.Abs(sweepB.A - sweepB.A0)
	extentA := proxyA.MaxExtent(sweepA.LocalCenter) - proxyA.Radius
	extentB := proxyB.MaxExtent(sweepB.LocalCenter) - proxyB.Radius
	angularBound := angularA*extentA + angularB*extentB
	rotating := angularBound > geom.Epsilon

	t1 := geom.Real(0)
	current := s.distance(t1)
	if current.Distance < minTarget {
		return Output{State: Overlapped, Time: 0, Stats: s.stats}
	}

	for iter := 0; ; iter++ {
		d := current.Distance
		if d <= maxTarget {
			return Output{State: Touching, Time: t1, Stats: s.stats}
		}
		if iter >= conf.MaxToiIters {
			return Output{State: Failed, Time: t1, Stats: s.stats}
		}
		s.stats.ToiIters++

		normal, _ := geom.Normalize(current.PointB.Sub(current.PointA))
		approach := -relVelocity.Dot(normal)

		var tNext geom.Real
		if rotating {
			// Closing speed bound: linear motion along the normal plus the fastest point of
			// each spinning shape.
			mu := geom.Abs(approach) + angularBound
			tNext = t1 + (d-target)/mu
		} else {
			// Without rotation the distance is convex in t and never drops below its
			// tangent, so the linear extrapolation is a safe step.
			if approach <= geom.Epsilon {
				return Output{State: Separated, Time: tMax, Stats: s.stats}
			}
			tNext = t1 + (d-target)/approach
		}

		if tNext >= tMax {
			return Output{State: Separated, Time: tMax, Stats: s.stats}
		}

		next := s.distance(tNext)
		if next.Distance >= minTarget {
			t1, current = tNext, next
			continue
		}

		// The step went too deep. The root lies between t1 (above the band) and tNext.
		t, output, ok := s.findRoot(t1, d, tNext, next.Distance, target)
		if !ok {
			return Output{State: Failed, Time: t, Stats: s.stats}
		}
		t1, current = t, output
	}
}

// findRoot looks for a fraction within the target band between a, whose distance is above the
// band, and b, whose distance is below it. Secant and bisection steps alternate. On failure the
// lower bracket is returned, which is still above the band.
func (s *solver) findRoot(a, distA, b, distB, target geom.Real) (geom.Real, gjk.DistanceOutput, bool) {
	tolerance := s.conf.Tolerance

	var rootIters int
	defer func() {
		s.stats.SumRootIters += rootIters
		s.stats.MaxRootIters = max(s.stats.MaxRootIters, rootIters)
	}()

	for rootIters < s.conf.MaxRootIters {
		rootIters++

		var t geom.Real
		if rootIters&1 == 1 {
			// Secant rule to improve convergence.
			t = a + (target-distA)*(b-a)/(distB-distA)
		} else {
			// Bisection to guarantee progress.
			t = 0.5 * (a + b)
		}
		if t <= a || t >= b || math.IsNaN(t) {
			t = 0.5 * (a + b)
		}
		if t <= a || t >= b {
			// The bracket collapsed to adjacent floating point values.
			break
		}

		output := s.distance(t)
		f := output.Distance - target
		if geom.Abs(f) <= tolerance {
			return t, output, true
		}

		if f > 0 {
			a, distA = t, output.Distance
		} else {
			b, distB = t, output.Distance
		}
	}

	return a, gjk.DistanceOutput{}, false
}

// Separation returns the core distance minus the target at fraction t, for diagnostics and tests.
func Separation(proxyA *gjk.Proxy, sweepA geom.Sweep, proxyB *gjk.Proxy, sweepB geom.Sweep, t geom.Real, conf Conf) geom.Real {
	var cache gjk.SimplexCache
	output := gjk.Distance(gjk.DistanceInput{
		ProxyA:        proxyA,
		ProxyB:        proxyB,
		TransformA:    sweepA.Transform(t),
		TransformB:    sweepB.Transform(t),
		MaxIterations: conf.MaxDistIters,
	}, &cache)

	totalRadius := proxyA.Radius + proxyB.Radius
	return output.Distance - max(conf.LinearSlop, totalRadius-conf.TargetDepth)
}
