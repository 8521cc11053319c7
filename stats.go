package feather2d

import (
	"log/slog"

	"github.com/akmonengine/feather2d/geom"
)

// PreStepStats counts the contact work done before solving.
type PreStepStats struct {
	Added     int // contacts created from pairs found before the step
	Destroyed int // contacts destroyed by filtering or separated fat boxes
	Updated   int // contacts whose manifold was recomputed
	Ignored   int // contacts skipped because no body was awake
}

// RegStepStats describes the regular phase.
type RegStepStats struct {
	// MinSeparation is the deepest contact separation seen by the position solver.
	MinSeparation geom.Real
	// MaxIncImpulse is the largest impulse increment of the velocity solver.
	MaxIncImpulse geom.Real

	IslandsFound     int
	IslandsSolved    int // islands whose position iterations reached the tolerance
	SumPositionIters int
	SumVelocityIters int
	BodiesSlept      int
	ProxiesMoved     int
	ContactsAdded    int
}

// ToiStepStats describes the time of impact phase.
type ToiStepStats struct {
	MinSeparation geom.Real
	MaxIncImpulse geom.Real

	IslandsFound          int
	IslandsSolved         int
	SumPositionIters      int
	SumVelocityIters      int
	ContactsFound         int // time of impact events handled
	ContactsAtMaxSubSteps int
	ContactsUpdatedToi    int
	ContactsAdded         int
	ProxiesMoved          int

	MaxDistIters int
	MaxToiIters  int
	MaxRootIters int
	SumRootIters int
}

// StepStats is returned by Step.
type StepStats struct {
	Pre PreStepStats
	Reg RegStepStats
	Toi ToiStepStats
}

func (s PreStepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("added", s.Added),
		slog.Int("destroyed", s.Destroyed),
		slog.Int("updated", s.Updated),
		slog.Int("ignored", s.Ignored),
	)
}

func (s RegStepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("minSeparation", s.MinSeparation),
		slog.Float64("maxIncImpulse", s.MaxIncImpulse),
		slog.Int("islandsFound", s.IslandsFound),
		slog.Int("islandsSolved", s.IslandsSolved),
		slog.Int("positionIters", s.SumPositionIters),
		slog.Int("velocityIters", s.SumVelocityIters),
		slog.Int("bodiesSlept", s.BodiesSlept),
		slog.Int("proxiesMoved", s.ProxiesMoved),
		slog.Int("contactsAdded", s.ContactsAdded),
	)
}

func (s ToiStepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("contactsFound", s.ContactsFound),
		slog.Int("contactsUpdated", s.ContactsUpdatedToi),
		slog.Int("contactsAtMaxSubSteps", s.ContactsAtMaxSubSteps),
		slog.Int("contactsAdded", s.ContactsAdded),
		slog.Int("islandsFound", s.IslandsFound),
		slog.Int("islandsSolved", s.IslandsSolved),
		slog.Int("proxiesMoved", s.ProxiesMoved),
		slog.Int("maxDistIters", s.MaxDistIters),
		slog.Int("maxToiIters", s.MaxToiIters),
		slog.Int("maxRootIters", s.MaxRootIters),
		slog.Int("sumRootIters", s.SumRootIters),
	)
}

func (s StepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("pre", s.Pre),
		slog.Any("reg", s.Reg),
		slog.Any("toi", s.Toi),
	)
}
