package constraint

import "github.com/akmonengine/feather2d/geom"

// StepData holds the timing of the step being solved.
type StepData struct {
	Dt    geom.Real
	InvDt geom.Real
	// DtRatio is Dt divided by the previous step's Dt. Warm start impulses are scaled by it.
	DtRatio geom.Real

	DoWarmStart     bool
	WarmStartFactor geom.Real

	// VelocityThreshold is the approach speed under which collisions are inelastic.
	VelocityThreshold geom.Real
}

// PositionConf holds the tolerances of a position correction pass.
type PositionConf struct {
	LinearSlop           geom.Real
	AngularSlop          geom.Real
	ResolutionRate       geom.Real
	MaxLinearCorrection  geom.Real
	MaxAngularCorrection geom.Real
}

func (s StepData) warmStartScale() geom.Real {
	if !s.DoWarmStart {
		return 0
	}
	return s.DtRatio * s.WarmStartFactor
}
