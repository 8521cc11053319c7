// Package config holds the tunables of a simulation step.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidConfig is returned when a StepConf fails validation.
var ErrInvalidConfig = errors.New("config: invalid step configuration")

const (
	// DefaultLinearSlop is the collision and constraint tolerance, in meters.
	DefaultLinearSlop = 0.005
	// DefaultAngularSlop is the angular tolerance, in radians.
	DefaultAngularSlop = 2 * math.Pi / 180
	// DefaultMinVertexRadius is the thinnest skin a fixture may have.
	DefaultMinVertexRadius = 2 * DefaultLinearSlop
	// DefaultMaxVertexRadius is the thickest skin a fixture may have.
	DefaultMaxVertexRadius = 255
)

// StepConf enumerates every tunable consumed by a world step.
type StepConf struct {
	Dt      geom.Real  `json:"dt" jsonschema:"title=Time step,description=Duration of one step in seconds,minimum=0"`
	Gravity mgl64.Vec2 `json:"gravity" jsonschema:"title=Gravity,description=Acceleration applied to dynamic bodies in m/s²"`

	LinearSlop  geom.Real `json:"linearSlop" jsonschema:"description=Minimum meaningful distance; allowed penetration,minimum=0"`
	AngularSlop geom.Real `json:"angularSlop" jsonschema:"description=Minimum meaningful angle in radians,minimum=0"`

	RegResolutionRate geom.Real `json:"regResolutionRate" jsonschema:"description=Fraction of the penetration corrected per regular position iteration,minimum=0,maximum=1"`
	ToiResolutionRate geom.Real `json:"toiResolutionRate" jsonschema:"description=Fraction of the penetration corrected per TOI position iteration,minimum=0,maximum=1"`
	RegMinSeparation  geom.Real `json:"regMinSeparation" jsonschema:"description=Regular position iterations stop once no contact is deeper than this,maximum=0"`
	ToiMinSeparation  geom.Real `json:"toiMinSeparation" jsonschema:"description=TOI position iterations stop once no contact is deeper than this,maximum=0"`

	TargetDepth   geom.Real `json:"targetDepth" jsonschema:"description=Penetration aimed for by the time of impact solver,minimum=0"`
	Tolerance     geom.Real `json:"tolerance" jsonschema:"description=Accepted distance around the time of impact target,minimum=0"`
	ContactMargin geom.Real `json:"contactMargin" jsonschema:"description=Separation under which speculative contact points are kept,minimum=0"`

	MinVertexRadius geom.Real `json:"minVertexRadius" jsonschema:"description=Smallest vertex radius accepted for a new fixture,minimum=0"`
	MaxVertexRadius geom.Real `json:"maxVertexRadius" jsonschema:"description=Largest vertex radius accepted for a new fixture,minimum=0"`

	VelocityThreshold geom.Real `json:"velocityThreshold" jsonschema:"description=Approach speed under which collisions are inelastic,minimum=0"`

	MaxTranslation       geom.Real `json:"maxTranslation" jsonschema:"description=Largest distance a body may travel in one step,minimum=0"`
	MaxRotation          geom.Real `json:"maxRotation" jsonschema:"description=Largest angle a body may turn in one step,minimum=0"`
	MaxLinearCorrection  geom.Real `json:"maxLinearCorrection" jsonschema:"description=Largest position correction per iteration,minimum=0"`
	MaxAngularCorrection geom.Real `json:"maxAngularCorrection" jsonschema:"description=Largest angle correction per iteration,minimum=0"`

	RegVelocityIterations int `json:"regVelocityIterations" jsonschema:"minimum=1"`
	RegPositionIterations int `json:"regPositionIterations" jsonschema:"minimum=0"`
	ToiVelocityIterations int `json:"toiVelocityIterations" jsonschema:"minimum=1"`
	ToiPositionIterations int `json:"toiPositionIterations" jsonschema:"minimum=0"`

	MaxToiRootIters  int `json:"maxToiRootIters" jsonschema:"description=Root finder iterations per time of impact step,minimum=1"`
	MaxToiIters      int `json:"maxToiIters" jsonschema:"description=Advancement iterations per time of impact computation,minimum=1"`
	MaxDistanceIters int `json:"maxDistanceIters" jsonschema:"description=Iterations per distance computation,minimum=1"`
	MaxSubSteps      int `json:"maxSubSteps" jsonschema:"description=TOI sub-steps a contact may take per step,minimum=1"`
	MaxToiEvents     int `json:"maxToiEvents" jsonschema:"description=TOI events processed per step,minimum=0"`

	LinearSleepTolerance  geom.Real `json:"linearSleepTolerance" jsonschema:"description=Speed under which a body may sleep in m/s,minimum=0"`
	AngularSleepTolerance geom.Real `json:"angularSleepTolerance" jsonschema:"description=Angular speed under which a body may sleep in rad/s,minimum=0"`
	MinStillTimeToSleep   geom.Real `json:"minStillTimeToSleep" jsonschema:"description=Seconds an island must stay still before sleeping,minimum=0"`

	AABBExtension      geom.Real `json:"aabbExtension" jsonschema:"description=Margin added around broad-phase boxes,minimum=0"`
	DisplaceMultiplier geom.Real `json:"displaceMultiplier" jsonschema:"description=Predictive stretch of broad-phase boxes along the displacement,minimum=0"`

	WarmStartFactor geom.Real `json:"warmStartFactor" jsonschema:"description=Scale of the impulses carried over from the previous step,minimum=0,maximum=1"`
	DoWarmStart     bool      `json:"doWarmStart"`
	DoToi           bool      `json:"doToi" jsonschema:"description=Enables continuous collision"`
	AllowSleep      bool      `json:"allowSleep"`

	Workers int `json:"workers" jsonschema:"description=Goroutines used for narrow phase and island solving,minimum=1"`
}

// Default returns the standard configuration for a 60 Hz simulation.
func Default() StepConf {
	return StepConf{
		Dt:      1.0 / 60.0,
		Gravity: mgl64.Vec2{0, -10},

		LinearSlop:  DefaultLinearSlop,
		AngularSlop: DefaultAngularSlop,

		RegResolutionRate: 0.2,
		ToiResolutionRate: 0.75,
		RegMinSeparation:  -3 * DefaultLinearSlop,
		ToiMinSeparation:  -1.5 * DefaultLinearSlop,

		TargetDepth:   3 * DefaultLinearSlop,
		Tolerance:     DefaultLinearSlop / 4,
		ContactMargin: 3 * DefaultLinearSlop,

		MinVertexRadius: DefaultMinVertexRadius,
		MaxVertexRadius: DefaultMaxVertexRadius,

		VelocityThreshold: 1,

		MaxTranslation:       4,
		MaxRotation:          math.Pi / 2,
		MaxLinearCorrection:  0.2,
		MaxAngularCorrection: 8 * math.Pi / 180,

		RegVelocityIterations: 8,
		RegPositionIterations: 3,
		ToiVelocityIterations: 8,
		ToiPositionIterations: 20,

		MaxToiRootIters:  30,
		MaxToiIters:      20,
		MaxDistanceIters: 20,
		MaxSubSteps:      8,
		MaxToiEvents:     256,

		LinearSleepTolerance:  0.01,
		AngularSleepTolerance: 2 * math.Pi / 180,
		MinStillTimeToSleep:   0.5,

		AABBExtension:      0.1,
		DisplaceMultiplier: 2,

		WarmStartFactor: 1,
		DoWarmStart:     true,
		DoToi:           true,
		AllowSleep:      true,

		Workers: 1,
	}
}

// Validate reports every out of range value at once.
func (c StepConf) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	positive := func(name string, v geom.Real) {
		check(v > 0 && geom.IsValid(v), "%s must be positive, got %v", name, v)
	}
	nonNegative := func(name string, v geom.Real) {
		check(v >= 0 && geom.IsValid(v), "%s must not be negative, got %v", name, v)
	}
	rate := func(name string, v geom.Real) {
		check(v > 0 && v <= 1, "%s must be in (0, 1], got %v", name, v)
	}
	atLeast := func(name string, v, low int) {
		check(v >= low, "%s must be at least %d, got %d", name, low, v)
	}

	positive("dt", c.Dt)
	check(geom.IsValidVec(c.Gravity), "gravity must be finite, got %v", c.Gravity)
	positive("linearSlop", c.LinearSlop)
	positive("angularSlop", c.AngularSlop)
	rate("regResolutionRate", c.RegResolutionRate)
	rate("toiResolutionRate", c.ToiResolutionRate)
	check(c.RegMinSeparation <= 0, "regMinSeparation must not be positive, got %v", c.RegMinSeparation)
	check(c.ToiMinSeparation <= 0, "toiMinSeparation must not be positive, got %v", c.ToiMinSeparation)
	nonNegative("targetDepth", c.TargetDepth)
	positive("tolerance", c.Tolerance)
	nonNegative("contactMargin", c.ContactMargin)
	// A time of impact lands at least linearSlop apart, give or take the tolerance;
	// the resulting contact must be close enough to produce manifold points.
	check(c.ContactMargin >= c.LinearSlop+c.Tolerance,
		"contactMargin %v must cover linearSlop + tolerance = %v", c.ContactMargin, c.LinearSlop+c.Tolerance)
	positive("minVertexRadius", c.MinVertexRadius)
	check(c.MaxVertexRadius > c.MinVertexRadius && geom.IsValid(c.MaxVertexRadius),
		"maxVertexRadius %v must exceed minVertexRadius %v", c.MaxVertexRadius, c.MinVertexRadius)
	nonNegative("velocityThreshold", c.VelocityThreshold)
	positive("maxTranslation", c.MaxTranslation)
	positive("maxRotation", c.MaxRotation)
	positive("maxLinearCorrection", c.MaxLinearCorrection)
	positive("maxAngularCorrection", c.MaxAngularCorrection)
	atLeast("regVelocityIterations", c.RegVelocityIterations, 1)
	atLeast("regPositionIterations", c.RegPositionIterations, 0)
	atLeast("toiVelocityIterations", c.ToiVelocityIterations, 1)
	atLeast("toiPositionIterations", c.ToiPositionIterations, 0)
	atLeast("maxToiRootIters", c.MaxToiRootIters, 1)
	atLeast("maxToiIters", c.MaxToiIters, 1)
	atLeast("maxDistanceIters", c.MaxDistanceIters, 1)
	atLeast("maxSubSteps", c.MaxSubSteps, 1)
	atLeast("maxToiEvents", c.MaxToiEvents, 0)
	nonNegative("linearSleepTolerance", c.LinearSleepTolerance)
	nonNegative("angularSleepTolerance", c.AngularSleepTolerance)
	nonNegative("minStillTimeToSleep", c.MinStillTimeToSleep)
	nonNegative("aabbExtension", c.AABBExtension)
	nonNegative("displaceMultiplier", c.DisplaceMultiplier)
	check(c.WarmStartFactor >= 0 && c.WarmStartFactor <= 1, "warmStartFactor must be in [0, 1], got %v", c.WarmStartFactor)
	atLeast("workers", c.Workers, 1)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Load decodes a JSON document over the defaults and validates the result.
// Unknown fields are rejected so that typos do not go unnoticed.
func Load(r io.Reader) (StepConf, error) {
	conf := Default()

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&conf); err != nil {
		return StepConf{}, fmt.Errorf("decode step configuration: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return StepConf{}, err
	}
	return conf, nil
}

// LoadFile reads a JSON configuration file.
func LoadFile(path string) (StepConf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StepConf{}, fmt.Errorf("read step configuration: %w", err)
	}

	conf, err := Load(bytes.NewReader(data))
	if err != nil {
		return StepConf{}, fmt.Errorf("%s: %w", path, err)
	}
	return conf, nil
}
