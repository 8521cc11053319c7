package actor

import (
	"errors"
	"fmt"

	"github.com/akmonengine/feather2d/geom"
)

// ErrInvalidFixture is returned when a fixture definition carries unusable material or skin values.
var ErrInvalidFixture = errors.New("actor: invalid fixture")

// FixtureID identifies a fixture in its world.
type FixtureID int

// NullFixture is the zero value for "no fixture".
const NullFixture FixtureID = -1

// Filter decides which fixtures may collide.
// Fixtures sharing a positive GroupIndex always collide, a shared negative GroupIndex never does.
// Otherwise each category must be accepted by the other's mask.
type Filter struct {
	CategoryBits uint16
	MaskBits     uint16
	GroupIndex   int16
}

// DefaultFilter collides with everything.
func DefaultFilter() Filter {
	return Filter{CategoryBits: 0x0001, MaskBits: 0xFFFF}
}

// ShouldCollide applies the filtering rules between two fixtures.
func ShouldCollide(a, b Filter) bool {
	if a.GroupIndex == b.GroupIndex && a.GroupIndex != 0 {
		return a.GroupIndex > 0
	}
	return a.MaskBits&b.CategoryBits != 0 && a.CategoryBits&b.MaskBits != 0
}

// FixtureDef holds the values used to attach a shape to a body.
type FixtureDef struct {
	Shape       ShapeInterface
	Density     geom.Real
	Friction    geom.Real
	Restitution geom.Real // 0= no rebound, 1= perfect restitution
	IsSensor    bool
	Filter      Filter
	UserData    any
}

// DefaultFixtureDef returns a solid fixture of unit density with the usual friction.
func DefaultFixtureDef(shape ShapeInterface) FixtureDef {
	return FixtureDef{
		Shape:    shape,
		Density:  1,
		Friction: 0.2,
		Filter:   DefaultFilter(),
	}
}

// Validate checks the material values of the definition.
func (def FixtureDef) Validate() error {
	var errs []error
	if def.Shape == nil {
		errs = append(errs, errors.New("missing shape"))
	}
	if def.Density < 0 || !geom.IsValid(def.Density) {
		errs = append(errs, fmt.Errorf("density %v", def.Density))
	}
	if def.Friction < 0 || !geom.IsValid(def.Friction) {
		errs = append(errs, fmt.Errorf("friction %v", def.Friction))
	}
	if def.Restitution < 0 || def.Restitution > 1 || !geom.IsValid(def.Restitution) {
		errs = append(errs, fmt.Errorf("restitution %v", def.Restitution))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidFixture, errors.Join(errs...))
	}
	return nil
}

// Fixture binds a shape to a body with its material.
// Sensors are tracked by the broad and narrow phase but never produce constraints.
type Fixture struct {
	ID          FixtureID
	Body        BodyID
	Shape       ShapeInterface
	Density     geom.Real
	Friction    geom.Real
	Restitution geom.Real
	IsSensor    bool
	Filter      Filter
	UserData    any

	// ProxyID is the broad-phase handle, -1 while the fixture is not in the tree.
	ProxyID int
}

// NewFixture validates def and builds a fixture for body.
func NewFixture(id FixtureID, body BodyID, def FixtureDef) (*Fixture, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	return &Fixture{
		ID:          id,
		Body:        body,
		Shape:       def.Shape,
		Density:     def.Density,
		Friction:    def.Friction,
		Restitution: def.Restitution,
		IsSensor:    def.IsSensor,
		Filter:      def.Filter,
		UserData:    def.UserData,
		ProxyID:     -1,
	}, nil
}

// ComputeAABB returns the tight bounding box of the fixture at xf.
func (f *Fixture) ComputeAABB(xf geom.Transform) geom.AABB {
	return f.Shape.ComputeAABB(xf)
}

// ComputeSweptAABB bounds the fixture over the motion from xf1 to xf2.
func (f *Fixture) ComputeSweptAABB(xf1, xf2 geom.Transform) geom.AABB {
	return f.Shape.ComputeAABB(xf1).Union(f.Shape.ComputeAABB(xf2))
}
