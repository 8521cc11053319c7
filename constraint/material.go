package constraint

import (
	"math"

	"github.com/akmonengine/feather2d/geom"
)

// MixFriction combines the friction of two fixtures.
// The geometric mean lets a frictionless surface slide on anything.
func MixFriction(frictionA, frictionB geom.Real) geom.Real {
	return math.Sqrt(frictionA * frictionB)
}

// MixRestitution combines the restitution of two fixtures: if one bounces, the contact bounces.
func MixRestitution(restitutionA, restitutionB geom.Real) geom.Real {
	return max(restitutionA, restitutionB)
}
