package manifold

import "fmt"

// FeatureType tells whether a feature index names a vertex or a face (edge).
type FeatureType uint8

const (
	Vertex FeatureType = iota
	Face
)

func (t FeatureType) String() string {
	if t == Face {
		return "face"
	}
	return "vertex"
}

// ContactFeature identifies the pair of features that produced a contact point.
// Two points from consecutive steps with equal features are the same physical contact,
// which lets the solver carry impulses over.
type ContactFeature struct {
	TypeA  FeatureType
	IndexA uint8
	TypeB  FeatureType
	IndexB uint8
}

// Flip swaps the A and B sides.
func (f ContactFeature) Flip() ContactFeature {
	return ContactFeature{TypeA: f.TypeB, IndexA: f.IndexB, TypeB: f.TypeA, IndexB: f.IndexA}
}

func (f ContactFeature) String() string {
	return fmt.Sprintf("%s%d-%s%d", f.TypeA, f.IndexA, f.TypeB, f.IndexB)
}
