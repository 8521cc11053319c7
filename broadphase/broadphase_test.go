package broadphase

import (
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

type pairOf struct{ a, b string }

func collectPairs(bp *BroadPhase[string]) []pairOf {
	var pairs []pairOf
	bp.UpdatePairs(func(a, b string) {
		pairs = append(pairs, pairOf{a, b})
	})
	return pairs
}

func TestBroadPhase_UpdatePairs(t *testing.T) {
	bp := NewBroadPhase[string]()

	a, _ := bp.CreateProxy(box(0, 0, 1, 1), "a")
	bp.CreateProxy(box(1.5, 0, 1, 1), "b")
	bp.CreateProxy(box(10, 0, 1, 1), "c")

	pairs := collectPairs(bp)
	if want := []pairOf{{"a", "b"}}; !slices.Equal(pairs, want) {
		t.Fatalf("pairs = %v, want %v", pairs, want)
	}
	if bp.MoveCount() != 0 {
		t.Errorf("MoveCount = %d after UpdatePairs", bp.MoveCount())
	}

	// Nothing moved: no new pairs.
	if pairs := collectPairs(bp); len(pairs) != 0 {
		t.Errorf("pairs = %v, want none", pairs)
	}

	// Moving a next to c reports the new pair and the still overlapping one.
	if _, err := bp.MoveProxy(a, box(9, 0, 1, 1), mgl64.Vec2{9, 0}); err != nil {
		t.Fatal(err)
	}
	pairs = collectPairs(bp)
	if want := []pairOf{{"a", "c"}}; !slices.Equal(pairs, want) {
		t.Errorf("pairs = %v, want %v", pairs, want)
	}
}

func TestBroadPhase_NoDuplicates(t *testing.T) {
	bp := NewBroadPhase[string]()
	a, _ := bp.CreateProxy(box(0, 0, 1, 1), "a")
	bp.CreateProxy(box(0.5, 0, 1, 1), "b")
	bp.TouchProxy(a)
	bp.TouchProxy(a)

	pairs := collectPairs(bp)
	if len(pairs) != 1 {
		t.Errorf("pairs = %v, want exactly one", pairs)
	}
}

func TestBroadPhase_DestroyProxy(t *testing.T) {
	bp := NewBroadPhase[string]()
	a, _ := bp.CreateProxy(box(0, 0, 1, 1), "a")
	b, _ := bp.CreateProxy(box(0.5, 0, 1, 1), "b")

	if !bp.TestOverlap(a, b) {
		t.Error("TestOverlap = false, want true")
	}

	if err := bp.DestroyProxy(a); err != nil {
		t.Fatal(err)
	}
	if pairs := collectPairs(bp); len(pairs) != 0 {
		t.Errorf("pairs = %v, want none after destroy", pairs)
	}
	if err := bp.Tree().Validate(); err != nil {
		t.Error(err)
	}
}
