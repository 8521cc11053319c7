package broadphase

import (
	"cmp"
	"slices"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Pair is a pair of proxies whose fat boxes overlap, with A < B.
type Pair struct {
	A, B int
}

// BroadPhase tracks moved proxies and reports the new overlapping pairs they take part in.
type BroadPhase[T any] struct {
	tree       *Tree[T]
	moveBuffer []int
	pairBuffer []Pair
}

// NewBroadPhase creates a broad phase over a new tree.
func NewBroadPhase[T any](opts ...Option) *BroadPhase[T] {
	return &BroadPhase[T]{tree: NewTree[T](opts...)}
}

// Tree returns the underlying tree, for queries.
func (bp *BroadPhase[T]) Tree() *Tree[T] {
	return bp.tree
}

// CreateProxy inserts a proxy and schedules it for pair generation.
func (bp *BroadPhase[T]) CreateProxy(aabb geom.AABB, payload T) (int, error) {
	id, err := bp.tree.Insert(aabb, payload)
	if err != nil {
		return id, err
	}
	bp.bufferMove(id)
	return id, nil
}

// DestroyProxy removes a proxy. Pairs already reported are the caller's to destroy.
func (bp *BroadPhase[T]) DestroyProxy(id int) error {
	if err := bp.tree.Remove(id); err != nil {
		return err
	}
	bp.unbufferMove(id)
	return nil
}

// MoveProxy updates a proxy, scheduling it for pair generation when the tree changed.
func (bp *BroadPhase[T]) MoveProxy(id int, aabb geom.AABB, displacement mgl64.Vec2) (bool, error) {
	moved, err := bp.tree.Move(id, aabb, displacement)
	if moved {
		bp.bufferMove(id)
	}
	return moved, err
}

// TouchProxy schedules a proxy for pair generation without moving it.
func (bp *BroadPhase[T]) TouchProxy(id int) {
	bp.bufferMove(id)
}

// TestOverlap reports whether the fat boxes of two proxies overlap.
func (bp *BroadPhase[T]) TestOverlap(a, b int) bool {
	return bp.tree.FatAABB(a).Overlaps(bp.tree.FatAABB(b))
}

// MoveCount returns the number of proxies scheduled for pair generation.
func (bp *BroadPhase[T]) MoveCount() int {
	return len(bp.moveBuffer)
}

func (bp *BroadPhase[T]) bufferMove(id int) {
	bp.moveBuffer = append(bp.moveBuffer, id)
}

func (bp *BroadPhase[T]) unbufferMove(id int) {
	for i, moved := range bp.moveBuffer {
		if moved == id {
			bp.moveBuffer[i] = nullNode
		}
	}
}

// UpdatePairs calls fn for every pair of overlapping proxies where at least one proxy was
// scheduled since the last call. Pairs are reported once each, sorted by proxy ids, so the
// order only depends on the tree contents.
func (bp *BroadPhase[T]) UpdatePairs(fn func(a, b T)) {
	bp.pairBuffer = bp.pairBuffer[:0]

	for _, queryProxy := range bp.moveBuffer {
		if queryProxy == nullNode {
			continue
		}

		fatAABB := bp.tree.FatAABB(queryProxy)
		bp.tree.Query(fatAABB, func(id int) bool {
			// A proxy cannot form a pair with itself.
			if id == queryProxy {
				return true
			}

			// Both proxies are moving: the pair is reported when the lower id queries.
			if bp.tree.WasMoved(id) && id < queryProxy {
				return true
			}

			bp.pairBuffer = append(bp.pairBuffer, Pair{A: min(id, queryProxy), B: max(id, queryProxy)})
			return true
		})
	}

	slices.SortFunc(bp.pairBuffer, func(a, b Pair) int {
		if c := cmp.Compare(a.A, b.A); c != 0 {
			return c
		}
		return cmp.Compare(a.B, b.B)
	})
	bp.pairBuffer = slices.Compact(bp.pairBuffer)

	for _, pair := range bp.pairBuffer {
		fn(bp.tree.Payload(pair.A), bp.tree.Payload(pair.B))
	}

	for _, id := range bp.moveBuffer {
		if id != nullNode {
			bp.tree.ClearMoved(id)
		}
	}
	bp.moveBuffer = bp.moveBuffer[:0]
}
