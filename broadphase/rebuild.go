package broadphase

import (
	"sort"

	"github.com/akmonengine/feather2d/geom"
)

// RebuildBottomUp rebuilds the whole tree from its leaves. Leaves are split recursively at the
// median of their centers along the widest axis, which yields a perfectly balanced tree.
// Proxy ids and payloads are preserved.
func (t *Tree[T]) RebuildBottomUp() {
	if t.proxyCount == 0 {
		return
	}

	leaves := make([]int, 0, t.proxyCount)
	for i := range t.nodes {
		node := &t.nodes[i]
		if node.height < 0 {
			// free node
			continue
		}
		if node.isLeaf() {
			node.parent = nullNode
			leaves = append(leaves, i)
		} else {
			t.freeNode(i)
		}
	}

	t.root = t.build(leaves)
	t.nodes[t.root].parent = nullNode
}

// build returns the root of a balanced subtree over leaves.
func (t *Tree[T]) build(leaves []int) int {
	if len(leaves) == 1 {
		return leaves[0]
	}

	// Split along the axis where the centers spread the most.
	lower := t.nodes[leaves[0]].aabb.Center()
	upper := lower
	for _, id := range leaves[1:] {
		c := t.nodes[id].aabb.Center()
		lower = geom.MinVec(lower, c)
		upper = geom.MaxVec(upper, c)
	}
	spread := upper.Sub(lower)
	axis := 0
	if spread[1] > spread[0] {
		axis = 1
	}

	sort.SliceStable(leaves, func(i, j int) bool {
		ci := t.nodes[leaves[i]].aabb.Center()[axis]
		cj := t.nodes[leaves[j]].aabb.Center()[axis]
		if ci != cj {
			return ci < cj
		}
		return leaves[i] < leaves[j]
	})

	mid := len(leaves) / 2
	child1 := t.build(leaves[:mid])
	child2 := t.build(leaves[mid:])

	parent := t.allocateNode()
	node := &t.nodes[parent]
	node.child1 = child1
	node.child2 = child2
	node.aabb = t.nodes[child1].aabb.Union(t.nodes[child2].aabb)
	node.height = 1 + max(t.nodes[child1].height, t.nodes[child2].height)
	t.nodes[child1].parent = parent
	t.nodes[child2].parent = parent

	return parent
}
