// Package broadphase is the spatial index of the engine: a dynamic AABB tree and the pair
// manager built on top of it.
//
// Leaves store fattened AABBs so that small motions do not touch the tree. Internal nodes store
// the union of their children and are kept height balanced with AVL rotations, which bounds
// queries to O(log n) node visits per reported proxy.
package broadphase

import (
	"errors"
	"fmt"

	"github.com/akmonengine/feather2d/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// ============================================================================
// Types
// ============================================================================

const nullNode = -1

var (
	// ErrCapacity is returned when the tree already holds its maximum number of proxies.
	ErrCapacity = errors.New("broadphase: proxy capacity reached")
	// ErrInvalidProxy is returned for ids that do not name a live proxy.
	ErrInvalidProxy = errors.New("broadphase: invalid proxy")
	// ErrCorrupt is returned by the validators when an invariant does not hold.
	ErrCorrupt = errors.New("broadphase: corrupt tree")
)

type treeNode[T any] struct {
	aabb    geom.AABB
	payload T

	// parent, or the next free node while the node is on the free list
	parent int
	child1 int
	child2 int

	// leaf = 0, free node = -1
	height int
	moved  bool
}

func (n *treeNode[T]) isLeaf() bool {
	return n.child1 == nullNode
}

// Tree is a dynamic AABB tree carrying a payload of type T per proxy.
// Proxy ids are node indices; they stay valid until the proxy is removed.
//
// A Tree is not safe for concurrent mutation. Concurrent queries are safe.
type Tree[T any] struct {
	root       int
	nodes      []treeNode[T]
	freeList   int
	proxyCount int

	capacity   int
	extension  geom.Real
	multiplier geom.Real
}

// Option configures a Tree.
type Option func(*options)

type options struct {
	capacity   int
	extension  geom.Real
	multiplier geom.Real
}

// WithCapacity limits the number of proxies. Zero means unlimited.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithExtension sets the margin added around every leaf AABB.
func WithExtension(margin geom.Real) Option {
	return func(o *options) {
		o.extension = margin
	}
}

// WithDisplaceMultiplier sets how far moved leaves are extended along their displacement.
func WithDisplaceMultiplier(m geom.Real) Option {
	return func(o *options) {
		o.multiplier = m
	}
}

// ============================================================================
// Constructor
// ============================================================================

// NewTree creates an empty tree.
func NewTree[T any](opts ...Option) *Tree[T] {
	o := options{extension: 0.1, multiplier: 2}
	for _, opt := range opts {
		opt(&o)
	}

	initial := 16
	if o.capacity > 0 {
		initial = min(initial, 2*o.capacity)
	}

	t := &Tree[T]{
		root:       nullNode,
		freeList:   nullNode,
		capacity:   o.capacity,
		extension:  o.extension,
		multiplier: o.multiplier,
	}
	t.grow(initial)
	return t
}

// grow appends n nodes to the free list.
func (t *Tree[T]) grow(n int) {
	start := len(t.nodes)
	for i := range n {
		t.nodes = append(t.nodes, treeNode[T]{
			parent: start + i + 1,
			child1: nullNode,
			child2: nullNode,
			height: -1,
		})
	}
	t.nodes[len(t.nodes)-1].parent = t.freeList
	t.freeList = start
}

func (t *Tree[T]) allocateNode() int {
	if t.freeList == nullNode {
		t.grow(max(len(t.nodes), 16))
	}

	id := t.freeList
	node := &t.nodes[id]
	t.freeList = node.parent
	*node = treeNode[T]{parent: nullNode, child1: nullNode, child2: nullNode}
	return id
}

func (t *Tree[T]) freeNode(id int) {
	t.nodes[id] = treeNode[T]{
		parent: t.freeList,
		child1: nullNode,
		child2: nullNode,
		height: -1,
	}
	t.freeList = id
}

func (t *Tree[T]) checkProxy(id int) error {
	if id < 0 || id >= len(t.nodes) || t.nodes[id].height != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidProxy, id)
	}
	return nil
}

// ============================================================================
// Proxies
// ============================================================================

// Insert adds a proxy for the tight box aabb and returns its id. The stored box is fattened.
func (t *Tree[T]) Insert(aabb geom.AABB, payload T) (int, error) {
	if t.capacity > 0 && t.proxyCount >= t.capacity {
		return nullNode, fmt.Errorf("%w: %d proxies", ErrCapacity, t.capacity)
	}

	id := t.allocateNode()
	node := &t.nodes[id]
	node.aabb = aabb.Fatten(t.extension)
	node.payload = payload
	node.height = 0
	node.moved = true

	t.insertLeaf(id)
	t.proxyCount++
	return id, nil
}

// Remove deletes a proxy.
func (t *Tree[T]) Remove(id int) error {
	if err := t.checkProxy(id); err != nil {
		return err
	}

	t.removeLeaf(id)
	t.freeNode(id)
	t.proxyCount--
	return nil
}

// Move updates a proxy for a new tight box. Nothing changes and false is returned while the
// stored fat box still contains aabb. Otherwise the proxy is reinserted with a fat box that is
// also stretched along the displacement, so that steady motion needs fewer reinsertions.
func (t *Tree[T]) Move(id int, aabb geom.AABB, displacement mgl64.Vec2) (bool, error) {
	if err := t.checkProxy(id); err != nil {
		return false, err
	}

	if t.nodes[id].aabb.Contains(aabb) {
		return false, nil
	}

	t.removeLeaf(id)

	node := &t.nodes[id]
	node.aabb = aabb.Fatten(t.extension).Displace(displacement.Mul(t.multiplier))
	node.moved = true

	t.insertLeaf(id)
	return true, nil
}

// Payload returns the payload of a proxy. Ids must come from Insert.
func (t *Tree[T]) Payload(id int) T {
	return t.nodes[id].payload
}

// SetPayload replaces the payload of a proxy.
func (t *Tree[T]) SetPayload(id int, payload T) {
	t.nodes[id].payload = payload
}

// FatAABB returns the stored box of a proxy.
func (t *Tree[T]) FatAABB(id int) geom.AABB {
	return t.nodes[id].aabb
}

// WasMoved reports whether the proxy was inserted or reinserted since ClearMoved.
func (t *Tree[T]) WasMoved(id int) bool {
	return t.nodes[id].moved
}

// ClearMoved resets the moved flag of a proxy.
func (t *Tree[T]) ClearMoved(id int) {
	t.nodes[id].moved = false
}

// ProxyCount returns the number of proxies.
func (t *Tree[T]) ProxyCount() int {
	return t.proxyCount
}

// NodeCount returns the number of allocated nodes, leaves and internal nodes.
func (t *Tree[T]) NodeCount() int {
	if t.proxyCount == 0 {
		return 0
	}
	return 2*t.proxyCount - 1
}

// Height returns the height of the tree. An empty tree has height 0, so does a single leaf.
func (t *Tree[T]) Height() int {
	if t.root == nullNode {
		return 0
	}
	return t.nodes[t.root].height
}

// ============================================================================
// Insertion, removal and balancing
// ============================================================================

func (t *Tree[T]) insertLeaf(leaf int) {
	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	// Find the best sibling for this node. Descending down to a leaf keeps the new parent at
	// height 1, which the single rotations of balance can always absorb.
	leafAABB := t.nodes[leaf].aabb
	index := t.root
	for !t.nodes[index].isLeaf() {
		node := &t.nodes[index]
		child1 := node.child1
		child2 := node.child2

		area := node.aabb.Perimeter()
		combinedArea := node.aabb.Union(leafAABB).Perimeter()

		// Minimum cost of pushing the leaf further down the tree.
		inheritanceCost := 2 * (combinedArea - area)

		cost1 := t.descendCost(child1, leafAABB) + inheritanceCost
		cost2 := t.descendCost(child2, leafAABB) + inheritanceCost

		if cost1 <= cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index

	// Create a new parent.
	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].aabb = leafAABB.Union(t.nodes[sibling].aabb)
	t.nodes[newParent].height = t.nodes[sibling].height + 1
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent != nullNode {
		// The sibling was not the root.
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		// The sibling was the root.
		t.root = newParent
	}

	// Walk back up the tree fixing heights and AABBs.
	t.refit(t.nodes[leaf].parent)
}

// descendCost is the cost of inserting a leaf below child.
func (t *Tree[T]) descendCost(child int, leafAABB geom.AABB) geom.Real {
	c := &t.nodes[child]
	combined := leafAABB.Union(c.aabb).Perimeter()
	if c.isLeaf() {
		return combined
	}
	return combined - c.aabb.Perimeter()
}

func (t *Tree[T]) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].child1
	if sibling == leaf {
		sibling = t.nodes[parent].child2
	}

	if grandParent != nullNode {
		// Destroy parent and connect sibling to grandParent.
		if t.nodes[grandParent].child1 == parent {
			t.nodes[grandParent].child1 = sibling
		} else {
			t.nodes[grandParent].child2 = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.freeNode(parent)

		t.refit(grandParent)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.freeNode(parent)
	}
}

// refit walks from index to the root, rebalancing and recomputing heights and boxes.
func (t *Tree[T]) refit(index int) {
	for index != nullNode {
		index = t.balance(index)

		node := &t.nodes[index]
		child1 := &t.nodes[node.child1]
		child2 := &t.nodes[node.child2]

		node.height = 1 + max(child1.height, child2.height)
		node.aabb = child1.aabb.Union(child2.aabb)

		index = node.parent
	}
}

// balance performs a left or right rotation if node A is imbalanced.
// Returns the new root index of the subtree.
func (t *Tree[T]) balance(iA int) int {
	A := &t.nodes[iA]
	if A.isLeaf() || A.height < 2 {
		return iA
	}

	iB := A.child1
	iC := A.child2
	B := &t.nodes[iB]
	C := &t.nodes[iC]

	balance := C.height - B.height

	// Rotate C up
	if balance > 1 {
		return t.rotateUp(iA, iC, iB, true)
	}

	// Rotate B up
	if balance < -1 {
		return t.rotateUp(iA, iB, iC, false)
	}

	return iA
}

// rotateUp promotes the taller child iUp of iA above it. The taller grandchild stays under iUp,
// the shorter one moves under iA next to iStay.
//
//	     A             Up
//	   /   \          /  \
//	Stay    Up  =>   A    F
//	       /  \     / \
//	      F    G  Stay G
func (t *Tree[T]) rotateUp(iA, iUp, iStay int, upIsChild2 bool) int {
	A := &t.nodes[iA]
	Up := &t.nodes[iUp]

	iF := Up.child1
	iG := Up.child2
	F := &t.nodes[iF]
	G := &t.nodes[iG]

	// Swap A and Up
	Up.child1 = iA
	Up.parent = A.parent
	A.parent = iUp

	// A's old parent should point to Up
	if Up.parent != nullNode {
		if t.nodes[Up.parent].child1 == iA {
			t.nodes[Up.parent].child1 = iUp
		} else {
			t.nodes[Up.parent].child2 = iUp
		}
	} else {
		t.root = iUp
	}

	// Keep the taller grandchild under Up.
	iKeep, iMove := iF, iG
	if F.height < G.height {
		iKeep, iMove = iG, iF
	}
	keep := &t.nodes[iKeep]
	moved := &t.nodes[iMove]

	Up.child2 = iKeep
	if upIsChild2 {
		A.child2 = iMove
	} else {
		A.child1 = iMove
	}
	moved.parent = iA

	stay := &t.nodes[iStay]
	A.aabb = stay.aabb.Union(moved.aabb)
	A.height = 1 + max(stay.height, moved.height)
	Up.aabb = A.aabb.Union(keep.aabb)
	Up.height = 1 + max(A.height, keep.height)

	return iUp
}

// ShiftOrigin translates every stored box by -newOrigin, for worlds recentered on a new origin.
func (t *Tree[T]) ShiftOrigin(newOrigin mgl64.Vec2) {
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		t.nodes[i].aabb = t.nodes[i].aabb.Translate(newOrigin.Mul(-1))
	}
}
