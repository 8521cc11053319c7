package broadphase

import (
	"errors"
	"fmt"

	"github.com/akmonengine/feather2d/geom"
)

// ValidateStructure checks parent links, leaf shapes, heights and the AVL balance of every node.
func (t *Tree[T]) ValidateStructure() error {
	if t.root == nullNode {
		return nil
	}
	if t.nodes[t.root].parent != nullNode {
		return fmt.Errorf("%w: root %d has a parent", ErrCorrupt, t.root)
	}
	return t.validateStructure(t.root)
}

func (t *Tree[T]) validateStructure(index int) error {
	node := &t.nodes[index]
	if node.height < 0 {
		return fmt.Errorf("%w: node %d is on the free list", ErrCorrupt, index)
	}

	if node.isLeaf() {
		if node.child2 != nullNode || node.height != 0 {
			return fmt.Errorf("%w: leaf %d has child %d, height %d", ErrCorrupt, index, node.child2, node.height)
		}
		return nil
	}

	child1, child2 := node.child1, node.child2
	if child2 == nullNode {
		return fmt.Errorf("%w: node %d has a single child", ErrCorrupt, index)
	}
	if t.nodes[child1].parent != index || t.nodes[child2].parent != index {
		return fmt.Errorf("%w: children of node %d do not point back to it", ErrCorrupt, index)
	}

	h1 := t.nodes[child1].height
	h2 := t.nodes[child2].height
	if node.height != 1+max(h1, h2) {
		return fmt.Errorf("%w: node %d has height %d, want %d", ErrCorrupt, index, node.height, 1+max(h1, h2))
	}
	if balance := h2 - h1; balance < -1 || balance > 1 {
		return fmt.Errorf("%w: node %d has balance %d", ErrCorrupt, index, balance)
	}

	if err := t.validateStructure(child1); err != nil {
		return err
	}
	return t.validateStructure(child2)
}

// ValidateMetrics checks that every internal box is the union of its children's boxes and that
// the leaf count matches the proxy count.
func (t *Tree[T]) ValidateMetrics() error {
	leaves, err := t.validateMetrics(t.root)
	if err != nil {
		return err
	}
	if leaves != t.proxyCount {
		return fmt.Errorf("%w: %d leaves for %d proxies", ErrCorrupt, leaves, t.proxyCount)
	}
	return nil
}

func (t *Tree[T]) validateMetrics(index int) (int, error) {
	if index == nullNode {
		return 0, nil
	}

	node := &t.nodes[index]
	if node.isLeaf() {
		return 1, nil
	}

	union := t.nodes[node.child1].aabb.Union(t.nodes[node.child2].aabb)
	if union != node.aabb {
		return 0, fmt.Errorf("%w: node %d box %v is not the union %v", ErrCorrupt, index, node.aabb, union)
	}

	n1, err := t.validateMetrics(node.child1)
	if err != nil {
		return 0, err
	}
	n2, err := t.validateMetrics(node.child2)
	if err != nil {
		return 0, err
	}
	return n1 + n2, nil
}

// Validate runs every check, including the free list accounting.
func (t *Tree[T]) Validate() error {
	var errs []error
	errs = append(errs, t.ValidateStructure(), t.ValidateMetrics())

	free := 0
	for index := t.freeList; index != nullNode; index = t.nodes[index].parent {
		free++
		if free > len(t.nodes) {
			errs = append(errs, fmt.Errorf("%w: free list cycle", ErrCorrupt))
			break
		}
	}
	if used := len(t.nodes) - free; used != t.NodeCount() {
		errs = append(errs, fmt.Errorf("%w: %d nodes in use, want %d", ErrCorrupt, used, t.NodeCount()))
	}

	if h := t.computeHeight(t.root); h != t.Height() {
		errs = append(errs, fmt.Errorf("%w: computed height %d, stored %d", ErrCorrupt, h, t.Height()))
	}

	return errors.Join(errs...)
}

func (t *Tree[T]) computeHeight(index int) int {
	if index == nullNode {
		return 0
	}
	node := &t.nodes[index]
	if node.isLeaf() {
		return 0
	}
	return 1 + max(t.computeHeight(node.child1), t.computeHeight(node.child2))
}

// MaxBalance returns the largest height difference between two siblings.
func (t *Tree[T]) MaxBalance() int {
	maxBalance := 0
	for i := range t.nodes {
		node := &t.nodes[i]
		if node.height <= 1 {
			continue
		}
		balance := geom.Abs(t.nodes[node.child2].height - t.nodes[node.child1].height)
		maxBalance = max(maxBalance, balance)
	}
	return maxBalance
}

// AreaRatio returns the summed perimeter of all nodes over the perimeter of the root, a
// measure of tree quality: lower is better.
func (t *Tree[T]) AreaRatio() geom.Real {
	if t.root == nullNode {
		return 0
	}

	rootArea := t.nodes[t.root].aabb.Perimeter()
	var totalArea geom.Real
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		totalArea += t.nodes[i].aabb.Perimeter()
	}
	return totalArea / rootArea
}
