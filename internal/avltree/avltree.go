// Package avltree implements a self-balancing binary search tree used
// as an ordered set — the secondary index that lets the store answer
// "list every key in ascending order" without a full table scan.
package avltree

import "cmp"

type node[T cmp.Ordered] struct {
	value  T
	height int
	left   *node[T]
	right  *node[T]
}

// Set is an ordered set of unique values of type T.
type Set[T cmp.Ordered] struct {
	root *node[T]
	size int
}

// New returns an empty ordered set.
func New[T cmp.Ordered]() *Set[T] {
	return &Set[T]{}
}

// Len returns the number of values in the set.
func (s *Set[T]) Len() int {
	return s.size
}

func leftHeight[T cmp.Ordered](n *node[T]) int {
	if n == nil || n.left == nil {
		return 0
	}
	return n.left.height
}

func rightHeight[T cmp.Ordered](n *node[T]) int {
	if n == nil || n.right == nil {
		return 0
	}
	return n.right.height
}

func updateHeight[T cmp.Ordered](n *node[T]) {
	lh, rh := leftHeight(n), rightHeight(n)
	if lh > rh {
		n.height = 1 + lh
	} else {
		n.height = 1 + rh
	}
}

func balanceFactor[T cmp.Ordered](n *node[T]) int {
	return leftHeight(n) - rightHeight(n)
}

// rotateRight and rotateLeft swap the subtree root's value with its
// child's and rearrange the child links below it, so the subtree root
// stays the same node and the parent's link to it remains valid after
// the rotation.
func rotateRight[T cmp.Ordered](n *node[T]) {
	left := n.left
	n.value, left.value = left.value, n.value
	n.left = left.left
	left.left = left.right
	left.right = n.right
	n.right = left
	updateHeight(left)
	updateHeight(n)
}

func rotateLeft[T cmp.Ordered](n *node[T]) {
	right := n.right
	n.value, right.value = right.value, n.value
	n.right = right.right
	right.right = right.left
	right.left = n.left
	n.left = right
	updateHeight(right)
	updateHeight(n)
}

func rebalance[T cmp.Ordered](n *node[T]) {
	updateHeight(n)
	bf := balanceFactor(n)
	if bf >= 2 {
		if balanceFactor(n.left) < 0 {
			rotateLeft(n.left)
		}
		rotateRight(n)
	} else if bf <= -2 {
		if balanceFactor(n.right) > 0 {
			rotateRight(n.right)
		}
		rotateLeft(n)
	}
}

// Insert adds value to the set, returning true if it was not already
// present.
func (s *Set[T]) Insert(value T) bool {
	var inserted bool
	s.root, inserted = insert(s.root, value)
	if inserted {
		s.size++
	}
	return inserted
}

func insert[T cmp.Ordered](n *node[T], value T) (*node[T], bool) {
	if n == nil {
		return &node[T]{value: value, height: 1}, true
	}
	var inserted bool
	switch {
	case value < n.value:
		n.left, inserted = insert(n.left, value)
	case value > n.value:
		n.right, inserted = insert(n.right, value)
	default:
		return n, false
	}
	if inserted {
		rebalance(n)
	}
	return n, inserted
}

// Contains reports whether value is in the set.
func (s *Set[T]) Contains(value T) bool {
	n := s.root
	for n != nil {
		switch {
		case value < n.value:
			n = n.left
		case value > n.value:
			n = n.right
		default:
			return true
		}
	}
	return false
}

// Delete removes value from the set, returning true if it was present.
func (s *Set[T]) Delete(value T) bool {
	var deleted bool
	s.root, deleted = deleteNode(s.root, value)
	if deleted {
		s.size--
	}
	return deleted
}

func deleteNode[T cmp.Ordered](n *node[T], value T) (*node[T], bool) {
	if n == nil {
		return nil, false
	}
	var deleted bool
	switch {
	case value < n.value:
		n.left, deleted = deleteNode(n.left, value)
	case value > n.value:
		n.right, deleted = deleteNode(n.right, value)
	default:
		deleted = true
		switch {
		case n.left == nil && n.right == nil:
			return nil, true
		case n.left == nil:
			return n.right, true
		case n.right == nil:
			return n.left, true
		default:
			successor := n.right
			for successor.left != nil {
				successor = successor.left
			}
			n.value = successor.value
			n.right, _ = deleteNode(n.right, successor.value)
		}
	}
	if deleted {
		rebalance(n)
	}
	return n, deleted
}

// All returns an in-order iterator over the set's values, ascending.
func (s *Set[T]) All() func(yield func(T) bool) {
	return func(yield func(T) bool) {
		var walk func(n *node[T]) bool
		walk = func(n *node[T]) bool {
			if n == nil {
				return true
			}
			if !walk(n.left) {
				return false
			}
			if !yield(n.value) {
				return false
			}
			return walk(n.right)
		}
		walk(s.root)
	}
}

// Values returns every value in the set, in ascending order.
func (s *Set[T]) Values() []T {
	out := make([]T, 0, s.size)
	for v := range s.All() {
		out = append(out, v)
	}
	return out
}
