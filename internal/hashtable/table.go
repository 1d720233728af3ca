package hashtable

import "fmt"

// Table is a single fixed-capacity bucket array of singly-linked
// chains. Capacity is always a positive power of two so bucket
// selection is a mask rather than a modulo.
type Table[T any] struct {
	buckets []*Node[T]
	mask    uint64
	size    int
}

// New allocates a table with n buckets. n must be a power of two.
func New[T any](n int) (*Table[T], error) {
	if n <= 0 || n&(n-1) != 0 {
		return nil, ErrNotPowerOfTwo
	}
	return &Table[T]{
		buckets: make([]*Node[T], n),
		mask:    uint64(n - 1),
	}, nil
}

// Cap returns the number of buckets.
func (t *Table[T]) Cap() int {
	return len(t.buckets)
}

// Size returns the number of nodes reachable from the table.
func (t *Table[T]) Size() int {
	return t.size
}

// Mask returns the bucket-index mask (capacity - 1).
func (t *Table[T]) Mask() uint64 {
	return t.mask
}

func (t *Table[T]) bucketIndex(code uint64) uint64 {
	return code & t.mask
}

// Insert prepends node to the bucket at node.Code()&mask and
// increments size. It does not check for an existing node with the
// same logical key — the caller is responsible for a lookup-before-
// insert when duplicate keys must be rejected or updated in place.
func (t *Table[T]) Insert(node *Node[T]) {
	idx := t.bucketIndex(node.code)
	node.next = t.buckets[idx]
	t.buckets[idx] = node
	t.size++
}

// Lookup scans the bucket chain at code&mask and returns the first
// node for which cmp(node.Value()) is true, or nil.
func (t *Table[T]) Lookup(code uint64, cmp func(T) bool) *Node[T] {
	if len(t.buckets) == 0 {
		return nil
	}
	for n := t.buckets[t.bucketIndex(code)]; n != nil; n = n.next {
		if cmp(n.val) {
			return n
		}
	}
	return nil
}

// Detach unlinks and returns the first node at code&mask for which
// cmp(node.Value()) is true, decrementing size. It returns nil if no
// such node is found.
func (t *Table[T]) Detach(code uint64, cmp func(T) bool) *Node[T] {
	if len(t.buckets) == 0 {
		return nil
	}
	idx := t.bucketIndex(code)
	var prev *Node[T]
	for n := t.buckets[idx]; n != nil; n = n.next {
		if cmp(n.val) {
			if prev == nil {
				t.buckets[idx] = n.next
			} else {
				prev.next = n.next
			}
			n.next = nil
			t.size--
			return n
		}
		prev = n
	}
	return nil
}

// TakeAll detaches every node from the table, in bucket order, and
// returns them. The table is left empty (size 0, same capacity).
func (t *Table[T]) TakeAll() []*Node[T] {
	nodes := make([]*Node[T], 0, t.size)
	for i, head := range t.buckets {
		for n := head; n != nil; {
			next := n.next
			n.next = nil
			nodes = append(nodes, n)
			n = next
		}
		t.buckets[i] = nil
	}
	t.size = 0
	return nodes
}

// TakeSome detaches up to max nodes starting at cursor (a bucket
// index), returning the detached nodes and the bucket index to resume
// from on the next call. Used by the scalable map to spread migration
// work across many calls instead of draining a table in one shot.
func (t *Table[T]) TakeSome(cursor int, max int) (nodes []*Node[T], nextCursor int) {
	if t.size == 0 {
		return nil, 0
	}
	nodes = make([]*Node[T], 0, max)
	i := cursor
	for i < len(t.buckets) && len(nodes) < max {
		for n := t.buckets[i]; n != nil; {
			next := n.next
			n.next = nil
			nodes = append(nodes, n)
			t.size--
			n = next
			if len(nodes) >= max {
				t.buckets[i] = n
				return nodes, i
			}
		}
		t.buckets[i] = nil
		i++
	}
	if i >= len(t.buckets) {
		i = 0
	}
	return nodes, i
}

// DebugString renders the table for ad hoc inspection in tests: its
// capacity, its size, and the node codes of each non-empty bucket
// chain. Payloads are not dumped.
func (t *Table[T]) DebugString() string {
	return fmt.Sprintf("hashtable.Table{cap=%d size=%d buckets=%s}",
		t.Cap(), t.Size(), debugBuckets(t.buckets))
}
