// Package scalablemap implements a two-table, progressively rehashing
// hash map on top of internal/hashtable. A single Table never grows:
// once its load factor is reached, a larger Table is allocated and
// every subsequent call migrates a bounded number of nodes from the
// old table into the new one, instead of stopping the world to move
// everything at once.
package scalablemap

import "github.com/rpcpool/redicache/internal/hashtable"

// LoadFactor is the average chain length at which a resize begins.
const LoadFactor = 8

// ResizingWork bounds how many nodes a single help-along call migrates.
const ResizingWork = 128

// ScalableMap holds a primary table (t1, always present, always the
// target of new inserts) and an optional secondary table (t2, present
// only while a resize is in progress and always the migration source).
type ScalableMap[T any] struct {
	t1            *hashtable.Table[T]
	t2            *hashtable.Table[T]
	migrateCursor int
}

// New builds a map with the given initial capacity, which must be a
// positive power of two.
func New[T any](initialCap int) (*ScalableMap[T], error) {
	t1, err := hashtable.New[T](initialCap)
	if err != nil {
		return nil, ErrInitialCapacity
	}
	return &ScalableMap[T]{t1: t1}, nil
}

// Rehashing reports whether a resize is currently in progress.
func (m *ScalableMap[T]) Rehashing() bool {
	return m.t2 != nil
}

// Size returns the total number of entries across both tables.
func (m *ScalableMap[T]) Size() int {
	if m.t2 == nil {
		return m.t1.Size()
	}
	return m.t1.Size() + m.t2.Size()
}

// Cap1 and Cap2 expose the two tables' bucket counts, chiefly for
// diagnostics and tests. Cap2 is 0 when no resize is in progress.
func (m *ScalableMap[T]) Cap1() int { return m.t1.Cap() }
func (m *ScalableMap[T]) Cap2() int {
	if m.t2 == nil {
		return 0
	}
	return m.t2.Cap()
}

// Insert always inserts into t1, the table currently receiving new
// writes — during a resize that is the new, larger table, so every
// freshly inserted node lands somewhere it will never need migrating
// from. It performs no deduplication; the caller must have already
// decided a node with this logical key does not exist.
func (m *ScalableMap[T]) Insert(node *hashtable.Node[T]) {
	m.helpResizing()
	m.t1.Insert(node)
	m.maybeStartResizing()
}

// Lookup checks t1 first, then t2 if a resize is in progress.
func (m *ScalableMap[T]) Lookup(code uint64, cmp func(T) bool) *hashtable.Node[T] {
	m.helpResizing()
	if n := m.t1.Lookup(code, cmp); n != nil {
		return n
	}
	if m.t2 != nil {
		return m.t2.Lookup(code, cmp)
	}
	return nil
}

// Pop detaches and returns the matching node from whichever table
// holds it.
func (m *ScalableMap[T]) Pop(code uint64, cmp func(T) bool) *hashtable.Node[T] {
	m.helpResizing()
	if n := m.t1.Detach(code, cmp); n != nil {
		return n
	}
	if m.t2 != nil {
		return m.t2.Detach(code, cmp)
	}
	return nil
}

// maybeStartResizing promotes t1 to t2 and allocates a fresh, larger
// t1 once the load factor is reached. No-op while already resizing.
func (m *ScalableMap[T]) maybeStartResizing() {
	if m.t2 != nil {
		return
	}
	if m.t1.Size() < m.t1.Cap()*LoadFactor {
		return
	}
	bigger, err := hashtable.New[T](m.t1.Cap() * 2)
	if err != nil {
		// t1.Cap() is already a validated power of two, so doubling it
		// cannot fail; a failure here means Table's invariant broke.
		panic(err)
	}
	m.t2 = m.t1
	m.t1 = bigger
	m.migrateCursor = 0
}

// helpResizing migrates up to ResizingWork nodes out of t2 into t1,
// advancing the migration cursor, and retires t2 once it is drained.
func (m *ScalableMap[T]) helpResizing() {
	if m.t2 == nil {
		return
	}
	nodes, next := m.t2.TakeSome(m.migrateCursor, ResizingWork)
	for _, n := range nodes {
		m.t1.Insert(n)
	}
	m.migrateCursor = next
	if m.t2.Size() == 0 {
		m.t2 = nil
		m.migrateCursor = 0
	}
}
