package hashtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	_, err := New[string](3)
	require.ErrorIs(t, err, ErrNotPowerOfTwo)

	_, err = New[string](0)
	require.ErrorIs(t, err, ErrNotPowerOfTwo)

	tbl, err := New[string](8)
	require.NoError(t, err)
	assert.Equal(t, 8, tbl.Cap())
}

func byVal(want string) func(string) bool {
	return func(got string) bool { return got == want }
}

func TestInsertLookupDetach(t *testing.T) {
	tbl, err := New[string](4)
	require.NoError(t, err)

	n1 := NewNode(uint64(1), "one")
	n2 := NewNode(uint64(5), "five") // same bucket as n1 under mask 3
	tbl.Insert(n1)
	tbl.Insert(n2)
	assert.Equal(t, 2, tbl.Size())

	found := tbl.Lookup(5, byVal("five"))
	require.NotNil(t, found)
	assert.Equal(t, "five", found.Value())

	assert.Nil(t, tbl.Lookup(5, byVal("missing")))

	detached := tbl.Detach(1, byVal("one"))
	require.NotNil(t, detached)
	assert.Equal(t, 1, tbl.Size())
	assert.Nil(t, tbl.Lookup(1, byVal("one")))

	// n2 must still be reachable after n1 was unlinked from the same bucket.
	assert.NotNil(t, tbl.Lookup(5, byVal("five")))
}

func TestInsertDoesNotDedup(t *testing.T) {
	tbl, err := New[string](4)
	require.NoError(t, err)

	tbl.Insert(NewNode(uint64(2), "a"))
	tbl.Insert(NewNode(uint64(2), "a"))
	assert.Equal(t, 2, tbl.Size())
}

func TestDetachMissingReturnsNil(t *testing.T) {
	tbl, err := New[string](4)
	require.NoError(t, err)
	assert.Nil(t, tbl.Detach(9, byVal("nope")))
}

func TestTakeAllEmptiesTable(t *testing.T) {
	tbl, err := New[int](4)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		tbl.Insert(NewNode(uint64(i), i))
	}
	nodes := tbl.TakeAll()
	assert.Len(t, nodes, 10)
	assert.Equal(t, 0, tbl.Size())
	assert.Nil(t, tbl.Lookup(3, func(v int) bool { return v == 3 }))
}

func TestTakeSomeSpreadsAcrossCalls(t *testing.T) {
	tbl, err := New[int](4)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		tbl.Insert(NewNode(uint64(i), i))
	}

	total := 0
	cursor := 0
	for tbl.Size() > 0 {
		nodes, next := tbl.TakeSome(cursor, 2)
		total += len(nodes)
		cursor = next
	}
	assert.Equal(t, 10, total)
	assert.Equal(t, 0, tbl.Size())
}
