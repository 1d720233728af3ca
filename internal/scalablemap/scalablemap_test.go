package scalablemap

import (
	"fmt"
	"testing"

	"github.com/rpcpool/redicache/internal/hashtable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	key string
	val int
}

func codeFor(key string) uint64 {
	var h uint64 = 1469598103934665603
	for i := 0; i < len(key); i++ {
		h ^= uint64(key[i])
		h *= 1099511628211
	}
	return h
}

func byKey(key string) func(entry) bool {
	return func(e entry) bool { return e.key == key }
}

func TestNewRejectsBadCapacity(t *testing.T) {
	_, err := New[entry](3)
	require.ErrorIs(t, err, ErrInitialCapacity)
}

func TestInsertLookupPop(t *testing.T) {
	m, err := New[entry](4)
	require.NoError(t, err)

	m.Insert(hashtable.NewNode(codeFor("a"), entry{"a", 1}))
	m.Insert(hashtable.NewNode(codeFor("b"), entry{"b", 2}))
	assert.Equal(t, 2, m.Size())

	found := m.Lookup(codeFor("a"), byKey("a"))
	require.NotNil(t, found)
	assert.Equal(t, 1, found.Value().val)

	popped := m.Pop(codeFor("a"), byKey("a"))
	require.NotNil(t, popped)
	assert.Equal(t, 1, m.Size())
	assert.Nil(t, m.Lookup(codeFor("a"), byKey("a")))
}

// TestPathologicalInsertionStreamTriggersRehash inserts enough entries
// to blow past the load factor many times over and checks that every
// key remains reachable throughout, regardless of how many resizes
// have happened or how far along the current one is.
func TestPathologicalInsertionStreamTriggersRehash(t *testing.T) {
	m, err := New[entry](4)
	require.NoError(t, err)

	const n = 5000
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%d", i)
		m.Insert(hashtable.NewNode(codeFor(key), entry{key, i}))

		// Lookup after any prefix of a rehash must still succeed for
		// every key inserted so far.
		if i%137 == 0 {
			for j := 0; j <= i; j += 31 {
				k := fmt.Sprintf("key-%d", j)
				found := m.Lookup(codeFor(k), byKey(k))
				require.NotNilf(t, found, "key %s missing at insertion step %d", k, i)
			}
		}
	}

	assert.Equal(t, n, m.Size())
	assert.Greater(t, m.Cap1(), 4)

	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%d", i)
		found := m.Lookup(codeFor(key), byKey(key))
		require.NotNilf(t, found, "key %s missing after full stream", key)
		assert.Equal(t, i, found.Value().val)
	}
}

func TestResizeDrainsSecondTable(t *testing.T) {
	m, err := New[entry](4)
	require.NoError(t, err)

	// The 32nd insert brings t1 to 4*LoadFactor entries and starts a resize.
	for i := 0; i < 32; i++ {
		key := fmt.Sprintf("k%d", i)
		m.Insert(hashtable.NewNode(codeFor(key), entry{key, i}))
	}
	require.True(t, m.Rehashing(), "expected a resize to have started")

	// Keep calling Lookup/Insert until migration work finishes it off.
	for i := 0; i < 100 && m.Rehashing(); i++ {
		m.Lookup(codeFor("k0"), byKey("k0"))
	}
	assert.False(t, m.Rehashing())
	assert.Equal(t, 0, m.Cap2())
}
