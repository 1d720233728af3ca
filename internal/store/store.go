// Package store implements the key-value semantics (GET/SET/DEL) on
// top of internal/scalablemap, plus an ascending-key secondary index
// backed by internal/avltree so the server can answer KEYS without a
// full bucket scan.
package store

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
	"github.com/rpcpool/redicache/internal/avltree"
	"github.com/rpcpool/redicache/internal/hashtable"
	"github.com/rpcpool/redicache/internal/scalablemap"
)

// defaultInitialCapacity is the starting bucket count for a fresh
// store's primary table.
const defaultInitialCapacity = 4

// Store is a single-threaded, in-memory key-value table. It is not
// safe for concurrent use — callers (the reactor loop) are expected
// to serialize access.
type Store struct {
	// NullOnMiss controls GET's response when the key is absent: true
	// returns the wire Null value, false returns the legacy
	// "not found" string. Defaults to false for wire compatibility.
	NullOnMiss bool

	entries *scalablemap.ScalableMap[*Record]
	keys    *avltree.Set[string]
}

// New builds an empty store.
func New() *Store {
	m, err := scalablemap.New[*Record](defaultInitialCapacity)
	if err != nil {
		// defaultInitialCapacity is a constant power of two.
		panic(err)
	}
	return &Store{
		entries: m,
		keys:    avltree.New[string](),
	}
}

func matchKey(key []byte) func(*Record) bool {
	return func(r *Record) bool { return bytes.Equal(r.Key, key) }
}

// Get returns the current value for key and whether it was found.
func (s *Store) Get(key []byte) ([]byte, bool) {
	code := FNV1a32(key)
	n := s.entries.Lookup(code, matchKey(key))
	if n == nil {
		return nil, false
	}
	return n.Value().Value, true
}

// Set stores value under key, overwriting any existing value, and
// reports whether the key already existed.
func (s *Store) Set(key, value []byte) bool {
	code := FNV1a32(key)
	if n := s.entries.Lookup(code, matchKey(key)); n != nil {
		n.Value().Value = cloneBytes(value)
		return true
	}
	rec := &Record{Key: cloneBytes(key), Value: cloneBytes(value)}
	s.entries.Insert(hashtable.NewNode(code, rec))
	s.keys.Insert(string(key))
	return false
}

// Del removes key, reporting whether it was present.
func (s *Store) Del(key []byte) bool {
	code := FNV1a32(key)
	n := s.entries.Pop(code, matchKey(key))
	if n == nil {
		return false
	}
	s.keys.Delete(string(key))
	return true
}

// Len returns the number of keys currently stored.
func (s *Store) Len() int {
	return s.keys.Len()
}

// Cap1, Cap2 and Rehashing expose the underlying map's resize state
// for diagnostics and metrics.
func (s *Store) Cap1() int       { return s.entries.Cap1() }
func (s *Store) Cap2() int       { return s.entries.Cap2() }
func (s *Store) Rehashing() bool { return s.entries.Rehashing() }

// KeySnapshot returns every key currently stored, in ascending order —
// the payload for the KEYS command.
func (s *Store) KeySnapshot() []string {
	return s.keys.Values()
}

// Checksum returns a non-cryptographic diagnostic digest over the
// ascending key snapshot. It has no bearing on bucket placement or
// command semantics; it exists purely so /debug/info can cheaply
// detect whether two snapshots taken moments apart changed at all.
func (s *Store) Checksum() uint64 {
	digest := xxhash.New()
	for _, k := range s.keys.Values() {
		_, _ = digest.WriteString(k)
		_, _ = digest.Write([]byte{0})
	}
	return digest.Sum64()
}
