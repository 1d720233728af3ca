package metrics

import (
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// StoreStats is the slice of store.Store that the snapshot ticker
// needs. Declared here instead of importing internal/store directly
// so metrics stays the dependent, not the dependency.
type StoreStats interface {
	Len() int
	Cap1() int
	Cap2() int
	Rehashing() bool
	Checksum() uint64
}

// Snapshot is the point-in-time view served at /debug/info.
type Snapshot struct {
	Keys              int    `json:"keys"`
	PrimaryCapacity   int    `json:"primary_capacity"`
	SecondaryCapacity int    `json:"secondary_capacity"`
	Rehashing         bool   `json:"rehashing"`
	Checksum          uint64 `json:"checksum"`
	ConnectionsActive int64  `json:"connections_active"`
	TakenAtUnixNano   int64  `json:"taken_at_unix_nano"`
}

// Ticker periodically refreshes an atomically published Snapshot from
// a StoreStats source, using an injected clock so tests can control
// the refresh cadence deterministically instead of sleeping.
type Ticker struct {
	clock   clock.Clock
	store   StoreStats
	metrics *Collectors
	current atomic.Pointer[Snapshot]
	connFn  func() int64
}

// NewTicker builds a Ticker. connActive is called each refresh to read
// the current connection count.
func NewTicker(c clock.Clock, store StoreStats, m *Collectors, connActive func() int64) *Ticker {
	t := &Ticker{clock: c, store: store, metrics: m, connFn: connActive}
	t.refresh()
	return t
}

// Current returns the most recently published snapshot.
func (t *Ticker) Current() Snapshot {
	return *t.current.Load()
}

func (t *Ticker) refresh() {
	snap := &Snapshot{
		Keys:              t.store.Len(),
		PrimaryCapacity:   t.store.Cap1(),
		SecondaryCapacity: t.store.Cap2(),
		Rehashing:         t.store.Rehashing(),
		Checksum:          t.store.Checksum(),
		ConnectionsActive: t.connFn(),
		TakenAtUnixNano:   t.clock.Now().UnixNano(),
	}
	t.current.Store(snap)

	t.metrics.KeysTotal.Set(float64(snap.Keys))
	t.metrics.ConnectionsActive.Set(float64(snap.ConnectionsActive))
	if snap.Rehashing {
		t.metrics.RehashInProgress.Set(1)
	} else {
		t.metrics.RehashInProgress.Set(0)
	}
}

// Run refreshes the snapshot every interval until stop is closed.
func (t *Ticker) Run(stop <-chan struct{}, interval time.Duration) {
	ticker := t.clock.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.refresh()
		case <-stop:
			return
		}
	}
}
