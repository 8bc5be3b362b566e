// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package detector

import (
	"time"

	"grimm.is/scanwall/internal/clock"
	"grimm.is/scanwall/internal/procnet"
)

// DefaultWindowSize is six snapshots, one minute at the default interval.
const DefaultWindowSize = 6

// Pair is one outbound (peer, local socket) observation.
type Pair struct {
	PeerIP string
	Local  string
}

// Snapshot is the set of unique pairs seen during one poll interval.
type Snapshot struct {
	Seq        uint64
	CapturedAt time.Time
	Pairs      map[Pair]struct{}
}

// Len returns the number of unique pairs.
func (s Snapshot) Len() int { return len(s.Pairs) }

// WindowStore is a fixed-capacity FIFO of snapshots, oldest first.
// It is not safe for concurrent use.
type WindowStore struct {
	capacity int
	clock    clock.Clock
	nextSeq  uint64
	entries  []Snapshot
}

// NewWindowStore returns a store holding at most capacity snapshots.
// capacity below 1 is treated as 1. A nil clk uses the process clock.
func NewWindowStore(capacity int, clk clock.Clock) *WindowStore {
	if capacity < 1 {
		capacity = 1
	}
	if clk == nil {
		clk = clock.Default()
	}
	return &WindowStore{
		capacity: capacity,
		clock:    clk,
		entries:  make([]Snapshot, 0, capacity),
	}
}

// Insert records the outbound records of one interval.
//
// With evictOldest set, the oldest snapshot is removed first. At most one
// snapshot is removed per call; a full store drops its oldest entry even
// when evictOldest is false so the capacity bound always holds.
func (w *WindowStore) Insert(records []procnet.ConnectionRecord, evictOldest bool) {
	snap := Snapshot{
		Seq:        w.nextSeq,
		CapturedAt: w.clock.Now(),
		Pairs:      make(map[Pair]struct{}),
	}
	w.nextSeq++

	for _, r := range records {
		if r.Direction != procnet.Outbound {
			continue
		}
		snap.Pairs[Pair{PeerIP: r.Peer.IP, Local: r.Local.String()}] = struct{}{}
	}

	if len(w.entries) > 0 && (evictOldest || len(w.entries) >= w.capacity) {
		w.entries[0] = Snapshot{}
		w.entries = w.entries[1:]
	}
	w.entries = append(w.entries, snap)
}

// Snapshots returns the retained snapshots, oldest first.
func (w *WindowStore) Snapshots() []Snapshot {
	return append([]Snapshot(nil), w.entries...)
}

func (w *WindowStore) Len() int      { return len(w.entries) }
func (w *WindowStore) Capacity() int { return w.capacity }

// Full reports whether the next insert must evict.
func (w *WindowStore) Full() bool { return len(w.entries) >= w.capacity }
