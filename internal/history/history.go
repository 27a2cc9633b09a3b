// Package history keeps a bounded, in-memory record of past cycle
// decisions — a ring buffer of the active phase and the cycle
// sequence number it fired on. It backs fairness diagnostics (P4),
// exposed through Controller.History.
package history

import "signalctl/pkg/models"

// Record is one cycle's outcome.
type Record struct {
	Sequence int64
	Phase    models.ActivePhase
}

// Ring is a fixed-capacity history of the most recent cycles.
type Ring struct {
	capacity int
	seq      int64
	entries  []Record
}

// NewRing creates a ring buffer holding at most capacity records.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{capacity: capacity}
}

// Append records a completed cycle, evicting the oldest entry if the
// ring is full.
func (r *Ring) Append(phase models.ActivePhase) Record {
	r.seq++
	rec := Record{Sequence: r.seq, Phase: phase}
	r.entries = append(r.entries, rec)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}
	return rec
}

// Recent returns the retained records, oldest first.
func (r *Ring) Recent() []Record {
	out := make([]Record, len(r.entries))
	copy(out, r.entries)
	return out
}

// CyclesSinceGreen returns how many of the most recent cycles (most
// recent first) have passed since key last appeared in an active
// phase, or -1 if it never has within the retained window.
func (r *Ring) CyclesSinceGreen(key models.MovementKey) int {
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].Phase.Contains(key) {
			return len(r.entries) - 1 - i
		}
	}
	return -1
}
