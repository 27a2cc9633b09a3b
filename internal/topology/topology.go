// Package topology maintains the lane set and derives, from lane
// insertion order alone, the turn-destination mapping and the
// conflict relation between movements (§3, §4.1 of the design).
package topology

import (
	"sync"

	"signalctl/pkg/models"
)

// Topology is the functionally-derived view of the intersection: the
// lane ordering, the per-movement destination lane, and the conflict
// relation between movements. It is cheap to recompute in full, so it
// is rebuilt from scratch on every change to the lane set rather than
// patched incrementally — this keeps it from ever drifting out of
// sync with the lane ordering.
type Topology struct {
	mu           sync.RWMutex
	lanes        []string
	index        map[string]int
	turnMap      map[models.MovementKey]string
	conflicts    map[models.MovementKey]map[models.MovementKey]bool
	exitCapacity map[string]int

	defaultExitCapacity int
}

// New creates an empty topology with the given default per-lane exit
// capacity (§6 exit_capacity_default).
func New(defaultExitCapacity int) *Topology {
	return &Topology{
		index:               map[string]int{},
		turnMap:              map[models.MovementKey]string{},
		conflicts:            map[models.MovementKey]map[models.MovementKey]bool{},
		exitCapacity:         map[string]int{},
		defaultExitCapacity:  defaultExitCapacity,
	}
}

// EnsureLane idempotently inserts a lane. New lanes are appended at
// the end of the insertion order (I4: lanes are never removed).
func (t *Topology) EnsureLane(laneID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.index[laneID]; ok {
		return
	}
	t.index[laneID] = len(t.lanes)
	t.lanes = append(t.lanes, laneID)
	t.exitCapacity[laneID] = t.defaultExitCapacity
}

// Lanes returns the lane set in insertion order.
func (t *Topology) Lanes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.lanes))
	copy(out, t.lanes)
	return out
}

// NumLanes returns the number of distinct lanes currently known.
func (t *Topology) NumLanes() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.lanes)
}

// ExitCapacity returns the configured exit capacity for a lane.
func (t *Topology) ExitCapacity(laneID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.exitCapacity[laneID]
}

// Rebuild recomputes turnMap and conflicts from the current lane
// ordering. Must be called after EnsureLane and before any choosing
// happens this cycle (§4.1).
func (t *Topology) Rebuild() {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.lanes)
	t.turnMap = make(map[models.MovementKey]string, n*3)
	if n == 0 {
		t.conflicts = map[models.MovementKey]map[models.MovementKey]bool{}
		return
	}
	for i, lane := range t.lanes {
		t.turnMap[models.MovementKey{Lane: lane, Movement: models.Straight}] = t.lanes[(i+n/2)%n]
		t.turnMap[models.MovementKey{Lane: lane, Movement: models.Left}] = t.lanes[(i-1+n)%n]
		t.turnMap[models.MovementKey{Lane: lane, Movement: models.Right}] = t.lanes[(i+1)%n]
	}

	conflicts := map[models.MovementKey]map[models.MovementKey]bool{}
	addConflict := func(a, b models.MovementKey) {
		if conflicts[a] == nil {
			conflicts[a] = map[models.MovementKey]bool{}
		}
		conflicts[a][b] = true
	}

	var all []models.MovementKey
	for _, lane := range t.lanes {
		for _, m := range models.Movements {
			all = append(all, models.MovementKey{Lane: lane, Movement: m})
		}
	}
	for _, a := range all {
		for _, b := range all {
			if a == b {
				continue
			}
			conflict := false
			if a.Lane == b.Lane {
				conflict = true
			} else if t.turnMap[a] == t.turnMap[b] {
				conflict = true
			}
			if conflict {
				addConflict(a, b)
			}
		}
	}
	t.conflicts = conflicts
}

// Destination returns the destination lane for a movement and whether
// it is defined (false only when the topology has zero lanes).
func (t *Topology) Destination(key models.MovementKey) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	dest, ok := t.turnMap[key]
	return dest, ok
}

// ConflictsWith reports whether b is in the conflict relation of a.
// The relation is symmetric by construction.
func (t *Topology) ConflictsWith(a, b models.MovementKey) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conflicts[a][b]
}

// Compatible implements movements_compatible (§4.5): a and b are
// distinct, not mutually conflicting, and both resolve to a defined
// destination that isn't blocked per isBlocked.
func (t *Topology) Compatible(a, b models.MovementKey, isBlocked func(lane string) bool) bool {
	if a == b {
		return false
	}
	if t.ConflictsWith(a, b) || t.ConflictsWith(b, a) {
		return false
	}
	da, aok := t.Destination(a)
	db, bok := t.Destination(b)
	if !aok || !bok {
		return false
	}
	if isBlocked(da) || isBlocked(db) {
		return false
	}
	return true
}
