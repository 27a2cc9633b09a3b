// Package queuestate owns the per-(lane, movement) counters: the
// normal and emergency queue sizes, the starvation counter, and the
// current light (§3 LaneState, §4.7 commit step).
package queuestate

import (
	"signalctl/pkg/models"
)

// State is the committed queue bookkeeping for every known
// (lane, movement) pair. The controller mutates a scratch copy during
// the flow model and commits it back here key by key with Set (§4.7,
// §9 scratch/commit).
type State struct {
	lanes map[string]map[models.Movement]*models.LaneState
}

// New creates an empty queue state.
func New() *State {
	return &State{lanes: map[string]map[models.Movement]*models.LaneState{}}
}

// EnsureLane creates the three zeroed movement slots for a lane if
// they don't already exist.
func (s *State) EnsureLane(laneID string) {
	if _, ok := s.lanes[laneID]; ok {
		return
	}
	slots := map[models.Movement]*models.LaneState{}
	for _, m := range models.Movements {
		slots[m] = &models.LaneState{Light: models.Red}
	}
	s.lanes[laneID] = slots
}

// Get returns the current state for a key, or zero value if unknown.
func (s *State) Get(key models.MovementKey) models.LaneState {
	slots, ok := s.lanes[key.Lane]
	if !ok {
		return models.LaneState{}
	}
	st, ok := slots[key.Movement]
	if !ok {
		return models.LaneState{}
	}
	return *st
}

// Set replaces the state stored at key.
func (s *State) Set(key models.MovementKey, val models.LaneState) {
	s.EnsureLane(key.Lane)
	*s.lanes[key.Lane][key.Movement] = val
}

// Ingest applies one snapshot entry's counts: missing movement keys
// keep their prior normal count; missing emergency keys reset to
// zero. Negative counts and unrecognised movement names are rejected
// at this boundary and the affected field is simply skipped (§7
// invalid input handling).
func (s *State) Ingest(entry models.SnapshotEntry) {
	s.EnsureLane(entry.LaneID)
	for _, m := range models.Movements {
		key := models.MovementKey{Lane: entry.LaneID, Movement: m}
		st := s.Get(key)
		if v, ok := entry.Movements[m]; ok && v >= 0 {
			st.Normal = v
		}
		if v, ok := entry.Emergency[m]; ok && v >= 0 {
			st.Emergency = v
		} else {
			st.Emergency = 0
		}
		s.Set(key, st)
	}
}

// Flat returns a snapshot of every known MovementKey's state, keyed
// for the chooser and flow model to iterate over. Iteration order
// (lane insertion order, then Straight/Left/Right) must come from the
// caller-supplied lane order — Flat itself returns a map since its
// consumers iterate it in their own deterministic orders.
func (s *State) Flat() map[models.MovementKey]models.LaneState {
	out := make(map[models.MovementKey]models.LaneState, len(s.lanes)*3)
	for lane, slots := range s.lanes {
		for m, st := range slots {
			out[models.MovementKey{Lane: lane, Movement: m}] = *st
		}
	}
	return out
}

// TotalQueued sums normal + emergency across all three movements of a
// lane — the quantity I5 tests against exit capacity.
func (s *State) TotalQueued(laneID string) int {
	slots, ok := s.lanes[laneID]
	if !ok {
		return 0
	}
	total := 0
	for _, st := range slots {
		total += st.Normal + st.Emergency
	}
	return total
}

// SetAllRed sets every known movement's light to Red; the first step
// of activating a new phase (§4.8 step 4).
func (s *State) SetAllRed() {
	for _, slots := range s.lanes {
		for _, st := range slots {
			st.Light = models.Red
		}
	}
}

// SetLight sets a single movement's light.
func (s *State) SetLight(key models.MovementKey, light models.Light) {
	s.EnsureLane(key.Lane)
	s.lanes[key.Lane][key.Movement].Light = light
}

// UpdateWaits implements I6/§4.7: wait resets to 0 for granted
// movements, else increments by 1.
func (s *State) UpdateWaits(granted func(models.MovementKey) bool) {
	for lane, slots := range s.lanes {
		for m, st := range slots {
			key := models.MovementKey{Lane: lane, Movement: m}
			if granted(key) {
				st.Wait = 0
			} else {
				st.Wait++
			}
		}
	}
}

// LightMapping builds the §6 output mapping from the committed state,
// for the given lane order.
func (s *State) LightMapping(laneOrder []string) models.LightMapping {
	out := make(models.LightMapping, len(laneOrder))
	for _, lane := range laneOrder {
		slots, ok := s.lanes[lane]
		if !ok {
			continue
		}
		row := make(map[models.Movement]models.Light, 3)
		for m, st := range slots {
			row[m] = st.Light
		}
		out[lane] = row
	}
	return out
}
