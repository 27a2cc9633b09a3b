// Package ambulance tracks registered emergency-vehicle arrivals and
// schedules conflict-aware pre-clearance windows for them (§4.2, §4.3
// of the design).
package ambulance

import (
	"signalctl/pkg/models"
)

// Registry is the live set of registered ambulances, keyed by ID so a
// re-registration replaces rather than duplicates an entry (§4.2:
// "no error is raised for duplicate registration; latest wins").
type Registry struct {
	byID map[string]models.Ambulance
}

// NewRegistry creates an empty ambulance registry.
func NewRegistry() *Registry {
	return &Registry{byID: map[string]models.Ambulance{}}
}

// Register stores (or replaces) an ambulance's ETA. now is the clock
// reading at registration time; etaSeconds is relative to it.
func (r *Registry) Register(ambID, lane string, movement models.Movement, etaSeconds, now float64) {
	r.byID[ambID] = models.Ambulance{
		ID:         ambID,
		Lane:       lane,
		Movement:   movement,
		ETAAbs:     now + etaSeconds,
		DetectedAt: now,
	}
}

// Live returns every registered ambulance, in no particular order;
// callers that need determinism (the planner) sort by ETA themselves.
func (r *Registry) Live() []models.Ambulance {
	out := make([]models.Ambulance, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	return out
}

// PurgeExpired removes ambulances whose ETA passed more than grace
// ago. This is a memory bound, not a correctness requirement (§4.2).
func (r *Registry) PurgeExpired(now, grace float64) {
	for id, a := range r.byID {
		if a.ETAAbs < now-grace {
			delete(r.byID, id)
		}
	}
}

// Remove evicts a single ambulance, e.g. once its planned job has run
// to completion.
func (r *Registry) Remove(ambID string) {
	delete(r.byID, ambID)
}
