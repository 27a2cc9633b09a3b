// Package flow applies one cycle's clearance, exit-capacity-bounded
// transfer, and background arrivals to a scratch copy of the queue
// state (§4.7 of the design). The controller commits the result;
// flow itself never touches the committed state directly.
package flow

import (
	"math"

	"signalctl/internal/config"
	"signalctl/internal/topology"
	"signalctl/pkg/models"
)

// ArrivalSource supplies the uniform {0,1,2,3} background-arrival
// draw for movements that did not receive green this cycle (§4.7). It
// is injected so property tests can run with a deterministic source
// instead of the process-global RNG (§9 design notes).
type ArrivalSource interface {
	Arrival() int
}

// Result records, per movement, how much was cleared and how much of
// that actually reached its destination — the gap is overflow loss
// (P7).
type Result struct {
	Cleared map[models.MovementKey]int
	Pushed  map[models.MovementKey]int
}

// Apply mutates flat in place for one cycle: active movements are
// cleared at clearanceRate*duration (capped by queue size) and pushed
// onto their destination's straight movement, bounded by destination
// exit capacity; inactive movements receive a background arrival.
func Apply(flat map[models.MovementKey]models.LaneState, top *topology.Topology, active models.ActivePhase, laneOrder []string, cfg *config.Config, arrivals ArrivalSource) Result {
	res := Result{
		Cleared: map[models.MovementKey]int{},
		Pushed:  map[models.MovementKey]int{},
	}

	totalQueued := func(lane string) int {
		total := 0
		for _, m := range models.Movements {
			st := flat[models.MovementKey{Lane: lane, Movement: m}]
			total += st.Normal + st.Emergency
		}
		return total
	}

	for _, key := range active.Movements {
		st := flat[key]
		cleared := st.Normal
		if cap := int(math.Floor(cfg.ClearanceRate * active.Duration)); cleared > cap {
			cleared = cap
		}
		st.Normal -= cleared
		flat[key] = st
		res.Cleared[key] = cleared

		dest, ok := top.Destination(key)
		if !ok || cleared == 0 {
			continue
		}
		capacity := top.ExitCapacity(dest)
		space := capacity - totalQueued(dest)
		if space < 0 {
			space = 0
		}
		pushed := cleared
		if pushed > space {
			pushed = space
		}
		if pushed > 0 {
			destKey := models.MovementKey{Lane: dest, Movement: models.Straight}
			destSt := flat[destKey]
			destSt.Normal += pushed
			flat[destKey] = destSt
		}
		res.Pushed[key] = pushed
	}

	for _, lane := range laneOrder {
		for _, m := range models.Movements {
			key := models.MovementKey{Lane: lane, Movement: m}
			if active.Contains(key) {
				continue
			}
			st := flat[key]
			st.Normal += arrivals.Arrival()
			flat[key] = st
		}
	}

	return res
}
