// Package chooser implements the emergency and normal movement
// choosers plus the co-phase builder (§4.4, §4.5 of the design).
package chooser

import (
	"math"
	"sort"

	"signalctl/internal/config"
	"signalctl/internal/topology"
	"signalctl/pkg/models"
)

// Chooser holds the small piece of state the selection policy needs
// to carry across cycles: which lane won the emergency round-robin
// last time.
type Chooser struct {
	lastEmergencyLane string
}

// New creates a chooser with no round-robin history.
func New() *Chooser {
	return &Chooser{}
}

// scored pairs a MovementKey with its normal-phase score, for sorting.
type scored struct {
	key   models.MovementKey
	score float64
}

// Score computes the normal-phase score of §4.5: queue size weighted
// by wait, a dominating starvation bonus past the limit, and minus
// infinity for blocked destinations.
func Score(st models.LaneState, cfg *config.Config, blocked bool) float64 {
	if blocked {
		return math.Inf(-1)
	}
	score := float64(st.Normal) * (1 + float64(st.Wait)*cfg.WaitBoost)
	if st.Wait >= cfg.StarvationLimit {
		score += 10000
	}
	return score
}

// EmergencyChoose selects the movement with the largest emergency
// count, breaking ties by round-robin over lanes starting one past
// the previous winner, scanning movements in fixed order.
//
// laneOrder is the topology's current lane insertion order. flat is
// the working (lane, movement) -> state view for this cycle.
func (c *Chooser) EmergencyChoose(laneOrder []string, flat map[models.MovementKey]models.LaneState) (models.MovementKey, bool) {
	maxEmergency := 0
	for _, lane := range laneOrder {
		for _, m := range models.Movements {
			st := flat[models.MovementKey{Lane: lane, Movement: m}]
			if st.Emergency > maxEmergency {
				maxEmergency = st.Emergency
			}
		}
	}
	if maxEmergency == 0 {
		return models.MovementKey{}, false
	}

	var tied []models.MovementKey
	for _, lane := range laneOrder {
		for _, m := range models.Movements {
			key := models.MovementKey{Lane: lane, Movement: m}
			if flat[key].Emergency == maxEmergency {
				tied = append(tied, key)
			}
		}
	}
	if len(tied) == 1 {
		c.lastEmergencyLane = tied[0].Lane
		return tied[0], true
	}

	start := 0
	for i, lane := range laneOrder {
		if lane == c.lastEmergencyLane {
			start = (i + 1) % len(laneOrder)
			break
		}
	}
	for i := 0; i < len(laneOrder); i++ {
		lane := laneOrder[(start+i)%len(laneOrder)]
		for _, m := range models.Movements {
			key := models.MovementKey{Lane: lane, Movement: m}
			if flat[key].Emergency == maxEmergency {
				c.lastEmergencyLane = lane
				return key, true
			}
		}
	}
	// Defensive: every tied candidate was scanned above, so this is
	// unreachable, but fall back to the first tie rather than panic.
	c.lastEmergencyLane = tied[0].Lane
	return tied[0], true
}

// NormalChoose selects the highest-scored MovementKey, with ties
// broken by lane-insertion then movement order. If every candidate's
// destination is blocked, the §7 policy-vacuum fallback relaxes I5
// and returns the highest-scored seed regardless.
func NormalChoose(laneOrder []string, flat map[models.MovementKey]models.LaneState, top *topology.Topology, cfg *config.Config, isBlocked func(string) bool) (models.MovementKey, bool) {
	var best models.MovementKey
	bestScore := math.Inf(-1)
	found := false

	var bestUnblockedFallback models.MovementKey
	bestFallbackScore := math.Inf(-1)
	haveFallback := false

	for _, lane := range laneOrder {
		for _, m := range models.Movements {
			key := models.MovementKey{Lane: lane, Movement: m}
			st := flat[key]
			dest, ok := top.Destination(key)
			blocked := !ok || isBlocked(dest)
			score := Score(st, cfg, blocked)
			if score > bestScore {
				bestScore = score
				best = key
				found = true
			}

			// Fallback ledger ignores the blocked penalty so a
			// deadlock (every destination blocked) still has a
			// candidate to offer (§7 policy vacuum).
			rawScore := Score(st, cfg, false)
			if rawScore > bestFallbackScore {
				bestFallbackScore = rawScore
				bestUnblockedFallback = key
				haveFallback = true
			}
		}
	}

	if found && !math.IsInf(bestScore, -1) {
		return best, true
	}
	if haveFallback {
		return bestUnblockedFallback, true
	}
	return models.MovementKey{}, false
}

// CoPhase greedily extends seed with compatible movements, in
// descending score order, up to maxSize members (§4.5).
func CoPhase(seed models.MovementKey, laneOrder []string, flat map[models.MovementKey]models.LaneState, top *topology.Topology, cfg *config.Config, isBlocked func(string) bool, maxSize int) []models.MovementKey {
	var candidates []scored
	for _, lane := range laneOrder {
		for _, m := range models.Movements {
			key := models.MovementKey{Lane: lane, Movement: m}
			if key == seed {
				continue
			}
			dest, ok := top.Destination(key)
			blocked := !ok || isBlocked(dest)
			candidates = append(candidates, scored{key: key, score: Score(flat[key], cfg, blocked)})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	set := []models.MovementKey{seed}
	if maxSize < 1 {
		maxSize = 1
	}
	for _, c := range candidates {
		if len(set) >= maxSize {
			break
		}
		compatibleWithAll := true
		for _, existing := range set {
			if !top.Compatible(c.key, existing, isBlocked) {
				compatibleWithAll = false
				break
			}
		}
		if compatibleWithAll {
			set = append(set, c.key)
		}
	}
	return set
}

// MaxCoPhaseSize is max(1, floor(n_lanes/2)) from §4.4/§4.5.
func MaxCoPhaseSize(nLanes int) int {
	if nLanes/2 < 1 {
		return 1
	}
	return nLanes / 2
}
