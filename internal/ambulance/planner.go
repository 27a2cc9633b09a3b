package ambulance

import (
	"sort"

	"signalctl/internal/config"
	"signalctl/internal/queuestate"
	"signalctl/internal/topology"
	"signalctl/pkg/models"
)

// Plan runs the earliest-deadline-first pre-clearance scheduler of
// §4.3 over the currently live ambulances and returns the accepted
// job list, sorted by ascending arrival time.
//
// isBlocked reports whether a destination lane is at or over its exit
// capacity margin (I5); it is threaded through to the compatibility
// test so a planned window never assumes a blocked lane will clear in
// time.
func Plan(top *topology.Topology, q *queuestate.State, live []models.Ambulance, now float64, cfg *config.Config, isBlocked func(string) bool) []models.PlannedJob {
	type candidate struct {
		job models.PlannedJob
	}

	var candidates []candidate
	for _, amb := range live {
		key := models.MovementKey{Lane: amb.Lane, Movement: amb.Movement}
		dest, ok := top.Destination(key)
		if !ok {
			// Missing topology (zero lanes): drop silently, §4.3 & §7.
			continue
		}
		qDest := q.TotalQueued(dest)
		gRequired := cfg.Clamp(float64(qDest)/cfg.ClearanceRate + cfg.AmbulanceSafetyMargin)
		tStart := amb.ETAAbs - gRequired
		candidates = append(candidates, candidate{job: models.PlannedJob{
			Ambulance:   amb,
			MovementKey: key,
			Dest:        dest,
			TArrival:    amb.ETAAbs,
			TStart:      tStart,
			GRequired:   gRequired,
		}})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].job.TArrival < candidates[j].job.TArrival
	})

	var accepted []models.PlannedJob
	for _, c := range candidates {
		job := c.job
		if job.TStart <= now+cfg.ReactionMargin {
			job.TStart = now
			accepted = append(accepted, job)
			continue
		}

		conflict := false
		for _, acc := range accepted {
			if !overlaps(job.TStart, job.GRequired, acc.TStart, acc.GRequired) {
				continue
			}
			if !top.Compatible(job.MovementKey, acc.MovementKey, isBlocked) {
				conflict = true
				break
			}
		}

		if conflict {
			job.TStart = now
		}
		accepted = append(accepted, job)
	}

	return accepted
}

func overlaps(startA, durA, startB, durB float64) bool {
	return startA < startB+durB && startB < startA+durA
}
