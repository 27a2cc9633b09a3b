package signalctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalctl/internal/config"
	"signalctl/internal/flow"
	"signalctl/pkg/models"
)

func fixedClock(t float64) Clock {
	return func() float64 { return t }
}

func snapshotEntry(lane string, straight, left, right int) models.SnapshotEntry {
	return models.SnapshotEntry{
		LaneID:    lane,
		Movements: map[models.Movement]int{models.Straight: straight, models.Left: left, models.Right: right},
	}
}

// Scenario 1: single lane, no traffic.
func TestScenarioSingleLaneNoTraffic(t *testing.T) {
	c := New(nil, fixedClock(0), WithArrivalSource(flow.ZeroArrivals{}))
	lights := c.Update([]models.SnapshotEntry{snapshotEntry("A", 0, 0, 0)})

	assert.Equal(t, models.PhaseNormal, c.ActivePhase().Kind)
	assert.Equal(t, c.Config().MinGreen, c.ActivePhase().Duration)
	assert.Equal(t, models.Green, lights["A"][models.Straight], "ties broken by movement order: straight wins")
}

// Scenario 2: emergency pre-empts congested normal.
func TestScenarioEmergencyPreemptsNormal(t *testing.T) {
	c := New(nil, fixedClock(0), WithArrivalSource(flow.ZeroArrivals{}))
	snapshot := []models.SnapshotEntry{
		snapshotEntry("Lane_A", 20, 0, 0),
		{LaneID: "Lane_B", Emergency: map[models.Movement]int{models.Left: 1}},
	}
	lights := c.Update(snapshot)

	assert.Equal(t, models.PhaseEmergency, c.ActivePhase().Kind)
	assert.True(t, c.ActivePhase().Contains(models.MovementKey{Lane: "Lane_B", Movement: models.Left}))
	assert.Equal(t, models.Red, lights["Lane_A"][models.Straight])
}

// Scenario 3: ambulance imminent.
func TestScenarioAmbulanceImminent(t *testing.T) {
	c := New(nil, fixedClock(0), WithArrivalSource(flow.ZeroArrivals{}))
	snapshot := []models.SnapshotEntry{
		snapshotEntry("Lane_1", 0, 0, 0),
		snapshotEntry("Lane_2", 0, 0, 0),
		snapshotEntry("Lane_3", 0, 0, 0),
		snapshotEntry("Lane_4", 0, 0, 0),
	}
	c.Update(snapshot)
	c.RegisterAmbulance("amb1", "Lane_2", models.Straight, 0.1)
	lights := c.Update(snapshot)

	assert.Equal(t, models.PhaseAmbulance, c.ActivePhase().Kind)
	assert.True(t, c.ActivePhase().Contains(models.MovementKey{Lane: "Lane_2", Movement: models.Straight}))
	_ = lights
}

// Scenario 4: starvation bonus.
func TestScenarioStarvationBonus(t *testing.T) {
	// Lane_A straight's destination is Lane_B, which holds 100 vehicles.
	// Raise the exit capacity so that destination is not blocked (I5)
	// and only the starvation bonus decides the outcome.
	cfg := config.DefaultConfig()
	cfg.ExitCapacityDefault = 1000
	c := New(cfg, fixedClock(0), WithArrivalSource(flow.ZeroArrivals{}))
	starved := models.MovementKey{Lane: "Lane_A", Movement: models.Straight}

	for i := 0; i < c.Config().StarvationLimit; i++ {
		snapshot := []models.SnapshotEntry{
			snapshotEntry("Lane_A", 1, 0, 0),
			snapshotEntry("Lane_B", 100, 0, 0),
		}
		c.Update(snapshot)
	}
	require.GreaterOrEqual(t, c.Config().StarvationLimit, 1)

	snapshot := []models.SnapshotEntry{
		snapshotEntry("Lane_A", 1, 0, 0),
		snapshotEntry("Lane_B", 100, 0, 0),
	}
	c.Update(snapshot)
	assert.True(t, c.ActivePhase().Contains(starved), "after starvation_limit cycles the starved movement must win")
}

// Scenario 6: exit blocked.
func TestScenarioExitBlockedFallback(t *testing.T) {
	c := New(nil, fixedClock(0), WithArrivalSource(flow.ZeroArrivals{}))
	// Lane_A straight -> Lane_B (2 lanes, n/2=1 offset both ways).
	// Fill both lanes near capacity so every destination is blocked;
	// with no unblocked alternative, the fallback must still pick
	// Lane_A straight rather than stall.
	snapshot := []models.SnapshotEntry{
		snapshotEntry("Lane_A", 19, 0, 0),
		snapshotEntry("Lane_B", 19, 0, 0),
	}
	lights := c.Update(snapshot)
	assert.NotNil(t, lights)
	// Some movement must have been granted green; the engine never
	// stalls entirely (P2/§7 policy vacuum).
	greenCount := 0
	for _, row := range lights {
		for _, l := range row {
			if l == models.Green {
				greenCount++
			}
		}
	}
	assert.Greater(t, greenCount, 0)
}

// independentDestination reimplements the §3 turn_map formula so this
// test can check mutual exclusion without reaching into the
// controller's internal topology.
func independentDestination(lanes []string, lane string, m models.Movement) string {
	n := len(lanes)
	idx := -1
	for i, l := range lanes {
		if l == lane {
			idx = i
			break
		}
	}
	switch m {
	case models.Straight:
		return lanes[(idx+n/2)%n]
	case models.Left:
		return lanes[(idx-1+n)%n]
	default:
		return lanes[(idx+1)%n]
	}
}

// P1: mutual exclusion of conflicting greens.
func TestMutualExclusionOfConflictingGreens(t *testing.T) {
	c := New(nil, fixedClock(0), WithArrivalSource(flow.ZeroArrivals{}))
	lanes := []string{"N", "E", "S", "W"}
	snapshot := []models.SnapshotEntry{
		snapshotEntry("N", 10, 10, 10),
		snapshotEntry("E", 10, 10, 10),
		snapshotEntry("S", 10, 10, 10),
		snapshotEntry("W", 10, 10, 10),
	}
	c.Update(snapshot)

	active := c.ActivePhase()
	for i, a := range active.Movements {
		for j, b := range active.Movements {
			if i == j {
				continue
			}
			if a.Lane == b.Lane {
				t.Fatalf("same-lane movements %+v and %+v both granted green", a, b)
			}
			da := independentDestination(lanes, a.Lane, a.Movement)
			db := independentDestination(lanes, b.Lane, b.Movement)
			assert.NotEqual(t, da, db, "movements %+v and %+v share a destination and must not both be green", a, b)
		}
	}
}

// P3: non-negativity holds after updates.
func TestNonNegativityAfterUpdates(t *testing.T) {
	c := New(nil, fixedClock(0))
	snapshot := []models.SnapshotEntry{
		snapshotEntry("A", 5, 3, 2),
		snapshotEntry("B", 1, 1, 1),
	}
	for i := 0; i < 10; i++ {
		c.Update(snapshot)
	}
	// Reaching into committed state isn't exposed directly; verify via
	// History that every recorded phase has non-negative duration, a
	// cheap proxy that nothing went obviously wrong.
	for _, rec := range c.History() {
		assert.GreaterOrEqual(t, rec.Phase.Duration, 0.0)
	}
}

func TestRegisterAmbulanceCreatesLaneLazily(t *testing.T) {
	c := New(nil, fixedClock(0))
	c.RegisterAmbulance("amb1", "NewLane", models.Straight, 5)
	lights := c.Update([]models.SnapshotEntry{snapshotEntry("NewLane", 0, 0, 0)})
	assert.Contains(t, lights, "NewLane")
}
