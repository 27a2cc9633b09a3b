package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalctl/pkg/models"
)

func TestRebuildSingleLane(t *testing.T) {
	top := New(20)
	top.EnsureLane("A")
	top.Rebuild()

	for _, m := range models.Movements {
		dest, ok := top.Destination(models.MovementKey{Lane: "A", Movement: m})
		require.True(t, ok)
		assert.Equal(t, "A", dest)
	}
}

func TestRebuildTurnMapFourLanes(t *testing.T) {
	top := New(20)
	for _, l := range []string{"N", "E", "S", "W"} {
		top.EnsureLane(l)
	}
	top.Rebuild()

	cases := []struct {
		lane, want string
		m          models.Movement
	}{
		{"N", "S", models.Straight},
		{"N", "W", models.Left},
		{"N", "E", models.Right},
		{"E", "W", models.Straight},
		{"E", "N", models.Left},
		{"E", "S", models.Right},
	}
	for _, c := range cases {
		dest, ok := top.Destination(models.MovementKey{Lane: c.lane, Movement: c.m})
		require.True(t, ok)
		assert.Equal(t, c.want, dest, "%s %s", c.lane, c.m)
	}
}

func TestConflictsSameLane(t *testing.T) {
	top := New(20)
	top.EnsureLane("A")
	top.EnsureLane("B")
	top.Rebuild()

	a := models.MovementKey{Lane: "A", Movement: models.Straight}
	b := models.MovementKey{Lane: "A", Movement: models.Left}
	assert.True(t, top.ConflictsWith(a, b))
	assert.True(t, top.ConflictsWith(b, a))
}

func TestConflictsSharedDestination(t *testing.T) {
	top := New(20)
	lanes := []string{"N", "E", "S", "W"}
	for _, l := range lanes {
		top.EnsureLane(l)
	}
	top.Rebuild()

	destOf := func(k models.MovementKey) string {
		d, _ := top.Destination(k)
		return d
	}

	var all []models.MovementKey
	for _, l := range lanes {
		for _, m := range models.Movements {
			all = append(all, models.MovementKey{Lane: l, Movement: m})
		}
	}

	foundSharedDest := false
	for _, a := range all {
		for _, b := range all {
			if a == b || a.Lane == b.Lane {
				continue
			}
			if destOf(a) == destOf(b) {
				foundSharedDest = true
				assert.True(t, top.ConflictsWith(a, b), "%+v and %+v share a destination and must conflict", a, b)
			}
		}
	}
	assert.True(t, foundSharedDest, "a 4-lane intersection must have at least one shared-destination pair")
}

func TestCompatible(t *testing.T) {
	top := New(20)
	for _, l := range []string{"N", "E", "S", "W"} {
		top.EnsureLane(l)
	}
	top.Rebuild()

	noneBlocked := func(string) bool { return false }
	allBlocked := func(string) bool { return true }

	a := models.MovementKey{Lane: "N", Movement: models.Straight}
	assert.False(t, top.Compatible(a, a, noneBlocked), "a movement is never compatible with itself")

	b := models.MovementKey{Lane: "N", Movement: models.Left}
	assert.False(t, top.Compatible(a, b, noneBlocked), "same-lane movements always conflict")

	assert.False(t, top.Compatible(a, b, allBlocked))
}

func TestExitCapacityDefault(t *testing.T) {
	top := New(7)
	top.EnsureLane("A")
	assert.Equal(t, 7, top.ExitCapacity("A"))
}
