package signalapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalctl"
	"signalctl/internal/flow"
	"signalctl/pkg/models"
)

func newService() *Service {
	clock := signalctl.Clock(func() float64 { return 0 })
	c := signalctl.New(nil, clock, signalctl.WithArrivalSource(flow.ZeroArrivals{}))
	return New(c)
}

func TestValidateRequiresCommandID(t *testing.T) {
	cmd := Command{Type: CommandUpdate}
	vr := cmd.Validate()
	assert.False(t, vr.Valid)
	assert.Equal(t, "CommandID", vr.Field)
}

func TestValidateRegisterAmbulanceRequiresFields(t *testing.T) {
	cmd := Command{CommandID: "c1", Type: CommandRegisterAmbulance}
	vr := cmd.Validate()
	assert.False(t, vr.Valid)
	assert.Equal(t, "AmbulanceID", vr.Field)

	cmd.AmbulanceID = "amb1"
	vr = cmd.Validate()
	assert.False(t, vr.Valid)
	assert.Equal(t, "LaneID", vr.Field)

	cmd.LaneID = "A"
	cmd.ETASeconds = -1
	vr = cmd.Validate()
	assert.False(t, vr.Valid)
	assert.Equal(t, "ETASeconds", vr.Field)
}

func TestValidateRejectsUnknownType(t *testing.T) {
	cmd := Command{CommandID: "c1", Type: "bogus"}
	assert.False(t, cmd.Validate().Valid)
}

func TestHandleUpdateReturnsEventWithCorrelation(t *testing.T) {
	svc := newService()
	cmd := Command{
		CommandID: "cmd-1",
		Type:      CommandUpdate,
		Snapshot:  []models.SnapshotEntry{{LaneID: "A"}},
	}
	ev, vr := svc.Handle(cmd)
	require.True(t, vr.Valid)
	assert.Equal(t, "cmd-1", ev.CorrelationID)
	assert.Equal(t, "signal.updated", ev.EventType)
	assert.NotNil(t, ev.Lights)
}

func TestHandleRegisterAmbulance(t *testing.T) {
	svc := newService()
	cmd := Command{
		CommandID:   "cmd-2",
		Type:        CommandRegisterAmbulance,
		AmbulanceID: "amb1",
		LaneID:      "A",
		Movement:    models.Straight,
		ETASeconds:  5,
	}
	ev, vr := svc.Handle(cmd)
	require.True(t, vr.Valid)
	assert.Equal(t, "signal.ambulance_registered", ev.EventType)
	assert.Equal(t, "cmd-2", ev.CorrelationID)
}

func TestHandleInvalidCommandNeverReachesController(t *testing.T) {
	svc := newService()
	ev, vr := svc.Handle(Command{Type: CommandUpdate})
	assert.False(t, vr.Valid)
	assert.Equal(t, Event{}, ev)
	assert.Empty(t, svc.Controller().History(), "no Update cycle ran")
}

func TestNewCommandIDIsNonEmptyAndUnique(t *testing.T) {
	a := NewCommandID()
	b := NewCommandID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
