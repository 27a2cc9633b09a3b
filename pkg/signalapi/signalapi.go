// Package signalapi wraps a signalctl.Controller behind a
// command/event envelope, the same shape the control-plane services
// this project grew out of use to talk to their domain logic: a typed
// command in, a validation result or a typed event out, each event
// carrying a correlation ID back to the command that produced it.
package signalapi

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"signalctl"
	"signalctl/pkg/models"
)

// CommandType identifies which Controller operation a Command invokes.
type CommandType string

const (
	CommandUpdate            CommandType = "signal.update"
	CommandRegisterAmbulance CommandType = "signal.register_ambulance"
)

// Command represents an incoming request to the controller.
type Command struct {
	CommandID string
	Type      CommandType
	IssuedAt  time.Time

	// Populated for CommandUpdate.
	Snapshot []models.SnapshotEntry

	// Populated for CommandRegisterAmbulance.
	AmbulanceID string
	LaneID      string
	Movement    models.Movement
	ETASeconds  float64
}

// ValidationResult holds the result of validating a Command.
type ValidationResult struct {
	Valid   bool
	Field   string
	Message string
}

// Validate checks that a Command carries the fields its Type requires.
func (c Command) Validate() ValidationResult {
	if c.CommandID == "" {
		return ValidationResult{Valid: false, Field: "CommandID", Message: "required"}
	}
	switch c.Type {
	case CommandUpdate:
		// An empty snapshot is legal: a cycle with no sensor data
		// still runs on the queue counts carried over from earlier
		// cycles.
	case CommandRegisterAmbulance:
		if c.AmbulanceID == "" {
			return ValidationResult{Valid: false, Field: "AmbulanceID", Message: "required"}
		}
		if c.LaneID == "" {
			return ValidationResult{Valid: false, Field: "LaneID", Message: "required"}
		}
		if c.ETASeconds < 0 {
			return ValidationResult{Valid: false, Field: "ETASeconds", Message: "must be non-negative"}
		}
	default:
		return ValidationResult{Valid: false, Field: "Type", Message: "unknown command type"}
	}
	return ValidationResult{Valid: true}
}

// Event reports the outcome of a handled Command.
type Event struct {
	EventID        string
	EventType      string
	CorrelationID  string
	IdempotencyKey string

	// Populated by CommandUpdate.
	Lights models.LightMapping
	Phase  models.ActivePhase
}

// NewCommandID generates a fresh, random command ID for callers that
// don't already have one (e.g. a demo harness synthesizing commands).
func NewCommandID() string {
	return uuid.NewString()
}

// Service adapts a *signalctl.Controller to the Command/Event
// envelope. It holds no concurrency control of its own: like the
// controller it wraps, Handle must be called from a single goroutine
// at a time, or through something like internal/concurrency.Serializer.
type Service struct {
	controller *signalctl.Controller
}

// New wraps an existing controller.
func New(controller *signalctl.Controller) *Service {
	return &Service{controller: controller}
}

// Handle validates and dispatches cmd, returning the resulting event.
// An invalid command produces a zero Event and a failing
// ValidationResult; Handle never calls into the controller in that
// case.
func (s *Service) Handle(cmd Command) (Event, ValidationResult) {
	if vr := cmd.Validate(); !vr.Valid {
		return Event{}, vr
	}

	switch cmd.Type {
	case CommandUpdate:
		lights := s.controller.Update(cmd.Snapshot)
		ev := Event{
			EventID:        fmt.Sprintf("update:%s", cmd.CommandID),
			EventType:      "signal.updated",
			CorrelationID:  cmd.CommandID,
			IdempotencyKey: fmt.Sprintf("update:%s", cmd.CommandID),
			Lights:         lights,
			Phase:          s.controller.ActivePhase(),
		}
		return ev, ValidationResult{Valid: true}

	case CommandRegisterAmbulance:
		s.controller.RegisterAmbulance(cmd.AmbulanceID, cmd.LaneID, cmd.Movement, cmd.ETASeconds)
		ev := Event{
			EventID:        fmt.Sprintf("register:%s", cmd.CommandID),
			EventType:      "signal.ambulance_registered",
			CorrelationID:  cmd.CommandID,
			IdempotencyKey: fmt.Sprintf("register:%s:%s", cmd.CommandID, cmd.AmbulanceID),
		}
		return ev, ValidationResult{Valid: true}
	}

	// Validate rejects unknown types above, so this is unreachable.
	return Event{}, ValidationResult{Valid: false, Field: "Type", Message: "unhandled command type"}
}

// Controller exposes the wrapped controller for callers that need
// direct access (e.g. to read Config or History).
func (s *Service) Controller() *signalctl.Controller { return s.controller }
