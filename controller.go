// Package signalctl is a dynamic traffic-signal controller for a
// single intersection with an arbitrary number of approaching lanes.
//
// Given periodic sensor snapshots of per-movement queue sizes and
// emergency presence, plus asynchronously registered ambulance
// arrivals, Controller.Update computes, once per cycle, a set of
// mutually compatible movements to receive a green signal, the
// duration of that green phase, and the resulting light state for
// every (lane, movement) pair.
//
// The controller is single-threaded and synchronous: Update is the
// only mutating entry point and runs to completion before returning.
// Ambulance registration may be called from a different goroutine
// than Update, but the caller is responsible for serialising it —
// the controller keeps no internal lock (§5 of the design).
package signalctl

import (
	"signalctl/internal/ambulance"
	"signalctl/internal/chooser"
	"signalctl/internal/config"
	"signalctl/internal/flow"
	"signalctl/internal/greentime"
	"signalctl/internal/history"
	"signalctl/internal/queuestate"
	"signalctl/internal/topology"
	"signalctl/pkg/models"
)

// Clock returns the current monotonic time in seconds, as a real
// number. Decision code never reads a system clock directly; tests
// inject a deterministic clock (§5, §9).
type Clock func() float64

// Controller owns every piece of mutable state: the topology, the
// queue counters, the ambulance registry, and the phase history. All
// of it belongs to a single instance — there is no package-level
// state.
type Controller struct {
	cfg      *config.Config
	clock    Clock
	topology *topology.Topology
	queue    *queuestate.State
	registry *ambulance.Registry
	chooser  *chooser.Chooser
	history  *history.Ring
	arrivals flow.ArrivalSource

	planned []models.PlannedJob
	active  models.ActivePhase
}

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithArrivalSource overrides the default background-arrival
// generator; pass flow.ZeroArrivals{} or a seeded
// flow.UniformArrivalSource for deterministic tests.
func WithArrivalSource(src flow.ArrivalSource) Option {
	return func(c *Controller) { c.arrivals = src }
}

// WithHistoryDepth overrides the default 64-cycle phase history
// retained for fairness diagnostics.
func WithHistoryDepth(depth int) Option {
	return func(c *Controller) { c.history = history.NewRing(depth) }
}

// New creates a controller. cfg may be nil, in which case
// config.DefaultConfig() is used. clock must not be nil.
func New(cfg *config.Config, clock Clock, opts ...Option) *Controller {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c := &Controller{
		cfg:      cfg,
		clock:    clock,
		topology: topology.New(cfg.ExitCapacityDefault),
		queue:    queuestate.New(),
		registry: ambulance.NewRegistry(),
		chooser:  chooser.New(),
		history:  history.NewRing(64),
		arrivals: flow.NewUniformArrivalSource(1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterAmbulance records (or replaces) an ambulance's expected
// arrival on a movement (§4.2). Unknown lanes are created lazily.
func (c *Controller) RegisterAmbulance(ambID, laneID string, movement models.Movement, etaSeconds float64) {
	c.topology.EnsureLane(laneID)
	c.registry.Register(ambID, laneID, movement, etaSeconds, c.clock())
}

// Config returns the controller's live configuration, for callers
// that want to tune it between cycles.
func (c *Controller) Config() *config.Config { return c.cfg }

// Update runs one full cycle: ingest the snapshot, rebuild topology,
// plan ambulance pre-clearance, resolve the phase policy, run the
// flow model, commit state, and return the resulting light mapping
// (§4.8).
func (c *Controller) Update(snapshot []models.SnapshotEntry) models.LightMapping {
	now := c.clock()

	for _, entry := range snapshot {
		c.topology.EnsureLane(entry.LaneID)
	}
	c.topology.Rebuild()

	for _, entry := range snapshot {
		c.queue.Ingest(entry)
	}

	c.registry.PurgeExpired(now, c.cfg.AmbulanceGrace+c.cfg.MaxGreen)

	laneOrder := c.topology.Lanes()
	isBlocked := c.isBlocked
	c.planned = ambulance.Plan(c.topology, c.queue, c.registry.Live(), now, c.cfg, isBlocked)

	flat := c.queue.Flat()
	active := c.resolvePhase(now, laneOrder, flat, isBlocked)
	c.active = active

	c.queue.SetAllRed()
	for _, key := range active.Movements {
		c.queue.SetLight(key, models.Green)
	}

	flow.Apply(flat, c.topology, active, laneOrder, c.cfg, c.arrivals)

	for key, st := range flat {
		// flat was copied before the lights were set above; keep the
		// committed light rather than the stale copy.
		st.Light = c.queue.Get(key).Light
		c.queue.Set(key, st)
	}
	granted := func(key models.MovementKey) bool { return active.Contains(key) }
	c.queue.UpdateWaits(granted)

	c.history.Append(active)
	c.reapServicedAmbulances(now)

	return c.queue.LightMapping(laneOrder)
}

// ActivePhase returns the phase activated by the most recent Update.
func (c *Controller) ActivePhase() models.ActivePhase { return c.active }

// History returns the retained per-cycle phase record, most recent
// last.
func (c *Controller) History() []history.Record { return c.history.Recent() }

func (c *Controller) isBlocked(laneID string) bool {
	if laneID == "" {
		return false
	}
	capacity := c.topology.ExitCapacity(laneID)
	return c.queue.TotalQueued(laneID) >= capacity-c.cfg.ExitCapacityMargin
}

// resolvePhase implements the §4.4 strict priority ordering:
// ambulance, then emergency, then normal.
func (c *Controller) resolvePhase(now float64, laneOrder []string, flat map[models.MovementKey]models.LaneState, isBlocked func(string) bool) models.ActivePhase {
	if phase, ok := c.ambulancePhase(now); ok {
		return phase
	}
	if phase, ok := c.emergencyPhase(laneOrder, flat); ok {
		return phase
	}
	return c.normalPhase(laneOrder, flat, isBlocked)
}

func (c *Controller) ambulancePhase(now float64) (models.ActivePhase, bool) {
	var runningOrImminent []models.PlannedJob
	for _, job := range c.planned {
		if job.Running(now) || job.Imminent(now, c.cfg.ReactionMargin) {
			runningOrImminent = append(runningOrImminent, job)
		}
	}
	if len(runningOrImminent) == 0 {
		return models.ActivePhase{}, false
	}

	// Sort by ascending arrival, then greedily co-phase compatible
	// movements (§4.4).
	jobs := append([]models.PlannedJob(nil), runningOrImminent...)
	for i := 1; i < len(jobs); i++ {
		for j := i; j > 0 && jobs[j].TArrival < jobs[j-1].TArrival; j-- {
			jobs[j], jobs[j-1] = jobs[j-1], jobs[j]
		}
	}

	var set []models.PlannedJob
	for _, job := range jobs {
		compatibleWithAll := true
		for _, chosen := range set {
			if !c.topology.Compatible(job.MovementKey, chosen.MovementKey, c.isBlocked) {
				compatibleWithAll = false
				break
			}
		}
		if compatibleWithAll {
			set = append(set, job)
		}
	}
	if len(set) == 0 {
		// Defensive: activate the first running job alone (§4.4).
		set = jobs[:1]
	}

	duration := c.cfg.MinGreen
	keys := make([]models.MovementKey, 0, len(set))
	for i, job := range set {
		keys = append(keys, job.MovementKey)
		if i == 0 || job.GRequired > duration {
			duration = job.GRequired
		}
	}

	return models.ActivePhase{Kind: models.PhaseAmbulance, Movements: keys, StartedAt: now, Duration: duration}, true
}

func (c *Controller) emergencyPhase(laneOrder []string, flat map[models.MovementKey]models.LaneState) (models.ActivePhase, bool) {
	key, ok := c.chooser.EmergencyChoose(laneOrder, flat)
	if !ok {
		return models.ActivePhase{}, false
	}
	duration := greentime.For(flat[key], c.cfg)
	return models.ActivePhase{Kind: models.PhaseEmergency, Movements: []models.MovementKey{key}, StartedAt: c.clock(), Duration: duration}, true
}

func (c *Controller) normalPhase(laneOrder []string, flat map[models.MovementKey]models.LaneState, isBlocked func(string) bool) models.ActivePhase {
	seed, ok := chooser.NormalChoose(laneOrder, flat, c.topology, c.cfg, isBlocked)
	if !ok {
		// Zero lanes: nothing to activate.
		return models.ActivePhase{Kind: models.PhaseNormal}
	}
	maxSize := chooser.MaxCoPhaseSize(len(laneOrder))
	set := chooser.CoPhase(seed, laneOrder, flat, c.topology, c.cfg, isBlocked, maxSize)
	duration := greentime.ForSet(set, flat, c.cfg)
	return models.ActivePhase{Kind: models.PhaseNormal, Movements: set, StartedAt: c.clock(), Duration: duration}
}

// reapServicedAmbulances evicts ambulances whose planned job has
// fully run (their pre-clearance window has ended and their ETA has
// passed).
func (c *Controller) reapServicedAmbulances(now float64) {
	for _, job := range c.planned {
		if now >= job.TStart+job.GRequired && now >= job.TArrival {
			c.registry.Remove(job.Ambulance.ID)
		}
	}
}
