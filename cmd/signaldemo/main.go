// Command signaldemo drives a signalctl.Controller against a
// synthetic intersection: a fixed cycle ticker feeding randomized
// sensor snapshots, plus a goroutine that occasionally registers an
// ambulance, with both paths serialized onto the controller through
// internal/concurrency.Serializer the way an embedding service would.
package main

import (
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signalctl"
	"signalctl/internal/concurrency"
	"signalctl/internal/config"
	"signalctl/internal/flow"
	"signalctl/pkg/models"
	"signalctl/pkg/signalapi"
)

var lanes = []string{"north", "east", "south", "west"}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.DefaultConfig()
	start := time.Now()
	clock := signalctl.Clock(func() float64 { return time.Since(start).Seconds() })

	controller := signalctl.New(cfg, clock, signalctl.WithArrivalSource(flow.NewUniformArrivalSource(42)))
	svc := signalapi.New(controller)
	serializer := concurrency.NewSerializer()
	defer serializer.Close()

	rng := rand.New(rand.NewSource(7))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go simulateAmbulances(serializer, svc, rng, done)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	slog.Info("signaldemo starting", "lanes", lanes, "min_green", cfg.MinGreen, "max_green", cfg.MaxGreen)

	for {
		select {
		case <-ticker.C:
			snapshot := randomSnapshot(rng)
			var ev signalapi.Event
			var vr signalapi.ValidationResult
			serializer.Do(func() {
				cmd := signalapi.Command{CommandID: signalapi.NewCommandID(), Type: signalapi.CommandUpdate, Snapshot: snapshot}
				ev, vr = svc.Handle(cmd)
			})
			if !vr.Valid {
				slog.Warn("update rejected", "field", vr.Field, "message", vr.Message)
				continue
			}
			slog.Info("cycle complete", "phase", ev.Phase.Kind.String(), "movements", len(ev.Phase.Movements), "duration", ev.Phase.Duration)
		case <-stop:
			close(done)
			slog.Info("signaldemo shutting down")
			return
		}
	}
}

func simulateAmbulances(serializer *concurrency.Serializer, svc *signalapi.Service, rng *rand.Rand, done <-chan struct{}) {
	for {
		wait := time.Duration(10+rng.Intn(20)) * time.Second
		select {
		case <-time.After(wait):
			lane := lanes[rng.Intn(len(lanes))]
			eta := 5.0 + rng.Float64()*15.0
			serializer.Do(func() {
				cmd := signalapi.Command{
					CommandID:   signalapi.NewCommandID(),
					Type:        signalapi.CommandRegisterAmbulance,
					AmbulanceID: signalapi.NewCommandID(),
					LaneID:      lane,
					Movement:    models.Straight,
					ETASeconds:  eta,
				}
				if _, vr := svc.Handle(cmd); !vr.Valid {
					slog.Warn("ambulance registration rejected", "field", vr.Field, "message", vr.Message)
					return
				}
				slog.Info("ambulance registered", "lane", lane, "eta_seconds", eta)
			})
		case <-done:
			return
		}
	}
}

func randomSnapshot(rng *rand.Rand) []models.SnapshotEntry {
	entries := make([]models.SnapshotEntry, 0, len(lanes))
	for _, lane := range lanes {
		movements := map[models.Movement]int{
			models.Straight: rng.Intn(8),
			models.Left:     rng.Intn(5),
			models.Right:    rng.Intn(4),
		}
		emergency := map[models.Movement]int{}
		if rng.Intn(20) == 0 {
			emergency[models.Movement(rng.Intn(3))] = 1
		}
		entries = append(entries, models.SnapshotEntry{LaneID: lane, Movements: movements, Emergency: emergency})
	}
	return entries
}
