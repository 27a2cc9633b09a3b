// Package greentime computes the bounded green duration for a single
// movement or a co-phase set (§4.6 of the design).
package greentime

import (
	"signalctl/internal/config"
	"signalctl/pkg/models"
)

// For returns g(lane, movement) = clamp(normal*0.8 + emergency*2.0,
// min_green, max_green).
func For(st models.LaneState, cfg *config.Config) float64 {
	raw := float64(st.Normal)*0.8 + float64(st.Emergency)*2.0
	return cfg.Clamp(raw)
}

// ForSet returns the max green duration over every member of a phase.
func ForSet(keys []models.MovementKey, flat map[models.MovementKey]models.LaneState, cfg *config.Config) float64 {
	max := cfg.MinGreen
	for i, key := range keys {
		d := For(flat[key], cfg)
		if i == 0 || d > max {
			max = d
		}
	}
	return max
}
