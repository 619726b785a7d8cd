package config

import (
	"sort"

	"github.com/flightline/aerogym/internal/geom"
)

// GetPreset returns a ready-made configuration for a named scenario, or nil
// when the name is unknown. Presets derive from the defaults so every field
// is populated.
func GetPreset(name string) *Config {
	cfg := DefaultConfig()
	switch name {
	case "indoor":
		// The default scenario: a 10x10x5 room, moderate shaping.
	case "field":
		cfg.Workspace = WorkspaceConfig{
			XMin: 0, XMax: 50,
			YMin: 0, YMax: 50,
			ZMin: 0, ZMax: 20,
			MinHeight: 1,
		}
		cfg.Goal.X, cfg.Goal.Y, cfg.Goal.Z = 40, 35, 8
		cfg.Goal.Epsilon = 1.5
		cfg.Flight.MaxSpeed = 3
		cfg.Flight.MaxYawRate = 2
		cfg.Flight.TakeoffAltitude = 2
		cfg.Flight.InitX, cfg.Flight.InitY = 5, 5
		cfg.Sim.StepDt = 0.1
	case "precision":
		cfg.Goal.Epsilon = 0.15
		cfg.Goal.OrientationMode = string(geom.DistanceGeodesic)
		cfg.Attitude = AttitudeConfig{MaxRoll: 0.2, MaxPitch: 0.2}
		cfg.Flight.MaxSpeed = 0.5
		cfg.Flight.MaxYawRate = 0.8
		cfg.Rewards.CloserToPoint = 10
		cfg.Rewards.EndEpisodePoints = 200
	case "sparse":
		// Terminal rewards only; no progress shaping.
		cfg.Rewards.CloserToPoint = 0
	default:
		return nil
	}
	return cfg
}

// ListPresets returns the available preset names, sorted.
func ListPresets() []string {
	names := []string{"field", "indoor", "precision", "sparse"}
	sort.Strings(names)
	return names
}
