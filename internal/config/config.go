// Package config holds the full tunable set for a training run. Values are
// resolved in three layers: built-in defaults, an optional YAML file, then
// AEROGYM_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/flightline/aerogym/internal/geom"
)

// envPrefix namespaces environment overrides, e.g. AEROGYM_GOAL_EPSILON=0.25.
const envPrefix = "AEROGYM_"

type Config struct {
	Task     string `koanf:"task" yaml:"task"`
	Episodes int    `koanf:"episodes" yaml:"episodes"`
	Seed     int64  `koanf:"seed" yaml:"seed"`

	Workspace WorkspaceConfig `koanf:"workspace" yaml:"workspace"`
	Goal      GoalConfig      `koanf:"goal" yaml:"goal"`
	Attitude  AttitudeConfig  `koanf:"attitude" yaml:"attitude"`
	Rewards   RewardConfig    `koanf:"rewards" yaml:"rewards"`
	Flight    FlightConfig    `koanf:"flight" yaml:"flight"`
	Sim       SimConfig       `koanf:"sim" yaml:"sim"`
	Telemetry TelemetryConfig `koanf:"telemetry" yaml:"telemetry"`
	Store     StoreConfig     `koanf:"store" yaml:"store"`
}

// WorkspaceConfig is the permitted flight volume plus the ground clearance
// floor. Bounds are exclusive below and inclusive above.
type WorkspaceConfig struct {
	XMin      float64 `koanf:"x_min" yaml:"x_min"`
	XMax      float64 `koanf:"x_max" yaml:"x_max"`
	YMin      float64 `koanf:"y_min" yaml:"y_min"`
	YMax      float64 `koanf:"y_max" yaml:"y_max"`
	ZMin      float64 `koanf:"z_min" yaml:"z_min"`
	ZMax      float64 `koanf:"z_max" yaml:"z_max"`
	MinHeight float64 `koanf:"min_height" yaml:"min_height"`
}

// GoalConfig is the desired pose, the termination epsilon around it and the
// orientation distance mode used by the reward shaper.
type GoalConfig struct {
	X               float64 `koanf:"x" yaml:"x"`
	Y               float64 `koanf:"y" yaml:"y"`
	Z               float64 `koanf:"z" yaml:"z"`
	QW              float64 `koanf:"qw" yaml:"qw"`
	QX              float64 `koanf:"qx" yaml:"qx"`
	QY              float64 `koanf:"qy" yaml:"qy"`
	QZ              float64 `koanf:"qz" yaml:"qz"`
	Epsilon         float64 `koanf:"epsilon" yaml:"epsilon"`
	OrientationMode string  `koanf:"orientation_mode" yaml:"orientation_mode"`
}

// AttitudeConfig bounds roll and pitch before the airframe counts as flipped.
type AttitudeConfig struct {
	MaxRoll  float64 `koanf:"max_roll" yaml:"max_roll"`
	MaxPitch float64 `koanf:"max_pitch" yaml:"max_pitch"`
}

type RewardConfig struct {
	CloserToPoint    float64 `koanf:"closer_to_point" yaml:"closer_to_point"`
	CollisionPenalty float64 `koanf:"collision_penalty" yaml:"collision_penalty"`
	EndEpisodePoints float64 `koanf:"end_episode_points" yaml:"end_episode_points"`
}

// FlightConfig tunes actuation: spawn pose, takeoff, retries and the
// velocity command envelope.
type FlightConfig struct {
	TakeoffAltitude  float64       `koanf:"takeoff_altitude" yaml:"takeoff_altitude"`
	ActuationRetries int           `koanf:"actuation_retries" yaml:"actuation_retries"`
	AckTimeout       time.Duration `koanf:"ack_timeout" yaml:"ack_timeout"`
	MaxSpeed         float64       `koanf:"max_speed" yaml:"max_speed"`
	MaxYawRate       float64       `koanf:"max_yaw_rate" yaml:"max_yaw_rate"`
	InitX            float64       `koanf:"init_x" yaml:"init_x"`
	InitY            float64       `koanf:"init_y" yaml:"init_y"`
	InitZ            float64       `koanf:"init_z" yaml:"init_z"`
	InitYaw          float64       `koanf:"init_yaw" yaml:"init_yaw"`
}

// ObstacleConfig is an axis-aligned box in the simulated world.
type ObstacleConfig struct {
	XMin float64 `koanf:"x_min" yaml:"x_min"`
	XMax float64 `koanf:"x_max" yaml:"x_max"`
	YMin float64 `koanf:"y_min" yaml:"y_min"`
	YMax float64 `koanf:"y_max" yaml:"y_max"`
	ZMin float64 `koanf:"z_min" yaml:"z_min"`
	ZMax float64 `koanf:"z_max" yaml:"z_max"`
}

// SimConfig tunes the built-in kinematic backend.
type SimConfig struct {
	StepDt    float64          `koanf:"step_dt" yaml:"step_dt"`
	NoiseStd  float64          `koanf:"noise_std" yaml:"noise_std"`
	Obstacles []ObstacleConfig `koanf:"obstacles" yaml:"obstacles,omitempty"`
}

// TelemetryConfig configures the episode summary stream.
type TelemetryConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	URL     string `koanf:"url" yaml:"url"`
	Subject string `koanf:"subject" yaml:"subject"`
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	Path string `koanf:"path" yaml:"path"`
}

// DefaultConfig is the baseline scenario: a 10x10x5 indoor volume with a
// level goal pose near its center.
func DefaultConfig() *Config {
	return &Config{
		Task:     "uav-waypoint-v0",
		Episodes: 20,
		Seed:     17,
		Workspace: WorkspaceConfig{
			XMin: 0, XMax: 10,
			YMin: 0, YMax: 10,
			ZMin: 0, ZMax: 5,
			MinHeight: 0.5,
		},
		Goal: GoalConfig{
			X: 5, Y: 5, Z: 2,
			QW: 1, QX: 0, QY: 0, QZ: 0,
			Epsilon:         0.5,
			OrientationMode: string(geom.DistanceAbsolute),
		},
		Attitude: AttitudeConfig{MaxRoll: 0.3, MaxPitch: 0.3},
		Rewards: RewardConfig{
			CloserToPoint:    5,
			CollisionPenalty: -100,
			EndEpisodePoints: 100,
		},
		Flight: FlightConfig{
			TakeoffAltitude:  1,
			ActuationRetries: 3,
			AckTimeout:       2 * time.Second,
			MaxSpeed:         1,
			MaxYawRate:       1.5,
			InitX:            1,
			InitY:            1,
			InitZ:            0,
			InitYaw:          0,
		},
		Sim: SimConfig{StepDt: 0.05},
		Telemetry: TelemetryConfig{
			Enabled: false,
			URL:     "nats://127.0.0.1:4222",
			Subject: "aerogym.episodes",
		},
		Store: StoreConfig{Path: "aerogym.db"},
	}
}

// Load reads the optional YAML file at path, applies environment overrides
// on top, and validates the result. Keys absent from both layers keep their
// defaults. An empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := k.Load(rawbytes.Provider(data), kyaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment overrides: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps AEROGYM_SECTION_FIELD_NAME to section.field_name. Only the
// first underscore separates the section; the rest belongs to the field.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(s, "_", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}

// Save writes the configuration as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate rejects configurations the engine cannot run.
func (c *Config) Validate() error {
	if c.Episodes < 1 {
		return fmt.Errorf("config: episodes must be positive, got %d", c.Episodes)
	}
	if c.Workspace.XMin >= c.Workspace.XMax ||
		c.Workspace.YMin >= c.Workspace.YMax ||
		c.Workspace.ZMin >= c.Workspace.ZMax {
		return fmt.Errorf("config: inverted workspace interval")
	}
	if c.Goal.Epsilon <= 0 {
		return fmt.Errorf("config: goal epsilon must be positive, got %v", c.Goal.Epsilon)
	}
	if _, err := geom.ParseDistanceMode(c.Goal.OrientationMode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Attitude.MaxRoll <= 0 || c.Attitude.MaxPitch <= 0 {
		return fmt.Errorf("config: attitude limits must be positive")
	}
	if c.Flight.TakeoffAltitude <= 0 {
		return fmt.Errorf("config: takeoff altitude must be positive, got %v", c.Flight.TakeoffAltitude)
	}
	if c.Flight.ActuationRetries < 1 {
		return fmt.Errorf("config: actuation retries must be at least 1, got %d", c.Flight.ActuationRetries)
	}
	if c.Flight.MaxSpeed <= 0 || c.Flight.MaxYawRate <= 0 {
		return fmt.Errorf("config: command envelope must be positive")
	}
	if c.Sim.StepDt <= 0 {
		return fmt.Errorf("config: sim step dt must be positive, got %v", c.Sim.StepDt)
	}
	for i, o := range c.Sim.Obstacles {
		if o.XMin >= o.XMax || o.YMin >= o.YMax || o.ZMin >= o.ZMax {
			return fmt.Errorf("config: inverted obstacle %d", i)
		}
	}
	return nil
}
