// Package sim provides a deterministic kinematic quadrotor in a pausable
// world. It implements both collaborator interfaces the episode engine
// consumes, so full training runs work without any external simulator.
package sim

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/flightline/aerogym/internal/env"
	"github.com/flightline/aerogym/internal/geom"
)

// ErrNotArmed indicates a takeoff request while the vehicle is disarmed.
var ErrNotArmed = errors.New("sim: takeoff requires an armed vehicle")

// Box is an axis-aligned obstacle.
type Box struct {
	Min r3.Vec
	Max r3.Vec
}

// Contains reports whether p lies inside the box (closed on all faces).
func (b Box) Contains(p r3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Config tunes the simulated world.
type Config struct {
	// StepDt is the world time integrated per velocity command, seconds.
	StepDt float64
	// InitialPosition and InitialYaw place the vehicle after a world reset.
	InitialPosition r3.Vec
	InitialYaw      float64
	// Obstacles produce collision severity on contact.
	Obstacles []Box
	// NoiseStd adds zero-mean position noise per step. Zero keeps the
	// world fully deterministic.
	NoiseStd float64
	Seed     int64
	// ArmTimeouts and TakeoffTimeouts make the first N acknowledgements
	// time out, for exercising the retry path.
	ArmTimeouts     int
	TakeoffTimeouts int
	// Frame dimensions of the synthesized camera.
	FrameWidth  int
	FrameHeight int
}

// DefaultConfig returns a small deterministic world with no obstacles.
func DefaultConfig() Config {
	return Config{
		StepDt:          0.05,
		InitialPosition: r3.Vec{X: 1, Y: 1, Z: 0},
		FrameWidth:      32,
		FrameHeight:     24,
	}
}

// Simulator is the kinematic quadrotor plus its world. Commands only move
// the vehicle while the world is unpaused, mirroring a lockstepped
// physics backend. Not safe for concurrent use.
type Simulator struct {
	cfg    Config
	rng    *rand.Rand
	logger *zap.Logger

	paused     bool
	armed      bool
	flying     bool
	estimating bool

	// Estimate held while the estimator is stopped.
	frozenPose  geom.Pose
	frozenTwist geom.Twist

	position r3.Vec
	yaw      float64
	velocity r3.Vec
	yawRate  float64
	severity float64
	clock    float64

	armAttempts     int
	takeoffAttempts int

	frameSeq uint64
	frame    *env.Frame
}

// New builds a simulator from cfg, filling zero fields from DefaultConfig.
func New(cfg Config, logger *zap.Logger) *Simulator {
	def := DefaultConfig()
	if cfg.StepDt <= 0 {
		cfg.StepDt = def.StepDt
	}
	if cfg.FrameWidth <= 0 {
		cfg.FrameWidth = def.FrameWidth
	}
	if cfg.FrameHeight <= 0 {
		cfg.FrameHeight = def.FrameHeight
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Simulator{
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		logger:     logger,
		paused:     true,
		estimating: true,
	}
	s.place(cfg.InitialPosition, cfg.InitialYaw)
	s.renderFrame()
	return s
}

func (s *Simulator) place(p r3.Vec, yaw float64) {
	s.position = p
	s.yaw = yaw
	s.velocity = r3.Vec{}
	s.yawRate = 0
	s.severity = 0
}

// Pause freezes the world clock.
func (s *Simulator) Pause(context.Context) error {
	s.paused = true
	return nil
}

// Unpause lets commands advance the world again.
func (s *Simulator) Unpause(context.Context) error {
	s.paused = false
	return nil
}

// Reset restores the initial vehicle state and rewinds the clock.
func (s *Simulator) Reset(context.Context) error {
	s.place(s.cfg.InitialPosition, s.cfg.InitialYaw)
	s.armed = false
	s.flying = false
	s.clock = 0
	s.renderFrame()
	s.logger.Debug("world reset")
	return nil
}

// Ready reports backend readiness. The kinematic world is always ready.
func (s *Simulator) Ready(context.Context) error {
	return nil
}

// StopPoseEstimator halts estimate updates until the estimator is reset.
// Pose and Velocity keep reporting the estimate held at the stop.
func (s *Simulator) StopPoseEstimator(context.Context) error {
	if s.estimating {
		s.frozenPose = s.livePose()
		s.frozenTwist = s.liveTwist()
		s.estimating = false
	}
	return nil
}

// ResetPoseEstimator restarts the estimator on the current vehicle state.
func (s *Simulator) ResetPoseEstimator(context.Context) error {
	s.estimating = true
	return nil
}

// Pose returns the latest estimated pose.
func (s *Simulator) Pose() geom.Pose {
	if !s.estimating {
		return s.frozenPose
	}
	return s.livePose()
}

// Velocity returns the latest estimated world-frame velocity.
func (s *Simulator) Velocity() geom.Twist {
	if !s.estimating {
		return s.frozenTwist
	}
	return s.liveTwist()
}

func (s *Simulator) livePose() geom.Pose {
	return geom.Pose{
		Position:    s.position,
		Orientation: geom.FromYaw(s.yaw),
	}
}

func (s *Simulator) liveTwist() geom.Twist {
	return geom.Twist{
		Linear:  s.velocity,
		Angular: r3.Vec{Z: s.yawRate},
	}
}

// CollisionSeverity is the impact speed of the current contact, zero when
// free of contact.
func (s *Simulator) CollisionSeverity() float64 {
	return s.severity
}

// Frame returns the latest synthesized camera frame.
func (s *Simulator) Frame() *env.Frame {
	return s.frame
}

// Clock is the accumulated world time in seconds.
func (s *Simulator) Clock() float64 {
	return s.clock
}

// renderFrame synthesizes a luminance pattern; content is a stand-in, the
// engine treats frames as opaque.
func (s *Simulator) renderFrame() {
	w, h := s.cfg.FrameWidth, s.cfg.FrameHeight
	data := make([]byte, w*h)
	for i := range data {
		data[i] = byte((uint64(i) + s.frameSeq*7) % 251)
	}
	s.frameSeq++
	s.frame = &env.Frame{
		Seq:    s.frameSeq,
		Stamp:  time.Now(),
		Width:  w,
		Height: h,
		Data:   data,
	}
}
