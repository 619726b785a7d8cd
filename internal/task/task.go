// Package task implements the concrete flight tasks driven by the episode
// controller: waypoint seeking and hovering. Both are pose tasks; they
// differ only in how the desired pose is chosen.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/flightline/aerogym/internal/env"
	"github.com/flightline/aerogym/internal/eval"
	"github.com/flightline/aerogym/internal/geom"
)

// Params collects everything a pose task needs beyond its backend.
type Params struct {
	Workspace eval.Workspace
	Ground    eval.GroundLimit
	Attitude  eval.AttitudeLimits
	Goal      eval.Goal
	Rewards   eval.RewardPolicy

	// Spawn is where the world reset places the vehicle, SpawnYaw its
	// initial heading. The hover task derives its goal from these.
	Spawn    r3.Vec
	SpawnYaw float64

	TakeoffAltitude  float64
	ActuationRetries int
	// AckTimeout bounds each arm and takeoff attempt.
	AckTimeout time.Duration
}

// PoseTask flies toward a desired pose and terminates on the standard flag
// set. It backs both the waypoint and hover environments.
type PoseTask struct {
	name       string
	flight     env.FlightBackend
	term       *eval.Termination
	shaper     *eval.Shaper
	goal       eval.Goal
	altitude   float64
	retries    int
	ackTimeout time.Duration
	logger     *zap.Logger
}

// NewWaypoint builds the waypoint-seeking task: the goal pose comes straight
// from the params.
func NewWaypoint(flight env.FlightBackend, p Params, logger *zap.Logger) (*PoseTask, error) {
	return newPoseTask("uav-waypoint-v0", flight, p, logger)
}

// NewHover builds the hovering task: the goal is pinned directly above the
// spawn point at takeoff altitude, facing the spawn heading, so the vehicle
// is rewarded for holding the pose takeoff leaves it in.
func NewHover(flight env.FlightBackend, p Params, logger *zap.Logger) (*PoseTask, error) {
	alt := p.TakeoffAltitude
	if alt <= 0 {
		alt = 1
	}
	p.Goal.Pose = geom.Pose{
		Position:    r3.Vec{X: p.Spawn.X, Y: p.Spawn.Y, Z: alt},
		Orientation: geom.FromYaw(p.SpawnYaw),
	}
	return newPoseTask("uav-hover-v0", flight, p, logger)
}

func newPoseTask(name string, flight env.FlightBackend, p Params, logger *zap.Logger) (*PoseTask, error) {
	if flight == nil {
		return nil, errors.New("task: nil flight backend")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if p.TakeoffAltitude <= 0 {
		p.TakeoffAltitude = 1
	}
	if p.ActuationRetries < 1 {
		p.ActuationRetries = 3
	}
	if p.AckTimeout <= 0 {
		p.AckTimeout = 2 * time.Second
	}
	if p.Goal.Mode == "" {
		p.Goal.Mode = geom.DistanceAbsolute
	} else if _, err := geom.ParseDistanceMode(string(p.Goal.Mode)); err != nil {
		return nil, err
	}
	return &PoseTask{
		name:       name,
		flight:     flight,
		term:       eval.NewTermination(p.Workspace, p.Ground, p.Attitude, p.Goal, logger),
		shaper:     eval.NewShaper(p.Rewards, p.Goal),
		goal:       p.Goal,
		altitude:   p.TakeoffAltitude,
		retries:    p.ActuationRetries,
		ackTimeout: p.AckTimeout,
		logger:     logger,
	}, nil
}

func (t *PoseTask) Name() string { return t.name }

// Goal returns the desired pose the task evaluates against. For the hover
// task this is the derived pose above the spawn point, not the configured
// waypoint.
func (t *PoseTask) Goal() eval.Goal { return t.goal }

// PreReset quiets the estimator and motors before the world snaps back to
// its initial state, so the reset does not fight a live controller.
func (t *PoseTask) PreReset(ctx context.Context) error {
	if err := t.flight.StopPoseEstimator(ctx); err != nil {
		return fmt.Errorf("stop pose estimator: %w", err)
	}
	if err := t.flight.Disarm(ctx); err != nil {
		return fmt.Errorf("disarm: %w", err)
	}
	return nil
}

// SetInitialPose zeroes the velocity setpoint so the vehicle holds still the
// moment the world unpauses.
func (t *PoseTask) SetInitialPose(ctx context.Context) error {
	if err := t.flight.SendVelocity(ctx, env.Action{}); err != nil {
		return fmt.Errorf("zero velocity setpoint: %w", err)
	}
	return nil
}

// InitEpisode brings the vehicle to a flying state: estimator reset, backend
// readiness, arm and takeoff with bounded retries, then the reward baseline
// from the first airborne pose.
func (t *PoseTask) InitEpisode(ctx context.Context, st *env.EpisodeState) error {
	if err := t.flight.ResetPoseEstimator(ctx); err != nil {
		return fmt.Errorf("reset pose estimator: %w", err)
	}
	if err := t.flight.Ready(ctx); err != nil {
		return fmt.Errorf("backend ready: %w", err)
	}
	if err := env.RetryActuation(ctx, "arm", t.retries, t.bounded(t.flight.Arm)); err != nil {
		return err
	}
	takeoff := func(ctx context.Context) error {
		return t.flight.Takeoff(ctx, t.altitude)
	}
	if err := env.RetryActuation(ctx, "takeoff", t.retries, t.bounded(takeoff)); err != nil {
		return err
	}
	if err := t.shaper.Baseline(st, t.flight.Pose()); err != nil {
		return err
	}
	t.logger.Debug("episode initialised",
		zap.String("task", t.name),
		zap.Int("episode", st.Episode),
		zap.Float64("initial_distance", st.PrevDistance))
	return nil
}

// bounded caps one actuation attempt at the acknowledgement timeout.
func (t *PoseTask) bounded(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, t.ackTimeout)
		defer cancel()
		return fn(ctx)
	}
}

// Observe snapshots the latest pose, velocity and camera frame.
func (t *PoseTask) Observe(ctx context.Context) (env.Observation, error) {
	return env.Observation{
		Pose:     t.flight.Pose(),
		Velocity: t.flight.Velocity(),
		Frame:    t.flight.Frame(),
	}, nil
}

// Apply forwards the already-clamped velocity command to the backend.
func (t *PoseTask) Apply(ctx context.Context, a env.Action) error {
	return t.flight.SendVelocity(ctx, a)
}

// Evaluate runs the termination flags against the observation and reports
// every flag in info, plus a "reason" entry when the episode ended.
func (t *PoseTask) Evaluate(ctx context.Context, obs env.Observation) (bool, env.Info, error) {
	res := t.term.Evaluate(obs.Pose, t.flight.CollisionSeverity())
	info := env.Info{
		"collided":            res.Collided,
		"outside_workspace":   res.OutsideWorkspace,
		"too_close_to_ground": res.TooCloseToGround,
		"flipped":             res.Flipped,
		"reached_goal":        res.ReachedGoal,
	}
	done := res.Done()
	if done {
		info["reason"] = res.Reason()
	}
	return done, info, nil
}

// Reward shapes the step reward from the observation and advances the
// episode's shaping state.
func (t *PoseTask) Reward(ctx context.Context, obs env.Observation, done bool, st *env.EpisodeState) (float64, error) {
	collided := t.flight.CollisionSeverity() > 0
	return t.shaper.Step(st, obs.Pose, collided, done)
}
