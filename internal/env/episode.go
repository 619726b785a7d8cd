package env

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// noopPublisher drops summaries. Used when no telemetry sink is wired.
type noopPublisher struct{}

func (noopPublisher) PublishSummary(context.Context, Summary) error { return nil }

// Controller drives one task through the IDLE, RESETTING, RUNNING and DONE
// phases. It owns the EpisodeState and sequences the world around every
// actuation: commands only take effect between Unpause and Pause, so the
// simulated clock never advances while a policy is deciding.
type Controller struct {
	task   Task
	world  WorldControl
	flight FlightBackend
	pub    Publisher
	logger *zap.Logger

	bounds ActionBounds

	phase  Phase
	st     EpisodeState
	closed bool
}

// NewController validates the collaborators and returns an idle controller.
// Task, world control and flight backend are required; a nil publisher
// discards summaries and a nil logger is replaced with a no-op.
func NewController(task Task, world WorldControl, flight FlightBackend, pub Publisher, bounds ActionBounds, logger *zap.Logger) (*Controller, error) {
	if task == nil {
		return nil, errors.New("env: nil task")
	}
	if world == nil {
		return nil, errors.New("env: nil world control")
	}
	if flight == nil {
		return nil, errors.New("env: nil flight backend")
	}
	if pub == nil {
		pub = noopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if bounds.Linear.Min == 0 && bounds.Linear.Max == 0 {
		bounds = DefaultActionBounds()
	}
	return &Controller{
		task:   task,
		world:  world,
		flight: flight,
		pub:    pub,
		logger: logger,
		bounds: bounds,
		phase:  PhaseIdle,
	}, nil
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// State returns a copy of the episode state. The controller keeps sole
// ownership of the live value.
func (c *Controller) State() EpisodeState {
	return c.st
}

// Task returns the task driven by this controller.
func (c *Controller) Task() Task {
	return c.task
}

// Reset runs the fixed reset sequence and returns the initial observation:
// pre-reset with the world running, pause, world reset, initial pose,
// episode init with the world running, episode boundary, observe. An
// arming or takeoff command that keeps timing out does not fail the reset;
// the new episode is forced straight to DONE with the failure recorded, so
// training loops can move on to the next episode instead of crashing.
func (c *Controller) Reset(ctx context.Context) (Observation, error) {
	if c.closed {
		return Observation{}, ErrClosed
	}
	c.phase = PhaseResetting
	c.logger.Debug("episode reset", zap.Int("episode", c.st.Episode))

	if err := c.world.Unpause(ctx); err != nil {
		return Observation{}, fmt.Errorf("unpause world: %w", err)
	}
	if err := c.task.PreReset(ctx); err != nil {
		return Observation{}, fmt.Errorf("pre-reset: %w", err)
	}
	if err := c.world.Pause(ctx); err != nil {
		return Observation{}, fmt.Errorf("pause world: %w", err)
	}
	if err := c.world.Reset(ctx); err != nil {
		return Observation{}, fmt.Errorf("reset world: %w", err)
	}
	if err := c.task.SetInitialPose(ctx); err != nil {
		return Observation{}, fmt.Errorf("set initial pose: %w", err)
	}
	if err := c.world.Unpause(ctx); err != nil {
		return Observation{}, fmt.Errorf("unpause world: %w", err)
	}

	if err := c.task.InitEpisode(ctx, &c.st); err != nil {
		if errors.Is(err, ErrActuationTimeout) {
			return c.failEpisode(ctx, err)
		}
		return Observation{}, fmt.Errorf("init episode: %w", err)
	}

	c.boundary(ctx)
	c.st.Reason = ""

	obs, err := c.task.Observe(ctx)
	if err != nil {
		return Observation{}, fmt.Errorf("observe: %w", err)
	}
	c.phase = PhaseRunning
	return obs, nil
}

// failEpisode closes out the previous episode at the boundary, then marks
// the new one dead on arrival. The failure is reported, not returned.
func (c *Controller) failEpisode(ctx context.Context, cause error) (Observation, error) {
	c.boundary(ctx)
	c.st.Reason = cause.Error()
	c.phase = PhaseDone
	c.logger.Error("episode init failed, forcing done",
		zap.Int("episode", c.st.Episode),
		zap.Error(cause),
	)
	obs, err := c.task.Observe(ctx)
	if err != nil {
		c.logger.Warn("observe after failed init", zap.Error(err))
		return Observation{}, nil
	}
	return obs, nil
}

// Step applies one clamped action and returns the resulting observation,
// shaped reward, done flag and per-flag info. The reward call updates the
// episode state (accumulator, step count, shaping baselines).
func (c *Controller) Step(ctx context.Context, a Action) (StepResult, error) {
	if c.closed {
		return StepResult{}, ErrClosed
	}
	switch c.phase {
	case PhaseRunning:
	case PhaseDone:
		return StepResult{}, ErrEpisodeDone
	default:
		return StepResult{}, ErrNotRunning
	}

	a = a.Clamp(c.bounds)
	if err := c.world.Unpause(ctx); err != nil {
		return StepResult{}, fmt.Errorf("unpause world: %w", err)
	}
	if err := c.task.Apply(ctx, a); err != nil {
		return StepResult{}, fmt.Errorf("apply action: %w", err)
	}
	if err := c.world.Pause(ctx); err != nil {
		return StepResult{}, fmt.Errorf("pause world: %w", err)
	}

	obs, err := c.task.Observe(ctx)
	if err != nil {
		return StepResult{}, fmt.Errorf("observe: %w", err)
	}
	done, info, err := c.task.Evaluate(ctx, obs)
	if err != nil {
		return StepResult{}, fmt.Errorf("evaluate: %w", err)
	}
	reward, err := c.task.Reward(ctx, obs, done, &c.st)
	if err != nil {
		return StepResult{}, fmt.Errorf("reward: %w", err)
	}

	if done {
		c.phase = PhaseDone
		if reason, ok := info["reason"].(string); ok {
			c.st.Reason = reason
		}
		c.logger.Info("episode done",
			zap.Int("episode", c.st.Episode),
			zap.Int("steps", c.st.Steps),
			zap.Float64("reward", c.st.CumulatedReward),
			zap.String("reason", c.st.Reason),
		)
	}
	return StepResult{Observation: obs, Reward: reward, Done: done, Info: info}, nil
}

// Close flushes the in-flight episode summary and releases the backend.
// Safe to call more than once.
func (c *Controller) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.boundary(ctx)
	if err := c.flight.Land(ctx); err != nil {
		c.logger.Warn("land on close", zap.Error(err))
	}
	if err := c.flight.Disarm(ctx); err != nil {
		c.logger.Warn("disarm on close", zap.Error(err))
	}
	return nil
}

// boundary publishes the episode that just ended, then advances the
// counter and zeroes the per-episode accumulators.
func (c *Controller) boundary(ctx context.Context) {
	s := Summary{
		Task:    c.task.Name(),
		Episode: c.st.Episode,
		Reward:  c.st.CumulatedReward,
		Steps:   c.st.Steps,
		Reason:  c.st.Reason,
		Ended:   time.Now(),
	}
	if err := c.pub.PublishSummary(ctx, s); err != nil {
		c.logger.Warn("publish episode summary",
			zap.Int("episode", s.Episode),
			zap.Error(err),
		)
	}
	c.st.Episode++
	c.st.CumulatedReward = 0
	c.st.Steps = 0
}
