package eval

import (
	"go.uber.org/zap"

	"github.com/flightline/aerogym/internal/geom"
)

// Result is the outcome of one termination evaluation. All five flags are
// computed on every step; done is their OR.
type Result struct {
	Collided         bool
	OutsideWorkspace bool
	TooCloseToGround bool
	Flipped          bool
	ReachedGoal      bool
}

// Done reports whether any flag ended the episode.
func (r Result) Done() bool {
	return r.Collided || r.OutsideWorkspace || r.TooCloseToGround ||
		r.Flipped || r.ReachedGoal
}

// Reason names the highest-precedence raised flag, or "" when none fired.
func (r Result) Reason() string {
	switch {
	case r.Collided:
		return "collided"
	case r.OutsideWorkspace:
		return "outside_workspace"
	case r.TooCloseToGround:
		return "too_close_to_ground"
	case r.Flipped:
		return "flipped"
	case r.ReachedGoal:
		return "reached_goal"
	}
	return ""
}

// Termination evaluates the five episode-ending conditions against a pose.
type Termination struct {
	workspace Workspace
	ground    GroundLimit
	attitude  AttitudeLimits
	goal      Goal
	logger    *zap.Logger
}

// NewTermination wires the sub-checkers. A nil logger is replaced with a
// no-op.
func NewTermination(ws Workspace, ground GroundLimit, att AttitudeLimits, goal Goal, logger *zap.Logger) *Termination {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Termination{
		workspace: ws,
		ground:    ground,
		attitude:  att,
		goal:      goal,
		logger:    logger,
	}
}

// Evaluate computes every flag for the pose. collisionSeverity is the raw
// collision scalar from the sensing side; any positive value counts as a
// collision. Altitude is the up-positive z of the pose. Each raised flag
// is reported on its own log line.
func (t *Termination) Evaluate(pose geom.Pose, collisionSeverity float64) Result {
	r := Result{
		Collided:         collisionSeverity > 0,
		OutsideWorkspace: !t.workspace.Contains(pose.Position),
		TooCloseToGround: t.ground.TooClose(pose.Position.Z),
		Flipped:          t.attitude.Flipped(pose.Orientation),
		ReachedGoal:      t.goal.Reached(pose, t.goal.Epsilon),
	}
	t.report(r, pose, collisionSeverity)
	return r
}

func (t *Termination) report(r Result, pose geom.Pose, severity float64) {
	p := pose.Position
	if r.Collided {
		t.logger.Warn("uav collided", zap.Float64("severity", severity))
	}
	if r.OutsideWorkspace {
		t.logger.Warn("uav outside workspace",
			zap.Float64("x", p.X), zap.Float64("y", p.Y), zap.Float64("z", p.Z))
	}
	if r.TooCloseToGround {
		t.logger.Warn("uav too close to ground",
			zap.Float64("altitude", p.Z),
			zap.Float64("min_height", t.ground.MinHeight))
	}
	if r.Flipped {
		e := geom.Euler(pose.Orientation)
		t.logger.Warn("uav flipped",
			zap.Float64("roll", e.Roll), zap.Float64("pitch", e.Pitch))
	}
	if r.ReachedGoal {
		t.logger.Info("uav reached desired pose",
			zap.Float64("x", p.X), zap.Float64("y", p.Y), zap.Float64("z", p.Z))
	}
}
