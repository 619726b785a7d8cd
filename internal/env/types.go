package env

import (
	"context"
	"time"

	"gonum.org/v1/gonum/spatial/r1"

	"github.com/flightline/aerogym/internal/geom"
)

// Frame is an opaque camera frame. The engine forwards frames to policies
// without inspecting pixel content.
type Frame struct {
	Seq    uint64
	Stamp  time.Time
	Width  int
	Height int
	Data   []byte
}

// Observation is what a policy sees after each step: the numeric state and
// the latest camera frame.
type Observation struct {
	Pose     geom.Pose
	Velocity geom.Twist
	Frame    *Frame
}

// Vector flattens the numeric observation in the fixed order
// [x y z qw qx qy qz vx vy vz wx wy wz].
func (o Observation) Vector() []float64 {
	p := o.Pose.Position
	q := o.Pose.Orientation
	v := o.Velocity.Linear
	w := o.Velocity.Angular
	return []float64{
		p.X, p.Y, p.Z,
		q.Real, q.Imag, q.Jmag, q.Kmag,
		v.X, v.Y, v.Z,
		w.X, w.Y, w.Z,
	}
}

// Action is a body-frame velocity command: linear x/y/z plus yaw rate.
type Action struct {
	VX      float64
	VY      float64
	VZ      float64
	YawRate float64
}

// ActionBounds is the per-component command envelope enforced before any
// velocity command reaches the backend.
type ActionBounds struct {
	Linear  r1.Interval
	YawRate r1.Interval
}

// DefaultActionBounds is a conservative indoor flight envelope.
func DefaultActionBounds() ActionBounds {
	return ActionBounds{
		Linear:  r1.Interval{Min: -1, Max: 1},
		YawRate: r1.Interval{Min: -1.5, Max: 1.5},
	}
}

func clamp(v float64, iv r1.Interval) float64 {
	if v < iv.Min {
		return iv.Min
	}
	if v > iv.Max {
		return iv.Max
	}
	return v
}

// Clamp bounds each component of the action to the envelope.
func (a Action) Clamp(b ActionBounds) Action {
	return Action{
		VX:      clamp(a.VX, b.Linear),
		VY:      clamp(a.VY, b.Linear),
		VZ:      clamp(a.VZ, b.Linear),
		YawRate: clamp(a.YawRate, b.YawRate),
	}
}

// Info carries per-step diagnostics: one boolean per termination flag plus
// a "reason" string when the step ended the episode.
type Info map[string]any

// StepResult bundles the outcome of one environment step.
type StepResult struct {
	Observation Observation
	Reward      float64
	Done        bool
	Info        Info
}

// Summary is the per-episode record published at episode boundaries.
type Summary struct {
	Task    string    `json:"task"`
	Episode int       `json:"episode"`
	Reward  float64   `json:"reward"`
	Steps   int       `json:"steps"`
	Reason  string    `json:"reason,omitempty"`
	Ended   time.Time `json:"ended"`
}

// WorldControl pauses, unpauses, and resets the simulated world. An
// unreachable world surfaces ErrSimulatorUnavailable.
type WorldControl interface {
	Pause(ctx context.Context) error
	Unpause(ctx context.Context) error
	Reset(ctx context.Context) error
}

// FlightBackend is the flight-control side of the simulator: acknowledged
// commands plus latest-value sensor snapshots. Commands use bounded waits
// and surface ErrActuationTimeout when the acknowledgement never arrives.
type FlightBackend interface {
	Ready(ctx context.Context) error
	Arm(ctx context.Context) error
	Disarm(ctx context.Context) error
	Takeoff(ctx context.Context, altitude float64) error
	Land(ctx context.Context) error
	SendVelocity(ctx context.Context, a Action) error
	StopPoseEstimator(ctx context.Context) error
	ResetPoseEstimator(ctx context.Context) error

	Pose() geom.Pose
	Velocity() geom.Twist
	CollisionSeverity() float64
	Frame() *Frame
}

// Publisher receives episode summaries at episode boundaries. Publishing is
// fire and forget; failures are logged by the controller, never fatal.
type Publisher interface {
	PublishSummary(ctx context.Context, s Summary) error
}

// Task supplies the environment-specific half of an episode: initial
// conditions, observation assembly, action application, termination and
// reward. Implementations receive their backends at construction.
type Task interface {
	Name() string

	// PreReset runs with the world unpaused, before it is paused and reset.
	PreReset(ctx context.Context) error
	// SetInitialPose places the robot for the next episode.
	SetInitialPose(ctx context.Context) error
	// InitEpisode brings the robot to a flying state and baselines st for
	// reward shaping. Runs with the world unpaused.
	InitEpisode(ctx context.Context, st *EpisodeState) error

	Observe(ctx context.Context) (Observation, error)
	Apply(ctx context.Context, a Action) error
	// Evaluate decides termination for obs and reports every raised flag
	// in the returned info.
	Evaluate(ctx context.Context, obs Observation) (done bool, info Info, err error)
	// Reward computes the shaped step reward and updates st.
	Reward(ctx context.Context, obs Observation, done bool, st *EpisodeState) (float64, error)
}
