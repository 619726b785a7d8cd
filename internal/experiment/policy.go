// Package experiment runs scripted policies against an environment for a
// fixed number of episodes and aggregates the results.
package experiment

import (
	"math/rand"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/flightline/aerogym/internal/env"
	"github.com/flightline/aerogym/internal/geom"
)

// Policy picks the next action from an observation.
type Policy interface {
	Name() string
	Action(obs env.Observation) env.Action
}

// Random samples actions uniformly from the command envelope. The same seed
// reproduces the same action sequence.
type Random struct {
	rng    *rand.Rand
	bounds env.ActionBounds
}

func NewRandom(seed int64, bounds env.ActionBounds) *Random {
	return &Random{
		rng:    rand.New(rand.NewSource(seed)),
		bounds: bounds,
	}
}

func (p *Random) Name() string {
	return "random"
}

func (p *Random) Action(obs env.Observation) env.Action {
	return env.Action{
		VX:      p.uniform(p.bounds.Linear),
		VY:      p.uniform(p.bounds.Linear),
		VZ:      p.uniform(p.bounds.Linear),
		YawRate: p.uniform(p.bounds.YawRate),
	}
}

func (p *Random) uniform(iv r1.Interval) float64 {
	return iv.Min + p.rng.Float64()*(iv.Max-iv.Min)
}

// Seek is a proportional controller toward a fixed goal position. It is not
// a learned policy; it provides a scripted baseline that reliably crosses
// the workspace.
type Seek struct {
	goal   r3.Vec
	gain   float64
	bounds env.ActionBounds
}

func NewSeek(goal r3.Vec, gain float64, bounds env.ActionBounds) *Seek {
	if gain <= 0 {
		gain = 0.8
	}
	return &Seek{goal: goal, gain: gain, bounds: bounds}
}

func (p *Seek) Name() string {
	return "seek"
}

// Action converts the world-frame position error into a body-frame velocity
// command. Commands are interpreted in the vehicle's frame, so the error is
// rotated back by the inverse of the current orientation.
func (p *Seek) Action(obs env.Observation) env.Action {
	cmd := r3.Scale(p.gain, r3.Sub(p.goal, obs.Pose.Position))
	if unit, err := geom.Normalize(obs.Pose.Orientation); err == nil {
		cmd = geom.Rotate(quat.Conj(unit), cmd)
	}
	a := env.Action{VX: cmd.X, VY: cmd.Y, VZ: cmd.Z}
	return a.Clamp(p.bounds)
}

// Hold commands zero velocity. The do-nothing baseline.
type Hold struct{}

func NewHold() *Hold {
	return &Hold{}
}

func (*Hold) Name() string {
	return "hold"
}

func (*Hold) Action(env.Observation) env.Action {
	return env.Action{}
}
