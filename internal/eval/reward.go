package eval

import (
	"fmt"

	"github.com/flightline/aerogym/internal/env"
	"github.com/flightline/aerogym/internal/geom"
)

// RewardPolicy is the immutable set of reward constants for a task.
type RewardPolicy struct {
	// CloserToPoint is paid whenever the combined pose delta improved.
	CloserToPoint float64
	// CollisionPenalty is paid on any collision, mid-episode or terminal.
	// Expected negative.
	CollisionPenalty float64
	// EndEpisodePoints is paid on reaching the goal at a terminal step and
	// charged (negated) on any other non-collision terminal step.
	EndEpisodePoints float64
}

// terminalGoalEpsilon is the fixed box epsilon for the terminal goal
// check. It is independent of the termination epsilon used by the done
// decision.
const terminalGoalEpsilon = 0.5

// Shaper computes shaped per-step rewards against a goal. The shaper holds
// no per-episode state; shaping history lives in the EpisodeState the
// caller threads through Step.
type Shaper struct {
	policy RewardPolicy
	goal   Goal
}

// NewShaper binds a reward policy to a goal.
func NewShaper(policy RewardPolicy, goal Goal) *Shaper {
	return &Shaper{policy: policy, goal: goal}
}

// Baseline seeds the shaping history from the first pose of an episode so
// the first step's delta measures actual movement.
func (s *Shaper) Baseline(st *env.EpisodeState, pose geom.Pose) error {
	dist := s.goal.PositionDistance(pose.Position)
	odiff, err := s.goal.OrientationDiff(pose.Orientation)
	if err != nil {
		return fmt.Errorf("orientation difference: %w", err)
	}
	st.PrevDistance = dist
	st.PrevOrientDiff = odiff
	return nil
}

// Step computes the reward for the current pose and advances st: the
// shaping baselines take the current values, the reward joins the
// accumulator and the step counter increments. The orientation delta
// counts twice in the combined delta.
func (s *Shaper) Step(st *env.EpisodeState, pose geom.Pose, collided, done bool) (float64, error) {
	dist := s.goal.PositionDistance(pose.Position)
	odiff, err := s.goal.OrientationDiff(pose.Orientation)
	if err != nil {
		return 0, fmt.Errorf("orientation difference: %w", err)
	}

	var reward float64
	if done {
		switch {
		case collided:
			reward = s.policy.CollisionPenalty
		case s.goal.Reached(pose, terminalGoalEpsilon):
			reward = s.policy.EndEpisodePoints
		default:
			reward = -s.policy.EndEpisodePoints
		}
	} else {
		delta := (dist - st.PrevDistance) + 2*(odiff-st.PrevOrientDiff)
		switch {
		case collided:
			reward = s.policy.CollisionPenalty
		case delta < 0:
			reward = s.policy.CloserToPoint
		}
	}

	st.PrevDistance = dist
	st.PrevOrientDiff = odiff
	st.CumulatedReward += reward
	st.Steps++
	return reward, nil
}
