package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/flightline/aerogym/internal/env"
	"github.com/flightline/aerogym/internal/metrics"
	"github.com/flightline/aerogym/internal/store"
)

// Options tunes a run. Episodes is required; everything else has a default.
type Options struct {
	Episodes int
	// MaxSteps truncates episodes that never hit a terminal flag.
	MaxSteps int
	// Metrics defaults to the standard set.
	Metrics []metrics.Metric
	// Store, when set, receives the run and its episode records.
	Store *store.Store
	// ConfigYAML is the configuration snapshot stored with the run.
	ConfigYAML string
	Seed       int64
	// OnEpisode is called after every finished episode, dead ones included.
	OnEpisode func(env.Summary)
	Logger    *zap.Logger
}

// Report is the outcome of a run: one summary per episode plus the
// aggregated metrics.
type Report struct {
	RunID    string
	Task     string
	Policy   string
	Episodes []env.Summary
	Rewards  []float64
	Metrics  map[string]float64
}

// Runner drives a controller with a policy for a fixed number of episodes.
type Runner struct {
	ctrl   *env.Controller
	policy Policy
	opts   Options
	logger *zap.Logger
}

// NewRunner validates the collaborators and applies option defaults.
func NewRunner(ctrl *env.Controller, policy Policy, opts Options) (*Runner, error) {
	if ctrl == nil {
		return nil, errors.New("experiment: nil controller")
	}
	if policy == nil {
		return nil, errors.New("experiment: nil policy")
	}
	if opts.Episodes < 1 {
		return nil, fmt.Errorf("experiment: episodes must be positive, got %d", opts.Episodes)
	}
	if opts.MaxSteps < 1 {
		opts.MaxSteps = 500
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Standard()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Runner{ctrl: ctrl, policy: policy, opts: opts, logger: opts.Logger}, nil
}

// Run executes every episode and returns the aggregated report. Episodes
// whose initialisation keeps timing out are recorded as dead (zero steps,
// the failure as reason) and the run moves on. On context cancellation the
// report covers the episodes finished so far.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	taskName := r.ctrl.Task().Name()
	report := &Report{Task: taskName, Policy: r.policy.Name()}

	if r.opts.Store != nil {
		run, err := r.opts.Store.CreateRun(taskName, r.policy.Name(), r.opts.Seed, r.opts.ConfigYAML)
		if err != nil {
			return nil, fmt.Errorf("create run record: %w", err)
		}
		report.RunID = run.ID
	}

	for ep := 0; ep < r.opts.Episodes; ep++ {
		if err := ctx.Err(); err != nil {
			report.Metrics = metrics.Collect(r.opts.Metrics)
			return report, err
		}

		obs, err := r.ctrl.Reset(ctx)
		if err != nil {
			return nil, fmt.Errorf("reset episode %d: %w", ep, err)
		}

		var summary env.Summary
		if r.ctrl.Phase().Terminal() {
			// Initialisation failed; the episode is dead on arrival.
			summary = env.Summary{
				Task:    taskName,
				Episode: ep,
				Reason:  r.ctrl.State().Reason,
				Ended:   time.Now(),
			}
		} else {
			summary, err = r.episode(ctx, ep, obs)
			if err != nil {
				return nil, err
			}
		}

		metrics.ObserveAll(r.opts.Metrics, summary)
		report.Episodes = append(report.Episodes, summary)
		report.Rewards = append(report.Rewards, summary.Reward)

		if r.opts.Store != nil {
			rec := store.Episode{
				RunID:   report.RunID,
				Episode: summary.Episode,
				Reward:  summary.Reward,
				Steps:   summary.Steps,
				Reason:  summary.Reason,
				EndedAt: summary.Ended,
			}
			if err := r.opts.Store.RecordEpisode(rec); err != nil {
				return nil, fmt.Errorf("record episode %d: %w", ep, err)
			}
		}
		if r.opts.OnEpisode != nil {
			r.opts.OnEpisode(summary)
		}
		r.logger.Info("episode complete",
			zap.Int("episode", summary.Episode),
			zap.Float64("reward", summary.Reward),
			zap.Int("steps", summary.Steps),
			zap.String("reason", summary.Reason),
		)
	}

	if r.opts.Store != nil {
		if err := r.opts.Store.FinishRun(report.RunID); err != nil {
			return nil, fmt.Errorf("finish run record: %w", err)
		}
	}
	report.Metrics = metrics.Collect(r.opts.Metrics)
	return report, nil
}

// episode steps the policy until a terminal flag or the step cap.
func (r *Runner) episode(ctx context.Context, ep int, obs env.Observation) (env.Summary, error) {
	var total float64
	steps := 0
	reason := ""

	for steps < r.opts.MaxSteps {
		res, err := r.ctrl.Step(ctx, r.policy.Action(obs))
		if err != nil {
			return env.Summary{}, fmt.Errorf("episode %d step %d: %w", ep, steps, err)
		}
		total += res.Reward
		steps++
		obs = res.Observation
		if res.Done {
			if s, ok := res.Info["reason"].(string); ok {
				reason = s
			}
			break
		}
	}
	if reason == "" && steps >= r.opts.MaxSteps {
		reason = "max_steps"
	}

	return env.Summary{
		Task:    r.ctrl.Task().Name(),
		Episode: ep,
		Reward:  total,
		Steps:   steps,
		Reason:  reason,
		Ended:   time.Now(),
	}, nil
}
