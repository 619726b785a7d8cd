package env_test

import (
	"context"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/flightline/aerogym/internal/env"
	"github.com/flightline/aerogym/internal/geom"
)

// recorder collects the call sequence shared by all fakes so ordering
// invariants can be asserted.
type recorder struct {
	calls []string
}

func (r *recorder) note(call string) {
	r.calls = append(r.calls, call)
}

type fakeWorld struct {
	rec        *recorder
	pauseErr   error
	unpauseErr error
	resetErr   error
}

func (w *fakeWorld) Pause(context.Context) error {
	w.rec.note("world.pause")
	return w.pauseErr
}

func (w *fakeWorld) Unpause(context.Context) error {
	w.rec.note("world.unpause")
	return w.unpauseErr
}

func (w *fakeWorld) Reset(context.Context) error {
	w.rec.note("world.reset")
	return w.resetErr
}

type fakeFlight struct {
	rec *recorder
}

func (f *fakeFlight) Ready(context.Context) error              { f.rec.note("flight.ready"); return nil }
func (f *fakeFlight) Arm(context.Context) error                { f.rec.note("flight.arm"); return nil }
func (f *fakeFlight) Disarm(context.Context) error             { f.rec.note("flight.disarm"); return nil }
func (f *fakeFlight) Takeoff(context.Context, float64) error   { f.rec.note("flight.takeoff"); return nil }
func (f *fakeFlight) Land(context.Context) error               { f.rec.note("flight.land"); return nil }
func (f *fakeFlight) SendVelocity(context.Context, env.Action) error {
	f.rec.note("flight.velocity")
	return nil
}
func (f *fakeFlight) StopPoseEstimator(context.Context) error  { f.rec.note("flight.stopest"); return nil }
func (f *fakeFlight) ResetPoseEstimator(context.Context) error { f.rec.note("flight.resetest"); return nil }

func (f *fakeFlight) Pose() geom.Pose {
	return geom.Pose{Position: r3.Vec{X: 1, Y: 1, Z: 1}, Orientation: geom.Identity}
}
func (f *fakeFlight) Velocity() geom.Twist        { return geom.Twist{} }
func (f *fakeFlight) CollisionSeverity() float64  { return 0 }
func (f *fakeFlight) Frame() *env.Frame           { return &env.Frame{Seq: 1} }

type fakeTask struct {
	rec        *recorder
	initErr    error
	observeErr error
	stepReward float64
	done       bool
	info       env.Info
	lastAction env.Action
}

func (t *fakeTask) Name() string { return "fake-task" }

func (t *fakeTask) PreReset(context.Context) error {
	t.rec.note("task.prereset")
	return nil
}

func (t *fakeTask) SetInitialPose(context.Context) error {
	t.rec.note("task.initialpose")
	return nil
}

func (t *fakeTask) InitEpisode(_ context.Context, st *env.EpisodeState) error {
	t.rec.note("task.init")
	if t.initErr != nil {
		return t.initErr
	}
	st.PrevDistance = 5
	st.PrevOrientDiff = 0.1
	return nil
}

func (t *fakeTask) Observe(context.Context) (env.Observation, error) {
	t.rec.note("task.observe")
	if t.observeErr != nil {
		return env.Observation{}, t.observeErr
	}
	return env.Observation{
		Pose: geom.Pose{Position: r3.Vec{X: 1, Y: 1, Z: 1}, Orientation: geom.Identity},
	}, nil
}

func (t *fakeTask) Apply(_ context.Context, a env.Action) error {
	t.rec.note("task.apply")
	t.lastAction = a
	return nil
}

func (t *fakeTask) Evaluate(context.Context, env.Observation) (bool, env.Info, error) {
	t.rec.note("task.evaluate")
	return t.done, t.info, nil
}

func (t *fakeTask) Reward(_ context.Context, _ env.Observation, _ bool, st *env.EpisodeState) (float64, error) {
	t.rec.note("task.reward")
	st.CumulatedReward += t.stepReward
	st.Steps++
	return t.stepReward, nil
}

type fakePublisher struct {
	summaries []env.Summary
	err       error
}

func (p *fakePublisher) PublishSummary(_ context.Context, s env.Summary) error {
	if p.err != nil {
		return p.err
	}
	p.summaries = append(p.summaries, s)
	return nil
}
