package env_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/flightline/aerogym/internal/env"
)

var _ = Describe("Controller", func() {
	var (
		ctx    context.Context
		rec    *recorder
		world  *fakeWorld
		flight *fakeFlight
		task   *fakeTask
		pub    *fakePublisher
		ctrl   *env.Controller
	)

	BeforeEach(func() {
		ctx = context.Background()
		rec = &recorder{}
		world = &fakeWorld{rec: rec}
		flight = &fakeFlight{rec: rec}
		task = &fakeTask{rec: rec, stepReward: 2}
		pub = &fakePublisher{}

		var err error
		ctrl, err = env.NewController(task, world, flight, pub, env.DefaultActionBounds(), zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(ctrl.Phase()).To(Equal(env.PhaseIdle))
	})

	Describe("construction", func() {
		It("rejects a nil task", func() {
			_, err := env.NewController(nil, world, flight, pub, env.DefaultActionBounds(), nil)
			Expect(err).To(HaveOccurred())
		})

		It("rejects a nil world control", func() {
			_, err := env.NewController(task, nil, flight, pub, env.DefaultActionBounds(), nil)
			Expect(err).To(HaveOccurred())
		})

		It("rejects a nil flight backend", func() {
			_, err := env.NewController(task, world, nil, pub, env.DefaultActionBounds(), nil)
			Expect(err).To(HaveOccurred())
		})

		It("tolerates a nil publisher and logger", func() {
			c, err := env.NewController(task, world, flight, nil, env.DefaultActionBounds(), nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = c.Reset(ctx)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Reset", func() {
		It("runs the reset sequence in order", func() {
			_, err := ctrl.Reset(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.calls).To(Equal([]string{
				"world.unpause",
				"task.prereset",
				"world.pause",
				"world.reset",
				"task.initialpose",
				"world.unpause",
				"task.init",
				"task.observe",
			}))
			Expect(ctrl.Phase()).To(Equal(env.PhaseRunning))
		})

		It("publishes the boundary summary and advances the counter", func() {
			_, err := ctrl.Reset(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(pub.summaries).To(HaveLen(1))
			Expect(pub.summaries[0].Episode).To(Equal(0))
			Expect(pub.summaries[0].Reward).To(BeZero())
			Expect(ctrl.State().Episode).To(Equal(1))
			Expect(ctrl.State().CumulatedReward).To(BeZero())
		})

		It("seeds the shaping baselines through the task", func() {
			_, err := ctrl.Reset(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ctrl.State().PrevDistance).To(Equal(5.0))
			Expect(ctrl.State().PrevOrientDiff).To(Equal(0.1))
		})

		It("surfaces an unavailable simulator immediately", func() {
			world.pauseErr = env.ErrSimulatorUnavailable
			_, err := ctrl.Reset(ctx)
			Expect(errors.Is(err, env.ErrSimulatorUnavailable)).To(BeTrue())
			Expect(ctrl.Phase()).NotTo(Equal(env.PhaseRunning))
		})

		It("keeps going when the publisher fails", func() {
			pub.err = errors.New("broker unreachable")
			_, err := ctrl.Reset(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ctrl.Phase()).To(Equal(env.PhaseRunning))
		})

		Context("when actuation keeps timing out", func() {
			BeforeEach(func() {
				task.initErr = &env.ActuationError{Op: "arm", Attempts: 3, Err: env.ErrActuationTimeout}
			})

			It("forces the episode to DONE instead of failing", func() {
				_, err := ctrl.Reset(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(ctrl.Phase()).To(Equal(env.PhaseDone))
				Expect(ctrl.State().Reason).To(ContainSubstring("arm"))
			})

			It("still publishes the previous episode at the boundary", func() {
				_, err := ctrl.Reset(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(pub.summaries).To(HaveLen(1))
				Expect(pub.summaries[0].Episode).To(Equal(0))
			})

			It("rejects stepping the dead episode", func() {
				_, err := ctrl.Reset(ctx)
				Expect(err).NotTo(HaveOccurred())
				_, err = ctrl.Step(ctx, env.Action{})
				Expect(errors.Is(err, env.ErrEpisodeDone)).To(BeTrue())
			})

			It("recovers on the next reset once actuation works again", func() {
				_, err := ctrl.Reset(ctx)
				Expect(err).NotTo(HaveOccurred())
				task.initErr = nil
				_, err = ctrl.Reset(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(ctrl.Phase()).To(Equal(env.PhaseRunning))
			})
		})

		It("propagates non-timeout init failures", func() {
			task.initErr = errors.New("estimator refused to reset")
			_, err := ctrl.Reset(ctx)
			Expect(err).To(HaveOccurred())
			Expect(ctrl.Phase()).NotTo(Equal(env.PhaseRunning))
		})
	})

	Describe("Step", func() {
		It("refuses to step before the first reset", func() {
			_, err := ctrl.Step(ctx, env.Action{})
			Expect(errors.Is(err, env.ErrNotRunning)).To(BeTrue())
		})

		It("gates the actuation between unpause and pause", func() {
			_, err := ctrl.Reset(ctx)
			Expect(err).NotTo(HaveOccurred())
			rec.calls = nil

			_, err = ctrl.Step(ctx, env.Action{VX: 0.5})
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.calls).To(Equal([]string{
				"world.unpause",
				"task.apply",
				"world.pause",
				"task.observe",
				"task.evaluate",
				"task.reward",
			}))
		})

		It("clamps actions to the envelope before applying them", func() {
			_, err := ctrl.Reset(ctx)
			Expect(err).NotTo(HaveOccurred())

			_, err = ctrl.Step(ctx, env.Action{VX: 99, VZ: -99, YawRate: -99})
			Expect(err).NotTo(HaveOccurred())
			Expect(task.lastAction.VX).To(Equal(1.0))
			Expect(task.lastAction.VZ).To(Equal(-1.0))
			Expect(task.lastAction.YawRate).To(Equal(-1.5))
		})

		It("accumulates reward and steps in the episode state", func() {
			_, err := ctrl.Reset(ctx)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 3; i++ {
				res, err := ctrl.Step(ctx, env.Action{VX: 0.1})
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Reward).To(Equal(2.0))
			}
			Expect(ctrl.State().CumulatedReward).To(Equal(6.0))
			Expect(ctrl.State().Steps).To(Equal(3))
		})

		It("moves to DONE and records the reason on a terminal step", func() {
			_, err := ctrl.Reset(ctx)
			Expect(err).NotTo(HaveOccurred())

			task.done = true
			task.info = env.Info{"reason": "reached_goal", "reached_goal": true}
			res, err := ctrl.Step(ctx, env.Action{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Done).To(BeTrue())
			Expect(res.Info).To(HaveKeyWithValue("reason", "reached_goal"))
			Expect(ctrl.Phase()).To(Equal(env.PhaseDone))
			Expect(ctrl.State().Reason).To(Equal("reached_goal"))

			_, err = ctrl.Step(ctx, env.Action{})
			Expect(errors.Is(err, env.ErrEpisodeDone)).To(BeTrue())
		})

		It("publishes the finished episode at the next reset", func() {
			_, err := ctrl.Reset(ctx)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 3; i++ {
				_, err = ctrl.Step(ctx, env.Action{})
				Expect(err).NotTo(HaveOccurred())
			}

			_, err = ctrl.Reset(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(pub.summaries).To(HaveLen(2))
			Expect(pub.summaries[1].Episode).To(Equal(1))
			Expect(pub.summaries[1].Reward).To(Equal(6.0))
			Expect(pub.summaries[1].Steps).To(Equal(3))
			Expect(ctrl.State().Episode).To(Equal(2))
		})
	})

	Describe("Close", func() {
		It("flushes the in-flight summary and releases the airframe", func() {
			_, err := ctrl.Reset(ctx)
			Expect(err).NotTo(HaveOccurred())
			_, err = ctrl.Step(ctx, env.Action{})
			Expect(err).NotTo(HaveOccurred())

			Expect(ctrl.Close(ctx)).To(Succeed())
			Expect(pub.summaries).To(HaveLen(2))
			Expect(pub.summaries[1].Reward).To(Equal(2.0))
			Expect(pub.summaries[1].Steps).To(Equal(1))
			Expect(rec.calls).To(ContainElement("flight.land"))
			Expect(rec.calls).To(ContainElement("flight.disarm"))
		})

		It("is idempotent and blocks further use", func() {
			_, err := ctrl.Reset(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(ctrl.Close(ctx)).To(Succeed())
			n := len(pub.summaries)
			Expect(ctrl.Close(ctx)).To(Succeed())
			Expect(pub.summaries).To(HaveLen(n))

			_, err = ctrl.Step(ctx, env.Action{})
			Expect(errors.Is(err, env.ErrClosed)).To(BeTrue())
			_, err = ctrl.Reset(ctx)
			Expect(errors.Is(err, env.ErrClosed)).To(BeTrue())
		})
	})
})
