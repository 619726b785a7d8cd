package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/flightline/aerogym/internal/geom"
)

func testTermination(logger *zap.Logger) *Termination {
	ws := Workspace{
		X: r1.Interval{Min: 0, Max: 10},
		Y: r1.Interval{Min: 0, Max: 10},
		Z: r1.Interval{Min: 0, Max: 5},
	}
	goal := Goal{
		Pose: geom.Pose{
			Position:    r3.Vec{X: 8, Y: 8, Z: 4},
			Orientation: geom.Identity,
		},
		Epsilon: 0.2,
		Mode:    geom.DistanceAbsolute,
	}
	return NewTermination(ws, GroundLimit{MinHeight: 0.3}, AttitudeLimits{MaxRoll: 0.3, MaxPitch: 0.3}, goal, logger)
}

func levelPose(x, y, z float64) geom.Pose {
	return geom.Pose{Position: r3.Vec{X: x, Y: y, Z: z}, Orientation: geom.Identity}
}

func TestTerminationNominal(t *testing.T) {
	term := testTermination(nil)
	r := term.Evaluate(levelPose(5, 5, 2), 0)

	assert.False(t, r.Collided)
	assert.False(t, r.OutsideWorkspace)
	assert.False(t, r.TooCloseToGround)
	assert.False(t, r.Flipped)
	assert.False(t, r.ReachedGoal)
	assert.False(t, r.Done())
	assert.Empty(t, r.Reason())
}

func TestTerminationSingleFlags(t *testing.T) {
	term := testTermination(nil)

	cases := []struct {
		name     string
		pose     geom.Pose
		severity float64
		check    func(Result) bool
		reason   string
	}{
		{"collision", levelPose(5, 5, 2), 1.5, func(r Result) bool { return r.Collided }, "collided"},
		{"outside workspace", levelPose(-1, 5, 2), 0, func(r Result) bool { return r.OutsideWorkspace }, "outside_workspace"},
		{"too close to ground", levelPose(5, 5, 0.1), 0, func(r Result) bool { return r.TooCloseToGround }, "too_close_to_ground"},
		{
			"flipped",
			geom.Pose{Position: r3.Vec{X: 5, Y: 5, Z: 2}, Orientation: geom.FromEuler(0.5, 0, 0)},
			0,
			func(r Result) bool { return r.Flipped },
			"flipped",
		},
		{"reached goal", levelPose(8, 8, 4), 0, func(r Result) bool { return r.ReachedGoal }, "reached_goal"},
	}
	for _, tc := range cases {
		r := term.Evaluate(tc.pose, tc.severity)
		assert.True(t, tc.check(r), "%s: flag not raised", tc.name)
		assert.True(t, r.Done(), "%s: done not raised", tc.name)
		assert.Equal(t, tc.reason, r.Reason(), "%s: wrong reason", tc.name)
	}
}

func TestTerminationFlagsAreIndependent(t *testing.T) {
	term := testTermination(nil)

	// Outside the workspace, below the floor and flipped at once.
	pose := geom.Pose{
		Position:    r3.Vec{X: -2, Y: 5, Z: 0.1},
		Orientation: geom.FromEuler(1.0, 0, 0),
	}
	r := term.Evaluate(pose, 2.0)

	assert.True(t, r.Collided)
	assert.True(t, r.OutsideWorkspace)
	assert.True(t, r.TooCloseToGround)
	assert.True(t, r.Flipped)
	assert.False(t, r.ReachedGoal)
	assert.Equal(t, "collided", r.Reason())
}

func TestTerminationReportsEachRaisedFlag(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	term := testTermination(zap.New(core))

	term.Evaluate(levelPose(5, 5, 2), 0)
	assert.Zero(t, logs.Len(), "nominal pose should log nothing")

	pose := geom.Pose{
		Position:    r3.Vec{X: -2, Y: 5, Z: 0.1},
		Orientation: geom.FromEuler(1.0, 0, 0),
	}
	term.Evaluate(pose, 2.0)
	assert.Equal(t, 4, logs.Len(), "one line per raised flag")

	messages := make([]string, 0, logs.Len())
	for _, e := range logs.All() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "uav collided")
	assert.Contains(t, messages, "uav outside workspace")
	assert.Contains(t, messages, "uav too close to ground")
	assert.Contains(t, messages, "uav flipped")
}

func TestTerminationReportsGoal(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	term := testTermination(zap.New(core))

	r := term.Evaluate(levelPose(8, 8, 4), 0)
	assert.True(t, r.ReachedGoal)
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "uav reached desired pose", logs.All()[0].Message)
}
