package env

import (
	"testing"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/flightline/aerogym/internal/geom"
)

func TestObservationVectorLayout(t *testing.T) {
	obs := Observation{
		Pose: geom.Pose{
			Position:    r3.Vec{X: 1, Y: 2, Z: 3},
			Orientation: quat.Number{Real: 0.5, Imag: 0.1, Jmag: 0.2, Kmag: 0.3},
		},
		Velocity: geom.Twist{
			Linear:  r3.Vec{X: 4, Y: 5, Z: 6},
			Angular: r3.Vec{X: 7, Y: 8, Z: 9},
		},
	}

	want := []float64{1, 2, 3, 0.5, 0.1, 0.2, 0.3, 4, 5, 6, 7, 8, 9}
	got := obs.Vector()
	if len(got) != 13 {
		t.Fatalf("len = %d, want 13", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("component %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestActionClamp(t *testing.T) {
	bounds := ActionBounds{
		Linear:  r1.Interval{Min: -1, Max: 1},
		YawRate: r1.Interval{Min: -0.5, Max: 0.5},
	}

	cases := []struct {
		name string
		in   Action
		want Action
	}{
		{"inside", Action{VX: 0.3, VY: -0.4, VZ: 0.1, YawRate: 0.2}, Action{VX: 0.3, VY: -0.4, VZ: 0.1, YawRate: 0.2}},
		{"over", Action{VX: 5, VY: 2, VZ: 1.5, YawRate: 3}, Action{VX: 1, VY: 1, VZ: 1, YawRate: 0.5}},
		{"under", Action{VX: -5, VY: -2, VZ: -1.5, YawRate: -3}, Action{VX: -1, VY: -1, VZ: -1, YawRate: -0.5}},
	}
	for _, tc := range cases {
		if got := tc.in.Clamp(bounds); got != tc.want {
			t.Errorf("%s: got %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestPhaseTerminal(t *testing.T) {
	if !PhaseDone.Terminal() {
		t.Error("PhaseDone should be terminal")
	}
	for _, p := range []Phase{PhaseIdle, PhaseResetting, PhaseRunning} {
		if p.Terminal() {
			t.Errorf("%s should not be terminal", p)
		}
	}
}
