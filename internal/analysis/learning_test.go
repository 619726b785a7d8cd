package analysis

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMovingAverage(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	got := MovingAverage(data, 3)
	want := []float64{1, 1.5, 2, 3, 4}

	if len(got) != len(want) {
		t.Fatalf("length: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMovingAverageWindowOne(t *testing.T) {
	data := []float64{3, 1, 4}
	got := MovingAverage(data, 1)
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], data[i])
		}
	}

	got[0] = 99
	if data[0] == 99 {
		t.Error("moving average should not alias its input")
	}
}

func TestMovingAverageEmpty(t *testing.T) {
	if got := MovingAverage(nil, 5); len(got) != 0 {
		t.Errorf("expected empty output, got %v", got)
	}
}

func TestTrendIncreasing(t *testing.T) {
	intercept, slope := Trend([]float64{0, 1, 2, 3})
	if !almostEqual(slope, 1) {
		t.Errorf("slope: got %v, want 1", slope)
	}
	if !almostEqual(intercept, 0) {
		t.Errorf("intercept: got %v, want 0", intercept)
	}
}

func TestTrendFlat(t *testing.T) {
	intercept, slope := Trend([]float64{2, 2, 2})
	if !almostEqual(slope, 0) {
		t.Errorf("slope: got %v, want 0", slope)
	}
	if !almostEqual(intercept, 2) {
		t.Errorf("intercept: got %v, want 2", intercept)
	}
}

func TestTrendDegenerate(t *testing.T) {
	if i, s := Trend(nil); i != 0 || s != 0 {
		t.Errorf("empty trend: got (%v, %v), want (0, 0)", i, s)
	}
	if i, s := Trend([]float64{7}); i != 7 || s != 0 {
		t.Errorf("single point trend: got (%v, %v), want (7, 0)", i, s)
	}
}

func TestStats(t *testing.T) {
	mean, std := Stats([]float64{2, 4})
	if !almostEqual(mean, 3) {
		t.Errorf("mean: got %v, want 3", mean)
	}
	if !almostEqual(std, math.Sqrt2) {
		t.Errorf("std: got %v, want sqrt(2)", std)
	}

	mean, std = Stats([]float64{5})
	if mean != 5 || std != 0 {
		t.Errorf("single point stats: got (%v, %v), want (5, 0)", mean, std)
	}
}
