package analysis

import "gonum.org/v1/gonum/stat"

// MovingAverage smooths data with a trailing window: element i is the mean
// of the last window values up to and including i. The output has the same
// length as the input. A window of one or less returns a copy.
func MovingAverage(data []float64, window int) []float64 {
	out := make([]float64, len(data))
	if window <= 1 {
		copy(out, data)
		return out
	}
	var sum float64
	for i, v := range data {
		sum += v
		if i >= window {
			sum -= data[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Trend fits an ordinary least squares line through data against its
// indices, returning intercept and per-episode slope. Fewer than two points
// yield a flat line through the data.
func Trend(data []float64) (intercept, slope float64) {
	switch len(data) {
	case 0:
		return 0, 0
	case 1:
		return data[0], 0
	}
	xs := make([]float64, len(data))
	for i := range xs {
		xs[i] = float64(i)
	}
	return stat.LinearRegression(xs, data, nil, false)
}

// Stats returns the mean and sample standard deviation of data. A sequence
// shorter than two elements has zero deviation.
func Stats(data []float64) (mean, std float64) {
	switch len(data) {
	case 0:
		return 0, 0
	case 1:
		return data[0], 0
	}
	return stat.MeanStdDev(data, nil)
}
