// Package metrics aggregates scalar statistics over finished episodes.
package metrics

import "github.com/flightline/aerogym/internal/env"

// Metric accumulates one scalar over a stream of episode summaries.
type Metric interface {
	Name() string
	Observe(s env.Summary)
	Value() float64
	Reset()
}

// Standard returns the default metric set for a run.
func Standard() []Metric {
	return []Metric{
		NewSuccessRate(),
		NewCollisionRate(),
		NewMeanReturn(),
		NewBestReturn(),
		NewMeanSteps(),
	}
}

// Collect snapshots every metric's current value by name.
func Collect(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// ObserveAll feeds one summary to every metric.
func ObserveAll(ms []Metric, s env.Summary) {
	for _, m := range ms {
		m.Observe(s)
	}
}
