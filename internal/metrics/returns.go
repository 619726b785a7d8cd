package metrics

import "github.com/flightline/aerogym/internal/env"

// MeanReturn is the average cumulated reward per episode.
type MeanReturn struct {
	name    string
	sum     float64
	samples int
}

func NewMeanReturn() *MeanReturn {
	return &MeanReturn{name: "mean_return"}
}

func (m *MeanReturn) Name() string {
	return m.name
}

func (m *MeanReturn) Observe(s env.Summary) {
	m.sum += s.Reward
	m.samples++
}

func (m *MeanReturn) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanReturn) Reset() {
	m.sum = 0
	m.samples = 0
}

// BestReturn is the highest cumulated reward seen so far.
type BestReturn struct {
	name    string
	best    float64
	samples int
}

func NewBestReturn() *BestReturn {
	return &BestReturn{name: "best_return"}
}

func (m *BestReturn) Name() string {
	return m.name
}

func (m *BestReturn) Observe(s env.Summary) {
	if m.samples == 0 || s.Reward > m.best {
		m.best = s.Reward
	}
	m.samples++
}

func (m *BestReturn) Value() float64 {
	return m.best
}

func (m *BestReturn) Reset() {
	m.best = 0
	m.samples = 0
}

// MeanSteps is the average episode length in steps.
type MeanSteps struct {
	name    string
	sum     int
	samples int
}

func NewMeanSteps() *MeanSteps {
	return &MeanSteps{name: "mean_steps"}
}

func (m *MeanSteps) Name() string {
	return m.name
}

func (m *MeanSteps) Observe(s env.Summary) {
	m.sum += s.Steps
	m.samples++
}

func (m *MeanSteps) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return float64(m.sum) / float64(m.samples)
}

func (m *MeanSteps) Reset() {
	m.sum = 0
	m.samples = 0
}
