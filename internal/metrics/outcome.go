package metrics

import "github.com/flightline/aerogym/internal/env"

// SuccessRate is the fraction of episodes that ended at the goal.
type SuccessRate struct {
	name      string
	successes int
	samples   int
}

func NewSuccessRate() *SuccessRate {
	return &SuccessRate{name: "success_rate"}
}

func (m *SuccessRate) Name() string {
	return m.name
}

func (m *SuccessRate) Observe(s env.Summary) {
	m.samples++
	if s.Reason == "reached_goal" {
		m.successes++
	}
}

func (m *SuccessRate) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return float64(m.successes) / float64(m.samples)
}

func (m *SuccessRate) Reset() {
	m.successes = 0
	m.samples = 0
}

// CollisionRate is the fraction of episodes that ended in a collision.
type CollisionRate struct {
	name       string
	collisions int
	samples    int
}

func NewCollisionRate() *CollisionRate {
	return &CollisionRate{name: "collision_rate"}
}

func (m *CollisionRate) Name() string {
	return m.name
}

func (m *CollisionRate) Observe(s env.Summary) {
	m.samples++
	if s.Reason == "collided" {
		m.collisions++
	}
}

func (m *CollisionRate) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return float64(m.collisions) / float64(m.samples)
}

func (m *CollisionRate) Reset() {
	m.collisions = 0
	m.samples = 0
}
