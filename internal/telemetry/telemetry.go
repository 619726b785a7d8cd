// Package telemetry delivers episode summaries to interested consumers:
// a NATS stream for dashboards and trainers, the process log, or both.
package telemetry

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/flightline/aerogym/internal/env"
)

// LogPublisher writes one structured log line per episode.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishSummary(ctx context.Context, s env.Summary) error {
	p.logger.Info("episode finished",
		zap.String("task", s.Task),
		zap.Int("episode", s.Episode),
		zap.Float64("reward", s.Reward),
		zap.Int("steps", s.Steps),
		zap.String("reason", s.Reason))
	return nil
}

// Multi fans a summary out to every publisher. All publishers are attempted
// even when earlier ones fail; the errors are joined.
type Multi struct {
	pubs []env.Publisher
}

// NewMulti bundles publishers, skipping nils.
func NewMulti(pubs ...env.Publisher) *Multi {
	m := &Multi{}
	for _, p := range pubs {
		if p != nil {
			m.pubs = append(m.pubs, p)
		}
	}
	return m
}

func (m *Multi) PublishSummary(ctx context.Context, s env.Summary) error {
	var errs []error
	for _, p := range m.pubs {
		if err := p.PublishSummary(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
