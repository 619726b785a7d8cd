package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/flightline/aerogym/internal/env"
)

// defaultSubject is the base subject when the configuration leaves it empty.
const defaultSubject = "aerogym.episodes"

// NATSPublisher streams episode summaries as JSON over NATS. Each task gets
// its own subject below the configured base, e.g.
// aerogym.episodes.uav-waypoint-v0.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	logger  *zap.Logger
}

// NewNATSPublisher connects to the NATS server at url. The connection
// reconnects on failure rather than aborting a run mid-training.
func NewNATSPublisher(url, subject string, logger *zap.Logger) (*NATSPublisher, error) {
	if subject == "" {
		subject = defaultSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	logger.Info("telemetry connected", zap.String("url", url), zap.String("subject", subject))
	return &NATSPublisher{nc: nc, subject: subject, logger: logger}, nil
}

func (p *NATSPublisher) PublishSummary(ctx context.Context, s env.Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	subject := p.subject
	if s.Task != "" {
		subject = fmt.Sprintf("%s.%s", p.subject, s.Task)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}
	return nil
}

// Close flushes buffered summaries and drops the connection.
func (p *NATSPublisher) Close() error {
	if err := p.nc.Flush(); err != nil {
		p.nc.Close()
		return fmt.Errorf("flush nats: %w", err)
	}
	p.nc.Close()
	return nil
}
