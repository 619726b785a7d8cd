package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flightline/aerogym/internal/env"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func sampleSummary() env.Summary {
	return env.Summary{
		Task:    "uav-waypoint-v0",
		Episode: 4,
		Reward:  37.5,
		Steps:   120,
		Reason:  "reached_goal",
		Ended:   time.Now().UTC(),
	}
}

func TestNATSPublisherDeliversSummary(t *testing.T) {
	server := startTestNATSServer(t)

	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync("aerogym.episodes.>")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	pub, err := NewNATSPublisher(server.ClientURL(), "aerogym.episodes", nil)
	require.NoError(t, err)
	defer pub.Close()

	want := sampleSummary()
	require.NoError(t, pub.PublishSummary(context.Background(), want))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "aerogym.episodes.uav-waypoint-v0", msg.Subject)

	var got env.Summary
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, want.Task, got.Task)
	assert.Equal(t, want.Episode, got.Episode)
	assert.Equal(t, want.Reward, got.Reward)
	assert.Equal(t, want.Steps, got.Steps)
	assert.Equal(t, want.Reason, got.Reason)
}

func TestNATSPublisherBareSubjectWithoutTask(t *testing.T) {
	server := startTestNATSServer(t)

	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync("aerogym.episodes")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	pub, err := NewNATSPublisher(server.ClientURL(), "", nil)
	require.NoError(t, err)
	defer pub.Close()

	s := sampleSummary()
	s.Task = ""
	require.NoError(t, pub.PublishSummary(context.Background(), s))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "aerogym.episodes", msg.Subject)
}

func TestLogPublisherEmitsOneLine(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	pub := NewLogPublisher(zap.New(core))

	require.NoError(t, pub.PublishSummary(context.Background(), sampleSummary()))

	entries := logs.FilterMessage("episode finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "uav-waypoint-v0", fields["task"])
	assert.Equal(t, int64(4), fields["episode"])
	assert.Equal(t, 37.5, fields["reward"])
	assert.Equal(t, "reached_goal", fields["reason"])
}

type countingPublisher struct {
	calls int
	err   error
}

func (c *countingPublisher) PublishSummary(ctx context.Context, s env.Summary) error {
	c.calls++
	return c.err
}

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	bad := &countingPublisher{err: errors.New("telemetry down")}
	good := &countingPublisher{}

	m := NewMulti(bad, nil, good)
	err := m.PublishSummary(context.Background(), sampleSummary())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "telemetry down")
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls, "later publishers still run after a failure")
}

func TestMultiAllHealthy(t *testing.T) {
	a := &countingPublisher{}
	b := &countingPublisher{}
	m := NewMulti(a, b)

	require.NoError(t, m.PublishSummary(context.Background(), sampleSummary()))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}
