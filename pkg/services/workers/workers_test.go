package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	embeddednats "stand-resolver/pkg/services/embedded-nats"
	"stand-resolver/pkg/shared"
)

type observation struct {
	airport, airline, stand string
	seen                    time.Time
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []observation
	err   error
}

func (f *fakeRecorder) RecordPatternObservation(_ context.Context, airportID, icao, standName string, seenAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, observation{airportID, icao, standName, seenAt})
	return f.err
}

func (f *fakeRecorder) observed() []observation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]observation(nil), f.calls...)
}

func resolvedEvent(stage interface{}, airline string) shared.Event {
	return shared.Event{
		ID:      "evt-" + airline,
		Type:    shared.EventTypeResolved,
		Subject: shared.ResolutionSubject("EGLL"),
		Data: map[string]interface{}{
			shared.DataAirport:     "EGLL",
			shared.DataAirlineICAO: airline,
			shared.DataStand:       "501",
			shared.DataStage:       stage,
		},
		Timestamp: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
		Source:    shared.SourceResolver,
	}
}

func TestPatternWorkerLearnsFromPositionStageOnly(t *testing.T) {
	rec := &fakeRecorder{}
	w := NewPatternWorker(nil, rec, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, w.learn(ctx, resolvedEvent(float64(1), "BAW")))
	require.NoError(t, w.learn(ctx, resolvedEvent(2, "BAW")))
	require.NoError(t, w.learn(ctx, resolvedEvent(float64(3), "BAW")))
	require.NoError(t, w.learn(ctx, resolvedEvent(1, "")))

	other := resolvedEvent(1, "BAW")
	other.Type = shared.EventTypeReportCreated
	require.NoError(t, w.learn(ctx, other))

	calls := rec.observed()
	require.Len(t, calls, 1)
	assert.Equal(t, observation{"EGLL", "BAW", "501", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}, calls[0])
}

func TestPatternWorkerPropagatesRecorderError(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("database is locked")}
	w := NewPatternWorker(nil, rec, zaptest.NewLogger(t))

	err := w.learn(context.Background(), resolvedEvent(1, "BAW"))
	assert.ErrorContains(t, err, "database is locked")
}

func TestPatternWorkerDropsMalformedPayload(t *testing.T) {
	rec := &fakeRecorder{}
	w := NewPatternWorker(nil, rec, zaptest.NewLogger(t))

	err := w.handle(context.Background(), &nats.Msg{Subject: "stands.resolutions.EGLL", Data: []byte("{not json")})
	assert.NoError(t, err)
	assert.Empty(t, rec.observed())
}

func TestReportWorkerLogsPendingReport(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	w := NewReportWorker(nil, zap.New(core))

	msg := &nats.Msg{
		Subject: "stands.reports.EGLL",
		Data:    []byte(`{"id":"e1","type":"report.created","data":{"report_id":"r1","airport":"EGLL","stand":"501"}}`),
	}
	require.NoError(t, w.handle(context.Background(), msg))

	entries := logs.FilterMessage("crowdsourced report awaiting moderation").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "r1", fields["report_id"])
	assert.Equal(t, "501", fields["stand"])
	assert.Equal(t, "ReportWorker", fields["worker"])
}

func TestManagerDeliversResolutionEvents(t *testing.T) {
	en, err := embeddednats.New(&embeddednats.Config{
		Port:    server.RANDOM_PORT,
		DataDir: t.TempDir(),
		Quiet:   true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, en.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = en.Shutdown(ctx)
	})
	require.NoError(t, en.CreateStandStreams())
	require.NoError(t, en.CreateStandConsumers())

	rec := &fakeRecorder{}
	m, err := NewManager(en, rec, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Start())

	ctx := context.Background()
	require.NoError(t, en.PublishEvent(ctx, resolvedEvent(1, "BAW")))
	require.NoError(t, en.PublishEvent(ctx, resolvedEvent(2, "EZY")))

	require.Eventually(t, func() bool {
		return len(rec.observed()) == 1
	}, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, "BAW", rec.observed()[0].airline)

	require.NoError(t, m.Stop())
}

func TestNewManagerRequiresConnection(t *testing.T) {
	en, err := embeddednats.New(nil, nil)
	require.NoError(t, err)
	_, err = NewManager(en, &fakeRecorder{}, nil)
	assert.Error(t, err)
}

func TestFetchErrorsBackOff(t *testing.T) {
	en, err := embeddednats.New(&embeddednats.Config{
		Port:    server.RANDOM_PORT,
		DataDir: t.TempDir(),
		Quiet:   true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, en.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = en.Shutdown(ctx)
	})
	require.NoError(t, en.Provision(context.Background()))

	core, logs := observer.New(zapcore.WarnLevel)
	w := NewReportWorker(en.JetStream(), zap.New(core))
	w.retryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	// Wait for the subscription, then pull the consumer out from under it.
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.sub != nil
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, en.JetStream().DeleteConsumer(shared.StreamReports, shared.ConsumerReportModeration))

	require.Eventually(t, func() bool {
		return logs.FilterMessage("error fetching messages").Len() > 0
	}, 10*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, logs.FilterMessage("error fetching messages").Len(), "failed fetches must not spin")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop while waiting to retry")
	}
}
