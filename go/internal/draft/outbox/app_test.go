package outbox

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/campdraft/go/internal/draft/events"
)

func TestOutboxEvent_EnvelopeRoundTrip(t *testing.T) {
	env, err := events.NewEnvelope(events.PickSkipped, uuid.New(), 4, base, events.PickSkippedPayload{PickNumber: 3})
	require.NoError(t, err)

	row := FromEnvelope(env)
	assert.Equal(t, "PickSkipped", row.EventType)
	assert.Equal(t, int64(4), row.Sequence)
	assert.Equal(t, env, row.Envelope())
}

func TestRelayEvent_RetriesThenMarksSent(t *testing.T) {
	ev := outboxEvent(uuid.New(), 1, events.PickMade)
	repo := newMemRepo(ev)
	pub := newFlakyPublisher()
	pub.failures[ev.ID] = 2

	reg := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(reg)
	app := NewApp(repo, pub, testConfig(), WithMetrics(metrics))

	require.NoError(t, app.RelayEvent(context.Background(), ev.ID))
	assert.True(t, repo.sent(ev.ID))
	assert.Equal(t, []uint64{1}, pub.sequences())

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.publishAttempts.WithLabelValues("PickMade", "1", "failure"))+
		testutil.ToFloat64(metrics.publishAttempts.WithLabelValues("PickMade", "2", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.publishAttempts.WithLabelValues("PickMade", "3", "success")))

	processed, last := app.Stats()
	assert.Equal(t, uint64(1), processed)
	assert.False(t, last.IsZero())
}

func TestRelayEvent_GivesUpAfterMaxRetries(t *testing.T) {
	ev := outboxEvent(uuid.New(), 1, events.PickMade)
	repo := newMemRepo(ev)
	pub := newFlakyPublisher()
	pub.always[ev.ID] = true

	app := NewApp(repo, pub, testConfig())
	err := app.RelayEvent(context.Background(), ev.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish failed after 3 attempts")
	assert.False(t, repo.sent(ev.ID))
}

func TestRelayEvent_AlreadySentIsNoop(t *testing.T) {
	ev := outboxEvent(uuid.New(), 1, events.PickMade)
	repo := newMemRepo(ev)
	pub := newFlakyPublisher()
	app := NewApp(repo, pub, testConfig())

	require.NoError(t, app.RelayEvent(context.Background(), ev.ID))
	require.NoError(t, app.RelayEvent(context.Background(), ev.ID))
	require.NoError(t, app.RelayEvent(context.Background(), uuid.New()))
	assert.Len(t, pub.sequences(), 1)
}

func TestProcessUnsentEvents_KeepsDraftOrder(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	a1 := outboxEvent(a, 1, events.DraftStarted)
	a2 := outboxEvent(a, 2, events.PickStarted)
	a3 := outboxEvent(a, 3, events.PickMade)
	b1 := outboxEvent(b, 1, events.DraftStarted)
	repo := newMemRepo(a1, a2, a3, b1)

	pub := newFlakyPublisher()
	pub.always[a2.ID] = true

	app := NewApp(repo, pub, testConfig())
	n, err := app.ProcessUnsentEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.True(t, repo.sent(a1.ID))
	assert.False(t, repo.sent(a2.ID))
	assert.False(t, repo.sent(a3.ID), "later events of a failed draft wait")
	assert.True(t, repo.sent(b1.ID))

	delete(pub.always, a2.ID)
	n, err = app.ProcessUnsentEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uint64{1, 1, 2, 3}, pub.sequences())

	pending, err := app.RecordLag(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestFetchUnsentEvents_RejectsBadLimit(t *testing.T) {
	app := NewApp(newMemRepo(), newFlakyPublisher(), testConfig())
	_, err := app.FetchUnsentEvents(context.Background(), 0)
	assert.Error(t, err)
}

func TestMetricPublisher(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(reg)

	ev := outboxEvent(uuid.New(), 1, events.DraftPaused)
	pub := newFlakyPublisher()
	pub.failures[ev.ID] = 1
	mp := NewMetricPublisher(pub, metrics)

	assert.Error(t, mp.Publish(context.Background(), ev.Envelope()))
	assert.NoError(t, mp.Publish(context.Background(), ev.Envelope()))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.eventCounter.WithLabelValues("DraftPaused", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.eventCounter.WithLabelValues("DraftPaused", "success")))

	n, err := testutil.GatherAndCount(reg, "campdraft_outbox_publish_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
