package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/campdraft/go/internal/draft/engine"
	"github.com/mcdev12/campdraft/go/internal/draft/events"
	"github.com/mcdev12/campdraft/go/internal/draft/rpc"
	"github.com/mcdev12/campdraft/go/internal/models"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type harness struct {
	clock   *clockwork.FakeClock
	engine  *engine.Engine
	service *Service
	server  *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{clock: clockwork.NewFakeClock()}

	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultConfig()
	cfg.Clock = h.clock

	// the engine is the state provider, the gateway its publisher
	var provider lazyProvider
	svc, err := NewService(ctx, cfg, &provider)
	require.NoError(t, err)
	h.service = svc
	h.engine = engine.NewEngine(engine.WithClock(h.clock), engine.WithPublisher(svc.Publisher()))
	provider.Engine = h.engine

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	h.server = httptest.NewServer(mux)

	done := make(chan struct{})
	go func() {
		_ = svc.Start(ctx)
		close(done)
	}()

	t.Cleanup(func() {
		h.server.Close()
		h.engine.Shutdown()
		cancel()
		<-done
	})
	return h
}

type lazyProvider struct{ *engine.Engine }

func (h *harness) draft(t *testing.T, participants int, points ...int) (uuid.UUID, []uuid.UUID, []models.DraftableShift) {
	t.Helper()
	ctx := context.Background()
	d, err := h.engine.CreateDraft(ctx, engine.CreateDraftRequest{
		Name:     "Temple guardians",
		Settings: models.DraftSettings{RoundsPerParticipant: 2, TimePerPickSec: 60},
	})
	require.NoError(t, err)

	parts := make([]uuid.UUID, participants)
	for i := range parts {
		parts[i] = uuid.New()
	}
	require.NoError(t, h.engine.SetParticipants(ctx, d.ID, parts))

	start := h.clock.Now().Add(48 * time.Hour)
	shifts := make([]models.DraftableShift, len(points))
	for i, p := range points {
		shifts[i] = models.DraftableShift{
			ID:         uuid.New(),
			Location:   "Temple",
			StartTime:  start.Add(time.Duration(i) * time.Hour),
			EndTime:    start.Add(time.Duration(i+1) * time.Hour),
			PointValue: p,
		}
	}
	require.NoError(t, h.engine.AddShiftsToDraft(ctx, d.ID, shifts))
	return d.ID, parts, shifts
}

func (h *harness) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws/draft?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvent returns the next frame, skipping setup events that may still
// have been queued when the client connected.
func readEvent(t *testing.T, conn *websocket.Conn) DraftEvent {
	t.Helper()
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
		var ev DraftEvent
		require.NoError(t, conn.ReadJSON(&ev))
		switch ev.Type {
		case events.DraftCreated, events.ParticipantsSet, events.ShiftsAdded:
			continue
		}
		return ev
	}
}

func TestGateway_BroadcastsDraftEventsInOrder(t *testing.T) {
	h := newHarness(t)
	draftID, parts, shifts := h.draft(t, 2, 10, 20, 30)

	conn := h.dial(t, "draft_id="+draftID.String()+"&participant_id="+parts[0].String())
	spectator := h.dial(t, "draft_id="+draftID.String())
	require.Eventually(t, func() bool {
		return h.service.Publisher().GetConnectionStats().TotalConnections == 2
	}, waitFor, tick)

	ctx := context.Background()
	require.NoError(t, h.engine.StartDraft(ctx, draftID))
	_, err := h.engine.SubmitPick(ctx, engine.SubmitPickRequest{
		DraftID: draftID, ParticipantID: parts[0], ShiftID: &shifts[2].ID,
	})
	require.NoError(t, err)

	for _, c := range []*websocket.Conn{conn, spectator} {
		var (
			types []events.EventType
			last  uint64
		)
		for range 4 {
			ev := readEvent(t, c)
			assert.Equal(t, draftID.String(), ev.DraftID)
			assert.Greater(t, ev.Sequence, last)
			last = ev.Sequence
			types = append(types, ev.Type)
		}
		assert.Equal(t, []events.EventType{
			events.DraftStarted, events.PickStarted, events.PickMade, events.PickStarted,
		}, types)
	}
}

func TestGateway_OtherDraftsAreIsolated(t *testing.T) {
	h := newHarness(t)
	a, _, _ := h.draft(t, 2, 10, 20)
	b, _, _ := h.draft(t, 2, 10, 20)

	conn := h.dial(t, "draft_id="+a.String())
	require.Eventually(t, func() bool {
		return h.service.Publisher().GetConnectionStats().TotalConnections == 1
	}, waitFor, tick)

	ctx := context.Background()
	require.NoError(t, h.engine.StartDraft(ctx, b))
	require.NoError(t, h.engine.CancelDraft(ctx, a, "weather"))

	ev := readEvent(t, conn)
	assert.Equal(t, events.DraftCancelled, ev.Type)

	payload, err := ParseEventPayload(&ev)
	require.NoError(t, err)
	assert.Equal(t, "weather", payload.(*events.DraftCancelledPayload).Reason)
}

func TestGateway_RejectsBadConnections(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name  string
		query string
		code  int
	}{
		{"missing draft", "", http.StatusBadRequest},
		{"bad draft id", "draft_id=nope", http.StatusBadRequest},
		{"bad participant", "draft_id=" + uuid.NewString() + "&participant_id=x", http.StatusBadRequest},
		{"unknown draft", "draft_id=" + uuid.NewString(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(h.server.URL + "/ws/draft?" + tt.query)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}

func TestGateway_StateSnapshot(t *testing.T) {
	h := newHarness(t)
	draftID, parts, shifts := h.draft(t, 2, 10, 20, 30)
	ctx := context.Background()

	require.NoError(t, h.engine.StartDraft(ctx, draftID))
	_, err := h.engine.SubmitPick(ctx, engine.SubmitPickRequest{
		DraftID: draftID, ParticipantID: parts[0], ShiftID: &shifts[0].ID,
	})
	require.NoError(t, err)
	h.clock.Advance(15 * time.Second)

	resp, err := http.Get(h.server.URL + "/api/drafts/" + draftID.String() + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state DraftStateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, models.DraftStatusActive, state.Status)
	assert.Equal(t, 1, state.CurrentPickNumber)
	require.NotNil(t, state.CurrentPicker)
	assert.Equal(t, parts[1], *state.CurrentPicker)
	assert.Equal(t, int64(45000), state.TimeRemainingMs)
	assert.Equal(t, 4, state.TotalPicks)
	assert.Equal(t, 1, state.CompletedPicks)
	assert.Equal(t, 2, state.RemainingShifts)
	require.Len(t, state.RecentPicks, 1)

	require.NoError(t, h.engine.PauseDraft(ctx, draftID, "dust storm"))
	resp2, err := http.Get(h.server.URL + "/api/drafts/active")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var active []DraftSummary
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&active))
	require.Len(t, active, 1)
	assert.Equal(t, models.DraftStatusPaused, active[0].Status)

	resp3, err := http.Get(h.server.URL + "/api/drafts/" + uuid.NewString() + "/state")
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}

func TestBuildState_PausedHasNoCountdown(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(30 * time.Second)
	d := &models.Draft{
		ID:           uuid.New(),
		Status:       models.DraftStatusPaused,
		Participants: []uuid.UUID{uuid.New()},
		Settings:     models.DraftSettings{RoundsPerParticipant: 3, TimePerPickSec: 60},
		TurnDeadline: &deadline,
	}
	state := BuildState(d, now, 5)
	assert.Zero(t, state.TimeRemainingMs)
	assert.Equal(t, 3, state.TotalPicks)
	assert.Empty(t, state.RecentPicks)
}

func TestConnectionManager_DropsStaleSequences(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	draftID := uuid.New()
	conn := &Connection{ID: "c1", DraftID: draftID, Send: make(chan []byte, 8), Manager: cm}
	cm.registerConnection(conn)

	for _, seq := range []uint64{1, 2, 2, 1, 3} {
		cm.handleBroadcast(BroadcastMessage{DraftID: draftID, Event: &DraftEvent{
			DraftID: draftID.String(), Type: events.PickMade, Sequence: seq, Data: []byte(`{}`),
		}})
	}
	require.Len(t, conn.Send, 3)
	var got []uint64
	for range 3 {
		var ev DraftEvent
		require.NoError(t, json.Unmarshal(<-conn.Send, &ev))
		got = append(got, ev.Sequence)
	}
	assert.Equal(t, []uint64{1, 2, 3}, got)
}

func TestConnectionManager_SlowConnectionIsDropped(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	draftID := uuid.New()
	conn := &Connection{ID: "slow", DraftID: draftID, Send: make(chan []byte), Manager: cm}
	cm.registerConnection(conn)

	cm.handleBroadcast(BroadcastMessage{DraftID: draftID, Event: &DraftEvent{Type: events.PickMade, Data: []byte(`{}`)}})
	assert.Zero(t, cm.GetConnectionStats().TotalConnections)
	_, open := <-conn.Send
	assert.False(t, open)
}

func TestConnectionManager_PublishFailsWhenFull(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.BroadcastBuffer = 0
	cm := NewConnectionManager(cfg)

	env, err := events.NewEnvelope(events.DraftStarted, uuid.New(), 1, time.Now(), struct{}{})
	require.NoError(t, err)
	assert.ErrorIs(t, cm.Publish(context.Background(), env), ErrBroadcastFull)
}

// fakeMsg records how a JetStream message was settled. Unused methods panic
// via the embedded nil interface.
type fakeMsg struct {
	jetstream.Msg
	data    []byte
	settled string
}

func (m *fakeMsg) Data() []byte    { return m.data }
func (m *fakeMsg) Subject() string { return "draft.events.test" }
func (m *fakeMsg) Ack() error      { m.settled = "ack"; return nil }
func (m *fakeMsg) Nak() error      { m.settled = "nak"; return nil }
func (m *fakeMsg) Term() error     { m.settled = "term"; return nil }

func TestEventConsumer_HandleMsg(t *testing.T) {
	env, err := events.NewEnvelope(events.PickStarted, uuid.New(), 2, time.Now(), events.PickStartedPayload{PickNumber: 1})
	require.NoError(t, err)
	good, err := json.Marshal(env)
	require.NoError(t, err)

	unknown := env
	unknown.EventType = "Mystery"
	bad, err := json.Marshal(unknown)
	require.NoError(t, err)

	ec := &EventConsumer{connectionManager: NewConnectionManager(DefaultConnectionConfig())}

	msg := &fakeMsg{data: good}
	ec.handleMsg(msg)
	assert.Equal(t, "ack", msg.settled)

	msg = &fakeMsg{data: []byte("{not json")}
	ec.handleMsg(msg)
	assert.Equal(t, "term", msg.settled)

	msg = &fakeMsg{data: bad}
	ec.handleMsg(msg)
	assert.Equal(t, "term", msg.settled)

	cfg := DefaultConnectionConfig()
	cfg.BroadcastBuffer = 0
	full := &EventConsumer{connectionManager: NewConnectionManager(cfg)}
	msg = &fakeMsg{data: good}
	full.handleMsg(msg)
	assert.Equal(t, "nak", msg.settled)
}

func TestConsumerConfig(t *testing.T) {
	cc := consumerConfig(DefaultJetStreamConsumerConfig())
	assert.Equal(t, "draft-gateway", cc.Durable)
	assert.Equal(t, jetstream.DeliverLastPerSubjectPolicy, cc.DeliverPolicy)
	assert.Equal(t, jetstream.AckExplicitPolicy, cc.AckPolicy)
}

func TestClientStateProvider(t *testing.T) {
	eng := engine.NewEngine(engine.WithClock(clockwork.NewFakeClock()))
	t.Cleanup(eng.Shutdown)

	path, handler := rpc.NewHandler(rpc.NewService(eng))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewClientStateProvider(rpc.NewClient(srv.Client(), srv.URL))
	ctx := context.Background()

	d, err := eng.CreateDraft(ctx, engine.CreateDraftRequest{
		Name:     "Center camp",
		Settings: models.DraftSettings{RoundsPerParticipant: 1, TimePerPickSec: 30},
	})
	require.NoError(t, err)

	got, err := p.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Center camp", got.Name)

	drafts, err := p.ListDrafts(ctx, models.DraftStatusSetup)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)

	_, err = p.GetDraft(ctx, uuid.New())
	assert.True(t, errors.Is(err, engine.ErrDraftNotFound))
}
