package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/Conversion/server/internal/engine"
	"github.com/MRamiBalles/Conversion/server/internal/events"
	"github.com/MRamiBalles/Conversion/server/internal/platform/logger"
	"github.com/MRamiBalles/Conversion/server/internal/platform/optimization"
)

type wireMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type staticSource struct {
	mu   sync.Mutex
	snap engine.Snapshot
	ok   bool
}

func (s *staticSource) Latest() (engine.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.ok
}

func (s *staticSource) set(snap engine.Snapshot) {
	s.mu.Lock()
	s.snap, s.ok = snap, true
	s.mu.Unlock()
}

type hubFixture struct {
	hub    *Hub
	eng    *engine.Engine
	log    *events.EventLog
	server *httptest.Server
	ctx    context.Context
}

func newHubFixture(t *testing.T, tuning *optimization.Config) *hubFixture {
	t.Helper()
	eng, el := startGame(t, tuning)
	hub := NewHub(eng, tuning, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &hubFixture{hub: hub, eng: eng, log: el, server: server, ctx: ctx}
}

func (f *hubFixture) dial(t *testing.T, actor string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?actor=" + actor
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil skips messages until one of type want arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want MessageType) wireMessage {
	t.Helper()
	for i := 0; i < 50; i++ {
		if msg := readMessage(t, conn); msg.Type == want {
			return msg
		}
	}
	t.Fatalf("no %s message received", want)
	return wireMessage{}
}

func sendAction(t *testing.T, conn *websocket.Conn, typ string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(PlayerAction{Type: typ, Payload: raw}))
}

func TestWebSocketInitialSnapshotAndClick(t *testing.T) {
	// Setup
	f := newHubFixture(t, testTuning())
	conn := f.dial(t, "alice")

	first := readMessage(t, conn)
	require.Equal(t, MsgTypeSnapshot, first.Type)
	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(first.Payload, &snap))
	assert.Len(t, snap.Regions, 50)
	assert.Equal(t, 1, f.hub.ClientCount())

	// Act
	sendAction(t, conn, "CLICK", ActionPayload{RegionID: 6, Amount: 3})

	// Assert
	msg := readUntil(t, conn, MsgTypeResult)
	var res engine.Result
	require.NoError(t, json.Unmarshal(msg.Payload, &res))
	assert.True(t, res.OK)
	assert.Equal(t, 3.0, res.Value)

	clicks := f.log.GetByType(events.EventTypeRegionClicked)
	require.Len(t, clicks, 1)
	assert.Equal(t, "alice", clicks[0].ActorID)
}

func TestWebSocketErrors(t *testing.T) {
	f := newHubFixture(t, testTuning())
	conn := f.dial(t, "bob")
	readUntil(t, conn, MsgTypeSnapshot)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg := readUntil(t, conn, MsgTypeError)
	assert.Contains(t, string(msg.Payload), "invalid message")

	sendAction(t, conn, "RIOT", nil)
	msg = readUntil(t, conn, MsgTypeError)
	assert.Contains(t, string(msg.Payload), "unknown action type")

	// Rejections are results, not transport errors.
	sendAction(t, conn, "CREATE_UNIT", nil)
	msg = readUntil(t, conn, MsgTypeResult)
	var res engine.Result
	require.NoError(t, json.Unmarshal(msg.Payload, &res))
	assert.False(t, res.OK)
	assert.Equal(t, engine.ReasonCannotAfford, res.Reason)
}

func TestWebSocketRateLimit(t *testing.T) {
	tuning := testTuning()
	tuning.MaxActionsPerSecond = 0.01
	tuning.ActionBurst = 1
	f := newHubFixture(t, tuning)
	conn := f.dial(t, "spam")
	readUntil(t, conn, MsgTypeSnapshot)

	sendAction(t, conn, "CLICK", ActionPayload{RegionID: 1})
	readUntil(t, conn, MsgTypeResult)

	sendAction(t, conn, "CLICK", ActionPayload{RegionID: 1})
	msg := readUntil(t, conn, MsgTypeError)
	assert.Contains(t, string(msg.Payload), "rate limit exceeded")
	assert.Len(t, f.log.GetByType(events.EventTypeRegionClicked), 1)
}

func TestWebSocketEventPoller(t *testing.T) {
	f := newHubFixture(t, testTuning())
	f.hub.StartEventPoller(f.ctx, f.log, 10*time.Millisecond)
	conn := f.dial(t, "carol")
	readUntil(t, conn, MsgTypeSnapshot)

	sendAction(t, conn, "CLICK", ActionPayload{RegionID: 8, Amount: 150})

	msg := readUntil(t, conn, MsgTypeEvent)
	var ev events.GameEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &ev))
	assert.Equal(t, events.EventTypeRegionMaxed, ev.Type)
	assert.Equal(t, 8, ev.RegionID)
}

func TestWebSocketSnapshotBroadcaster(t *testing.T) {
	f := newHubFixture(t, testTuning())
	source := &staticSource{}
	f.hub.StartSnapshotBroadcaster(f.ctx, source)

	conn := f.dial(t, "dave")
	readUntil(t, conn, MsgTypeSnapshot)

	source.set(engine.Snapshot{Revision: 41, Frame: 7})
	msg := readUntil(t, conn, MsgTypeSnapshot)
	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(msg.Payload, &snap))
	assert.Equal(t, uint64(41), snap.Revision)
	assert.Equal(t, int64(7), snap.Frame)
}

func TestWebSocketMaxClients(t *testing.T) {
	tuning := testTuning()
	tuning.MaxClients = 1
	f := newHubFixture(t, tuning)
	f.dial(t, "first")
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHubDropsClientOnDisconnect(t *testing.T) {
	f := newHubFixture(t, testTuning())
	conn := f.dial(t, "erin")
	readUntil(t, conn, MsgTypeSnapshot)
	require.Equal(t, 1, f.hub.ClientCount())

	conn.Close()
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHubEnforcesMaxClientsOnRegister(t *testing.T) {
	tuning := testTuning()
	tuning.MaxClients = 3
	hub := NewHub(nil, tuning, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// All of these would pass a ClientCount check made before registering.
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if hub.attach(NewClient(hub, nil, "burst")) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, accepted)
	assert.Equal(t, 3, hub.ClientCount())

	cancel()
	<-hub.done
	assert.False(t, hub.attach(NewClient(hub, nil, "late")))
}
