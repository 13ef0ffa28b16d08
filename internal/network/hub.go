package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/Conversion/server/internal/engine"
	"github.com/MRamiBalles/Conversion/server/internal/events"
	"github.com/MRamiBalles/Conversion/server/internal/platform/logger"
	"github.com/MRamiBalles/Conversion/server/internal/platform/metrics"
	"github.com/MRamiBalles/Conversion/server/internal/platform/optimization"
)

// Simulation is the engine as seen by transports.
type Simulation interface {
	Submit(ctx context.Context, a engine.Action) (engine.Result, error)
	Snapshot(ctx context.Context) (engine.Snapshot, error)
}

// SnapshotSource hands out the newest published snapshot without a round trip
// to the engine.
type SnapshotSource interface {
	Latest() (engine.Snapshot, bool)
}

// MessageType tags the server to client envelope.
type MessageType string

const (
	MsgTypeSnapshot MessageType = "snapshot"
	MsgTypeResult   MessageType = "result"
	MsgTypeEvent    MessageType = "event"
	MsgTypeError    MessageType = "error"
)

// Message is the envelope of everything the server sends over a websocket.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

type unicast struct {
	client  *Client
	payload []byte
}

type registration struct {
	client   *Client
	accepted chan bool
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Only the Run goroutine writes to or closes a client's send channel.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	direct     chan unicast
	register   chan registration
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex

	sim     Simulation
	tuning  *optimization.Config
	logger  *logger.Logger
	metrics *metrics.Collector

	upgrader websocket.Upgrader
}

// NewHub initializes a new WebSocket Hub in front of a simulation.
func NewHub(sim Simulation, tuning *optimization.Config, log *logger.Logger) *Hub {
	if tuning == nil {
		tuning = optimization.DefaultConfig()
	}
	return &Hub{
		broadcast:  make(chan []byte, tuning.BroadcastChannelBuffer),
		direct:     make(chan unicast, tuning.BroadcastChannelBuffer),
		register:   make(chan registration),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		sim:        sim,
		tuning:     tuning,
		logger:     log,
		metrics:    metrics.Get(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			h.logger.Info("websocket hub shutting down")
			return

		case reg := <-h.register:
			h.mu.Lock()
			full := h.tuning.MaxClients > 0 && len(h.clients) >= h.tuning.MaxClients
			if !full {
				h.clients[reg.client] = true
			}
			h.mu.Unlock()
			reg.accepted <- !full
			if full {
				h.metrics.RecordWSError()
				h.logger.Warn("websocket client refused, hub full", "actor", reg.client.actorID)
				continue
			}
			h.metrics.RecordWSConnection(1)
			h.logger.Info("websocket client connected", "actor", reg.client.actorID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info("websocket client disconnected", "actor", client.actorID)
			}
			h.mu.Unlock()

		case u := <-h.direct:
			h.mu.Lock()
			if _, ok := h.clients[u.client]; ok {
				h.deliver(u.client, u.payload)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				h.deliver(client, message)
			}
			h.mu.Unlock()
		}
	}
}

// deliver queues a message or drops a client that cannot keep up. h.mu held.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
		h.metrics.RecordWSMessage(false)
	default:
		h.metrics.RecordWSError()
		h.logger.Warn("dropping slow websocket client", "actor", client.actorID)
		h.drop(client)
	}
}

// drop forgets a client and closes its send channel. h.mu held.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.metrics.RecordWSConnection(-1)
}

// attach registers a client with the Run loop, which enforces MaxClients.
// It reports false when the hub is full or stopped.
func (h *Hub) attach(c *Client) bool {
	reg := registration{client: c, accepted: make(chan bool, 1)}
	select {
	case h.register <- reg:
	case <-h.done:
		return false
	}
	return <-reg.accepted
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast serializes a message and sends it to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	payload, ok := h.encode(msg)
	if !ok {
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.done:
	}
}

// sendTo queues a message for a single client.
func (h *Hub) sendTo(c *Client, msg Message) {
	payload, ok := h.encode(msg)
	if !ok {
		return
	}
	select {
	case h.direct <- unicast{client: c, payload: payload}:
	case <-h.done:
	}
}

func (h *Hub) encode(msg Message) ([]byte, bool) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to serialize websocket message", "type", msg.Type, "error", err)
		return nil, false
	}
	return payload, true
}

// BroadcastEvent sends a GameEvent to all connected clients.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	h.Broadcast(Message{Type: MsgTypeEvent, Timestamp: event.Timestamp.UnixMilli(), Payload: event})
}

// StartEventPoller spawns a goroutine that follows the EventLog and pushes new
// events to the Hub. REGION_CLICKED is skipped; clicks show up in snapshots.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog, interval time.Duration) {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	go func() {
		pollInterval := time.NewTicker(interval)
		defer pollInterval.Stop()

		offset := eventLog.Len()

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				var batch []events.GameEvent
				batch, offset = eventLog.Since(offset)
				for _, event := range batch {
					if event.Type == events.EventTypeRegionClicked {
						continue
					}
					h.BroadcastEvent(event)
				}
			}
		}
	}()
}

// StartSnapshotBroadcaster pushes the newest snapshot to every client whenever
// its revision changes.
func (h *Hub) StartSnapshotBroadcaster(ctx context.Context, source SnapshotSource) {
	interval := h.tuning.BroadcastInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		var sent uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				snap, ok := source.Latest()
				if !ok || snap.Revision == sent {
					continue
				}
				sent = snap.Revision
				if h.ClientCount() == 0 {
					continue
				}
				h.Broadcast(Message{Type: MsgTypeSnapshot, Payload: snap})
			}
		}
	}()
}

// ServeWS upgrades a request and attaches a new client.
// GET /ws
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if max := h.tuning.MaxClients; max > 0 && h.ClientCount() >= max {
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	actor := r.URL.Query().Get("actor")
	if actor == "" {
		actor = "player-" + uuid.NewString()[:8]
	}

	client := NewClient(h, conn, actor)
	if !h.attach(client) {
		// The pre-upgrade check raced with other upgrades.
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many clients"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	snap, err := h.sim.Snapshot(r.Context())
	if err != nil {
		h.sendTo(client, Message{Type: MsgTypeError, Payload: ErrorPayload{Error: err.Error()}})
		return
	}
	h.sendTo(client, Message{Type: MsgTypeSnapshot, Payload: snap})
}
