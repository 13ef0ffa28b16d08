package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/MRamiBalles/Conversion/server/internal/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Time allowed for the engine to answer one action.
	submitTimeout = 5 * time.Second
)

// ErrUnknownAction is returned by ParseAction for unsupported types.
var ErrUnknownAction = errors.New("unknown action type")

// PlayerAction represents an incoming command from the frontend.
type PlayerAction struct {
	Type    string          `json:"type"`    // "CLICK", "CREATE_UNIT", "ASSIGN_UNIT", "TRANSFER_UNIT"
	Payload json.RawMessage `json:"payload"` // Action-specific data
}

// ActionPayload carries the fields any action may use.
type ActionPayload struct {
	RegionID       int     `json:"region_id"`
	TargetRegionID int     `json:"target_region_id"`
	UnitID         int     `json:"unit_id"`
	Amount         float64 `json:"amount"`
}

// ErrorPayload is sent with MsgTypeError.
type ErrorPayload struct {
	Error string `json:"error"`
}

// ParseAction turns a wire action into an engine action for actor.
func ParseAction(pa PlayerAction, actor string) (engine.Action, error) {
	t := engine.ActionType(pa.Type)
	switch t {
	case engine.ActionClick, engine.ActionCreateUnit, engine.ActionAssignUnit, engine.ActionTransferUnit:
	default:
		return engine.Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, pa.Type)
	}

	var p ActionPayload
	if len(pa.Payload) > 0 && string(pa.Payload) != "null" {
		if err := json.Unmarshal(pa.Payload, &p); err != nil {
			return engine.Action{}, fmt.Errorf("failed to parse %s payload: %w", pa.Type, err)
		}
	}

	return engine.Action{
		Type:           t,
		ActorID:        actor,
		RegionID:       p.RegionID,
		TargetRegionID: p.TargetRegionID,
		UnitID:         p.UnitID,
		Amount:         p.Amount,
	}, nil
}

// Client is one websocket connection. Its send channel is owned by the Hub.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	actorID string
	limiter *rate.Limiter
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn, actorID string) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.tuning.ClientSendBuffer),
		actorID: actorID,
		limiter: rate.NewLimiter(rate.Limit(hub.tuning.MaxActionsPerSecond), hub.tuning.ActionBurst),
	}
}

// ReadPump pumps actions from the websocket connection to the engine.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Warn("websocket read failed", "actor", c.actorID, "error", err)
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var action PlayerAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.replyError("invalid message: " + err.Error())
			continue
		}

		c.handlePlayerAction(action)
	}
}

func (c *Client) handlePlayerAction(pa PlayerAction) {
	// 1. Rate Limiting Check
	if !c.limiter.Allow() {
		c.hub.metrics.RecordDroppedAction()
		c.replyError("rate limit exceeded")
		return
	}

	// 2. Parse
	action, err := ParseAction(pa, c.actorID)
	if err != nil {
		c.replyError(err.Error())
		return
	}

	// 3. Hand over to the engine loop
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	res, err := c.hub.sim.Submit(ctx, action)
	if err != nil {
		c.hub.logger.Error("engine did not accept action", "actor", c.actorID, "action", action.Type, "error", err)
		c.replyError(err.Error())
		return
	}
	c.hub.sendTo(c, Message{Type: MsgTypeResult, Payload: res})
}

func (c *Client) replyError(msg string) {
	c.hub.sendTo(c, Message{Type: MsgTypeError, Payload: ErrorPayload{Error: msg}})
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
