// Package events provides the append-only journal of everything that happened in a game.
// Transports replay it; the storage layer writes it through to SQLite.
package events

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeRegionClicked    EventType = "REGION_CLICKED"
	EventTypeUnitCreated      EventType = "UNIT_CREATED"
	EventTypeUnitAssigned     EventType = "UNIT_ASSIGNED"
	EventTypeUnitTransferred  EventType = "UNIT_TRANSFERRED"
	EventTypeActionRejected   EventType = "ACTION_REJECTED"
	EventTypeRegionMaxed      EventType = "REGION_MAXED"
	EventTypeRegionLost       EventType = "REGION_LOST"
	EventTypeSessionStarted   EventType = "SESSION_STARTED"
	EventTypeSessionStopped   EventType = "SESSION_STOPPED"
	EventTypeConversionReport EventType = "CONVERSION_REPORT"
)

// Actor ids used by the engine itself.
const (
	ActorSystem = "SYSTEM"
	ActorPlayer = "PLAYER"
)

// GameEvent represents an immutable record of something that happened.
type GameEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`            // Who performed the action
	RegionID  int         `json:"region_id,omitempty"` // Region affected (optional)
	UnitID    int         `json:"unit_id,omitempty"`   // Unit affected (optional)
	Payload   interface{} `json:"payload,omitempty"`   // Event-specific data
	Frame     int64       `json:"frame"`               // Simulation frame it happened in
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// ErrPersistBacklog is reported when the write-through queue is full and an
// event is skipped by the journal. The in-memory log still holds it.
var ErrPersistBacklog = errors.New("journal write queue full")

// EventLog is the in-memory append-only log of game events.
// Once it holds more than retain events the oldest half is dropped; offsets
// handed out by Len stay valid because they are absolute.
//
// With a persister attached, a single writer goroutine drains a bounded queue
// in append order. Close flushes it.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	dropped   int
	retain    int
	persister EventPersister
	onError   func(error)

	queue   chan GameEvent
	closed  bool
	drained chan struct{}
}

const (
	// DefaultRetention bounds the in-memory history.
	DefaultRetention = 10000
	// DefaultPersistQueue bounds events waiting for the persister.
	DefaultPersistQueue = 4096
)

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return NewEventLogWithQueue(persister, DefaultPersistQueue)
}

// NewEventLogWithQueue is NewEventLog with an explicit write-through queue size.
func NewEventLogWithQueue(persister EventPersister, queueSize int) *EventLog {
	if queueSize < 1 {
		queueSize = DefaultPersistQueue
	}
	el := &EventLog{
		events:    make([]GameEvent, 0),
		retain:    DefaultRetention,
		persister: persister,
		drained:   make(chan struct{}),
	}
	if persister == nil {
		close(el.drained)
		return el
	}
	el.queue = make(chan GameEvent, queueSize)
	go el.writeLoop()
	return el
}

func (el *EventLog) writeLoop() {
	defer close(el.drained)
	for e := range el.queue {
		if err := el.persister.Append(e); err != nil {
			el.reportError(err)
		}
	}
}

func (el *EventLog) reportError(err error) {
	el.mu.RLock()
	onError := el.onError
	el.mu.RUnlock()
	if onError != nil {
		onError(err)
	}
}

// Close stops accepting write-through work and blocks until every queued
// event reached the persister. Appends after Close stay in memory only.
// Safe to call more than once.
func (el *EventLog) Close() {
	el.mu.Lock()
	if !el.closed {
		el.closed = true
		if el.queue != nil {
			close(el.queue)
		}
	}
	el.mu.Unlock()
	<-el.drained
}

// SetRetention changes how many events are kept in memory. n < 1 is ignored.
func (el *EventLog) SetRetention(n int) {
	if n < 1 {
		return
	}
	el.mu.Lock()
	el.retain = n
	el.mu.Unlock()
}

// OnPersistError registers a callback for write-through failures.
func (el *EventLog) OnPersistError(fn func(error)) {
	el.mu.Lock()
	el.onError = fn
	el.mu.Unlock()
}

// Append adds a new event to the log and fills in ID and Timestamp when empty.
// Events are immutable once appended.
func (el *EventLog) Append(event GameEvent) GameEvent {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	if len(el.events) > el.retain {
		cut := len(el.events) - el.retain/2
		el.events = append([]GameEvent(nil), el.events[cut:]...)
		el.dropped += cut
	}
	// Never block the simulation loop on the journal.
	backlog := false
	if el.queue != nil && !el.closed {
		select {
		case el.queue <- event:
		default:
			backlog = true
		}
	}
	el.mu.Unlock()

	if backlog {
		el.reportError(ErrPersistBacklog)
	}
	return event
}

// Len returns the absolute number of events ever appended.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.dropped + len(el.events)
}

// Since returns events appended after the absolute offset and the new offset.
// Events older than the retention window are skipped.
func (el *EventLog) Since(offset int) ([]GameEvent, int) {
	el.mu.RLock()
	defer el.mu.RUnlock()

	end := el.dropped + len(el.events)
	start := offset - el.dropped
	if start < 0 {
		start = 0
	}
	if start >= len(el.events) {
		return nil, end
	}
	out := make([]GameEvent, len(el.events)-start)
	copy(out, el.events[start:])
	return out, end
}

// GetByType returns all retained events of a type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// GetByRegion returns all retained events touching a region.
func (el *EventLog) GetByRegion(regionID int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.RegionID == regionID {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of the retained history.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	out := make([]GameEvent, len(el.events))
	copy(out, el.events)
	return out
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
