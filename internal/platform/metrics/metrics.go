// Package metrics provides observability for the game server.
// Counters for frames, actions, journal writes and websocket traffic.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics.
type Collector struct {
	// Frame metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Action metrics
	ActionsAccepted int64
	ActionsRejected int64
	ActionsDropped  int64 // rate limited before reaching the engine

	// Journal metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// Game gauges, updated on every status report
	ConversionPercent float64
	UnitsTotal        int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = NewCollector()

// NewCollector creates an empty collector. Tests use private collectors.
func NewCollector() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordTick records a simulation frame.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordAction records the outcome of a player action.
func (c *Collector) RecordAction(accepted bool) {
	if accepted {
		atomic.AddInt64(&c.ActionsAccepted, 1)
	} else {
		atomic.AddInt64(&c.ActionsRejected, 1)
	}
}

// RecordDroppedAction records an action refused by a rate limiter.
func (c *Collector) RecordDroppedAction() {
	atomic.AddInt64(&c.ActionsDropped, 1)
}

// RecordEventWrite records an event write to the journal.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))
	storeMax(&c.EventWriteLatMax, int64(latency))

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordGame updates the game gauges.
func (c *Collector) RecordGame(conversionPercent float64, units int) {
	c.mu.Lock()
	c.ConversionPercent = conversionPercent
	c.mu.Unlock()
	atomic.StoreInt64(&c.UnitsTotal, int64(units))
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	// Calculate averages
	var tickAvg, eventAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"actions": map[string]interface{}{
			"accepted": atomic.LoadInt64(&c.ActionsAccepted),
			"rejected": atomic.LoadInt64(&c.ActionsRejected),
			"dropped":  atomic.LoadInt64(&c.ActionsDropped),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},

		"game": map[string]interface{}{
			"conversion_percent": c.ConversionPercent,
			"units_total":        atomic.LoadInt64(&c.UnitsTotal),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return collector.Handler()
}

// Handler serves this collector as JSON.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := c.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return collector.PrometheusHandler()
}

// PrometheusHandler serves this collector in the text exposition format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Frame metrics
		fmt.Fprintf(w, "# HELP conversion_tick_count Total simulation frames\n")
		fmt.Fprintf(w, "# TYPE conversion_tick_count counter\n")
		fmt.Fprintf(w, "conversion_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP conversion_tick_latency_max_ms Maximum frame latency\n")
		fmt.Fprintf(w, "# TYPE conversion_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "conversion_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		// Action metrics
		fmt.Fprintf(w, "# HELP conversion_actions_total Player actions by outcome\n")
		fmt.Fprintf(w, "# TYPE conversion_actions_total counter\n")
		fmt.Fprintf(w, "conversion_actions_total{outcome=\"accepted\"} %d\n", atomic.LoadInt64(&c.ActionsAccepted))
		fmt.Fprintf(w, "conversion_actions_total{outcome=\"rejected\"} %d\n", atomic.LoadInt64(&c.ActionsRejected))
		fmt.Fprintf(w, "conversion_actions_total{outcome=\"dropped\"} %d\n\n", atomic.LoadInt64(&c.ActionsDropped))

		// Journal metrics
		fmt.Fprintf(w, "# HELP conversion_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE conversion_events_written counter\n")
		fmt.Fprintf(w, "conversion_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP conversion_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE conversion_event_write_errors counter\n")
		fmt.Fprintf(w, "conversion_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		// WebSocket metrics
		fmt.Fprintf(w, "# HELP conversion_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE conversion_ws_connections gauge\n")
		fmt.Fprintf(w, "conversion_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP conversion_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE conversion_ws_messages_total counter\n")
		fmt.Fprintf(w, "conversion_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "conversion_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		// Game gauges
		c.mu.RLock()
		fmt.Fprintf(w, "# HELP conversion_percent Aggregate conversion of the grid\n")
		fmt.Fprintf(w, "# TYPE conversion_percent gauge\n")
		fmt.Fprintf(w, "conversion_percent %.4f\n\n", c.ConversionPercent)
		c.mu.RUnlock()

		fmt.Fprintf(w, "# HELP conversion_units_total Intellectuals created\n")
		fmt.Fprintf(w, "# TYPE conversion_units_total gauge\n")
		fmt.Fprintf(w, "conversion_units_total %d\n", atomic.LoadInt64(&c.UnitsTotal))
	}
}
