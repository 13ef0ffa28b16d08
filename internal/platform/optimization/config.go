// Package optimization provides concurrency tuning for the server runtime.
// Channel buffers, frame cadence, rate limits and connection pool settings.
package optimization

import (
	"runtime"
	"time"
)

// Config holds tuned parameters for the server runtime.
type Config struct {
	// Channel buffer sizes
	RequestQueueBuffer     int `yaml:"request_queue_buffer" env:"REQUEST_QUEUE_BUFFER"`
	BroadcastChannelBuffer int `yaml:"broadcast_channel_buffer" env:"BROADCAST_CHANNEL_BUFFER"`
	ClientSendBuffer       int `yaml:"client_send_buffer" env:"CLIENT_SEND_BUFFER"`

	// Cadence
	FrameInterval     time.Duration `yaml:"frame_interval" env:"FRAME_INTERVAL"`
	BroadcastInterval time.Duration `yaml:"broadcast_interval" env:"BROADCAST_INTERVAL"`
	StatusInterval    time.Duration `yaml:"status_interval" env:"STATUS_INTERVAL"`

	// Connection pools
	DBMaxOpenConns int `yaml:"db_max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int `yaml:"db_max_idle_conns" env:"DB_MAX_IDLE_CONNS"`

	// Snapshot cache
	SnapshotCacheSize int `yaml:"snapshot_cache_size" env:"SNAPSHOT_CACHE_SIZE"`

	// Rate limiting
	MaxActionsPerSecond float64 `yaml:"max_actions_per_second" env:"MAX_ACTIONS_PER_SECOND"`
	ActionBurst         int     `yaml:"action_burst" env:"ACTION_BURST"`
	MaxClients          int     `yaml:"max_clients" env:"MAX_CLIENTS"`
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		// Channel buffers - larger = more memory, less blocking
		RequestQueueBuffer:     256, // Clicks arrive in bursts
		BroadcastChannelBuffer: 256,
		ClientSendBuffer:       64, // Per WebSocket

		FrameInterval:     50 * time.Millisecond, // 20 frames per second
		BroadcastInterval: 200 * time.Millisecond,
		StatusInterval:    30 * time.Second,

		// SQLite serializes writers anyway
		DBMaxOpenConns: numCPU,
		DBMaxIdleConns: 2,

		SnapshotCacheSize: 64,

		// Rate limits, per client
		MaxActionsPerSecond: 20,
		ActionBurst:         40,
		MaxClients:          200,
	}
}

// StressTestConfig returns aggressive settings for stress testing.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		RequestQueueBuffer:     4096,
		BroadcastChannelBuffer: 512,
		ClientSendBuffer:       128,

		FrameInterval:     50 * time.Millisecond,
		BroadcastInterval: 500 * time.Millisecond,
		StatusInterval:    10 * time.Second,

		DBMaxOpenConns: numCPU * 2,
		DBMaxIdleConns: numCPU,

		SnapshotCacheSize: 256,

		MaxActionsPerSecond: 500,
		ActionBurst:         1000,
		MaxClients:          500,
	}
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	return &Config{
		RequestQueueBuffer:     16,
		BroadcastChannelBuffer: 16,
		ClientSendBuffer:       8,

		FrameInterval:     100 * time.Millisecond,
		BroadcastInterval: time.Second,
		StatusInterval:    time.Minute,

		DBMaxOpenConns: 2,
		DBMaxIdleConns: 1,

		SnapshotCacheSize: 8,

		MaxActionsPerSecond: 10,
		ActionBurst:         10,
		MaxClients:          20,
	}
}

// Profile returns the named preset: "stress", "low" or anything else for default.
func Profile(name string) *Config {
	switch name {
	case "stress":
		return StressTestConfig()
	case "low":
		return LowResourceConfig()
	default:
		return DefaultConfig()
	}
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseRequestBuffer   bool
	IncreaseBroadcastBuffer bool
	IncreaseDBConnections   bool
	RaiseRateLimit          bool
	Notes                   []string
}

// Analyze examines current metrics and returns optimization recommendations.
func Analyze(metrics map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	// Check frame latency
	if tick, ok := metrics["tick"].(map[string]interface{}); ok {
		if maxLat, ok := tick["max_latency_ms"].(float64); ok && maxLat > 16 {
			rec.IncreaseRequestBuffer = true
			rec.Notes = append(rec.Notes, "Frame latency exceeds 16ms - increase request queue buffer")
		}
	}

	// Check journal write latency
	if events, ok := metrics["events"].(map[string]interface{}); ok {
		if maxLat, ok := events["max_write_lat_ms"].(float64); ok && maxLat > 50 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Journal write latency exceeds 50ms - increase DB connections")
		}
		if errors, ok := events["errors"].(int64); ok && errors > 0 {
			rec.IncreaseDBConnections = true
			rec.Notes = append(rec.Notes, "Journal write errors detected - check DB connection pool")
		}
	}

	// Check rate limiter pressure
	if actions, ok := metrics["actions"].(map[string]interface{}); ok {
		if dropped, ok := actions["dropped"].(int64); ok && dropped > 0 {
			rec.RaiseRateLimit = true
			rec.Notes = append(rec.Notes, "Actions dropped by the rate limiter - raise max_actions_per_second")
		}
	}

	// Check WebSocket backpressure
	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if errors, ok := ws["errors"].(int64); ok && errors > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
	}

	return rec
}

// ApplyRecommendations modifies config based on recommendations.
func ApplyRecommendations(config *Config, rec *Recommendations) *Config {
	if rec.IncreaseRequestBuffer {
		config.RequestQueueBuffer *= 2
	}
	if rec.IncreaseBroadcastBuffer {
		config.BroadcastChannelBuffer *= 2
		config.ClientSendBuffer *= 2
	}
	if rec.IncreaseDBConnections {
		config.DBMaxOpenConns = int(float64(config.DBMaxOpenConns) * 1.5)
		config.DBMaxIdleConns = int(float64(config.DBMaxIdleConns) * 1.5)
	}
	if rec.RaiseRateLimit {
		config.MaxActionsPerSecond *= 1.5
		config.ActionBurst *= 2
	}
	return config
}
