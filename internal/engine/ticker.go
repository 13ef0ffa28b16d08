package engine

import (
	"context"
	"sync"
	"time"

	"github.com/MRamiBalles/Conversion/server/internal/platform/logger"
)

// DefaultFrameInterval is the real-time cadence of simulation frames.
const DefaultFrameInterval = 50 * time.Millisecond

// FramePayload is one frame handed from the Ticker to the engine loop.
type FramePayload struct {
	Frame        int64     `json:"frame"`
	DeltaSeconds float64   `json:"delta_seconds"`
	At           time.Time `json:"at"`
}

// Ticker manages the frame heartbeat.
// It does NOT know about regions or units - only time progression.
type Ticker struct {
	clock    Clock
	interval time.Duration
	logger   *logger.Logger

	frames   chan FramePayload
	stopChan chan struct{}
	stopOnce sync.Once

	frameNumber int64
	last        time.Time
}

// NewTicker creates a new frame ticker. interval <= 0 disables real-time
// frames; the engine can still be stepped explicitly.
func NewTicker(clock Clock, interval time.Duration, log *logger.Logger) *Ticker {
	return &Ticker{
		clock:    clock,
		interval: interval,
		logger:   log,
		frames:   make(chan FramePayload, 1),
		stopChan: make(chan struct{}),
		last:     clock.Now(),
	}
}

// Frames delivers frames to the engine loop.
func (t *Ticker) Frames() <-chan FramePayload {
	return t.frames
}

// Start begins the frame loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	if t.interval <= 0 {
		t.logger.Info("frame ticker disabled")
		select {
		case <-ctx.Done():
		case <-t.stopChan:
		}
		return
	}

	t.logger.Info("frame ticker started", "interval", t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("frame ticker stopped by context", "frames", t.frameNumber)
			return
		case <-t.stopChan:
			t.logger.Info("frame ticker stopped manually", "frames", t.frameNumber)
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

// Stop gracefully stops the ticker. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// tick offers a single frame to the engine. When the previous frame has not
// been consumed yet this one is skipped and its time rolls into the next.
func (t *Ticker) tick() bool {
	now := t.clock.Now()
	payload := FramePayload{
		Frame:        t.frameNumber + 1,
		DeltaSeconds: now.Sub(t.last).Seconds(),
		At:           now,
	}

	select {
	case t.frames <- payload:
		t.frameNumber++
		t.last = now
		return true
	default:
		return false
	}
}
