package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
	"github.com/MRamiBalles/Conversion/server/internal/engine"
	"github.com/MRamiBalles/Conversion/server/internal/events"
	"github.com/MRamiBalles/Conversion/server/internal/platform/logger"
	"github.com/MRamiBalles/Conversion/server/internal/platform/optimization"
)

func testTuning() *optimization.Config {
	cfg := optimization.LowResourceConfig()
	cfg.FrameInterval = 0
	cfg.StatusInterval = 0
	cfg.BroadcastInterval = 10 * time.Millisecond
	return cfg
}

// startGame runs a headless engine for the duration of the test.
func startGame(t *testing.T, tuning *optimization.Config) (*engine.Engine, *events.EventLog) {
	t.Helper()
	s, err := engine.NewSession(rules.DefaultConfig(), engine.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	el := events.NewEventLog(nil)
	eng := engine.NewEngine(s, el, logger.Discard(), tuning)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = eng.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-eng.Done()
	})
	return eng, el
}
