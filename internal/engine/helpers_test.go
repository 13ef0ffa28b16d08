package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T) (*Session, *FakeClock) {
	t.Helper()
	return newTestSessionWith(t, rules.DefaultConfig())
}

func newTestSessionWith(t *testing.T, cfg rules.Config) (*Session, *FakeClock) {
	t.Helper()
	clock := NewFakeClock(epoch)
	s, err := NewSession(cfg, clock)
	require.NoError(t, err)
	return s, clock
}

// pastGrace moves the clock beyond the post-click decay delay.
func pastGrace(clock *FakeClock, cfg rules.Config) {
	clock.Advance(cfg.DecayDelay() + 2*time.Second)
}

func mustInvariants(t *testing.T, s *Session) {
	t.Helper()
	require.Empty(t, s.CheckInvariants())
}
