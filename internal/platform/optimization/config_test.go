package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfiles(t *testing.T) {
	assert.Equal(t, DefaultConfig(), Profile("default"))
	assert.Equal(t, StressTestConfig(), Profile("stress"))
	assert.Equal(t, LowResourceConfig(), Profile("low"))
	assert.Equal(t, DefaultConfig(), Profile("unknown"))
}

func TestAnalyzeHealthyMetrics(t *testing.T) {
	rec := Analyze(map[string]interface{}{
		"tick":      map[string]interface{}{"max_latency_ms": 3.0},
		"events":    map[string]interface{}{"max_write_lat_ms": 4.0, "errors": int64(0)},
		"actions":   map[string]interface{}{"dropped": int64(0)},
		"websocket": map[string]interface{}{"errors": int64(0)},
	})
	assert.Empty(t, rec.Notes)
	assert.False(t, rec.IncreaseRequestBuffer)
}

func TestAnalyzeAndApply(t *testing.T) {
	rec := Analyze(map[string]interface{}{
		"tick":      map[string]interface{}{"max_latency_ms": 40.0},
		"events":    map[string]interface{}{"max_write_lat_ms": 4.0, "errors": int64(2)},
		"actions":   map[string]interface{}{"dropped": int64(9)},
		"websocket": map[string]interface{}{"errors": int64(1)},
	})
	assert.True(t, rec.IncreaseRequestBuffer)
	assert.True(t, rec.IncreaseDBConnections)
	assert.True(t, rec.RaiseRateLimit)
	assert.True(t, rec.IncreaseBroadcastBuffer)
	assert.Len(t, rec.Notes, 4)

	base := DefaultConfig()
	cfg := ApplyRecommendations(DefaultConfig(), rec)
	assert.Equal(t, base.RequestQueueBuffer*2, cfg.RequestQueueBuffer)
	assert.Equal(t, base.ClientSendBuffer*2, cfg.ClientSendBuffer)
	assert.Equal(t, base.MaxActionsPerSecond*1.5, cfg.MaxActionsPerSecond)
	assert.Equal(t, base.ActionBurst*2, cfg.ActionBurst)
}
