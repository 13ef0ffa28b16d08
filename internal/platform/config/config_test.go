package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
	"github.com/MRamiBalles/Conversion/server/internal/platform/optimization"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conversion.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, rules.DefaultConfig(), cfg.Game)
	assert.Equal(t, *optimization.DefaultConfig(), cfg.Tuning)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
addr: ":9090"
profile: low
game:
  regions_per_row: 5
  base_decay_rate: 0.5
tuning:
  frame_interval: 25ms
  max_clients: 3
`)
	t.Setenv("CONVERSION_GAME_UNIT_CREATION_COST", "35")
	t.Setenv("CONVERSION_TUNING_MAX_CLIENTS", "7")
	t.Setenv("CONVERSION_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.Game.RegionsPerRow)
	assert.Equal(t, 0.5, cfg.Game.BaseDecayRate)
	assert.Equal(t, 35.0, cfg.Game.UnitCreationCost)
	assert.Equal(t, 100.0, cfg.Game.MaxRegionValue, "unset keys keep defaults")

	assert.Equal(t, 25*time.Millisecond, cfg.Tuning.FrameInterval)
	assert.Equal(t, 7, cfg.Tuning.MaxClients)
	assert.Equal(t, optimization.LowResourceConfig().SnapshotCacheSize, cfg.Tuning.SnapshotCacheSize, "profile baseline")
}

func TestLoadProfileFromEnv(t *testing.T) {
	t.Setenv("CONVERSION_PROFILE", "stress")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "stress", cfg.Profile)
	assert.Equal(t, optimization.StressTestConfig().MaxClients, cfg.Tuning.MaxClients)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "game:\n  max_region_value: 5\n"))
	assert.ErrorIs(t, err, rules.ErrInvalidConfig)

	_, err = Load(writeFile(t, "profile: turbo\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "addr: [\n"))
	assert.Error(t, err)

	t.Setenv("CONVERSION_GAME_BASE_DECAY_RATE", "fast")
	_, err = Load("")
	assert.Error(t, err)
}
