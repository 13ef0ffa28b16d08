package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/Conversion/server/internal/events"
	"github.com/MRamiBalles/Conversion/server/internal/infra/storage"
	"github.com/MRamiBalles/Conversion/server/internal/platform/logger"
)

func seedLog() *events.EventLog {
	el := events.NewEventLog(nil)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	el.Append(events.GameEvent{Type: events.EventTypeSessionStarted, ActorID: events.ActorSystem, Timestamp: base})
	el.Append(events.GameEvent{Type: events.EventTypeRegionClicked, ActorID: events.ActorPlayer, RegionID: 3, Timestamp: base.Add(time.Second)})
	el.Append(events.GameEvent{Type: events.EventTypeRegionClicked, ActorID: events.ActorPlayer, RegionID: 4, Timestamp: base.Add(2 * time.Second)})
	el.Append(events.GameEvent{Type: events.EventTypeUnitCreated, ActorID: "p-1", UnitID: 1, Timestamp: base.Add(3 * time.Second)})
	el.Append(events.GameEvent{Type: events.EventTypeRegionMaxed, ActorID: events.ActorSystem, RegionID: 3, Frame: 12, Timestamp: base.Add(4 * time.Second)})
	return el
}

func getReplay(t *testing.T, h *JournalHandler, path string) (int, ReplayResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.HandleReplay(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var resp ReplayResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func TestJournalReplayFromMemory(t *testing.T) {
	h := NewJournalHandler("s1", seedLog(), nil, logger.Discard())

	code, resp := getReplay(t, h, "/api/journal")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "memory", resp.Source)
	require.Equal(t, 5, resp.TotalEvents)
	assert.Equal(t, string(events.EventTypeRegionMaxed), resp.Events[0].Type)
	assert.Equal(t, "The City", resp.Events[0].ActorName)
	assert.Equal(t, int64(12), resp.Events[0].Frame)

	code, resp = getReplay(t, h, "/api/journal?region=3&limit=1")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, 3, resp.Events[0].RegionID)
	assert.Equal(t, "region 3", resp.FilteredBy)

	code, resp = getReplay(t, h, "/api/journal?type=REGION_CLICKED")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, 4, resp.Events[0].RegionID)
}

func TestJournalReplayRejectsBadQuery(t *testing.T) {
	h := NewJournalHandler("s1", seedLog(), nil, logger.Discard())

	code, _ := getReplay(t, h, "/api/journal?limit=-2")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = getReplay(t, h, "/api/journal?region=x")
	assert.Equal(t, http.StatusBadRequest, code)

	rec := httptest.NewRecorder()
	h.HandleReplay(rec, httptest.NewRequest(http.MethodPost, "/api/journal", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestJournalReplayFromSQLite(t *testing.T) {
	// Setup
	db, err := storage.InitSQLite(filepath.Join(t.TempDir(), "journal.db"), 1, 1)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := storage.NewSQLiteJournalRepository(db)

	el := seedLog()
	for _, e := range el.Replay() {
		entry, err := storage.ToEntry("s1", e)
		require.NoError(t, err)
		require.NoError(t, repo.Append(context.Background(), entry))
	}
	h := NewJournalHandler("s1", events.NewEventLog(nil), repo, logger.Discard())

	// Act
	code, resp := getReplay(t, h, "/api/journal?type=UNIT_CREATED")

	// Assert
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "journal", resp.Source)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, 1, resp.Events[0].UnitID)

	code, resp = getReplay(t, h, "/api/journal?source=memory")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "memory", resp.Source)
	assert.Empty(t, resp.Events)

	rec := httptest.NewRecorder()
	h.HandleStats(rec, httptest.NewRequest(http.MethodGet, "/api/journal/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Source      string         `json:"source"`
		TotalEvents int            `json:"total_events"`
		Stats       map[string]int `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "journal", stats.Source)
	assert.Equal(t, 5, stats.TotalEvents)
	assert.Equal(t, 2, stats.Stats[string(events.EventTypeRegionClicked)])
}

func TestJournalStatsFromMemory(t *testing.T) {
	h := NewJournalHandler("s1", seedLog(), nil, logger.Discard())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/journal/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source":"memory"`)
	assert.Contains(t, rec.Body.String(), `"REGION_CLICKED":2`)
}
