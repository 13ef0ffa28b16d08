package network

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
	"github.com/MRamiBalles/Conversion/server/internal/engine"
	"github.com/MRamiBalles/Conversion/server/internal/platform/logger"
)

type fakeHistory map[uint64]engine.Snapshot

func (h fakeHistory) Get(rev uint64) (engine.Snapshot, bool) {
	s, ok := h[rev]
	return s, ok
}

func newTestAPI(t *testing.T, history SnapshotHistory) (*http.ServeMux, *engine.Engine) {
	t.Helper()
	eng, _ := startGame(t, testTuning())
	mux := http.NewServeMux()
	NewGameAPI(eng, history, logger.Discard()).RegisterRoutes(mux)
	return mux, eng
}

func do(t *testing.T, mux *http.ServeMux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAPIClickAndState(t *testing.T) {
	// Setup
	mux, _ := newTestAPI(t, nil)

	// Act
	rec := do(t, mux, http.MethodPost, "/api/click", ClickRequest{RegionID: 5, Amount: 7})

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	var res engine.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.OK)
	assert.Equal(t, 7.0, res.Value)

	rec = do(t, mux, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Regions, 50)
	assert.Equal(t, 7.0, snap.Regions[4].CurrentValue)
	assert.InDelta(t, 0.14, snap.TotalConversionPercentage, 1e-9)
}

func TestAPIRejectedActions(t *testing.T) {
	mux, _ := newTestAPI(t, nil)

	rec := do(t, mux, http.MethodPost, "/api/units", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var res engine.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, engine.ReasonCannotAfford, res.Reason)

	rec = do(t, mux, http.MethodPost, "/api/units/transfer", TransferRequest{SourceRegionID: 2, TargetRegionID: 2})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, mux, http.MethodPost, "/api/units/assign", AssignRequest{UnitID: 1, RegionID: 1})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAPIBadRequests(t *testing.T) {
	mux, _ := newTestAPI(t, nil)

	rec := do(t, mux, http.MethodGet, "/api/click", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/click", bytes.NewBufferString(`{"region":1}`))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")

	rec = do(t, mux, http.MethodGet, "/api/state?revision=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodGet, "/api/state?revision=3", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIStateFromHistory(t *testing.T) {
	mux, _ := newTestAPI(t, fakeHistory{9: {Revision: 9, Frame: 4}})

	rec := do(t, mux, http.MethodGet, "/api/state?revision=9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, int64(4), snap.Frame)

	rec = do(t, mux, http.MethodGet, "/api/state?revision=10", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIEngineStopped(t *testing.T) {
	s, err := engine.NewSession(rules.DefaultConfig(), nil)
	require.NoError(t, err)
	eng := engine.NewEngine(s, nil, logger.Discard(), testTuning())
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = eng.Run(ctx) }()
	cancel()
	<-eng.Done()

	mux := http.NewServeMux()
	NewGameAPI(eng, nil, logger.Discard()).RegisterRoutes(mux)

	rec := do(t, mux, http.MethodGet, "/api/state", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = do(t, mux, http.MethodPost, "/api/click", ClickRequest{RegionID: 1})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIUnitLifecycle(t *testing.T) {
	mux, eng := newTestAPI(t, nil)
	ctx := context.Background()

	// Earn thought: academic regions at full value for a while.
	for id := 1; id <= 10; id++ {
		_, err := eng.Submit(ctx, engine.Action{Type: engine.ActionClick, RegionID: id, Amount: 100})
		require.NoError(t, err)
	}
	_, err := eng.Advance(ctx, 10)
	require.NoError(t, err)

	rec := do(t, mux, http.MethodPost, "/api/units", CreateUnitRequest{ActorID: "tester"})
	require.Equal(t, http.StatusOK, rec.Code)
	var created engine.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotNil(t, created.Unit)

	rec = do(t, mux, http.MethodPost, "/api/units/assign", AssignRequest{UnitID: created.Unit.ID, RegionID: 20})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, mux, http.MethodPost, "/api/units/transfer", TransferRequest{SourceRegionID: 20, TargetRegionID: 21})
	require.Equal(t, http.StatusOK, rec.Code)

	snap, err := eng.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Regions[19].UnitsAssigned)
	assert.Equal(t, 1, snap.Regions[20].UnitsAssigned)
}
