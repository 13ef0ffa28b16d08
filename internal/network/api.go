// Package network - api.go
// GameAPI: REST bridge for clients that cannot hold a websocket.
// Every mutation goes through the same engine queue as websocket actions.
package network

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/Conversion/server/internal/engine"
	"github.com/MRamiBalles/Conversion/server/internal/platform/logger"
	"github.com/MRamiBalles/Conversion/server/internal/platform/metrics"
)

// SnapshotHistory returns a past snapshot by revision.
type SnapshotHistory interface {
	Get(revision uint64) (engine.Snapshot, bool)
}

// GameAPI handles REST interactions with the running game.
type GameAPI struct {
	sim     Simulation
	history SnapshotHistory // optional
	logger  *logger.Logger
	metrics *metrics.Collector
}

// NewGameAPI creates the REST bridge. history may be nil.
func NewGameAPI(sim Simulation, history SnapshotHistory, log *logger.Logger) *GameAPI {
	return &GameAPI{
		sim:     sim,
		history: history,
		logger:  log,
		metrics: metrics.Get(),
	}
}

// ClickRequest is the payload of POST /api/click.
type ClickRequest struct {
	RegionID int     `json:"region_id"`
	Amount   float64 `json:"amount"` // 0 means one unit_per_click
	ActorID  string  `json:"actor_id"`
}

// AssignRequest is the payload of POST /api/units/assign.
type AssignRequest struct {
	UnitID   int    `json:"unit_id"`
	RegionID int    `json:"region_id"`
	ActorID  string `json:"actor_id"`
}

// TransferRequest is the payload of POST /api/units/transfer.
type TransferRequest struct {
	SourceRegionID int    `json:"source_region_id"`
	TargetRegionID int    `json:"target_region_id"`
	ActorID        string `json:"actor_id"`
}

// CreateUnitRequest is the optional payload of POST /api/units.
type CreateUnitRequest struct {
	ActorID string `json:"actor_id"`
}

// HandleState returns the current snapshot, or a cached one for ?revision=N.
// GET /api/state
func (api *GameAPI) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if revStr := r.URL.Query().Get("revision"); revStr != "" {
		rev, err := strconv.ParseUint(revStr, 10, 64)
		if err != nil {
			jsonError(w, "Invalid revision", http.StatusBadRequest)
			return
		}
		if api.history == nil {
			jsonError(w, "Snapshot history disabled", http.StatusNotFound)
			return
		}
		snap, ok := api.history.Get(rev)
		if !ok {
			jsonError(w, "Revision not cached", http.StatusNotFound)
			return
		}
		jsonSuccess(w, snap)
		return
	}

	snap, err := api.sim.Snapshot(r.Context())
	if err != nil {
		api.engineError(w, err)
		return
	}
	jsonSuccess(w, snap)
}

// HandleClick applies a click to a region.
// POST /api/click
func (api *GameAPI) HandleClick(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	if !decodePost(w, r, &req) {
		return
	}
	api.submit(w, r, engine.Action{
		Type:     engine.ActionClick,
		ActorID:  req.ActorID,
		RegionID: req.RegionID,
		Amount:   req.Amount,
	})
}

// HandleCreateUnit buys an intellectual.
// POST /api/units
func (api *GameAPI) HandleCreateUnit(w http.ResponseWriter, r *http.Request) {
	var req CreateUnitRequest
	if r.Method == http.MethodPost && r.ContentLength == 0 {
		api.submit(w, r, engine.Action{Type: engine.ActionCreateUnit})
		return
	}
	if !decodePost(w, r, &req) {
		return
	}
	api.submit(w, r, engine.Action{Type: engine.ActionCreateUnit, ActorID: req.ActorID})
}

// HandleAssign stations a unit on a region.
// POST /api/units/assign
func (api *GameAPI) HandleAssign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !decodePost(w, r, &req) {
		return
	}
	api.submit(w, r, engine.Action{
		Type:     engine.ActionAssignUnit,
		ActorID:  req.ActorID,
		UnitID:   req.UnitID,
		RegionID: req.RegionID,
	})
}

// HandleTransfer moves a unit between regions.
// POST /api/units/transfer
func (api *GameAPI) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !decodePost(w, r, &req) {
		return
	}
	api.submit(w, r, engine.Action{
		Type:           engine.ActionTransferUnit,
		ActorID:        req.ActorID,
		RegionID:       req.SourceRegionID,
		TargetRegionID: req.TargetRegionID,
	})
}

// RegisterRoutes sets up the game API routes.
func (api *GameAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", api.HandleState)
	mux.HandleFunc("/api/click", api.HandleClick)
	mux.HandleFunc("/api/units", api.HandleCreateUnit)
	mux.HandleFunc("/api/units/assign", api.HandleAssign)
	mux.HandleFunc("/api/units/transfer", api.HandleTransfer)
}

// submit forwards an action. Rejected actions answer 422 with the result body.
func (api *GameAPI) submit(w http.ResponseWriter, r *http.Request, a engine.Action) {
	res, err := api.sim.Submit(r.Context(), a)
	if err != nil {
		api.engineError(w, err)
		return
	}
	if !res.OK {
		jsonResponse(w, http.StatusUnprocessableEntity, res)
		return
	}
	jsonSuccess(w, res)
}

func (api *GameAPI) engineError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrEngineStopped) {
		jsonError(w, "Game is not running", http.StatusServiceUnavailable)
		return
	}
	api.logger.Warn("engine request failed", "error", err)
	jsonError(w, "Engine unavailable", http.StatusGatewayTimeout)
}

// decodePost enforces POST and decodes a JSON body into dst.
func decodePost(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, status, map[string]interface{}{
		"error":     message,
		"timestamp": time.Now().Unix(),
	})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data interface{}) {
	jsonResponse(w, http.StatusOK, data)
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
