// Package network - journal.go
// Journal replay: read-only view of what happened in the game, for
// moderators and balance analysis.
package network

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/Conversion/server/internal/events"
	"github.com/MRamiBalles/Conversion/server/internal/infra/storage"
	"github.com/MRamiBalles/Conversion/server/internal/platform/logger"
)

// maxJournalLimit caps ?limit=.
const maxJournalLimit = 1000

// JournalHandler provides the journal replay API.
type JournalHandler struct {
	sessionID string
	eventLog  *events.EventLog
	repo      storage.JournalRepository // optional; nil serves the in-memory log only
	logger    *logger.Logger
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(sessionID string, el *events.EventLog, repo storage.JournalRepository, log *logger.Logger) *JournalHandler {
	return &JournalHandler{
		sessionID: sessionID,
		eventLog:  el,
		repo:      repo,
		logger:    log,
	}
}

// ReplayEvent is an event formatted for viewing.
type ReplayEvent struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Frame     int64  `json:"frame"`
	Type      string `json:"type"`
	ActorName string `json:"actor_name"`
	RegionID  int    `json:"region_id,omitempty"`
	UnitID    int    `json:"unit_id,omitempty"`
	Summary   string `json:"summary"`
	Impact    string `json:"impact"`
	Payload   string `json:"payload,omitempty"` // JSON text, journal source only
}

// ReplayResponse is the API response for journal replay.
type ReplayResponse struct {
	SessionID   string        `json:"session_id"`
	Source      string        `json:"source"` // "journal" or "memory"
	TotalEvents int           `json:"total_events"`
	FilteredBy  string        `json:"filtered_by,omitempty"`
	GeneratedAt string        `json:"generated_at"`
	Events      []ReplayEvent `json:"events"`
}

// HandleReplay returns the newest events, newest first.
// GET /api/journal?type=UNIT_CREATED&region=12&limit=50&source=memory
func (jh *JournalHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	eventType := q.Get("type")
	regionID := 0
	if s := q.Get("region"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			jsonError(w, "Invalid region", http.StatusBadRequest)
			return
		}
		regionID = n
	}
	limit := storage.DefaultRecentLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxJournalLimit)
	}

	filterDesc := ""
	if eventType != "" {
		filterDesc = "type " + eventType
	}
	if regionID > 0 {
		if filterDesc != "" {
			filterDesc += ", "
		}
		filterDesc += fmt.Sprintf("region %d", regionID)
	}

	response := ReplayResponse{
		SessionID:   jh.sessionID,
		FilteredBy:  filterDesc,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      make([]ReplayEvent, 0),
	}

	if jh.repo != nil && q.Get("source") != "memory" {
		entries, err := jh.repo.Recent(r.Context(), storage.JournalQuery{
			SessionID: jh.sessionID,
			EventType: eventType,
			RegionID:  regionID,
			Limit:     limit,
		})
		if err != nil {
			jh.logger.Error("journal query failed", "error", err)
			jsonError(w, "Journal unavailable", http.StatusInternalServerError)
			return
		}
		response.Source = "journal"
		for _, e := range entries {
			response.Events = append(response.Events, fromEntry(e))
		}
	} else {
		response.Source = "memory"
		all := jh.eventLog.Replay()
		for i := len(all) - 1; i >= 0 && len(response.Events) < limit; i-- {
			e := all[i]
			if eventType != "" && string(e.Type) != eventType {
				continue
			}
			if regionID > 0 && e.RegionID != regionID {
				continue
			}
			response.Events = append(response.Events, fromEvent(e))
		}
	}
	response.TotalEvents = len(response.Events)

	jh.logger.Debug("journal replay served", "source", response.Source, "events", response.TotalEvents)
	jsonSuccess(w, response)
}

// HandleStats returns per-type counts.
// GET /api/journal/stats
func (jh *JournalHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]int{}
	source := "memory"
	if jh.repo != nil {
		counts, err := jh.repo.CountByType(r.Context(), jh.sessionID)
		if err != nil {
			jh.logger.Error("journal stats failed", "error", err)
			jsonError(w, "Journal unavailable", http.StatusInternalServerError)
			return
		}
		source = "journal"
		for _, c := range counts {
			stats[c.EventType] = c.Count
		}
	} else {
		for _, e := range jh.eventLog.Replay() {
			stats[string(e.Type)]++
		}
	}

	total := 0
	for _, n := range stats {
		total += n
	}

	jsonSuccess(w, map[string]interface{}{
		"session_id":   jh.sessionID,
		"source":       source,
		"generated_at": time.Now().Format(time.RFC3339),
		"total_events": total,
		"in_memory":    jh.eventLog.Len(),
		"stats":        stats,
	})
}

// RegisterRoutes sets up the journal API routes.
func (jh *JournalHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/journal", jh.HandleReplay)
	mux.HandleFunc("/api/journal/stats", jh.HandleStats)
}

func fromEvent(e events.GameEvent) ReplayEvent {
	return ReplayEvent{
		ID:        e.ID,
		Timestamp: e.Timestamp.Format("15:04:05"),
		Frame:     e.Frame,
		Type:      string(e.Type),
		ActorName: actorName(e.ActorID),
		RegionID:  e.RegionID,
		UnitID:    e.UnitID,
		Summary:   summarizeEvent(e.Type, e.RegionID, e.UnitID),
		Impact:    determineImpact(e.Type),
	}
}

func fromEntry(e storage.JournalEntry) ReplayEvent {
	t := events.EventType(e.EventType)
	return ReplayEvent{
		ID:        e.ID,
		Timestamp: e.Time().Format("15:04:05"),
		Frame:     e.Frame,
		Type:      e.EventType,
		ActorName: actorName(e.ActorID),
		RegionID:  e.RegionID,
		UnitID:    e.UnitID,
		Summary:   summarizeEvent(t, e.RegionID, e.UnitID),
		Impact:    determineImpact(t),
		Payload:   e.Payload,
	}
}

func actorName(id string) string {
	if id == events.ActorSystem {
		return "The City"
	}
	return id
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(t events.EventType, regionID, unitID int) string {
	switch t {
	case events.EventTypeRegionClicked:
		return fmt.Sprintf("Region %d was pushed towards the cause.", regionID)
	case events.EventTypeUnitCreated:
		return fmt.Sprintf("Intellectual %d joined.", unitID)
	case events.EventTypeUnitAssigned:
		return fmt.Sprintf("Intellectual %d was stationed on region %d.", unitID, regionID)
	case events.EventTypeUnitTransferred:
		return fmt.Sprintf("An intellectual moved to region %d.", regionID)
	case events.EventTypeRegionMaxed:
		return fmt.Sprintf("Region %d is fully converted.", regionID)
	case events.EventTypeRegionLost:
		return fmt.Sprintf("Region %d fell back to zero.", regionID)
	case events.EventTypeActionRejected:
		return "An action was refused."
	case events.EventTypeSessionStarted:
		return "The game started."
	case events.EventTypeSessionStopped:
		return "The game stopped."
	case events.EventTypeConversionReport:
		return "Periodic conversion report."
	default:
		return "Something happened..."
	}
}

// determineImpact classifies the event impact.
func determineImpact(t events.EventType) string {
	switch t {
	case events.EventTypeRegionClicked, events.EventTypeUnitCreated, events.EventTypeUnitAssigned, events.EventTypeRegionMaxed:
		return "POSITIVE"
	case events.EventTypeRegionLost, events.EventTypeActionRejected:
		return "NEGATIVE"
	default:
		return "NEUTRAL"
	}
}
