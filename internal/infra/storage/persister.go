package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/Conversion/server/internal/events"
	"github.com/MRamiBalles/Conversion/server/internal/platform/metrics"
)

// DefaultWriteTimeout bounds a single journal write.
const DefaultWriteTimeout = 2 * time.Second

// JournalPersister writes engine events through to a JournalRepository.
// It satisfies events.EventPersister.
type JournalPersister struct {
	repo      JournalRepository
	sessionID string
	timeout   time.Duration
	metrics   *metrics.Collector
}

// NewJournalPersister binds a repository to one session.
func NewJournalPersister(repo JournalRepository, sessionID string, m *metrics.Collector) *JournalPersister {
	if m == nil {
		m = metrics.Get()
	}
	return &JournalPersister{
		repo:      repo,
		sessionID: sessionID,
		timeout:   DefaultWriteTimeout,
		metrics:   m,
	}
}

// Append stores one event.
func (p *JournalPersister) Append(e events.GameEvent) error {
	entry, err := ToEntry(p.sessionID, e)
	if err != nil {
		p.metrics.RecordEventWrite(0, err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	err = p.repo.Append(ctx, entry)
	p.metrics.RecordEventWrite(time.Since(start), err)
	return err
}

// ToEntry flattens an event into a journal row.
func ToEntry(sessionID string, e events.GameEvent) (JournalEntry, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return JournalEntry{}, fmt.Errorf("failed to marshal payload of %s: %w", e.Type, err)
	}
	return JournalEntry{
		ID:          e.ID,
		SessionID:   sessionID,
		TimestampMS: e.Timestamp.UnixMilli(),
		EventType:   string(e.Type),
		ActorID:     e.ActorID,
		RegionID:    e.RegionID,
		UnitID:      e.UnitID,
		Frame:       e.Frame,
		Payload:     string(payload),
	}, nil
}
