// Package cache keeps recent game snapshots for quick reads.
// It is not the source of truth; the engine is.
package cache

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MRamiBalles/Conversion/server/internal/engine"
)

// DefaultSize is used when a non-positive size is requested.
const DefaultSize = 64

// FrameCache holds the most recent snapshots keyed by revision.
// It is safe for concurrent use: the engine writes, transports read.
type FrameCache struct {
	snapshots *lru.Cache[uint64, engine.Snapshot]
	latest    atomic.Uint64
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewFrameCache creates a cache holding up to size snapshots.
func NewFrameCache(size int) (*FrameCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[uint64, engine.Snapshot](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame cache: %w", err)
	}
	return &FrameCache{snapshots: c}, nil
}

// Put stores a snapshot. Older revisions never replace the latest pointer.
// Its signature matches engine.Engine.OnChange.
func (c *FrameCache) Put(snap engine.Snapshot) {
	c.snapshots.Add(snap.Revision, snap)
	for {
		cur := c.latest.Load()
		if snap.Revision <= cur && c.snapshots.Contains(cur) {
			return
		}
		if c.latest.CompareAndSwap(cur, snap.Revision) {
			return
		}
	}
}

// Get returns the snapshot of a revision if it is still cached.
func (c *FrameCache) Get(revision uint64) (engine.Snapshot, bool) {
	snap, ok := c.snapshots.Get(revision)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return snap, ok
}

// Latest returns the newest cached snapshot.
func (c *FrameCache) Latest() (engine.Snapshot, bool) {
	return c.snapshots.Peek(c.latest.Load())
}

// Revisions lists cached revisions, oldest first.
func (c *FrameCache) Revisions() []uint64 {
	return c.snapshots.Keys()
}

// Stats reports hit and miss counts of Get.
func (c *FrameCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
