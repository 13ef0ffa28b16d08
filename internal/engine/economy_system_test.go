package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/Conversion/server/internal/domain/intellectual"
	"github.com/MRamiBalles/Conversion/server/internal/domain/resource"
)

func TestSpend(t *testing.T) {
	s, _ := newTestSession(t)
	s.store.Resources.Add(resource.Guns, 10)

	assert.False(t, s.Spend(resource.Guns, 10.5))
	assert.Equal(t, 10.0, s.store.Resources.Balance(resource.Guns))

	assert.False(t, s.Spend(resource.Guns, -1))
	assert.False(t, s.Spend(resource.Guns, math.NaN()))
	assert.Equal(t, 10.0, s.store.Resources.Balance(resource.Guns))

	assert.True(t, s.Spend(resource.Guns, 4))
	assert.Equal(t, 6.0, s.store.Resources.Balance(resource.Guns))
}

func TestCreateUnitCost(t *testing.T) {
	s, _ := newTestSession(t)
	s.store.Resources.Add(resource.Thought, 19.5)

	assert.False(t, s.CanAfford(intellectual.PurchaseIntellectual))
	_, ok := s.CreateUnit()
	assert.False(t, ok)
	assert.Equal(t, 19.5, s.store.Resources.Balance(resource.Thought))
	assert.Empty(t, s.store.Units)

	s.store.Resources.Add(resource.Thought, 25)
	u1, ok := s.CreateUnit()
	require.True(t, ok)
	assert.Equal(t, 1, u1.ID)
	assert.False(t, u1.IsPlaced())
	assert.InDelta(t, 24.5, s.store.Resources.Balance(resource.Thought), 1e-9)

	u2, ok := s.CreateUnit()
	require.True(t, ok)
	assert.Equal(t, 2, u2.ID)
	assert.InDelta(t, 4.5, s.store.Resources.Balance(resource.Thought), 1e-9)
}

func TestCanAffordUnknownPurchasable(t *testing.T) {
	s, _ := newTestSession(t)
	s.store.Resources.Add(resource.Thought, 1000)
	assert.False(t, s.CanAfford("castle"))
}

func TestAssignUnit(t *testing.T) {
	s, _ := newTestSession(t)
	s.store.Resources.Add(resource.Thought, 40)
	u, _ := s.CreateUnit()

	assert.False(t, s.AssignUnit(99, 1), "unknown unit")
	assert.False(t, s.AssignUnit(u.ID, 51), "unknown region")
	assert.False(t, s.AssignUnit(u.ID, 0), "region ids start at 1")
	mustInvariants(t, s)

	require.True(t, s.AssignUnit(u.ID, 4))
	r4, _ := s.store.Region(4)
	assert.Equal(t, 1, r4.UnitsAssigned)
	assert.Len(t, s.UnitsInRegion(4), 1)

	// Re-assigning moves the unit instead of counting it twice.
	require.True(t, s.AssignUnit(u.ID, 9))
	r9, _ := s.store.Region(9)
	assert.Equal(t, 0, r4.UnitsAssigned)
	assert.Equal(t, 1, r9.UnitsAssigned)

	require.True(t, s.AssignUnit(u.ID, 9))
	assert.Equal(t, 1, r9.UnitsAssigned)
	mustInvariants(t, s)
}

func TestTransferUnit(t *testing.T) {
	s, _ := newTestSession(t)
	s.store.Resources.Add(resource.Thought, 60)
	a, _ := s.CreateUnit()
	b, _ := s.CreateUnit()
	require.True(t, s.AssignUnit(a.ID, 1))
	require.True(t, s.AssignUnit(b.ID, 1))

	assert.False(t, s.TransferUnit(1, 1), "self transfer")
	assert.False(t, s.TransferUnit(2, 3), "empty source")
	assert.False(t, s.TransferUnit(1, 77), "unknown target")

	require.True(t, s.TransferUnit(1, 2))
	r1, _ := s.store.Region(1)
	r2, _ := s.store.Region(2)
	assert.Equal(t, 1, r1.UnitsAssigned)
	assert.Equal(t, 1, r2.UnitsAssigned)

	// The newest unit on the source is the one that moves.
	moved := s.UnitsInRegion(2)
	require.Len(t, moved, 1)
	assert.Equal(t, b.ID, moved[0].ID)
	mustInvariants(t, s)
}

func TestApplyClick(t *testing.T) {
	s, clock := newTestSession(t)

	clock.Advance(10 * time.Second)
	v, ok := s.ApplyClick(1, 0)
	require.True(t, ok)
	assert.Equal(t, s.cfg.UnitPerClick, v)

	r, _ := s.store.Region(1)
	assert.Equal(t, clock.Now(), r.LastInteractedAt)

	v, ok = s.ApplyClick(1, 500)
	require.True(t, ok)
	assert.Equal(t, s.cfg.MaxRegionValue, v)

	_, ok = s.ApplyClick(0, 1)
	assert.False(t, ok)
	_, ok = s.ApplyClick(1, -3)
	assert.False(t, ok)
	_, ok = s.ApplyClick(1, math.Inf(1))
	assert.False(t, ok)

	assert.InDelta(t, 2.0, s.store.TotalConversionPercentage, 1e-9)
}
