package engine

import (
	"math"

	"github.com/MRamiBalles/Conversion/server/internal/domain/intellectual"
	"github.com/MRamiBalles/Conversion/server/internal/domain/resource"
	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
)

// EconomySystem applies discrete player actions: clicks, purchases and unit placement.
// Every operation either fully succeeds or leaves the store untouched.
type EconomySystem struct {
	cfg   rules.Config
	clock Clock
}

// NewEconomySystem creates the economy bound to a config and clock.
func NewEconomySystem(cfg rules.Config, clock Clock) *EconomySystem {
	return &EconomySystem{cfg: cfg, clock: clock}
}

// CanAfford reports whether the pool covers the price of a purchasable.
func (es *EconomySystem) CanAfford(store *Store, p intellectual.Purchasable) bool {
	def, ok := intellectual.Lookup(p)
	if !ok {
		return false
	}
	cost, ok := es.cfg.Cost(p)
	if !ok {
		return false
	}
	return store.Resources.Balance(def.Currency) >= cost
}

// Spend deducts amount of a resource if the balance covers it.
func (es *EconomySystem) Spend(store *Store, k resource.Kind, amount float64) bool {
	return store.Resources.Spend(k, amount)
}

// CreateUnit buys an intellectual. It returns nil when unaffordable.
func (es *EconomySystem) CreateUnit(store *Store) *intellectual.Intellectual {
	if !es.CanAfford(store, intellectual.PurchaseIntellectual) {
		return nil
	}
	def, _ := intellectual.Lookup(intellectual.PurchaseIntellectual)
	cost, _ := es.cfg.Cost(intellectual.PurchaseIntellectual)
	if !store.Resources.Spend(def.Currency, cost) {
		return nil
	}
	return store.addUnit()
}

// AssignUnit stations a unit on a region. A unit that is already placed
// elsewhere is moved in place so the per-region counts never disagree with the
// units themselves.
func (es *EconomySystem) AssignUnit(store *Store, unitID, regionID int) bool {
	u, ok := store.Unit(unitID)
	if !ok {
		return false
	}
	target, ok := store.Region(regionID)
	if !ok {
		return false
	}

	if u.IsPlaced() {
		if *u.AssignedRegion == regionID {
			return true
		}
		if source, ok := store.Region(*u.AssignedRegion); ok && source.UnitsAssigned > 0 {
			source.UnitsAssigned--
		}
	}

	u.Place(regionID)
	target.UnitsAssigned++
	return true
}

// TransferUnit moves one stationed unit from source to target. The most
// recently created unit on the source is the one that moves.
func (es *EconomySystem) TransferUnit(store *Store, sourceID, targetID int) bool {
	if sourceID == targetID {
		return false
	}
	source, ok := store.Region(sourceID)
	if !ok || source.UnitsAssigned <= 0 {
		return false
	}
	target, ok := store.Region(targetID)
	if !ok {
		return false
	}

	stationed := store.UnitsInRegion(sourceID)
	if len(stationed) == 0 {
		return false
	}
	mover := stationed[len(stationed)-1]

	mover.Place(targetID)
	source.UnitsAssigned--
	target.UnitsAssigned++
	return true
}

// ApplyClick raises a region's value and restarts its grace period.
// It returns the new value, or false for an unknown region or a non-positive amount.
func (es *EconomySystem) ApplyClick(store *Store, regionID int, amount float64) (float64, bool) {
	if !(amount > 0) || math.IsInf(amount, 0) {
		return 0, false
	}
	r, ok := store.Region(regionID)
	if !ok {
		return 0, false
	}

	r.CurrentValue = math.Min(es.cfg.MaxRegionValue, r.CurrentValue+amount)
	r.LastInteractedAt = es.clock.Now()
	store.recomputeConversion(es.cfg)
	return r.CurrentValue, true
}
