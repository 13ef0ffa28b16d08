package engine

import (
	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
)

// DecaySystem moves region values by their conversion rate over time.
type DecaySystem struct {
	cfg   rules.Config
	clock Clock
}

// NewDecaySystem creates a decay pass bound to a config and clock.
func NewDecaySystem(cfg rules.Config, clock Clock) *DecaySystem {
	return &DecaySystem{cfg: cfg, clock: clock}
}

// Update applies decay to every region for dt seconds. Regions are independent
// so order does not matter. It returns the ids of regions that dropped to zero.
func (ds *DecaySystem) Update(store *Store, dt float64) (lost []int) {
	now := ds.clock.Now()
	grace := ds.cfg.DecayDelay()

	for _, r := range store.Regions {
		// At the cap nothing decays.
		if r.CurrentValue >= ds.cfg.MaxRegionValue {
			r.ConversionRate = 0
			continue
		}

		// Recent clicks pause decay.
		if now.Sub(r.LastInteractedAt) < grace {
			r.ConversionRate = 0
			continue
		}

		rate := rules.ConversionRate(ds.cfg, r.CurrentValue, r.UnitsAssigned)
		r.ConversionRate = rate

		before := r.CurrentValue
		r.CurrentValue = rules.Clamp(ds.cfg, r.CurrentValue+rate*dt)
		if before > 0 && r.CurrentValue == 0 {
			lost = append(lost, r.ID)
		}
	}
	return lost
}
