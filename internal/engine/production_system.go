package engine

import (
	"github.com/MRamiBalles/Conversion/server/internal/domain/region"
	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
)

// ProductionSystem turns region values into resources.
type ProductionSystem struct {
	cfg rules.Config
}

// NewProductionSystem creates a production pass bound to a config.
func NewProductionSystem(cfg rules.Config) *ProductionSystem {
	return &ProductionSystem{cfg: cfg}
}

// Update credits dt seconds of output to the resource pool. It reads the values
// left by the decay pass, so neighbours see post-decay state.
func (ps *ProductionSystem) Update(store *Store, dt float64) {
	total := len(store.Regions)

	for i, r := range store.Regions {
		rate := rules.BaseProductionRate(ps.cfg, r.CurrentValue)

		converted := 0
		for _, n := range region.Neighbors(i, ps.cfg.RegionsPerRow, total) {
			if store.Regions[n].IsConverted() {
				converted++
			}
		}

		bonus := rules.AdjacencyBonus(ps.cfg, rate, converted)
		if converted > 0 {
			rate += bonus
			r.AdjacentConvertedCount = converted
			r.AdjacentBonus = bonus
		} else {
			r.AdjacentConvertedCount = 0
			r.AdjacentBonus = 0
		}

		r.ProductionRate = rate
		store.Resources.Add(r.Produces(), rate*dt)
	}
}
