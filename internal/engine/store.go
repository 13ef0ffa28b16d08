package engine

import (
	"time"

	"github.com/MRamiBalles/Conversion/server/internal/domain/intellectual"
	"github.com/MRamiBalles/Conversion/server/internal/domain/region"
	"github.com/MRamiBalles/Conversion/server/internal/domain/resource"
	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
)

// Store is the in-memory entity store of one game. It is owned by a single
// Session and is not safe for concurrent use.
type Store struct {
	Regions   []*region.Region // index i holds region id i+1
	Units     []*intellectual.Intellectual
	Resources resource.Pool

	NextUnitID                int
	TotalConversionPercentage float64
}

// NewStore lays out cfg.RegionCount unconverted regions in row-major order.
func NewStore(cfg rules.Config, now time.Time) *Store {
	regions := make([]*region.Region, cfg.RegionCount)
	for i := range regions {
		kind := region.KindAt(i, cfg.AcademicRegions, cfg.MilitaryRegions)
		regions[i] = region.NewRegion(i+1, kind, now, -cfg.BaseDecayRate)
	}

	return &Store{
		Regions:    regions,
		Units:      make([]*intellectual.Intellectual, 0),
		Resources:  resource.NewPool(),
		NextUnitID: 1,
	}
}

// Region finds a region by id.
func (s *Store) Region(id int) (*region.Region, bool) {
	if id < 1 || id > len(s.Regions) {
		return nil, false
	}
	return s.Regions[id-1], true
}

// Unit finds an intellectual by id.
func (s *Store) Unit(id int) (*intellectual.Intellectual, bool) {
	for _, u := range s.Units {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

// UnitsInRegion returns the intellectuals stationed on a region, oldest first.
func (s *Store) UnitsInRegion(regionID int) []*intellectual.Intellectual {
	var out []*intellectual.Intellectual
	for _, u := range s.Units {
		if u.PlacedOn(regionID) {
			out = append(out, u)
		}
	}
	return out
}

// UnplacedUnits returns the intellectuals still held by the player.
func (s *Store) UnplacedUnits() []*intellectual.Intellectual {
	var out []*intellectual.Intellectual
	for _, u := range s.Units {
		if !u.IsPlaced() {
			out = append(out, u)
		}
	}
	return out
}

// addUnit allocates the next intellectual id.
func (s *Store) addUnit() *intellectual.Intellectual {
	u := intellectual.New(s.NextUnitID)
	s.NextUnitID++
	s.Units = append(s.Units, u)
	return u
}

// recomputeConversion refreshes the aggregate percentage.
func (s *Store) recomputeConversion(cfg rules.Config) {
	total := 0.0
	for _, r := range s.Regions {
		total += r.CurrentValue
	}
	s.TotalConversionPercentage = rules.ConversionPercentage(cfg, total, len(s.Regions))
}

// CheckInvariants reports the first broken store invariant, or "" when the
// store is consistent. Used by tests and the balance runner.
func (s *Store) CheckInvariants(cfg rules.Config) string {
	assigned := 0
	for _, r := range s.Regions {
		if r.CurrentValue < 0 || r.CurrentValue > cfg.MaxRegionValue {
			return "region value out of bounds"
		}
		if r.UnitsAssigned < 0 {
			return "negative unit count"
		}
		assigned += r.UnitsAssigned
	}

	placed := 0
	for _, u := range s.Units {
		if u.IsPlaced() {
			placed++
			if _, ok := s.Region(*u.AssignedRegion); !ok {
				return "unit placed on unknown region"
			}
		}
	}
	if assigned != placed {
		return "assigned unit count does not match placed units"
	}

	for _, k := range resource.Kinds {
		if s.Resources.Balance(k) < 0 {
			return "negative resource balance"
		}
	}
	if s.TotalConversionPercentage < 0 || s.TotalConversionPercentage > 100 {
		return "conversion percentage out of range"
	}
	return ""
}
