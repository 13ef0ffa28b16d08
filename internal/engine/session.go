package engine

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/MRamiBalles/Conversion/server/internal/domain/intellectual"
	"github.com/MRamiBalles/Conversion/server/internal/domain/resource"
	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
)

// StepReport lists what changed noticeably during one Advance.
type StepReport struct {
	DeltaSeconds float64 `json:"delta_seconds"`
	Skipped      bool    `json:"skipped"`
	Maxed        []int   `json:"maxed,omitempty"` // regions that reached the cap
	Lost         []int   `json:"lost,omitempty"`  // regions that decayed to zero
}

// Session is one game: the store plus the systems that mutate it.
// It is synchronous and single-owner; Engine serializes access when the
// session is shared between goroutines.
type Session struct {
	id    string
	cfg   rules.Config
	clock Clock
	store *Store

	decay      *DecaySystem
	production *ProductionSystem
	economy    *EconomySystem

	revision uint64
	frame    int64
}

// NewSession validates cfg and lays out a fresh grid.
func NewSession(cfg rules.Config, clock Clock) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	if clock == nil {
		clock = RealClock{}
	}

	s := &Session{
		id:         uuid.NewString(),
		cfg:        cfg,
		clock:      clock,
		store:      NewStore(cfg, clock.Now()),
		decay:      NewDecaySystem(cfg, clock),
		production: NewProductionSystem(cfg),
		economy:    NewEconomySystem(cfg, clock),
	}
	s.store.recomputeConversion(cfg)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Config returns the balance constants in use.
func (s *Session) Config() rules.Config { return s.cfg }

// Revision increases with every state change.
func (s *Session) Revision() uint64 { return s.revision }

// Frame returns the number of simulation steps applied.
func (s *Session) Frame() int64 { return s.frame }

// Advance runs decay, then production, then the aggregate for deltaSeconds of
// elapsed time. Non-positive or non-finite deltas are ignored.
func (s *Session) Advance(deltaSeconds float64) StepReport {
	if !(deltaSeconds > 0) || math.IsInf(deltaSeconds, 0) {
		return StepReport{DeltaSeconds: deltaSeconds, Skipped: true}
	}

	wasMax := make(map[int]bool)
	for _, r := range s.store.Regions {
		if r.CurrentValue >= s.cfg.MaxRegionValue {
			wasMax[r.ID] = true
		}
	}

	lost := s.decay.Update(s.store, deltaSeconds)
	s.production.Update(s.store, deltaSeconds)
	s.store.recomputeConversion(s.cfg)

	var maxed []int
	for _, r := range s.store.Regions {
		if !wasMax[r.ID] && r.CurrentValue >= s.cfg.MaxRegionValue {
			maxed = append(maxed, r.ID)
		}
	}

	s.frame++
	s.revision++

	return StepReport{DeltaSeconds: deltaSeconds, Maxed: maxed, Lost: lost}
}

// ApplyClick raises a region by amount. A zero amount means UnitPerClick.
func (s *Session) ApplyClick(regionID int, amount float64) (float64, bool) {
	if amount == 0 {
		amount = s.cfg.UnitPerClick
	}
	v, ok := s.economy.ApplyClick(s.store, regionID, amount)
	if ok {
		s.revision++
	}
	return v, ok
}

// CanAfford reports whether a purchasable is affordable right now.
func (s *Session) CanAfford(p intellectual.Purchasable) bool {
	return s.economy.CanAfford(s.store, p)
}

// Spend deducts a resource, all-or-nothing.
func (s *Session) Spend(k resource.Kind, amount float64) bool {
	ok := s.economy.Spend(s.store, k, amount)
	if ok {
		s.revision++
	}
	return ok
}

// CreateUnit buys an intellectual. The returned copy is safe to keep.
func (s *Session) CreateUnit() (intellectual.Intellectual, bool) {
	u := s.economy.CreateUnit(s.store)
	if u == nil {
		return intellectual.Intellectual{}, false
	}
	s.revision++
	return u.Copy(), true
}

// AssignUnit stations a unit on a region.
func (s *Session) AssignUnit(unitID, regionID int) bool {
	ok := s.economy.AssignUnit(s.store, unitID, regionID)
	if ok {
		s.revision++
	}
	return ok
}

// TransferUnit moves one stationed unit between regions.
func (s *Session) TransferUnit(sourceID, targetID int) bool {
	ok := s.economy.TransferUnit(s.store, sourceID, targetID)
	if ok {
		s.revision++
	}
	return ok
}

// UnitsInRegion returns copies of the units stationed on a region.
func (s *Session) UnitsInRegion(regionID int) []intellectual.Intellectual {
	stationed := s.store.UnitsInRegion(regionID)
	out := make([]intellectual.Intellectual, len(stationed))
	for i, u := range stationed {
		out[i] = u.Copy()
	}
	return out
}

// Apply dispatches an Action to the matching operation and explains failures.
func (s *Session) Apply(a Action) Result {
	switch a.Type {
	case ActionClick:
		if a.Amount < 0 || math.IsNaN(a.Amount) || math.IsInf(a.Amount, 0) {
			return rejected(a, ReasonInvalidAmount)
		}
		if _, ok := s.store.Region(a.RegionID); !ok {
			return rejected(a, ReasonUnknownRegion)
		}
		v, ok := s.ApplyClick(a.RegionID, a.Amount)
		if !ok {
			return rejected(a, ReasonInvalidAmount)
		}
		return Result{Action: a.Type, OK: true, RegionID: a.RegionID, Value: v, Revision: s.revision}

	case ActionCreateUnit:
		u, ok := s.CreateUnit()
		if !ok {
			return rejected(a, ReasonCannotAfford)
		}
		return Result{Action: a.Type, OK: true, Unit: &u, Revision: s.revision}

	case ActionAssignUnit:
		if _, ok := s.store.Unit(a.UnitID); !ok {
			return rejected(a, ReasonUnknownUnit)
		}
		if _, ok := s.store.Region(a.RegionID); !ok {
			return rejected(a, ReasonUnknownRegion)
		}
		s.AssignUnit(a.UnitID, a.RegionID)
		u, _ := s.store.Unit(a.UnitID)
		placed := u.Copy()
		return Result{Action: a.Type, OK: true, RegionID: a.RegionID, Unit: &placed, Revision: s.revision}

	case ActionTransferUnit:
		if a.RegionID == a.TargetRegionID {
			return rejected(a, ReasonSameRegion)
		}
		source, ok := s.store.Region(a.RegionID)
		if !ok {
			return rejected(a, ReasonUnknownRegion)
		}
		if _, ok := s.store.Region(a.TargetRegionID); !ok {
			return rejected(a, ReasonUnknownRegion)
		}
		if source.UnitsAssigned <= 0 {
			return rejected(a, ReasonNoUnits)
		}
		if !s.TransferUnit(a.RegionID, a.TargetRegionID) {
			return rejected(a, ReasonNoUnits)
		}
		return Result{Action: a.Type, OK: true, RegionID: a.TargetRegionID, Revision: s.revision}

	default:
		return rejected(a, ReasonUnknownAction)
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() Snapshot {
	return takeSnapshot(s.id, s.revision, s.frame, s.clock.Now(), s.cfg, s.store,
		s.economy.CanAfford(s.store, intellectual.PurchaseIntellectual))
}

// CheckInvariants reports the first broken invariant, or "".
func (s *Session) CheckInvariants() string {
	return s.store.CheckInvariants(s.cfg)
}
