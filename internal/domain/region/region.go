// Package region defines the grid cells players convert and the grid addressing between them.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package region

import (
	"time"

	"github.com/MRamiBalles/Conversion/server/internal/domain/resource"
)

// Kind is the class of a region. It never changes after creation.
type Kind string

const (
	KindAcademic    Kind = "academic"
	KindMilitary    Kind = "military"
	KindResidential Kind = "residential"
)

// Produces returns the resource a region of this kind yields.
func (k Kind) Produces() resource.Kind {
	switch k {
	case KindAcademic:
		return resource.Thought
	case KindMilitary:
		return resource.Guns
	case KindResidential:
		return resource.Volunteers
	default:
		return resource.Thought
	}
}

// Region is a single cell of the conversion grid.
type Region struct {
	ID   int  `json:"id"`   // 1..N, row-major
	Kind Kind `json:"kind"` // Fixed at creation

	CurrentValue     float64   `json:"current_value"` // 0..MaxRegionValue
	UnitsAssigned    int       `json:"units_assigned"`
	LastInteractedAt time.Time `json:"last_interacted_at"`

	// Recomputed every step, display only.
	ConversionRate         float64 `json:"conversion_rate"`
	ProductionRate         float64 `json:"production_rate"`
	AdjacentConvertedCount int     `json:"adjacent_converted_count"`
	AdjacentBonus          float64 `json:"adjacent_bonus"`
}

// NewRegion creates an unconverted region. createdAt doubles as the last
// interaction so a fresh grid starts inside its grace period.
func NewRegion(id int, kind Kind, createdAt time.Time, initialRate float64) *Region {
	return &Region{
		ID:               id,
		Kind:             kind,
		CurrentValue:     0,
		UnitsAssigned:    0,
		LastInteractedAt: createdAt,
		ConversionRate:   initialRate,
	}
}

// Index returns the 0-based grid index.
func (r *Region) Index() int {
	return r.ID - 1
}

// Produces is shorthand for r.Kind.Produces().
func (r *Region) Produces() resource.Kind {
	return r.Kind.Produces()
}

// IsConverted reports whether the region holds any value.
func (r *Region) IsConverted() bool {
	return r.CurrentValue > 0
}

// KindAt returns the kind of the region at a 0-based index for the standard
// layout: the first academic regions, then military, the rest residential.
func KindAt(index, academic, military int) Kind {
	switch {
	case index < academic:
		return KindAcademic
	case index < academic+military:
		return KindMilitary
	default:
		return KindResidential
	}
}
