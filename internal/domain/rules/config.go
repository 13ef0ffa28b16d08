package rules

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MRamiBalles/Conversion/server/internal/domain/intellectual"
)

// ErrInvalidConfig is returned (wrapped) by Validate.
var ErrInvalidConfig = errors.New("invalid game config")

// Config holds the balance constants of a game. It is immutable once a session starts.
type Config struct {
	// Grid
	MaxRegionValue  float64 `yaml:"max_region_value" json:"max_region_value" env:"MAX_REGION_VALUE"`
	RegionsPerRow   int     `yaml:"regions_per_row" json:"regions_per_row" env:"REGIONS_PER_ROW"`
	RegionCount     int     `yaml:"region_count" json:"region_count" env:"REGION_COUNT"`
	AcademicRegions int     `yaml:"academic_regions" json:"academic_regions" env:"ACADEMIC_REGIONS"`
	MilitaryRegions int     `yaml:"military_regions" json:"military_regions" env:"MILITARY_REGIONS"`
	UnitPerClick    float64 `yaml:"unit_per_click" json:"unit_per_click" env:"UNIT_PER_CLICK"`

	// Conversion and decay
	DecayDelayAfterClickMS int64   `yaml:"decay_delay_after_click_ms" json:"decay_delay_after_click_ms" env:"DECAY_DELAY_AFTER_CLICK_MS"`
	BaseDecayRate          float64 `yaml:"base_decay_rate" json:"base_decay_rate" env:"BASE_DECAY_RATE"`
	MinDecayMultiplier     float64 `yaml:"min_decay_multiplier" json:"min_decay_multiplier" env:"MIN_DECAY_MULTIPLIER"`
	IntellectualBonus      float64 `yaml:"intellectual_bonus" json:"intellectual_bonus" env:"INTELLECTUAL_BONUS"`

	// Production
	ResourceRateAt100 float64 `yaml:"resource_rate_at_100" json:"resource_rate_at_100" env:"RESOURCE_RATE_AT_100"`
	AdjacencyBonus    float64 `yaml:"adjacency_bonus" json:"adjacency_bonus" env:"ADJACENCY_BONUS"`

	// Costs
	UnitCreationCost float64 `yaml:"unit_creation_cost" json:"unit_creation_cost" env:"UNIT_CREATION_COST"`
}

// DefaultConfig returns the standard 10x5 city.
func DefaultConfig() Config {
	return Config{
		MaxRegionValue:  100,
		RegionsPerRow:   10,
		RegionCount:     50,
		AcademicRegions: 10,
		MilitaryRegions: 10,
		UnitPerClick:    1,

		DecayDelayAfterClickMS: 3000,
		BaseDecayRate:          0.2,
		MinDecayMultiplier:     0.3,
		IntellectualBonus:      0.3,

		ResourceRateAt100: 1.0, // per second at full value
		AdjacencyBonus:    1.0, // +100% per converted neighbour

		UnitCreationCost: 20,
	}
}

// DecayDelay returns the post-click grace period.
func (c Config) DecayDelay() time.Duration {
	return time.Duration(c.DecayDelayAfterClickMS) * time.Millisecond
}

// Cost returns the price of a purchasable. Unknown purchasables cost nothing and
// report false.
func (c Config) Cost(p intellectual.Purchasable) (float64, bool) {
	switch p {
	case intellectual.PurchaseIntellectual:
		return c.UnitCreationCost, true
	default:
		return 0, false
	}
}

// Validate checks the invariants the simulation relies on.
func (c Config) Validate() error {
	// The decay multiplier divides by (max - ConvertedThreshold).
	if !(c.MaxRegionValue > ConvertedThreshold) {
		return fmt.Errorf("%w: max_region_value must be greater than %v, got %v", ErrInvalidConfig, ConvertedThreshold, c.MaxRegionValue)
	}
	if c.RegionsPerRow < 1 {
		return fmt.Errorf("%w: regions_per_row must be at least 1, got %d", ErrInvalidConfig, c.RegionsPerRow)
	}
	if c.RegionCount < 1 {
		return fmt.Errorf("%w: region_count must be at least 1, got %d", ErrInvalidConfig, c.RegionCount)
	}
	if c.AcademicRegions < 0 || c.MilitaryRegions < 0 || c.AcademicRegions+c.MilitaryRegions > c.RegionCount {
		return fmt.Errorf("%w: academic_regions + military_regions must fit in region_count", ErrInvalidConfig)
	}
	if c.DecayDelayAfterClickMS < 0 {
		return fmt.Errorf("%w: decay_delay_after_click_ms must not be negative", ErrInvalidConfig)
	}
	if c.MinDecayMultiplier < 0 || c.MinDecayMultiplier > 1 {
		return fmt.Errorf("%w: min_decay_multiplier must be within [0,1], got %v", ErrInvalidConfig, c.MinDecayMultiplier)
	}

	nonNegative := map[string]float64{
		"unit_per_click":       c.UnitPerClick,
		"base_decay_rate":      c.BaseDecayRate,
		"intellectual_bonus":   c.IntellectualBonus,
		"resource_rate_at_100": c.ResourceRateAt100,
		"adjacency_bonus":      c.AdjacencyBonus,
		"unit_creation_cost":   c.UnitCreationCost,
	}
	for name, v := range nonNegative {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidConfig, name, v)
		}
	}
	return nil
}
