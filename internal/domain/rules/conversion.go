// Package rules contains the pure calculation logic for game mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import "math"

// ConvertedThreshold is the value above which decay slows down and below which
// a region produces nothing.
const ConvertedThreshold = 10.0

// DecayMultiplier scales the base decay for a region holding value.
// At the threshold decay runs at full rate; towards the cap it shrinks, floored
// at MinDecayMultiplier so it never stops entirely.
func DecayMultiplier(cfg Config, value float64) float64 {
	if value <= ConvertedThreshold {
		return 1
	}
	m := 1 - (value-ConvertedThreshold)/(cfg.MaxRegionValue-ConvertedThreshold)
	return math.Max(cfg.MinDecayMultiplier, m)
}

// ConversionRate is the per-second change of a region that is below the cap
// and outside its grace period. Assigned intellectuals push it upwards.
func ConversionRate(cfg Config, value float64, units int) float64 {
	rate := -cfg.BaseDecayRate * DecayMultiplier(cfg, value)
	if units > 0 {
		rate += float64(units) * cfg.IntellectualBonus
	}
	return rate
}

// BaseProductionRate is the per-second output before the adjacency bonus.
func BaseProductionRate(cfg Config, value float64) float64 {
	if value < ConvertedThreshold {
		return 0
	}
	return value / cfg.MaxRegionValue * cfg.ResourceRateAt100
}

// AdjacencyBonus is the extra output granted by converted neighbours.
func AdjacencyBonus(cfg Config, base float64, convertedNeighbours int) float64 {
	if convertedNeighbours <= 0 {
		return 0
	}
	return base * float64(convertedNeighbours) * cfg.AdjacencyBonus
}

// Clamp bounds a region value to [0, max].
func Clamp(cfg Config, value float64) float64 {
	return math.Max(0, math.Min(cfg.MaxRegionValue, value))
}

// ConversionPercentage returns 100 * total / (regions * max).
func ConversionPercentage(cfg Config, total float64, regions int) float64 {
	if regions <= 0 || cfg.MaxRegionValue <= 0 {
		return 0
	}
	return total / (float64(regions) * cfg.MaxRegionValue) * 100
}

// Display levels for a region value.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// DisplayLevel buckets a value for the presentation layer.
func DisplayLevel(value float64) string {
	switch {
	case value >= 150:
		return LevelHigh
	case value >= 70:
		return LevelMedium
	default:
		return LevelLow
	}
}
