package engine

import (
	"time"

	"github.com/MRamiBalles/Conversion/server/internal/domain/intellectual"
	"github.com/MRamiBalles/Conversion/server/internal/domain/region"
	"github.com/MRamiBalles/Conversion/server/internal/domain/resource"
	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
)

// RegionView is a read-only copy of a region for rendering.
type RegionView struct {
	region.Region
	Row          int    `json:"row"`
	Col          int    `json:"col"`
	Produces     string `json:"produces"`
	DisplayLevel string `json:"display_level"`
}

// Snapshot is a deep copy of the game state handed to the presentation layer.
type Snapshot struct {
	SessionID                 string                      `json:"session_id"`
	Revision                  uint64                      `json:"revision"`
	Frame                     int64                       `json:"frame"`
	TakenAt                   time.Time                   `json:"taken_at"`
	RegionsPerRow             int                         `json:"regions_per_row"`
	MaxRegionValue            float64                     `json:"max_region_value"`
	UnitCreationCost          float64                     `json:"unit_creation_cost"`
	Regions                   []RegionView                `json:"regions"`
	Units                     []intellectual.Intellectual `json:"units"`
	Resources                 resource.Pool               `json:"resources"`
	TotalConversionPercentage float64                     `json:"total_conversion_percentage"`
	CanCreateUnit             bool                        `json:"can_create_unit"`
}

// Region returns the view of a region id.
func (s Snapshot) Region(id int) (RegionView, bool) {
	if id < 1 || id > len(s.Regions) {
		return RegionView{}, false
	}
	return s.Regions[id-1], true
}

func takeSnapshot(sessionID string, revision uint64, frame int64, now time.Time, cfg rules.Config, store *Store, canCreate bool) Snapshot {
	regions := make([]RegionView, len(store.Regions))
	for i, r := range store.Regions {
		row, col := region.Position(r.ID, cfg.RegionsPerRow)
		regions[i] = RegionView{
			Region:       *r,
			Row:          row,
			Col:          col,
			Produces:     string(r.Produces()),
			DisplayLevel: rules.DisplayLevel(r.CurrentValue),
		}
	}

	units := make([]intellectual.Intellectual, len(store.Units))
	for i, u := range store.Units {
		units[i] = u.Copy()
	}

	return Snapshot{
		SessionID:                 sessionID,
		Revision:                  revision,
		Frame:                     frame,
		TakenAt:                   now,
		RegionsPerRow:             cfg.RegionsPerRow,
		MaxRegionValue:            cfg.MaxRegionValue,
		UnitCreationCost:          cfg.UnitCreationCost,
		Regions:                   regions,
		Units:                     units,
		Resources:                 store.Resources.Clone(),
		TotalConversionPercentage: store.TotalConversionPercentage,
		CanCreateUnit:             canCreate,
	}
}
