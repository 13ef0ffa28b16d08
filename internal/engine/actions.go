package engine

import (
	"github.com/MRamiBalles/Conversion/server/internal/domain/intellectual"
)

// ActionType identifies a discrete player action.
type ActionType string

const (
	ActionClick        ActionType = "CLICK"
	ActionCreateUnit   ActionType = "CREATE_UNIT"
	ActionAssignUnit   ActionType = "ASSIGN_UNIT"
	ActionTransferUnit ActionType = "TRANSFER_UNIT"
)

// Action is a player command coming from the presentation layer.
type Action struct {
	Type           ActionType `json:"type"`
	ActorID        string     `json:"actor_id,omitempty"`
	RegionID       int        `json:"region_id,omitempty"`        // CLICK, ASSIGN_UNIT target, TRANSFER_UNIT source
	TargetRegionID int        `json:"target_region_id,omitempty"` // TRANSFER_UNIT
	UnitID         int        `json:"unit_id,omitempty"`          // ASSIGN_UNIT
	Amount         float64    `json:"amount,omitempty"`           // CLICK; 0 means unit_per_click
}

// Rejection reasons reported back to the caller.
const (
	ReasonUnknownAction = "unknown action"
	ReasonUnknownRegion = "unknown region"
	ReasonUnknownUnit   = "unknown unit"
	ReasonInvalidAmount = "invalid amount"
	ReasonCannotAfford  = "cannot afford"
	ReasonNoUnits       = "no units to transfer"
	ReasonSameRegion    = "source and target are the same region"
)

// Result is the outcome of an Action.
type Result struct {
	Action   ActionType                 `json:"action"`
	OK       bool                       `json:"ok"`
	Reason   string                     `json:"reason,omitempty"`
	RegionID int                        `json:"region_id,omitempty"`
	Value    float64                    `json:"value,omitempty"` // new region value after a click
	Unit     *intellectual.Intellectual `json:"unit,omitempty"`
	Revision uint64                     `json:"revision"`
}

func rejected(a Action, reason string) Result {
	return Result{Action: a.Type, OK: false, Reason: reason, RegionID: a.RegionID}
}
