// Package intellectual defines the purchasable helper units and the catalog of things a player can buy.
// This package is PURE and must NOT import any infrastructure packages.
package intellectual

import "github.com/MRamiBalles/Conversion/server/internal/domain/resource"

// Intellectual is a helper unit. It is held by the player until placed on a region.
type Intellectual struct {
	ID             int  `json:"id"`
	AssignedRegion *int `json:"assigned_region,omitempty"` // nil while unplaced
}

// New creates an unplaced intellectual.
func New(id int) *Intellectual {
	return &Intellectual{ID: id}
}

// IsPlaced reports whether the unit is stationed on a region.
func (i *Intellectual) IsPlaced() bool {
	return i.AssignedRegion != nil
}

// PlacedOn reports whether the unit is stationed on regionID.
func (i *Intellectual) PlacedOn(regionID int) bool {
	return i.AssignedRegion != nil && *i.AssignedRegion == regionID
}

// Place stations the unit on regionID, replacing any previous placement.
func (i *Intellectual) Place(regionID int) {
	id := regionID
	i.AssignedRegion = &id
}

// Copy returns a deep copy safe to hand outside the store.
func (i *Intellectual) Copy() Intellectual {
	c := Intellectual{ID: i.ID}
	if i.AssignedRegion != nil {
		c.Place(*i.AssignedRegion)
	}
	return c
}

// Purchasable identifies something the player can buy.
type Purchasable string

const (
	PurchaseIntellectual Purchasable = "intellectual"
)

// Definition describes what a purchasable costs. The amount comes from config
// so balance changes never touch this table.
type Definition struct {
	Name     string
	Currency resource.Kind
}

// Registry contains every purchasable and its currency.
var Registry = map[Purchasable]Definition{
	PurchaseIntellectual: {
		Name:     "Intellectual",
		Currency: resource.Thought,
	},
}

// Lookup returns the definition for a purchasable.
func Lookup(p Purchasable) (Definition, bool) {
	def, ok := Registry[p]
	return def, ok
}
