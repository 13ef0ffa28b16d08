// Package resource defines the resource kinds produced by regions and the pool that accumulates them.
// This package is PURE and must NOT import any infrastructure packages.
package resource

import "math"

// Kind identifies a produced resource.
type Kind string

const (
	Thought    Kind = "thought"    // Academic regions
	Guns       Kind = "guns"       // Military regions
	Volunteers Kind = "volunteers" // Residential regions
)

// Kinds lists every resource in display order.
var Kinds = []Kind{Thought, Guns, Volunteers}

// Pool is the player's resource accumulator. Balances never go negative.
type Pool map[Kind]float64

// NewPool returns a pool with every known resource at zero.
func NewPool() Pool {
	p := make(Pool, len(Kinds))
	for _, k := range Kinds {
		p[k] = 0
	}
	return p
}

// Balance returns the current amount of a resource.
func (p Pool) Balance(k Kind) float64 {
	return p[k]
}

// Add credits production. Non-positive or non-finite amounts are ignored.
func (p Pool) Add(k Kind, amount float64) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return
	}
	p[k] += amount
}

// Spend deducts amount if the balance covers it. All-or-nothing.
func (p Pool) Spend(k Kind, amount float64) bool {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return false
	}
	if p[k] < amount {
		return false
	}
	p[k] -= amount
	return true
}

// Clone returns an independent copy.
func (p Pool) Clone() Pool {
	c := make(Pool, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}
