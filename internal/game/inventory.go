package game

import (
	"math/rand/v2"
	"slices"

	"github.com/timvisee/merge-mania/internal/catalog"
)

// Inventory is one user's balances, grid and discovered items.
type Inventory struct {
	Money  uint64
	Energy uint64
	Grid   *Grid

	discovered map[catalog.ItemRef]struct{}
}

// NewInventory creates an empty inventory with a grid of size cells.
func NewInventory(size int) *Inventory {
	return &Inventory{
		Grid:       NewGrid(size),
		discovered: make(map[catalog.ItemRef]struct{}),
	}
}

// HasAmounts reports whether every cost can be paid from the current
// balances and grid. Costs of the same kind are summed first.
func (inv *Inventory) HasAmounts(costs []catalog.Amount) bool {
	return inv.canPay(catalog.Aggregate(costs))
}

func (inv *Inventory) canPay(c catalog.Costs) bool {
	if inv.Money < c.Money || inv.Energy < c.Energy {
		return false
	}
	for _, ref := range c.ItemRefs() {
		if !inv.Grid.HasQuantity(ref, c.Items[ref]) {
			return false
		}
	}
	return true
}

// RemoveAmounts pays costs and returns the cells vacated by item costs. When
// the inventory cannot pay, nothing is changed and ErrInsufficientResources
// is returned.
func (inv *Inventory) RemoveAmounts(costs []catalog.Amount, rng *rand.Rand) ([]int, error) {
	c := catalog.Aggregate(costs)
	if !inv.canPay(c) {
		return nil, ErrInsufficientResources
	}

	var cells []int
	for _, ref := range c.ItemRefs() {
		for range c.Items[ref] {
			idx, ok := inv.Grid.RemoveOne(ref, rng)
			if !ok {
				// checked by canPay above
				panic("inventory quantity changed during removal")
			}
			cells = append(cells, idx)
		}
	}
	inv.Money -= c.Money
	inv.Energy -= c.Energy

	slices.Sort(cells)
	return cells, nil
}

// Discover marks ref as seen and returns true if it was not seen before.
func (inv *Inventory) Discover(ref catalog.ItemRef) bool {
	if _, ok := inv.discovered[ref]; ok {
		return false
	}
	inv.discovered[ref] = struct{}{}
	return true
}

// IsDiscovered reports whether ref has been seen.
func (inv *Inventory) IsDiscovered(ref catalog.ItemRef) bool {
	_, ok := inv.discovered[ref]
	return ok
}

// Discovered returns the seen refs in sorted order.
func (inv *Inventory) Discovered() []catalog.ItemRef {
	refs := make([]catalog.ItemRef, 0, len(inv.discovered))
	for ref := range inv.discovered {
		refs = append(refs, ref)
	}
	slices.Sort(refs)
	return refs
}
