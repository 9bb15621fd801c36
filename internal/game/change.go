package game

import (
	"slices"

	"github.com/timvisee/merge-mania/internal/catalog"
)

// Reward is money and energy credited to a user.
type Reward struct {
	Money  uint64 `json:"money"`
	Energy uint64 `json:"energy"`
}

// Change describes what one action or tick did to one user. View and Stats
// are captured while the user was still locked.
type Change struct {
	UserID uint32

	// Cells are the changed cell indices in ascending order.
	Cells []int
	// Discovered holds refs the user saw for the first time.
	Discovered []catalog.ItemRef
	// Balances is set when money or energy changed.
	Balances bool
	Credit   Reward

	View  InventoryView
	Stats Stats
}

// Empty reports whether nothing observable changed.
func (c Change) Empty() bool {
	return len(c.Cells) == 0 && len(c.Discovered) == 0 && !c.Balances
}

// cellSet collects changed cell indices without duplicates.
type cellSet map[int]struct{}

func (s cellSet) add(indices ...int) {
	for _, i := range indices {
		s[i] = struct{}{}
	}
}

func (s cellSet) sorted() []int {
	if len(s) == 0 {
		return nil
	}
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}
