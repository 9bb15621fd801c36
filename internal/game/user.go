package game

import (
	"math/rand/v2"
	"sync"
)

// Permissions are the capabilities a user was granted in the configuration.
type Permissions struct {
	Play  bool
	Admin bool
}

// UserState is one player's mutable state. Every field is guarded by mu.
type UserState struct {
	mu sync.Mutex

	id          uint32
	inv         *Inventory
	stats       Stats
	perms       Permissions
	lastOutpost *uint32
	rng         *rand.Rand
}

// ID returns the user id.
func (u *UserState) ID() uint32 {
	return u.id
}

// view captures the inventory for broadcasting. The caller must hold mu.
func (u *UserState) view() InventoryView {
	v := InventoryView{
		Money:      u.inv.Money,
		Energy:     u.inv.Energy,
		Cells:      make([]*ItemView, u.inv.Grid.Len()),
		Discovered: u.inv.Discovered(),
	}
	for i := range v.Cells {
		if it := u.inv.Grid.Get(i); it != nil {
			v.Cells[i] = newItemView(it)
		}
	}
	return v
}

// score values the user by money plus the sell price of everything in the
// grid. The caller must hold mu.
func (u *UserState) score() uint64 {
	s := u.inv.Money
	for i := range u.inv.Grid.Len() {
		it := u.inv.Grid.Get(i)
		if it == nil || it.Item() == nil {
			continue
		}
		s += it.Item().Sell
	}
	return s
}
