package game

import (
	"github.com/timvisee/merge-mania/internal/catalog"
)

// Swap exchanges the contents of two cells.
func (w *World) Swap(userID uint32, cell, other int) (Change, error) {
	return w.update(userID, func(u *UserState) (Change, error) {
		grid := u.inv.Grid
		if !grid.InRange(cell) || !grid.InRange(other) {
			return Change{}, ErrInvalidCell
		}
		if cell == other {
			return Change{}, ErrSameCell
		}

		grid.Swap(cell, other)
		u.stats.Swaps++

		cells := cellSet{}
		cells.add(cell, other)
		return Change{Cells: cells.sorted()}, nil
	})
}

// Merge upgrades the item in cell and consumes the identical item in other.
func (w *World) Merge(userID uint32, cell, other int) (Change, error) {
	return w.update(userID, func(u *UserState) (Change, error) {
		grid := u.inv.Grid
		if !grid.InRange(cell) || !grid.InRange(other) {
			return Change{}, ErrInvalidCell
		}
		if cell == other {
			return Change{}, ErrSameCell
		}

		target, source := grid.Get(cell), grid.Get(other)
		if target == nil || source == nil {
			return Change{}, ErrCellEmpty
		}
		if target.Ref != source.Ref {
			return Change{}, ErrMergeMismatch
		}
		if !target.CanUpgrade() {
			return Change{}, ErrNotMergeable
		}
		if !target.Upgrade(w.cat) {
			return Change{}, ErrUnknownItem
		}

		grid.Clear(other)
		u.stats.Merges++

		cells := cellSet{}
		cells.add(cell, other)
		ch := Change{Cells: cells.sorted()}
		if u.inv.Discover(target.Ref) {
			ch.Discovered = []catalog.ItemRef{target.Ref}
		}
		return ch, nil
	})
}

// Buy pays for ref and places a new instance of it in the empty cell.
func (w *World) Buy(userID uint32, cell int, ref catalog.ItemRef) (Change, error) {
	return w.update(userID, func(u *UserState) (Change, error) {
		grid := u.inv.Grid
		if !grid.InRange(cell) {
			return Change{}, ErrInvalidCell
		}
		if grid.Get(cell) != nil {
			return Change{}, ErrCellOccupied
		}
		item, ok := w.cat.Lookup(ref)
		if !ok {
			return Change{}, ErrUnknownItem
		}
		if !item.CanBuy() {
			return Change{}, ErrNotBuyable
		}

		vacated, err := u.inv.RemoveAmounts(item.Buy, u.rng)
		if err != nil {
			return Change{}, err
		}
		grid.Set(cell, NewItemInstance(item, w.tick.Load()))

		costs := catalog.Aggregate(item.Buy)
		u.stats.Buys++
		u.stats.MoneySpent += costs.Money
		u.stats.EnergySpent += costs.Energy

		cells := cellSet{}
		cells.add(vacated...)
		cells.add(cell)
		ch := Change{
			Cells:    cells.sorted(),
			Balances: costs.Money > 0 || costs.Energy > 0,
		}
		if u.inv.Discover(ref) {
			ch.Discovered = []catalog.ItemRef{ref}
		}
		return ch, nil
	})
}

// Sell removes the item in cell and credits its sell price.
func (w *World) Sell(userID uint32, cell int) (Change, error) {
	return w.update(userID, func(u *UserState) (Change, error) {
		grid := u.inv.Grid
		if !grid.InRange(cell) {
			return Change{}, ErrInvalidCell
		}
		it := grid.Get(cell)
		if it == nil {
			return Change{}, ErrCellEmpty
		}
		item := it.Item()
		if item == nil {
			return Change{}, ErrUnknownItem
		}

		grid.Clear(cell)
		u.inv.Money += item.Sell
		u.stats.Sells++
		u.stats.MoneyEarned += item.Sell

		return Change{
			Cells:    []int{cell},
			Balances: true,
			Credit:   Reward{Money: item.Sell},
		}, nil
	})
}

// ScanCode credits reward for scanning outpost. The same outpost cannot be
// scanned twice in a row and nothing is credited while the game is stopped.
func (w *World) ScanCode(userID uint32, outpost uint32, reward Reward) (Change, error) {
	if !w.Running() {
		return Change{}, ErrGameNotRunning
	}

	return w.update(userID, func(u *UserState) (Change, error) {
		if u.lastOutpost != nil && *u.lastOutpost == outpost {
			return Change{}, ErrOutpostRepeated
		}

		u.lastOutpost = &outpost
		u.inv.Money += reward.Money
		u.inv.Energy += reward.Energy
		u.stats.Scans++
		u.stats.MoneyEarned += reward.Money
		u.stats.EnergyEarned += reward.Energy

		return Change{Balances: true, Credit: reward}, nil
	})
}
