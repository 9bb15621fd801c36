package game

import (
	"log/slog"

	"github.com/timvisee/merge-mania/internal/catalog"
)

// Advance moves the world one tick forward and returns a change for every
// user whose state changed. It does nothing while the world is stopped.
//
// Every item is updated before any drop is placed, so the order of
// factories in the grid does not decide which of them finds free space.
func (w *World) Advance() []Change {
	if !w.Running() {
		return nil
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	tick := w.tick.Add(1)

	var changes []Change
	for _, id := range w.sortedIDs() {
		if ch, ok := w.advanceUser(w.users[id], tick); ok {
			changes = append(changes, ch)
		}
	}
	return changes
}

func (w *World) advanceUser(u *UserState, tick uint64) (Change, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	// a factory's queue and remaining drops are part of its cell view
	cells := cellSet{}
	grid := u.inv.Grid
	for i := range grid.Len() {
		if it := grid.Get(i); it != nil && it.Update(tick, u.rng) {
			cells.add(i)
		}
	}

	var placed []catalog.ItemRef

	free := grid.CountFree()
	for i := 0; i < grid.Len() && free > 0; i++ {
		it := grid.Get(i)
		if it == nil {
			continue
		}
		for free > 0 {
			ref, ok := it.pop()
			if !ok {
				break
			}
			free--
			cells.add(i)

			item, ok := w.cat.Lookup(ref)
			if !ok {
				slog.Error("queued item not in catalog", "user", u.id, "cell", i, "item", ref)
				continue
			}
			idx, ok := grid.Place(NewItemInstance(item, tick), u.rng)
			if !ok {
				slog.Error("no free cell for queued item", "user", u.id, "cell", i, "item", ref)
				continue
			}
			cells.add(idx)
			placed = append(placed, ref)
		}
	}

	for i := range grid.Len() {
		if it := grid.Get(i); it != nil && it.Removable() {
			grid.Clear(i)
			cells.add(i)
		}
	}

	var discovered []catalog.ItemRef
	for _, ref := range placed {
		if u.inv.Discover(ref) {
			discovered = append(discovered, ref)
		}
	}
	u.stats.Drops += uint64(len(placed))

	ch := Change{
		UserID:     u.id,
		Cells:      cells.sorted(),
		Discovered: discovered,
	}
	if ch.Empty() {
		return Change{}, false
	}
	ch.View = u.view()
	ch.Stats = u.stats
	return ch, true
}
