package game

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/timvisee/merge-mania/internal/catalog"
	"github.com/timvisee/merge-mania/internal/storage"
)

// Export captures the whole world. Users are locked one at a time, so the
// snapshot is consistent per user.
func (w *World) Export() storage.SnapshotV1 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	snap := storage.SnapshotV1{
		Header: storage.Header{
			Version: storage.SnapshotVersion,
			GameID:  w.gameID.String(),
			Tick:    w.tick.Load(),
			SavedAt: time.Now().UTC(),
		},
		Running: w.running.Load(),
		Users:   make([]storage.UserV1, 0, len(w.users)),
	}

	for _, id := range w.sortedIDs() {
		u := w.users[id]
		u.mu.Lock()
		snap.Users = append(snap.Users, exportUser(u))
		u.mu.Unlock()
	}
	return snap
}

func exportUser(u *UserState) storage.UserV1 {
	out := storage.UserV1{
		ID:     u.id,
		Money:  u.inv.Money,
		Energy: u.inv.Energy,
		Grid:   make([]*storage.ItemV1, u.inv.Grid.Len()),
		Stats:  storage.StatsV1(u.stats),
	}
	if u.lastOutpost != nil {
		last := *u.lastOutpost
		out.LastOutpost = &last
	}
	for _, ref := range u.inv.Discovered() {
		out.Discovered = append(out.Discovered, string(ref))
	}

	for i := range out.Grid {
		it := u.inv.Grid.Get(i)
		if it == nil {
			continue
		}
		c := it.clone()
		item := &storage.ItemV1{
			Ref:            string(c.Ref),
			NextDrop:       c.NextDrop,
			RemainingDrops: c.RemainingDrops,
		}
		for _, ref := range c.Queue {
			item.Queue = append(item.Queue, string(ref))
		}
		out.Grid[i] = item
	}
	return out
}

// Import replaces the world with a snapshot. Items are left unresolved until
// Rehydrate links them to the catalog. Nothing changes when the snapshot does
// not fit this world.
func (w *World) Import(snap storage.SnapshotV1) error {
	id, err := uuid.Parse(snap.Header.GameID)
	if err != nil {
		return fmt.Errorf("parsing game id: %w", err)
	}

	users := make(map[uint32]*UserState, len(snap.Users))
	for _, su := range snap.Users {
		if len(su.Grid) != w.opts.GridSize {
			return fmt.Errorf("user %d: grid has %d cells, expected %d", su.ID, len(su.Grid), w.opts.GridSize)
		}
		if _, ok := users[su.ID]; ok {
			return fmt.Errorf("duplicate user %d", su.ID)
		}
		users[su.ID] = w.importUser(su)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.users = users
	w.gameID = id
	w.tick.Store(snap.Header.Tick)
	w.running.Store(snap.Running)
	return nil
}

func (w *World) importUser(su storage.UserV1) *UserState {
	u := &UserState{
		id:          su.ID,
		inv:         NewInventory(w.opts.GridSize),
		stats:       Stats(su.Stats),
		perms:       w.opts.Permissions[su.ID],
		lastOutpost: su.LastOutpost,
		rng:         w.userRand(su.ID),
	}
	u.inv.Money = su.Money
	u.inv.Energy = su.Energy
	for _, ref := range su.Discovered {
		u.inv.Discover(catalog.ItemRef(ref))
	}

	for i, si := range su.Grid {
		if si == nil {
			continue
		}
		it := &ItemInstance{
			Ref:            catalog.ItemRef(si.Ref),
			NextDrop:       si.NextDrop,
			RemainingDrops: si.RemainingDrops,
		}
		for _, ref := range si.Queue {
			if len(it.Queue) == QueueCapacity {
				break
			}
			it.Queue = append(it.Queue, catalog.ItemRef(ref))
		}
		u.inv.Grid.Set(i, it)
	}
	return u
}

// Rehydrate links every item instance to its catalog entry and returns the
// number that could not be resolved. Unresolved instances stay in place but
// never update.
func (w *World) Rehydrate() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	failed := 0
	for _, id := range w.sortedIDs() {
		u := w.users[id]
		u.mu.Lock()
		for i := range u.inv.Grid.Len() {
			it := u.inv.Grid.Get(i)
			if it == nil || it.resolve(w.cat) {
				continue
			}
			failed++
			slog.Warn("item not in catalog, instance disabled", "user", id, "cell", i, "item", it.Ref)
		}
		u.mu.Unlock()
	}
	return failed
}
