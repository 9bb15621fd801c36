package game

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/timvisee/merge-mania/internal/catalog"
)

// Defaults is the starting state of a new user.
type Defaults struct {
	Money     uint64
	Energy    uint64
	Inventory []catalog.ItemRef
}

// Options configure a World.
type Options struct {
	GridSize    int
	Seed        uint64
	Defaults    Defaults
	Permissions map[uint32]Permissions
}

// World is the single source of truth for all game state. The user
// collection is guarded by mu; each user is guarded by its own lock.
type World struct {
	cat  Catalog
	opts Options

	tick    atomic.Uint64
	running atomic.Bool

	mu     sync.RWMutex
	gameID uuid.UUID
	users  map[uint32]*UserState
}

// NewWorld creates a stopped world at tick zero with no users.
func NewWorld(cat Catalog, opts Options) *World {
	return &World{
		cat:    cat,
		opts:   opts,
		gameID: uuid.New(),
		users:  make(map[uint32]*UserState),
	}
}

// Catalog returns the item catalog the world was built with.
func (w *World) Catalog() Catalog {
	return w.cat
}

// Tick returns the current tick.
func (w *World) Tick() uint64 {
	return w.tick.Load()
}

// Running reports whether ticks advance.
func (w *World) Running() bool {
	return w.running.Load()
}

// SetRunning starts or stops tick advancement. Returns true if the state
// changed.
func (w *World) SetRunning(running bool) bool {
	return w.running.Swap(running) != running
}

// GameID identifies the current round. It changes on every reset.
func (w *World) GameID() uuid.UUID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.gameID
}

// GridSize returns the number of cells in every user's grid.
func (w *World) GridSize() int {
	return w.opts.GridSize
}

// Permissions returns the configured capabilities of a user.
func (w *World) Permissions(id uint32) Permissions {
	return w.opts.Permissions[id]
}

// Reset drops every user and zeroes the tick counter in one step.
func (w *World) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.users = make(map[uint32]*UserState)
	w.tick.Store(0)
	w.gameID = uuid.New()
}

// UserIDs returns the ids of all loaded users in ascending order.
func (w *World) UserIDs() []uint32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sortedIDs()
}

// sortedIDs must be called with mu held.
func (w *World) sortedIDs() []uint32 {
	ids := make([]uint32, 0, len(w.users))
	for id := range w.users {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// user returns the state of id, creating the default state on first use.
func (w *World) user(id uint32) *UserState {
	w.mu.RLock()
	u, ok := w.users[id]
	w.mu.RUnlock()
	if ok {
		return u
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// another caller may have inserted between the locks
	if u, ok := w.users[id]; ok {
		return u
	}
	u = w.newUser(id)
	w.users[id] = u
	return u
}

// newUser builds the default state of a user.
func (w *World) newUser(id uint32) *UserState {
	u := &UserState{
		id:    id,
		inv:   NewInventory(w.opts.GridSize),
		perms: w.opts.Permissions[id],
		rng:   w.userRand(id),
	}
	u.inv.Money = w.opts.Defaults.Money
	u.inv.Energy = w.opts.Defaults.Energy

	tick := w.tick.Load()
	for i, ref := range w.opts.Defaults.Inventory {
		if i >= u.inv.Grid.Len() {
			break
		}
		item, ok := w.cat.Lookup(ref)
		if !ok {
			slog.Warn("default item not in catalog", "user", id, "item", ref)
			continue
		}
		u.inv.Grid.Set(i, NewItemInstance(item, tick))
		u.inv.Discover(ref)
	}
	return u
}

// userRand gives every user its own stream so one user's actions never shift
// another user's randomness.
func (w *World) userRand(id uint32) *rand.Rand {
	return rand.New(rand.NewPCG(w.opts.Seed, uint64(id)))
}

// withUser runs fn with the user collection read locked and the user
// locked, so a Reset cannot drop the user while fn runs. fn must not touch
// mu.
func (w *World) withUser(id uint32, fn func(u *UserState)) {
	for {
		u := w.user(id)

		w.mu.RLock()
		if w.users[id] != u {
			// reset between lookup and lock
			w.mu.RUnlock()
			continue
		}
		u.mu.Lock()
		fn(u)
		u.mu.Unlock()
		w.mu.RUnlock()
		return
	}
}

// update runs fn with the user locked and completes the resulting change
// with views captured under the same lock.
func (w *World) update(id uint32, fn func(u *UserState) (Change, error)) (Change, error) {
	var (
		ch  Change
		err error
	)
	w.withUser(id, func(u *UserState) {
		ch, err = fn(u)
		if err != nil {
			return
		}
		ch.UserID = id
		ch.View = u.view()
		ch.Stats = u.stats
	})
	if err != nil {
		return Change{}, err
	}
	return ch, nil
}

// Inventory returns a view of a user's inventory.
func (w *World) Inventory(id uint32) InventoryView {
	var v InventoryView
	w.withUser(id, func(u *UserState) {
		v = u.view()
	})
	return v
}

// Stats returns a copy of a user's counters.
func (w *World) Stats(id uint32) Stats {
	var s Stats
	w.withUser(id, func(u *UserState) {
		s = u.stats
	})
	return s
}

// Standing is one row of the leaderboard.
type Standing struct {
	UserID uint32 `json:"user_id"`
	Score  uint64 `json:"score"`
	Money  uint64 `json:"money"`
	Energy uint64 `json:"energy"`
	Stats  Stats  `json:"stats"`
}

// Leaderboard ranks loaded users by score, highest first, then by id.
func (w *World) Leaderboard() []Standing {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Standing, 0, len(w.users))
	for _, id := range w.sortedIDs() {
		u := w.users[id]
		u.mu.Lock()
		out = append(out, Standing{
			UserID: id,
			Score:  u.score(),
			Money:  u.inv.Money,
			Energy: u.inv.Energy,
			Stats:  u.stats,
		})
		u.mu.Unlock()
	}

	slices.SortStableFunc(out, func(a, b Standing) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return out
}
