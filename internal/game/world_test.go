package game

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
	"github.com/timvisee/merge-mania/internal/catalog"
)

func limit(n uint32) *uint32 {
	return &n
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.New([]catalog.Item{
		{Ref: "wood.1", Tier: "wood", Name: "Twig", Merge: "wood.2", Sell: 1, Buy: []catalog.Amount{catalog.Money(5)}},
		{Ref: "wood.2", Tier: "wood", Name: "Branch", Merge: "wood.3", Sell: 3},
		{Ref: "wood.3", Tier: "wood", Name: "Tree", Sell: 9, DropInterval: 4, DropLimit: limit(3),
			Drops: []catalog.Drop{{Item: "wood.1", Chance: 1}}},
		{Ref: "nail.1", Tier: "nail", Name: "Nail", Sell: 1},
		{Ref: "box.1", Tier: "box", Name: "Box", Sell: 4,
			Buy: []catalog.Amount{catalog.Items("wood.1", 1), catalog.Money(2)}},
		{Ref: "crate.1", Tier: "box", Name: "Crate", Sell: 6,
			Buy: []catalog.Amount{catalog.Items("wood.1", 1), catalog.Items("wood.1", 1)}},
		{Ref: "lamp.1", Tier: "lamp", Name: "Lamp", Sell: 2,
			Buy: []catalog.Amount{catalog.Money(3), catalog.Energy(1)}},
		{Ref: "factory.1", Tier: "factory", Name: "Sawmill", Sell: 2, DropInterval: 2,
			Drops: []catalog.Drop{{Item: "wood.1", Chance: 1}}},
		{Ref: "factory.2", Tier: "factory", Name: "Workshop", Sell: 2, DropInterval: 1, DropLimit: limit(1),
			Drops: []catalog.Drop{{Item: "nail.1", Chance: 1}}},
	})
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	return cat
}

func testWorld(t *testing.T) *World {
	t.Helper()

	return NewWorld(testCatalog(t), Options{
		GridSize: 8,
		Seed:     1,
		Defaults: Defaults{
			Money:     10,
			Energy:    2,
			Inventory: []catalog.ItemRef{"wood.1", "wood.1"},
		},
		Permissions: map[uint32]Permissions{
			1: {Play: true},
			2: {Play: true, Admin: true},
		},
	})
}

// fill puts an instance of ref in every listed cell of a user's grid.
func fill(t *testing.T, w *World, userID uint32, ref catalog.ItemRef, cells ...int) {
	t.Helper()

	item, ok := w.cat.Lookup(ref)
	if !ok {
		t.Fatalf("unknown item %s", ref)
	}
	u := w.user(userID)
	for _, c := range cells {
		u.inv.Grid.Set(c, NewItemInstance(item, w.Tick()))
	}
}

func TestWorld_LazyUser(t *testing.T) {
	w := testWorld(t)

	v := w.Inventory(1)
	testutil.AssertEqual(t, "money", v.Money, uint64(10))
	testutil.AssertEqual(t, "energy", v.Energy, uint64(2))
	testutil.AssertEqual(t, "cells", len(v.Cells), 8)
	testutil.AssertEqual(t, "cell 0", v.Cell(0).Ref, catalog.ItemRef("wood.1"))
	testutil.AssertEqual(t, "cell 1", v.Cell(1).Ref, catalog.ItemRef("wood.1"))
	testutil.AssertEqual(t, "cell 2 empty", v.Cell(2) == nil, true)
	testutil.AssertEqual(t, "discovered", len(v.Discovered), 1)
	testutil.AssertEqual(t, "permissions", w.user(1).perms, Permissions{Play: true})
}

func TestWorld_ConcurrentCreate(t *testing.T) {
	w := testWorld(t)

	var wg sync.WaitGroup
	users := make([]*UserState, 32)
	for i := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			users[i] = w.user(5)
		}()
	}
	wg.Wait()

	for _, u := range users {
		if u != users[0] {
			t.Fatal("user initialized more than once")
		}
	}
	testutil.AssertEqual(t, "users", len(w.UserIDs()), 1)
}

func TestWorld_Reset(t *testing.T) {
	w := testWorld(t)
	w.SetRunning(true)
	before := w.Inventory(1)
	gameID := w.GameID()

	if _, err := w.Sell(1, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w.Inventory(3)
	w.Advance()
	w.Advance()

	w.Reset()

	testutil.AssertEqual(t, "tick", w.Tick(), uint64(0))
	testutil.AssertEqual(t, "users", len(w.UserIDs()), 0)
	testutil.AssertEqual(t, "running kept", w.Running(), true)
	if w.GameID() == gameID {
		t.Error("expected a new game id after reset")
	}

	after := w.Inventory(1)
	testutil.AssertEqual(t, "money", after.Money, before.Money)
	testutil.AssertEqual(t, "energy", after.Energy, before.Energy)
	for i := range before.Cells {
		testutil.AssertEqual(t, "cell empty", after.Cell(i) == nil, before.Cell(i) == nil)
		if before.Cell(i) != nil {
			testutil.AssertEqual(t, "cell ref", after.Cell(i).Ref, before.Cell(i).Ref)
		}
	}
	testutil.AssertEqual(t, "stats", w.Stats(1), Stats{})
}

func TestWorld_ResetWaitsForAction(t *testing.T) {
	w := testWorld(t)

	var reset atomic.Bool
	done := make(chan struct{})
	_, err := w.update(1, func(u *UserState) (Change, error) {
		go func() {
			w.Reset()
			reset.Store(true)
			close(done)
		}()
		time.Sleep(20 * time.Millisecond)
		testutil.AssertEqual(t, "reset during action", reset.Load(), false)
		u.inv.Money = 99
		return Change{}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reset did not finish")
	}
	testutil.AssertEqual(t, "money after reset", w.Inventory(1).Money, uint64(10))
}

func TestWorld_SetRunning(t *testing.T) {
	w := testWorld(t)

	testutil.AssertEqual(t, "start changed", w.SetRunning(true), true)
	testutil.AssertEqual(t, "start again", w.SetRunning(true), false)
	testutil.AssertEqual(t, "running", w.Running(), true)
	testutil.AssertEqual(t, "stop changed", w.SetRunning(false), true)
}

func TestWorld_Swap(t *testing.T) {
	tests := map[string]struct {
		cell     int
		other    int
		expErr   error
		expCells []int
	}{
		"item with empty": {cell: 0, other: 5, expCells: []int{0, 5}},
		"reversed order":  {cell: 6, other: 1, expCells: []int{1, 6}},
		"same cell":       {cell: 2, other: 2, expErr: ErrSameCell},
		"out of range":    {cell: 0, other: 8, expErr: ErrInvalidCell},
		"negative":        {cell: -1, other: 0, expErr: ErrInvalidCell},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := testWorld(t)
			before := w.Inventory(1)

			ch, err := w.Swap(1, tt.cell, tt.other)
			testutil.AssertEqual(t, "error", errors.Is(err, tt.expErr), true)
			if tt.expErr != nil {
				testutil.AssertEqual(t, "stats", w.Stats(1).Swaps, uint64(0))
				return
			}

			testutil.AssertEqual(t, "cells", len(ch.Cells), len(tt.expCells))
			for i, c := range tt.expCells {
				testutil.AssertEqual(t, "cell", ch.Cells[i], c)
			}
			testutil.AssertEqual(t, "moved", ch.View.Cell(tt.other) == nil, before.Cell(tt.cell) == nil)
			testutil.AssertEqual(t, "stats", ch.Stats.Swaps, uint64(1))
		})
	}
}

func TestWorld_Merge(t *testing.T) {
	tests := map[string]struct {
		setup         func(t *testing.T, w *World)
		cell          int
		other         int
		expErr        error
		expRef        catalog.ItemRef
		expDiscovered int
	}{
		"upgrade": {
			cell: 1, other: 0, expRef: "wood.2", expDiscovered: 1,
		},
		"already discovered": {
			setup: func(t *testing.T, w *World) {
				w.user(1).inv.Discover("wood.2")
			},
			cell: 1, other: 0, expRef: "wood.2",
		},
		"mismatch": {
			setup: func(t *testing.T, w *World) {
				fill(t, w, 1, "nail.1", 3)
			},
			cell: 0, other: 3, expErr: ErrMergeMismatch,
		},
		"final item": {
			setup: func(t *testing.T, w *World) {
				fill(t, w, 1, "nail.1", 3, 4)
			},
			cell: 3, other: 4, expErr: ErrNotMergeable,
		},
		"empty cell":   {cell: 0, other: 5, expErr: ErrCellEmpty},
		"same cell":    {cell: 0, other: 0, expErr: ErrSameCell},
		"out of range": {cell: 0, other: 99, expErr: ErrInvalidCell},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := testWorld(t)
			w.Inventory(1)
			if tt.setup != nil {
				tt.setup(t, w)
			}

			ch, err := w.Merge(1, tt.cell, tt.other)
			testutil.AssertEqual(t, "error", errors.Is(err, tt.expErr), true)
			if tt.expErr != nil {
				testutil.AssertEqual(t, "empty change", ch.Empty(), true)
				return
			}

			testutil.AssertEqual(t, "result", ch.View.Cell(tt.cell).Ref, tt.expRef)
			testutil.AssertEqual(t, "consumed", ch.View.Cell(tt.other) == nil, true)
			testutil.AssertEqual(t, "cells", len(ch.Cells), 2)
			testutil.AssertEqual(t, "discovered", len(ch.Discovered), tt.expDiscovered)
			testutil.AssertEqual(t, "merges", ch.Stats.Merges, uint64(1))
		})
	}
}

func TestWorld_Buy(t *testing.T) {
	tests := map[string]struct {
		setup     func(t *testing.T, w *World)
		cell      int
		ref       catalog.ItemRef
		expErr    error
		expCells  int
		expMoney  uint64
		expEnergy uint64
	}{
		"money cost": {
			cell: 4, ref: "wood.1", expCells: 1, expMoney: 5, expEnergy: 2,
		},
		"item and money cost": {
			cell: 4, ref: "box.1", expCells: 2, expMoney: 8, expEnergy: 2,
		},
		"money and energy cost": {
			cell: 4, ref: "lamp.1", expCells: 1, expMoney: 7, expEnergy: 1,
		},
		"duplicate item entries aggregated": {
			cell: 4, ref: "crate.1", expCells: 3, expMoney: 10, expEnergy: 2,
		},
		"duplicate item entries insufficient": {
			setup: func(t *testing.T, w *World) {
				w.user(1).inv.Grid.Clear(1)
			},
			cell: 4, ref: "crate.1", expErr: ErrInsufficientResources,
		},
		"energy short": {
			setup: func(t *testing.T, w *World) {
				w.user(1).inv.Energy = 0
			},
			cell: 4, ref: "lamp.1", expErr: ErrInsufficientResources,
		},
		"occupied":     {cell: 0, ref: "wood.1", expErr: ErrCellOccupied},
		"unknown item": {cell: 4, ref: "gold.1", expErr: ErrUnknownItem},
		"not buyable":  {cell: 4, ref: "nail.1", expErr: ErrNotBuyable},
		"out of range": {cell: 8, ref: "wood.1", expErr: ErrInvalidCell},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := testWorld(t)
			w.Inventory(1)
			if tt.setup != nil {
				tt.setup(t, w)
			}
			before := w.Inventory(1)

			ch, err := w.Buy(1, tt.cell, tt.ref)
			testutil.AssertEqual(t, "error", errors.Is(err, tt.expErr), true)
			if tt.expErr != nil {
				after := w.Inventory(1)
				testutil.AssertEqual(t, "money untouched", after.Money, before.Money)
				testutil.AssertEqual(t, "energy untouched", after.Energy, before.Energy)
				for i := range before.Cells {
					testutil.AssertEqual(t, "cell untouched", after.Cell(i) == nil, before.Cell(i) == nil)
				}
				return
			}

			testutil.AssertEqual(t, "cells", len(ch.Cells), tt.expCells)
			testutil.AssertEqual(t, "placed", ch.View.Cell(tt.cell).Ref, tt.ref)
			testutil.AssertEqual(t, "money", ch.View.Money, tt.expMoney)
			testutil.AssertEqual(t, "energy", ch.View.Energy, tt.expEnergy)
			testutil.AssertEqual(t, "discovered", len(ch.Discovered) <= 1, true)
			testutil.AssertEqual(t, "buys", ch.Stats.Buys, uint64(1))
		})
	}
}

func TestWorld_Buy_LastFreeCell(t *testing.T) {
	w := testWorld(t)
	fill(t, w, 1, "nail.1", 2, 3, 4, 5, 6)

	ch, err := w.Buy(1, 7, "box.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "cells", len(ch.Cells), 2)
	testutil.AssertEqual(t, "last cell", ch.Cells[1], 7)
	testutil.AssertEqual(t, "balances", ch.Balances, true)
	testutil.AssertEqual(t, "discovered", ch.Discovered[0], catalog.ItemRef("box.1"))
	testutil.AssertEqual(t, "money spent", ch.Stats.MoneySpent, uint64(2))
}

func TestWorld_Sell(t *testing.T) {
	w := testWorld(t)

	ch, err := w.Sell(1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "cells", len(ch.Cells), 1)
	testutil.AssertEqual(t, "cleared", ch.View.Cell(0) == nil, true)
	testutil.AssertEqual(t, "money", ch.View.Money, uint64(11))
	testutil.AssertEqual(t, "credit", ch.Credit, Reward{Money: 1})
	testutil.AssertEqual(t, "earned", ch.Stats.MoneyEarned, uint64(1))

	_, err = w.Sell(1, 0)
	testutil.AssertEqual(t, "empty", errors.Is(err, ErrCellEmpty), true)
}

func TestWorld_ScanCode(t *testing.T) {
	w := testWorld(t)
	reward := Reward{Money: 10, Energy: 5}

	_, err := w.ScanCode(1, 3, reward)
	testutil.AssertEqual(t, "stopped", errors.Is(err, ErrGameNotRunning), true)

	w.SetRunning(true)
	ch, err := w.ScanCode(1, 3, reward)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "money", ch.View.Money, uint64(20))
	testutil.AssertEqual(t, "energy", ch.View.Energy, uint64(7))
	testutil.AssertEqual(t, "scans", ch.Stats.Scans, uint64(1))
	testutil.AssertEqual(t, "credit", ch.Credit, reward)

	_, err = w.ScanCode(1, 3, reward)
	testutil.AssertEqual(t, "repeated", errors.Is(err, ErrOutpostRepeated), true)

	if _, err := w.ScanCode(1, 4, reward); err != nil {
		t.Fatalf("other outpost: %v", err)
	}
	if _, err := w.ScanCode(1, 3, reward); err != nil {
		t.Fatalf("back to first outpost: %v", err)
	}
}

func TestWorld_BuyRacingAdvance(t *testing.T) {
	w := testWorld(t)
	w.SetRunning(true)
	u := w.user(1)
	u.inv.Money = 1000
	fill(t, w, 1, "factory.1", 2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 200 {
			w.Advance()
		}
	}()
	go func() {
		defer wg.Done()
		for i := range 200 {
			cell := i % 8
			if _, err := w.Buy(1, cell, "wood.1"); err == nil {
				if _, err := w.Sell(1, cell); err != nil {
					t.Errorf("selling bought item: %v", err)
				}
			}
		}
	}()
	wg.Wait()

	stats := w.Stats(1)
	v := w.Inventory(1)
	testutil.AssertEqual(t, "money", v.Money, 1000-stats.MoneySpent+stats.MoneyEarned)
	testutil.AssertEqual(t, "buys match sells", stats.Buys, stats.Sells)

	occupied := 0
	for _, c := range v.Cells {
		if c != nil {
			occupied++
		}
	}
	testutil.AssertEqual(t, "occupied", uint64(occupied), 3+stats.Drops)
}

func TestWorld_Leaderboard(t *testing.T) {
	w := testWorld(t)
	w.Inventory(1)
	w.Inventory(2)
	w.Inventory(3)
	if _, err := w.Sell(3, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fill(t, w, 2, "wood.3", 5)

	board := w.Leaderboard()
	testutil.AssertEqual(t, "rows", len(board), 3)
	testutil.AssertEqual(t, "first", board[0].UserID, uint32(2))
	testutil.AssertEqual(t, "first score", board[0].Score, uint64(10+1+1+9))
	// users 1 and 3 tie on score, id breaks the tie
	testutil.AssertEqual(t, "second", board[1].UserID, uint32(1))
	testutil.AssertEqual(t, "third", board[2].UserID, uint32(3))
}
