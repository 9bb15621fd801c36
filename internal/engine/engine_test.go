package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
	"github.com/timvisee/merge-mania/internal/broadcast"
	"github.com/timvisee/merge-mania/internal/catalog"
	"github.com/timvisee/merge-mania/internal/game"
	"github.com/timvisee/merge-mania/internal/index"
	"github.com/timvisee/merge-mania/internal/lang"
	"github.com/timvisee/merge-mania/internal/outpost"
	"github.com/timvisee/merge-mania/internal/storage"
	"golang.org/x/text/language"
)

const (
	player uint32 = 1
	admin  uint32 = 2
	guest  uint32 = 3
)

var testNow = time.Unix(1_700_000_000, 0)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.New([]catalog.Item{
		{Ref: "wood.1", Tier: "wood", Name: "Twig", Merge: "wood.2", Sell: 1},
		{Ref: "wood.2", Tier: "wood", Name: "Branch", Sell: 3},
		{Ref: "nail.1", Tier: "nail", Name: "Nail", Sell: 1},
		{Ref: "lamp.1", Tier: "lamp", Name: "Lamp", Sell: 2, Buy: []catalog.Amount{catalog.Money(20)}},
		{Ref: "factory.1", Tier: "factory", Name: "Workshop", Sell: 2, DropInterval: 1,
			Buy:   []catalog.Amount{catalog.Money(1)},
			Drops: []catalog.Drop{{Item: "nail.1", Chance: 1}}},
	})
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	return cat
}

func testWorld(t *testing.T) *game.World {
	t.Helper()

	return game.NewWorld(testCatalog(t), game.Options{
		GridSize: 4,
		Seed:     1,
		Defaults: game.Defaults{
			Money:     10,
			Inventory: []catalog.ItemRef{"wood.1", "wood.1"},
		},
		Permissions: map[uint32]game.Permissions{
			player: {Play: true},
			admin:  {Play: true, Admin: true},
		},
	})
}

type fixture struct {
	engine *Engine
	rec    *broadcast.Recorder
	store  *storage.SnapshotStore
}

func newFixture(t *testing.T, opts ...EngineOpt) fixture {
	t.Helper()

	texts, err := lang.New(language.English)
	if err != nil {
		t.Fatalf("building texts: %v", err)
	}
	issuer, err := outpost.NewIssuer("s3cret", outpost.WithCount(3))
	if err != nil {
		t.Fatalf("building issuer: %v", err)
	}

	rec := &broadcast.Recorder{}
	store := storage.NewSnapshotStore(filepath.Join(t.TempDir(), "save.json.zst"))
	opts = append([]EngineOpt{
		WithOutposts(issuer, game.Reward{Money: 5, Energy: 1}),
		WithPlayers([]uint32{player, admin}),
		WithClock(func() time.Time { return testNow }),
	}, opts...)

	return fixture{
		engine: New(testWorld(t), broadcast.New(rec, broadcast.DefaultThreshold), texts, store, opts...),
		rec:    rec,
		store:  store,
	}
}

func (f fixture) toasts(userID uint32) []string {
	var out []string
	for _, r := range f.rec.Records() {
		if r.UserID == userID && r.Message.Kind == broadcast.KindToast {
			out = append(out, r.Message.Data.(broadcast.Toast).Text)
		}
	}
	return out
}

func (f fixture) codeResults(userID uint32) []broadcast.CodeResult {
	var out []broadcast.CodeResult
	for _, r := range f.rec.Records() {
		if r.UserID == userID && r.Message.Kind == broadcast.KindCodeResult {
			out = append(out, r.Message.Data.(broadcast.CodeResult))
		}
	}
	return out
}

func TestEngine_Permissions(t *testing.T) {
	tests := map[string]struct {
		call func(e *Engine) error
	}{
		"guest swap":          {call: func(e *Engine) error { return e.Swap(guest, 0, 1) }},
		"guest buy":           {call: func(e *Engine) error { return e.Buy(guest, 2, "lamp.1") }},
		"guest inventory":     {call: func(e *Engine) error { return e.GetInventory(guest) }},
		"guest stats":         {call: func(e *Engine) error { return e.GetStats(guest) }},
		"guest scan":          {call: func(e *Engine) error { return e.ScanCode(guest, "abc") }},
		"player start":        {call: func(e *Engine) error { return e.SetRunning(player, true) }},
		"player reset":        {call: func(e *Engine) error { return e.Reset(player) }},
		"player leaderboard":  {call: func(e *Engine) error { return e.Leaderboard(player) }},
		"player token":        {call: func(e *Engine) error { return e.OutpostToken(player, 0) }},
		"player mock scan":    {call: func(e *Engine) error { return e.ScanCode(player, "") }},
		"guest merge":         {call: func(e *Engine) error { return e.Merge(guest, 0, 1) }},
		"guest sell":          {call: func(e *Engine) error { return e.Sell(guest, 0) }},
		"unknown user merges": {call: func(e *Engine) error { return e.Merge(99, 0, 1) }},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			err := tt.call(f.engine)
			testutil.AssertEqual(t, "denied", errors.Is(err, ErrPermissionDenied), true)

			recs := f.rec.Records()
			testutil.AssertEqual(t, "records", len(recs), 1)
			testutil.AssertEqual(t, "kind", recs[0].Message.Kind, broadcast.KindToast)
			testutil.AssertEqual(t, "toast", recs[0].Message.Data.(broadcast.Toast).Text, "You are not allowed to do that")
		})
	}
}

func TestEngine_GetGame(t *testing.T) {
	tests := map[string]struct {
		user     uint32
		expKinds []broadcast.Kind
	}{
		"guest": {
			user:     guest,
			expKinds: []broadcast.Kind{broadcast.KindGameState},
		},
		"player": {
			user:     player,
			expKinds: []broadcast.Kind{broadcast.KindGameState, broadcast.KindInventory},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			if err := f.engine.GetGame(tt.user); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "kinds", slices.Equal(f.rec.Kinds(tt.user), tt.expKinds), true)
		})
	}
}

func TestEngine_Merge(t *testing.T) {
	f := newFixture(t)

	if err := f.engine.Merge(player, 0, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "kinds", slices.Equal(f.rec.Kinds(player), []broadcast.Kind{
		broadcast.KindInventoryCell,
		broadcast.KindInventoryCell,
		broadcast.KindInventoryDiscovered,
		broadcast.KindToast,
	}), true)
	testutil.AssertEqual(t, "discovery toast", f.toasts(player)[0], "You discovered Branch!")

	f.rec.Reset()
	err := f.engine.Merge(player, 0, 1)
	testutil.AssertEqual(t, "cell empty", errors.Is(err, game.ErrCellEmpty), true)
	testutil.AssertEqual(t, "nothing sent", len(f.rec.Records()), 0)
}

func TestEngine_BuyInsufficient(t *testing.T) {
	f := newFixture(t)

	err := f.engine.Buy(player, 2, "lamp.1")
	testutil.AssertEqual(t, "insufficient", errors.Is(err, game.ErrInsufficientResources), true)
	testutil.AssertEqual(t, "kinds", slices.Equal(f.rec.Kinds(player), []broadcast.Kind{
		broadcast.KindToast,
		broadcast.KindInventory,
	}), true)

	toasts := f.toasts(player)
	testutil.AssertEqual(t, "toast", toasts[0], "Insufficient resources to buy Lamp")
	testutil.AssertEqual(t, "money untouched", f.engine.World().Inventory(player).Money, uint64(10))
}

func TestEngine_BuyAndSell(t *testing.T) {
	f := newFixture(t)

	if err := f.engine.Buy(player, 2, "factory.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "buy kinds", slices.Equal(f.rec.Kinds(player), []broadcast.Kind{
		broadcast.KindInventoryCell,
		broadcast.KindInventoryBalances,
		broadcast.KindInventoryDiscovered,
		broadcast.KindToast,
	}), true)
	testutil.AssertEqual(t, "discovery toast", f.toasts(player)[0], "You discovered Workshop!")

	f.rec.Reset()
	if err := f.engine.Sell(player, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "sell kinds", slices.Equal(f.rec.Kinds(player), []broadcast.Kind{
		broadcast.KindInventoryCell,
		broadcast.KindInventoryBalances,
	}), true)
	testutil.AssertEqual(t, "money", f.engine.World().Inventory(player).Money, uint64(11))
}

func TestEngine_ScanCode(t *testing.T) {
	f := newFixture(t)
	issuer, err := outpost.NewIssuer("s3cret", outpost.WithCount(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token := issuer.Token(1, testNow)

	err = f.engine.ScanCode(player, token)
	testutil.AssertEqual(t, "stopped", errors.Is(err, game.ErrGameNotRunning), true)
	testutil.AssertEqual(t, "stopped result", f.codeResults(player)[0].Success, false)

	f.engine.World().SetRunning(true)
	f.rec.Reset()

	if err := f.engine.ScanCode(player, token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "kinds", slices.Equal(f.rec.Kinds(player), []broadcast.Kind{
		broadcast.KindCodeResult,
		broadcast.KindToast,
		broadcast.KindInventoryBalances,
	}), true)
	res := f.codeResults(player)[0]
	testutil.AssertEqual(t, "success", res.Success, true)
	testutil.AssertEqual(t, "credited", res.Money, uint64(5))
	testutil.AssertEqual(t, "toast", f.toasts(player)[0], "Code accepted: +5 money, +1 energy")
	testutil.AssertEqual(t, "money", f.engine.World().Inventory(player).Money, uint64(15))

	err = f.engine.ScanCode(player, token)
	testutil.AssertEqual(t, "repeated", errors.Is(err, game.ErrOutpostRepeated), true)

	err = f.engine.ScanCode(player, "bm9wZQ==")
	testutil.AssertEqual(t, "invalid", errors.Is(err, outpost.ErrInvalidToken), true)
	testutil.AssertEqual(t, "stats", f.engine.World().Stats(player).Scans, uint64(1))
}

func TestEngine_MockScan(t *testing.T) {
	f := newFixture(t)
	f.engine.World().SetRunning(true)

	if err := f.engine.ScanCode(admin, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "toast", f.toasts(admin)[0], "*Poof* you got free energy!")
	testutil.AssertEqual(t, "energy", f.engine.World().Inventory(admin).Energy, uint64(1))
}

func TestEngine_OutpostToken(t *testing.T) {
	f := newFixture(t)

	if err := f.engine.OutpostToken(admin, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recs := f.rec.Records()
	testutil.AssertEqual(t, "records", len(recs), 1)
	tok := recs[0].Message.Data.(broadcast.OutpostToken)
	testutil.AssertEqual(t, "outpost", tok.Outpost, uint32(2))

	f.engine.World().SetRunning(true)
	if err := f.engine.ScanCode(player, tok.Token); err != nil {
		t.Fatalf("scanning issued token: %v", err)
	}

	testutil.AssertErrorContains(t, f.engine.OutpostToken(admin, 3), "out of range")
}

func TestEngine_SetRunningAndReset(t *testing.T) {
	f := newFixture(t)

	if err := f.engine.SetRunning(admin, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recs := f.rec.Records()
	testutil.AssertEqual(t, "to everyone", recs[0].All, true)
	testutil.AssertEqual(t, "running", recs[0].Message.Data.(broadcast.GameState).Running, true)

	if _, err := f.engine.World().Sell(player, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := f.engine.World().GameID()

	f.rec.Reset()
	if err := f.engine.Reset(admin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "new round", f.engine.World().GameID() != before, true)
	testutil.AssertEqual(t, "still running", f.engine.World().Running(), true)
	testutil.AssertEqual(t, "tick", f.engine.World().Tick(), uint64(0))
	testutil.AssertEqual(t, "player inventory", slices.Equal(f.rec.Kinds(player), []broadcast.Kind{broadcast.KindInventory}), true)
	testutil.AssertEqual(t, "admin inventory", slices.Equal(f.rec.Kinds(admin), []broadcast.Kind{broadcast.KindInventory}), true)
	testutil.AssertEqual(t, "default money", f.engine.World().Inventory(player).Money, uint64(10))
}

func TestEngine_Tick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.engine.Buy(player, 2, "factory.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.rec.Reset()

	if err := f.engine.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "stopped", len(f.rec.Records()), 0)

	f.engine.World().SetRunning(true)
	if err := f.engine.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "kinds", slices.Equal(f.rec.Kinds(player), []broadcast.Kind{
		broadcast.KindInventoryCell,
		broadcast.KindInventoryCell,
		broadcast.KindInventoryDiscovered,
		broadcast.KindToast,
	}), true)
	testutil.AssertEqual(t, "discovery toast", f.toasts(player)[0], "You discovered Nail!")
	testutil.AssertEqual(t, "placed", f.engine.World().Inventory(player).Cell(3).Ref, catalog.ItemRef("nail.1"))
}

func TestEngine_SaveLoad(t *testing.T) {
	ctx := context.Background()
	idx, err := index.Open(ctx, filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("opening index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	f := newFixture(t, WithIndex(idx, 2))
	f.engine.World().SetRunning(true)
	if err := f.engine.Merge(player, 0, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 3 {
		if err := f.engine.Tick(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := f.engine.Saver().Tick(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	latest, err := idx.LatestSave(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "indexed tick", latest.Tick, uint64(3))
	testutil.AssertEqual(t, "indexed game", latest.GameID, f.engine.World().GameID().String())

	texts, err := lang.New(language.English)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	restored := New(testWorld(t), broadcast.New(&broadcast.Recorder{}, 0), texts, f.store)
	testutil.AssertEqual(t, "loaded", restored.Load(ctx), true)

	w := restored.World()
	testutil.AssertEqual(t, "tick", w.Tick(), uint64(3))
	testutil.AssertEqual(t, "running", w.Running(), true)
	testutil.AssertEqual(t, "game id", w.GameID(), f.engine.World().GameID())
	testutil.AssertEqual(t, "merged item", w.Inventory(player).Cell(0).Ref, catalog.ItemRef("wood.2"))
}

func TestEngine_LoadFallsBack(t *testing.T) {
	tests := map[string]struct {
		setup func(t *testing.T, path string)
	}{
		"no snapshot": {
			setup: func(t *testing.T, path string) {},
		},
		"corrupt snapshot": {
			setup: func(t *testing.T, path string) {
				if err := os.WriteFile(path, []byte("not zstd"), 0o644); err != nil {
					t.Fatalf("writing snapshot: %v", err)
				}
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(t, f.store.Path())

			testutil.AssertEqual(t, "loaded", f.engine.Load(context.Background()), false)
			testutil.AssertEqual(t, "fresh tick", f.engine.World().Tick(), uint64(0))
			testutil.AssertEqual(t, "fresh users", len(f.engine.World().UserIDs()), 0)
		})
	}
}

func TestEngine_Leaderboard(t *testing.T) {
	f := newFixture(t)

	if _, err := f.engine.World().Sell(player, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.engine.World().Inventory(admin)

	if err := f.engine.Leaderboard(admin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recs := f.rec.Records()
	board := recs[0].Message.Data.([]game.Standing)
	testutil.AssertEqual(t, "rows", len(board), 2)
	testutil.AssertEqual(t, "ties broken by id", board[0].UserID, player)
	testutil.AssertEqual(t, "score", board[0].Score, uint64(12))
	testutil.AssertEqual(t, "no toast", strings.Join(f.toasts(admin), ""), "")
}
