package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/timvisee/merge-mania/internal/broadcast"
	"github.com/timvisee/merge-mania/internal/catalog"
	"github.com/timvisee/merge-mania/internal/game"
	"github.com/timvisee/merge-mania/internal/index"
	"github.com/timvisee/merge-mania/internal/lang"
	"github.com/timvisee/merge-mania/internal/outpost"
	"github.com/timvisee/merge-mania/internal/storage"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrOutpostsDisabled = errors.New("outposts are not configured")
)

// SnapshotStore persists snapshots of the world.
type SnapshotStore interface {
	Save(storage.SnapshotV1) error
	Load() (storage.SnapshotV1, error)
}

// SaveIndex records every save along with the leaderboard at that moment.
type SaveIndex interface {
	RecordSave(ctx context.Context, s index.Save, board []game.Standing) (int64, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// Engine is the action surface the transport drives. Every method checks the
// acting user's permissions, applies the action to the world and broadcasts
// the result.
type Engine struct {
	world *game.World
	bc    *broadcast.Broadcaster
	texts *lang.Texts
	store SnapshotStore

	index   SaveIndex
	keep    int
	issuer  *outpost.Issuer
	reward  game.Reward
	players []uint32
	now     func() time.Time
}

func New(world *game.World, bc *broadcast.Broadcaster, texts *lang.Texts, store SnapshotStore, opts ...EngineOpt) *Engine {
	e := &Engine{
		world: world,
		bc:    bc,
		texts: texts,
		store: store,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// World returns the world the engine drives.
func (e *Engine) World() *game.World {
	return e.world
}

func (e *Engine) requirePlay(userID uint32, action string) error {
	if !e.world.Permissions(userID).Play {
		return e.deny(userID, action, "game")
	}
	return nil
}

func (e *Engine) requireAdmin(userID uint32, action string) error {
	if !e.world.Permissions(userID).Admin {
		return e.deny(userID, action, "admin")
	}
	return nil
}

func (e *Engine) deny(userID uint32, action, role string) error {
	slog.Warn("permission denied", "user", userID, "action", action, "role", role)
	e.logPublish(userID, e.bc.Toast(userID, e.texts.MustRender(lang.PermissionDenied, nil)))
	return ErrPermissionDenied
}

// publish broadcasts ch and toasts every item the user discovered in it.
func (e *Engine) publish(ch game.Change) error {
	if err := e.bc.Change(ch); err != nil {
		return err
	}
	for _, ref := range ch.Discovered {
		e.logPublish(ch.UserID, e.bc.Toast(ch.UserID, e.texts.MustRender(lang.Discovered, struct{ Name string }{e.itemName(ref)})))
	}
	return nil
}

func (e *Engine) itemName(ref catalog.ItemRef) string {
	if item, ok := e.world.Catalog().Lookup(ref); ok {
		return item.Name
	}
	return ref.String()
}

func (e *Engine) gameState() broadcast.GameState {
	return broadcast.GameState{
		Running: e.world.Running(),
		Tick:    e.world.Tick(),
		GameID:  e.world.GameID().String(),
	}
}

// GetGame sends the game state, plus the full inventory for players.
func (e *Engine) GetGame(userID uint32) error {
	if err := e.bc.GameState(userID, e.gameState()); err != nil {
		return err
	}
	if !e.world.Permissions(userID).Play {
		return nil
	}
	return e.bc.Inventory(userID, e.world.Inventory(userID))
}

// SetRunning starts or stops the game and tells everyone.
func (e *Engine) SetRunning(userID uint32, running bool) error {
	if err := e.requireAdmin(userID, "set_running"); err != nil {
		return err
	}

	if e.world.SetRunning(running) {
		slog.Info("game state changed", "running", running, "user", userID)
	}
	return e.bc.GameStateAll(e.gameState())
}

// Reset starts a new round and resends every player's starting inventory.
func (e *Engine) Reset(userID uint32) error {
	if err := e.requireAdmin(userID, "reset"); err != nil {
		return err
	}

	e.world.Reset()
	slog.Info("game reset", "user", userID, "game_id", e.world.GameID())

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	keep(e.bc.GameStateAll(e.gameState()))
	for _, id := range e.players {
		keep(e.bc.Inventory(id, e.world.Inventory(id)))
	}
	return firstErr
}

func (e *Engine) GetInventory(userID uint32) error {
	if err := e.requirePlay(userID, "get_inventory"); err != nil {
		return err
	}
	return e.bc.Inventory(userID, e.world.Inventory(userID))
}

func (e *Engine) GetStats(userID uint32) error {
	if err := e.requirePlay(userID, "get_stats"); err != nil {
		return err
	}
	return e.bc.Stats(userID, e.world.Stats(userID))
}

func (e *Engine) Swap(userID uint32, cell, other int) error {
	if err := e.requirePlay(userID, "swap"); err != nil {
		return err
	}
	ch, err := e.world.Swap(userID, cell, other)
	if err != nil {
		return err
	}
	return e.bc.Change(ch)
}

func (e *Engine) Merge(userID uint32, cell, other int) error {
	if err := e.requirePlay(userID, "merge"); err != nil {
		return err
	}
	ch, err := e.world.Merge(userID, cell, other)
	if err != nil {
		return err
	}
	return e.publish(ch)
}

// Buy buys ref into cell. When the user cannot pay they get a toast and a
// full inventory so the client drops any optimistic update.
func (e *Engine) Buy(userID uint32, cell int, ref catalog.ItemRef) error {
	if err := e.requirePlay(userID, "buy"); err != nil {
		return err
	}
	ch, err := e.world.Buy(userID, cell, ref)
	if errors.Is(err, game.ErrInsufficientResources) {
		e.logPublish(userID, e.bc.Toast(userID, e.texts.MustRender(lang.InsufficientResources, struct{ Item string }{e.itemName(ref)})))
		e.logPublish(userID, e.bc.Inventory(userID, e.world.Inventory(userID)))
		return err
	}
	if err != nil {
		return err
	}
	return e.publish(ch)
}

func (e *Engine) Sell(userID uint32, cell int) error {
	if err := e.requirePlay(userID, "sell"); err != nil {
		return err
	}
	ch, err := e.world.Sell(userID, cell)
	if err != nil {
		return err
	}
	return e.bc.Change(ch)
}

// ScanCode redeems an outpost token. An empty token is a mock scan of a
// random outpost, available to admins only.
func (e *Engine) ScanCode(userID uint32, token string) error {
	if err := e.requirePlay(userID, "scan_code"); err != nil {
		return err
	}

	mock := token == ""
	var id uint32
	if mock {
		if err := e.requireAdmin(userID, "mock_scan"); err != nil {
			return err
		}
		if e.issuer != nil && e.issuer.Count() > 0 {
			id = rand.Uint32N(e.issuer.Count())
		}
	} else {
		if e.issuer == nil {
			e.rejectScan(userID, lang.CodeInvalid)
			return ErrOutpostsDisabled
		}
		var err error
		id, err = e.issuer.Validate(token, e.now())
		if err != nil {
			slog.Warn("invalid outpost token", "user", userID, "error", err)
			e.rejectScan(userID, lang.CodeInvalid)
			return err
		}
	}

	ch, err := e.world.ScanCode(userID, id, e.reward)
	switch {
	case errors.Is(err, game.ErrGameNotRunning):
		e.rejectScan(userID, lang.GameNotRunning)
		return err
	case errors.Is(err, game.ErrOutpostRepeated):
		e.rejectScan(userID, lang.CodeRepeated)
		return err
	case err != nil:
		e.rejectScan(userID, lang.InternalError)
		return err
	}

	text := e.texts.MustRender(lang.CodeReward, ch.Credit)
	if mock {
		text = e.texts.MustRender(lang.MockScan, nil)
	}
	e.logPublish(userID, e.bc.CodeResult(userID, true, ch.Credit))
	e.logPublish(userID, e.bc.Toast(userID, text))
	return e.bc.Change(ch)
}

func (e *Engine) rejectScan(userID uint32, key lang.Key) {
	e.logPublish(userID, e.bc.CodeResult(userID, false, game.Reward{}))
	e.logPublish(userID, e.bc.Toast(userID, e.texts.MustRender(key, nil)))
}

// Leaderboard sends the ranked users to an admin.
func (e *Engine) Leaderboard(userID uint32) error {
	if err := e.requireAdmin(userID, "leaderboard"); err != nil {
		return err
	}
	return e.bc.Leaderboard(userID, e.world.Leaderboard())
}

// OutpostToken sends the current token of an outpost to an admin, for
// display at the outpost.
func (e *Engine) OutpostToken(userID uint32, id uint32) error {
	if err := e.requireAdmin(userID, "outpost_token"); err != nil {
		return err
	}
	if e.issuer == nil {
		return ErrOutpostsDisabled
	}
	if n := e.issuer.Count(); n > 0 && id >= n {
		return fmt.Errorf("outpost %d out of range [0, %d)", id, n)
	}
	return e.bc.OutpostToken(userID, id, e.issuer.Token(id, e.now()))
}

// Tick advances the world one tick and broadcasts every change.
func (e *Engine) Tick(ctx context.Context) error {
	var firstErr error
	for _, ch := range e.world.Advance() {
		if err := e.publish(ch); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (e *Engine) logPublish(userID uint32, err error) {
	if err != nil {
		slog.Error("broadcast failed", "user", userID, "error", err)
	}
}
