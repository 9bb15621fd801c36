package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/timvisee/merge-mania/internal/driver"
	"github.com/timvisee/merge-mania/internal/index"
	"github.com/timvisee/merge-mania/internal/storage"
)

// Save writes a snapshot of the world and records it in the index.
func (e *Engine) Save(ctx context.Context) error {
	snap := e.world.Export()
	if err := e.store.Save(snap); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	slog.DebugContext(ctx, "game saved", "tick", snap.Header.Tick, "users", len(snap.Users))

	if e.index == nil {
		return nil
	}

	_, err := e.index.RecordSave(ctx, index.Save{
		GameID:  snap.Header.GameID,
		Tick:    snap.Header.Tick,
		Running: snap.Running,
		Users:   len(snap.Users),
		SavedAt: snap.Header.SavedAt,
	}, e.world.Leaderboard())
	if err != nil {
		return fmt.Errorf("indexing save: %w", err)
	}

	if e.keep > 0 {
		if _, err := e.index.Prune(ctx, e.keep); err != nil {
			return fmt.Errorf("pruning index: %w", err)
		}
	}
	return nil
}

// Saver returns a manager that saves on every driver tick.
func (e *Engine) Saver() driver.Manager {
	return driver.ManagerFunc(e.Save)
}

// Load restores the last snapshot. Any failure leaves the world fresh, so it
// only reports whether a snapshot was restored.
func (e *Engine) Load(ctx context.Context) bool {
	snap, err := e.store.Load()
	if errors.Is(err, storage.ErrNoSnapshot) {
		slog.InfoContext(ctx, "no snapshot found, starting a new game")
		return false
	}
	if err != nil {
		slog.ErrorContext(ctx, "loading snapshot, starting a new game", "error", err)
		return false
	}

	if err := e.world.Import(snap); err != nil {
		slog.ErrorContext(ctx, "importing snapshot, starting a new game", "error", err)
		return false
	}

	unresolved := e.world.Rehydrate()
	slog.InfoContext(ctx, "game loaded",
		"game_id", snap.Header.GameID,
		"tick", snap.Header.Tick,
		"users", len(snap.Users),
		"unresolved", unresolved,
	)
	return true
}
