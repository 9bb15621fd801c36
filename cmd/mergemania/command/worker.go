package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-service"
	"github.com/timvisee/merge-mania/internal/broadcast"
	"github.com/timvisee/merge-mania/internal/config"
	"github.com/timvisee/merge-mania/internal/driver"
	"github.com/timvisee/merge-mania/internal/engine"
	"github.com/timvisee/merge-mania/internal/game"
	"github.com/timvisee/merge-mania/internal/index"
	"github.com/timvisee/merge-mania/internal/lang"
	"github.com/timvisee/merge-mania/internal/messaging"
	"github.com/timvisee/merge-mania/internal/outpost"
	"github.com/timvisee/merge-mania/internal/storage"
)

// App is a built server: the engine and the workers that keep it running.
type App struct {
	Engine  *engine.Engine
	Workers service.WorkerList

	index *index.Index
}

// Build wires every component described by cfg. cfg must be valid.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	cat, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}
	world := game.NewWorld(cat, cfg.WorldOptions())

	texts, err := lang.New(cfg.Game.Tag())
	if err != nil {
		return nil, fmt.Errorf("building texts: %w", err)
	}

	nats, err := buildNatsServer(cfg.Nats)
	if err != nil {
		return nil, err
	}
	bc := broadcast.New(messaging.NewNatsPublisher(nats), cfg.Game.BroadcastThreshold)

	opts := []engine.EngineOpt{
		engine.WithPlayers(cfg.PlayerIDs()),
		engine.WithReward(cfg.Outposts.Reward()),
	}
	if cfg.Outposts.Enabled() {
		issuer, err := outpost.NewIssuer(cfg.Outposts.Secret,
			outpost.WithCount(cfg.Outposts.Count),
			outpost.WithInterval(cfg.Outposts.IntervalDuration()),
			outpost.WithValidAround(cfg.Outposts.ValidAround),
		)
		if err != nil {
			return nil, fmt.Errorf("building outpost issuer: %w", err)
		}
		opts = append(opts, engine.WithOutposts(issuer, cfg.Outposts.Reward()))
	}

	app := &App{}
	if cfg.Index.Path != "" {
		idx, err := index.Open(ctx, cfg.Index.Path)
		if err != nil {
			return nil, fmt.Errorf("opening index: %w", err)
		}
		app.index = idx
		opts = append(opts, engine.WithIndex(idx, cfg.Index.Keep))
	}

	eng := engine.New(world, bc, texts, storage.NewSnapshotStore(cfg.Storage.SnapshotPath), opts...)
	if cfg.Game.Reset {
		slog.InfoContext(ctx, "reset requested, ignoring saved game")
	} else {
		eng.Load(ctx)
	}
	app.Engine = eng

	ticker := driver.NewDriver("tick", []driver.Manager{eng},
		driver.WithTickLength(cfg.Game.TickDuration()))
	saver := driver.NewDriver("autosave", []driver.Manager{eng.Saver()},
		driver.WithTickLength(cfg.Game.SaveDuration()))

	app.Workers = service.WorkerList{
		"nats":     nats,
		"tick":     afterReady(nats.Ready(), ticker),
		"autosave": saver,
	}
	return app, nil
}

// Run starts every worker and blocks until ctx is cancelled or a worker
// fails. The game is saved once more before it returns.
func (a *App) Run(ctx context.Context) error {
	runErr := a.Workers.Start(ctx)

	// ctx is done, the final save gets its own
	if err := a.Engine.Save(context.WithoutCancel(ctx)); err != nil {
		slog.Error("final save failed", "error", err)
	} else {
		slog.Info("game saved")
	}

	if a.index != nil {
		if err := a.index.Close(); err != nil {
			slog.Warn("closing index", "error", err)
		}
	}
	return runErr
}

type gatedWorker struct {
	ready  <-chan struct{}
	worker service.Worker
}

// afterReady delays starting w until ready is closed.
func afterReady(ready <-chan struct{}, w service.Worker) service.Worker {
	return &gatedWorker{ready: ready, worker: w}
}

func (g *gatedWorker) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-g.ready:
	}
	return g.worker.Start(ctx)
}
