package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/timvisee/merge-mania/cmd/mergemania/command"
	"github.com/timvisee/merge-mania/internal/config"
)

func main() {
	defaultPath := os.Getenv("MERGEMANIA_CONFIG")
	if defaultPath == "" {
		defaultPath = "config.toml"
	}
	path := flag.String("config", defaultPath, "path to the config file (toml or yaml)")
	flag.Parse()

	if err := run(*path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := command.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := command.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating application: %w", err)
	}

	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("running application: %w", err)
	}

	slog.Info("exiting")
	return nil
}
