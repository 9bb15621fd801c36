package driver

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultTickLength = time.Second
)

type Manager interface {
	Tick(context.Context) error
}

// ManagerFunc adapts a function to a Manager.
type ManagerFunc func(context.Context) error

func (f ManagerFunc) Tick(ctx context.Context) error {
	return f(ctx)
}

// Driver ticks its managers on a fixed wall-clock interval until the context
// is cancelled. A failing manager is logged and retried on the next tick.
type Driver struct {
	name       string
	tickLength time.Duration
	managers   []Manager
}

func NewDriver(name string, managers []Manager, opts ...DriverOpt) *Driver {
	d := &Driver{
		name:       name,
		tickLength: DefaultTickLength,
		managers:   managers,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Driver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()

	slog.InfoContext(ctx, "driver started", "driver", d.name, "interval", d.tickLength)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick runs every manager once and returns the number that failed.
func (d *Driver) Tick(ctx context.Context) int {
	failed := 0
	for i, m := range d.managers {
		if err := m.Tick(ctx); err != nil {
			failed++
			slog.ErrorContext(ctx, "manager tick failed", "driver", d.name, "manager", i, "error", err)
		}
	}
	return failed
}
