// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package firmware

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keyweave/keyweave/lib/board"
	"github.com/keyweave/keyweave/lib/clock"
	"github.com/keyweave/keyweave/lib/config"
	"github.com/keyweave/keyweave/lib/flash"
	"github.com/keyweave/keyweave/lib/hal"
	"github.com/keyweave/keyweave/lib/keymap"
	"github.com/keyweave/keyweave/lib/transport"
	"github.com/keyweave/keyweave/lib/version"
)

// Option adjusts the runtime environment of the entry points.
type Option func(*options)

type options struct {
	logger *slog.Logger
	clock  clock.Clock
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock sets the clock driving the matrix scan and the restart
// backoff. The default is the real clock.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clock = clk }
}

func resolveOptions(opts []Option) options {
	resolved := options{logger: slog.Default(), clock: clock.Real()}
	for _, opt := range opts {
		opt(&resolved)
	}
	return resolved
}

// Run runs the keyboard with the default configuration, identified to
// remote configurators by keyboardID and keyboardDef. device may be
// nil for a keyboard without keymap storage. Run returns only when ctx
// is cancelled.
func Run[G board.Geometry](
	ctx context.Context,
	driver transport.Driver,
	inputs []hal.InputPin,
	outputs []hal.OutputPin,
	device flash.Device,
	defaults keymap.Grid,
	keyboardID []byte,
	keyboardDef []byte,
	opts ...Option,
) {
	cfg := config.Default()
	cfg.ConfigChannel.KeyboardID = keyboardID
	cfg.ConfigChannel.Definition = keyboardDef
	RunWithConfig[G](ctx, driver, inputs, outputs, device, defaults, *cfg, opts...)
}

// RunWithConfig runs the keyboard with cfg. Omitted configuration
// fields take their defaults. device may be a blocking flash.Flash, a
// flash.AsyncFlash, or nil.
func RunWithConfig[G board.Geometry](
	ctx context.Context,
	driver transport.Driver,
	inputs []hal.InputPin,
	outputs []hal.OutputPin,
	device flash.Device,
	defaults keymap.Grid,
	cfg config.Config,
	opts ...Option,
) {
	RunWithAsyncFlash[G](ctx, driver, inputs, outputs, flash.Asyncify(device), defaults, cfg.WithDefaults(), opts...)
}

// RunWithAsyncFlash bootstraps the keymap from device, assembles the
// services, and supervises them until ctx is cancelled. It panics
// when the pins or the default grid do not match G.
func RunWithAsyncFlash[G board.Geometry](
	ctx context.Context,
	driver transport.Driver,
	inputs []hal.InputPin,
	outputs []hal.OutputPin,
	device flash.AsyncFlash,
	defaults keymap.Grid,
	cfg config.Config,
	opts ...Option,
) {
	o := resolveOptions(opts)
	dims := board.Of[G]()
	checkWiring(dims, inputs, outputs, defaults)

	o.logger.Info("keyboard starting",
		"build", version.Current(),
		"geometry", dims.String(),
		"col2row", board.Col2Row,
		"storage", device != nil,
	)

	km, store := bootstrap(ctx, o.logger, dims, defaults, device, cfg.Persistence)
	supervise(ctx, assemble(km, store, driver, inputs, outputs, cfg, o))
}

// checkWiring panics when the hardware handed to an entry point does
// not match the board geometry.
func checkWiring(dims board.Dimensions, inputs []hal.InputPin, outputs []hal.OutputPin, defaults keymap.Grid) {
	if len(inputs) != dims.InputCount() {
		panic(fmt.Sprintf("firmware: %s board needs %d input pins, got %d", dims, dims.InputCount(), len(inputs)))
	}
	if len(outputs) != dims.OutputCount() {
		panic(fmt.Sprintf("firmware: %s board needs %d output pins, got %d", dims, dims.OutputCount(), len(outputs)))
	}
	if err := defaults.Check(dims); err != nil {
		panic("firmware: default keymap: " + err.Error())
	}
}
