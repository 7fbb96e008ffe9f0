// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"github.com/keyweave/keyweave/firmware"
	"github.com/keyweave/keyweave/lib/board"
	"github.com/keyweave/keyweave/lib/config"
	"github.com/keyweave/keyweave/lib/flash"
	"github.com/keyweave/keyweave/lib/hal"
	"github.com/keyweave/keyweave/lib/keymap"
	"github.com/keyweave/keyweave/lib/transport"
)

type macropad struct{}

func (macropad) Rows() int   { return 2 }
func (macropad) Cols() int   { return 3 }
func (macropad) Layers() int { return 2 }

type numpad struct{}

func (numpad) Rows() int   { return 5 }
func (numpad) Cols() int   { return 4 }
func (numpad) Layers() int { return 2 }

var (
	//go:embed layouts/macropad.jsonc
	macropadLayout []byte

	//go:embed layouts/numpad.jsonc
	numpadLayout []byte
)

// runFunc is firmware.RunWithConfig instantiated for one geometry.
type runFunc func(
	ctx context.Context,
	driver transport.Driver,
	inputs []hal.InputPin,
	outputs []hal.OutputPin,
	device flash.Device,
	defaults keymap.Grid,
	cfg config.Config,
	opts ...firmware.Option,
)

// simBoard is one board the simulator can run.
type simBoard struct {
	dims   board.Dimensions
	layout []byte
	run    runFunc
}

var boards = map[string]simBoard{
	"macropad": {dims: board.Of[macropad](), layout: macropadLayout, run: firmware.RunWithConfig[macropad]},
	"numpad":    {dims: board.Of[numpad](), layout: numpadLayout, run: firmware.RunWithConfig[numpad]},
}

func lookupBoard(name string) (simBoard, error) {
	selected, ok := boards[name]
	if !ok {
		return simBoard{}, fmt.Errorf("unknown board %q (available: %s)", name, strings.Join(boardNames(), ", "))
	}
	return selected, nil
}

func boardNames() []string {
	names := make([]string, 0, len(boards))
	for name := range boards {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
