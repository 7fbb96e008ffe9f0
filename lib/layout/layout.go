// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/keyweave/keyweave/lib/action"
	"github.com/keyweave/keyweave/lib/board"
	"github.com/keyweave/keyweave/lib/keymap"
)

// File is a parsed layout file.
type File struct {
	Name   string       `json:"name"`
	Layers [][][]string `json:"layers"`
}

// Load reads and parses the layout at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	file, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return file, nil
}

// Parse parses layout JSONC.
func Parse(data []byte) (*File, error) {
	var file File
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, err
	}
	if len(file.Layers) == 0 {
		return nil, errors.New("layout has no layers")
	}
	return &file, nil
}

// Dimensions returns the geometry of the first layer and the layer
// count. Grid checks that every layer agrees.
func (f *File) Dimensions() board.Dimensions {
	dims := board.Dimensions{Layers: len(f.Layers)}
	if len(f.Layers[0]) > 0 {
		dims.Rows = len(f.Layers[0])
		dims.Cols = len(f.Layers[0][0])
	}
	return dims
}

// Grid resolves every cell to an action and checks the result against
// dims.
func (f *File) Grid(dims board.Dimensions) (keymap.Grid, error) {
	grid := make(keymap.Grid, len(f.Layers))
	var errs []error
	for layer, rows := range f.Layers {
		grid[layer] = make([][]action.KeyAction, len(rows))
		for row, cols := range rows {
			grid[layer][row] = make([]action.KeyAction, len(cols))
			for col, name := range cols {
				parsed, err := action.Parse(name)
				if err != nil {
					errs = append(errs, fmt.Errorf("layer %d row %d col %d: %w", layer, row, col, err))
					continue
				}
				grid[layer][row][col] = parsed
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := grid.Check(dims); err != nil {
		return nil, err
	}
	return grid, nil
}
