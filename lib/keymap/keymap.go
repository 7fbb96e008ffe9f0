// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package keymap

import (
	"fmt"
	"sync"

	"github.com/keyweave/keyweave/lib/action"
	"github.com/keyweave/keyweave/lib/board"
	"github.com/keyweave/keyweave/lib/storage"
)

// Grid is a keymap laid out as [layer][row][col].
type Grid [][][]action.KeyAction

// Check reports whether the grid has exactly the shape of dims.
func (g Grid) Check(dims board.Dimensions) error {
	if len(g) != dims.Layers {
		return fmt.Errorf("grid has %d layers, board has %d", len(g), dims.Layers)
	}
	for layer, rows := range g {
		if len(rows) != dims.Rows {
			return fmt.Errorf("grid layer %d has %d rows, board has %d", layer, len(rows), dims.Rows)
		}
		for row, cols := range rows {
			if len(cols) != dims.Cols {
				return fmt.Errorf("grid layer %d row %d has %d columns, board has %d",
					layer, row, len(cols), dims.Cols)
			}
		}
	}
	return nil
}

// Fill returns a grid of dims with every cell set to fill.
func Fill(dims board.Dimensions, fill action.KeyAction) Grid {
	grid := make(Grid, dims.Layers)
	for layer := range grid {
		grid[layer] = make([][]action.KeyAction, dims.Rows)
		for row := range grid[layer] {
			grid[layer][row] = make([]action.KeyAction, dims.Cols)
			for col := range grid[layer][row] {
				grid[layer][row][col] = fill
			}
		}
	}
	return grid
}

func (g Grid) flatten(dims board.Dimensions) []action.KeyAction {
	flat := make([]action.KeyAction, 0, dims.Size())
	for _, rows := range g {
		for _, cols := range rows {
			flat = append(flat, cols...)
		}
	}
	return flat
}

// Keymap is the shared mutable keymap. Its size is fixed at
// construction. All access goes through View and Update, whose
// closures run with the keymap locked; a closure must not block or
// call back into the Keymap.
type Keymap struct {
	mu       sync.Mutex
	dims     board.Dimensions
	actions  []action.KeyAction
	defaults []action.KeyAction
	revision uint64
	changed  chan struct{}
}

// New returns a keymap holding defaults. It panics when defaults does
// not have the shape of dims.
func New(dims board.Dimensions, defaults Grid) *Keymap {
	if err := dims.Validate(); err != nil {
		panic("keymap: " + err.Error())
	}
	if err := defaults.Check(dims); err != nil {
		panic("keymap: " + err.Error())
	}
	flat := defaults.flatten(dims)
	return &Keymap{
		dims:     dims,
		actions:  append([]action.KeyAction(nil), flat...),
		defaults: flat,
		changed:  make(chan struct{}, 1),
	}
}

// Dimensions returns the keymap geometry.
func (k *Keymap) Dimensions() board.Dimensions { return k.dims }

// View is a read-only borrow of the keymap, valid only inside the
// closure passed to Keymap.View or Keymap.Update.
type View struct {
	keymap *Keymap
	live   bool
}

func (v *View) check() {
	if !v.live {
		panic("keymap: view used outside its closure")
	}
}

// Dimensions returns the keymap geometry.
func (v *View) Dimensions() board.Dimensions {
	v.check()
	return v.keymap.dims
}

// Action returns the action at (layer, row, col). Coordinates outside
// the keymap read as No.
func (v *View) Action(layer, row, col int) action.KeyAction {
	v.check()
	index, ok := v.keymap.dims.Index(layer, row, col)
	if !ok {
		return action.No()
	}
	return v.keymap.actions[index]
}

// ActionAtIndex returns the action at a flat layer, row, column
// offset, or No past the end.
func (v *View) ActionAtIndex(index int) action.KeyAction {
	v.check()
	if index < 0 || index >= len(v.keymap.actions) {
		return action.No()
	}
	return v.keymap.actions[index]
}

// Revision returns the number of modifications since construction.
func (v *View) Revision() uint64 {
	v.check()
	return v.keymap.revision
}

// Edit is a mutable borrow of the keymap, valid only inside the
// closure passed to Keymap.Update.
type Edit struct {
	View
	modified bool
}

// Set stores a at (layer, row, col). It returns false when the
// coordinates are outside the keymap.
func (e *Edit) Set(layer, row, col int, a action.KeyAction) bool {
	e.check()
	index, ok := e.keymap.dims.Index(layer, row, col)
	if !ok {
		return false
	}
	if e.keymap.actions[index] != a {
		e.keymap.actions[index] = a
		e.modified = true
	}
	return true
}

// Reset restores every cell to the defaults given at construction.
func (e *Edit) Reset() {
	e.check()
	for index, a := range e.keymap.defaults {
		if e.keymap.actions[index] != a {
			e.keymap.actions[index] = a
			e.modified = true
		}
	}
}

// View runs fn with a read-only borrow of the keymap.
func (k *Keymap) View(fn func(*View)) {
	k.mu.Lock()
	defer k.mu.Unlock()

	view := &View{keymap: k, live: true}
	defer func() { view.live = false }()
	fn(view)
}

// Update runs fn with a mutable borrow of the keymap. If fn changed
// anything, the revision is incremented and Changed fires.
func (k *Keymap) Update(fn func(*Edit)) {
	k.mu.Lock()
	defer k.mu.Unlock()

	edit := &Edit{View: View{keymap: k, live: true}}
	defer func() {
		edit.live = false
		if edit.modified {
			k.revision++
			select {
			case k.changed <- struct{}{}:
			default:
			}
		}
	}()
	fn(edit)
}

// Changed delivers a value after one or more modifications.
// Notifications coalesce: a slow reader sees one value for many
// updates.
func (k *Keymap) Changed() <-chan struct{} { return k.changed }

// Revision returns the number of modifications since construction.
func (k *Keymap) Revision() (revision uint64) {
	k.View(func(v *View) { revision = v.Revision() })
	return revision
}

// ActionAt returns the action at (layer, row, col).
func (k *Keymap) ActionAt(layer, row, col int) (a action.KeyAction) {
	k.View(func(v *View) { a = v.Action(layer, row, col) })
	return a
}

// SetAction stores a at (layer, row, col).
func (k *Keymap) SetAction(layer, row, col int, a action.KeyAction) error {
	var ok bool
	k.Update(func(e *Edit) { ok = e.Set(layer, row, col, a) })
	if !ok {
		return fmt.Errorf("position (%d, %d, %d) outside keymap %s", layer, row, col, k.dims)
	}
	return nil
}

// Reset restores the defaults.
func (k *Keymap) Reset() {
	k.Update(func(e *Edit) { e.Reset() })
}

// Snapshot implements storage.Source.
func (k *Keymap) Snapshot() storage.Snapshot {
	var snapshot storage.Snapshot
	k.View(func(v *View) {
		snapshot = storage.Snapshot{
			Rows:    k.dims.Rows,
			Cols:    k.dims.Cols,
			Layers:  k.dims.Layers,
			Actions: append([]action.KeyAction(nil), k.actions...),
		}
	})
	return snapshot
}

// restore replaces the contents without counting a modification. Only
// Bootstrap calls it, before the keymap is shared.
func (k *Keymap) restore(actions []action.KeyAction) {
	k.mu.Lock()
	defer k.mu.Unlock()
	copy(k.actions, actions)
}
