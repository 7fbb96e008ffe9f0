// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"fmt"

	"github.com/keyweave/keyweave/lib/action"
	"github.com/keyweave/keyweave/lib/board"
)

// Snapshot is the unit of persistence: the keymap geometry and every
// action in layer, row, column order.
type Snapshot struct {
	Rows    int                `cbor:"rows"`
	Cols    int                `cbor:"cols"`
	Layers  int                `cbor:"layers"`
	Actions []action.KeyAction `cbor:"actions"`
}

// Dimensions returns the geometry the snapshot was taken from.
func (s Snapshot) Dimensions() board.Dimensions {
	return board.Dimensions{Rows: s.Rows, Cols: s.Cols, Layers: s.Layers}
}

// Validate checks that the geometry is sane and the action list
// covers it exactly.
func (s Snapshot) Validate() error {
	dims := s.Dimensions()
	if err := dims.Validate(); err != nil {
		return err
	}
	if len(s.Actions) != dims.Size() {
		return fmt.Errorf("snapshot %s holds %d actions, want %d", dims, len(s.Actions), dims.Size())
	}
	return nil
}

// Source is what the persistence job saves. Changed delivers a value
// after one or more modifications; Snapshot returns the current state.
type Source interface {
	Snapshot() Snapshot
	Changed() <-chan struct{}
}
