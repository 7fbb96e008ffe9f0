// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package keymap

import (
	"context"
	"errors"
	"log/slog"

	"github.com/keyweave/keyweave/lib/board"
	"github.com/keyweave/keyweave/lib/storage"
)

// Persister loads and saves keymap snapshots. *storage.Store
// implements it.
type Persister interface {
	Load(ctx context.Context) (storage.Snapshot, error)
	Save(ctx context.Context, snapshot storage.Snapshot) error
}

// Bootstrap builds the process keymap. With a nil persister the
// keymap holds defaults. Otherwise a stored snapshot of matching
// geometry is loaded; when there is none, or it cannot be used, the
// keymap is seeded from defaults and the seed is saved. Storage
// errors are logged and never returned.
func Bootstrap(ctx context.Context, logger *slog.Logger, dims board.Dimensions, defaults Grid, persister Persister) *Keymap {
	keymap := New(dims, defaults)
	if persister == nil {
		logger.Info("keymap initialized from defaults", "geometry", dims.String())
		return keymap
	}

	snapshot, err := persister.Load(ctx)
	switch {
	case err == nil && snapshot.Dimensions() == dims:
		keymap.restore(snapshot.Actions)
		logger.Info("keymap loaded from storage", "geometry", dims.String())
		return keymap
	case err == nil:
		logger.Warn("stored keymap geometry does not match the board, seeding from defaults",
			"stored", snapshot.Dimensions().String(),
			"geometry", dims.String(),
		)
	case errors.Is(err, storage.ErrNoSnapshot):
		logger.Info("no stored keymap, seeding from defaults", "geometry", dims.String())
	default:
		logger.Warn("loading stored keymap failed, seeding from defaults", "error", err)
	}

	if err := persister.Save(ctx, keymap.Snapshot()); err != nil {
		logger.Warn("saving seeded keymap failed", "error", err)
	}
	return keymap
}
