// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package firmware

import (
	"context"
	"log/slog"

	"github.com/keyweave/keyweave/lib/board"
	"github.com/keyweave/keyweave/lib/config"
	"github.com/keyweave/keyweave/lib/flash"
	"github.com/keyweave/keyweave/lib/hal"
	"github.com/keyweave/keyweave/lib/keymap"
	"github.com/keyweave/keyweave/lib/remote"
	"github.com/keyweave/keyweave/lib/scan"
	"github.com/keyweave/keyweave/lib/status"
	"github.com/keyweave/keyweave/lib/storage"
	"github.com/keyweave/keyweave/lib/supervisor"
	"github.com/keyweave/keyweave/lib/transport"
)

// bootstrap builds the keymap. Without a device there is no store for
// the rest of the run.
func bootstrap(ctx context.Context, logger *slog.Logger, dims board.Dimensions, defaults keymap.Grid, device flash.AsyncFlash, cfg config.PersistenceConfig) (*keymap.Keymap, *storage.Store) {
	if device == nil {
		return keymap.Bootstrap(ctx, logger, dims, defaults, nil), nil
	}
	store := storage.New(ctx, device, cfg, logger)
	return keymap.Bootstrap(ctx, logger, dims, defaults, store), store
}

// services is everything the supervisor owns. Each is created once and
// reused by every generation of jobs.
type services struct {
	keymap     *keymap.Keymap
	store      *storage.Store
	transport  *transport.Device
	scan       *scan.Service
	remote     *remote.Service
	status     *status.Service
	supervisor *supervisor.Supervisor
}

func assemble(km *keymap.Keymap, store *storage.Store, driver transport.Driver, inputs []hal.InputPin, outputs []hal.OutputPin, cfg config.Config, o options) *services {
	return &services{
		keymap:     km,
		store:      store,
		transport:  transport.New(driver, cfg.Transport),
		scan:       scan.New(inputs, outputs, km, cfg.Matrix, o.clock),
		remote:     remote.New(km, cfg.ConfigChannel, o.logger),
		status:     status.New(cfg.Status),
		supervisor: supervisor.New(o.clock, o.logger),
	}
}

// jobs builds one generation of the job tree. The transport and
// keyboard jobs race as a pair, and the pair races the rest.
func (s *services) jobs() supervisor.Branch {
	device := s.transport
	pair := supervisor.Select(
		supervisor.Task("transport", device.Run),
		supervisor.Task("keyboard", func(ctx context.Context) error {
			return s.scan.Run(ctx, device.Keyboard(), device.Other())
		}),
	)
	statusJob := supervisor.Task("status", func(ctx context.Context) error {
		return s.status.Run(ctx, device.LEDs())
	})
	configJob := supervisor.Task("config", func(ctx context.Context) error {
		return s.remote.Run(ctx, device.Config())
	})

	if s.store == nil {
		return supervisor.Select(pair, statusJob, configJob)
	}
	persistenceJob := supervisor.Task("persistence", func(ctx context.Context) error {
		return s.store.Run(ctx, s.keymap)
	})
	return supervisor.Select(pair, persistenceJob, statusJob, configJob)
}

// supervise runs the job tree until ctx is cancelled.
func supervise(ctx context.Context, s *services) {
	s.supervisor.Run(ctx, s.jobs)
}
