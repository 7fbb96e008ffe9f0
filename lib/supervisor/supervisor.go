// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/keyweave/keyweave/lib/clock"
)

// DefaultBackoff is the pause between a job dying and the group
// restarting.
const DefaultBackoff = time.Second

// Supervisor races a job group and restarts the whole group, after a
// fixed backoff, whenever any job returns.
type Supervisor struct {
	clock   clock.Clock
	logger  *slog.Logger
	backoff time.Duration

	mu          sync.Mutex
	restarts    int
	lastFailure Outcome
}

// New returns a supervisor pausing DefaultBackoff on clk between
// generations.
func New(clk clock.Clock, logger *slog.Logger) *Supervisor {
	return &Supervisor{clock: clk, logger: logger, backoff: DefaultBackoff}
}

// Run races build() until ctx is cancelled. build is called afresh for
// every generation, so each race gets new job closures over the same
// long-lived services. Run returns only ctx.Err().
func (s *Supervisor) Run(ctx context.Context, build func() Branch) error {
	for {
		outcome := Race(ctx, build())
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.mu.Lock()
		s.lastFailure = outcome
		s.mu.Unlock()

		s.logger.Error(outcome.Name+" task is died",
			"task", outcome.Name,
			"error", outcome.Err,
		)
		s.logger.Warn("Detected failure, restarting keyboard service after 1 second",
			"backoff", s.backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.backoff):
		}

		s.mu.Lock()
		s.restarts++
		s.mu.Unlock()
	}
}

// Restarts returns how many times the group has been restarted.
func (s *Supervisor) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

// LastFailure returns the outcome of the most recent race, or the
// zero Outcome before any job has died.
func (s *Supervisor) LastFailure() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFailure
}
