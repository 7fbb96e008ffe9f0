// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/keyweave/keyweave/lib/board"
	"github.com/keyweave/keyweave/lib/clock"
	"github.com/keyweave/keyweave/lib/config"
	"github.com/keyweave/keyweave/lib/hal"
	"github.com/keyweave/keyweave/lib/keymap"
)

// ReportWriter sends HID input reports. *transport.Writer implements
// it.
type ReportWriter interface {
	WriteReport(ctx context.Context, report []byte) error
}

// Service scans the key matrix, resolves pressed positions through the
// keymap, and reports the result. Its debounce, held-key, and layer
// state outlives each Run.
type Service struct {
	inputs   []hal.InputPin
	outputs  []hal.OutputPin
	keymap   *keymap.Keymap
	dims     board.Dimensions
	interval time.Duration
	clock    clock.Clock

	mu        sync.Mutex
	debouncer *debouncer
	keys      keyState
	scans     uint64

	lastKeyboard []byte
	lastConsumer []byte
}

// New returns a scanner for the matrix wired to inputs and outputs. It
// panics when the pin counts do not match the keymap geometry.
func New(inputs []hal.InputPin, outputs []hal.OutputPin, km *keymap.Keymap, cfg config.MatrixConfig, clk clock.Clock) *Service {
	dims := km.Dimensions()
	if len(inputs) != dims.InputCount() {
		panic(fmt.Sprintf("scan: %d input pins for a %s matrix, want %d", len(inputs), dims, dims.InputCount()))
	}
	if len(outputs) != dims.OutputCount() {
		panic(fmt.Sprintf("scan: %d output pins for a %s matrix, want %d", len(outputs), dims, dims.OutputCount()))
	}
	return &Service{
		inputs:    inputs,
		outputs:   outputs,
		keymap:    km,
		dims:      dims,
		interval:  cfg.ScanInterval,
		clock:     clk,
		debouncer: newDebouncer(dims.Keys(), cfg.DebounceScans),
		keys:      keyState{dims: dims},
	}
}

// Run is the scan-and-report job. Every interval it scans the matrix
// and writes a keyboard or consumer report when that report changed.
// The first scan of each Run reports unconditionally so the host
// resynchronises after a restart. A pin or writer error ends Run.
func (s *Service) Run(ctx context.Context, keyboard, other ReportWriter) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	force := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		keyboardReport, consumerReport, err := s.step()
		if err != nil {
			return fmt.Errorf("scanning matrix: %w", err)
		}

		if force || !bytes.Equal(keyboardReport, s.lastKeyboard) {
			if err := keyboard.WriteReport(ctx, keyboardReport); err != nil {
				return err
			}
			s.lastKeyboard = keyboardReport
		}
		if force || !bytes.Equal(consumerReport, s.lastConsumer) {
			if err := other.WriteReport(ctx, consumerReport); err != nil {
				return err
			}
			s.lastConsumer = consumerReport
		}
		force = false
	}
}

// step scans once, applies the debounced changes, and returns the
// resulting reports.
func (s *Service) step() (keyboardReport, consumerReport []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.scanLocked()
	if err != nil {
		return nil, nil, err
	}
	if len(changed) > 0 {
		s.keymap.View(func(view *keymap.View) {
			for _, position := range changed {
				if !s.debouncer.pressed(position) {
					s.keys.release(position)
					continue
				}
				row, col := position/s.dims.Cols, position%s.dims.Cols
				s.keys.press(position, s.keys.resolve(view, row, col))
			}
		})
	}
	return s.keys.keyboardReport(), s.keys.consumerReport(), nil
}

// scanLocked drives each output in turn and reads every input,
// returning the positions whose debounced state flipped.
func (s *Service) scanLocked() ([]int, error) {
	var changed []int
	for output, drive := range s.outputs {
		if err := drive.SetHigh(); err != nil {
			return nil, fmt.Errorf("driving output %d: %w", output, err)
		}
		for input, sense := range s.inputs {
			high, err := sense.IsHigh()
			if err != nil {
				readErr := fmt.Errorf("reading input %d: %w", input, err)
				if releaseErr := drive.SetLow(); releaseErr != nil {
					return nil, errors.Join(readErr, fmt.Errorf("releasing output %d: %w", output, releaseErr))
				}
				return nil, readErr
			}
			row, col := board.Position(input, output)
			position := row*s.dims.Cols + col
			if s.debouncer.update(position, high) {
				changed = append(changed, position)
			}
		}
		if err := drive.SetLow(); err != nil {
			return nil, fmt.Errorf("releasing output %d: %w", output, err)
		}
	}
	s.scans++
	return changed, nil
}

// Scans returns the number of completed matrix scans across every Run.
func (s *Service) Scans() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scans
}

// ActiveLayers returns the active layer set as a bitmask.
func (s *Service) ActiveLayers() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys.activeLayers()
}
