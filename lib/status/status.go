// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package status drives the lock indicator outputs from the host's
// keyboard LED reports.
package status

import (
	"context"
	"fmt"
	"sync"

	"github.com/keyweave/keyweave/lib/config"
)

// LED report bits, as sent by the host in keyboard output reports.
const (
	NumLock    byte = 1 << 0
	CapsLock   byte = 1 << 1
	ScrollLock byte = 1 << 2
)

// ReportReader receives HID output reports. *transport.Reader
// implements it.
type ReportReader interface {
	ReadReport(ctx context.Context, buf []byte) (int, error)
}

// indicator is one wired output and the report bit it follows.
type indicator struct {
	name string
	bit  byte
	cfg  config.Indicator
}

// Service mirrors the host lock state onto indicator pins. The last
// state received outlives each Run.
type Service struct {
	indicators []indicator

	mu    sync.Mutex
	state byte
}

// New returns a service for the indicators in cfg. Indicators without
// a pin are skipped.
func New(cfg config.StatusConfig) *Service {
	service := &Service{}
	for _, candidate := range []indicator{
		{name: "num_lock", bit: NumLock, cfg: cfg.NumLock},
		{name: "caps_lock", bit: CapsLock, cfg: cfg.CapsLock},
		{name: "scroll_lock", bit: ScrollLock, cfg: cfg.ScrollLock},
	} {
		if candidate.cfg.Pin != nil {
			service.indicators = append(service.indicators, candidate)
		}
	}
	return service
}

// Run is the status job. It applies the last known state, then every
// LED report, until ctx is cancelled or a read or pin write fails.
func (s *Service) Run(ctx context.Context, reader ReportReader) error {
	if err := s.apply(s.State()); err != nil {
		return err
	}
	buf := make([]byte, 8)
	for {
		n, err := reader.ReadReport(ctx, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		s.mu.Lock()
		s.state = buf[0]
		s.mu.Unlock()
		if err := s.apply(buf[0]); err != nil {
			return err
		}
	}
}

// State returns the last LED report byte received.
func (s *Service) State() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) apply(state byte) error {
	for _, ind := range s.indicators {
		lit := state&ind.bit != 0
		// An active-low indicator lights when its pin is driven low.
		high := lit != ind.cfg.ActiveLow
		var err error
		if high {
			err = ind.cfg.Pin.SetHigh()
		} else {
			err = ind.cfg.Pin.SetLow()
		}
		if err != nil {
			return fmt.Errorf("setting %s indicator: %w", ind.name, err)
		}
	}
	return nil
}
