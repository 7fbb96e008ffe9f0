// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/keyweave/keyweave/lib/action"
	"github.com/keyweave/keyweave/lib/config"
	"github.com/keyweave/keyweave/lib/keymap"
)

// Channel carries configuration packets. *transport.Channel
// implements it.
type Channel interface {
	Receive(ctx context.Context, buf []byte) (int, error)
	Send(ctx context.Context, packet []byte) error
}

// Service answers remote configuration requests against the shared
// keymap. Its request counters outlive each Run.
type Service struct {
	keymap     *keymap.Keymap
	keyboardID []byte
	definition []byte
	logger     *slog.Logger

	mu       sync.Mutex
	requests uint64
	edits    uint64
}

// New returns the configuration service for km identified by cfg.
func New(km *keymap.Keymap, cfg config.ConfigChannelConfig, logger *slog.Logger) *Service {
	return &Service{
		keymap:     km,
		keyboardID: append([]byte(nil), cfg.KeyboardID...),
		definition: cfg.Definition,
		logger:     logger,
	}
}

// Run is the config job. It answers one response per request until
// ctx is cancelled or the channel fails.
func (s *Service) Run(ctx context.Context, channel Channel) error {
	request := make([]byte, PacketSize)
	for {
		clear(request)
		n, err := channel.Receive(ctx, request)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		if err := channel.Send(ctx, s.Handle(request)); err != nil {
			return err
		}
	}
}

// Requests returns the number of requests handled across every Run.
func (s *Service) Requests() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Edits returns the number of keymap changes applied.
func (s *Service) Edits() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edits
}

// Handle returns the response to one request packet. Requests
// shorter than PacketSize are zero-padded.
func (s *Service) Handle(request []byte) []byte {
	response := make([]byte, PacketSize)
	copy(response, request)

	s.mu.Lock()
	s.requests++
	s.mu.Unlock()

	handled := false
	switch response[0] {
	case CommandGetProtocolVersion:
		binary.BigEndian.PutUint16(response[1:3], ProtocolVersion)
		handled = true
	case CommandGetKeycode:
		handled = s.getKeycode(response)
	case CommandSetKeycode:
		handled = s.setKeycode(response)
	case CommandReset:
		s.keymap.Reset()
		s.countEdit()
		s.logger.Info("keymap reset to defaults")
		handled = true
	case CommandGetLayerCount:
		response[1] = byte(s.keymap.Dimensions().Layers)
		handled = true
	case CommandGetBuffer:
		handled = s.getBuffer(response)
	case CommandVendor:
		handled = s.vendor(response)
	}
	if !handled {
		response[0] = CommandUnhandled
	}
	return response
}

func (s *Service) countEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits++
}

func (s *Service) getKeycode(response []byte) bool {
	layer, row, col := int(response[1]), int(response[2]), int(response[3])
	if _, ok := s.keymap.Dimensions().Index(layer, row, col); !ok {
		return false
	}
	keycode := s.keymap.ActionAt(layer, row, col).Keycode()
	binary.BigEndian.PutUint16(response[4:6], keycode)
	return true
}

func (s *Service) setKeycode(response []byte) bool {
	layer, row, col := int(response[1]), int(response[2]), int(response[3])
	keycode := binary.BigEndian.Uint16(response[4:6])
	replacement, ok := action.FromKeycode(keycode)
	if !ok {
		s.logger.Warn("rejected unknown keycode", "keycode", keycode)
		return false
	}
	if err := s.keymap.SetAction(layer, row, col, replacement); err != nil {
		s.logger.Warn("rejected keymap edit", "error", err)
		return false
	}
	s.countEdit()
	s.logger.Info("keymap edited",
		"layer", layer,
		"row", row,
		"col", col,
		"action", replacement.String(),
	)
	return true
}

func (s *Service) getBuffer(response []byte) bool {
	offset := int(binary.BigEndian.Uint16(response[1:3]))
	size := int(response[3])
	if size > bufferPayload {
		return false
	}
	// Positions past the end of the keymap read as No, keycode zero.
	payload := response[4 : 4+size]
	s.keymap.View(func(view *keymap.View) {
		for i := range payload {
			position := offset + i
			keycode := view.ActionAtIndex(position / 2).Keycode()
			if position%2 == 0 {
				payload[i] = byte(keycode >> 8)
			} else {
				payload[i] = byte(keycode)
			}
		}
	})
	return true
}

func (s *Service) vendor(response []byte) bool {
	switch response[1] {
	case VendorKeyboardID:
		copy(response[2:2+config.KeyboardIDSize], s.keyboardID)
		return true
	case VendorDefinitionSize:
		binary.BigEndian.PutUint32(response[2:6], uint32(len(s.definition)))
		return true
	case VendorDefinitionPage:
		page := int(binary.BigEndian.Uint16(response[2:4]))
		payload := response[4:]
		clear(payload)
		if start := page * DefinitionPageSize; start < len(s.definition) {
			copy(payload, s.definition[start:])
		}
		return true
	default:
		return false
	}
}
