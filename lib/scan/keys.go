// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"encoding/binary"

	"github.com/keyweave/keyweave/lib/action"
	"github.com/keyweave/keyweave/lib/board"
	"github.com/keyweave/keyweave/lib/keymap"
)

// KeyboardReportSize is the length of a boot keyboard report:
// modifiers, reserved, and six key slots.
const KeyboardReportSize = 8

// ConsumerReportSize is the length of a consumer control report: one
// little-endian usage.
const ConsumerReportSize = 2

// heldKey is a pressed position and the action it resolved to when
// pressed. Release acts on the same action even if layers changed.
type heldKey struct {
	position int
	action   action.KeyAction
}

// keyState is the layer and held-key state.
type keyState struct {
	dims      board.Dimensions
	held      []heldKey
	momentary [board.MaxLayers]int
	toggled   uint32
}

// activeLayers returns the set of active layers as a bitmask. Layer 0
// is always active.
func (s *keyState) activeLayers() uint32 {
	active := uint32(1) | s.toggled
	for layer, count := range s.momentary {
		if count > 0 {
			active |= 1 << layer
		}
	}
	return active
}

// resolve returns the action for (row, col): the one on the highest
// active layer that is not transparent.
func (s *keyState) resolve(view *keymap.View, row, col int) action.KeyAction {
	active := s.activeLayers()
	for layer := s.dims.Layers - 1; layer >= 0; layer-- {
		if active&(1<<layer) == 0 {
			continue
		}
		if resolved := view.Action(layer, row, col); resolved.Kind != action.KindTransparent {
			return resolved
		}
	}
	return action.No()
}

func (s *keyState) press(position int, resolved action.KeyAction) {
	switch resolved.Kind {
	case action.KindLayerMomentary:
		if int(resolved.Layer) < s.dims.Layers {
			s.momentary[resolved.Layer]++
		}
	case action.KindLayerToggle:
		if int(resolved.Layer) < s.dims.Layers && resolved.Layer > 0 {
			s.toggled ^= 1 << resolved.Layer
		}
	}
	s.held = append(s.held, heldKey{position: position, action: resolved})
}

func (s *keyState) release(position int) {
	for i, key := range s.held {
		if key.position != position {
			continue
		}
		if key.action.Kind == action.KindLayerMomentary && int(key.action.Layer) < s.dims.Layers {
			s.momentary[key.action.Layer]--
		}
		s.held = append(s.held[:i], s.held[i+1:]...)
		return
	}
}

// keyboardReport builds the boot keyboard report from the held keys
// in press order. Keys beyond the sixth are dropped.
func (s *keyState) keyboardReport() []byte {
	report := make([]byte, KeyboardReportSize)
	slot := 2
	for _, key := range s.held {
		if key.action.Kind != action.KindKey {
			continue
		}
		report[0] |= key.action.Modifiers
		if key.action.IsModifierKey() {
			report[0] |= 1 << (key.action.Code - action.KeyLeftCtrl)
			continue
		}
		if key.action.Code != 0 && slot < KeyboardReportSize {
			report[slot] = key.action.Code
			slot++
		}
	}
	return report
}

// consumerReport carries the most recently pressed media key.
func (s *keyState) consumerReport() []byte {
	report := make([]byte, ConsumerReportSize)
	for i := len(s.held) - 1; i >= 0; i-- {
		if s.held[i].action.Kind == action.KindMedia {
			binary.LittleEndian.PutUint16(report, action.ConsumerUsage(s.held[i].action.Code))
			break
		}
	}
	return report
}
