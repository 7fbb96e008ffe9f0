// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package action defines what a key does when pressed.
//
// A [KeyAction] is a small value: a kind plus the HID usage, modifier
// bits, or layer it refers to. Actions convert to and from the 16-bit
// keycodes used on the remote configuration channel ([KeyAction.Keycode],
// [FromKeycode]) and parse from the names used in layout files
// ([Parse]).
package action

import "fmt"

// Kind selects how a KeyAction is interpreted.
type Kind uint8

const (
	// KindNo does nothing and stops layer fall-through.
	KindNo Kind = iota
	// KindTransparent defers to the next lower active layer.
	KindTransparent
	// KindKey sends Code in the keyboard report with Modifiers held.
	KindKey
	// KindMedia sends the consumer usage for Code on the auxiliary
	// report.
	KindMedia
	// KindLayerMomentary activates Layer while held.
	KindLayerMomentary
	// KindLayerToggle flips Layer on each press.
	KindLayerToggle
)

func (k Kind) String() string {
	switch k {
	case KindNo:
		return "no"
	case KindTransparent:
		return "transparent"
	case KindKey:
		return "key"
	case KindMedia:
		return "media"
	case KindLayerMomentary:
		return "layer_momentary"
	case KindLayerToggle:
		return "layer_toggle"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// KeyAction is one keymap cell. The zero value is No.
type KeyAction struct {
	_ struct{} `cbor:",toarray"`

	Kind      Kind
	Code      uint8
	Modifiers uint8
	Layer     uint8
}

// No returns the action that does nothing.
func No() KeyAction { return KeyAction{} }

// Transparent returns the fall-through action.
func Transparent() KeyAction { return KeyAction{Kind: KindTransparent} }

// Key returns the action sending HID usage code.
func Key(code uint8) KeyAction { return KeyAction{Kind: KindKey, Code: code} }

// WithModifiers returns the action sending code with the given HID
// modifier bits held.
func WithModifiers(modifiers, code uint8) KeyAction {
	return KeyAction{Kind: KindKey, Code: code, Modifiers: modifiers}
}

// Media returns the action sending a media key. Code is one of the
// Media* constants.
func Media(code uint8) KeyAction { return KeyAction{Kind: KindMedia, Code: code} }

// Momentary returns the action holding layer active while pressed.
func Momentary(layer uint8) KeyAction { return KeyAction{Kind: KindLayerMomentary, Layer: layer} }

// Toggle returns the action toggling layer on press.
func Toggle(layer uint8) KeyAction { return KeyAction{Kind: KindLayerToggle, Layer: layer} }

// IsModifierKey reports whether the action is a bare modifier key
// (left control through right GUI).
func (a KeyAction) IsModifierKey() bool {
	return a.Kind == KindKey && a.Code >= KeyLeftCtrl && a.Code <= KeyRightGUI
}

// Equal reports whether two actions are identical.
func (a KeyAction) Equal(other KeyAction) bool {
	return a.Kind == other.Kind && a.Code == other.Code &&
		a.Modifiers == other.Modifiers && a.Layer == other.Layer
}
