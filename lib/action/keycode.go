// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package action

// HID keyboard usages referenced by name.
const (
	KeyA         uint8 = 0x04
	Key1         uint8 = 0x1E
	Key0         uint8 = 0x27
	KeyEnter     uint8 = 0x28
	KeyEscape    uint8 = 0x29
	KeyBackspace uint8 = 0x2A
	KeyTab       uint8 = 0x2B
	KeySpace     uint8 = 0x2C
	KeyCapsLock  uint8 = 0x39
	KeyF1        uint8 = 0x3A
	KeyRight     uint8 = 0x4F
	KeyLeft      uint8 = 0x50
	KeyDown      uint8 = 0x51
	KeyUp        uint8 = 0x52
	KeyLeftCtrl  uint8 = 0xE0
	KeyRightGUI  uint8 = 0xE7
)

// HID modifier bits, in keyboard report order.
const (
	ModLeftCtrl   uint8 = 0x01
	ModLeftShift  uint8 = 0x02
	ModLeftAlt    uint8 = 0x04
	ModLeftGUI    uint8 = 0x08
	ModRightCtrl  uint8 = 0x10
	ModRightShift uint8 = 0x20
	ModRightAlt   uint8 = 0x40
	ModRightGUI   uint8 = 0x80
)

// Media key codes. They share the basic keycode range on the remote
// channel and map to consumer-page usages in the auxiliary report.
const (
	MediaMute      uint8 = 0xA8
	MediaVolumeUp  uint8 = 0xA9
	MediaVolumeDn  uint8 = 0xAA
	MediaNext      uint8 = 0xAB
	MediaPrevious  uint8 = 0xAC
	MediaStop      uint8 = 0xAD
	MediaPlayPause uint8 = 0xAE
)

// ConsumerUsage returns the consumer-page usage for a media code, or 0.
func ConsumerUsage(code uint8) uint16 {
	switch code {
	case MediaMute:
		return 0x00E2
	case MediaVolumeUp:
		return 0x00E9
	case MediaVolumeDn:
		return 0x00EA
	case MediaNext:
		return 0x00B5
	case MediaPrevious:
		return 0x00B6
	case MediaStop:
		return 0x00B7
	case MediaPlayPause:
		return 0x00CD
	default:
		return 0
	}
}

// Remote keycode ranges.
const (
	keycodeNo          uint16 = 0x0000
	keycodeTransparent uint16 = 0x0001
	keycodeModsFirst   uint16 = 0x0100
	keycodeModsLast    uint16 = 0x1FFF
	keycodeMomentary   uint16 = 0x5220
	keycodeToggle      uint16 = 0x5260
	keycodeLayerSpan   uint16 = 0x20
)

// Keycode returns the 16-bit remote keycode for a.
func (a KeyAction) Keycode() uint16 {
	switch a.Kind {
	case KindTransparent:
		return keycodeTransparent
	case KindKey:
		if a.Modifiers == 0 {
			return uint16(a.Code)
		}
		return uint16(packModifiers(a.Modifiers))<<8 | uint16(a.Code)
	case KindMedia:
		return uint16(a.Code)
	case KindLayerMomentary:
		return keycodeMomentary + uint16(a.Layer)
	case KindLayerToggle:
		return keycodeToggle + uint16(a.Layer)
	default:
		return keycodeNo
	}
}

// FromKeycode decodes a remote keycode. Unknown keycodes decode to No
// and false.
func FromKeycode(keycode uint16) (KeyAction, bool) {
	switch {
	case keycode == keycodeNo:
		return No(), true
	case keycode == keycodeTransparent:
		return Transparent(), true
	case keycode <= 0x00FF:
		code := uint8(keycode)
		if ConsumerUsage(code) != 0 {
			return Media(code), true
		}
		if code < KeyA {
			return No(), false
		}
		return Key(code), true
	case keycode >= keycodeModsFirst && keycode <= keycodeModsLast:
		return WithModifiers(unpackModifiers(uint8(keycode>>8)), uint8(keycode)), true
	case keycode >= keycodeMomentary && keycode < keycodeMomentary+keycodeLayerSpan:
		return Momentary(uint8(keycode - keycodeMomentary)), true
	case keycode >= keycodeToggle && keycode < keycodeToggle+keycodeLayerSpan:
		return Toggle(uint8(keycode - keycodeToggle)), true
	default:
		return No(), false
	}
}

// The remote channel packs modifiers into five bits: control, shift,
// alt, GUI, and a right-hand flag applying to all four.
func packModifiers(modifiers uint8) uint8 {
	if modifiers&0x0F == 0 && modifiers&0xF0 != 0 {
		return modifiers>>4 | 0x10
	}
	return modifiers & 0x0F
}

func unpackModifiers(packed uint8) uint8 {
	if packed&0x10 != 0 {
		return (packed & 0x0F) << 4
	}
	return packed & 0x0F
}
