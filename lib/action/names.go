// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package action

import (
	"fmt"
	"strconv"
	"strings"
)

var keyNames = map[string]uint8{
	"ENTER": KeyEnter, "ESC": KeyEscape, "BSPC": KeyBackspace, "TAB": KeyTab,
	"SPACE": KeySpace, "MINUS": 0x2D, "EQUAL": 0x2E, "LBRC": 0x2F, "RBRC": 0x30,
	"BSLS": 0x31, "SCLN": 0x33, "QUOT": 0x34, "GRV": 0x35, "COMM": 0x36,
	"DOT": 0x37, "SLSH": 0x38, "CAPS": KeyCapsLock,
	"RIGHT": KeyRight, "LEFT": KeyLeft, "DOWN": KeyDown, "UP": KeyUp,
	"LCTRL": 0xE0, "LSHIFT": 0xE1, "LALT": 0xE2, "LGUI": 0xE3,
	"RCTRL": 0xE4, "RSHIFT": 0xE5, "RALT": 0xE6, "RGUI": 0xE7,
}

var mediaNames = map[string]uint8{
	"MUTE": MediaMute, "VOLU": MediaVolumeUp, "VOLD": MediaVolumeDn,
	"MNXT": MediaNext, "MPRV": MediaPrevious, "MSTP": MediaStop, "MPLY": MediaPlayPause,
}

var modifierWrappers = map[string]uint8{
	"LCTL": ModLeftCtrl, "LSFT": ModLeftShift, "LALT": ModLeftAlt, "LGUI": ModLeftGUI,
	"RCTL": ModRightCtrl, "RSFT": ModRightShift, "RALT": ModRightAlt, "RGUI": ModRightGUI,
}

func init() {
	for i := uint8(0); i < 26; i++ {
		keyNames[string(rune('A'+i))] = KeyA + i
	}
	for i := uint8(1); i <= 9; i++ {
		keyNames[strconv.Itoa(int(i))] = Key1 + i - 1
	}
	keyNames["0"] = Key0
	for i := uint8(1); i <= 12; i++ {
		keyNames["F"+strconv.Itoa(int(i))] = KeyF1 + i - 1
	}
	for name, code := range keyNames {
		codeNames[code] = name
	}
	for name, code := range mediaNames {
		mediaCodeNames[code] = name
	}
}

var (
	codeNames      = make(map[uint8]string)
	mediaCodeNames = make(map[uint8]string)
)

// Parse reads an action name. Accepted forms are NO, TRNS (or _), a key
// name such as A, 1, F5, ENTER, or LSHIFT, a media name such as MUTE,
// MO(n), TG(n), and a modifier wrapper such as LCTL(C). Names are case
// insensitive.
func Parse(name string) (KeyAction, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	switch upper {
	case "NO", "":
		return No(), nil
	case "TRNS", "_":
		return Transparent(), nil
	}
	if code, ok := keyNames[upper]; ok {
		return Key(code), nil
	}
	if code, ok := mediaNames[upper]; ok {
		return Media(code), nil
	}

	open := strings.IndexByte(upper, '(')
	if open <= 0 || !strings.HasSuffix(upper, ")") {
		return No(), fmt.Errorf("unknown action %q", name)
	}
	function, argument := upper[:open], upper[open+1:len(upper)-1]

	switch function {
	case "MO", "TG":
		layer, err := strconv.ParseUint(argument, 10, 8)
		if err != nil || layer >= uint64(keycodeLayerSpan) {
			return No(), fmt.Errorf("invalid layer in %q", name)
		}
		if function == "MO" {
			return Momentary(uint8(layer)), nil
		}
		return Toggle(uint8(layer)), nil
	}

	modifier, ok := modifierWrappers[function]
	if !ok {
		return No(), fmt.Errorf("unknown action %q", name)
	}
	inner, err := Parse(argument)
	if err != nil {
		return No(), err
	}
	if inner.Kind != KindKey {
		return No(), fmt.Errorf("modifier %s applied to non-key %q", function, argument)
	}
	inner.Modifiers |= modifier
	return inner, nil
}

// String returns the name Parse accepts for a.
func (a KeyAction) String() string {
	switch a.Kind {
	case KindNo:
		return "NO"
	case KindTransparent:
		return "TRNS"
	case KindLayerMomentary:
		return fmt.Sprintf("MO(%d)", a.Layer)
	case KindLayerToggle:
		return fmt.Sprintf("TG(%d)", a.Layer)
	case KindMedia:
		if name, ok := mediaCodeNames[a.Code]; ok {
			return name
		}
		return fmt.Sprintf("MEDIA(0x%02X)", a.Code)
	}

	base, ok := codeNames[a.Code]
	if !ok {
		base = fmt.Sprintf("0x%02X", a.Code)
	}
	for _, wrapper := range []string{"LCTL", "LSFT", "LALT", "LGUI", "RCTL", "RSFT", "RALT", "RGUI"} {
		if a.Modifiers&modifierWrappers[wrapper] != 0 {
			base = wrapper + "(" + base + ")"
		}
	}
	return base
}
