// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package remote implements live keymap configuration over the HID
// configuration endpoint.
//
// Requests and responses are 32-byte packets. Byte 0 selects the
// command; the response echoes the request with results written in
// place, or carries [CommandUnhandled] in byte 0. Keycodes use the
// 16-bit encoding of package action. Vendor commands expose the
// keyboard id and the keyboard definition, paged so configurators can
// match the board without a separate file.
package remote
