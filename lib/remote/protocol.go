// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package remote

// PacketSize is the length of every request and response.
const PacketSize = 32

// ProtocolVersion is reported by CommandGetProtocolVersion.
const ProtocolVersion uint16 = 0x000C

// Request commands, in byte 0 of a packet. A response echoes the
// request with results written in place.
const (
	// CommandGetProtocolVersion answers the version in bytes 1..2.
	CommandGetProtocolVersion byte = 0x01

	// CommandGetKeycode takes layer, row, col in bytes 1..3 and
	// answers the keycode in bytes 4..5.
	CommandGetKeycode byte = 0x04

	// CommandSetKeycode takes layer, row, col in bytes 1..3 and the
	// keycode in bytes 4..5.
	CommandSetKeycode byte = 0x05

	// CommandReset restores the default keymap.
	CommandReset byte = 0x06

	// CommandGetLayerCount answers the layer count in byte 1.
	CommandGetLayerCount byte = 0x11

	// CommandGetBuffer takes a byte offset in bytes 1..2 and a size
	// in byte 3, and answers that slice of the keycode buffer from
	// byte 4. The buffer is every keycode, big endian, in layer, row,
	// column order.
	CommandGetBuffer byte = 0x12

	// CommandVendor prefixes the keyweave commands in byte 1.
	CommandVendor byte = 0xFE

	// CommandUnhandled replaces byte 0 of a response to a request
	// that was not understood.
	CommandUnhandled byte = 0xFF
)

// Vendor subcommands, in byte 1 after CommandVendor.
const (
	// VendorKeyboardID answers the 8-byte keyboard id from byte 2.
	VendorKeyboardID byte = 0x00

	// VendorDefinitionSize answers the definition length, big
	// endian, in bytes 2..5.
	VendorDefinitionSize byte = 0x01

	// VendorDefinitionPage takes a page number in bytes 2..3 and
	// answers DefinitionPageSize bytes of the definition from byte 4.
	VendorDefinitionPage byte = 0x02
)

// bufferPayload is the room after the 4-byte buffer and page headers.
const bufferPayload = PacketSize - 4

// DefinitionPageSize is the number of definition bytes per page.
const DefinitionPageSize = bufferPayload
