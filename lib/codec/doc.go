// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration used for everything the
// firmware writes to flash.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same keymap always produces the same bytes and therefore the same
// record digest. Decoding is strict: unknown fields, duplicate keys,
// indefinite lengths and trailing data are all errors, and container
// sizes are bounded so a corrupt length cannot allocate the host out
// of memory.
//
//	data, err := codec.Marshal(snapshot)
//	err = codec.Unmarshal(data, &snapshot)
package codec
