// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package keymap holds the one shared keymap of a running keyboard.
//
// The keymap is read by the scanner, written by the remote
// configuration service, and snapshotted by the persistence job. Every
// access is a closure: [Keymap.View] lends a read-only [View] and
// [Keymap.Update] a mutable [Edit]. Both are invalid once the closure
// returns, and using one afterwards panics, so no caller can hold the
// keymap across a blocking operation.
//
// [Bootstrap] builds the keymap at startup from storage or defaults.
package keymap
