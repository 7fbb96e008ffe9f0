// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package scan turns key matrix readings into HID reports.
//
// Each scan drives the output pins one at a time and samples every
// input; which axis is driven follows the board wiring direction. A
// position changes state only after its reading has held for the
// configured number of scans. Pressed positions resolve through the
// keymap's active layers, highest first, with transparent cells
// falling through; momentary and toggle layer keys update the active
// set. The held keys produce an 8-byte boot keyboard report and a
// consumer control report.
package scan
