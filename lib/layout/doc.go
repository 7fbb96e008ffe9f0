// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// Package layout reads default keymaps written as JSONC: JSON that
// allows comments and trailing commas.
//
//	{
//	  "name": "macropad",
//	  // [layer][row][col]
//	  "layers": [
//	    [["ESC", "MO(1)", "MUTE"], ["LSFT(A)", "B", "C"]],
//	    [["TRNS", "TRNS", "VOLU"], ["1", "2", "3"]],
//	  ],
//	}
//
// Cells use the names accepted by action.Parse.
package layout
