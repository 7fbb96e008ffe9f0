// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/keyweave/keyweave/lib/action"
	"github.com/keyweave/keyweave/lib/board"
	"github.com/keyweave/keyweave/lib/hal"
	"github.com/keyweave/keyweave/lib/remote"
	"github.com/keyweave/keyweave/lib/transport/loopback"
)

const commandHelp = `commands:
  press ROW COL          close a switch
  release ROW COL        open a switch
  tap ROW COL            press, hold past the debounce, release
  edit LAYER ROW COL KEY set a key over the configuration channel
  reset                  restore the default keymap
  leds MASK              send host lock state (1 num, 2 caps, 4 scroll)
  disconnect             drop the USB link
  help                   show this list
  quit                   stop the keyboard`

// command is one parsed stdin line.
type command struct {
	verb   string
	layer  int
	row    int
	col    int
	action action.KeyAction
	leds   byte
}

// parseCommand parses line against dims. A blank line parses to a
// command with an empty verb.
func parseCommand(line string, dims board.Dimensions) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, nil
	}
	cmd := command{verb: strings.ToLower(fields[0])}
	args := fields[1:]

	switch cmd.verb {
	case "press", "release", "tap":
		if len(args) != 2 {
			return command{}, fmt.Errorf("usage: %s ROW COL", cmd.verb)
		}
		var err error
		if cmd.row, cmd.col, err = parsePosition(args[0], args[1], dims); err != nil {
			return command{}, err
		}
	case "edit":
		if len(args) != 4 {
			return command{}, fmt.Errorf("usage: edit LAYER ROW COL KEY")
		}
		layer, err := strconv.Atoi(args[0])
		if err != nil || layer < 0 || layer >= dims.Layers {
			return command{}, fmt.Errorf("layer %q out of range 0..%d", args[0], dims.Layers-1)
		}
		cmd.layer = layer
		if cmd.row, cmd.col, err = parsePosition(args[1], args[2], dims); err != nil {
			return command{}, err
		}
		if cmd.action, err = action.Parse(args[3]); err != nil {
			return command{}, err
		}
	case "leds":
		if len(args) != 1 {
			return command{}, fmt.Errorf("usage: leds MASK")
		}
		mask, err := strconv.ParseUint(args[0], 0, 8)
		if err != nil {
			return command{}, fmt.Errorf("invalid led mask %q", args[0])
		}
		cmd.leds = byte(mask)
	case "reset", "disconnect", "help", "quit":
		if len(args) != 0 {
			return command{}, fmt.Errorf("%s takes no arguments", cmd.verb)
		}
	default:
		return command{}, fmt.Errorf("unknown command %q (try help)", cmd.verb)
	}
	return cmd, nil
}

func parsePosition(rowText, colText string, dims board.Dimensions) (int, int, error) {
	row, err := strconv.Atoi(rowText)
	if err != nil || row < 0 || row >= dims.Rows {
		return 0, 0, fmt.Errorf("row %q out of range 0..%d", rowText, dims.Rows-1)
	}
	col, err := strconv.Atoi(colText)
	if err != nil || col < 0 || col >= dims.Cols {
		return 0, 0, fmt.Errorf("col %q out of range 0..%d", colText, dims.Cols-1)
	}
	return row, col, nil
}

// setKeycodePacket builds the configuration request that stores a at
// (layer, row, col).
func setKeycodePacket(layer, row, col int, a action.KeyAction) []byte {
	packet := make([]byte, remote.PacketSize)
	packet[0] = remote.CommandSetKeycode
	packet[1], packet[2], packet[3] = byte(layer), byte(row), byte(col)
	binary.BigEndian.PutUint16(packet[4:6], a.Keycode())
	return packet
}

// session applies commands to the simulated hardware and host.
type session struct {
	matrix *hal.Matrix
	host   *loopback.Host

	// hold is how long tap keeps a switch closed.
	hold time.Duration
}

func (s *session) execute(ctx context.Context, cmd command) error {
	switch cmd.verb {
	case "press":
		s.matrix.Press(cmd.row, cmd.col)
	case "release":
		s.matrix.Release(cmd.row, cmd.col)
	case "tap":
		s.matrix.Press(cmd.row, cmd.col)
		select {
		case <-ctx.Done():
		case <-time.After(s.hold):
		}
		s.matrix.Release(cmd.row, cmd.col)
	case "edit":
		return s.host.SendConfig(ctx, setKeycodePacket(cmd.layer, cmd.row, cmd.col, cmd.action))
	case "reset":
		packet := make([]byte, remote.PacketSize)
		packet[0] = remote.CommandReset
		return s.host.SendConfig(ctx, packet)
	case "leds":
		return s.host.SendLEDs(ctx, cmd.leds)
	case "disconnect":
		s.host.Disconnect()
	}
	return nil
}
