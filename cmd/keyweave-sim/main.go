// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

// keyweave-sim runs the keyboard firmware on the host. The key matrix
// is virtual, the USB link is an in-process loopback, and keymap
// storage is an optional flash image file, so a saved keymap survives
// from one run to the next exactly as it would across power cycles.
//
// Switches are driven with commands on stdin (press, release, tap,
// edit, ...; "help" lists them). Every report the firmware sends to
// the host is printed on stdout as one JSON object per line. Logs go
// to stderr, or to a rotated file with --log-file.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/keyweave/keyweave/firmware"
	"github.com/keyweave/keyweave/lib/board"
	"github.com/keyweave/keyweave/lib/config"
	"github.com/keyweave/keyweave/lib/flash"
	"github.com/keyweave/keyweave/lib/hal"
	"github.com/keyweave/keyweave/lib/keymap"
	"github.com/keyweave/keyweave/lib/layout"
	"github.com/keyweave/keyweave/lib/process"
	"github.com/keyweave/keyweave/lib/transport/loopback"
	"github.com/keyweave/keyweave/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath string
		flashPath  string
		eraseSize  uint32
		boardName  string
		keymapPath string
		logLevel   string
		logFile    string
	)

	flagSet := pflag.NewFlagSet("keyweave-sim", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to keyweave.yaml (default: $KEYWEAVE_CONFIG, then built-in defaults)")
	flagSet.StringVar(&flashPath, "flash", "", "flash image file for keymap storage (created when missing; no storage when empty)")
	flagSet.Uint32Var(&eraseSize, "erase-size", 4096, "flash sector size in bytes")
	flagSet.StringVar(&boardName, "board", "macropad", "board to simulate: "+strings.Join(boardNames(), ", "))
	flagSet.StringVar(&keymapPath, "keymap", "", "JSONC default keymap (default: the board's built-in layout)")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, or error")
	flagSet.StringVar(&logFile, "log-file", "", "write JSON logs to this file, rotated at 10 MB, instead of stderr")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match other keyweave binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("keyweave-sim")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	var logOutput io.Writer = os.Stderr
	if logFile != "" {
		rotating := &lumberjack.Logger{Filename: logFile, MaxSize: 10, MaxBackups: 3}
		defer rotating.Close()
		logOutput = rotating
	}
	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{Level: level}))

	selected, err := lookupBoard(boardName)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defaults, err := loadDefaults(selected, keymapPath)
	if err != nil {
		return err
	}

	var device flash.Device
	if flashPath != "" {
		image, err := openImage(flashPath, eraseSize, cfg.Persistence)
		if err != nil {
			return err
		}
		defer image.Close()
		device = image
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	matrix := hal.NewMatrix(selected.dims)
	host := loopback.New()

	firmwareDone := make(chan struct{})
	go func() {
		defer close(firmwareDone)
		selected.run(ctx, host, matrix.Inputs(), matrix.Outputs(), device, defaults, *cfg, firmware.WithLogger(logger))
	}()
	go func() {
		if err := printReports(ctx, host, os.Stdout); err != nil {
			logger.Error("writing reports failed", "error", err)
			cancel()
		}
	}()

	sim := &session{matrix: matrix, host: host, hold: tapHold(cfg.Matrix)}
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Fprintln(os.Stderr, commandHelp)
	}
	err = readCommands(ctx, os.Stdin, os.Stderr, interactive, selected.dims, sim)

	cancel()
	<-firmwareDone
	return err
}

// loadConfig reads path, or $KEYWEAVE_CONFIG when path is empty, or
// falls back to the defaults when neither is set.
func loadConfig(path string) (*config.Config, error) {
	switch {
	case path != "":
		return config.LoadFile(path)
	case os.Getenv("KEYWEAVE_CONFIG") != "":
		return config.Load()
	default:
		return config.Default(), nil
	}
}

// openImage opens the flash image at path, sized to hold the
// persistence region in sectors of eraseSize bytes.
func openImage(path string, eraseSize uint32, persistence config.PersistenceConfig) (*flash.File, error) {
	if eraseSize == 0 {
		return nil, errors.New("--erase-size must be positive")
	}
	sectors := int(persistence.StartAddress/eraseSize) + persistence.Sectors
	return flash.OpenFile(path, sectors, eraseSize)
}

// loadDefaults returns the default keymap from path, or the board's
// built-in layout when path is empty.
func loadDefaults(selected simBoard, path string) (keymap.Grid, error) {
	var file *layout.File
	var err error
	if path != "" {
		file, err = layout.Load(path)
	} else {
		file, err = layout.Parse(selected.layout)
	}
	if err != nil {
		return nil, err
	}
	return file.Grid(selected.dims)
}

// tapHold keeps a tapped switch closed for two scans past the debounce
// threshold.
func tapHold(matrix config.MatrixConfig) time.Duration {
	return matrix.ScanInterval * time.Duration(matrix.DebounceScans+2)
}

// readCommands executes one command per line of input until quit, end
// of input, or ctx is cancelled. Bad lines are reported to errOutput
// and skipped.
func readCommands(ctx context.Context, input io.Reader, errOutput io.Writer, prompt bool, dims board.Dimensions, sim *session) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		if prompt {
			fmt.Fprint(errOutput, "> ")
		}
		var line string
		select {
		case <-ctx.Done():
			return nil
		case next, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			line = next
		}

		cmd, err := parseCommand(line, dims)
		if err != nil {
			fmt.Fprintf(errOutput, "error: %v\n", err)
			continue
		}
		switch cmd.verb {
		case "":
			continue
		case "quit":
			return nil
		case "help":
			fmt.Fprintln(errOutput, commandHelp)
			continue
		}
		if err := sim.execute(ctx, cmd); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(errOutput, "error: %v\n", err)
		}
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `keyweave-sim runs the keyboard firmware against a virtual matrix.

Reports sent to the host are printed on stdout as JSON lines. Commands
are read from stdin.

Usage:
  keyweave-sim [flags]

Examples:
  # Simulate the macropad without storage
  keyweave-sim

  # Keep the keymap in an image file between runs
  keyweave-sim --board numpad --flash numpad.img

  # Script a session
  printf 'tap 0 0\nedit 0 0 0 A\ntap 0 0\nquit\n' | keyweave-sim

%s

Flags:
`, commandHelp)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
