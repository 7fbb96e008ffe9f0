// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/keyweave/keyweave/lib/action"
	"github.com/keyweave/keyweave/lib/board"
	"github.com/keyweave/keyweave/lib/clock"
	"github.com/keyweave/keyweave/lib/config"
	"github.com/keyweave/keyweave/lib/hal"
	"github.com/keyweave/keyweave/lib/keymap"
	"github.com/keyweave/keyweave/lib/testutil"
)

var dims = board.Dimensions{Rows: 2, Cols: 2, Layers: 2}

var matrixConfig = config.MatrixConfig{ScanInterval: time.Millisecond, DebounceScans: 2}

func testKeymap() *keymap.Keymap {
	return keymap.New(dims, keymap.Grid{
		{
			{action.Key(action.KeyA), action.Momentary(1)},
			{action.Media(action.MediaMute), action.WithModifiers(action.ModLeftShift, action.Key1)},
		},
		{
			{action.Key(action.KeyEscape), action.Transparent()},
			{action.Toggle(1), action.Transparent()},
		},
	})
}

// recordingWriter queues every report it is given.
type recordingWriter struct {
	reports chan []byte
	err     error
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{reports: make(chan []byte, 32)}
}

func (w *recordingWriter) WriteReport(_ context.Context, report []byte) error {
	if w.err != nil {
		return w.err
	}
	w.reports <- append([]byte(nil), report...)
	return nil
}

// harness runs a Service against a virtual matrix on a fake clock.
type harness struct {
	t        *testing.T
	clock    *clock.FakeClock
	matrix   *hal.Matrix
	service  *Service
	keyboard *recordingWriter
	other    *recordingWriter
	done     chan error
	cancel   context.CancelFunc
}

func newHarness(t *testing.T) *harness {
	matrix := hal.NewMatrix(dims)
	fake := clock.Fake(time.Unix(0, 0))
	h := &harness{
		t:        t,
		clock:    fake,
		matrix:   matrix,
		service:  New(matrix.Inputs(), matrix.Outputs(), testKeymap(), matrixConfig, fake),
		keyboard: newRecordingWriter(),
		other:    newRecordingWriter(),
	}
	h.start()
	t.Cleanup(func() { h.stop() })

	// The first scan of a Run always reports.
	h.tick(1)
	h.expectKeyboard(make([]byte, KeyboardReportSize))
	h.expectOther(make([]byte, ConsumerReportSize))
	return h
}

func (h *harness) start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan error, 1)
	go func() { h.done <- h.service.Run(ctx, h.keyboard, h.other) }()
	h.clock.WaitForTimers(1)
}

func (h *harness) stop() error {
	if h.cancel == nil {
		return nil
	}
	h.cancel()
	h.cancel = nil
	return testutil.RequireReceive(h.t, h.done, 5*time.Second, "Run return")
}

// tick advances the clock one interval at a time and waits for each
// scan to complete.
func (h *harness) tick(n int) {
	h.t.Helper()
	for range n {
		want := h.service.Scans() + 1
		h.clock.Advance(matrixConfig.ScanInterval)
		deadline := time.Now().Add(5 * time.Second)
		for h.service.Scans() < want {
			if time.Now().After(deadline) {
				h.t.Fatalf("scan %d did not complete", want)
			}
			time.Sleep(100 * time.Microsecond)
		}
	}
}

func (h *harness) tap(row, col int, pressed bool) {
	h.t.Helper()
	if pressed {
		h.matrix.Press(row, col)
	} else {
		h.matrix.Release(row, col)
	}
	h.tick(matrixConfig.DebounceScans)
}

func (h *harness) expectKeyboard(want []byte) {
	h.t.Helper()
	got := testutil.RequireReceive(h.t, h.keyboard.reports, 5*time.Second, "keyboard report")
	if !bytes.Equal(got, want) {
		h.t.Fatalf("keyboard report = %x, want %x", got, want)
	}
}

func (h *harness) expectOther(want []byte) {
	h.t.Helper()
	got := testutil.RequireReceive(h.t, h.other.reports, 5*time.Second, "consumer report")
	if !bytes.Equal(got, want) {
		h.t.Fatalf("consumer report = %x, want %x", got, want)
	}
}

func (h *harness) expectNoReports() {
	h.t.Helper()
	select {
	case report := <-h.keyboard.reports:
		h.t.Fatalf("unexpected keyboard report %x", report)
	case report := <-h.other.reports:
		h.t.Fatalf("unexpected consumer report %x", report)
	default:
	}
}

func TestPressAndRelease(t *testing.T) {
	h := newHarness(t)

	h.matrix.Press(0, 0)
	h.tick(1)
	h.expectNoReports()
	h.tick(1)
	h.expectKeyboard([]byte{0, 0, action.KeyA, 0, 0, 0, 0, 0})

	h.tap(0, 0, false)
	h.expectKeyboard(make([]byte, KeyboardReportSize))
	h.expectNoReports()
}

func TestModifiedKey(t *testing.T) {
	h := newHarness(t)

	h.tap(1, 1, true)
	h.expectKeyboard([]byte{action.ModLeftShift, 0, action.Key1, 0, 0, 0, 0, 0})
}

func TestMediaKeyUsesConsumerReport(t *testing.T) {
	h := newHarness(t)

	h.tap(1, 0, true)
	h.expectOther([]byte{0xE2, 0x00})
	h.tap(1, 0, false)
	h.expectOther([]byte{0x00, 0x00})
	h.expectNoReports()
}

func TestMomentaryLayer(t *testing.T) {
	h := newHarness(t)

	h.tap(0, 1, true)
	h.expectNoReports()
	if got := h.service.ActiveLayers(); got != 0b11 {
		t.Fatalf("ActiveLayers() = %b, want 11", got)
	}

	h.tap(0, 0, true)
	h.expectKeyboard([]byte{0, 0, action.KeyEscape, 0, 0, 0, 0, 0})

	// Transparent on layer 1 falls through to layer 0.
	h.tap(1, 1, true)
	h.expectKeyboard([]byte{action.ModLeftShift, 0, action.KeyEscape, action.Key1, 0, 0, 0, 0})

	// The layer key releases first; the held keys keep their actions.
	h.tap(0, 1, false)
	if got := h.service.ActiveLayers(); got != 0b01 {
		t.Fatalf("ActiveLayers() = %b, want 1", got)
	}
	h.expectNoReports()
	h.tap(0, 0, false)
	h.expectKeyboard([]byte{action.ModLeftShift, 0, action.Key1, 0, 0, 0, 0, 0})
}

func TestToggleLayerSurvivesRestart(t *testing.T) {
	h := newHarness(t)

	// Reach the toggle through the momentary layer.
	h.tap(0, 1, true)
	h.tap(1, 0, true)
	h.tap(1, 0, false)
	h.tap(0, 1, false)
	if got := h.service.ActiveLayers(); got != 0b11 {
		t.Fatalf("ActiveLayers() = %b, want 11 after toggle", got)
	}
	scans := h.service.Scans()

	if err := h.stop(); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	h.start()
	h.tick(1)
	h.expectKeyboard(make([]byte, KeyboardReportSize))
	h.expectOther(make([]byte, ConsumerReportSize))

	if got := h.service.ActiveLayers(); got != 0b11 {
		t.Errorf("ActiveLayers() after restart = %b, want 11", got)
	}
	if got := h.service.Scans(); got != scans+1 {
		t.Errorf("Scans() after restart = %d, want %d", got, scans+1)
	}

	h.tap(0, 0, true)
	h.expectKeyboard([]byte{0, 0, action.KeyEscape, 0, 0, 0, 0, 0})
}

func TestRolloverDropsSeventhKey(t *testing.T) {
	large := board.Dimensions{Rows: 2, Cols: 4, Layers: 1}
	grid := keymap.Fill(large, action.No())
	for i := range 8 {
		grid[0][i/4][i%4] = action.Key(action.KeyA + uint8(i))
	}
	matrix := hal.NewMatrix(large)
	fake := clock.Fake(time.Unix(0, 0))
	service := New(matrix.Inputs(), matrix.Outputs(), keymap.New(large, grid), config.MatrixConfig{ScanInterval: time.Millisecond, DebounceScans: 1}, fake)

	for i := range 8 {
		matrix.Press(i/4, i%4)
	}
	keyboardReport, _, err := service.step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if keyboardReport[0] != 0 {
		t.Errorf("modifiers = %x, want none", keyboardReport[0])
	}
	seen := map[byte]bool{}
	for _, code := range keyboardReport[2:] {
		if code < action.KeyA || code > action.KeyA+7 || seen[code] {
			t.Fatalf("report = %x, want six distinct pressed keys", keyboardReport)
		}
		seen[code] = true
	}
}

func TestPinErrorEndsRun(t *testing.T) {
	h := newHarness(t)
	pinFault := errors.New("pin fault")
	h.matrix.FailNextRead(pinFault)
	h.clock.Advance(matrixConfig.ScanInterval)

	err := testutil.RequireReceive(t, h.done, 5*time.Second, "Run return")
	h.cancel()
	h.cancel = nil
	if !errors.Is(err, pinFault) {
		t.Errorf("Run() = %v, want the pin fault", err)
	}
}

// faultyInput fails every read.
type faultyInput struct{ err error }

func (p faultyInput) IsHigh() (bool, error) { return false, p.err }

// stuckOutput drives high but fails to release.
type stuckOutput struct{ err error }

func (p stuckOutput) SetHigh() error { return nil }
func (p stuckOutput) SetLow() error  { return p.err }

func TestReadErrorReportsReleaseFailure(t *testing.T) {
	readFault := errors.New("input floating")
	releaseFault := errors.New("output stuck high")
	inputs := make([]hal.InputPin, dims.InputCount())
	for i := range inputs {
		inputs[i] = faultyInput{err: readFault}
	}
	outputs := make([]hal.OutputPin, dims.OutputCount())
	for i := range outputs {
		outputs[i] = stuckOutput{err: releaseFault}
	}

	fake := clock.Fake(time.Unix(0, 0))
	service := New(inputs, outputs, testKeymap(), matrixConfig, fake)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx, newRecordingWriter(), newRecordingWriter()) }()
	fake.WaitForTimers(1)
	fake.Advance(matrixConfig.ScanInterval)

	err := testutil.RequireReceive(t, done, 5*time.Second, "Run return")
	if !errors.Is(err, readFault) {
		t.Errorf("Run() = %v, want the read fault", err)
	}
	if !errors.Is(err, releaseFault) {
		t.Errorf("Run() = %v, want the release fault joined", err)
	}
}

func TestWriterErrorEndsRun(t *testing.T) {
	h := newHarness(t)
	writeFault := errors.New("endpoint stalled")
	h.keyboard.err = writeFault
	h.tap(0, 0, true)

	err := testutil.RequireReceive(t, h.done, 5*time.Second, "Run return")
	h.cancel()
	h.cancel = nil
	if !errors.Is(err, writeFault) {
		t.Errorf("Run() = %v, want the write fault", err)
	}
}

func TestNewPanicsOnPinCountMismatch(t *testing.T) {
	matrix := hal.NewMatrix(dims)
	defer func() {
		if recover() == nil {
			t.Error("New did not panic on a missing input pin")
		}
	}()
	New(matrix.Inputs()[:1], matrix.Outputs(), testKeymap(), matrixConfig, clock.Fake(time.Unix(0, 0)))
}

func TestDebouncerRejectsBounce(t *testing.T) {
	d := newDebouncer(1, 3)
	for i, reading := range []bool{true, false, true, true} {
		if d.update(0, reading) {
			t.Fatalf("reading %d flipped the state early", i)
		}
	}
	if !d.update(0, true) {
		t.Fatal("third consecutive reading did not flip the state")
	}
	if !d.pressed(0) {
		t.Error("pressed(0) = false after the flip")
	}
}
