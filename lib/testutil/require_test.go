// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// fatalRecorder captures Fatalf instead of stopping the test. Callers
// of the helpers under test never reach past a real Fatalf, so the
// recorder only checks the message.
type fatalRecorder struct {
	message string
}

func (r *fatalRecorder) Helper() {}

func (r *fatalRecorder) Fatalf(format string, args ...any) {
	r.message = fmt.Sprintf(format, args...)
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	if got := RequireReceive(t, ch, time.Second, "value"); got != 7 {
		t.Errorf("RequireReceive = %d, want 7", got)
	}

	var recorder fatalRecorder
	RequireReceive(&recorder, make(chan int), time.Millisecond, "keyboard report")
	if !strings.HasPrefix(recorder.message, "keyboard report: nothing received") {
		t.Errorf("timeout message = %q", recorder.message)
	}

	closed := make(chan int)
	close(closed)
	recorder = fatalRecorder{}
	RequireReceive(&recorder, closed, time.Second, "reports")
	if !strings.Contains(recorder.message, "closed") {
		t.Errorf("closed message = %q", recorder.message)
	}
}

func TestRequireSend(t *testing.T) {
	ch := make(chan string, 1)
	RequireSend(t, ch, "packet", time.Second, "packet")
	if got := <-ch; got != "packet" {
		t.Errorf("sent %q, want packet", got)
	}

	var recorder fatalRecorder
	RequireSend(&recorder, make(chan string), "packet", time.Millisecond, "request")
	if !strings.HasPrefix(recorder.message, "request: not accepted") {
		t.Errorf("timeout message = %q", recorder.message)
	}
}

func TestRequireClosed(t *testing.T) {
	done := make(chan struct{})
	close(done)
	RequireClosed(t, done, time.Second, "done")

	var recorder fatalRecorder
	RequireClosed(&recorder, make(chan struct{}), time.Millisecond, "Run return")
	if !strings.HasPrefix(recorder.message, "Run return: still open") {
		t.Errorf("timeout message = %q", recorder.message)
	}
}

func TestRecordingLogger(t *testing.T) {
	logger, handler := NewRecordingLogger(2)
	logger.With("task", "keyboard").Error("task failed", "error", "boom")

	record := RequireReceive(t, handler.Records, time.Second, "record")
	if record.Message != "task failed" {
		t.Errorf("Message = %q, want task failed", record.Message)
	}
	if task, ok := Attr(record, "task"); !ok || task.String() != "keyboard" {
		t.Errorf("task attr = %v, %v; want keyboard", task, ok)
	}
	if _, ok := Attr(record, "slot"); ok {
		t.Error("Attr found an attribute that was never set")
	}
}
