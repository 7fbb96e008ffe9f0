// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"log/slog"
)

// RecordingHandler sends every record it handles to Records. The
// channel is buffered; a test that stops reading blocks the logger.
type RecordingHandler struct {
	Records chan slog.Record
	attrs   []slog.Attr
}

// NewRecordingLogger returns a logger backed by a RecordingHandler
// with a buffer of size records.
func NewRecordingLogger(size int) (*slog.Logger, *RecordingHandler) {
	handler := &RecordingHandler{Records: make(chan slog.Record, size)}
	return slog.New(handler), handler
}

func (h *RecordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *RecordingHandler) Handle(_ context.Context, record slog.Record) error {
	record = record.Clone()
	record.AddAttrs(h.attrs...)
	h.Records <- record
	return nil
}

func (h *RecordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RecordingHandler{
		Records: h.Records,
		attrs:   append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup is unsupported; groups are flattened into the record.
func (h *RecordingHandler) WithGroup(string) slog.Handler { return h }

// Attr returns the value of the named attribute on record, and whether
// it was present.
func Attr(record slog.Record, key string) (slog.Value, bool) {
	var found slog.Value
	ok := false
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			found, ok = attr.Value, true
			return false
		}
		return true
	})
	return found, ok
}
