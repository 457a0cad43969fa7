// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
)

// Sink receives one formatted log line.
type Sink func(line string)

// Forwarder is a slog.Handler that formats records at or above its
// level into single lines and hands them to a Sink. The controller uses
// it to mirror its log to the operator console.
//
// The Sink is installed with SetSink once its destination exists;
// records before that are dropped. Handlers derived with WithAttrs and
// WithGroup share the Sink. The Sink runs on the logging goroutine and
// must not itself log at or above the Forwarder's level.
type Forwarder struct {
	level slog.Leveler
	sink  *atomic.Pointer[Sink]
	attrs []slog.Attr
	group string
}

var _ slog.Handler = (*Forwarder)(nil)

// NewForwarder creates a Forwarder with no Sink.
func NewForwarder(level slog.Leveler) *Forwarder {
	return &Forwarder{level: level, sink: &atomic.Pointer[Sink]{}}
}

// SetSink installs (or, with nil, removes) the destination.
func (f *Forwarder) SetSink(sink Sink) {
	if sink == nil {
		f.sink.Store(nil)
		return
	}
	f.sink.Store(&sink)
}

func (f *Forwarder) Enabled(_ context.Context, level slog.Level) bool {
	return level >= f.level.Level()
}

// Handle formats the record as "LEVEL message (key=value, ...)".
func (f *Forwarder) Handle(_ context.Context, record slog.Record) error {
	sink := f.sink.Load()
	if sink == nil {
		return nil
	}
	(*sink)(f.format(record))
	return nil
}

func (f *Forwarder) format(record slog.Record) string {
	var b strings.Builder
	b.WriteString(record.Level.String())
	b.WriteByte(' ')
	b.WriteString(record.Message)

	first := true
	write := func(prefix string, attr slog.Attr) {
		if first {
			b.WriteString(" (")
			first = false
		} else {
			b.WriteString(", ")
		}
		b.WriteString(prefix)
		b.WriteString(attr.Key)
		b.WriteByte('=')
		b.WriteString(attr.Value.Resolve().String())
	}
	for _, attr := range f.attrs {
		write("", attr)
	}
	prefix := ""
	if f.group != "" {
		prefix = f.group + "."
	}
	record.Attrs(func(attr slog.Attr) bool {
		write(prefix, attr)
		return true
	})
	if !first {
		b.WriteByte(')')
	}
	return b.String()
}

func (f *Forwarder) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *f
	derived.attrs = append([]slog.Attr(nil), f.attrs...)
	for _, attr := range attrs {
		if f.group != "" {
			attr.Key = f.group + "." + attr.Key
		}
		derived.attrs = append(derived.attrs, attr)
	}
	return &derived
}

func (f *Forwarder) WithGroup(name string) slog.Handler {
	derived := *f
	if f.group != "" {
		name = f.group + "." + name
	}
	derived.group = name
	return &derived
}
