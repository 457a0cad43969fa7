// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package datalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("datalog writer closed")

// FileName returns "<prefix><YYYY Mon DD hh.mm PM><extension><compression>".
// The prefix is used verbatim, so include any separator.
func FileName(prefix string, created time.Time, extension string, c Compression) string {
	return prefix + created.Format("2006 Jan 02 03.04 PM") + extension + c.Extension()
}

// Writer is an asynchronous, compressed, append-only log file. It is
// safe for concurrent use.
type Writer struct {
	file       io.WriteCloser
	compressor io.WriteCloser // nil when uncompressed
	buffered   *bufio.Writer
	logger     *slog.Logger

	mu      sync.Mutex
	pending [][]byte
	closed  bool
	notify  chan struct{}

	done     chan struct{}
	writeErr error // set by the writer goroutine before done closes
}

var _ io.Writer = (*Writer)(nil)

// Create makes the directory if needed and opens a new file in it.
func Create(dir, name string, c Compression, logger *slog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	w, err := NewWriter(file, c, logger)
	if err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// NewWriter starts a Writer over file. Close closes file.
func NewWriter(file io.WriteCloser, c Compression, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &Writer{
		file:   file,
		logger: logger,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	var sink io.Writer = file
	switch c {
	case None:
	case Gzip:
		compressor, err := gzip.NewWriterLevel(file, 3)
		if err != nil {
			return nil, fmt.Errorf("gzip writer: %w", err)
		}
		w.compressor = compressor
	case Zstd:
		compressor, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		w.compressor = compressor
	case LZ4:
		w.compressor = lz4.NewWriter(file)
	default:
		return nil, fmt.Errorf("unsupported %s", c)
	}
	if w.compressor != nil {
		sink = w.compressor
	}
	w.buffered = bufio.NewWriterSize(sink, 64<<10)

	go w.run()
	return w, nil
}

// WriteRow queues row followed by a newline.
func (w *Writer) WriteRow(row string) error {
	line := make([]byte, 0, len(row)+1)
	line = append(line, row...)
	line = append(line, '\n')
	return w.push(line)
}

// Write queues a copy of p verbatim, for use as a log handler's output.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.push(append([]byte(nil), p...)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *Writer) push(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.pending = append(w.pending, data)
	select {
	case w.notify <- struct{}{}:
	default:
	}
	return nil
}

func (w *Writer) take() ([][]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	batch := w.pending
	w.pending = nil
	return batch, w.closed
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		batch, closed := w.take()
		for _, data := range batch {
			if w.writeErr != nil {
				break
			}
			if _, err := w.buffered.Write(data); err != nil {
				w.writeErr = err
				w.logger.Error("datalog write failed; dropping further rows", "error", err)
			}
		}
		if closed {
			w.writeErr = errors.Join(w.writeErr, w.finish())
			return
		}
		if len(batch) > 0 && w.writeErr == nil {
			if err := w.buffered.Flush(); err != nil {
				w.writeErr = err
				w.logger.Error("datalog flush failed; dropping further rows", "error", err)
			}
		}
		<-w.notify
	}
}

func (w *Writer) finish() error {
	var errs []error
	if w.writeErr == nil {
		errs = append(errs, w.buffered.Flush())
	}
	if w.compressor != nil {
		errs = append(errs, w.compressor.Close())
	}
	errs = append(errs, w.file.Close())
	return errors.Join(errs...)
}

// Close writes every queued row, finishes the compressed stream and
// closes the file. Later calls return the same result.
func (w *Writer) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
	w.mu.Unlock()
	<-w.done
	if w.writeErr != nil {
		return fmt.Errorf("datalog: %w", w.writeErr)
	}
	return nil
}
