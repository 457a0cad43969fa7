// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package datalog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Detect reports the compression of a stream from its first bytes.
func Detect(header []byte) Compression {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return Gzip
	case bytes.HasPrefix(header, zstdMagic):
		return Zstd
	case bytes.HasPrefix(header, lz4Magic):
		return LZ4
	}
	return None
}

// Open opens a log written by Writer, in any compression.
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return r, nil
}

// NewReader decompresses r. Closing the result closes r.
func NewReader(r io.ReadCloser) (io.ReadCloser, error) {
	buffered := bufio.NewReader(r)
	header, err := buffered.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	switch Detect(header) {
	case Gzip:
		decompressor, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &readCloser{Reader: decompressor, close: []func() error{decompressor.Close, r.Close}}, nil
	case Zstd:
		decoder, err := zstd.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return &readCloser{Reader: decoder, close: []func() error{
			func() error { decoder.Close(); return nil },
			r.Close,
		}}, nil
	case LZ4:
		return &readCloser{Reader: lz4.NewReader(buffered), close: []func() error{r.Close}}, nil
	}
	return &readCloser{Reader: buffered, close: []func() error{r.Close}}, nil
}

type readCloser struct {
	io.Reader
	close []func() error
}

func (r *readCloser) Close() error {
	var errs []error
	for _, fn := range r.close {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}
