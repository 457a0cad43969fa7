// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// frameHeaderLength is the size of the big-endian length prefix.
const frameHeaderLength = 4

// MaxFrameLength bounds a single frame. The largest real frame is a
// SensorData snapshot of 256 sensors, a little over 2 KiB.
const MaxFrameLength = 1 << 20

// ErrFrameTooLarge is returned for frames longer than MaxFrameLength.
var ErrFrameTooLarge = errors.New("frame exceeds maximum length")

func writeFrame(w io.Writer, frame []byte) error {
	var header [frameHeaderLength]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(frame)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

func readFrame(r io.Reader) ([]byte, error) {
	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}
	frame := make([]byte, length)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return frame, nil
}
