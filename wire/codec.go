// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnknownType is returned for a tag byte outside 1..4.
	ErrUnknownType = errors.New("unknown message type")

	// ErrTruncated is returned when the payload is shorter than the
	// variant requires, or a SensorData payload does not end on a
	// record boundary.
	ErrTruncated = errors.New("truncated message")

	// ErrInvalidUTF8 is returned when a text payload is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 in text payload")

	// ErrUnknownAction is returned for an action ordinal outside 1..11.
	ErrUnknownAction = errors.New("unknown action")

	// ErrTrailingBytes is returned when an Action payload is longer
	// than one byte.
	ErrTrailingBytes = errors.New("trailing bytes after message")
)

// DecodeError describes a frame that could not be decoded. Tag is the
// frame's first byte (zero for an empty frame). Err is one of the
// sentinel errors above.
type DecodeError struct {
	Tag byte
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode message (tag 0x%02x): %v", e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

const (
	timestampSize = 8
	recordSize    = 1 + 8
)

// Heartbeat is the liveness sentinel frame. It is sent as-is, never
// through Encode, and receivers discard it after noting liveness.
var Heartbeat = []byte("ZERO PING")

// IsHeartbeat reports whether frame is the heartbeat sentinel.
func IsHeartbeat(frame []byte) bool {
	return bytes.Equal(frame, Heartbeat)
}

// Encode serializes m. It never fails: every representable message has
// an encoding.
func Encode(m Message) []byte {
	switch m := m.(type) {
	case SensorData:
		buf := make([]byte, 1, 1+timestampSize+recordSize*len(m.Readings))
		buf[0] = byte(TypeSensorData)
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(m.Timestamp))
		for _, r := range m.Readings {
			buf = append(buf, r.SensorID)
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(r.Value))
		}
		return buf
	case Action:
		return []byte{byte(TypeAction), byte(m.Kind)}
	case Notification:
		buf := make([]byte, 0, 1+len(m.Text))
		buf = append(buf, byte(TypeNotification))
		return append(buf, m.Text...)
	case EngineProgramSettings:
		flag := byte('N')
		if m.Assigning {
			flag = 'Y'
		}
		buf := make([]byte, 0, 2+len(m.Payload))
		buf = append(buf, byte(TypeEngineProgramSettings), flag)
		return append(buf, m.Payload...)
	}
	panic(fmt.Sprintf("wire: unhandled message type %T", m))
}

// Decode parses one frame. Errors are *DecodeError wrapping one of the
// package sentinels; test them with errors.Is.
func Decode(frame []byte) (Message, error) {
	if len(frame) == 0 {
		return nil, &DecodeError{Err: ErrTruncated}
	}
	tag, payload := frame[0], frame[1:]
	fail := func(err error) (Message, error) {
		return nil, &DecodeError{Tag: tag, Err: err}
	}

	switch Type(tag) {
	case TypeSensorData:
		if len(payload) < timestampSize || (len(payload)-timestampSize)%recordSize != 0 {
			return fail(ErrTruncated)
		}
		m := SensorData{
			Timestamp: math.Float64frombits(binary.LittleEndian.Uint64(payload)),
		}
		// Readings is never nil after decoding, even with no records.
		records := payload[timestampSize:]
		m.Readings = make([]Reading, len(records)/recordSize)
		for i := range m.Readings {
			record := records[i*recordSize:]
			m.Readings[i] = Reading{
				SensorID: record[0],
				Value:    math.Float64frombits(binary.LittleEndian.Uint64(record[1:])),
			}
		}
		return m, nil

	case TypeAction:
		switch {
		case len(payload) == 0:
			return fail(ErrTruncated)
		case len(payload) > 1:
			return fail(ErrTrailingBytes)
		}
		kind := ActionKind(payload[0])
		if !kind.Valid() {
			return fail(fmt.Errorf("%w: ordinal %d", ErrUnknownAction, payload[0]))
		}
		return Action{Kind: kind}, nil

	case TypeNotification:
		if !utf8.Valid(payload) {
			return fail(ErrInvalidUTF8)
		}
		return Notification{Text: string(payload)}, nil

	case TypeEngineProgramSettings:
		if len(payload) == 0 {
			return fail(ErrTruncated)
		}
		text := payload[1:]
		if !utf8.Valid(text) {
			return fail(ErrInvalidUTF8)
		}
		// Any flag other than 'Y' reads as not assigning.
		return EngineProgramSettings{Assigning: payload[0] == 'Y', Payload: string(text)}, nil
	}
	return fail(ErrUnknownType)
}

// ProgramList builds the non-assigning settings message that advertises
// the available program names to the console.
func ProgramList(names []string) EngineProgramSettings {
	return EngineProgramSettings{Payload: strings.Join(names, ",")}
}

// ProgramNames splits a program list payload. An empty payload is an
// empty list.
func (m EngineProgramSettings) ProgramNames() []string {
	if m.Payload == "" {
		return nil
	}
	return strings.Split(m.Payload, ",")
}
