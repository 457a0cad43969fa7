// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the messages exchanged between the test-stand
// controller and the operator console, and their binary encoding.
//
// A frame is one tag byte followed by the variant payload. There is no
// length prefix at this layer; the transport delimits frames.
//
//	SensorData             0x01  f64 timestamp, then (u8 id, f64 value)*
//	Action                 0x02  u8 action ordinal
//	Notification           0x03  UTF-8 text
//	EngineProgramSettings  0x04  'Y' | 'N', then UTF-8 text
//
// All floats are IEEE 754 little-endian. The heartbeat sentinel
// "ZERO PING" starts with 0x5A, outside the tag space, and never
// reaches Decode.
package wire

// Type is the leading tag byte of an encoded frame.
type Type uint8

const (
	TypeSensorData            Type = 1
	TypeAction                Type = 2
	TypeNotification          Type = 3
	TypeEngineProgramSettings Type = 4
)

func (t Type) String() string {
	switch t {
	case TypeSensorData:
		return "sensor_data"
	case TypeAction:
		return "action"
	case TypeNotification:
		return "notification"
	case TypeEngineProgramSettings:
		return "engine_program_settings"
	}
	return "unknown"
}

// Message is the closed set of wire messages. The set is sealed by an
// unexported method: only this package can add variants, and every new
// variant adds a method to Handler, which breaks every implementation
// that has not been taught about it.
type Message interface {
	Type() Type

	// Accept calls the Handler method for the concrete variant.
	Accept(Handler)

	sealed()
}

// Handler receives decoded messages, one method per variant.
type Handler interface {
	HandleSensorData(SensorData)
	HandleAction(Action)
	HandleNotification(Notification)
	HandleEngineProgramSettings(EngineProgramSettings)
}

// Reading is one sensor value inside a SensorData message.
type Reading struct {
	SensorID uint8
	Value    float64
}

// SensorData is one aggregated snapshot. Timestamp is seconds since the
// scheduler started.
type SensorData struct {
	Timestamp float64
	Readings  []Reading
}

// Action asks the controller to perform one operator action.
type Action struct {
	Kind ActionKind
}

// Notification is a free-form text line, normally a forwarded log
// record.
type Notification struct {
	Text string
}

// EngineProgramSettings either selects a program by name (Assigning)
// or, from controller to console, carries the comma-separated list of
// available programs (not Assigning).
type EngineProgramSettings struct {
	Assigning bool
	Payload   string
}

func (SensorData) Type() Type            { return TypeSensorData }
func (Action) Type() Type                { return TypeAction }
func (Notification) Type() Type          { return TypeNotification }
func (EngineProgramSettings) Type() Type { return TypeEngineProgramSettings }

func (m SensorData) Accept(h Handler)            { h.HandleSensorData(m) }
func (m Action) Accept(h Handler)                { h.HandleAction(m) }
func (m Notification) Accept(h Handler)          { h.HandleNotification(m) }
func (m EngineProgramSettings) Accept(h Handler) { h.HandleEngineProgramSettings(m) }

func (SensorData) sealed()            {}
func (Action) sealed()                {}
func (Notification) sealed()          {}
func (EngineProgramSettings) sealed() {}

var (
	_ Message = SensorData{}
	_ Message = Action{}
	_ Message = Notification{}
	_ Message = EngineProgramSettings{}
)
