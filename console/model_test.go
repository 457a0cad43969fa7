// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/cristian-bicheru/Zero-DAQ-Software/link"
	"github.com/cristian-bicheru/Zero-DAQ-Software/sensor"
	"github.com/cristian-bicheru/Zero-DAQ-Software/wire"
)

// recordingSender remembers what the console sent.
type recordingSender struct {
	sent []wire.Message
	fail error
}

func (s *recordingSender) Send(m wire.Message) error {
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, m)
	return nil
}

var testSensors = []sensor.Descriptor{
	{Name: "Load Cell 1", Kind: sensor.LoadCell, ID: 11, Rate: 80, Tab: 2},
	{Name: "Thrust", Kind: sensor.Thrust, ID: 1, Rate: 80, Tab: 1},
	{Name: "Tank Mass", Kind: sensor.TankMass, ID: 4, Tab: 1},
	{Name: "Load Cell 2", Kind: sensor.LoadCell, ID: 12, Rate: 80, Tab: 2},
}

func newTestModel(sender *recordingSender) Model {
	return NewModel(Config{
		Sensors:  testSensors,
		Sender:   sender,
		Renderer: NewRenderer(io.Discard, termenv.Ascii),
		LogLines: 3,
	})
}

func update(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSensorValuesAndDerivedTankMass(t *testing.T) {
	m := newTestModel(&recordingSender{})
	view := m.View()
	if !strings.Contains(view, "Thrust") || !strings.Contains(view, sensor.Placeholder) {
		t.Fatalf("initial view missing sensors or placeholders:\n%s", view)
	}

	m = update(t, m, eventMsg{SensorEvent{Data: wire.SensorData{
		Timestamp: 12.345,
		Readings: []wire.Reading{
			{SensorID: 1, Value: 250.5},
			{SensorID: 11, Value: 10},
			{SensorID: 12, Value: 2.5},
		},
	}}})

	view = m.View()
	for _, want := range []string{"t = 12.35 s", "250.50 lbf", "12.50"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if m.values[4] != 12.5 {
		t.Errorf("tank mass = %v, want the load cell sum 12.5", m.values[4])
	}
}

func TestSensorsGroupedByTab(t *testing.T) {
	view := newTestModel(&recordingSender{}).View()
	thrust := strings.Index(view, "Thrust")
	loadCell := strings.Index(view, "Load Cell 1")
	if thrust < 0 || loadCell < 0 || thrust > loadCell {
		t.Fatalf("tab 1 sensors should come before tab 2:\n%s", view)
	}
}

func TestConnectionIndicator(t *testing.T) {
	m := newTestModel(&recordingSender{})
	if !strings.Contains(m.View(), "DISCONNECTED") {
		t.Fatal("new console should show disconnected")
	}
	m = update(t, m, eventMsg{ConnectionEvent{State: link.Connected}})
	if view := m.View(); !strings.Contains(view, "● CONNECTED") {
		t.Fatalf("view after connect:\n%s", view)
	}
	m = update(t, m, eventMsg{ConnectionEvent{State: link.Disconnected}})
	if !strings.Contains(m.View(), "DISCONNECTED") {
		t.Fatal("view after disconnect should show disconnected")
	}
}

func TestLogKeepsNewestLines(t *testing.T) {
	m := newTestModel(&recordingSender{})
	m = update(t, m,
		eventMsg{NotificationEvent{Text: "one", Remote: true}},
		eventMsg{NotificationEvent{Text: "two"}},
		eventMsg{NotificationEvent{Text: "three", Remote: true}},
		eventMsg{NotificationEvent{Text: "four"}},
	)
	want := []string{"two", "three (CONTROLLER)", "four"}
	if strings.Join(m.log, "|") != strings.Join(want, "|") {
		t.Fatalf("log = %q, want %q", m.log, want)
	}
}

func TestTogglesAlternate(t *testing.T) {
	sender := &recordingSender{}
	m := newTestModel(sender)
	m = update(t, m, runes("f"), runes("f"), runes("i"), runes("S"), runes("S"), runes("h"), runes("v"))

	want := []wire.Message{
		wire.Action{Kind: wire.OpenFill},
		wire.Action{Kind: wire.CloseFill},
		wire.Action{Kind: wire.FireIgnitor},
		wire.Action{Kind: wire.BeginBurnPhase},
		wire.Action{Kind: wire.AbortBurnPhase},
		wire.Action{Kind: wire.EnableTankHeating},
		wire.Action{Kind: wire.OpenVent},
	}
	if len(sender.sent) != len(want) {
		t.Fatalf("sent %v, want %v", sender.sent, want)
	}
	for i := range want {
		if sender.sent[i] != want[i] {
			t.Errorf("message %d = %v, want %v", i, sender.sent[i], want[i])
		}
	}
	if !strings.Contains(m.View(), "[i] Ignitor ON") {
		t.Errorf("ignitor toggle not shown on:\n%s", m.View())
	}
}

func TestAbortResetsToggles(t *testing.T) {
	sender := &recordingSender{}
	m := newTestModel(sender)
	m = update(t, m, runes("f"), runes("i"), tea.KeyMsg{Type: tea.KeyEsc})

	if last := sender.sent[len(sender.sent)-1]; last != (wire.Action{Kind: wire.Abort}) {
		t.Fatalf("last message = %v, want abort", last)
	}
	view := m.View()
	for _, want := range []string{"[f] Fill off", "[i] Ignitor off", "[v] Vent ON"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q after abort:\n%s", want, view)
		}
	}

	// The fill key starts from closed again.
	m = update(t, m, runes("f"))
	if last := sender.sent[len(sender.sent)-1]; last != (wire.Action{Kind: wire.OpenFill}) {
		t.Fatalf("fill after abort sent %v", last)
	}
}

func TestFailedSendLeavesToggle(t *testing.T) {
	sender := &recordingSender{fail: errors.New("transport stopped")}
	m := newTestModel(sender)
	m = update(t, m, runes("f"))
	if m.toggled[0] {
		t.Fatal("toggle flipped although the send failed")
	}
	if !strings.Contains(m.View(), "send failed: transport stopped") {
		t.Fatalf("status not shown:\n%s", m.View())
	}
}

func TestProgramSelection(t *testing.T) {
	sender := &recordingSender{}
	m := newTestModel(sender)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(sender.sent) != 0 {
		t.Fatalf("selection sent with no programs: %v", sender.sent)
	}

	m = update(t, m,
		eventMsg{ProgramsEvent{Names: []string{"burn", "cold flow", "hot fire"}}},
		runes("j"), runes("j"), runes("j"), runes("k"),
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	want := wire.EngineProgramSettings{Assigning: true, Payload: "cold flow"}
	if len(sender.sent) != 1 || sender.sent[0] != want {
		t.Fatalf("sent %v, want %v", sender.sent, want)
	}
	if !strings.Contains(m.View(), "> cold flow (loaded)") {
		t.Fatalf("view:\n%s", m.View())
	}

	// A new list without the loaded program clears the marker.
	m = update(t, m, eventMsg{ProgramsEvent{Names: []string{"burn"}}})
	if m.loaded != "" || m.cursor != 0 {
		t.Fatalf("loaded=%q cursor=%d after list shrank", m.loaded, m.cursor)
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(&recordingSender{})
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}
}

func TestViewFitsWidth(t *testing.T) {
	m := newTestModel(&recordingSender{})
	m = update(t, m,
		tea.WindowSizeMsg{Width: 30, Height: 40},
		eventMsg{NotificationEvent{Text: strings.Repeat("long line ", 10)}},
	)
	for _, line := range strings.Split(m.View(), "\n") {
		if w := ansi.StringWidth(line); w > 30 {
			t.Fatalf("line %q is %d cells wide", line, w)
		}
	}
}

func TestInitListensForEvents(t *testing.T) {
	events := make(chan Event, 1)
	m := NewModel(Config{
		Sensors:  testSensors,
		Sender:   &recordingSender{},
		Events:   events,
		Renderer: NewRenderer(io.Discard, termenv.Ascii),
	})
	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init returned no command")
	}
	events <- ConnectionEvent{State: link.Connected}
	msg, ok := cmd().(eventMsg)
	if !ok || msg.event != (ConnectionEvent{State: link.Connected}) {
		t.Fatalf("Init command produced %#v", msg)
	}

	close(events)
	_, next := m.Update(msg)
	if next == nil || next() != nil {
		t.Fatal("listen should keep running until the channel closes")
	}
}
