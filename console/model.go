// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/cristian-bicheru/Zero-DAQ-Software/link"
	"github.com/cristian-bicheru/Zero-DAQ-Software/sensor"
	"github.com/cristian-bicheru/Zero-DAQ-Software/wire"
)

// Sender delivers messages to the controller. *link.Link implements
// it.
type Sender interface {
	Send(wire.Message) error
}

var _ Sender = (*link.Link)(nil)

// DefaultLogLines is how many log lines the console keeps.
const DefaultLogLines = 12

// Config configures a Model. Sensors and Sender are required.
type Config struct {
	Sensors []sensor.Descriptor
	Sender  Sender

	// Events is normally Bridge.Events. Nil disables live updates.
	Events <-chan Event

	// Renderer defaults to a 256-colour renderer on stdout.
	Renderer *lipgloss.Renderer
	Theme    *Theme
	Keys     *KeyMap
	LogLines int
}

// eventMsg wraps an Event for bubbletea.
type eventMsg struct{ event Event }

// Model is the bubbletea model of the operator console.
type Model struct {
	sensors  []sensor.Descriptor
	sender   Sender
	events   <-chan Event
	styles   styles
	keys     KeyMap
	logLines int

	width  int
	height int

	connected bool
	timestamp float64
	values    map[uint8]float64

	log      []string
	programs []string
	cursor   int
	loaded   string
	toggled  []bool
	status   string
}

// NewModel creates the console model.
func NewModel(config Config) Model {
	if config.Renderer == nil {
		config.Renderer = NewRenderer(os.Stdout, termenv.ANSI256)
	}
	if config.Theme == nil {
		config.Theme = &DefaultTheme
	}
	if config.Keys == nil {
		config.Keys = &DefaultKeyMap
	}
	if config.LogLines <= 0 {
		config.LogLines = DefaultLogLines
	}
	sensors := slices.Clone(config.Sensors)
	slices.SortStableFunc(sensors, func(a, b sensor.Descriptor) int { return a.Tab - b.Tab })
	return Model{
		sensors:  sensors,
		sender:   config.Sender,
		events:   config.Events,
		styles:   newStyles(config.Renderer, *config.Theme),
		keys:     *config.Keys,
		logLines: config.LogLines,
		values:   make(map[uint8]float64),
		toggled:  make([]bool, len(toggles)),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return listen(m.events)
}

// listen blocks until the next event and delivers it as an eventMsg.
func listen(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg{event: e}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.apply(msg.event)
		if m.events == nil {
			return m, nil
		}
		return m, listen(m.events)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) apply(e Event) {
	switch e := e.(type) {
	case SensorEvent:
		m.timestamp = e.Data.Timestamp
		var loadCells float64
		for _, reading := range e.Data.Readings {
			m.values[reading.SensorID] = reading.Value
			if d, ok := m.sensor(reading.SensorID); ok && d.Kind == sensor.LoadCell {
				loadCells += reading.Value
			}
		}
		// The tank sits on the load cells.
		if loadCells != 0 {
			for _, d := range m.sensors {
				if d.Kind == sensor.TankMass && !d.Physical() {
					m.values[d.ID] = loadCells
				}
			}
		}
	case NotificationEvent:
		text := e.Text
		if e.Remote {
			text += " (CONTROLLER)"
		}
		m.appendLog(text)
	case ProgramsEvent:
		m.programs = e.Names
		m.cursor = min(m.cursor, max(len(m.programs)-1, 0))
		if !slices.Contains(m.programs, m.loaded) {
			m.loaded = ""
		}
	case ConnectionEvent:
		m.connected = e.State == link.Connected
	}
}

func (m *Model) sensor(id uint8) (sensor.Descriptor, bool) {
	for _, d := range m.sensors {
		if d.ID == id {
			return d, true
		}
	}
	return sensor.Descriptor{}, false
}

func (m *Model) appendLog(line string) {
	m.log = append(m.log, line)
	if over := len(m.log) - m.logLines; over > 0 {
		m.log = slices.Delete(m.log, 0, over)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Abort):
		if m.send(wire.Action{Kind: wire.Abort}) {
			// Abort closes everything except the vent, which it opens.
			for i, t := range toggles {
				m.toggled[i] = t.on == wire.OpenVent
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.cursor = min(m.cursor+1, max(len(m.programs)-1, 0))
		return m, nil

	case key.Matches(msg, m.keys.Load):
		if len(m.programs) == 0 {
			m.status = "no engine programs available"
			return m, nil
		}
		name := m.programs[m.cursor]
		if m.send(wire.EngineProgramSettings{Assigning: true, Payload: name}) {
			m.loaded = name
		}
		return m, nil
	}

	for i, t := range toggles {
		if key.Matches(msg, t.binding(m.keys)) {
			kind := t.on
			if m.toggled[i] {
				kind = t.off
			}
			if m.send(wire.Action{Kind: kind}) {
				m.toggled[i] = !m.toggled[i]
			}
			return m, nil
		}
	}
	return m, nil
}

// send reports whether the message was queued, and records the outcome
// in the status line.
func (m *Model) send(message wire.Message) bool {
	if err := m.sender.Send(message); err != nil {
		m.status = "send failed: " + err.Error()
		return false
	}
	switch message := message.(type) {
	case wire.Action:
		m.status = "sent " + message.Kind.String()
	case wire.EngineProgramSettings:
		m.status = "selected program " + message.Payload
	}
	return true
}

// View implements tea.Model.
func (m Model) View() string {
	var lines []string
	add := func(line string) { lines = append(lines, line) }

	state := m.styles.disconnected.Render("● DISCONNECTED")
	if m.connected {
		state = m.styles.connected.Render("● CONNECTED")
	}
	add(m.styles.header.Render("ZERO MONITOR") + "  " + state + "  " +
		m.styles.faint.Render(fmt.Sprintf("t = %.2f s", m.timestamp)))

	add(m.section("Sensors"))
	nameWidth := 0
	for _, d := range m.sensors {
		nameWidth = max(nameWidth, ansi.StringWidth(d.Name))
	}
	for _, d := range m.sensors {
		value := sensor.Placeholder
		if v, ok := m.values[d.ID]; ok {
			value = strconv.FormatFloat(v, 'f', 2, 64)
		}
		name := d.Name + strings.Repeat(" ", nameWidth-ansi.StringWidth(d.Name))
		add(" " + m.styles.normal.Render(name) + "  " + fmt.Sprintf("%10s", value) + " " + m.styles.faint.Render(d.Unit()))
	}

	add(m.section("Controls"))
	var controls []string
	for i, t := range toggles {
		binding := t.binding(m.keys)
		text := fmt.Sprintf("[%s] %s", binding.Help().Key, t.label)
		if m.toggled[i] {
			controls = append(controls, m.styles.toggleOn.Render(text+" ON"))
		} else {
			controls = append(controls, m.styles.normal.Render(text+" off"))
		}
	}
	controls = append(controls, m.styles.abort.Render(fmt.Sprintf("[%s] ABORT", m.keys.Abort.Help().Key)))
	add(" " + strings.Join(controls, "  "))
	if m.status != "" {
		add(" " + m.styles.faint.Render(m.status))
	}

	add(m.section("Programs"))
	if len(m.programs) == 0 {
		add(" " + m.styles.faint.Render("(none)"))
	}
	for i, name := range m.programs {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		text := marker + name
		if name == m.loaded {
			text += " (loaded)"
		}
		if i == m.cursor {
			add(" " + m.styles.selected.Render(text))
		} else {
			add(" " + m.styles.normal.Render(text))
		}
	}

	add(m.section("Log"))
	for _, line := range m.log {
		add(" " + m.styles.normal.Render(line))
	}

	add(m.help())

	if m.width > 0 {
		for i, line := range lines {
			lines[i] = ansi.Truncate(line, m.width, "…")
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) section(title string) string {
	return m.styles.section.Render("── " + title + " ──")
}

func (m Model) help() string {
	bindings := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Load, m.keys.Quit}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, b.Help().Key+" "+b.Help().Desc)
	}
	return m.styles.help.Render(strings.Join(parts, " · "))
}
