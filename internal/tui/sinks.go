// Package tui is the interactive sink browser behind the browse command.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"termspectrum/internal/capture"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const listTimeout = 2 * time.Second

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F2C12E"))
)

var (
	quitKey    = key.NewBinding(key.WithKeys("q", "ctrl+c"))
	upKey      = key.NewBinding(key.WithKeys("up", "k"))
	downKey    = key.NewBinding(key.WithKeys("down", "j"))
	selectKey  = key.NewBinding(key.WithKeys("enter"))
	backKey    = key.NewBinding(key.WithKeys("esc"))
	refreshKey = key.NewBinding(key.WithKeys("r"))
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	DetailScreen
)

type sinksMsg struct{ sinks []capture.SinkInfo }

type sinkEventMsg struct{ event capture.SinkEvent }

type errMsg struct{ err error }

// SinkBrowser lists the sinks of a capture client and follows its events.
type SinkBrowser struct {
	client        capture.Client
	sinks         []capture.SinkInfo
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType
	lastEvent     *capture.SinkEvent
}

// NewSinkBrowser creates a browser over client.
func NewSinkBrowser(client capture.Client) SinkBrowser {
	return SinkBrowser{client: client, activeScreen: ListScreen}
}

// Init fetches the sinks and starts listening for events.
func (m SinkBrowser) Init() tea.Cmd {
	return tea.Batch(m.fetchSinks, m.waitEvent)
}

func (m SinkBrowser) fetchSinks() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()
	sinks, err := m.client.ListSinks(ctx)
	if err != nil {
		return errMsg{err}
	}
	return sinksMsg{sinks}
}

func (m SinkBrowser) waitEvent() tea.Msg {
	ev, ok := <-m.client.Events()
	if !ok {
		err := m.client.Err()
		if err == nil {
			err = capture.ErrClientClosed
		}
		return errMsg{err}
	}
	return sinkEventMsg{ev}
}

func (m SinkBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case sinksMsg:
		m.sinks = msg.sinks
		if m.selectedIndex >= len(m.sinks) {
			m.selectedIndex = max(0, len(m.sinks)-1)
			m.activeScreen = ListScreen
		}
		m.refresh()

	case sinkEventMsg:
		ev := msg.event
		m.lastEvent = &ev
		cmds = append(cmds, m.fetchSinks, m.waitEvent)

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, quitKey) {
			return m, tea.Quit
		}
		if m.err != nil {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, upKey):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
			case key.Matches(msg, downKey):
				if m.selectedIndex < len(m.sinks)-1 {
					m.selectedIndex++
				}
			case key.Matches(msg, selectKey):
				if len(m.sinks) > 0 {
					m.activeScreen = DetailScreen
				}
			case key.Matches(msg, refreshKey):
				cmds = append(cmds, m.fetchSinks)
			}
		case DetailScreen:
			if key.Matches(msg, backKey) {
				m.activeScreen = ListScreen
			}
		}
		m.refresh()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *SinkBrowser) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == DetailScreen {
		m.viewport.SetContent(m.renderSink())
		return
	}
	m.viewport.SetContent(m.renderSinks())
}

// View renders the UI
func (m SinkBrowser) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress any key to exit.", m.err)
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Audio Sinks")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Details • r: Refresh • q: Quit")
	} else {
		title = titleStyle.Render("Sink Details")
		help = infoStyle.Render("Esc: Back • q: Quit")
	}
	if m.lastEvent != nil {
		help += infoStyle.Render(fmt.Sprintf("   last event: %s on sink %d", m.lastEvent.Kind, m.lastEvent.Index))
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m SinkBrowser) renderSinks() string {
	if len(m.sinks) == 0 {
		return "No audio sinks found."
	}

	var sb strings.Builder
	for i, sink := range m.sinks {
		state := "idle"
		if sink.Running {
			state = runningStyle.Render("running")
		}
		info := fmt.Sprintf("[%d] %s (%s)\n    monitor: %s\n", sink.Index, sink.Name, state, sink.MonitorSource)
		if i == m.selectedIndex {
			info = highlightStyle.Render(info)
		}
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m SinkBrowser) renderSink() string {
	sink := m.sinks[m.selectedIndex]
	active, ok := capture.ActiveSink(m.sinks)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sink:           %s\n", sink.Name)
	fmt.Fprintf(&sb, "Index:          %d\n", sink.Index)
	fmt.Fprintf(&sb, "Monitor source: %s\n", sink.MonitorSource)
	fmt.Fprintf(&sb, "Running:        %v\n\n", sink.Running)

	switch {
	case ok && active.Index == sink.Index:
		sb.WriteString(highlightStyle.Render("The visualizer is following this sink."))
	case ok:
		fmt.Fprintf(&sb, "The visualizer is following sink %d.", active.Index)
	default:
		sb.WriteString("No sink is running; the visualizer is waiting.")
	}
	return sb.String()
}

// Run starts the browser full screen and blocks until the user quits.
func Run(client capture.Client) error {
	p := tea.NewProgram(NewSinkBrowser(client), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
