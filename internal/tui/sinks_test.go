package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"termspectrum/internal/capture"

	tea "github.com/charmbracelet/bubbletea"
)

type stubClient struct {
	sinks  []capture.SinkInfo
	err    error
	events chan capture.SinkEvent
}

func (c *stubClient) ListSinks(context.Context) ([]capture.SinkInfo, error) { return c.sinks, c.err }
func (c *stubClient) Events() <-chan capture.SinkEvent                      { return c.events }
func (c *stubClient) Err() error                                            { return nil }
func (c *stubClient) Close() error                                          { return nil }
func (c *stubClient) OpenStream(context.Context, string, capture.StreamSpec) (capture.Stream, error) {
	return nil, errors.New("not supported")
}

var testSinks = []capture.SinkInfo{
	{Index: 0, Name: "hdmi", MonitorSource: "hdmi.monitor"},
	{Index: 4, Name: "speakers", MonitorSource: "speakers.monitor", Running: true},
}

func update(t *testing.T, m tea.Model, msg tea.Msg) (SinkBrowser, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(SinkBrowser), cmd
}

func ready(t *testing.T, client *stubClient) SinkBrowser {
	t.Helper()
	m := NewSinkBrowser(client)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	msg := m.fetchSinks()
	m, _ = update(t, m, msg)
	return m
}

func TestSinkBrowserList(t *testing.T) {
	m := ready(t, &stubClient{sinks: testSinks})

	view := m.View()
	for _, want := range []string{"Audio Sinks", "[0] hdmi", "[4] speakers", "speakers.monitor", "running"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestSinkBrowserNavigation(t *testing.T) {
	m := ready(t, &stubClient{sinks: testSinks})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selectedIndex != 1 {
		t.Fatalf("selectedIndex = %d, want 1 (clamped)", m.selectedIndex)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeScreen != DetailScreen {
		t.Fatalf("activeScreen = %v, want detail", m.activeScreen)
	}
	if view := m.View(); !strings.Contains(view, "following this sink") {
		t.Errorf("detail view of the running sink:\n%s", view)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if view := m.View(); !strings.Contains(view, "following sink 4") {
		t.Errorf("detail view of an idle sink:\n%s", view)
	}
}

func TestSinkBrowserEventRefreshes(t *testing.T) {
	client := &stubClient{sinks: testSinks, events: make(chan capture.SinkEvent, 1)}
	m := ready(t, client)

	client.events <- capture.SinkEvent{Kind: capture.SinkRemove, Index: 4}
	msg := m.waitEvent()
	m, cmd := update(t, m, msg)
	if cmd == nil {
		t.Fatal("event produced no follow-up command")
	}
	if m.lastEvent == nil || m.lastEvent.Index != 4 {
		t.Errorf("lastEvent = %+v, want sink 4", m.lastEvent)
	}

	client.sinks = testSinks[:1]
	m.selectedIndex = 1
	m, _ = update(t, m, m.fetchSinks())
	if m.selectedIndex != 0 || len(m.sinks) != 1 {
		t.Errorf("after removal: selected %d of %d sinks", m.selectedIndex, len(m.sinks))
	}
}

func TestSinkBrowserClientClosed(t *testing.T) {
	client := &stubClient{events: make(chan capture.SinkEvent)}
	close(client.events)
	m := ready(t, client)

	m, _ = update(t, m, m.waitEvent())
	if !errors.Is(m.err, capture.ErrClientClosed) {
		t.Errorf("err = %v, want ErrClientClosed", m.err)
	}
	if !strings.Contains(m.View(), "Error:") {
		t.Errorf("View() does not show the error:\n%s", m.View())
	}
}

func TestSinkBrowserQuit(t *testing.T) {
	m := ready(t, &stubClient{sinks: testSinks})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestSinkBrowserEmpty(t *testing.T) {
	m := ready(t, &stubClient{})
	if !strings.Contains(m.View(), "No audio sinks found.") {
		t.Errorf("View() = %q", m.View())
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeScreen != ListScreen {
		t.Error("Enter opened details with no sinks")
	}
}
