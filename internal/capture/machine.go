package capture

import (
	"time"

	"termspectrum/internal/log"
)

// State is the capture state.
type State int

const (
	Disconnected State = iota
	Discovering
	Connected
	Streaming
)

func (s State) String() string {
	switch s {
	case Discovering:
		return "discovering"
	case Connected:
		return "connected"
	case Streaming:
		return "streaming"
	default:
		return "disconnected"
	}
}

// SessionID names one opened stream. Zero means no session.
type SessionID uint64

// Event is an input to Machine.Handle.
type Event interface{ event() }

// Tick asks the machine to make progress; it starts discovery when needed.
type Tick struct{}

// SinksListed carries a fresh sink enumeration.
type SinksListed struct{ Sinks []SinkInfo }

// SinkChanged is a sink subscription notification.
type SinkChanged struct {
	Kind  EventKind
	Index uint32
}

// SessionOpened reports that the stream requested by Switch is open.
type SessionOpened struct {
	Sink SinkIdentity
	ID   SessionID
}

// SessionFailed reports that the stream requested by Switch could not be
// opened.
type SessionFailed struct{ Err error }

// Bytes is one batch of PCM data from a session.
type Bytes struct {
	Session SessionID
	Data    []byte
}

// StreamFailed reports that a session's stream died.
type StreamFailed struct {
	Session SessionID
	Err     error
}

// ClientFailed reports that the audio server connection terminated.
type ClientFailed struct{ Err error }

func (Tick) event()          {}
func (SinksListed) event()   {}
func (SinkChanged) event()   {}
func (SessionOpened) event() {}
func (SessionFailed) event() {}
func (Bytes) event()         {}
func (StreamFailed) event()  {}
func (ClientFailed) event()  {}

// Action is an output of Machine.Handle, executed by the caller.
type Action interface{ action() }

// None requires nothing.
type None struct{}

// Discover asks for a sink enumeration, answered with SinksListed.
type Discover struct{}

// Switch closes session Close (when non-zero) and only then opens a stream
// on Open, answered with SessionOpened or SessionFailed.
type Switch struct {
	Close SessionID
	Open  SinkIdentity
}

// Close releases a session.
type Close struct{ Session SessionID }

// Pause asks to stop reading for Wait, then flush the stream.
type Pause struct{ Wait time.Duration }

// Shutdown releases session Close (when non-zero) and ends the loop.
type Shutdown struct{ Close SessionID }

func (None) action()     {}
func (Discover) action() {}
func (Switch) action()   {}
func (Close) action()    {}
func (Pause) action()    {}
func (Shutdown) action() {}

// Machine tracks the active sink and the session bound to it. It performs
// no I/O; the caller runs the returned actions and feeds results back.
type Machine struct {
	state   State
	sink    SinkIdentity
	stale   bool
	session SessionID

	window  *Window
	handler FrameHandler
}

// NewMachine returns a Disconnected machine delivering windows of
// windowSize samples to handler.
func NewMachine(windowSize int, handler FrameHandler) *Machine {
	return &Machine{
		window:  NewWindow(windowSize),
		handler: handler,
	}
}

func (m *Machine) State() State { return m.state }

// Sink returns the tracked sink, valid in Connected and Streaming.
func (m *Machine) Sink() SinkIdentity { return m.sink }

// Session returns the open session, zero if none.
func (m *Machine) Session() SessionID { return m.session }

// NeedsDiscovery reports whether the machine waits for a sink enumeration.
func (m *Machine) NeedsDiscovery() bool {
	return m.state == Discovering || (m.state == Streaming && m.stale)
}

// Handle applies one event and returns the action to run.
func (m *Machine) Handle(e Event) Action {
	switch e := e.(type) {
	case Tick:
		return m.tick()
	case SinksListed:
		return m.sinksListed(e.Sinks)
	case SinkChanged:
		return m.sinkChanged(e)
	case SessionOpened:
		return m.sessionOpened(e)
	case SessionFailed:
		if m.state != Connected {
			return None{}
		}
		log.Warnf("Capture: cannot open stream on %s: %v", m.sink.MonitorSource, e.Err)
		m.forget()
		return None{}
	case Bytes:
		return m.bytes(e)
	case StreamFailed:
		if e.Session == 0 || e.Session != m.session {
			return None{}
		}
		log.Warnf("Capture: stream on %s failed: %v", m.sink.MonitorSource, e.Err)
		m.forget()
		return Close{Session: e.Session}
	case ClientFailed:
		log.Infof("Capture: audio client terminated: %v", e.Err)
		s := m.session
		m.forget()
		m.state = Disconnected
		return Shutdown{Close: s}
	}
	return None{}
}

func (m *Machine) tick() Action {
	switch m.state {
	case Disconnected:
		m.state = Discovering
		return Discover{}
	case Discovering:
		return Discover{}
	case Streaming:
		if m.stale {
			return Discover{}
		}
	}
	return None{}
}

func (m *Machine) sinksListed(sinks []SinkInfo) Action {
	if m.state == Disconnected || m.state == Connected {
		return None{}
	}

	sink, ok := ActiveSink(sinks)
	if !ok {
		if m.session != 0 {
			log.Infof("Capture: no running sink, closing stream on %s", m.sink.MonitorSource)
		}
		s := m.session
		m.forget()
		if s != 0 {
			return Close{Session: s}
		}
		return None{}
	}

	if m.session != 0 && sink == m.sink {
		m.stale = false
		return None{}
	}

	log.Debugf("Capture: sink %d is running, monitor source %q", sink.Index, sink.MonitorSource)
	old := m.session
	m.session = 0
	m.sink = sink
	m.stale = false
	m.state = Connected
	m.window.Reset()
	return Switch{Close: old, Open: sink}
}

func (m *Machine) sinkChanged(e SinkChanged) Action {
	switch m.state {
	case Discovering:
		// Any sink may have started playing.
		return Discover{}
	case Streaming:
		if e.Kind != SinkResync && e.Index != m.sink.Index {
			return None{}
		}
		log.Debugf("Capture: %s event on tracked sink %d", e.Kind, m.sink.Index)
		m.stale = true
		return Discover{}
	}
	return None{}
}

func (m *Machine) sessionOpened(e SessionOpened) Action {
	if m.state != Connected || e.Sink != m.sink {
		return Close{Session: e.ID}
	}
	m.session = e.ID
	m.state = Streaming
	return None{}
}

func (m *Machine) bytes(e Bytes) Action {
	// Stale sessions and batches that arrive before re-discovery confirms
	// the sink are dropped.
	if m.state != Streaming || m.stale || e.Session != m.session {
		return None{}
	}
	if wait := m.window.Fill(e.Data, m.handler); wait > 0 {
		return Pause{Wait: wait}
	}
	return None{}
}

// forget drops the tracked sink and session and goes back to discovery.
func (m *Machine) forget() {
	m.sink = SinkIdentity{}
	m.session = 0
	m.stale = false
	m.state = Discovering
	m.window.Reset()
}

// ActiveSink returns the last running sink with a usable monitor source,
// the one a Machine follows.
func ActiveSink(sinks []SinkInfo) (SinkIdentity, bool) {
	var (
		found SinkIdentity
		ok    bool
	)
	for _, s := range sinks {
		if !s.Running {
			continue
		}
		id, err := NewSinkIdentity(s)
		if err != nil {
			log.Warnf("Capture: skipping sink: %v", err)
			continue
		}
		found, ok = id, true
	}
	return found, ok
}
