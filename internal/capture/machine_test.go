package capture

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"termspectrum/internal/log"
	"termspectrum/pkg/utils"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var (
	sinkA = SinkInfo{Index: 1, Name: "alsa_output.a", MonitorSource: "alsa_output.a.monitor"}
	sinkB = SinkInfo{Index: 2, Name: "alsa_output.b", MonitorSource: "alsa_output.b.monitor"}
)

func running(s SinkInfo) SinkInfo {
	s.Running = true
	return s
}

func identity(s SinkInfo) SinkIdentity {
	return SinkIdentity{Index: s.Index, MonitorSource: s.MonitorSource}
}

// streamingOn drives a new machine until it streams from sink with session id.
func streamingOn(t *testing.T, m *Machine, sink SinkInfo, id SessionID) {
	t.Helper()
	if _, ok := m.Handle(Tick{}).(Discover); !ok {
		t.Fatal("first Tick did not request discovery")
	}
	act := m.Handle(SinksListed{Sinks: []SinkInfo{running(sink)}})
	sw, ok := act.(Switch)
	if !ok || sw.Open != identity(sink) {
		t.Fatalf("SinksListed() = %#v, want Switch to %s", act, sink.MonitorSource)
	}
	if act := m.Handle(SessionOpened{Sink: sw.Open, ID: id}); act != (None{}) {
		t.Fatalf("SessionOpened() = %#v, want None", act)
	}
	if m.State() != Streaming {
		t.Fatalf("state = %v, want streaming", m.State())
	}
}

func TestMachineSinkSwitch(t *testing.T) {
	handler, got := collect(0)
	m := NewMachine(2, handler)
	streamingOn(t, m, sinkA, 1)

	m.Handle(Bytes{Session: 1, Data: utils.PCMBytes([]int16{1, 2})})
	if len(*got) != 1 {
		t.Fatalf("delivered %d windows from A, want 1", len(*got))
	}

	// A stops and B starts: the change event names the tracked sink.
	if act := m.Handle(SinkChanged{Kind: SinkChange, Index: sinkA.Index}); act != (Discover{}) {
		t.Fatalf("SinkChanged() = %#v, want Discover", act)
	}

	// Nothing is delivered until the sink is confirmed.
	m.Handle(Bytes{Session: 1, Data: utils.PCMBytes([]int16{3, 4})})
	if len(*got) != 1 {
		t.Fatalf("delivered a window while the sink was stale")
	}

	act := m.Handle(SinksListed{Sinks: []SinkInfo{sinkA, running(sinkB)}})
	want := Switch{Close: 1, Open: identity(sinkB)}
	if act != want {
		t.Fatalf("SinksListed() = %#v, want %#v", act, want)
	}
	if m.State() != Connected {
		t.Errorf("state = %v, want connected", m.State())
	}

	// Late bytes of A are ignored.
	m.Handle(Bytes{Session: 1, Data: utils.PCMBytes([]int16{5, 6})})
	if len(*got) != 1 {
		t.Fatalf("delivered a window from the closed session")
	}

	if act := m.Handle(SessionOpened{Sink: identity(sinkB), ID: 2}); act != (None{}) {
		t.Fatalf("SessionOpened() = %#v, want None", act)
	}
	m.Handle(Bytes{Session: 2, Data: utils.PCMBytes([]int16{7, 8})})
	if len(*got) != 2 || (*got)[1].samples[0] != 7 {
		t.Errorf("windows = %+v, want second window from B", *got)
	}
	if m.Sink() != identity(sinkB) || m.Session() != 2 {
		t.Errorf("tracking %+v session %d, want B session 2", m.Sink(), m.Session())
	}
}

func TestMachineIgnoresOtherSinkEvents(t *testing.T) {
	m := NewMachine(4, func(bool, []float64) time.Duration { return 0 })
	streamingOn(t, m, sinkA, 1)

	if act := m.Handle(SinkChanged{Kind: SinkNew, Index: sinkB.Index}); act != (None{}) {
		t.Errorf("SinkChanged(other) = %#v, want None", act)
	}
	if m.NeedsDiscovery() {
		t.Error("NeedsDiscovery() = true after event on another sink")
	}
}

func TestMachineResyncRediscoversSwitchedSink(t *testing.T) {
	m := NewMachine(4, func(bool, []float64) time.Duration { return 0 })
	streamingOn(t, m, sinkA, 1)

	// The resync stands for lost events, whichever sink they were about.
	if act := m.Handle(SinkChanged{Kind: SinkResync}); act != (Discover{}) {
		t.Fatalf("SinkChanged(resync) = %#v, want Discover", act)
	}
	if !m.NeedsDiscovery() {
		t.Error("NeedsDiscovery() = false after resync")
	}

	act := m.Handle(SinksListed{Sinks: []SinkInfo{sinkA, running(sinkB)}})
	if act != (Switch{Close: 1, Open: identity(sinkB)}) {
		t.Errorf("SinksListed() = %#v, want Switch from session 1 to B", act)
	}
}

func TestMachineSameSinkKeepsSession(t *testing.T) {
	m := NewMachine(4, func(bool, []float64) time.Duration { return 0 })
	streamingOn(t, m, sinkA, 1)

	m.Handle(SinkChanged{Kind: SinkChange, Index: sinkA.Index})
	if act := m.Handle(SinksListed{Sinks: []SinkInfo{running(sinkA)}}); act != (None{}) {
		t.Fatalf("SinksListed(same) = %#v, want None", act)
	}
	if m.State() != Streaming || m.NeedsDiscovery() || m.Session() != 1 {
		t.Errorf("state = %v stale = %v session = %d, want streaming on session 1", m.State(), m.NeedsDiscovery(), m.Session())
	}
}

func TestMachineNoRunningSinkClosesSession(t *testing.T) {
	m := NewMachine(4, func(bool, []float64) time.Duration { return 0 })
	streamingOn(t, m, sinkA, 3)

	m.Handle(SinkChanged{Kind: SinkChange, Index: sinkA.Index})
	act := m.Handle(SinksListed{Sinks: []SinkInfo{sinkA, sinkB}})
	if act != (Close{Session: 3}) {
		t.Fatalf("SinksListed(idle) = %#v, want Close{3}", act)
	}
	if m.State() != Discovering || !m.NeedsDiscovery() {
		t.Errorf("state = %v, want discovering", m.State())
	}

	// Still nothing running: no action, keep discovering.
	if act := m.Handle(SinksListed{}); act != (None{}) {
		t.Errorf("SinksListed(empty) = %#v, want None", act)
	}
	if act := m.Handle(Tick{}); act != (Discover{}) {
		t.Errorf("Tick() = %#v, want Discover", act)
	}
}

func TestActiveSinkSelection(t *testing.T) {
	long := running(SinkInfo{Index: 9, MonitorSource: strings.Repeat("x", MaxSourceNameLen+1)})
	exact := running(SinkInfo{Index: 8, MonitorSource: strings.Repeat("y", MaxSourceNameLen)})

	tests := []struct {
		name  string
		sinks []SinkInfo
		want  SinkIdentity
		ok    bool
	}{
		{"none", nil, SinkIdentity{}, false},
		{"idle only", []SinkInfo{sinkA, sinkB}, SinkIdentity{}, false},
		{"last running wins", []SinkInfo{running(sinkA), running(sinkB)}, identity(sinkB), true},
		{"long name skipped", []SinkInfo{running(sinkA), long}, identity(sinkA), true},
		{"only long name", []SinkInfo{long}, SinkIdentity{}, false},
		{"255 bytes accepted", []SinkInfo{exact}, identity(exact), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ActiveSink(tt.sinks)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ActiveSink() = %+v, %v, want %+v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNewSinkIdentityTooLong(t *testing.T) {
	_, err := NewSinkIdentity(SinkInfo{MonitorSource: strings.Repeat("z", 300)})
	if !errors.Is(err, ErrSourceNameTooLong) {
		t.Errorf("NewSinkIdentity() error = %v, want ErrSourceNameTooLong", err)
	}
}

func TestMachinePause(t *testing.T) {
	handler, got := collect(250 * time.Millisecond)
	m := NewMachine(2, handler)
	streamingOn(t, m, sinkA, 1)

	act := m.Handle(Bytes{Session: 1, Data: utils.PCMBytes([]int16{0, 0, 1, 1})})
	if act != (Pause{Wait: 250 * time.Millisecond}) {
		t.Fatalf("Bytes() = %#v, want Pause", act)
	}
	if len(*got) != 1 {
		t.Errorf("delivered %d windows, want 1 before the pause", len(*got))
	}
}

func TestMachineStreamFailed(t *testing.T) {
	m := NewMachine(2, func(bool, []float64) time.Duration { return 0 })
	streamingOn(t, m, sinkA, 4)

	if act := m.Handle(StreamFailed{Session: 3, Err: io.EOF}); act != (None{}) {
		t.Errorf("StreamFailed(old) = %#v, want None", act)
	}
	if act := m.Handle(StreamFailed{Session: 4, Err: io.EOF}); act != (Close{Session: 4}) {
		t.Errorf("StreamFailed(current) = %#v, want Close{4}", act)
	}
	if m.State() != Discovering {
		t.Errorf("state = %v, want discovering", m.State())
	}
}

func TestMachineSessionFailed(t *testing.T) {
	m := NewMachine(2, func(bool, []float64) time.Duration { return 0 })
	m.Handle(Tick{})
	m.Handle(SinksListed{Sinks: []SinkInfo{running(sinkA)}})

	if act := m.Handle(SessionFailed{Err: errors.New("no such entity")}); act != (None{}) {
		t.Errorf("SessionFailed() = %#v, want None", act)
	}
	if m.State() != Discovering || !m.NeedsDiscovery() {
		t.Errorf("state = %v, want discovering", m.State())
	}
}

func TestMachineRejectsUnexpectedSession(t *testing.T) {
	m := NewMachine(2, func(bool, []float64) time.Duration { return 0 })
	m.Handle(Tick{})

	act := m.Handle(SessionOpened{Sink: identity(sinkA), ID: 7})
	if act != (Close{Session: 7}) {
		t.Errorf("SessionOpened(unrequested) = %#v, want Close{7}", act)
	}
}

func TestMachineClientFailed(t *testing.T) {
	m := NewMachine(2, func(bool, []float64) time.Duration { return 0 })
	streamingOn(t, m, sinkA, 5)

	act := m.Handle(ClientFailed{Err: ErrClientClosed})
	if act != (Shutdown{Close: 5}) {
		t.Errorf("ClientFailed() = %#v, want Shutdown{5}", act)
	}
	if m.State() != Disconnected {
		t.Errorf("state = %v, want disconnected", m.State())
	}
}
