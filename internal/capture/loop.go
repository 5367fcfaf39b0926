package capture

import (
	"context"
	"time"

	"termspectrum/internal/log"
)

const defaultInitialBackoff = 100 * time.Millisecond

// sleep is replaced in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// LoopConfig configures a Loop.
type LoopConfig struct {
	WindowSize int
	Spec       StreamSpec

	// InitialBackoff and MaxBackoff pace re-discovery while no sink is
	// running or a stream cannot be opened.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Loop drives a Machine against a Client. Everything it does happens in
// the goroutine calling Run.
type Loop struct {
	client  Client
	machine *Machine
	spec    StreamSpec
	backoff *Backoff

	stream   Stream
	streamID SessionID
	lastID   SessionID

	retry *time.Timer
}

// NewLoop returns a Loop that delivers windows to handler.
func NewLoop(client Client, cfg LoopConfig, handler FrameHandler) *Loop {
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = defaultInitialBackoff
	}
	return &Loop{
		client:  client,
		machine: NewMachine(cfg.WindowSize, handler),
		spec:    cfg.Spec,
		backoff: NewBackoff(initial, cfg.MaxBackoff),
	}
}

// Machine exposes the state machine, for inspection only.
func (l *Loop) Machine() *Machine { return l.machine }

// Run follows the active sink until the client terminates, which returns
// nil, or ctx is cancelled, which returns ctx.Err(). The open stream is
// released either way; the client is left to the caller.
func (l *Loop) Run(ctx context.Context) error {
	defer l.release()
	defer l.stopRetry()

	if l.exec(ctx, l.machine.Handle(Tick{})) {
		return nil
	}

	events := l.client.Events()
	for {
		l.scheduleRetry()

		var (
			data   <-chan []byte
			retryC <-chan time.Time
		)
		if l.stream != nil {
			data = l.stream.Data()
		}
		if l.retry != nil {
			retryC = l.retry.C
		}

		var act Action
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				act = l.machine.Handle(ClientFailed{Err: l.client.Err()})
				break
			}
			l.backoff.Reset()
			act = l.machine.Handle(SinkChanged{Kind: ev.Kind, Index: ev.Index})

		case b, ok := <-data:
			if !ok {
				act = l.machine.Handle(StreamFailed{Session: l.streamID, Err: l.stream.Err()})
				l.release()
				break
			}
			act = l.machine.Handle(Bytes{Session: l.streamID, Data: b})

		case <-retryC:
			l.retry = nil
			act = l.machine.Handle(Tick{})
		}

		if l.exec(ctx, act) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// exec runs one action and any follow-ups. It reports whether the loop
// must end.
func (l *Loop) exec(ctx context.Context, act Action) bool {
	for {
		switch a := act.(type) {
		case Discover:
			sinks, err := l.client.ListSinks(ctx)
			if err != nil {
				log.Warnf("Capture: cannot list sinks: %v", err)
				return false
			}
			act = l.machine.Handle(SinksListed{Sinks: sinks})

		case Switch:
			if a.Close != 0 {
				l.closeSession(a.Close)
			}
			act = l.open(ctx, a.Open)

		case Close:
			l.closeSession(a.Session)
			return false

		case Pause:
			log.Debugf("Capture: pausing for %v", a.Wait)
			if err := sleep(ctx, a.Wait); err != nil {
				return false
			}
			if l.stream != nil {
				if err := l.stream.Flush(); err != nil {
					log.Warnf("Capture: flush failed: %v", err)
				}
			}
			return false

		case Shutdown:
			l.release()
			return true

		default:
			return false
		}
	}
}

func (l *Loop) open(ctx context.Context, sink SinkIdentity) Action {
	stream, err := l.client.OpenStream(ctx, sink.MonitorSource, l.spec)
	if err != nil {
		return l.machine.Handle(SessionFailed{Err: err})
	}

	l.lastID++
	l.stream = stream
	l.streamID = l.lastID
	log.Infof("Capture: recording from %s", sink.MonitorSource)
	return l.machine.Handle(SessionOpened{Sink: sink, ID: l.streamID})
}

func (l *Loop) closeSession(id SessionID) {
	if id == l.streamID {
		l.release()
	}
}

// release closes the open stream, if any.
func (l *Loop) release() {
	if l.stream == nil {
		return
	}
	if err := l.stream.Close(); err != nil {
		log.Warnf("Capture: closing stream: %v", err)
	}
	l.stream = nil
	l.streamID = 0
}

// scheduleRetry arms the discovery timer while the machine waits for a
// sink, and resets the backoff once streaming.
func (l *Loop) scheduleRetry() {
	if !l.machine.NeedsDiscovery() {
		if l.machine.State() == Streaming {
			l.backoff.Reset()
		}
		return
	}
	if l.retry == nil {
		l.retry = time.NewTimer(l.backoff.Next())
	}
}

func (l *Loop) stopRetry() {
	if l.retry != nil {
		l.retry.Stop()
		l.retry = nil
	}
}
