// SPDX-License-Identifier: MIT
/*
Package pulse implements capture.Client on top of the native PulseAudio
protocol.

Two connections are opened: a github.com/jfreymuth/pulse client used for
sink enumeration and record streams, and a raw proto connection subscribed
to sink events. PulseAudio does not notify a client when its own socket
dies, so the event connection is also pinged with GetServerInfo; the first
failing ping terminates the client.
*/
package pulse

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"termspectrum/internal/capture"
	"termspectrum/internal/log"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

const (
	appName = "terminal pulseaudio spectrum"

	watchdogInterval = time.Second

	// PA_SINK_RUNNING
	sinkStateRunning = 0

	eventBuffer = 16
)

// Client is a PulseAudio connection following sink events.
type Client struct {
	client *pulse.Client

	events    *proto.Client
	eventConn net.Conn
	eventCh   chan capture.SinkEvent

	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

var _ capture.Client = (*Client)(nil)

// Dial connects to the server named by server, or the default server when
// empty, and subscribes to sink events.
func Dial(server string) (*Client, error) {
	opts := []pulse.ClientOption{pulse.ClientApplicationName(appName)}
	if server != "" {
		opts = append(opts, pulse.ClientServerString(server))
	}
	pc, err := pulse.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PulseAudio: %w", err)
	}

	c := &Client{
		client:  pc,
		eventCh: make(chan capture.SinkEvent, eventBuffer),
		done:    make(chan struct{}),
	}

	if err := c.subscribe(server); err != nil {
		pc.Close()
		return nil, err
	}

	go c.watchdog()
	return c, nil
}

func (c *Client) subscribe(server string) error {
	ec, conn, err := proto.Connect(server)
	if err != nil {
		return fmt.Errorf("failed to open event connection: %w", err)
	}

	ec.Callback = func(msg interface{}) {
		if ev, ok := msg.(*proto.SubscribeEvent); ok {
			if se, ok := sinkEvent(ev); ok {
				c.sendEvent(se)
			}
		}
	}

	props := proto.PropList{"application.name": proto.PropListString(appName + " events")}
	if err := ec.Request(&proto.SetClientName{Props: props}, &proto.SetClientNameReply{}); err != nil {
		conn.Close()
		return fmt.Errorf("failed to register event client: %w", err)
	}
	if err := ec.Request(&proto.Subscribe{Mask: proto.SubscriptionMaskSink}, nil); err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe to sink events: %w", err)
	}

	c.events = ec
	c.eventConn = conn
	return nil
}

// sendEvent never blocks the protocol reader. When the queue is full its
// contents are replaced by a single resync event, so the loop re-discovers
// whichever sink the lost events were about.
func (c *Client) sendEvent(ev capture.SinkEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.eventCh <- ev:
		return
	default:
	}

	log.Debugf("Pulse: event queue full at %s event for sink %d, coalescing", ev.Kind, ev.Index)
	for len(c.eventCh) > 0 {
		select {
		case <-c.eventCh:
		default:
		}
	}
	select {
	case c.eventCh <- capture.SinkEvent{Kind: capture.SinkResync}:
	default:
	}
}

func (c *Client) watchdog() {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.events.Request(&proto.GetServerInfo{}, &proto.GetServerInfoReply{}); err != nil {
				c.terminate(fmt.Errorf("%w: %v", capture.ErrClientClosed, err))
				return
			}
		}
	}
}

// terminate records err and closes the event channel once.
func (c *Client) terminate(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		close(c.done)
		close(c.eventCh)
		c.mu.Unlock()
	})
}

// ListSinks implements capture.Client.
func (c *Client) ListSinks(ctx context.Context) ([]capture.SinkInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var reply proto.GetSinkInfoListReply
	if err := c.client.RawRequest(&proto.GetSinkInfoList{}, &reply); err != nil {
		return nil, fmt.Errorf("failed to list sinks: %w", err)
	}

	return sinkInfos(reply), nil
}

// Events implements capture.Client.
func (c *Client) Events() <-chan capture.SinkEvent { return c.eventCh }

// Err implements capture.Client.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// OpenStream implements capture.Client.
func (c *Client) OpenStream(ctx context.Context, source string, spec capture.StreamSpec) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := c.client.SourceByID(source)
	if err != nil {
		return nil, fmt.Errorf("failed to find source %s: %w", source, err)
	}

	s := newStream(source)
	opts := []pulse.RecordOption{
		pulse.RecordSource(src),
		pulse.RecordMono,
		pulse.RecordSampleRate(spec.SampleRate),
		pulse.RecordMediaName(appName + " stream"),
	}
	if spec.FragmentSize > 0 {
		opts = append(opts, pulse.RecordBufferFragmentSize(uint32(spec.FragmentSize)))
	}

	rec, err := c.client.NewRecord(pulse.NewWriter(s, proto.FormatInt16LE), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create record stream on %s: %w", source, err)
	}
	s.rec = rec
	rec.Start()

	go s.watch()
	return s, nil
}

// Close implements capture.Client.
func (c *Client) Close() error {
	c.terminate(capture.ErrClientClosed)
	var errs []error
	if c.eventConn != nil {
		errs = append(errs, c.eventConn.Close())
	}
	c.client.Close()
	return errors.Join(errs...)
}

func sinkEvent(ev *proto.SubscribeEvent) (capture.SinkEvent, bool) {
	if ev.Event&proto.EventFacilityMask != proto.EventSink {
		return capture.SinkEvent{}, false
	}
	kind := capture.SinkChange
	switch ev.Event & proto.EventTypeMask {
	case proto.EventNew:
		kind = capture.SinkNew
	case proto.EventRemove:
		kind = capture.SinkRemove
	}
	return capture.SinkEvent{Kind: kind, Index: ev.Index}, true
}

func sinkInfos(reply proto.GetSinkInfoListReply) []capture.SinkInfo {
	sinks := make([]capture.SinkInfo, 0, len(reply))
	for _, s := range reply {
		sinks = append(sinks, capture.SinkInfo{
			Index:         s.SinkIndex,
			Name:          s.SinkName,
			MonitorSource: s.MonitorSourceName,
			Running:       s.State == sinkStateRunning,
		})
	}
	return sinks
}
