// SPDX-License-Identifier: MIT
/*
Package capture follows the active audio sink and turns its monitor stream
into fixed-size sample windows.

It is split in three parts:

  - Client and Stream describe the audio server connection (PulseAudio,
    PortAudio) the rest of the package drives.
  - Machine is a pure transition function: events in, actions out. It owns
    the tracked sink, the open session id and the sample Window.
  - Loop is the only goroutine touching Machine. It selects over client
    events, stream data and a discovery timer and executes actions in order.

Collaborator goroutines (protocol readers, device callbacks) only ever send
on channels, so no locks are needed around Machine or Window.
*/
package capture

import (
	"context"
	"errors"
	"fmt"
)

// MaxSourceNameLen is the longest monitor source name accepted, in bytes.
const MaxSourceNameLen = 255

var (
	// ErrClientClosed is reported by a Client once its connection has
	// terminated.
	ErrClientClosed = errors.New("audio client closed")

	// ErrSourceNameTooLong is returned for monitor source names longer than
	// MaxSourceNameLen bytes.
	ErrSourceNameTooLong = errors.New("monitor source name too long")
)

// SinkInfo is one entry of a sink enumeration.
type SinkInfo struct {
	Index         uint32
	Name          string
	MonitorSource string
	Running       bool
}

// SinkIdentity identifies the sink currently producing audio.
type SinkIdentity struct {
	Index         uint32
	MonitorSource string
}

// NewSinkIdentity validates the monitor source name of info.
func NewSinkIdentity(info SinkInfo) (SinkIdentity, error) {
	if len(info.MonitorSource) > MaxSourceNameLen {
		return SinkIdentity{}, fmt.Errorf("sink %d: %w: %s", info.Index, ErrSourceNameTooLong, info.MonitorSource[:MaxSourceNameLen])
	}
	return SinkIdentity{Index: info.Index, MonitorSource: info.MonitorSource}, nil
}

// EventKind tells what happened to a sink.
type EventKind int

const (
	SinkNew EventKind = iota
	SinkChange
	SinkRemove
	// SinkResync replaces events the client could not queue. It carries
	// no index and applies to every sink.
	SinkResync
)

func (k EventKind) String() string {
	switch k {
	case SinkNew:
		return "new"
	case SinkRemove:
		return "remove"
	case SinkResync:
		return "resync"
	default:
		return "change"
	}
}

// SinkEvent is a subscription notification for one sink.
type SinkEvent struct {
	Kind  EventKind
	Index uint32
}

// StreamSpec describes the capture stream. Samples are always signed
// 16-bit little endian, one channel.
type StreamSpec struct {
	SampleRate int
	// FragmentSize is the requested server side buffer, in bytes.
	FragmentSize int
}

// Client is a connection to an audio server.
type Client interface {
	// ListSinks enumerates all sinks with their running state.
	ListSinks(ctx context.Context) ([]SinkInfo, error)

	// Events delivers sink notifications. It is closed when the connection
	// terminates; Err then reports why.
	Events() <-chan SinkEvent

	// OpenStream starts recording from the named monitor source.
	OpenStream(ctx context.Context, source string, spec StreamSpec) (Stream, error)

	Err() error
	Close() error
}

// Stream is one open recording session.
type Stream interface {
	// Data delivers raw PCM batches. It is closed when the stream fails;
	// Err then reports why.
	Data() <-chan []byte

	// Flush discards any audio buffered but not yet delivered.
	Flush() error

	Err() error
	Close() error
}
