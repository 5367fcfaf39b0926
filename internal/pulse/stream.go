package pulse

import (
	"errors"
	"sync"
	"time"

	"termspectrum/internal/capture"
	"termspectrum/internal/log"

	"github.com/jfreymuth/pulse"
)

const (
	streamBuffer  = 64
	watchInterval = 250 * time.Millisecond
)

var errStreamStopped = errors.New("record stream stopped by server")

// stream adapts a RecordStream to capture.Stream. The protocol reader
// calls Write; the capture loop reads Data.
type stream struct {
	source string
	rec    *pulse.RecordStream
	data   chan []byte

	mu     sync.Mutex
	closed bool
	err    error
	done   chan struct{}
}

var _ capture.Stream = (*stream)(nil)

func newStream(source string) *stream {
	return &stream{
		source: source,
		data:   make(chan []byte, streamBuffer),
		done:   make(chan struct{}),
	}
}

// Write copies one batch; the reader reuses its buffer. When the loop is
// not keeping up the batch is dropped.
func (s *stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return len(p), nil
	}
	select {
	case s.data <- append([]byte(nil), p...):
	default:
		log.Debugf("Pulse: dropping %d bytes from %s", len(p), s.source)
	}
	return len(p), nil
}

func (s *stream) Data() <-chan []byte { return s.data }

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Flush drops every batch queued but not yet read.
func (s *stream) Flush() error {
	for {
		select {
		case _, ok := <-s.data:
			if !ok {
				return nil
			}
		default:
			return nil
		}
	}
}

func (s *stream) Close() error {
	if !s.shut(nil) {
		return nil
	}
	s.rec.Stop()
	s.rec.Close()
	return nil
}

// shut closes the data channel once, recording err. It reports whether
// this call did it.
func (s *stream) shut(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	s.err = err
	close(s.done)
	close(s.data)
	return true
}

// watch fails the stream once the server stops it, e.g. when its source
// is removed.
func (s *stream) watch() {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if s.rec.Running() {
				continue
			}
			err := s.rec.Error()
			if err == nil {
				err = errStreamStopped
			}
			if s.shut(err) {
				s.rec.Close()
			}
			return
		}
	}
}
