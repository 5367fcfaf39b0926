// SPDX-License-Identifier: MIT
/*
Package audio implements capture.Client on top of PortAudio for hosts
without a PulseAudio server, and records captured windows to WAV.

PortAudio has no notion of sinks, so the client exposes the selected input
device as a single sink that is always running and never changes. Samples
are read with a blocking mono 16-bit stream on a dedicated goroutine and
delivered as little-endian PCM, the same wire format the PulseAudio backend
produces.
*/
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"termspectrum/internal/capture"
	"termspectrum/internal/log"

	"github.com/gordonklaus/portaudio"
)

const (
	defaultFramesPerBuffer = 512
	streamBuffer           = 64
)

var errUnknownSource = errors.New("unknown source")

// blockingStream is the part of *portaudio.Stream the reader uses.
type blockingStream interface {
	Start() error
	Read() error
	Stop() error
	Close() error
}

var paOpenStream = func(dev *portaudio.DeviceInfo, sampleRate float64, buf []int16) (blockingStream, error) {
	return portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: len(buf),
	}, buf)
}

// Client captures from one PortAudio input device.
type Client struct {
	id     int
	device *portaudio.DeviceInfo

	events    chan capture.SinkEvent
	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

var _ capture.Client = (*Client)(nil)

// Open initializes PortAudio and selects deviceID, or the default input
// device for DefaultDeviceID. Close terminates PortAudio again.
func Open(deviceID int) (*Client, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	dev, err := InputDevice(deviceID)
	if err != nil {
		Terminate()
		return nil, fmt.Errorf("failed to select input device: %w", err)
	}
	log.Infof("PortAudio: capturing from %s", dev.Name)

	return newClient(deviceID, dev), nil
}

func newClient(id int, dev *portaudio.DeviceInfo) *Client {
	if id < 0 {
		id = 0
	}
	return &Client{
		id:     id,
		device: dev,
		events: make(chan capture.SinkEvent),
	}
}

// ListSinks implements capture.Client. The device is the only sink.
func (c *Client) ListSinks(ctx context.Context) ([]capture.SinkInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return []capture.SinkInfo{{
		Index:         uint32(c.id),
		Name:          c.device.Name,
		MonitorSource: c.device.Name,
		Running:       true,
	}}, nil
}

// Events implements capture.Client. Nothing is ever sent; the channel
// closes with the client.
func (c *Client) Events() <-chan capture.SinkEvent { return c.events }

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
	if source != c.device.Name {
		return nil, fmt.Errorf("%w: %s", errUnknownSource, source)
	}

	frames := spec.FragmentSize / 2
	if frames < 1 {
		frames = defaultFramesPerBuffer
	}
	buf := make([]int16, frames)

	pa, err := paOpenStream(c.device, float64(spec.SampleRate), buf)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	if err := pa.Start(); err != nil {
		pa.Close()
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}

	s := newStream(pa, buf)
	go s.read()
	return s, nil
}

// Close implements capture.Client.
func (c *Client) Close() error {
	first := false
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = capture.ErrClientClosed
		c.mu.Unlock()
		close(c.events)
		first = true
	})
	if !first {
		return nil
	}
	return Terminate()
}

// stream reads the blocking PortAudio stream on its own goroutine.
type stream struct {
	pa   blockingStream
	buf  []int16
	data chan []byte

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

var _ capture.Stream = (*stream)(nil)

func newStream(pa blockingStream, buf []int16) *stream {
	return &stream{
		pa:   pa,
		buf:  buf,
		data: make(chan []byte, streamBuffer),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (s *stream) read() {
	defer close(s.done)
	defer close(s.data)

	for {
		select {
		case <-s.quit:
			return
		default:
		}

		if err := s.pa.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				log.Debugf("PortAudio: input overflowed")
				continue
			}
			select {
			case <-s.quit:
			default:
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
			}
			return
		}

		select {
		case s.data <- pcmBytes(s.buf):
		case <-s.quit:
			return
		default:
			log.Debugf("PortAudio: dropping %d samples", len(s.buf))
		}
	}
}

func pcmBytes(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

func (s *stream) Data() <-chan []byte { return s.data }

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Flush drops every batch read but not yet consumed.
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

// Close stops the device, which unblocks a pending Read, then waits for
// the reader to exit.
func (s *stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.quit)
		err = errors.Join(s.pa.Stop(), s.pa.Close())
		<-s.done
	})
	return err
}
