// SPDX-License-Identifier: MIT
/*
Package frame is the glue between the capture loop and the renderer.

Processor.Handle is a capture.FrameHandler: for every full window it either
runs the FFT and renders the spectrum, renders an all-zero spectrum while a
silence has not lasted IdleWait yet, or prints the silence line and asks
the loop to sleep for IdleSleep. Each line goes to the output prefixed by
the terminator, so a carriage return redraws the same terminal row.
*/
package frame

import (
	"fmt"
	"io"
	"time"

	"termspectrum/internal/fft"
	"termspectrum/internal/log"
	"termspectrum/internal/render"
	"termspectrum/internal/transport"
)

// Options control output and the idle policy.
type Options struct {
	IdleWait   time.Duration
	IdleSleep  time.Duration
	Terminator byte
	Stats      bool
}

// WindowWriter receives every delivered window, e.g. a WAV recorder.
type WindowWriter interface {
	Write(window []float64) error
}

// Processor renders windows to out. It is not safe for concurrent use.
type Processor struct {
	fft      *fft.Processor
	pipeline *render.Pipeline
	out      io.Writer
	opts     Options

	recorder   WindowWriter
	transports []transport.Transport

	now       func() time.Time
	last      time.Time
	silentFor time.Duration

	zeros []float64
	line  []byte
}

// NewProcessor returns a Processor writing lines to out.
func NewProcessor(f *fft.Processor, p *render.Pipeline, out io.Writer, opts Options) *Processor {
	if opts.Terminator == 0 {
		opts.Terminator = '\r'
	}
	proc := &Processor{
		fft:      f,
		pipeline: p,
		out:      out,
		opts:     opts,
		now:      time.Now,
		zeros:    make([]float64, f.Size()/2+1),
		line:     make([]byte, 0, 1+4*p.Width()+32),
	}
	proc.last = proc.now()
	return proc
}

// SetRecorder makes every delivered window go to w as well.
func (p *Processor) SetRecorder(w WindowWriter) { p.recorder = w }

// AddTransport publishes every printed line to t.
func (p *Processor) AddTransport(t transport.Transport) {
	p.transports = append(p.transports, t)
}

// Handle processes one window and returns how long the loop should pause.
func (p *Processor) Handle(silent bool, window []float64) time.Duration {
	now := p.now()
	elapsed := now.Sub(p.last)
	p.last = now

	p.record(window)

	if silent {
		if p.silentFor > p.opts.IdleWait {
			p.line = append(p.line[:0], p.opts.Terminator)
			p.line = append(p.line, p.pipeline.Silence()...)
			p.write()
			p.publish(now, true, len(p.line))
			return p.opts.IdleSleep
		}
		p.silentFor += elapsed

		p.line = append(p.line[:0], p.opts.Terminator)
		p.line = p.pipeline.AppendLine(p.line, p.zeros)
		p.write()
		p.publish(now, false, len(p.line))
		return 0
	}
	p.silentFor = 0

	mags := p.fft.Magnitudes(window)

	p.line = append(p.line[:0], p.opts.Terminator)
	p.line = p.pipeline.AppendLine(p.line, mags)
	end := len(p.line)
	if p.opts.Stats {
		ms := float64(elapsed) / float64(time.Millisecond)
		fps := 0.0
		if ms > 0 {
			fps = 1000 / ms
		}
		p.line = fmt.Appendf(p.line, "> % 4.0f ms % 5.0f fps", ms, fps)
	}
	p.write()
	p.publish(now, false, end)
	return 0
}

func (p *Processor) write() {
	if _, err := p.out.Write(p.line); err != nil {
		log.Debugf("Output: %v", err)
	}
}

func (p *Processor) record(window []float64) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Write(window); err != nil {
		log.Warnf("Recording stopped: %v", err)
		p.recorder = nil
	}
}

// publish sends the glyphs in p.line[1:end] to every transport.
func (p *Processor) publish(now time.Time, silent bool, end int) {
	if len(p.transports) == 0 {
		return
	}
	f := transport.Frame{Line: string(p.line[1:end]), Silent: silent, Time: now}
	if !silent {
		f.Levels = p.pipeline.Quantized()
	}
	for _, t := range p.transports {
		if err := t.Send(f); err != nil {
			log.Debugf("Transport: %v", err)
		}
	}
}
