package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"termspectrum/cmd"
	"termspectrum/internal/audio"
	"termspectrum/internal/capture"
	"termspectrum/internal/config"
	"termspectrum/internal/fft"
	"termspectrum/internal/frame"
	"termspectrum/internal/glyph"
	"termspectrum/internal/log"
	"termspectrum/internal/pulse"
	"termspectrum/internal/render"
	"termspectrum/internal/transport"
	"termspectrum/internal/transport/udp"
	"termspectrum/pkg/build"
)

const listTimeout = 2 * time.Second

// main is the entry point. The program flow is divided into three phases:
//
// 1. Startup (cold path): build information, command line, logging, the
// capture backend, and every buffer of the rendering path.
//
// 2. Capture (hot path): the capture loop follows the active sink and
// hands each full window to the frame processor until the audio client
// goes away or a termination signal arrives.
//
// 3. Shutdown (cold path): the recorder, transports and client are
// closed.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		return err
	}

	opts, err := cmd.ParseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		return err
	}
	if opts.Command == cmd.NoCommand || opts.Command == cmd.VersionCommand {
		return nil
	}
	cfg := opts.Config

	setupLogging(cfg)

	if opts.Command == cmd.ListCommand && cfg.Capture.Backend == config.BackendPortAudio {
		return listDevices(os.Stdout)
	}

	client, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	switch opts.Command {
	case cmd.ListCommand:
		return listSinks(client, os.Stdout)
	case cmd.BrowseCommand:
		return runBrowser(client)
	}

	processor, closers, err := newFrameProcessor(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Warnf("Shutdown: %v", err)
			}
		}
	}()

	// ==================== CAPTURE PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := capture.NewLoop(client, capture.LoopConfig{
		WindowSize: cfg.Capture.WindowSize,
		Spec: capture.StreamSpec{
			SampleRate: cfg.Capture.SampleRate,
			// Two bytes per mono 16-bit sample.
			FragmentSize: 2 * cfg.Capture.WindowSize,
		},
		InitialBackoff: cfg.Idle.Backoff(),
		MaxBackoff:     cfg.Idle.IdleSleep(),
	}, processor.Handle)

	err = loop.Run(ctx)

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if cfg.Display.Terminator() == '\r' {
		fmt.Fprintln(os.Stdout)
	}
	if errors.Is(err, context.Canceled) {
		log.Debugf("Capture: stopped by signal")
		return nil
	}
	return err
}

func setupLogging(cfg *config.Config) {
	level, ok := log.ParseLevel(cfg.LogLevel)
	if !ok {
		level = log.LevelInfo
	}
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)
}

// openClient connects the configured capture backend.
func openClient(cfg *config.Config) (capture.Client, error) {
	switch cfg.Capture.Backend {
	case config.BackendPortAudio:
		return audio.Open(cfg.Capture.Device)
	default:
		return pulse.Dial(cfg.Capture.Server)
	}
}

// newFrameProcessor builds the rendering path and the optional recorder and
// transports. The returned closers must be closed on shutdown.
func newFrameProcessor(cfg *config.Config, out io.Writer) (*frame.Processor, []io.Closer, error) {
	var closers []io.Closer
	fail := func(err error) (*frame.Processor, []io.Closer, error) {
		for _, c := range closers {
			c.Close()
		}
		return nil, nil, err
	}

	window, err := fft.ParseWindowFunc(cfg.Capture.Window)
	if err != nil {
		return fail(err)
	}
	spectrum, err := fft.NewProcessor(cfg.Capture.WindowSize, window)
	if err != nil {
		return fail(err)
	}

	pipeline, err := newPipeline(cfg)
	if err != nil {
		return fail(err)
	}

	processor := frame.NewProcessor(spectrum, pipeline, out, frame.Options{
		IdleWait:   cfg.Idle.IdleWait(),
		IdleSleep:  cfg.Idle.IdleSleep(),
		Terminator: cfg.Display.Terminator(),
		Stats:      cfg.Display.Stats,
	})

	if path := cfg.Recording.Path; path != "" {
		recorder, err := audio.NewRecorder(path, cfg.Capture.SampleRate, cfg.Capture.WindowSize)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, recorder)
		processor.SetRecorder(recorder)
		log.Infof("Recording: writing to %s", path)
	}

	if addr := cfg.Transport.WSAddr; addr != "" {
		ws, err := transport.NewWebSocketTransport(addr)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, ws)
		processor.AddTransport(ws)
		log.Infof("Transport: serving frames on ws://%s/ws", ws.Addr())
	}

	if target := cfg.Transport.UDPTarget; target != "" {
		publisher, err := udp.NewPublisher(target)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, publisher)
		processor.AddTransport(publisher)
		log.Infof("Transport: sending levels to udp://%s", target)
	}

	if log.GetLevel() == log.LevelDebug {
		processor.AddTransport(transport.NewLoggingTransport())
	}

	return processor, closers, nil
}

// newPipeline builds the rendering pipeline from the display settings.
func newPipeline(cfg *config.Config) (*render.Pipeline, error) {
	d := cfg.Display

	charset, err := glyph.ParseCharset(d.Charset)
	if err != nil {
		return nil, err
	}
	grouping, err := render.ParseGrouping(d.Grouping)
	if err != nil {
		return nil, err
	}
	reducer, err := render.ParseReducer(d.Reducer)
	if err != nil {
		return nil, err
	}
	transform, err := render.ParseTransform(d.Transform)
	if err != nil {
		return nil, err
	}
	smoothing, err := render.ParseSmoothing(d.Smoothing)
	if err != nil {
		return nil, err
	}

	rate := float64(cfg.Capture.SampleRate)
	p, err := render.New(render.Options{
		Frequencies: fft.Frequencies(cfg.Capture.WindowSize, rate),
		MinFreq:     d.MinFreq,
		MaxFreq:     d.MaxFreq,
		Columns:     d.Columns,
		AbsMin:      d.AbsMin,
		AbsMax:      d.AbsMax,
		Grouping:    grouping,
		Reducer:     reducer,
		Transform:   transform,
		FrameRate:   rate / float64(cfg.Capture.WindowSize),
	})
	if err != nil {
		return nil, err
	}

	p.SetCharset(charset)
	p.SetSmoothing(smoothing)
	p.SetSmoothingFactors(d.SmoothValueFactor, d.SmoothLimitFactor)
	p.SetLinearOffset(d.LinearOffset)
	p.SetSigmoid(d.Sigmoid)
	p.SetSilenceText(d.SilenceText)

	log.Debugf("Render: %d points, %d columns, %s/%s grouping, %s smoothing",
		p.NumPoints(), p.Width(), grouping, reducer, smoothing)
	return p, nil
}
