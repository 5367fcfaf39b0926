package main

import (
	"context"
	"fmt"
	"io"

	"termspectrum/internal/audio"
	"termspectrum/internal/capture"
	"termspectrum/internal/tui"
)

// listSinks prints the sinks of client and marks the one that would be
// followed.
func listSinks(client capture.Client, w io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()

	sinks, err := client.ListSinks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sinks: %w", err)
	}
	if len(sinks) == 0 {
		fmt.Fprintln(w, "No audio sinks found.")
		return nil
	}

	active, ok := capture.ActiveSink(sinks)
	for _, s := range sinks {
		marker := " "
		if ok && s.Index == active.Index {
			marker = "*"
		}
		state := "idle"
		if s.Running {
			state = "running"
		}
		fmt.Fprintf(w, "%s [%d] %s (%s)\n      monitor: %s\n", marker, s.Index, s.Name, state, s.MonitorSource)
	}
	return nil
}

// listDevices prints the PortAudio input devices.
func listDevices(w io.Writer) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	return audio.ListDevices(w)
}

func runBrowser(client capture.Client) error {
	return tui.Run(client)
}
