package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"termspectrum/internal/config"
)

func TestParseArgsDefaults(t *testing.T) {
	opts, err := ParseArgs(nil, io.Discard)
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if opts.Command != RunCommand {
		t.Errorf("Command = %v, want RunCommand", opts.Command)
	}
	want := config.NewConfig()
	if opts.Config.Display != want.Display || opts.Config.Capture != want.Capture || opts.Config.Idle != want.Idle {
		t.Errorf("Config = %+v, want defaults", opts.Config)
	}
}

func TestParseArgsFlags(t *testing.T) {
	opts, err := ParseArgs([]string{
		"-n", "2048", "-r", "48000", "-f", "50", "-F", "8000", "-b", "60",
		"-c", "braille", "-g", "log", "-G", "avg", "-t", "log", "-m", "spring",
		"-o", "0.5", "-i", "2", "-l", "-s", "-w", "1000", "-W", "250",
		"--silence-text", "zzz", "--window", "hann", "-v",
	}, io.Discard)
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	c := opts.Config
	checks := []struct {
		name string
		ok   bool
	}{
		{"window-size", c.Capture.WindowSize == 2048},
		{"sample-rate", c.Capture.SampleRate == 48000},
		{"window", c.Capture.Window == "hann"},
		{"min/max freq", c.Display.MinFreq == 50 && c.Display.MaxFreq == 8000},
		{"columns", c.Display.Columns == 60},
		{"charset", c.Display.Charset == "braille"},
		{"grouping", c.Display.Grouping == "log" && c.Display.Reducer == "avg"},
		{"transform", c.Display.Transform == "log"},
		{"smoothing", c.Display.Smoothing == "spring"},
		{"offset/sigmoid", c.Display.LinearOffset == 0.5 && c.Display.Sigmoid == 2},
		{"newline", c.Display.Terminator() == '\n'},
		{"stats", c.Display.Stats},
		{"idle", c.Idle.WaitMs == 1000 && c.Idle.SleepMs == 250},
		{"silence text", c.Display.SilenceText == "zzz"},
		{"verbose", c.LogLevel == "debug"},
	}
	for _, tc := range checks {
		if !tc.ok {
			t.Errorf("%s not applied: %+v", tc.name, c)
		}
	}
}

func TestParseArgsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"not a number", []string{"-n", "abc"}, "invalid argument"},
		{"zero columns", []string{"-b", "0"}, "--columns"},
		{"window not power of two", []string{"-n", "1000"}, "power of 2"},
		{"unknown charset", []string{"-c", "ascii"}, "--charset must be one of"},
		{"unknown window", []string{"--window", "triangle-ish"}, "--window"},
		{"inverted range", []string{"-f", "3000", "-F", "100"}, "--max-freq"},
		{"unknown flag", []string{"--nope"}, "unknown flag"},
		{"stray argument", []string{"extra"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args, io.Discard)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ParseArgs(%v) error = %v, want %q", tt.args, err, tt.want)
			}
		})
	}
}

func TestParseArgsHelp(t *testing.T) {
	var out bytes.Buffer
	opts, err := ParseArgs([]string{"-h"}, &out)
	if err != nil {
		t.Fatalf("ParseArgs(-h) error = %v", err)
	}
	if opts.Command != NoCommand || opts.Config != nil {
		t.Errorf("help returned %+v", opts)
	}
	for _, want := range []string{"--window-size", "-n", "(default 1024)", "list", "browse"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("usage missing %q", want)
		}
	}
}

func TestParseArgsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectrum.yaml")
	content := "capture:\n  window_size: 4096\ndisplay:\n  charset: braille\n  columns: 10\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	opts, err := ParseArgs([]string{"--config", path, "-b", "20"}, io.Discard)
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	c := opts.Config
	if c.Capture.WindowSize != 4096 || c.Display.Charset != "braille" {
		t.Errorf("file values lost: %+v", c)
	}
	if c.Display.Columns != 20 {
		t.Errorf("Columns = %d, want the flag value 20", c.Display.Columns)
	}
	// Flags left at their defaults do not override the file.
	if c.Display.Smoothing != config.DefaultSmoothing {
		t.Errorf("Smoothing = %q", c.Display.Smoothing)
	}
}

func TestParseArgsSubcommands(t *testing.T) {
	tests := []struct {
		args []string
		want Command
	}{
		{[]string{"list"}, ListCommand},
		{[]string{"list", "--backend", "portaudio", "-d", "3"}, ListCommand},
		{[]string{"browse", "--server", "unix:/tmp/pulse"}, BrowseCommand},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			opts, err := ParseArgs(tt.args, io.Discard)
			if err != nil {
				t.Fatalf("ParseArgs() error = %v", err)
			}
			if opts.Command != tt.want || opts.Config == nil {
				t.Errorf("got %+v, want command %v", opts, tt.want)
			}
		})
	}

	opts, err := ParseArgs([]string{"list", "--backend", "portaudio", "-d", "3"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Config.Capture.Backend != config.BackendPortAudio || opts.Config.Capture.Device != 3 {
		t.Errorf("persistent flags not applied to list: %+v", opts.Config.Capture)
	}

	var out bytes.Buffer
	opts, err = ParseArgs([]string{"version"}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Command != VersionCommand || !strings.Contains(out.String(), "termspectrum") {
		t.Errorf("version: %+v, output %q", opts, out.String())
	}
}
