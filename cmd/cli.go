// Package cmd builds the command line interface.
package cmd

import (
	"fmt"
	"io"

	"termspectrum/internal/config"
	"termspectrum/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const description = "Render the spectrum of whatever is playing as a line of terminal glyphs"

// Command is the action selected on the command line.
type Command int

const (
	// NoCommand means help or the version flag was printed and there is
	// nothing left to do.
	NoCommand Command = iota
	RunCommand
	ListCommand
	BrowseCommand
	VersionCommand
)

// Options is the result of parsing the command line.
type Options struct {
	Command Command
	Config  *config.Config
}

// ParseArgs parses args (without the program name). Help and usage go to
// out. The returned configuration is the defaults, overridden by the
// --config file and environment, overridden by the flags given
// explicitly, and validated.
func ParseArgs(args []string, out io.Writer) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{Command: NoCommand}

	// Flags are bound to a scratch copy of the defaults so that usage shows
	// them; only the flags actually given are copied onto the loaded file.
	flagValues := config.NewConfig()
	var (
		configPath string
		verbose    bool
	)

	load := func(cmd *cobra.Command, command Command) error {
		cfg, err := config.ReadConfig(configPath)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd.Flags(), cfg); err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		options.Command = command
		options.Config = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         description,
		Version:       buildInfo.Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, RunCommand)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List audio sinks (pulse) or input devices (portaudio) and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, ListCommand)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "browse",
		Short: "Browse audio sinks interactively and watch which one is followed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, BrowseCommand)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = VersionCommand
			fmt.Fprintln(cmd.OutOrStdout(), buildInfo.String())
		},
	})

	flags := rootCmd.PersistentFlags()
	bindFlags(flags, flagValues)
	flags.StringVar(&configPath, "config", "",
		"YAML configuration file. Defaults to ./config.yaml when present")
	flags.BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output (same as --log-level debug)")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return options, nil
}

// applyFlags copies the flags set on the command line onto cfg.
func applyFlags(given *pflag.FlagSet, cfg *config.Config) error {
	target := pflag.NewFlagSet("config", pflag.ContinueOnError)
	bindFlags(target, cfg)

	var err error
	given.Visit(func(f *pflag.Flag) {
		if err != nil || target.Lookup(f.Name) == nil {
			return
		}
		if setErr := target.Set(f.Name, f.Value.String()); setErr != nil {
			err = fmt.Errorf("--%s: %w", f.Name, setErr)
		}
	})
	return err
}

// bindFlags declares every configuration flag on fs, bound to c.
func bindFlags(fs *pflag.FlagSet, c *config.Config) {
	// Capture
	fs.StringVar(&c.Capture.Backend, "backend", c.Capture.Backend,
		"Capture backend: pulse follows the active sink, portaudio reads an input device")
	fs.StringVar(&c.Capture.Server, "server", c.Capture.Server,
		"PulseAudio server address. Empty uses $PULSE_SERVER or the default socket")
	fs.IntVarP(&c.Capture.Device, "device", "d", c.Capture.Device,
		"PortAudio input device ID, -1 for the default. Use 'list' to see available devices")
	fs.IntVarP(&c.Capture.WindowSize, "window-size", "n", c.Capture.WindowSize,
		"FFT window size in samples, a power of 2")
	fs.IntVarP(&c.Capture.SampleRate, "sample-rate", "r", c.Capture.SampleRate,
		"Sample rate, measured in Hertz (Hz)")
	fs.StringVar(&c.Capture.Window, "window", c.Capture.Window,
		"Window function applied before the FFT: none, hann, hamming, blackman, ...")

	// Display
	fs.Float64VarP(&c.Display.MinFreq, "min-freq", "f", c.Display.MinFreq,
		"Lowest frequency shown, in Hz")
	fs.Float64VarP(&c.Display.MaxFreq, "max-freq", "F", c.Display.MaxFreq,
		"Highest frequency shown, in Hz")
	fs.IntVarP(&c.Display.Columns, "columns", "b", c.Display.Columns,
		"Number of display columns. Only used when grouping")
	fs.StringVarP(&c.Display.Charset, "charset", "c", c.Display.Charset,
		"Glyphs: bars, braille or wide-braille")
	fs.StringVarP(&c.Display.Grouping, "grouping", "g", c.Display.Grouping,
		"Frequency grouping: none, linear or log")
	fs.StringVarP(&c.Display.Reducer, "reducer", "G", c.Display.Reducer,
		"Grouping reducer: none, max or avg")
	fs.StringVarP(&c.Display.Transform, "transform", "t", c.Display.Transform,
		"Value transform: none or log")
	fs.StringVarP(&c.Display.Smoothing, "smoothing", "m", c.Display.Smoothing,
		"Smoothing: none, exp2 or spring")
	fs.Float64Var(&c.Display.SmoothValueFactor, "smooth-value-factor", c.Display.SmoothValueFactor,
		"Weight of the new value when smoothing")
	fs.Float64Var(&c.Display.SmoothLimitFactor, "smooth-limit-factor", c.Display.SmoothLimitFactor,
		"Weight of the new floor and ceiling when smoothing")
	fs.Float64VarP(&c.Display.LinearOffset, "linear-offset", "o", c.Display.LinearOffset,
		"Offset added to the scaled value before quantization")
	fs.Float64VarP(&c.Display.Sigmoid, "sigmoid", "i", c.Display.Sigmoid,
		"Sigmoid contrast factor, 0 disables")
	fs.Float64Var(&c.Display.AbsMin, "abs-min", c.Display.AbsMin,
		"Magnitude floor without smoothing")
	fs.Float64Var(&c.Display.AbsMax, "abs-max", c.Display.AbsMax,
		"Magnitude ceiling without smoothing")
	fs.StringVar(&c.Display.SilenceText, "silence-text", c.Display.SilenceText,
		"Text shown while there is no sound")
	fs.BoolVarP(&c.Display.Newline, "newline", "l", c.Display.Newline,
		"End lines with a newline instead of a carriage return")
	fs.BoolVarP(&c.Display.Stats, "stats", "s", c.Display.Stats,
		"Print frame time and rate after each line")

	// Idle
	fs.IntVarP(&c.Idle.WaitMs, "idle-wait", "w", c.Idle.WaitMs,
		"Milliseconds of silence before going to sleep")
	fs.IntVarP(&c.Idle.SleepMs, "idle-sleep", "W", c.Idle.SleepMs,
		"Milliseconds to sleep between checks for sound")

	// Recording and publishing
	fs.StringVar(&c.Recording.Path, "record", c.Recording.Path,
		"Record the captured audio to this WAV file")
	fs.StringVar(&c.Transport.WSAddr, "ws-addr", c.Transport.WSAddr,
		"Serve rendered frames over WebSocket on this address (path /ws)")
	fs.StringVar(&c.Transport.UDPTarget, "udp-target", c.Transport.UDPTarget,
		"Send column levels as UDP packets to this host:port")

	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel,
		"Log level: debug, info, warn or error")
}
