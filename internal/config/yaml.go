// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"termspectrum/internal/log"

	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration. It is built from defaults,
// an optional YAML file, environment overrides and command line flags, in
// that order. The flag tags name the command line flag of each setting.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level" flag:"log-level" validate:"oneof=debug info warn error"`
	Capture   CaptureConfig   `yaml:"capture"`
	Display   DisplayConfig   `yaml:"display"`
	Idle      IdleConfig      `yaml:"idle"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// CaptureConfig selects where samples come from and how they are windowed.
type CaptureConfig struct {
	Backend    string `yaml:"backend" flag:"backend" validate:"oneof=pulse portaudio"`
	Server     string `yaml:"server" flag:"server"`                   // PulseAudio server, empty for the default.
	Device     int    `yaml:"device" flag:"device" validate:"gte=-1"` // PortAudio device index, -1 for the default.
	WindowSize int    `yaml:"window_size" flag:"window-size" validate:"gte=2,lte=65536"`
	SampleRate int    `yaml:"sample_rate" flag:"sample-rate" validate:"gte=1000,lte=384000"`
	Window     string `yaml:"window" flag:"window"` // FFT window function.
}

// DisplayConfig controls the rendered line.
type DisplayConfig struct {
	MinFreq           float64 `yaml:"min_freq" flag:"min-freq" validate:"gte=0"`
	MaxFreq           float64 `yaml:"max_freq" flag:"max-freq" validate:"gtfield=MinFreq"`
	Columns           int     `yaml:"columns" flag:"columns" validate:"gte=1,lte=4096"` // Only used when grouping.
	Charset           string  `yaml:"charset" flag:"charset" validate:"oneof=bars braille wide_braille wide-braille"`
	Grouping          string  `yaml:"grouping" flag:"grouping" validate:"oneof=none linear lineal log logarithmic"`
	Reducer           string  `yaml:"reducer" flag:"reducer" validate:"oneof=none max avg average"`
	Transform         string  `yaml:"transform" flag:"transform" validate:"oneof=none log"`
	Smoothing         string  `yaml:"smoothing" flag:"smoothing" validate:"oneof=none exp2 spring"`
	SmoothValueFactor float64 `yaml:"smooth_value_factor" flag:"smooth-value-factor" validate:"gte=0,lte=1"`
	SmoothLimitFactor float64 `yaml:"smooth_limit_factor" flag:"smooth-limit-factor" validate:"gte=0,lte=1"`
	LinearOffset      float64 `yaml:"linear_offset" flag:"linear-offset" validate:"gte=-1"`
	Sigmoid           float64 `yaml:"sigmoid" flag:"sigmoid" validate:"gte=0"` // 0 disables.
	AbsMin            float64 `yaml:"abs_min" flag:"abs-min"`
	AbsMax            float64 `yaml:"abs_max" flag:"abs-max" validate:"gtfield=AbsMin"`
	SilenceText       string  `yaml:"silence_text" flag:"silence-text"`
	Newline           bool    `yaml:"newline" flag:"newline"` // Terminate lines with \n instead of \r.
	Stats             bool    `yaml:"stats" flag:"stats"`
}

// IdleConfig is the silence and discovery pacing, in milliseconds.
type IdleConfig struct {
	WaitMs    int `yaml:"wait_ms" flag:"idle-wait" validate:"gt=0"`
	SleepMs   int `yaml:"sleep_ms" flag:"idle-sleep" validate:"gt=0"`
	BackoffMs int `yaml:"backoff_ms" validate:"gt=0"`
}

// RecordingConfig enables WAV recording of the captured windows.
type RecordingConfig struct {
	Path string `yaml:"path" flag:"record"`
}

// TransportConfig enables frame publishing.
type TransportConfig struct {
	WSAddr    string `yaml:"ws_addr" flag:"ws-addr" validate:"omitempty,hostname_port"`
	UDPTarget string `yaml:"udp_target" flag:"udp-target" validate:"omitempty,hostname_port"`
}

// IdleWait is how long silence lasts before the silence line is shown.
func (c IdleConfig) IdleWait() time.Duration { return time.Duration(c.WaitMs) * time.Millisecond }

// IdleSleep is the pause between checks while idle.
func (c IdleConfig) IdleSleep() time.Duration { return time.Duration(c.SleepMs) * time.Millisecond }

// Backoff is the first discovery retry delay.
func (c IdleConfig) Backoff() time.Duration { return time.Duration(c.BackoffMs) * time.Millisecond }

// Terminator is the byte written before every line.
func (c DisplayConfig) Terminator() byte {
	if c.Newline {
		return '\n'
	}
	return '\r'
}

// LoadConfig loads configuration from a YAML file specified by path over
// the defaults. If path is empty, "config.yaml" in the working directory is
// used when present, otherwise the defaults alone. Environment overrides
// are applied last, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ReadConfig is LoadConfig without validation, for callers that layer
// more settings on top before validating.
func ReadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides reads SPECTRUM_* variables.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("SPECTRUM_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			log.Debugf("Config: overriding debug from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("SPECTRUM_BACKEND"); ok {
		cfg.Capture.Backend = val
		log.Debugf("Config: overriding capture.backend from env: %s", val)
	}
	if val, ok := os.LookupEnv("SPECTRUM_WS_ADDR"); ok {
		cfg.Transport.WSAddr = val
		log.Debugf("Config: overriding transport.ws_addr from env: %s", val)
	}
	if val, ok := os.LookupEnv("SPECTRUM_UDP_TARGET"); ok {
		cfg.Transport.UDPTarget = val
		log.Debugf("Config: overriding transport.udp_target from env: %s", val)
	}
}
