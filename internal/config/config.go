package config

// Defaults follow the classic terminal visualizer settings.
const (
	DefaultBackend    = BackendPulse
	DefaultDeviceID   = MinDeviceID // Default to system default device
	DefaultWindowSize = 1024        // FFT window in samples, ~43 fps at 44.1 kHz
	DefaultSampleRate = 44100       // CD-quality audio
	DefaultWindow     = "none"

	DefaultMinFreq           = 200
	DefaultMaxFreq           = 2000 // Low frequency spikes hide the high ones above this
	DefaultColumns           = 30
	DefaultCharset           = "bars"
	DefaultGrouping          = "none"
	DefaultReducer           = "max"
	DefaultTransform         = "none"
	DefaultSmoothing         = "exp2"
	DefaultSmoothValueFactor = 0.25
	DefaultSmoothLimitFactor = 0.2
	DefaultLinearOffset      = 0.8
	DefaultSigmoid           = 0
	DefaultAbsMin            = 1
	DefaultAbsMax            = 1e8
	DefaultSilenceText       = "No ♬ "

	DefaultIdleWaitMs  = 3000 // 3s without sound -> go to sleep
	DefaultIdleSleepMs = 5000 // Wake up every 5s to check for sound
	DefaultBackoffMs   = 100

	DefaultLogLevel = "info"

	// Hardware and processing limits
	MinDeviceID   = -1 // -1 represents system default device
	MinSampleRate = 1000
	MaxSampleRate = 384000
	MaxWindowSize = 65536
)

// Capture backends.
const (
	BackendPulse     = "pulse"
	BackendPortAudio = "portaudio"
)

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Capture: CaptureConfig{
			Backend:    DefaultBackend,
			Device:     DefaultDeviceID,
			WindowSize: DefaultWindowSize,
			SampleRate: DefaultSampleRate,
			Window:     DefaultWindow,
		},
		Display: DisplayConfig{
			MinFreq:           DefaultMinFreq,
			MaxFreq:           DefaultMaxFreq,
			Columns:           DefaultColumns,
			Charset:           DefaultCharset,
			Grouping:          DefaultGrouping,
			Reducer:           DefaultReducer,
			Transform:         DefaultTransform,
			Smoothing:         DefaultSmoothing,
			SmoothValueFactor: DefaultSmoothValueFactor,
			SmoothLimitFactor: DefaultSmoothLimitFactor,
			LinearOffset:      DefaultLinearOffset,
			Sigmoid:           DefaultSigmoid,
			AbsMin:            DefaultAbsMin,
			AbsMax:            DefaultAbsMax,
			SilenceText:       DefaultSilenceText,
		},
		Idle: IdleConfig{
			WaitMs:    DefaultIdleWaitMs,
			SleepMs:   DefaultIdleSleepMs,
			BackoffMs: DefaultBackoffMs,
		},
	}
}
