package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	recordBitDepth = 16
	recordChannels = 1
	wavFormatPCM   = 1
)

var errRecorderClosed = errors.New("recorder closed")

// Recorder writes captured mono 16-bit windows to a WAV file.
type Recorder struct {
	mu         sync.Mutex
	path       string
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer
	frames     int
}

// NewRecorder creates path and writes its WAV header on Close.
func NewRecorder(path string, sampleRate, windowSize int) (*Recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	return &Recorder{
		path:       path,
		outputFile: file,
		wavEncoder: wav.NewEncoder(file, sampleRate, recordBitDepth, recordChannels, wavFormatPCM),
		sampleBuf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: recordChannels, SampleRate: sampleRate},
			Data:           make([]int, windowSize),
			SourceBitDepth: recordBitDepth,
		},
	}, nil
}

// Write appends one window. Samples are in int16 scale.
func (r *Recorder) Write(window []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return errRecorderClosed
	}

	if cap(r.sampleBuf.Data) < len(window) {
		r.sampleBuf.Data = make([]int, len(window))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(window)]
	for i, v := range window {
		r.sampleBuf.Data[i] = int(max(math.MinInt16, min(math.MaxInt16, v)))
	}

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.path, err)
	}
	r.frames += len(window)
	return nil
}

// Frames is the number of samples written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close finalizes the WAV header and closes the file. Closing twice is a
// no-op.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return nil
	}

	err := r.wavEncoder.Close()
	r.wavEncoder = nil
	if cerr := r.outputFile.Close(); err == nil {
		err = cerr
	}
	r.outputFile = nil
	return err
}
