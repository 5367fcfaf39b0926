// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"math/cmplx"

	"termspectrum/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// workspace holds pre-allocated buffers for FFT calculations.
type workspace struct {
	input     []float64    // ...for windowed input samples
	fftOutput []complex128 // ...for FFT complex output
	magnitude []float64    // ...for magnitude output
	window    []float64    // ...for window function coefficients
}

// Processor computes the magnitude spectrum of fixed-size sample windows.
// It is not safe for concurrent use.
type Processor struct {
	size      int
	fftObj    *fourier.FFT
	workspace workspace
}

// NewProcessor creates a processor for windows of size samples, which must
// be a power of 2. All buffers are allocated here.
func NewProcessor(size int, windowType WindowFunc) (*Processor, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", size)
	}

	coeffs := make([]float64, size)
	applyWindow(coeffs, windowType)

	// Real input yields N/2 + 1 complex values.
	outputSize := size/2 + 1

	return &Processor{
		size:   size,
		fftObj: fourier.NewFFT(size),
		workspace: workspace{
			input:     make([]float64, size),
			fftOutput: make([]complex128, outputSize),
			magnitude: make([]float64, outputSize),
			window:    coeffs,
		},
	}, nil
}

// Size returns the window length in samples.
func (p *Processor) Size() int { return p.size }

// Magnitudes windows the samples, runs the FFT and returns the Euclidean
// norm of every coefficient. Samples beyond Size are ignored and missing
// ones are zero padded. The returned slice is reused by the next call.
func (p *Processor) Magnitudes(samples []float64) []float64 {
	ws := &p.workspace
	for i := range p.size {
		if i < len(samples) {
			ws.input[i] = samples[i] * ws.window[i]
		} else {
			ws.input[i] = 0
		}
	}

	p.fftObj.Coefficients(ws.fftOutput, ws.input)
	for i, c := range ws.fftOutput {
		ws.magnitude[i] = cmplx.Abs(c)
	}

	return ws.magnitude
}

// Frequencies returns the center frequency of every magnitude slot of a
// size-point transform: freq[i] = i * sampleRate / size.
func Frequencies(size int, sampleRate float64) []float64 {
	freqs := make([]float64, size/2+1)
	for i := range freqs {
		freqs[i] = float64(i) * sampleRate / float64(size)
	}
	return freqs
}
