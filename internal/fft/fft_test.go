// SPDX-License-Identifier: MIT
package fft

import (
	"math"
	"testing"

	"termspectrum/pkg/utils"
)

const (
	testFFTSize    = 1024
	testSampleRate = 44100
)

func TestNewProcessorRejectsNonPowerOfTwo(t *testing.T) {
	for _, size := range []int{0, -8, 1000, 3} {
		if _, err := NewProcessor(size, NoWindow); err == nil {
			t.Errorf("NewProcessor(%d) expected error", size)
		}
	}
}

func TestMagnitudesPeak(t *testing.T) {
	// 40 cycles per window lands exactly on bin 40.
	const bin = 40
	freq := float64(bin) * testSampleRate / testFFTSize

	for _, wf := range []WindowFunc{NoWindow, Hann, Blackman} {
		t.Run(wf.String(), func(t *testing.T) {
			p, err := NewProcessor(testFFTSize, wf)
			if err != nil {
				t.Fatalf("NewProcessor() error = %v", err)
			}

			samples := utils.Float64s(utils.GenerateSineWave(testFFTSize, testSampleRate, freq))
			mags := p.Magnitudes(samples)

			if len(mags) != testFFTSize/2+1 {
				t.Fatalf("len(Magnitudes()) = %d, want %d", len(mags), testFFTSize/2+1)
			}
			if peak := utils.FindPeakBin(mags, 0, len(mags)-1); peak != bin {
				t.Errorf("peak bin = %d, want %d", peak, bin)
			}
		})
	}
}

func TestMagnitudesRectangularAmplitude(t *testing.T) {
	p, err := NewProcessor(8, NoWindow)
	if err != nil {
		t.Fatal(err)
	}

	// A constant signal only has a DC component of N*value.
	mags := p.Magnitudes([]float64{3, 3, 3, 3, 3, 3, 3, 3})
	if math.Abs(mags[0]-24) > 1e-9 {
		t.Errorf("DC magnitude = %g, want 24", mags[0])
	}
	for i := 1; i < len(mags); i++ {
		if mags[i] > 1e-9 {
			t.Errorf("bin %d magnitude = %g, want 0", i, mags[i])
		}
	}
}

func TestMagnitudesZeroPads(t *testing.T) {
	p, err := NewProcessor(8, NoWindow)
	if err != nil {
		t.Fatal(err)
	}

	mags := p.Magnitudes([]float64{1})
	for i, m := range mags {
		if math.Abs(m-1) > 1e-9 {
			t.Errorf("bin %d magnitude = %g, want 1 for a unit impulse", i, m)
		}
	}
}

func TestFrequencies(t *testing.T) {
	got := Frequencies(8, 8)
	want := []float64{0, 1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("len(Frequencies()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Frequencies()[%d] = %g, want %g", i, got[i], want[i])
		}
	}

	freqs := Frequencies(testFFTSize, testSampleRate)
	if nyquist := freqs[len(freqs)-1]; nyquist != testSampleRate/2 {
		t.Errorf("last frequency = %g, want %d", nyquist, testSampleRate/2)
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		in      string
		want    WindowFunc
		wantErr bool
	}{
		{"none", NoWindow, false},
		{"", NoWindow, false},
		{"Hanning", Hann, false},
		{"hamming", Hamming, false},
		{"BlackmanNuttall", BlackmanNuttall, false},
		{"kaiser", NoWindow, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindowFunc(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWindowFunc(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseWindowFunc(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestApplyWindow(t *testing.T) {
	coeffs := make([]float64, 16)

	applyWindow(coeffs, NoWindow)
	for i, c := range coeffs {
		if c != 1 {
			t.Fatalf("NoWindow coeffs[%d] = %g, want 1", i, c)
		}
	}

	applyWindow(coeffs, Hann)
	if coeffs[0] > 1e-9 || coeffs[len(coeffs)-1] > 1e-9 {
		t.Errorf("Hann endpoints = %g, %g, want 0", coeffs[0], coeffs[len(coeffs)-1])
	}
}

func TestMagnitudesHotPath(t *testing.T) {
	processor, err := NewProcessor(testFFTSize, Hann)
	if err != nil {
		t.Fatal(err)
	}

	samples := utils.Float64s(utils.GenerateComplexWave(testFFTSize, testSampleRate))

	// Warm-up call so lazy initialisation is not counted.
	processor.Magnitudes(samples)
	allocs := testing.AllocsPerRun(100, func() {
		processor.Magnitudes(samples)
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in Magnitudes hot path, got %.1f", allocs)
	}
}

func BenchmarkMagnitudes(b *testing.B) {
	processor, err := NewProcessor(testFFTSize, Hann)
	if err != nil {
		b.Fatal(err)
	}
	samples := utils.Float64s(utils.GenerateComplexWave(testFFTSize, testSampleRate))

	b.ReportAllocs()

	for b.Loop() {
		processor.Magnitudes(samples)
	}
}
