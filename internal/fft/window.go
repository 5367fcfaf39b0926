// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the window applied before the transform.
type WindowFunc int

const (
	NoWindow WindowFunc = iota
	BartlettHann
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// windows is indexed by WindowFunc. The gonum functions scale their
// argument in place.
var windows = [...]struct {
	names []string
	apply func([]float64) []float64
}{
	NoWindow:        {[]string{"none", "rectangular", ""}, nil},
	BartlettHann:    {[]string{"bartletthann"}, window.BartlettHann},
	Blackman:        {[]string{"blackman"}, window.Blackman},
	BlackmanNuttall: {[]string{"blackmannuttall"}, window.BlackmanNuttall},
	Hann:            {[]string{"hann", "hanning"}, window.Hann},
	Hamming:         {[]string{"hamming"}, window.Hamming},
	Lanczos:         {[]string{"lanczos"}, window.Lanczos},
	Nuttall:         {[]string{"nuttall"}, window.Nuttall},
}

func (w WindowFunc) String() string {
	if w <= NoWindow || int(w) >= len(windows) {
		return "none"
	}
	return windows[w].names[0]
}

// ParseWindowFunc converts a window name, in any case, to a WindowFunc.
func ParseWindowFunc(name string) (WindowFunc, error) {
	lower := strings.ToLower(name)
	for w, def := range windows {
		for _, n := range def.names {
			if n == lower {
				return WindowFunc(w), nil
			}
		}
	}
	return NoWindow, fmt.Errorf("unknown FFT window function name: '%s'", name)
}

// applyWindow fills coeffs with the coefficients of w. NoWindow, and any
// unknown value, leaves every coefficient at 1.
func applyWindow(coeffs []float64, w WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1
	}
	if w > NoWindow && int(w) < len(windows) {
		windows[w].apply(coeffs)
	}
}
