// SPDX-License-Identifier: MIT
/*
Package render turns a magnitude spectrum into a single line of terminal
glyphs.

A Pipeline is built once from the frequency axis and the display range.
Each Render call runs the same stages in order:

	transform -> group/reduce -> smooth -> scale & quantize -> pack

Group/reduce folds FFT bins into display columns (linearly or on a log
frequency scale). Smoothing blends each frame into the previous ones and
tracks an adaptive floor and ceiling so the display follows recent
loudness. Quantization maps each column to one of the alphabet's levels,
and packing combines PointsPerChar columns into one glyph.

All buffers are allocated in New; AppendLine does not allocate when the
destination has enough capacity. A Pipeline is not safe for concurrent
use.
*/
package render

import (
	"fmt"
	"math"
	"unicode/utf8"

	"termspectrum/internal/glyph"
)

const (
	defaultSilenceText = " No data "
	defaultFactor      = 0.5
)

// Pipeline owns the bin mapping and the smoothing state.
type Pipeline struct {
	bins      binMapping
	reducer   Reducer
	transform Transform

	// Normalization range used without smoothing, in the transformed domain.
	absMin float64
	absMax float64
	// Magnitudes at or below zero are raised to this before a log transform.
	logFloor float64

	alphabet    glyph.Alphabet
	silenceText string
	silence     string

	smoothing      Smoothing
	oldValueFactor float64
	newValueFactor float64
	oldLimitFactor float64
	newLimitFactor float64
	minLimit       float64
	maxLimit       float64
	spring         springField

	linearScale float64
	sigmoid     float64

	acc       []float64
	smoothed  []float64
	quantized []int
	line      []byte
}

// New builds a Pipeline. It fails when no bin falls inside the range, when
// the range is empty, or when a log transform or log grouping would see a
// non-positive bound.
func New(opts Options) (*Pipeline, error) {
	if len(opts.Frequencies) == 0 {
		return nil, ErrNoBins
	}

	grouping := opts.Grouping
	if opts.Reducer == ReduceNone {
		grouping = GroupNone
	}

	bins, err := newBinMapping(opts.Frequencies, opts.MinFreq, opts.MaxFreq, opts.Columns, grouping)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		bins:      bins,
		reducer:   opts.Reducer,
		transform: opts.Transform,
		absMin:    opts.AbsMin,
		absMax:    opts.AbsMax,
		acc:       make([]float64, bins.numPoints),
		smoothed:  make([]float64, bins.numPoints),
		quantized: make([]int, bins.numPoints),
		spring:    newSpringField(opts.FrameRate, bins.numPoints),
	}

	if opts.Transform&TransformLog != 0 {
		if opts.AbsMin <= 0 || opts.AbsMax <= 0 {
			return nil, fmt.Errorf("log transform with absolute range [%g, %g]: %w", opts.AbsMin, opts.AbsMax, ErrNonPositiveLog)
		}
		p.logFloor = opts.AbsMin
		p.absMin = math.Log(opts.AbsMin)
		p.absMax = math.Log(opts.AbsMax)
	}
	if !(p.absMax > p.absMin) {
		return nil, fmt.Errorf("absolute range [%g, %g]: %w", opts.AbsMin, opts.AbsMax, ErrInvalidRange)
	}

	// The line holds at most one glyph per column, up to 4 bytes each.
	p.line = make([]byte, 0, bins.numPoints*utf8.UTFMax)

	p.alphabet = glyph.For(glyph.Bars)
	p.silenceText = defaultSilenceText
	p.SetSmoothing(SmoothNone)
	p.SetSmoothingFactors(defaultFactor, defaultFactor)
	p.SetLinearOffset(0)
	p.updateSilence()

	return p, nil
}

// NumPoints returns the number of display columns.
func (p *Pipeline) NumPoints() int { return p.bins.numPoints }

// Width returns the number of glyphs in a rendered line.
func (p *Pipeline) Width() int {
	ppc := p.alphabet.PointsPerChar()
	return (p.bins.numPoints + ppc - 1) / ppc
}

// Levels returns the level count of the current alphabet.
func (p *Pipeline) Levels() int { return p.alphabet.Levels() }

// Quantized returns the per-column levels of the last rendered frame. The
// slice is reused by the next call.
func (p *Pipeline) Quantized() []int { return p.quantized }

func (p *Pipeline) SetCharset(c glyph.Charset) {
	p.alphabet = glyph.For(c)
	p.updateSilence()
}

// SetSilenceText replaces the text shown by Silence. An empty string
// restores the default.
func (p *Pipeline) SetSilenceText(text string) {
	if text == "" {
		text = defaultSilenceText
	}
	p.silenceText = text
	p.updateSilence()
}

// SetSmoothing selects the smoothing strategy and resets the adaptive
// limits.
func (p *Pipeline) SetSmoothing(s Smoothing) {
	p.smoothing = s
	p.minLimit = 0
	p.maxLimit = 0
	p.spring.reset()
}

// SetSmoothingFactors sets the weight of new values and new limits, each
// clamped to [0, 1].
func (p *Pipeline) SetSmoothingFactors(newValue, newLimit float64) {
	newValue = min(max(newValue, 0), 1)
	newLimit = min(max(newLimit, 0), 1)
	p.newValueFactor = newValue
	p.oldValueFactor = 1 - newValue
	p.newLimitFactor = newLimit
	p.oldLimitFactor = 1 - newLimit
}

// SetLinearOffset scales every normalized level by 1+offset.
func (p *Pipeline) SetLinearOffset(offset float64) {
	p.linearScale = 1 + offset
}

// SetSigmoid enables sigmoid contrast with factor k. Zero or less disables it.
func (p *Pipeline) SetSigmoid(k float64) {
	p.sigmoid = k
}

// Silence returns the silence line, the silence text cut or padded with
// spaces to Width glyphs.
func (p *Pipeline) Silence() string { return p.silence }

func (p *Pipeline) updateSilence() {
	width := p.Width()
	buf := make([]rune, 0, width)
	for _, r := range p.silenceText {
		if len(buf) == width {
			break
		}
		buf = append(buf, r)
	}
	for len(buf) < width {
		buf = append(buf, ' ')
	}
	p.silence = string(buf)
}

// Render returns the line for one magnitude array. magnitudes must be at
// least as long as the frequency axis given to New; it is not modified.
func (p *Pipeline) Render(magnitudes []float64) string {
	p.line = p.AppendLine(p.line[:0], magnitudes)
	return string(p.line)
}

// AppendLine renders one magnitude array and appends the UTF-8 encoded
// glyphs to dst.
func (p *Pipeline) AppendLine(dst []byte, magnitudes []float64) []byte {
	p.reduce(magnitudes)

	values := p.acc
	floor, ceiling := p.absMin, p.absMax
	if p.smoothing != SmoothNone {
		floor, ceiling = p.smooth()
		values = p.smoothed
	}

	levels := p.alphabet.Levels()
	for i, v := range values {
		p.quantized[i] = p.quantize(v, floor, ceiling, levels)
	}

	ppc := p.alphabet.PointsPerChar()
	n := p.bins.numPoints
	for i := 0; i < n; i += ppc {
		dst = utf8.AppendRune(dst, p.alphabet.Glyph(p.quantized[i:min(i+ppc, n)]))
	}

	return dst
}

// reduce folds the in-range magnitudes into the accumulation buffer.
func (p *Pipeline) reduce(magnitudes []float64) {
	clear(p.acc)

	b := &p.bins
	switch p.reducer {
	case ReduceMax:
		for c, k := range b.count {
			if k > 0 {
				p.acc[c] = math.Inf(-1)
			}
		}
		for i := b.minIndex; i <= b.maxIndex; i++ {
			if c := b.column[i]; c >= 0 {
				p.acc[c] = max(p.acc[c], p.value(magnitudes[i]))
			}
		}
	case ReduceAverage:
		for i := b.minIndex; i <= b.maxIndex; i++ {
			if c := b.column[i]; c >= 0 {
				p.acc[c] += p.value(magnitudes[i])
			}
		}
		for c := range p.acc {
			p.acc[c] *= b.recip[c]
		}
	default:
		// Later slots overwrite earlier ones sharing a column.
		for i := b.minIndex; i <= b.maxIndex; i++ {
			if c := b.column[i]; c >= 0 {
				p.acc[c] = p.value(magnitudes[i])
			}
		}
	}
}

func (p *Pipeline) value(m float64) float64 {
	if p.transform&TransformLog == 0 {
		return m
	}
	if !(m > p.logFloor) {
		m = p.logFloor
	}
	return math.Log(m)
}

func (p *Pipeline) quantize(v, floor, ceiling float64, levels int) int {
	level := 0.0
	if ceiling != floor {
		level = (v - floor) / (ceiling - floor)
	}
	if p.sigmoid > 0 {
		level = 1 / (1 + math.Exp(-p.sigmoid*(level-0.5)))
	}

	x := level * p.linearScale * float64(levels)
	switch {
	case !(x > 0):
		return 0
	case x >= float64(levels-1):
		return levels - 1
	default:
		return int(x)
	}
}
