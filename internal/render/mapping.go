package render

import (
	"fmt"
	"math"
)

// binMapping routes each in-range magnitude slot to a display column.
type binMapping struct {
	// column[i] is the destination column of slot i, -1 when out of range.
	column   []int
	minIndex int
	maxIndex int

	count []int
	recip []float64

	numPoints int
}

// newBinMapping builds the slot to column routing. The axis is not
// modified.
func newBinMapping(axis []float64, minFreq, maxFreq float64, columns int, grouping Grouping) (binMapping, error) {
	n := len(axis)
	freqs := axis
	if grouping == GroupLog {
		if minFreq <= 0 || maxFreq <= 0 {
			return binMapping{}, fmt.Errorf("log grouping with range [%g, %g]: %w", minFreq, maxFreq, ErrNonPositiveLog)
		}
		freqs = make([]float64, n)
		for i, f := range axis {
			// log(0) is -Inf and falls below any finite minimum.
			freqs[i] = math.Log(f)
		}
		minFreq = math.Log(minFreq)
		maxFreq = math.Log(maxFreq)
	}

	if !(maxFreq > minFreq) {
		return binMapping{}, fmt.Errorf("frequency range [%g, %g]: %w", minFreq, maxFreq, ErrInvalidRange)
	}

	numPoints := columns
	if grouping == GroupNone {
		numPoints = n
	}
	if numPoints < 1 {
		return binMapping{}, fmt.Errorf("%d columns: %w", numPoints, ErrInvalidRange)
	}

	m := binMapping{
		column:   make([]int, n),
		minIndex: n,
		maxIndex: -1,
		count:    make([]int, numPoints),
	}

	target, highest := -1, -1
	for i, f := range freqs {
		m.column[i] = -1
		if f < minFreq || f > maxFreq {
			continue
		}

		m.minIndex = min(m.minIndex, i)
		m.maxIndex = max(m.maxIndex, i)

		if grouping == GroupNone {
			target++
		} else {
			// f == maxFreq lands exactly on numPoints.
			target = min(int((f-minFreq)/(maxFreq-minFreq)*float64(numPoints)), numPoints-1)
		}

		m.column[i] = target
		m.count[target]++
		highest = max(highest, target)
	}

	if highest < 0 {
		return binMapping{}, ErrNoBins
	}

	m.numPoints = highest + 1
	m.count = m.count[:m.numPoints]
	m.recip = make([]float64, m.numPoints)
	for c, k := range m.count {
		if k > 0 {
			m.recip[c] = 1 / float64(k)
		}
	}

	return m, nil
}
