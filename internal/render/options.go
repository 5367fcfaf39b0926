package render

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoBins is returned when no frequency of the axis falls inside the
	// requested display range.
	ErrNoBins = errors.New("no frequency bins inside the display range")

	// ErrInvalidRange is returned for empty or inverted ranges and for a
	// non-positive column count.
	ErrInvalidRange = errors.New("invalid range")

	// ErrNonPositiveLog is returned when a logarithm would be taken of a
	// value that is zero or negative.
	ErrNonPositiveLog = errors.New("logarithm of a non-positive value")
)

// Grouping selects how frequency bins are folded into display columns.
type Grouping int

const (
	GroupNone Grouping = iota
	GroupLinear
	GroupLog
)

func (g Grouping) String() string {
	switch g {
	case GroupLinear:
		return "linear"
	case GroupLog:
		return "log"
	default:
		return "none"
	}
}

// ParseGrouping accepts none, linear (or lineal) and log (or logarithmic).
func ParseGrouping(s string) (Grouping, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return GroupNone, nil
	case "linear", "lineal":
		return GroupLinear, nil
	case "log", "logarithmic":
		return GroupLog, nil
	default:
		return GroupNone, fmt.Errorf("unknown grouping: '%s'", s)
	}
}

// Reducer combines the bins that land in the same column.
type Reducer int

const (
	ReduceNone Reducer = iota
	ReduceMax
	ReduceAverage
)

func (r Reducer) String() string {
	switch r {
	case ReduceMax:
		return "max"
	case ReduceAverage:
		return "avg"
	default:
		return "none"
	}
}

// ParseReducer accepts none, max and avg (or average).
func ParseReducer(s string) (Reducer, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return ReduceNone, nil
	case "max":
		return ReduceMax, nil
	case "avg", "average":
		return ReduceAverage, nil
	default:
		return ReduceNone, fmt.Errorf("unknown reducer: '%s'", s)
	}
}

// Transform is a set of value transforms applied to magnitudes before
// grouping.
type Transform uint

const (
	TransformNone Transform = 0
	TransformLog  Transform = 1 << 0
)

func (t Transform) String() string {
	if t&TransformLog != 0 {
		return "log"
	}
	return "none"
}

// ParseTransform accepts none and log.
func ParseTransform(s string) (Transform, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return TransformNone, nil
	case "log", "logarithmic":
		return TransformLog, nil
	default:
		return TransformNone, fmt.Errorf("unknown transform: '%s'", s)
	}
}

// Smoothing selects the temporal smoothing strategy.
type Smoothing int

const (
	SmoothNone Smoothing = iota
	SmoothExp2
	SmoothSpring
)

func (s Smoothing) String() string {
	switch s {
	case SmoothExp2:
		return "exp2"
	case SmoothSpring:
		return "spring"
	default:
		return "none"
	}
}

// ParseSmoothing accepts none, exp2 and spring.
func ParseSmoothing(s string) (Smoothing, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return SmoothNone, nil
	case "exp2":
		return SmoothExp2, nil
	case "spring":
		return SmoothSpring, nil
	default:
		return SmoothNone, fmt.Errorf("unknown smoothing: '%s'", s)
	}
}

// Options configures a Pipeline. Frequencies is the frequency of each
// magnitude slot, ascending.
type Options struct {
	Frequencies []float64
	MinFreq     float64
	MaxFreq     float64
	Columns     int

	AbsMin float64
	AbsMax float64

	Grouping  Grouping
	Reducer   Reducer
	Transform Transform

	// FrameRate is the expected number of Render calls per second. Only
	// spring smoothing uses it.
	FrameRate float64
}
