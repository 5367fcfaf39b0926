// SPDX-License-Identifier: MIT
/*
Package glyph holds the static character tables used to draw one spectrum
line in a terminal.

An Alphabet maps a quantized level to a rune. Alphabets that pack more
than one column into a character (braille) treat each sub-column level as
a digit in base Levels():

	index = ((l0 * levels) + l1) * levels + ...

so the table is laid out row-major by the left-most sub-column.
*/
package glyph

import (
	"fmt"
	"strings"
)

// Charset selects one of the built-in alphabets.
type Charset int

const (
	Bars Charset = iota + 1
	Braille
	WideBraille
)

// String returns the CLI name of the charset.
func (c Charset) String() string {
	switch c {
	case Bars:
		return "bars"
	case Braille:
		return "braille"
	case WideBraille:
		return "wide_braille"
	default:
		return "unknown"
	}
}

// ParseCharset converts a CLI name to a Charset. It returns Bars and an
// error if the name is unknown.
func ParseCharset(name string) (Charset, error) {
	switch strings.ToLower(name) {
	case "bars":
		return Bars, nil
	case "braille":
		return Braille, nil
	case "wide_braille", "wide-braille":
		return WideBraille, nil
	default:
		return Bars, fmt.Errorf("unknown charset: '%s'", name)
	}
}

// " ▁▂▃▄▅▆▇█"
var barSymbols = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Rows are the left dot column level (0-4), columns the right one.
var brailleSymbols = []rune{
	' ', '⢀', '⢠', '⢰', '⢸', // " ⢀⢠⢰⢸"
	'⡀', '⣀', '⣠', '⣰', '⣸', // "⡀⣀⣠⣰⣸"
	'⡄', '⣄', '⣤', '⣴', '⣼', // "⡄⣄⣤⣴⣼"
	'⡆', '⣆', '⣦', '⣶', '⣾', // "⡆⣆⣦⣶⣾"
	'⡇', '⣇', '⣧', '⣷', '⣿', // "⡇⣇⣧⣷⣿"
}

// Alphabet is an immutable glyph table.
type Alphabet struct {
	symbols       []rune
	levels        int
	pointsPerChar int
}

// For returns the alphabet of the given charset. Unknown values fall back
// to Bars.
func For(c Charset) Alphabet {
	switch c {
	case Braille:
		return Alphabet{symbols: brailleSymbols, levels: 5, pointsPerChar: 2}
	case WideBraille:
		// Same table, one column per character: only the right dot column
		// is ever lit.
		return Alphabet{symbols: brailleSymbols, levels: 5, pointsPerChar: 1}
	default:
		return Alphabet{symbols: barSymbols, levels: 9, pointsPerChar: 1}
	}
}

// Levels returns the number of distinct levels per column.
func (a Alphabet) Levels() int { return a.levels }

// PointsPerChar returns how many columns a single glyph represents.
func (a Alphabet) PointsPerChar() int { return a.pointsPerChar }

// Symbol returns the glyph at a combined table index. Out of range
// indices map to the blank glyph at index 0.
func (a Alphabet) Symbol(index int) rune {
	if index < 0 || index >= len(a.symbols) {
		return a.symbols[0]
	}
	return a.symbols[index]
}

// Glyph combines one quantized level per sub-column into a single glyph.
// Missing sub-columns (len(subLevels) < PointsPerChar) count as level 0.
func (a Alphabet) Glyph(subLevels []int) rune {
	index := 0
	for i := 0; i < a.pointsPerChar; i++ {
		level := 0
		if i < len(subLevels) {
			level = subLevels[i]
		}
		index = index*a.levels + level
	}
	return a.Symbol(index)
}
