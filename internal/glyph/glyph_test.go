// SPDX-License-Identifier: MIT
package glyph

import "testing"

func TestAlphabetShape(t *testing.T) {
	tests := []struct {
		charset       Charset
		levels        int
		pointsPerChar int
	}{
		{Bars, 9, 1},
		{Braille, 5, 2},
		{WideBraille, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.charset.String(), func(t *testing.T) {
			a := For(tt.charset)
			if a.Levels() != tt.levels {
				t.Errorf("Levels() = %d, want %d", a.Levels(), tt.levels)
			}
			if a.PointsPerChar() != tt.pointsPerChar {
				t.Errorf("PointsPerChar() = %d, want %d", a.PointsPerChar(), tt.pointsPerChar)
			}

			// Every reachable combined index must exist in the table.
			combinations := 1
			for range a.PointsPerChar() {
				combinations *= a.Levels()
			}
			if combinations > len(a.symbols) {
				t.Errorf("table has %d symbols, need %d", len(a.symbols), combinations)
			}
		})
	}
}

func TestBarGlyphs(t *testing.T) {
	a := For(Bars)
	want := []rune(" ▁▂▃▄▅▆▇█")
	for level, r := range want {
		if got := a.Glyph([]int{level}); got != r {
			t.Errorf("Glyph(%d) = %q, want %q", level, got, r)
		}
	}
}

func TestBrailleComposition(t *testing.T) {
	a := For(Braille)
	tests := []struct {
		name string
		sub  []int
		want rune
	}{
		{"both empty", []int{0, 0}, ' '},
		{"right only", []int{0, 1}, '⢀'},
		{"left only", []int{1, 0}, '⡀'},
		{"both full", []int{4, 4}, '⣿'},
		{"left full right half", []int{4, 2}, '⣧'},
		{"missing right pads zero", []int{3}, '⡆'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Glyph(tt.sub); got != tt.want {
				t.Errorf("Glyph(%v) = %q, want %q", tt.sub, got, tt.want)
			}
		})
	}
}

func TestWideBrailleUsesRightColumn(t *testing.T) {
	a := For(WideBraille)
	want := []rune(" ⢀⢠⢰⢸")
	for level, r := range want {
		if got := a.Glyph([]int{level}); got != r {
			t.Errorf("Glyph(%d) = %q, want %q", level, got, r)
		}
	}
}

func TestSymbolOutOfRange(t *testing.T) {
	a := For(Bars)
	if got := a.Symbol(-1); got != ' ' {
		t.Errorf("Symbol(-1) = %q, want blank", got)
	}
	if got := a.Symbol(100); got != ' ' {
		t.Errorf("Symbol(100) = %q, want blank", got)
	}
}

func TestParseCharset(t *testing.T) {
	tests := []struct {
		in      string
		want    Charset
		wantErr bool
	}{
		{"bars", Bars, false},
		{"BRAILLE", Braille, false},
		{"wide_braille", WideBraille, false},
		{"wide-braille", WideBraille, false},
		{"dots", Bars, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCharset(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCharset(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCharset(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGlyphZeroAllocs(t *testing.T) {
	a := For(Braille)
	sub := []int{2, 3}
	allocs := testing.AllocsPerRun(100, func() {
		_ = a.Glyph(sub)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Glyph, got %.1f", allocs)
	}
}
