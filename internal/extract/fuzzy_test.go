package extract

import (
	"math"
	"reflect"
	"testing"
)

func TestFold(t *testing.T) {
	f := fold("Café Noir!")
	if string(f.runes) != "cafenoir" {
		t.Errorf("expected folded runes cafenoir, got %q", string(f.runes))
	}
	want := []int{0, 1, 2, 3, 5, 6, 7, 8}
	if !reflect.DeepEqual(f.offsets, want) {
		t.Errorf("expected offsets %v, got %v", want, f.offsets)
	}
}

func TestFuzzyFind(t *testing.T) {
	tests := []struct {
		name       string
		term       string
		candidate  string
		wantScore  float64
		wantIndex  int
		wantLength int
	}{
		{"exact substring", "world", "Hello World", 1, 6, 5},
		{"whitespace ignored", "hel lo", "Hello World", 1, 0, 5},
		{"transposition", "chatper", "chapter", 1 - 1.0/7, 0, 7},
		{"substitution", "chapter3", "Chapter 4", 1 - 1.0/8, 0, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fuzzyFind(fold(tt.term), fold(tt.candidate))
			if math.Abs(got.Score-tt.wantScore) > 1e-9 {
				t.Errorf("score = %v, want %v", got.Score, tt.wantScore)
			}
			if got.Index != tt.wantIndex {
				t.Errorf("index = %d, want %d", got.Index, tt.wantIndex)
			}
			if got.Length != tt.wantLength {
				t.Errorf("length = %d, want %d", got.Length, tt.wantLength)
			}
		})
	}
}

func TestFuzzyFindEmpty(t *testing.T) {
	if got := fuzzyFind(fold(""), fold("abc")); got != (fuzzyMatch{}) {
		t.Errorf("expected zero match for empty term, got %+v", got)
	}
	if got := fuzzyFind(fold("abc"), fold("")); got != (fuzzyMatch{}) {
		t.Errorf("expected zero match for empty candidate, got %+v", got)
	}
}

func TestReachable(t *testing.T) {
	if reachable(10, 7, 0.7) {
		t.Error("a 7 rune candidate cannot score above 0.7 for a 10 rune term")
	}
	if !reachable(10, 8, 0.7) {
		t.Error("an 8 rune candidate can score above 0.7 for a 10 rune term")
	}
	if reachable(0, 8, 0.7) {
		t.Error("an empty term is never reachable")
	}
}
