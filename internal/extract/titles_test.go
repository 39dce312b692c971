package extract

import "testing"

func TestCompareTitles(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		title string
		weak  bool
		want  bool
	}{
		{"exact normalized match", "chapter one: the beginning", "Chapter One: The Beginning", false, true},
		{"below minimum length", "xx", "yy", true, false},
		{"short title inside prose", "the intro to this extraordinary journey begins", "Intro", true, false},
		{"title continues on line", "Chapter 3: The Big Reveal", "Chapter 3", false, true},
		{"line truncates title", "Chapter 3", "Chapter 3: The Big Reveal", false, true},
		{"emphasis markers ignored", "**Chapter 3**", "Chapter 3", false, true},
		{"markup ignored", "<b>Chapter 3</b>", "Chapter 3", false, true},
		{"different number strong", "Chapter 3", "Chapter 4", false, false},
		{"different number weak", "Chapter 3", "Chapter 4", true, true},
		{"typo strong", "The Beginnning", "The Beginning", false, false},
		{"typo weak", "The Beginnning", "The Beginning", true, true},
		{"accents folded", "Café Society", "Cafe Society", false, true},
		{"match near start of title", "Journey Home", "A Journey Home", true, true},
		{"match too far into title", "Journey Home", "The Long Journey Home", true, false},
		{"prose echoing a title", "We walked the long road home that night", "The Long Road Home", true, false},
		{"spacing is compared strong", "Chapter1", "Chapter 1", false, false},
		{"empty line", "", "Chapter 1", true, false},
		{"only stars", "*****", "Chapter 1", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareTitles(tt.line, tt.title, tt.weak); got != tt.want {
				t.Errorf("CompareTitles(%q, %q, %v) = %v, want %v", tt.line, tt.title, tt.weak, got, tt.want)
			}
		})
	}
}

func TestTitleInLine(t *testing.T) {
	tests := []struct {
		line  string
		title string
		want  bool
	}{
		{"Chapter 3: The Big Reveal", "Chapter 3", true},
		{"**CHAPTER 3** It was raining.", "Chapter 3", true},
		{"Chapter 3", "Chapter 3: The Big Reveal", false},
		{"It was Chapter 3 all over again", "Chapter 3", false},
		{"Chapter 3", "", false},
	}

	for _, tt := range tests {
		if got := TitleInLine(tt.line, tt.title); got != tt.want {
			t.Errorf("TitleInLine(%q, %q) = %v, want %v", tt.line, tt.title, got, tt.want)
		}
	}
}

func TestFindPrefersExactTitle(t *testing.T) {
	titles := newTitles([]string{"Chapter 1", "Chapter 11"})

	got, ok := newLine("Chapter 11").find(titles, false)
	if !ok {
		t.Fatal("expected a match")
	}
	if got.raw != "Chapter 11" {
		t.Errorf("expected Chapter 11, got %q", got.raw)
	}

	got, ok = newLine("Chapter 1").find(titles, true)
	if !ok {
		t.Fatal("expected a match")
	}
	if got.raw != "Chapter 1" {
		t.Errorf("expected Chapter 1, got %q", got.raw)
	}
}

func TestFindFallsBackToListOrder(t *testing.T) {
	titles := newTitles([]string{"The Storm", "The Storm Breaks"})
	got, ok := newLine("The Storm Breaks Again").find(titles, false)
	if !ok {
		t.Fatal("expected a match")
	}
	if got.raw != "The Storm" {
		t.Errorf("expected first matching title, got %q", got.raw)
	}
}
