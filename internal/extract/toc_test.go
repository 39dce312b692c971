package extract

import (
	"strings"
	"testing"
)

const sampleManuscript = "Table of Contents\nChapter 1\nChapter 2\n\nChapter 1\nHello world.\n\nChapter 2\nGoodbye world.\n"

var sampleTitles = []string{"Chapter 1", "Chapter 2"}

// incompleteToc lists only the first two of four chapters, so the last title
// never shows up near the heading.
var incompleteToc = []string{
	"Contents",
	"Morning Light",
	"Evening Rain",
	"",
	"Morning Light",
	"Sun rose.",
	"Evening Rain",
	"Drops fell.",
	"Midnight Snow",
	"Cold.",
	"Dawn Chorus",
	"Birds sang.",
	"",
}

var incompleteTocTitles = []string{"Morning Light", "Evening Rain", "Midnight Snow", "Dawn Chorus"}

func TestAnalyze(t *testing.T) {
	t.Run("table of contents listing every chapter", func(t *testing.T) {
		a := Analyze(strings.Split(sampleManuscript, "\n"), sampleTitles)
		if !a.HasToc || a.TocIndex != 0 || a.TocLine != "Table of Contents" {
			t.Errorf("expected heading at line 0, got %+v", a)
		}
		if !a.FirstChapterInText {
			t.Error("expected first chapter near heading")
		}
		if !a.LastChapterInToc {
			t.Error("expected last chapter near heading")
		}
		if !a.StrongTitleMatch {
			t.Error("expected strong title match")
		}
	})

	t.Run("incomplete table of contents", func(t *testing.T) {
		a := Analyze(incompleteToc, incompleteTocTitles)
		if !a.HasToc || a.TocIndex != 0 {
			t.Errorf("expected heading at line 0, got %+v", a)
		}
		if !a.FirstChapterInText {
			t.Error("expected first chapter near heading")
		}
		if a.LastChapterInToc {
			t.Error("last chapter is not listed near the heading")
		}
		if !a.StrongTitleMatch {
			t.Error("expected strong title match")
		}
	})

	t.Run("heading is case insensitive and whole line", func(t *testing.T) {
		a := Analyze([]string{"Intro", "  CONTENTS  ", "x"}, sampleTitles)
		if !a.HasToc || a.TocIndex != 1 {
			t.Errorf("expected heading at line 1, got %+v", a)
		}
		a = Analyze([]string{"The contents of the box"}, sampleTitles)
		if a.HasToc {
			t.Errorf("expected no heading, got %+v", a)
		}
	})

	t.Run("no table of contents", func(t *testing.T) {
		a := Analyze([]string{"Chapter 1", "Text.", "Chapter 2", "More."}, sampleTitles)
		if a.HasToc || a.TocIndex != -1 {
			t.Errorf("expected no heading, got %+v", a)
		}
		if a.FirstChapterInText || a.LastChapterInToc {
			t.Errorf("window checks need a heading, got %+v", a)
		}
	})

	t.Run("few verbatim titles", func(t *testing.T) {
		lines := []string{"Prologue text", "more", "Chapter 1", "body"}
		a := Analyze(lines, []string{"Chapter 1", "Chapter 2", "Chapter 3"})
		if a.StrongTitleMatch {
			t.Error("one verbatim title out of three is not a strong match")
		}
	})

	t.Run("no titles", func(t *testing.T) {
		a := Analyze(strings.Split(sampleManuscript, "\n"), nil)
		if !a.HasToc {
			t.Error("heading should still be found")
		}
		if a.FirstChapterInText || a.LastChapterInToc || a.StrongTitleMatch {
			t.Errorf("expected all title checks false, got %+v", a)
		}
	})
}

func TestStrip(t *testing.T) {
	t.Run("no heading returns manuscript unchanged", func(t *testing.T) {
		m := "Chapter 1\nText.\n"
		if got := Strip(m, sampleTitles, Analyze(strings.Split(m, "\n"), sampleTitles)); got != m {
			t.Errorf("expected unchanged manuscript, got %q", got)
		}
	})

	t.Run("ends at last listed title and skips it", func(t *testing.T) {
		lines := strings.Split(sampleManuscript, "\n")
		a := Analyze(lines, sampleTitles)
		got := Strip(sampleManuscript, sampleTitles, a)
		if strings.Contains(got, "Table of Contents") {
			t.Errorf("heading should be removed, got %q", got)
		}
		if !strings.HasSuffix(got, "Chapter 1\nHello world.\n\nChapter 2\nGoodbye world.\n\n") {
			t.Errorf("body should be kept, got %q", got)
		}
	})

	t.Run("ends at first title in body and keeps it", func(t *testing.T) {
		m := strings.Join(incompleteToc, "\n")
		a := Analyze(incompleteToc, incompleteTocTitles)
		got := Strip(m, incompleteTocTitles, a)
		want := strings.Join(incompleteToc[4:], "\n") + "\n"
		if got != want {
			t.Errorf("Strip() = %q, want %q", got, want)
		}
	})

	t.Run("no end found drops everything", func(t *testing.T) {
		m := "Contents\nfoo bar baz\nThe first line of real text.\n"
		a := Analyze(strings.Split(m, "\n"), sampleTitles)
		if got := Strip(m, sampleTitles, a); got != "" {
			t.Errorf("expected empty result, got %q", got)
		}
	})
}

func TestStripFallback(t *testing.T) {
	titles := newTitles(sampleTitles)

	t.Run("no end found keeps manuscript", func(t *testing.T) {
		m := "Contents\nfoo bar baz\nThe first line of real text.\n"
		a := analyze(strings.Split(m, "\n"), titles)
		if got := strip(m, titles, a, StripOptions{FallbackLines: 10}); got != m {
			t.Errorf("expected unchanged manuscript, got %q", got)
		}
	})

	t.Run("end beyond bound keeps manuscript", func(t *testing.T) {
		m := "Contents\nPreface\nNotes\nThanks\nChapter 2\nText.\n"
		a := Analysis{HasToc: true, TocIndex: 0, LastChapterInToc: true}
		if got := strip(m, titles, a, StripOptions{FallbackLines: 2}); got != m {
			t.Errorf("expected unchanged manuscript, got %q", got)
		}
	})

	t.Run("end within bound strips", func(t *testing.T) {
		m := "Contents\nPreface\nNotes\nThanks\nChapter 2\nText.\n"
		a := Analysis{HasToc: true, TocIndex: 0, LastChapterInToc: true}
		if got := strip(m, titles, a, StripOptions{FallbackLines: 10}); got != "Text.\n\n" {
			t.Errorf("expected body after last title, got %q", got)
		}
	})
}
