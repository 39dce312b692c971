package extract

import (
	"regexp"
	"strings"
)

var tocHeading = regexp.MustCompile(`(?i)^\s*(Table of Contents|Contents|Chapters)\s*$`)

const (
	// lastTitleMargin widens the window searched for the last title, since a
	// table of contents often carries a few extra entries (epilogue, notes).
	lastTitleMargin = 5

	// strongMatchRatio is the share of titles that must appear verbatim in the
	// body before fuzzy matching is switched off.
	strongMatchRatio = 0.8
)

// Analysis describes the table of contents found in a manuscript.
type Analysis struct {
	// TocLine is the heading line that opens the table of contents.
	TocLine string `json:"toc_line,omitempty"`
	HasToc  bool   `json:"has_toc"`
	// TocIndex is the line number of TocLine, -1 if there is none.
	TocIndex int `json:"toc_index"`

	FirstChapterInText bool `json:"first_chapter_in_text"`
	LastChapterInToc   bool `json:"last_chapter_in_toc"`
	StrongTitleMatch   bool `json:"strong_title_match"`
}

// Analyze locates the table of contents heading and checks how the chapter
// titles are laid out around it.
func Analyze(lines, titles []string) Analysis {
	return analyze(lines, newTitles(titles))
}

func analyze(lines []string, titles []title) Analysis {
	a := Analysis{TocIndex: -1}
	toc := 0
	for i, l := range lines {
		if tocHeading.MatchString(l) {
			a.TocLine, a.HasToc, a.TocIndex = l, true, i
			toc = i
			break
		}
	}
	if len(titles) == 0 {
		return a
	}

	if a.HasToc {
		first, last := titles[0], titles[len(titles)-1]
		a.FirstChapterInText = anyMatch(window(lines, toc, toc+len(titles)), first)
		a.LastChapterInToc = anyMatch(window(lines, toc, toc+len(titles)+lastTitleMargin), last)
	}

	limit := float64(len(titles)) * strongMatchRatio
	strong := 0
	for _, raw := range window(lines, toc+len(titles), len(lines)) {
		if _, ok := newLine(raw).find(titles, false); !ok {
			continue
		}
		strong++
		if float64(strong) > limit {
			break
		}
	}
	a.StrongTitleMatch = float64(strong) > limit
	return a
}

func window(lines []string, from, to int) []string {
	if from > len(lines) {
		from = len(lines)
	}
	if to > len(lines) {
		to = len(lines)
	}
	return lines[from:to]
}

func anyMatch(lines []string, t title) bool {
	for _, raw := range lines {
		if newLine(raw).matches(t, true) {
			return true
		}
	}
	return false
}

// StripOptions tunes Strip.
type StripOptions struct {
	// FallbackLines bounds how far past the heading the end of the table of
	// contents is looked for. When no end is found within that many lines the
	// manuscript is returned unchanged. Zero searches to the end of the
	// manuscript and drops everything after the heading if no end is found.
	FallbackLines int
}

// Strip removes the table of contents from the manuscript. The result keeps
// every line after the end of the table of contents, each newline terminated.
func Strip(manuscript string, titles []string, a Analysis) string {
	return strip(manuscript, newTitles(titles), a, StripOptions{})
}

func strip(manuscript string, titles []title, a Analysis, opts StripOptions) string {
	if !a.HasToc || len(titles) == 0 {
		return manuscript
	}
	lines := strings.Split(manuscript, "\n")

	var (
		b       strings.Builder
		pastToc bool
		inToc   int
		heading = -1
	)
	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if tocHeading.MatchString(trimmed) || inToc > 0 {
			inToc++
			if heading < 0 {
				heading = i
			}
		}
		if !pastToc {
			if heading >= 0 && opts.FallbackLines > 0 && i-heading > opts.FallbackLines {
				return manuscript
			}
			if end, skip := endOfToc(newLine(trimmed), titles, a, inToc); end {
				pastToc = true
				inToc = 0
				if skip {
					continue
				}
			}
		}
		if pastToc {
			b.WriteString(raw)
			b.WriteByte('\n')
		}
	}
	if !pastToc && opts.FallbackLines > 0 {
		return manuscript
	}
	return b.String()
}

// endOfToc reports whether l closes the table of contents and whether l
// itself still belongs to it.
func endOfToc(l *line, titles []title, a Analysis, inToc int) (end, skip bool) {
	switch {
	case a.LastChapterInToc:
		return l.matches(titles[len(titles)-1], true), true
	case a.FirstChapterInText && float64(inToc) > float64(len(titles))/2:
		return l.matches(titles[0], true), false
	}
	return false, false
}
