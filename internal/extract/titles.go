package extract

import (
	"strings"
	"unicode/utf8"
)

const (
	// minTitleLength is the shortest normalized line or title that may match.
	minTitleLength = 5

	// A fuzzy match starting at the first character of the title.
	headScore    = 0.7
	headCoverage = 0.75

	// A fuzzy match starting a few characters into the title.
	offsetScore    = 0.8
	offsetCoverage = 0.5
	maxOffset      = 4
)

// title is a chapter title with its comparison forms precomputed.
type title struct {
	raw    string
	key    string
	folded foldedText
	length int
}

func newTitle(raw string) title {
	bare := strings.TrimSpace(removeStars(raw))
	return title{
		raw:    raw,
		key:    titleKey(raw),
		folded: fold(bare),
		length: utf8.RuneCountInString(bare),
	}
}

func newTitles(raw []string) []title {
	out := make([]title, len(raw))
	for i, r := range raw {
		out[i] = newTitle(r)
	}
	return out
}

// line is a manuscript line with its comparison key. The folded form is only
// needed for fuzzy matching and is computed on first use.
type line struct {
	raw    string
	key    string
	folded *foldedText
}

func newLine(raw string) *line {
	return &line{raw: raw, key: titleKey(raw)}
}

func (l *line) fold() foldedText {
	if l.folded == nil {
		f := fold(strings.TrimSpace(removeStars(l.raw)))
		l.folded = &f
	}
	return *l.folded
}

// CompareTitles reports whether a manuscript line names the given chapter
// title. Normalized prefix matches always count. When weak is true a fuzzy
// match is also accepted if it starts at or near the beginning of the title
// and covers enough of it.
func CompareTitles(candidate, known string, weak bool) bool {
	return newLine(candidate).matches(newTitle(known), weak)
}

// TitleInLine reports whether the normalized line starts with the normalized
// title.
func TitleInLine(candidate, known string) bool {
	k := titleKey(known)
	return k != "" && strings.HasPrefix(titleKey(candidate), k)
}

func (l *line) matches(t title, weak bool) bool {
	if l.key == "" || t.key == "" {
		return false
	}
	if utf8.RuneCountInString(l.key) < minTitleLength || utf8.RuneCountInString(t.key) < minTitleLength {
		return false
	}
	if strings.HasPrefix(l.key, t.key) || strings.HasPrefix(t.key, l.key) {
		return true
	}
	if !weak {
		return false
	}

	term := l.fold()
	if !reachable(len(term.runes), len(t.folded.runes), headScore) {
		return false
	}
	m := fuzzyFind(term, t.folded)
	size := float64(t.length)
	switch {
	case m.Score > headScore && m.Index == 0 && float64(m.Length) > size*headCoverage:
		return true
	case m.Score > offsetScore && m.Index < maxOffset && float64(m.Length) > size*offsetCoverage:
		return true
	}
	return false
}

// find returns the title that the line names. A title whose key equals the
// line key exactly wins over earlier titles that only match by prefix or
// fuzzily, so "Chapter 11" is not taken for "Chapter 1".
func (l *line) find(titles []title, weak bool) (title, bool) {
	var (
		first title
		found bool
	)
	for _, t := range titles {
		if !l.matches(t, weak) {
			continue
		}
		if t.key == l.key {
			return t, true
		}
		if !found {
			first, found = t, true
		}
	}
	return first, found
}
