// Package extract segments a converted manuscript into chapters.
//
// The pipeline is: Analyze the lines for a table of contents, Strip the
// table of contents, then walk the remaining lines and open a new chapter
// whenever a line matches one of the known chapter titles.
package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	htmlTag = regexp.MustCompile(`<[^>]*>?`)

	leadingNumber = regexp.MustCompile(`^[0-9]+[.:]*\s*`)

	punctuationToASCII = strings.NewReplacer(
		"–", "-", // en dash
		"—", "-", // em dash
		"…", "...",
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
	)
)

// ToASCII replaces typographic punctuation with ASCII equivalents and strips
// diacritics from accented letters. Characters with no ASCII decomposition
// are left as they are.
func ToASCII(text string) string {
	text = punctuationToASCII.Replace(text)
	if isASCII(text) {
		return text
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func removeStars(s string) string {
	return strings.ReplaceAll(s, "*", "")
}

// titleKey is the comparison form of a title or line: emphasis and markup
// removed, lower-cased, letters digits and underscores only, single spaces.
func titleKey(s string) string {
	s = strings.TrimSpace(removeStars(s))
	if s == "" {
		return ""
	}
	s = strings.ToLower(ToASCII(s))
	s = htmlTag.ReplaceAllString(s, "")

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CleanTitles tidies a raw chapter-title list: blanks and "Table of Contents"
// entries are dropped, whitespace runs become one space, and leading numbering
// such as "3." or "12:" is removed.
func CleanTitles(titles []string) []string {
	cleaned := make([]string, 0, len(titles))
	for _, title := range titles {
		if strings.TrimSpace(title) == "" {
			continue
		}
		title = strings.Join(strings.Fields(title), " ")
		if strings.EqualFold(title, "table of contents") {
			continue
		}
		title = strings.TrimSpace(leadingNumber.ReplaceAllString(title, ""))
		if title == "" {
			continue
		}
		cleaned = append(cleaned, title)
	}
	return cleaned
}
