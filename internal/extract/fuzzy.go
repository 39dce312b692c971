package extract

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// fuzzyMatch is the best approximate occurrence of a term inside a candidate.
// Index and Length are rune positions in the original candidate string.
type fuzzyMatch struct {
	Score  float64
	Index  int
	Length int
}

// foldedText is a string reduced to lower-case letters and digits, with each
// kept rune mapped back to its rune offset in the original string.
type foldedText struct {
	runes   []rune
	offsets []int
}

func fold(s string) foldedText {
	var f foldedText
	i := 0
	for _, r := range s {
		for _, d := range decompose(r) {
			d = unicode.ToLower(d)
			if unicode.IsLetter(d) || unicode.IsDigit(d) {
				f.runes = append(f.runes, d)
				f.offsets = append(f.offsets, i)
			}
		}
		i++
	}
	return f
}

// decompose returns r without combining marks, so "é" compares equal to "e".
func decompose(r rune) []rune {
	if r < unicode.MaxASCII {
		return []rune{r}
	}
	out := make([]rune, 0, 2)
	for _, d := range norm.NFD.String(string(r)) {
		if !unicode.Is(unicode.Mn, d) {
			out = append(out, d)
		}
	}
	return out
}

// reachable reports whether a term of length m can score above minScore
// against a candidate of length n. Every term rune beyond n costs at least
// one edit, so the score is bounded by n/m.
func reachable(m, n int, minScore float64) bool {
	if m == 0 || n == 0 {
		return false
	}
	return float64(n)/float64(m) > minScore
}

// fuzzyFind locates the substring of candidate with the smallest
// Damerau-Levenshtein distance to the whole term (Sellers' algorithm: the
// match may start and end anywhere in the candidate at no cost).
// Score is 1 - distance/len(term).
func fuzzyFind(term, candidate foldedText) fuzzyMatch {
	m, n := len(term.runes), len(candidate.runes)
	if m == 0 || n == 0 {
		return fuzzyMatch{}
	}
	t, c := term.runes, candidate.runes

	// dist[j] is the edit distance of term[:i] against the best substring of
	// candidate ending at j; start[j] is where that substring begins.
	prev2, prev, cur := make([]int, n+1), make([]int, n+1), make([]int, n+1)
	prev2Start, prevStart, curStart := make([]int, n+1), make([]int, n+1), make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = 0
		prevStart[j] = j
	}

	for i := 1; i <= m; i++ {
		cur[0] = i
		curStart[0] = 0
		for j := 1; j <= n; j++ {
			cost := 1
			if t[i-1] == c[j-1] {
				cost = 0
			}
			best, bestStart := prev[j-1]+cost, prevStart[j-1]
			if i > 1 && j > 1 && t[i-1] == c[j-2] && t[i-2] == c[j-1] {
				if d := prev2[j-2] + 1; d < best {
					best, bestStart = d, prev2Start[j-2]
				}
			}
			if d := prev[j] + 1; d < best {
				best, bestStart = d, prevStart[j]
			}
			if d := cur[j-1] + 1; d < best {
				best, bestStart = d, curStart[j-1]
			}
			cur[j], curStart[j] = best, bestStart
		}
		prev2, prev, cur = prev, cur, prev2
		prev2Start, prevStart, curStart = prevStart, curStart, prev2Start
	}

	// prev now holds the final row. Ties prefer the earliest start, then the
	// longest span.
	bestEnd := -1
	for j := 0; j <= n; j++ {
		if bestEnd < 0 || prev[j] < prev[bestEnd] ||
			(prev[j] == prev[bestEnd] && prevStart[j] < prevStart[bestEnd]) ||
			(prev[j] == prev[bestEnd] && prevStart[j] == prevStart[bestEnd] && j > bestEnd) {
			bestEnd = j
		}
	}

	score := 1 - float64(prev[bestEnd])/float64(m)
	if score < 0 {
		score = 0
	}
	start := prevStart[bestEnd]
	match := fuzzyMatch{Score: score}
	switch {
	case start >= n:
		match.Index = candidate.offsets[n-1] + 1
	case bestEnd <= start:
		match.Index = candidate.offsets[start]
	default:
		match.Index = candidate.offsets[start]
		match.Length = candidate.offsets[bestEnd-1] + 1 - match.Index
	}
	return match
}
