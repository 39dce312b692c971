// Package types provides shared types used across multiple packages.
// This package has no dependencies on other bookboost packages to avoid import cycles.
package types

// Chapter is one segmented chapter of a manuscript. Arrays of chapters are
// the JSON document stored as a job's chapters object.
type Chapter struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ChapterSummary is the per-chapter metadata sent for evaluation in place of
// the full content.
type ChapterSummary struct {
	Title         string `json:"title"`
	ContentLength int    `json:"contentLength"`
}

// Summaries returns title and content length for each chapter.
func Summaries(chapters []Chapter) []ChapterSummary {
	out := make([]ChapterSummary, len(chapters))
	for i, c := range chapters {
		out[i] = ChapterSummary{Title: c.Title, ContentLength: len([]rune(c.Content))}
	}
	return out
}

// Evaluation is the quality score of a completed extraction.
type Evaluation struct {
	// Score ranges from 1 (unusable) to 10 (perfect).
	Score   float64 `json:"score"`
	Summary string  `json:"summary"`
}
