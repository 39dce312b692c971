package extract

import (
	"strings"

	"github.com/jackzampolin/bookboost/internal/types"
)

// Options configures a Segmenter.
type Options struct {
	// ASCIIFold runs ToASCII over the manuscript before segmenting.
	ASCIIFold bool
	// TocFallbackLines is passed to Strip as StripOptions.FallbackLines.
	TocFallbackLines int
}

// Result is the outcome of one segmentation run.
type Result struct {
	Chapters []types.Chapter `json:"chapters"`
	Analysis Analysis        `json:"analysis"`
}

// Segmenter splits manuscripts into chapters. The zero value is ready to use.
type Segmenter struct {
	opts Options
}

// NewSegmenter returns a Segmenter with the given options.
func NewSegmenter(opts Options) *Segmenter {
	return &Segmenter{opts: opts}
}

// Segment splits the manuscript into chapters using the default options.
func Segment(manuscript string, titles []string) []types.Chapter {
	return (&Segmenter{}).Segment(manuscript, titles)
}

// Segment splits the manuscript into chapters.
func (s *Segmenter) Segment(manuscript string, titles []string) []types.Chapter {
	return s.Run(manuscript, titles).Chapters
}

// Run analyzes the manuscript, strips its table of contents and assigns every
// remaining line to the chapter whose title line precedes it. Chapters come
// out in the order their title lines appear. Chapters left without content
// are dropped.
func (s *Segmenter) Run(manuscript string, titles []string) Result {
	if s.opts.ASCIIFold {
		manuscript = ToASCII(manuscript)
	}
	ts := newTitles(titles)
	a := analyze(strings.Split(manuscript, "\n"), ts)
	body := strip(manuscript, ts, a, StripOptions{FallbackLines: s.opts.TocFallbackLines})

	var (
		chapters []*types.Chapter
		current  *types.Chapter
	)
	weak := !a.StrongTitleMatch
	for _, raw := range strings.Split(body, "\n") {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		l := newLine(text)
		t, ok := l.find(ts, weak)
		if ok && (current == nil || current.Title != t.raw) {
			current = &types.Chapter{Title: t.raw}
			if TitleInLine(text, t.raw) {
				if rest := removeTitle(text, t); rest != "" {
					current.Content = rest + "\n"
				}
			}
			chapters = append(chapters, current)
			continue
		}
		if current != nil {
			current.Content += text + "\n"
		}
	}

	out := make([]types.Chapter, 0, len(chapters))
	for _, c := range chapters {
		content := strings.TrimSpace(c.Content)
		if content == "" {
			continue
		}
		out = append(out, types.Chapter{Title: c.Title, Content: content})
	}
	return Result{Chapters: out, Analysis: a}
}

// removeTitle cuts the title out of a line that starts with it. The literal
// title text is removed where it occurs; otherwise the leading part of the
// line that normalizes to the title is removed ("CHAPTER 1 Rain" leaves "Rain").
func removeTitle(text string, t title) string {
	if t.raw != "" && strings.Contains(text, t.raw) {
		return trimSeparator(strings.Replace(text, t.raw, "", 1))
	}
	cut := -1
	for i := range text {
		if i == 0 {
			continue
		}
		k := titleKey(text[:i])
		if k == t.key {
			cut = i
		} else if len(k) > len(t.key) {
			break
		}
	}
	if cut < 0 {
		return text
	}
	if titleKey(text) == t.key {
		return ""
	}
	return trimSeparator(text[cut:])
}

// trimSeparator drops the punctuation that joins a title to the text after it.
func trimSeparator(s string) string {
	return strings.TrimLeft(strings.TrimSpace(s), ":;.-|* \t")
}
