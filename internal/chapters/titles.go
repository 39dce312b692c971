package chapters

import (
	"context"
	"fmt"

	"github.com/jackzampolin/bookboost/internal/extract"
	"github.com/jackzampolin/bookboost/internal/prompts/chapter_titles"
)

// TitleExtractor asks the LLM for the chapter titles of a manuscript.
type TitleExtractor struct {
	cfg Config
}

// NewTitleExtractor creates a TitleExtractor.
func NewTitleExtractor(cfg Config) *TitleExtractor {
	return &TitleExtractor{cfg: cfg}
}

// ExtractTitles returns the cleaned chapter titles found in manuscript.
func (e *TitleExtractor) ExtractTitles(ctx context.Context, manuscript string) ([]string, error) {
	req, err := chapter_titles.NewRequest(chapter_titles.Input{
		Manuscript:           manuscript,
		SystemPromptOverride: e.cfg.promptText(chapter_titles.SystemPromptKey),
		UserPromptOverride:   e.cfg.promptText(chapter_titles.UserPromptKey),
	})
	if err != nil {
		return nil, fmt.Errorf("build title request: %w", err)
	}

	result, err := e.cfg.chat(ctx, chapter_titles.UserPromptKey, req)
	if err != nil {
		return nil, fmt.Errorf("extract chapter titles: %w", err)
	}
	parsed, err := chapter_titles.ParseResult(result.ParsedJSON)
	if err != nil {
		return nil, fmt.Errorf("parse chapter titles: %w", err)
	}

	titles := extract.CleanTitles(parsed.Titles)
	e.cfg.logger().Debug("extracted chapter titles", "raw", len(parsed.Titles), "clean", len(titles))
	return titles, nil
}
