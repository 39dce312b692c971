package chapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackzampolin/bookboost/internal/prompts/chapter_cleanup"
	"github.com/jackzampolin/bookboost/internal/types"
)

// ProcessedChapter is a chapter after cleanup. Processed is always true;
// Error is set when the cleanup failed and Content is the original text.
type ProcessedChapter struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Processed bool   `json:"processed"`
	Flag      bool   `json:"flag"`
	Error     string `json:"error,omitempty"`
}

// PostProcessor cleans chapter text for narration.
type PostProcessor struct {
	cfg Config
}

// NewPostProcessor creates a PostProcessor.
func NewPostProcessor(cfg Config) *PostProcessor {
	return &PostProcessor{cfg: cfg}
}

// PostProcess cleans one chapter. It never fails: on error the original
// content is returned with Error set.
func (p *PostProcessor) PostProcess(ctx context.Context, chapter types.Chapter) ProcessedChapter {
	out, err := p.process(ctx, chapter)
	if err != nil {
		p.cfg.logger().Warn("chapter cleanup failed", "title", chapter.Title, "error", err)
		return ProcessedChapter{
			Title:     chapter.Title,
			Content:   chapter.Content,
			Processed: true,
			Error:     err.Error(),
		}
	}
	return out
}

func (p *PostProcessor) process(ctx context.Context, chapter types.Chapter) (ProcessedChapter, error) {
	req, err := chapter_cleanup.NewRequest(chapter_cleanup.Input{
		Title:                chapter.Title,
		Content:              chapter.Content,
		SystemPromptOverride: p.cfg.promptText(chapter_cleanup.SystemPromptKey),
		UserPromptOverride:   p.cfg.promptText(chapter_cleanup.UserPromptKey),
	})
	if err != nil {
		return ProcessedChapter{}, fmt.Errorf("build cleanup request: %w", err)
	}

	result, err := p.cfg.chat(ctx, chapter_cleanup.UserPromptKey, req)
	if err != nil {
		return ProcessedChapter{}, err
	}
	parsed, err := chapter_cleanup.ParseResult(result.ParsedJSON)
	if err != nil {
		return ProcessedChapter{}, fmt.Errorf("parse cleanup result: %w", err)
	}
	if strings.TrimSpace(parsed.Content) == "" && strings.TrimSpace(chapter.Content) != "" {
		return ProcessedChapter{}, fmt.Errorf("cleanup returned empty content")
	}

	return ProcessedChapter{
		Title:     chapter.Title,
		Content:   parsed.Content,
		Processed: true,
		Flag:      parsed.Flag,
	}, nil
}
