package chapters

import (
	"context"
	"fmt"

	"github.com/jackzampolin/bookboost/internal/prompts/evaluate"
	"github.com/jackzampolin/bookboost/internal/types"
)

// Score bounds.
const (
	MinScore = 1
	MaxScore = 10
)

// Evaluator scores a completed extraction against the manuscript.
type Evaluator struct {
	cfg Config
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate sends the manuscript and chapter metadata for scoring. Errors
// propagate to the caller.
func (e *Evaluator) Evaluate(ctx context.Context, chapters []types.Chapter, manuscript string) (types.Evaluation, error) {
	req, err := evaluate.NewRequest(evaluate.Input{
		Manuscript:           manuscript,
		Chapters:             types.Summaries(chapters),
		SystemPromptOverride: e.cfg.promptText(evaluate.SystemPromptKey),
		UserPromptOverride:   e.cfg.promptText(evaluate.UserPromptKey),
	})
	if err != nil {
		return types.Evaluation{}, fmt.Errorf("build evaluation request: %w", err)
	}

	result, err := e.cfg.chat(ctx, evaluate.UserPromptKey, req)
	if err != nil {
		return types.Evaluation{}, fmt.Errorf("evaluate extraction: %w", err)
	}
	parsed, err := evaluate.ParseResult(result.ParsedJSON)
	if err != nil {
		return types.Evaluation{}, fmt.Errorf("parse evaluation: %w", err)
	}

	return types.Evaluation{Score: clampScore(parsed.Score), Summary: parsed.Summary}, nil
}

func clampScore(s float64) float64 {
	switch {
	case s < MinScore:
		return MinScore
	case s > MaxScore:
		return MaxScore
	}
	return s
}
