// Package chapters holds the LLM-backed collaborators of the extraction
// pipeline: chapter title extraction, per-chapter cleanup and extraction
// evaluation.
package chapters

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/bookboost/internal/llmcall"
	"github.com/jackzampolin/bookboost/internal/prompts"
	"github.com/jackzampolin/bookboost/internal/providers"
)

// Config configures one collaborator.
type Config struct {
	Client providers.LLMClient

	// Model overrides the client default.
	Model string

	// Prompts resolves configured prompt overrides. Nil uses embedded defaults.
	Prompts *prompts.Resolver

	// Recorder receives every LLM call. Nil disables recording.
	Recorder llmcall.Recorder

	Logger *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// promptText returns the resolved prompt for key, or "" for the embedded default.
func (c Config) promptText(key string) string {
	if c.Prompts == nil {
		return ""
	}
	p, err := c.Prompts.Resolve(key)
	if err != nil {
		return ""
	}
	return p.Text
}

func (c Config) promptHash(key string) string {
	if c.Prompts == nil {
		return ""
	}
	p, err := c.Prompts.Resolve(key)
	if err != nil {
		return ""
	}
	return p.Hash
}

// chat sends req and records the call under promptKey.
func (c Config) chat(ctx context.Context, promptKey string, req *providers.ChatRequest) (*providers.ChatResult, error) {
	if c.Client == nil {
		return nil, fmt.Errorf("no LLM client configured")
	}
	if c.Model != "" {
		req.Model = c.Model
	}

	result, err := c.Client.Chat(ctx, req)
	if c.Recorder != nil && result != nil {
		refs := llmcall.RefsFrom(ctx)
		temp := req.Temperature
		c.Recorder.Record(llmcall.FromChatResult(result, llmcall.RecordOptions{
			UserID:      refs.UserID,
			JobID:       refs.JobID,
			PartID:      refs.PartID,
			PromptKey:   promptKey,
			PromptHash:  c.promptHash(promptKey),
			Temperature: &temp,
		}))
	}
	if err != nil {
		return result, err
	}
	if result == nil || len(result.ParsedJSON) == 0 {
		return result, fmt.Errorf("no structured output in response")
	}
	return result, nil
}
