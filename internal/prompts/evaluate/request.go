package evaluate

import (
	"encoding/json"
	"fmt"

	"github.com/jackzampolin/bookboost/internal/prompts"
	"github.com/jackzampolin/bookboost/internal/providers"
	"github.com/jackzampolin/bookboost/internal/types"
)

// Input carries the manuscript and chapter metadata. Chapter bodies are not
// sent, only titles and lengths.
type Input struct {
	Manuscript string
	Chapters   []types.ChapterSummary

	SystemPromptOverride string
	UserPromptOverride   string
}

// NewRequest builds the chat request for evaluating an extraction.
func NewRequest(input Input) (*providers.ChatRequest, error) {
	systemText := input.SystemPromptOverride
	if systemText == "" {
		systemText = SystemPrompt()
	}
	userText := input.UserPromptOverride
	if userText == "" {
		userText = userPromptTmpl
	}

	chapters := input.Chapters
	if chapters == nil {
		chapters = []types.ChapterSummary{}
	}
	listing, err := json.MarshalIndent(chapters, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal chapter summaries: %w", err)
	}
	userPrompt, err := prompts.Render(userText, struct{ Manuscript, Chapters string }{input.Manuscript, string(listing)})
	if err != nil {
		return nil, err
	}

	return &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: systemText},
			{Role: providers.RoleUser, Content: userPrompt},
		},
		ResponseFormat: buildResponseFormat(),
		Temperature:    0,
		MaxTokens:      1024,
	}, nil
}

// ParseResult parses the structured LLM answer into a Result.
func ParseResult(parsedJSON json.RawMessage) (*Result, error) {
	var result Result
	if err := json.Unmarshal(parsedJSON, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func buildResponseFormat() *providers.ResponseFormat {
	jsonSchema, _ := json.Marshal(EvaluationSchema["json_schema"])
	return &providers.ResponseFormat{
		Type:       "json_schema",
		JSONSchema: jsonSchema,
	}
}
