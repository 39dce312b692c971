package chapter_titles

import (
	"encoding/json"

	"github.com/jackzampolin/bookboost/internal/prompts"
	"github.com/jackzampolin/bookboost/internal/providers"
)

// Input contains the data needed for a title extraction request.
type Input struct {
	Manuscript string

	// Overrides for the embedded prompts. Empty uses the default.
	SystemPromptOverride string
	UserPromptOverride   string
}

// NewRequest builds the chat request for chapter title extraction.
func NewRequest(input Input) (*providers.ChatRequest, error) {
	systemText := input.SystemPromptOverride
	if systemText == "" {
		systemText = SystemPrompt()
	}
	userText := input.UserPromptOverride
	if userText == "" {
		userText = userPromptTmpl
	}
	userPrompt, err := prompts.Render(userText, struct{ Manuscript string }{input.Manuscript})
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
		MaxTokens:      4096,
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
	jsonSchema, _ := json.Marshal(ExtractionSchema["json_schema"])
	return &providers.ResponseFormat{
		Type:       "json_schema",
		JSONSchema: jsonSchema,
	}
}
