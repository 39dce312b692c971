package chapter_cleanup

import (
	"encoding/json"

	"github.com/jackzampolin/bookboost/internal/prompts"
	"github.com/jackzampolin/bookboost/internal/providers"
)

// Input contains the chapter to clean.
type Input struct {
	Title   string
	Content string

	SystemPromptOverride string
	UserPromptOverride   string
}

// NewRequest builds the chat request for one chapter.
func NewRequest(input Input) (*providers.ChatRequest, error) {
	systemText := input.SystemPromptOverride
	if systemText == "" {
		systemText = SystemPrompt()
	}
	userText := input.UserPromptOverride
	if userText == "" {
		userText = userPromptTmpl
	}
	userPrompt, err := prompts.Render(userText, struct{ Title, Content string }{input.Title, input.Content})
	if err != nil {
		return nil, err
	}

	return &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: systemText},
			{Role: providers.RoleUser, Content: userPrompt},
		},
		ResponseFormat: buildResponseFormat(),
		Temperature:    0.2,
		MaxTokens:      16384, // chapters are long
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
	jsonSchema, _ := json.Marshal(CleanupSchema["json_schema"])
	return &providers.ResponseFormat{
		Type:       "json_schema",
		JSONSchema: jsonSchema,
	}
}
