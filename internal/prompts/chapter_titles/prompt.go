package chapter_titles

import (
	_ "embed"

	"github.com/jackzampolin/bookboost/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

// Prompt keys
const (
	SystemPromptKey = "chapters.titles.system"
	UserPromptKey   = "chapters.titles.user"
)

// SystemPrompt returns the system prompt for chapter title extraction.
func SystemPrompt() string {
	return systemPrompt
}

// RegisterPrompts registers the chapter title prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Chapter title extraction system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Chapter title extraction user prompt - carries the full manuscript",
	})
}
