package chapter_cleanup

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
	SystemPromptKey = "chapters.cleanup.system"
	UserPromptKey   = "chapters.cleanup.user"
)

// SystemPrompt returns the system prompt for chapter cleanup.
func SystemPrompt() string {
	return systemPrompt
}

// RegisterPrompts registers the chapter cleanup prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Chapter cleanup system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Chapter cleanup user prompt - fixes conversion damage and reflows paragraphs",
	})
}
