package evaluate

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
	SystemPromptKey = "chapters.evaluate.system"
	UserPromptKey   = "chapters.evaluate.user"
)

// SystemPrompt returns the system prompt for extraction evaluation.
func SystemPrompt() string {
	return systemPrompt
}

// RegisterPrompts registers the evaluation prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Extraction evaluation system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Extraction evaluation user prompt - manuscript plus chapter titles and lengths",
	})
}
