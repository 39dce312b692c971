// Package prompts provides prompt management with embedded defaults and
// configured overrides.
//
// Each LLM task lives in its own subpackage with embedded .tmpl files that are
// the source of truth for defaults. Operators may override any prompt by key
// through the `prompts` config section.
//
// Resolution order:
//  1. Configured override (if set)
//  2. Embedded default (from .tmpl files in code)
//
// The resolved hash is recorded with LLM calls so results can be traced to an
// exact prompt version.
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: chapters.titles.system
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// ResolvedPrompt is the result of resolving a prompt key.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"`
	Hash       string   `json:"hash"`
}
