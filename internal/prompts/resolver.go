package prompts

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Resolver resolves prompts with configured overrides.
// Resolution order: override > embedded default
type Resolver struct {
	embedded  map[string]EmbeddedPrompt
	overrides map[string]string
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewResolver creates a new prompt resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		embedded:  make(map[string]EmbeddedPrompt),
		overrides: make(map[string]string),
		logger:    logger,
	}
}

// Register registers an embedded prompt.
// This should be called during initialization by each task package.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// SetOverrides replaces the override set. Keys that are not registered are
// kept but logged, since a task package may register later.
func (r *Resolver) SetOverrides(overrides map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.overrides = make(map[string]string, len(overrides))
	for key, text := range overrides {
		if text == "" {
			continue
		}
		if _, ok := r.embedded[key]; !ok {
			r.logger.Warn("prompt override for unknown key", "key", key)
		}
		r.overrides[key] = text
	}
}

// Resolve returns the override for key if one is set, otherwise the embedded default.
func (r *Resolver) Resolve(key string) (*ResolvedPrompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if text, ok := r.overrides[key]; ok {
		return &ResolvedPrompt{
			Key:        key,
			Text:       text,
			Variables:  ExtractVariables(text),
			IsOverride: true,
			Hash:       HashText(text),
		}, nil
	}

	embedded, ok := r.embedded[key]
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", key)
	}
	return &ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
		Hash:      embedded.Hash,
	}, nil
}

// Text resolves key and returns only the prompt text, or fallback when the
// key is unknown.
func (r *Resolver) Text(key, fallback string) string {
	if r == nil {
		return fallback
	}
	p, err := r.Resolve(key)
	if err != nil {
		return fallback
	}
	return p.Text
}

// GetEmbedded returns the embedded default for a key (no override resolution).
func (r *Resolver) GetEmbedded(key string) (*EmbeddedPrompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.embedded[key]
	return &p, ok
}

// All resolves every registered prompt, sorted by key.
func (r *Resolver) All() []ResolvedPrompt {
	r.mu.RLock()
	keys := make([]string, 0, len(r.embedded))
	for key := range r.embedded {
		keys = append(keys, key)
	}
	r.mu.RUnlock()
	sort.Strings(keys)

	result := make([]ResolvedPrompt, 0, len(keys))
	for _, key := range keys {
		if p, err := r.Resolve(key); err == nil {
			result = append(result, *p)
		}
	}
	return result
}
