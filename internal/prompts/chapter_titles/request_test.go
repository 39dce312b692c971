package chapter_titles

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jackzampolin/bookboost/internal/prompts"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest(Input{Manuscript: "Chapter 1\nOnce upon a time."})
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(req.Messages))
	}
	if !strings.Contains(req.Messages[1].Content, "<manuscript>\nChapter 1\nOnce upon a time.\n</manuscript>") {
		t.Errorf("manuscript not embedded in user prompt: %q", req.Messages[1].Content)
	}
	if req.Temperature != 0 {
		t.Errorf("Temperature = %v, want 0", req.Temperature)
	}

	var wrapper struct {
		Name   string         `json:"name"`
		Strict bool           `json:"strict"`
		Schema map[string]any `json:"schema"`
	}
	if err := json.Unmarshal(req.ResponseFormat.JSONSchema, &wrapper); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if wrapper.Name != "chapter_titles" || !wrapper.Strict {
		t.Errorf("unexpected schema wrapper: %+v", wrapper)
	}
}

func TestNewRequestOverride(t *testing.T) {
	req, err := NewRequest(Input{
		Manuscript:           "text",
		SystemPromptOverride: "sys",
		UserPromptOverride:   "Only: {{.Manuscript}}",
	})
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if req.Messages[0].Content != "sys" || req.Messages[1].Content != "Only: text" {
		t.Errorf("overrides not applied: %+v", req.Messages)
	}

	if _, err := NewRequest(Input{UserPromptOverride: "{{.Nope}}"}); err == nil {
		t.Error("expected render error for unknown field")
	}
}

func TestParseResult(t *testing.T) {
	got, err := ParseResult(json.RawMessage(`{"titles":["Prologue","Chapter 1"]}`))
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}
	if len(got.Titles) != 2 || got.Titles[0] != "Prologue" {
		t.Errorf("ParseResult() = %+v", got)
	}
}

func TestRegisterPrompts(t *testing.T) {
	r := prompts.NewResolver(nil)
	RegisterPrompts(r)
	for _, key := range []string{SystemPromptKey, UserPromptKey} {
		if _, ok := r.GetEmbedded(key); !ok {
			t.Errorf("prompt %s not registered", key)
		}
	}
	p, _ := r.GetEmbedded(UserPromptKey)
	if len(p.Variables) != 1 || p.Variables[0] != "Manuscript" {
		t.Errorf("Variables = %v", p.Variables)
	}
}
