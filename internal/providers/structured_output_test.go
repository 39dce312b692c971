package providers

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

var cleanupSchema = json.RawMessage(`{
	"name":"chapter_cleanup",
	"strict":true,
	"schema":{
		"type":"object",
		"properties":{
			"title":{"type":"string"},
			"content":{"type":"string"},
			"flag":{"type":"boolean"}
		},
		"required":["title","content","flag"],
		"additionalProperties":false
	}
}`)

var evaluationSchema = json.RawMessage(`{
	"name":"extraction_evaluation",
	"strict":true,
	"schema":{
		"type":"object",
		"properties":{
			"score":{"type":"number","minimum":1,"maximum":10},
			"summary":{"type":"string"},
			"chapters":{"type":"integer","minimum":1}
		},
		"required":["score","summary"],
		"additionalProperties":false
	}
}`)

func TestSanitizeStructuredSchemaForModel_AnthropicRemovesIntegerBounds(t *testing.T) {
	got, err := sanitizeStructuredSchemaForModel("anthropic/claude-3.5-sonnet", evaluationSchema)
	if err != nil {
		t.Fatalf("sanitizeStructuredSchemaForModel() error = %v", err)
	}

	var doc struct {
		Schema struct {
			Properties map[string]map[string]any `json:"properties"`
		} `json:"schema"`
	}
	if err := json.Unmarshal(got, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := doc.Schema.Properties["chapters"]["minimum"]; ok {
		t.Errorf("integer minimum should be removed, got: %s", got)
	}
	score := doc.Schema.Properties["score"]
	if score["minimum"] != 1.0 || score["maximum"] != 10.0 {
		t.Errorf("number bounds should remain, got: %v", score)
	}
}

func TestSanitizeStructuredSchemaForModel_NonAnthropicUnchanged(t *testing.T) {
	got, err := sanitizeStructuredSchemaForModel("openai/gpt-4.1", evaluationSchema)
	if err != nil {
		t.Fatalf("sanitizeStructuredSchemaForModel() error = %v", err)
	}
	if string(got) != string(evaluationSchema) {
		t.Fatalf("non-anthropic schema should be unchanged, got: %s", string(got))
	}
}

func TestParseStructuredJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare object", `{"titles":["Chapter 1"]}`, `{"titles":["Chapter 1"]}`},
		{"code fence", "```json\n{\"score\":8,\"summary\":\"ok\"}\n```", `{"score":8,"summary":"ok"}`},
		{"prose around answer", "Here is the cleaned chapter:\n{\"title\":\"One\",\"content\":\"Text.\",\"flag\":false}\nLet me know.", `{"content":"Text.","flag":false,"title":"One"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStructuredJSON(tt.content)
			if err != nil {
				t.Fatalf("parseStructuredJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("parseStructuredJSON() = %s, want %s", got, tt.want)
			}
		})
	}

	for _, content := range []string{"", "   ", "no json here"} {
		if _, err := parseStructuredJSON(content); err == nil {
			t.Errorf("parseStructuredJSON(%q) expected error", content)
		}
	}
}

func TestValidateStructuredJSON(t *testing.T) {
	tests := []struct {
		name    string
		schema  json.RawMessage
		answer  string
		wantErr bool
	}{
		{"cleanup valid", cleanupSchema, `{"title":"One","content":"Text.","flag":true}`, false},
		{"cleanup missing flag", cleanupSchema, `{"title":"One","content":"Text."}`, true},
		{"cleanup extra field", cleanupSchema, `{"title":"One","content":"Text.","flag":false,"notes":"x"}`, true},
		{"evaluation valid", evaluationSchema, `{"score":7.5,"summary":"Most chapters found."}`, false},
		{"evaluation score out of range", evaluationSchema, `{"score":11,"summary":"?"}`, true},
		{"evaluation score as text", evaluationSchema, `{"score":"high","summary":"?"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStructuredJSON(tt.schema, json.RawMessage(tt.answer))
			if (err != nil) != tt.wantErr {
				t.Errorf("validateStructuredJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCompleteStructured_RepairsCleanupAnswer(t *testing.T) {
	var requests []*ChatRequest
	answers := []string{
		`{"title":"Chapter 1","content":"Hello world."}`,
		`{"title":"Chapter 1","content":"Hello world.","flag":false}`,
	}
	send := func(_ context.Context, req *ChatRequest) (*ChatResult, error) {
		requests = append(requests, req)
		return &ChatResult{Content: answers[len(requests)-1], Attempts: 1}, nil
	}

	result, err := completeStructured(context.Background(), &ChatRequest{
		Messages:       []Message{{Role: RoleUser, Content: "Clean this chapter."}},
		ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: cleanupSchema},
	}, send)
	if err != nil {
		t.Fatalf("completeStructured() error = %v", err)
	}
	if !result.Success || result.Attempts != 2 {
		t.Errorf("result = success %v, attempts %d; want true, 2", result.Success, result.Attempts)
	}
	if !strings.Contains(string(result.ParsedJSON), `"flag":false`) {
		t.Errorf("ParsedJSON = %s", result.ParsedJSON)
	}

	if len(requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(requests))
	}
	repair := requests[1].Messages
	if len(repair) != 3 || repair[1].Role != RoleAssistant || !strings.Contains(repair[2].Content, "Validation issue") {
		t.Errorf("repair messages = %+v", repair)
	}
	if len(requests[0].Messages) != 1 {
		t.Errorf("original request was modified: %+v", requests[0].Messages)
	}
}
