package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIClientChatStructured(t *testing.T) {
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": `{"titles":["Prologue","The Storm"]}`,
				},
			}},
			"usage": map[string]any{
				"prompt_tokens":     12,
				"completion_tokens": 6,
				"total_tokens":      18,
			},
		})
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, MaxRetries: -1})
	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "You list chapter titles."},
			{Role: RoleUser, Content: "manuscript"},
		},
		ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: titlesSchema},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success result")
	}
	if result.TotalTokens != 18 {
		t.Errorf("TotalTokens = %d, want 18", result.TotalTokens)
	}

	var out struct {
		Titles []string `json:"titles"`
	}
	if err := result.Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(out.Titles) != 2 {
		t.Errorf("unexpected titles: %v", out.Titles)
	}

	if got, _ := payload["model"].(string); got != openAIDefaultModel {
		t.Errorf("expected model %s, got %q", openAIDefaultModel, got)
	}
	format, _ := payload["response_format"].(map[string]any)
	if got, _ := format["type"].(string); got != "json_schema" {
		t.Errorf("expected response_format json_schema, got %v", payload["response_format"])
	}
	messages, _ := payload["messages"].([]any)
	if len(messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(messages))
	}
}

func TestOpenAIClientRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, MaxRetries: -1})
	_, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})

	rl, ok := IsRateLimitError(err)
	if !ok {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if rl.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rl.StatusCode)
	}
	if rl.RetryAfter.Seconds() != 3 {
		t.Errorf("RetryAfter = %v, want 3s", rl.RetryAfter)
	}
}
