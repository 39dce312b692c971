package providers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMockClient(t *testing.T) {
	t.Run("chat", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = "hello world"

		result, err := c.Chat(context.Background(), &ChatRequest{
			Model:    "test-model",
			Messages: []Message{{Role: RoleUser, Content: "test"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Errorf("Success = false, want true")
		}
		if result.Content != "hello world" {
			t.Errorf("Content = %q, want %q", result.Content, "hello world")
		}
		if c.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", c.RequestCount())
		}
	})

	t.Run("structured output", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseJSON = json.RawMessage(`{"titles": ["A", "B"]}`)

		result, err := c.Chat(context.Background(), &ChatRequest{
			Messages:       []Message{{Role: RoleUser, Content: "test"}},
			ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: titlesSchema},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.ParsedJSON == nil {
			t.Fatal("expected ParsedJSON")
		}
	})

	t.Run("structured output failing validation", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseJSON = json.RawMessage(`{"wrong": true}`)

		result, err := c.Chat(context.Background(), &ChatRequest{
			Messages:       []Message{{Role: RoleUser, Content: "test"}},
			ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: titlesSchema},
		})
		if err == nil {
			t.Fatal("expected validation error")
		}
		if result.ErrorType != "structured_output" {
			t.Errorf("ErrorType = %q, want structured_output", result.ErrorType)
		}
		// One repair round trip after the first answer.
		if c.RequestCount() != 2 {
			t.Errorf("RequestCount = %d, want 2", c.RequestCount())
		}
	})

	t.Run("respond func", func(t *testing.T) {
		c := NewMockClient()
		c.Respond = func(req *ChatRequest) (string, error) {
			if strings.Contains(req.Messages[0].Content, "boom") {
				return "", errors.New("scripted failure")
			}
			return strings.ToUpper(req.Messages[0].Content), nil
		}

		result, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "abc"}}})
		if err != nil || result.Content != "ABC" {
			t.Errorf("Chat() = %v, %v", result, err)
		}
		if _, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "boom"}}}); err == nil {
			t.Error("expected scripted failure")
		}
		if got := len(c.Requests()); got != 2 {
			t.Errorf("Requests() = %d, want 2", got)
		}
	})

	t.Run("should fail", func(t *testing.T) {
		c := NewMockClient()
		c.ShouldFail = true

		result, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "test"}}})
		if err == nil {
			t.Error("expected error")
		}
		if result.Success {
			t.Error("Success = true, want false")
		}
	})

	t.Run("fail after", func(t *testing.T) {
		c := NewMockClient()
		c.FailAfter = 2

		for i := 0; i < 2; i++ {
			if _, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "test"}}}); err != nil {
				t.Errorf("request %d: unexpected error: %v", i+1, err)
			}
		}
		if _, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "test"}}}); err == nil {
			t.Error("request 3: expected error")
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		c := NewMockClient()
		c.Latency = time.Second

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if _, err := c.Chat(ctx, &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "test"}}}); err == nil {
			t.Error("expected context error")
		}
	})

	t.Run("concurrent requests", func(t *testing.T) {
		c := NewMockClient()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "test"}}})
			}()
		}
		wg.Wait()

		if c.RequestCount() != 10 {
			t.Errorf("RequestCount = %d, want 10", c.RequestCount())
		}
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("consumes tokens", func(t *testing.T) {
		r := NewRateLimiter(2)
		if !r.TryConsume() || !r.TryConsume() {
			t.Fatal("expected two tokens")
		}
		if r.TryConsume() {
			t.Error("expected bucket to be empty")
		}
	})

	t.Run("wait respects context", func(t *testing.T) {
		r := NewRateLimiter(1)
		r.TryConsume()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := r.Wait(ctx); err == nil {
			t.Error("expected context error while waiting for a token")
		}
	})

	t.Run("429 drains bucket", func(t *testing.T) {
		r := NewRateLimiter(10)
		r.Record429(time.Second)
		if r.TryConsume() {
			t.Error("expected bucket drained after 429")
		}
		if r.Status().Last429Time.IsZero() {
			t.Error("expected Last429Time to be set")
		}
	})
}

func TestRateLimitedClient(t *testing.T) {
	mock := NewMockClient()
	client := WithRateLimit(mock, 1)

	if _, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "a"}}}); err != nil {
		t.Fatalf("first Chat() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := client.Chat(ctx, &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "b"}}}); err == nil {
		t.Error("expected second call to block until the context expired")
	}
	if mock.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1", mock.RequestCount())
	}
	if client.Name() != MockClientName {
		t.Errorf("Name() = %q, want %q", client.Name(), MockClientName)
	}
}

func TestChatResultDecode(t *testing.T) {
	var v map[string]any
	if err := (&ChatResult{}).Decode(&v); err == nil {
		t.Error("expected error without structured output")
	}
	r := &ChatResult{ParsedJSON: json.RawMessage(`{"a":1}`)}
	if err := r.Decode(&v); err != nil || v["a"] != float64(1) {
		t.Errorf("Decode() = %v, %v", v, err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"":     0,
		"2":    2 * time.Second,
		"0.5":  500 * time.Millisecond,
		"soon": 0,
		"-1":   0,
	}
	for in, want := range tests {
		if got := parseRetryAfter(in); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}
