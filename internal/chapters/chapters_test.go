package chapters

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jackzampolin/bookboost/internal/llmcall"
	"github.com/jackzampolin/bookboost/internal/prompts"
	"github.com/jackzampolin/bookboost/internal/prompts/chapter_cleanup"
	"github.com/jackzampolin/bookboost/internal/prompts/chapter_titles"
	"github.com/jackzampolin/bookboost/internal/providers"
	"github.com/jackzampolin/bookboost/internal/types"
)

func mockJSON(body string) *providers.MockClient {
	c := providers.NewMockClient()
	c.ResponseJSON = json.RawMessage(body)
	return c
}

func TestTitleExtractor(t *testing.T) {
	client := mockJSON(`{"titles":["", "Table of Contents", "1. The Storm", "  Aftermath \n Part  Two "]}`)
	recorder := llmcall.NewStore(0)
	e := NewTitleExtractor(Config{Client: client, Model: "test-model", Recorder: recorder})

	ctx := llmcall.WithRefs(context.Background(), llmcall.Refs{JobID: "job-1"})
	titles, err := e.ExtractTitles(ctx, "manuscript text")
	if err != nil {
		t.Fatalf("ExtractTitles() error = %v", err)
	}

	want := []string{"The Storm", "Aftermath Part Two"}
	if len(titles) != len(want) {
		t.Fatalf("titles = %q, want %q", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("titles[%d] = %q, want %q", i, titles[i], want[i])
		}
	}

	reqs := client.Requests()
	if len(reqs) != 1 || reqs[0].Model != "test-model" {
		t.Errorf("unexpected requests: %+v", reqs)
	}
	calls := recorder.List(llmcall.QueryFilter{JobID: "job-1"})
	if len(calls) != 1 || calls[0].PromptKey != chapter_titles.UserPromptKey {
		t.Errorf("expected one recorded call, got %+v", calls)
	}
}

func TestTitleExtractorErrors(t *testing.T) {
	t.Run("client failure", func(t *testing.T) {
		client := providers.NewMockClient()
		client.ShouldFail = true
		if _, err := NewTitleExtractor(Config{Client: client}).ExtractTitles(context.Background(), "m"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("no client", func(t *testing.T) {
		if _, err := NewTitleExtractor(Config{}).ExtractTitles(context.Background(), "m"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestPostProcessor(t *testing.T) {
	chapter := types.Chapter{Title: "Chapter 1", Content: "brok en text"}

	t.Run("success", func(t *testing.T) {
		client := mockJSON(`{"title":"Renamed","content":"Broken text.","flag":true}`)
		got := NewPostProcessor(Config{Client: client}).PostProcess(context.Background(), chapter)

		if !got.Processed || got.Error != "" {
			t.Fatalf("unexpected result: %+v", got)
		}
		if got.Title != "Chapter 1" {
			t.Errorf("Title = %q, the original title must be kept", got.Title)
		}
		if got.Content != "Broken text." || !got.Flag {
			t.Errorf("unexpected result: %+v", got)
		}
	})

	t.Run("failure keeps original", func(t *testing.T) {
		client := providers.NewMockClient()
		client.ShouldFail = true
		got := NewPostProcessor(Config{Client: client}).PostProcess(context.Background(), chapter)

		if !got.Processed {
			t.Error("Processed must be true on failure")
		}
		if got.Error == "" {
			t.Error("expected Error to be set")
		}
		if got.Content != chapter.Content {
			t.Errorf("Content = %q, want original", got.Content)
		}
	})

	t.Run("empty content is a failure", func(t *testing.T) {
		client := mockJSON(`{"title":"x","content":"  ","flag":false}`)
		got := NewPostProcessor(Config{Client: client}).PostProcess(context.Background(), chapter)
		if got.Error == "" || got.Content != chapter.Content {
			t.Errorf("unexpected result: %+v", got)
		}
	})

	t.Run("prompt override", func(t *testing.T) {
		resolver := prompts.NewResolver(nil)
		chapter_cleanup.RegisterPrompts(resolver)
		resolver.SetOverrides(map[string]string{chapter_cleanup.SystemPromptKey: "custom system"})

		client := mockJSON(`{"title":"x","content":"ok","flag":false}`)
		NewPostProcessor(Config{Client: client, Prompts: resolver}).PostProcess(context.Background(), chapter)

		reqs := client.Requests()
		if len(reqs) != 1 || reqs[0].Messages[0].Content != "custom system" {
			t.Errorf("override not applied: %+v", reqs)
		}
		if !strings.Contains(reqs[0].Messages[1].Content, "brok en text") {
			t.Error("embedded user prompt should still carry the content")
		}
	})
}

func TestEvaluator(t *testing.T) {
	chapters := []types.Chapter{{Title: "One", Content: "abc"}}

	tests := []struct {
		name      string
		body      string
		wantScore float64
	}{
		{"in range", `{"score":7,"summary":"fine"}`, 7},
		{"clamped high", `{"score":42,"summary":"wow"}`, MaxScore},
		{"clamped low", `{"score":-3,"summary":"bad"}`, MinScore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEvaluator(Config{Client: mockJSON(tt.body)}).Evaluate(context.Background(), chapters, "manuscript")
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got.Score != tt.wantScore {
				t.Errorf("Score = %v, want %v", got.Score, tt.wantScore)
			}
		})
	}

	t.Run("failure propagates", func(t *testing.T) {
		client := providers.NewMockClient()
		client.ShouldFail = true
		if _, err := NewEvaluator(Config{Client: client}).Evaluate(context.Background(), chapters, "m"); err == nil {
			t.Error("expected error")
		}
	})
}
