package evaluate

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jackzampolin/bookboost/internal/types"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest(Input{
		Manuscript: "the whole book",
		Chapters: types.Summaries([]types.Chapter{
			{Title: "One", Content: "abc"},
			{Title: "Two", Content: "héllo"},
		}),
	})
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	user := req.Messages[1].Content
	if !strings.Contains(user, "the whole book") {
		t.Error("manuscript missing from prompt")
	}
	if !strings.Contains(user, `"contentLength": 5`) {
		t.Errorf("chapter lengths missing from prompt: %s", user)
	}
	if strings.Contains(user, "héllo") {
		t.Error("chapter bodies must not be sent")
	}
}

func TestNewRequestNoChapters(t *testing.T) {
	req, err := NewRequest(Input{Manuscript: "m"})
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if !strings.Contains(req.Messages[1].Content, "[]") {
		t.Error("expected an empty chapter list")
	}
}

func TestParseResult(t *testing.T) {
	got, err := ParseResult(json.RawMessage(`{"score":7.5,"summary":"good"}`))
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}
	if got.Score != 7.5 || got.Summary != "good" {
		t.Errorf("ParseResult() = %+v", got)
	}
}
