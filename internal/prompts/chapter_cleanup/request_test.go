package chapter_cleanup

import (
	"strings"
	"testing"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest(Input{Title: "Prologue", Content: "It was a dark and storm y night."})
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	user := req.Messages[1].Content
	if !strings.Contains(user, "Chapter title: Prologue") {
		t.Errorf("title missing from prompt: %q", user)
	}
	if !strings.Contains(user, "```chapter\nIt was a dark and storm y night.\n```") {
		t.Errorf("content missing from prompt: %q", user)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_schema" {
		t.Errorf("unexpected response format: %+v", req.ResponseFormat)
	}
}
