package llmcall

import (
	"context"
	"testing"
	"time"

	"github.com/jackzampolin/bookboost/internal/providers"
)

func TestFromChatResult(t *testing.T) {
	if FromChatResult(nil, RecordOptions{}) != nil {
		t.Error("expected nil for nil result")
	}

	temp := 0.2
	call := FromChatResult(&providers.ChatResult{
		Content:          "ok",
		Provider:         "mock",
		ModelUsed:        "m",
		PromptTokens:     10,
		CompletionTokens: 2,
		TotalTime:        1500 * time.Millisecond,
		Success:          false,
		ErrorMessage:     "boom",
		Attempts:         2,
	}, RecordOptions{JobID: "j1", PartID: "p1", PromptKey: "k", Temperature: &temp})

	if call.ID == "" {
		t.Error("expected generated ID")
	}
	if call.LatencyMs != 1500 || call.JobID != "j1" || call.PartID != "p1" || call.Error != "boom" || call.Attempts != 2 {
		t.Errorf("unexpected call: %+v", call)
	}
}

func TestRefs(t *testing.T) {
	if got := RefsFrom(context.Background()); got != (Refs{}) {
		t.Errorf("RefsFrom(empty) = %+v", got)
	}
	ctx := WithRefs(context.Background(), Refs{UserID: "u", JobID: "j"})
	if got := RefsFrom(ctx); got.UserID != "u" || got.JobID != "j" {
		t.Errorf("RefsFrom() = %+v", got)
	}
}

func TestStore(t *testing.T) {
	s := NewStore(3)
	for i, job := range []string{"a", "b", "a", "c"} {
		s.Record(&Call{ID: string(rune('0' + i)), JobID: job, Success: job != "c"})
	}

	t.Run("evicts oldest", func(t *testing.T) {
		if _, ok := s.Get("0"); ok {
			t.Error("expected oldest call evicted")
		}
		if _, ok := s.Get("3"); !ok {
			t.Error("expected newest call present")
		}
	})

	t.Run("filter by job newest first", func(t *testing.T) {
		got := s.List(QueryFilter{JobID: "a"})
		if len(got) != 1 || got[0].ID != "2" {
			t.Errorf("List(job a) = %+v", got)
		}
	})

	t.Run("success filter and limit", func(t *testing.T) {
		ok := true
		got := s.List(QueryFilter{Success: &ok, Limit: 1})
		if len(got) != 1 || got[0].ID != "2" {
			t.Errorf("List(success) = %+v", got)
		}
	})

	t.Run("offset", func(t *testing.T) {
		got := s.List(QueryFilter{Offset: 1})
		if len(got) != 2 || got[0].ID != "2" {
			t.Errorf("List(offset 1) = %+v", got)
		}
	})

	t.Run("multi recorder", func(t *testing.T) {
		other := NewStore(0)
		Multi{s, nil, other}.Record(&Call{ID: "x"})
		if _, ok := other.Get("x"); !ok {
			t.Error("expected call forwarded")
		}
	})
}
