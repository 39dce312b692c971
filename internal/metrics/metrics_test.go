package metrics

import (
	"math"
	"testing"

	"github.com/jackzampolin/bookboost/internal/llmcall"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCompute(t *testing.T) {
	calls := []llmcall.Call{
		{PromptKey: "a", Provider: "p1", Success: true, CostUSD: 0.01, InputTokens: 100, OutputTokens: 10, LatencyMs: 100, Attempts: 1},
		{PromptKey: "a", Provider: "p1", Success: true, CostUSD: 0.03, InputTokens: 300, OutputTokens: 30, LatencyMs: 300, Attempts: 3},
		{PromptKey: "b", Provider: "p2", Success: false, LatencyMs: 200, Attempts: 2},
	}

	s := Compute(calls)
	if s.Count != 3 || s.SuccessCount != 2 || s.ErrorCount != 1 {
		t.Errorf("counts = %+v", s)
	}
	if !approx(s.TotalCostUSD, 0.04) {
		t.Errorf("TotalCostUSD = %v", s.TotalCostUSD)
	}
	if s.TotalTokens != 440 || s.TotalInputTokens != 400 {
		t.Errorf("tokens = %+v", s)
	}
	if s.Retries != 3 {
		t.Errorf("Retries = %d", s.Retries)
	}
	if s.LatencyMin != 100 || s.LatencyMax != 300 || s.LatencyP50 != 200 || s.LatencyAvg != 200 {
		t.Errorf("latency = %+v", s)
	}
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil)
	if s.Count != 0 || s.AvgCostUSD != 0 || s.LatencyP99 != 0 {
		t.Errorf("empty stats = %+v", s)
	}
}

func TestGroupBy(t *testing.T) {
	calls := []llmcall.Call{
		{PromptKey: "a", JobID: "j1", Success: true},
		{PromptKey: "a", JobID: "j2", Success: true},
		{PromptKey: "b", JobID: "j1", Success: false},
		{PromptKey: "c"},
	}

	byPrompt := GroupBy(calls, ByPromptKey)
	if len(byPrompt) != 3 || byPrompt["a"].Count != 2 || byPrompt["b"].ErrorCount != 1 {
		t.Errorf("by prompt = %v", byPrompt)
	}

	byJob := GroupBy(calls, ByJob)
	if byJob["j1"].Count != 2 || byJob[""].Count != 1 {
		t.Errorf("by job = %v", byJob)
	}
}

func TestGroupValid(t *testing.T) {
	for _, g := range []Group{ByPromptKey, ByProvider, ByModel, ByJob, ByUser} {
		if !g.Valid() {
			t.Errorf("%s should be valid", g)
		}
	}
	if Group("stage").Valid() {
		t.Error("stage should be invalid")
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		values []float64
		p      float64
		want   float64
	}{
		{nil, 50, 0},
		{[]float64{5}, 99, 5},
		{[]float64{1, 2, 3, 4, 5}, 50, 3},
		{[]float64{1, 2, 3, 4, 5}, 100, 5},
		{[]float64{10, 20}, 50, 15},
	}
	for _, tt := range tests {
		if got := percentile(tt.values, tt.p); !approx(got, tt.want) {
			t.Errorf("percentile(%v, %v) = %v, want %v", tt.values, tt.p, got, tt.want)
		}
	}
}
