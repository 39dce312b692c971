// Package metrics aggregates cost, token and latency statistics over
// recorded LLM calls.
package metrics

import (
	"sort"

	"github.com/jackzampolin/bookboost/internal/llmcall"
)

// Stats summarizes a set of LLM calls.
type Stats struct {
	Count        int `json:"count"`
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`

	TotalCostUSD float64 `json:"total_cost_usd"`
	AvgCostUSD   float64 `json:"avg_cost_usd"`

	// Latency percentiles (milliseconds)
	LatencyP50 float64 `json:"latency_p50_ms"`
	LatencyP95 float64 `json:"latency_p95_ms"`
	LatencyP99 float64 `json:"latency_p99_ms"`
	LatencyAvg float64 `json:"latency_avg_ms"`
	LatencyMin float64 `json:"latency_min_ms"`
	LatencyMax float64 `json:"latency_max_ms"`

	TotalInputTokens  int `json:"total_input_tokens"`
	TotalOutputTokens int `json:"total_output_tokens"`
	TotalTokens       int `json:"total_tokens"`

	AvgInputTokens  float64 `json:"avg_input_tokens"`
	AvgOutputTokens float64 `json:"avg_output_tokens"`

	// Retries counts attempts beyond the first.
	Retries int `json:"retries"`
}

// Group names a field calls can be grouped by.
type Group string

const (
	ByPromptKey Group = "prompt_key"
	ByProvider  Group = "provider"
	ByModel     Group = "model"
	ByJob       Group = "job_id"
	ByUser      Group = "user_id"
)

// Valid reports whether g is a known grouping.
func (g Group) Valid() bool {
	switch g {
	case ByPromptKey, ByProvider, ByModel, ByJob, ByUser:
		return true
	}
	return false
}

func (g Group) key(c llmcall.Call) string {
	switch g {
	case ByPromptKey:
		return c.PromptKey
	case ByProvider:
		return c.Provider
	case ByModel:
		return c.Model
	case ByJob:
		return c.JobID
	case ByUser:
		return c.UserID
	}
	return ""
}

// Compute returns statistics over calls.
func Compute(calls []llmcall.Call) *Stats {
	s := &Stats{Count: len(calls)}
	if len(calls) == 0 {
		return s
	}

	var latencies []float64
	for _, c := range calls {
		s.TotalCostUSD += c.CostUSD
		if c.Success {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
		s.TotalInputTokens += c.InputTokens
		s.TotalOutputTokens += c.OutputTokens
		if c.Attempts > 1 {
			s.Retries += c.Attempts - 1
		}
		if c.LatencyMs > 0 {
			latencies = append(latencies, float64(c.LatencyMs))
		}
	}
	s.TotalTokens = s.TotalInputTokens + s.TotalOutputTokens

	count := float64(s.Count)
	s.AvgCostUSD = s.TotalCostUSD / count
	s.AvgInputTokens = float64(s.TotalInputTokens) / count
	s.AvgOutputTokens = float64(s.TotalOutputTokens) / count

	if len(latencies) > 0 {
		sort.Float64s(latencies)
		s.LatencyMin = latencies[0]
		s.LatencyMax = latencies[len(latencies)-1]
		var sum float64
		for _, l := range latencies {
			sum += l
		}
		s.LatencyAvg = sum / float64(len(latencies))
		s.LatencyP50 = percentile(latencies, 50)
		s.LatencyP95 = percentile(latencies, 95)
		s.LatencyP99 = percentile(latencies, 99)
	}
	return s
}

// GroupBy computes statistics per distinct value of g. Calls with an empty
// value are grouped under "".
func GroupBy(calls []llmcall.Call, g Group) map[string]*Stats {
	groups := make(map[string][]llmcall.Call)
	for _, c := range calls {
		k := g.key(c)
		groups[k] = append(groups[k], c)
	}
	out := make(map[string]*Stats, len(groups))
	for k, cs := range groups {
		out[k] = Compute(cs)
	}
	return out
}

// percentile calculates the p-th percentile from a sorted slice of values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	n := float64(len(sorted))
	idx := (p / 100.0) * (n - 1)

	// Interpolate between floor and ceil indices
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
