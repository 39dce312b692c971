// Package llmcall provides LLM call recording and querying for traceability.
// Every LLM API call is recorded with its prompt key, response, and metrics.
package llmcall

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/bookboost/internal/providers"
)

// Call represents a recorded LLM API call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	UserID string `json:"user_id,omitempty"`
	JobID  string `json:"job_id,omitempty"`
	PartID string `json:"part_id,omitempty"`

	// Prompt traceability
	PromptKey  string `json:"prompt_key"`
	PromptHash string `json:"prompt_hash,omitempty"` // SHA256 of the exact prompt text used

	// Model info
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`

	// Token usage
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd,omitempty"`
	Attempts     int     `json:"attempts"`

	// Response
	Response string `json:"response"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	// Context references (all optional)
	UserID string
	JobID  string
	PartID string

	// Prompt identification (required for traceability)
	PromptKey  string
	PromptHash string

	// Request parameters (pointer to distinguish "not set" from "set to 0")
	Temperature *float64
}

// FromChatResult creates a Call from a ChatResult.
// Returns nil if result is nil.
func FromChatResult(result *providers.ChatResult, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	call := &Call{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		LatencyMs:    int(result.TotalTime.Milliseconds()),
		UserID:       opts.UserID,
		JobID:        opts.JobID,
		PartID:       opts.PartID,
		PromptKey:    opts.PromptKey,
		PromptHash:   opts.PromptHash,
		Provider:     result.Provider,
		Model:        result.ModelUsed,
		Temperature:  opts.Temperature,
		InputTokens:  result.PromptTokens,
		OutputTokens: result.CompletionTokens,
		CostUSD:      result.CostUSD,
		Attempts:     result.Attempts,
		Response:     result.Content,
		Success:      result.Success,
	}
	if !result.Success {
		call.Error = result.ErrorMessage
	}
	return call
}

type refsKey struct{}

// Refs identifies the job and part an LLM call belongs to.
type Refs struct {
	UserID string
	JobID  string
	PartID string
}

// WithRefs returns a context carrying refs for calls made under it.
func WithRefs(ctx context.Context, refs Refs) context.Context {
	return context.WithValue(ctx, refsKey{}, refs)
}

// RefsFrom returns the refs stored in ctx, if any.
func RefsFrom(ctx context.Context) Refs {
	refs, _ := ctx.Value(refsKey{}).(Refs)
	return refs
}
