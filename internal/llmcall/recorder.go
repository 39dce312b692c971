package llmcall

import (
	"log/slog"
)

// Recorder captures LLM calls. Implementations must not block the caller.
type Recorder interface {
	Record(call *Call)
}

// LogRecorder writes each call as one structured log line.
type LogRecorder struct {
	Logger *slog.Logger
}

// Record logs the call.
func (r LogRecorder) Record(call *Call) {
	if call == nil {
		return
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("llm call",
		"prompt_key", call.PromptKey,
		"provider", call.Provider,
		"model", call.Model,
		"job_id", call.JobID,
		"part_id", call.PartID,
		"latency_ms", call.LatencyMs,
		"input_tokens", call.InputTokens,
		"output_tokens", call.OutputTokens,
		"success", call.Success,
		"error", call.Error,
	)
}

// Multi fans a call out to several recorders.
type Multi []Recorder

// Record forwards the call to every recorder.
func (m Multi) Record(call *Call) {
	for _, r := range m {
		if r != nil {
			r.Record(call)
		}
	}
}
