package llmcall

import (
	"log/slog"
	"time"

	"github.com/jackzampolin/bookboost/internal/defra"
)

// Collection is the DefraDB collection LLM calls are written to.
const Collection = "LLMCall"

// DefraRecorder persists calls through a defra.Sink.
type DefraRecorder struct {
	Sink   *defra.Sink
	Logger *slog.Logger
}

// Record queues the call for a batched write.
func (r DefraRecorder) Record(call *Call) {
	if call == nil || r.Sink == nil {
		return
	}
	if err := r.Sink.Send(defra.Record{Collection: Collection, Document: Document(call)}); err != nil {
		logger := r.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("llm call not persisted", "id", call.ID, "error", err)
	}
}

// Document maps a call onto the LLMCall collection fields.
func Document(call *Call) map[string]any {
	return map[string]any{
		"call_id":       call.ID,
		"timestamp":     call.Timestamp.UTC().Format(time.RFC3339Nano),
		"user_id":       call.UserID,
		"job_id":        call.JobID,
		"part_id":       call.PartID,
		"prompt_key":    call.PromptKey,
		"prompt_hash":   call.PromptHash,
		"provider":      call.Provider,
		"model":         call.Model,
		"latency_ms":    call.LatencyMs,
		"input_tokens":  call.InputTokens,
		"output_tokens": call.OutputTokens,
		"attempts":      call.Attempts,
		"response":      call.Response,
		"success":       call.Success,
		"error":         call.Error,
	}
}
