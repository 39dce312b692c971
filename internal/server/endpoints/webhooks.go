package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookboost/internal/api"
	"github.com/jackzampolin/bookboost/internal/svcctx"
)

// ConversionWebhookRequest is the completion notice sent by the conversion
// service.
type ConversionWebhookRequest struct {
	JobID string `json:"JobId"`
}

// ConversionWebhookResponse acknowledges a completion notice.
type ConversionWebhookResponse struct {
	Status string `json:"status"`
}

// ConversionWebhookEndpoint handles POST /api/webhooks/conversion/{user_id}/{job_id}.
type ConversionWebhookEndpoint struct{}

func (e *ConversionWebhookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/webhooks/conversion/{user_id}/{job_id}", e.handler
}

func (e *ConversionWebhookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Conversion finished
//	@Description	Called by the conversion service; collects the converted text and advances the job
//	@Tags			webhooks
//	@Accept			json
//	@Produce		json
//	@Param			user_id	path		string						true	"User ID"
//	@Param			job_id	path		string						true	"Job ID"
//	@Param			request	body		ConversionWebhookRequest	true	"Conversion handle"
//	@Success		200		{object}	ConversionWebhookResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse	"Job is not waiting for this conversion"
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/webhooks/conversion/{user_id}/{job_id} [post]
func (e *ConversionWebhookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ConversionWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
		writeError(w, http.StatusBadRequest, "JobId is required")
		return
	}

	userID, jobID := r.PathValue("user_id"), r.PathValue("job_id")
	if err := svcctx.MachineFrom(r.Context()).HandleConverted(r.Context(), userID, jobID, req.JobID); err != nil {
		if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
			logger.Warn("conversion webhook rejected", "user_id", userID, "job_id", jobID, "handle", req.JobID, "error", err)
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConversionWebhookResponse{Status: "accepted"})
}

func (e *ConversionWebhookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:    "conversion-done <user-id> <job-id> <handle>",
		Short:  "Report a finished conversion (as the conversion service would)",
		Hidden: true,
		Args:   cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := fmt.Sprintf("/api/webhooks/conversion/%s/%s", args[0], args[1])
			var resp ConversionWebhookResponse
			if err := client.Post(cmd.Context(), path, ConversionWebhookRequest{JobID: args[2]}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
