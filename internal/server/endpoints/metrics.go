package endpoints

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookboost/internal/api"
	"github.com/jackzampolin/bookboost/internal/metrics"
	"github.com/jackzampolin/bookboost/internal/svcctx"
)

// MetricsResponse summarizes recorded LLM calls.
type MetricsResponse struct {
	Overall *metrics.Stats            `json:"overall"`
	GroupBy string                    `json:"group_by,omitempty"`
	Groups  map[string]*metrics.Stats `json:"groups,omitempty"`
}

// MetricsEndpoint handles GET /api/metrics.
type MetricsEndpoint struct{}

func (e *MetricsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics", e.handler
}

func (e *MetricsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		LLM usage metrics
//	@Description	Cost, token and latency statistics over recorded LLM calls
//	@Tags			metrics
//	@Produce		json
//	@Param			user_id		query		string	false	"Filter by user ID"
//	@Param			job_id		query		string	false	"Filter by job ID"
//	@Param			prompt_key	query		string	false	"Filter by prompt key"
//	@Param			provider	query		string	false	"Filter by provider"
//	@Param			model		query		string	false	"Filter by model"
//	@Param			after		query		string	false	"Filter calls after this RFC3339 timestamp"
//	@Param			before		query		string	false	"Filter calls before this RFC3339 timestamp"
//	@Param			group_by	query		string	false	"prompt_key, provider, model, job_id or user_id"
//	@Success		200			{object}	MetricsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Router			/api/metrics [get]
func (e *MetricsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.LLMCallStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusInternalServerError, "LLM call store not available")
		return
	}

	q := r.URL.Query()
	filter, err := parseCallFilter(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	calls := store.List(filter)
	resp := MetricsResponse{Overall: metrics.Compute(calls)}
	if v := q.Get("group_by"); v != "" {
		g := metrics.Group(v)
		if !g.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid group_by %q", v))
			return
		}
		resp.GroupBy = v
		resp.Groups = metrics.GroupBy(calls, g)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *MetricsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var userID, jobID, promptKey, provider, groupBy string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show LLM cost and latency statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			for k, v := range map[string]string{
				"user_id":    userID,
				"job_id":     jobID,
				"prompt_key": promptKey,
				"provider":   provider,
				"group_by":   groupBy,
			} {
				if v != "" {
					params.Set(k, v)
				}
			}
			path := "/api/metrics"
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			client := api.NewClient(getServerURL())
			var resp MetricsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Filter by user ID")
	cmd.Flags().StringVar(&jobID, "job-id", "", "Filter by job ID")
	cmd.Flags().StringVar(&promptKey, "prompt-key", "", "Filter by prompt key")
	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider")
	cmd.Flags().StringVar(&groupBy, "group-by", "", "Group by prompt_key, provider, model, job_id or user_id")
	return cmd
}
