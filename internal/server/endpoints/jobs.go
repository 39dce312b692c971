package endpoints

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookboost/internal/api"
	"github.com/jackzampolin/bookboost/internal/jobs"
	"github.com/jackzampolin/bookboost/internal/svcctx"
	"github.com/jackzampolin/bookboost/internal/types"
)

// ListJobsResponse is the response for listing jobs.
type ListJobsResponse struct {
	Jobs []*jobs.Job `json:"jobs"`
}

// ListJobsEndpoint handles GET /api/jobs.
type ListJobsEndpoint struct{}

func (e *ListJobsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs", e.handler
}

func (e *ListJobsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List jobs
//	@Description	List jobs newest first with optional filtering
//	@Tags			jobs
//	@Produce		json
//	@Param			user_id	query		string	false	"Filter by user"
//	@Param			status	query		string	false	"Filter by status"
//	@Param			limit	query		int		false	"Max results (default 100)"
//	@Success		200		{object}	ListJobsResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/jobs [get]
func (e *ListJobsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := jobs.ListFilter{
		UserID: q.Get("user_id"),
		Status: jobs.Status(q.Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status "+string(filter.Status))
		return
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	list, err := svcctx.StoreFrom(r.Context()).ListJobs(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []*jobs.Job{}
	}
	writeJSON(w, http.StatusOK, ListJobsResponse{Jobs: list})
}

func (e *ListJobsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var userID, status string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if userID != "" {
				params.Set("user_id", userID)
			}
			if status != "" {
				params.Set("status", status)
			}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			path := "/api/jobs"
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			client := api.NewClient(getServerURL())
			var resp ListJobsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Filter by user ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results")
	return cmd
}

// GetJobEndpoint handles GET /api/jobs/{user_id}/{id}.
type GetJobEndpoint struct{}

func (e *GetJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{user_id}/{id}", e.handler
}

func (e *GetJobEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get a job
//	@Tags		jobs
//	@Produce	json
//	@Param		user_id	path		string	true	"User ID"
//	@Param		id		path		string	true	"Job ID"
//	@Success	200		{object}	jobs.Job
//	@Failure	404		{object}	ErrorResponse
//	@Failure	500		{object}	ErrorResponse
//	@Router		/api/jobs/{user_id}/{id} [get]
func (e *GetJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, err := svcctx.StoreFrom(r.Context()).GetJob(r.Context(), r.PathValue("user_id"), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (e *GetJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <user-id> <job-id>",
		Short: "Get a job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var job jobs.Job
			if err := client.Get(cmd.Context(), jobPath(args[0], args[1]), &job); err != nil {
				return err
			}
			return api.Output(job)
		},
	}
}

// ListPartsResponse is the response for listing a job's parts.
type ListPartsResponse struct {
	JobID string       `json:"job_id"`
	Parts []*jobs.Part `json:"parts"`
	Total int          `json:"total"`
	Done  int          `json:"processed"`
}

// ListPartsEndpoint handles GET /api/jobs/{user_id}/{id}/parts.
type ListPartsEndpoint struct{}

func (e *ListPartsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{user_id}/{id}/parts", e.handler
}

func (e *ListPartsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List a job's parts
//	@Description	Chapter-sized units of work in chapter order
//	@Tags			jobs
//	@Produce		json
//	@Param			user_id	path		string	true	"User ID"
//	@Param			id		path		string	true	"Job ID"
//	@Success		200		{object}	ListPartsResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/jobs/{user_id}/{id}/parts [get]
func (e *ListPartsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.StoreFrom(r.Context())
	job, err := store.GetJob(r.Context(), r.PathValue("user_id"), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	parts, err := store.ListParts(r.Context(), job.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	resp := ListPartsResponse{JobID: job.ID, Parts: parts, Total: len(parts)}
	if resp.Parts == nil {
		resp.Parts = []*jobs.Part{}
	}
	for _, p := range parts {
		if p.Processed {
			resp.Done++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListPartsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "parts <user-id> <job-id>",
		Short: "List a job's parts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListPartsResponse
			if err := client.Get(cmd.Context(), jobPath(args[0], args[1])+"/parts", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ChaptersResponse is the stored chapters array of a job.
type ChaptersResponse struct {
	JobID    string          `json:"job_id"`
	Status   jobs.Status     `json:"status"`
	Chapters []types.Chapter `json:"chapters"`
}

// GetChaptersEndpoint handles GET /api/jobs/{user_id}/{id}/chapters.
type GetChaptersEndpoint struct{}

func (e *GetChaptersEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{user_id}/{id}/chapters", e.handler
}

func (e *GetChaptersEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a job's chapters
//	@Description	Segmented chapters once extracted, cleaned chapters once processed
//	@Tags			jobs
//	@Produce		json
//	@Param			user_id	path		string	true	"User ID"
//	@Param			id		path		string	true	"Job ID"
//	@Success		200		{object}	ChaptersResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/jobs/{user_id}/{id}/chapters [get]
func (e *GetChaptersEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, err := svcctx.StoreFrom(r.Context()).GetJob(r.Context(), r.PathValue("user_id"), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if job.ChaptersObject == nil {
		writeError(w, http.StatusNotFound, "chapters not extracted yet")
		return
	}

	var chapters []types.Chapter
	if err := svcctx.ObjectsFrom(r.Context()).GetJSON(r.Context(), job.ChaptersObject.Key, &chapters); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChaptersResponse{JobID: job.ID, Status: job.Status, Chapters: chapters})
}

func (e *GetChaptersEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "chapters <user-id> <job-id>",
		Short: "Get a job's chapters",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ChaptersResponse
			if err := client.Get(cmd.Context(), jobPath(args[0], args[1])+"/chapters", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// RetryJobEndpoint handles POST /api/jobs/{user_id}/{id}/retry.
type RetryJobEndpoint struct{}

func (e *RetryJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs/{user_id}/{id}/retry", e.handler
}

func (e *RetryJobEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Retry a failed job
//	@Description	Moves a FAILED job back to CREATED and restarts the pipeline
//	@Tags			jobs
//	@Produce		json
//	@Param			user_id	path		string	true	"User ID"
//	@Param			id		path		string	true	"Job ID"
//	@Success		202		{object}	jobs.Job
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse	"Job is not FAILED"
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/jobs/{user_id}/{id}/retry [post]
func (e *RetryJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, err := svcctx.MachineFrom(r.Context()).Retry(r.Context(), r.PathValue("user_id"), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (e *RetryJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <user-id> <job-id>",
		Short: "Retry a failed job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var job jobs.Job
			if err := client.Post(cmd.Context(), jobPath(args[0], args[1])+"/retry", nil, &job); err != nil {
				return err
			}
			return api.Output(job)
		},
	}
}

func jobPath(userID, jobID string) string {
	return "/api/jobs/" + url.PathEscape(userID) + "/" + url.PathEscape(jobID)
}
