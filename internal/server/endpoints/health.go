package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookboost/internal/api"
	"github.com/jackzampolin/bookboost/internal/defra"
	"github.com/jackzampolin/bookboost/internal/events"
	"github.com/jackzampolin/bookboost/internal/jobs"
	"github.com/jackzampolin/bookboost/internal/objstore"
	"github.com/jackzampolin/bookboost/internal/pipeline"
	"github.com/jackzampolin/bookboost/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
	Defra  string `json:"defra,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Server health
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Server readiness
//	@Description	Ready once the job store and pipeline are up, and DefraDB answers when it backs the store
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.ServicesFrom(r.Context())
	if svc == nil || svc.Store == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Store: "not_initialized"})
		return
	}

	resp := HealthResponse{Status: "ok", Store: "ok"}
	if svc.DefraClient != nil {
		resp.Defra = "ok"
		if err := svc.DefraClient.HealthCheck(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Defra = "unhealthy"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			fmt.Printf("Store:  %s\n", resp.Store)
			if resp.Defra != "" {
				fmt.Printf("Defra:  %s\n", resp.Defra)
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server     string         `json:"server"`
	Store      string         `json:"store"`
	Conversion string         `json:"conversion"`
	Providers  []string       `json:"providers"`
	Bus        events.Stats   `json:"bus"`
	Jobs       map[string]int `json:"jobs"`   // by status
	Stages     map[string]int `json:"stages"` // jobs in or waiting for each stage
	Defra      *DefraStatus   `json:"defra,omitempty"`
}

// DefraStatus shows DefraDB container and health status.
type DefraStatus struct {
	Container string `json:"container"`
	Health    string `json:"health"`
	URL       string `json:"url"`
}

// statusJobLimit bounds the jobs counted by /status.
const statusJobLimit = 10000

// StatusEndpoint handles GET /status.
type StatusEndpoint struct {
	// DefraManager returns the container manager, nil unless the defra
	// backend is running.
	DefraManager func() *defra.DockerManager
}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Detailed server status
//	@Description	Providers, event bus load and job counts by status and stage
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.ServicesFrom(r.Context())
	cfg := svc.Config.Get()

	resp := StatusResponse{
		Server:     "running",
		Store:      cfg.Store.Backend,
		Conversion: cfg.Conversion.Mode,
		Jobs:       make(map[string]int),
		Stages:     make(map[string]int),
	}
	if svc.Registry != nil {
		resp.Providers = svc.Registry.ListLLM()
	}
	if svc.Bus != nil {
		resp.Bus = svc.Bus.Stats()
	}

	list, err := svc.Store.ListJobs(r.Context(), jobs.ListFilter{Limit: statusJobLimit})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, job := range list {
		resp.Jobs[string(job.Status)]++
		if st, ok := pipeline.StageOf(job.Status); ok {
			resp.Stages[st.Name]++
		}
	}

	var manager *defra.DockerManager
	if e.DefraManager != nil {
		manager = e.DefraManager()
	}
	if manager != nil {
		ds := &DefraStatus{URL: manager.URL()}
		if status, err := manager.Status(r.Context()); err != nil {
			ds.Container = "error"
		} else {
			ds.Container = string(status)
		}
		ds.Health = "healthy"
		if svc.DefraClient == nil || svc.DefraClient.HealthCheck(r.Context()) != nil {
			ds.Health = "unhealthy"
		}
		resp.Defra = ds
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeStoreError maps store and pipeline errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrNotFound), errors.Is(err, objstore.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, jobs.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
