package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jackzampolin/bookboost/internal/config"
	"github.com/jackzampolin/bookboost/internal/defra"
	"github.com/jackzampolin/bookboost/internal/home"
	"github.com/jackzampolin/bookboost/internal/providers"
	"github.com/jackzampolin/bookboost/internal/server/endpoints"
	"github.com/jackzampolin/bookboost/internal/testutil"
)

// TestServer_DefraBackend runs a job through the pipeline with jobs and
// LLM call history stored in a DefraDB container.
func TestServer_DefraBackend(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	_ = testutil.DockerClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	httpPort, err := testutil.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	defraPort, err := testutil.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	containerName := testutil.UniqueContainerName(t, "defra")

	mgr, err := config.NewManager(testutil.WriteConfig(t, fmt.Sprintf(`
store:
  backend: defra
defaults:
  llm_provider: mock
defra:
  container_name: %s
  port: "%s"
`, containerName, defraPort)))
	if err != nil {
		t.Fatal(err)
	}
	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	srv, err := New(Config{
		Port:          httpPort,
		ConfigManager: mgr,
		Home:          h,
		LLMClients:    map[string]providers.LLMClient{providers.MockClientName: mockLLM()},
		DefraLabels:   testutil.ContainerLabels(t),
		Logger:        discardLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- srv.Start(serverCtx) }()

	baseURL := "http://" + srv.Addr()
	if err := testutil.WaitForReady(ctx, baseURL, 2*time.Minute); err != nil {
		serverCancel()
		t.Fatalf("server did not start: %v", err)
	}

	var ready endpoints.HealthResponse
	if code := doJSON(t, "GET", baseURL+"/ready", nil, &ready); code != http.StatusOK || ready.Defra != "ok" {
		t.Errorf("ready = %d %+v", code, ready)
	}

	var job struct {
		ID string `json:"id"`
	}
	code := doJSON(t, "POST", baseURL+"/api/jobs", endpoints.SubmitJobRequest{
		UserID: "u1",
		Text:   manuscript,
	}, &job)
	if code != http.StatusCreated {
		serverCancel()
		t.Fatalf("submit = %d", code)
	}
	final := testutil.WaitForJobStatus(t, baseURL, "u1", job.ID, "COMPLETED", time.Minute)
	if final.Status != "COMPLETED" {
		t.Errorf("job = %+v", final)
	}

	var status endpoints.StatusResponse
	doJSON(t, "GET", baseURL+"/status", nil, &status)
	if status.Defra == nil || status.Defra.Health != "healthy" {
		t.Errorf("defra status = %+v", status.Defra)
	}

	serverCancel()
	if err := testutil.WaitForShutdown(done, 30*time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	docker, err := defra.NewDockerManager(defra.DockerConfig{ContainerName: containerName})
	if err != nil {
		t.Fatal(err)
	}
	defer docker.Close()
	st, err := docker.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st == defra.StatusRunning {
		t.Error("DefraDB still running after shutdown")
	}
}
