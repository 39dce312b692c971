package endpoints

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookboost/internal/api"
	"github.com/jackzampolin/bookboost/internal/defra"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// DefraManager returns the running container manager, if any.
	DefraManager    func() *defra.DockerManager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{DefraManager: cfg.DefraManager},

		// Job endpoints
		&SubmitJobEndpoint{},
		&UploadJobEndpoint{},
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
		&ListPartsEndpoint{},
		&GetChaptersEndpoint{},
		&RetryJobEndpoint{},

		// Conversion service callback
		&ConversionWebhookEndpoint{},

		&GetObjectEndpoint{},

		// LLM call history endpoints
		&ListLLMCallsEndpoint{},
		&GetLLMCallEndpoint{},
		&MetricsEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}

// Group is a CLI subcommand collecting related endpoints.
type Group struct {
	Use       string
	Short     string
	Endpoints []api.Endpoint
}

// TopLevel returns endpoints whose commands sit directly under "api".
func TopLevel() []api.Endpoint {
	return []api.Endpoint{
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},
		&GetObjectEndpoint{},
		&MetricsEndpoint{},
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},
	}
}

// Groups returns the grouped API commands.
func Groups() []Group {
	return []Group{
		{
			Use:   "jobs",
			Short: "Job commands",
			Endpoints: []api.Endpoint{
				&SubmitJobEndpoint{},
				&UploadJobEndpoint{},
				&ListJobsEndpoint{},
				&GetJobEndpoint{},
				&ListPartsEndpoint{},
				&GetChaptersEndpoint{},
				&RetryJobEndpoint{},
				&ConversionWebhookEndpoint{},
			},
		},
		{
			Use:       "llmcalls",
			Short:     "LLM call history commands",
			Endpoints: []api.Endpoint{&ListLLMCallsEndpoint{}, &GetLLMCallEndpoint{}},
		},
		{
			Use:       "prompts",
			Short:     "Prompt commands",
			Endpoints: []api.Endpoint{&ListPromptsEndpoint{}, &GetPromptEndpoint{}},
		},
	}
}

// Commands builds the "api" subcommands for the top-level endpoints and
// groups.
func Commands(getServerURL func() string) []*cobra.Command {
	var cmds []*cobra.Command
	for _, ep := range TopLevel() {
		cmds = append(cmds, ep.Command(getServerURL))
	}
	for _, g := range Groups() {
		group := &cobra.Command{Use: g.Use, Short: g.Short}
		for _, ep := range g.Endpoints {
			group.AddCommand(ep.Command(getServerURL))
		}
		cmds = append(cmds, group)
	}
	return cmds
}
