package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/bookboost/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running BookBoost server via HTTP.

These commands require a running server (bookboost serve).
Use --server to specify a custom server URL.

Examples:
  bookboost api health                             # Check server health
  bookboost api jobs upload book.docx --user u1    # Upload and submit a manuscript
  bookboost api jobs list --user u1                # List a user's jobs
  bookboost api jobs chapters <user-id> <job-id>   # Fetch extracted chapters`,
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	apiCmd.AddCommand(endpoints.Commands(getServerURL)...)
	rootCmd.AddCommand(apiCmd)
}
