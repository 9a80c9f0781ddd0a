package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/slate/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Slate server via HTTP.

These commands require a running server (slate serve).
Use --server to specify a custom server URL.

Examples:
  slate api health                            # Check server health
  slate api upload script.fountain            # Upload and segment a script
  slate api analyze <job-id> --mode story     # Start an analysis
  slate api watch <job-id>                    # Follow progress until done
  slate api download <job-id> --out out.xlsx  # Fetch the report
  slate api jobs list                         # List all jobs`,
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Job management commands",
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

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Analysis workflow at top level of api
	apiCmd.AddCommand((&endpoints.UploadEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.AnalyzeEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.JobStatusEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StreamEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ResultsEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.DownloadEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.CostEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ModelsEndpoint{}).Command(getServerURL))

	// Jobs as subcommand group
	jobsCmd.AddCommand((&endpoints.ListJobsEndpoint{}).Command(getServerURL))
	jobsCmd.AddCommand((&endpoints.ScenesEndpoint{}).Command(getServerURL))
	jobsCmd.AddCommand((&endpoints.DeleteJobEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(apiCmd)
}
