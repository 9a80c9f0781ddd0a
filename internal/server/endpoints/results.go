package endpoints

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/slate/internal/api"
	"github.com/jackzampolin/slate/internal/jobs"
	"github.com/jackzampolin/slate/internal/report"
	"github.com/jackzampolin/slate/internal/svcctx"
)

// JobStatusEndpoint handles GET /api/v1/status/{id}.
type JobStatusEndpoint struct{}

func (e *JobStatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/status/{id}", e.handler
}

func (e *JobStatusEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get job progress
//	@Tags			analysis
//	@Produce		json
//	@Param			id	path		string	true	"Job ID"
//	@Success		200	{object}	jobs.Snapshot
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/v1/status/{id} [get]
func (e *JobStatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, ok := loadJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (e *JobStatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <job-id>",
		Short: "Get the progress of an analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp jobs.Snapshot
			if err := client.Get(cmd.Context(), "/api/v1/status/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ResultsResponse is the completed result set of a job.
type ResultsResponse struct {
	JobID         string                `json:"job_id"`
	Filename      string                `json:"filename"`
	Mode          string                `json:"mode"`
	Language      string                `json:"language"`
	Model         string                `json:"model"`
	TotalScenes   int                   `json:"total_scenes"`
	EstimatedCost float64               `json:"estimated_cost"`
	Results       []jobs.Result         `json:"results"`
	Thematic      []jobs.ThematicAnswer `json:"thematic,omitempty"`
}

// ResultsEndpoint handles GET /api/v1/results/{id}.
type ResultsEndpoint struct{}

func (e *ResultsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/results/{id}", e.handler
}

func (e *ResultsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get analysis results
//	@Tags			analysis
//	@Produce		json
//	@Param			id	path		string	true	"Job ID"
//	@Success		200	{object}	ResultsResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/v1/results/{id} [get]
func (e *ResultsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, ok := loadCompleted(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ResultsResponse{
		JobID:         job.ID,
		Filename:      job.Filename,
		Mode:          string(job.Mode),
		Language:      job.Language,
		Model:         job.Model,
		TotalScenes:   len(job.Scenes),
		EstimatedCost: job.EstimatedCost,
		Results:       job.Results,
		Thematic:      job.Thematic,
	})
}

func (e *ResultsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "results <job-id>",
		Short: "Get the results of a completed analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ResultsResponse
			if err := client.Get(cmd.Context(), "/api/v1/results/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DownloadEndpoint handles GET /api/v1/download/{id}.
type DownloadEndpoint struct{}

func (e *DownloadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/download/{id}", e.handler
}

func (e *DownloadEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Download the report
//	@Description	Render the analysis of a completed job as an XLSX workbook
//	@Tags			analysis
//	@Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Param			id	path	string	true	"Job ID"
//	@Success		200	{file}	binary
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/v1/download/{id} [get]
func (e *DownloadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, ok := loadCompleted(w, r)
	if !ok {
		return
	}

	data, err := report.Render(job)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render report: %v", err))
		return
	}
	name := report.Filename(job)

	// Keep a copy next to the job database; the response does not depend on it.
	if h := svcctx.HomeFrom(r.Context()); h != nil {
		if err := os.WriteFile(h.ReportPath(name), data, 0o644); err != nil {
			svcctx.LoggerFrom(r.Context()).Warn("failed to save report copy", "job_id", job.ID, "error", err)
		}
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (e *DownloadEndpoint) Command(getServerURL func() string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "download <job-id>",
		Short: "Download the XLSX report of a completed analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = args[0] + "_analysis.xlsx"
			}
			f, err := os.Create(filepath.Clean(out))
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()

			client := api.NewClient(getServerURL())
			if err := client.Download(cmd.Context(), "/api/v1/download/"+args[0], f); err != nil {
				os.Remove(out)
				return err
			}
			fmt.Printf("Report written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: <job-id>_analysis.xlsx)")
	return cmd
}

// loadCompleted loads the {id} job and rejects it with 400 unless the
// analysis has completed.
func loadCompleted(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	job, ok := loadJob(w, r)
	if !ok {
		return nil, false
	}
	if job.Status != jobs.StatusCompleted {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "analysis not completed",
			Message: fmt.Sprintf("job status is %s", job.Status),
		})
		return nil, false
	}
	return job, true
}
