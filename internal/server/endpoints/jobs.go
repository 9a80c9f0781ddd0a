package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/slate/internal/api"
	"github.com/jackzampolin/slate/internal/jobs"
	"github.com/jackzampolin/slate/internal/parser"
	"github.com/jackzampolin/slate/internal/svcctx"
)

// JobSummary is the list view of a job.
type JobSummary struct {
	JobID       string      `json:"job_id"`
	Status      jobs.Status `json:"status"`
	Filename    string      `json:"filename"`
	Format      string      `json:"format"`
	ScenesCount int         `json:"scenes_count"`
	Mode        string      `json:"mode,omitempty"`
	Progress    int         `json:"progress"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ListJobsResponse is the response for GET /api/v1/jobs.
type ListJobsResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// ListJobsEndpoint handles GET /api/v1/jobs.
type ListJobsEndpoint struct{}

func (e *ListJobsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/jobs", e.handler
}

func (e *ListJobsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List jobs
//	@Tags			jobs
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"
//	@Param			limit	query		int		false	"Maximum number of jobs"
//	@Success		200		{object}	ListJobsResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/v1/jobs [get]
func (e *ListJobsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	filter := jobs.ListFilter{Status: jobs.Status(r.URL.Query().Get("status"))}
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	list, err := svcctx.StoreFrom(r.Context()).List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := ListJobsResponse{Jobs: make([]JobSummary, 0, len(list))}
	for _, j := range list {
		resp.Jobs = append(resp.Jobs, JobSummary{
			JobID:       j.ID,
			Status:      j.Status,
			Filename:    j.Filename,
			Format:      string(j.Format),
			ScenesCount: len(j.Scenes),
			Mode:        string(j.Mode),
			Progress:    j.Progress,
			CreatedAt:   j.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListJobsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/v1/jobs"
			if status != "" {
				path += "?status=" + status
			}
			var resp ListJobsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "JOB ID\tSTATUS\tSCENES\tPROGRESS\tFILE")
			for _, j := range resp.Jobs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d%%\t%s\n", j.JobID, j.Status, j.ScenesCount, j.Progress, j.Filename)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	return cmd
}

// ScenesResponse is the response for GET /api/v1/jobs/{id}/scenes.
type ScenesResponse struct {
	JobID    string         `json:"job_id"`
	Filename string         `json:"filename"`
	Format   string         `json:"format"`
	Language string         `json:"language"`
	Scenes   []parser.Scene `json:"scenes"`
}

// ScenesEndpoint handles GET /api/v1/jobs/{id}/scenes.
type ScenesEndpoint struct{}

func (e *ScenesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/jobs/{id}/scenes", e.handler
}

func (e *ScenesEndpoint) RequiresInit() bool { return true }

func (e *ScenesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, ok := loadJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ScenesResponse{
		JobID:    job.ID,
		Filename: job.Filename,
		Format:   string(job.Format),
		Language: job.DetectedLanguage,
		Scenes:   job.Scenes,
	})
}

func (e *ScenesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "scenes <job-id>",
		Short: "Show the segmented scenes of an uploaded script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ScenesResponse
			if err := client.Get(cmd.Context(), "/api/v1/jobs/"+args[0]+"/scenes", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteJobEndpoint handles DELETE /api/v1/jobs/{id}.
type DeleteJobEndpoint struct{}

func (e *DeleteJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/v1/jobs/{id}", e.handler
}

func (e *DeleteJobEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete a job
//	@Tags			jobs
//	@Param			id	path	string	true	"Job ID"
//	@Success		204	"No Content"
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/v1/jobs/{id} [delete]
func (e *DeleteJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return
	}

	if runner := svcctx.RunnerFrom(r.Context()); runner != nil && runner.IsActive(id) {
		writeError(w, http.StatusConflict, "job is running")
		return
	}

	if err := svcctx.StoreFrom(r.Context()).Delete(r.Context(), id); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a job by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/v1/jobs/"+args[0]); err != nil {
				return err
			}
			fmt.Println("Job deleted successfully")
			return nil
		},
	}
}

// loadJob reads the {id} path job, writing 404 or 500 on failure.
func loadJob(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return nil, false
	}
	job, err := svcctx.StoreFrom(r.Context()).Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return job, true
}
