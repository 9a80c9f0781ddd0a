package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/slate/internal/analysis"
	"github.com/jackzampolin/slate/internal/api"
	"github.com/jackzampolin/slate/internal/gateway"
	"github.com/jackzampolin/slate/internal/jobs"
	"github.com/jackzampolin/slate/internal/svcctx"
)

// MaxProtagonists bounds protagonist_count.
const MaxProtagonists = 5

// AnalyzeRequest starts an analysis of an uploaded script.
type AnalyzeRequest struct {
	JobID            string `json:"job_id"`
	Language         string `json:"language,omitempty"`
	Model            string `json:"model,omitempty"`
	Mode             string `json:"mode,omitempty"`
	ProtagonistCount int    `json:"protagonist_count,omitempty"`
}

// AnalyzeResponse is returned once the job is queued.
type AnalyzeResponse struct {
	JobID           string      `json:"job_id"`
	Status          jobs.Status `json:"status"`
	EstimatedCost   float64     `json:"estimated_cost"`
	ScenesToAnalyze int         `json:"scenes_to_analyze"`
}

// AnalyzeEndpoint handles POST /api/v1/analyze.
type AnalyzeEndpoint struct{}

var _ api.Endpoint = (*AnalyzeEndpoint)(nil)

func (e *AnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/analyze", e.handler
}

func (e *AnalyzeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start an analysis
//	@Description	Queue scene analysis for an uploaded script
//	@Tags			analysis
//	@Accept			json
//	@Produce		json
//	@Param			request	body		AnalyzeRequest	true	"Analysis options"
//	@Success		202		{object}	AnalyzeResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/v1/analyze [post]
func (e *AnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.JobID == "" {
		writeError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	mode := gateway.ModeStandard
	if req.Mode != "" {
		m, err := gateway.ParseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = m
	}

	language := strings.ToUpper(strings.TrimSpace(req.Language))
	if language != "" && language != gateway.LangDE && language != gateway.LangEN {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported language %q (want DE or EN)", req.Language))
		return
	}

	protagonists := req.ProtagonistCount
	if protagonists == 0 {
		protagonists = 1
	}
	if protagonists < 1 || protagonists > MaxProtagonists {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("protagonist_count must be between 1 and %d", MaxProtagonists))
		return
	}

	cfg := svcctx.ConfigFrom(ctx)
	model := req.Model
	if model == "" {
		model = cfg.LLM.DefaultModel
	}

	store := svcctx.StoreFrom(ctx)
	runner := svcctx.RunnerFrom(ctx)

	job, err := store.Get(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if language == "" {
		language = job.DetectedLanguage
	}

	estimate := analysis.EstimateJob(len(job.Scenes), mode, model, cfg.AnalysisSettings().Sampler, cfg.CostConfig())

	err = runner.Submit(ctx, job.ID, func(j *jobs.Job) {
		j.Mode = mode
		j.Language = language
		j.Model = model
		j.ProtagonistCount = protagonists
		j.EstimatedCost = estimate.EstimatedCost
	})
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, "job is already running")
		case errors.Is(err, jobs.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, AnalyzeResponse{
		JobID:           job.ID,
		Status:          jobs.StatusQueued,
		EstimatedCost:   estimate.EstimatedCost,
		ScenesToAnalyze: estimate.AnalyzedScenes,
	})
}

func (e *AnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req AnalyzeRequest
	cmd := &cobra.Command{
		Use:   "analyze <job-id>",
		Short: "Start analyzing an uploaded script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.JobID = args[0]
			client := api.NewClient(getServerURL())
			var resp AnalyzeResponse
			if err := client.Post(cmd.Context(), "/api/v1/analyze", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&req.Mode, "mode", "standard", "Analysis mode: standard, tatort, story or combined")
	cmd.Flags().StringVar(&req.Language, "language", "", "Prompt language DE or EN (default: detected)")
	cmd.Flags().StringVar(&req.Model, "model", "", "Model alias (default: configured model)")
	cmd.Flags().IntVar(&req.ProtagonistCount, "protagonists", 1, "Number of protagonists (1-5)")
	return cmd
}
