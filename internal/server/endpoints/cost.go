package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/slate/internal/analysis"
	"github.com/jackzampolin/slate/internal/api"
	"github.com/jackzampolin/slate/internal/gateway"
	"github.com/jackzampolin/slate/internal/svcctx"
)

// CostRequest asks for the price of analyzing a number of scenes.
type CostRequest struct {
	Scenes int    `json:"scenes"`
	Model  string `json:"model,omitempty"`
	Mode   string `json:"mode,omitempty"`
}

// CostEndpoint handles POST /api/v1/cost.
type CostEndpoint struct{}

func (e *CostEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/cost", e.handler
}

func (e *CostEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Estimate analysis cost
//	@Tags			analysis
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CostRequest	true	"Scene count, model and mode"
//	@Success		200		{object}	analysis.Estimate
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/v1/cost [post]
func (e *CostEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Scenes < 0 {
		writeError(w, http.StatusBadRequest, "scenes must not be negative")
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

	cfg := svcctx.ConfigFrom(r.Context())
	model := req.Model
	if model == "" {
		model = cfg.LLM.DefaultModel
	}
	writeJSON(w, http.StatusOK, analysis.EstimateJob(req.Scenes, mode, model, cfg.AnalysisSettings().Sampler, cfg.CostConfig()))
}

func (e *CostEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req CostRequest
	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Estimate the cost of an analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp analysis.Estimate
			if err := client.Post(cmd.Context(), "/api/v1/cost", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&req.Scenes, "scenes", 0, "Number of scenes")
	cmd.Flags().StringVar(&req.Model, "model", "", "Model alias")
	cmd.Flags().StringVar(&req.Mode, "mode", "standard", "Analysis mode")
	return cmd
}

// ModelsResponse lists the selectable models.
type ModelsResponse struct {
	Default string          `json:"default"`
	Models  []gateway.Model `json:"models"`
}

// ModelsEndpoint handles GET /api/v1/models.
type ModelsEndpoint struct{}

func (e *ModelsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/models", e.handler
}

func (e *ModelsEndpoint) RequiresInit() bool { return false }

func (e *ModelsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModelsResponse{
		Default: svcctx.ConfigFrom(r.Context()).LLM.DefaultModel,
		Models:  gateway.Models(),
	})
}

func (e *ModelsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List model aliases and their prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ModelsResponse
			if err := client.Get(cmd.Context(), "/api/v1/models", &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ALIAS\tMODEL\tINPUT $/M\tOUTPUT $/M")
			for _, m := range resp.Models {
				alias := m.Alias
				if alias == resp.Default {
					alias += " *"
				}
				fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\n", alias, m.ID, m.InputPerM, m.OutputPerM)
			}
			return tw.Flush()
		},
	}
}
