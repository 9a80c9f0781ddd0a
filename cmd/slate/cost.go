package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/slate/internal/analysis"
	"github.com/jackzampolin/slate/internal/api"
	"github.com/jackzampolin/slate/internal/gateway"
)

var (
	costScenes int
	costModel  string
	costMode   string
)

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Estimate the cost of analyzing a script",
	Long: `Estimate the EUR cost of an analysis from the scene count.

Sampling applies to standard and tatort modes, so long scripts are
priced for the scenes that would actually be analyzed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if costScenes < 0 {
			return fmt.Errorf("--scenes must not be negative")
		}
		mode, err := gateway.ParseMode(costMode)
		if err != nil {
			return err
		}
		_, mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		model := costModel
		if model == "" {
			model = cfg.LLM.DefaultModel
		}
		if _, known := gateway.LookupModel(model); !known {
			fmt.Fprintf(os.Stderr, "unknown model %q, pricing as %s\n", model, gateway.DefaultModel)
		}
		return api.Output(analysis.EstimateJob(costScenes, mode, model, cfg.AnalysisSettings().Sampler, cfg.CostConfig()))
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List model aliases and their prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		models := gateway.Models()
		if !wantTable(os.Stdout) {
			return api.Output(models)
		}
		rows := make([][]string, 0, len(models))
		for _, m := range models {
			rows = append(rows, []string{
				m.Alias,
				m.ID,
				fmt.Sprintf("%.3f", m.InputPerM),
				fmt.Sprintf("%.3f", m.OutputPerM),
				m.Description,
			})
		}
		fmt.Println(renderTable(
			[]string{"Alias", "Model", "Input $/M", "Output $/M", "Notes"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
		return nil
	},
}

func init() {
	costCmd.Flags().IntVar(&costScenes, "scenes", 0, "Number of scenes")
	costCmd.Flags().StringVar(&costModel, "model", "", "Model alias (default: llm.default_model)")
	costCmd.Flags().StringVar(&costMode, "mode", "standard", "Analysis mode")
	costCmd.MarkFlagRequired("scenes")

	rootCmd.AddCommand(costCmd)
	rootCmd.AddCommand(modelsCmd)
}
