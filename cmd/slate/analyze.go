package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/slate/internal/analysis"
	"github.com/jackzampolin/slate/internal/api"
	"github.com/jackzampolin/slate/internal/gateway"
	"github.com/jackzampolin/slate/internal/jobs"
	"github.com/jackzampolin/slate/internal/providers"
	"github.com/jackzampolin/slate/internal/report"
)

var (
	analyzeMode         string
	analyzeLanguage     string
	analyzeModel        string
	analyzeProtagonists int
	analyzeOut          string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a script locally and write the Excel report",
	Long: `Parse and analyze a script without a server.

The configured LLM provider is called directly and the job is kept in
memory. The report is written to --out (default: <script>_analysis.xlsx).

Examples:
  slate analyze pilot.fountain
  slate analyze tatort.pdf --mode tatort --language DE
  slate analyze feature.fdx --mode story --model gpt-4o --out feature.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		logger, err := newLogger(os.Stderr, cfg.LogLevel)
		if err != nil {
			return err
		}

		mode, err := gateway.ParseMode(analyzeMode)
		if err != nil {
			return err
		}
		language := strings.ToUpper(analyzeLanguage)
		if language != "" && language != gateway.LangDE && language != gateway.LangEN {
			return fmt.Errorf("unsupported language %q (want DE or EN)", analyzeLanguage)
		}
		if analyzeProtagonists < 1 || analyzeProtagonists > 5 {
			return fmt.Errorf("--protagonists must be between 1 and 5")
		}
		model := analyzeModel
		if model == "" {
			model = cfg.LLM.DefaultModel
		}

		doc, err := parseFile(ctx, args[0], cfg.Analysis.LanguageTie, logger)
		if err != nil {
			return err
		}

		registry := providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig())
		registry.SetLogger(logger)
		gw, err := gateway.New(gateway.Config{
			Clients: registry,
			Retry:   cfg.RetryPolicy(),
			Logger:  logger,
		})
		if err != nil {
			return err
		}

		store := jobs.NewMemoryStore()
		defer store.Close()
		orch, err := analysis.New(analysis.Config{
			Store:    store,
			Analyzer: gw,
			Settings: cfg.AnalysisSettings,
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		job := jobs.New(doc)
		if err := store.Put(ctx, job); err != nil {
			return err
		}
		estimate := analysis.EstimateJob(len(doc.Scenes), mode, model, cfg.AnalysisSettings().Sampler, cfg.CostConfig())
		fmt.Fprintf(os.Stderr, "%s: %d scenes, analyzing %d with %s (estimated cost EUR %.3f)\n",
			doc.Filename, estimate.TotalScenes, estimate.AnalyzedScenes, model, estimate.EstimatedCost)

		runner := jobs.NewRunner(ctx, jobs.RunnerConfig{
			Store:     store,
			Processor: orch,
			Logger:    logger,
		})
		err = runner.Submit(ctx, job.ID, func(j *jobs.Job) {
			j.Mode = mode
			j.Language = language
			j.Model = model
			j.ProtagonistCount = analyzeProtagonists
			j.EstimatedCost = estimate.EstimatedCost
		})
		if err != nil {
			return err
		}
		followProgress(ctx, store, job.ID, runner)
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("analysis interrupted: %w", err)
		}

		done, err := store.Get(context.WithoutCancel(ctx), job.ID)
		if err != nil {
			return err
		}
		if done.Status != jobs.StatusCompleted {
			return fmt.Errorf("analysis failed: %s", done.Error)
		}

		data, err := report.Render(done)
		if err != nil {
			return err
		}
		out := analyzeOut
		if out == "" {
			out = report.Filename(done)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		if !wantTable(os.Stdout) {
			return api.Output(done.Results)
		}
		printResults(done)
		fmt.Printf("Report written to %s\n", out)
		return nil
	},
}

// followProgress prints progress to stderr until the runner finishes.
func followProgress(ctx context.Context, store jobs.Store, id string, runner *jobs.Runner) {
	finished := make(chan struct{})
	go func() {
		runner.Wait()
		close(finished)
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	last := -1
	for {
		select {
		case <-finished:
			return
		case <-ticker.C:
			job, err := store.Get(ctx, id)
			if err != nil || job.Progress == last {
				continue
			}
			last = job.Progress
			fmt.Fprintf(os.Stderr, "  %3d%%  scene %d/%d\n", job.Progress, job.CurrentScene, job.TotalScenes)
		}
	}
}

func printResults(job *jobs.Job) {
	rows := make([][]string, 0, len(job.Results))
	for _, r := range job.Results {
		act := ""
		if r.Narrative != nil {
			act = r.Narrative.Act
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Number),
			r.Location,
			r.StoryEvent,
			r.TurningPoint,
			r.ProtagonistMood,
			act,
		})
	}
	fmt.Println(renderTable(
		[]string{"#", "Location", "Story Event", "Turning Point", "Mood", "Act"},
		rows,
		[]columnAlignment{alignRight},
	))
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "standard", "Analysis mode: standard, tatort, story or combined")
	analyzeCmd.Flags().StringVar(&analyzeLanguage, "language", "", "Prompt language DE or EN (default: detected)")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "Model alias (default: llm.default_model)")
	analyzeCmd.Flags().IntVar(&analyzeProtagonists, "protagonists", 1, "Number of protagonists (1-5)")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "Report file (default: <script>_analysis.xlsx)")

	rootCmd.AddCommand(analyzeCmd)
}
