// Package analysis runs a job's scenes through the AI gateway and assembles
// the per-scene results, the story structure pass and the thematic answers.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/slate/internal/gateway"
	"github.com/jackzampolin/slate/internal/jobs"
)

// Analyzer is the part of the gateway the orchestrator calls.
type Analyzer interface {
	AnalyzeScene(ctx context.Context, text string, mode gateway.Mode, language, model string) (*gateway.SceneAnalysis, error)
	Complete(ctx context.Context, prompt, model string, maxTokens int) (string, error)
}

// readiness is implemented by analyzers that can report a missing provider
// before any scene is attempted.
type readiness interface {
	Ready() error
}

// Settings are the tunables read at the start of every run.
type Settings struct {
	Sampler      Sampler
	LanguageTie  string
	StoryPass    bool
	ThematicPass bool
}

// DefaultSettings samples at 15/5 with both story passes enabled.
func DefaultSettings() Settings {
	return Settings{
		Sampler:      DefaultSampler(),
		LanguageTie:  gateway.LangEN,
		StoryPass:    true,
		ThematicPass: true,
	}
}

// Config configures an Orchestrator.
type Config struct {
	Store    jobs.Store
	Analyzer Analyzer

	// Settings is called once per run; nil uses DefaultSettings.
	Settings func() Settings

	Logger *slog.Logger
}

// Orchestrator analyzes one job at a time. It implements jobs.Processor.
type Orchestrator struct {
	store    jobs.Store
	analyzer Analyzer
	settings func() Settings
	logger   *slog.Logger
}

var _ jobs.Processor = (*Orchestrator)(nil)

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("analysis requires a job store")
	}
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("analysis requires an analyzer")
	}
	settings := cfg.Settings
	if settings == nil {
		settings = DefaultSettings
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:    cfg.Store,
		analyzer: cfg.Analyzer,
		settings: settings,
		logger:   logger,
	}, nil
}

// Run analyzes the job's scenes sequentially, saving progress after each
// one. A failing scene becomes an error record and the run continues;
// failures outside a scene put the job in the error state.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	job, err := o.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	settings := o.settings()
	logger := o.logger.With("job_id", job.ID, "mode", job.Mode)

	job.Status = jobs.StatusProcessing
	if err := o.store.Put(ctx, job); err != nil {
		return err
	}

	if r, ok := o.analyzer.(readiness); ok {
		if err := r.Ready(); err != nil {
			return o.fail(job, fmt.Errorf("ai provider unavailable: %w", err))
		}
	}

	mode := job.Mode
	if mode == "" {
		mode = gateway.ModeStandard
	}
	language := job.Language
	if language == "" {
		language = job.DetectedLanguage
	}
	if language == "" {
		language = settings.LanguageTie
	}

	plan := settings.Sampler.Plan(len(job.Scenes), mode)
	selected := make(map[int]bool, len(plan))
	for _, idx := range plan {
		selected[idx] = true
	}
	if len(plan) < len(job.Scenes) {
		logger.Info("sampling scenes", "selected", len(plan), "total", len(job.Scenes))
	}

	n := len(plan)
	job.Status = jobs.StatusAnalyzing
	job.TotalScenes = n
	job.CurrentScene = 0
	job.Results = make([]Result, 0, len(job.Scenes))
	if err := o.store.Put(ctx, job); err != nil {
		return o.fail(job, err)
	}

	failed := 0
	for k, idx := range plan {
		scene := job.Scenes[idx]
		job.CurrentScene = k + 1
		job.Progress = (k + 1) * 100 / n
		if err := o.store.Put(ctx, job); err != nil {
			return o.fail(job, err)
		}

		analysis, err := o.analyzer.AnalyzeScene(ctx, scene.Text, mode, language, job.Model)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			failed++
			logger.Warn("scene analysis failed", "scene", scene.Number, "error", err)
			job.Results = append(job.Results, failedResult(scene, err))
			continue
		}
		job.Results = append(job.Results, Merge(scene, analysis))
	}

	for idx, scene := range job.Scenes {
		if !selected[idx] {
			job.Results = append(job.Results, sampledResult(scene))
		}
	}
	sortResults(job.Results)

	if mode.HasNarrative() {
		if settings.StoryPass {
			o.storyPass(ctx, job, language, logger)
		}
		if settings.ThematicPass {
			o.thematicPass(ctx, job, language, logger)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	job.Status = jobs.StatusCompleted
	job.Progress = 100
	job.Error = ""
	if err := o.store.Put(ctx, job); err != nil {
		return o.fail(job, err)
	}
	logger.Info("analysis completed", "scenes", n, "failed", failed)
	return nil
}

// fail records err on the job. It writes with a fresh context so a
// cancelled request does not lose the error.
func (o *Orchestrator) fail(job *jobs.Job, err error) error {
	job.Fail(err.Error())
	if putErr := o.store.Put(context.Background(), job); putErr != nil {
		return errors.Join(err, putErr)
	}
	return err
}
