package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrAlreadyRunning is returned when a job is submitted while it runs.
var ErrAlreadyRunning = errors.New("job is already running")

// Processor executes one job to completion, recording progress in the Store.
type Processor interface {
	Run(ctx context.Context, jobID string) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, jobID string) error

// Run calls f.
func (f ProcessorFunc) Run(ctx context.Context, jobID string) error {
	return f(ctx, jobID)
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Store     Store
	Processor Processor
	Logger    *slog.Logger
}

// Runner runs each submitted job in its own goroutine. There is no limit
// across jobs; work inside a job is up to the Processor.
type Runner struct {
	store     Store
	processor Processor
	logger    *slog.Logger

	// ctx is cancelled at shutdown; running jobs observe it.
	ctx context.Context

	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup
}

// NewRunner creates a runner whose jobs stop when ctx is cancelled.
func NewRunner(ctx context.Context, cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:     cfg.Store,
		processor: cfg.Processor,
		logger:    logger,
		ctx:       ctx,
		active:    make(map[string]struct{}),
	}
}

// Submit marks the job queued and starts it in the background. configure,
// if non-nil, is applied to the job before it is stored as queued.
func (r *Runner) Submit(ctx context.Context, id string, configure func(*Job)) error {
	r.mu.Lock()
	if _, running := r.active[id]; running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.active[id] = struct{}{}
	r.mu.Unlock()

	if err := r.enqueue(ctx, id, configure); err != nil {
		r.mu.Lock()
		delete(r.active, id)
		r.mu.Unlock()
		return err
	}

	r.wg.Add(1)
	go r.run(id)
	return nil
}

func (r *Runner) enqueue(ctx context.Context, id string, configure func(*Job)) error {
	job, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if configure != nil {
		configure(job)
	}
	job.Status = StatusQueued
	job.Progress = 0
	job.CurrentScene = 0
	job.Error = ""
	job.Results = nil
	job.Thematic = nil
	if err := r.store.Put(ctx, job); err != nil {
		return fmt.Errorf("failed to queue job: %w", err)
	}
	r.logger.Info("job queued", "job_id", id, "mode", job.Mode, "model", job.Model)
	return nil
}

func (r *Runner) run(id string) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.active, id)
		r.mu.Unlock()
	}()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("job panicked", "job_id", id, "panic", p)
			r.fail(id, fmt.Sprintf("internal error: %v", p))
		}
	}()

	if err := r.processor.Run(r.ctx, id); err != nil {
		if r.ctx.Err() != nil {
			// Shutting down: leave the job as stored.
			r.logger.Warn("job interrupted by shutdown", "job_id", id)
			return
		}
		r.logger.Error("job failed", "job_id", id, "error", err)
		r.fail(id, err.Error())
	}
}

// fail records msg on the job unless it already reached a terminal state.
func (r *Runner) fail(id, msg string) {
	ctx := context.WithoutCancel(r.ctx)
	job, err := r.store.Get(ctx, id)
	if err != nil {
		r.logger.Error("failed to load job for error update", "job_id", id, "error", err)
		return
	}
	if job.Status == StatusError {
		return
	}
	job.Fail(msg)
	if err := r.store.Put(ctx, job); err != nil {
		r.logger.Error("failed to store job error", "job_id", id, "error", err)
	}
}

// Active returns the ids of running jobs, sorted.
func (r *Runner) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsActive reports whether the job is running.
func (r *Runner) IsActive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[id]
	return ok
}

// Wait blocks until every running job returns.
func (r *Runner) Wait() {
	r.wg.Wait()
}
