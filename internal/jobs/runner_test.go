package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func submitAndWait(t *testing.T, proc Processor) (*Job, *Runner, Store) {
	t.Helper()
	store := NewMemoryStore()
	ctx := context.Background()
	job := New(testDocument())
	if err := store.Put(ctx, job); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	runner := NewRunner(ctx, RunnerConfig{Store: store, Processor: proc})
	if err := runner.Submit(ctx, job.ID, func(j *Job) { j.Model = "gpt-4o" }); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	runner.Wait()

	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	return got, runner, store
}

func TestRunner(t *testing.T) {
	t.Run("runs processor", func(t *testing.T) {
		var sawStatus Status
		var sawModel string
		var store Store
		proc := ProcessorFunc(func(ctx context.Context, id string) error {
			j, _ := store.Get(ctx, id)
			sawStatus, sawModel = j.Status, j.Model
			j.Status = StatusCompleted
			j.Progress = 100
			return store.Put(ctx, j)
		})

		store = NewMemoryStore()
		ctx := context.Background()
		job := New(testDocument())
		store.Put(ctx, job)
		runner := NewRunner(ctx, RunnerConfig{Store: store, Processor: proc})
		if err := runner.Submit(ctx, job.ID, func(j *Job) { j.Model = "gpt-4o" }); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		runner.Wait()

		if sawStatus != StatusQueued {
			t.Errorf("status seen by processor = %q, want queued", sawStatus)
		}
		if sawModel != "gpt-4o" {
			t.Errorf("model seen by processor = %q, want gpt-4o", sawModel)
		}
		got, _ := store.Get(ctx, job.ID)
		if got.Status != StatusCompleted {
			t.Errorf("Status = %q, want completed", got.Status)
		}
		if len(runner.Active()) != 0 {
			t.Errorf("Active() = %v, want empty after Wait", runner.Active())
		}
	})

	t.Run("records processor error", func(t *testing.T) {
		got, _, _ := submitAndWait(t, ProcessorFunc(func(context.Context, string) error {
			return errors.New("store exploded")
		}))
		if got.Status != StatusError {
			t.Errorf("Status = %q, want error", got.Status)
		}
		if got.Error != "store exploded" || got.Progress != 0 {
			t.Errorf("Error/Progress = %q/%d, want store exploded/0", got.Error, got.Progress)
		}
	})

	t.Run("recovers panics", func(t *testing.T) {
		got, _, _ := submitAndWait(t, ProcessorFunc(func(context.Context, string) error {
			panic("nil map")
		}))
		if got.Status != StatusError {
			t.Errorf("Status = %q, want error", got.Status)
		}
		if got.Error != "internal error: nil map" {
			t.Errorf("Error = %q", got.Error)
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		runner := NewRunner(context.Background(), RunnerConfig{Store: NewMemoryStore(), Processor: ProcessorFunc(func(context.Context, string) error { return nil })})
		if err := runner.Submit(context.Background(), "missing", nil); !errors.Is(err, ErrNotFound) {
			t.Errorf("Submit() error = %v, want ErrNotFound", err)
		}
		if len(runner.Active()) != 0 {
			t.Error("failed submit should not leave the job active")
		}
	})

	t.Run("rejects duplicate submit", func(t *testing.T) {
		store := NewMemoryStore()
		ctx := context.Background()
		job := New(testDocument())
		store.Put(ctx, job)

		release := make(chan struct{})
		runner := NewRunner(ctx, RunnerConfig{Store: store, Processor: ProcessorFunc(func(context.Context, string) error {
			<-release
			return nil
		})})
		if err := runner.Submit(ctx, job.ID, nil); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if !runner.IsActive(job.ID) {
			t.Error("IsActive() = false while running")
		}
		if err := runner.Submit(ctx, job.ID, nil); !errors.Is(err, ErrAlreadyRunning) {
			t.Errorf("second Submit() error = %v, want ErrAlreadyRunning", err)
		}
		close(release)
		runner.Wait()
	})

	t.Run("shutdown leaves job as stored", func(t *testing.T) {
		store := NewMemoryStore()
		job := New(testDocument())
		store.Put(context.Background(), job)

		ctx, cancel := context.WithCancel(context.Background())
		runner := NewRunner(ctx, RunnerConfig{Store: store, Processor: ProcessorFunc(func(ctx context.Context, id string) error {
			<-ctx.Done()
			return ctx.Err()
		})})
		if err := runner.Submit(context.Background(), job.ID, nil); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		time.Sleep(10 * time.Millisecond)
		cancel()
		runner.Wait()

		got, _ := store.Get(context.Background(), job.ID)
		if got.Status != StatusQueued {
			t.Errorf("Status = %q, want queued", got.Status)
		}
	})
}
