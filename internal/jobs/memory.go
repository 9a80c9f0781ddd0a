package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps jobs in a map. Jobs are copied on the way in and out so
// readers never share slices with the writer.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string][]byte)}
}

// Get returns a copy of the job.
func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	data, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeJob(data)
}

// Put stores a copy of job and stamps its UpdatedAt.
func (s *MemoryStore) Put(_ context.Context, job *Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	s.mu.Lock()
	s.jobs[job.ID] = data
	s.mu.Unlock()
	return nil
}

// List returns jobs newest first.
func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]*Job, error) {
	s.mu.RLock()
	out := make([]*Job, 0, len(s.jobs))
	for _, data := range s.jobs {
		job, err := decodeJob(data)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, job)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > filter.limit() {
		out = out[:filter.limit()]
	}
	return out, nil
}

// Delete removes a job.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func decodeJob(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

var _ Store = (*MemoryStore)(nil)
