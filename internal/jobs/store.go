package jobs

import (
	"context"
	"errors"
)

// ErrNotFound is returned for unknown job ids.
var ErrNotFound = errors.New("job not found")

// Store persists job records by id. Each key has a single writer at a time;
// there are no transactions.
type Store interface {
	Get(ctx context.Context, id string) (*Job, error)
	Put(ctx context.Context, job *Job) error
	List(ctx context.Context, filter ListFilter) ([]*Job, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// ListFilter specifies criteria for listing jobs.
type ListFilter struct {
	Status Status // Filter by status (empty = all)
	Limit  int    // Max results (0 = default 100)
}

func (f ListFilter) limit() int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}
