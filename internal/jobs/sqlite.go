package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode    = 5
	busyRetryAttempts = 5
	busyRetryDelay    = 10 * time.Millisecond
	busyRetryMaxDelay = 200 * time.Millisecond

	// Fixed width so that text order matches time order.
	sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"
)

const jobsSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at);
`

// SQLiteStore persists jobs as JSON documents in a SQLite table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the job database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, jobsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create jobs schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Get returns the job with id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Job, error) {
	var data string
	err := s.withBusyRetry(ctx, func() error {
		return s.db.QueryRowContext(ctx, `SELECT data FROM jobs WHERE id = ?`, id).Scan(&data)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return decodeJob([]byte(data))
}

// Put upserts job and stamps its UpdatedAt.
func (s *SQLiteStore) Put(ctx context.Context, job *Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	job.UpdatedAt = time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = job.UpdatedAt
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	return s.withBusyRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO jobs (id, status, data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				status = excluded.status,
				data = excluded.data,
				updated_at = excluded.updated_at`,
			job.ID, string(job.Status), string(data),
			job.CreatedAt.UTC().Format(sqliteTimeFormat), job.UpdatedAt.Format(sqliteTimeFormat))
		return err
	})
}

// List returns jobs newest first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]*Job, error) {
	query := `SELECT data FROM jobs`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id ASC LIMIT ?`
	args = append(args, filter.limit())

	var out []*Job
	err := s.withBusyRetry(ctx, func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var data string
			if err := rows.Scan(&data); err != nil {
				return err
			}
			job, err := decodeJob([]byte(data))
			if err != nil {
				return err
			}
			out = append(out, job)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if out == nil {
		out = []*Job{}
	}
	return out, nil
}

// Delete removes the job with id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	var affected int64
	err := s.withBusyRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// withBusyRetry repeats op while SQLite reports the database as locked.
func (s *SQLiteStore) withBusyRetry(ctx context.Context, op func() error) error {
	return retry.Do(op,
		retry.Context(ctx),
		retry.Attempts(busyRetryAttempts),
		retry.Delay(busyRetryDelay),
		retry.MaxDelay(busyRetryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isSQLiteBusy),
	)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

var _ Store = (*SQLiteStore)(nil)
