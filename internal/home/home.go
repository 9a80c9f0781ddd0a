// Package home manages the slate home directory (~/.slate).
package home

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	// DefaultDirName is the default name for the slate home directory.
	DefaultDirName = ".slate"

	// DataDirName is the subdirectory for the job database.
	DataDirName = "data"

	// ReportsDirName is the subdirectory for rendered reports.
	ReportsDirName = "reports"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// JobsDBName is the SQLite job store file name.
	JobsDBName = "jobs.db"

	lockFileName = "slate.lock"
)

// ErrLocked is returned by Lock when another process holds the home lock.
var ErrLocked = errors.New("slate home is locked by another process")

// Dir represents the slate home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.slate).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// DataPath returns the path to the data directory.
func (d *Dir) DataPath() string {
	return filepath.Join(d.path, DataDirName)
}

// ReportsPath returns the directory rendered reports are written to.
func (d *Dir) ReportsPath() string {
	return filepath.Join(d.path, ReportsDirName)
}

// JobsDBPath returns the default SQLite job store path.
func (d *Dir) JobsDBPath() string {
	return filepath.Join(d.DataPath(), JobsDBName)
}

// ReportPath returns the path for a report file name.
func (d *Dir) ReportPath(name string) string {
	return filepath.Join(d.ReportsPath(), filepath.Base(name))
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.DataPath(), d.ReportsPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// Lock takes the exclusive process lock that guards the job database.
// The returned function releases it.
func (d *Dir) Lock() (func() error, error) {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	lock := flock.New(filepath.Join(d.path, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lock.Path())
	}
	return lock.Unlock, nil
}
