package home

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-slate")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-slate" {
			t.Errorf("expected path /tmp/test-slate, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-slate")

	tests := []struct {
		name, got, want string
	}{
		{"DataPath", dir.DataPath(), "/tmp/test-slate/data"},
		{"ReportsPath", dir.ReportsPath(), "/tmp/test-slate/reports"},
		{"JobsDBPath", dir.JobsDBPath(), "/tmp/test-slate/data/jobs.db"},
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-slate/config.yaml"},
		{"ReportPath", dir.ReportPath("../x_analysis.xlsx"), "/tmp/test-slate/reports/x_analysis.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	dir, _ := New(filepath.Join(t.TempDir(), "slate"))

	if dir.Exists() {
		t.Fatal("directory should not exist yet")
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}
	for _, p := range []string{dir.DataPath(), dir.ReportsPath()} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", p, err)
		}
	}
	if dir.ConfigExists() {
		t.Error("ConfigExists() = true, want false")
	}
}

func TestDir_Lock(t *testing.T) {
	dir, _ := New(t.TempDir())

	unlock, err := dir.Lock()
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	if _, err := dir.Lock(); !errors.Is(err, ErrLocked) {
		t.Errorf("second Lock() error = %v, want ErrLocked", err)
	}

	if err := unlock(); err != nil {
		t.Fatalf("unlock() error = %v", err)
	}
	unlock, err = dir.Lock()
	if err != nil {
		t.Fatalf("Lock() after unlock error = %v", err)
	}
	_ = unlock()
}
