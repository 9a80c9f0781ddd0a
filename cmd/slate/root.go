package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/slate/internal/api"
	"github.com/jackzampolin/slate/internal/config"
	"github.com/jackzampolin/slate/internal/home"
	"github.com/jackzampolin/slate/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "slate",
	Short: "Screenplay scene analysis with LLM-assisted dramaturgy",
	Long: `Slate splits screenplays into scenes and analyzes each scene with an LLM.

It reads Fountain, Final Draft (FDX), PDF, DOCX and plain text scripts and
produces a per-scene breakdown:
  - Story event, subtext, turning point and protagonist mood
  - Investigation fields for crime drama (tatort mode)
  - Act structure, hero's journey and thematic questions (story mode)
  - An Excel report of the whole analysis`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.slate/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "slate home directory (default: ~/.slate)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "", "output format: yaml or json (default: table on a terminal, otherwise yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn or error (default: log_level from config)",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the home directory and loads configuration. A config
// file inside a custom --home is used when --config is not given.
func loadConfig() (*home.Dir, *config.Manager, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}
	path := cfgFile
	if path == "" && homeDir != "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, nil, err
	}
	return h, mgr, nil
}

// newLogger builds the text logger. The --log-level flag wins over the
// configured level.
func newLogger(w io.Writer, configured string) (*slog.Logger, error) {
	name := configured
	if logLevel != "" {
		name = logLevel
	}
	var level slog.Level
	switch strings.ToLower(name) {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", name)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})), nil
}
