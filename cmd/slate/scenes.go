package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/slate/internal/api"
	"github.com/jackzampolin/slate/internal/parser"
)

var scenesCmd = &cobra.Command{
	Use:   "scenes <file>",
	Short: "Split a script into scenes without analyzing it",
	Long: `Parse a script locally and print its scenes.

A table is printed when stdout is a terminal; pass --output yaml or
--output json for structured output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		logger, err := newLogger(os.Stderr, cfg.LogLevel)
		if err != nil {
			return err
		}

		doc, err := parseFile(cmd.Context(), args[0], cfg.Analysis.LanguageTie, logger)
		if err != nil {
			return err
		}

		if !wantTable(os.Stdout) {
			return api.Output(doc)
		}

		rows := make([][]string, 0, len(doc.Scenes))
		for _, s := range doc.Scenes {
			rows = append(rows, []string{
				strconv.Itoa(s.Number),
				s.IntExt,
				s.Location,
				s.TimeOfDay,
				strconv.Itoa(s.Page),
				strconv.FormatFloat(s.LengthMinutes, 'f', 1, 64),
				strings.Join(s.Characters, ", "),
			})
		}
		fmt.Printf("%s: %s, %d scenes, %d pages, language %s\n",
			doc.Filename, doc.Format, len(doc.Scenes), doc.Pages, doc.Language)
		fmt.Println(renderTable(
			[]string{"#", "INT/EXT", "Location", "Time", "Page", "Min", "Characters"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
		return nil
	},
}

// parseFile reads and parses a script from disk.
func parseFile(ctx context.Context, path, languageTie string, logger *slog.Logger) (*parser.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	detector := parser.NewDetector(parser.DetectorConfig{
		LanguageTie: languageTie,
		Logger:      logger,
	})
	return detector.Parse(ctx, filepath.Base(path), content)
}

func init() {
	rootCmd.AddCommand(scenesCmd)
}
