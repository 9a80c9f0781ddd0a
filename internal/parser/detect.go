package parser

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// SampleSize is how much of a file content signatures are checked against.
const SampleSize = 1024

// Extraction is the plain text an extractor recovered from a document.
type Extraction struct {
	Text string
	// Headings marks line indexes the source format tagged as scene
	// headings. Nil means headings are found by pattern.
	Headings map[int]bool
}

// Extractor recovers text from one document format.
type Extractor interface {
	Format() Format
	// CanHandle checks the extension or a content signature in sample.
	CanHandle(filename string, sample []byte) bool
	Extract(ctx context.Context, content []byte) (*Extraction, error)
}

// DetectorConfig configures a Detector.
type DetectorConfig struct {
	// Extractors in priority order. Empty uses DefaultExtractors.
	Extractors []Extractor
	// LanguageTie is reported when language markers are balanced.
	LanguageTie string
	Logger      *slog.Logger
}

// Detector resolves the extractor for a file and runs the parse pipeline.
type Detector struct {
	extractors  []Extractor
	languageTie string
	logger      *slog.Logger
}

// DefaultExtractors returns the built-in extractors, structured formats first.
func DefaultExtractors() []Extractor {
	return []Extractor{
		&FountainExtractor{},
		&FDXExtractor{},
		&PDFExtractor{},
		&DOCXExtractor{},
		&PlaintextExtractor{},
	}
}

// NewDetector creates a Detector.
func NewDetector(cfg DetectorConfig) *Detector {
	if len(cfg.Extractors) == 0 {
		cfg.Extractors = DefaultExtractors()
	}
	if cfg.LanguageTie == "" {
		cfg.LanguageTie = LangEN
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		extractors:  cfg.Extractors,
		languageTie: cfg.LanguageTie,
		logger:      logger,
	}
}

// SupportedFormats lists the formats in detection order.
func (d *Detector) SupportedFormats() []string {
	out := make([]string, len(d.extractors))
	for i, e := range d.extractors {
		out[i] = string(e.Format())
	}
	return out
}

// Resolve returns the first extractor that accepts the file.
func (d *Detector) Resolve(filename string, sample []byte) (Extractor, error) {
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	for _, e := range d.extractors {
		if e.CanHandle(filename, sample) {
			return e, nil
		}
	}
	return nil, &UnsupportedFormatError{Filename: filename, Supported: d.SupportedFormats()}
}

// Parse detects the format of content, extracts its text and segments it
// into scenes.
func (d *Detector) Parse(ctx context.Context, filename string, content []byte) (*Document, error) {
	ex, err := d.Resolve(filename, content)
	if err != nil {
		return nil, err
	}
	format := ex.Format()

	extraction, err := ex.Extract(ctx, content)
	if err != nil {
		var pe *ParsingError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &ParsingError{Format: format, Err: err}
	}

	scenes := SegmentMarked(extraction.Text, extraction.Headings)
	if len(scenes) == 0 {
		return nil, &ParsingError{Format: format, Err: errors.New("no scenes found")}
	}

	doc := &Document{
		Filename:   filename,
		Format:     format,
		Text:       extraction.Text,
		Scenes:     scenes,
		Language:   DetectLanguage(extraction.Text, d.languageTie),
		Characters: sceneCharacters(scenes),
	}
	for _, s := range scenes {
		doc.Pages = max(doc.Pages, s.Page)
	}

	d.logger.Debug("document parsed",
		"filename", filename,
		"format", format,
		"scenes", len(scenes),
		"language", doc.Language,
	)
	return doc, nil
}

func hasExtension(filename string, exts ...string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
