package parser

import (
	"context"
	"regexp"
)

var (
	// fountainHeading detects a slugline anywhere in a sample.
	fountainHeading = regexp.MustCompile(`(?im)^(INT\./EXT|INT/EXT|I/E|INT|EXT)[.\s]+(.+?)(?:\s+-\s+(.+))?$`)
	boneyard        = regexp.MustCompile(`(?s)/\*.*?\*/`)
	notes           = regexp.MustCompile(`(?s)\[\[.*?\]\]`)
)

// FountainExtractor reads Fountain markup.
type FountainExtractor struct{}

var _ Extractor = (*FountainExtractor)(nil)

func (e *FountainExtractor) Format() Format { return FormatFountain }

func (e *FountainExtractor) CanHandle(filename string, sample []byte) bool {
	if hasExtension(filename, ".fountain") {
		return true
	}
	return fountainHeading.Match(sample)
}

// Extract strips boneyard and note blocks. Line structure is kept so
// page estimates still line up with the source.
func (e *FountainExtractor) Extract(_ context.Context, content []byte) (*Extraction, error) {
	text, err := decodeText(content)
	if err != nil {
		return nil, err
	}
	text = boneyard.ReplaceAllStringFunc(text, keepNewlines)
	text = notes.ReplaceAllStringFunc(text, keepNewlines)
	return &Extraction{Text: text}, nil
}

func keepNewlines(block string) string {
	out := make([]byte, 0, 4)
	for i := 0; i < len(block); i++ {
		if block[i] == '\n' {
			out = append(out, '\n')
		}
	}
	return string(out)
}
