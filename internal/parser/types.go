// Package parser turns screenplay and treatment documents into numbered scenes.
//
// A Detector picks an Extractor by filename and content signature, the
// extractor produces plain text, and the Segmenter splits that text into
// scenes using sluglines or, when none are present, treatment paragraphs.
package parser

import (
	"fmt"
	"strings"
)

// Format identifies a source document format.
type Format string

const (
	FormatFountain  Format = "fountain"
	FormatFDX       Format = "fdx"
	FormatPDF       Format = "pdf"
	FormatDOCX      Format = "docx"
	FormatPlaintext Format = "plaintext"
)

// Placement values for Scene.IntExt.
const (
	Interior         = "INT"
	Exterior         = "EXT"
	InteriorExterior = "INT/EXT"
	Unknown          = "UNKNOWN"

	// Unresolved marks a treatment field no rule could fill.
	Unresolved = "-"
)

// Scene is a contiguous block of a document introduced by a heading or
// a treatment boundary.
type Scene struct {
	Number        int      `json:"number" yaml:"number"`
	IntExt        string   `json:"int_ext" yaml:"int_ext"`
	Location      string   `json:"location" yaml:"location"`
	TimeOfDay     string   `json:"time_of_day" yaml:"time_of_day"`
	Text          string   `json:"text" yaml:"text"`
	StartLine     *int     `json:"start_line,omitempty" yaml:"start_line,omitempty"`
	EndLine       *int     `json:"end_line,omitempty" yaml:"end_line,omitempty"`
	Page          int      `json:"page" yaml:"page"`
	LengthMinutes float64  `json:"length_minutes" yaml:"length_minutes"`
	Characters    []string `json:"characters" yaml:"characters"`
}

// Document is the parsed form of an uploaded file.
type Document struct {
	Filename   string   `json:"filename"`
	Format     Format   `json:"format"`
	Text       string   `json:"-"`
	Scenes     []Scene  `json:"scenes"`
	Pages      int      `json:"pages"`
	Language   string   `json:"language"`
	Characters []string `json:"characters"`
}

// UnsupportedFormatError is returned when no extractor accepts a file.
type UnsupportedFormatError struct {
	Filename  string
	Supported []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("Unsupported format for '%s'. Supported formats: %s",
		e.Filename, strings.Join(e.Supported, ", "))
}

// ParsingError wraps a failure inside a recognized format.
type ParsingError struct {
	Format Format
	Err    error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("%s parsing failed: %v", e.Format, e.Err)
}

func (e *ParsingError) Unwrap() error {
	return e.Err
}

func intPtr(v int) *int {
	return &v
}
