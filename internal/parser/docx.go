package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBody = "word/document.xml"

// DOCXExtractor reads Word documents. Paragraphs are separated by a blank
// line so treatment segmentation sees the same breaks a text export would.
type DOCXExtractor struct{}

var _ Extractor = (*DOCXExtractor)(nil)

func (e *DOCXExtractor) Format() Format { return FormatDOCX }

func (e *DOCXExtractor) CanHandle(filename string, sample []byte) bool {
	if hasExtension(filename, ".docx") {
		return true
	}
	return bytes.HasPrefix(sample, []byte("PK\x03\x04")) && bytes.Contains(sample, []byte("word/"))
}

func (e *DOCXExtractor) Extract(_ context.Context, content []byte) (*Extraction, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, &ParsingError{Format: FormatDOCX, Err: fmt.Errorf("open archive: %w", err)}
	}
	f, err := zr.Open(docxBody)
	if err != nil {
		return nil, &ParsingError{Format: FormatDOCX, Err: fmt.Errorf("missing %s", docxBody)}
	}
	defer f.Close()

	lines, err := docxParagraphs(f)
	if err != nil {
		return nil, &ParsingError{Format: FormatDOCX, Err: err}
	}
	return &Extraction{Text: normalizeText(strings.Join(lines, "\n\n"))}, nil
}

func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		lines  []string
		cur    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if line := strings.TrimRight(cur.String(), " \t"); strings.TrimSpace(line) != "" {
					lines = append(lines, line)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
}
