package parser

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText returns content as NFC-normalized text with \n line endings.
// Invalid UTF-8 is read as Latin-1.
func decodeText(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
		if err != nil {
			return "", err
		}
		content = decoded
	}
	return normalizeText(string(content)), nil
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return norm.NFC.String(s)
}

// PlaintextExtractor reads plain text files.
type PlaintextExtractor struct{}

var _ Extractor = (*PlaintextExtractor)(nil)

func (e *PlaintextExtractor) Format() Format { return FormatPlaintext }

func (e *PlaintextExtractor) CanHandle(filename string, _ []byte) bool {
	return hasExtension(filename, ".txt", ".text", ".md")
}

func (e *PlaintextExtractor) Extract(_ context.Context, content []byte) (*Extraction, error) {
	text, err := decodeText(content)
	if err != nil {
		return nil, err
	}
	return &Extraction{Text: text}, nil
}
