package parser

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

const fdxSceneHeading = "Scene Heading"

// FDXExtractor reads Final Draft XML.
type FDXExtractor struct{}

var _ Extractor = (*FDXExtractor)(nil)

type fdxParagraph struct {
	Type     string         `xml:"Type,attr"`
	Texts    []string       `xml:"Text"`
	Children []fdxParagraph `xml:"DualDialogue>Paragraph"`
}

func (p fdxParagraph) text() string {
	return strings.TrimSpace(strings.Join(p.Texts, ""))
}

func (e *FDXExtractor) Format() Format { return FormatFDX }

func (e *FDXExtractor) CanHandle(filename string, sample []byte) bool {
	if hasExtension(filename, ".fdx") {
		return true
	}
	head := sample
	if len(head) > 500 {
		head = head[:500]
	}
	return bytes.Contains(head, []byte("FinalDraft")) && bytes.Contains(head, []byte("<?xml"))
}

// Extract emits one line per paragraph with text. Scene Heading paragraphs
// are recorded in Extraction.Headings.
func (e *FDXExtractor) Extract(_ context.Context, content []byte) (*Extraction, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = charsetReader

	var (
		lines    []string
		headings = make(map[int]bool)
	)
	var emit func(p fdxParagraph)
	emit = func(p fdxParagraph) {
		if len(p.Children) > 0 {
			for _, c := range p.Children {
				emit(c)
			}
			return
		}
		text := p.text()
		if p.Type == fdxSceneHeading {
			headings[len(lines)] = true
			lines = append(lines, text)
			return
		}
		if text != "" {
			lines = append(lines, text)
		}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParsingError{Format: FormatFDX, Err: err}
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Paragraph" {
			continue
		}
		var p fdxParagraph
		if err := dec.DecodeElement(&p, &start); err != nil {
			return nil, &ParsingError{Format: FormatFDX, Err: err}
		}
		emit(p)
	}

	if len(lines) == 0 {
		return nil, &ParsingError{Format: FormatFDX, Err: errors.New("no paragraphs found")}
	}
	if len(headings) == 0 {
		// sluglines typed as action paragraphs are found by pattern
		headings = nil
	}
	return &Extraction{
		Text:     normalizeText(strings.Join(lines, "\n")),
		Headings: headings,
	}, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
