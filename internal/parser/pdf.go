package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/charmap"
)

// PDFExtractor recovers text from PDF content streams. Only simple font
// encodings are decoded; embedded CID fonts produce no usable text.
type PDFExtractor struct{}

var _ Extractor = (*PDFExtractor)(nil)

func (e *PDFExtractor) Format() Format { return FormatPDF }

func (e *PDFExtractor) CanHandle(filename string, sample []byte) bool {
	return hasExtension(filename, ".pdf") || bytes.HasPrefix(sample, []byte("%PDF"))
}

func (e *PDFExtractor) Extract(ctx context.Context, content []byte) (*Extraction, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadContext(bytes.NewReader(content), conf)
	if err != nil {
		return nil, &ParsingError{Format: FormatPDF, Err: fmt.Errorf("read: %w", err)}
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return nil, &ParsingError{Format: FormatPDF, Err: fmt.Errorf("validate: %w", err)}
	}

	var b strings.Builder
	for page := 1; page <= pdfCtx.PageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := pdfcpu.ExtractPageContent(pdfCtx, page)
		if err != nil {
			return nil, &ParsingError{Format: FormatPDF, Err: fmt.Errorf("page %d: %w", page, err)}
		}
		if r == nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, &ParsingError{Format: FormatPDF, Err: fmt.Errorf("page %d: %w", page, err)}
		}
		b.WriteString(contentStreamText(data))
		b.WriteByte('\n')
	}

	text := normalizeText(b.String())
	if strings.TrimSpace(text) == "" {
		return nil, &ParsingError{Format: FormatPDF, Err: errors.New("no extractable text")}
	}
	return &Extraction{Text: text}, nil
}

// textLayout turns text-showing and positioning operators into lines.
// A vertical jump noticeably larger than the usual line advance becomes a
// blank line.
type textLayout struct {
	out        strings.Builder
	line       strings.Builder
	y          float64
	atBT       bool
	leading    float64
	lineHeight float64
	breakLine  bool
	gap        bool
}

// moveBy applies a relative line move. The first move after BT starts
// from the text-space origin.
func (l *textLayout) moveBy(ty float64) {
	if l.atBT {
		l.moveTo(ty)
		return
	}
	l.y += ty
	l.moveY(ty)
}

func (l *textLayout) moveTo(y float64) {
	l.atBT = false
	l.moveY(y - l.y)
	l.y = y
}

func (l *textLayout) moveY(dy float64) {
	if dy == 0 {
		return
	}
	a := math.Abs(dy)
	if l.lineHeight == 0 || a < l.lineHeight {
		l.lineHeight = a
	}
	l.breakLine = true
	if a > 1.6*l.lineHeight {
		l.gap = true
	}
}

func (l *textLayout) show(s string) {
	if s == "" {
		return
	}
	if l.breakLine {
		l.flush()
	}
	l.line.WriteString(s)
}

func (l *textLayout) flush() {
	if l.line.Len() > 0 {
		l.out.WriteString(strings.TrimRight(l.line.String(), " "))
		l.out.WriteByte('\n')
		if l.gap {
			l.out.WriteByte('\n')
		}
		l.line.Reset()
	}
	l.breakLine, l.gap = false, false
}

func (l *textLayout) String() string {
	l.flush()
	return l.out.String()
}

// contentStreamText extracts the text drawn by a page content stream.
func contentStreamText(stream []byte) string {
	var (
		layout   textLayout
		operands []pdfToken
	)
	lex := &pdfLexer{data: stream}
	for {
		tok, ok := lex.next()
		if !ok {
			break
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}
		switch tok.text {
		case "BT":
			layout.atBT = true
		case "TL":
			if n, ok := number(operands, 0, 1); ok {
				layout.leading = n
			}
		case "Td", "TD":
			if ty, ok := number(operands, 1, 2); ok {
				if tok.text == "TD" {
					layout.leading = -ty
				}
				layout.moveBy(ty)
			}
		case "Tm":
			if f, ok := number(operands, 5, 6); ok {
				layout.moveTo(f)
			}
		case "T*":
			layout.moveY(-nonZero(layout.leading))
		case "Tj":
			if len(operands) > 0 {
				layout.show(operands[len(operands)-1].text)
			}
		case "'", `"`:
			layout.moveY(-nonZero(layout.leading))
			if len(operands) > 0 {
				layout.show(operands[len(operands)-1].text)
			}
		case "TJ":
			if len(operands) > 0 {
				layout.show(operands[len(operands)-1].text)
			}
		case "ID":
			lex.skipInlineImage()
		}
		operands = operands[:0]
	}
	return layout.String()
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// number returns operand idx of an operator taking want operands.
func number(operands []pdfToken, idx, want int) (float64, bool) {
	if len(operands) < want {
		return 0, false
	}
	tok := operands[len(operands)-want+idx]
	if tok.kind != tokNumber {
		return 0, false
	}
	return tok.num, true
}

type tokenKind int

const (
	tokOperator tokenKind = iota
	tokNumber
	tokString
	tokArray
	tokName
	tokOther
)

type pdfToken struct {
	kind tokenKind
	text string
	num  float64
}

type pdfLexer struct {
	data []byte
	pos  int
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isPDFDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (l *pdfLexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isPDFSpace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *pdfLexer) next() (pdfToken, bool) {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return pdfToken{}, false
	}
	c := l.data[l.pos]
	switch {
	case c == '(':
		return pdfToken{kind: tokString, text: decodePDFString(l.literal())}, true
	case c == '<' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '<':
		l.pos += 2
		return pdfToken{kind: tokOther}, true
	case c == '>' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '>':
		l.pos += 2
		return pdfToken{kind: tokOther}, true
	case c == '<':
		return pdfToken{kind: tokString, text: decodePDFString(l.hex())}, true
	case c == '[':
		l.pos++
		return pdfToken{kind: tokArray, text: l.array()}, true
	case c == ']' || c == '{' || c == '}' || c == '>' || c == ')':
		l.pos++
		return pdfToken{kind: tokOther}, true
	case c == '/':
		l.pos++
		return pdfToken{kind: tokName, text: l.word()}, true
	}
	w := l.word()
	if w == "" {
		l.pos++
		return pdfToken{kind: tokOther}, true
	}
	if n, err := strconv.ParseFloat(w, 64); err == nil {
		return pdfToken{kind: tokNumber, num: n, text: w}, true
	}
	return pdfToken{kind: tokOperator, text: w}, true
}

func (l *pdfLexer) word() string {
	start := l.pos
	for l.pos < len(l.data) && !isPDFSpace(l.data[l.pos]) && !isPDFDelim(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// literal reads a (string) with nesting and escapes.
func (l *pdfLexer) literal() []byte {
	l.pos++
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos >= len(l.data) {
				return out
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r', '\n':
				if e == '\r' && l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := int(e - '0')
				for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
					v = v*8 + int(l.data[l.pos]-'0')
					l.pos++
				}
				out = append(out, byte(v))
			default:
				out = append(out, e)
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

func (l *pdfLexer) hex() []byte {
	l.pos++
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; !isPDFSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			return out
		}
		out = append(out, byte(v))
	}
	return out
}

// array concatenates the strings of a TJ operand. Large negative kerning
// adjustments are word gaps.
func (l *pdfLexer) array() string {
	var b strings.Builder
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return b.String()
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return b.String()
		}
		tok, ok := l.next()
		if !ok {
			return b.String()
		}
		switch tok.kind {
		case tokString:
			b.WriteString(tok.text)
		case tokNumber:
			if tok.num < -200 {
				b.WriteByte(' ')
			}
		}
	}
}

func (l *pdfLexer) skipInlineImage() {
	idx := bytes.Index(l.data[l.pos:], []byte("EI"))
	if idx < 0 {
		l.pos = len(l.data)
		return
	}
	l.pos += idx + 2
}

func decodePDFString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		b = b[2:]
		u := make([]uint16, 0, len(b)/2)
		for i := 0; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}
