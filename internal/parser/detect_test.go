package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestDetector_Resolve(t *testing.T) {
	d := NewDetector(DetectorConfig{})

	tests := []struct {
		name     string
		filename string
		sample   string
		want     Format
	}{
		{"fountain extension", "script.fountain", "", FormatFountain},
		{"fountain content", "upload.bin", "Title: X\n\nINT. HOUSE - DAY\n", FormatFountain},
		{"fdx extension", "draft.FDX", "", FormatFDX},
		{"fdx content", "upload.bin", `<?xml version="1.0"?><FinalDraft DocumentType="Script">`, FormatFDX},
		{"pdf magic", "upload.bin", "%PDF-1.7\n", FormatPDF},
		{"docx extension", "treatment.docx", "", FormatDOCX},
		{"docx signature", "upload.bin", "PK\x03\x04....word/document.xml", FormatDOCX},
		{"plain text", "notes.txt", "just some words", FormatPlaintext},
		{"slugline in a txt file is fountain", "notes.txt", "EXT. ROAD - DAY\n", FormatFountain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := d.Resolve(tt.filename, []byte(tt.sample))
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if ex.Format() != tt.want {
				t.Errorf("Format() = %q, want %q", ex.Format(), tt.want)
			}
		})
	}
}

func TestDetector_ResolveUnsupported(t *testing.T) {
	d := NewDetector(DetectorConfig{})
	_, err := d.Resolve("image.png", []byte("\x89PNG\r\n"))

	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("error = %v, want *UnsupportedFormatError", err)
	}
	want := "Unsupported format for 'image.png'. Supported formats: fountain, fdx, pdf, docx, plaintext"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !reflect.DeepEqual(ufe.Supported, []string{"fountain", "fdx", "pdf", "docx", "plaintext"}) {
		t.Errorf("Supported = %v", ufe.Supported)
	}
}

func TestDetector_ParseFountain(t *testing.T) {
	d := NewDetector(DetectorConfig{})
	content := "INT. KITCHEN - DAY\n/* cut this */\nANNA\nThe coffee is cold and the milk is gone.\n[[note]]\nEXT. STREET - NIGHT\nRain.\n"

	doc, err := d.Parse(context.Background(), "scene.fountain", []byte(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.Format != FormatFountain {
		t.Errorf("Format = %q, want fountain", doc.Format)
	}
	if len(doc.Scenes) != 2 {
		t.Fatalf("len(Scenes) = %d, want 2", len(doc.Scenes))
	}
	if doc.Scenes[0].Text != "ANNA\nThe coffee is cold and the milk is gone." {
		t.Errorf("scene 1 Text = %q", doc.Scenes[0].Text)
	}
	if doc.Language != LangEN {
		t.Errorf("Language = %q, want EN", doc.Language)
	}
	if doc.Pages != 1 {
		t.Errorf("Pages = %d, want 1", doc.Pages)
	}
	if !reflect.DeepEqual(doc.Characters, []string{"ANNA"}) {
		t.Errorf("Characters = %v, want [ANNA]", doc.Characters)
	}
}

func TestDetector_DocumentCharacters(t *testing.T) {
	d := NewDetector(DetectorConfig{})
	content := "INT. ROOM A - DAY\nANNA\nHi.\n\nEXT. ROOM B - NIGHT\nBEN\nBye.\n"

	doc, err := d.Parse(context.Background(), "two.fountain", []byte(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []string{"ANNA", "BEN"}
	if !reflect.DeepEqual(doc.Characters, want) {
		t.Errorf("Characters = %v, want %v", doc.Characters, want)
	}
}

const sampleFDX = `<?xml version="1.0" encoding="UTF-8" standalone="no" ?>
<FinalDraft DocumentType="Script" Template="No" Version="4">
  <Content>
    <Paragraph Type="Scene Heading"><Text>INT. KITCHEN - DAY</Text></Paragraph>
    <Paragraph Type="Action"><Text>Anna </Text><Text>enters.</Text></Paragraph>
    <Paragraph Type="Character"><Text>ANNA</Text></Paragraph>
    <Paragraph Type="Dialogue"><Text>Hello.</Text></Paragraph>
    <Paragraph Type="Scene Heading"><Text>ROOFTOP</Text></Paragraph>
    <Paragraph Type="Action"><Text>Wind.</Text></Paragraph>
  </Content>
</FinalDraft>`

func TestDetector_ParseFDX(t *testing.T) {
	d := NewDetector(DetectorConfig{})
	doc, err := d.Parse(context.Background(), "script.fdx", []byte(sampleFDX))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Scenes) != 2 {
		t.Fatalf("len(Scenes) = %d, want 2", len(doc.Scenes))
	}

	first := doc.Scenes[0]
	if first.IntExt != "INT" || first.Location != "KITCHEN" || first.TimeOfDay != "DAY" {
		t.Errorf("scene 1 = (%q, %q, %q)", first.IntExt, first.Location, first.TimeOfDay)
	}
	if first.Text != "Anna enters.\nANNA\nHello." {
		t.Errorf("scene 1 Text = %q", first.Text)
	}
	if !reflect.DeepEqual(first.Characters, []string{"ANNA"}) {
		t.Errorf("scene 1 Characters = %v", first.Characters)
	}

	second := doc.Scenes[1]
	if second.IntExt != "EXT" || second.Location != "ROOFTOP" || second.TimeOfDay != Unknown {
		t.Errorf("scene 2 = (%q, %q, %q)", second.IntExt, second.Location, second.TimeOfDay)
	}
}

func TestDetector_ParseFDXUntaggedHeadings(t *testing.T) {
	content := `<?xml version="1.0" encoding="UTF-8"?>
<FinalDraft DocumentType="Script" Version="4">
  <Content>
    <Paragraph Type="Action"><Text>INT. ROOM A - DAY</Text></Paragraph>
    <Paragraph Type="Action"><Text>Anna waits.</Text></Paragraph>
    <Paragraph Type="Action"><Text>EXT. ROOM B - NIGHT</Text></Paragraph>
    <Paragraph Type="Action"><Text>Rain.</Text></Paragraph>
  </Content>
</FinalDraft>`

	d := NewDetector(DetectorConfig{})
	doc, err := d.Parse(context.Background(), "action.fdx", []byte(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Scenes) != 2 {
		t.Fatalf("len(Scenes) = %d, want 2", len(doc.Scenes))
	}
	second := doc.Scenes[1]
	if second.IntExt != "EXT" || second.Location != "ROOM B" || second.TimeOfDay != "NIGHT" {
		t.Errorf("scene 2 = (%q, %q, %q), want (EXT, ROOM B, NIGHT)", second.IntExt, second.Location, second.TimeOfDay)
	}
}

func TestDetector_ParseFDXMalformed(t *testing.T) {
	d := NewDetector(DetectorConfig{})
	_, err := d.Parse(context.Background(), "broken.fdx", []byte(`<?xml version="1.0"?><FinalDraft><Content><Paragraph>`))

	var pe *ParsingError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParsingError", err)
	}
	if pe.Format != FormatFDX {
		t.Errorf("Format = %q, want fdx", pe.Format)
	}
}

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	doc := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestDetector_ParseDOCX(t *testing.T) {
	content := buildDOCX(t,
		`<w:p><w:r><w:t>INT. OFFICE - NIGHT</w:t></w:r></w:p>`+
			`<w:p/>`+
			`<w:p><w:r><w:t xml:space="preserve">Tom </w:t></w:r><w:r><w:t>types.</w:t></w:r></w:p>`)

	d := NewDetector(DetectorConfig{})
	doc, err := d.Parse(context.Background(), "draft.docx", content)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.Format != FormatDOCX {
		t.Errorf("Format = %q, want docx", doc.Format)
	}
	if len(doc.Scenes) != 1 {
		t.Fatalf("len(Scenes) = %d, want 1", len(doc.Scenes))
	}
	s := doc.Scenes[0]
	if s.IntExt != "INT" || s.Location != "OFFICE" || s.TimeOfDay != "NIGHT" {
		t.Errorf("scene = (%q, %q, %q)", s.IntExt, s.Location, s.TimeOfDay)
	}
	if s.Text != "Tom types." {
		t.Errorf("Text = %q, want %q", s.Text, "Tom types.")
	}
}

func TestDetector_ParseDOCXMissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("other.xml"); err != nil {
		t.Fatal(err)
	}
	zw.Close()

	d := NewDetector(DetectorConfig{})
	_, err := d.Parse(context.Background(), "empty.docx", buf.Bytes())
	var pe *ParsingError
	if !errors.As(err, &pe) || pe.Format != FormatDOCX {
		t.Errorf("error = %v, want docx *ParsingError", err)
	}
}

func TestDetector_ParseLatin1(t *testing.T) {
	content := []byte("EXT. CAF\xc9 - DAY\nJ\xe9r\xf4me waits.\n")

	d := NewDetector(DetectorConfig{})
	doc, err := d.Parse(context.Background(), "latin.txt", content)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.Scenes[0].Location != "CAFÉ" {
		t.Errorf("Location = %q, want CAFÉ", doc.Scenes[0].Location)
	}
	if doc.Scenes[0].Text != "Jérôme waits." {
		t.Errorf("Text = %q", doc.Scenes[0].Text)
	}
}

func TestDetector_ParseEmpty(t *testing.T) {
	d := NewDetector(DetectorConfig{})
	_, err := d.Parse(context.Background(), "blank.txt", []byte("  \n\n  "))

	var pe *ParsingError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParsingError", err)
	}
	if pe.Format != FormatPlaintext {
		t.Errorf("Format = %q, want plaintext", pe.Format)
	}
}

func TestDetector_LanguageTie(t *testing.T) {
	d := NewDetector(DetectorConfig{LanguageTie: LangDE})
	doc, err := d.Parse(context.Background(), "tie.txt", []byte("Anna. Peter. Berlin."))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.Language != LangDE {
		t.Errorf("Language = %q, want DE", doc.Language)
	}
}
