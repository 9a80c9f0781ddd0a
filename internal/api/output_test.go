package api

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetOutputFormat(t *testing.T) {
	defer SetOutputFormat("")

	tests := []struct {
		in         string
		want       OutputFormat
		structured bool
		wantErr    bool
	}{
		{"", OutputFormatYAML, false, false},
		{"yaml", OutputFormatYAML, true, false},
		{"json", OutputFormatJSON, true, false},
		{"xml", OutputFormatJSON, true, true},
	}
	for _, tt := range tests {
		err := SetOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("SetOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got := GetOutputFormat(); got != tt.want {
			t.Errorf("after SetOutputFormat(%q) format = %q, want %q", tt.in, got, tt.want)
		}
		if got := IsStructuredOutput(); got != tt.structured {
			t.Errorf("after SetOutputFormat(%q) IsStructuredOutput() = %v, want %v", tt.in, got, tt.structured)
		}
	}
}

func TestOutputTo(t *testing.T) {
	data := map[string]int{"scenes": 3}

	var buf bytes.Buffer
	if err := OutputTo(&buf, OutputFormatJSON, data); err != nil {
		t.Fatalf("OutputTo(json) error = %v", err)
	}
	if got := buf.String(); !strings.Contains(got, `"scenes": 3`) {
		t.Errorf("OutputTo(json) = %q, want it to contain %q", got, `"scenes": 3`)
	}

	buf.Reset()
	if err := OutputTo(&buf, OutputFormatYAML, data); err != nil {
		t.Fatalf("OutputTo(yaml) error = %v", err)
	}
	if got := buf.String(); got != "scenes: 3\n" {
		t.Errorf("OutputTo(yaml) = %q, want %q", got, "scenes: 3\n")
	}

	if err := OutputTo(&buf, "xml", data); err == nil {
		t.Error("OutputTo(xml) error = nil, want error")
	}
}
