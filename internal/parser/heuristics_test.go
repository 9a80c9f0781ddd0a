package parser

import (
	"reflect"
	"testing"
)

func TestIsCharacterCue(t *testing.T) {
	tests := []struct {
		line string
		name string
		ok   bool
	}{
		{"ANNA", "ANNA", true},
		{"  PETER (V.O.)  ", "PETER", true},
		{"DR. MÜLLER", "DR. MÜLLER", true},
		{"MARY-JANE (CONT'D)", "MARY-JANE", true},
		{"CUT TO:", "", false},
		{"123", "", false},
		{"A", "", false},
		{"Anna", "", false},
		{"THIS LINE IS FAR TOO LONG TO BE A NAME", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			name, ok := IsCharacterCue(tt.line)
			if ok != tt.ok || name != tt.name {
				t.Errorf("IsCharacterCue(%q) = (%q, %v), want (%q, %v)", tt.line, name, ok, tt.name, tt.ok)
			}
		})
	}
}

func TestExtractCharacters(t *testing.T) {
	text := "PETER\nHi.\nANNA (O.S.)\nHello.\nPETER\nBye.\nAnna leaves."
	want := []string{"ANNA", "PETER"}
	if got := ExtractCharacters(text); !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractCharacters() = %v, want %v", got, want)
	}
}

func TestExtractCharacters_SkipsSluglines(t *testing.T) {
	text := "INT. ROOM A - DAY\nANNA\nHi.\nEXT. ROOM B - NIGHT\nBEN\nBye."
	want := []string{"ANNA", "BEN"}
	if got := ExtractCharacters(text); !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractCharacters() = %v, want %v", got, want)
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name, text, tie, want string
	}{
		{"english", "The cat and the dog were here", LangEN, LangEN},
		{"german", "Der Hund und die Katze ist nicht da", LangEN, LangDE},
		{"lowercase sie counts", "sie sie sie", LangEN, LangDE},
		{"tie uses default", "", LangDE, LangDE},
		{"empty tie falls back to EN", "Hallo world", "", LangEN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text, tt.tie); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
