package parser

import (
	"reflect"
	"strings"
	"testing"
)

const threeScenes = `INT. KITCHEN - DAY

ANNA
Coffee?

EXT. STREET - NIGHT

PETER (V.O.)
Run.

INNEN. BÜRO - ABEND
ANNA sits.
`

func TestSegment_Sluglines(t *testing.T) {
	scenes := Segment(threeScenes)
	if len(scenes) != 3 {
		t.Fatalf("len(scenes) = %d, want 3", len(scenes))
	}

	want := []struct {
		intExt, location, timeOfDay string
		characters                  []string
	}{
		{"INT", "KITCHEN", "DAY", []string{"ANNA"}},
		{"EXT", "STREET", "NIGHT", []string{"PETER"}},
		{"INT", "BÜRO", "ABEND", []string{}},
	}
	for i, w := range want {
		s := scenes[i]
		if s.Number != i+1 {
			t.Errorf("scene %d: Number = %d", i, s.Number)
		}
		if s.IntExt != w.intExt {
			t.Errorf("scene %d: IntExt = %q, want %q", i, s.IntExt, w.intExt)
		}
		if s.Location != w.location {
			t.Errorf("scene %d: Location = %q, want %q", i, s.Location, w.location)
		}
		if s.TimeOfDay != w.timeOfDay {
			t.Errorf("scene %d: TimeOfDay = %q, want %q", i, s.TimeOfDay, w.timeOfDay)
		}
		if !reflect.DeepEqual(s.Characters, w.characters) {
			t.Errorf("scene %d: Characters = %v, want %v", i, s.Characters, w.characters)
		}
		if s.StartLine == nil || s.EndLine == nil {
			t.Errorf("scene %d: missing line range", i)
		}
		if s.Page < 1 {
			t.Errorf("scene %d: Page = %d, want >= 1", i, s.Page)
		}
	}

	if scenes[0].Text != "ANNA\nCoffee?" {
		t.Errorf("scene 1 text = %q", scenes[0].Text)
	}
	if *scenes[0].EndLine != *scenes[1].StartLine-1 {
		t.Errorf("scene 1 ends at %d, scene 2 starts at %d", *scenes[0].EndLine, *scenes[1].StartLine)
	}
}

func TestSegment_Idempotent(t *testing.T) {
	first := Segment(threeScenes)
	second := Segment(threeScenes)
	if !reflect.DeepEqual(first, second) {
		t.Error("segmenting the same text twice gave different scenes")
	}
}

func TestSegment_MissingParts(t *testing.T) {
	scenes := Segment("EXT. PARKING LOT\nCars.\n")
	if len(scenes) != 1 {
		t.Fatalf("len(scenes) = %d, want 1", len(scenes))
	}
	if scenes[0].TimeOfDay != Unknown {
		t.Errorf("TimeOfDay = %q, want %q", scenes[0].TimeOfDay, Unknown)
	}
	if scenes[0].Location != "PARKING LOT" {
		t.Errorf("Location = %q, want PARKING LOT", scenes[0].Location)
	}
}

func TestSegment_Empty(t *testing.T) {
	for _, text := range []string{"", "   \n\n\t  "} {
		if scenes := Segment(text); len(scenes) != 0 {
			t.Errorf("Segment(%q) returned %d scenes", text, len(scenes))
		}
	}
}

func TestSegment_PageEstimate(t *testing.T) {
	var b strings.Builder
	b.WriteString("INT. ROOM - DAY\n")
	for i := 0; i < 120; i++ {
		b.WriteString("Action.\n")
	}
	b.WriteString("EXT. YARD - DAY\nGrass.\n")

	scenes := Segment(b.String())
	if len(scenes) != 2 {
		t.Fatalf("len(scenes) = %d, want 2", len(scenes))
	}
	if scenes[0].Page != 1 {
		t.Errorf("scene 1 Page = %d, want 1", scenes[0].Page)
	}
	// heading of scene 2 sits on line 121
	if scenes[1].Page != 2 {
		t.Errorf("scene 2 Page = %d, want 2", scenes[1].Page)
	}
	if scenes[0].LengthMinutes <= scenes[1].LengthMinutes {
		t.Errorf("LengthMinutes = %v, %v; want the long scene first", scenes[0].LengthMinutes, scenes[1].LengthMinutes)
	}
}

func TestNormalizeIntExt(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"INT.", "INT"},
		{"ext", "EXT"},
		{"INNEN", "INT"},
		{"AUSSEN.", "EXT"},
		{"I/E", "INT/EXT"},
		{"INT./EXT", "INT/EXT"},
		{"INNEN/AUSSEN", "INT/EXT"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeIntExt(tt.in); got != tt.want {
				t.Errorf("NormalizeIntExt(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseHeading(t *testing.T) {
	tests := []struct {
		line                        string
		intExt, location, timeOfDay string
		ok                          bool
	}{
		{"INT. KITCHEN - DAY", "INT", "KITCHEN", "DAY", true},
		{"int/ext. car - moving", "INT/EXT", "car", "moving", true},
		{"I/E TRAIN - NIGHT", "INT/EXT", "TRAIN", "NIGHT", true},
		{"AUSSEN. HOF - TAG", "EXT", "HOF", "TAG", true},
		{"  EXT. BEACH  ", "EXT", "BEACH", Unknown, true},
		{"Ext. garden - day", "EXT", "garden", "day", true},
		{"INTERIOR DESIGN", "", "", "", false},
		{"Anna enters.", "", "", "", false},
		{"Innen ist es still, nur die Uhr tickt.", "", "", "", false},
		{"Int is a type name", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			ie, loc, tod, ok := ParseHeading(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if ie != tt.intExt || loc != tt.location || tod != tt.timeOfDay {
				t.Errorf("ParseHeading(%q) = (%q, %q, %q), want (%q, %q, %q)",
					tt.line, ie, loc, tod, tt.intExt, tt.location, tt.timeOfDay)
			}
		})
	}
}

func TestSegment_Treatment(t *testing.T) {
	text := `Anna wakes up early morning in the bedroom. She looks outside.

She makes coffee.

Später

Peter runs down the street at night.

Nothing happens for a while`

	scenes := Segment(text)
	if len(scenes) != 2 {
		t.Fatalf("len(scenes) = %d, want 2", len(scenes))
	}

	first := scenes[0]
	if first.TimeOfDay != "EARLY MORNING" {
		t.Errorf("scene 1 TimeOfDay = %q, want EARLY MORNING", first.TimeOfDay)
	}
	if first.Location != "Bedroom" {
		t.Errorf("scene 1 Location = %q, want Bedroom", first.Location)
	}
	if first.IntExt != Exterior {
		t.Errorf("scene 1 IntExt = %q, want EXT", first.IntExt)
	}
	if !strings.HasSuffix(first.Text, "She makes coffee.") {
		t.Errorf("scene 1 Text = %q", first.Text)
	}
	if first.StartLine != nil {
		t.Error("treatment scenes should not carry line ranges")
	}

	second := scenes[1]
	if !strings.HasPrefix(second.Text, "Später") {
		t.Errorf("scene 2 should open with the transition, got %q", second.Text)
	}
	if second.TimeOfDay != "NIGHT" || second.Location != "Street" || second.IntExt != Exterior {
		t.Errorf("scene 2 = (%q, %q, %q), want (EXT, Street, NIGHT)", second.IntExt, second.Location, second.TimeOfDay)
	}
}

func TestSegment_TreatmentUnresolved(t *testing.T) {
	scenes := Segment("Nothing much is said here")
	if len(scenes) != 1 {
		t.Fatalf("len(scenes) = %d, want 1", len(scenes))
	}
	s := scenes[0]
	if s.IntExt != Unresolved || s.Location != Unresolved || s.TimeOfDay != Unresolved {
		t.Errorf("scene = (%q, %q, %q), want all %q", s.IntExt, s.Location, s.TimeOfDay, Unresolved)
	}
}

func TestSegment_TreatmentWordLimit(t *testing.T) {
	long := strings.Repeat("word ", 501)
	text := long + "\n\n" + "short paragraph" + "\n\n" + "another one"

	scenes := Segment(text)
	if len(scenes) != 2 {
		t.Fatalf("len(scenes) = %d, want 2", len(scenes))
	}
	if scenes[1].Text != "short paragraph\n\nanother one" {
		t.Errorf("scene 2 Text = %q", scenes[1].Text)
	}
}

func TestSegmentMarked(t *testing.T) {
	text := "ROOFTOP - DUSK\nWind.\nINT. HALL - DAY\nSteps."
	scenes := SegmentMarked(text, map[int]bool{0: true, 2: true})
	if len(scenes) != 2 {
		t.Fatalf("len(scenes) = %d, want 2", len(scenes))
	}
	if scenes[0].IntExt != Exterior || scenes[0].Location != "ROOFTOP" || scenes[0].TimeOfDay != "DUSK" {
		t.Errorf("scene 1 = (%q, %q, %q)", scenes[0].IntExt, scenes[0].Location, scenes[0].TimeOfDay)
	}
	if scenes[1].IntExt != Interior || scenes[1].Location != "HALL" {
		t.Errorf("scene 2 = (%q, %q)", scenes[1].IntExt, scenes[1].Location)
	}
}

func TestSegment_PlacementOrder(t *testing.T) {
	text := "INT. ROOM A - DAY\nOne.\nEXT. ROOM B - NIGHT\nTwo.\nINT./EXT. ROOM C - DAWN\nThree.\n"
	scenes := Segment(text)
	if len(scenes) != 3 {
		t.Fatalf("len(scenes) = %d, want 3", len(scenes))
	}
	want := []struct{ intExt, location, timeOfDay string }{
		{"INT", "ROOM A", "DAY"},
		{"EXT", "ROOM B", "NIGHT"},
		{"INT/EXT", "ROOM C", "DAWN"},
	}
	for i, w := range want {
		s := scenes[i]
		if s.Number != i+1 {
			t.Errorf("scene %d: Number = %d, want %d", i, s.Number, i+1)
		}
		if s.IntExt != w.intExt || s.Location != w.location || s.TimeOfDay != w.timeOfDay {
			t.Errorf("scene %d = (%q, %q, %q), want (%q, %q, %q)",
				i, s.IntExt, s.Location, s.TimeOfDay, w.intExt, w.location, w.timeOfDay)
		}
	}
}

func TestSegment_GermanProseIsTreatment(t *testing.T) {
	text := `Marie packt ihre Koffer und verlässt die Wohnung.

Sie ruft ihren Bruder an.

Innen ist es still, nur die Uhr tickt.

Am nächsten Tag fährt sie ans Meer.`

	scenes := Segment(text)
	if len(scenes) != 2 {
		t.Fatalf("len(scenes) = %d, want 2", len(scenes))
	}
	wantFirst := "Marie packt ihre Koffer und verlässt die Wohnung.\n\nSie ruft ihren Bruder an.\n\nInnen ist es still, nur die Uhr tickt."
	if scenes[0].Text != wantFirst {
		t.Errorf("scene 1 Text = %q, want %q", scenes[0].Text, wantFirst)
	}
	if scenes[1].Text != "Am nächsten Tag fährt sie ans Meer." {
		t.Errorf("scene 2 Text = %q", scenes[1].Text)
	}
	if scenes[0].StartLine != nil {
		t.Error("scene 1 was segmented as a slugline scene")
	}
}

func TestSegmentMarked_NoMarkedLines(t *testing.T) {
	text := "INT. ROOM A - DAY\nOne.\nEXT. ROOM B - NIGHT\nTwo."
	scenes := SegmentMarked(text, map[int]bool{})
	if len(scenes) != 2 {
		t.Fatalf("len(scenes) = %d, want 2", len(scenes))
	}
	if scenes[1].IntExt != Exterior || scenes[1].Location != "ROOM B" || scenes[1].TimeOfDay != "NIGHT" {
		t.Errorf("scene 2 = (%q, %q, %q), want (EXT, ROOM B, NIGHT)", scenes[1].IntExt, scenes[1].Location, scenes[1].TimeOfDay)
	}
}
