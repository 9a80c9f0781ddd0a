package gateway

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`  {"a":1}  `, `{"a":1}`},
	}
	for _, tt := range tests {
		if got := StripFences(tt.in); got != tt.want {
			t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSceneAnalysis(t *testing.T) {
	t.Run("salvages object from prose", func(t *testing.T) {
		content := `Here is the analysis: {"story_event":"A","subtext":"B","turning_point":"None","on_stage":["X"],"protagonist_mood":"Hopeful"} Hope this helps!`
		got, err := ParseSceneAnalysis(content, VariantBase)
		if err != nil {
			t.Fatalf("ParseSceneAnalysis() error = %v", err)
		}
		if got.StoryEvent != "A" || len(got.OnStage) != 1 {
			t.Errorf("got %+v", got.Base)
		}
	})

	t.Run("salvage spans nested objects", func(t *testing.T) {
		content := `Result: {"story_event":"A","meta":{"k":"v"},"subtext":"B"} end`
		got, err := ParseSceneAnalysis(content, VariantBase)
		if err != nil {
			t.Fatalf("ParseSceneAnalysis() error = %v", err)
		}
		if got.Subtext != "B" {
			t.Errorf("Subtext = %q, want %q", got.Subtext, "B")
		}
	})

	t.Run("backfills required fields", func(t *testing.T) {
		got, err := ParseSceneAnalysis(`{"story_event":"A"}`, VariantBase)
		if err != nil {
			t.Fatalf("ParseSceneAnalysis() error = %v", err)
		}
		if got.Subtext != Unknown || got.TurningPoint != Unknown || got.ProtagonistMood != Unknown {
			t.Errorf("backfill = %q/%q/%q, want Unknown", got.Subtext, got.TurningPoint, got.ProtagonistMood)
		}
		if got.OnStage == nil || len(got.OnStage) != 0 {
			t.Errorf("OnStage = %#v, want empty list", got.OnStage)
		}
		if got.OffStage == nil || len(got.OffStage) != 0 {
			t.Errorf("OffStage = %#v, want empty list", got.OffStage)
		}
	})

	t.Run("coerces types", func(t *testing.T) {
		content := `{"story_event":42,"subtext":null,"turning_point":true,"on_stage":"ANNA","off_stage":["BOB",7,null,""],"protagonist_mood":"Angry"}`
		got, err := ParseSceneAnalysis(content, VariantBase)
		if err != nil {
			t.Fatalf("ParseSceneAnalysis() error = %v", err)
		}
		if got.StoryEvent != "42" {
			t.Errorf("StoryEvent = %q, want %q", got.StoryEvent, "42")
		}
		if got.Subtext != Unknown {
			t.Errorf("Subtext = %q, want %q", got.Subtext, Unknown)
		}
		if got.TurningPoint != "true" {
			t.Errorf("TurningPoint = %q, want %q", got.TurningPoint, "true")
		}
		if len(got.OnStage) != 0 {
			t.Errorf("OnStage = %v, want empty (non-list)", got.OnStage)
		}
		if len(got.OffStage) != 2 || got.OffStage[0] != "BOB" || got.OffStage[1] != "7" {
			t.Errorf("OffStage = %v, want [BOB 7]", got.OffStage)
		}
	})

	t.Run("variant groups", func(t *testing.T) {
		content := `{"story_event":"A","evidence":"gun","hero_journey":"Ordeal"}`

		crime, err := ParseSceneAnalysis(content, VariantCrime)
		if err != nil {
			t.Fatalf("ParseSceneAnalysis() error = %v", err)
		}
		if crime.Crime == nil || crime.Crime.Evidence != "gun" {
			t.Errorf("Crime = %+v", crime.Crime)
		}
		if crime.Narrative != nil {
			t.Error("crime variant should not carry narrative fields")
		}

		base, _ := ParseSceneAnalysis(content, VariantBase)
		if base.Crime != nil || base.Narrative != nil {
			t.Error("base variant should carry no extra groups")
		}
	})

	t.Run("unparseable", func(t *testing.T) {
		for _, content := range []string{"", "no json here", "[1,2,3]", "{broken"} {
			if _, err := ParseSceneAnalysis(content, VariantBase); !errors.Is(err, ErrSchema) {
				t.Errorf("ParseSceneAnalysis(%q) error = %v, want ErrSchema", content, err)
			}
		}
	})
}

func TestValidateAgainst(t *testing.T) {
	var doc any
	if err := json.Unmarshal([]byte(`{"story_event":5,"subtext":"x","turning_point":"None","on_stage":[],"protagonist_mood":"x"}`), &doc); err != nil {
		t.Fatal(err)
	}
	if err := validateAgainst(VariantBase, doc); !errors.Is(err, ErrSchema) {
		t.Errorf("validateAgainst(story_event=5) error = %v, want ErrSchema", err)
	}

	if err := json.Unmarshal([]byte(`{"subtext":"x"}`), &doc); err != nil {
		t.Fatal(err)
	}
	if err := validateAgainst(VariantBase, doc); !errors.Is(err, ErrSchema) {
		t.Errorf("validateAgainst(missing required) error = %v, want ErrSchema", err)
	}
}

func TestSchemaFor(t *testing.T) {
	raw, err := SchemaFor(VariantCombined)
	if err != nil {
		t.Fatalf("SchemaFor() error = %v", err)
	}
	var schema struct {
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		t.Fatalf("unmarshal schema: %v", err)
	}
	for _, key := range []string{"story_event", "evidence", "hero_journey", "on_stage"} {
		if _, ok := schema.Properties[key]; !ok {
			t.Errorf("schema missing property %q", key)
		}
	}
	if len(schema.Required) != 5 {
		t.Errorf("required = %v, want 5 fields", schema.Required)
	}
}

func TestParseArray(t *testing.T) {
	var got []struct {
		Scene int    `json:"scene"`
		Act   string `json:"act"`
	}
	content := "Sure!\n```json\n[{\"scene\":1,\"act\":\"Act I\"},{\"scene\":2,\"act\":\"Act III\"}]\n```"
	if err := ParseArray(content, &got); err != nil {
		t.Fatalf("ParseArray() error = %v", err)
	}
	if len(got) != 2 || got[1].Act != "Act III" {
		t.Errorf("ParseArray() = %+v", got)
	}

	if err := ParseArray("nothing", &got); !errors.Is(err, ErrSchema) {
		t.Errorf("ParseArray(nothing) error = %v, want ErrSchema", err)
	}
}
