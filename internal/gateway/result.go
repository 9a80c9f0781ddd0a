package gateway

import (
	"fmt"
	"strings"
)

// Mode selects which field groups an analysis returns.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeTatort   Mode = "tatort"
	ModeStory    Mode = "story"
	ModeCombined Mode = "combined"
)

// Modes lists every accepted mode.
var Modes = []Mode{ModeStandard, ModeTatort, ModeStory, ModeCombined}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (want standard, tatort, story or combined)", s)
}

// HasCrime reports whether the mode asks for investigation fields.
func (m Mode) HasCrime() bool {
	return m == ModeTatort || m == ModeCombined
}

// HasNarrative reports whether the mode asks for story-structure fields.
func (m Mode) HasNarrative() bool {
	return m == ModeStory || m == ModeCombined
}

// Variant returns the result shape produced for this mode.
func (m Mode) Variant() Variant {
	switch {
	case m.HasCrime() && m.HasNarrative():
		return VariantCombined
	case m.HasCrime():
		return VariantCrime
	case m.HasNarrative():
		return VariantNarrative
	default:
		return VariantBase
	}
}

// Language codes accepted for prompts and reports.
const (
	LangDE = "DE"
	LangEN = "EN"
)

// Variant tags which field groups of a SceneAnalysis are populated.
type Variant string

const (
	VariantBase      Variant = "base"
	VariantCrime     Variant = "crime"
	VariantNarrative Variant = "narrative"
	VariantCombined  Variant = "combined"
)

// Unknown is the backfill value for required fields the model omitted.
const Unknown = "Unknown"

// Base holds the fields every mode returns.
type Base struct {
	StoryEvent         string   `json:"story_event" jsonschema:"required"`
	Subtext            string   `json:"subtext" jsonschema:"required"`
	TurningPoint       string   `json:"turning_point" jsonschema:"required"`
	TurningPointMoment string   `json:"turning_point_moment,omitempty"`
	OnStage            []string `json:"on_stage" jsonschema:"required"`
	OffStage           []string `json:"off_stage"`
	ProtagonistMood    string   `json:"protagonist_mood" jsonschema:"required"`

	// Scene metadata the model may correct.
	IntExt    string `json:"int_ext,omitempty"`
	Location  string `json:"location,omitempty"`
	TimeOfDay string `json:"time_of_day,omitempty"`
}

// CrimeFields are returned for tatort and combined analyses.
type CrimeFields struct {
	Evidence        string `json:"evidence,omitempty"`
	InformationFlow string `json:"information_flow,omitempty"`
	KnowledgeGap    string `json:"knowledge_gap,omitempty"`
	Redundancy      string `json:"redundancy,omitempty"`
	SuspectStatus   string `json:"suspect_status,omitempty"`
}

// NarrativeFields are returned for story and combined analyses.
type NarrativeFields struct {
	HeroJourney       string `json:"hero_journey,omitempty"`
	Act               string `json:"act,omitempty"`
	PlotPointActual   string `json:"plot_point_actual,omitempty"`
	PlotPointExpected string `json:"plot_point_expected,omitempty"`
}

// SceneAnalysis is the validated result for one scene. Crime and Narrative
// are non-nil exactly when Variant includes them.
type SceneAnalysis struct {
	Variant Variant `json:"variant"`
	Base
	Crime     *CrimeFields     `json:"crime,omitempty"`
	Narrative *NarrativeFields `json:"narrative,omitempty"`
}

// NewSceneAnalysis returns an empty analysis of the given variant with the
// matching groups allocated.
func NewSceneAnalysis(v Variant) *SceneAnalysis {
	a := &SceneAnalysis{Variant: v}
	if v == VariantCrime || v == VariantCombined {
		a.Crime = &CrimeFields{}
	}
	if v == VariantNarrative || v == VariantCombined {
		a.Narrative = &NarrativeFields{}
	}
	return a
}

// Document shapes the model is asked to return, one per variant. They exist
// for schema reflection and decoding.
type (
	baseDoc struct {
		Base
	}
	crimeDoc struct {
		Base
		CrimeFields
	}
	narrativeDoc struct {
		Base
		NarrativeFields
	}
	combinedDoc struct {
		Base
		CrimeFields
		NarrativeFields
	}
)

func (d combinedDoc) toAnalysis(v Variant) *SceneAnalysis {
	a := NewSceneAnalysis(v)
	a.Base = d.Base
	if a.Crime != nil {
		*a.Crime = d.CrimeFields
	}
	if a.Narrative != nil {
		*a.Narrative = d.NarrativeFields
	}
	return a
}
