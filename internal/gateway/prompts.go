package gateway

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SystemPrompt is sent with every scene analysis.
const SystemPrompt = "You are a professional screenplay analyst. Analyze scenes accurately and return results in valid JSON format."

// maxSceneRunes bounds how much scene text is embedded in a prompt.
const maxSceneRunes = 2000

type exampleField struct {
	key   string
	value any
}

type promptText struct {
	intro, sceneLabel, outputLabel, closing string

	base, crime []exampleField
}

var promptsByLang = map[string]promptText{
	LangDE: {
		intro:       "Analysiere diese Szene und gib die Informationen als JSON zurück.",
		sceneLabel:  "SZENE:",
		outputLabel: "AUSGABE (als reines JSON, ohne Markdown):",
		closing:     "Wichtig: Antworte NUR mit dem JSON-Objekt, ohne zusätzlichen Text oder Markdown-Formatierung.",
		base: []exampleField{
			{"story_event", "Eine prägnante Zusammenfassung in einem Satz"},
			{"subtext", "Emotionale/unterschwellige Ebene in 5-10 Wörtern"},
			{"turning_point", "Action|Revelation|Decision|Realization|None"},
			{"turning_point_moment", "Der Moment, in dem die Wendung passiert"},
			{"on_stage", []string{"Charakter1", "Charakter2"}},
			{"off_stage", []string{"Erwähnter Charakter"}},
			{"protagonist_mood", "Wütend|Verzweifelt|Hoffnungsvoll|Erschöpft|Triumphierend|Verwirrt|Entschlossen"},
		},
		crime: []exampleField{
			{"evidence", "Gefundene Beweismittel oder Spuren"},
			{"information_flow", "Wahrheit|Lüge|Teilgeständnis|Verschweigen|Irreführung"},
			{"knowledge_gap", "Zuschauer>Figur|Figur>Zuschauer|Gleichstand"},
			{"redundancy", "Neue Info|Wiederholung|Variation"},
			{"suspect_status", "Verdachtslage der Verdächtigen in wenigen Worten"},
		},
	},
	LangEN: {
		intro:       "Analyze this scene and return the information as JSON.",
		sceneLabel:  "SCENE:",
		outputLabel: "OUTPUT (as pure JSON, no markdown):",
		closing:     "Important: Reply ONLY with the JSON object, without additional text or markdown formatting.",
		base: []exampleField{
			{"story_event", "A concise summary in one sentence"},
			{"subtext", "Emotional/subtext layer in 5-10 words"},
			{"turning_point", "Action|Revelation|Decision|Realization|None"},
			{"turning_point_moment", "The moment the turn happens"},
			{"on_stage", []string{"Character1", "Character2"}},
			{"off_stage", []string{"Mentioned Character"}},
			{"protagonist_mood", "Angry|Desperate|Hopeful|Exhausted|Triumphant|Confused|Determined"},
		},
		crime: []exampleField{
			{"evidence", "Found evidence or clues"},
			{"information_flow", "Truth|Lie|Partial confession|Concealment|Misdirection"},
			{"knowledge_gap", "Viewer>Character|Character>Viewer|Equal"},
			{"redundancy", "New info|Repetition|Variation"},
			{"suspect_status", "Suspicion on each suspect in a few words"},
		},
	},
}

// The story-structure vocabulary is English in both languages.
var narrativeExample = []exampleField{
	{"hero_journey", "Ordinary World|Call to Adventure|Crossing Threshold|Tests & Allies|Approach|Ordeal|Reward|Road Back|Resurrection|Return with Elixir|Not Applicable"},
	{"act", "Act I|Act II-A|Act II-B|Act III"},
	{"plot_point_actual", "Inciting Incident|Plot Point 1|Midpoint|Plot Point 2|Climax|Resolution|None"},
	{"plot_point_expected", "Expected plot point based on position"},
}

// BuildScenePrompt renders the user prompt for one scene. Unknown languages
// fall back to English.
func BuildScenePrompt(text string, mode Mode, language string) string {
	p, ok := promptsByLang[strings.ToUpper(language)]
	if !ok {
		p = promptsByLang[LangEN]
	}

	fields := append([]exampleField(nil), p.base...)
	if mode.HasCrime() {
		fields = append(fields, p.crime...)
	}
	if mode.HasNarrative() {
		fields = append(fields, narrativeExample...)
	}

	var b strings.Builder
	b.WriteString(p.intro)
	b.WriteString("\n\n")
	b.WriteString(p.sceneLabel)
	b.WriteString("\n")
	b.WriteString(truncate(text, maxSceneRunes))
	b.WriteString("\n\n")
	b.WriteString(p.outputLabel)
	b.WriteString("\n")
	b.WriteString(renderExample(fields))
	b.WriteString("\n\n")
	b.WriteString(p.closing)
	return b.String()
}

// renderExample writes fields as an indented JSON object in the given order.
func renderExample(fields []exampleField) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, f := range fields {
		b.WriteString("  ")
		b.WriteString(jsonValue(f.key))
		b.WriteString(": ")
		b.WriteString(jsonValue(f.value))
		if i < len(fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

func jsonValue(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return `""`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
