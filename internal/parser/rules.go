package parser

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Field names a scene attribute that treatment rules can fill.
type Field string

const (
	FieldTimeOfDay Field = "time_of_day"
	FieldLocation  Field = "location"
	FieldIntExt    Field = "int_ext"
)

// Locale tags the vocabulary a rule is written in. LocaleAny rows mix languages.
type Locale string

const (
	LocaleEN  Locale = "en"
	LocaleDE  Locale = "de"
	LocaleAny Locale = "*"
)

// Rule maps a pattern match to a field value. Rules are evaluated in table
// order and the first match per field wins.
type Rule struct {
	Field   Field
	Locale  Locale
	Pattern *regexp.Regexp
	// Value turns the match into the stored value. Nil stores Fixed.
	Value func(match string) string
	Fixed string
}

func (r Rule) apply(text string) (string, bool) {
	m := r.Pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if r.Value == nil {
		return r.Fixed, true
	}
	captured := m[0]
	if len(m) > 1 {
		captured = m[1]
	}
	return r.Value(strings.TrimSpace(captured)), true
}

var titleCaser = cases.Title(language.Und)

func upper(s string) string { return strings.ToUpper(s) }

func title(s string) string { return titleCaser.String(strings.ToLower(s)) }

// TreatmentRules is the ordered enrichment table applied to the opening
// sentences of a treatment scene.
var TreatmentRules = []Rule{
	// time of day, multi-word forms first
	{Field: FieldTimeOfDay, Locale: LocaleEN, Value: upper,
		Pattern: regexp.MustCompile(`(?i)\b((?:early|late) (?:morning|afternoon|evening|night))\b`)},
	{Field: FieldTimeOfDay, Locale: LocaleAny, Value: upper,
		Pattern: regexp.MustCompile(`(?i)\b(morning|morgens?|vormittag)\b`)},
	{Field: FieldTimeOfDay, Locale: LocaleAny, Value: upper,
		Pattern: regexp.MustCompile(`(?i)\b(noon|mittags?)\b`)},
	{Field: FieldTimeOfDay, Locale: LocaleAny, Value: upper,
		Pattern: regexp.MustCompile(`(?i)\b(afternoon|nachmittags?)\b`)},
	{Field: FieldTimeOfDay, Locale: LocaleAny, Value: upper,
		Pattern: regexp.MustCompile(`(?i)\b(evening|abends?)\b`)},
	{Field: FieldTimeOfDay, Locale: LocaleAny, Value: upper,
		Pattern: regexp.MustCompile(`(?i)\b(night|nachts?)\b`)},
	{Field: FieldTimeOfDay, Locale: LocaleAny, Value: upper,
		Pattern: regexp.MustCompile(`(?i)\b(dawn|dusk|dämmerung)\b`)},

	// location: prepositional forms before bare nouns
	{Field: FieldLocation, Locale: LocaleEN, Value: title,
		Pattern: regexp.MustCompile(`(?i)\b(?:in|im|at)\s+(?:the|der|dem|den)?\s*(bedroom|kitchen|living room|bathroom|apartment|office|studio|hallway|courtyard|stairs|roof)\b`)},
	{Field: FieldLocation, Locale: LocaleDE, Value: title,
		Pattern: regexp.MustCompile(`(?i)\b(?:in|im|in der|in dem)\s+(schlafzimmer|küche|wohnzimmer|badezimmer|bad|wohnung|büro|flur|treppenhaus|hof|dach)\b`)},
	{Field: FieldLocation, Locale: LocaleEN, Value: title,
		Pattern: regexp.MustCompile(`(?i)\b(bedroom|kitchen|living room|bathroom|apartment|courtyard|roof|office|studio|hallway|stairs|house|street|playground|kindergarten|construction site)\b`)},

	// placement: exterior cues win over interior cues
	{Field: FieldIntExt, Locale: LocaleAny, Fixed: Exterior,
		Pattern: regexp.MustCompile(`(?i)\b(outside|exterior|street|straße|draußen|außen|courtyard|roof|dach|playground)\b`)},
	{Field: FieldIntExt, Locale: LocaleAny, Fixed: Interior,
		Pattern: regexp.MustCompile(`(?i)\b(inside|interior|bedroom|kitchen|living room|apartment|zimmer|schlafzimmer|küche|wohnzimmer|wohnung|raum|room|bathroom|bad|hallway|flur|stairs|treppenhaus)\b`)},
}

// ApplyRules evaluates rules in order against text and returns the first
// value found for each field.
func ApplyRules(rules []Rule, text string) map[Field]string {
	out := make(map[Field]string, 3)
	for _, r := range rules {
		if _, done := out[r.Field]; done {
			continue
		}
		if v, ok := r.apply(text); ok {
			out[r.Field] = v
		}
	}
	return out
}

// TransitionCue marks a paragraph that opens a new treatment scene.
type TransitionCue struct {
	Locale  Locale
	Pattern *regexp.Regexp
}

// TransitionCues are matched against the start of each treatment paragraph.
var TransitionCues = []TransitionCue{
	{LocaleDE, regexp.MustCompile(`(?i)^später`)},
	{LocaleDE, regexp.MustCompile(`(?i)^am nächsten tag`)},
	{LocaleDE, regexp.MustCompile(`(?i)^währenddessen`)},
	{LocaleDE, regexp.MustCompile(`(?i)^unterdessen`)},
	{LocaleDE, regexp.MustCompile(`(?i)^in der`)},
	{LocaleDE, regexp.MustCompile(`(?i)^im\s+\w+`)},
	{LocaleDE, regexp.MustCompile(`(?i)^draus(?:s|ß)en`)},
	{LocaleDE, regexp.MustCompile(`(?i)^drinnen`)},
	{LocaleEN, regexp.MustCompile(`(?i)^later\b`)},
	{LocaleEN, regexp.MustCompile(`(?i)^meanwhile\b`)},
	{LocaleEN, regexp.MustCompile(`(?i)^the next day\b`)},
}

func isTransition(paragraph string) bool {
	for _, c := range TransitionCues {
		if c.Pattern.MatchString(paragraph) {
			return true
		}
	}
	return false
}
