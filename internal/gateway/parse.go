package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrSchema means the model's answer could not be read as a valid
	// analysis document. It is not retried.
	ErrSchema = errors.New("ai response does not match schema")

	// ErrTransport means the provider could not be reached successfully
	// within the retry budget.
	ErrTransport = errors.New("ai transport failed")
)

var (
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	arrayPattern  = regexp.MustCompile(`(?s)\[.*\]`)
)

var requiredFields = []string{"story_event", "subtext", "turning_point", "on_stage", "protagonist_mood"}

var listFields = []string{"on_stage", "off_stage"}

var stringFields = []string{
	"story_event", "subtext", "turning_point", "turning_point_moment", "protagonist_mood",
	"int_ext", "location", "time_of_day",
	"evidence", "information_flow", "knowledge_gap", "redundancy", "suspect_status",
	"hero_journey", "act", "plot_point_actual", "plot_point_expected",
}

// StripFences removes a surrounding markdown code fence.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```JSON")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// decodeObject reads a JSON object out of a model answer, salvaging the
// outermost {...} span when the answer has surrounding prose.
func decodeObject(content string) (map[string]any, error) {
	content = StripFences(content)

	var doc map[string]any
	if err := json.Unmarshal([]byte(content), &doc); err == nil && doc != nil {
		return doc, nil
	}
	span := objectPattern.FindString(content)
	if span == "" {
		return nil, fmt.Errorf("%w: no JSON object in response: %s", ErrSchema, truncate(content, 200))
	}
	if err := json.Unmarshal([]byte(span), &doc); err != nil || doc == nil {
		return nil, fmt.Errorf("%w: could not parse JSON from response: %s", ErrSchema, truncate(content, 200))
	}
	return doc, nil
}

// ParseArray decodes a JSON array from a model answer into v, salvaging the
// outermost [...] span when needed.
func ParseArray(content string, v any) error {
	content = StripFences(content)
	if err := json.Unmarshal([]byte(content), v); err == nil {
		return nil
	}
	span := arrayPattern.FindString(content)
	if span == "" {
		return fmt.Errorf("%w: no JSON array in response: %s", ErrSchema, truncate(content, 200))
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

// normalize backfills required fields and coerces field types in place.
func normalize(doc map[string]any) {
	for _, f := range listFields {
		doc[f] = toStringList(doc[f])
	}
	for _, f := range stringFields {
		v, ok := doc[f]
		if !ok {
			continue
		}
		if v == nil {
			delete(doc, f)
			continue
		}
		if _, isString := v.(string); !isString {
			doc[f] = stringify(v)
		}
	}
	for _, f := range requiredFields {
		if _, ok := doc[f]; !ok {
			doc[f] = Unknown
		}
	}
}

// toStringList returns v as a list of strings. Non-lists become empty lists.
func toStringList(v any) []any {
	items, ok := v.([]any)
	if !ok {
		return []any{}
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		switch s := item.(type) {
		case nil:
		case string:
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		default:
			out = append(out, stringify(s))
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// ParseSceneAnalysis turns a raw model answer into a validated analysis of
// the given variant.
func ParseSceneAnalysis(content string, v Variant) (*SceneAnalysis, error) {
	doc, err := decodeObject(content)
	if err != nil {
		return nil, err
	}
	normalize(doc)

	if err := validateAgainst(v, doc); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	var decoded combinedDoc
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return decoded.toAnalysis(v), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
