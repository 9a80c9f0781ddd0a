package gateway

import "sort"

// DefaultModel is the alias used when a request names no model or an
// unknown one.
const DefaultModel = "gpt-4o-mini"

// Model describes a selectable model alias and its list prices in USD per
// million tokens.
type Model struct {
	Alias       string  `json:"alias" yaml:"alias"`
	ID          string  `json:"id" yaml:"id"`
	InputPerM   float64 `json:"input_usd_per_million" yaml:"input_usd_per_million"`
	OutputPerM  float64 `json:"output_usd_per_million" yaml:"output_usd_per_million"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

var models = map[string]Model{
	"gpt-4o-mini":    {Alias: "gpt-4o-mini", ID: "openai/gpt-4o-mini", InputPerM: 0.15, OutputPerM: 0.60, Description: "fast and cheap, the default"},
	"gpt-4o":         {Alias: "gpt-4o", ID: "openai/gpt-4o", InputPerM: 2.50, OutputPerM: 10.00},
	"claude-3-haiku": {Alias: "claude-3-haiku", ID: "anthropic/claude-3-haiku", InputPerM: 0.25, OutputPerM: 1.25},
	"gemini-flash":   {Alias: "gemini-flash", ID: "google/gemini-1.5-flash", InputPerM: 0.075, OutputPerM: 0.30},
	"llama-70b":      {Alias: "llama-70b", ID: "meta-llama/llama-3.1-70b-instruct", InputPerM: 0.18, OutputPerM: 0.18},
}

// LookupModel returns the model for alias, falling back to DefaultModel.
// The bool reports whether alias itself was known.
func LookupModel(alias string) (Model, bool) {
	if m, ok := models[alias]; ok {
		return m, true
	}
	return models[DefaultModel], false
}

// ResolveModel maps an alias to the provider model id.
func ResolveModel(alias string) string {
	m, _ := LookupModel(alias)
	return m.ID
}

// Models returns every known alias, sorted by alias.
func Models() []Model {
	out := make([]Model, 0, len(models))
	for _, m := range models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}
