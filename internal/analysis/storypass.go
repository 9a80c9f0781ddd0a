package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackzampolin/slate/internal/gateway"
	"github.com/jackzampolin/slate/internal/jobs"
)

// Act labels assigned by position in the script.
const (
	ActI   = "Act I"
	ActIIA = "Act II-A"
	ActIIB = "Act II-B"
	ActIII = "Act III"
)

const storyPassMaxTokens = 4000

// ActForPosition returns the act of the scene at 0-based idx of total.
func ActForPosition(idx, total int) string {
	if total <= 0 {
		return ActI
	}
	switch pos := float64(idx) / float64(total); {
	case pos < 0.25:
		return ActI
	case pos < 0.50:
		return ActIIA
	case pos < 0.75:
		return ActIIB
	default:
		return ActIII
	}
}

// BuildStoryPrompt asks for the hero's journey stage, act and plot points of
// every scene, given one summary line per scene.
func BuildStoryPrompt(results []Result, language string) string {
	var b strings.Builder
	b.WriteString("Analyze the story structure of this screenplay. Each line is one scene: number | location | story event.\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "%d | %s | %s\n", r.Number, r.Location, r.StoryEvent)
	}
	b.WriteString(`
For every scene determine:
- hero_journey: the stage of the hero's journey (e.g. Ordinary World, Call to Adventure, Refusal of the Call, Meeting the Mentor, Crossing the Threshold, Tests Allies Enemies, Approach, Ordeal, Reward, The Road Back, Resurrection, Return with the Elixir) or "Not Applicable"
- act: "Act I" for the first 25% of scenes, "Act II-A" for 25-50%, "Act II-B" for 50-75%, "Act III" for 75-100%
- plot_point_actual: the plot point this scene contains (Inciting Incident, Plot Point 1, Midpoint, Plot Point 2, Climax) or "None"
- plot_point_expected: the plot point expected at this position in a classic structure, or "None"

Each major plot point occurs at most once in the whole script.
`)
	if language == gateway.LangDE {
		b.WriteString("Write hero_journey and plot point descriptions in German.\n")
	}
	b.WriteString(`
Reply ONLY with a JSON array, one object per scene:
[{"scene": 1, "hero_journey": "...", "act": "Act I", "plot_point_actual": "None", "plot_point_expected": "None"}]
`)
	return b.String()
}

type structureEntry struct {
	Scene             any    `json:"scene"`
	HeroJourney       string `json:"hero_journey"`
	Act               string `json:"act"`
	PlotPointActual   string `json:"plot_point_actual"`
	PlotPointExpected string `json:"plot_point_expected"`
}

// sceneNumber reads the scene field, which models return as a number or a
// string.
func (e structureEntry) sceneNumber() (int, bool) {
	switch v := e.Scene.(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

// ApplyStoryStructure parses the story pass answer into results. Entries
// match scenes by number, or by position when the number is missing.
// Scenes the answer skips get their act from their position.
func ApplyStoryStructure(results []Result, content string) error {
	var entries []structureEntry
	if err := gateway.ParseArray(content, &entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("story structure answer has no entries")
	}

	byNumber := make(map[int]int, len(results))
	for i, r := range results {
		byNumber[r.Number] = i
	}

	applied := make([]bool, len(results))
	for pos, e := range entries {
		idx := -1
		if n, ok := e.sceneNumber(); ok {
			if i, found := byNumber[n]; found {
				idx = i
			}
		} else if pos < len(results) {
			idx = pos
		}
		if idx < 0 {
			continue
		}

		nf := narrativeOf(&results[idx])
		nf.HeroJourney = e.HeroJourney
		nf.Act = e.Act
		nf.PlotPointActual = e.PlotPointActual
		nf.PlotPointExpected = e.PlotPointExpected
		if nf.Act == "" {
			nf.Act = ActForPosition(idx, len(results))
		}
		applied[idx] = true
	}

	for i := range results {
		if !applied[i] {
			narrativeOf(&results[i]).Act = ActForPosition(i, len(results))
		}
	}
	return nil
}

// markStoryFailure fills every scene with the story pass error.
func markStoryFailure(results []Result, err error) {
	for i := range results {
		nf := narrativeOf(&results[i])
		nf.HeroJourney = "Not Applicable"
		nf.Act = ActI
		nf.PlotPointActual = "None"
		nf.PlotPointExpected = fmt.Sprintf("Error: %v", err)
	}
}

func narrativeOf(r *Result) *gateway.NarrativeFields {
	if r.Narrative == nil {
		r.Narrative = &gateway.NarrativeFields{}
	}
	return r.Narrative
}

// storyPass runs the structure pass. It never fails the job.
func (o *Orchestrator) storyPass(ctx context.Context, job *jobs.Job, language string, logger *slog.Logger) {
	if len(job.Results) == 0 {
		return
	}
	content, err := o.analyzer.Complete(ctx, BuildStoryPrompt(job.Results, language), job.Model, storyPassMaxTokens)
	if err == nil {
		err = ApplyStoryStructure(job.Results, content)
	}
	if err != nil {
		logger.Warn("story structure pass failed", "error", err)
		markStoryFailure(job.Results, err)
	}
}
