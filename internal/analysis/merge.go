package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jackzampolin/slate/internal/gateway"
	"github.com/jackzampolin/slate/internal/jobs"
	"github.com/jackzampolin/slate/internal/parser"
)

// Result is the per-scene analysis outcome stored on a job.
type Result = jobs.Result

// NotAnalyzed is the story event of scenes skipped by sampling.
const NotAnalyzed = "[Not analyzed - sample mode]"

func heuristicResult(scene parser.Scene) Result {
	chars := scene.Characters
	if chars == nil {
		chars = []string{}
	}
	return Result{
		Number:        scene.Number,
		IntExt:        scene.IntExt,
		Location:      scene.Location,
		TimeOfDay:     scene.TimeOfDay,
		Page:          scene.Page,
		LengthMinutes: scene.LengthMinutes,
		Characters:    chars,
		OnStage:       []string{},
		OffStage:      []string{},
	}
}

// Merge lays a model answer over a scene's heuristic metadata. Model values
// win unless they are empty or unknown.
func Merge(scene parser.Scene, a *gateway.SceneAnalysis) Result {
	r := heuristicResult(scene)
	r.IntExt = overrideIntExt(r.IntExt, a.IntExt)
	r.Location = override(r.Location, a.Location)
	r.TimeOfDay = override(r.TimeOfDay, a.TimeOfDay)

	r.StoryEvent = a.StoryEvent
	r.Subtext = a.Subtext
	r.TurningPoint = a.TurningPoint
	r.TurningPointMoment = a.TurningPointMoment
	if a.OnStage != nil {
		r.OnStage = a.OnStage
	}
	if a.OffStage != nil {
		r.OffStage = a.OffStage
	}
	r.ProtagonistMood = a.ProtagonistMood
	if a.Crime != nil {
		crime := *a.Crime
		r.Crime = &crime
	}
	if a.Narrative != nil {
		narrative := *a.Narrative
		r.Narrative = &narrative
	}
	r.Status = jobs.ResultAnalyzed
	return r
}

func override(heuristic, ai string) string {
	v := strings.TrimSpace(ai)
	if v == "" || strings.EqualFold(v, parser.Unknown) {
		return heuristic
	}
	return v
}

// overrideIntExt accepts a model placement only when it normalizes to INT,
// EXT or INT/EXT.
func overrideIntExt(heuristic, ai string) string {
	switch v := parser.NormalizeIntExt(ai); v {
	case parser.Interior, parser.Exterior, parser.InteriorExterior:
		return v
	}
	return heuristic
}

// failedResult records a scene whose analysis call failed.
func failedResult(scene parser.Scene, err error) Result {
	r := heuristicResult(scene)
	r.StoryEvent = fmt.Sprintf("Error: %v", err)
	r.Subtext = "Analysis failed"
	r.TurningPoint = "None"
	r.ProtagonistMood = gateway.Unknown
	r.Status = jobs.ResultFailed
	return r
}

// sampledResult stands in for a scene skipped by sampling.
func sampledResult(scene parser.Scene) Result {
	r := heuristicResult(scene)
	r.StoryEvent = NotAnalyzed
	r.ProtagonistMood = gateway.Unknown
	r.Status = jobs.ResultSampled
	return r
}

func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Number < results[j].Number
	})
}
