package parser

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// LinesPerPage is the screenplay convention used for page estimates.
	LinesPerPage = 55
	// MinutesPerPage converts estimated pages into screen time.
	MinutesPerPage = 1.0

	maxTreatmentWords = 500
	enrichWindow      = 500
	enrichSentences   = 3
)

// HeadingPattern matches a slugline: placement token, location and an
// optional time of day after " - ". English and German tokens are accepted.
var HeadingPattern = regexp.MustCompile(
	`(?i)^(INT\./EXT|INT/EXT|INNEN\.?/AUSSEN|I/E|INT|EXT|INNEN|AUSSEN)[.\s]+(.+?)(?:\s+[-–—]\s+(.+))?$`)

var (
	paragraphSplit = regexp.MustCompile(`\n\s*\n`)
	sentenceSplit  = regexp.MustCompile(`[.!?]+`)
)

// NormalizeIntExt maps a heading token to INT, EXT or INT/EXT.
func NormalizeIntExt(token string) string {
	v := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(token)), ".", "")
	switch v {
	case "INT/EXT", "INNEN/AUSSEN", "I/E":
		return InteriorExterior
	case "INNEN":
		return Interior
	case "AUSSEN":
		return Exterior
	}
	return v
}

// ParseHeading splits a slugline into placement, location and time of day.
// ok is false when line is not a heading. The placement token must be
// uppercase or end in a dot, so prose such as "Innen ist es still" is not a
// heading.
func ParseHeading(line string) (intExt, location, timeOfDay string, ok bool) {
	line = strings.TrimSpace(line)
	idx := HeadingPattern.FindStringSubmatchIndex(line)
	if idx == nil {
		return "", "", "", false
	}
	token := line[idx[2]:idx[3]]
	if token != strings.ToUpper(token) && !strings.HasPrefix(line[idx[3]:], ".") {
		return "", "", "", false
	}
	return splitHeading(line, idx)
}

// splitHeading builds the heading fields from a HeadingPattern match.
func splitHeading(line string, idx []int) (intExt, location, timeOfDay string, ok bool) {
	group := func(n int) string {
		if idx[2*n] < 0 {
			return ""
		}
		return strings.TrimSpace(line[idx[2*n]:idx[2*n+1]])
	}
	location = group(2)
	if location == "" {
		location = Unknown
	}
	timeOfDay = group(3)
	if timeOfDay == "" {
		timeOfDay = Unknown
	}
	return NormalizeIntExt(group(1)), location, timeOfDay, true
}

// parseMarkedHeading handles paragraphs a structured format tagged as scene
// headings even when they don't follow slugline syntax.
func parseMarkedHeading(line string) (intExt, location, timeOfDay string) {
	line = strings.TrimSpace(line)
	if idx := HeadingPattern.FindStringSubmatchIndex(line); idx != nil {
		ie, loc, tod, _ := splitHeading(line, idx)
		return ie, loc, tod
	}
	intExt = Exterior
	if strings.Contains(strings.ToUpper(line), "INT") {
		intExt = Interior
	}
	location, timeOfDay = line, Unknown
	if before, after, found := strings.Cut(line, "-"); found {
		location = strings.TrimSpace(before)
		timeOfDay = strings.TrimSpace(after)
	}
	if location == "" {
		location = Unknown
	}
	if timeOfDay == "" {
		timeOfDay = Unknown
	}
	return intExt, location, timeOfDay
}

// Segment splits text into scenes. Sluglines are tried first; the treatment
// pass runs only when no heading is found. Whitespace-only text yields no
// scenes.
func Segment(text string) []Scene {
	return SegmentMarked(text, nil)
}

// SegmentMarked is Segment with a set of line indexes the source format
// already identified as scene headings. With no marked lines the sluglines
// are found by pattern.
func SegmentMarked(text string, headings map[int]bool) []Scene {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if scenes := segmentSluglines(text, headings); len(scenes) > 0 {
		return scenes
	}
	return segmentTreatment(text)
}

func segmentSluglines(text string, headings map[int]bool) []Scene {
	lines := strings.Split(text, "\n")
	var (
		scenes  []Scene
		current *Scene
		body    []string
	)

	closeScene := func(end int) {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(strings.Join(body, "\n"))
		current.EndLine = intPtr(end)
		current.LengthMinutes = estimateLength(*current.StartLine, end)
		current.Characters = ExtractCharacters(current.Text)
		scenes = append(scenes, *current)
		current, body = nil, nil
	}

	for i, line := range lines {
		var (
			ie, loc, tod string
			isHeading    bool
		)
		if headings[i] {
			ie, loc, tod = parseMarkedHeading(line)
			isHeading = true
		} else if len(headings) == 0 {
			ie, loc, tod, isHeading = ParseHeading(line)
		}
		if !isHeading {
			if current != nil {
				body = append(body, line)
			}
			continue
		}
		closeScene(i - 1)
		current = &Scene{
			Number:    len(scenes) + 1,
			IntExt:    ie,
			Location:  loc,
			TimeOfDay: tod,
			StartLine: intPtr(i),
			Page:      EstimatePage(i),
		}
	}
	closeScene(len(lines) - 1)
	return scenes
}

func segmentTreatment(text string) []Scene {
	var (
		scenes  []Scene
		pending []string
		words   int
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		scenes = append(scenes, enrichTreatment(len(scenes)+1, strings.Join(pending, "\n\n")))
		pending, words = nil, 0
	}

	for _, para := range paragraphSplit.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if isTransition(para) || (words > maxTreatmentWords && len(pending) > 0) {
			flush()
		}
		pending = append(pending, para)
		words += len(strings.Fields(para))
	}
	flush()

	for i := range scenes {
		scenes[i].Page = 1
		scenes[i].LengthMinutes = estimateLength(0, strings.Count(scenes[i].Text, "\n"))
	}
	return scenes
}

func enrichTreatment(number int, text string) Scene {
	fields := ApplyRules(TreatmentRules, searchWindow(text))
	get := func(f Field) string {
		if v, ok := fields[f]; ok && v != "" {
			return v
		}
		return Unresolved
	}
	ie := get(FieldIntExt)
	if ie != Unresolved {
		ie = NormalizeIntExt(ie)
	}
	return Scene{
		Number:     number,
		IntExt:     ie,
		Location:   get(FieldLocation),
		TimeOfDay:  get(FieldTimeOfDay),
		Text:       text,
		Characters: ExtractCharacters(text),
	}
}

// searchWindow returns the first few sentences of the opening of text.
func searchWindow(text string) string {
	if utf8.RuneCountInString(text) > enrichWindow {
		text = string([]rune(text)[:enrichWindow])
	}
	var sentences []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
		if len(sentences) == enrichSentences {
			break
		}
	}
	return strings.Join(sentences, " ")
}

// EstimatePage returns the page a line falls on.
func EstimatePage(line int) int {
	return max(1, line/LinesPerPage)
}

func estimateLength(start, end int) float64 {
	pages := float64(end-start+1) / LinesPerPage
	minutes := math.Round(pages*MinutesPerPage*10) / 10
	return max(0.1, minutes)
}
