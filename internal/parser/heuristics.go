package parser

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Languages the analysis prompts are written in.
const (
	LangDE = "DE"
	LangEN = "EN"
)

var (
	parenthetical = regexp.MustCompile(`\s*\([^)]+\)`)

	germanMarkers  = wordSet("der", "die", "das", "und", "ist", "ich", "sie", "nicht", "von", "mit")
	englishMarkers = wordSet("the", "and", "is", "are", "was", "were", "have", "has", "will", "would")
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// IsCharacterCue reports whether line looks like a dialogue cue: an
// all-caps name on its own line, parentheticals such as (V.O.) ignored.
func IsCharacterCue(line string) (string, bool) {
	name := strings.TrimSpace(parenthetical.ReplaceAllString(strings.TrimSpace(line), ""))
	n := utf8.RuneCountInString(name)
	if n < 2 || n > 30 {
		return "", false
	}
	letters := 0
	for _, r := range name {
		switch {
		case unicode.IsLetter(r):
			if !unicode.IsUpper(r) {
				return "", false
			}
			letters++
		case r == ' ', r == '.', r == '\'', r == '-':
		default:
			return "", false
		}
	}
	if letters == 0 {
		return "", false
	}
	return name, true
}

// ExtractCharacters returns the sorted unique cue names found in text.
// Sluglines are skipped.
func ExtractCharacters(text string) []string {
	seen := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		if _, _, _, heading := ParseHeading(line); heading {
			continue
		}
		if name, ok := IsCharacterCue(line); ok {
			seen[name] = struct{}{}
		}
	}
	return sortedNames(seen)
}

// sceneCharacters merges the cast of every scene.
func sceneCharacters(scenes []Scene) []string {
	seen := make(map[string]struct{})
	for _, s := range scenes {
		for _, name := range s.Characters {
			seen[name] = struct{}{}
		}
	}
	return sortedNames(seen)
}

func sortedNames(seen map[string]struct{}) []string {
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DetectLanguage counts German and English function words. The language
// with more hits wins; tie is returned on a draw.
func DetectLanguage(text, tie string) string {
	var de, en int
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if _, ok := germanMarkers[w]; ok {
			de++
		}
		if _, ok := englishMarkers[w]; ok {
			en++
		}
	}
	switch {
	case de > en:
		return LangDE
	case en > de:
		return LangEN
	case tie == LangDE:
		return LangDE
	default:
		return LangEN
	}
}
