package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackzampolin/slate/internal/gateway"
	"github.com/jackzampolin/slate/internal/jobs"
)

const thematicMaxTokens = 2000

var thematicQuestions = map[string][]string{
	gateway.LangDE: {
		"Wer ist die Hauptfigur und was ist ihr Ziel?",
		"Welche Hindernisse stehen der Hauptfigur im Weg?",
		"Was ist das auslösende Ereignis?",
		"Wie eskaliert der Konflikt?",
		"Was ist der Höhepunkt?",
		"Wie verändert sich die Hauptfigur?",
		"Wie verläuft die Handlungslinie?",
		"Wie verläuft die Beziehungslinie?",
	},
	gateway.LangEN: {
		"Who is the protagonist and what is their goal?",
		"What obstacles stand in the protagonist's way?",
		"What is the inciting incident?",
		"How does the conflict escalate?",
		"What is the climax?",
		"How does the protagonist change?",
		"How does the action line develop?",
		"How does the relationship line develop?",
	},
}

// ThematicQuestions returns the eight single-path questions in language,
// English when the language is unknown.
func ThematicQuestions(language string) []string {
	if q, ok := thematicQuestions[language]; ok {
		return q
	}
	return thematicQuestions[gateway.LangEN]
}

// BuildThematicPrompt asks the questions over the scene summaries.
func BuildThematicPrompt(results []Result, language string, protagonists int) string {
	var b strings.Builder
	if language == gateway.LangDE {
		b.WriteString("Beantworte die folgenden Fragen zu diesem Drehbuch anhand der Szenenzusammenfassungen.\n")
	} else {
		b.WriteString("Answer the following questions about this screenplay based on the scene summaries.\n")
	}
	if protagonists > 1 {
		fmt.Fprintf(&b, "The story follows %d protagonists; cover each of them.\n", protagonists)
	}
	b.WriteString("\n")
	for _, r := range results {
		if r.Status != jobs.ResultAnalyzed {
			continue
		}
		fmt.Fprintf(&b, "%d: %s\n", r.Number, r.StoryEvent)
	}
	b.WriteString("\n")
	for i, q := range ThematicQuestions(language) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	b.WriteString("\nReply ONLY with a JSON array of the answers as strings, in question order.\n")
	return b.String()
}

// ParseThematicAnswers pairs the answer array with the questions. Answers
// may be plain strings or objects with an "answer" field.
func ParseThematicAnswers(content, language string) ([]jobs.ThematicAnswer, error) {
	var raw []any
	if err := gateway.ParseArray(content, &raw); err != nil {
		return nil, err
	}
	questions := ThematicQuestions(language)
	out := make([]jobs.ThematicAnswer, len(questions))
	for i, q := range questions {
		answer := gateway.Unknown
		if i < len(raw) {
			if s := answerText(raw[i]); s != "" {
				answer = s
			}
		}
		out[i] = jobs.ThematicAnswer{Number: i + 1, Question: q, Answer: answer}
	}
	return out, nil
}

func answerText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		if s, ok := t["answer"].(string); ok {
			return strings.TrimSpace(s)
		}
	case nil:
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func thematicFailure(language string, err error) []jobs.ThematicAnswer {
	questions := ThematicQuestions(language)
	out := make([]jobs.ThematicAnswer, len(questions))
	for i, q := range questions {
		out[i] = jobs.ThematicAnswer{Number: i + 1, Question: q, Answer: fmt.Sprintf("Error: %v", err)}
	}
	return out
}

func (o *Orchestrator) thematicPass(ctx context.Context, job *jobs.Job, language string, logger *slog.Logger) {
	prompt := BuildThematicPrompt(job.Results, language, job.ProtagonistCount)
	content, err := o.analyzer.Complete(ctx, prompt, job.Model, thematicMaxTokens)
	if err == nil {
		job.Thematic, err = ParseThematicAnswers(content, language)
	}
	if err != nil {
		logger.Warn("thematic pass failed", "error", err)
		job.Thematic = thematicFailure(language, err)
	}
}
