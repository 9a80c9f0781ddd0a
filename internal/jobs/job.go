// Package jobs holds analysis job records, the stores that persist them and
// the Runner that executes them in the background.
package jobs

import (
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/slate/internal/gateway"
	"github.com/jackzampolin/slate/internal/parser"
)

// Status represents the current state of a job.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusAnalyzing  Status = "analyzing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether no further transitions happen from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Running reports whether a job in s is being worked on.
func (s Status) Running() bool {
	return s == StatusQueued || s == StatusProcessing || s == StatusAnalyzing
}

// ResultStatus records how a scene's result was produced.
type ResultStatus string

const (
	ResultAnalyzed ResultStatus = "analyzed"
	ResultSampled  ResultStatus = "sampled"
	ResultFailed   ResultStatus = "failed"
)

// Result is the per-scene outcome of an analysis run: the scene's
// heuristic metadata with the model's answer merged over it.
type Result struct {
	Number        int      `json:"number"`
	IntExt        string   `json:"int_ext"`
	Location      string   `json:"location"`
	TimeOfDay     string   `json:"time_of_day"`
	Page          int      `json:"page"`
	LengthMinutes float64  `json:"length_minutes"`
	Characters    []string `json:"characters"`

	StoryEvent         string   `json:"story_event"`
	Subtext            string   `json:"subtext"`
	TurningPoint       string   `json:"turning_point"`
	TurningPointMoment string   `json:"turning_point_moment,omitempty"`
	OnStage            []string `json:"on_stage"`
	OffStage           []string `json:"off_stage"`
	ProtagonistMood    string   `json:"protagonist_mood"`

	Crime     *gateway.CrimeFields     `json:"crime,omitempty"`
	Narrative *gateway.NarrativeFields `json:"narrative,omitempty"`

	Status ResultStatus `json:"status"`
}

// ThematicAnswer is one answered question of the thematic pass.
type ThematicAnswer struct {
	Number   int    `json:"number"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Job is the persisted record of one uploaded document and its analysis.
type Job struct {
	ID       string        `json:"job_id"`
	Status   Status        `json:"status"`
	Filename string        `json:"filename"`
	Format   parser.Format `json:"format"`
	Pages    int           `json:"pages"`

	Scenes           []parser.Scene `json:"scenes"`
	DetectedLanguage string         `json:"detected_language"`
	Characters       []string       `json:"characters,omitempty"`

	// Analysis parameters, set when analysis is requested.
	Mode             gateway.Mode `json:"mode,omitempty"`
	Language         string       `json:"language,omitempty"`
	Model            string       `json:"model,omitempty"`
	ProtagonistCount int          `json:"protagonist_count,omitempty"`

	Progress     int `json:"progress"`
	CurrentScene int `json:"current_scene"`
	TotalScenes  int `json:"total_scenes"`

	Results       []Result         `json:"results,omitempty"`
	Thematic      []ThematicAnswer `json:"thematic,omitempty"`
	EstimatedCost float64          `json:"estimated_cost"`
	Error         string           `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an uploaded job for a parsed document.
func New(doc *parser.Document) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:               uuid.New().String(),
		Status:           StatusUploaded,
		Filename:         doc.Filename,
		Format:           doc.Format,
		Pages:            doc.Pages,
		Scenes:           doc.Scenes,
		DetectedLanguage: doc.Language,
		Characters:       doc.Characters,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Fail moves the job to the error state. Stored results are kept.
func (j *Job) Fail(msg string) {
	j.Status = StatusError
	j.Progress = 0
	j.Error = msg
}

// Snapshot is the progress view of a job served to status pollers.
type Snapshot struct {
	JobID        string `json:"job_id"`
	Status       Status `json:"status"`
	Progress     int    `json:"progress"`
	CurrentScene int    `json:"current_scene"`
	TotalScenes  int    `json:"total_scenes"`
	Error        string `json:"error,omitempty"`
}

// Snapshot returns the job's current progress view.
func (j *Job) Snapshot() Snapshot {
	return Snapshot{
		JobID:        j.ID,
		Status:       j.Status,
		Progress:     j.Progress,
		CurrentScene: j.CurrentScene,
		TotalScenes:  j.TotalScenes,
		Error:        j.Error,
	}
}
