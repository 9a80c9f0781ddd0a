// Package report renders analysis results as an XLSX workbook.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jackzampolin/slate/internal/gateway"
	"github.com/jackzampolin/slate/internal/jobs"
)

// Sheet names.
const (
	SheetScenes   = "Scene Analysis"
	SheetThematic = "Aronson Analysis"
	SheetMetadata = "Metadata"
)

// ContentType is the MIME type of rendered workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	headerFill = "4472C4"
	stripeFill = "F2F2F2"
	firstRow   = 3
)

type column struct {
	header string
	width  float64
	value  func(r *jobs.Result) any
}

// columns returns the scene sheet layout for language and mode.
func columns(language string, mode gateway.Mode) []column {
	de := language == gateway.LangDE
	label := func(deLabel, enLabel string) string {
		if de {
			return deLabel
		}
		return enLabel
	}

	cols := []column{
		{label("Szene", "Scene"), 8, func(r *jobs.Result) any { return r.Number }},
		{"INT/EXT", 10, func(r *jobs.Result) any { return r.IntExt }},
		{label("Schauplatz", "Location"), 20, func(r *jobs.Result) any { return r.Location }},
		{label("Tageszeit", "Time"), 12, func(r *jobs.Result) any { return r.TimeOfDay }},
		{"Story Event", 50, func(r *jobs.Result) any { return r.StoryEvent }},
		{"Subtext", 30, func(r *jobs.Result) any { return r.Subtext }},
		{label("Wendepunkt-Typ", "Turn Type"), 12, func(r *jobs.Result) any { return r.TurningPoint }},
		{label("Wendepunkt-Moment", "Turn Moment"), 40, func(r *jobs.Result) any { return r.TurningPointMoment }},
		{label("Anwesend", "On Stage"), 25, func(r *jobs.Result) any { return strings.Join(r.OnStage, ", ") }},
		{label("Erwähnt", "Off Stage"), 20, func(r *jobs.Result) any { return strings.Join(r.OffStage, ", ") }},
		{label("Anzahl", "Count"), 8, func(r *jobs.Result) any { return len(r.OnStage) }},
		{label("Stimmung", "Mood"), 15, func(r *jobs.Result) any { return r.ProtagonistMood }},
	}

	if mode.HasCrime() {
		crime := func(get func(c *gateway.CrimeFields) string) func(r *jobs.Result) any {
			return func(r *jobs.Result) any {
				if r.Crime == nil {
					return ""
				}
				return get(r.Crime)
			}
		}
		cols = append(cols,
			column{label("Beweise", "Evidence"), 30, crime(func(c *gateway.CrimeFields) string { return c.Evidence })},
			column{label("Info-Fluss", "Info Flow"), 15, crime(func(c *gateway.CrimeFields) string { return c.InformationFlow })},
			column{label("Wissensvorsprung", "Knowledge Gap"), 18, crime(func(c *gateway.CrimeFields) string { return c.KnowledgeGap })},
			column{label("Redundanz", "Redundancy"), 15, crime(func(c *gateway.CrimeFields) string { return c.Redundancy })},
			column{label("Verdächtige/Alibis", "Suspects/Alibis"), 35, crime(func(c *gateway.CrimeFields) string { return c.SuspectStatus })},
		)
	}

	if mode.HasNarrative() {
		story := func(get func(n *gateway.NarrativeFields) string) func(r *jobs.Result) any {
			return func(r *jobs.Result) any {
				if r.Narrative == nil {
					return ""
				}
				return get(r.Narrative)
			}
		}
		cols = append(cols,
			column{"Hero's Journey", 20, story(func(n *gateway.NarrativeFields) string { return n.HeroJourney })},
			column{label("Akt", "Act"), 15, story(func(n *gateway.NarrativeFields) string { return n.Act })},
			column{"Plot Point", 18, story(func(n *gateway.NarrativeFields) string { return n.PlotPointActual })},
			column{label("Erwartung", "Expected"), 20, story(func(n *gateway.NarrativeFields) string { return n.PlotPointExpected })},
		)
	}
	return cols
}

// Language returns the report language of a job: the requested language,
// then the detected one, then English.
func Language(job *jobs.Job) string {
	for _, l := range []string{job.Language, job.DetectedLanguage} {
		if l == gateway.LangDE || l == gateway.LangEN {
			return l
		}
	}
	return gateway.LangEN
}

// Filename returns the download name for a job's report.
func Filename(job *jobs.Job) string {
	stem := strings.TrimSuffix(filepath.Base(job.Filename), filepath.Ext(job.Filename))
	if stem == "" || stem == "." {
		stem = job.ID
	}
	return stem + "_analysis.xlsx"
}

// Render builds the workbook for a job's results.
func Render(job *jobs.Job) ([]byte, error) {
	return renderAt(job, time.Now())
}

func renderAt(job *jobs.Job, now time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	w := &writer{f: f}
	if err := w.styles(); err != nil {
		return nil, err
	}

	lang := Language(job)
	mode := job.Mode
	if mode == "" {
		mode = gateway.ModeStandard
	}

	if err := f.SetSheetName("Sheet1", SheetScenes); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	w.scenes(job, lang, mode)

	if mode.HasNarrative() {
		if len(job.Thematic) > 0 {
			w.thematic(job.Thematic, lang)
		}
		w.metadata(job, lang, mode, now)
	}
	if w.err != nil {
		return nil, w.err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// writer keeps the first excelize error so sheet code stays linear.
type writer struct {
	f   *excelize.File
	err error

	title, header, cell, stripe, bold int
}

func (w *writer) check(err error) {
	if err != nil && w.err == nil {
		w.err = err
	}
}

func (w *writer) styles() error {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	top := &excelize.Alignment{Vertical: "top", WrapText: true}

	var err error
	if w.title, err = w.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	}); err != nil {
		return err
	}
	if w.header, err = w.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    border,
	}); err != nil {
		return err
	}
	if w.cell, err = w.f.NewStyle(&excelize.Style{Alignment: top, Border: border}); err != nil {
		return err
	}
	if w.stripe, err = w.f.NewStyle(&excelize.Style{
		Alignment: top,
		Border:    border,
		Fill:      excelize.Fill{Type: "pattern", Color: []string{stripeFill}, Pattern: 1},
	}); err != nil {
		return err
	}
	w.bold, err = w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	return err
}

func (w *writer) set(sheet string, col, row int, v any) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.check(err)
		return
	}
	w.check(w.f.SetCellValue(sheet, cell, v))
}

func (w *writer) style(sheet string, fromCol, fromRow, toCol, toRow, style int) {
	from, err := excelize.CoordinatesToCellName(fromCol, fromRow)
	w.check(err)
	to, err := excelize.CoordinatesToCellName(toCol, toRow)
	w.check(err)
	if w.err == nil {
		w.check(w.f.SetCellStyle(sheet, from, to, style))
	}
}

func (w *writer) width(sheet string, col int, width float64) {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		w.check(err)
		return
	}
	w.check(w.f.SetColWidth(sheet, name, name, width))
}

func (w *writer) freeze(sheet string) {
	w.check(w.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      2,
		TopLeftCell: "A3",
		ActivePane:  "bottomLeft",
	}))
}

func (w *writer) scenes(job *jobs.Job, lang string, mode gateway.Mode) {
	const sheet = SheetScenes
	cols := columns(lang, mode)

	w.set(sheet, 1, 1, "Scene Analysis: "+job.Filename)
	w.check(w.f.MergeCell(sheet, "A1", "K1"))
	w.style(sheet, 1, 1, 1, 1, w.title)

	for i, c := range cols {
		w.set(sheet, i+1, 2, c.header)
		w.width(sheet, i+1, c.width)
	}
	w.style(sheet, 1, 2, len(cols), 2, w.header)

	for i := range job.Results {
		row := firstRow + i
		r := &job.Results[i]
		for j, c := range cols {
			w.set(sheet, j+1, row, c.value(r))
		}
		style := w.cell
		if row%2 == 0 {
			style = w.stripe
		}
		w.style(sheet, 1, row, len(cols), row, style)
	}
	w.freeze(sheet)
}

func (w *writer) thematic(answers []jobs.ThematicAnswer, lang string) {
	const sheet = SheetThematic
	if _, err := w.f.NewSheet(sheet); err != nil {
		w.check(err)
		return
	}

	title, question, answer := "Aronson Single Path Analysis", "Question", "Answer"
	if lang == gateway.LangDE {
		title, question, answer = "Aronson Single Path Analyse", "Frage", "Antwort"
	}
	w.set(sheet, 1, 1, title)
	w.check(w.f.MergeCell(sheet, "A1", "C1"))
	titleStyle, err := w.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
	})
	w.check(err)
	w.style(sheet, 1, 1, 3, 1, titleStyle)

	for i, h := range []string{"#", question, answer} {
		w.set(sheet, i+1, 2, h)
	}
	w.style(sheet, 1, 2, 3, 2, w.header)

	for i, a := range answers {
		row := firstRow + i
		w.set(sheet, 1, row, a.Number)
		w.set(sheet, 2, row, a.Question)
		w.set(sheet, 3, row, a.Answer)
		w.style(sheet, 1, row, 3, row, w.cell)
	}

	for i, width := range []float64{5, 60, 80} {
		w.width(sheet, i+1, width)
	}
	w.freeze(sheet)
}

func (w *writer) metadata(job *jobs.Job, lang string, mode gateway.Mode, now time.Time) {
	const sheet = SheetMetadata
	if _, err := w.f.NewSheet(sheet); err != nil {
		w.check(err)
		return
	}

	w.set(sheet, 1, 1, "Analysis Metadata")
	w.style(sheet, 1, 1, 1, 1, w.title)

	rows := [][2]any{
		{"Filename", job.Filename},
		{"Date", now.Format("2006-01-02 15:04")},
		{"Total Scenes", len(job.Results)},
		{"Mode", string(mode)},
		{"Language", lang},
	}
	for i, kv := range rows {
		row := firstRow + i
		w.set(sheet, 1, row, kv[0])
		w.set(sheet, 2, row, kv[1])
		w.style(sheet, 1, row, 1, row, w.bold)
	}
	w.width(sheet, 1, 20)
	w.width(sheet, 2, 40)
}
