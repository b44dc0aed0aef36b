// Package export writes candidate rankings as spreadsheet reports.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/scoring"
)

// Sheet names
const (
	SummarySheet = "Summary"
	RankedSheet  = "Ranked Candidates"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Score bands used for the summary counts and row colors
var bands = []struct {
	label string
	min   int
	color string
}{
	{"Excellent (85-100)", 85, "C6EFCE"},
	{"Good (70-84)", 70, "FFEB9C"},
	{"Partial (50-69)", 50, "FFC7CE"},
	{"Weak (<50)", 0, "FF9999"},
}

var rankedHeaders = []string{
	"Rank", "Candidate", "Overall", "Experience", "Skills", "Education",
	"Location", "Salary", "AI Analysis", "Notes",
}

// WriteCandidateReport writes an xlsx workbook for the job's ranked candidates to w.
func WriteCandidateReport(w io.Writer, job *db.Job, ranked []scoring.RankedCandidate) error {
	f, err := buildWorkbook(job, ranked, time.Now())
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// SaveCandidateReport writes the report to path, adding the .xlsx extension when missing.
// It returns the path written.
func SaveCandidateReport(path string, job *db.Job, ranked []scoring.RankedCandidate) (string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	path = filepath.Clean(path)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	if err := WriteCandidateReport(out, job, ranked); err != nil {
		_ = out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close report file: %w", err)
	}
	return path, nil
}

func buildWorkbook(job *db.Job, ranked []scoring.RankedCandidate, generated time.Time) (*excelize.File, error) {
	if job == nil {
		return nil, fmt.Errorf("job is required")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(RankedSheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := writeSummary(f, job, ranked, generated); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeRanked(f, ranked); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create ranked candidates sheet: %w", err)
	}
	return f, nil
}

// writeSummary fills the summary sheet with job details and score statistics.
func writeSummary(f *excelize.File, job *db.Job, ranked []scoring.RankedCandidate, generated time.Time) error {
	sheet := SummarySheet
	if err := f.SetColWidth(sheet, "A", "A", 26); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "B", 50); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	w := &sheetWriter{f: f, sheet: sheet, row: 1}
	w.heading("Candidate Ranking Report", headerStyle)
	w.row++

	p := job.Profile
	w.label("Job Title:", job.Title, labelStyle)
	w.label("Company:", job.Company, labelStyle)
	w.label("Status:", string(job.Status), labelStyle)
	w.label("Location:", locationText(p), labelStyle)
	w.label("Experience:", fmt.Sprintf("%g-%g years", p.MinExperience, p.MaxExperience), labelStyle)
	w.label("Requirements:", strings.Join(p.Requirements, ", "), labelStyle)
	w.label("Generated:", generated.Format("2006-01-02 15:04:05"), labelStyle)
	w.label("Candidates Scored:", len(ranked), labelStyle)
	w.row++

	if len(ranked) == 0 {
		return w.err
	}

	w.heading("Statistics", headerStyle)
	counts := make([]int, len(bands))
	total, highest, lowest := 0, ranked[0].Score.OverallScore, ranked[0].Score.OverallScore
	for _, c := range ranked {
		score := c.Score.OverallScore
		counts[bandIndex(score)]++
		total += score
		highest = max(highest, score)
		lowest = min(lowest, score)
	}
	for i, b := range bands {
		w.label(b.label+":", counts[i], -1)
	}
	w.label("Average Score:", fmt.Sprintf("%.2f", float64(total)/float64(len(ranked))), labelStyle)
	w.label("Highest Score:", highest, labelStyle)
	w.label("Lowest Score:", lowest, labelStyle)

	return w.err
}

// writeRanked fills the ranked sheet with one color-coded row per candidate.
func writeRanked(f *excelize.File, ranked []scoring.RankedCandidate) error {
	sheet := RankedSheet
	widths := []float64{8, 28, 10, 12, 10, 12, 12, 10, 12, 60}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder(),
	})
	if err != nil {
		return err
	}

	bandStyles := make([]int, len(bands))
	for i, b := range bands {
		bandStyles[i], err = f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{b.color}, Pattern: 1},
			Border:    thinBorder(),
			Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		})
		if err != nil {
			return err
		}
	}

	for i, header := range rankedHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(rankedHeaders))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, c := range ranked {
		row := i + 2
		s := c.Score
		values := []any{
			c.Rank, c.Name, s.OverallScore,
			s.Experience.Score, s.Skills.Score, s.Education.Score,
			s.Location.Score, s.Salary.Score, s.AIAnalysis.Score,
			c.Notes,
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}
		end, _ := excelize.CoordinatesToCellName(len(values), row)
		if err := f.SetCellStyle(sheet, start, end, bandStyles[bandIndex(s.OverallScore)]); err != nil {
			return err
		}
	}

	if len(ranked) > 0 {
		ref := fmt.Sprintf("A1:%s%d", lastCol, len(ranked)+1)
		if err := f.AutoFilter(sheet, ref, []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func bandIndex(score int) int {
	for i, b := range bands {
		if score >= b.min {
			return i
		}
	}
	return len(bands) - 1
}

func locationText(p scoring.JobProfile) string {
	loc := p.Location
	if loc == "" {
		loc = "Not specified"
	}
	if p.IsRemoteOK {
		loc += " (remote OK)"
	}
	return loc
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

// sheetWriter appends label/value rows to a sheet, keeping the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func (w *sheetWriter) heading(text string, style int) {
	a, b := fmt.Sprintf("A%d", w.row), fmt.Sprintf("B%d", w.row)
	w.do(func() error { return w.f.SetCellValue(w.sheet, a, text) })
	w.do(func() error { return w.f.SetCellStyle(w.sheet, a, b, style) })
	w.do(func() error { return w.f.MergeCell(w.sheet, a, b) })
	w.row++
}

// label writes a label and value; a negative style leaves the label unstyled.
func (w *sheetWriter) label(text string, value any, style int) {
	a, b := fmt.Sprintf("A%d", w.row), fmt.Sprintf("B%d", w.row)
	w.do(func() error { return w.f.SetCellValue(w.sheet, a, text) })
	if style >= 0 {
		w.do(func() error { return w.f.SetCellStyle(w.sheet, a, a, style) })
	}
	w.do(func() error { return w.f.SetCellValue(w.sheet, b, value) })
	w.row++
}

func (w *sheetWriter) do(fn func() error) {
	if w.err == nil {
		w.err = fn()
	}
}
