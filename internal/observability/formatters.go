// Package observability provides Prometheus metrics for the server and formatted
// output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/recruit-scorer/internal/parsing"
	"github.com/jonathan/recruit-scorer/internal/scoring"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 64
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for CLI commands
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads s to exactly width runes.
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		runes := []rune(s)
		return string(runes[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-n)
}

// PrintScore outputs the per-dimension breakdown of a candidate score.
func (p *Printer) PrintScore(score *scoring.CandidateScore) {
	if score == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Overall score: %d / 100\n\n", score.OverallScore))

	dims := score.Dimensions()
	rows := []struct {
		name string
		dim  scoring.DimensionResult
	}{
		{"Experience", dims.Experience},
		{"Skills", dims.Skills},
		{"Education", dims.Education},
		{"Location", dims.Location},
		{"Salary", dims.Salary},
		{"AI analysis", dims.AIAnalysis},
	}
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%-12s %5.1f  %s\n", row.name, row.dim.Score, row.dim.Details))
	}

	if len(score.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, r := range score.Recommendations {
			sb.WriteString(fmt.Sprintf("  • %s\n", r))
		}
	}

	p.printBox("CANDIDATE SCORE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAnalysis outputs a structured resume analysis.
func (p *Printer) PrintAnalysis(analysis *scoring.ExtractedAnalysis) {
	if analysis == nil {
		return
	}

	var sb strings.Builder
	if analysis.Name != nil {
		sb.WriteString(fmt.Sprintf("Name:           %s\n", *analysis.Name))
	}
	if analysis.Email != nil {
		sb.WriteString(fmt.Sprintf("Email:          %s\n", *analysis.Email))
	}
	sb.WriteString(fmt.Sprintf("Score:          %.0f\n", analysis.OverallScore))
	sb.WriteString(fmt.Sprintf("Recommendation: %s\n", analysis.Recommendation))
	if analysis.Degraded {
		sb.WriteString("Response could not be parsed; manual review required\n")
	}

	writeList(&sb, "Skills", analysis.Skills)
	writeList(&sb, "Key strengths", analysis.KeyStrengths)
	writeList(&sb, "Concerns", analysis.Concerns)

	if analysis.Summary != nil && *analysis.Summary != "" {
		sb.WriteString("\nSummary:\n")
		sb.WriteString(wrap(*analysis.Summary, boxWidth-6))
	}

	p.printBox("RESUME ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintJobDraft outputs a human-readable summary of a parsed job posting.
func (p *Printer) PrintJobDraft(draft *parsing.JobDraft) {
	if draft == nil {
		return
	}

	prof := draft.Profile
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:    %s\n", draft.Company))
	sb.WriteString(fmt.Sprintf("Role:       %s\n", draft.Title))
	sb.WriteString(fmt.Sprintf("Location:   %s (remote: %t)\n", prof.Location, prof.IsRemoteOK))
	sb.WriteString(fmt.Sprintf("Experience: %g-%g years\n", prof.MinExperience, prof.MaxExperience))
	if prof.SalaryMin > 0 || prof.SalaryMax > 0 {
		sb.WriteString(fmt.Sprintf("Salary:     %g-%g\n", prof.SalaryMin, prof.SalaryMax))
	}
	if prof.MinDegree != "" {
		sb.WriteString(fmt.Sprintf("Degree:     %s\n", prof.MinDegree))
	}
	writeList(&sb, "Requirements", prof.Requirements)

	p.printBox("PARSED JOB PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRanking outputs the top ranked candidates for a job.
func (p *Printer) PrintRanking(ranked []scoring.RankedCandidate) {
	if len(ranked) == 0 {
		p.printBox("CANDIDATE RANKING", "No scored candidates")
		return
	}

	var sb strings.Builder
	count := min(len(ranked), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := ranked[i]
		sb.WriteString(fmt.Sprintf("#%d  %-30s %3d\n", c.Rank, c.Name, c.Score.OverallScore))
		if c.Notes != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", c.Notes))
		}
	}
	if len(ranked) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more candidates", len(ranked)-maxItemsToShow))
	}

	p.printBox("CANDIDATE RANKING", strings.TrimSuffix(sb.String(), "\n"))
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n%s:\n", title))
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
}

// wrap breaks text into lines of at most width runes on word boundaries.
func wrap(text string, width int) string {
	var sb strings.Builder
	lineLen := 0
	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)
		if lineLen > 0 && lineLen+1+n > width {
			sb.WriteString("\n")
			lineLen = 0
		}
		if lineLen > 0 {
			sb.WriteString(" ")
			lineLen++
		}
		sb.WriteString(word)
		lineLen += n
	}
	sb.WriteString("\n")
	return sb.String()
}
