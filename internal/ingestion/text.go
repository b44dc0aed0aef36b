// Package ingestion normalizes resume text pasted, uploaded or read from disk before
// it is sent for analysis.
package ingestion

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// MaxFileBytes caps the size of resume files read from disk.
const MaxFileBytes = 1 << 20

var (
	// ErrEmptyDocument is returned when no text remains after cleaning
	ErrEmptyDocument = errors.New("document is empty")
	// ErrUnsupportedFormat is returned for files that are not plain text
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrTooLarge is returned for files above MaxFileBytes
	ErrTooLarge = errors.New("file too large")
)

var (
	spaceRun   = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	blankRun   = regexp.MustCompile(`\n{3,}`)
	bulletMark = regexp.MustCompile(`^[•·▪●◦‣∙]\s*`)
)

var textExtensions = map[string]bool{
	"":      true,
	".txt":  true,
	".text": true,
	".md":   true,
}

// Document is a cleaned resume ready for analysis.
type Document struct {
	Text     string    `json:"text"`
	Metadata *Metadata `json:"metadata"`
}

// CleanText cleans and normalizes text content while preserving structure
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = stripControl(content)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	result := blankRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

// cleanLine cleans a single line while preserving structure
func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return ""
	}

	// Headings are kept flush left
	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}

	indent := line[:len(line)-len(trimmed)]
	if bulletMark.MatchString(trimmed) {
		trimmed = "- " + bulletMark.ReplaceAllString(trimmed, "")
	}
	return indent + spaceRun.ReplaceAllString(trimmed, " ")
}

// isBulletLine checks if a line is a bullet list item
func isBulletLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || bulletMark.MatchString(trimmed)
}

// stripControl drops control characters other than newline and tab, which show
// up in text copied out of PDFs.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == '\uFEFF' {
			return -1
		}
		return r
	}, s)
}

// IngestText cleans raw resume text. source describes where it came from.
func IngestText(raw string, source Source) (*Document, error) {
	cleaned := CleanText(raw)
	if cleaned == "" {
		return nil, ErrEmptyDocument
	}
	return &Document{Text: cleaned, Metadata: describe(cleaned, source)}, nil
}

// IngestFromFile reads a plain-text resume file, cleans it, and returns it with metadata
func IngestFromFile(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !textExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %w", err)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > MaxFileBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	doc, err := IngestText(string(content), SourceFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Metadata.Filename = filepath.Base(path)
	return doc, nil
}
