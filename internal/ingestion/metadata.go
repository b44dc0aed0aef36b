package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"
)

// Source records how a resume reached the service.
type Source string

// Known resume sources.
const (
	SourcePaste  Source = "paste"
	SourceUpload Source = "upload"
	SourceFile   Source = "file"
	SourceBulk   Source = "bulk"
)

// now is replaced in tests.
var now = time.Now

// Metadata describes a cleaned resume. Hash identifies the cleaned text, so two
// uploads that differ only in whitespace or bullet glyphs share a hash.
type Metadata struct {
	Source     Source    `json:"source,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
	Hash       string    `json:"hash"`
	Chars      int       `json:"chars"`
	Lines      int       `json:"lines"`
	Bullets    int       `json:"bullets"`
}

func describe(cleaned string, source Source) *Metadata {
	m := &Metadata{
		Source:     source,
		IngestedAt: now().UTC(),
		Hash:       hashText(cleaned),
		Chars:      utf8.RuneCountInString(cleaned),
	}
	if cleaned == "" {
		return m
	}
	for _, line := range strings.Split(cleaned, "\n") {
		m.Lines++
		if isBulletLine(line) {
			m.Bullets++
		}
	}
	return m
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
