package llm

import (
	"fmt"
	"strings"
)

// OutputField is one key of the JSON object a model is asked to return.
type OutputField struct {
	Key      string
	Kind     string // JSON kind shown to the model; defaults to "string"
	Note     string
	Required bool
}

// OutputSpec describes a structured extraction: what to pull out of a text
// and the exact object shape to answer with.
type OutputSpec struct {
	Task   string
	Fields []OutputField
}

// Prompt renders the extraction instructions followed by the quoted input.
func (s OutputSpec) Prompt(input string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(s.Task))
	b.WriteString("\n\nAnswer with a single JSON object shaped like this:\n{\n")

	for i, f := range s.Fields {
		kind := f.Kind
		if kind == "" {
			kind = "string"
		}
		fmt.Fprintf(&b, "  %q: %s", f.Key, kind)
		if i < len(s.Fields)-1 {
			b.WriteByte(',')
		}
		var notes []string
		if f.Required {
			notes = append(notes, "required")
		}
		if f.Note != "" {
			notes = append(notes, f.Note)
		}
		if len(notes) > 0 {
			fmt.Fprintf(&b, "  // %s", strings.Join(notes, "; "))
		}
		b.WriteByte('\n')
	}

	b.WriteString("}\n\nRules:\n")
	b.WriteString("- Only use facts stated in the text. Write null for anything it does not state.\n")
	b.WriteString("- Output the object alone: no markdown fences, no commentary.\n\n")
	b.WriteString("Text:\n\"\"\"\n")
	b.WriteString(input)
	b.WriteString("\n\"\"\"\n")
	return b.String()
}

// JobPostingSpec is the extraction used to turn a scraped job posting into a
// job profile. Its keys match the job profile schema.
var JobPostingSpec = OutputSpec{
	Task: `You read job postings for an applicant tracking system and pull out what candidates are scored against.
Experience and salary are numbers. "5+ years" means a minimum of 5 with no maximum.`,
	Fields: []OutputField{
		{Key: "title", Note: "job title", Required: true},
		{Key: "company", Note: "hiring company"},
		{Key: "location", Note: `primary office, "City, Region"`},
		{Key: "is_remote_ok", Kind: "boolean", Note: "true only when fully remote work is allowed", Required: true},
		{Key: "min_experience", Kind: "number", Note: "years"},
		{Key: "max_experience", Kind: "number", Note: "years"},
		{Key: "requirements", Kind: "[string]", Note: "required skills, one short term each", Required: true},
		{Key: "salary_min", Kind: "number", Note: "annual"},
		{Key: "salary_max", Kind: "number", Note: "annual"},
		{Key: "min_degree", Note: "associate, bachelor, master or phd"},
		{Key: "preferred_fields", Kind: "[string]", Note: "preferred fields of study"},
		{Key: "description", Note: "two sentence summary of the role"},
	},
}
