package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalSkill(t *testing.T) {
	tests := map[string]string{
		"Golang":              "Go",
		"GOLANG":              "Go",
		" go lang ":           "Go",
		"JS":                  "JavaScript",
		"ts":                  "TypeScript",
		"k8s":                 "Kubernetes",
		"ReactJS":             "React",
		"nodejs":              "Node.js",
		"Postgres":            "PostgreSQL",
		"aws":                 "AWS",
		"python":              "Python",
		"PYTHON":              "Python",
		"GraphQL":             "GraphQL",
		"Distributed Systems": "Distributed Systems",
		"event sourcing":      "event sourcing",
		"ÉLIXIR":              "Élixir",
		"":                    "",
		"   ":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, canonicalSkill(in), "%q", in)
	}
}

func TestSkillAliases_NoAliasSharedBetweenSkills(t *testing.T) {
	owner := make(map[string]string)
	for canonical, aliases := range skillAliases {
		for _, a := range aliases {
			if prev, ok := owner[a]; ok {
				t.Errorf("alias %q maps to both %s and %s", a, prev, canonical)
			}
			owner[a] = canonical
		}
	}
}

func TestCanonicalSkills(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"aliases resolved", []string{"Golang", "javascript"}, []string{"Go", "JavaScript"}},
		{"aliases collapse", []string{"Go", "Golang", "go lang"}, []string{"Go"}},
		{"blanks dropped", []string{"", "  ", "SQL"}, []string{"SQL"}},
		{"first spelling wins", []string{"Terraform", "terraform", "TERRAFORM"}, []string{"Terraform"}},
		{"order kept", []string{"Kafka", "k8s", "Go"}, []string{"Kafka", "Kubernetes", "Go"}},
		{"nil input", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canonicalSkills(tt.in))
		})
	}
}

func TestOrderedRange(t *testing.T) {
	tests := []struct {
		lo, hi         float64
		wantLo, wantHi float64
	}{
		{7, 3, 3, 7},
		{3, 7, 3, 7},
		{5, 0, 5, 0},
		{0, 0, 0, 0},
	}
	for _, tt := range tests {
		lo, hi := orderedRange(tt.lo, tt.hi)
		assert.Equal(t, tt.wantLo, lo)
		assert.Equal(t, tt.wantHi, hi)
	}
}
