package parsing

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// skillAliases lists the spellings folded into each canonical skill name.
var skillAliases = map[string][]string{
	"Go":         {"go", "golang", "go lang"},
	"JavaScript": {"javascript", "js"},
	"TypeScript": {"typescript", "ts"},
	"Kubernetes": {"kubernetes", "k8s"},
	"React":      {"react", "react.js", "reactjs"},
	"Vue":        {"vue", "vue.js", "vuejs"},
	"Node.js":    {"node", "node.js", "nodejs"},
	"PostgreSQL": {"postgresql", "postgres", "psql"},
	"AWS":        {"aws"},
	"GCP":        {"gcp"},
	"SQL":        {"sql"},
	"C#":         {"c#"},
	"C++":        {"c++"},
}

var canonicalByAlias = func() map[string]string {
	m := make(map[string]string)
	for canonical, aliases := range skillAliases {
		for _, a := range aliases {
			m[a] = canonical
		}
	}
	return m
}()

// canonicalSkill returns the display form of a skill. Known aliases map to
// their canonical name; a single lower- or upper-case word is capitalized
// ("python", "PYTHON" -> "Python"); mixed case and multi-word phrases are kept.
func canonicalSkill(raw string) string {
	skill := strings.TrimSpace(raw)
	lower := strings.ToLower(skill)
	if canonical, ok := canonicalByAlias[lower]; ok {
		return canonical
	}
	if skill == "" || strings.ContainsRune(skill, ' ') {
		return skill
	}

	switch skill {
	case lower, strings.ToUpper(skill):
		r, n := utf8.DecodeRuneInString(lower)
		return string(unicode.ToUpper(r)) + lower[n:]
	default:
		return skill
	}
}

// canonicalSkills maps every requirement through canonicalSkill, dropping
// blanks and case-insensitive duplicates. The first spelling wins.
func canonicalSkills(reqs []string) []string {
	out := make([]string, 0, len(reqs))
	seen := make(map[string]struct{}, len(reqs))
	for _, r := range reqs {
		skill := canonicalSkill(r)
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, skill)
	}
	return out
}

// orderedRange swaps a reversed range. hi == 0 means unbounded and is kept.
func orderedRange(lo, hi float64) (float64, float64) {
	if hi > 0 && lo > hi {
		return hi, lo
	}
	return lo, hi
}
