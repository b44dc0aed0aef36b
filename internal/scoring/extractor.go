package scoring

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// FallbackOverallScore is the overall score assigned when model output cannot be parsed.
const FallbackOverallScore = 70.0

// DefaultTruncateLimit is the summary length used for unparseable output.
const DefaultTruncateLimit = 500

// Extractor turns free-text model output into an ExtractedAnalysis.
type Extractor struct {
	// TruncateLimit bounds the fallback summary, in runes. Zero or negative uses the default.
	TruncateLimit int
}

// NewExtractor creates an Extractor with the given truncate limit.
func NewExtractor(truncateLimit int) *Extractor {
	return &Extractor{TruncateLimit: truncateLimit}
}

// keyAliases maps alternative spellings models use onto the canonical keys.
var keyAliases = map[string]string{
	"overall_score":   "overallScore",
	"score":           "overallScore",
	"key_strengths":   "keyStrengths",
	"strengths":       "keyStrengths",
	"weaknesses":      "concerns",
	"full_name":       "name",
	"phone_number":    "phone",
	"email_address":   "email",
	"recommendations": "recommendation",
}

// Extract parses text into an ExtractedAnalysis. It never fails: when no JSON object
// can be decoded, the fallback analysis is returned.
func (e *Extractor) Extract(text string) ExtractedAnalysis {
	analysis, err := e.parse(text)
	if err != nil {
		return e.Fallback(text)
	}
	return analysis
}

// Fallback returns the degraded analysis for unparseable text.
func (e *Extractor) Fallback(text string) ExtractedAnalysis {
	summary := truncateRunes(strings.TrimSpace(text), e.limit())
	return ExtractedAnalysis{
		Summary:        &summary,
		OverallScore:   FallbackOverallScore,
		Recommendation: RequiresReview,
		KeyStrengths:   []string{},
		Concerns:       []string{},
		Degraded:       true,
	}
}

func (e *Extractor) limit() int {
	if e == nil || e.TruncateLimit <= 0 {
		return DefaultTruncateLimit
	}
	return e.TruncateLimit
}

// parse locates the outermost brace span and decodes it. Each field is coerced on
// its own, so one field of an unexpected shape never discards the rest.
func (e *Extractor) parse(text string) (ExtractedAnalysis, error) {
	candidate, ok := ExtractJSONObject(text)
	if !ok {
		return ExtractedAnalysis{}, fmt.Errorf("no JSON object found")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return ExtractedAnalysis{}, fmt.Errorf("failed to decode JSON: %w", err)
	}
	fields = normalizeFields(fields)

	return ExtractedAnalysis{
		Name:           optionalString(coerceString(fields["name"])),
		Email:          optionalString(coerceString(fields["email"])),
		Phone:          optionalString(coerceString(fields["phone"])),
		Skills:         compactStrings(coerceList(fields["skills"])),
		Experience:     optionalString(coerceString(fields["experience"])),
		Summary:        optionalString(coerceString(fields["summary"])),
		OverallScore:   clampScore(coerceScore(fields["overallScore"])),
		Recommendation: ParseRecommendation(coerceString(first(fields["recommendation"]))),
		KeyStrengths:   nonNil(compactStrings(coerceList(fields["keyStrengths"]))),
		Concerns:       nonNil(compactStrings(coerceList(fields["concerns"]))),
	}, nil
}

// ExtractJSONObject returns the text between the first '{' and the last '}' after
// removing markdown code fences. ok is false when no such span exists.
func ExtractJSONObject(text string) (string, bool) {
	text = stripCodeFence(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// normalizeFields applies key aliases. Canonical keys win over their aliases.
func normalizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if value == nil {
			continue
		}
		canonical := key
		if alias, ok := keyAliases[key]; ok {
			canonical = alias
			if _, exists := fields[alias]; exists {
				continue
			}
		}
		out[canonical] = value
	}
	return out
}

// coerceString renders scalars as text and objects as JSON. A one-element list
// holding a scalar is unwrapped.
func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case map[string]any:
		return encodeJSON(val)
	case []any:
		if len(val) == 1 {
			if _, nested := val[0].(map[string]any); !nested {
				return coerceString(val[0])
			}
		}
		return encodeJSON(val)
	}
	var s string
	if err := mapstructure.WeakDecode(v, &s); err != nil {
		return fmt.Sprint(v)
	}
	return s
}

// coerceList flattens v into strings: objects contribute their values in key
// order, nested lists are expanded, scalars become single items.
func coerceList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			switch item.(type) {
			case []any:
				out = append(out, coerceList(item)...)
			case map[string]any:
				out = append(out, encodeJSON(item))
			default:
				out = append(out, coerceString(item))
			}
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, coerceList(val[k])...)
		}
		if out == nil {
			out = []string{}
		}
		return out
	default:
		return []string{coerceString(val)}
	}
}

// first returns the head of a non-empty list and v otherwise.
func first(v any) any {
	if list, ok := v.([]any); ok && len(list) > 0 {
		return list[0]
	}
	return v
}

// scoreText matches a leading number with an optional "/scale", e.g. "85/100" or "8.5 / 10".
var scoreText = regexp.MustCompile(`^\s*([-+]?\d+(?:\.\d+)?)\s*(?:/\s*(\d+(?:\.\d+)?))?`)

// coerceScore reads a numeric score. Scores out of another scale are rescaled to
// 0-100. Anything unreadable is 0.
func coerceScore(v any) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return val
	case string:
		m := scoreText.FindStringSubmatch(val)
		if m == nil {
			return 0
		}
		score, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0
		}
		if m[2] != "" {
			if scale, err := strconv.ParseFloat(m[2], 64); err == nil && scale > 0 && scale != 100 {
				score = score / scale * 100
			}
		}
		return score
	case []any:
		if len(val) == 0 {
			return 0
		}
		return coerceScore(val[0])
	}
	var f float64
	if err := mapstructure.WeakDecode(v, &f); err != nil {
		return 0
	}
	return f
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 && !strings.Contains(text[:idx], "{") {
		text = text[idx+1:]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func compactStrings(items []string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// truncateRunes cuts s to at most limit runes.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
