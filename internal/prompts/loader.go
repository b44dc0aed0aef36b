// Package prompts holds the model prompt templates for resume analysis and job
// posting parsing. Templates live in embedded JSON files keyed by prompt name
// and use {{.Name}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var files embed.FS

var placeholder = regexp.MustCompile(`\{\{\.([A-Za-z0-9_]+)\}\}`)

// templates caches each decoded file by name.
var templates sync.Map

func load(file string) (map[string]string, error) {
	if set, ok := templates.Load(file); ok {
		return set.(map[string]string), nil
	}

	raw, err := files.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("prompt file %s: %w", file, err)
	}
	var set map[string]string
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("prompt file %s is not a JSON object of strings: %w", file, err)
	}

	actual, _ := templates.LoadOrStore(file, set)
	return actual.(map[string]string), nil
}

// Get returns the raw template named key in file.
func Get(file, key string) (string, error) {
	set, err := load(file)
	if err != nil {
		return "", err
	}
	tmpl, ok := set[key]
	if !ok {
		return "", fmt.Errorf("prompt %q not found in %s", key, file)
	}
	return tmpl, nil
}

// Keys lists the prompt names defined in file.
func Keys(file string) ([]string, error) {
	set, err := load(file)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Render fills the template named key in file. Every placeholder must have a
// value in data. Values are substituted in one pass, so placeholder syntax
// inside a value (resume text, say) is left alone.
func Render(file, key string, data map[string]string) (string, error) {
	tmpl, err := Get(file, key)
	if err != nil {
		return "", err
	}

	var missing []string
	for _, name := range Placeholders(tmpl) {
		if _, ok := data[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt %s/%s: missing values for %s", file, key, strings.Join(missing, ", "))
	}

	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		return data[placeholder.FindStringSubmatch(m)[1]]
	}), nil
}

// Placeholders returns the distinct placeholder names in tmpl, sorted.
func Placeholders(tmpl string) []string {
	seen := make(map[string]struct{})
	for _, m := range placeholder.FindAllStringSubmatch(tmpl, -1) {
		seen[m[1]] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
